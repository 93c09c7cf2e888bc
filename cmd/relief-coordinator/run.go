package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/reliefops/relief-coordinator/pkg/adapters"
	"github.com/reliefops/relief-coordinator/pkg/clock"
	"github.com/reliefops/relief-coordinator/pkg/config"
	"github.com/reliefops/relief-coordinator/pkg/extract"
	"github.com/reliefops/relief-coordinator/pkg/pipeline"
	"github.com/reliefops/relief-coordinator/pkg/reporting"
	"github.com/reliefops/relief-coordinator/pkg/roadnet"
	"github.com/reliefops/relief-coordinator/pkg/routing"
)

const demoQuery = "I have 200 cases of water at the Asheville airport staging area. " +
	"Which shelters need it most and what routes should I take?"

// demoScenarioTime is mid-day Sept 27, after Helene's worst flooding.
const demoScenarioTime = "2024-09-27T14:00:00Z"

func runCoordinator(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logLevel := reporting.LogLevel(cfg.Coordinator.LogLevel)
	if verbose {
		logLevel = reporting.LogLevelDebug
	}
	logger := reporting.NewLogger(reporting.LoggerConfig{
		Level:  logLevel,
		Format: reporting.LogFormat(cfg.Coordinator.LogFormat),
	})

	logger.Info("Relief Coordinator starting", "version", version)

	coord, storage, err := buildCoordinator(cfg, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch {
	case demoMode:
		return runDemo(ctx, coord, storage)
	case jsonMode:
		return runJSONDemo(ctx, coord, storage)
	default:
		return runInteractive(ctx, coord, storage)
	}
}

// buildCoordinator wires the full pipeline from configuration.
func buildCoordinator(cfg *config.Config, logger *reporting.Logger) (*pipeline.Coordinator, *reporting.ResponseStorage, error) {
	network := roadnet.NewNetwork(logger)
	if err := network.LoadGeoJSON(cfg.Region.NetworkFile); err != nil {
		// The coordinator still answers with fallback routes on an
		// empty graph; don't refuse to start.
		logger.Warn("road network unavailable", "error", err.Error())
	}

	dataDir := cfg.Region.DataDir
	shelterAdapter := adapters.NewShelterAdapter(filepath.Join(dataDir, "shelters.json"), logger)

	all := []adapters.Adapter{
		adapters.NewSatelliteAdapter(filepath.Join(dataDir, "satellite_detections.json"), logger),
		adapters.NewSocialAdapter(filepath.Join(dataDir, "social_media_posts.json"), logger),
		adapters.NewOfficialAdapter(filepath.Join(dataDir, "helene_timeline.json"), logger),
		shelterAdapter,
	}
	disabled := make(map[string]bool, len(cfg.Sources.Disabled))
	for _, name := range cfg.Sources.Disabled {
		disabled[name] = true
	}
	var enabled []adapters.Adapter
	for _, a := range all {
		if disabled[a.Name()] {
			logger.Info("adapter disabled", "adapter", a.Name())
			continue
		}
		enabled = append(enabled, a)
	}

	external := routing.NewExternalRouter(cfg.Routing.ExternalURL, cfg.Routing.APIKey, cfg.Routing.Timeout, logger)
	router := routing.NewRouter(network, external, logger)

	var entries []extract.Entry
	for _, d := range shelterAdapter.Depots() {
		entries = append(entries, extract.Entry{Name: d.Name, Location: d.Location})
	}
	gazetteer := extract.NewGazetteer(entries)
	keyword := extract.NewKeywordExtractor(gazetteer, logger)

	var extractor extract.Extractor = keyword
	var summarizer extract.Summarizer
	llmClient := extract.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout)
	if llmClient.Enabled() {
		llm := extract.NewLLMExtractor(llmClient, keyword, logger)
		extractor = llm
		summarizer = llm
		logger.Info("language model connected", "model", cfg.LLM.Model)
	} else {
		logger.Info("language model unavailable, using keyword extraction")
	}

	initial, err := time.Parse(time.RFC3339, cfg.Coordinator.InitialScenarioTime)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid initial scenario time: %w", err)
	}

	coord, err := pipeline.NewCoordinator(pipeline.Options{
		Adapters:       enabled,
		Shelters:       shelterAdapter,
		Network:        network,
		Router:         router,
		Extractor:      extractor,
		Summarizer:     summarizer,
		Clock:          clock.New(initial),
		BBox:           cfg.Region.BBox,
		Logger:         logger,
		GatherTimeout:  cfg.Sources.GatherTimeout,
		ExtractTimeout: cfg.LLM.Timeout,
		QueryTimeout:   cfg.Coordinator.QueryTimeout,
		MaxPending:     cfg.Coordinator.MaxPending,
	})
	if err != nil {
		return nil, nil, err
	}

	storage, err := reporting.NewResponseStorage(cfg.Reporting.OutputDir, cfg.Reporting.KeepLastN, logger)
	if err != nil {
		return nil, nil, err
	}

	return coord, storage, nil
}

func runDemo(ctx context.Context, coord *pipeline.Coordinator, storage *reporting.ResponseStorage) error {
	p := reporting.NewPrinter(os.Stdout)
	p.Header("DISASTER RELIEF COORDINATOR - DEMO")
	p.Line("Hurricane Helene | Western North Carolina | Sept 2024")

	t, _ := time.Parse(time.RFC3339, demoScenarioTime)
	coord.SetScenarioTime(t)

	p.Blank()
	p.Line("Query> %s", demoQuery)

	resp, err := coord.ProcessQuery(ctx, demoQuery)
	if err != nil {
		return err
	}
	saveResponse(storage, resp)

	if jsonMode {
		return printJSON(os.Stdout, resp)
	}
	printResponse(p, resp)
	return nil
}

func runJSONDemo(ctx context.Context, coord *pipeline.Coordinator, storage *reporting.ResponseStorage) error {
	t, _ := time.Parse(time.RFC3339, demoScenarioTime)
	coord.SetScenarioTime(t)

	resp, err := coord.ProcessQuery(ctx, demoQuery)
	if err != nil {
		return err
	}
	saveResponse(storage, resp)
	return printJSON(os.Stdout, resp)
}

func runInteractive(ctx context.Context, coord *pipeline.Coordinator, storage *reporting.ResponseStorage) error {
	p := reporting.NewPrinter(os.Stdout)
	p.Header("DISASTER RELIEF COORDINATOR")
	stats := coord.NetworkStats()
	p.KV("Scenario time", "%s", coord.ScenarioTime().Format(time.RFC3339))
	p.KV("Road network", "%d nodes, %d edges", stats.Nodes, stats.Edges)
	p.Blank()
	p.Line("Type your supply routing questions.")
	p.Line("Commands: 'time <hours>' advances the scenario clock, 'quit' exits.")
	p.Blank()

	rl, err := readline.New("Query> ")
	if err != nil {
		return fmt.Errorf("failed to initialise prompt: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}

		switch strings.ToLower(query) {
		case "quit", "exit", "q":
			return nil
		}

		if rest, ok := strings.CutPrefix(query, "time "); ok {
			hours, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
			if err != nil {
				p.Line("Usage: time <hours>")
				continue
			}
			now, err := coord.AdvanceScenarioTime(hours)
			if err != nil {
				p.Line("Cannot advance time: %v", err)
				continue
			}
			p.Line("Advanced time by %v hours. Now: %s", hours, now.Format(time.RFC3339))
			continue
		}

		resp, err := coord.ProcessQuery(ctx, query)
		if err != nil {
			p.Line("Error: %v", err)
			continue
		}
		saveResponse(storage, resp)

		if jsonMode {
			_ = printJSON(os.Stdout, resp)
		} else {
			printResponse(p, resp)
		}
	}
}

func saveResponse(storage *reporting.ResponseStorage, resp *pipeline.Response) {
	if storage == nil || resp == nil {
		return
	}
	// Failure to persist never affects the answer.
	_, _ = storage.Save(resp.ScenarioTime, resp)
}

func printJSON(w io.Writer, resp *pipeline.Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
