// Package config loads coordinator configuration from YAML with
// environment variable expansion and sane defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/reliefops/relief-coordinator/pkg/geo"
)

// Config represents the relief coordinator configuration
type Config struct {
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Region      RegionConfig      `yaml:"region"`
	Sources     SourcesConfig     `yaml:"sources"`
	Routing     RoutingConfig     `yaml:"routing"`
	LLM         LLMConfig         `yaml:"llm"`
	Reporting   ReportingConfig   `yaml:"reporting"`
}

// CoordinatorConfig contains general coordinator settings
type CoordinatorConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	// QueryTimeout bounds one full query, end to end.
	QueryTimeout time.Duration `yaml:"query_timeout"`
	// MaxPending bounds the number of queries admitted concurrently.
	// Submissions beyond it are rejected immediately.
	MaxPending int `yaml:"max_pending"`
	// InitialScenarioTime is the simulated clock at startup, RFC3339.
	InitialScenarioTime string `yaml:"initial_scenario_time"`
}

// RegionConfig describes the operating area
type RegionConfig struct {
	// BBox is the default query window when a query names no area.
	BBox geo.BoundingBox `yaml:"bbox"`
	// NetworkFile is the road network GeoJSON path.
	NetworkFile string `yaml:"network_file"`
	// DataDir holds the source datasets consumed by the adapters.
	DataDir string `yaml:"data_dir"`
}

// SourcesConfig contains data source adapter settings
type SourcesConfig struct {
	// GatherTimeout bounds each adapter's gather call.
	GatherTimeout time.Duration `yaml:"gather_timeout"`
	// Disabled lists adapter names excluded from gathering.
	Disabled []string `yaml:"disabled"`
}

// RoutingConfig contains route planner settings
type RoutingConfig struct {
	// ExternalURL is the base URL of the external routing service.
	// Empty disables the external stage.
	ExternalURL string        `yaml:"external_url"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LLMConfig contains language model settings for query parsing and
// response summaries. Empty BaseURL disables the model entirely and the
// coordinator runs on deterministic fallbacks.
type LLMConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// ReportingConfig contains response storage settings
type ReportingConfig struct {
	OutputDir string `yaml:"output_dir"`
	KeepLastN int    `yaml:"keep_last_n"`
}

// DefaultConfig returns a default configuration covering western North
// Carolina, the region the bundled datasets describe.
func DefaultConfig() *Config {
	return &Config{
		Coordinator: CoordinatorConfig{
			LogLevel:            "info",
			LogFormat:           "text",
			QueryTimeout:        45 * time.Second,
			MaxPending:          16,
			InitialScenarioTime: "2024-09-27T03:00:00Z",
		},
		Region: RegionConfig{
			BBox: geo.BoundingBox{
				West:  -83.5,
				South: 35.0,
				East:  -81.5,
				North: 36.5,
			},
			NetworkFile: "data/road_network.geojson",
			DataDir:     "data",
		},
		Sources: SourcesConfig{
			GatherTimeout: 5 * time.Second,
		},
		Routing: RoutingConfig{
			Timeout: 10 * time.Second,
		},
		LLM: LLMConfig{
			Model:   "gpt-4o-mini",
			Timeout: 15 * time.Second,
		},
		Reporting: ReportingConfig{
			OutputDir: "./responses",
			KeepLastN: 50,
		},
	}
}

// Load loads configuration from a YAML file. A .env file in the working
// directory is read first so ${VAR} references in the YAML can resolve
// against it. A missing config file yields the defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := []byte(os.ExpandEnv(string(data)))

	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment always wins for secrets.
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("ROUTING_API_KEY"); v != "" {
		cfg.Routing.APIKey = v
	}

	return cfg, nil
}

// Save writes configuration to a YAML file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !c.Region.BBox.Valid() {
		return fmt.Errorf("region.bbox is malformed: west must not exceed east and south must not exceed north")
	}

	if c.Region.NetworkFile == "" {
		return fmt.Errorf("region.network_file is required")
	}

	if c.Coordinator.QueryTimeout <= 0 {
		return fmt.Errorf("coordinator.query_timeout must be positive")
	}

	if c.Coordinator.MaxPending < 1 {
		return fmt.Errorf("coordinator.max_pending must be at least 1")
	}

	if _, err := time.Parse(time.RFC3339, c.Coordinator.InitialScenarioTime); err != nil {
		return fmt.Errorf("coordinator.initial_scenario_time: %w", err)
	}

	if c.Reporting.OutputDir == "" {
		return fmt.Errorf("reporting.output_dir is required")
	}

	if c.Reporting.KeepLastN < 1 {
		return fmt.Errorf("reporting.keep_last_n must be at least 1")
	}

	return nil
}
