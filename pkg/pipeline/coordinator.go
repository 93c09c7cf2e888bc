package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/reliefops/relief-coordinator/pkg/adapters"
	"github.com/reliefops/relief-coordinator/pkg/clock"
	"github.com/reliefops/relief-coordinator/pkg/extract"
	"github.com/reliefops/relief-coordinator/pkg/fusion"
	"github.com/reliefops/relief-coordinator/pkg/geo"
	"github.com/reliefops/relief-coordinator/pkg/metrics"
	"github.com/reliefops/relief-coordinator/pkg/report"
	"github.com/reliefops/relief-coordinator/pkg/reporting"
	"github.com/reliefops/relief-coordinator/pkg/roadnet"
	"github.com/reliefops/relief-coordinator/pkg/routing"
)

// supplyToNeed maps query supply kinds onto shelter need tags.
var supplyToNeed = map[string]string{
	"water_cases":       "water",
	"blankets":          "blankets",
	"medical_kits":      "medical_supplies",
	"food_cases":        "food",
	"generators":        "generators",
	"fuel":              "fuel",
	"diapers":           "diapers",
	"baby_formula":      "baby_formula",
	"pet_supplies":      "pet_supplies",
	"hygiene_kits":      "hygiene_kits",
	"cots":              "cots",
	"medications":       "medications",
	"charging_stations": "charging_stations",
}

// Options configures a Coordinator.
type Options struct {
	Adapters   []adapters.Adapter
	Shelters   *adapters.ShelterAdapter
	Network    *roadnet.Network
	Router     *routing.Router
	Extractor  extract.Extractor
	Summarizer extract.Summarizer
	Clock      *clock.Clock
	BBox       geo.BoundingBox
	Logger     *reporting.Logger

	GatherTimeout  time.Duration
	ExtractTimeout time.Duration
	QueryTimeout   time.Duration
	MaxPending     int
}

// Coordinator runs the query pipeline. It owns no data itself; the
// graph and clock are shared holders passed in at construction.
type Coordinator struct {
	adapters   []adapters.Adapter
	shelters   *adapters.ShelterAdapter
	network    *roadnet.Network
	router     *routing.Router
	extractor  extract.Extractor
	summarizer extract.Summarizer
	clock      *clock.Clock
	bbox       geo.BoundingBox
	logger     *reporting.Logger

	gatherTimeout  time.Duration
	extractTimeout time.Duration
	queryTimeout   time.Duration
	pending        chan struct{}
}

// NewCoordinator validates the options and creates a coordinator.
func NewCoordinator(opts Options) (*Coordinator, error) {
	if opts.Network == nil {
		return nil, fmt.Errorf("pipeline requires a road network")
	}
	if opts.Router == nil {
		return nil, fmt.Errorf("pipeline requires a router")
	}
	if opts.Extractor == nil {
		return nil, fmt.Errorf("pipeline requires an extractor")
	}
	if opts.Clock == nil {
		return nil, fmt.Errorf("pipeline requires a scenario clock")
	}
	if opts.Logger == nil {
		opts.Logger = reporting.NewNopLogger()
	}
	if opts.GatherTimeout <= 0 {
		opts.GatherTimeout = 5 * time.Second
	}
	if opts.ExtractTimeout <= 0 {
		opts.ExtractTimeout = 15 * time.Second
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 45 * time.Second
	}
	if opts.MaxPending <= 0 {
		opts.MaxPending = 16
	}

	return &Coordinator{
		adapters:       opts.Adapters,
		shelters:       opts.Shelters,
		network:        opts.Network,
		router:         opts.Router,
		extractor:      opts.Extractor,
		summarizer:     opts.Summarizer,
		clock:          opts.Clock,
		bbox:           opts.BBox,
		logger:         opts.Logger.WithComponent("pipeline"),
		gatherTimeout:  opts.GatherTimeout,
		extractTimeout: opts.ExtractTimeout,
		queryTimeout:   opts.QueryTimeout,
		pending:        make(chan struct{}, opts.MaxPending),
	}, nil
}

// ProcessQuery answers one natural-language supply query. Degradations
// inside individual steps reduce that step's contribution; only a full
// queue refuses the query outright.
func (c *Coordinator) ProcessQuery(ctx context.Context, query string) (*Response, error) {
	select {
	case c.pending <- struct{}{}:
	default:
		metrics.QueriesRejected.Inc()
		c.logger.Warn("query rejected, queue full", "query", query)
		return &Response{
			Query:        query,
			ScenarioTime: c.clock.Now(),
			Error:        "The coordinator is overloaded. Please retry shortly.",
		}, ErrResourceExhausted
	}
	defer func() { <-c.pending }()

	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	now := c.clock.Now()
	c.logger.Info("processing query", "query", query, "scenario_time", now)

	parsed := c.parse(ctx, query)

	intel := c.GatherAll(ctx)
	all := flattenByAdapter(c.adapters, intel)

	c.projectReports(all)
	clusters := fusion.ClusterReports(all, fusion.DefaultProximityKm)
	c.applyConsensus(clusters)
	resolved := c.reconcile(ctx, clusters, now)

	var routes []*routing.Route
	if parsed.Origin != nil {
		routes = c.planDeliveries(ctx, parsed, all, now)
	}

	resp := c.assemble(ctx, query, parsed, intel, routes, resolved, now)
	if parsed.Origin == nil {
		resp.Error = noOriginMessage
		metrics.QueriesTotal.WithLabelValues("no_origin").Inc()
		return resp, nil
	}

	if resp.SituationalAwareness.Partial {
		metrics.QueriesTotal.WithLabelValues("partial").Inc()
	} else {
		metrics.QueriesTotal.WithLabelValues("ok").Inc()
	}
	return resp, nil
}

// parse runs the extractor under its own timeout. The extractor
// degrades to the keyword path internally; an outright error leaves an
// empty keyword-tagged query.
func (c *Coordinator) parse(ctx context.Context, query string) extract.ParsedQuery {
	pctx, cancel := context.WithTimeout(ctx, c.extractTimeout)
	defer cancel()

	parsed, err := c.extractor.ParseQuery(pctx, query)
	if err != nil {
		c.logger.Warn("query parse failed", "error", err.Error())
		metrics.ExtractorFallbacks.WithLabelValues("parse").Inc()
		return extract.ParsedQuery{
			Intent:      extract.IntentRouteSupplies,
			Supplies:    map[string]int{},
			RawQuery:    query,
			Urgency:     extract.UrgencyMedium,
			Constraints: []string{},
			ParsedBy:    extract.ParsedByKeyword,
		}
	}
	if parsed.ParsedBy == extract.ParsedByKeyword {
		metrics.ExtractorFallbacks.WithLabelValues("parse").Inc()
	}
	return parsed
}

// GatherAll fans out across every adapter concurrently and waits for
// all of them to finish, fail, or time out. No route is planned before
// this barrier completes.
func (c *Coordinator) GatherAll(ctx context.Context) map[string][]report.Report {
	now := c.clock.Now()
	results := make(map[string][]report.Report, len(c.adapters))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, a := range c.adapters {
		wg.Add(1)
		go func(a adapters.Adapter) {
			defer wg.Done()

			gctx, cancel := context.WithTimeout(ctx, c.gatherTimeout)
			defer cancel()

			reports, err := a.Gather(gctx, now, c.bbox)
			if err != nil {
				c.logger.Warn("adapter gather failed", "adapter", a.Name(), "error", err.Error())
				metrics.AdapterFailures.WithLabelValues(a.Name()).Inc()
				reports = nil
			}
			metrics.ReportsGathered.WithLabelValues(a.Name()).Add(float64(len(reports)))

			mu.Lock()
			results[a.Name()] = reports
			mu.Unlock()
		}(a)
	}
	wg.Wait()

	return results
}

// GatherNew gathers everything, then keeps only reports that became
// visible since the previous clock position.
func (c *Coordinator) GatherNew(ctx context.Context) map[string][]report.Report {
	all := c.GatherAll(ctx)
	prev := c.clock.Previous()
	now := c.clock.Now()
	if !prev.Before(now) {
		return all
	}

	filtered := make(map[string][]report.Report, len(all))
	for name, reports := range all {
		var keep []report.Report
		for _, r := range reports {
			if r.Timestamp.After(prev) && !r.Timestamp.After(now) {
				keep = append(keep, r)
			}
		}
		filtered[name] = keep
	}
	return filtered
}

// flattenByAdapter concatenates per-adapter results in registration
// order, keeping the flat list deterministic.
func flattenByAdapter(adapterList []adapters.Adapter, intel map[string][]report.Report) []report.Report {
	var all []report.Report
	for _, a := range adapterList {
		all = append(all, intel[a.Name()]...)
	}
	return all
}

// projectReports resets the damage overlay and projects every
// road-affecting report onto the graph.
func (c *Coordinator) projectReports(all []report.Report) {
	c.network.ResetAllWeights()
	for _, r := range all {
		if !r.Event.AffectsRoads() {
			continue
		}
		c.network.ApplyReport(r, roadnet.DefaultRadiusDeg)
	}
}

// applyConsensus re-projects road-affecting reports that sit in a
// corroborated, non-conflicting cluster with the cluster's consensus
// confidence.
func (c *Coordinator) applyConsensus(clusters []fusion.Cluster) {
	for _, cl := range clusters {
		if len(cl.Reports) < 2 || fusion.HasConflict(cl) {
			continue
		}
		conf := fusion.Consensus(cl)
		for _, r := range cl.Reports {
			if !r.Event.AffectsRoads() {
				continue
			}
			r.Confidence = conf
			c.network.ApplyReport(r, roadnet.DefaultRadiusDeg)
		}
	}
}

// reconcile resolves each contradicting cluster and re-projects the
// resolved status over the per-report projection.
func (c *Coordinator) reconcile(ctx context.Context, clusters []fusion.Cluster, now time.Time) []ResolvedConflict {
	conflicting := fusion.ConflictingClusters(clusters)
	if len(conflicting) == 0 {
		return nil
	}

	resolved := make([]ResolvedConflict, 0, len(conflicting))
	for _, cl := range conflicting {
		rctx, cancel := context.WithTimeout(ctx, c.extractTimeout)
		res, err := c.extractor.ReconcileConflict(rctx, cl.Reports, cl.Label())
		cancel()
		if err != nil {
			c.logger.Warn("reconciliation failed", "cluster", cl.Label(), "error", err.Error())
			res = fusion.FallbackReconcile(cl.Reports, cl.Label())
		}
		if res.ResolverTag == fusion.ResolverFallback {
			metrics.ExtractorFallbacks.WithLabelValues("reconcile").Inc()
		}

		c.network.ApplyResolution(cl.Centroid, res, now, roadnet.DefaultRadiusDeg)

		resolved = append(resolved, ResolvedConflict{
			RoadID:         cl.Label(),
			ResolvedStatus: res.Status,
			Confidence:     res.Confidence,
			Reasoning:      res.Reasoning,
			ResolvedBy:     res.ResolverTag,
		})
		c.logger.Info("conflict resolved",
			"cluster", cl.Label(), "status", res.Status,
			"confidence", res.Confidence, "resolved_by", res.ResolverTag)
	}
	return resolved
}

type scoredShelter struct {
	shelter adapters.Shelter
	matched []string
	score   float64
}

// planDeliveries ranks the active shelters and routes to the top three.
func (c *Coordinator) planDeliveries(ctx context.Context, parsed extract.ParsedQuery, all []report.Report, now time.Time) []*routing.Route {
	if c.shelters == nil {
		return nil
	}

	scored := c.rankShelters(parsed, now)

	var routes []*routing.Route
	for i, s := range scored {
		if i == 3 {
			break
		}
		dest := s.shelter.Location

		route, err := c.router.Plan(ctx, *parsed.Origin, dest, now, all)
		if err != nil {
			c.logger.Warn("route planning failed", "shelter", s.shelter.ID, "error", err.Error())
			continue
		}

		needs := s.matched
		if len(needs) == 0 {
			needs = s.shelter.Needs
			if len(needs) > 3 {
				needs = needs[:3]
			}
		}
		route.Reasoning = fmt.Sprintf("Delivering to %s - needs: %s. Occupancy: %d/%d. %s",
			s.shelter.Name, strings.Join(needs, ", "),
			s.shelter.CurrentOccupancy, s.shelter.Capacity, route.Reasoning)

		metrics.RoutesPlanned.WithLabelValues(route.Stage).Inc()
		routes = append(routes, route)
	}
	return routes
}

// rankShelters scores shelters active at now that have non-empty needs:
// need match 40%, proximity to origin 35%, occupancy pressure 25%.
// Sorted by score descending, ties broken by ascending shelter id.
func (c *Coordinator) rankShelters(parsed extract.ParsedQuery, now time.Time) []scoredShelter {
	var scored []scoredShelter
	for _, s := range c.shelters.ActiveShelters(now) {
		if len(s.Needs) == 0 {
			continue
		}

		needSet := make(map[string]bool, len(s.Needs))
		for _, n := range s.Needs {
			needSet[n] = true
		}

		var matched []string
		for supply := range parsed.Supplies {
			if need, ok := supplyToNeed[supply]; ok && needSet[need] {
				matched = append(matched, need)
			}
		}
		sort.Strings(matched)

		needScore := 1.0
		if len(parsed.Supplies) > 0 {
			needScore = float64(len(matched)) / float64(len(parsed.Supplies))
		}

		distDeg := geo.PlanarDeg(s.Location, *parsed.Origin)
		proximity := 1.0 - distDeg/2.0
		if proximity < 0 {
			proximity = 0
		}

		occupancy := float64(s.CurrentOccupancy) / float64(max(1, s.Capacity))

		scored = append(scored, scoredShelter{
			shelter: s,
			matched: matched,
			score:   0.40*needScore + 0.35*proximity + 0.25*occupancy,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].shelter.ID < scored[j].shelter.ID
	})
	return scored
}

// assemble builds the final response object.
func (c *Coordinator) assemble(ctx context.Context, query string, parsed extract.ParsedQuery, intel map[string][]report.Report, routes []*routing.Route, resolved []ResolvedConflict, now time.Time) *Response {
	total := 0
	bySource := make(map[string]int, len(intel))
	for name, reports := range intel {
		total += len(reports)
		bySource[name] = len(reports)
	}

	stats := c.network.GetStats()
	partial := errors.Is(ctx.Err(), context.DeadlineExceeded)

	if routes == nil {
		routes = []*routing.Route{}
	}
	if resolved == nil {
		resolved = []ResolvedConflict{}
	}

	resp := &Response{
		Query:        query,
		ParsedBy:     parsed.ParsedBy,
		ScenarioTime: now,
		SituationalAwareness: SituationalAwareness{
			TotalReports:    total,
			BlockedRoads:    stats.Blocked,
			DamagedRoads:    stats.Damaged,
			ReportsBySource: bySource,
			Partial:         partial,
		},
		DeliveryPlan: DeliveryPlan{
			Origin:   parsed.Origin,
			Supplies: parsed.Supplies,
			Urgency:  parsed.Urgency,
			Routes:   routes,
		},
		ConflictsResolved: resolved,
	}

	resp.Reasoning = c.buildReasoning(ctx, resp)
	return resp
}

// buildReasoning prefers the prose summarizer, degrading to the
// deterministic markdown template.
func (c *Coordinator) buildReasoning(ctx context.Context, resp *Response) string {
	if c.summarizer != nil && ctx.Err() == nil {
		facts := extract.BriefingFacts{
			ReportsBySource:   resp.SituationalAwareness.ReportsBySource,
			BlockedRoads:      resp.SituationalAwareness.BlockedRoads,
			DamagedRoads:      resp.SituationalAwareness.DamagedRoads,
			ConflictsResolved: len(resp.ConflictsResolved),
		}
		for _, r := range resp.DeliveryPlan.Routes {
			facts.Routes = append(facts.Routes, extract.RouteFact{
				Destination:    r.Destination.Address,
				DistanceKm:     float64(r.DistanceM) / 1000,
				DurationMin:    float64(r.EstimatedDurationMin),
				HazardsAvoided: len(r.HazardsAvoided),
				Confidence:     float64(r.Confidence),
			})
		}

		sctx, cancel := context.WithTimeout(ctx, c.extractTimeout)
		defer cancel()
		if prose, err := c.summarizer.Summarize(sctx, facts); err == nil && prose != "" {
			return prose
		} else if err != nil {
			c.logger.Warn("briefing generation failed, using template", "error", err.Error())
		}
	}
	return c.reasoningTemplate(resp)
}

// SetScenarioTime moves the clock to t.
func (c *Coordinator) SetScenarioTime(t time.Time) {
	c.clock.Set(t)
	c.logger.Info("scenario time set", "now", t)
}

// AdvanceScenarioTime moves the clock forward by the given hours.
func (c *Coordinator) AdvanceScenarioTime(hours float64) (time.Time, error) {
	now, err := c.clock.Advance(time.Duration(hours * float64(time.Hour)))
	if err != nil {
		return time.Time{}, err
	}
	c.logger.Info("scenario time advanced", "hours", hours, "now", now)
	return now, nil
}

// ScenarioTime returns the current scenario time.
func (c *Coordinator) ScenarioTime() time.Time { return c.clock.Now() }

// NetworkStats returns the live road graph counters.
func (c *Coordinator) NetworkStats() roadnet.Stats { return c.network.GetStats() }
