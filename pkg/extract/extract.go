// Package extract turns natural-language supply statements into
// structured queries and arbitrates conflicting field reports. The
// preferred implementation calls a language model; a deterministic
// keyword path is always available and defines the I/O contract.
package extract

import (
	"context"

	"github.com/reliefops/relief-coordinator/pkg/fusion"
	"github.com/reliefops/relief-coordinator/pkg/geo"
	"github.com/reliefops/relief-coordinator/pkg/report"
)

// Intent is what the user wants from the coordinator.
type Intent string

const (
	IntentRouteSupplies Intent = "route_supplies"
	IntentCheckStatus   Intent = "check_status"
	IntentFindShelter   Intent = "find_shelter"
)

// Urgency is the delivery priority extracted from the query.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// ParsedBy values identify which parsing path produced a query.
const (
	ParsedByLLM     = "llm"
	ParsedByKeyword = "keyword"
)

// ParsedQuery is the structured form of a user's supply statement.
// Origin stays nil when no place could be resolved; the pipeline turns
// that into a user-facing error instead of guessing.
type ParsedQuery struct {
	Intent      Intent         `json:"intent"`
	Supplies    map[string]int `json:"supplies"`
	Origin      *geo.Location  `json:"origin"`
	RawQuery    string         `json:"raw_query"`
	Urgency     Urgency        `json:"urgency"`
	Constraints []string       `json:"constraints"`
	ParsedBy    string         `json:"parsed_by"`
}

// Extractor is the two-contract collaborator of the pipeline. Both
// operations must degrade to the deterministic path on any model error
// and tag their output accordingly.
type Extractor interface {
	ParseQuery(ctx context.Context, text string) (ParsedQuery, error)
	ReconcileConflict(ctx context.Context, reports []report.Report, label string) (fusion.Resolution, error)
}

// RouteFact is one route summarised for briefing generation.
type RouteFact struct {
	Destination    string  `json:"destination"`
	DistanceKm     float64 `json:"distance_km"`
	DurationMin    float64 `json:"duration_min"`
	HazardsAvoided int     `json:"hazards_avoided"`
	Confidence     float64 `json:"confidence"`
}

// BriefingFacts is the factual context a Summarizer turns into prose.
type BriefingFacts struct {
	ReportsBySource   map[string]int `json:"reports_by_source"`
	BlockedRoads      int            `json:"blocked_roads"`
	DamagedRoads      int            `json:"damaged_roads"`
	ConflictsResolved int            `json:"conflicts_resolved"`
	Routes            []RouteFact    `json:"routes"`
}

// Summarizer produces the prose briefing attached to a response. The
// pipeline falls back to a deterministic markdown template when the
// summarizer is absent or fails.
type Summarizer interface {
	Summarize(ctx context.Context, facts BriefingFacts) (string, error)
}
