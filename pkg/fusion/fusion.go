// Package fusion combines reports from independent sources into
// clusters, detects contradictory claims about the same location, and
// produces reconciled road statuses with consensus confidence.
package fusion

import (
	"fmt"

	"github.com/reliefops/relief-coordinator/pkg/geo"
	"github.com/reliefops/relief-coordinator/pkg/report"
)

// DefaultProximityKm is the clustering radius. Reports within it refer
// to the same physical situation.
const DefaultProximityKm = 0.5

// Status is the reconciled state of a road location.
type Status string

const (
	StatusBlocked Status = "blocked"
	StatusDamaged Status = "damaged"
	StatusClear   Status = "clear"
	StatusUnknown Status = "unknown"
)

// ResolverLLM and ResolverFallback tag which reconciliation path
// produced a resolution.
const (
	ResolverLLM      = "llm"
	ResolverFallback = "fallback"
)

// Resolution is the outcome of reconciling one conflicting cluster.
type Resolution struct {
	Status     Status  `json:"status"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	// ResolverTag identifies the path that produced this resolution,
	// "llm" or "fallback".
	ResolverTag string `json:"resolver_tag"`
}

// ReconcilePolicy resolves a conflicting cluster into a single status.
// The default is confidence-weighted; a time-priority policy can be
// swapped in without touching the pipeline.
type ReconcilePolicy func(reports []report.Report, label string) Resolution

// Cluster groups reports that describe the same location. The centroid
// is the running mean of member coordinates.
type Cluster struct {
	Centroid geo.Location
	Reports  []report.Report
}

// Label is a short human-readable location tag for the cluster.
func (c Cluster) Label() string {
	return fmt.Sprintf("(%.4f, %.4f)", c.Centroid.Lat, c.Centroid.Lon)
}

// EventSet returns the distinct event kinds present in the cluster.
func (c Cluster) EventSet() map[report.EventType]bool {
	set := make(map[report.EventType]bool, len(c.Reports))
	for _, r := range c.Reports {
		set[r.Event] = true
	}
	return set
}

// ClusterReports groups reports by proximity. Greedy single pass: each
// report joins the first cluster whose running centroid lies within
// proximityKm (haversine), else starts a new cluster. Order-sensitive;
// callers that need determinism must feed a canonically ordered slice.
func ClusterReports(reports []report.Report, proximityKm float64) []Cluster {
	if proximityKm <= 0 {
		proximityKm = DefaultProximityKm
	}

	var clusters []Cluster
	for _, r := range reports {
		joined := false
		for i := range clusters {
			if geo.HaversineKm(clusters[i].Centroid, r.Location) <= proximityKm {
				c := &clusters[i]
				n := float64(len(c.Reports))
				c.Centroid.Lat = (c.Centroid.Lat*n + r.Location.Lat) / (n + 1)
				c.Centroid.Lon = (c.Centroid.Lon*n + r.Location.Lon) / (n + 1)
				c.Reports = append(c.Reports, r)
				joined = true
				break
			}
		}
		if !joined {
			clusters = append(clusters, Cluster{
				Centroid: geo.Location{Lat: r.Location.Lat, Lon: r.Location.Lon},
				Reports:  []report.Report{r},
			})
		}
	}
	return clusters
}

// contradicts lists, per event kind, the kinds it cannot coexist with
// at one location.
var contradicts = map[report.EventType][]report.EventType{
	report.EventRoadClosure: {report.EventRoadClear},
	report.EventRoadClear:   {report.EventRoadClosure, report.EventRoadDamage},
	report.EventRoadDamage:  {report.EventRoadClear},
	report.EventFlooding:    {report.EventRoadClear},
}

// HasConflict reports whether the cluster contains at least one
// contradicting pair of event kinds.
func HasConflict(c Cluster) bool {
	set := c.EventSet()
	for kind := range set {
		for _, other := range contradicts[kind] {
			if set[other] {
				return true
			}
		}
	}
	return false
}

// ConflictingClusters filters the clusters that need reconciliation.
func ConflictingClusters(clusters []Cluster) []Cluster {
	var out []Cluster
	for _, c := range clusters {
		if HasConflict(c) {
			out = append(out, c)
		}
	}
	return out
}

// Consensus computes the confidence of a non-conflicting cluster:
// average member confidence boosted by source diversity and by
// corroborating report count, clamped to [0, 1]. A single report keeps
// its own confidence.
func Consensus(c Cluster) float64 {
	n := len(c.Reports)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return c.Reports[0].Confidence
	}

	var sum float64
	sources := make(map[report.Source]bool, n)
	for _, r := range c.Reports {
		sum += r.Confidence
		sources[r.Source] = true
	}
	avg := sum / float64(n)

	sourceBoost := 0.05 * float64(len(sources))
	if sourceBoost > 0.15 {
		sourceBoost = 0.15
	}
	countBoost := 0.03 * float64(n-1)
	if countBoost > 0.10 {
		countBoost = 0.10
	}

	return report.ClampConfidence(avg + sourceBoost + countBoost)
}

// statusForEvent maps a winning event kind onto a road status.
func statusForEvent(e report.EventType) Status {
	switch e {
	case report.EventRoadClosure, report.EventBridgeCollapse, report.EventFlooding:
		return StatusBlocked
	case report.EventRoadDamage:
		return StatusDamaged
	case report.EventRoadClear:
		return StatusClear
	default:
		return StatusUnknown
	}
}

// FallbackReconcile is the deterministic reconciliation policy: the
// highest-confidence report wins and its event kind determines the
// status. An empty cluster resolves to unknown.
func FallbackReconcile(reports []report.Report, label string) Resolution {
	if len(reports) == 0 {
		return Resolution{
			Status:      StatusUnknown,
			Confidence:  0,
			Reasoning:   fmt.Sprintf("No reports available for %s", label),
			ResolverTag: ResolverFallback,
		}
	}

	best := reports[0]
	for _, r := range reports[1:] {
		if r.Confidence > best.Confidence {
			best = r
		}
	}

	return Resolution{
		Status:     statusForEvent(best.Event),
		Confidence: best.Confidence,
		Reasoning: fmt.Sprintf(
			"Highest-confidence report at %s: %s from %s (%.2f) outweighs %d other report(s)",
			label, best.Event, best.Source, best.Confidence, len(reports)-1),
		ResolverTag: ResolverFallback,
	}
}
