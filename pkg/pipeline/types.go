// Package pipeline orchestrates one query end to end: parse, gather,
// project, reconcile, rank shelters, route, assemble.
package pipeline

import (
	"time"

	"github.com/reliefops/relief-coordinator/pkg/extract"
	"github.com/reliefops/relief-coordinator/pkg/fusion"
	"github.com/reliefops/relief-coordinator/pkg/geo"
	"github.com/reliefops/relief-coordinator/pkg/routing"
)

// SituationalAwareness summarises the intelligence behind a response.
type SituationalAwareness struct {
	TotalReports    int            `json:"total_reports"`
	BlockedRoads    int            `json:"blocked_roads"`
	DamagedRoads    int            `json:"damaged_roads"`
	ReportsBySource map[string]int `json:"reports_by_source"`
	// Partial marks a response assembled after the query deadline cut
	// gathering short.
	Partial bool `json:"partial,omitempty"`
}

// DeliveryPlan is the actionable part of a response.
type DeliveryPlan struct {
	Origin   *geo.Location    `json:"origin"`
	Supplies map[string]int   `json:"supplies"`
	Urgency  extract.Urgency  `json:"urgency"`
	Routes   []*routing.Route `json:"routes"`
}

// ResolvedConflict records one reconciled contradiction for audit.
type ResolvedConflict struct {
	RoadID         string        `json:"road_id"`
	ResolvedStatus fusion.Status `json:"resolved_status"`
	Confidence     float64       `json:"confidence"`
	Reasoning      string        `json:"reasoning"`
	ResolvedBy     string        `json:"resolved_by"`
}

// Response is the full answer to one query.
type Response struct {
	Query                string               `json:"query"`
	ParsedBy             string               `json:"parsed_by"`
	ScenarioTime         time.Time            `json:"scenario_time"`
	SituationalAwareness SituationalAwareness `json:"situational_awareness"`
	DeliveryPlan         DeliveryPlan         `json:"delivery_plan"`
	ConflictsResolved    []ResolvedConflict   `json:"conflicts_resolved"`
	Reasoning            string               `json:"reasoning"`
	Error                string               `json:"error,omitempty"`
}
