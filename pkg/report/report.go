// Package report defines the canonical observation record that every
// source adapter emits and every downstream stage consumes. Reports are
// immutable once created.
package report

import (
	"time"

	"github.com/reliefops/relief-coordinator/pkg/geo"
)

// EventType classifies a disaster event. The set is closed; adapters
// discard records whose source-native kind fails to map onto it.
type EventType string

const (
	EventRoadClosure          EventType = "road_closure"
	EventRoadDamage           EventType = "road_damage"
	EventRoadClear            EventType = "road_clear"
	EventFlooding             EventType = "flooding"
	EventBridgeCollapse       EventType = "bridge_collapse"
	EventShelterOpening       EventType = "shelter_opening"
	EventShelterClosing       EventType = "shelter_closing"
	EventShelterNeed          EventType = "shelter_need"
	EventPowerOutage          EventType = "power_outage"
	EventInfrastructureDamage EventType = "infrastructure_damage"
	EventRescueNeeded         EventType = "rescue_needed"
	EventSuppliesNeeded       EventType = "supplies_needed"
)

// Valid reports whether e is one of the canonical event types.
func (e EventType) Valid() bool {
	switch e {
	case EventRoadClosure, EventRoadDamage, EventRoadClear, EventFlooding,
		EventBridgeCollapse, EventShelterOpening, EventShelterClosing,
		EventShelterNeed, EventPowerOutage, EventInfrastructureDamage,
		EventRescueNeeded, EventSuppliesNeeded:
		return true
	}
	return false
}

// AffectsRoads reports whether the event touches the road graph. Only
// these event types are projected onto edges.
func (e EventType) AffectsRoads() bool {
	switch e {
	case EventRoadClosure, EventRoadDamage, EventBridgeCollapse,
		EventFlooding, EventRoadClear:
		return true
	}
	return false
}

// Source tags the producing data feed.
type Source string

const (
	SourceSatellite      Source = "satellite"
	SourceTwitter        Source = "twitter"
	SourceReddit         Source = "reddit"
	SourceFEMA           Source = "fema"
	SourceNCDOT          Source = "ncdot"
	SourceUSGS           Source = "usgs"
	SourceLocalEmergency Source = "local_emergency"
	SourceNews           Source = "news"
	SourceCitizen        Source = "citizen_report"
)

// Report is the canonical observation record. Two reports with the same
// ID are duplicates; adapters deduplicate within one gather call.
type Report struct {
	ID          string       `json:"id"`
	Timestamp   time.Time    `json:"timestamp"`
	Event       EventType    `json:"event_type"`
	Location    geo.Location `json:"location"`
	Description string       `json:"description"`
	Source      Source       `json:"source"`
	// Confidence is the raw per-report probability assigned by the
	// producing adapter, before fusion. Always within [0, 1].
	Confidence     float64        `json:"confidence"`
	Raw            map[string]any `json:"raw_data,omitempty"`
	Corroborations int            `json:"corroborations,omitempty"`
	// AgentName is the provenance tag of the adapter that produced
	// this report.
	AgentName string         `json:"agent_name"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	// AffectedPolygon carries explicit hazard geometry ([lon, lat]
	// rings) when the source supplied one. Used for router avoidance.
	AffectedPolygon []geo.Ring `json:"affected_polygon,omitempty"`
}

// ClampConfidence limits a confidence score to [0, 1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
