// Package routing plans delivery routes over the road network, falling
// back to an external routing service and finally to a straight-line
// estimate when the graph cannot produce a path.
package routing

import (
	"time"

	"github.com/reliefops/relief-coordinator/pkg/geo"
)

// Planning stages, recorded on each route by the stage that produced it.
const (
	StageGraph        = "graph"
	StageExternal     = "external"
	StageStraightLine = "straight_line"
)

// Waypoint is one point of a route polyline.
type Waypoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Step is one turn-by-turn instruction from the external router.
type Step struct {
	Instruction      string  `json:"instruction"`
	Name             string  `json:"name"`
	DistanceM        float64 `json:"distance_m"`
	DurationS        float64 `json:"duration_s"`
	ManeuverType     string  `json:"maneuver_type"`
	ManeuverModifier string  `json:"maneuver_modifier"`
}

// AvoidedHazard describes a known closure the route steers around.
type AvoidedHazard struct {
	Type       string   `json:"type"`
	Location   Waypoint `json:"location"`
	Name       string   `json:"name"`
	Confidence float64  `json:"confidence"`
}

// Route is a planned delivery route.
type Route struct {
	ID                   string          `json:"id"`
	Origin               geo.Location    `json:"origin"`
	Destination          geo.Location    `json:"destination"`
	Waypoints            []Waypoint      `json:"waypoints"`
	DistanceM            geo.Float       `json:"distance_m"`
	EstimatedDurationMin geo.Float       `json:"estimated_duration_min"`
	HazardsAvoided       []AvoidedHazard `json:"hazards_avoided"`
	Confidence           geo.Float       `json:"confidence"`
	Stage                string          `json:"stage"`
	Reasoning            string          `json:"reasoning"`
	Directions           []Step          `json:"directions,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}
