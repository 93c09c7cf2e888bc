package routing

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/reliefops/relief-coordinator/pkg/geo"
	"github.com/reliefops/relief-coordinator/pkg/report"
	"github.com/reliefops/relief-coordinator/pkg/reporting"
	"github.com/reliefops/relief-coordinator/pkg/roadnet"
)

// Average speeds in km/h for duration estimates.
const (
	speedNormalKmh = 50.0
	speedUrbanKmh  = 30.0
)

// Confidence assigned to each fallback stage. The graph path earns its
// confidence from edge conditions; the fallbacks are fixed.
const (
	externalConfidence     = 0.7
	straightLineConfidence = 0.5
)

// Router plans routes: graph Dijkstra first, then the external service,
// then a straight-line estimate.
type Router struct {
	network  *roadnet.Network
	external *ExternalRouter
	logger   *reporting.Logger
	routeSeq atomic.Uint64
}

// NewRouter creates a route planner over the given network. external
// may be nil or disabled.
func NewRouter(network *roadnet.Network, external *ExternalRouter, logger *reporting.Logger) *Router {
	return &Router{
		network:  network,
		external: external,
		logger:   logger.WithComponent("router"),
	}
}

func (r *Router) nextID() string {
	return fmt.Sprintf("route-%04d", r.routeSeq.Add(1))
}

// Plan computes a route from origin to destination at scenario time now.
// hazardReports is the full visible event set, used to build avoidance
// geometry for the external stage. Plan always returns a route; only a
// cancelled context yields an error.
func (r *Router) Plan(ctx context.Context, origin, destination geo.Location, now time.Time, hazardReports []report.Report) (*Route, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if route, ok := r.planGraphRoute(origin, destination, now); ok {
		return route, nil
	}

	avoid := CollectAvoidPolygons(hazardReports, origin, destination)
	if route, ok := r.planExternalRoute(ctx, origin, destination, now, avoid); ok {
		return route, nil
	}

	return r.planStraightLine(origin, destination, now), nil
}

// planGraphRoute runs Dijkstra over the live network.
func (r *Router) planGraphRoute(origin, destination geo.Location, now time.Time) (*Route, bool) {
	src, ok := r.network.NearestNode(origin)
	if !ok {
		return nil, false
	}
	dst, ok := r.network.NearestNode(destination)
	if !ok {
		return nil, false
	}

	path, ok := r.network.ShortestPath(src, dst)
	if !ok {
		r.logger.Debug("no graph path", "from", src, "to", dst)
		return nil, false
	}

	var distance float64
	damaged := 0
	closed := 0
	var waypoints []Waypoint
	for _, e := range path.Edges {
		distance += e.LengthM
		switch e.Status.State {
		case roadnet.EdgeDamaged:
			damaged++
		case roadnet.EdgeClosed:
			closed++
		}
		for _, c := range e.Geometry {
			waypoints = append(waypoints, Waypoint{Lon: c[0], Lat: c[1]})
		}
	}

	confidence := 1.0
	for i := 0; i < damaged; i++ {
		confidence *= 0.9
	}
	if closed > 0 {
		confidence = 0
	}

	damageRatio := float64(damaged) / float64(max(1, len(path.Edges)))
	speed := speedNormalKmh * (1 - 0.5*damageRatio)
	durationMin := distance / 1000 / speed * 60

	avoided := r.avoidedHazards()

	return &Route{
		ID:                   r.nextID(),
		Origin:               origin,
		Destination:          destination,
		Waypoints:            waypoints,
		DistanceM:            geo.Float(distance),
		EstimatedDurationMin: geo.Float(durationMin),
		HazardsAvoided:       avoided,
		Confidence:           geo.Float(confidence),
		Stage:                StageGraph,
		Reasoning:            graphReasoning(avoided, damaged),
		CreatedAt:            now,
	}, true
}

// avoidedHazards lists up to five closed edges the route steers around.
// Closed edges carry infinite weight and can never appear on a path.
func (r *Router) avoidedHazards() []AvoidedHazard {
	blocked := r.network.BlockedEdges()
	if len(blocked) > 5 {
		blocked = blocked[:5]
	}
	out := make([]AvoidedHazard, 0, len(blocked))
	for _, b := range blocked {
		name := b.Name
		if name == "" {
			name = "Unknown road"
		}
		out = append(out, AvoidedHazard{
			Type:       "road_closure",
			Location:   Waypoint{Lon: b.Midpoint.Lon, Lat: b.Midpoint.Lat},
			Name:       name,
			Confidence: b.Confidence,
		})
	}
	return out
}

func graphReasoning(avoided []AvoidedHazard, damaged int) string {
	var parts []string
	if len(avoided) > 0 {
		names := make([]string, 0, 3)
		for _, h := range avoided {
			names = append(names, h.Name)
			if len(names) == 3 {
				break
			}
		}
		parts = append(parts, fmt.Sprintf("Avoiding %d hazards including: %s",
			len(avoided), strings.Join(names, ", ")))
	}
	if damaged > 0 {
		parts = append(parts, fmt.Sprintf("Route includes %d damaged but passable road segment(s)", damaged))
	} else {
		parts = append(parts, "All segments on route are clear")
	}
	return strings.Join(parts, ". ") + "."
}

// planExternalRoute asks the external service for a road-following
// route that avoids the hazard polygons. Road conditions along it are
// unverified, so confidence is fixed below a graph path.
func (r *Router) planExternalRoute(ctx context.Context, origin, destination geo.Location, now time.Time, avoid *AvoidGeometry) (*Route, bool) {
	if !r.external.Enabled() {
		return nil, false
	}

	coords := [][]float64{
		{origin.Lon, origin.Lat},
		{destination.Lon, destination.Lat},
	}
	ext, err := r.external.PlanRoute(ctx, coords, avoid)
	if err != nil {
		r.logger.Warn("external router failed", "error", err.Error())
		return nil, false
	}

	waypoints := make([]Waypoint, 0, len(ext.Coordinates))
	for _, c := range ext.Coordinates {
		waypoints = append(waypoints, Waypoint{Lon: c[0], Lat: c[1]})
	}

	return &Route{
		ID:                   r.nextID(),
		Origin:               origin,
		Destination:          destination,
		Waypoints:            waypoints,
		DistanceM:            geo.Float(ext.DistanceM),
		EstimatedDurationMin: geo.Float(ext.DurationS / 60),
		Confidence:           externalConfidence,
		Stage:                StageExternal,
		Reasoning:            "Road-following route from external service; local road conditions along it are unverified.",
		Directions:           ext.Steps,
		CreatedAt:            now,
	}, true
}

// planStraightLine is the last resort: great-circle distance at urban
// speed.
func (r *Router) planStraightLine(origin, destination geo.Location, now time.Time) *Route {
	distanceM := geo.HaversineKm(origin, destination) * 1000
	durationMin := distanceM / 1000 / speedUrbanKmh * 60

	return &Route{
		ID:          r.nextID(),
		Origin:      origin,
		Destination: destination,
		Waypoints: []Waypoint{
			{Lon: origin.Lon, Lat: origin.Lat},
			{Lon: destination.Lon, Lat: destination.Lat},
		},
		DistanceM:            geo.Float(distanceM),
		EstimatedDurationMin: geo.Float(durationMin),
		Confidence:           straightLineConfidence,
		Stage:                StageStraightLine,
		Reasoning:            "Direct-distance estimate; no routable path was found in the road network.",
		CreatedAt:            now,
	}
}
