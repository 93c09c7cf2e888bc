package routing

import (
	"github.com/reliefops/relief-coordinator/pkg/geo"
	"github.com/reliefops/relief-coordinator/pkg/report"
)

// routingHazard lists the event kinds that become avoidance geometry.
var routingHazard = map[report.EventType]bool{
	report.EventRoadClosure:    true,
	report.EventBridgeCollapse: true,
	report.EventFlooding:       true,
	report.EventRoadDamage:     true,
}

// hazardRadiusM is the synthetic polygon radius per event kind, used
// when a report carries no explicit geometry. Flooding spreads; point
// damage stays tight.
var hazardRadiusM = map[report.EventType]float64{
	report.EventFlooding:       500,
	report.EventRoadClosure:    200,
	report.EventBridgeCollapse: 150,
	report.EventRoadDamage:     100,
}

// AvoidGeometry is the GeoJSON avoidance payload for the external
// router: a single Polygon or a MultiPolygon.
type AvoidGeometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

// CollectAvoidPolygons builds avoidance geometry from the hazard
// reports visible at scenario time. Reports without explicit geometry
// get an octagonal circle around their location. Any polygon that
// contains the origin or destination is dropped, otherwise the external
// router would refuse to start or finish the route.
func CollectAvoidPolygons(reports []report.Report, origin, destination geo.Location) *AvoidGeometry {
	var polygons [][]geo.Ring

	for _, r := range reports {
		if !routingHazard[r.Event] {
			continue
		}

		rings := r.AffectedPolygon
		if len(rings) == 0 {
			radius := hazardRadiusM[r.Event]
			rings = []geo.Ring{
				geo.CircleRing(r.Location.Lon, r.Location.Lat, radius, 8),
			}
		}

		outer := rings[0]
		if geo.PointInRing(origin.Lon, origin.Lat, outer) ||
			geo.PointInRing(destination.Lon, destination.Lat, outer) {
			continue
		}

		polygons = append(polygons, rings)
	}

	switch len(polygons) {
	case 0:
		return nil
	case 1:
		return &AvoidGeometry{Type: "Polygon", Coordinates: polygons[0]}
	default:
		return &AvoidGeometry{Type: "MultiPolygon", Coordinates: polygons}
	}
}
