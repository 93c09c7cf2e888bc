package routing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reliefops/relief-coordinator/pkg/geo"
	"github.com/reliefops/relief-coordinator/pkg/report"
	"github.com/reliefops/relief-coordinator/pkg/reporting"
	"github.com/reliefops/relief-coordinator/pkg/roadnet"
)

// The diamond network: a short two-hop corridor A-B-C and a longer
// detour A-D-C.
const diamondGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "geometry": {"type": "LineString", "coordinates": [[-82.50, 35.50], [-82.49, 35.50]]},
      "properties": {"name": "Main St", "length": 1000}
    },
    {
      "geometry": {"type": "LineString", "coordinates": [[-82.49, 35.50], [-82.48, 35.50]]},
      "properties": {"name": "Main St", "length": 1000}
    },
    {
      "geometry": {"type": "LineString", "coordinates": [[-82.50, 35.50], [-82.49, 35.51]]},
      "properties": {"name": "Ridge Rd", "length": 1500}
    },
    {
      "geometry": {"type": "LineString", "coordinates": [[-82.49, 35.51], [-82.48, 35.50]]},
      "properties": {"name": "Ridge Rd", "length": 1500}
    }
  ]
}`

var (
	pointA = geo.Location{Lat: 35.50, Lon: -82.50}
	pointC = geo.Location{Lat: 35.50, Lon: -82.48}
	at     = time.Date(2024, 9, 27, 14, 0, 0, 0, time.UTC)
)

func diamondNetwork(t *testing.T) *roadnet.Network {
	t.Helper()
	path := filepath.Join(t.TempDir(), "network.geojson")
	require.NoError(t, os.WriteFile(path, []byte(diamondGeoJSON), 0644))

	n := roadnet.NewNetwork(reporting.NewNopLogger())
	require.NoError(t, n.LoadGeoJSON(path))
	return n
}

func TestPlanGraphRouteClearNetwork(t *testing.T) {
	n := diamondNetwork(t)
	router := NewRouter(n, nil, reporting.NewNopLogger())

	route, err := router.Plan(context.Background(), pointA, pointC, at, nil)
	require.NoError(t, err)

	assert.Equal(t, "route-0001", route.ID)
	assert.Equal(t, StageGraph, route.Stage)
	assert.Equal(t, geo.Float(2000), route.DistanceM)
	assert.Equal(t, geo.Float(1.0), route.Confidence)
	// 2 km at 50 km/h.
	assert.InDelta(t, 2.4, float64(route.EstimatedDurationMin), 1e-9)
	assert.Empty(t, route.HazardsAvoided)
	assert.Equal(t, "All segments on route are clear.", route.Reasoning)
	assert.Equal(t, at, route.CreatedAt)
	assert.NotEmpty(t, route.Waypoints)
}

func TestPlanGraphRouteAvoidsClosure(t *testing.T) {
	n := diamondNetwork(t)
	n.ApplyReport(report.Report{
		ID:         "r1",
		Event:      report.EventRoadClosure,
		Location:   geo.Location{Lat: 35.50, Lon: -82.485},
		Confidence: 0.95,
	}, roadnet.DefaultRadiusDeg)

	router := NewRouter(n, nil, reporting.NewNopLogger())
	route, err := router.Plan(context.Background(), pointA, pointC, at, nil)
	require.NoError(t, err)

	// Forced onto the detour.
	assert.Equal(t, geo.Float(3000), route.DistanceM)
	assert.Equal(t, geo.Float(1.0), route.Confidence, "the detour itself is clear")

	require.Len(t, route.HazardsAvoided, 1)
	assert.Equal(t, "road_closure", route.HazardsAvoided[0].Type)
	assert.Equal(t, "Main St", route.HazardsAvoided[0].Name)
	assert.Equal(t, 0.95, route.HazardsAvoided[0].Confidence)
	assert.Contains(t, route.Reasoning, "Avoiding 1 hazards including: Main St")
}

func TestPlanGraphRouteDamagedSegments(t *testing.T) {
	n := diamondNetwork(t)
	// Damage one corridor edge and one detour edge: the corridor stays
	// cheaper (1000*3 + 1000 = 4000 vs 1500*3 + 1500 = 6000) and carries
	// a damaged segment.
	n.ApplyReport(report.Report{
		ID: "r1", Event: report.EventRoadDamage,
		Location: geo.Location{Lat: 35.50, Lon: -82.495}, Confidence: 0.8,
	}, roadnet.DefaultRadiusDeg)
	n.ApplyReport(report.Report{
		ID: "r2", Event: report.EventRoadDamage,
		Location: geo.Location{Lat: 35.505, Lon: -82.495}, Confidence: 0.8,
	}, roadnet.DefaultRadiusDeg)

	router := NewRouter(n, nil, reporting.NewNopLogger())
	route, err := router.Plan(context.Background(), pointA, pointC, at, nil)
	require.NoError(t, err)

	assert.Equal(t, geo.Float(2000), route.DistanceM)
	assert.InDelta(t, 0.9, float64(route.Confidence), 1e-9, "one damaged segment costs one 0.9 factor")
	assert.Contains(t, route.Reasoning, "1 damaged but passable road segment(s)")

	// One of two segments damaged: 50 * (1 - 0.5*0.5) = 37.5 km/h
	// over 2 km.
	assert.InDelta(t, 3.2, float64(route.EstimatedDurationMin), 1e-9)
}

func TestPlanFallsBackToExternal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(directionsFixture))
	}))
	defer srv.Close()

	empty := roadnet.NewNetwork(reporting.NewNopLogger())
	external := NewExternalRouter(srv.URL, "", time.Second, reporting.NewNopLogger())
	router := NewRouter(empty, external, reporting.NewNopLogger())

	route, err := router.Plan(context.Background(), pointA, pointC, at, nil)
	require.NoError(t, err)

	assert.Equal(t, StageExternal, route.Stage)
	assert.Equal(t, geo.Float(externalConfidence), route.Confidence)
	assert.Equal(t, geo.Float(15200.5), route.DistanceM)
	assert.InDelta(t, 21, float64(route.EstimatedDurationMin), 1e-9)
	assert.Len(t, route.Directions, 2)
	assert.Contains(t, route.Reasoning, "unverified")
}

func TestPlanFallsBackToStraightLine(t *testing.T) {
	empty := roadnet.NewNetwork(reporting.NewNopLogger())
	router := NewRouter(empty, nil, reporting.NewNopLogger())

	route, err := router.Plan(context.Background(), pointA, pointC, at, nil)
	require.NoError(t, err)

	assert.Equal(t, StageStraightLine, route.Stage)
	assert.Equal(t, geo.Float(straightLineConfidence), route.Confidence)
	assert.Contains(t, route.Reasoning, "no routable path")
	require.Len(t, route.Waypoints, 2)

	wantM := geo.HaversineKm(pointA, pointC) * 1000
	assert.InDelta(t, wantM, float64(route.DistanceM), 1e-6)
	assert.InDelta(t, wantM/1000/30*60, float64(route.EstimatedDurationMin), 1e-6)
}

func TestPlanFailedExternalDegradesToStraightLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	empty := roadnet.NewNetwork(reporting.NewNopLogger())
	external := NewExternalRouter(srv.URL, "", time.Second, reporting.NewNopLogger())
	router := NewRouter(empty, external, reporting.NewNopLogger())

	route, err := router.Plan(context.Background(), pointA, pointC, at, nil)
	require.NoError(t, err)
	assert.Equal(t, geo.Float(straightLineConfidence), route.Confidence)
}

func TestPlanCancelledContext(t *testing.T) {
	n := diamondNetwork(t)
	router := NewRouter(n, nil, reporting.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := router.Plan(ctx, pointA, pointC, at, nil)
	assert.Error(t, err)
}

func TestRouteIDsAreSequential(t *testing.T) {
	n := diamondNetwork(t)
	router := NewRouter(n, nil, reporting.NewNopLogger())

	r1, err := router.Plan(context.Background(), pointA, pointC, at, nil)
	require.NoError(t, err)
	r2, err := router.Plan(context.Background(), pointA, pointC, at, nil)
	require.NoError(t, err)

	assert.Equal(t, "route-0001", r1.ID)
	assert.Equal(t, "route-0002", r2.ID)
}
