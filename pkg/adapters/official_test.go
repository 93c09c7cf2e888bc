package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reliefops/relief-coordinator/pkg/report"
	"github.com/reliefops/relief-coordinator/pkg/reporting"
)

func TestOfficialGather(t *testing.T) {
	path := writeDataset(t, `{
	  "events": [
	    {
	      "id": "off-001",
	      "timestamp": "2024-09-27T08:00:00Z",
	      "type": "road_closure",
	      "location": {"lat": 35.59, "lon": -82.55},
	      "description": "I-40 closed both directions at mile 66",
	      "source": "ncdot",
	      "agency": "NCDOT",
	      "report_id": "NCDOT-2024-1187"
	    },
	    {
	      "id": "off-002",
	      "timestamp": "2024-09-27T09:00:00Z",
	      "type": "flooding",
	      "location": {"lat": 35.61, "lon": -82.33},
	      "description": "Swannanoa River above major flood stage",
	      "source": "usgs"
	    },
	    {
	      "id": "off-003",
	      "timestamp": "2024-09-27T09:30:00Z",
	      "type": "bridge_closure",
	      "location": {"lat": 35.62, "lon": -82.40},
	      "description": "Bridge structurally compromised",
	      "source": "county_inspector"
	    },
	    {
	      "id": "off-004",
	      "timestamp": "2024-09-27T10:00:00Z",
	      "type": "press_conference",
	      "location": {"lat": 35.59, "lon": -82.55},
	      "source": "fema"
	    }
	  ]
	}`)

	a := NewOfficialAdapter(path, reporting.NewNopLogger())
	assert.Equal(t, "official_data", a.Name())

	reports, err := a.Gather(context.Background(), testNow, testBBox)
	require.NoError(t, err)
	require.Len(t, reports, 3, "unmapped bulletin types are dropped")

	closure := reports[0]
	assert.Equal(t, report.EventRoadClosure, closure.Event)
	assert.Equal(t, report.SourceNCDOT, closure.Source)
	assert.Equal(t, 0.95, closure.Confidence)
	assert.Equal(t, true, closure.Metadata["official"])
	assert.Equal(t, true, closure.Metadata["verified"])
	assert.Equal(t, "NCDOT-2024-1187", closure.Metadata["report_id"])

	gauge := reports[1]
	assert.Equal(t, report.EventFlooding, gauge.Event)
	assert.Equal(t, 0.97, gauge.Confidence)

	bridge := reports[2]
	assert.Equal(t, report.EventBridgeCollapse, bridge.Event, "bridge_closure maps to bridge_collapse")
	assert.Equal(t, report.SourceCitizen, bridge.Source, "unknown agencies map to citizen_report")
	assert.Equal(t, 0.85, bridge.Confidence, "unknown agencies get the default reliability")
}

func TestOfficialSourceReliability(t *testing.T) {
	cases := []struct {
		source string
		want   float64
	}{
		{"fema", 0.98},
		{"ncdot", 0.95},
		{"usgs", 0.97},
		{"local_emergency", 0.90},
		{"news", 0.80},
		{"mystery_agency", 0.85},
	}
	for _, tc := range cases {
		path := writeDataset(t, `{
		  "events": [
		    {"id": "b1", "timestamp": "2024-09-27T08:00:00Z", "type": "road_closure",
		     "location": {"lat": 35.5, "lon": -82.5}, "source": "`+tc.source+`"}
		  ]
		}`)
		a := NewOfficialAdapter(path, reporting.NewNopLogger())
		reports, err := a.Gather(context.Background(), testNow, testBBox)
		require.NoError(t, err)
		require.Len(t, reports, 1, tc.source)
		assert.Equal(t, tc.want, reports[0].Confidence, tc.source)
	}
}

func TestOfficialAffectedPolygon(t *testing.T) {
	path := writeDataset(t, `{
	  "events": [
	    {
	      "id": "b1",
	      "timestamp": "2024-09-27T08:00:00Z",
	      "type": "flooding",
	      "location": {"lat": 35.5, "lon": -82.5},
	      "source": "fema",
	      "affected_polygon": {
	        "type": "Polygon",
	        "coordinates": [[[-82.52, 35.49], [-82.48, 35.49], [-82.48, 35.51], [-82.52, 35.51], [-82.52, 35.49]]]
	      }
	    }
	  ]
	}`)

	a := NewOfficialAdapter(path, reporting.NewNopLogger())
	reports, err := a.Gather(context.Background(), testNow, testBBox)
	require.NoError(t, err)
	require.Len(t, reports, 1)

	require.Len(t, reports[0].AffectedPolygon, 1)
	assert.Len(t, reports[0].AffectedPolygon[0], 5)
}

func TestOfficialReportsKeyFallback(t *testing.T) {
	// Some timeline files use "reports" instead of "events".
	path := writeDataset(t, `{
	  "reports": [
	    {"id": "b1", "timestamp": "2024-09-27T08:00:00Z", "type": "road_clear",
	     "location": {"lat": 35.5, "lon": -82.5}, "source": "ncdot"}
	  ]
	}`)

	a := NewOfficialAdapter(path, reporting.NewNopLogger())
	reports, err := a.Gather(context.Background(), testNow, testBBox)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, report.EventRoadClear, reports[0].Event)
}

func TestOfficialTimeFiltering(t *testing.T) {
	path := writeDataset(t, `{
	  "events": [
	    {"id": "past", "timestamp": "2024-09-27T08:00:00Z", "type": "road_closure",
	     "location": {"lat": 35.5, "lon": -82.5}, "source": "ncdot"},
	    {"id": "future", "timestamp": "2024-09-28T08:00:00Z", "type": "road_closure",
	     "location": {"lat": 35.5, "lon": -82.5}, "source": "ncdot"}
	  ]
	}`)

	a := NewOfficialAdapter(path, reporting.NewNopLogger())
	reports, err := a.Gather(context.Background(), testNow, testBBox)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "past", reports[0].ID)

	// Advancing the scenario clock reveals the second bulletin.
	later := testNow.Add(24 * time.Hour)
	reports, err = a.Gather(context.Background(), later, testBBox)
	require.NoError(t, err)
	assert.Len(t, reports, 2)
}
