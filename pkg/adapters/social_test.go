package adapters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reliefops/relief-coordinator/pkg/report"
	"github.com/reliefops/relief-coordinator/pkg/reporting"
)

func TestSocialGather(t *testing.T) {
	path := writeDataset(t, `{
	  "posts": [
	    {
	      "timestamp": "2024-09-27T09:30:00Z",
	      "location": {"lat": 35.60, "lon": -82.40},
	      "content": "Swannanoa completely underwater, do not drive here",
	      "platform": "twitter",
	      "username": "wnc_resident",
	      "is_local": true,
	      "has_photo": true
	    },
	    {
	      "timestamp": "2024-09-27T10:00:00Z",
	      "location": {"lat": 35.62, "lon": -82.32},
	      "content": "Bridge out on US-70 near Black Mountain",
	      "platform": "reddit",
	      "username": "avl_hiker"
	    },
	    {
	      "timestamp": "2024-09-27T10:15:00Z",
	      "location": {"lat": 35.59, "lon": -82.55},
	      "content": "Thoughts and prayers for everyone out there",
	      "platform": "twitter",
	      "username": "somebody"
	    },
	    {
	      "timestamp": "2024-09-27T16:00:00Z",
	      "location": {"lat": 35.59, "lon": -82.55},
	      "content": "Road closed on Patton Ave",
	      "platform": "twitter",
	      "username": "future_post"
	    }
	  ]
	}`)

	a := NewSocialAdapter(path, reporting.NewNopLogger())
	assert.Equal(t, "social_media", a.Name())

	reports, err := a.Gather(context.Background(), testNow, testBBox)
	require.NoError(t, err)
	require.Len(t, reports, 2, "unclassifiable and future posts are dropped")

	flood := reports[0]
	assert.Equal(t, report.EventFlooding, flood.Event)
	assert.Equal(t, report.SourceTwitter, flood.Source)
	// 0.4 base + 0.10 local + 0.20 photo.
	assert.InDelta(t, 0.70, flood.Confidence, 1e-9)
	assert.Equal(t, true, flood.Metadata["has_media"])

	bridge := reports[1]
	assert.Equal(t, report.EventBridgeCollapse, bridge.Event)
	assert.Equal(t, report.SourceReddit, bridge.Source)
	assert.InDelta(t, 0.40, bridge.Confidence, 1e-9, "bare post keeps the base confidence")
}

func TestSocialDeterministicIDs(t *testing.T) {
	doc := `{
	  "posts": [
	    {"timestamp": "2024-09-27T09:30:00Z", "location": {"lat": 35.6, "lon": -82.4},
	     "content": "road closed at exit 44", "platform": "twitter", "username": "a"}
	  ]
	}`

	a1 := NewSocialAdapter(writeDataset(t, doc), reporting.NewNopLogger())
	a2 := NewSocialAdapter(writeDataset(t, doc), reporting.NewNopLogger())

	r1, err := a1.Gather(context.Background(), testNow, testBBox)
	require.NoError(t, err)
	r2, err := a2.Gather(context.Background(), testNow, testBBox)
	require.NoError(t, err)

	require.Len(t, r1, 1)
	require.Len(t, r2, 1)
	assert.Equal(t, r1[0].ID, r2[0].ID, "the same post always yields the same id")
}

func TestSocialDuplicatePostsCollapse(t *testing.T) {
	path := writeDataset(t, `{
	  "posts": [
	    {"timestamp": "2024-09-27T09:30:00Z", "location": {"lat": 35.6, "lon": -82.4},
	     "content": "road closed at exit 44", "platform": "twitter", "username": "a"},
	    {"timestamp": "2024-09-27T09:30:00Z", "location": {"lat": 35.6, "lon": -82.4},
	     "content": "road closed at exit 44", "platform": "twitter", "username": "b"}
	  ]
	}`)

	a := NewSocialAdapter(path, reporting.NewNopLogger())
	reports, err := a.Gather(context.Background(), testNow, testBBox)
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestClassifyContent(t *testing.T) {
	cases := []struct {
		content string
		event   report.EventType
		ok      bool
	}{
		{"The road is completely IMPASSABLE past mile 12", report.EventRoadClosure, true},
		{"bridge washed away on NC-9", report.EventBridgeCollapse, true},
		{"flash flood warning, water rising fast", report.EventFlooding, true},
		{"family trapped on their roof, send help", report.EventRescueNeeded, true},
		{"we desperately need water up here", report.EventSuppliesNeeded, true},
		{"whole neighborhood is in a blackout", report.EventPowerOutage, true},
		{"beautiful sunrise this morning", "", false},
	}
	for _, tc := range cases {
		event, ok := classifyContent(tc.content)
		assert.Equal(t, tc.ok, ok, tc.content)
		assert.Equal(t, tc.event, event, tc.content)
	}
}

func TestClassifyContentOrderMatters(t *testing.T) {
	// Closure keywords are checked before flooding keywords.
	event, ok := classifyContent("road blocked and flooded near the river")
	require.True(t, ok)
	assert.Equal(t, report.EventRoadClosure, event)
}

func TestPostConfidence(t *testing.T) {
	assert.InDelta(t, 0.40, postConfidence(socialPost{}), 1e-9)
	assert.InDelta(t, 0.55, postConfidence(socialPost{Verified: true}), 1e-9)
	assert.InDelta(t, 0.65, postConfidence(socialPost{HasVideo: true}), 1e-9)
	assert.InDelta(t, 0.50, postConfidence(socialPost{Retweets: 11}), 1e-9)
	assert.InDelta(t, 0.40, postConfidence(socialPost{Retweets: 10}), 1e-9, "boost needs more than 10 retweets")
	assert.InDelta(t, 0.80, postConfidence(socialPost{IsEmergencyServices: true, IsNews: true}), 1e-9)

	// Everything at once caps at 0.95.
	maxed := socialPost{
		Verified: true, IsLocal: true, HasPhoto: true, HasVideo: true,
		Retweets: 100, IsNews: true, IsEmergencyServices: true,
	}
	assert.InDelta(t, 0.95, postConfidence(maxed), 1e-9)
}

func TestSocialCorroborations(t *testing.T) {
	path := writeDataset(t, `{
	  "posts": [
	    {"timestamp": "2024-09-27T09:30:00Z", "location": {"lat": 35.6, "lon": -82.4},
	     "content": "road closed at exit 44", "platform": "twitter",
	     "retweets": 25, "replies": 7}
	  ]
	}`)

	a := NewSocialAdapter(path, reporting.NewNopLogger())
	reports, err := a.Gather(context.Background(), testNow, testBBox)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 32, reports[0].Corroborations)
}
