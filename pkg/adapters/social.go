package adapters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reliefops/relief-coordinator/pkg/geo"
	"github.com/reliefops/relief-coordinator/pkg/report"
	"github.com/reliefops/relief-coordinator/pkg/reporting"
)

// eventKeywords classifies post content by lowercase substring match.
// The first matching kind wins, checked in this order.
var eventKeywords = []struct {
	event    report.EventType
	keywords []string
}{
	{report.EventRoadClosure, []string{
		"road closed", "road blocked", "can't get through",
		"impassable", "no access", "shut down", "closed off",
	}},
	{report.EventBridgeCollapse, []string{
		"bridge out", "bridge collapsed", "bridge gone",
		"bridge washed away", "bridge destroyed",
	}},
	{report.EventFlooding, []string{
		"flooded", "underwater", "water rising", "flash flood",
		"river overflowing", "submerged",
	}},
	{report.EventRescueNeeded, []string{
		"trapped", "stranded", "need rescue", "help needed",
		"people stuck", "evacuate",
	}},
	{report.EventSuppliesNeeded, []string{
		"need water", "need food", "need medicine", "running out",
		"no supplies", "desperate for",
	}},
	{report.EventPowerOutage, []string{
		"power out", "no electricity", "blackout", "no power",
		"lights out",
	}},
}

// socialNamespace makes post report ids deterministic: the same post
// always yields the same id, so repeated gathers deduplicate cleanly.
var socialNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// SocialAdapter extracts intelligence from social media posts. Posts are
// noisy, so confidence starts low and climbs only with credibility
// signals attached to the post itself.
type SocialAdapter struct {
	name   string
	path   string
	logger *reporting.Logger

	loaded datasetOnce
	posts  []socialPost
}

type socialPost struct {
	Timestamp           string    `json:"timestamp"`
	Location            locRecord `json:"location"`
	Content             string    `json:"content"`
	Platform            string    `json:"platform"`
	Username            string    `json:"username"`
	Verified            bool      `json:"verified"`
	IsLocal             bool      `json:"is_local"`
	HasPhoto            bool      `json:"has_photo"`
	HasVideo            bool      `json:"has_video"`
	Retweets            int       `json:"retweets"`
	Replies             int       `json:"replies"`
	IsNews              bool      `json:"is_news"`
	IsEmergencyServices bool      `json:"is_emergency_services"`
}

// NewSocialAdapter creates a social media adapter reading posts from the
// given JSON file.
func NewSocialAdapter(path string, logger *reporting.Logger) *SocialAdapter {
	return &SocialAdapter{
		name:   "social_media",
		path:   path,
		logger: logger.WithComponent("adapter.social"),
	}
}

// Name implements Adapter.
func (a *SocialAdapter) Name() string { return a.name }

// Gather implements Adapter.
func (a *SocialAdapter) Gather(ctx context.Context, now time.Time, bbox geo.BoundingBox) ([]report.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.loaded.load(func() bool {
		var doc struct {
			Posts []socialPost `json:"posts"`
		}
		if !loadJSON(a.path, &doc, a.logger) {
			return false
		}
		a.posts = doc.Posts
		return true
	})

	reports := make([]report.Report, 0, len(a.posts))
	seen := make(map[string]struct{}, len(a.posts))

	for _, p := range a.posts {
		ts, err := parseTimestamp(p.Timestamp)
		if err != nil {
			a.logger.Debug("discarding post with bad timestamp", "username", p.Username)
			continue
		}
		loc := p.Location.location()
		if !admit(ts, loc, now, bbox) {
			continue
		}

		event, ok := classifyContent(p.Content)
		if !ok {
			continue
		}

		id := uuid.NewSHA1(socialNamespace,
			[]byte(fmt.Sprintf("%s|%s|%s", p.Platform, p.Timestamp, p.Content))).String()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		source := report.SourceReddit
		if p.Platform == "twitter" {
			source = report.SourceTwitter
		}

		reports = append(reports, report.Report{
			ID:             id,
			Timestamp:      ts,
			Event:          event,
			Location:       loc,
			Description:    p.Content,
			Source:         source,
			Confidence:     postConfidence(p),
			Corroborations: p.Retweets + p.Replies,
			AgentName:      a.name,
			Metadata: map[string]any{
				"username":  p.Username,
				"platform":  p.Platform,
				"has_media": p.HasPhoto || p.HasVideo,
			},
		})
	}

	a.logger.Debug("gathered social reports", "count", len(reports))
	return reports, nil
}

// classifyContent maps post content onto an event kind. Posts that match
// no keyword carry no actionable intelligence and are dropped.
func classifyContent(content string) (report.EventType, bool) {
	lower := strings.ToLower(content)
	for _, ek := range eventKeywords {
		for _, kw := range ek.keywords {
			if strings.Contains(lower, kw) {
				return ek.event, true
			}
		}
	}
	return "", false
}

// postConfidence starts at 0.4 and adds credibility boosts, capped at
// 0.95. Social media is never fully trusted on its own.
func postConfidence(p socialPost) float64 {
	conf := 0.4
	if p.Verified {
		conf += 0.15
	}
	if p.IsLocal {
		conf += 0.10
	}
	if p.HasPhoto {
		conf += 0.20
	}
	if p.HasVideo {
		conf += 0.25
	}
	if p.Retweets > 10 {
		conf += 0.10
	}
	if p.IsNews {
		conf += 0.15
	}
	if p.IsEmergencyServices {
		conf += 0.25
	}
	if conf > 0.95 {
		conf = 0.95
	}
	return conf
}
