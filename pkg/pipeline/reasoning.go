package pipeline

import (
	"fmt"
	"strings"
)

// reasoningTemplate renders the deterministic markdown briefing used
// whenever no prose summarizer is available.
func (c *Coordinator) reasoningTemplate(resp *Response) string {
	var parts []string

	parts = append(parts, "## Situational Awareness")
	for _, a := range c.adapters {
		if n := resp.SituationalAwareness.ReportsBySource[a.Name()]; n > 0 {
			parts = append(parts, fmt.Sprintf("- %s: %d reports", a.Name(), n))
		}
	}

	blocked := c.network.BlockedEdges()
	if len(blocked) > 0 {
		parts = append(parts, fmt.Sprintf("\n### Blocked Roads (%d)", len(blocked)))
		for i, e := range blocked {
			if i == 5 {
				break
			}
			name := e.Name
			if name == "" {
				name = "Unknown"
			}
			parts = append(parts, fmt.Sprintf("- %s (confidence: %.0f%%)", name, e.Confidence*100))
		}
	}

	if len(resp.ConflictsResolved) > 0 {
		parts = append(parts, fmt.Sprintf("\n### Conflicts Resolved (%d)", len(resp.ConflictsResolved)))
		for _, cr := range resp.ConflictsResolved {
			parts = append(parts, fmt.Sprintf("- %s: %s (confidence: %.0f%%) [%s]",
				cr.RoadID, cr.ResolvedStatus, cr.Confidence*100, cr.ResolvedBy))
		}
	}

	if len(resp.DeliveryPlan.Routes) > 0 {
		parts = append(parts, "\n## Recommended Deliveries")
		for i, r := range resp.DeliveryPlan.Routes {
			parts = append(parts, fmt.Sprintf("\n### Route %d", i+1))
			parts = append(parts, fmt.Sprintf("- Distance: %.1f km", float64(r.DistanceM)/1000))
			parts = append(parts, fmt.Sprintf("- Estimated time: %.0f minutes", float64(r.EstimatedDurationMin)))
			parts = append(parts, fmt.Sprintf("- %s", r.Reasoning))
		}
	} else {
		parts = append(parts, "\n## No viable routes found")
		parts = append(parts, "All potential routes are blocked or no matching shelter needs.")
	}

	return strings.Join(parts, "\n")
}
