package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/reliefops/relief-coordinator/pkg/pipeline"
	"github.com/reliefops/relief-coordinator/pkg/reporting"
)

// printResponse renders one response for a human operator.
func printResponse(p *reporting.Printer, resp *pipeline.Response) {
	p.Section("Situational Awareness")
	p.KV("Scenario time", "%s", resp.ScenarioTime.Format(time.RFC3339))
	p.KV("Total reports", "%d", resp.SituationalAwareness.TotalReports)
	p.KV("Blocked roads", "%d", resp.SituationalAwareness.BlockedRoads)
	p.KV("Damaged roads", "%d", resp.SituationalAwareness.DamagedRoads)
	p.KV("Parsed by", "%s", resp.ParsedBy)
	if resp.SituationalAwareness.Partial {
		p.KV("Status", "PARTIAL (query deadline reached during gathering)")
	}

	if len(resp.ConflictsResolved) > 0 {
		p.Section("Conflicts Resolved")
		for _, c := range resp.ConflictsResolved {
			p.Bullet("%s: %s (confidence %.0f%%, via %s)",
				c.RoadID, c.ResolvedStatus, c.Confidence*100, c.ResolvedBy)
		}
	}

	if resp.Error != "" {
		p.Blank()
		p.Line("%s", resp.Error)
		return
	}

	plan := resp.DeliveryPlan
	if plan.Origin != nil || len(plan.Supplies) > 0 {
		p.Section("Delivery Plan")
		if plan.Origin != nil {
			origin := plan.Origin.Address
			if origin == "" {
				origin = fmt.Sprintf("(%.4f, %.4f)", plan.Origin.Lat, plan.Origin.Lon)
			}
			p.KV("Origin", "%s", origin)
		}
		for kind, qty := range plan.Supplies {
			p.KV("Carrying", "%d x %s", qty, kind)
		}
		p.KV("Urgency", "%s", plan.Urgency)
	}

	if len(plan.Routes) == 0 {
		p.Blank()
		p.Line("No viable routes found.")
	}
	for i, r := range plan.Routes {
		title := fmt.Sprintf("Route %d", i+1)
		if r.Destination.Address != "" {
			title += ": " + r.Destination.Address
		}
		p.Section(title)
		p.KV("Distance", "%s km", kmString(float64(r.DistanceM)))
		p.KV("Estimated time", "%s min", minString(float64(r.EstimatedDurationMin)))
		p.KV("Confidence", "%.0f%%", float64(r.Confidence)*100)
		if n := len(r.HazardsAvoided); n > 0 {
			p.KV("Hazards avoided", "%d", n)
		}
		p.Line("  %s", r.Reasoning)
	}

	if resp.Reasoning != "" {
		p.Section("Briefing")
		p.Line("%s", strings.TrimSpace(resp.Reasoning))
	}
	p.Blank()
}

func kmString(meters float64) string {
	if math.IsNaN(meters) || math.IsInf(meters, 0) {
		return "unknown"
	}
	return fmt.Sprintf("%.1f", meters/1000)
}

func minString(minutes float64) string {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return "unknown"
	}
	return fmt.Sprintf("%.0f", minutes)
}
