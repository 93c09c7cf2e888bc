package adapters

import (
	"context"
	"strings"
	"time"

	"github.com/reliefops/relief-coordinator/pkg/geo"
	"github.com/reliefops/relief-coordinator/pkg/report"
	"github.com/reliefops/relief-coordinator/pkg/reporting"
)

// sourceReliability is the confidence assigned by issuing agency.
// Unknown agencies get 0.85.
var sourceReliability = map[report.Source]float64{
	report.SourceFEMA:           0.98,
	report.SourceNCDOT:          0.95,
	report.SourceUSGS:           0.97,
	report.SourceLocalEmergency: 0.90,
	report.SourceNews:           0.80,
}

// officialEvent maps bulletin types onto canonical events. Both
// bridge_closure and bridge_collapse arrive in real DOT feeds.
var officialEvent = map[string]report.EventType{
	"road_closure":          report.EventRoadClosure,
	"road_damage":           report.EventRoadDamage,
	"road_clear":            report.EventRoadClear,
	"bridge_closure":        report.EventBridgeCollapse,
	"bridge_collapse":       report.EventBridgeCollapse,
	"flooding":              report.EventFlooding,
	"power_outage":          report.EventPowerOutage,
	"shelter_opening":       report.EventShelterOpening,
	"shelter_closing":       report.EventShelterClosing,
	"infrastructure_damage": report.EventInfrastructureDamage,
	"rescue_needed":         report.EventRescueNeeded,
	"supplies_needed":       report.EventSuppliesNeeded,
}

// OfficialAdapter consumes government bulletins: FEMA situation reports,
// DOT closures, USGS gauges, local emergency management. Slow but highly
// reliable.
type OfficialAdapter struct {
	name   string
	path   string
	logger *reporting.Logger

	loaded datasetOnce
	events []officialBulletin
}

type officialBulletin struct {
	ID          string           `json:"id"`
	Timestamp   string           `json:"timestamp"`
	Type        string           `json:"type"`
	Location    locRecord        `json:"location"`
	Description string           `json:"description"`
	Source      string           `json:"source"`
	Agency      string           `json:"agency"`
	ReportID    string           `json:"report_id"`
	Address     string           `json:"address"`
	Polygon     *geoJSONGeometry `json:"affected_polygon"`
}

// geoJSONGeometry decodes the optional hazard geometry attached to some
// bulletins. Only Polygon arrives in practice.
type geoJSONGeometry struct {
	Type        string     `json:"type"`
	Coordinates []geo.Ring `json:"coordinates"`
}

// NewOfficialAdapter creates an official data adapter reading bulletins
// from the given JSON file.
func NewOfficialAdapter(path string, logger *reporting.Logger) *OfficialAdapter {
	return &OfficialAdapter{
		name:   "official_data",
		path:   path,
		logger: logger.WithComponent("adapter.official"),
	}
}

// Name implements Adapter.
func (a *OfficialAdapter) Name() string { return a.name }

// Gather implements Adapter.
func (a *OfficialAdapter) Gather(ctx context.Context, now time.Time, bbox geo.BoundingBox) ([]report.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.loaded.load(func() bool {
		var doc struct {
			Events  []officialBulletin `json:"events"`
			Reports []officialBulletin `json:"reports"`
		}
		if !loadJSON(a.path, &doc, a.logger) {
			return false
		}
		a.events = doc.Events
		if len(a.events) == 0 {
			a.events = doc.Reports
		}
		return true
	})

	reports := make([]report.Report, 0, len(a.events))
	seen := make(map[string]struct{}, len(a.events))

	for _, b := range a.events {
		if _, dup := seen[b.ID]; dup {
			continue
		}
		seen[b.ID] = struct{}{}

		ts, err := parseTimestamp(b.Timestamp)
		if err != nil {
			a.logger.Debug("discarding bulletin with bad timestamp", "id", b.ID)
			continue
		}
		loc := b.Location.location()
		loc.Address = b.Address
		if !admit(ts, loc, now, bbox) {
			continue
		}

		event, ok := officialEvent[strings.ToLower(b.Type)]
		if !ok {
			continue
		}

		source := mapSource(b.Source)
		conf, ok := sourceReliability[source]
		if !ok {
			conf = 0.85
		}

		var rings []geo.Ring
		if b.Polygon != nil && b.Polygon.Type == "Polygon" {
			rings = b.Polygon.Coordinates
		}

		reports = append(reports, report.Report{
			ID:          b.ID,
			Timestamp:   ts,
			Event:       event,
			Location:    loc,
			Description: b.Description,
			Source:      source,
			Confidence:  conf,
			AgentName:   a.name,
			Metadata: map[string]any{
				"report_id": b.ReportID,
				"agency":    b.Agency,
				"verified":  true,
				"official":  true,
			},
			AffectedPolygon: rings,
		})
	}

	a.logger.Debug("gathered official reports", "count", len(reports))
	return reports, nil
}

func mapSource(s string) report.Source {
	switch strings.ToLower(s) {
	case "fema":
		return report.SourceFEMA
	case "ncdot":
		return report.SourceNCDOT
	case "usgs":
		return report.SourceUSGS
	case "local_emergency":
		return report.SourceLocalEmergency
	case "news":
		return report.SourceNews
	case "twitter":
		return report.SourceTwitter
	default:
		return report.SourceCitizen
	}
}
