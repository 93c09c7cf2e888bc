package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/reliefops/relief-coordinator/pkg/geo"
	"github.com/reliefops/relief-coordinator/pkg/report"
	"github.com/reliefops/relief-coordinator/pkg/reporting"
)

// detectionPrior is the per-kind raw confidence assigned to a satellite
// detection that carries no confidence of its own.
var detectionPrior = map[string]float64{
	"flooding":        0.90,
	"road_damage":     0.85,
	"bridge_damage":   0.88,
	"landslide":       0.80,
	"building_damage": 0.75,
	"debris":          0.70,
}

// detectionEvent maps satellite detection kinds onto canonical events.
// Unmapped kinds are discarded.
var detectionEvent = map[string]report.EventType{
	"flooding":        report.EventFlooding,
	"road_damage":     report.EventRoadDamage,
	"road_blocked":    report.EventRoadClosure,
	"bridge_damage":   report.EventBridgeCollapse,
	"landslide":       report.EventRoadClosure,
	"debris":          report.EventRoadDamage,
	"building_damage": report.EventInfrastructureDamage,
}

// SatelliteAdapter turns pre-computed imagery change detections into
// reports. Satellite observations are trusted but scaled down when the
// affected area is small enough to be sensor noise.
type SatelliteAdapter struct {
	name   string
	weight float64
	path   string
	logger *reporting.Logger

	loaded     datasetOnce
	detections []satelliteDetection
}

type satelliteDetection struct {
	ID            string    `json:"id"`
	Timestamp     string    `json:"timestamp"`
	Type          string    `json:"type"`
	Location      locRecord `json:"location"`
	Confidence    *float64  `json:"confidence"`
	AreaSqm       *float64  `json:"area_sqm"`
	ImagerySource string    `json:"imagery_source"`
	TileID        string    `json:"tile_id"`
	PreImageDate  string    `json:"pre_image_date"`
	PostImageDate string    `json:"post_image_date"`
	Description   string    `json:"description"`
}

// NewSatelliteAdapter creates a satellite adapter reading detections
// from the given JSON file.
func NewSatelliteAdapter(path string, logger *reporting.Logger) *SatelliteAdapter {
	return &SatelliteAdapter{
		name:   "satellite",
		weight: 0.90,
		path:   path,
		logger: logger.WithComponent("adapter.satellite"),
	}
}

// Name implements Adapter.
func (a *SatelliteAdapter) Name() string { return a.name }

// Gather implements Adapter.
func (a *SatelliteAdapter) Gather(ctx context.Context, now time.Time, bbox geo.BoundingBox) ([]report.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.loaded.load(func() bool {
		var doc struct {
			Detections []satelliteDetection `json:"detections"`
		}
		if !loadJSON(a.path, &doc, a.logger) {
			return false
		}
		a.detections = doc.Detections
		return true
	})

	reports := make([]report.Report, 0, len(a.detections))
	seen := make(map[string]struct{}, len(a.detections))

	for _, d := range a.detections {
		if _, dup := seen[d.ID]; dup {
			continue
		}
		seen[d.ID] = struct{}{}

		ts, err := parseTimestamp(d.Timestamp)
		if err != nil {
			a.logger.Debug("discarding detection with bad timestamp", "id", d.ID)
			continue
		}
		loc := d.Location.location()
		if !admit(ts, loc, now, bbox) {
			continue
		}

		event, ok := detectionEvent[d.Type]
		if !ok {
			continue
		}

		conf := detectionPrior[d.Type]
		if conf == 0 {
			conf = 0.75
		}
		if d.Confidence != nil {
			conf = *d.Confidence
		}
		conf = a.scaleByArea(conf, d.AreaSqm) * a.weight

		desc := d.Description
		if desc == "" {
			desc = fmt.Sprintf("Satellite detected: %s", d.Type)
		}

		reports = append(reports, report.Report{
			ID:          d.ID,
			Timestamp:   ts,
			Event:       event,
			Location:    loc,
			Description: desc,
			Source:      report.SourceSatellite,
			Confidence:  report.ClampConfidence(conf),
			AgentName:   a.name,
			Metadata: map[string]any{
				"detection_type": d.Type,
				"imagery_source": orDefault(d.ImagerySource, "sentinel-2"),
				"tile_id":        d.TileID,
				"area_sqm":       d.AreaSqm,
				"pre_image_date": d.PreImageDate,
				"post_image_date": d.PostImageDate,
			},
		})
	}

	a.logger.Debug("gathered satellite reports", "count", len(reports))
	return reports, nil
}

// scaleByArea reduces confidence for small detections. Anything under
// 100 square meters may be noise at Sentinel-2 resolution.
func (a *SatelliteAdapter) scaleByArea(conf float64, area *float64) float64 {
	if area == nil {
		return conf
	}
	switch {
	case *area < 100:
		return conf * 0.8
	case *area < 500:
		return conf * 0.9
	default:
		return conf
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
