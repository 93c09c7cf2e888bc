// Package adapters contains the source adapters that turn raw datasets
// into canonical reports. Each adapter is a pure function of its dataset,
// the scenario time, and the query window; gathering the same inputs
// twice yields the same set.
package adapters

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/reliefops/relief-coordinator/pkg/geo"
	"github.com/reliefops/relief-coordinator/pkg/report"
	"github.com/reliefops/relief-coordinator/pkg/reporting"
)

// Adapter gathers reports visible at the given scenario time inside the
// bounding box. Implementations must be idempotent, deduplicate by report
// id within one call, drop future records and out-of-window records, and
// tag every report with the adapter's name.
type Adapter interface {
	Name() string
	Gather(ctx context.Context, now time.Time, bbox geo.BoundingBox) ([]report.Report, error)
}

// loadJSON reads and decodes a dataset file. A missing or unreadable
// dataset is absorbed: the adapter logs it and gathers nothing rather
// than failing the pipeline.
func loadJSON(path string, out any, logger *reporting.Logger) bool {
	if path == "" {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("dataset unavailable", "path", path, "error", err.Error())
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		logger.Warn("dataset malformed", "path", path, "error", err.Error())
		return false
	}
	return true
}

// datasetOnce guards one lazy dataset load.
type datasetOnce struct {
	once sync.Once
	ok   bool
}

func (d *datasetOnce) load(fn func() bool) bool {
	d.once.Do(func() { d.ok = fn() })
	return d.ok
}

// parseTimestamp accepts RFC3339 with or without a trailing Z offset.
func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// locRecord is the {lat, lon} object shared by every dataset.
type locRecord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (l locRecord) location() geo.Location {
	return geo.Location{Lat: l.Lat, Lon: l.Lon}
}

// admit applies the shared record filters: known timestamp, not in the
// future, inside the window, valid coordinates.
func admit(ts time.Time, loc geo.Location, now time.Time, bbox geo.BoundingBox) bool {
	if ts.After(now) {
		return false
	}
	if !loc.Valid() {
		return false
	}
	return bbox.Contains(loc)
}
