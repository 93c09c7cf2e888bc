package adapters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/reliefops/relief-coordinator/pkg/geo"
	"github.com/reliefops/relief-coordinator/pkg/report"
	"github.com/reliefops/relief-coordinator/pkg/reporting"
)

// Shelter is an emergency shelter with its live occupancy and needs.
type Shelter struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	Address              string       `json:"address"`
	Location             geo.Location `json:"location"`
	Capacity             int          `json:"capacity"`
	CurrentOccupancy     int          `json:"current_occupancy"`
	OpenedAt             time.Time    `json:"opened_at"`
	ClosedAt             *time.Time   `json:"closed_at,omitempty"`
	Needs                []string     `json:"needs"`
	AcceptsPets          bool         `json:"accepts_pets"`
	HasGenerator         bool         `json:"has_generator"`
	HasMedical           bool         `json:"has_medical"`
	WheelchairAccessible bool         `json:"wheelchair_accessible"`
	Contact              string       `json:"contact,omitempty"`
}

// ActiveAt reports whether the shelter is open at scenario time t.
func (s Shelter) ActiveAt(t time.Time) bool {
	if s.OpenedAt.After(t) {
		return false
	}
	if s.ClosedAt != nil && !s.ClosedAt.After(t) {
		return false
	}
	return true
}

// Depot is a supply staging point. Depots serve as query origins; they
// are never routing destinations.
type Depot struct {
	Name     string       `json:"name"`
	Location geo.Location `json:"location"`
}

type shelterRecord struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Address              string    `json:"address"`
	Location             locRecord `json:"location"`
	Capacity             int       `json:"capacity"`
	CurrentOccupancy     int       `json:"current_occupancy"`
	OpenedAt             string    `json:"opened_at"`
	ClosedAt             string    `json:"closed_at"`
	Needs                []string  `json:"needs"`
	AcceptsPets          bool      `json:"accepts_pets"`
	HasGenerator         bool      `json:"has_generator"`
	HasMedical           bool      `json:"has_medical"`
	WheelchairAccessible bool      `json:"wheelchair_accessible"`
	Contact              string    `json:"contact"`
}

type depotRecord struct {
	Name     string    `json:"name"`
	Location locRecord `json:"location"`
}

// ShelterAdapter reads the shelter roster and emits one shelter_opening
// report per shelter active at scenario time. It also exposes the typed
// roster and the depot list for ranking and origin resolution.
type ShelterAdapter struct {
	name   string
	path   string
	logger *reporting.Logger

	loaded   datasetOnce
	shelters []Shelter
	depots   []Depot
}

// NewShelterAdapter creates a shelter adapter reading the roster from
// the given JSON file.
func NewShelterAdapter(path string, logger *reporting.Logger) *ShelterAdapter {
	return &ShelterAdapter{
		name:   "shelter_status",
		path:   path,
		logger: logger.WithComponent("adapter.shelter"),
	}
}

// Name implements Adapter.
func (a *ShelterAdapter) Name() string { return a.name }

func (a *ShelterAdapter) load() {
	a.loaded.load(func() bool {
		var doc struct {
			Shelters     []shelterRecord `json:"shelters"`
			SupplyDepots []depotRecord   `json:"supply_depots"`
		}
		if !loadJSON(a.path, &doc, a.logger) {
			return false
		}
		for _, r := range doc.Shelters {
			opened, err := parseTimestamp(r.OpenedAt)
			if err != nil {
				a.logger.Debug("discarding shelter with bad opened_at", "id", r.ID)
				continue
			}
			s := Shelter{
				ID:                   r.ID,
				Name:                 r.Name,
				Address:              r.Address,
				Location:             geo.Location{Lat: r.Location.Lat, Lon: r.Location.Lon, Address: r.Address},
				Capacity:             r.Capacity,
				CurrentOccupancy:     r.CurrentOccupancy,
				OpenedAt:             opened,
				Needs:                r.Needs,
				AcceptsPets:          r.AcceptsPets,
				HasGenerator:         r.HasGenerator,
				HasMedical:           r.HasMedical,
				WheelchairAccessible: r.WheelchairAccessible,
				Contact:              r.Contact,
			}
			if r.ClosedAt != "" {
				closed, err := parseTimestamp(r.ClosedAt)
				if err == nil {
					s.ClosedAt = &closed
				}
			}
			a.shelters = append(a.shelters, s)
		}
		for _, d := range doc.SupplyDepots {
			a.depots = append(a.depots, Depot{
				Name:     d.Name,
				Location: d.Location.location(),
			})
		}
		return true
	})
}

// Gather implements Adapter. Each active shelter yields one
// shelter_opening report at its opening time.
func (a *ShelterAdapter) Gather(ctx context.Context, now time.Time, bbox geo.BoundingBox) ([]report.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.load()

	reports := make([]report.Report, 0, len(a.shelters))
	seen := make(map[string]struct{}, len(a.shelters))

	for _, s := range a.shelters {
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}

		if !s.ActiveAt(now) {
			continue
		}
		if !bbox.Contains(s.Location) {
			continue
		}

		needs := "General supplies"
		if len(s.Needs) > 0 {
			needs = strings.Join(s.Needs, ", ")
		}

		reports = append(reports, report.Report{
			ID:          s.ID,
			Timestamp:   s.OpenedAt,
			Event:       report.EventShelterOpening,
			Location:    s.Location,
			Description: fmt.Sprintf("%s - Capacity: %d, Needs: %s", s.Name, s.Capacity, needs),
			Source:      report.SourceLocalEmergency,
			Confidence:  0.95,
			AgentName:   a.name,
			Metadata: map[string]any{
				"shelter_name":      s.Name,
				"capacity":          s.Capacity,
				"current_occupancy": s.CurrentOccupancy,
				"needs":             s.Needs,
				"contact":           s.Contact,
				"accepts_pets":      s.AcceptsPets,
			},
		})
	}

	a.logger.Debug("gathered shelter reports", "count", len(reports))
	return reports, nil
}

// ActiveShelters returns the shelters open at scenario time t.
func (a *ShelterAdapter) ActiveShelters(t time.Time) []Shelter {
	a.load()
	active := make([]Shelter, 0, len(a.shelters))
	for _, s := range a.shelters {
		if s.ActiveAt(t) {
			active = append(active, s)
		}
	}
	return active
}

// Depots returns the supply depot list.
func (a *ShelterAdapter) Depots() []Depot {
	a.load()
	return a.depots
}
