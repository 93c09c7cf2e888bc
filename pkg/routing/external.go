package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/reliefops/relief-coordinator/pkg/reporting"
)

const externalProfile = "driving-car"

// ExternalRoute is the parsed result of one external routing call.
type ExternalRoute struct {
	Coordinates [][]float64
	DistanceM   float64
	DurationS   float64
	Steps       []Step
}

// ExternalRouter calls an OpenRouteService-compatible directions
// endpoint. A zero base URL disables it.
type ExternalRouter struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *reporting.Logger
}

// NewExternalRouter creates an external routing client.
func NewExternalRouter(baseURL, apiKey string, timeout time.Duration, logger *reporting.Logger) *ExternalRouter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ExternalRouter{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.WithComponent("routing.external"),
	}
}

// Enabled reports whether the client has an endpoint to call.
func (c *ExternalRouter) Enabled() bool {
	return c != nil && c.baseURL != ""
}

type directionsRequest struct {
	Coordinates [][]float64        `json:"coordinates"`
	Options     *directionsOptions `json:"options,omitempty"`
}

type directionsOptions struct {
	AvoidPolygons *AvoidGeometry `json:"avoid_polygons,omitempty"`
}

type directionsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Summary struct {
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
			} `json:"summary"`
			Segments []struct {
				Steps []struct {
					Instruction string  `json:"instruction"`
					Name        string  `json:"name"`
					Distance    float64 `json:"distance"`
					Duration    float64 `json:"duration"`
					Type        any     `json:"type"`
				} `json:"steps"`
			} `json:"segments"`
		} `json:"properties"`
	} `json:"features"`
}

// PlanRoute requests a road-following route through the given
// coordinates ([lon, lat] order), optionally avoiding hazard polygons.
func (c *ExternalRouter) PlanRoute(ctx context.Context, coordinates [][]float64, avoid *AvoidGeometry) (*ExternalRoute, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("external router not configured")
	}
	if len(coordinates) < 2 {
		return nil, fmt.Errorf("need at least origin and destination, got %d points", len(coordinates))
	}

	reqBody := directionsRequest{Coordinates: coordinates}
	if avoid != nil {
		reqBody.Options = &directionsOptions{AvoidPolygons: avoid}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode directions request: %w", err)
	}

	url := fmt.Sprintf("%s/v2/directions/%s/geojson", c.baseURL, externalProfile)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build directions request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directions request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read directions response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directions request returned %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var parsed directionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse directions response: %w", err)
	}
	if len(parsed.Features) == 0 {
		return nil, fmt.Errorf("directions response contained no features")
	}

	feature := parsed.Features[0]
	route := &ExternalRoute{
		Coordinates: feature.Geometry.Coordinates,
		DistanceM:   feature.Properties.Summary.Distance,
		DurationS:   feature.Properties.Summary.Duration,
	}
	for _, seg := range feature.Properties.Segments {
		for _, s := range seg.Steps {
			route.Steps = append(route.Steps, Step{
				Instruction:  s.Instruction,
				Name:         s.Name,
				DistanceM:    s.Distance,
				DurationS:    s.Duration,
				ManeuverType: fmt.Sprintf("%v", s.Type),
			})
		}
	}

	return route, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
