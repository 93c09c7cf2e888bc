// Package roadnet maintains the directed road graph: immutable topology
// and base weights loaded from GeoJSON, plus mutable per-edge damage
// status projected from fused reports. One RWMutex serialises writers;
// readers share.
package roadnet

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/reliefops/relief-coordinator/pkg/fusion"
	"github.com/reliefops/relief-coordinator/pkg/geo"
	"github.com/reliefops/relief-coordinator/pkg/report"
	"github.com/reliefops/relief-coordinator/pkg/reporting"
)

// DefaultRadiusDeg is the projection box half-width in degrees, about
// 100 m. A report touches an edge when the edge midpoint lies within
// this distance on both axes.
const DefaultRadiusDeg = 0.001

// NodeKey identifies a graph node by rounded (lon, lat).
type NodeKey struct {
	Lon float64
	Lat float64
}

// Location returns the node position.
func (k NodeKey) Location() geo.Location {
	return geo.Location{Lat: k.Lat, Lon: k.Lon}
}

func keyFor(lon, lat float64) NodeKey {
	return NodeKey{Lon: geo.Round6(lon), Lat: geo.Round6(lat)}
}

// EdgeState is the damage state of one edge.
type EdgeState string

const (
	EdgeOpen    EdgeState = "open"
	EdgeDamaged EdgeState = "damaged"
	EdgeClosed  EdgeState = "closed"
)

// EdgeStatus is the mutable damage overlay on an edge. Multiplier 1
// means open, +Inf means closed, anything between means damaged.
type EdgeStatus struct {
	Multiplier          float64
	State               EdgeState
	Confidence          float64
	LastUpdate          time.Time
	ContributingReports []string
}

// Edge is one directed road segment. Topology and BaseWeight are
// immutable after load; only Status changes.
type Edge struct {
	From     NodeKey
	To       NodeKey
	LengthM  float64
	Name     string
	Highway  string
	OSMID    string
	Geometry [][]float64

	baseWeight float64
	Status     EdgeStatus
}

// Weight returns the effective traversal cost, computed lazily from the
// immutable base and the current multiplier.
func (e *Edge) Weight() float64 {
	return e.baseWeight * e.Status.Multiplier
}

// BaseWeight returns the immutable pre-disaster cost.
func (e *Edge) BaseWeight() float64 { return e.baseWeight }

// Midpoint returns the mean of the edge endpoints.
func (e *Edge) Midpoint() geo.Location {
	return geo.Location{
		Lat: (e.From.Lat + e.To.Lat) / 2,
		Lon: (e.From.Lon + e.To.Lon) / 2,
	}
}

// EdgeSummary is a read-only snapshot of an impaired edge.
type EdgeSummary struct {
	Name       string       `json:"name"`
	Midpoint   geo.Location `json:"midpoint"`
	State      EdgeState    `json:"status"`
	Confidence float64      `json:"confidence"`
	LastUpdate time.Time    `json:"last_update"`
}

// Stats summarises the graph for logs and the CLI.
type Stats struct {
	Nodes   int `json:"nodes"`
	Edges   int `json:"edges"`
	Open    int `json:"open"`
	Damaged int `json:"damaged"`
	Blocked int `json:"blocked"`
}

// eventMultiplier maps road-affecting event kinds onto weight
// multipliers.
var eventMultiplier = map[report.EventType]float64{
	report.EventRoadClosure:    math.Inf(1),
	report.EventBridgeCollapse: math.Inf(1),
	report.EventFlooding:       5.0,
	report.EventRoadDamage:     3.0,
	report.EventRoadClear:      1.0,
}

// statusMultiplier maps reconciled statuses onto weight multipliers.
var statusMultiplier = map[fusion.Status]float64{
	fusion.StatusBlocked: math.Inf(1),
	fusion.StatusDamaged: 3.0,
	fusion.StatusClear:   1.0,
}

// Network is the shared road graph.
type Network struct {
	mu     sync.RWMutex
	nodes  map[NodeKey]struct{}
	adj    map[NodeKey][]*Edge
	edges  []*Edge
	logger *reporting.Logger
}

// NewNetwork creates an empty network.
func NewNetwork(logger *reporting.Logger) *Network {
	return &Network{
		nodes:  make(map[NodeKey]struct{}),
		adj:    make(map[NodeKey][]*Edge),
		logger: logger.WithComponent("roadnet"),
	}
}

type geoJSONFeature struct {
	Geometry struct {
		Type        string      `json:"type"`
		Coordinates [][]float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		OSMID   json.RawMessage `json:"osmid"`
		Name    json.RawMessage `json:"name"`
		Highway json.RawMessage `json:"highway"`
		Length  *float64        `json:"length"`
	} `json:"properties"`
}

// LoadGeoJSON loads the network from a FeatureCollection of LineString
// features. Each line becomes one directed edge between its first and
// last coordinate; interior vertices are kept as geometry only.
func (n *Network) LoadGeoJSON(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read road network: %w", err)
	}

	var doc struct {
		Features []geoJSONFeature `json:"features"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse road network: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	for _, f := range doc.Features {
		if f.Geometry.Type != "LineString" || len(f.Geometry.Coordinates) < 2 {
			continue
		}
		coords := f.Geometry.Coordinates

		from := keyFor(coords[0][0], coords[0][1])
		to := keyFor(coords[len(coords)-1][0], coords[len(coords)-1][1])
		if from == to {
			continue
		}

		length := 0.0
		if f.Properties.Length != nil {
			length = *f.Properties.Length
		} else {
			for i := 1; i < len(coords); i++ {
				length += geo.SegmentMeters(coords[i-1], coords[i])
			}
		}

		e := &Edge{
			From:       from,
			To:         to,
			LengthM:    length,
			Name:       flattenProp(f.Properties.Name),
			Highway:    flattenProp(f.Properties.Highway),
			OSMID:      flattenProp(f.Properties.OSMID),
			Geometry:   coords,
			baseWeight: length,
			Status:     EdgeStatus{Multiplier: 1.0, State: EdgeOpen},
		}

		n.nodes[from] = struct{}{}
		n.nodes[to] = struct{}{}
		n.adj[from] = append(n.adj[from], e)
		n.edges = append(n.edges, e)
	}

	n.logger.Info("road network loaded",
		"nodes", len(n.nodes), "edges", len(n.edges))
	return nil
}

// flattenProp renders an OSM property that may arrive as a string, a
// number, or a list of either.
func flattenProp(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return fmt.Sprintf("%v", f)
	}
	var list []any
	if json.Unmarshal(raw, &list) == nil && len(list) > 0 {
		return fmt.Sprintf("%v", list[0])
	}
	return ""
}

// ApplyReport projects one road-affecting report onto every edge whose
// midpoint falls inside the degree box around the report location.
// Returns the number of edges touched.
func (n *Network) ApplyReport(r report.Report, radiusDeg float64) int {
	mult, ok := eventMultiplier[r.Event]
	if !ok {
		return 0
	}
	if radiusDeg <= 0 {
		radiusDeg = DefaultRadiusDeg
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	touched := 0
	for _, e := range n.edges {
		if !n.withinBox(e, r.Location, radiusDeg) {
			continue
		}
		n.setEdgeStatus(e, mult, r.Confidence, r.Timestamp, r.ID)
		touched++
	}
	return touched
}

// ApplyResolution overrides the per-report projection around a location
// with a reconciled status. Unknown resolutions leave edges untouched.
func (n *Network) ApplyResolution(loc geo.Location, res fusion.Resolution, at time.Time, radiusDeg float64) int {
	mult, ok := statusMultiplier[res.Status]
	if !ok {
		return 0
	}
	if radiusDeg <= 0 {
		radiusDeg = DefaultRadiusDeg
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	touched := 0
	for _, e := range n.edges {
		if !n.withinBox(e, loc, radiusDeg) {
			continue
		}
		n.setEdgeStatus(e, mult, res.Confidence, at, "")
		touched++
	}
	return touched
}

// withinBox checks the square degree box. Kept in degrees for parity
// with upstream data, although it distorts at high latitude.
func (n *Network) withinBox(e *Edge, loc geo.Location, radiusDeg float64) bool {
	mid := e.Midpoint()
	return math.Abs(mid.Lon-loc.Lon) <= radiusDeg &&
		math.Abs(mid.Lat-loc.Lat) <= radiusDeg
}

func (n *Network) setEdgeStatus(e *Edge, mult, conf float64, at time.Time, reportID string) {
	e.Status.Multiplier = mult
	e.Status.Confidence = conf
	e.Status.LastUpdate = at
	if reportID != "" {
		e.Status.ContributingReports = append(e.Status.ContributingReports, reportID)
	}
	switch {
	case math.IsInf(mult, 1):
		e.Status.State = EdgeClosed
	case mult > 1:
		e.Status.State = EdgeDamaged
	default:
		e.Status.State = EdgeOpen
	}
}

// ResetAllWeights restores every edge to its base weight and clears the
// damage overlay. Called before re-projecting a fresh report set.
func (n *Network) ResetAllWeights() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.edges {
		e.Status = EdgeStatus{Multiplier: 1.0, State: EdgeOpen}
	}
}

// BlockedEdges returns snapshots of all closed edges.
func (n *Network) BlockedEdges() []EdgeSummary {
	return n.edgesInState(EdgeClosed)
}

// DamagedEdges returns snapshots of all damaged edges.
func (n *Network) DamagedEdges() []EdgeSummary {
	return n.edgesInState(EdgeDamaged)
}

func (n *Network) edgesInState(state EdgeState) []EdgeSummary {
	n.mu.RLock()
	defer n.mu.RUnlock()
	var out []EdgeSummary
	for _, e := range n.edges {
		if e.Status.State != state {
			continue
		}
		out = append(out, EdgeSummary{
			Name:       e.Name,
			Midpoint:   e.Midpoint(),
			State:      e.Status.State,
			Confidence: e.Status.Confidence,
			LastUpdate: e.Status.LastUpdate,
		})
	}
	return out
}

// NearestNode finds the graph node closest to loc by planar degree
// distance. Returns false on an empty graph.
func (n *Network) NearestNode(loc geo.Location) (NodeKey, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	best := NodeKey{}
	bestDist := math.Inf(1)
	found := false
	for k := range n.nodes {
		d := geo.PlanarDeg(k.Location(), loc)
		if d < bestDist {
			best, bestDist, found = k, d, true
		}
	}
	return best, found
}

// GetStats returns current graph counters.
func (n *Network) GetStats() Stats {
	n.mu.RLock()
	defer n.mu.RUnlock()

	s := Stats{Nodes: len(n.nodes), Edges: len(n.edges)}
	for _, e := range n.edges {
		switch e.Status.State {
		case EdgeClosed:
			s.Blocked++
		case EdgeDamaged:
			s.Damaged++
		default:
			s.Open++
		}
	}
	return s
}
