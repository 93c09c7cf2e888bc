// Package geo provides the geographic primitives shared by the relief
// coordinator: locations, bounding boxes, distance metrics, and polygon
// containment tests.
package geo

import "math"

const (
	// EarthRadiusKm is the mean Earth radius used by Haversine.
	EarthRadiusKm = 6371.0

	// MetersPerDegLat is the approximate north-south length of one degree
	// of latitude.
	MetersPerDegLat = 111320.0
)

// Location is a geographic point with an optional human-readable address.
type Location struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Address string  `json:"address,omitempty"`
}

// Valid reports whether the coordinates are within the WGS84 ranges.
func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lon >= -180 && l.Lon <= 180
}

// BoundingBox is a geographic query window. Containment is inclusive on
// all four edges.
type BoundingBox struct {
	West  float64 `json:"west" yaml:"west"`
	South float64 `json:"south" yaml:"south"`
	East  float64 `json:"east" yaml:"east"`
	North float64 `json:"north" yaml:"north"`
}

// Contains reports whether the location lies inside the box (inclusive).
func (b BoundingBox) Contains(l Location) bool {
	return b.West <= l.Lon && l.Lon <= b.East &&
		b.South <= l.Lat && l.Lat <= b.North
}

// Valid reports whether the box is well-formed (west ≤ east, south ≤ north).
func (b BoundingBox) Valid() bool {
	return b.West <= b.East && b.South <= b.North
}

// HaversineKm returns the great-circle distance between two points in
// kilometers.
func HaversineKm(a, b Location) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// PlanarDeg returns the planar L2 distance between two points in degrees.
// Cheap and adequate for nearest-node lookups and proximity scoring over
// a single region.
func PlanarDeg(a, b Location) float64 {
	dLat := a.Lat - b.Lat
	dLon := a.Lon - b.Lon
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

// MetersPerDegLon returns the east-west length of one degree of longitude
// at the given latitude.
func MetersPerDegLon(lat float64) float64 {
	return MetersPerDegLat * math.Cos(radians(lat))
}

// SegmentMeters returns the planar length in meters between two
// [lon, lat] coordinates using the local latitude-dependent metric.
func SegmentMeters(a, b []float64) float64 {
	midLat := (a[1] + b[1]) / 2
	dx := (b[0] - a[0]) * MetersPerDegLon(midLat)
	dy := (b[1] - a[1]) * MetersPerDegLat
	return math.Sqrt(dx*dx + dy*dy)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
