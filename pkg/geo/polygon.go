package geo

import "math"

// Ring is a closed GeoJSON-style linear ring in [lon, lat] order. The
// first and last coordinate are equal.
type Ring [][]float64

// PointInRing runs a ray-cast containment test for a [lon, lat] point
// against a polygon ring.
func PointInRing(lon, lat float64, ring Ring) bool {
	n := len(ring)
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > lat) != (yj > lat) &&
			lon < (xj-xi)*(lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

// CircleRing approximates a circle of radiusM meters around a center point
// as a closed ring with numPoints vertices. Coordinates are rounded to six
// decimals to match graph node precision.
func CircleRing(centerLon, centerLat, radiusM float64, numPoints int) Ring {
	if numPoints < 3 {
		numPoints = 8
	}
	perDegLat := MetersPerDegLat
	perDegLon := MetersPerDegLon(centerLat)

	ring := make(Ring, 0, numPoints+1)
	for i := 0; i < numPoints; i++ {
		angle := 2 * math.Pi * float64(i) / float64(numPoints)
		dLat := radiusM * math.Cos(angle) / perDegLat
		dLon := radiusM * math.Sin(angle) / perDegLon
		ring = append(ring, []float64{
			round6(centerLon + dLon),
			round6(centerLat + dLat),
		})
	}
	ring = append(ring, ring[0])
	return ring
}

// Round6 rounds a coordinate to six decimals (~0.1 m), the precision used
// for graph node keys.
func Round6(v float64) float64 { return round6(v) }

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
