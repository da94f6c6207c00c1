// Package geo provides the spherical geometry used for feature engineering
// and the GeoJSON shapes persisted alongside transports.
package geo

import "math"

// EarthRadiusMiles is the Earth radius used for great-circle distances.
// Feature distances are in statute miles; the unit only has to be consistent
// with the one the classifier artifact was trained with.
const EarthRadiusMiles = 3963.1676

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// Distance returns the great-circle distance between two points in miles.
//
// The cosine argument is clamped to [-1, 1] before acos: identical points
// can otherwise overshoot 1.0 in floating point and produce a domain error.
func Distance(a, b Point) float64 {
	const degToRad = math.Pi / 180.0

	phi1 := (90.0 - a.Lat) * degToRad
	phi2 := (90.0 - b.Lat) * degToRad
	theta1 := a.Lon * degToRad
	theta2 := b.Lon * degToRad

	cos := math.Sin(phi1)*math.Sin(phi2)*math.Cos(theta1-theta2) +
		math.Cos(phi1)*math.Cos(phi2)
	cos = math.Min(1, math.Max(-1, cos))

	return math.Acos(cos) * EarthRadiusMiles
}

// MinDistance returns the distance from p to the nearest of points, in miles.
// Linear scan; the station reference set is small and static per run.
func MinDistance(p Point, points []Point) float64 {
	min := math.Inf(1)
	for _, candidate := range points {
		if d := Distance(p, candidate); d < min {
			min = d
		}
	}
	return min
}
