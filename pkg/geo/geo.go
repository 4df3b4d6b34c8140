// Package geo provides coordinate math for location discovery: great-circle
// distance, bearing-based point projection, and a coarse driving-time
// heuristic used when the routing provider is unavailable.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for Haversine distance.
const EarthRadiusKm = 6371.0

// DegreesPerKm approximates latitude degrees per kilometer at mid-latitudes.
const DegreesPerKm = 1.0 / 111.0

// averageSpeedKmh is the assumed average driving speed for the heuristic,
// accounting for traffic and stops.
const averageSpeedKmh = 50.0

// dayTripMaxMinutes is the one-way driving-time ceiling for a day trip.
const dayTripMaxMinutes = 240

// Point is an immutable WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies within the WGS84 coordinate range.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Distance returns the great-circle distance between a and b in kilometers
// using the Haversine formula.
func Distance(a, b Point) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// Project returns a point approximately distanceKm from origin along the
// given bearing (radians, clockwise from north). It uses an equirectangular
// approximation: good enough for coarse grid sampling, not for navigation.
func Project(origin Point, distanceKm, bearing float64) Point {
	latOffset := distanceKm * DegreesPerKm * math.Cos(bearing)
	lngOffset := distanceKm * math.Sin(bearing) / (111.0 * math.Cos(toRadians(origin.Lat)))
	return Point{
		Lat: origin.Lat + latOffset,
		Lng: origin.Lng + lngOffset,
	}
}

// EstimateDrivingTime returns a heuristic driving time in minutes assuming
// an average speed of 50 km/h. It is a fallback for when the routing
// provider cannot supply a real duration.
func EstimateDrivingTime(distanceKm float64) int {
	return int(math.Round(distanceKm / averageSpeedKmh * 60))
}

// IsDayTripRange reports whether a one-way driving time qualifies as a day
// trip (at most 4 hours).
func IsDayTripRange(minutes int) bool {
	return minutes <= dayTripMaxMinutes
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
