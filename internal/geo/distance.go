package geo

import (
	"fmt"
	"math"
)

const (
	// EarthRadiusKm is the mean radius used by the haversine formula.
	EarthRadiusKm = 6371.0
	// DefaultSpeedKmh is the assumed cruise speed of a delivery drone.
	DefaultSpeedKmh = 60.0
)

// DistanceKm returns the great-circle distance between a and b using the
// haversine formula.
func DistanceKm(a, b Point) (float64, error) {
	if err := checkPoint("a", a); err != nil {
		return 0, err
	}
	if err := checkPoint("b", b); err != nil {
		return 0, err
	}
	return haversine(a, b), nil
}

// ETAMinutes estimates whole travel minutes from a to b at a constant speed.
func ETAMinutes(a, b Point, speedKmh float64) (int, error) {
	if !(speedKmh > 0) || math.IsInf(speedKmh, 0) {
		return 0, fmt.Errorf("%w: speed %v km/h", ErrInvalidArgument, speedKmh)
	}
	d, err := DistanceKm(a, b)
	if err != nil {
		return 0, err
	}
	return int(math.Round(d / speedKmh * 60)), nil
}

func haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}
