// Geographic primitives shared by the path generator, the trajectory player and the ETA estimator.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidArgument is returned for malformed coordinates, non-positive speeds,
// durations or segment counts.
var ErrInvalidArgument = errors.New("invalid argument")

// Point is a longitude/latitude pair in decimal degrees.
type Point struct {
	Lon float64 `json:"lon" yaml:"lon"`
	Lat float64 `json:"lat" yaml:"lat"`
}

// Pt builds a Point from a (lon, lat) pair.
func Pt(lon, lat float64) Point {
	return Point{Lon: lon, Lat: lat}
}

// Valid reports whether both coordinates are finite numbers.
func (p Point) Valid() bool {
	return isFinite(p.Lon) && isFinite(p.Lat)
}

// Offset returns p shifted by the given deltas.
func (p Point) Offset(dLon, dLat float64) Point {
	return Point{Lon: p.Lon + dLon, Lat: p.Lat + dLat}
}

// Lerp interpolates linearly between p and q; t=0 yields p, t=1 yields q.
func (p Point) Lerp(q Point, t float64) Point {
	return Point{
		Lon: p.Lon + (q.Lon-p.Lon)*t,
		Lat: p.Lat + (q.Lat-p.Lat)*t,
	}
}

func (p Point) String() string {
	return fmt.Sprintf("[%.6f,%.6f]", p.Lon, p.Lat)
}

func checkPoint(name string, p Point) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %s %v is not a finite coordinate pair", ErrInvalidArgument, name, p)
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
