package geo

import (
	"fmt"
	"math"
)

const (
	// CurveOffset displaces every leg's control point, in coordinate degrees.
	CurveOffset = 0.02
	// SamplesPerLeg is the Bezier resolution of one sub-leg.
	SamplesPerLeg = 50
	// DefaultSegments is the number of sub-legs used when no policy says otherwise.
	DefaultSegments = 2
)

// Path is an ordered, read-only sequence of points. It always holds at least
// a start and an end point when produced by this package.
type Path []Point

// Len returns the number of points.
func (p Path) Len() int { return len(p) }

// At returns the i-th point.
func (p Path) At(i int) Point { return p[i] }

// First returns the start point.
func (p Path) First() Point { return p[0] }

// Last returns the end point.
func (p Path) Last() Point { return p[len(p)-1] }

// Index maps a progress fraction in [0,1] onto a sample index using
// floor(progress * (len-1)). Values outside the range are clamped.
func (p Path) Index(progress float64) int {
	if progress <= 0 || math.IsNaN(progress) {
		return 0
	}
	if progress >= 1 {
		return len(p) - 1
	}
	return int(math.Floor(progress * float64(len(p)-1)))
}

// Sample returns the point selected by Index.
func (p Path) Sample(progress float64) Point {
	return p[p.Index(progress)]
}

// GeneratePath builds a gentle S-curve from start to end made of `segments`
// quadratic Bezier legs. Each leg's control point is its linear midpoint
// shifted by CurveOffset on both axes, positive on even legs and negative on
// odd ones. Leg seams are shared, not repeated, so the result holds
// segments*SamplesPerLeg+1 points. The output is deterministic.
func GeneratePath(start, end Point, segments int) (Path, error) {
	if segments < 1 {
		return nil, fmt.Errorf("%w: segment count %d < 1", ErrInvalidArgument, segments)
	}
	if err := checkPoint("start", start); err != nil {
		return nil, err
	}
	if err := checkPoint("end", end); err != nil {
		return nil, err
	}

	path := make(Path, 0, segments*SamplesPerLeg+1)
	legStart := start
	for i := 0; i < segments; i++ {
		legEnd := end
		if i < segments-1 {
			legEnd = start.Lerp(end, float64(i+1)/float64(segments))
		}
		offset := CurveOffset
		if i%2 == 1 {
			offset = -CurveOffset
		}
		control := legStart.Lerp(legEnd, 0.5).Offset(offset, offset)

		first := 0
		if i > 0 {
			first = 1
		}
		for k := first; k <= SamplesPerLeg; k++ {
			path = append(path, bezier(legStart, control, legEnd, float64(k)/SamplesPerLeg))
		}
		// bezier at t=1 is exact, but pin the seam anyway so the next leg
		// starts on the very same value.
		path[len(path)-1] = legEnd
		legStart = legEnd
	}
	return path, nil
}

// LinearPath returns a straight path from start to end with `samples`
// evenly spaced intervals (samples+1 points).
func LinearPath(start, end Point, samples int) (Path, error) {
	if samples < 1 {
		return nil, fmt.Errorf("%w: sample count %d < 1", ErrInvalidArgument, samples)
	}
	if err := checkPoint("start", start); err != nil {
		return nil, err
	}
	if err := checkPoint("end", end); err != nil {
		return nil, err
	}
	path := make(Path, samples+1)
	for k := 0; k <= samples; k++ {
		path[k] = start.Lerp(end, float64(k)/float64(samples))
	}
	path[samples] = end
	return path, nil
}

func bezier(p0, p1, p2 Point, t float64) Point {
	u := 1 - t
	return Point{
		Lon: u*u*p0.Lon + 2*u*t*p1.Lon + t*t*p2.Lon,
		Lat: u*u*p0.Lat + 2*u*t*p1.Lat + t*t*p2.Lat,
	}
}
