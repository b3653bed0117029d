package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceKmSymmetric(t *testing.T) {
	pairs := [][2]Point{
		{Pt(-74.006, 40.7128), Pt(-73.9851, 40.7589)},
		{Pt(13.845, 46.378), Pt(13.855, 46.384)},
		{Pt(0, 0), Pt(180, 0)},
		{Pt(16.3738, 48.2082), Pt(-0.1276, 51.5072)},
	}
	for _, pr := range pairs {
		ab, err := DistanceKm(pr[0], pr[1])
		require.NoError(t, err)
		ba, err := DistanceKm(pr[1], pr[0])
		require.NoError(t, err)
		assert.InDelta(t, ab, ba, 1e-9)
	}
}

func TestDistanceKmKnownValues(t *testing.T) {
	d, err := DistanceKm(Pt(-74.006, 40.7128), Pt(-73.9851, 40.7589))
	require.NoError(t, err)
	assert.InDelta(t, 5.4, d, 0.1)

	d, err = DistanceKm(Pt(0, 0), Pt(180, 0))
	require.NoError(t, err)
	assert.InDelta(t, math.Pi*EarthRadiusKm, d, 1e-6)
}

func TestETAMinutes(t *testing.T) {
	eta, err := ETAMinutes(Pt(-74.006, 40.7128), Pt(-73.9851, 40.7589), DefaultSpeedKmh)
	require.NoError(t, err)
	assert.Equal(t, 5, eta)

	eta, err = ETAMinutes(Pt(-74.006, 40.7128), Pt(-73.9851, 40.7589), 30)
	require.NoError(t, err)
	assert.Equal(t, 11, eta)
}

func TestETAMinutesZeroDistance(t *testing.T) {
	for _, p := range []Point{Pt(0, 0), Pt(13.849, 46.38), Pt(-179.9, -89.9)} {
		eta, err := ETAMinutes(p, p, 12.5)
		require.NoError(t, err)
		assert.Equal(t, 0, eta)
	}
}

func TestETAMinutesInvalid(t *testing.T) {
	a, b := Pt(0, 0), Pt(1, 1)
	for _, speed := range []float64{0, -10, math.NaN(), math.Inf(1)} {
		_, err := ETAMinutes(a, b, speed)
		assert.ErrorIs(t, err, ErrInvalidArgument, "speed %v", speed)
	}
	_, err := ETAMinutes(Pt(math.NaN(), 0), b, 60)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = DistanceKm(a, Pt(0, math.Inf(-1)))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
