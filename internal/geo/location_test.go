package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceZeroAndSymmetry(t *testing.T) {
	a, err := NewLocation(52.5200, 13.4050)
	require.NoError(t, err)
	b, err := NewLocation(48.8566, 2.3522)
	require.NoError(t, err)

	assert.Equal(t, 0.0, a.DistanceTo(a).Meters())
	assert.Equal(t, a.DistanceTo(b).Meters(), b.DistanceTo(a).Meters())
}

func TestDistanceKnownValue(t *testing.T) {
	// Berlin to Paris is about 878 km great-circle.
	berlin, _ := NewLocation(52.5200, 13.4050)
	paris, _ := NewLocation(48.8566, 2.3522)

	d := berlin.DistanceTo(paris)
	assert.InDelta(t, 878000, d.Meters(), 2000)
}

func TestDistanceShortRange(t *testing.T) {
	// One degree of latitude is ~111.19 km with the 6371 km sphere.
	a, _ := NewLocation(0, 0)
	b, _ := NewLocation(1, 0)

	assert.InDelta(t, 111195, a.DistanceTo(b).Meters(), 10)
}

func TestValidateCoordinates(t *testing.T) {
	require.NoError(t, ValidateCoordinates(90, 180))
	require.NoError(t, ValidateCoordinates(-90, -180))

	for _, tc := range [][2]float64{{90.0001, 0}, {-91, 0}, {0, 180.5}, {0, -200}} {
		err := ValidateCoordinates(tc[0], tc[1])
		assert.ErrorIs(t, err, ErrInvalidCoordinates, "lat=%v lng=%v", tc[0], tc[1])
	}

	_, err := NewLocation(100, 0)
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestBlurRoundsToGrid(t *testing.T) {
	loc, _ := NewLocation(52.520008, 13.404954)

	blurred := loc.Blur(2)
	assert.Equal(t, 52.52, blurred.Lat)
	assert.Equal(t, 13.40, blurred.Lng)
}

func TestBlurKeepsAltitude(t *testing.T) {
	loc, _ := NewLocationAlt(52.526, 13.409, 34.5)

	blurred := loc.Blur(2)
	require.NotNil(t, blurred.AltitudeM)
	assert.Equal(t, 34.5, *blurred.AltitudeM)
	assert.Equal(t, 52.53, blurred.Lat)
}

func TestDistanceWithinInclusive(t *testing.T) {
	assert.True(t, Meters(100).Within(Meters(100)))
	assert.True(t, Meters(99.9).Within(Meters(100)))
	assert.False(t, Meters(100.0001).Within(Meters(100)))
	assert.Equal(t, 1500.0, Kilometers(1.5).Meters())
}
