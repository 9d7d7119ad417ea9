package geo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A unit square around the origin, vertices in [lng, lat] order.
var squareCoords = [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

func TestPolygonContains(t *testing.T) {
	square, err := NewPolygon(squareCoords)
	require.NoError(t, err)

	inside, _ := NewLocation(0.5, 0.5)
	outside, _ := NewLocation(1.5, 0.5)
	farAway, _ := NewLocation(-45, 90)

	assert.True(t, square.Contains(inside))
	assert.False(t, square.Contains(outside))
	assert.False(t, square.Contains(farAway))
}

func TestPolygonContainsBoundary(t *testing.T) {
	square, err := NewPolygon(squareCoords)
	require.NoError(t, err)

	onEdge, _ := NewLocation(0.5, 0)
	onVertex, _ := NewLocation(0, 0)

	assert.True(t, square.Contains(onEdge))
	assert.True(t, square.Contains(onVertex))
}

func TestNewPolygonValidation(t *testing.T) {
	_, err := NewPolygon([][2]float64{{0, 0}, {1, 1}})
	assert.ErrorIs(t, err, ErrInvalidPolygon)

	_, err = NewPolygon([][2]float64{{0, 0}, {200, 0}, {0, 1}})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestZeroPolygonContainsNothing(t *testing.T) {
	var zone Polygon
	loc, _ := NewLocation(0, 0)

	assert.True(t, zone.IsZero())
	assert.False(t, zone.Contains(loc))
}

func TestPolygonJSONRoundTrip(t *testing.T) {
	square, err := NewPolygon(squareCoords)
	require.NoError(t, err)

	data, err := json.Marshal(square)
	require.NoError(t, err)

	var decoded Polygon
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, square.Coordinates(), decoded.Coordinates())

	inside, _ := NewLocation(0.5, 0.5)
	assert.True(t, decoded.Contains(inside))
}
