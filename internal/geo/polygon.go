package geo

import (
	"encoding/json"
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrInvalidPolygon indicates a ring with fewer than three vertices or a
// vertex with out-of-range coordinates.
var ErrInvalidPolygon = errors.New("geo: invalid polygon")

// Polygon is a simple closed ring used as a mystery reveal zone.
// Vertex coordinates are [lng, lat] pairs, GeoJSON axis order.
type Polygon struct {
	ring orb.Ring
}

// NewPolygon builds a Polygon from exterior-ring vertices. The closing
// vertex is appended automatically; callers pass each vertex once.
func NewPolygon(coords [][2]float64) (Polygon, error) {
	if len(coords) < 3 {
		return Polygon{}, ErrInvalidPolygon
	}
	ring := make(orb.Ring, 0, len(coords)+1)
	for _, c := range coords {
		if err := ValidateCoordinates(c[1], c[0]); err != nil {
			return Polygon{}, err
		}
		ring = append(ring, orb.Point{c[0], c[1]})
	}
	ring = append(ring, ring[0])
	return Polygon{ring: ring}, nil
}

// Contains reports whether the location lies inside the polygon. Points
// exactly on the ring count as inside (orb's planar containment convention).
func (p Polygon) Contains(loc Location) bool {
	if p.IsZero() {
		return false
	}
	return planar.PolygonContains(orb.Polygon{p.ring}, orb.Point{loc.Lng, loc.Lat})
}

// Coordinates returns the exterior ring without the closing vertex.
func (p Polygon) Coordinates() [][2]float64 {
	if p.IsZero() {
		return nil
	}
	out := make([][2]float64, 0, len(p.ring)-1)
	for _, pt := range p.ring[:len(p.ring)-1] {
		out = append(out, [2]float64{pt[0], pt[1]})
	}
	return out
}

// IsZero reports whether the polygon is unset.
func (p Polygon) IsZero() bool { return len(p.ring) == 0 }

// MarshalJSON encodes the polygon as its vertex array.
func (p Polygon) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Coordinates())
}

// UnmarshalJSON decodes a vertex array produced by MarshalJSON.
func (p *Polygon) UnmarshalJSON(data []byte) error {
	var coords [][2]float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return err
	}
	if len(coords) == 0 {
		*p = Polygon{}
		return nil
	}
	parsed, err := NewPolygon(coords)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
