package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultBucketSizeDeg is the default grid cell size (~1.1 km at the equator).
const DefaultBucketSizeDeg = 0.01

// ErrInvalidBucket indicates a bucket identifier that does not parse.
var ErrInvalidBucket = errors.New("geo: invalid bucket identifier")

// Bucket is a coarse grid cell used for approximate proximity indexing.
// It is a lookup key only: candidates from bucket queries are a superset
// that still needs precise radius or polygon filtering.
type Bucket struct {
	Lat     float64
	Lng     float64
	SizeDeg float64
}

// ID returns the canonical bucket key, "%.5f:%.5f" of the cell origin.
func (b Bucket) ID() string {
	return fmt.Sprintf("%.5f:%.5f", b.Lat, b.Lng)
}

// WithNeighbors returns the 3x3 neighborhood: this cell plus its eight
// adjacent cells, always exactly nine entries.
func (b Bucket) WithNeighbors() []Bucket {
	out := make([]Bucket, 0, 9)
	for latOff := -1; latOff <= 1; latOff++ {
		for lngOff := -1; lngOff <= 1; lngOff++ {
			out = append(out, Bucket{
				Lat:     b.Lat + float64(latOff)*b.SizeDeg,
				Lng:     b.Lng + float64(lngOff)*b.SizeDeg,
				SizeDeg: b.SizeDeg,
			})
		}
	}
	return out
}

func (b Bucket) String() string {
	return fmt.Sprintf("Bucket[%s size=%.5f]", b.ID(), b.SizeDeg)
}

// Grid quantizes locations into buckets of a fixed cell size.
type Grid struct {
	sizeDeg float64
}

// NewGrid builds a Grid; non-positive sizes fall back to the default.
func NewGrid(sizeDeg float64) Grid {
	if sizeDeg <= 0 {
		sizeDeg = DefaultBucketSizeDeg
	}
	return Grid{sizeDeg: sizeDeg}
}

// SizeDeg returns the configured cell size in degrees.
func (g Grid) SizeDeg() float64 { return g.sizeDeg }

// BucketFor returns the cell containing the location.
func (g Grid) BucketFor(loc Location) Bucket {
	return Bucket{
		Lat:     math.Floor(loc.Lat/g.sizeDeg) * g.sizeDeg,
		Lng:     math.Floor(loc.Lng/g.sizeDeg) * g.sizeDeg,
		SizeDeg: g.sizeDeg,
	}
}

// Parse reads a bucket identifier in "lat:lng" form.
func (g Grid) Parse(id string) (Bucket, error) {
	parts := strings.Split(id, ":")
	if len(parts) != 2 {
		return Bucket{}, fmt.Errorf("%w: %q", ErrInvalidBucket, id)
	}
	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Bucket{}, fmt.Errorf("%w: %q", ErrInvalidBucket, id)
	}
	lng, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Bucket{}, fmt.Errorf("%w: %q", ErrInvalidBucket, id)
	}
	return Bucket{Lat: lat, Lng: lng, SizeDeg: g.sizeDeg}, nil
}

// NeighborIDs parses the identifier and returns the nine neighborhood keys.
func (g Grid) NeighborIDs(id string) ([]string, error) {
	b, err := g.Parse(id)
	if err != nil {
		return nil, err
	}
	neighbors := b.WithNeighbors()
	out := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		out = append(out, n.ID())
	}
	return out, nil
}
