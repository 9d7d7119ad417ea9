package pin

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"brooks.social/pins/internal/geo"
)

// blurDecimalPlaces is the BLURRED map precision grid (~1.1 km).
const blurDecimalPlaces = 2

// BBox is a map viewport, minLng/minLat/maxLng/maxLat.
type BBox struct {
	MinLng float64
	MinLat float64
	MaxLng float64
	MaxLat float64
}

// ParseBBox reads the wire form "minLng,minLat,maxLng,maxLat". Malformed
// input is a client error.
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, fmt.Errorf("%w: bbox must be minLng,minLat,maxLng,maxLat", ErrInvalidInput)
	}
	vals := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return BBox{}, fmt.Errorf("%w: bbox coordinate %q", ErrInvalidInput, part)
		}
		vals[i] = v
	}
	box := BBox{MinLng: vals[0], MinLat: vals[1], MaxLng: vals[2], MaxLat: vals[3]}
	if err := geo.ValidateCoordinates(box.MinLat, box.MinLng); err != nil {
		return BBox{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := geo.ValidateCoordinates(box.MaxLat, box.MaxLng); err != nil {
		return BBox{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if box.MinLng > box.MaxLng || box.MinLat > box.MaxLat {
		return BBox{}, fmt.Errorf("%w: bbox min exceeds max", ErrInvalidInput)
	}
	return box, nil
}

// Proximity serves pin discovery: viewport listings and geofence candidate
// selection. Candidates from bucket queries are a superset; the precise
// radius/polygon gate happens later on the reveal path.
type Proximity struct {
	pins      Store
	evaluator *Evaluator
	grid      geo.Grid
	now       func() time.Time
}

// NewProximity builds a Proximity service.
func NewProximity(pins Store, evaluator *Evaluator, grid geo.Grid) *Proximity {
	return &Proximity{pins: pins, evaluator: evaluator, grid: grid, now: time.Now}
}

// FindPinsInBoundingBox returns map pins visible to the viewer inside the
// box, with BLURRED pins rounded onto the coarse grid.
func (p *Proximity) FindPinsInBoundingBox(ctx context.Context, viewerID uuid.UUID, box BBox) ([]MapPin, error) {
	now := p.now()
	pins, err := p.pins.FindInBoundingBox(ctx, box.MinLng, box.MinLat, box.MaxLng, box.MaxLat, now)
	if err != nil {
		return nil, err
	}

	results, err := p.evaluator.EvaluateBatch(ctx, pins, viewerID, false)
	if err != nil {
		return nil, err
	}

	out := make([]MapPin, 0, len(pins))
	for _, candidate := range pins {
		res, ok := results[candidate.ID]
		if !ok || !res.Allowed() {
			continue
		}
		loc := candidate.Location
		if candidate.MapPrecision == PrecisionBlurred {
			loc = loc.Blur(blurDecimalPlaces)
		}
		out = append(out, MapPin{
			ID:        candidate.ID,
			Location:  loc,
			Precision: candidate.MapPrecision,
		})
	}
	return out, nil
}

// FindCandidatesInBucket returns geofence candidates in the bucket's 3x3
// neighborhood. Notification rules apply (forNotification=true): viewers
// who cannot receive the owner's notifications get no candidates. Content
// is withheld by construction.
func (p *Proximity) FindCandidatesInBucket(ctx context.Context, viewerID uuid.UUID, bucketID string) ([]Candidate, error) {
	buckets, err := p.grid.NeighborIDs(bucketID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := p.now()
	pins, err := p.pins.FindByBuckets(ctx, buckets, now)
	if err != nil {
		return nil, err
	}

	results, err := p.evaluator.EvaluateBatch(ctx, pins, viewerID, true)
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(pins))
	for _, candidate := range pins {
		res, ok := results[candidate.ID]
		if !ok || !res.Allowed() {
			continue
		}
		c := Candidate{
			ID:            candidate.ID,
			Center:        candidate.Location,
			RevealType:    candidate.RevealType,
			RevealRadiusM: candidate.RevealRadiusM,
		}
		if !candidate.MysteryZone.IsZero() {
			zone := candidate.MysteryZone
			c.MysteryZone = &zone
		}
		out = append(out, c)
	}
	return out, nil
}
