package pin

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brooks.social/pins/internal/geo"
	"brooks.social/pins/internal/social"
)

func newTestProximity(store *InMemory, socialSrc social.Source, at time.Time) *Proximity {
	e := newTestEvaluator(store, socialSrc, &fakeLists{}, at)
	p := NewProximity(store, e, geo.NewGrid(geo.DefaultBucketSizeDeg))
	p.now = func() time.Time { return at }
	return p
}

func savePin(t *testing.T, store *InMemory, p Pin) Pin {
	t.Helper()
	grid := geo.NewGrid(geo.DefaultBucketSizeDeg)
	p.Bucket = grid.BucketFor(p.Location).ID()
	require.NoError(t, store.Save(context.Background(), p))
	return p
}

func TestParseBBox(t *testing.T) {
	box, err := ParseBBox("13.0,52.0,14.0,53.0")
	require.NoError(t, err)
	assert.Equal(t, BBox{MinLng: 13, MinLat: 52, MaxLng: 14, MaxLat: 53}, box)

	for _, s := range []string{"", "1,2,3", "1,2,3,4,5", "a,2,3,4", "13,52,12,53", "13,-95,14,53"} {
		_, err := ParseBBox(s)
		assert.ErrorIs(t, err, ErrInvalidInput, "bbox=%q", s)
	}
}

func TestFindPinsInBoundingBox(t *testing.T) {
	now := time.Now()
	store := NewInMemory()
	owner, viewer := uuid.New(), uuid.New()
	prox := newTestProximity(store, &fakeSocial{view: openView()}, now)

	inside := savePin(t, store, testPin(owner, now))
	outside := testPin(owner, now)
	outside.Location, _ = geo.NewLocation(40.0, -74.0)
	savePin(t, store, outside)

	pins, err := prox.FindPinsInBoundingBox(context.Background(), viewer, BBox{
		MinLng: 13.0, MinLat: 52.0, MaxLng: 14.0, MaxLat: 53.0,
	})
	require.NoError(t, err)
	require.Len(t, pins, 1)
	assert.Equal(t, inside.ID, pins[0].ID)
	assert.Equal(t, PrecisionExact, pins[0].Precision)
	assert.Equal(t, inside.Location, pins[0].Location)
}

func TestFindPinsInBoundingBoxBlursCoordinates(t *testing.T) {
	now := time.Now()
	store := NewInMemory()
	owner, viewer := uuid.New(), uuid.New()
	prox := newTestProximity(store, &fakeSocial{view: openView()}, now)

	p := testPin(owner, now)
	p.MapPrecision = PrecisionBlurred
	p.Location, _ = geo.NewLocation(52.523712, 13.409218)
	savePin(t, store, p)

	pins, err := prox.FindPinsInBoundingBox(context.Background(), viewer, BBox{
		MinLng: 13.0, MinLat: 52.0, MaxLng: 14.0, MaxLat: 53.0,
	})
	require.NoError(t, err)
	require.Len(t, pins, 1)
	assert.Equal(t, 52.52, pins[0].Location.Lat)
	assert.Equal(t, 13.41, pins[0].Location.Lng)
	assert.Equal(t, PrecisionBlurred, pins[0].Precision)
}

func TestFindPinsInBoundingBoxFiltersDenied(t *testing.T) {
	now := time.Now()
	store := NewInMemory()
	owner, viewer := uuid.New(), uuid.New()
	view := openView()
	view.Friend = false
	prox := newTestProximity(store, &fakeSocial{view: view}, now)

	savePin(t, store, testPin(owner, now)) // FRIENDS audience, viewer is not one

	pins, err := prox.FindPinsInBoundingBox(context.Background(), viewer, BBox{
		MinLng: 13.0, MinLat: 52.0, MaxLng: 14.0, MaxLat: 53.0,
	})
	require.NoError(t, err)
	assert.Empty(t, pins)
}

func TestFindCandidatesInBucket(t *testing.T) {
	now := time.Now()
	store := NewInMemory()
	owner, viewer := uuid.New(), uuid.New()
	prox := newTestProximity(store, &fakeSocial{view: openView()}, now)

	radius := 75
	p := testPin(owner, now)
	p.RevealType = RevealByReach
	p.RevealRadiusM = &radius
	p = savePin(t, store, p)

	// Pin in a neighboring cell is part of the 3x3 superset.
	neighbor := testPin(owner, now)
	neighbor.Location, _ = geo.NewLocation(p.Location.Lat+geo.DefaultBucketSizeDeg, p.Location.Lng)
	neighbor = savePin(t, store, neighbor)

	// Distant pin outside the neighborhood.
	far := testPin(owner, now)
	far.Location, _ = geo.NewLocation(p.Location.Lat+1, p.Location.Lng)
	savePin(t, store, far)

	candidates, err := prox.FindCandidatesInBucket(context.Background(), viewer, p.Bucket)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	byID := make(map[uuid.UUID]Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}
	require.Contains(t, byID, p.ID)
	require.Contains(t, byID, neighbor.ID)
	assert.Equal(t, RevealByReach, byID[p.ID].RevealType)
	require.NotNil(t, byID[p.ID].RevealRadiusM)
	assert.Equal(t, radius, *byID[p.ID].RevealRadiusM)
}

func TestFindCandidatesInBucketRejectsMalformedID(t *testing.T) {
	now := time.Now()
	store := NewInMemory()
	prox := newTestProximity(store, &fakeSocial{view: openView()}, now)

	_, err := prox.FindCandidatesInBucket(context.Background(), uuid.New(), "not-a-bucket")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFindCandidatesRequiresNotificationPermission(t *testing.T) {
	now := time.Now()
	store := NewInMemory()
	owner, viewer := uuid.New(), uuid.New()
	view := openView()
	view.CanReceiveNotifications = false
	prox := newTestProximity(store, &fakeSocial{view: view}, now)

	p := savePin(t, store, testPin(owner, now))

	candidates, err := prox.FindCandidatesInBucket(context.Background(), viewer, p.Bucket)
	require.NoError(t, err)
	assert.Empty(t, candidates)

	// The same pin still shows on the map: listing is not a notification.
	pins, err := prox.FindPinsInBoundingBox(context.Background(), viewer, BBox{
		MinLng: 13.0, MinLat: 52.0, MaxLng: 14.0, MaxLat: 53.0,
	})
	require.NoError(t, err)
	assert.Len(t, pins, 1)
}
