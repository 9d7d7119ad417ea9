package social

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brooks.social/pins/internal/remote"
)

type fakeSource struct {
	view  View
	err   error
	calls int
}

func (f *fakeSource) FetchGraphView(ctx context.Context, viewerID, subjectID uuid.UUID) (View, error) {
	f.calls++
	if f.err != nil {
		return View{}, f.err
	}
	return f.view, nil
}

func testCaller() *remote.Caller {
	return remote.NewCaller(remote.Config{
		Name:       "social-test",
		Timeout:    100 * time.Millisecond,
		MaxRetries: 0,
		BaseDelay:  time.Millisecond,
		OpenAfter:  100,
		Cooldown:   time.Minute,
	})
}

func TestResilientPassesThroughView(t *testing.T) {
	want := View{Friend: true, CanSeePins: true, CanReceiveNotifications: true}
	src := &fakeSource{view: want}
	r := NewResilient(src, testCaller(), 16, time.Minute)

	got, err := r.FetchGraphView(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResilientCachesPerPair(t *testing.T) {
	src := &fakeSource{view: View{Friend: true}}
	r := NewResilient(src, testCaller(), 16, time.Minute)
	viewer, subject := uuid.New(), uuid.New()

	_, err := r.FetchGraphView(context.Background(), viewer, subject)
	require.NoError(t, err)
	_, err = r.FetchGraphView(context.Background(), viewer, subject)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	// A different pair misses the cache.
	_, err = r.FetchGraphView(context.Background(), viewer, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestResilientFailsClosed(t *testing.T) {
	src := &fakeSource{err: errors.New("social service down")}
	r := NewResilient(src, testCaller(), 16, time.Minute)

	got, err := r.FetchGraphView(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err, "failures degrade, they do not propagate")
	assert.Equal(t, Restricted(), got)
}

func TestResilientDoesNotCacheFailures(t *testing.T) {
	src := &fakeSource{err: errors.New("down")}
	r := NewResilient(src, testCaller(), 16, time.Minute)
	viewer, subject := uuid.New(), uuid.New()

	_, err := r.FetchGraphView(context.Background(), viewer, subject)
	require.NoError(t, err)

	src.err = nil
	src.view = View{Friend: true}
	got, err := r.FetchGraphView(context.Background(), viewer, subject)
	require.NoError(t, err)
	assert.True(t, got.Friend, "recovered collaborator must be consulted again")
}

func TestRestrictedViewDeniesEverything(t *testing.T) {
	v := Restricted()
	assert.False(t, v.Blocked)
	assert.False(t, v.Friend)
	assert.False(t, v.Follower)
	assert.False(t, v.CanSeePins)
	assert.False(t, v.CanReceiveNotifications)
}
