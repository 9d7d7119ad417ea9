package social

import (
	"context"
	"time"

	"github.com/bluele/gcache"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"brooks.social/pins/internal/obs"
	"brooks.social/pins/internal/remote"
)

// Resilient decorates a Source with the collaborator-call contract:
// timeout + retry + circuit breaker via remote.Caller, a short TTL cache in
// front of the remote call, and a fail-closed fallback. It never returns an
// error: failure yields Restricted().
type Resilient struct {
	inner  Source
	caller *remote.Caller
	cache  gcache.Cache
	ttl    time.Duration
	log    *log.Entry
}

// NewResilient wraps inner. cacheSize bounds the view cache; ttl is how
// long a fetched view stays fresh.
func NewResilient(inner Source, caller *remote.Caller, cacheSize int, ttl time.Duration) *Resilient {
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Resilient{
		inner:  inner,
		caller: caller,
		cache:  gcache.New(cacheSize).LRU().Build(),
		ttl:    ttl,
		log:    log.WithField("component", "social"),
	}
}

var _ Source = (*Resilient)(nil)

func (r *Resilient) FetchGraphView(ctx context.Context, viewerID, subjectID uuid.UUID) (View, error) {
	key := viewerID.String() + "|" + subjectID.String()
	if cached, err := r.cache.Get(key); err == nil {
		if view, ok := cached.(View); ok {
			return view, nil
		}
	}

	var view View
	err := r.caller.Do(ctx, func(ctx context.Context) error {
		fetched, err := r.inner.FetchGraphView(ctx, viewerID, subjectID)
		if err != nil {
			return err
		}
		view = fetched
		return nil
	})
	if err != nil {
		r.log.WithError(err).WithFields(log.Fields{
			"viewerId":  viewerID,
			"subjectId": subjectID,
		}).Warn("social graph unavailable, falling back to restricted view")
		obs.CollaboratorFallback("social")
		return Restricted(), nil
	}

	_ = r.cache.SetWithExpire(key, view, r.ttl)
	return view, nil
}
