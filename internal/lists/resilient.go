package lists

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"brooks.social/pins/internal/obs"
	"brooks.social/pins/internal/remote"
)

// Resilient decorates a Source with timeout + retry + breaker, a TTL cache
// of membership answers, and the fail-closed fallback (false). It never
// returns an error.
type Resilient struct {
	inner  Source
	caller *remote.Caller
	cache  gcache.Cache
	ttl    time.Duration
	log    *log.Entry
}

// NewResilient wraps inner.
func NewResilient(inner Source, caller *remote.Caller, cacheSize int, ttl time.Duration) *Resilient {
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Resilient{
		inner:  inner,
		caller: caller,
		cache:  gcache.New(cacheSize).LRU().Build(),
		ttl:    ttl,
		log:    log.WithField("component", "lists"),
	}
}

var _ Source = (*Resilient)(nil)

func (r *Resilient) InAnyList(ctx context.Context, userID uuid.UUID, listIDs []uuid.UUID) (bool, error) {
	if len(listIDs) == 0 {
		return false, nil
	}
	key := cacheKey(userID, listIDs)
	if cached, err := r.cache.Get(key); err == nil {
		if inAny, ok := cached.(bool); ok {
			return inAny, nil
		}
	}

	var inAny bool
	err := r.caller.Do(ctx, func(ctx context.Context) error {
		answer, err := r.inner.InAnyList(ctx, userID, listIDs)
		if err != nil {
			return err
		}
		inAny = answer
		return nil
	})
	if err != nil {
		r.log.WithError(err).WithField("userId", userID).Warn("lists service unavailable, denying membership")
		obs.CollaboratorFallback("lists")
		return false, nil
	}

	_ = r.cache.SetWithExpire(key, inAny, r.ttl)
	return inAny, nil
}

func cacheKey(userID uuid.UUID, listIDs []uuid.UUID) string {
	ids := make([]string, 0, len(listIDs))
	for _, id := range listIDs {
		ids = append(ids, id.String())
	}
	sort.Strings(ids)
	return userID.String() + "|" + strings.Join(ids, ",")
}
