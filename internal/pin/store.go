package pin

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists pins. Time-window filters are inclusive of availableFrom
// and exclusive of expiresAt.
type Store interface {
	Save(ctx context.Context, p Pin) error
	FindByID(ctx context.Context, id uuid.UUID) (Pin, error)
	FindInBoundingBox(ctx context.Context, minLng, minLat, maxLng, maxLat float64, now time.Time) ([]Pin, error)
	FindByBuckets(ctx context.Context, buckets []string, now time.Time) ([]Pin, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteExpiredBefore removes up to limit pins whose expiresAt is before
	// cutoff and returns how many were removed.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// ACLStore persists pin allow-list rows.
type ACLStore interface {
	SaveEntries(ctx context.Context, entries []ACLEntry) error
	FindByPinID(ctx context.Context, pinID uuid.UUID) ([]ACLEntry, error)
}

// UnlockStore records reveal unlocks. RecordUnlock is an idempotent upsert
// keyed by (pinID, userID); concurrent retries for the same pair are safe.
type UnlockStore interface {
	RecordUnlock(ctx context.Context, pinID, userID uuid.UUID, at time.Time) error
}

// InMemory implements Store, ACLStore and UnlockStore with in-process
// concurrency safety. Used by tests and local runs; production deployments
// use the Postgres stores.
type InMemory struct {
	mu      sync.RWMutex
	pins    map[uuid.UUID]Pin
	acls    map[uuid.UUID][]ACLEntry
	unlocks map[unlockKey]time.Time
}

type unlockKey struct {
	pinID  uuid.UUID
	userID uuid.UUID
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		pins:    make(map[uuid.UUID]Pin),
		acls:    make(map[uuid.UUID][]ACLEntry),
		unlocks: make(map[unlockKey]time.Time),
	}
}

var (
	_ Store       = (*InMemory)(nil)
	_ ACLStore    = (*InMemory)(nil)
	_ UnlockStore = (*InMemory)(nil)
)

func (s *InMemory) Save(ctx context.Context, p Pin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pins[p.ID] = p
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, id uuid.UUID) (Pin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pins[id]
	if !ok {
		return Pin{}, ErrNotFound
	}
	return p, nil
}

func (s *InMemory) FindInBoundingBox(ctx context.Context, minLng, minLat, maxLng, maxLat float64, now time.Time) ([]Pin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Pin
	for _, p := range s.pins {
		if !timeEligible(p, now) {
			continue
		}
		if p.Location.Lng < minLng || p.Location.Lng > maxLng {
			continue
		}
		if p.Location.Lat < minLat || p.Location.Lat > maxLat {
			continue
		}
		out = append(out, p)
	}
	sortByCreated(out)
	return out, nil
}

func (s *InMemory) FindByBuckets(ctx context.Context, buckets []string, now time.Time) ([]Pin, error) {
	wanted := make(map[string]struct{}, len(buckets))
	for _, b := range buckets {
		wanted[b] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Pin
	for _, p := range s.pins {
		if !timeEligible(p, now) {
			continue
		}
		if _, ok := wanted[p.Bucket]; !ok {
			continue
		}
		out = append(out, p)
	}
	sortByCreated(out)
	return out, nil
}

func (s *InMemory) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pins[id]; !ok {
		return ErrNotFound
	}
	delete(s.pins, id)
	delete(s.acls, id)
	return nil
}

func (s *InMemory) DeleteExpiredBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, p := range s.pins {
		if deleted >= limit {
			break
		}
		if p.ExpiresAt.Before(cutoff) {
			delete(s.pins, id)
			delete(s.acls, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *InMemory) SaveEntries(ctx context.Context, entries []ACLEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.acls[e.PinID] = append(s.acls[e.PinID], e)
	}
	return nil
}

func (s *InMemory) FindByPinID(ctx context.Context, pinID uuid.UUID) ([]ACLEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.acls[pinID]
	out := make([]ACLEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *InMemory) RecordUnlock(ctx context.Context, pinID, userID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlocks[unlockKey{pinID: pinID, userID: userID}] = at
	return nil
}

// UnlockedAt reports the recorded unlock time for a (pin, user) pair.
// Test helper.
func (s *InMemory) UnlockedAt(pinID, userID uuid.UUID) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.unlocks[unlockKey{pinID: pinID, userID: userID}]
	return at, ok
}

func timeEligible(p Pin, now time.Time) bool {
	return !now.Before(p.AvailableFrom) && now.Before(p.ExpiresAt)
}

func sortByCreated(pins []Pin) {
	sort.Slice(pins, func(i, j int) bool {
		if pins[i].CreatedAt.Equal(pins[j].CreatedAt) {
			return pins[i].ID.String() < pins[j].ID.String()
		}
		return pins[i].CreatedAt.Before(pins[j].CreatedAt)
	})
}
