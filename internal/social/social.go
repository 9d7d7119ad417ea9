// Package social consumes the social service's internal graph-view API.
// The core treats a view as an immutable value fetched once per
// (viewer, owner) pair per evaluation batch.
package social

import (
	"context"

	"github.com/google/uuid"
)

// View is the read-only social-graph projection for a (viewer, subject)
// pair.
type View struct {
	Blocked                 bool `json:"blocked"`
	Friend                  bool `json:"friend"`
	Follower                bool `json:"follower"`
	CanSeePins              bool `json:"canSeePins"`
	CanReceiveNotifications bool `json:"canReceiveNotifications"`
}

// Restricted is the fail-closed fallback: no relationship, nothing visible,
// nothing deliverable. Note blocked=false — a fallback must restrict, not
// invent a block.
func Restricted() View { return View{} }

// Source provides social-graph views. Implementations wrapping remote calls
// must fail closed: on any failure they return Restricted() rather than an
// open view.
type Source interface {
	FetchGraphView(ctx context.Context, viewerID, subjectID uuid.UUID) (View, error)
}
