// Package lists consumes the lists service's internal membership API.
package lists

import (
	"context"

	"github.com/google/uuid"
)

// Source answers list-membership questions. Implementations wrapping remote
// calls must fail closed: on any failure InAnyList reports false.
type Source interface {
	// InAnyList reports whether the user is a member of at least one of the
	// given lists. An empty listIDs slice is always false.
	InAnyList(ctx context.Context, userID uuid.UUID, listIDs []uuid.UUID) (bool, error)
}
