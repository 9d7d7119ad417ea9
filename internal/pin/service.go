package pin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"brooks.social/pins/internal/geo"
	"brooks.social/pins/internal/obs"
)

const (
	maxTextLen               = 500
	maxLinkLen               = 2048
	defaultNotifyCooldownSec = 3600
)

// Service is the operation surface the request-handling layer consumes.
type Service struct {
	pins      Store
	acls      ACLStore
	unlocks   UnlockStore
	evaluator *Evaluator
	proximity *Proximity
	grid      geo.Grid
	now       func() time.Time
	log       *log.Entry
}

// NewService wires the pin operations together.
func NewService(pins Store, acls ACLStore, unlocks UnlockStore, evaluator *Evaluator, proximity *Proximity, grid geo.Grid) *Service {
	return &Service{
		pins:      pins,
		acls:      acls,
		unlocks:   unlocks,
		evaluator: evaluator,
		proximity: proximity,
		grid:      grid,
		now:       time.Now,
		log:       log.WithField("component", "pins"),
	}
}

// Create validates the request, derives the spatial bucket and persists the
// pin with its ACL rows. Pins are immutable after this point.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req CreateRequest) (uuid.UUID, error) {
	now := s.now()

	if err := validateCreate(req, now); err != nil {
		return uuid.Nil, err
	}

	loc, err := geo.NewLocation(req.Location.Lat, req.Location.Lng)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	loc.AltitudeM = req.Location.AltitudeM

	var zone geo.Polygon
	if len(req.MysteryPolygon) > 0 {
		zone, err = geo.NewPolygon(req.MysteryPolygon)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	availableFrom := now
	if req.AvailableFrom != nil {
		availableFrom = *req.AvailableFrom
	}
	if availableFrom.After(req.ExpiresAt) {
		return uuid.Nil, fmt.Errorf("%w: availableFrom is after expiresAt", ErrInvalidInput)
	}

	precision := req.MapPrecision
	if precision == "" {
		precision = PrecisionExact
	}
	cooldown := defaultNotifyCooldownSec
	if req.NotifyCooldownSeconds != nil {
		cooldown = *req.NotifyCooldownSeconds
	}

	p := Pin{
		ID:                    uuid.New(),
		OwnerID:               ownerID,
		Text:                  req.Text,
		LinkURL:               req.LinkURL,
		Audience:              req.Audience,
		AvailableFrom:         availableFrom,
		ExpiresAt:             req.ExpiresAt,
		RevealType:            req.RevealType,
		RevealRadiusM:         req.RevealRadiusM,
		MapPrecision:          precision,
		NotifyRadiusM:         req.NotifyRadiusM,
		NotifyCooldownSeconds: cooldown,
		NotifyRepeatable:      req.NotifyRepeatable,
		FutureSelf:            req.FutureSelf,
		Location:              loc,
		MysteryZone:           zone,
		Bucket:                s.grid.BucketFor(loc).ID(),
		CreatedAt:             now,
	}

	if err := s.pins.Save(ctx, p); err != nil {
		return uuid.Nil, err
	}
	if err := s.acls.SaveEntries(ctx, aclEntries(p.ID, req.ACL)); err != nil {
		return uuid.Nil, err
	}

	s.log.WithFields(log.Fields{"pinId": p.ID, "ownerId": ownerID, "bucket": p.Bucket}).Info("pin created")
	return p.ID, nil
}

// MapPins lists visible pins inside the viewport.
func (s *Service) MapPins(ctx context.Context, viewerID uuid.UUID, bbox string) ([]MapPin, error) {
	box, err := ParseBBox(bbox)
	if err != nil {
		return nil, err
	}
	return s.proximity.FindPinsInBoundingBox(ctx, viewerID, box)
}

// Candidates lists geofence candidates around the bucket.
func (s *Service) Candidates(ctx context.Context, viewerID uuid.UUID, bucketID string) ([]Candidate, error) {
	return s.proximity.FindCandidatesInBucket(ctx, viewerID, bucketID)
}

// CheckReveal evaluates the pin with the viewer's precise location and, when
// allowed and in range, records the unlock and returns the content. The
// unlock upsert is idempotent under concurrent retries.
func (s *Service) CheckReveal(ctx context.Context, pinID, viewerID uuid.UUID, loc *geo.Location) (RevealResult, error) {
	p, err := s.pins.FindByID(ctx, pinID)
	if err != nil {
		return RevealResult{}, err
	}

	res, err := s.evaluator.Evaluate(ctx, p, viewerID, false, loc)
	if err != nil {
		return RevealResult{}, err
	}
	if !res.Allowed() {
		return RevealResult{Revealed: false, Reason: res.Decision.Reason}, nil
	}
	if !res.InRevealRadius {
		return RevealResult{Revealed: false, Reason: ReasonDistance}, nil
	}

	if err := s.unlocks.RecordUnlock(ctx, p.ID, viewerID, s.now()); err != nil {
		return RevealResult{}, err
	}
	obs.RevealUnlock()

	return RevealResult{
		Revealed: true,
		Reason:   ReasonOK,
		Content:  &Content{ID: p.ID, Text: p.Text, LinkURL: p.LinkURL},
	}, nil
}

// Delete removes a pin. Owner-only.
func (s *Service) Delete(ctx context.Context, pinID, viewerID uuid.UUID) error {
	p, err := s.pins.FindByID(ctx, pinID)
	if err != nil {
		return err
	}
	if p.OwnerID != viewerID {
		return ErrForbidden
	}
	return s.pins.Delete(ctx, pinID)
}

// CleanupExpired deletes pins whose expiry plus the retention grace period
// has passed, in batches to keep transactions short. Returns the total
// removed.
func (s *Service) CleanupExpired(ctx context.Context, retention time.Duration, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}
	cutoff := s.now().Add(-retention)
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		deleted, err := s.pins.DeleteExpiredBefore(ctx, cutoff, batchSize)
		if err != nil {
			return total, err
		}
		total += deleted
		if deleted < batchSize {
			break
		}
	}
	if total > 0 {
		s.log.WithFields(log.Fields{"deleted": total, "cutoff": cutoff}).Info("expired pins cleaned up")
	}
	return total, nil
}

func validateCreate(req CreateRequest, now time.Time) error {
	if req.Text == "" || len(req.Text) > maxTextLen {
		return fmt.Errorf("%w: text must be 1-%d characters", ErrInvalidInput, maxTextLen)
	}
	if len(req.LinkURL) > maxLinkLen {
		return fmt.Errorf("%w: link url too long", ErrInvalidInput)
	}
	if !req.Audience.Valid() {
		return fmt.Errorf("%w: unknown audience type %q", ErrInvalidInput, req.Audience)
	}
	if !req.RevealType.Valid() {
		return fmt.Errorf("%w: unknown reveal type %q", ErrInvalidInput, req.RevealType)
	}
	if req.MapPrecision != "" && !req.MapPrecision.Valid() {
		return fmt.Errorf("%w: unknown map precision %q", ErrInvalidInput, req.MapPrecision)
	}
	if req.ExpiresAt.IsZero() || !req.ExpiresAt.After(now) {
		return fmt.Errorf("%w: expiresAt must be in the future", ErrInvalidInput)
	}

	hasRadius := req.RevealRadiusM != nil
	hasPolygon := len(req.MysteryPolygon) > 0
	if hasRadius && *req.RevealRadiusM <= 0 {
		return fmt.Errorf("%w: reveal radius must be positive", ErrInvalidInput)
	}
	if req.RevealType == RevealByReach {
		// Exactly one reveal geometry: a reach pin with neither could never
		// be revealed, with both the semantics are ambiguous.
		if hasRadius == hasPolygon {
			return fmt.Errorf("%w: REACH_TO_REVEAL requires a reveal radius or a mystery polygon, not both", ErrInvalidInput)
		}
	} else if hasRadius || hasPolygon {
		return fmt.Errorf("%w: reveal geometry requires REACH_TO_REVEAL", ErrInvalidInput)
	}

	if req.FutureSelf {
		if req.Audience != AudiencePrivate {
			return fmt.Errorf("%w: future-self pins must be PRIVATE", ErrInvalidInput)
		}
		if req.RevealType != RevealByReach {
			return fmt.Errorf("%w: future-self pins require REACH_TO_REVEAL", ErrInvalidInput)
		}
	}
	return nil
}

func aclEntries(pinID uuid.UUID, acl *ACLRequest) []ACLEntry {
	if acl == nil {
		return nil
	}
	entries := make([]ACLEntry, 0, len(acl.ListIDs)+len(acl.UserIDs))
	for _, id := range acl.ListIDs {
		entries = append(entries, ACLEntry{PinID: pinID, TargetType: TargetList, TargetID: id})
	}
	for _, id := range acl.UserIDs {
		entries = append(entries, ACLEntry{PinID: pinID, TargetType: TargetUser, TargetID: id})
	}
	return entries
}
