package pin

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"brooks.social/pins/internal/geo"
	"brooks.social/pins/internal/lists"
	"brooks.social/pins/internal/obs"
	"brooks.social/pins/internal/social"
)

// Evaluator decides whether a viewer may access a pin. It gathers the
// social-graph view, ACL membership and proximity state, then feeds the
// policy chain. Collaborator failures degrade to the most restrictive
// answer; they never fail a request open.
type Evaluator struct {
	acls   ACLStore
	social social.Source
	lists  lists.Source
	now    func() time.Time
	log    *log.Entry
}

// NewEvaluator builds an Evaluator over the given collaborators.
func NewEvaluator(acls ACLStore, socialSrc social.Source, listsSrc lists.Source) *Evaluator {
	return &Evaluator{
		acls:   acls,
		social: socialSrc,
		lists:  listsSrc,
		now:    time.Now,
		log:    log.WithField("component", "access"),
	}
}

// Result is one pin's access evaluation.
type Result struct {
	Decision       Decision
	InRevealRadius bool
	GraphView      social.View
}

// Allowed reports the overall verdict.
func (r Result) Allowed() bool { return r.Decision.Allowed }

// Evaluate runs the full decision for one pin. viewerLoc is required for
// REACH_TO_REVEAL proximity checks and may be nil otherwise.
func (e *Evaluator) Evaluate(ctx context.Context, p Pin, viewerID uuid.UUID, forNotification bool, viewerLoc *geo.Location) (Result, error) {
	view := e.fetchGraphView(ctx, viewerID, p.OwnerID)
	return e.evaluateWithView(ctx, p, viewerID, view, forNotification, e.inRevealRadius(p, viewerLoc))
}

// EvaluateBatch evaluates many pins for one viewer. The social graph is
// consulted at most once per distinct pin owner: the memoization map is
// scoped to this call and discarded with it. Batch mode carries no viewer
// location, so the proximity gate is skipped entirely; batch results are a
// superset and the precise radius/polygon check happens on the reveal path.
//
// A cancelled context aborts the batch with an error and no partial map.
func (e *Evaluator) EvaluateBatch(ctx context.Context, pins []Pin, viewerID uuid.UUID, forNotification bool) (map[uuid.UUID]Result, error) {
	views := make(map[uuid.UUID]social.View)
	results := make(map[uuid.UUID]Result, len(pins))

	for _, p := range pins {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		view, ok := views[p.OwnerID]
		if !ok {
			view = e.fetchGraphView(ctx, viewerID, p.OwnerID)
			views[p.OwnerID] = view
		}
		res, err := e.evaluateWithView(ctx, p, viewerID, view, forNotification, true)
		if err != nil {
			return nil, err
		}
		results[p.ID] = res
	}
	return results, nil
}

// fetchGraphView applies the fail-closed contract even if the source
// implementation forgot to: an error becomes the restricted view.
func (e *Evaluator) fetchGraphView(ctx context.Context, viewerID, subjectID uuid.UUID) social.View {
	view, err := e.social.FetchGraphView(ctx, viewerID, subjectID)
	if err != nil {
		e.log.WithError(err).WithFields(log.Fields{
			"viewerId":  viewerID,
			"subjectId": subjectID,
		}).Warn("graph view fetch failed, using restricted view")
		obs.CollaboratorFallback("social")
		return social.Restricted()
	}
	return view
}

func (e *Evaluator) evaluateWithView(ctx context.Context, p Pin, viewerID uuid.UUID, view social.View, forNotification, inRevealRadius bool) (Result, error) {
	now := e.now()

	isOwner := viewerID == p.OwnerID
	timeEligible := !now.Before(p.AvailableFrom) && now.Before(p.ExpiresAt)
	allowedByAudience := audienceAllows(p.Audience, isOwner, view)

	entries, err := e.acls.FindByPinID(ctx, p.ID)
	if err != nil {
		return Result{}, err
	}
	hasACL, aclAllowed := e.checkACL(ctx, entries, viewerID)

	canSeePins := isOwner || view.CanSeePins
	canReceiveNotifications := isOwner || view.CanReceiveNotifications

	futureSelfMode := p.FutureSelf && isOwner

	decision := EvaluatePolicy(PolicyInput{
		TimeEligible:            timeEligible,
		Blocked:                 view.Blocked,
		AllowedByAudience:       allowedByAudience,
		HasACL:                  hasACL,
		ACLAllowed:              aclAllowed,
		CanSeePins:              canSeePins,
		ForNotification:         forNotification,
		CanReceiveNotifications: canReceiveNotifications,
		RevealType:              p.RevealType,
		InRevealRadius:          inRevealRadius,
		FutureSelfMode:          futureSelfMode,
	})
	obs.AccessDecision(string(decision.Reason))

	return Result{Decision: decision, InRevealRadius: inRevealRadius, GraphView: view}, nil
}

// audienceAllows applies the audience rule. The owner always passes.
func audienceAllows(audience AudienceType, isOwner bool, view social.View) bool {
	switch audience {
	case AudiencePrivate:
		return isOwner
	case AudienceFriends:
		return isOwner || view.Friend
	case AudienceFollowers:
		return isOwner || view.Follower
	case AudiencePublic:
		return true
	default:
		return false
	}
}

// checkACL combines the list and user ACL dimensions. When both exist,
// satisfying either is sufficient. The lists collaborator is consulted only
// when list-typed rows exist, and a failure there denies membership.
func (e *Evaluator) checkACL(ctx context.Context, entries []ACLEntry, viewerID uuid.UUID) (hasACL, aclAllowed bool) {
	var listIDs []uuid.UUID
	inUserACL := false
	hasUserACL := false

	for _, entry := range entries {
		switch entry.TargetType {
		case TargetList:
			listIDs = append(listIDs, entry.TargetID)
		case TargetUser:
			hasUserACL = true
			if entry.TargetID == viewerID {
				inUserACL = true
			}
		}
	}

	hasListACL := len(listIDs) > 0
	if !hasListACL && !hasUserACL {
		return false, true
	}

	inAnyRequiredList := true
	if hasListACL {
		inAny, err := e.lists.InAnyList(ctx, viewerID, listIDs)
		if err != nil {
			e.log.WithError(err).WithField("viewerId", viewerID).Warn("list membership check failed, denying membership")
			obs.CollaboratorFallback("lists")
			inAny = false
		}
		inAnyRequiredList = inAny
	}
	allowedByUserACL := !hasUserACL || inUserACL

	switch {
	case hasListACL && hasUserACL:
		return true, inAnyRequiredList || allowedByUserACL
	case hasListACL:
		return true, inAnyRequiredList
	default:
		return true, allowedByUserACL
	}
}

// inRevealRadius computes the proximity gate. Non-proximity pins are always
// in range. A REACH_TO_REVEAL pin with neither radius nor polygon can never
// be revealed.
func (e *Evaluator) inRevealRadius(p Pin, viewerLoc *geo.Location) bool {
	if p.RevealType != RevealByReach {
		return true
	}
	if viewerLoc == nil {
		return false
	}
	// The mystery polygon takes priority over the radius when both exist.
	if !p.MysteryZone.IsZero() {
		return p.MysteryZone.Contains(*viewerLoc)
	}
	if p.RevealRadiusM != nil {
		dist := viewerLoc.DistanceTo(p.Location)
		return dist.Within(geo.Meters(float64(*p.RevealRadiusM)))
	}
	return false
}
