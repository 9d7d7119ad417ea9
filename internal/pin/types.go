package pin

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"brooks.social/pins/internal/geo"
)

// AudienceType controls who may see a pin by default, independent of ACLs.
type AudienceType string

const (
	AudiencePrivate   AudienceType = "PRIVATE"
	AudienceFriends   AudienceType = "FRIENDS"
	AudienceFollowers AudienceType = "FOLLOWERS"
	AudiencePublic    AudienceType = "PUBLIC"
)

// Valid reports whether the value is a known audience type.
func (a AudienceType) Valid() bool {
	switch a {
	case AudiencePrivate, AudienceFriends, AudienceFollowers, AudiencePublic:
		return true
	}
	return false
}

// RevealType controls whether a pin's content is gated on proximity.
type RevealType string

const (
	RevealAlways  RevealType = "VISIBLE_ALWAYS"
	RevealByReach RevealType = "REACH_TO_REVEAL"
)

// Valid reports whether the value is a known reveal type.
func (r RevealType) Valid() bool {
	return r == RevealAlways || r == RevealByReach
}

// MapPrecision controls coordinate blurring on map renderings.
type MapPrecision string

const (
	PrecisionExact   MapPrecision = "EXACT"
	PrecisionBlurred MapPrecision = "BLURRED"
)

// Valid reports whether the value is a known precision.
func (m MapPrecision) Valid() bool {
	return m == PrecisionExact || m == PrecisionBlurred
}

// TargetType discriminates ACL rows.
type TargetType string

const (
	TargetList TargetType = "LIST"
	TargetUser TargetType = "USER"
)

// Pin is owned content anchored to a geographic point. Pins are immutable
// once created; they disappear by owner deletion or expiration cleanup.
type Pin struct {
	ID                    uuid.UUID
	OwnerID               uuid.UUID
	Text                  string
	LinkURL               string
	Audience              AudienceType
	AvailableFrom         time.Time
	ExpiresAt             time.Time
	RevealType            RevealType
	RevealRadiusM         *int
	MapPrecision          MapPrecision
	NotifyRadiusM         *int
	NotifyCooldownSeconds int
	NotifyRepeatable      bool
	FutureSelf            bool
	Location              geo.Location
	MysteryZone           geo.Polygon
	Bucket                string
	CreatedAt             time.Time
}

// ACLEntry is a pin-level allow-list row, targeting either a list or a user.
// A pin with no entries carries no restriction beyond its audience type.
type ACLEntry struct {
	PinID      uuid.UUID
	TargetType TargetType
	TargetID   uuid.UUID
}

// MapPin is the map-listing projection: identity and (possibly blurred)
// position only.
type MapPin struct {
	ID        uuid.UUID    `json:"id"`
	Location  geo.Location `json:"location"`
	Precision MapPrecision `json:"precision"`
}

// Candidate is the geofence-registration projection. Content is deliberately
/// withheld: clients get just enough to register an OS-level geofence.
type Candidate struct {
	ID            uuid.UUID    `json:"id"`
	Center        geo.Location `json:"center"`
	RevealType    RevealType   `json:"revealType"`
	RevealRadiusM *int         `json:"revealRadiusM,omitempty"`
	MysteryZone   *geo.Polygon `json:"mysteryZone,omitempty"`
}

// RevealResult is the outcome of a reveal check. Content is present only
// when Revealed is true.
type RevealResult struct {
	Revealed bool     `json:"revealed"`
	Reason   Reason   `json:"reason"`
	Content  *Content `json:"content,omitempty"`
}

// Content is the revealed payload of a pin.
type Content struct {
	ID      uuid.UUID `json:"id"`
	Text    string    `json:"text"`
	LinkURL string    `json:"linkUrl,omitempty"`
}

// CreateRequest carries everything needed to create a pin. AvailableFrom
// defaults to now; MapPrecision defaults to EXACT; NotifyCooldownSeconds
// defaults to one hour.
type CreateRequest struct {
	Text                  string          `json:"text"`
	LinkURL               string          `json:"linkUrl"`
	Audience              AudienceType    `json:"audienceType"`
	AvailableFrom         *time.Time      `json:"availableFrom"`
	ExpiresAt             time.Time       `json:"expiresAt"`
	RevealType            RevealType      `json:"revealType"`
	RevealRadiusM         *int            `json:"revealRadiusM"`
	MysteryPolygon        [][2]float64    `json:"mysteryPolygon"`
	MapPrecision          MapPrecision    `json:"mapPrecision"`
	NotifyRadiusM         *int            `json:"notifyRadiusM"`
	NotifyCooldownSeconds *int            `json:"notifyCooldownSeconds"`
	NotifyRepeatable      bool            `json:"notifyRepeatable"`
	FutureSelf            bool            `json:"futureSelf"`
	Location              LocationRequest `json:"location"`
	ACL                   *ACLRequest     `json:"acl"`
}

// LocationRequest is the wire form of a coordinate pair.
type LocationRequest struct {
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	AltitudeM *float64 `json:"altitudeM"`
}

// ACLRequest names the lists and users allowed to see a pin.
type ACLRequest struct {
	ListIDs []uuid.UUID `json:"listIds"`
	UserIDs []uuid.UUID `json:"userIds"`
}

var (
	// ErrNotFound indicates the pin does not exist.
	ErrNotFound = errors.New("pin: not found")
	// ErrInvalidInput indicates a request the caller must fix.
	ErrInvalidInput = errors.New("pin: invalid input")
	// ErrForbidden indicates an operation reserved for the pin owner.
	ErrForbidden = errors.New("pin: forbidden")
)
