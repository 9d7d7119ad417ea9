package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"brooks.social/pins/internal/auth"
	"brooks.social/pins/internal/geo"
	"brooks.social/pins/internal/pin"
)

func (a *API) handlePinsCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req pin.CreateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	id, err := a.pins.Create(r.Context(), principal.UserID, req)
	if err != nil {
		a.respondPinError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (a *API) handleMapPins(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	pins, err := a.pins.MapPins(r.Context(), principal.UserID, r.URL.Query().Get("bbox"))
	if err != nil {
		a.respondPinError(w, r, err)
		return
	}
	if pins == nil {
		pins = []pin.MapPin{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pins": pins})
}

func (a *API) handleCandidates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	candidates, err := a.pins.Candidates(r.Context(), principal.UserID, r.URL.Query().Get("bucket"))
	if err != nil {
		a.respondPinError(w, r, err)
		return
	}
	if candidates == nil {
		candidates = []pin.Candidate{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"candidates": candidates})
}

// handlePinResource dispatches /v1/pins/{id} and /v1/pins/{id}/reveal.
func (a *API) handlePinResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/pins/")
	if rest == "" {
		http.NotFound(w, r)
		return
	}

	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	idPart, action, _ := strings.Cut(rest, "/")
	pinID, err := uuid.Parse(idPart)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid pin id")
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, http.MethodDelete)
			return
		}
		if err := a.pins.Delete(r.Context(), pinID, principal.UserID); err != nil {
			a.respondPinError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case "reveal":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		a.handleReveal(w, r, pinID, principal.UserID)
	default:
		http.NotFound(w, r)
	}
}

type revealRequest struct {
	Location *pin.LocationRequest `json:"location"`
}

func (a *API) handleReveal(w http.ResponseWriter, r *http.Request, pinID, viewerID uuid.UUID) {
	var req revealRequest
	if err := decodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	var loc *geo.Location
	if req.Location != nil {
		parsed, err := geo.NewLocation(req.Location.Lat, req.Location.Lng)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid location")
			return
		}
		parsed.AltitudeM = req.Location.AltitudeM
		loc = &parsed
	}

	result, err := a.pins.CheckReveal(r.Context(), pinID, viewerID, loc)
	if err != nil {
		a.respondPinError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) respondPinError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, pin.ErrNotFound):
		respondError(w, http.StatusNotFound, "pin not found")
	case errors.Is(err, pin.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pin.ErrForbidden):
		respondError(w, http.StatusForbidden, "not the pin owner")
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken):
		respondError(w, http.StatusUnauthorized, "authentication required")
	default:
		log.WithFields(log.Fields{
			"path":      r.URL.Path,
			"requestId": r.Header.Get(requestIDHeader),
		}).WithError(err).Error("request failed")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
