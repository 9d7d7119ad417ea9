package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"brooks.social/pins/internal/obs"
	"brooks.social/pins/internal/pin"
)

// ReadyProbe checks dependencies for the readiness endpoint.
type ReadyProbe struct {
	Ping func(ctx context.Context) error
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Ping == nil {
		return nil
	}
	return rp.Ping(ctx)
}

// API is the HTTP layer over the pin service.
type API struct {
	mux        *http.ServeMux
	pins       *pin.Service
	readyProbe ReadyProbe
	authSecret []byte
	version    string

	rateBurst    int
	ratePerSec   int
	maxBodyBytes int64
}

// New wires routes. authSecret enables bearer authentication; an empty
// secret leaves the API unauthenticated (tests only).
func New(pins *pin.Service, rp ReadyProbe, authSecret []byte, version string) *API {
	a := &API{
		mux:          http.NewServeMux(),
		pins:         pins,
		readyProbe:   rp,
		authSecret:   authSecret,
		version:      version,
		rateBurst:    20,
		ratePerSec:   10,
		maxBodyBytes: 1 << 20,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)

	a.mux.HandleFunc("/v1/pins", a.handlePinsCollection)
	a.mux.HandleFunc("/v1/pins/map", a.handleMapPins)
	a.mux.HandleFunc("/v1/pins/candidates", a.handleCandidates)
	a.mux.HandleFunc("/v1/pins/", a.handlePinResource)

	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// SetRateLimit overrides the default per-IP limit (tests raise it).
func (a *API) SetRateLimit(burst, perSec int) {
	a.rateBurst = burst
	a.ratePerSec = perSec
}

// Handler returns the fully wrapped handler: metrics, request id, logging,
// hardening headers, rate limiting, body cap and authentication.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = a.withAuth(h)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "pins-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	respondError(w, http.StatusMethodNotAllowed, "method not allowed")
}
