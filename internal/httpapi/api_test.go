package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brooks.social/pins/internal/auth"
	"brooks.social/pins/internal/geo"
	"brooks.social/pins/internal/lists"
	"brooks.social/pins/internal/pin"
	"brooks.social/pins/internal/social"
)

var testSecret = []byte("api-test-secret")

type openSocial struct{}

func (openSocial) FetchGraphView(ctx context.Context, viewerID, subjectID uuid.UUID) (social.View, error) {
	return social.View{Friend: true, Follower: true, CanSeePins: true, CanReceiveNotifications: true}, nil
}

type noLists struct{}

func (noLists) InAnyList(ctx context.Context, userID uuid.UUID, listIDs []uuid.UUID) (bool, error) {
	return false, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := pin.NewInMemory()
	grid := geo.NewGrid(geo.DefaultBucketSizeDeg)

	var socialSrc social.Source = openSocial{}
	var listsSrc lists.Source = noLists{}
	evaluator := pin.NewEvaluator(store, socialSrc, listsSrc)
	proximity := pin.NewProximity(store, evaluator, grid)
	service := pin.NewService(store, store, store, evaluator, proximity, grid)

	api := New(service, ReadyProbe{}, testSecret, "test")
	api.SetRateLimit(1000, 1000)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func bearerFor(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, userID, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(t *testing.T, method, url, authz string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func createPinRequest() map[string]any {
	return map[string]any{
		"text":         "coffee spot",
		"audienceType": "PUBLIC",
		"expiresAt":    time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"revealType":   "VISIBLE_ALWAYS",
		"location":     map[string]any{"lat": 52.52, "lng": 13.405},
	}
}

func TestHealthzIsPublic(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequestsRequireToken(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/v1/pins/map?bbox=13,52,14,53", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/pins/map?bbox=13,52,14,53", "Bearer garbage", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateAndListPins(t *testing.T) {
	srv := newTestServer(t)
	owner, viewer := uuid.New(), uuid.New()

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/pins", bearerFor(t, owner), createPinRequest())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID uuid.UUID `json:"id"`
	}
	decodeBody(t, resp, &created)
	require.NotEqual(t, uuid.Nil, created.ID)

	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/pins/map?bbox=13,52,14,53", bearerFor(t, viewer), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listing struct {
		Pins []pin.MapPin `json:"pins"`
	}
	decodeBody(t, resp, &listing)
	require.Len(t, listing.Pins, 1)
	assert.Equal(t, created.ID, listing.Pins[0].ID)
}

func TestCreateRejectsInvalidBody(t *testing.T) {
	srv := newTestServer(t)

	req := createPinRequest()
	req["text"] = ""
	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/pins", bearerFor(t, uuid.New()), req)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCandidatesEndpoint(t *testing.T) {
	srv := newTestServer(t)
	owner, viewer := uuid.New(), uuid.New()

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/pins", bearerFor(t, owner), createPinRequest())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/pins/candidates?bucket=52.52000:13.40000", bearerFor(t, viewer), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listing struct {
		Candidates []pin.Candidate `json:"candidates"`
	}
	decodeBody(t, resp, &listing)
	assert.Len(t, listing.Candidates, 1)

	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/pins/candidates?bucket=bogus", bearerFor(t, viewer), nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRevealFlow(t *testing.T) {
	srv := newTestServer(t)
	owner, viewer := uuid.New(), uuid.New()

	req := createPinRequest()
	req["revealType"] = "REACH_TO_REVEAL"
	req["revealRadiusM"] = 100
	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/pins", bearerFor(t, owner), req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID uuid.UUID `json:"id"`
	}
	decodeBody(t, resp, &created)

	revealURL := fmt.Sprintf("%s/v1/pins/%s/reveal", srv.URL, created.ID)

	// In range: revealed with content.
	resp = doJSON(t, http.MethodPost, revealURL, bearerFor(t, viewer), map[string]any{
		"location": map[string]any{"lat": 52.52, "lng": 13.405},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result pin.RevealResult
	decodeBody(t, resp, &result)
	assert.True(t, result.Revealed)
	require.NotNil(t, result.Content)
	assert.Equal(t, "coffee spot", result.Content.Text)

	// Out of range: denied with DISTANCE, no content.
	resp = doJSON(t, http.MethodPost, revealURL, bearerFor(t, viewer), map[string]any{
		"location": map[string]any{"lat": 53.0, "lng": 13.405},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result = pin.RevealResult{}
	decodeBody(t, resp, &result)
	assert.False(t, result.Revealed)
	assert.Equal(t, pin.ReasonDistance, result.Reason)
	assert.Nil(t, result.Content)
}

func TestRevealUnknownPin(t *testing.T) {
	srv := newTestServer(t)

	url := fmt.Sprintf("%s/v1/pins/%s/reveal", srv.URL, uuid.New())
	resp := doJSON(t, http.MethodPost, url, bearerFor(t, uuid.New()), nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeletePin(t *testing.T) {
	srv := newTestServer(t)
	owner, stranger := uuid.New(), uuid.New()

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/pins", bearerFor(t, owner), createPinRequest())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID uuid.UUID `json:"id"`
	}
	decodeBody(t, resp, &created)

	pinURL := srv.URL + "/v1/pins/" + created.ID.String()

	resp = doJSON(t, http.MethodDelete, pinURL, bearerFor(t, stranger), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, pinURL, bearerFor(t, owner), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, pinURL, bearerFor(t, owner), nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBadPinID(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodDelete, srv.URL+"/v1/pins/not-a-uuid", bearerFor(t, uuid.New()), nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPut, srv.URL+"/v1/pins", bearerFor(t, uuid.New()), nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, http.MethodPost, resp.Header.Get("Allow"))
}
