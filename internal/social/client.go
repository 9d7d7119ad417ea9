package social

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"brooks.social/pins/internal/auth"
)

// Client calls the social service's internal HTTP API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	serviceName string
	serviceKey  string
}

// NewClient builds a Client. httpClient may be nil.
func NewClient(baseURL, serviceName, serviceKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  httpClient,
		serviceName: serviceName,
		serviceKey:  serviceKey,
	}
}

var _ Source = (*Client)(nil)

// FetchGraphView queries /internal/graph/view for one (viewer, subject)
// pair.
func (c *Client) FetchGraphView(ctx context.Context, viewerID, subjectID uuid.UUID) (View, error) {
	q := url.Values{}
	q.Set("viewerId", viewerID.String())
	q.Set("subjectId", subjectID.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/internal/graph/view?"+q.Encode(), nil)
	if err != nil {
		return View{}, err
	}
	setInternalHeaders(ctx, req, c.serviceName, c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return View{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return View{}, fmt.Errorf("social: graph view returned status %d", resp.StatusCode)
	}
	var view View
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return View{}, fmt.Errorf("social: decode graph view: %w", err)
	}
	return view, nil
}

func setInternalHeaders(ctx context.Context, req *http.Request, serviceName, serviceKey string) {
	if token, ok := auth.TokenFromContext(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Internal-Service-Key", serviceKey)
	req.Header.Set("X-Service-Name", serviceName)
}
