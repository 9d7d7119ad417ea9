package lists

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"brooks.social/pins/internal/auth"
)

// Client calls the lists service's internal HTTP API.
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

type membershipRequest struct {
	UserID  string   `json:"userId"`
	ListIDs []string `json:"listIds"`
}

type membershipResponse struct {
	InAny bool `json:"inAny"`
}

// InAnyList posts a membership query for the user against the given lists.
func (c *Client) InAnyList(ctx context.Context, userID uuid.UUID, listIDs []uuid.UUID) (bool, error) {
	if len(listIDs) == 0 {
		return false, nil
	}
	ids := make([]string, 0, len(listIDs))
	for _, id := range listIDs {
		ids = append(ids, id.String())
	}
	body, err := json.Marshal(membershipRequest{UserID: userID.String(), ListIDs: ids})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/internal/lists/membership", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token, ok := auth.TokenFromContext(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Internal-Service-Key", c.serviceKey)
	req.Header.Set("X-Service-Name", c.serviceName)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("lists: membership returned status %d", resp.StatusCode)
	}
	var out membershipResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("lists: decode membership: %w", err)
	}
	return out.InAny, nil
}
