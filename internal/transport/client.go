package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/victorivanov/retroterm/internal/models"
)

// API is the server surface the session layer depends on. The concrete
// Client implements it; tests substitute their own.
type API interface {
	ListDMs(ctx context.Context) ([]models.DMChannel, error)
	CreateDM(ctx context.Context, userID models.ID) (*models.DMChannel, error)
	GetDM(ctx context.Context, channelID models.ID) (*models.DMChannel, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error)
}

// Client is an authenticated HTTP client for the chat server API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a Client for the given server base URL and access token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Envelope shapes returned by the server. Every response carries a success
// flag; a transport-level failure (non-2xx, unreachable) is treated
// identically to success=false by callers.

type dmListResponse struct {
	Success  bool               `json:"success"`
	Channels []models.DMChannel `json:"channels"`
}

type dmResponse struct {
	Success bool              `json:"success"`
	Channel *models.DMChannel `json:"channel"`
}

type userSearchResponse struct {
	Success bool          `json:"success"`
	Users   []models.User `json:"users"`
}

// ListDMs fetches the full DM channel list.
func (c *Client) ListDMs(ctx context.Context) ([]models.DMChannel, error) {
	var resp dmListResponse
	if err := c.do(ctx, http.MethodGet, "/dm", nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("transport: listing DM channels failed")
	}
	return resp.Channels, nil
}

// CreateDM asks the server to create or return the DM channel with the
// given counterpart user.
func (c *Client) CreateDM(ctx context.Context, userID models.ID) (*models.DMChannel, error) {
	body := map[string]models.ID{"user_id": userID}
	var resp dmResponse
	if err := c.do(ctx, http.MethodPost, "/dm", body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Channel == nil {
		return nil, fmt.Errorf("transport: creating DM channel failed")
	}
	return resp.Channel, nil
}

// GetDM fetches a single DM channel by ID.
func (c *Client) GetDM(ctx context.Context, channelID models.ID) (*models.DMChannel, error) {
	var resp dmResponse
	if err := c.do(ctx, http.MethodGet, "/dm/"+channelID.String(), nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Channel == nil {
		return nil, fmt.Errorf("transport: fetching DM channel %s failed", channelID)
	}
	return resp.Channel, nil
}

// SearchUsers searches users by name, returning at most limit results.
func (c *Client) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", fmt.Sprintf("%d", limit))
	var resp userSearchResponse
	if err := c.do(ctx, http.MethodGet, "/users/search?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("transport: user search failed")
	}
	return resp.Users, nil
}

// do issues one request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("transport: encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("transport: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("transport: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("transport: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("transport: decoding response: %w", err)
	}
	return nil
}
