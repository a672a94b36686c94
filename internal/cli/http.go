package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrAPI marks a non-2xx response from the service.
var ErrAPI = errors.New("api error")

// APIError carries the service's error body.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return ErrAPI }

// Client calls the optimizer API.
type Client struct {
	http *http.Client
	base string
}

// NewClient creates a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{Timeout: timeout},
		base: strings.TrimRight(baseURL, "/"),
	}
}

// RecommendTransfer posts the roster and returns the proposal, or nil when none exists.
func (c *Client) RecommendTransfer(ctx context.Context, roster []int, budget int) (*Transfer, error) {
	req := transferRequest{CurrentTeam: make([]rosterSlot, len(roster)), RemainingBudget: budget}
	for i, id := range roster {
		req.CurrentTeam[i] = rosterSlot{PlayerID: id}
	}
	var resp transferResponse
	if err := c.do(ctx, http.MethodPost, "/recommend-transfer", req, &resp); err != nil {
		return nil, err
	}
	return resp.OptimalTransfer, nil
}

// BestTeam returns the best team for the active gameweek.
func (c *Client) BestTeam(ctx context.Context) ([]Projection, error) {
	var resp teamResponse
	if err := c.do(ctx, http.MethodGet, "/best-team", nil, &resp); err != nil {
		return nil, err
	}
	return resp.BestTeam.Players, nil
}

// Search returns players whose name contains query.
func (c *Client) Search(ctx context.Context, query string) ([]Player, error) {
	var players []Player
	if err := c.do(ctx, http.MethodGet, "/autocomplete?query="+url.QueryEscape(query), nil, &players); err != nil {
		return nil, err
	}
	return players, nil
}

// Stats returns the service statistics.
func (c *Client) Stats(ctx context.Context) (map[string]any, error) {
	var stats map[string]any
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
