// Package client provides a Go client for the fortroute HTTP API.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/raphaelgruber/fortroute/internal/learning"
	"github.com/raphaelgruber/fortroute/internal/models"
	"github.com/raphaelgruber/fortroute/internal/planner"
	"github.com/raphaelgruber/fortroute/internal/sites"
)

// Client talks to a fortroute server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new client.
// If baseURL is empty, uses FORTROUTE_SERVER_URL env var or defaults to localhost:8484.
// Timeout can be configured via FORTROUTE_CLIENT_TIMEOUT env var (default 30s).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("FORTROUTE_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8484"
	}

	timeout := 30 * time.Second
	if t := os.Getenv("FORTROUTE_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// APIError is an error envelope returned by the server.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap maps server error codes back onto the local sentinel errors so
// callers can use errors.Is the same way against a local or remote service.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "SITE_NOT_FOUND":
		return sites.ErrSiteNotFound
	case "INVALID_INTERACTION":
		return learning.ErrInvalidInteraction
	case "INVALID_CONFIG":
		return learning.ErrInvalidConfig
	case "INVALID_PLAN_REQUEST":
		return planner.ErrInvalidRequest
	}
	return nil
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *APIError       `json:"error,omitempty"`
}

// do sends a request and decodes the envelope's data into result. A 204
// response leaves result untouched and reports found=false.
func (c *Client) do(ctx context.Context, method, path string, body, result any) (found bool, err error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return false, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false, fmt.Errorf("server error: %s - %s", resp.Status, string(raw))
	}
	if env.Error != nil {
		env.Error.StatusCode = resp.StatusCode
		return false, env.Error
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return false, fmt.Errorf("server error: %s", resp.Status)
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return false, fmt.Errorf("unmarshal data: %w", err)
		}
	}
	return true, nil
}

func sitePath(siteID, suffix string) string {
	return "/api/v1/sites/" + url.PathEscape(siteID) + suffix
}

// Sites lists the server's sites.
func (c *Client) Sites(ctx context.Context) ([]models.SiteSummary, error) {
	var out []models.SiteSummary
	_, err := c.do(ctx, http.MethodGet, "/api/v1/sites", nil, &out)
	return out, err
}

// Plan requests a plan for a site.
func (c *Client) Plan(ctx context.Context, siteID string, req planner.Request) (models.PlanResult, error) {
	body := map[string]any{
		"time_available": req.TimeAvailable,
		"use_adaptive":   req.UseAdaptive,
	}
	if req.Energy != "" {
		body["energy_level"] = string(req.Energy)
	}

	var out models.PlanResult
	_, err := c.do(ctx, http.MethodPost, sitePath(siteID, "/plan"), body, &out)
	return out, err
}

// Track records a click, skip or dwell. minutes is only sent for dwell.
func (c *Client) Track(ctx context.Context, siteID, locationID, action string, minutes float64) (models.LocationAggregate, error) {
	body := map[string]any{"location_id": locationID}
	if action == "dwell" {
		body["minutes"] = minutes
	}

	var out models.LocationAggregate
	_, err := c.do(ctx, http.MethodPost, sitePath(siteID, "/"+url.PathEscape(action)), body, &out)
	return out, err
}

// Aggregates returns a site's per-location aggregates.
func (c *Client) Aggregates(ctx context.Context, siteID string) ([]models.LocationAggregate, error) {
	var out []models.LocationAggregate
	_, err := c.do(ctx, http.MethodGet, sitePath(siteID, "/aggregates"), nil, &out)
	return out, err
}

// Analytics returns a site summary, or nil when nothing was recorded yet.
func (c *Client) Analytics(ctx context.Context, siteID string) (*models.SiteAnalytics, error) {
	var out models.SiteAnalytics
	found, err := c.do(ctx, http.MethodGet, sitePath(siteID, "/analytics"), nil, &out)
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

// ScoringConfig returns the server's scoring weights.
func (c *Client) ScoringConfig(ctx context.Context) (models.ScoringConfig, error) {
	var out models.ScoringConfig
	_, err := c.do(ctx, http.MethodGet, "/api/v1/scoring", nil, &out)
	return out, err
}

// UpdateScoringConfig changes the server's scoring weights.
func (c *Client) UpdateScoringConfig(ctx context.Context, update models.ScoringConfigUpdate) (models.ScoringConfig, error) {
	var out models.ScoringConfig
	_, err := c.do(ctx, http.MethodPatch, "/api/v1/scoring", update, &out)
	return out, err
}

// Export downloads the server's learned state.
func (c *Client) Export(ctx context.Context) (models.StoreSnapshot, error) {
	var out models.StoreSnapshot
	_, err := c.do(ctx, http.MethodGet, "/api/v1/store/export", nil, &out)
	return out, err
}

// Import uploads learned state to the server.
func (c *Client) Import(ctx context.Context, snap models.StoreSnapshot) error {
	_, err := c.do(ctx, http.MethodPost, "/api/v1/store/import", snap, nil)
	return err
}

// Reset clears the server's learned state.
func (c *Client) Reset(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/v1/store/reset", nil, nil)
	return err
}

// LiveConn is an open live-ingest websocket for one site.
type LiveConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// liveReply mirrors the server's per-frame answer.
type liveReply struct {
	Status string                    `json:"status"`
	Data   *models.LocationAggregate `json:"data,omitempty"`
	Error  string                    `json:"error,omitempty"`
}

// ErrLiveRejected wraps an error frame sent by the server.
var ErrLiveRejected = errors.New("live interaction rejected")

// Live opens the live-ingest websocket for a site. Server pings are only
// answered while Send waits for a reply, so the server closes a connection
// left idle for longer than its pong wait.
func (c *Client) Live(ctx context.Context, siteID string) (*LiveConn, error) {
	// Convert HTTP endpoint to WebSocket endpoint
	wsURL := c.baseURL
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)

	u, err := url.Parse(wsURL + sitePath(siteID, "/live"))
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", sites.ErrSiteNotFound, siteID)
		}
		return nil, fmt.Errorf("websocket connect: %w", err)
	}
	return &LiveConn{conn: conn}, nil
}

// Send records one interaction and waits for the updated aggregate.
func (l *LiveConn) Send(locationID, action string, minutes float64) (models.LocationAggregate, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := map[string]any{"location_id": locationID, "action": action}
	if minutes > 0 {
		msg["minutes"] = minutes
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return models.LocationAggregate{}, fmt.Errorf("marshal message: %w", err)
	}
	if err := l.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return models.LocationAggregate{}, fmt.Errorf("send message: %w", err)
	}

	_, raw, err := l.conn.ReadMessage()
	if err != nil {
		return models.LocationAggregate{}, fmt.Errorf("read reply: %w", err)
	}
	var reply liveReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return models.LocationAggregate{}, fmt.Errorf("unmarshal reply: %w", err)
	}
	if reply.Error != "" || reply.Data == nil {
		return models.LocationAggregate{}, fmt.Errorf("%w: %s", ErrLiveRejected, reply.Error)
	}
	return *reply.Data, nil
}

// Close sends a close frame and closes the connection.
func (l *LiveConn) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_ = l.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return l.conn.Close()
}
