// Package client provides an HTTP client for the Converse server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/raphaelgruber/converse-go/internal/models"
)

// Client talks to the Converse server's JSON API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new client.
// If baseURL is empty, uses CONVERSE_SERVER_URL env var or defaults to localhost:8383.
// Timeout can be configured via CONVERSE_CLIENT_TIMEOUT env var (default 5m for slow models).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("CONVERSE_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8383"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeout := 5 * time.Minute
	if t := os.Getenv("CONVERSE_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("server error: %s - %s", resp.Status, errResp.Error)
		}
		return fmt.Errorf("server error: %s - %s", resp.Status, string(raw))
	}

	if result != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// messageRequest is the payload for POST /api/message.
type messageRequest struct {
	Username string `json:"username"`
	Message  string `json:"message"`
	Role     string `json:"role,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// SendMessage sends a user message and returns the model response.
func (c *Client) SendMessage(ctx context.Context, username, message string) (string, error) {
	var resp messageResponse
	err := c.do(ctx, http.MethodPost, "/api/message", messageRequest{
		Username: username,
		Message:  message,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

type directiveRequest struct {
	Username  string `json:"username"`
	Directive string `json:"directive"`
}

// SendDirective seeds a system-role behavior instruction for a user.
func (c *Client) SendDirective(ctx context.Context, username, directive string) (string, error) {
	var resp messageResponse
	err := c.do(ctx, http.MethodPost, "/api/directive", directiveRequest{
		Username:  username,
		Directive: directive,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// HistoryResult is the response of GET /api/history/{owner}.
type HistoryResult struct {
	Owner string        `json:"owner"`
	Turns []models.Turn `json:"turns"`
}

// History returns the most recent turns for a user, newest first.
func (c *Client) History(ctx context.Context, username string, limit int) (*HistoryResult, error) {
	path := "/api/history/" + url.PathEscape(username)
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	var resp HistoryResult
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StageStats holds metrics for a single pipeline stage.
type StageStats struct {
	Count    int64   `json:"count"`
	Failures int64   `json:"failures"`
	AvgMs    float64 `json:"avg_ms"`
	MinMs    int64   `json:"min_ms"`
	MaxMs    int64   `json:"max_ms"`
}

// ServerStats holds in-memory runtime statistics (resets on server restart).
type ServerStats struct {
	UptimeSeconds float64               `json:"uptime_seconds"`
	Stages        map[string]StageStats `json:"stages"`
}

// Stats returns the server's in-memory pipeline statistics.
func (c *Client) Stats(ctx context.Context) (*ServerStats, error) {
	var resp ServerStats
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// wsEvent mirrors the server's websocket frame.
type wsEvent struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SendMessageStream sends a message over the websocket endpoint and invokes
// onToken for each streamed token. Returns the full response text.
// Return an error from onToken to abort the stream.
func (c *Client) SendMessageStream(
	ctx context.Context,
	username, message string,
	onToken func(token string) error,
) (string, error) {
	wsEndpoint := c.baseURL + "/api/message/ws"
	wsEndpoint = strings.Replace(wsEndpoint, "http://", "ws://", 1)
	wsEndpoint = strings.Replace(wsEndpoint, "https://", "wss://", 1)

	u, err := url.Parse(wsEndpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("websocket connect: %w", err)
	}
	defer conn.Close()

	var mu sync.Mutex
	closed := false
	closeConn := func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			conn.Close()
		}
	}
	defer closeConn()

	if err := conn.WriteJSON(messageRequest{Username: username, Message: message}); err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			closeConn()
		case <-done:
		}
	}()

	for {
		var event wsEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("read event: %w", err)
		}

		switch event.Type {
		case "token":
			if event.Content != "" && onToken != nil {
				if err := onToken(event.Content); err != nil {
					return "", err
				}
			}

		case "done":
			return event.Content, nil

		case "error":
			return "", fmt.Errorf("stream error: %s", event.Error)

		default:
			continue
		}
	}
}
