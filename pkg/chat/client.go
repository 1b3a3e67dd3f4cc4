package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 30 * time.Second

// ErrUnavailable is returned when the remote service explicitly rejects the
// request (unauthorized or forbidden). It is distinguished from transport
// failures so the caller can show a distinct message.
var ErrUnavailable = errors.New("chat: service unavailable")

// Client is an HTTP Exchanger speaking the widget chat protocol:
// POST {endpoint} with a JSON body {"message": ..., "history": [...]},
// expecting a JSON body with a "reply" string field.
type Client struct {
	config *clientConfig
}

var _ Exchanger = (*Client)(nil)

type clientConfig struct {
	endpoint     string
	bearerToken  string
	historyLimit int
	timeout      time.Duration
	httpClient   *http.Client
}

// Option configures the Client.
type Option func(*clientConfig)

// WithBearerToken sets an Authorization: Bearer header on every request.
func WithBearerToken(token string) Option {
	return func(c *clientConfig) { c.bearerToken = token }
}

// WithTimeout sets the request timeout. Ignored if WithHTTPClient is used.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = hc }
}

// WithHistoryLimit caps how many trailing history entries are sent with each
// exchange. Zero or negative means send the history as given.
func WithHistoryLimit(n int) Option {
	return func(c *clientConfig) { c.historyLimit = n }
}

// NewClient creates a chat client for the given endpoint URL.
func NewClient(endpoint string, opts ...Option) *Client {
	config := &clientConfig{
		endpoint: endpoint,
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(config)
	}
	if config.httpClient == nil {
		config.httpClient = &http.Client{Timeout: config.timeout}
	}
	return &Client{config: config}
}

// historyEntry is the wire shape of a history message: role and content
// only, timestamps stay local.
type historyEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type exchangeRequest struct {
	Message string         `json:"message"`
	History []historyEntry `json:"history"`
}

type exchangeResponse struct {
	Reply string `json:"reply"`
}

// Exchange implements Exchanger.
func (c *Client) Exchange(ctx context.Context, message string, history []Message) (string, error) {
	if n := c.config.historyLimit; n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	entries := make([]historyEntry, 0, len(history))
	for _, m := range history {
		entries = append(entries, historyEntry{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(exchangeRequest{Message: message, History: entries})
	if err != nil {
		return "", fmt.Errorf("chat: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("chat: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.bearerToken)
	}

	resp, err := c.config.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat: exchange: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", ErrUnavailable
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", fmt.Errorf("chat: exchange: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("chat: read response: %w", err)
	}
	var out exchangeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("chat: decode response: %w", err)
	}
	// An empty reply is not an error; the caller substitutes fallback text.
	return out.Reply, nil
}
