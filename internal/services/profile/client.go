package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"opptrace/internal/enrichment"
)

const (
	defaultBaseURL     = "https://api.profileprovider.dev/v1/profile"
	defaultHTTPTimeout = 30 * time.Second
)

// Client wraps the external profile provider API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option customizes the profile client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithTimeout overrides the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient constructs a profile provider client.
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Configured reports whether the client holds credentials.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

type fetchRequest struct {
	Identity string `json:"identity"`
}

// Fetch retrieves and normalizes the profile for one identity.
func (c *Client) Fetch(ctx context.Context, identity string) (enrichment.Profile, error) {
	var empty enrichment.Profile
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return empty, errors.New("profile fetch: identity required")
	}
	if !c.Configured() {
		return empty, errors.New("profile fetch: api key required")
	}

	encoded, err := json.Marshal(fetchRequest{Identity: identity})
	if err != nil {
		return empty, fmt.Errorf("profile fetch: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(encoded))
	if err != nil {
		return empty, fmt.Errorf("profile fetch: request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, fmt.Errorf("profile fetch: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, fmt.Errorf("profile fetch: read body: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return empty, fmt.Errorf("profile fetch: no profile for identity %q", identity)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return empty, fmt.Errorf("profile fetch: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return empty, fmt.Errorf("profile fetch: decode response: %w", err)
	}
	return Normalize(payload), nil
}
