// Package daemonctl is the HTTP client the CLI uses to talk to a running
// opptrace daemon.
package daemonctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"
	"time"

	"opptrace/internal/api"
)

// ErrDaemonNotRunning indicates the daemon API is unreachable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// Client talks to the daemon's polling API.
type Client struct {
	base string
	http *http.Client
}

// NewClient builds a client for the given bind address. A bare host:port is
// promoted to an http URL.
func NewClient(bind string) *Client {
	base := strings.TrimSpace(bind)
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Status fetches daemon and pipeline run state.
func (c *Client) Status(ctx context.Context) (api.StatusView, error) {
	var out api.StatusView
	err := c.get(ctx, "/api/status", &out)
	return out, err
}

// Snapshot fetches the current enrichment snapshot.
func (c *Client) Snapshot(ctx context.Context) (api.SnapshotView, error) {
	var out api.SnapshotView
	err := c.get(ctx, "/api/snapshot", &out)
	return out, err
}

// Enrich submits a raw batch document and returns the scheduling ack.
func (c *Client) Enrich(ctx context.Context, batch []byte) (api.EnrichAck, error) {
	var out api.EnrichAck
	err := c.post(ctx, "/api/enrich", batch, &out)
	return out, err
}

// Retry schedules a retry run for one stage.
func (c *Client) Retry(ctx context.Context, stage string) (api.EnrichAck, error) {
	payload, err := json.Marshal(map[string]string{"stage": stage})
	if err != nil {
		return api.EnrichAck{}, err
	}
	var out api.EnrichAck
	err = c.post(ctx, "/api/retry", payload, &out)
	return out, err
}

// Match submits a base64 image for face matching against the current batch.
func (c *Client) Match(ctx context.Context, imageBase64 string, minConfidence float64) (api.MatchView, error) {
	body := map[string]any{"image": imageBase64}
	if minConfidence > 0 {
		body["minConfidence"] = minConfidence
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return api.MatchView{}, err
	}
	var out api.MatchView
	err = c.post(ctx, "/api/match", payload, &out)
	return out, err
}

// WaitForDaemon polls the status endpoint until the daemon responds or the
// timeout elapses.
func (c *Client) WaitForDaemon(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		_, err := c.Status(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return fmt.Errorf("daemon failed to start: %w", lastErr)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return ErrDaemonNotRunning
		}
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var payload struct {
			Error string `json:"error"`
		}
		if decodeErr := json.Unmarshal(data, &payload); decodeErr == nil && strings.TrimSpace(payload.Error) != "" {
			return fmt.Errorf("daemon responded %d: %s", resp.StatusCode, payload.Error)
		}
		return fmt.Errorf("daemon responded %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
