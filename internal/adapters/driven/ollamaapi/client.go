// Package ollamaapi is a minimal JSON client for the Ollama REST API,
// shared by the embedding and LLM adapters.
package ollamaapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is where a local Ollama listens.
const DefaultBaseURL = "http://localhost:11434"

// errorBodyLimit caps how much of a failed response is quoted in errors.
const errorBodyLimit = 512

// Client talks to one Ollama instance.
type Client struct {
	http    *http.Client
	baseURL string
}

// New returns a client for baseURL, falling back to DefaultBaseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the instance address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope is embedded by response types so an in-band error is surfaced.
type envelope struct {
	Error string `json:"error,omitempty"`
}

// Post sends in as JSON to path and decodes the reply into out.
// A non-200 status or an "error" field in the reply becomes an error.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("ollama: marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ollama: create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ollama: read %s response (status %d): %w", path, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(path, resp.StatusCode, raw)
	}

	var env envelope
	if json.Unmarshal(raw, &env) == nil && env.Error != "" {
		return fmt.Errorf("ollama: %s: %s", path, env.Error)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("ollama: decode %s response: %w", path, err)
	}
	return nil
}

// Ping lists local models through /api/tags, which runs no inference.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: create ping request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return statusError("/api/tags", resp.StatusCode, raw)
	}
	return nil
}

func statusError(path string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > errorBodyLimit {
		msg = msg[:errorBodyLimit]
	}
	return fmt.Errorf("ollama: %s returned status %d: %s", path, status, msg)
}
