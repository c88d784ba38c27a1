// Package ollama wraps the two surfaces of a local Ollama instance this tool
// touches: the HTTP API (readiness, installed-model listing) and the CLI
// (serve/pull subprocesses).
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Model is one entry from the local store (GET /api/tags).
type Model struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Client talks to the local Ollama HTTP API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a client for the API listening on the given local port.
func NewClient(port int) *Client {
	return &Client{
		BaseURL:    fmt.Sprintf("http://127.0.0.1:%d", port),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Version returns the server version, or an error if the API is unreachable.
// Used as the readiness probe after starting the serve process.
func (c *Client) Version(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/version", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("server not reachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("version check: HTTP %s", resp.Status)
	}
	var body struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("version check: invalid JSON: %w", err)
	}
	return body.Version, nil
}

// Tags lists the models present in the local store.
func (c *Client) Tags(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list models: HTTP %s", resp.Status)
	}
	var body struct {
		Models []Model `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("list models: invalid JSON: %w", err)
	}
	return body.Models, nil
}

// Has reports whether a model is present in the local store.
func (c *Client) Has(ctx context.Context, name string) (bool, error) {
	models, err := c.Tags(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range models {
		if m.Name == name || trimTag(m.Name) == name {
			return true, nil
		}
	}
	return false, nil
}

// trimTag strips the ":tag" suffix so "llama3:latest" matches "llama3".
func trimTag(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == ':' {
			return name[:i]
		}
	}
	return name
}
