// Package search talks to the knowledge index backend. The core only ever
// needs one question answered: does this index exist and hold documents.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Client is a thin REST client for the search index service.
type Client struct {
	HTTPClient *http.Client

	Endpoint   string
	APIKey     string
	APIVersion string
}

const defaultAPIVersion = "2023-11-01"

func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		HTTPClient: http.DefaultClient,
		Endpoint:   endpoint,
		APIKey:     apiKey,
		APIVersion: defaultAPIVersion,
	}
}

// Exists reports whether the index exists and holds at least one document.
// A missing index is an expected steady state and is reported as
// (false, nil), not as an error.
func (c *Client) Exists(ctx context.Context, index string) (bool, error) {
	statsURL := fmt.Sprintf("%s/indexes('%s')/search.stats?api-version=%s",
		strings.TrimRight(c.Endpoint, "/"), url.PathEscape(index), c.APIVersion)

	req, err := http.NewRequestWithContext(ctx, "GET", statsURL, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		slog.Info("search index not found", "index", index)
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("search stats (status %d): %s", resp.StatusCode, string(errBody))
	}

	var stats struct {
		DocumentCount int `json:"documentCount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return false, fmt.Errorf("decode stats: %w", err)
	}

	return stats.DocumentCount > 0, nil
}
