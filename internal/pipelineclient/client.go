// Package pipelineclient provides an HTTP client for the brokerage pipeline API.
package pipelineclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// APIKeyHeader carries the shared pipeline secret.
const APIKeyHeader = "X-API-Key"

// SweepResult mirrors the result of a status refresh run.
type SweepResult struct {
	Examined int            `json:"examined"`
	Updated  int            `json:"updated"`
	ByStatus map[string]int `json:"by_status"`
}

// Client communicates with the brokerage pipeline API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new pipeline API client.
func New(baseURL, apiKey string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// RefreshPolicyStatuses asks the API to re-derive date-driven policy statuses.
// A zero asOf lets the server use its own clock.
func (c *Client) RefreshPolicyStatuses(ctx context.Context, asOf time.Time) (*SweepResult, error) {
	body := struct {
		AsOf string `json:"as_of,omitempty"`
	}{}
	if !asOf.IsZero() {
		body.AsOf = asOf.UTC().Format(time.RFC3339)
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/pipeline/policies/refresh-status", strings.NewReader(string(jsonBody)))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(APIKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refreshing policy statuses: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("refreshing policy statuses: unexpected status %d", resp.StatusCode)
	}

	var result struct {
		Result SweepResult `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding refresh response: %w", err)
	}
	return &result.Result, nil
}
