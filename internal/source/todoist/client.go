package todoist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"monodash/internal/execx"
	"monodash/internal/source"
)

// defaultBaseURL is the hosted Todoist API root.
const defaultBaseURL = "https://api.todoist.com"

// Client is a thin HTTP client for the Todoist REST v2 and sync v9 APIs.
// Requests hold a permit from the shared pool for their full duration, so
// HTTP calls count against the same concurrency budget as subprocesses.
type Client struct {
	baseURL    string
	token      string
	pool       *execx.Pool
	httpClient *http.Client
}

// NewClient creates a Todoist API client authenticated with the given
// bearer token.
func NewClient(baseURL, token string, pool *execx.Pool, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		pool:       pool,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Get performs an authenticated GET and unmarshals the JSON response into
// result. Failures are returned already classified into the source error
// taxonomy.
func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	if err := c.pool.Acquire(ctx); err != nil {
		return &source.TransientError{Name: apiName, Err: err}
	}
	defer c.pool.Release()

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.baseURL+path, nil,
	)
	if err != nil {
		return &source.TransientError{Name: apiName, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &source.TransientError{Name: apiName, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &source.TransientError{Name: apiName, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode == http.StatusForbidden:
		return &source.AuthError{
			Name:    apiName,
			Message: fmt.Sprintf("API returned %d; check the token", resp.StatusCode),
		}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &source.TransientError{
			Name: apiName,
			Err:  fmt.Errorf("unexpected status %d on GET %s", resp.StatusCode, path),
		}
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return &source.ParseError{Name: apiName, Err: err}
	}
	return nil
}
