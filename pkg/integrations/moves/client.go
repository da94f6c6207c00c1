// Package moves is an API client for the Moves activity-tracking service.
package moves

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	httputil "github.com/carbonpath/server/pkg/infrastructure/http"
	"github.com/carbonpath/server/pkg/types"
)

const defaultBaseURL = "https://api.moves-app.com/api/1.1"

// validResources are the daily resources the service exposes. Anything else
// fails before a network call is made.
var validResources = map[string]bool{
	"summary":    true,
	"activities": true,
	"places":     true,
	"storyline":  true,
}

// InvalidResourceError is a programmer/config error: the requested resource
// is not part of the service's vocabulary. Fatal to the single call.
type InvalidResourceError struct {
	Resource string
}

func (e *InvalidResourceError) Error() string {
	return fmt.Sprintf("invalid tracking-service resource %q", e.Resource)
}

// FetchError is a network or HTTP failure from the tracking service.
// Recoverable: the caller leaves the date unresolved and retries on a later
// run.
type FetchError struct {
	Resource string
	Date     string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s for %s: %v", e.Resource, e.Date, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// TokenSource supplies a valid access token for the tracked user. The
// pipeline treats the credential as read-only; refresh is the source's
// concern.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// StaticTokenSource returns a TokenSource that always yields tok.
func StaticTokenSource(tok string) TokenSource {
	return staticTokenSource(tok)
}

type staticTokenSource string

func (s staticTokenSource) AccessToken(ctx context.Context) (string, error) {
	return string(s), nil
}

// Config holds client tunables.
type Config struct {
	BaseURL string
	Tokens  TokenSource
	Timeout time.Duration
}

// Client is an authenticated tracking-service API client.
type Client struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
}

// NewClient creates a tracking-service client with a bounded per-call
// timeout.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		tokens:  cfg.Tokens,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// FetchOptions tune a daily-resource fetch.
type FetchOptions struct {
	// TrackPoints asks the service to include GPS fixes (storyline only).
	TrackPoints bool
	// UpdateSince limits the response to data updated after the given time.
	UpdateSince *time.Time
}

// resourcePath builds the service path for a daily resource. The updateSince
// filter uses the service's non-standard `updateSince>T{ts}Z` form.
func resourcePath(resource, date string, opts FetchOptions) string {
	path := fmt.Sprintf("/user/%s/daily/%s?", resource, date)
	if opts.TrackPoints {
		path = fmt.Sprintf("%s&trackPoints=true", path)
	}
	if opts.UpdateSince != nil {
		path = fmt.Sprintf("%s&updateSince>T%sZ", path, opts.UpdateSince.UTC().Format("20060102T150405"))
	}
	return path
}

// FetchDaily fetches one daily resource for a date (YYYY-MM-DD). The raw
// JSON payload is returned; storyline callers use FetchStoryline for the
// decoded form.
func (c *Client) FetchDaily(ctx context.Context, resource, date string, opts FetchOptions) ([]byte, error) {
	if !validResources[resource] {
		return nil, &InvalidResourceError{Resource: resource}
	}

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, &FetchError{Resource: resource, Date: date, Err: fmt.Errorf("access token: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+resourcePath(resource, date, opts), nil)
	if err != nil {
		return nil, &FetchError{Resource: resource, Date: date, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{Resource: resource, Date: date, Err: err}
	}
	defer resp.Body.Close()

	if err := httputil.ParseErrorResponse(resp); err != nil {
		return nil, &FetchError{Resource: resource, Date: date, Err: err}
	}

	var buf json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&buf); err != nil {
		return nil, &FetchError{Resource: resource, Date: date, Err: fmt.Errorf("decode response: %w", err)}
	}
	return buf, nil
}

// FetchStoryline fetches the storyline for a date with track points included.
func (c *Client) FetchStoryline(ctx context.Context, date string, updateSince *time.Time) ([]types.Storyline, error) {
	raw, err := c.FetchDaily(ctx, "storyline", date, FetchOptions{TrackPoints: true, UpdateSince: updateSince})
	if err != nil {
		return nil, err
	}

	var storylines []types.Storyline
	if err := json.Unmarshal(raw, &storylines); err != nil {
		return nil, &FetchError{Resource: "storyline", Date: date, Err: fmt.Errorf("decode storyline: %w", err)}
	}
	return storylines, nil
}
