// Package carbon estimates trip emissions via the external carbon-accounting
// service (Brighter Planet style: one typed resource path per transport mode).
package carbon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	httputil "github.com/carbonpath/server/pkg/infrastructure/http"
)

// resourcePaths maps a predicted transport mode to the service's typed
// resource. Owned here: no other component may interpret mode strings as
// service paths.
var resourcePaths = map[string]string{
	"car":      "automobile_trips.json",
	"subway":   "rail_trips.json?class=commuter",
	"airplane": "flights.json",
	"bus":      "bus_trips.json",
}

// ServiceError reports a failed estimate: network failure, non-success
// status, or a response missing the expected decision path. Recoverable;
// the caller leaves the date unresolved and retries on a later run instead
// of persisting a fabricated value.
type ServiceError struct {
	Mode string
	Err  error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("carbon service (%s): %v", e.Mode, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Config holds the estimator's tunables.
type Config struct {
	BaseURL string
	APIKey  string
	// MinCallInterval paces consecutive external calls; the service has
	// implicit rate expectations. Zero disables pacing (tests).
	MinCallInterval time.Duration
	Timeout         time.Duration
}

// Estimator calls the carbon-accounting service per transport mode and
// distance.
type Estimator struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
}

// NewEstimator creates an estimator with a bounded per-call timeout and a
// pacing limiter.
func NewEstimator(cfg Config) *Estimator {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.MinCallInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.MinCallInterval), 1)
	}
	return &Estimator{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
	}
}

// decisionResponse is the subset of the service response we consume. Value
// is a pointer so an absent decisions.carbon.object.value is distinguishable
// from a literal zero.
type decisionResponse struct {
	Decisions struct {
		Carbon struct {
			Object struct {
				Value *float64 `json:"value"`
			} `json:"object"`
		} `json:"carbon"`
	} `json:"decisions"`
}

// Estimate returns the kilograms of CO2 for a transport of the given mode
// and distance in meters. One retry on transport-level failure, then the
// error surfaces: the run must make forward progress, indefinite retry is
// not an option.
func (e *Estimator) Estimate(ctx context.Context, mode string, distanceMeters float64) (float64, error) {
	path, ok := resourcePaths[mode]
	if !ok {
		return 0, &ServiceError{Mode: mode, Err: fmt.Errorf("no resource path for mode")}
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return 0, &ServiceError{Mode: mode, Err: err}
	}

	reqURL, err := e.buildURL(path, distanceMeters)
	if err != nil {
		return 0, &ServiceError{Mode: mode, Err: err}
	}

	kgs, err := e.fetch(ctx, reqURL)
	if err != nil {
		// Single retry covers transient network blips without stalling the run.
		kgs, err = e.fetch(ctx, reqURL)
	}
	if err != nil {
		return 0, &ServiceError{Mode: mode, Err: err}
	}
	return kgs, nil
}

func (e *Estimator) buildURL(path string, distanceMeters float64) (string, error) {
	u, err := url.Parse(e.cfg.BaseURL + "/" + path)
	if err != nil {
		return "", err
	}
	q := u.Query()
	// The service expects kilometers; activity distances arrive in meters.
	q.Set("distance", strconv.FormatFloat(distanceMeters/1000, 'f', -1, 64))
	q.Set("key", e.cfg.APIKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (e *Estimator) fetch(ctx context.Context, reqURL string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := httputil.ParseErrorResponse(resp); err != nil {
		return 0, err
	}

	var decoded decisionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, fmt.Errorf("decode carbon response: %w", err)
	}
	if decoded.Decisions.Carbon.Object.Value == nil {
		return 0, fmt.Errorf("response missing decisions.carbon.object.value")
	}
	return *decoded.Decisions.Carbon.Object.Value, nil
}
