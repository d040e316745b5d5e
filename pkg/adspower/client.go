package adspower

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ev28032024/Guide-RPA-Discord-Login/pkg/logging"
	"github.com/ev28032024/Guide-RPA-Discord-Login/pkg/metrics"
)

// Defaults for a Client when the corresponding Config field is zero.
const (
	DefaultTimeout          = 10 * time.Second
	DefaultThrottleInterval = 1500 * time.Millisecond
	DefaultRetryMax         = 3
	DefaultBackoffBase      = 750 * time.Millisecond
	DefaultBackoffCap       = 5 * time.Second
)

// Config configures a Client.
type Config struct {
	// BaseURL is the root of the local AdsPower API, without trailing slash.
	BaseURL string

	// APIKey, when non-empty, is attached to every request.
	APIKey string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// ThrottleInterval is the global minimum spacing between any two
	// requests, shared by every caller of this client.
	ThrottleInterval time.Duration

	// RetryMax is the total number of attempts for one call.
	RetryMax int

	// BackoffBase and BackoffCap bound the retry delay curve.
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

// Client issues rate-limited, retrying requests against the AdsPower API.
// All methods are safe for concurrent use; the throttle state is the single
// piece of cross-goroutine shared state and is guarded by one mutex.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client

	retryMax    int
	interval    time.Duration
	backoffBase time.Duration
	backoffCap  time.Duration

	log *logging.Logger
	m   *metrics.Metrics

	mu          sync.Mutex
	nextAllowed time.Time

	closeOnce sync.Once
}

// NewClient creates a client for the given API. Zero Config fields fall back
// to the package defaults.
func NewClient(cfg Config, log *logging.Logger, m *metrics.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ThrottleInterval <= 0 {
		cfg.ThrottleInterval = DefaultThrottleInterval
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = DefaultRetryMax
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = DefaultBackoffCap
	}
	if m == nil {
		m = metrics.New()
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		http:        &http.Client{Timeout: cfg.Timeout},
		retryMax:    cfg.RetryMax,
		interval:    cfg.ThrottleInterval,
		backoffBase: cfg.BackoffBase,
		backoffCap:  cfg.BackoffCap,
		log:         log,
		m:           m,
	}
}

// Close releases the client's idle connections. Safe to call multiple times.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.http.CloseIdleConnections()
	})
}

// ListProfiles fetches one page of the full profile list. An API failure is
// logged and yields an empty list; the error is non-nil only on cancellation.
func (c *Client) ListProfiles(ctx context.Context, page, pageSize int) ([]Profile, error) {
	params := url.Values{
		"page":      {strconv.Itoa(page)},
		"page_size": {strconv.Itoa(pageSize)},
	}
	resp, err := c.call(ctx, http.MethodGet, "/api/v1/user/list", params, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		c.log.Warnf("AdsPower /api/v1/user/list error: %s", resp.Msg)
		return nil, nil
	}

	var data struct {
		List []Profile `json:"list"`
	}
	if err := decodeData(resp.Data, &data); err != nil {
		c.log.Warnf("AdsPower /api/v1/user/list bad payload: %v", err)
		return nil, nil
	}
	return data.List, nil
}

// ListActiveProfiles fetches the currently running profiles. An API failure
// is logged and yields an empty list; the error is non-nil only on
// cancellation.
func (c *Client) ListActiveProfiles(ctx context.Context) ([]ActiveProfile, error) {
	resp, err := c.call(ctx, http.MethodGet, "/api/v1/browser/local-active", nil, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		c.log.Warnf("AdsPower /api/v1/browser/local-active error: %s", resp.Msg)
		return nil, nil
	}

	var data struct {
		List []ActiveProfile `json:"list"`
	}
	if err := decodeData(resp.Data, &data); err != nil {
		c.log.Warnf("AdsPower /api/v1/browser/local-active bad payload: %v", err)
		return nil, nil
	}
	return data.List, nil
}

// ProfileStatus queries the liveness of one profile. A non-zero Code in the
// result means the query failed; callers treat that the same as an inactive
// profile.
func (c *Client) ProfileStatus(ctx context.Context, userID string) (StatusResult, error) {
	params := url.Values{"user_id": {userID}}
	resp, err := c.call(ctx, http.MethodGet, "/api/v1/browser/active", params, nil)
	if err != nil {
		return StatusResult{}, err
	}

	result := StatusResult{Code: resp.Code, Msg: resp.Msg}
	if resp.OK() {
		var data struct {
			Status string `json:"status"`
		}
		if err := decodeData(resp.Data, &data); err == nil {
			result.Status = strings.ToLower(data.Status)
		}
	}
	return result, nil
}

// StartProfile asks AdsPower to launch the given profile. Not used by the
// monitoring path but part of the client contract.
func (c *Client) StartProfile(ctx context.Context, userID string) (Response, error) {
	body := map[string]string{"user_id": userID}
	return c.call(ctx, http.MethodPost, "/api/v1/browser/start", nil, body)
}

// call performs one throttled, retried request. The returned error is
// non-nil only for context cancellation; every other failure mode degrades
// to a sentinel Response with a negative code after the retry budget is
// spent.
func (c *Client) call(ctx context.Context, method, path string, params url.Values, body interface{}) (Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.retryMax; attempt++ {
		if err := c.throttle(ctx); err != nil {
			return Response{}, err
		}

		resp, err := c.attempt(ctx, method, path, params, body)
		c.m.APIRequests.Inc()
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			c.log.Errorf("AdsPower %s unexpected: %v", path, err)
			break
		}

		if attempt+1 < c.retryMax {
			delay := backoffWithJitter(c.backoffBase, attempt, c.backoffCap)
			c.log.Warnf("AdsPower %s request error: %v - retry in %.2fs", path, err, delay.Seconds())
			c.m.APIRetries.Inc()
			if err := sleepCtx(ctx, delay); err != nil {
				return Response{}, err
			}
		} else {
			c.log.Warnf("AdsPower %s request error (final): %v", path, err)
		}
	}

	c.m.APIFailures.Inc()
	return Response{Code: -1, Msg: fmt.Sprintf("request failed: %v", lastErr)}, nil
}

// throttle blocks until the global minimum inter-request interval has
// elapsed, then reserves the next slot. The mutex is held across the wait so
// concurrent callers are admitted one at a time.
func (c *Client) throttle(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if wait := c.nextAllowed.Sub(now); wait > 0 {
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
		now = time.Now()
	}
	c.nextAllowed = now.Add(c.interval)
	return nil
}

// attempt issues a single HTTP request. Transport errors and HTTP error
// statuses are returned as-is (retryable); a malformed response body is
// wrapped as permanent.
func (c *Client) attempt(ctx context.Context, method, path string, params url.Values, body interface{}) (Response, error) {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return Response{}, &permanentError{err: err}
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return Response{}, &permanentError{err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Response{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, &permanentError{err: fmt.Errorf("malformed response: %w", err)}
	}
	return out, nil
}

// permanentError marks failures retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// backoffWithJitter returns min(maxDelay, base*2^attempt) plus a uniform
// jitter of at most min(500ms, delay/4).
func backoffWithJitter(base time.Duration, attempt int, maxDelay time.Duration) time.Duration {
	delay := base << uint(attempt)
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}
	jitterMax := delay / 4
	if jitterMax > 500*time.Millisecond {
		jitterMax = 500 * time.Millisecond
	}
	return delay + time.Duration(rand.Float64()*float64(jitterMax))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func decodeData(data json.RawMessage, v interface{}) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}
