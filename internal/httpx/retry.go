package httpx

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Retry5xx retries every 5xx status on top of RetryStatuses.
	Retry5xx      bool
	RetryStatuses map[int]bool
}

// DefaultRetryConfig is tuned for calls made while a browser request waits:
// few attempts, short backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    4 * time.Second,
		Retry5xx:    true,
		RetryStatuses: map[int]bool{
			http.StatusTooManyRequests:    true,
			http.StatusRequestTimeout:     true,
			http.StatusServiceUnavailable: true,
			http.StatusBadGateway:         true,
			http.StatusGatewayTimeout:     true,
		},
	}
}

// NoRetry performs exactly one attempt. Used for non-idempotent writes
// (review posts, course creation, login).
func NoRetry() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = 1
	return cfg
}

// WithAttempts returns a copy of cfg with MaxAttempts replaced when n > 0.
func (cfg RetryConfig) WithAttempts(n int) RetryConfig {
	if n > 0 {
		cfg.MaxAttempts = n
	}
	return cfg
}

// normalized fills zero fields from DefaultRetryConfig.
func (cfg RetryConfig) normalized() RetryConfig {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.RetryStatuses == nil {
		cfg.RetryStatuses = def.RetryStatuses
	}
	return cfg
}

// DoWithRetry sends the request built by buildReq until it succeeds, fails
// with a non-retryable error or runs out of attempts. buildReq is called once
// per attempt so bodies are fresh. The last response and error are returned
// as is; a non-2xx status comes back as *HTTPError.
func DoWithRetry(
	ctx context.Context,
	client *http.Client,
	buildReq func(context.Context) (*http.Request, error),
	cfg RetryConfig,
) (*http.Response, []byte, error) {
	cfg = cfg.normalized()

	for attempt := 1; ; attempt++ {
		req, err := buildReq(ctx)
		if err != nil {
			return nil, nil, err
		}

		resp, body, err := roundTrip(client, req)
		retry, retryAfter := cfg.shouldRetry(err)
		if !retry || attempt >= cfg.MaxAttempts {
			return resp, body, err
		}
		if err := pause(ctx, cfg.backoff(attempt, retryAfter)); err != nil {
			return nil, nil, err
		}
	}
}

// roundTrip sends req once and drains the body so the connection can be
// reused.
func roundTrip(client *http.Client, req *http.Request) (*http.Response, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}

	body, err := readAndClose(resp.Body)
	if err != nil {
		return resp, body, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, body, &HTTPError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       body,
		}
	}
	return resp, body, nil
}

func readAndClose(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()
	return io.ReadAll(rc)
}

// shouldRetry classifies the outcome of one attempt. For HTTP errors the
// server's Retry-After is returned as well.
func (cfg RetryConfig) shouldRetry(err error) (bool, time.Duration) {
	if err == nil {
		return false, 0
	}
	var herr *HTTPError
	if errors.As(err, &herr) {
		return cfg.retryableStatus(herr.StatusCode), retryAfter(herr.Header)
	}
	return transient(err), 0
}

func (cfg RetryConfig) retryableStatus(code int) bool {
	if cfg.RetryStatuses[code] {
		return true
	}
	return cfg.Retry5xx && code >= 500 && code <= 599
}

var transientMessages = []string{"connection reset", "connection refused", "broken pipe", "eof"}

// transient reports whether a transport error is worth another attempt.
// Cancellation never is; deadlines and timeouts are.
func transient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// backoff doubles BaseDelay per attempt and adds up to 200ms of jitter. A
// positive retryAfter from the server replaces it. Both are capped at
// MaxDelay.
func (cfg RetryConfig) backoff(attempt int, retryAfter time.Duration) time.Duration {
	d := retryAfter
	if d <= 0 {
		d = min(cfg.BaseDelay<<(attempt-1), cfg.MaxDelay)
		d += time.Duration(rand.Intn(200)) * time.Millisecond
	}
	return min(d, cfg.MaxDelay)
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ParseRetryAfter reads the Retry-After header as seconds or an HTTP date.
// Missing, invalid or past values yield 0.
func ParseRetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	return retryAfter(resp.Header)
}

func retryAfter(h http.Header) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
