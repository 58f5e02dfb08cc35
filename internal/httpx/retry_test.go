package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

const exampleURL = "https://marketplace.test/api/getAllCourses"

type mockRoundTripper struct {
	mu        sync.Mutex
	responses []*http.Response
	errors    []error
	bodies    []string
	index     int
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		m.bodies = append(m.bodies, string(b))
	}

	if m.index >= len(m.responses) {
		return nil, errors.New("no more responses")
	}
	resp, err := m.responses[m.index], m.errors[m.index]
	m.index++
	return resp, err
}

func (m *mockRoundTripper) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

func newMockClient(responses []*http.Response, errs []error) (*http.Client, *mockRoundTripper) {
	for len(errs) < len(responses) {
		errs = append(errs, nil)
	}
	rt := &mockRoundTripper{responses: responses, errors: errs}
	return &http.Client{Transport: rt}, rt
}

func newMockResponse(statusCode int, body string, headers map[string]string) *http.Response {
	header := http.Header{}
	for k, v := range headers {
		header.Set(k, v)
	}
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     header,
	}
}

func getRequest(ctx context.Context) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodGet, exampleURL, nil)
}

func fastRetry(attempts int) RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = attempts
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	return cfg
}

func TestDoWithRetrySuccess(t *testing.T) {
	client, _ := newMockClient([]*http.Response{newMockResponse(200, `{"data":[]}`, nil)}, nil)

	resp, body, err := DoWithRetry(context.Background(), client, getRequest, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected status code 200, got %d", resp.StatusCode)
	}
	if string(body) != `{"data":[]}` {
		t.Errorf("Expected body %q, got %q", `{"data":[]}`, string(body))
	}
}

func TestDoWithRetryBuildReqError(t *testing.T) {
	client, rt := newMockClient(nil, nil)

	buildReq := func(ctx context.Context) (*http.Request, error) {
		return nil, errors.New("request build error")
	}

	_, _, err := DoWithRetry(context.Background(), client, buildReq, DefaultRetryConfig())
	if err == nil || !strings.Contains(err.Error(), "request build error") {
		t.Errorf("Expected request build error, got %v", err)
	}
	if rt.calls() != 0 {
		t.Errorf("Expected no round trips, got %d", rt.calls())
	}
}

func TestDoWithRetryNonRetryableError(t *testing.T) {
	client, rt := newMockClient([]*http.Response{nil}, []error{errors.New("tls: bad certificate")})

	_, _, err := DoWithRetry(context.Background(), client, getRequest, fastRetry(3))
	if err == nil || !strings.Contains(err.Error(), "bad certificate") {
		t.Errorf("Expected tls error, got %v", err)
	}
	if rt.calls() != 1 {
		t.Errorf("Expected a single attempt, got %d", rt.calls())
	}
}

func TestDoWithRetryRetryableNetError(t *testing.T) {
	client, rt := newMockClient(
		[]*http.Response{nil, newMockResponse(200, `ok`, nil)},
		[]error{errors.New("read: connection reset by peer"), nil},
	)

	_, body, err := DoWithRetry(context.Background(), client, getRequest, fastRetry(3))
	if err != nil {
		t.Fatalf("Expected success after retry, got %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("Expected body ok, got %q", body)
	}
	if rt.calls() != 2 {
		t.Errorf("Expected 2 attempts, got %d", rt.calls())
	}
}

func TestDoWithRetryRetryableStatus(t *testing.T) {
	client, _ := newMockClient([]*http.Response{
		newMockResponse(429, `{"error":"rate limited"}`, map[string]string{"Retry-After": "0"}),
		newMockResponse(200, `{"success":true}`, nil),
	}, nil)

	resp, body, err := DoWithRetry(context.Background(), client, getRequest, fastRetry(3))
	if err != nil {
		t.Fatalf("Expected no error after retry, got %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected status code 200, got %d", resp.StatusCode)
	}
	if string(body) != `{"success":true}` {
		t.Errorf("Unexpected body %q", body)
	}
}

func TestDoWithRetryMaxAttemptsExceeded(t *testing.T) {
	client, rt := newMockClient([]*http.Response{
		newMockResponse(500, `{"error":"server error"}`, nil),
		newMockResponse(500, `{"error":"server error"}`, nil),
	}, nil)

	_, _, err := DoWithRetry(context.Background(), client, getRequest, fastRetry(2))
	if err == nil {
		t.Fatal("Expected error after max attempts, got nil")
	}

	var herr *HTTPError
	if !errors.As(err, &herr) {
		t.Fatalf("Expected HTTPError, got %T", err)
	}
	if herr.StatusCode != 500 {
		t.Errorf("Expected status code 500, got %d", herr.StatusCode)
	}
	if rt.calls() != 2 {
		t.Errorf("Expected 2 attempts, got %d", rt.calls())
	}
}

func TestDoWithRetryClientErrorNotRetried(t *testing.T) {
	client, rt := newMockClient([]*http.Response{
		newMockResponse(404, `{"message":"not found"}`, nil),
		newMockResponse(200, `unused`, nil),
	}, nil)

	_, _, err := DoWithRetry(context.Background(), client, getRequest, fastRetry(3))
	if !IsStatus(err, 404) {
		t.Errorf("Expected 404 HTTPError, got %v", err)
	}
	if rt.calls() != 1 {
		t.Errorf("Expected a single attempt, got %d", rt.calls())
	}
}

func TestDoWithRetryNoRetryConfig(t *testing.T) {
	client, rt := newMockClient([]*http.Response{
		newMockResponse(503, `busy`, nil),
		newMockResponse(200, `unused`, nil),
	}, nil)

	_, _, err := DoWithRetry(context.Background(), client, getRequest, NoRetry())
	if !IsStatus(err, 503) {
		t.Errorf("Expected 503 HTTPError, got %v", err)
	}
	if rt.calls() != 1 {
		t.Errorf("Expected a single attempt, got %d", rt.calls())
	}
}

func TestDoWithRetryDefaultsZeroConfig(t *testing.T) {
	client, _ := newMockClient([]*http.Response{newMockResponse(200, `{}`, nil)}, nil)

	if _, _, err := DoWithRetry(context.Background(), client, getRequest, RetryConfig{}); err != nil {
		t.Errorf("Expected no error with zero config, got %v", err)
	}
}

func TestDoJSON(t *testing.T) {
	client, _ := newMockClient([]*http.Response{
		newMockResponse(200, `{"name":"Go Basics","price":120}`, nil),
	}, nil)

	var result struct {
		Name  string `json:"name"`
		Price int    `json:"price"`
	}
	if err := DoJSON(context.Background(), client, getRequest, &result, DefaultRetryConfig()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Name != "Go Basics" || result.Price != 120 {
		t.Errorf("Unexpected result %+v", result)
	}
}

func TestDoJSONEmptyBodyAndNilOutput(t *testing.T) {
	client, _ := newMockClient([]*http.Response{
		newMockResponse(204, ``, nil),
		newMockResponse(200, `{"ignored":true}`, nil),
	}, nil)

	var out map[string]any
	if err := DoJSON(context.Background(), client, getRequest, &out, DefaultRetryConfig()); err != nil {
		t.Errorf("Expected no error for empty body, got %v", err)
	}
	if err := DoJSON(context.Background(), client, getRequest, nil, DefaultRetryConfig()); err != nil {
		t.Errorf("Expected no error with nil output, got %v", err)
	}
}

func TestDoJSONInvalidJSON(t *testing.T) {
	client, _ := newMockClient([]*http.Response{newMockResponse(200, `{"name": invalid}`, nil)}, nil)

	var result struct{ Name string }
	err := DoJSON(context.Background(), client, getRequest, &result, DefaultRetryConfig())
	if err == nil || !strings.Contains(err.Error(), "json parse error") {
		t.Errorf("Expected json parse error, got %v", err)
	}
}

func TestJSONRequestResendsBodyOnRetry(t *testing.T) {
	client, rt := newMockClient([]*http.Response{
		newMockResponse(502, `bad gateway`, nil),
		newMockResponse(200, `{}`, nil),
	}, nil)

	header := http.Header{}
	header.Set("Cookie", "connect.sid=abc")
	build := JSONRequest(http.MethodPost, exampleURL, map[string]any{"rating": 4}, header)

	if _, _, err := DoWithRetry(context.Background(), client, build, fastRetry(2)); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if len(rt.bodies) != 2 {
		t.Fatalf("Expected 2 request bodies, got %d", len(rt.bodies))
	}
	for i, b := range rt.bodies {
		if b != `{"rating":4}` {
			t.Errorf("attempt %d body = %q", i+1, b)
		}
	}

	req, err := build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if req.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", req.Header.Get("Content-Type"))
	}
	if req.Header.Get("Cookie") != "connect.sid=abc" {
		t.Errorf("Cookie header not forwarded: %q", req.Header.Get("Cookie"))
	}
}

func TestJSONRequestEncodeError(t *testing.T) {
	build := JSONRequest(http.MethodPost, exampleURL, map[string]any{"bad": make(chan int)}, nil)
	if _, err := build(context.Background()); err == nil {
		t.Error("Expected encode error")
	}
}

func TestBackoff(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 5 * time.Millisecond, MaxDelay: 500 * time.Millisecond}
	if d := cfg.backoff(1, 0); d < 5*time.Millisecond || d > 205*time.Millisecond {
		t.Errorf("backoff(1) = %v, want 5ms plus jitter", d)
	}
	if d := cfg.backoff(3, 0); d < 20*time.Millisecond {
		t.Errorf("backoff(3) = %v, want at least 20ms", d)
	}
	if d := cfg.backoff(1, 30*time.Millisecond); d != 30*time.Millisecond {
		t.Errorf("Expected Retry-After to win, got %v", d)
	}

	capped := RetryConfig{BaseDelay: 50 * time.Millisecond, MaxDelay: 60 * time.Millisecond}
	if d := capped.backoff(4, 0); d != 60*time.Millisecond {
		t.Errorf("Expected backoff capped at 60ms, got %v", d)
	}
	if d := capped.backoff(1, time.Minute); d != 60*time.Millisecond {
		t.Errorf("Expected Retry-After capped at 60ms, got %v", d)
	}
}

func TestPause(t *testing.T) {
	start := time.Now()
	if err := pause(context.Background(), 5*time.Millisecond); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if d := time.Since(start); d < 5*time.Millisecond {
		t.Errorf("Expected pause of at least 5ms, got %v", d)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pause(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled error, got %v", err)
	}
}

func TestShouldRetry(t *testing.T) {
	cfg := DefaultRetryConfig()

	h := http.Header{}
	h.Set("Retry-After", "2")
	retry, wait := cfg.shouldRetry(fmt.Errorf("wrapped: %w", &HTTPError{StatusCode: 503, Header: h}))
	if !retry || wait != 2*time.Second {
		t.Errorf("503 with Retry-After: retry=%v wait=%v", retry, wait)
	}

	if retry, _ := cfg.shouldRetry(&HTTPError{StatusCode: 404}); retry {
		t.Error("Expected 404 not to be retried")
	}
	if retry, _ := cfg.shouldRetry(nil); retry {
		t.Error("Expected success not to be retried")
	}
	if retry, _ := cfg.shouldRetry(errors.New("read: connection reset by peer")); !retry {
		t.Error("Expected connection reset to be retried")
	}
}

func TestReadAndClose(t *testing.T) {
	data, err := readAndClose(io.NopCloser(strings.NewReader("test data")))
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if string(data) != "test data" {
		t.Errorf("Expected %q, got %q", "test data", string(data))
	}
}
