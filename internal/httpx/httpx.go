package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPError is returned for every non-2xx response. Body holds the whole
// response body; Error() prints a trimmed snippet of it.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: %s %s status=%d body=%s", e.Method, e.URL, e.StatusCode, snippet(e.Body, 600))
}

// StatusCode returns the status of the first *HTTPError in err's chain, or 0.
func StatusCode(err error) int {
	var herr *HTTPError
	if errors.As(err, &herr) {
		return herr.StatusCode
	}
	return 0
}

// IsStatus reports whether err wraps an *HTTPError with the given status.
func IsStatus(err error, code int) bool {
	return StatusCode(err) == code
}

func snippet(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// DoJSON runs DoWithRetry and decodes the body into out. An empty body or a
// nil out is not an error.
func DoJSON(
	ctx context.Context,
	client *http.Client,
	buildReq func(context.Context) (*http.Request, error),
	out any,
	cfg RetryConfig,
) error {
	_, body, err := DoWithRetry(ctx, client, buildReq, cfg)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("json parse error: %w body=%s", err, snippet(body, 600))
	}
	return nil
}

// JSONRequest returns a request builder for DoWithRetry. body is marshaled
// once; every attempt gets a fresh reader over the same bytes. A nil body
// sends no payload.
func JSONRequest(method, url string, body any, header http.Header) func(context.Context) (*http.Request, error) {
	var (
		payload []byte
		encErr  error
	)
	if body != nil {
		payload, encErr = json.Marshal(body)
	}

	return func(ctx context.Context) (*http.Request, error) {
		if encErr != nil {
			return nil, fmt.Errorf("encode request body: %w", encErr)
		}
		var r io.Reader
		if payload != nil {
			r = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, r)
		if err != nil {
			return nil, err
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	}
}
