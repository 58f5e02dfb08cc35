package skillsfuture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"course-storefront/internal/httpx"
)

// PageSize is the fixed page length of the directory endpoint.
const PageSize = 15

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Retry   httpx.RetryConfig
}

func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = httpx.NewClient(httpx.ClientOptions{})
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    hc,
		Retry:   httpx.DefaultRetryConfig(),
	}
}

// ListPage reads one page (1-based) of the directory filtered by keyword.
func (c *Client) ListPage(ctx context.Context, keyword string, page int) ([]Course, error) {
	if page < 1 {
		return nil, fmt.Errorf("skillsfuture: invalid page %d", page)
	}

	u, err := url.Parse(c.BaseURL + "/api/skillsfuture/courses")
	if err != nil {
		return nil, fmt.Errorf("skillsfuture: invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("keyword", keyword)
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()

	_, body, err := httpx.DoWithRetry(ctx, c.HTTP, httpx.JSONRequest(http.MethodGet, u.String(), nil, nil), c.Retry)
	if err != nil {
		return nil, fmt.Errorf("skillsfuture: list page=%d keyword=%q: %w", page, keyword, err)
	}

	courses, err := decodeList(body)
	if err != nil {
		return nil, fmt.Errorf("skillsfuture: decode page=%d: %w", page, err)
	}
	return courses, nil
}

// decodeList accepts {"data":[...]}, {"data":{"courses":[...]}} or a bare array.
func decodeList(body []byte) ([]Course, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	if body[0] == '[' {
		var out []Course
		err := json.Unmarshal(body, &out)
		return out, err
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	if data[0] == '[' {
		var out []Course
		err := json.Unmarshal(data, &out)
		return out, err
	}

	var nested struct {
		Courses []Course `json:"courses"`
	}
	if err := json.Unmarshal(data, &nested); err != nil {
		return nil, err
	}
	return nested.Courses, nil
}
