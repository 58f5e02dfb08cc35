package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"course-storefront/internal/domain"
	"course-storefront/internal/httpx"
)

// ErrNoSession is returned by CheckSession when the backend has no session
// for the forwarded cookie.
var ErrNoSession = errors.New("marketplace: no active session")

// Client talks to the marketplace REST API. Calls that need the backend
// session read its cookie from the context (see WithCookie).
type Client struct {
	BaseURL string
	HTTP    *http.Client

	// Retry applies to idempotent reads. Writes are sent once.
	Retry httpx.RetryConfig
}

func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = httpx.NewClient(httpx.ClientOptions{})
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    hc,
		Retry:   httpx.DefaultRetryConfig(),
	}
}

type cookieKey struct{}

// WithCookie attaches the backend session cookie to ctx.
func WithCookie(ctx context.Context, cookie string) context.Context {
	if cookie == "" {
		return ctx
	}
	return context.WithValue(ctx, cookieKey{}, cookie)
}

func cookieFrom(ctx context.Context) string {
	s, _ := ctx.Value(cookieKey{}).(string)
	return s
}

func (c *Client) header(ctx context.Context) http.Header {
	h := http.Header{}
	if ck := cookieFrom(ctx); ck != "" {
		h.Set("Cookie", ck)
	}
	return h
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return httpx.DoJSON(ctx, c.HTTP, httpx.JSONRequest(http.MethodGet, u, nil, c.header(ctx)), out, c.Retry)
}

func (c *Client) send(ctx context.Context, method, path string, q url.Values, body, out any) error {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return httpx.DoJSON(ctx, c.HTTP, httpx.JSONRequest(method, u, body, c.header(ctx)), out, httpx.NoRetry())
}

/* -------- Auth -------- */

type LoginResult struct {
	User domain.User
	// Cookie is the backend session cookie to forward on later calls.
	Cookie string
}

func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	body := map[string]string{"username": username, "password": password}
	resp, raw, err := httpx.DoWithRetry(ctx, c.HTTP,
		httpx.JSONRequest(http.MethodPost, c.BaseURL+"/api/login", body, nil), httpx.NoRetry())
	if err != nil {
		return LoginResult{}, fmt.Errorf("marketplace: login: %w", err)
	}

	user, err := decodeUser(raw)
	if err != nil {
		return LoginResult{}, fmt.Errorf("marketplace: login: %w", err)
	}

	parts := make([]string, 0, 2)
	for _, ck := range resp.Cookies() {
		parts = append(parts, ck.Name+"="+ck.Value)
	}
	return LoginResult{User: user, Cookie: strings.Join(parts, "; ")}, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.send(ctx, http.MethodPost, "/api/logout", nil, nil, nil); err != nil {
		return fmt.Errorf("marketplace: logout: %w", err)
	}
	return nil
}

// CheckSession returns the user bound to the forwarded cookie.
func (c *Client) CheckSession(ctx context.Context) (domain.User, error) {
	_, raw, err := httpx.DoWithRetry(ctx, c.HTTP,
		httpx.JSONRequest(http.MethodGet, c.BaseURL+"/api/check-session", nil, c.header(ctx)), c.Retry)
	if err != nil {
		if httpx.IsStatus(err, http.StatusUnauthorized) {
			return domain.User{}, ErrNoSession
		}
		return domain.User{}, fmt.Errorf("marketplace: check session: %w", err)
	}
	user, err := decodeUser(raw)
	if err != nil {
		return domain.User{}, fmt.Errorf("marketplace: check session: %w", err)
	}
	return user, nil
}

// decodeUser accepts {"user":{...}} or the bare user object.
func decodeUser(raw []byte) (domain.User, error) {
	var env userEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.User{}, fmt.Errorf("decode user: %w", err)
	}
	if env.User != nil {
		return *env.User, nil
	}
	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return domain.User{}, fmt.Errorf("decode user: %w", err)
	}
	if u.ID == 0 && u.Username == "" {
		return domain.User{}, errors.New("decode user: response carries no user")
	}
	return u, nil
}

func (c *Client) Register(ctx context.Context, in RegisterInput) error {
	if err := c.send(ctx, http.MethodPost, "/api/register", nil, in, nil); err != nil {
		return fmt.Errorf("marketplace: register: %w", err)
	}
	return nil
}

func (c *Client) SendContact(ctx context.Context, in ContactInput) error {
	if err := c.send(ctx, http.MethodPost, "/api/contact", nil, in, nil); err != nil {
		return fmt.Errorf("marketplace: contact: %w", err)
	}
	return nil
}

// RequestPasswordReset asks the marketplace to mail a reset link to email.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	if err := c.send(ctx, http.MethodPost, "/api/forgot-password", nil, body, nil); err != nil {
		return fmt.Errorf("marketplace: forgot password: %w", err)
	}
	return nil
}

/* -------- Catalog -------- */

// ListCourses returns the whole internal catalog matching keyword.
func (c *Client) ListCourses(ctx context.Context, keyword string) ([]CourseRecord, error) {
	q := url.Values{}
	q.Set("keyword", keyword)

	var raw json.RawMessage
	if err := c.get(ctx, "/api/getAllCourses", q, &raw); err != nil {
		return nil, fmt.Errorf("marketplace: list courses keyword=%q: %w", keyword, err)
	}
	var out []CourseRecord
	if err := decodeData(raw, &out); err != nil {
		return nil, fmt.Errorf("marketplace: list courses: %w", err)
	}
	return out, nil
}

// GetCourse reads one internal course with its enrollment count. The body
// is {"courseData":{...}}; a bare record is accepted too.
func (c *Client) GetCourse(ctx context.Context, courseID int64) (CourseRecord, error) {
	var raw json.RawMessage
	if err := c.get(ctx, fmt.Sprintf("/api/getCourse/%d", courseID), nil, &raw); err != nil {
		return CourseRecord{}, fmt.Errorf("marketplace: get course=%d: %w", courseID, err)
	}

	var env struct {
		CourseData *CourseRecord `json:"courseData"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return CourseRecord{}, fmt.Errorf("marketplace: get course=%d: %w", courseID, err)
	}
	if env.CourseData != nil {
		return *env.CourseData, nil
	}
	var out CourseRecord
	if err := decodeData(raw, &out); err != nil {
		return CourseRecord{}, fmt.Errorf("marketplace: get course=%d: %w", courseID, err)
	}
	if out.CourseID == 0 {
		return CourseRecord{}, fmt.Errorf("marketplace: get course=%d: response carries no course", courseID)
	}
	return out, nil
}

func (c *Client) IsEnrolled(ctx context.Context, courseID, userID int64) (bool, error) {
	q := url.Values{}
	q.Set("userId", strconv.FormatInt(userID, 10))

	var out struct {
		IsEnrolled bool `json:"isEnrolled"`
	}
	path := fmt.Sprintf("/api/courses/%d/enrollment-check", courseID)
	if err := c.get(ctx, path, q, &out); err != nil {
		return false, fmt.Errorf("marketplace: enrollment check course=%d: %w", courseID, err)
	}
	return out.IsEnrolled, nil
}

/* -------- Reviews -------- */

// PostReview posts to the internal or external review endpoint depending on
// whether in.ExternalReferenceNumber is set, and returns the server id.
func (c *Client) PostReview(ctx context.Context, courseID int64, in ReviewInput) (string, error) {
	path := fmt.Sprintf("/api/courses/%d/reviews", courseID)
	if in.ExternalReferenceNumber != "" {
		path = "/api/courses/reviews"
	}

	var out struct {
		ReviewID ID `json:"reviewId"`
	}
	if err := c.send(ctx, http.MethodPost, path, nil, in, &out); err != nil {
		return "", fmt.Errorf("marketplace: post review: %w", err)
	}
	if out.ReviewID == "" {
		return "", errors.New("marketplace: post review: response carries no reviewId")
	}
	return string(out.ReviewID), nil
}

func (c *Client) ListReviews(ctx context.Context, key domain.CourseKey) ([]ReviewRecord, error) {
	path := "/api/courses/" + url.PathEscape(key.ID) + "/reviews"
	var q url.Values
	if key.Source == domain.SourceExternal {
		path = "/api/courses/reviews"
		q = url.Values{}
		q.Set("externalReferenceNumber", key.ID)
	}

	var raw json.RawMessage
	if err := c.get(ctx, path, q, &raw); err != nil {
		return nil, fmt.Errorf("marketplace: list reviews %s: %w", key, err)
	}
	var out []ReviewRecord
	if err := decodeData(raw, &out); err != nil {
		return nil, fmt.Errorf("marketplace: list reviews %s: %w", key, err)
	}
	return out, nil
}

/* -------- Provider management -------- */

func creatorQuery(creatorID int64) url.Values {
	q := url.Values{}
	q.Set("creator_id", strconv.FormatInt(creatorID, 10))
	return q
}

func (c *Client) ProviderCourses(ctx context.Context, creatorID int64) ([]CourseRecord, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/api/providerCourses", creatorQuery(creatorID), &raw); err != nil {
		return nil, fmt.Errorf("marketplace: provider courses creator=%d: %w", creatorID, err)
	}
	var out []CourseRecord
	if err := decodeData(raw, &out); err != nil {
		return nil, fmt.Errorf("marketplace: provider courses: %w", err)
	}
	return out, nil
}

func (c *Client) CreateCourse(ctx context.Context, in CourseInput) (CourseRecord, error) {
	var raw json.RawMessage
	if err := c.send(ctx, http.MethodPost, "/api/createCourse", nil, in, &raw); err != nil {
		return CourseRecord{}, fmt.Errorf("marketplace: create course: %w", err)
	}
	var out CourseRecord
	if err := decodeData(raw, &out); err != nil {
		return CourseRecord{}, fmt.Errorf("marketplace: create course: %w", err)
	}
	return out, nil
}

func (c *Client) UpdateCourse(ctx context.Context, courseID int64, in CourseInput) error {
	path := fmt.Sprintf("/api/providerUpdateCourse/%d", courseID)
	if err := c.send(ctx, http.MethodPut, path, creatorQuery(in.CreatorID), in, nil); err != nil {
		return fmt.Errorf("marketplace: update course=%d: %w", courseID, err)
	}
	return nil
}

func (c *Client) DeleteCourse(ctx context.Context, courseID, creatorID int64) error {
	path := fmt.Sprintf("/api/providerDeleteCourse/%d", courseID)
	if err := c.send(ctx, http.MethodDelete, path, creatorQuery(creatorID), nil, nil); err != nil {
		return fmt.Errorf("marketplace: delete course=%d: %w", courseID, err)
	}
	return nil
}

func (c *Client) ProviderEnrollments(ctx context.Context, creatorID int64) ([]EnrollmentRecord, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/api/providerEnrollments", creatorQuery(creatorID), &raw); err != nil {
		return nil, fmt.Errorf("marketplace: provider enrollments creator=%d: %w", creatorID, err)
	}
	var out []EnrollmentRecord
	if err := decodeData(raw, &out); err != nil {
		return nil, fmt.Errorf("marketplace: provider enrollments: %w", err)
	}
	return out, nil
}

// decodeData unwraps {"data": X} when present, otherwise decodes raw as X.
func decodeData(raw json.RawMessage, out any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if raw[0] == '{' {
		var env map[string]json.RawMessage
		if err := json.Unmarshal(raw, &env); err != nil {
			return err
		}
		if data, ok := env["data"]; ok {
			if d := bytes.TrimSpace(data); len(d) == 0 || string(d) == "null" {
				return nil
			}
			return json.Unmarshal(data, out)
		}
	}
	return json.Unmarshal(raw, out)
}
