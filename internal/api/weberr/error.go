package weberr

import (
	"errors"
	"net/http"

	"course-storefront/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`

	// Fields carries per-input messages shown inline next to form fields.
	Fields map[string]string `json:"fields,omitempty"`

	// Login asks the browser to show the login prompt.
	Login bool `json:"login,omitempty"`
}

type RequestError struct {
	Err error
}

func (r *RequestError) Error() string { return r.Err.Error() }

func (e *RequestError) Unwrap() error { return e.Err }

func NewError(err error, msg string, status int, opts ...Opt) error {
	e := &RequestError{Err: err}
	opts = append(opts, WithResponse(
		&ErrorResponse{Error: msg},
		status,
	))

	return Wrap(e, opts...)
}

func NotFound(err error, opts ...Opt) error {
	return NewError(err, "the course could not be found", http.StatusNotFound, opts...)
}

// NotAuthorized rejects a login attempt.
func NotAuthorized(err error, opts ...Opt) error {
	return NewError(err, "invalid username or password", http.StatusUnauthorized, opts...)
}

func Forbidden(err error, opts ...Opt) error {
	return NewError(err, "not allowed for this account", http.StatusForbidden, opts...)
}

func BadRequest(err error, opts ...Opt) error {
	return NewError(err, "malformed request body", http.StatusBadRequest, opts...)
}

// Classify maps the domain error taxonomy to a response. Errors outside it
// report ok=false.
func Classify(err error) (body *ErrorResponse, status int, ok bool) {
	var (
		verr *domain.ValidationError
		aerr *domain.AuthRequiredError
		nerr *domain.NotFoundError
		werr *domain.NetworkError
	)
	switch {
	case errors.As(err, &verr):
		return &ErrorResponse{Error: "validation failed", Fields: verr.Fields}, http.StatusBadRequest, true
	case errors.As(err, &aerr):
		return &ErrorResponse{Error: aerr.Error(), Login: true}, http.StatusUnauthorized, true
	case errors.Is(err, domain.ErrForbidden):
		return &ErrorResponse{Error: "not allowed for this account"}, http.StatusForbidden, true
	case errors.As(err, &nerr):
		return &ErrorResponse{Error: nerr.Error()}, http.StatusNotFound, true
	case errors.As(err, &werr):
		return &ErrorResponse{Error: "the course service is unavailable, please try again"}, http.StatusBadGateway, true
	}
	return nil, 0, false
}
