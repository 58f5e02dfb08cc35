package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ValidationError holds field -> message pairs shown inline next to inputs.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AuthRequiredError means the action needs a logged-in session. The browser
// shows a login prompt rather than an error page.
type AuthRequiredError struct {
	Action string
}

func (e *AuthRequiredError) Error() string {
	if e.Action == "" {
		return "login required"
	}
	return "login required to " + e.Action
}

// NetworkError wraps a failed call to an upstream API.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

// NotFoundError reports an absent course, selection or session.
type NotFoundError struct {
	What string
	ID   string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.What + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.What, e.ID)
}

// ErrForbidden is returned when the session role may not perform an action.
var ErrForbidden = errors.New("forbidden for this role")

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsAuthRequired(err error) bool {
	var v *AuthRequiredError
	return errors.As(err, &v)
}

func IsNetwork(err error) bool {
	var v *NetworkError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var v *NotFoundError
	return errors.As(err, &v)
}
