package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestSessionFromUser(t *testing.T) {
	testCases := []struct {
		role string
		want Role
	}{
		{"learner", RoleLearner},
		{"Provider", RoleProvider},
		{" ADMIN ", RoleAdmin},
	}

	for _, tc := range testCases {
		s, err := SessionFromUser(User{ID: 7, Username: "jdoe", Role: tc.role, Avatar: "a.png"})
		if err != nil {
			t.Fatalf("role %q: unexpected error %v", tc.role, err)
		}
		if s.Role() != tc.want {
			t.Errorf("role %q: got %q, want %q", tc.role, s.Role(), tc.want)
		}
		id, ok := IdentityOf(s)
		if !ok || id.UserID != 7 || id.Username != "jdoe" || id.Avatar != "a.png" {
			t.Errorf("role %q: identity = %+v, ok=%v", tc.role, id, ok)
		}
	}
}

func TestSessionFromUserRejectsUnknownRole(t *testing.T) {
	for _, role := range []string{"", "superuser", "guest"} {
		if _, err := SessionFromUser(User{ID: 1, Role: role}); err == nil {
			t.Errorf("Expected role %q to be rejected", role)
		}
	}
}

func TestIdentityOfGuest(t *testing.T) {
	if _, ok := IdentityOf(GuestSession{}); ok {
		t.Error("Expected guest to have no identity")
	}
	if _, ok := IdentityOf(nil); ok {
		t.Error("Expected nil session to have no identity")
	}
	if IsAuthenticated(GuestSession{}) {
		t.Error("Expected guest to be unauthenticated")
	}
	if !IsAuthenticated(LearnerSession{Identity{UserID: 1}}) {
		t.Error("Expected learner to be authenticated")
	}
}

func TestErrorHelpers(t *testing.T) {
	verr := NewValidationError("rating", "must be between 1 and 5")
	if !IsValidation(fmt.Errorf("submit: %w", verr)) {
		t.Error("Expected wrapped ValidationError to match")
	}
	if verr.Error() != "validation failed: rating: must be between 1 and 5" {
		t.Errorf("ValidationError.Error() = %q", verr.Error())
	}

	nerr := &NetworkError{Op: "enrollment check", Err: errors.New("connection refused")}
	if !IsNetwork(nerr) || !errors.Is(nerr, nerr.Err) {
		t.Error("Expected NetworkError to match and unwrap")
	}
	if nerr.Error() != "enrollment check: connection refused" {
		t.Errorf("NetworkError.Error() = %q", nerr.Error())
	}

	if !IsAuthRequired(&AuthRequiredError{Action: "enroll"}) {
		t.Error("Expected AuthRequiredError to match")
	}
	if (&AuthRequiredError{Action: "enroll"}).Error() != "login required to enroll" {
		t.Error("Unexpected AuthRequiredError message")
	}

	if !IsNotFound(&NotFoundError{What: "course", ID: "internal:1"}) {
		t.Error("Expected NotFoundError to match")
	}
	if (&NotFoundError{What: "checkout selection"}).Error() != "checkout selection not found" {
		t.Error("Unexpected NotFoundError message")
	}
}
