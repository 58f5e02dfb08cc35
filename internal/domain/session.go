package domain

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleGuest    Role = "guest"
	RoleLearner  Role = "learner"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// User is the user object returned by the marketplace login and
// check-session endpoints.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
}

// Identity is carried by every authenticated session variant.
type Identity struct {
	UserID   int64
	Username string
	Avatar   string
}

// Session is one of GuestSession, LearnerSession, ProviderSession or
// AdminSession. The set is closed.
type Session interface {
	Role() Role
	session()
}

type GuestSession struct{}

type LearnerSession struct{ Identity }

type ProviderSession struct{ Identity }

type AdminSession struct{ Identity }

func (GuestSession) Role() Role    { return RoleGuest }
func (LearnerSession) Role() Role  { return RoleLearner }
func (ProviderSession) Role() Role { return RoleProvider }
func (AdminSession) Role() Role    { return RoleAdmin }

func (GuestSession) session()    {}
func (LearnerSession) session()  {}
func (ProviderSession) session() {}
func (AdminSession) session()    {}

// SessionFromUser picks the variant for a logged-in user. Unknown roles are
// rejected rather than downgraded to a default.
func SessionFromUser(u User) (Session, error) {
	id := Identity{UserID: u.ID, Username: u.Username, Avatar: u.Avatar}
	switch Role(strings.ToLower(strings.TrimSpace(u.Role))) {
	case RoleLearner:
		return LearnerSession{id}, nil
	case RoleProvider:
		return ProviderSession{id}, nil
	case RoleAdmin:
		return AdminSession{id}, nil
	}
	return nil, fmt.Errorf("unknown role %q for user %d", u.Role, u.ID)
}

// IdentityOf returns the identity of an authenticated session. Guest and nil
// sessions report false.
func IdentityOf(s Session) (Identity, bool) {
	switch v := s.(type) {
	case LearnerSession:
		return v.Identity, true
	case ProviderSession:
		return v.Identity, true
	case AdminSession:
		return v.Identity, true
	}
	return Identity{}, false
}

func IsAuthenticated(s Session) bool {
	_, ok := IdentityOf(s)
	return ok
}
