package navigation

import (
	"fmt"

	"course-storefront/internal/domain"
)

// Action is one entry of the navigation bar.
type Action struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Path  string `json:"path"`
}

var (
	Login    = Action{ID: "login", Label: "Login", Path: "/login"}
	Register = Action{ID: "register", Label: "Register", Path: "/register"}
	Profile  = Action{ID: "profile", Label: "Profile", Path: "/profile"}
	Logout   = Action{ID: "logout", Label: "Logout", Path: "/logout"}

	Dashboard       = Action{ID: "dashboard", Label: "Dashboard", Path: "/provider/dashboard"}
	AdminManagement = Action{ID: "admin", Label: "Admin Management", Path: "/admin"}
)

// VisibleActions lists the actions shown for s. Every call recomputes the
// list from the session variant.
func VisibleActions(s domain.Session) []Action {
	switch s.(type) {
	case nil, domain.GuestSession:
		return []Action{Login, Register}
	case domain.LearnerSession:
		return []Action{Profile, Logout}
	case domain.ProviderSession:
		return []Action{Dashboard, Profile, Logout}
	case domain.AdminSession:
		return []Action{AdminManagement, Profile, Logout}
	default:
		panic(fmt.Sprintf("navigation: unhandled session type %T", s))
	}
}
