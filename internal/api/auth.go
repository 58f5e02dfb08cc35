package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"course-storefront/internal/api/web"
	"course-storefront/internal/api/weberr"
	"course-storefront/internal/domain"
	"course-storefront/internal/httpx"
	"course-storefront/internal/navigation"
	"course-storefront/internal/providers/marketplace"
	"course-storefront/internal/validate"
)

type sessionView struct {
	Authenticated bool                `json:"authenticated"`
	Role          domain.Role         `json:"role"`
	UserID        int64               `json:"userId,omitempty"`
	Username      string              `json:"username,omitempty"`
	Avatar        string              `json:"avatar,omitempty"`
	Actions       []navigation.Action `json:"actions"`
}

func viewSession(s domain.Session) sessionView {
	v := sessionView{Role: domain.RoleGuest, Actions: navigation.VisibleActions(s)}
	if s != nil {
		v.Role = s.Role()
	}
	if id, ok := domain.IdentityOf(s); ok {
		v.Authenticated = true
		v.UserID = id.UserID
		v.Username = id.Username
		v.Avatar = id.Avatar
	}
	return v
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *handlers) handleLogin(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var in loginRequest
	if err := web.Decode(w, r, &in); err != nil {
		return decodeErr(err)
	}
	in.Username = strings.TrimSpace(in.Username)
	if err := validate.Check(in); err != nil {
		return err
	}

	res, err := h.market.Login(ctx, in.Username, in.Password)
	if err != nil {
		if code := httpx.StatusCode(err); code == http.StatusUnauthorized || code == http.StatusBadRequest || code == http.StatusNotFound {
			return weberr.NotAuthorized(err, weberr.WithFields(map[string]interface{}{"username": in.Username}))
		}
		return &domain.NetworkError{Op: "login", Err: err}
	}

	s, err := h.sessions.Establish(ctx, res.User, res.Cookie)
	if err != nil {
		return weberr.Forbidden(err)
	}
	h.log.WithField("user", res.User.ID).WithField("role", s.Role()).Info("login")
	return web.Respond(ctx, w, viewSession(s), http.StatusOK)
}

// handleLogout ends the backend session and always destroys the local one,
// even when the backend call fails.
func (h *handlers) handleLogout(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if domain.IsAuthenticated(h.sessions.Current(ctx)) {
		if err := h.market.Logout(ctx); err != nil {
			h.log.WithError(err).Warn("backend logout failed")
		}
	}
	h.catalogs.Forget(h.sessions.CatalogID(ctx))
	if err := h.sessions.Destroy(ctx); err != nil {
		return err
	}
	return web.Respond(ctx, w, viewSession(domain.GuestSession{}), http.StatusOK)
}

// handleSession confirms the local session against the backend. A session
// the backend no longer knows is dropped and the browser becomes a guest.
func (h *handlers) handleSession(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	s := h.sessions.Current(ctx)
	if domain.IsAuthenticated(s) {
		if _, err := h.market.CheckSession(ctx); err != nil {
			if !errors.Is(err, marketplace.ErrNoSession) {
				return &domain.NetworkError{Op: "check session", Err: err}
			}
			if err := h.sessions.Destroy(ctx); err != nil {
				return err
			}
			s = domain.GuestSession{}
		}
	}
	return web.Respond(ctx, w, viewSession(s), http.StatusOK)
}

func (h *handlers) handleNav(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	actions := navigation.VisibleActions(h.sessions.Current(ctx))
	return web.Respond(ctx, w, map[string]any{"actions": actions}, http.StatusOK)
}

type registerRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required,min=8"`
	Role      string `json:"role" validate:"omitempty,oneof=learner provider"`
}

func (h *handlers) handleRegister(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var in registerRequest
	if err := web.Decode(w, r, &in); err != nil {
		return decodeErr(err)
	}
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if err := validate.Check(in); err != nil {
		return err
	}
	if in.Role == "" {
		in.Role = string(domain.RoleLearner)
	}

	err := h.market.Register(ctx, marketplace.RegisterInput{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Username:  in.Username,
		Password:  in.Password,
		Role:      in.Role,
	})
	if err != nil {
		if code := httpx.StatusCode(err); code == http.StatusBadRequest || code == http.StatusConflict {
			return weberr.NewError(err, "registration was rejected, the username or email may already be taken", code)
		}
		return &domain.NetworkError{Op: "register", Err: err}
	}
	return web.Respond(ctx, w, map[string]string{"status": "registered"}, http.StatusCreated)
}

type contactRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}

func (h *handlers) handleContact(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var in contactRequest
	if err := web.Decode(w, r, &in); err != nil {
		return decodeErr(err)
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)
	if err := validate.Check(in); err != nil {
		return err
	}

	if err := h.market.SendContact(ctx, marketplace.ContactInput(in)); err != nil {
		return &domain.NetworkError{Op: "send contact message", Err: err}
	}
	return web.Respond(ctx, w, map[string]string{"status": "received"}, http.StatusAccepted)
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

const resetLinkSent = "Password reset link sent! Check your email."

// handleForgotPassword forwards a reset request. An unknown address gets the
// same answer as a known one.
func (h *handlers) handleForgotPassword(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var in forgotPasswordRequest
	if err := web.Decode(w, r, &in); err != nil {
		return decodeErr(err)
	}
	in.Email = strings.TrimSpace(in.Email)
	if err := validate.Check(in); err != nil {
		return err
	}

	if err := h.market.RequestPasswordReset(ctx, in.Email); err != nil && !httpx.IsStatus(err, http.StatusNotFound) {
		return &domain.NetworkError{Op: "request password reset", Err: err}
	}
	return web.Respond(ctx, w, map[string]string{"status": "sent", "message": resetLinkSent}, http.StatusAccepted)
}
