package middleware

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"course-storefront/internal/api/web"
	"course-storefront/internal/api/weberr"
	"course-storefront/internal/domain"
	"course-storefront/internal/session"
)

// LoadAndSave runs the rest of the chain inside the scs session.
func LoadAndSave(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var err error
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				err = handler(r.Context(), w, r)
			})
			sm.LoadAndSave(next).ServeHTTP(w, r.WithContext(ctx))
			return err
		}
		return h
	}
	return m
}

// Authenticate requires a logged-in session of any role.
func Authenticate(sessions session.Provider) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if !domain.IsAuthenticated(sessions.Current(ctx)) {
				return &domain.AuthRequiredError{}
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// RequireRole requires a logged-in session whose role is one of roles.
func RequireRole(sessions session.Provider, roles ...domain.Role) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			s := sessions.Current(ctx)
			if !domain.IsAuthenticated(s) {
				return &domain.AuthRequiredError{}
			}
			for _, role := range roles {
				if s.Role() == role {
					return handler(ctx, w, r)
				}
			}
			return weberr.Forbidden(domain.ErrForbidden)
		}
		return h
	}
	return m
}
