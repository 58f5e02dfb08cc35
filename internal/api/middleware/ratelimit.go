package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"course-storefront/internal/api/web"
	"course-storefront/internal/api/weberr"
	"course-storefront/internal/rate"
)

var ErrTooManyRequests = errors.New("too many requests")

// RateLimit rejects clients that exceed lim, keyed by client IP. onLimit is
// called for every rejection when set.
func RateLimit(lim *rate.Limiter, onLimit func(r *http.Request)) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if lim != nil && !lim.Check(ClientIP(r)) {
				if onLimit != nil {
					onLimit(r)
				}
				w.Header().Set("Retry-After", "1")
				return weberr.NewError(ErrTooManyRequests, "too many requests, slow down", http.StatusTooManyRequests)
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// ClientIP prefers the first X-Forwarded-For hop.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
