package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/zenazn/goji/web/mutil"

	"course-storefront/internal/api/web"
	"course-storefront/internal/metrics"
)

// Metrics records request count and latency per route template.
func Metrics(m *metrics.Metrics) web.Middleware {
	mw := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			start := time.Now()
			lw := mutil.WrapWriter(w)
			err := handler(ctx, lw, r)

			status := lw.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveHTTPRequest(r.Method, web.Route(r), status, time.Since(start))
			return err
		}
		return h
	}
	return mw
}
