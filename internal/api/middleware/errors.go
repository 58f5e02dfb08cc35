package middleware

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"course-storefront/internal/api/web"
	"course-storefront/internal/api/weberr"
)

// Errors logs every handler error once and writes its response. Errors
// without an attached response go through the domain mapping, and
// anything else becomes a 500.
func Errors(log logrus.FieldLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			fields := map[string]interface{}{
				"req_id":  ContextRequestID(ctx),
				"message": err,
			}
			if f, ok := weberr.Fields(err); ok {
				for k, v := range f {
					fields[k] = v
				}
			}

			entry := log.WithFields(logrus.Fields(fields))

			if body, code, ok := weberr.Response(err); ok {
				logAt(entry, code)
				return web.Respond(ctx, w, body, code)
			}
			if body, code, ok := weberr.Classify(err); ok {
				logAt(entry, code)
				return web.Respond(ctx, w, body, code)
			}

			entry.Error("ERROR")
			er := weberr.ErrorResponse{Error: http.StatusText(http.StatusInternalServerError)}
			return web.Respond(ctx, w, er, http.StatusInternalServerError)
		}
		return h
	}
	return m
}

// logAt keeps expected client errors out of the error level.
func logAt(entry *logrus.Entry, status int) {
	if status >= http.StatusInternalServerError {
		entry.Error("ERROR")
		return
	}
	entry.Warn("ERROR")
}
