package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"course-storefront/internal/api/middleware"
	"course-storefront/internal/api/web"
	"course-storefront/internal/catalog"
	"course-storefront/internal/domain"
	"course-storefront/internal/metrics"
	"course-storefront/internal/providers"
	"course-storefront/internal/providers/marketplace"
	"course-storefront/internal/rate"
	"course-storefront/internal/session"
)

type APIConfig struct {
	CorsOrigin  string
	Log         logrus.FieldLogger
	Sessions    *session.Manager
	Catalogs    *catalog.Registry
	Marketplace *marketplace.Client

	// Courses reads single internal courses for the detail view. A zero
	// value reads through Marketplace without an asset base.
	Courses providers.Internal

	// ExternalDetailURL builds the directory page for an external course
	// that carries no detail URL.
	ExternalDetailURL func(ref string) string

	// FormLimiter throttles login, registration, password reset and
	// contact posts per client IP. Nil disables it.
	FormLimiter *rate.Limiter
	Metrics     *metrics.Metrics
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, middleware.LoadAndSave(cfg.Sessions.SM))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Metrics(cfg.Metrics))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())
	a.mw = append(a.mw, forwardBackendCookie(cfg.Sessions))

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	courses := cfg.Courses
	if courses.C == nil {
		courses.C = cfg.Marketplace
	}

	h := &handlers{
		log:         cfg.Log,
		sessions:    cfg.Sessions,
		catalogs:    cfg.Catalogs,
		market:      cfg.Marketplace,
		internal:    courses,
		reviews:     providers.Reviews{C: cfg.Marketplace},
		enrollments: providers.Enrollments{C: cfg.Marketplace},
		detailURL:   cfg.ExternalDetailURL,
		metrics:     cfg.Metrics,
	}

	limit := middleware.RateLimit(cfg.FormLimiter, func(r *http.Request) {
		cfg.Metrics.RateLimited(web.Route(r))
	})
	authen := middleware.Authenticate(cfg.Sessions)
	provider := middleware.RequireRole(cfg.Sessions, domain.RoleProvider)
	admin := middleware.RequireRole(cfg.Sessions, domain.RoleAdmin)

	a.Handle(http.MethodPost, "/auth/login", h.handleLogin, limit)
	a.Handle(http.MethodPost, "/auth/logout", h.handleLogout)
	a.Handle(http.MethodGet, "/auth/session", h.handleSession)
	a.Handle(http.MethodPost, "/auth/register", h.handleRegister, limit)
	a.Handle(http.MethodPost, "/auth/forgot-password", h.handleForgotPassword, limit)
	a.Handle(http.MethodPost, "/contact", h.handleContact, limit)
	a.Handle(http.MethodGet, "/nav", h.handleNav)

	a.Handle(http.MethodGet, "/courses", h.handleListCourses)
	a.Handle(http.MethodGet, "/courses/options", h.handleCourseOptions)
	a.Handle(http.MethodGet, "/courses/{key}", h.handleCourseDetail)
	a.Handle(http.MethodPost, "/courses/select", h.handleSelect)
	a.Handle(http.MethodPost, "/courses/enroll", h.handleEnroll)
	a.Handle(http.MethodPost, "/courses/reviews", h.handleReview, authen)

	a.Handle(http.MethodGet, "/checkout", h.handleCheckout, authen)
	a.Handle(http.MethodPost, "/checkout/pay", h.handlePay, authen)
	a.Handle(http.MethodPost, "/checkout/finish", h.handleFinish, authen)

	a.Handle(http.MethodGet, "/provider/courses", h.handleProviderCourses, provider)
	a.Handle(http.MethodPost, "/provider/courses", h.handleCreateCourse, provider)
	a.Handle(http.MethodPut, "/provider/courses/{id}", h.handleUpdateCourse, provider)
	a.Handle(http.MethodDelete, "/provider/courses/{id}", h.handleDeleteCourse, provider)
	a.Handle(http.MethodGet, "/provider/enrollments", h.handleProviderEnrollments, provider)

	a.Handle(http.MethodGet, "/admin/catalog/export.csv", h.handleExportCSV, admin)

	a.Router.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	a.Router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		web.Respond(r.Context(), w, map[string]string{"status": "ok"}, http.StatusOK)
	}).Methods(http.MethodGet)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}

// forwardBackendCookie makes the marketplace session cookie saved at login
// available to upstream calls made for this request.
func forwardBackendCookie(sessions *session.Manager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if ck := sessions.BackendCookie(ctx); ck != "" {
				ctx = marketplace.WithCookie(ctx, ck)
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
