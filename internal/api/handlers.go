package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"course-storefront/internal/api/weberr"
	"course-storefront/internal/catalog"
	"course-storefront/internal/domain"
	"course-storefront/internal/httpx"
	"course-storefront/internal/metrics"
	"course-storefront/internal/providers"
	"course-storefront/internal/providers/marketplace"
	"course-storefront/internal/session"
)

type handlers struct {
	log         logrus.FieldLogger
	sessions    *session.Manager
	catalogs    *catalog.Registry
	market      *marketplace.Client
	internal    providers.Internal
	reviews     providers.Reviews
	enrollments providers.Enrollments
	detailURL   func(ref string) string
	metrics     *metrics.Metrics
}

// catalog returns the live catalog of this browser. A catalog evicted from
// the registry is rebuilt from the copy kept in the session.
func (h *handlers) catalog(ctx context.Context) *catalog.Catalog {
	cat, created := h.catalogs.Acquire(h.sessions.CatalogID(ctx))
	if created {
		if st, ok := h.sessions.LoadCatalog(ctx); ok {
			cat.Restore(st)
		}
	}
	return cat
}

func (h *handlers) saveCatalog(ctx context.Context, cat *catalog.Catalog) {
	if err := h.sessions.SaveCatalog(ctx, cat.Snapshot()); err != nil {
		h.log.WithError(err).Warn("save catalog to session")
	}
}

func decodeErr(err error) error {
	return weberr.BadRequest(err, weberr.WithFields(map[string]interface{}{"decode_error": err.Error()}))
}

// upstreamErr maps a failed marketplace call onto the domain errors.
func upstreamErr(op, what string, err error) error {
	switch httpx.StatusCode(err) {
	case http.StatusUnauthorized:
		return &domain.AuthRequiredError{Action: op}
	case http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, domain.ErrForbidden)
	case http.StatusNotFound:
		return &domain.NotFoundError{What: what}
	}
	return &domain.NetworkError{Op: op, Err: err}
}

func identity(ctx context.Context, sessions session.Provider) (domain.Identity, error) {
	id, ok := domain.IdentityOf(sessions.Current(ctx))
	if !ok {
		return domain.Identity{}, &domain.AuthRequiredError{}
	}
	return id, nil
}
