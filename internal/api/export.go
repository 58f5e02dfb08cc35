package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"course-storefront/internal/export"
)

// handleExportCSV downloads the held catalog as CSV. A browser that has not
// searched yet gets the first page of the unfiltered catalog.
func (h *handlers) handleExportCSV(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cat := h.catalog(ctx)
	if !cat.Snapshot().Started {
		if _, _, err := cat.FetchPage(ctx, 1, ""); err != nil {
			return err
		}
		h.saveCatalog(ctx, cat)
	}

	var buf bytes.Buffer
	if err := export.WriteCatalogCSV(&buf, cat.Courses()); err != nil {
		return fmt.Errorf("export catalog: %w", err)
	}

	name := fmt.Sprintf("catalog-%s.csv", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(buf.Bytes())
	return err
}
