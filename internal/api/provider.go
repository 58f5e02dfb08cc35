package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"course-storefront/internal/api/web"
	"course-storefront/internal/domain"
	"course-storefront/internal/providers/marketplace"
	"course-storefront/internal/validate"
)

// courseForm is the provider's create/update form. The creator id is never
// read from the body; it comes from the session.
type courseForm struct {
	Name                    string  `json:"name" validate:"required"`
	Description             string  `json:"description" validate:"required"`
	Price                   float64 `json:"price" validate:"gte=0"`
	MaxCapacity             int     `json:"max_capacity" validate:"gte=1"`
	Category                string  `json:"category" validate:"required"`
	Source                  string  `json:"source" validate:"required,oneof=internal external"`
	ExternalReferenceNumber string  `json:"external_reference_number" validate:"required_if=Source external"`
	TrainingProviderAlias   string  `json:"training_provider_alias" validate:"required"`
	TotalTrainingHours      float64 `json:"total_training_hours" validate:"gte=1"`
	TotalCost               float64 `json:"total_cost" validate:"gte=0"`
	TileImageURL            string  `json:"tile_image_url" validate:"required"`
}

func (f *courseForm) normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Description = strings.TrimSpace(f.Description)
	f.Category = strings.TrimSpace(f.Category)
	f.Source = strings.ToLower(strings.TrimSpace(f.Source))
	f.ExternalReferenceNumber = strings.TrimSpace(f.ExternalReferenceNumber)
	f.TrainingProviderAlias = strings.TrimSpace(f.TrainingProviderAlias)
	f.TileImageURL = strings.TrimSpace(f.TileImageURL)
}

func (f courseForm) input(creatorID int64) marketplace.CourseInput {
	return marketplace.CourseInput{
		CreatorID:               creatorID,
		Name:                    f.Name,
		Description:             f.Description,
		Price:                   f.Price,
		MaxCapacity:             f.MaxCapacity,
		Category:                f.Category,
		Source:                  f.Source,
		ExternalReferenceNumber: f.ExternalReferenceNumber,
		TrainingProviderAlias:   f.TrainingProviderAlias,
		TotalTrainingHours:      f.TotalTrainingHours,
		TotalCost:               f.TotalCost,
		TileImageURL:            f.TileImageURL,
	}
}

func (h *handlers) decodeCourseForm(w http.ResponseWriter, r *http.Request) (courseForm, error) {
	var f courseForm
	if err := web.Decode(w, r, &f); err != nil {
		return f, decodeErr(err)
	}
	f.normalize()
	if err := validate.Check(f); err != nil {
		return f, err
	}
	return f, nil
}

func courseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(web.Param(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("id", "course id must be a positive number")
	}
	return id, nil
}

// resetCatalog drops the held list so the next search shows the change.
func (h *handlers) resetCatalog(ctx context.Context) {
	cat := h.catalog(ctx)
	cat.Reset()
	h.saveCatalog(ctx, cat)
}

func (h *handlers) handleProviderCourses(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, err := identity(ctx, h.sessions)
	if err != nil {
		return err
	}
	recs, err := h.market.ProviderCourses(ctx, id.UserID)
	if err != nil {
		return upstreamErr("list provider courses", "provider courses", err)
	}
	if recs == nil {
		recs = []marketplace.CourseRecord{}
	}
	return web.Respond(ctx, w, map[string]any{"data": recs}, http.StatusOK)
}

func (h *handlers) handleCreateCourse(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, err := identity(ctx, h.sessions)
	if err != nil {
		return err
	}
	f, err := h.decodeCourseForm(w, r)
	if err != nil {
		return err
	}

	rec, err := h.market.CreateCourse(ctx, f.input(id.UserID))
	if err != nil {
		return upstreamErr("create course", "course", err)
	}
	h.resetCatalog(ctx)
	h.log.WithField("creator", id.UserID).WithField("course", rec.CourseID).Info("course created")
	return web.Respond(ctx, w, map[string]any{"data": rec}, http.StatusCreated)
}

func (h *handlers) handleUpdateCourse(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, err := identity(ctx, h.sessions)
	if err != nil {
		return err
	}
	cid, err := courseID(r)
	if err != nil {
		return err
	}
	f, err := h.decodeCourseForm(w, r)
	if err != nil {
		return err
	}

	if err := h.market.UpdateCourse(ctx, cid, f.input(id.UserID)); err != nil {
		return upstreamErr("update course", "course", err)
	}
	h.resetCatalog(ctx)
	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

func (h *handlers) handleDeleteCourse(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, err := identity(ctx, h.sessions)
	if err != nil {
		return err
	}
	cid, err := courseID(r)
	if err != nil {
		return err
	}

	if err := h.market.DeleteCourse(ctx, cid, id.UserID); err != nil {
		return upstreamErr("delete course", "course", err)
	}
	h.resetCatalog(ctx)
	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

func (h *handlers) handleProviderEnrollments(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, err := identity(ctx, h.sessions)
	if err != nil {
		return err
	}
	recs, err := h.market.ProviderEnrollments(ctx, id.UserID)
	if err != nil {
		return upstreamErr("list provider enrollments", "enrollments", err)
	}
	if recs == nil {
		recs = []marketplace.EnrollmentRecord{}
	}
	return web.Respond(ctx, w, map[string]any{"data": recs}, http.StatusOK)
}
