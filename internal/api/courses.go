package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"course-storefront/internal/api/web"
	"course-storefront/internal/api/weberr"
	"course-storefront/internal/catalog"
	"course-storefront/internal/domain"
	"course-storefront/internal/enrollment"
	"course-storefront/internal/filter"
	"course-storefront/internal/httpx"
)

type courseView struct {
	domain.Course
	Key    string               `json:"key"`
	Rating domain.ReviewSummary `json:"rating"`
}

func viewCourses(courses []domain.Course) []courseView {
	out := make([]courseView, 0, len(courses))
	for _, c := range courses {
		out = append(out, courseView{Course: c, Key: c.Key().String(), Rating: c.Rating()})
	}
	return out
}

type courseList struct {
	Keyword string       `json:"keyword"`
	Page    int          `json:"page"`
	HasMore bool         `json:"hasMore"`
	Total   int          `json:"total"`
	Courses []courseView `json:"courses"`
}

// handleListCourses loads a catalog page and applies the filter criteria
// from the query string to the whole held list.
func (h *handlers) handleListCourses(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()

	page := 1
	if p := strings.TrimSpace(q.Get("page")); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return domain.NewValidationError("page", "page must be a positive number")
		}
		page = n
	}
	keyword := strings.TrimSpace(q.Get("keyword"))

	crit, err := filter.ParseCriteria(q)
	if err != nil {
		return err
	}

	cat := h.catalog(ctx)
	courses, hasMore, err := cat.FetchPage(ctx, page, keyword)
	if err != nil {
		if errors.Is(err, catalog.ErrStale) {
			return weberr.NewError(err, "a newer search replaced this one", http.StatusConflict)
		}
		return err
	}
	h.saveCatalog(ctx, cat)

	visible := filter.Apply(courses, crit)
	return web.Respond(ctx, w, courseList{
		Keyword: keyword,
		Page:    cat.Snapshot().Page,
		HasMore: hasMore,
		Total:   len(courses),
		Courses: viewCourses(visible),
	}, http.StatusOK)
}

func (h *handlers) handleCourseOptions(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, filter.Options(h.catalog(ctx).Courses()), http.StatusOK)
}

type courseDetail struct {
	courseView
	EnrollmentCount *int `json:"enrollmentCount,omitempty"`
}

func viewDetail(c domain.Course, enrolled *int) courseDetail {
	return courseDetail{
		courseView:      courseView{Course: c, Key: c.Key().String(), Rating: c.Rating()},
		EnrollmentCount: enrolled,
	}
}

// handleCourseDetail returns one course. Internal courses are read from the
// marketplace for their enrollment count, so a course missing from the held
// list can still be opened by link. External courses must be held.
func (h *handlers) handleCourseDetail(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	k, ok := domain.ParseCourseKey(web.Param(r, "key"))
	if !ok {
		return domain.NewValidationError("course", "unknown course key")
	}
	notFound := func(err error) error {
		return weberr.NotFound(err, weberr.WithFields(map[string]interface{}{"course": k.String()}))
	}

	held, found := h.catalog(ctx).Find(k)
	if k.Source == domain.SourceExternal {
		if !found {
			return notFound(&domain.NotFoundError{What: "course", ID: k.String()})
		}
		return web.Respond(ctx, w, viewDetail(held, nil), http.StatusOK)
	}

	id, err := strconv.ParseInt(k.ID, 10, 64)
	if err != nil || id < 1 {
		return domain.NewValidationError("course", "unknown course key")
	}

	c, enrolled, err := h.internal.Course(ctx, id)
	switch {
	case httpx.IsStatus(err, http.StatusNotFound):
		return notFound(err)
	case err != nil && found:
		h.log.WithError(err).WithField("course", k.String()).Warn("course detail without enrollment count")
		return web.Respond(ctx, w, viewDetail(held, nil), http.StatusOK)
	case err != nil:
		return upstreamErr("load course", "course", err)
	}

	if found {
		c = held
	} else if reviews, err := h.reviews.LoadReviews(ctx, k); err != nil {
		h.log.WithError(err).WithField("course", k.String()).Warn("course detail without reviews")
	} else if reviews != nil {
		c.Reviews = reviews
	}
	return web.Respond(ctx, w, viewDetail(c, &enrolled), http.StatusOK)
}

type courseRequest struct {
	Course string `json:"course" validate:"required"`
}

// lookup resolves a "source:id" key against the held catalog.
func (h *handlers) lookup(ctx context.Context, key string) (domain.Course, *catalog.Catalog, error) {
	k, ok := domain.ParseCourseKey(key)
	if !ok {
		return domain.Course{}, nil, domain.NewValidationError("course", "unknown course key")
	}
	cat := h.catalog(ctx)
	c, ok := cat.Find(k)
	if !ok {
		return domain.Course{}, nil, &domain.NotFoundError{What: "course", ID: k.String()}
	}
	return c, cat, nil
}

func (h *handlers) workflow(cat *catalog.Catalog) *enrollment.Workflow {
	return &enrollment.Workflow{
		Sessions:    h.sessions,
		Enrollments: h.enrollments,
		Reviews:     h.reviews,
		Catalog:     cat,
		FallbackURL: h.detailURL,
		Log:         h.log,
	}
}

func (h *handlers) handleSelect(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var in courseRequest
	if err := web.Decode(w, r, &in); err != nil {
		return decodeErr(err)
	}
	c, cat, err := h.lookup(ctx, in.Course)
	if err != nil {
		return err
	}
	return web.Respond(ctx, w, h.workflow(cat).Select(c), http.StatusOK)
}

func (h *handlers) handleEnroll(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var in courseRequest
	if err := web.Decode(w, r, &in); err != nil {
		return decodeErr(err)
	}
	c, cat, err := h.lookup(ctx, in.Course)
	if err != nil {
		return err
	}

	out, err := h.workflow(cat).Enroll(ctx, c)
	if err != nil {
		return err
	}
	return web.Respond(ctx, w, out, http.StatusOK)
}

type reviewRequest struct {
	Course  string `json:"course" validate:"required"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type reviewResponse struct {
	Review domain.Review        `json:"review"`
	Rating domain.ReviewSummary `json:"rating"`
}

func (h *handlers) handleReview(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var in reviewRequest
	if err := web.Decode(w, r, &in); err != nil {
		return decodeErr(err)
	}
	c, cat, err := h.lookup(ctx, in.Course)
	if err != nil {
		return err
	}

	rev, sum, err := h.workflow(cat).SubmitReview(ctx, c, in.Rating, in.Comment)
	if err != nil {
		return err
	}
	h.saveCatalog(ctx, cat)
	h.metrics.ReviewPosted()
	return web.Respond(ctx, w, reviewResponse{Review: rev, Rating: sum}, http.StatusCreated)
}
