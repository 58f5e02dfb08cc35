package providers

import (
	"context"
	"errors"
	"strconv"

	"course-storefront/internal/domain"
	"course-storefront/internal/mappers"
	"course-storefront/internal/providers/marketplace"
)

// Reviews reads and writes course reviews through the marketplace API.
type Reviews struct {
	C *marketplace.Client
}

func (r Reviews) LoadReviews(ctx context.Context, key domain.CourseKey) ([]domain.Review, error) {
	recs, err := r.C.ListReviews(ctx, key)
	if err != nil {
		return nil, err
	}
	out := mappers.FromReviews(recs)
	for i := range out {
		if key.Source == domain.SourceExternal {
			out[i].ExternalRef = key.ID
			out[i].CourseID = 0
		} else if id, err := strconv.ParseInt(key.ID, 10, 64); err == nil {
			out[i].CourseID = id
			out[i].ExternalRef = ""
		}
	}
	return out, nil
}

// PostReview sends rev keyed by its course id or external reference, never
// both, and returns the server-assigned id.
func (r Reviews) PostReview(ctx context.Context, rev domain.Review) (string, error) {
	if (rev.CourseID == 0) == (rev.ExternalRef == "") {
		return "", errors.New("review must reference exactly one of course id or external reference")
	}
	return r.C.PostReview(ctx, rev.CourseID, marketplace.ReviewInput{
		UserID:                  rev.UserID,
		Rating:                  rev.Rating,
		Comment:                 rev.Comment,
		ExternalReferenceNumber: rev.ExternalRef,
	})
}

// Enrollments answers eligibility checks.
type Enrollments struct {
	C *marketplace.Client
}

func (e Enrollments) IsEnrolled(ctx context.Context, courseID, userID int64) (bool, error) {
	return e.C.IsEnrolled(ctx, courseID, userID)
}
