package mappers

import (
	"course-storefront/internal/domain"
	"course-storefront/internal/providers/marketplace"
)

func FromReview(rec marketplace.ReviewRecord) domain.Review {
	r := domain.Review{
		ID:          string(rec.ReviewID),
		UserID:      rec.UserID,
		DisplayName: FirstNonEmpty(rec.Username, "Anonymous"),
		Rating:      rec.Rating,
		Comment:     rec.Comment,
		CourseID:    rec.CourseID,
		ExternalRef: rec.ExternalReferenceNumber,
	}
	if t, ok := ParseDate(rec.CreatedAt); ok {
		r.CreatedAt = t
	}
	return r
}

func FromReviews(recs []marketplace.ReviewRecord) []domain.Review {
	out := make([]domain.Review, 0, len(recs))
	for _, rec := range recs {
		out = append(out, FromReview(rec))
	}
	return out
}
