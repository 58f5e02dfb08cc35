package providers

import (
	"context"

	"course-storefront/internal/domain"
)

// CourseSource is one catalog feed normalized to domain.Course.
type CourseSource interface {
	Name() string
	// FetchPage returns one page of courses matching keyword. Unpaginated
	// sources return everything for page 1.
	FetchPage(ctx context.Context, page int, keyword string) ([]domain.Course, error)
}
