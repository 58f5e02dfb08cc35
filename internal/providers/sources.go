package providers

import (
	"context"
	"fmt"

	"course-storefront/internal/domain"
	"course-storefront/internal/mappers"
	"course-storefront/internal/providers/marketplace"
	"course-storefront/internal/providers/skillsfuture"
)

// Internal adapts the marketplace catalog into a CourseSource.
type Internal struct {
	C            *marketplace.Client
	AssetBaseURL string
}

func (p Internal) Name() string { return string(domain.SourceInternal) }

func (p Internal) FetchPage(ctx context.Context, page int, keyword string) ([]domain.Course, error) {
	if page > 1 {
		return nil, nil
	}
	recs, err := p.C.ListCourses(ctx, keyword)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Course, 0, len(recs))
	for _, r := range recs {
		out = append(out, mappers.FromInternal(r, p.AssetBaseURL))
	}
	return out, nil
}

// Course reads one internal course and its enrollment count.
func (p Internal) Course(ctx context.Context, id int64) (domain.Course, int, error) {
	rec, err := p.C.GetCourse(ctx, id)
	if err != nil {
		return domain.Course{}, 0, err
	}
	return mappers.FromInternal(rec, p.AssetBaseURL), rec.EnrollmentCount, nil
}

// External adapts the SkillsFuture directory into a CourseSource.
type External struct {
	C             *skillsfuture.Client
	AssetBaseURL  string
	DetailBaseURL string
}

func (p External) Name() string { return string(domain.SourceExternal) }

func (p External) FetchPage(ctx context.Context, page int, keyword string) ([]domain.Course, error) {
	recs, err := p.C.ListPage(ctx, keyword, page)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Course, 0, len(recs))
	for _, r := range recs {
		c := mappers.FromExternal(r, p.AssetBaseURL, p.DetailBaseURL)
		if c.ExternalRef == "" {
			return nil, fmt.Errorf("skillsfuture: record %q has no reference number", c.Title)
		}
		out = append(out, c)
	}
	return out, nil
}

// FallbackURL is the detail link for an external reference.
func (p External) FallbackURL(ref string) string {
	return mappers.FallbackDetailURL(p.DetailBaseURL, ref)
}
