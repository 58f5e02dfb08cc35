package filter

import (
	"net/url"
	"sort"
	"strings"

	"course-storefront/internal/domain"
	"course-storefront/internal/mappers"
)

// Criteria narrows a course list. Empty fields match everything.
type Criteria struct {
	Text     string        `json:"q,omitempty"`
	Category string        `json:"category,omitempty"`
	Provider string        `json:"provider,omitempty"`
	Date     string        `json:"date,omitempty"` // YYYY-MM-DD
	Source   domain.Source `json:"source,omitempty"`
}

func (c Criteria) IsZero() bool { return c == Criteria{} }

// ParseCriteria reads q, category, provider, date and source from query
// parameters. An unparseable date or unknown source is a validation error.
func ParseCriteria(v url.Values) (Criteria, error) {
	c := Criteria{
		Text:     strings.TrimSpace(v.Get("q")),
		Category: strings.TrimSpace(v.Get("category")),
		Provider: strings.TrimSpace(v.Get("provider")),
	}

	verr := &domain.ValidationError{Fields: map[string]string{}}
	if d := strings.TrimSpace(v.Get("date")); d != "" {
		c.Date = mappers.NormalizeDate(d)
		if c.Date == "" {
			verr.Fields["date"] = "must be a date like 2024-03-05"
		}
	}
	if s := strings.TrimSpace(v.Get("source")); s != "" {
		src, ok := domain.ParseSource(s)
		if !ok {
			verr.Fields["source"] = "must be internal or external"
		}
		c.Source = src
	}
	if len(verr.Fields) > 0 {
		return Criteria{}, verr
	}
	return c, nil
}

// Apply returns the courses matching every set criterion, in input order.
// While Source is unset, internal courses are always kept.
func Apply(courses []domain.Course, c Criteria) []domain.Course {
	out := make([]domain.Course, 0, len(courses))
	text := strings.ToLower(c.Text)
	for _, course := range courses {
		if c.Source == "" && course.Source == domain.SourceInternal {
			out = append(out, course)
			continue
		}
		if matches(course, c, text) {
			out = append(out, course)
		}
	}
	return out
}

func matches(course domain.Course, c Criteria, lowerText string) bool {
	if c.Source != "" && course.Source != c.Source {
		return false
	}
	if lowerText != "" && !strings.Contains(strings.ToLower(course.Title), lowerText) {
		return false
	}
	if c.Category != "" && course.Category != c.Category {
		return false
	}
	if c.Provider != "" && course.ProviderName != c.Provider {
		return false
	}
	if c.Date != "" && course.PublishedDate != c.Date {
		return false
	}
	return true
}

// Choices are the distinct values offered by the category and provider
// dropdowns, sorted.
type Choices struct {
	Categories []string `json:"categories"`
	Providers  []string `json:"providers"`
}

func Options(courses []domain.Course) Choices {
	return Choices{
		Categories: distinct(courses, func(c domain.Course) string { return c.Category }),
		Providers:  distinct(courses, func(c domain.Course) string { return c.ProviderName }),
	}
}

func distinct(courses []domain.Course, field func(domain.Course) string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, c := range courses {
		v := field(c)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
