package domain

import (
	"strconv"
	"strings"
)

// Source tags where a course came from. Identity is scoped per source.
type Source string

const (
	SourceInternal Source = "internal"
	SourceExternal Source = "external"
)

// ParseSource accepts the tags used by the marketplace API and the browser
// ("myskillsfuture" and "skillsfuture" both mean the external directory).
func ParseSource(s string) (Source, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "internal":
		return SourceInternal, true
	case "external", "myskillsfuture", "skillsfuture":
		return SourceExternal, true
	}
	return "", false
}

// CourseKey identifies a course across sources. An internal course and an
// external course never share a key even when their ids print the same.
type CourseKey struct {
	Source Source `json:"source"`
	ID     string `json:"id"`
}

func (k CourseKey) String() string { return string(k.Source) + ":" + k.ID }

// ParseCourseKey reverses CourseKey.String.
func ParseCourseKey(s string) (CourseKey, bool) {
	src, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return CourseKey{}, false
	}
	source, ok := ParseSource(src)
	if !ok {
		return CourseKey{}, false
	}
	return CourseKey{Source: source, ID: id}, true
}

// Course is the unified view over internal and external catalog records.
// Exactly one of InternalID (internal) and ExternalRef (external) is set.
type Course struct {
	InternalID  int64  `json:"internalId,omitempty"`
	ExternalRef string `json:"externalReferenceNumber,omitempty"`
	Source      Source `json:"source"`

	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Category      string  `json:"category"`
	ProviderName  string  `json:"provider"`
	PublishedDate string  `json:"date"` // YYYY-MM-DD or empty
	Price         float64 `json:"price"`
	TrainingHours float64 `json:"trainingHours"`
	MaxCapacity   int     `json:"maxCapacity,omitempty"`

	ThumbnailURL   string `json:"thumbnailUrl"`
	DetailImageURL string `json:"detailImageUrl"`
	DetailURL      string `json:"detailUrl,omitempty"`

	Reviews []Review `json:"reviews"`
}

func (c Course) Key() CourseKey {
	if c.Source == SourceInternal {
		return CourseKey{Source: SourceInternal, ID: strconv.FormatInt(c.InternalID, 10)}
	}
	return CourseKey{Source: SourceExternal, ID: c.ExternalRef}
}

func (c Course) IsFree() bool { return c.Price <= 0 }

func (c Course) Rating() ReviewSummary { return Summarize(c.Reviews) }
