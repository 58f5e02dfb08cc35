package domain

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"userId"`
	DisplayName string    `json:"displayName"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment"`
	CreatedAt   time.Time `json:"createdAt"`

	// Exactly one of these matches the reviewed course's identifier.
	CourseID    int64  `json:"courseId,omitempty"`
	ExternalRef string `json:"externalReferenceNumber,omitempty"`
}

func ValidRating(r int) bool { return r >= MinRating && r <= MaxRating }

// ReviewSummary is the aggregate rating shown next to a course.
// Average is 0 when Count is 0.
type ReviewSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

func Summarize(reviews []Review) ReviewSummary {
	if len(reviews) == 0 {
		return ReviewSummary{}
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return ReviewSummary{
		Average: float64(sum) / float64(len(reviews)),
		Count:   len(reviews),
	}
}
