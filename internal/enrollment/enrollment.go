package enrollment

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"course-storefront/internal/domain"
	"course-storefront/internal/session"
)

// State is where a course detail interaction currently stands.
type State int

const (
	Browsing State = iota
	SelectionMade
	EligibilityChecked
	Redirected
	CheckoutHandoff
	Blocked
)

func (s State) String() string {
	switch s {
	case Browsing:
		return "browsing"
	case SelectionMade:
		return "selection_made"
	case EligibilityChecked:
		return "eligibility_checked"
	case Redirected:
		return "redirected"
	case CheckoutHandoff:
		return "checkout_handoff"
	case Blocked:
		return "blocked"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

const (
	NoticeAlreadyEnrolled = "You are already enrolled in this course."
	NoticeLoginRequired   = "Please log in to enroll in this course."
)

// Outcome is the result of one step of the workflow.
type Outcome struct {
	State       State         `json:"state"`
	Course      domain.Course `json:"course"`
	RedirectURL string        `json:"redirectUrl,omitempty"`
	Notice      string        `json:"notice,omitempty"`
}

type EnrollmentChecker interface {
	IsEnrolled(ctx context.Context, courseID, userID int64) (bool, error)
}

type ReviewPoster interface {
	PostReview(ctx context.Context, rev domain.Review) (string, error)
}

// ReviewSink receives reviews that the server accepted.
type ReviewSink interface {
	AddReview(key domain.CourseKey, rev domain.Review) (domain.ReviewSummary, error)
}

// Workflow drives enroll and review actions for one request. It holds no
// state of its own between calls.
type Workflow struct {
	Sessions    session.Store
	Enrollments EnrollmentChecker
	Reviews     ReviewPoster
	Catalog     ReviewSink

	// FallbackURL builds the external detail page from a reference number
	// when the course carries no detail URL.
	FallbackURL func(ref string) string

	Now func() time.Time
	Log logrus.FieldLogger
}

func (w *Workflow) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *Workflow) log() logrus.FieldLogger {
	if w.Log != nil {
		return w.Log
	}
	return logrus.StandardLogger()
}

// Select records the course the user is looking at. No I/O.
func (w *Workflow) Select(course domain.Course) Outcome {
	return Outcome{State: SelectionMade, Course: course}
}

// Enroll decides where an enroll click leads.
//
// External courses redirect to the directory's detail page. Internal courses
// need a logged-in user who is not enrolled yet; the course is then saved as
// the checkout selection. A failed eligibility check leaves the selection
// step in place and returns the error so the user can retry.
func (w *Workflow) Enroll(ctx context.Context, course domain.Course) (Outcome, error) {
	out := w.Select(course)

	if course.Source == domain.SourceExternal {
		target := strings.TrimSpace(course.DetailURL)
		if target == "" && w.FallbackURL != nil {
			target = w.FallbackURL(course.ExternalRef)
		}
		if target == "" {
			return out, domain.NewValidationError("course", "external course has no detail page")
		}
		out.State = Redirected
		out.RedirectURL = target
		return out, nil
	}

	id, ok := domain.IdentityOf(w.Sessions.Current(ctx))
	if !ok {
		out.State = Blocked
		out.Notice = NoticeLoginRequired
		return out, &domain.AuthRequiredError{Action: "enroll"}
	}

	enrolled, err := w.Enrollments.IsEnrolled(ctx, course.InternalID, id.UserID)
	if err != nil {
		return out, &domain.NetworkError{Op: "check enrollment", Err: err}
	}
	out.State = EligibilityChecked

	if enrolled {
		out.State = Browsing
		out.Notice = NoticeAlreadyEnrolled
		return out, nil
	}

	if err := w.Sessions.SaveSelection(ctx, course); err != nil {
		return Outcome{State: SelectionMade, Course: course}, fmt.Errorf("save checkout selection: %w", err)
	}
	out.State = CheckoutHandoff
	w.log().WithFields(logrus.Fields{
		"course": course.Key().String(),
		"user":   id.UserID,
	}).Debug("checkout handoff")
	return out, nil
}

// SubmitReview posts a review for course and, once the server accepts it,
// appends it to the held course so its average updates without a refetch.
// Nothing is mutated when validation or the post fails.
func (w *Workflow) SubmitReview(ctx context.Context, course domain.Course, rating int, comment string) (domain.Review, domain.ReviewSummary, error) {
	id, ok := domain.IdentityOf(w.Sessions.Current(ctx))
	if !ok {
		return domain.Review{}, domain.ReviewSummary{}, &domain.AuthRequiredError{Action: "write a review"}
	}
	if !domain.ValidRating(rating) {
		return domain.Review{}, domain.ReviewSummary{}, domain.NewValidationError("rating",
			fmt.Sprintf("rating must be between %d and %d", domain.MinRating, domain.MaxRating))
	}

	rev := domain.Review{
		ID:          uuid.NewString(),
		UserID:      id.UserID,
		DisplayName: id.Username,
		Rating:      rating,
		Comment:     strings.TrimSpace(comment),
		CreatedAt:   w.now().UTC(),
	}
	switch course.Source {
	case domain.SourceExternal:
		if course.ExternalRef == "" {
			return domain.Review{}, domain.ReviewSummary{}, domain.NewValidationError("course", "missing external reference")
		}
		rev.ExternalRef = course.ExternalRef
	default:
		if course.InternalID == 0 {
			return domain.Review{}, domain.ReviewSummary{}, domain.NewValidationError("course", "missing course id")
		}
		rev.CourseID = course.InternalID
	}

	serverID, err := w.Reviews.PostReview(ctx, rev)
	if err != nil {
		return domain.Review{}, domain.ReviewSummary{}, &domain.NetworkError{Op: "post review", Err: err}
	}
	if serverID != "" {
		rev.ID = serverID
	}

	log := w.log().WithFields(logrus.Fields{
		"course": course.Key().String(),
		"review": rev.ID,
		"rating": rating,
	})

	sum, err := w.Catalog.AddReview(course.Key(), rev)
	switch {
	case domain.IsNotFound(err):
		// The held list was replaced after the post; the review is stored.
		log.Warn("reviewed course no longer held")
		reviews := make([]domain.Review, 0, len(course.Reviews)+1)
		reviews = append(reviews, course.Reviews...)
		sum = domain.Summarize(append(reviews, rev))
	case err != nil:
		return rev, domain.ReviewSummary{}, err
	}
	log.Info("review posted")
	return rev, sum, nil
}

// ParseRating reads a rating form value. Non-numeric input is reported the
// same way as an out-of-range number.
func ParseRating(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || !domain.ValidRating(n) {
		return 0, domain.NewValidationError("rating",
			fmt.Sprintf("rating must be between %d and %d", domain.MinRating, domain.MaxRating))
	}
	return n, nil
}
