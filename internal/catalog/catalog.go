package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"course-storefront/internal/concurrency"
	"course-storefront/internal/domain"
	"course-storefront/internal/providers"
	"course-storefront/internal/providers/skillsfuture"
)

// DefaultPageSize is the page length of the external directory.
const DefaultPageSize = skillsfuture.PageSize

// ErrStale is returned when a fetch finished after a newer search or a Reset
// replaced the list it was started for. Its results are discarded.
var ErrStale = errors.New("catalog: fetch superseded by a newer one")

type ReviewLoader interface {
	LoadReviews(ctx context.Context, key domain.CourseKey) ([]domain.Review, error)
}

// FetchObserver is told about every source read.
type FetchObserver func(source string, elapsed time.Duration, err error)

type Options struct {
	PageSize      int
	ReviewWorkers int

	// Reviews hydrates newly merged courses. Nil skips hydration.
	Reviews ReviewLoader

	Observe FetchObserver
	Log     logrus.FieldLogger
}

// State is the serializable content of a Catalog.
type State struct {
	Keyword string          `json:"keyword"`
	Page    int             `json:"page"`
	HasMore bool            `json:"hasMore"`
	Started bool            `json:"started"`
	Courses []domain.Course `json:"courses"`
}

// Catalog merges the internal catalog and the paged external directory into
// one list without duplicate (source, id) keys.
type Catalog struct {
	internal providers.CourseSource
	external providers.CourseSource
	opts     Options

	mu    sync.Mutex
	gen   uint64
	st    State
	index map[domain.CourseKey]int
}

func New(internal, external providers.CourseSource, opts Options) *Catalog {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.ReviewWorkers <= 0 {
		opts.ReviewWorkers = concurrency.DefaultOptions().MaxWorkers
	}
	if opts.Log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		opts.Log = l
	}
	return &Catalog{
		internal: internal,
		external: external,
		opts:     opts,
		index:    map[domain.CourseKey]int{},
	}
}

// FetchPage loads page (1-based) for keyword and returns the whole held list.
//
// Page 1 reads both sources concurrently and starts a fresh list. Later
// pages read only the external source and append to the list held for the
// same keyword. Once a short external page has been seen, further pages are
// no-ops. Any failure leaves the held list untouched.
func (c *Catalog) FetchPage(ctx context.Context, page int, keyword string) ([]domain.Course, bool, error) {
	if page < 1 {
		return nil, false, domain.NewValidationError("page", "must be 1 or greater")
	}

	c.mu.Lock()
	if page > 1 {
		if !c.st.Started || c.st.Keyword != keyword {
			c.mu.Unlock()
			return nil, false, domain.NewValidationError("page", "load page 1 for this keyword first")
		}
		if !c.st.HasMore {
			courses := cloneCourses(c.st.Courses)
			c.mu.Unlock()
			return courses, false, nil
		}
	} else {
		c.gen++
	}
	gen := c.gen
	c.mu.Unlock()

	log := c.opts.Log.WithFields(logrus.Fields{"page": page, "keyword": keyword})

	var internal, external []domain.Course
	var err error
	if page == 1 {
		internal, external, err = c.fetchBoth(ctx, keyword)
	} else {
		external, err = c.fetch(ctx, c.external, page, keyword)
	}
	if err != nil {
		log.WithError(err).Warn("catalog fetch failed")
		return nil, false, err
	}

	batch := make([]domain.Course, 0, len(internal)+len(external))
	batch = append(batch, internal...)
	batch = append(batch, external...)

	if err := c.hydrate(ctx, page, batch); err != nil {
		log.WithError(err).Warn("review hydration failed")
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen || (page > 1 && (!c.st.Started || c.st.Keyword != keyword)) {
		log.Debug("discarding stale catalog page")
		return nil, false, ErrStale
	}

	if page == 1 {
		c.st = State{Keyword: keyword, Started: true}
		c.index = make(map[domain.CourseKey]int, len(batch))
	}
	added := 0
	for _, course := range batch {
		if c.insert(course) {
			added++
		}
	}
	if page > c.st.Page {
		c.st.Page = page
	}
	full := len(external) >= c.opts.PageSize
	if page == 1 {
		c.st.HasMore = full
	} else {
		// A short page ends the directory even if an earlier page lands later.
		c.st.HasMore = c.st.HasMore && full
	}

	log.WithFields(logrus.Fields{
		"internal": len(internal),
		"external": len(external),
		"added":    added,
		"held":     len(c.st.Courses),
		"has_more": c.st.HasMore,
	}).Debug("catalog page merged")

	return cloneCourses(c.st.Courses), c.st.HasMore, nil
}

type sourceResult struct {
	internal bool
	courses  []domain.Course
	err      error
}

// fetchBoth reads page 1 of both sources concurrently. Both must succeed.
func (c *Catalog) fetchBoth(ctx context.Context, keyword string) ([]domain.Course, []domain.Course, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan sourceResult, 2)
	for _, s := range []struct {
		internal bool
		src      providers.CourseSource
	}{{true, c.internal}, {false, c.external}} {
		go func(internal bool, src providers.CourseSource) {
			courses, err := c.fetch(ctx, src, 1, keyword)
			results <- sourceResult{internal: internal, courses: courses, err: err}
		}(s.internal, s.src)
	}

	var internal, external []domain.Course
	var firstErr error
	for i := 0; i < 2; i++ {
		r := <-results
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
				cancel()
			}
			continue
		}
		if r.internal {
			internal = r.courses
		} else {
			external = r.courses
		}
	}
	if firstErr != nil {
		return nil, nil, firstErr
	}
	return internal, external, nil
}

func (c *Catalog) fetch(ctx context.Context, src providers.CourseSource, page int, keyword string) ([]domain.Course, error) {
	start := time.Now()
	courses, err := src.FetchPage(ctx, page, keyword)
	if c.opts.Observe != nil {
		c.opts.Observe(src.Name(), time.Since(start), err)
	}
	if err != nil {
		return nil, &domain.NetworkError{Op: "fetch " + src.Name() + " courses", Err: err}
	}
	return courses, nil
}

// hydrate loads reviews for the batch entries the list does not hold yet.
func (c *Catalog) hydrate(ctx context.Context, page int, batch []domain.Course) error {
	if c.opts.Reviews == nil || len(batch) == 0 {
		return nil
	}

	targets := make([]int, 0, len(batch))
	c.mu.Lock()
	for i, course := range batch {
		if _, held := c.index[course.Key()]; page == 1 || !held {
			targets = append(targets, i)
		}
	}
	c.mu.Unlock()

	reviews, errs := concurrency.ProcessParallel(ctx, targets,
		concurrency.ParallelOptions{MaxWorkers: c.opts.ReviewWorkers},
		func(ctx context.Context, _ int, i int) ([]domain.Review, error) {
			key := batch[i].Key()
			rs, err := c.opts.Reviews.LoadReviews(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("reviews for %s: %w", key, err)
			}
			return rs, nil
		})
	if len(errs) > 0 {
		return &domain.NetworkError{Op: "load reviews", Err: errors.Join(errs...)}
	}
	for n, i := range targets {
		if reviews[n] != nil {
			batch[i].Reviews = reviews[n]
		}
	}
	return nil
}

// insert appends course unless its key is already held. Caller holds mu.
func (c *Catalog) insert(course domain.Course) bool {
	key := course.Key()
	if _, dup := c.index[key]; dup {
		return false
	}
	if course.Reviews == nil {
		course.Reviews = []domain.Review{}
	}
	c.index[key] = len(c.st.Courses)
	c.st.Courses = append(c.st.Courses, course)
	return true
}

// Reset drops the held list and invalidates in-flight fetches.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.st = State{}
	c.index = map[domain.CourseKey]int{}
}

// AddReview appends review to the held course and returns its new
// aggregate. Other courses are untouched.
func (c *Catalog) AddReview(key domain.CourseKey, review domain.Review) (domain.ReviewSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[key]
	if !ok {
		return domain.ReviewSummary{}, &domain.NotFoundError{What: "course", ID: key.String()}
	}
	old := c.st.Courses[i].Reviews
	reviews := make([]domain.Review, len(old), len(old)+1)
	copy(reviews, old)
	c.st.Courses[i].Reviews = append(reviews, review)
	return domain.Summarize(c.st.Courses[i].Reviews), nil
}

func (c *Catalog) Find(key domain.CourseKey) (domain.Course, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[key]
	if !ok {
		return domain.Course{}, false
	}
	return c.st.Courses[i], true
}

func (c *Catalog) Courses() []domain.Course {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneCourses(c.st.Courses)
}

func (c *Catalog) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.HasMore
}

func (c *Catalog) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.st
	st.Courses = cloneCourses(c.st.Courses)
	return st
}

// Restore replaces the held list with st. Duplicate keys in st keep the
// first occurrence. In-flight fetches become stale.
func (c *Catalog) Restore(st State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	courses := st.Courses
	c.st = st
	c.st.Courses = make([]domain.Course, 0, len(courses))
	c.index = make(map[domain.CourseKey]int, len(courses))
	for _, course := range courses {
		c.insert(course)
	}
}

// cloneCourses copies the slice header array. Review slices are shared;
// AddReview never appends in place.
func cloneCourses(in []domain.Course) []domain.Course {
	out := make([]domain.Course, len(in))
	copy(out, in)
	return out
}
