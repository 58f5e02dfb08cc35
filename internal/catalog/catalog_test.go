package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"course-storefront/internal/domain"
	"course-storefront/internal/providers/skillsfuture"
)

type fakeSource struct {
	name string

	mu    sync.Mutex
	pages map[int][]domain.Course
	err   error
	calls []int
	gate  chan struct{}
	gates map[int]chan struct{}
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) FetchPage(ctx context.Context, page int, keyword string) ([]domain.Course, error) {
	f.mu.Lock()
	f.calls = append(f.calls, page)
	gate, err, courses := f.gate, f.err, f.pages[page]
	if g, ok := f.gates[page]; ok {
		gate = g
	}
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return courses, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func internalCourse(id int64) domain.Course {
	return domain.Course{Source: domain.SourceInternal, InternalID: id, Title: fmt.Sprintf("internal %d", id)}
}

func externalCourse(ref string) domain.Course {
	return domain.Course{Source: domain.SourceExternal, ExternalRef: ref, Title: "external " + ref}
}

func externalPage(prefix string, n int) []domain.Course {
	out := make([]domain.Course, n)
	for i := range out {
		out[i] = externalCourse(fmt.Sprintf("%s-%d", prefix, i))
	}
	return out
}

func keys(courses []domain.Course) []string {
	out := make([]string, len(courses))
	for i, c := range courses {
		out[i] = c.Key().String()
	}
	return out
}

func countKey(courses []domain.Course, key domain.CourseKey) int {
	n := 0
	for _, c := range courses {
		if c.Key() == key {
			n++
		}
	}
	return n
}

func TestFetchPageOneMergesBothSources(t *testing.T) {
	in := &fakeSource{name: "internal", pages: map[int][]domain.Course{1: {internalCourse(1), internalCourse(2)}}}
	ex := &fakeSource{name: "external", pages: map[int][]domain.Course{1: externalPage("A", 15)}}
	cat := New(in, ex, Options{})

	courses, hasMore, err := cat.FetchPage(context.Background(), 1, "go")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(courses) != 17 {
		t.Fatalf("Expected 17 courses, got %d", len(courses))
	}
	if courses[0].Key().String() != "internal:1" || courses[2].Key().String() != "external:A-0" {
		t.Errorf("Expected internal courses first, got %v", keys(courses[:3]))
	}
	if !hasMore {
		t.Error("Expected hasMore for a full external page")
	}
}

func TestFetchLaterPageSkipsInternalAndAppends(t *testing.T) {
	in := &fakeSource{name: "internal", pages: map[int][]domain.Course{1: {internalCourse(1)}}}
	ex := &fakeSource{name: "external", pages: map[int][]domain.Course{
		1: externalPage("A", 15),
		2: externalPage("B", 15),
	}}
	cat := New(in, ex, Options{})
	ctx := context.Background()

	if _, _, err := cat.FetchPage(ctx, 1, "go"); err != nil {
		t.Fatal(err)
	}
	courses, hasMore, err := cat.FetchPage(ctx, 2, "go")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(courses) != 31 {
		t.Errorf("Expected 31 courses, got %d", len(courses))
	}
	if !hasMore {
		t.Error("Expected hasMore after a second full page")
	}
	if in.callCount() != 1 {
		t.Errorf("Expected internal source to be read once, got %d", in.callCount())
	}
}

func TestMergeDeduplicatesBySourceAndID(t *testing.T) {
	dup := externalCourse("X")
	first := append([]domain.Course{dup}, externalPage("A", 14)...)
	second := append(externalPage("B", 14), domain.Course{Source: domain.SourceExternal, ExternalRef: "X", Title: "later copy"})

	ex := &fakeSource{name: "external", pages: map[int][]domain.Course{1: first, 2: second}}
	in := &fakeSource{name: "internal", pages: map[int][]domain.Course{1: {internalCourse(42)}}}
	cat := New(in, ex, Options{})
	ctx := context.Background()

	cat.FetchPage(ctx, 1, "")
	courses, _, err := cat.FetchPage(ctx, 2, "")
	if err != nil {
		t.Fatal(err)
	}

	key := domain.CourseKey{Source: domain.SourceExternal, ID: "X"}
	if n := countKey(courses, key); n != 1 {
		t.Errorf("Expected exactly one X, got %d", n)
	}
	held, _ := cat.Find(key)
	if held.Title != "external X" {
		t.Errorf("Expected first-seen copy to win, got %q", held.Title)
	}
}

func TestSameIDAcrossSourcesNeverMerges(t *testing.T) {
	in := &fakeSource{name: "internal", pages: map[int][]domain.Course{1: {internalCourse(42)}}}
	ex := &fakeSource{name: "external", pages: map[int][]domain.Course{1: {externalCourse("42")}}}
	cat := New(in, ex, Options{})

	courses, _, err := cat.FetchPage(context.Background(), 1, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(courses) != 2 {
		t.Errorf("Expected both courses to be kept, got %v", keys(courses))
	}
}

func TestShortExternalPageEndsPaging(t *testing.T) {
	in := &fakeSource{name: "internal"}
	ex := &fakeSource{name: "external", pages: map[int][]domain.Course{1: externalPage("A", 5)}}
	cat := New(in, ex, Options{})
	ctx := context.Background()

	courses, hasMore, err := cat.FetchPage(ctx, 1, "sql")
	if err != nil {
		t.Fatal(err)
	}
	if hasMore {
		t.Error("Expected hasMore false for a short page")
	}

	again, hasMore, err := cat.FetchPage(ctx, 2, "sql")
	if err != nil {
		t.Fatalf("Expected load-more to be a no-op, got %v", err)
	}
	if hasMore || len(again) != len(courses) {
		t.Errorf("Expected held list unchanged, got %d courses hasMore=%v", len(again), hasMore)
	}
	if ex.callCount() != 1 {
		t.Errorf("Expected no further external reads, got %d", ex.callCount())
	}
}

func TestPageOneStartsFreshList(t *testing.T) {
	in := &fakeSource{name: "internal", pages: map[int][]domain.Course{1: {internalCourse(1)}}}
	ex := &fakeSource{name: "external", pages: map[int][]domain.Course{1: externalPage("A", 3)}}
	cat := New(in, ex, Options{})
	ctx := context.Background()

	cat.FetchPage(ctx, 1, "go")
	ex.mu.Lock()
	ex.pages[1] = externalPage("Z", 2)
	ex.mu.Unlock()

	courses, _, err := cat.FetchPage(ctx, 1, "rust")
	if err != nil {
		t.Fatal(err)
	}
	if len(courses) != 3 {
		t.Errorf("Expected the new search to replace the list, got %v", keys(courses))
	}
	if cat.Snapshot().Keyword != "rust" {
		t.Errorf("Expected keyword rust, got %q", cat.Snapshot().Keyword)
	}
}

func TestFailureLeavesHeldListUntouched(t *testing.T) {
	in := &fakeSource{name: "internal", pages: map[int][]domain.Course{1: {internalCourse(1)}}}
	ex := &fakeSource{name: "external", pages: map[int][]domain.Course{1: externalPage("A", 15)}}
	cat := New(in, ex, Options{})
	ctx := context.Background()

	before, _, err := cat.FetchPage(ctx, 1, "go")
	if err != nil {
		t.Fatal(err)
	}

	in.mu.Lock()
	in.err = errors.New("connection refused")
	in.mu.Unlock()

	_, _, err = cat.FetchPage(ctx, 1, "go")
	if !domain.IsNetwork(err) {
		t.Fatalf("Expected NetworkError, got %v", err)
	}
	if got := cat.Courses(); len(got) != len(before) {
		t.Errorf("Expected %d held courses after failure, got %d", len(before), len(got))
	}

	ex.mu.Lock()
	ex.err = errors.New("bad gateway")
	ex.mu.Unlock()
	if _, _, err := cat.FetchPage(ctx, 2, "go"); !domain.IsNetwork(err) {
		t.Fatalf("Expected NetworkError on page 2, got %v", err)
	}
	if got := cat.Courses(); len(got) != len(before) {
		t.Errorf("Expected held list unchanged, got %d", len(got))
	}
}

func TestOneSourceFailingAppliesNothing(t *testing.T) {
	in := &fakeSource{name: "internal", pages: map[int][]domain.Course{1: {internalCourse(1)}}}
	ex := &fakeSource{name: "external", err: errors.New("timeout")}
	cat := New(in, ex, Options{})

	courses, _, err := cat.FetchPage(context.Background(), 1, "")
	if err == nil {
		t.Fatal("Expected error")
	}
	if courses != nil || len(cat.Courses()) != 0 {
		t.Error("Expected no partial merge of the internal source")
	}
}

func TestFetchPageValidation(t *testing.T) {
	cat := New(&fakeSource{name: "internal"}, &fakeSource{name: "external"}, Options{})
	ctx := context.Background()

	if _, _, err := cat.FetchPage(ctx, 0, ""); !domain.IsValidation(err) {
		t.Errorf("Expected ValidationError for page 0, got %v", err)
	}
	if _, _, err := cat.FetchPage(ctx, 2, "go"); !domain.IsValidation(err) {
		t.Errorf("Expected ValidationError before page 1, got %v", err)
	}
	cat.FetchPage(ctx, 1, "go")
	if _, _, err := cat.FetchPage(ctx, 2, "rust"); !domain.IsValidation(err) {
		t.Errorf("Expected ValidationError for a different keyword, got %v", err)
	}
}

func TestResetDiscardsInFlightFetch(t *testing.T) {
	gate := make(chan struct{})
	in := &fakeSource{name: "internal", pages: map[int][]domain.Course{1: {internalCourse(1)}}}
	ex := &fakeSource{name: "external", pages: map[int][]domain.Course{1: externalPage("A", 3)}, gate: gate}
	cat := New(in, ex, Options{})

	done := make(chan error, 1)
	go func() {
		_, _, err := cat.FetchPage(context.Background(), 1, "go")
		done <- err
	}()

	for ex.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}
	cat.Reset()
	close(gate)

	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("Expected ErrStale, got %v", err)
	}
	if n := len(cat.Courses()); n != 0 {
		t.Errorf("Expected stale results to be discarded, held %d", n)
	}
}

func TestNewerSearchSupersedesOlder(t *testing.T) {
	gate := make(chan struct{})
	in := &fakeSource{name: "internal", pages: map[int][]domain.Course{1: {internalCourse(1)}}}
	ex := &fakeSource{name: "external", pages: map[int][]domain.Course{1: externalPage("A", 3)}, gate: gate}
	cat := New(in, ex, Options{})

	done := make(chan error, 1)
	go func() {
		_, _, err := cat.FetchPage(context.Background(), 1, "old")
		done <- err
	}()
	for ex.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	ex.mu.Lock()
	ex.gate = nil
	ex.mu.Unlock()
	if _, _, err := cat.FetchPage(context.Background(), 1, "new"); err != nil {
		t.Fatalf("newer search failed: %v", err)
	}
	close(gate)

	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("Expected older search to be stale, got %v", err)
	}
	if kw := cat.Snapshot().Keyword; kw != "new" {
		t.Errorf("Expected keyword new, got %q", kw)
	}
}

func TestDefaultPageSizeFollowsDirectory(t *testing.T) {
	cat := New(nil, nil, Options{})
	if cat.opts.PageSize != skillsfuture.PageSize {
		t.Errorf("PageSize = %d, want %d", cat.opts.PageSize, skillsfuture.PageSize)
	}
}

func waitCalls(src *fakeSource, n int) {
	for src.callCount() < n {
		time.Sleep(time.Millisecond)
	}
}

func TestLateLoadMoreForReplacedKeywordIsStale(t *testing.T) {
	in := &fakeSource{name: "internal", pages: map[int][]domain.Course{1: {internalCourse(1)}}}
	ex := &fakeSource{name: "external", pages: map[int][]domain.Course{
		1: externalPage("A", 3),
		2: externalPage("B", 3),
	}}
	cat := New(in, ex, Options{PageSize: 3})
	ctx := context.Background()

	if _, _, err := cat.FetchPage(ctx, 1, "go"); err != nil {
		t.Fatalf("page 1: %v", err)
	}

	searchGate, moreGate := make(chan struct{}), make(chan struct{})
	ex.mu.Lock()
	ex.gates = map[int]chan struct{}{1: searchGate, 2: moreGate}
	ex.mu.Unlock()

	search := make(chan error, 1)
	go func() {
		_, _, err := cat.FetchPage(ctx, 1, "rust")
		search <- err
	}()
	waitCalls(ex, 2)

	more := make(chan error, 1)
	go func() {
		_, _, err := cat.FetchPage(ctx, 2, "go")
		more <- err
	}()
	waitCalls(ex, 3)

	close(searchGate)
	if err := <-search; err != nil {
		t.Fatalf("rust search failed: %v", err)
	}
	close(moreGate)
	if err := <-more; !errors.Is(err, ErrStale) {
		t.Fatalf("Expected ErrStale for the late go page, got %v", err)
	}

	st := cat.Snapshot()
	if st.Keyword != "rust" || st.Page != 1 || !st.HasMore {
		t.Errorf("Expected rust page 1 with more, got keyword=%q page=%d hasMore=%v", st.Keyword, st.Page, st.HasMore)
	}
	for _, c := range st.Courses {
		if c.Source == domain.SourceExternal && c.ExternalRef[0] == 'B' {
			t.Errorf("go page 2 course %s merged into the rust list", c.ExternalRef)
		}
	}
	if len(st.Courses) != 4 {
		t.Errorf("Expected 4 held courses, got %d", len(st.Courses))
	}
}

func TestShortPageStaysFinalWhenEarlierPageLandsLate(t *testing.T) {
	in := &fakeSource{name: "internal", pages: map[int][]domain.Course{1: {internalCourse(1)}}}
	ex := &fakeSource{name: "external", pages: map[int][]domain.Course{
		1: externalPage("A", 3),
		2: externalPage("B", 3),
		3: externalPage("C", 1),
	}}
	cat := New(in, ex, Options{PageSize: 3})
	ctx := context.Background()

	if _, _, err := cat.FetchPage(ctx, 1, "go"); err != nil {
		t.Fatalf("page 1: %v", err)
	}

	gate := make(chan struct{})
	ex.mu.Lock()
	ex.gates = map[int]chan struct{}{2: gate}
	ex.mu.Unlock()

	late := make(chan error, 1)
	go func() {
		_, _, err := cat.FetchPage(ctx, 2, "go")
		late <- err
	}()
	waitCalls(ex, 2)

	if _, more, err := cat.FetchPage(ctx, 3, "go"); err != nil || more {
		t.Fatalf("page 3: more=%v err=%v", more, err)
	}
	close(gate)
	if err := <-late; err != nil {
		t.Fatalf("page 2: %v", err)
	}

	if cat.HasMore() {
		t.Fatal("Expected hasMore to stay false after the short page")
	}
	calls := ex.callCount()
	if _, _, err := cat.FetchPage(ctx, 4, "go"); err != nil {
		t.Fatalf("page 4: %v", err)
	}
	if ex.callCount() != calls {
		t.Error("Expected load-more after a short page to skip the directory")
	}
	if n := len(cat.Courses()); n != 8 {
		t.Errorf("Expected 8 held courses, got %d", n)
	}
}

type fakeReviews struct {
	mu     sync.Mutex
	byKey  map[domain.CourseKey][]domain.Review
	failOn domain.CourseKey
	loaded []domain.CourseKey
}

func (f *fakeReviews) LoadReviews(ctx context.Context, key domain.CourseKey) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = append(f.loaded, key)
	if key == f.failOn {
		return nil, errors.New("reviews unavailable")
	}
	return f.byKey[key], nil
}

func TestHydrationLoadsReviewsForNewCourses(t *testing.T) {
	k1 := internalCourse(1).Key()
	rv := &fakeReviews{byKey: map[domain.CourseKey][]domain.Review{
		k1: {{ID: "a", Rating: 5}, {ID: "b", Rating: 3}},
	}}
	in := &fakeSource{name: "internal", pages: map[int][]domain.Course{1: {internalCourse(1)}}}
	ex := &fakeSource{name: "external", pages: map[int][]domain.Course{
		1: externalPage("A", 15),
		2: append(externalPage("A", 1), externalCourse("NEW")),
	}}
	cat := New(in, ex, Options{Reviews: rv, ReviewWorkers: 3})
	ctx := context.Background()

	if _, _, err := cat.FetchPage(ctx, 1, ""); err != nil {
		t.Fatal(err)
	}
	c, _ := cat.Find(k1)
	if got := c.Rating(); got.Average != 4 || got.Count != 2 {
		t.Errorf("Expected hydrated rating 4 over 2, got %+v", got)
	}
	if len(rv.loaded) != 16 {
		t.Errorf("Expected 16 review loads on page 1, got %d", len(rv.loaded))
	}

	rv.loaded = nil
	if _, _, err := cat.FetchPage(ctx, 2, ""); err != nil {
		t.Fatal(err)
	}
	if len(rv.loaded) != 1 || rv.loaded[0].ID != "NEW" {
		t.Errorf("Expected only the new course to be hydrated, got %v", rv.loaded)
	}
}

func TestHydrationFailureAbortsCycle(t *testing.T) {
	rv := &fakeReviews{failOn: externalCourse("A-2").Key()}
	in := &fakeSource{name: "internal"}
	ex := &fakeSource{name: "external", pages: map[int][]domain.Course{1: externalPage("A", 4)}}
	cat := New(in, ex, Options{Reviews: rv})

	_, _, err := cat.FetchPage(context.Background(), 1, "")
	if !domain.IsNetwork(err) {
		t.Fatalf("Expected NetworkError, got %v", err)
	}
	if len(cat.Courses()) != 0 {
		t.Error("Expected nothing merged after hydration failure")
	}
}

func TestAddReviewRecomputesOneCourse(t *testing.T) {
	target := internalCourse(1)
	target.Reviews = []domain.Review{{ID: "r1", Rating: 5}, {ID: "r2", Rating: 3}}
	other := internalCourse(2)
	other.Reviews = []domain.Review{{ID: "r3", Rating: 1}}

	cat := New(&fakeSource{name: "internal"}, &fakeSource{name: "external"}, Options{})
	cat.Restore(State{Keyword: "", Page: 1, Started: true, Courses: []domain.Course{target, other}})

	before := cat.Snapshot()
	if got := domain.Summarize(before.Courses[0].Reviews).Average; got != 4 {
		t.Fatalf("Expected starting average 4, got %v", got)
	}

	sum, err := cat.AddReview(target.Key(), domain.Review{ID: "r4", Rating: 4})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Average != 4 || sum.Count != 3 {
		t.Errorf("Expected average 4 over 3, got %+v", sum)
	}

	o, _ := cat.Find(other.Key())
	if len(o.Reviews) != 1 {
		t.Errorf("Expected other course untouched, got %d reviews", len(o.Reviews))
	}
	if len(before.Courses[0].Reviews) != 2 {
		t.Error("Expected earlier snapshot to be unaffected by AddReview")
	}

	if _, err := cat.AddReview(domain.CourseKey{Source: domain.SourceExternal, ID: "missing"}, domain.Review{Rating: 3}); !domain.IsNotFound(err) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}
}

func TestRestoreDropsDuplicates(t *testing.T) {
	cat := New(&fakeSource{name: "internal"}, &fakeSource{name: "external"}, Options{})
	cat.Restore(State{
		Keyword: "go", Page: 2, HasMore: true, Started: true,
		Courses: []domain.Course{externalCourse("X"), internalCourse(1), externalCourse("X")},
	})

	st := cat.Snapshot()
	if len(st.Courses) != 2 || st.Page != 2 || !st.HasMore || st.Keyword != "go" {
		t.Errorf("unexpected restored state %+v", st)
	}
	for _, c := range st.Courses {
		if c.Reviews == nil {
			t.Error("Expected restored courses to carry a non-nil review list")
		}
	}
}

func TestObserverSeesEverySourceRead(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	observe := func(source string, _ time.Duration, _ error) {
		mu.Lock()
		seen[source]++
		mu.Unlock()
	}

	in := &fakeSource{name: "internal"}
	ex := &fakeSource{name: "external", pages: map[int][]domain.Course{1: externalPage("A", 15)}}
	cat := New(in, ex, Options{Observe: observe})
	ctx := context.Background()

	cat.FetchPage(ctx, 1, "")
	cat.FetchPage(ctx, 2, "")

	if seen["internal"] != 1 || seen["external"] != 2 {
		t.Errorf("unexpected observations %v", seen)
	}
}
