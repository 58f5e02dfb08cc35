package concurrency

import (
	"context"
	"sync"
)

// ParallelOptions configures ProcessParallel.
type ParallelOptions struct {
	// MaxWorkers bounds the number of concurrent calls to the item func.
	MaxWorkers int
}

func DefaultOptions() ParallelOptions {
	return ParallelOptions{MaxWorkers: 4}
}

type outcome[R any] struct {
	index  int
	result R
	err    error
}

// ProcessParallel runs itemFunc for every item on at most opts.MaxWorkers
// goroutines. Results keep the input order. Items not started because ctx
// was canceled report ctx.Err().
func ProcessParallel[T any, R any](
	ctx context.Context,
	items []T,
	opts ParallelOptions,
	itemFunc func(ctx context.Context, index int, item T) (R, error),
) ([]R, []error) {
	if len(items) == 0 {
		return []R{}, nil
	}

	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = DefaultOptions().MaxWorkers
	}
	if workers > len(items) {
		workers = len(items)
	}

	jobs := make(chan int, len(items))
	for i := range items {
		jobs <- i
	}
	close(jobs)

	out := make(chan outcome[R], len(items))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					out <- outcome[R]{index: i, err: err}
					continue
				}
				r, err := itemFunc(ctx, i, items[i])
				out <- outcome[R]{index: i, result: r, err: err}
			}
		}()
	}
	wg.Wait()
	close(out)

	results := make([]R, len(items))
	var errs []error
	for o := range out {
		results[o.index] = o.result
		if o.err != nil {
			errs = append(errs, o.err)
		}
	}
	return results, errs
}
