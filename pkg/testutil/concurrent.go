// Package testutil holds helpers shared by store and service tests.
package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	"tuition/internal/sentinel"
)

// ConcurrentResult tallies the outcomes of a concurrent run.
type ConcurrentResult struct {
	Successes int32
	Conflicts int32
	NotFounds int32
	Errors    int32
}

// Total returns the number of calls made.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Conflicts + r.NotFounds + r.Errors
}

// RunConcurrent calls fn from n goroutines released at the same moment.
// Errors wrapping ErrAlreadyUsed count as conflicts and ErrNotFound as not
// found; anything else is a generic error.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var successes, conflicts, notFounds, errs atomic.Int32
	run(n, func(idx int) {
		err := fn(idx)
		switch {
		case err == nil:
			successes.Add(1)
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			conflicts.Add(1)
		case errors.Is(err, sentinel.ErrNotFound):
			notFounds.Add(1)
		default:
			errs.Add(1)
		}
	})
	return &ConcurrentResult{
		Successes: successes.Load(),
		Conflicts: conflicts.Load(),
		NotFounds: notFounds.Load(),
		Errors:    errs.Load(),
	}
}

// CollectConcurrent is RunConcurrent for calls that produce a value. It
// returns the values of successful calls and every error, in no particular
// order.
func CollectConcurrent[T any](n int, fn func(idx int) (T, error)) ([]T, []error) {
	var (
		mu     sync.Mutex
		values []T
		errs   []error
	)
	run(n, func(idx int) {
		v, err := fn(idx)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = append(errs, err)
			return
		}
		values = append(values, v)
	})
	return values, errs
}

func run(n int, fn func(idx int)) {
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range n {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			fn(idx)
		}(i)
	}
	close(start)
	wg.Wait()
}
