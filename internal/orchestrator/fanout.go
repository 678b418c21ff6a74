package orchestrator

import (
	"context"
	"sync"
	"time"
)

// Outcome is the settled state of one secondary call.
type Outcome[T any] struct {
	Index    int
	Value    T
	Err      error
	Duration time.Duration
}

// OK reports whether the call succeeded.
func (o Outcome[T]) OK() bool {
	return o.Err == nil
}

// FanOut runs call for at most limit items concurrently and waits for every
// one of them to settle. Each call gets its own timeout derived from ctx, so
// a slow item never delays or cancels its siblings. Failures, including
// panics, are recorded on the item's Outcome and never stop the batch.
// Outcomes are returned in input order. A non-positive limit skips the
// fan-out entirely.
func FanOut[In, Out any](
	ctx context.Context,
	items []In,
	limit int,
	perItem time.Duration,
	call func(context.Context, In) (Out, error),
) []Outcome[Out] {
	if limit <= 0 || len(items) == 0 {
		return nil
	}
	if len(items) > limit {
		items = items[:limit]
	}

	outcomes := make([]Outcome[Out], len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item In) {
			defer wg.Done()
			start := time.Now()
			v, err := settle(ctx, perItem, item, call)
			outcomes[i] = Outcome[Out]{Index: i, Value: v, Err: err, Duration: time.Since(start)}
		}(i, item)
	}
	wg.Wait()

	return outcomes
}

func settle[In, Out any](
	ctx context.Context,
	perItem time.Duration,
	item In,
	call func(context.Context, In) (Out, error),
) (Out, error) {
	return Primary(ctx, perItem, func(c context.Context) (Out, error) {
		return call(c, item)
	})
}

// Succeeded returns the values of successful outcomes, preserving order.
func Succeeded[T any](outcomes []Outcome[T]) []T {
	out := make([]T, 0, len(outcomes))
	for _, o := range outcomes {
		if o.OK() {
			out = append(out, o.Value)
		}
	}
	return out
}

// Failed returns the failed outcomes, preserving order.
func Failed[T any](outcomes []Outcome[T]) []Outcome[T] {
	var out []Outcome[T]
	for _, o := range outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}
