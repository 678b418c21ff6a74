// Package orchestrator implements bounded, cancellable outbound work for tool
// handlers: one primary call raced against an internal timeout and the caller's
// cancellation, then an all-settled fan-out of secondary calls.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atlanticdynamic/builtinmcp/internal/result"
)

// Primary runs call under a context that is cancelled by whichever comes
// first: the caller's ctx or the internal budget. The returned error wraps
// result.ErrCancelled when the caller aborted and result.ErrTimeout when the
// budget ran out. Primary returns as soon as the derived context is done, even
// if call has not yet observed the cancellation.
func Primary[T any](ctx context.Context, budget time.Duration, call func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := withBudget(ctx, budget)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		var o outcome
		defer func() {
			if r := recover(); r != nil {
				o.err = fmt.Errorf("%w: panic in outbound call: %v", result.ErrInternal, r)
			}
			done <- o
		}()
		o.val, o.err = call(callCtx)
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return o.val, abortError(ctx, callCtx, o.err)
		}
		return o.val, nil
	case <-callCtx.Done():
		var zero T
		return zero, abortError(ctx, callCtx, callCtx.Err())
	}
}

// withBudget derives a context bounded by budget. A non-positive budget only
// inherits the caller's cancellation.
func withBudget(ctx context.Context, budget time.Duration) (context.Context, context.CancelFunc) {
	if budget <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeoutCause(ctx, budget, result.ErrTimeout)
}

// abortError attributes a failed call to its abort source, if any.
func abortError(parent, callCtx context.Context, err error) error {
	switch {
	case parent.Err() != nil:
		return fmt.Errorf("%w: %w", result.ErrCancelled, context.Cause(parent))
	case callCtx.Err() != nil && errors.Is(context.Cause(callCtx), result.ErrTimeout):
		return fmt.Errorf("%w: %w", result.ErrTimeout, err)
	default:
		return err
	}
}

// AbortSource reports which side ended a call: "caller", "timeout", or "" when
// the error is not an abort.
func AbortSource(err error) string {
	switch {
	case errors.Is(err, result.ErrCancelled):
		return "caller"
	case errors.Is(err, result.ErrTimeout):
		return "timeout"
	default:
		return ""
	}
}
