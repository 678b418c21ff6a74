package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/atlanticdynamic/builtinmcp/internal/result"
)

// Spec is the per-orchestration configuration. It is never shared global state.
type Spec struct {
	// Query is the fully built primary query.
	Query string

	// Timeout bounds the primary call.
	Timeout time.Duration

	// ItemTimeout bounds each secondary call independently.
	ItemTimeout time.Duration

	// MaxSubCalls caps the fan-out. Zero skips it.
	MaxSubCalls int

	// MaxPayloadBytes caps each secondary artifact.
	MaxPayloadBytes int64
}

// Plan describes one orchestrated invocation. Primary is required; Derive and
// Fetch are only used when the fan-out runs.
type Plan[P, I, S any] struct {
	Spec Spec

	// Primary performs the primary call.
	Primary func(ctx context.Context, spec Spec) (P, error)

	// Empty reports whether the primary result carries nothing usable.
	Empty func(P) bool

	// Derive extracts the secondary work items from the primary result.
	Derive func(P) []I

	// Fetch performs one secondary call.
	Fetch func(ctx context.Context, spec Spec, item I) (S, error)
}

// Report is the outcome of a successful orchestration. Secondary failures are
// listed individually; they never turn the report into an error.
type Report[P, S any] struct {
	Primary   P
	Secondary []Outcome[S]
	// Requested is Spec.MaxSubCalls when a fan-out ran, even if the primary
	// result offered fewer items.
	Requested int
}

// Shortfall is how many requested secondary results are missing.
func (r *Report[P, S]) Shortfall() int {
	return r.Requested - len(Succeeded(r.Secondary))
}

// Execute runs the plan: the primary call strictly precedes the fan-out, an
// empty or failed primary ends the invocation, and the fan-out is all-settled.
func Execute[P, I, S any](ctx context.Context, plan Plan[P, I, S]) (*Report[P, S], error) {
	if plan.Primary == nil {
		return nil, fmt.Errorf("%w: plan has no primary call", result.ErrInternal)
	}

	primary, err := Primary(ctx, plan.Spec.Timeout, func(c context.Context) (P, error) {
		return plan.Primary(c, plan.Spec)
	})
	if err != nil {
		return nil, err
	}
	if plan.Empty != nil && plan.Empty(primary) {
		return nil, result.ErrEmptyResult
	}

	report := &Report[P, S]{Primary: primary}
	if plan.Spec.MaxSubCalls <= 0 || plan.Derive == nil || plan.Fetch == nil {
		return report, nil
	}

	// Requested counts what the caller asked for, so a primary result with
	// fewer items than that shows up as shortfall.
	report.Requested = plan.Spec.MaxSubCalls
	items := plan.Derive(primary)
	if len(items) > plan.Spec.MaxSubCalls {
		items = items[:plan.Spec.MaxSubCalls]
	}
	report.Secondary = FanOut(ctx, items, plan.Spec.MaxSubCalls, plan.Spec.ItemTimeout,
		func(c context.Context, item I) (S, error) {
			return plan.Fetch(c, plan.Spec, item)
		})

	return report, nil
}
