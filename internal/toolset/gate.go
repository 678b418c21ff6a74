package toolset

import (
	"context"
	"fmt"
	"strings"

	"github.com/atlanticdynamic/builtinmcp/internal/result"
)

// Gate decides whether a call may proceed. It runs after argument validation
// and before the handler.
type Gate interface {
	Check(ctx context.Context, inv *Invocation, capability string) error
}

// Policy is the configured access rule for one capability.
type Policy string

const (
	PolicyAllow Policy = "allow"
	PolicyAsk   Policy = "ask"
	PolicyDeny  Policy = "deny"
)

// ParsePolicy converts a configured string into a Policy. Empty means allow.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyAllow:
		return PolicyAllow, nil
	case PolicyAsk:
		return PolicyAsk, nil
	case PolicyDeny:
		return PolicyDeny, nil
	default:
		return "", fmt.Errorf("unknown permission policy: %q", s)
	}
}

// PolicyGate applies a per-capability policy table. Capabilities without an
// entry use Default.
type PolicyGate struct {
	Policies map[string]Policy
	Default  Policy
}

// Check implements Gate. Under PolicyAsk the caller must have obtained
// approval and passed it as _meta.permission, either "granted" or the
// capability name.
func (g *PolicyGate) Check(_ context.Context, inv *Invocation, capability string) error {
	if g == nil {
		return nil
	}
	policy, ok := g.Policies[capability]
	if !ok {
		policy = g.Default
	}

	switch policy {
	case PolicyDeny:
		return fmt.Errorf("%w: %s is disabled by configuration", result.ErrPermissionDenied, capability)
	case PolicyAsk:
		granted := inv.metaString(MetaPermission)
		if granted == "granted" || (capability != "" && granted == capability) {
			return nil
		}
		return fmt.Errorf(
			"%w: %s requires approval; retry with _meta.%s set to \"granted\"",
			result.ErrPermissionDenied, capability, MetaPermission,
		)
	default:
		return nil
	}
}
