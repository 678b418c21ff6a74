// Package servers is the closed registry of builtin MCP servers this binary
// can host.
package servers

import (
	"fmt"
	"strings"
)

// Kind identifies a builtin server.
type Kind int

const (
	KindWebSearch Kind = iota
	KindSequential
	KindPlanner
)

// All returns every known kind in display order.
func All() []Kind {
	return []Kind{KindWebSearch, KindSequential, KindPlanner}
}

// String returns the name used on the command line and in config.
func (k Kind) String() string {
	switch k {
	case KindWebSearch:
		return "websearch"
	case KindSequential:
		return "sequential"
	case KindPlanner:
		return "planner"
	default:
		return "unknown"
	}
}

// Parse resolves a server name, case-insensitively.
func Parse(name string) (Kind, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, k := range All() {
		if k.String() == want {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q (known: %s)", ErrUnknownServer, name, strings.Join(Names(), ", "))
}

// Names returns the names of every known kind.
func Names() []string {
	out := make([]string, 0, len(All()))
	for _, k := range All() {
		out = append(out, k.String())
	}
	return out
}
