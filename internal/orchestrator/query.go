package orchestrator

import (
	"strings"
)

// BuildQuery appends domain filters to a base query. Inclusion domains are
// OR-combined into one parenthesised clause; each exclusion domain becomes
// its own negated clause, in the order supplied. Blank domains are skipped.
func BuildQuery(base string, include, exclude []string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(base))

	sites := make([]string, 0, len(include))
	for _, d := range include {
		if d = strings.TrimSpace(d); d != "" {
			sites = append(sites, "site:"+d)
		}
	}
	if len(sites) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(sites, " OR "))
		b.WriteString(")")
	}

	for _, d := range exclude {
		if d = strings.TrimSpace(d); d != "" {
			b.WriteString(" -site:")
			b.WriteString(d)
		}
	}
	return b.String()
}
