// Package sequential is the builtin step-by-step reasoning server. It keeps no
// state between calls: each thought is validated, normalised and echoed back.
package sequential

import (
	"context"
	"fmt"
	"strings"

	"github.com/atlanticdynamic/builtinmcp/internal/result"
	"github.com/atlanticdynamic/builtinmcp/internal/toolset"
)

const (
	ToolName   = "sequentialthinking"
	Capability = "reasoning"

	Instructions = "Use sequentialthinking to work through a problem one thought at a time. " +
		"Revise or branch from earlier thoughts when your understanding changes."
)

// Thought is one reasoning step as submitted by the caller.
type Thought struct {
	Thought           string `json:"thought"`
	ThoughtNumber     int    `json:"thoughtNumber"`
	TotalThoughts     int    `json:"totalThoughts"`
	NextThoughtNeeded bool   `json:"nextThoughtNeeded"`
	IsRevision        bool   `json:"isRevision,omitempty"`
	RevisesThought    int    `json:"revisesThought,omitempty"`
	BranchFromThought int    `json:"branchFromThought,omitempty"`
	BranchID          string `json:"branchId,omitempty"`
	NeedsMoreThoughts bool   `json:"needsMoreThoughts,omitempty"`
}

// Summary is the structured echo of a normalised thought.
type Summary struct {
	ThoughtNumber     int    `json:"thoughtNumber"`
	TotalThoughts     int    `json:"totalThoughts"`
	NextThoughtNeeded bool   `json:"nextThoughtNeeded"`
	Kind              string `json:"kind"`
	BranchID          string `json:"branchId,omitempty"`
}

// Definitions returns the tools this server registers.
func Definitions() []toolset.Definition {
	return []toolset.Definition{{
		Name:        ToolName,
		Title:       "Sequential thinking",
		Description: "Record one step of a reflective, step-by-step reasoning process. Thoughts may revise or branch from earlier ones.",
		Capability:  Capability,
		Input: toolset.Schema{Fields: []toolset.Field{
			{Name: "thought", Type: toolset.FieldString, Required: true, MinLength: toolset.Count(1), Description: "The current thinking step"},
			{Name: "thoughtNumber", Type: toolset.FieldInteger, Required: true, Min: toolset.Bound(1), Description: "Current thought number"},
			{Name: "totalThoughts", Type: toolset.FieldInteger, Required: true, Min: toolset.Bound(1), Description: "Estimated total thoughts needed"},
			{Name: "nextThoughtNeeded", Type: toolset.FieldBoolean, Required: true, Description: "Whether another thought step is needed"},
			{Name: "isRevision", Type: toolset.FieldBoolean, Description: "Whether this revises previous thinking"},
			{Name: "revisesThought", Type: toolset.FieldInteger, Min: toolset.Bound(1), Description: "Which thought is being reconsidered"},
			{Name: "branchFromThought", Type: toolset.FieldInteger, Min: toolset.Bound(1), Description: "Branching point thought number"},
			{Name: "branchId", Type: toolset.FieldString, MaxLength: toolset.Count(64), Description: "Branch identifier"},
			{Name: "needsMoreThoughts", Type: toolset.FieldBoolean, Description: "If more thoughts are needed past the estimate"},
		}},
		Output: &toolset.Schema{Fields: []toolset.Field{
			{Name: "thoughtNumber", Type: toolset.FieldInteger, Required: true},
			{Name: "totalThoughts", Type: toolset.FieldInteger, Required: true},
			{Name: "nextThoughtNeeded", Type: toolset.FieldBoolean, Required: true},
			{Name: "kind", Type: toolset.FieldString, Required: true, Enum: []string{"thought", "revision", "branch"}},
			{Name: "branchId", Type: toolset.FieldString},
		}},
		Handler: toolset.Bind(handle),
	}}
}

func handle(_ context.Context, _ *toolset.Invocation, t Thought) (*result.Result, error) {
	s, err := Normalize(t)
	if err != nil {
		return nil, err
	}
	return result.Success(render(t, s), s, nil), nil
}

// Normalize checks cross-field rules and derives the summary. The total is
// raised to at least the current thought number.
func Normalize(t Thought) (Summary, error) {
	if strings.TrimSpace(t.Thought) == "" {
		return Summary{}, fmt.Errorf("%w: thought is blank", result.ErrValidation)
	}
	if t.IsRevision && t.RevisesThought == 0 {
		return Summary{}, fmt.Errorf("%w: isRevision requires revisesThought", result.ErrValidation)
	}
	if t.RevisesThought >= t.ThoughtNumber && t.RevisesThought > 0 {
		return Summary{}, fmt.Errorf("%w: revisesThought must refer to an earlier thought", result.ErrValidation)
	}
	if t.BranchFromThought > 0 && t.BranchID == "" {
		return Summary{}, fmt.Errorf("%w: branchFromThought requires branchId", result.ErrValidation)
	}
	if t.BranchFromThought >= t.ThoughtNumber && t.BranchFromThought > 0 {
		return Summary{}, fmt.Errorf("%w: branchFromThought must refer to an earlier thought", result.ErrValidation)
	}

	s := Summary{
		ThoughtNumber:     t.ThoughtNumber,
		TotalThoughts:     max(t.TotalThoughts, t.ThoughtNumber),
		NextThoughtNeeded: t.NextThoughtNeeded || t.NeedsMoreThoughts,
		Kind:              "thought",
	}
	switch {
	case t.IsRevision:
		s.Kind = "revision"
	case t.BranchFromThought > 0:
		s.Kind = "branch"
		s.BranchID = t.BranchID
	}
	return s, nil
}

func render(t Thought, s Summary) string {
	var label string
	switch s.Kind {
	case "revision":
		label = fmt.Sprintf("Revision %d/%d (revising thought %d)", s.ThoughtNumber, s.TotalThoughts, t.RevisesThought)
	case "branch":
		label = fmt.Sprintf("Branch %s %d/%d (from thought %d)", s.BranchID, s.ThoughtNumber, s.TotalThoughts, t.BranchFromThought)
	default:
		label = fmt.Sprintf("Thought %d/%d", s.ThoughtNumber, s.TotalThoughts)
	}
	next := "complete"
	if s.NextThoughtNeeded {
		next = "next thought needed"
	}
	return fmt.Sprintf("%s: %s\n[%s]", label, strings.TrimSpace(t.Thought), next)
}
