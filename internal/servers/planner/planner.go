// Package planner is the builtin planning server: numbered checklists and
// ASCII-boxed text for agents that want to show structure in plain output.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/atlanticdynamic/builtinmcp/internal/result"
	"github.com/atlanticdynamic/builtinmcp/internal/toolset"
	"github.com/charmbracelet/lipgloss"
)

const (
	PlanTool   = "plan"
	BoxTool    = "ascii_box"
	Capability = "planning"

	Instructions = "Use plan to lay out ordered steps as a checklist and ascii_box to frame short text."

	maxSteps      = 50
	maxBoxText    = 4096
	maxBoxPadding = 4
)

// Step is one checklist entry as submitted.
type Step struct {
	Text string `json:"text"`
	Done bool   `json:"done,omitempty"`
}

// PlanArgs is the plan tool input.
type PlanArgs struct {
	Title string `json:"title"`
	Steps []Step `json:"steps"`
}

// NumberedStep is one checklist entry as returned.
type NumberedStep struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
	Done   bool   `json:"done"`
}

// Plan is the plan tool output.
type Plan struct {
	Title     string         `json:"title"`
	Steps     []NumberedStep `json:"steps"`
	Completed int            `json:"completed"`
	Total     int            `json:"total"`
}

// BoxArgs is the ascii_box tool input.
type BoxArgs struct {
	Text    string `json:"text"`
	Padding int    `json:"padding"`
}

// Box is the ascii_box tool output.
type Box struct {
	Box    string `json:"box"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Definitions returns the tools this server registers.
func Definitions() []toolset.Definition {
	return []toolset.Definition{
		{
			Name:        PlanTool,
			Title:       "Plan",
			Description: "Turn a title and ordered steps into a numbered checklist.",
			Capability:  Capability,
			Input: toolset.Schema{Fields: []toolset.Field{
				{Name: "title", Type: toolset.FieldString, Required: true, MinLength: toolset.Count(1), MaxLength: toolset.Count(200)},
				{
					Name: "steps", Type: toolset.FieldObjectList, Required: true, MaxItems: toolset.Count(maxSteps),
					Description: "Ordered steps",
					Fields: []toolset.Field{
						{Name: "text", Type: toolset.FieldString, Required: true, MinLength: toolset.Count(1)},
						{Name: "done", Type: toolset.FieldBoolean},
					},
				},
			}},
			Output: &toolset.Schema{Fields: []toolset.Field{
				{Name: "title", Type: toolset.FieldString, Required: true},
				{Name: "steps", Type: toolset.FieldObjectList, Required: true, Fields: []toolset.Field{
					{Name: "number", Type: toolset.FieldInteger, Required: true},
					{Name: "text", Type: toolset.FieldString, Required: true},
					{Name: "done", Type: toolset.FieldBoolean, Required: true},
				}},
				{Name: "completed", Type: toolset.FieldInteger, Required: true},
				{Name: "total", Type: toolset.FieldInteger, Required: true},
			}},
			Handler: toolset.Bind(handlePlan),
		},
		{
			Name:        BoxTool,
			Title:       "ASCII box",
			Description: "Draw an ASCII border around text.",
			Capability:  Capability,
			Input: toolset.Schema{Fields: []toolset.Field{
				{Name: "text", Type: toolset.FieldString, Required: true, MinLength: toolset.Count(1), MaxLength: toolset.Count(maxBoxText)},
				{Name: "padding", Type: toolset.FieldInteger, Min: toolset.Bound(0), Max: toolset.Bound(maxBoxPadding), Default: 1},
			}},
			Output: &toolset.Schema{Fields: []toolset.Field{
				{Name: "box", Type: toolset.FieldString, Required: true},
				{Name: "width", Type: toolset.FieldInteger, Required: true},
				{Name: "height", Type: toolset.FieldInteger, Required: true},
			}},
			Handler: toolset.Bind(handleBox),
		},
	}
}

func handlePlan(_ context.Context, _ *toolset.Invocation, args PlanArgs) (*result.Result, error) {
	p, err := BuildPlan(args)
	if err != nil {
		return nil, err
	}
	return result.Success(RenderPlan(p), p, nil), nil
}

// BuildPlan numbers the steps in order. Blank steps are rejected.
func BuildPlan(args PlanArgs) (Plan, error) {
	title := strings.TrimSpace(args.Title)
	if title == "" {
		return Plan{}, fmt.Errorf("%w: title is blank", result.ErrValidation)
	}
	if len(args.Steps) == 0 {
		return Plan{}, fmt.Errorf("%w: at least one step is required", result.ErrValidation)
	}

	p := Plan{Title: title, Steps: make([]NumberedStep, 0, len(args.Steps)), Total: len(args.Steps)}
	for i, s := range args.Steps {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			return Plan{}, fmt.Errorf("%w: step %d is blank", result.ErrValidation, i+1)
		}
		if s.Done {
			p.Completed++
		}
		p.Steps = append(p.Steps, NumberedStep{Number: i + 1, Text: text, Done: s.Done})
	}
	return p, nil
}

// RenderPlan formats a plan as a markdown checklist.
func RenderPlan(p Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d/%d done)\n", p.Title, p.Completed, p.Total)
	for _, s := range p.Steps {
		mark := " "
		if s.Done {
			mark = "x"
		}
		fmt.Fprintf(&b, "\n%d. [%s] %s", s.Number, mark, s.Text)
	}
	return b.String()
}

func handleBox(_ context.Context, _ *toolset.Invocation, args BoxArgs) (*result.Result, error) {
	if strings.TrimSpace(args.Text) == "" {
		return nil, fmt.Errorf("%w: text is blank", result.ErrValidation)
	}
	box := RenderBox(args.Text, args.Padding)
	out := Box{Box: box, Width: lipgloss.Width(box), Height: lipgloss.Height(box)}
	return result.Success(box, out, nil), nil
}

// RenderBox frames text with an ASCII border and horizontal padding.
func RenderBox(text string, padding int) string {
	padding = max(0, min(padding, maxBoxPadding))
	return lipgloss.NewStyle().
		Border(lipgloss.ASCIIBorder()).
		Padding(0, padding).
		Render(strings.TrimRight(text, "\n"))
}
