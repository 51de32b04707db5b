package decompose

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rahul/tasksmith/internal/plan"
)

// guidelinesFile optionally extends the built-in generation guidelines.
const guidelinesFile = "guidelines.md"

// PromptBuilder turns a task context into oracle request text.
type PromptBuilder struct {
	MinSteps int
	MaxSteps int
	Extra    string // additional guideline lines appended after the built-in ones
}

func NewPromptBuilder(minSteps, maxSteps int) *PromptBuilder {
	if minSteps <= 0 {
		minSteps = 5
	}
	if maxSteps < minSteps {
		maxSteps = minSteps
	}
	return &PromptBuilder{MinSteps: minSteps, MaxSteps: maxSteps}
}

// LoadPromptBuilder reads extra guidelines from dir/guidelines.md when present.
// A missing directory or file is not an error.
func LoadPromptBuilder(dir string, minSteps, maxSteps int) (*PromptBuilder, error) {
	pb := NewPromptBuilder(minSteps, maxSteps)
	if dir == "" {
		return pb, nil
	}
	data, err := os.ReadFile(filepath.Join(dir, guidelinesFile))
	if errors.Is(err, fs.ErrNotExist) {
		return pb, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt guidelines: %w", err)
	}
	pb.Extra = strings.TrimSpace(string(data))
	return pb, nil
}

// Build returns the decomposition request for tc. It performs no I/O.
func (pb *PromptBuilder) Build(tc plan.TaskContext) string {
	category := tc.Category
	if !category.Valid() {
		category = plan.DefaultCategory
	}
	g := category.Guideline()

	var b strings.Builder
	b.WriteString("Generate a concise, actionable step-by-step plan for this task.\n\n")
	fmt.Fprintf(&b, "Task Title: %s\n", strings.TrimSpace(tc.Title))
	if tc.Goal != "" {
		fmt.Fprintf(&b, "Task Goal: %s\n", strings.TrimSpace(tc.Goal))
	} else {
		fmt.Fprintf(&b, "Task Description: %s\n", strings.TrimSpace(tc.Description))
	}
	fmt.Fprintf(&b, "Timeframe: %s (%s)\n\n", category, g.Label)

	b.WriteString("Guidelines:\n")
	fmt.Fprintf(&b, "1. Provide between %d and %d specific, actionable steps.\n", pb.MinSteps, pb.MaxSteps)
	fmt.Fprintf(&b, "2. No single step may take longer than %s; the whole plan should fit within %s.\n", g.MaxPerStep, g.TotalHorizon)
	b.WriteString("3. List the steps in strict execution order. A step may only depend on steps listed before it.\n")
	b.WriteString("4. Start each title with an action verb and keep it under 20 words.\n")
	b.WriteString("5. Include relevant resources as markdown links [Resource Name](URL) only when you are confident they exist.\n")
	b.WriteString("6. Respond with ONLY a JSON array in the format below. No prose before or after it.\n")
	if pb.Extra != "" {
		b.WriteString("\n")
		b.WriteString(pb.Extra)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, `
[
  {
    "title": "Step title",
    "deadline": "Estimated time, e.g. %s",
    "mandatory": true,
    "completion_criteria": "How to tell the step is done",
    "dependencies": []
  },
  {
    "title": "Next step title",
    "deadline": "Estimated time, e.g. %s",
    "mandatory": false,
    "completion_criteria": "How to tell the step is done",
    "dependencies": [1]
  }
]`, g.Buckets[0], g.Buckets[len(g.Buckets)-1])
	return b.String()
}

// BuildImprove returns the request used to tighten a task's title and description.
func (pb *PromptBuilder) BuildImprove(title, description string) string {
	return fmt.Sprintf(`Improve the following task title and description to be more specific, actionable, and clear:

Current Title: %s
Current Description: %s

Guidelines:
1. Make the title concise but descriptive (under 10 words)
2. Ensure the description includes context, goals, and constraints
3. Maintain the original intent but add clarity
4. Keep the description under 100 words

Return in this exact format:
TITLE: [improved title]
DESCRIPTION: [improved description]`, strings.TrimSpace(title), strings.TrimSpace(description))
}
