package decompose

import (
	"context"
	"log"
	"regexp"
	"strings"
)

var (
	improvedTitle       = regexp.MustCompile(`(?im)^\s*TITLE:\s*(.+)$`)
	improvedDescription = regexp.MustCompile(`(?ism)^\s*DESCRIPTION:\s*(.+?)(?:\n\s*\n|\z)`)
)

// Improver asks the oracle for a clearer task title and description.
type Improver struct {
	Prompts *PromptBuilder
	Oracle  Oracle
}

// Improve returns the suggested title and description. Any field the oracle
// did not supply, and any oracle failure, keeps the original value.
func (im *Improver) Improve(ctx context.Context, title, description string) (string, string) {
	raw, err := im.Oracle.Generate(ctx, im.Prompts.BuildImprove(title, description))
	if err != nil {
		log.Printf("[Improve] oracle failed: %v", err)
		return title, description
	}
	raw = invisibles.Replace(raw)

	newTitle, newDesc := title, description
	if m := improvedTitle.FindStringSubmatch(raw); m != nil {
		if t := strings.Trim(strings.TrimSpace(m[1]), "[]*"); t != "" {
			newTitle = t
		}
	}
	if m := improvedDescription.FindStringSubmatch(raw); m != nil {
		if d := strings.Trim(strings.TrimSpace(m[1]), "[]*"); d != "" {
			newDesc = d
		}
	}
	return newTitle, newDesc
}
