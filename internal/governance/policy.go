package governance

import (
	"fmt"
	"regexp"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request carries the text of a candidate step to be evaluated.
type Request struct {
	Title string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine evaluates candidate step titles against a set of rules.
type PolicyEngine interface {
	Evaluate(req Request) Result
}

// DefaultPolicyEngine denies titles matching any registered pattern.
type DefaultPolicyEngine struct {
	DeniedTitles   map[string]bool
	DeniedPatterns []*regexp.Regexp
}

// Prompt fragments that models tend to echo back as if they were steps.
var echoPatterns = []string{
	`(?i)^\s*guidelines\s*:`,
	`(?i)^\s*task title\s*:`,
	`(?i)^\s*task description\s*:`,
	`(?i)^\s*format each step`,
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		DeniedTitles:   make(map[string]bool),
		DeniedPatterns: make([]*regexp.Regexp, 0),
	}
}

// NewEchoPolicyEngine returns an engine preloaded with the prompt-echo rules.
func NewEchoPolicyEngine() *DefaultPolicyEngine {
	e := NewDefaultPolicyEngine()
	for _, p := range echoPatterns {
		e.DeniedPatterns = append(e.DeniedPatterns, regexp.MustCompile(p))
	}
	return e
}

func (e *DefaultPolicyEngine) DenyTitle(title string) {
	e.DeniedTitles[title] = true
}

func (e *DefaultPolicyEngine) DenyPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid title pattern %q: %w", pattern, err)
	}
	e.DeniedPatterns = append(e.DeniedPatterns, re)
	return nil
}

func (e *DefaultPolicyEngine) Evaluate(req Request) Result {
	if e.DeniedTitles[req.Title] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Title '%s' is restricted by policy", req.Title),
		}
	}

	for _, re := range e.DeniedPatterns {
		if re.MatchString(req.Title) {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("Title matches restricted pattern: %s", re.String()),
			}
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by default policy",
	}
}
