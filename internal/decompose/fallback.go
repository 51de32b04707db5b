package decompose

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rahul/tasksmith/internal/plan"
	"gopkg.in/yaml.v3"
)

//go:embed fallback.yaml
var builtinCatalog []byte

type fallbackCatalog struct {
	Default    string                    `yaml:"default"`
	Categories map[string][]fallbackStep `yaml:"categories"`
}

type fallbackStep struct {
	Title              string `yaml:"title"`
	Deadline           string `yaml:"deadline"`
	Mandatory          bool   `yaml:"mandatory"`
	CompletionCriteria string `yaml:"completion_criteria"`
	DependsOn          []int  `yaml:"depends_on"`
}

// FallbackProvider returns deterministic canned step sequences per category.
type FallbackProvider struct {
	steps  map[plan.Category][]fallbackStep
	defCat plan.Category
	NewID  func() string
}

// NewFallbackProvider uses the built-in catalog.
func NewFallbackProvider() *FallbackProvider {
	fp, err := ParseFallbackCatalog(builtinCatalog)
	if err != nil {
		panic(fmt.Sprintf("built-in fallback catalog is invalid: %v", err))
	}
	return fp
}

// LoadFallbackProvider reads a catalog override from path.
func LoadFallbackProvider(path string) (*FallbackProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fallback catalog: %w", err)
	}
	return ParseFallbackCatalog(data)
}

// ParseFallbackCatalog validates that every category has a non-empty sequence.
func ParseFallbackCatalog(data []byte) (*FallbackProvider, error) {
	var cat fallbackCatalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to decode fallback catalog: %w", err)
	}

	fp := &FallbackProvider{
		steps:  make(map[plan.Category][]fallbackStep),
		defCat: plan.DefaultCategory,
		NewID:  uuid.NewString,
	}
	if cat.Default != "" {
		fp.defCat = plan.Category(cat.Default)
		if !fp.defCat.Valid() {
			return nil, fmt.Errorf("unknown default category %q", cat.Default)
		}
	}

	for name, steps := range cat.Categories {
		c := plan.Category(name)
		if !c.Valid() {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		for i, s := range steps {
			if strings.TrimSpace(s.Title) == "" {
				return nil, fmt.Errorf("category %s step %d has no title", name, i+1)
			}
			for _, dep := range s.DependsOn {
				if dep < 1 || dep > i {
					return nil, fmt.Errorf("category %s step %d depends on invalid position %d", name, i+1, dep)
				}
			}
		}
		fp.steps[c] = steps
	}

	for _, c := range plan.Categories() {
		if len(fp.steps[c]) == 0 {
			return nil, fmt.Errorf("category %s has no fallback steps", c)
		}
	}
	return fp, nil
}

// FallbackFor returns a fresh copy of the sequence for c. Unknown categories
// use the default category's sequence.
func (fp *FallbackProvider) FallbackFor(c plan.Category) []plan.Step {
	src, ok := fp.steps[c]
	if !ok {
		c = fp.defCat
		src = fp.steps[c]
	}

	out := make([]plan.Step, len(src))
	for i, s := range src {
		deadline := s.Deadline
		if deadline == "" {
			deadline = c.DefaultDeadline()
		}
		out[i] = plan.Step{
			ID:                 fp.NewID(),
			Title:              s.Title,
			Deadline:           deadline,
			Mandatory:          s.Mandatory,
			CompletionCriteria: s.CompletionCriteria,
		}
		for _, dep := range s.DependsOn {
			out[i].Dependencies = append(out[i].Dependencies, out[dep-1].ID)
		}
	}
	return out
}
