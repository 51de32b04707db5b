package decompose

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rahul/tasksmith/internal/plan"
)

// NormalizerConfig holds the defaults applied to oracle records.
type NormalizerConfig struct {
	DefaultMandatory bool
	MaxSteps         int // 0 means unbounded
}

// Normalizer converts raw records into canonical steps. It never fails.
type Normalizer struct {
	Config NormalizerConfig
	NewID  func() string
	policy *bluemonday.Policy
}

func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	return &Normalizer{
		Config: cfg,
		NewID:  uuid.NewString,
		policy: bluemonday.StrictPolicy(),
	}
}

var (
	markdownLink    = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	stepRefPattern  = regexp.MustCompile(`(?i)^step\s+(\d+)$`)
	leadingNumbered = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*])\s+`)
)

// Normalize maps records onto steps for category, truncating to MaxSteps.
func (n *Normalizer) Normalize(records []RawRecord, category plan.Category) []plan.Step {
	if n.Config.MaxSteps > 0 && len(records) > n.Config.MaxSteps {
		records = records[:n.Config.MaxSteps]
	}

	steps := make([]plan.Step, 0, len(records))
	for i, rec := range records {
		step := plan.Step{
			ID:        n.NewID(),
			Mandatory: n.Config.DefaultMandatory,
		}

		if rec.Title != nil {
			title, links := extractLinks(n.clean(*rec.Title))
			step.Title = strings.TrimSpace(leadingNumbered.ReplaceAllString(title, ""))
			step.Links = links
		}
		if step.Title == "" {
			step.Title = fmt.Sprintf("Step %d", i+1)
		}

		if rec.Deadline != nil {
			step.Deadline = n.clean(*rec.Deadline)
		}
		if step.Deadline == "" {
			step.Deadline = category.DefaultDeadline()
		}

		if rec.Mandatory != nil {
			step.Mandatory = *rec.Mandatory
		}
		if rec.CompletionCriteria != nil {
			step.CompletionCriteria = n.clean(*rec.CompletionCriteria)
		}

		step.Links = mergeLinks(step.Links, rec.Links)
		step.Dependencies = resolveDependencies(rec.Dependencies, steps)
		steps = append(steps, step)
	}
	return steps
}

func (n *Normalizer) clean(s string) string {
	s = html.UnescapeString(n.policy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

// extractLinks replaces markdown links with their text and returns the targets.
func extractLinks(title string) (string, []plan.Link) {
	var links []plan.Link
	for _, m := range markdownLink.FindAllStringSubmatch(title, -1) {
		links = append(links, plan.Link{Text: m[1], URL: m[2]})
	}
	return markdownLink.ReplaceAllString(title, "$1"), links
}

func mergeLinks(a, b []plan.Link) []plan.Link {
	var out []plan.Link
	seen := make(map[string]bool)
	for _, l := range append(append([]plan.Link(nil), a...), b...) {
		if !isWebURL(l.URL) || seen[l.URL] {
			continue
		}
		seen[l.URL] = true
		if l.Text == "" {
			l.Text = l.URL
		}
		out = append(out, l)
	}
	return out
}

func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// resolveDependencies keeps references to earlier steps only.
func resolveDependencies(refs []DependencyRef, earlier []plan.Step) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, ref := range refs {
		pos := ref.Position
		if pos == 0 && ref.Title != "" {
			if m := stepRefPattern.FindStringSubmatch(strings.TrimSpace(ref.Title)); m != nil {
				pos, _ = strconv.Atoi(m[1])
			} else {
				pos = positionByTitle(ref.Title, earlier)
			}
		}
		if pos < 1 || pos > len(earlier) {
			continue
		}
		id := earlier[pos-1].ID
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func positionByTitle(title string, steps []plan.Step) int {
	for i, s := range steps {
		if strings.EqualFold(strings.TrimSpace(title), s.Title) {
			return i + 1
		}
	}
	return 0
}
