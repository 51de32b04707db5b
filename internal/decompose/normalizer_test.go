package decompose

import (
	"testing"

	"github.com/rahul/tasksmith/internal/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer(cfg NormalizerConfig) *Normalizer {
	n := NewNormalizer(cfg)
	n.NewID = sequentialIDs()
	return n
}

func TestNormalizeEmptyInput(t *testing.T) {
	n := newTestNormalizer(NormalizerConfig{DefaultMandatory: true, MaxSteps: 7})
	steps := n.Normalize(nil, plan.ShortTerm)
	assert.NotNil(t, steps)
	assert.Empty(t, steps)
}

func TestNormalizeAppliesDefaults(t *testing.T) {
	n := newTestNormalizer(NormalizerConfig{DefaultMandatory: false})
	steps := n.Normalize([]RawRecord{
		{Deadline: strPtr("1 day")},
		{Title: strPtr("   ")},
		{Title: strPtr("Pack bags"), Mandatory: boolPtr(true)},
	}, plan.MidTerm)

	require.Len(t, steps, 3)
	assert.Equal(t, "Step 1", steps[0].Title)
	assert.Equal(t, "1 day", steps[0].Deadline)
	assert.False(t, steps[0].Mandatory)
	assert.Equal(t, "Step 2", steps[1].Title)
	assert.Equal(t, plan.MidTerm.DefaultDeadline(), steps[1].Deadline)
	assert.True(t, steps[2].Mandatory)
	assert.Empty(t, steps[2].CompletionCriteria)
	assert.Nil(t, steps[2].Dependencies)
}

func TestNormalizeDefaultMandatoryIsConfigurable(t *testing.T) {
	rec := []RawRecord{{Title: strPtr("Anything")}}
	on := newTestNormalizer(NormalizerConfig{DefaultMandatory: true}).Normalize(rec, plan.ShortTerm)
	off := newTestNormalizer(NormalizerConfig{DefaultMandatory: false}).Normalize(rec, plan.ShortTerm)
	assert.True(t, on[0].Mandatory)
	assert.False(t, off[0].Mandatory)
}

func TestNormalizeAssignsUniqueIDs(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{})
	steps := n.Normalize([]RawRecord{{Title: strPtr("a")}, {Title: strPtr("b")}, {Title: strPtr("c")}}, plan.ShortTerm)
	seen := map[string]bool{}
	for _, s := range steps {
		assert.NotEmpty(t, s.ID)
		assert.False(t, seen[s.ID])
		seen[s.ID] = true
	}
}

func TestNormalizeTruncatesToMaxSteps(t *testing.T) {
	n := newTestNormalizer(NormalizerConfig{MaxSteps: 2})
	steps := n.Normalize([]RawRecord{{Title: strPtr("a")}, {Title: strPtr("b")}, {Title: strPtr("c")}}, plan.ShortTerm)
	assert.Equal(t, []string{"a", "b"}, titles(steps))
}

func TestNormalizeSanitizesText(t *testing.T) {
	n := newTestNormalizer(NormalizerConfig{})
	steps := n.Normalize([]RawRecord{{
		Title:              strPtr("1. Review <b>budget</b> & <script>alert(1)</script>costs"),
		Deadline:           strPtr("  2   hours "),
		CompletionCriteria: strPtr("<i>Signed</i> off"),
	}}, plan.ShortTerm)

	assert.Equal(t, "Review budget & costs", steps[0].Title)
	assert.Equal(t, "2 hours", steps[0].Deadline)
	assert.Equal(t, "Signed off", steps[0].CompletionCriteria)
}

func TestNormalizeExtractsLinks(t *testing.T) {
	n := newTestNormalizer(NormalizerConfig{})
	steps := n.Normalize([]RawRecord{{
		Title: strPtr("Read the [Go tour](https://go.dev/tour) first"),
		Links: []plan.Link{
			{Text: "dup", URL: "https://go.dev/tour"},
			{Text: "bad", URL: "javascript:alert(1)"},
			{URL: "https://example.com"},
		},
	}}, plan.ShortTerm)

	assert.Equal(t, "Read the Go tour first", steps[0].Title)
	assert.Equal(t, []plan.Link{
		{Text: "Go tour", URL: "https://go.dev/tour"},
		{Text: "https://example.com", URL: "https://example.com"},
	}, steps[0].Links)
}

func TestNormalizeResolvesEarlierDependenciesOnly(t *testing.T) {
	n := newTestNormalizer(NormalizerConfig{})
	steps := n.Normalize([]RawRecord{
		{Title: strPtr("Book venue"), Dependencies: []DependencyRef{{Position: 1}, {Position: 2}}},
		{Title: strPtr("Send invites"), Dependencies: []DependencyRef{{Title: "book venue"}, {Position: 1}}},
		{Title: strPtr("Host party"), Dependencies: []DependencyRef{{Title: "Step 2"}, {Title: "Unknown"}, {Position: 9}}},
	}, plan.ShortTerm)

	assert.Nil(t, steps[0].Dependencies)
	assert.Equal(t, []string{"id-1"}, steps[1].Dependencies)
	assert.Equal(t, []string{"id-2"}, steps[2].Dependencies)
}
