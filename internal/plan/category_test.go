package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCategory(t *testing.T) {
	cases := map[string]Category{
		"short-term": ShortTerm,
		"Today":      ShortTerm,
		"this week":  MidTerm,
		"mid_term":   MidTerm,
		"long term":  LongTerm,
		"":           DefaultCategory,
		"someday":    DefaultCategory,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseCategory(in), "input %q", in)
	}
}

func TestCategoryGuidelineFallsBackToDefault(t *testing.T) {
	unknown := Category("quarterly")
	assert.False(t, unknown.Valid())
	assert.Equal(t, DefaultCategory.Guideline(), unknown.Guideline())
	assert.Equal(t, "30 minutes", unknown.DefaultDeadline())
}

func TestEveryCategoryHasBuckets(t *testing.T) {
	for _, c := range Categories() {
		g := c.Guideline()
		assert.True(t, c.Valid())
		assert.NotEmpty(t, g.Buckets, "category %s", c)
		assert.NotEmpty(t, g.MaxPerStep, "category %s", c)
	}
}

func TestTaskContextSubjectPrefersGoal(t *testing.T) {
	tc := TaskContext{Description: "plan a party"}
	assert.Equal(t, "plan a party", tc.Subject())
	tc.Goal = "book the venue"
	assert.Equal(t, "book the venue", tc.Subject())
}

func TestCloneIsDeep(t *testing.T) {
	s := Step{ID: "a", Dependencies: []string{"x"}, Links: []Link{{Text: "t", URL: "u"}}}
	c := s.Clone()
	c.Dependencies[0] = "y"
	c.Links[0].URL = "v"
	assert.Equal(t, "x", s.Dependencies[0])
	assert.Equal(t, "u", s.Links[0].URL)
}
