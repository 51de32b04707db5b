package editor

import (
	"fmt"
	"strings"
	"testing"

	"github.com/rahul/tasksmith/internal/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func step(id, title string) plan.Step {
	return plan.Step{ID: id, Title: title, Deadline: "1 hour", Mandatory: true}
}

func ids(l *StepList) []string {
	var out []string
	for _, s := range l.Steps() {
		out = append(out, s.ID)
	}
	return out
}

func newList(steps ...plan.Step) *StepList {
	l := NewStepList(steps)
	n := 0
	l.NewID = func() string {
		n++
		return fmt.Sprintf("manual-%d", n)
	}
	return l
}

func TestMergeGeneratedDiscardsCaseInsensitiveDuplicate(t *testing.T) {
	l := newList(step("a", "research"), step("b", "Outline"))

	added := l.MergeGenerated([]plan.Step{step("c", "Research")})

	assert.Equal(t, 0, added)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, "research", l.Steps()[0].Title)
}

func TestMergeGeneratedKeepsTitlesUnique(t *testing.T) {
	l := newList(step("a", "Research"), step("b", "Outline"))

	added := l.MergeGenerated([]plan.Step{
		step("c", "Draft"),
		step("d", " outline "),
		step("e", "DRAFT"),
		step("f", "Publish"),
	})

	assert.Equal(t, 2, added)
	assert.Equal(t, []string{"a", "b", "c", "f"}, ids(l))

	seen := map[string]bool{}
	for _, s := range l.Steps() {
		key := strings.ToLower(strings.TrimSpace(s.Title))
		assert.False(t, seen[key], "duplicate title %q", s.Title)
		seen[key] = true
	}
}

func TestMergeGeneratedSkipsIDCollisions(t *testing.T) {
	l := newList(step("a", "Research"))
	l.MergeGenerated([]plan.Step{step("a", "Something new")})
	assert.Equal(t, []string{"a"}, ids(l))
}

func TestMergeGeneratedDropsDependenciesOnDiscardedSteps(t *testing.T) {
	l := newList(step("a", "Research"))
	dup := step("b", "research")
	next := step("c", "Write")
	next.Dependencies = []string{"b"}
	last := step("d", "Review")
	last.Dependencies = []string{"c", "b"}

	l.MergeGenerated([]plan.Step{dup, next, last})

	steps := l.Steps()
	require.Len(t, steps, 3)
	assert.Nil(t, steps[1].Dependencies)
	assert.Equal(t, []string{"c"}, steps[2].Dependencies)
}

func TestInstallFallbackReplacesList(t *testing.T) {
	l := newList(step("a", "Research"), step("b", "Outline"))
	fallback := []plan.Step{step("x", "Define done"), step("y", "Gather")}

	l.InstallFallback(fallback)
	assert.Equal(t, fallback, l.Steps())

	fallback[0].Title = "changed"
	assert.Equal(t, "Define done", l.Steps()[0].Title)
}

func TestAddManualAllowsDuplicates(t *testing.T) {
	l := newList(step("a", "Research"))

	s, ok := l.AddManual("Research", "2 days", false)
	require.True(t, ok)
	assert.Equal(t, "manual-1", s.ID)
	assert.False(t, s.Mandatory)
	assert.Equal(t, []string{"a", "manual-1"}, ids(l))

	_, ok = l.AddManual("   ", "", true)
	assert.False(t, ok)
	assert.Equal(t, 2, l.Len())
}

func TestAddManualAvoidsIDCollision(t *testing.T) {
	l := newList(step("manual-1", "Existing"))
	s, ok := l.AddManual("New", "", true)
	require.True(t, ok)
	assert.Equal(t, "manual-2", s.ID)
}

func TestToggleMandatory(t *testing.T) {
	l := newList(step("a", "Research"))

	assert.True(t, l.ToggleMandatory("a"))
	assert.False(t, l.Steps()[0].Mandatory)
	assert.True(t, l.ToggleMandatory("a"))
	assert.True(t, l.Steps()[0].Mandatory)

	before := l.Steps()
	assert.False(t, l.ToggleMandatory("missing"))
	assert.Equal(t, before, l.Steps())
}

func TestMove(t *testing.T) {
	l := newList(step("a", "A"), step("b", "B"), step("c", "C"))

	assert.True(t, l.Move("b", Up))
	assert.Equal(t, []string{"b", "a", "c"}, ids(l))
	assert.True(t, l.Move("b", Down))
	assert.Equal(t, []string{"a", "b", "c"}, ids(l))

	assert.False(t, l.Move("a", Up))
	assert.False(t, l.Move("c", Down))
	assert.False(t, l.Move("missing", Up))
	assert.Equal(t, []string{"a", "b", "c"}, ids(l))
}

func TestRemoveIsIdempotent(t *testing.T) {
	b := step("b", "B")
	b.Dependencies = []string{"a"}
	l := newList(step("a", "A"), b, step("c", "C"))

	assert.True(t, l.Remove("a"))
	after := l.Steps()
	assert.False(t, l.Remove("a"))
	assert.Equal(t, after, l.Steps())

	assert.Equal(t, []string{"b", "c"}, ids(l))
	assert.Nil(t, l.Steps()[0].Dependencies)
}

func TestStepsReturnsCopy(t *testing.T) {
	l := newList(step("a", "A"))
	steps := l.Steps()
	steps[0].Title = "mutated"
	assert.Equal(t, "A", l.Steps()[0].Title)

	empty := newList()
	assert.NotNil(t, empty.Steps())
	assert.Empty(t, empty.Steps())
}

func TestIDAt(t *testing.T) {
	l := newList(step("a", "A"), step("b", "B"))
	id, ok := l.IDAt(2)
	assert.True(t, ok)
	assert.Equal(t, "b", id)
	_, ok = l.IDAt(0)
	assert.False(t, ok)
	_, ok = l.IDAt(3)
	assert.False(t, ok)
}

func TestParseDirection(t *testing.T) {
	d, ok := ParseDirection("DOWN")
	assert.True(t, ok)
	assert.Equal(t, Down, d)
	_, ok = ParseDirection("sideways")
	assert.False(t, ok)
}
