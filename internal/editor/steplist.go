package editor

import (
	"strings"

	"github.com/google/uuid"
	"github.com/rahul/tasksmith/internal/plan"
)

// Direction is the way Move shifts a step.
type Direction int

const (
	Up Direction = iota
	Down
)

// ParseDirection maps "up" and "down" onto a Direction.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return Up, true
	case "down":
		return Down, true
	}
	return Up, false
}

// StepList is the ordered, editable step list of one task. Ids are unique
// within the list. It is not safe for concurrent use.
type StepList struct {
	steps []plan.Step
	NewID func() string
}

func NewStepList(steps []plan.Step) *StepList {
	l := &StepList{NewID: uuid.NewString}
	l.InstallFallback(steps)
	return l
}

// Steps returns a copy of the current list.
func (l *StepList) Steps() []plan.Step {
	out := plan.CloneSteps(l.steps)
	if out == nil {
		out = []plan.Step{}
	}
	return out
}

func (l *StepList) Len() int {
	return len(l.steps)
}

// IDAt returns the id of the step at 1-based position pos.
func (l *StepList) IDAt(pos int) (string, bool) {
	if pos < 1 || pos > len(l.steps) {
		return "", false
	}
	return l.steps[pos-1].ID, true
}

func (l *StepList) Get(id string) (plan.Step, bool) {
	if i := l.index(id); i >= 0 {
		return l.steps[i].Clone(), true
	}
	return plan.Step{}, false
}

// MergeGenerated appends each step whose title does not already occur,
// compared case-insensitively. Colliding steps are discarded and
// dependencies on them are dropped. It returns the number of steps added.
func (l *StepList) MergeGenerated(steps []plan.Step) int {
	titles := make(map[string]bool, len(l.steps))
	ids := make(map[string]bool, len(l.steps))
	for _, s := range l.steps {
		titles[titleKey(s.Title)] = true
		ids[s.ID] = true
	}

	added := 0
	accepted := make(map[string]bool)
	for _, s := range steps {
		key := titleKey(s.Title)
		if titles[key] || s.ID == "" || ids[s.ID] {
			continue
		}
		s = s.Clone()
		var deps []string
		for _, dep := range s.Dependencies {
			if accepted[dep] {
				deps = append(deps, dep)
			}
		}
		s.Dependencies = deps

		titles[key] = true
		ids[s.ID] = true
		accepted[s.ID] = true
		l.steps = append(l.steps, s)
		added++
	}
	return added
}

// InstallFallback replaces the whole list with steps.
func (l *StepList) InstallFallback(steps []plan.Step) {
	l.steps = plan.CloneSteps(steps)
}

// AddManual appends a step with a fresh id. Titles are not deduplicated.
// An empty title adds nothing.
func (l *StepList) AddManual(title, deadline string, mandatory bool) (plan.Step, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return plan.Step{}, false
	}
	id := l.NewID()
	for l.index(id) >= 0 {
		id = l.NewID()
	}
	s := plan.Step{
		ID:        id,
		Title:     title,
		Deadline:  strings.TrimSpace(deadline),
		Mandatory: mandatory,
	}
	l.steps = append(l.steps, s)
	return s.Clone(), true
}

// ToggleMandatory flips the mandatory flag of id. Unknown ids are ignored.
func (l *StepList) ToggleMandatory(id string) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.steps[i].Mandatory = !l.steps[i].Mandatory
	return true
}

// Move swaps id with its neighbour in dir. It is a no-op at the list
// boundary or for unknown ids.
func (l *StepList) Move(id string, dir Direction) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	j := i - 1
	if dir == Down {
		j = i + 1
	}
	if j < 0 || j >= len(l.steps) {
		return false
	}
	l.steps[i], l.steps[j] = l.steps[j], l.steps[i]
	return true
}

// Remove deletes id and any dependencies on it. Unknown ids are ignored.
func (l *StepList) Remove(id string) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.steps = append(l.steps[:i], l.steps[i+1:]...)
	for k := range l.steps {
		l.steps[k].Dependencies = without(l.steps[k].Dependencies, id)
	}
	return true
}

func (l *StepList) index(id string) int {
	for i, s := range l.steps {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func titleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

func without(ids []string, id string) []string {
	var out []string
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
