package plan

// Step represents a single unit of work within a task.
type Step struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Deadline           string   `json:"deadline"`
	Mandatory          bool     `json:"mandatory"`
	CompletionCriteria string   `json:"completion_criteria,omitempty"`
	Dependencies       []string `json:"dependencies,omitempty"` // ids of earlier steps
	Links              []Link   `json:"links,omitempty"`
}

// Link is a resource attached to a step.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// TaskContext is the input to decomposition.
type TaskContext struct {
	Title       string
	Description string
	Category    Category
	Goal        string // optional refinement, takes precedence over Description
}

// Subject returns the text the steps should be derived from.
func (tc TaskContext) Subject() string {
	if tc.Goal != "" {
		return tc.Goal
	}
	return tc.Description
}

// Clone returns a deep copy of the step.
func (s Step) Clone() Step {
	out := s
	if s.Dependencies != nil {
		out.Dependencies = append([]string(nil), s.Dependencies...)
	}
	if s.Links != nil {
		out.Links = append([]Link(nil), s.Links...)
	}
	return out
}

// CloneSteps deep-copies a step slice. A nil input yields nil.
func CloneSteps(steps []Step) []Step {
	if steps == nil {
		return nil
	}
	out := make([]Step, len(steps))
	for i, s := range steps {
		out[i] = s.Clone()
	}
	return out
}
