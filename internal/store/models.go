package store

import (
	"time"

	"github.com/rahul/tasksmith/internal/plan"
)

// Task is a saved task together with its ordered steps.
type Task struct {
	ID          int64         `json:"id"`
	ChatID      string        `json:"chat_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    plan.Category `json:"category"`
	Goal        string        `json:"goal,omitempty"`
	Steps       []plan.Step   `json:"steps"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TaskSummary is one row of ListTasks.
type TaskSummary struct {
	ID        int64
	Title     string
	Category  plan.Category
	StepCount int
	UpdatedAt time.Time
}

// Context returns the decomposition input for the task.
func (t Task) Context() plan.TaskContext {
	return plan.TaskContext{
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Goal:        t.Goal,
	}
}

// stepRow is the persisted form of a step. Dependencies are 1-based positions.
type stepRow struct {
	Position           int
	Title              string
	Deadline           string
	Mandatory          bool
	CompletionCriteria string
	Dependencies       []int
	Links              []plan.Link
}
