package plan

import "strings"

// Category is the timeframe classification of a task.
type Category string

const (
	ShortTerm Category = "short-term"
	MidTerm   Category = "mid-term"
	LongTerm  Category = "long-term"
)

// DefaultCategory is used whenever a category is missing or unrecognized.
const DefaultCategory = ShortTerm

// Guideline holds the duration limits associated with a category.
type Guideline struct {
	Label        string   // human wording, e.g. "today"
	MaxPerStep   string   // ceiling for a single step
	TotalHorizon string   // overall duration the plan should fit in
	Buckets      []string // ascending duration buckets; the first is the default deadline
}

var guidelines = map[Category]Guideline{
	ShortTerm: {
		Label:        "today",
		MaxPerStep:   "2 hours",
		TotalHorizon: "1 day",
		Buckets:      []string{"30 minutes", "1 hour", "2 hours"},
	},
	MidTerm: {
		Label:        "this week",
		MaxPerStep:   "1 day",
		TotalHorizon: "1 week",
		Buckets:      []string{"1 day", "2 days", "3 days"},
	},
	LongTerm: {
		Label:        "long term",
		MaxPerStep:   "1 week",
		TotalHorizon: "3 months",
		Buckets:      []string{"1 week", "2 weeks", "1 month"},
	},
}

// Categories returns the closed category set in a stable order.
func Categories() []Category {
	return []Category{ShortTerm, MidTerm, LongTerm}
}

// Valid reports whether c is a member of the closed set.
func (c Category) Valid() bool {
	_, ok := guidelines[c]
	return ok
}

// Guideline returns the duration guideline for c, falling back to the default category.
func (c Category) Guideline() Guideline {
	if g, ok := guidelines[c]; ok {
		return g
	}
	return guidelines[DefaultCategory]
}

// DefaultDeadline is the first duration bucket of the category.
func (c Category) DefaultDeadline() string {
	return c.Guideline().Buckets[0]
}

// ParseCategory maps user wording onto the closed set. Unknown input maps to DefaultCategory.
func ParseCategory(s string) Category {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", "-", " ", "-").Replace(key)
	switch key {
	case "short-term", "short", "today", "day":
		return ShortTerm
	case "mid-term", "mid", "medium", "this-week", "week":
		return MidTerm
	case "long-term", "long", "month", "months":
		return LongTerm
	}
	return DefaultCategory
}
