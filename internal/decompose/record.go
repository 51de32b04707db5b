package decompose

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rahul/tasksmith/internal/plan"
)

// RawRecord is a best-effort decode of one oracle step. Nil fields were absent.
// It never leaves this package: Normalizer converts it into plan.Step.
type RawRecord struct {
	Title              *string
	Deadline           *string
	Mandatory          *bool
	CompletionCriteria *string
	Dependencies       []DependencyRef
	Links              []plan.Link
}

// DependencyRef points at an earlier step by 1-based position or by title.
type DependencyRef struct {
	Position int
	Title    string
}

var fieldAliases = map[string][]string{
	"title":     {"title", "name", "step"},
	"deadline":  {"deadline", "duration", "estimate", "estimated_time", "timeframe", "time"},
	"mandatory": {"mandatory", "required"},
	"criteria":  {"completioncriteria", "completion_criteria", "criteria", "done_when", "definition_of_done"},
	"deps":      {"dependencies", "depends_on", "dependson"},
	"links":     {"links", "resources"},
}

// decodeRecord attempts to read one array element. A bare string becomes a
// title-only record; objects must carry at least one recognized field.
func decodeRecord(msg json.RawMessage) (RawRecord, bool) {
	msg = bytes.TrimSpace(msg)
	if len(msg) == 0 {
		return RawRecord{}, false
	}

	switch msg[0] {
	case '"':
		var title string
		if err := json.Unmarshal(msg, &title); err != nil || strings.TrimSpace(title) == "" {
			return RawRecord{}, false
		}
		return RawRecord{Title: &title}, true
	case '{':
	default:
		return RawRecord{}, false
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(msg, &obj); err != nil {
		return RawRecord{}, false
	}
	fields := make(map[string]json.RawMessage, len(obj))
	for k, v := range obj {
		fields[strings.ToLower(strings.TrimSpace(k))] = v
	}

	var rec RawRecord
	found := false
	if v, ok := lookup(fields, "title"); ok {
		if s, ok := stringValue(v); ok {
			rec.Title = &s
			found = true
		}
	}
	if v, ok := lookup(fields, "deadline"); ok {
		if s, ok := stringValue(v); ok {
			rec.Deadline = &s
			found = true
		}
	}
	if v, ok := lookup(fields, "mandatory"); ok {
		if b, ok := boolValue(v); ok {
			rec.Mandatory = &b
			found = true
		}
	}
	if v, ok := lookup(fields, "criteria"); ok {
		if s, ok := stringValue(v); ok {
			rec.CompletionCriteria = &s
			found = true
		}
	}
	if v, ok := lookup(fields, "deps"); ok {
		rec.Dependencies = dependencyValues(v)
		found = found || len(rec.Dependencies) > 0
	}
	if v, ok := lookup(fields, "links"); ok {
		rec.Links = linkValues(v)
		found = found || len(rec.Links) > 0
	}
	return rec, found
}

func lookup(fields map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	for _, alias := range fieldAliases[name] {
		if v, ok := fields[alias]; ok {
			return v, true
		}
	}
	return nil, false
}

func stringValue(v json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

func boolValue(v json.RawMessage) (bool, bool) {
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		return b, true
	}
	var n float64
	if err := json.Unmarshal(v, &n); err == nil {
		return n != 0, true
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "required", "mandatory", "1":
		return true, true
	case "false", "no", "n", "optional", "0":
		return false, true
	}
	return false, false
}

func dependencyValues(v json.RawMessage) []DependencyRef {
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		// a single reference instead of a list
		items = []json.RawMessage{v}
	}

	var refs []DependencyRef
	for _, item := range items {
		var n int
		if err := json.Unmarshal(item, &n); err == nil {
			refs = append(refs, DependencyRef{Position: n})
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if n, err := strconv.Atoi(s); err == nil {
			refs = append(refs, DependencyRef{Position: n})
			continue
		}
		refs = append(refs, DependencyRef{Title: s})
	}
	return refs
}

func linkValues(v json.RawMessage) []plan.Link {
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		return nil
	}

	var links []plan.Link
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			links = append(links, plan.Link{Text: s, URL: s})
			continue
		}
		var obj map[string]string
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		link := plan.Link{Text: obj["text"], URL: obj["url"]}
		if link.Text == "" {
			link.Text = obj["name"]
		}
		if link.URL == "" {
			link.URL = obj["href"]
		}
		if link.Text == "" {
			link.Text = link.URL
		}
		links = append(links, link)
	}
	return links
}
