package decompose

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rahul/tasksmith/internal/governance"
)

// Outcome classifies a parse.
type Outcome int

const (
	Valid Outcome = iota
	Malformed
	Empty
)

func (o Outcome) String() string {
	switch o {
	case Valid:
		return "valid"
	case Malformed:
		return "malformed"
	case Empty:
		return "empty"
	}
	return "unknown"
}

// ParseResult is the outcome of reading one oracle response.
type ParseResult struct {
	Outcome Outcome
	Records []RawRecord // non-empty only when Outcome is Valid
	Dropped int         // elements that failed to decode or were denied
}

// Parser extracts step records from raw oracle text.
type Parser struct {
	Policy          governance.PolicyEngine
	AllowListFormat bool
}

func NewParser(policy governance.PolicyEngine) *Parser {
	return &Parser{Policy: policy}
}

const maxJSONCandidates = 16

var (
	fencePattern    = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \\t]*\\r?\\n?(.*?)```")
	listItemPattern = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s+(.+?)\s*$`)
	trailingParens  = regexp.MustCompile(`\s*\(([^()]+)\)\s*$`)
)

var invisibles = strings.NewReplacer(
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\u2060", "",
	"\ufeff", "",
)

// Parse never fails; unusable input is reported as Malformed or Empty.
func (p *Parser) Parse(raw string) ParseResult {
	text := invisibles.Replace(raw)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	} else {
		// an unterminated fence still carries its opening marker
		text = strings.ReplaceAll(text, "```json", "")
		text = strings.ReplaceAll(text, "```", "")
	}
	text = strings.TrimSpace(text)

	value, ok, broken := firstJSONValue(text)
	if ok {
		return p.fromJSON(value)
	}
	if broken {
		return ParseResult{Outcome: Malformed}
	}

	if p.AllowListFormat {
		if records := listRecords(text); len(records) > 0 {
			return p.filter(records, 0)
		}
	}
	return ParseResult{Outcome: Malformed}
}

// firstJSONValue decodes the first JSON array or object in text, ignoring
// whatever prose follows it. broken is set when an array of records starts
// but does not decode, such as a truncated reply or a trailing comma; the
// search does not continue inside it.
func firstJSONValue(text string) (value json.RawMessage, ok, broken bool) {
	offset := 0
	for i := 0; i < maxJSONCandidates; i++ {
		idx := strings.IndexAny(text[offset:], "[{")
		if idx < 0 {
			return nil, false, false
		}
		start := offset + idx

		dec := json.NewDecoder(strings.NewReader(text[start:]))
		if err := dec.Decode(&value); err == nil {
			return value, true, false
		}
		if text[start] == '[' && opensRecord(text[start+1:]) {
			return nil, false, true
		}
		offset = start + 1
	}
	return nil, false, false
}

// opensRecord reports whether rest begins, after whitespace, with an object or string.
func opensRecord(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	return rest != "" && (rest[0] == '{' || rest[0] == '"')
}

func (p *Parser) fromJSON(value json.RawMessage) ParseResult {
	var items []json.RawMessage

	switch value[0] {
	case '[':
		if err := json.Unmarshal(value, &items); err != nil {
			return ParseResult{Outcome: Malformed}
		}
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(value, &obj); err != nil {
			return ParseResult{Outcome: Malformed}
		}
		if steps, ok := stepsArray(obj); ok {
			items = steps
		} else {
			items = []json.RawMessage{value}
		}
	}

	if len(items) == 0 {
		return ParseResult{Outcome: Empty}
	}

	records := make([]RawRecord, 0, len(items))
	dropped := 0
	for _, item := range items {
		rec, ok := decodeRecord(item)
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	return p.filter(records, dropped)
}

func stepsArray(obj map[string]json.RawMessage) ([]json.RawMessage, bool) {
	for k, v := range obj {
		if !strings.EqualFold(k, "steps") {
			continue
		}
		v = bytes.TrimSpace(v)
		if len(v) == 0 || v[0] != '[' {
			return nil, false
		}
		var items []json.RawMessage
		if err := json.Unmarshal(v, &items); err != nil {
			return nil, false
		}
		return items, true
	}
	return nil, false
}

func (p *Parser) filter(records []RawRecord, dropped int) ParseResult {
	kept := records[:0]
	for _, rec := range records {
		if p.Policy != nil && rec.Title != nil {
			if res := p.Policy.Evaluate(governance.Request{Title: *rec.Title}); res.Effect == governance.EffectDeny {
				dropped++
				continue
			}
		}
		kept = append(kept, rec)
	}
	if len(kept) == 0 {
		return ParseResult{Outcome: Empty, Dropped: dropped}
	}
	return ParseResult{Outcome: Valid, Records: kept, Dropped: dropped}
}

// listRecords reads numbered or bulleted lines such as "2. Book venue (1 day)".
func listRecords(text string) []RawRecord {
	var records []RawRecord
	for _, line := range strings.Split(text, "\n") {
		m := listItemPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		body := strings.ReplaceAll(m[1], "**", "")

		var rec RawRecord
		if pm := trailingParens.FindStringSubmatchIndex(body); pm != nil && !isLinkTarget(body, pm[2]) {
			deadline := strings.TrimSpace(body[pm[2]:pm[3]])
			rec.Deadline = &deadline
			body = body[:pm[0]]
		}
		title := strings.TrimSpace(body)
		if title == "" {
			continue
		}
		rec.Title = &title
		records = append(records, rec)
	}
	return records
}

// isLinkTarget reports whether the parenthesis opening before pos closes a markdown link.
func isLinkTarget(body string, pos int) bool {
	open := strings.LastIndex(body[:pos], "(")
	return open > 0 && body[open-1] == ']'
}
