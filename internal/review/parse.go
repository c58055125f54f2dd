package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// errNotArray is returned when a model reply decodes to something other than
// a JSON array.
var errNotArray = errors.New("reply is not a JSON array")

var fencePattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// rawIssue is the JSON structure returned by the model. Every field is
// optional; line and column stay raw so malformed ranges can be defaulted.
type rawIssue struct {
	Type        string          `json:"type"`
	Severity    string          `json:"severity"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Suggestion  string          `json:"suggestion"`
	CodeExample string          `json:"codeExample"`
	Line        json.RawMessage `json:"line"`
	Column      json.RawMessage `json:"column"`
}

// extractJSON returns the inner text of the first fenced block, or the whole
// reply when there is none.
func extractJSON(content string) string {
	if m := fencePattern.FindStringSubmatch(content); m != nil && m[1] != "" {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(content)
}

// parseIssues decodes a model reply into issues, backfilling missing or
// unusable fields. Each issue gets a fresh id from ids.
func parseIssues(content string, ids *IDGenerator) ([]Issue, error) {
	text := extractJSON(content)

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(text), &elems); err != nil {
		var ute *json.UnmarshalTypeError
		if errors.As(err, &ute) {
			return nil, errNotArray
		}
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	issues := make([]Issue, 0, len(elems))
	for _, elem := range elems {
		var raw rawIssue
		// Elements that are not objects keep every default.
		_ = json.Unmarshal(elem, &raw)
		issues = append(issues, raw.toIssue(ids.IssueID()))
	}
	return issues, nil
}

func (r rawIssue) toIssue(id string) Issue {
	is := Issue{
		ID:          id,
		Type:        IssueType(r.Type),
		Severity:    Severity(r.Severity),
		Title:       r.Title,
		Description: r.Description,
		Suggestion:  r.Suggestion,
		CodeExample: r.CodeExample,
		Line:        parseRange(r.Line, Range{1, 1}),
		Column:      parseRange(r.Column, Range{1, 50}),
	}
	if !is.Type.Valid() {
		is.Type = TypeStyle
	}
	if !is.Severity.Valid() {
		is.Severity = SeverityMedium
	}
	if is.Title == "" {
		is.Title = "Code Issue"
	}
	return is
}

func parseRange(raw json.RawMessage, def Range) Range {
	if len(raw) == 0 {
		return def
	}
	var r Range
	if err := json.Unmarshal(raw, &r); err != nil {
		return def
	}
	return r
}
