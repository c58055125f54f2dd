package review

import (
	"encoding/json"
	"fmt"
)

// Severity represents the severity level of an issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Severities lists every severity, most severe first.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	return SeverityRank(s) > 0
}

// MeetsThreshold returns true if severity is at or above the threshold.
func MeetsThreshold(s Severity, threshold string) bool {
	if threshold == "none" || threshold == "" {
		return false
	}
	return SeverityRank(s) >= SeverityRank(Severity(threshold))
}

// IssueType is the category of an issue.
type IssueType string

const (
	TypeSecurity    IssueType = "security"
	TypePerformance IssueType = "performance"
	TypeStyle       IssueType = "style"
)

// IssueTypes lists every issue type.
var IssueTypes = []IssueType{TypeSecurity, TypePerformance, TypeStyle}

// Valid reports whether t is one of the known issue types.
func (t IssueType) Valid() bool {
	switch t {
	case TypeSecurity, TypePerformance, TypeStyle:
		return true
	}
	return false
}

// Range is an inclusive [start, end] pair. It encodes as a two-element JSON array.
type Range struct {
	Start int
	End   int
}

// MarshalJSON encodes the range as [start, end].
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Start, r.End})
}

// UnmarshalJSON decodes a [start, end] array.
func (r *Range) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("range must have 2 elements, got %d", len(pair))
	}
	r.Start, r.End = pair[0], pair[1]
	return nil
}

// Issue is one detected problem in the reviewed source.
type Issue struct {
	ID          string    `json:"id"`
	Type        IssueType `json:"type"`
	Severity    Severity  `json:"severity"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Suggestion  string    `json:"suggestion"`
	CodeExample string    `json:"codeExample,omitempty"`
	Line        Range     `json:"line"`
	Column      Range     `json:"column"`
}

// SeverityBreakdown holds counts by severity level.
type SeverityBreakdown struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// TypeBreakdown holds counts by issue type.
type TypeBreakdown struct {
	Security    int `json:"security"`
	Performance int `json:"performance"`
	Style       int `json:"style"`
}

// Summary provides an overview of issues.
type Summary struct {
	TotalIssues       int               `json:"totalIssues"`
	SeverityBreakdown SeverityBreakdown `json:"severityBreakdown"`
	TypeBreakdown     TypeBreakdown     `json:"typeBreakdown"`
}

// Metadata describes how an analysis was produced.
type Metadata struct {
	Timestamp      int64  `json:"timestamp"`
	ProcessingTime int64  `json:"processingTime"`
	AIModel        string `json:"aiModel"`
	CacheHit       bool   `json:"cacheHit"`
}

// CodeAnalysis is the complete result of one analysis request.
type CodeAnalysis struct {
	ID       string   `json:"id"`
	Code     string   `json:"code"`
	Language string   `json:"language"`
	Issues   []Issue  `json:"issues"`
	Metadata Metadata `json:"metadata"`
	Summary  Summary  `json:"summary"`
}

// HighestSeverity returns the most severe level present, or "" when there are no issues.
func (a *CodeAnalysis) HighestSeverity() Severity {
	var highest Severity
	for _, is := range a.Issues {
		if SeverityRank(is.Severity) > SeverityRank(highest) {
			highest = is.Severity
		}
	}
	return highest
}

// ComputeSummary calculates the summary from issues.
func ComputeSummary(issues []Issue) Summary {
	s := Summary{TotalIssues: len(issues)}
	for _, is := range issues {
		switch is.Severity {
		case SeverityCritical:
			s.SeverityBreakdown.Critical++
		case SeverityHigh:
			s.SeverityBreakdown.High++
		case SeverityMedium:
			s.SeverityBreakdown.Medium++
		case SeverityLow:
			s.SeverityBreakdown.Low++
		}
		switch is.Type {
		case TypeSecurity:
			s.TypeBreakdown.Security++
		case TypePerformance:
			s.TypeBreakdown.Performance++
		case TypeStyle:
			s.TypeBreakdown.Style++
		}
	}
	return s
}
