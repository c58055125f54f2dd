package review

import (
	"regexp"
	"strings"
)

// HeuristicModel identifies analyses produced by the Detector.
const HeuristicModel = "heuristic-analyzer-v1"

// minIssues is the count below which the documentation reminder is added.
const minIssues = 3

var credentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)api[_-]?key\s*=\s*['"][^'"]+['"]`),
	regexp.MustCompile(`(?i)password\s*=\s*['"][^'"]+['"]`),
	regexp.MustCompile(`(?i)secret\s*=\s*['"][^'"]+['"]`),
	regexp.MustCompile(`(?i)token\s*=\s*['"][^'"]+['"]`),
}

var scriptLanguages = map[string]bool{
	"javascript": true,
	"typescript": true,
	"js":         true,
	"ts":         true,
	"jsx":        true,
	"tsx":        true,
}

// docReminder is appended once when the rules found fewer than minIssues.
var docReminder = Issue{
	Type:        TypeStyle,
	Severity:    SeverityLow,
	Title:       "Code Structure",
	Description: "Consider adding more comments to improve code readability.",
	Suggestion:  "Add doc comments to functions and complex logic blocks.",
	Line:        Range{1, 1},
	Column:      Range{1, 10},
}

// Detector finds issues with fixed substring and pattern rules. It does not
// parse the source.
type Detector struct {
	ids *IDGenerator
}

// NewDetector creates a Detector. A nil generator gets a fresh one.
func NewDetector(ids *IDGenerator) *Detector {
	if ids == nil {
		ids = NewIDGenerator()
	}
	return &Detector{ids: ids}
}

// Detect returns the issues found in code, in rule order. When the rules find
// fewer than three, a single documentation reminder is appended, so clean code
// yields one issue.
func (d *Detector) Detect(code, language string) []Issue {
	lines := strings.Split(code, "\n")
	var issues []Issue
	add := func(is Issue) {
		is.ID = d.ids.IssueID()
		issues = append(issues, is)
	}

	if strings.Contains(code, "eval(") || strings.Contains(code, "Function(") {
		ln := firstLine(lines, func(l string) bool {
			return strings.Contains(l, "eval(") || strings.Contains(l, "Function(")
		})
		add(Issue{
			Type:        TypeSecurity,
			Severity:    SeverityCritical,
			Title:       "Dangerous eval() Usage",
			Description: "Using eval() or the Function() constructor can execute arbitrary code and is a major security risk.",
			Suggestion:  "Avoid eval(). Use JSON.parse() for parsing data or refactor to call functions directly.",
			Line:        Range{ln, ln},
			Column:      Range{1, 50},
		})
	}

	for _, pat := range credentialPatterns {
		if !pat.MatchString(code) {
			continue
		}
		ln := firstLine(lines, pat.MatchString)
		add(Issue{
			Type:        TypeSecurity,
			Severity:    SeverityCritical,
			Title:       "Hardcoded Credentials Detected",
			Description: "Sensitive credentials are hardcoded in the source code, which poses a security risk.",
			Suggestion:  "Move credentials to environment variables or a secret manager.",
			CodeExample: "const apiKey = process.env.API_KEY;",
			Line:        Range{ln, ln},
			Column:      Range{1, 60},
		})
	}

	if strings.Contains(code, "for") && strings.Contains(code, "+=") {
		ln := firstLineContaining(lines, "for")
		add(Issue{
			Type:        TypePerformance,
			Severity:    SeverityMedium,
			Title:       "Potential Performance Issue in Loop",
			Description: "String concatenation or repeated accumulation inside loops can degrade performance.",
			Suggestion:  "Collect values and join once, or use map(), filter() or reduce().",
			Line:        Range{ln, min(ln+3, len(lines))},
			Column:      Range{1, 40},
		})
	}

	if strings.Contains(code, "console.log") || strings.Contains(code, "console.error") {
		ln := firstLineContaining(lines, "console.")
		add(Issue{
			Type:        TypeStyle,
			Severity:    SeverityLow,
			Title:       "Console Statement Found",
			Description: "Console statements should be removed before production deployment.",
			Suggestion:  "Remove console statements or use a proper logging library.",
			Line:        Range{ln, ln},
			Column:      Range{1, 30},
		})
	}

	if IsScriptLanguage(language) && strings.Contains(code, "var ") {
		ln := firstLineContaining(lines, "var ")
		add(Issue{
			Type:        TypeStyle,
			Severity:    SeverityMedium,
			Title:       "Use of var Keyword",
			Description: "var is function scoped and can lead to unexpected behavior. Use let or const instead.",
			Suggestion:  "Replace var with const for values that never change, or let for values that do.",
			CodeExample: "const myVariable = value; // or let myVariable = value;",
			Line:        Range{ln, ln},
			Column:      Range{1, 20},
		})
	}

	if strings.Contains(code, "async") && !strings.Contains(code, "try") && !strings.Contains(code, "catch") {
		ln := firstLineContaining(lines, "async")
		add(Issue{
			Type:        TypeSecurity,
			Severity:    SeverityHigh,
			Title:       "Missing Error Handling",
			Description: "Async functions without try/catch can lead to unhandled promise rejections.",
			Suggestion:  "Wrap async operations in try/catch blocks to handle failures gracefully.",
			CodeExample: "try {\n  await someAsyncOperation();\n} catch (error) {\n  handle(error);\n}",
			Line:        Range{ln, min(ln+5, len(lines))},
			Column:      Range{1, 50},
		})
	}

	if len(issues) < minIssues {
		add(docReminder)
	}

	return issues
}

// IsScriptLanguage reports whether language names JavaScript or TypeScript.
func IsScriptLanguage(language string) bool {
	return scriptLanguages[strings.ToLower(strings.TrimSpace(language))]
}

// firstLine returns the 1-based number of the first line matching, or 1.
func firstLine(lines []string, match func(string) bool) int {
	for i, l := range lines {
		if match(l) {
			return i + 1
		}
	}
	return 1
}

func firstLineContaining(lines []string, s string) int {
	return firstLine(lines, func(l string) bool { return strings.Contains(l, s) })
}
