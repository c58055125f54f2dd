package export

import (
	"io"
	"strings"

	"github.com/dshills/codelens/internal/review"
)

// TextWriter outputs a plain terminal report, issues grouped by severity.
type TextWriter struct{}

func (t *TextWriter) Ext() string { return "txt" }

func (t *TextWriter) Write(w io.Writer, a *review.CodeAnalysis, opts Options) error {
	ew := &errWriter{w: w}
	issues := FilterIssues(a.Issues, opts)

	ew.printf("Code Review: %s\n", a.Language)
	if opts.IncludeMetadata {
		ew.printf("Model: %s | %s | %dms\n", a.Metadata.AIModel, displayTime(a.Metadata.Timestamp), a.Metadata.ProcessingTime)
	}
	ew.println(strings.Repeat("─", 60))
	sb := a.Summary.SeverityBreakdown
	ew.printf("Issues: %d total (%d critical, %d high, %d medium, %d low)\n",
		a.Summary.TotalIssues, sb.Critical, sb.High, sb.Medium, sb.Low)
	ew.println(strings.Repeat("─", 60))

	if len(issues) == 0 {
		ew.println("\nNo issues match the current filters.")
		return ew.err
	}

	grouped := groupBySeverity(issues)
	for _, sev := range review.Severities {
		group := grouped[sev]
		if len(group) == 0 {
			continue
		}

		ew.printf("\n%s %s\n", severityIcon(sev), strings.ToUpper(string(sev)))
		ew.println(strings.Repeat("─", 40))

		for _, is := range group {
			ew.printf("\n  %d-%d  %s %s\n", is.Line.Start, is.Line.End, typeIcon(is.Type), is.Title)
			for _, line := range wrapText(is.Description, 70) {
				ew.printf("    %s\n", line)
			}
			if is.Suggestion != "" {
				ew.println("  Suggestion:")
				for _, line := range wrapText(is.Suggestion, 70) {
					ew.printf("    %s\n", line)
				}
			}
			if is.CodeExample != "" {
				ew.println("  Example:")
				for _, line := range strings.Split(is.CodeExample, "\n") {
					ew.printf("    %s\n", line)
				}
			}
		}
	}

	if opts.IncludeCode {
		ew.printf("\n%s\n", strings.Repeat("─", 60))
		for i, line := range strings.Split(a.Code, "\n") {
			ew.printf("%4d | %s\n", i+1, line)
		}
	}

	return ew.err
}

func groupBySeverity(issues []review.Issue) map[review.Severity][]review.Issue {
	m := make(map[review.Severity][]review.Issue)
	for _, is := range issues {
		m[is.Severity] = append(m[is.Severity], is)
	}
	return m
}

func severityIcon(s review.Severity) string {
	switch s {
	case review.SeverityCritical:
		return "[!!!]"
	case review.SeverityHigh:
		return "[!!]"
	case review.SeverityMedium:
		return "[!]"
	case review.SeverityLow:
		return "[-]"
	default:
		return "[?]"
	}
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
