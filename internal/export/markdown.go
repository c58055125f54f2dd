package export

import (
	"io"

	"github.com/dshills/codelens/internal/review"
)

// MarkdownWriter outputs a Markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Ext() string { return "md" }

func (m *MarkdownWriter) Write(w io.Writer, a *review.CodeAnalysis, opts Options) error {
	ew := &errWriter{w: w}

	ew.printf("# Code Review Report\n\n")

	if opts.IncludeMetadata {
		ew.printf("**Date:** %s\n", displayTime(a.Metadata.Timestamp))
		ew.printf("**Language:** %s\n", a.Language)
		ew.printf("**Processing Time:** %dms\n\n", a.Metadata.ProcessingTime)
	}

	sb := a.Summary.SeverityBreakdown
	ew.printf("## Summary\n\n")
	ew.printf("- **Total Issues:** %d\n", a.Summary.TotalIssues)
	ew.printf("- **Critical:** %d\n", sb.Critical)
	ew.printf("- **High:** %d\n", sb.High)
	ew.printf("- **Medium:** %d\n", sb.Medium)
	ew.printf("- **Low:** %d\n\n", sb.Low)

	if opts.IncludeCode {
		ew.printf("## Code\n\n")
		ew.printf("```%s\n%s\n```\n\n", a.Language, a.Code)
	}

	ew.printf("## Issues\n\n")
	for i, is := range FilterIssues(a.Issues, opts) {
		ew.printf("### %d. %s %s\n\n", i+1, typeIcon(is.Type), is.Title)
		ew.printf("**Type:** %s | **Severity:** %s\n", is.Type, is.Severity)
		ew.printf("**Lines:** %d-%d\n\n", is.Line.Start, is.Line.End)
		ew.printf("**Description:** %s\n\n", is.Description)
		ew.printf("**Suggestion:** %s\n\n", is.Suggestion)
		if is.CodeExample != "" {
			ew.printf("**Example:**\n\n")
			ew.printf("```%s\n%s\n```\n\n", a.Language, is.CodeExample)
		}
		ew.println("---\n")
	}

	return ew.err
}
