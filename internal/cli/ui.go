package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/dshills/codelens/internal/review"
)

// UI writes colored messages and tables.
type UI struct {
	Out    io.Writer
	ErrOut io.Writer
}

// newUI creates a UI with default stdout/stderr writers.
func newUI() *UI {
	return &UI{Out: os.Stdout, ErrOut: os.Stderr}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	warningPrefix = color.New(color.FgHiYellow).Sprint("⚠")
	errorPrefix   = color.New(color.FgHiRed).Sprint("✗")
	bold          = color.New(color.Bold).SprintFunc()
	faint         = color.New(color.Faint).SprintFunc()
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
	magenta       = color.New(color.FgHiMagenta, color.Bold).SprintFunc()
)

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

// Table creates a new tablewriter configured with consistent styling.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}

// severityColor returns the label colored by severity.
func severityColor(s review.Severity) string {
	label := strings.ToUpper(string(s))
	switch s {
	case review.SeverityCritical:
		return magenta(label)
	case review.SeverityHigh:
		return red(label)
	case review.SeverityMedium:
		return yellow(label)
	case review.SeverityLow:
		return cyan(label)
	default:
		return label
	}
}

func countColor(n int, paint func(a ...any) string) string {
	s := fmt.Sprintf("%d", n)
	if n == 0 {
		return faint(s)
	}
	return paint(s)
}

// printAnalysis writes a colored terminal report.
func (u *UI) printAnalysis(a *review.CodeAnalysis, issues []review.Issue) {
	sb := a.Summary.SeverityBreakdown
	fmt.Fprintf(u.Out, "%s %s  %s\n", bold("Language:"), a.Language, faint(fmt.Sprintf("%s, %dms", a.Metadata.AIModel, a.Metadata.ProcessingTime)))
	fmt.Fprintf(u.Out, "%s %d  (%s critical, %s high, %s medium, %s low)\n\n",
		bold("Issues:"), a.Summary.TotalIssues,
		countColor(sb.Critical, magenta), countColor(sb.High, red),
		countColor(sb.Medium, yellow), countColor(sb.Low, cyan))

	if len(issues) == 0 {
		fmt.Fprintln(u.Out, green("No issues match the current filters."))
		return
	}

	lines := strings.Split(a.Code, "\n")
	for _, is := range issues {
		loc := fmt.Sprintf("L%d", is.Line.Start)
		if is.Line.End > is.Line.Start {
			loc = fmt.Sprintf("L%d-%d", is.Line.Start, is.Line.End)
		}
		fmt.Fprintf(u.Out, "%s %s %s %s\n", severityColor(is.Severity), faint("["+string(is.Type)+"]"), bold(is.Title), faint(loc))
		if is.Line.Start >= 1 && is.Line.Start <= len(lines) {
			fmt.Fprintf(u.Out, "  %s\n", faint(strings.TrimSpace(lines[is.Line.Start-1])))
		}
		if is.Description != "" {
			fmt.Fprintf(u.Out, "  %s\n", is.Description)
		}
		if is.Suggestion != "" {
			fmt.Fprintf(u.Out, "  %s %s\n", green("→"), is.Suggestion)
		}
		fmt.Fprintln(u.Out)
	}
}
