package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/dshills/codelens/internal/review"
)

// Formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatPDF      = "pdf"
	FormatText     = "text"
)

// Options control what an export contains. A nil filter does not filter on
// that axis.
type Options struct {
	Format          string
	IncludeCode     bool
	IncludeMetadata bool
	SeverityFilter  []review.Severity
	TypeFilter      []review.IssueType
}

// DefaultOptions returns options that include everything.
func DefaultOptions(format string) Options {
	return Options{Format: format, IncludeCode: true, IncludeMetadata: true}
}

// Result is a rendered export artifact.
type Result struct {
	Format   string `json:"format"`
	Content  []byte `json:"-"`
	Filename string `json:"filename"`
	Size     int    `json:"size"`
}

// Writer renders an analysis in a specific format.
type Writer interface {
	Write(w io.Writer, a *review.CodeAnalysis, opts Options) error
	// Ext is the file extension, without the dot.
	Ext() string
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case FormatJSON:
		return &JSONWriter{}, nil
	case FormatMarkdown, "md":
		return &MarkdownWriter{}, nil
	case FormatPDF:
		return &PDFWriter{}, nil
	case FormatText:
		return &TextWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// Export renders a at time now. The filename embeds now in epoch
// milliseconds.
func Export(a *review.CodeAnalysis, opts Options, now time.Time) (Result, error) {
	writer, err := GetWriter(opts.Format)
	if err != nil {
		return Result{}, err
	}
	var buf bytes.Buffer
	if err := writer.Write(&buf, a, opts); err != nil {
		return Result{}, err
	}
	format := opts.Format
	if format == "md" {
		format = FormatMarkdown
	}
	return Result{
		Format:   format,
		Content:  buf.Bytes(),
		Filename: fmt.Sprintf("code-review-%d.%s", now.UnixMilli(), writer.Ext()),
		Size:     buf.Len(),
	}, nil
}

// WriteResult saves the artifact under dir and returns its path.
func WriteResult(r Result, dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, r.Filename)
	if err := os.WriteFile(path, r.Content, 0o644); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	return path, nil
}

// FilterIssues returns the issues that pass both filters, in their original
// order.
func FilterIssues(issues []review.Issue, opts Options) []review.Issue {
	out := make([]review.Issue, 0, len(issues))
	for _, is := range issues {
		if opts.SeverityFilter != nil && !slices.Contains(opts.SeverityFilter, is.Severity) {
			continue
		}
		if opts.TypeFilter != nil && !slices.Contains(opts.TypeFilter, is.Type) {
			continue
		}
		out = append(out, is)
	}
	return out
}

// displayTime formats an epoch-millisecond timestamp for reports.
func displayTime(ms int64) string {
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}

func typeIcon(t review.IssueType) string {
	switch t {
	case review.TypeSecurity:
		return "🔒"
	case review.TypePerformance:
		return "⚡"
	default:
		return "📝"
	}
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
