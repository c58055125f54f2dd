package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/dshills/codelens/internal/review"
)

// Page geometry in millimetres.
const (
	pdfMargin     = 20.0
	pdfLineHeight = 7.0
	pdfTextWidth  = 170.0
)

// PDFWriter outputs an A4 PDF report.
type PDFWriter struct{}

func (p *PDFWriter) Ext() string { return "pdf" }

func (p *PDFWriter) Write(w io.Writer, a *review.CodeAnalysis, opts Options) error {
	doc := renderPDF(a, opts)
	if err := doc.Output(w); err != nil {
		return fmt.Errorf("writing PDF: %w", err)
	}
	return nil
}

// pdfLayout writes lines top to bottom and starts a new page whenever the
// cursor passes the bottom margin.
type pdfLayout struct {
	doc        *fpdf.Fpdf
	tr         func(string) string
	y          float64
	pageHeight float64
}

func newPDFLayout() *pdfLayout {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	doc.SetAutoPageBreak(false, pdfMargin)
	doc.AddPage()
	_, h := doc.GetPageSize()
	return &pdfLayout{
		doc:        doc,
		tr:         doc.UnicodeTranslatorFromDescriptor(""),
		y:          pdfMargin,
		pageHeight: h,
	}
}

func (l *pdfLayout) breakIfNeeded() {
	if l.y > l.pageHeight-pdfMargin {
		l.doc.AddPage()
		l.y = pdfMargin
	}
}

// text writes s wrapped to the text width.
func (l *pdfLayout) text(s string, size float64, bold bool) {
	l.write("Helvetica", s, size, bold)
}

// code writes s in a fixed-width font, keeping its line breaks.
func (l *pdfLayout) code(s string) {
	l.write("Courier", s, 9, false)
}

func (l *pdfLayout) write(family, s string, size float64, bold bool) {
	l.breakIfNeeded()
	style := ""
	if bold {
		style = "B"
	}
	l.doc.SetFont(family, style, size)

	for _, para := range strings.Split(latin1(s), "\n") {
		lines := l.doc.SplitText(para, pdfTextWidth)
		if len(lines) == 0 {
			lines = []string{""}
		}
		for _, line := range lines {
			l.breakIfNeeded()
			l.doc.Text(pdfMargin, l.y, l.tr(line))
			l.y += pdfLineHeight
		}
	}
}

// latin1 replaces characters the core PDF fonts cannot draw.
func latin1(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t':
			return ' '
		case r == '\n':
			return r
		case r == '\r':
			return -1
		case r < 0x20 || (r >= 0x7f && r < 0xa0) || r > 0xff:
			return '?'
		}
		return r
	}, s)
}

func (l *pdfLayout) gap(mm float64) {
	l.y += mm
}

func renderPDF(a *review.CodeAnalysis, opts Options) *fpdf.Fpdf {
	l := newPDFLayout()

	l.text("Code Review Report", 18, true)
	l.gap(5)

	if opts.IncludeMetadata {
		l.text("Date: "+displayTime(a.Metadata.Timestamp), 10, false)
		l.text("Language: "+a.Language, 10, false)
		l.text(fmt.Sprintf("Processing Time: %dms", a.Metadata.ProcessingTime), 10, false)
		l.gap(5)
	}

	sb := a.Summary.SeverityBreakdown
	l.text("Summary", 14, true)
	l.text(fmt.Sprintf("Total Issues: %d", a.Summary.TotalIssues), 10, false)
	l.text(fmt.Sprintf("Critical: %d", sb.Critical), 10, false)
	l.text(fmt.Sprintf("High: %d", sb.High), 10, false)
	l.text(fmt.Sprintf("Medium: %d", sb.Medium), 10, false)
	l.text(fmt.Sprintf("Low: %d", sb.Low), 10, false)
	l.gap(10)

	if opts.IncludeCode {
		l.text("Code", 14, true)
		l.code(a.Code)
		l.gap(10)
	}

	l.text("Issues", 14, true)
	l.gap(5)

	for i, is := range FilterIssues(a.Issues, opts) {
		l.text(fmt.Sprintf("%d. %s", i+1, is.Title), 12, true)
		l.text(fmt.Sprintf("Type: %s | Severity: %s", is.Type, is.Severity), 10, false)
		l.text(fmt.Sprintf("Lines: %d-%d", is.Line.Start, is.Line.End), 10, false)
		l.text("Description: "+is.Description, 10, false)
		l.text("Suggestion: "+is.Suggestion, 10, false)
		if is.CodeExample != "" {
			l.code(is.CodeExample)
		}
		l.gap(5)
	}

	return l.doc
}
