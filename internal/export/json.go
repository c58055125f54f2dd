package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dshills/codelens/internal/review"
)

// JSONWriter outputs the analysis as an indented JSON document.
type JSONWriter struct{}

func (j *JSONWriter) Ext() string { return "json" }

type jsonDocument struct {
	Code           *string        `json:"code,omitempty"`
	Language       string         `json:"language"`
	Timestamp      string         `json:"timestamp,omitempty"`
	ProcessingTime *int64         `json:"processingTime,omitempty"`
	Issues         []review.Issue `json:"issues"`
	Summary        review.Summary `json:"summary"`
}

func (j *JSONWriter) Write(w io.Writer, a *review.CodeAnalysis, opts Options) error {
	doc := jsonDocument{
		Language: a.Language,
		Issues:   FilterIssues(a.Issues, opts),
		// The summary always describes the full analysis.
		Summary: a.Summary,
	}
	if opts.IncludeCode {
		code := a.Code
		doc.Code = &code
	}
	if opts.IncludeMetadata {
		doc.Timestamp = time.UnixMilli(a.Metadata.Timestamp).UTC().Format("2006-01-02T15:04:05.000Z07:00")
		pt := a.Metadata.ProcessingTime
		doc.ProcessingTime = &pt
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	return nil
}
