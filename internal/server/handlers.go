package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/dshills/codelens/internal/export"
	"github.com/dshills/codelens/internal/history"
	"github.com/dshills/codelens/internal/prefs"
	"github.com/dshills/codelens/internal/review"
)

// --- Review ---

type analyzeRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	APIKey   string `json:"apiKey,omitempty"`
	// SaveHistory defaults to true.
	SaveHistory *bool `json:"saveHistory,omitempty"`
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeBody(w, r, &req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, r, http.StatusRequestEntityTooLarge, CodeTooLarge, review.ErrCodeTooLarge.Error())
			return
		}
		writeError(w, r, http.StatusBadRequest, CodeInvalidRequest, "invalid JSON body")
		return
	}

	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = r.Header.Get("X-API-Key")
	}
	if apiKey == "" {
		apiKey = s.apiKey
	}

	analysis, err := s.engine.Analyze(r.Context(), review.AnalyzeRequest{
		Code:     req.Code,
		Language: req.Language,
		APIKey:   apiKey,
	})
	switch {
	case errors.Is(err, review.ErrEmptyCode):
		writeError(w, r, http.StatusBadRequest, CodeEmptyCode, err.Error())
		return
	case errors.Is(err, review.ErrCodeTooLarge):
		writeError(w, r, http.StatusRequestEntityTooLarge, CodeTooLarge, err.Error())
		return
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, CodeAnalysisFailed, err.Error())
		return
	}

	if req.SaveHistory == nil || *req.SaveHistory {
		// The analysis is still returned when history cannot be written.
		if err := s.history.Save(r.Context(), analysis); err != nil {
			s.logger.Warn("history not saved", zap.String("request_id", requestID(r)), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, analysis)
}

// health answers the probe made by Engine.Health. It reports liveness only
// and never probes upstream, since the default endpoint is this server.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().UnixMilli(),
	})
}

// --- History ---

// historyItem adds display helpers to a stored entry.
type historyItem struct {
	history.Entry
	Preview string `json:"preview"`
	Age     string `json:"age"`
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	entries := s.history.List(r.Context())
	now := s.now()
	items := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, historyItem{
			Entry:   e,
			Preview: history.CodePreview(e.Code),
			Age:     history.FormatTimestamp(e.Timestamp, now),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":  items,
		"count":  len(items),
		"isFull": len(items) >= history.MaxEntries,
	})
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	e, ok := s.history.Get(r.Context(), id)
	if !ok {
		writeError(w, r, http.StatusNotFound, CodeNotFound, fmt.Sprintf("history item %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) deleteHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, http.StatusInternalServerError, CodeStorage, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Clear(r.Context()); err != nil {
		writeError(w, r, http.StatusInternalServerError, CodeStorage, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) exportHistory(w http.ResponseWriter, r *http.Request) {
	data, err := s.history.Export(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, CodeExportFailed, err.Error())
		return
	}
	attachment(w, "application/json", "codelens-history.json", data)
}

func (s *Server) importHistory(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeInvalidRequest, "cannot read body")
		return
	}
	if err := s.history.Import(r.Context(), data); err != nil {
		if errors.Is(err, history.ErrInvalidFormat) {
			writeError(w, r, http.StatusBadRequest, CodeInvalidFormat, err.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, CodeStorage, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": s.history.Count(r.Context())})
}

// --- Preferences ---

func (s *Server) getPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.prefs.Get(r.Context()))
}

func (s *Server) putPreferences(w http.ResponseWriter, r *http.Request) {
	p := prefs.Default()
	if err := decodeBody(w, r, &p); err != nil {
		writeError(w, r, http.StatusBadRequest, CodeInvalidRequest, "invalid JSON body")
		return
	}
	if !p.Theme.Valid() || !p.Language.Valid() {
		writeError(w, r, http.StatusBadRequest, CodeInvalidValue,
			fmt.Sprintf("%v: theme %q, language %q", prefs.ErrInvalidValue, p.Theme, p.Language))
		return
	}
	if err := s.prefs.Save(r.Context(), p); err != nil {
		writeError(w, r, http.StatusInternalServerError, CodeStorage, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) resetPreferences(w http.ResponseWriter, r *http.Request) {
	if err := s.prefs.Reset(r.Context()); err != nil {
		writeError(w, r, http.StatusInternalServerError, CodeStorage, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, prefs.Default())
}

func (s *Server) exportPreferences(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	data, err := s.prefs.Export(r.Context(), format)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	if format == prefs.FormatYAML || format == "yml" {
		attachment(w, "application/yaml", "codelens-preferences.yaml", data)
		return
	}
	attachment(w, "application/json", "codelens-preferences.json", data)
}

func (s *Server) importPreferences(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeInvalidRequest, "cannot read body")
		return
	}
	if err := s.prefs.Import(r.Context(), data); err != nil {
		if errors.Is(err, prefs.ErrInvalidFormat) {
			writeError(w, r, http.StatusBadRequest, CodeInvalidFormat, err.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, CodeStorage, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.prefs.Get(r.Context()))
}

// --- Export ---

type exportOptions struct {
	Format          string             `json:"format"`
	IncludeCode     *bool              `json:"includeCode,omitempty"`
	IncludeMetadata *bool              `json:"includeMetadata,omitempty"`
	SeverityFilter  []review.Severity  `json:"severityFilter,omitempty"`
	TypeFilter      []review.IssueType `json:"typeFilter,omitempty"`
}

type exportRequest struct {
	Analysis *review.CodeAnalysis `json:"analysis"`
	Options  exportOptions        `json:"options"`
}

var exportContentTypes = map[string]string{
	export.FormatJSON:     "application/json",
	export.FormatMarkdown: "text/markdown; charset=utf-8",
	export.FormatPDF:      "application/pdf",
	export.FormatText:     "text/plain; charset=utf-8",
}

func (s *Server) exportAnalysis(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeBody(w, r, &req); err != nil || req.Analysis == nil {
		writeError(w, r, http.StatusBadRequest, CodeInvalidRequest, "body must contain an analysis")
		return
	}

	opts := export.DefaultOptions(req.Options.Format)
	if opts.Format == "" {
		opts.Format = export.FormatJSON
	}
	if req.Options.IncludeCode != nil {
		opts.IncludeCode = *req.Options.IncludeCode
	}
	if req.Options.IncludeMetadata != nil {
		opts.IncludeMetadata = *req.Options.IncludeMetadata
	}
	opts.SeverityFilter = req.Options.SeverityFilter
	opts.TypeFilter = req.Options.TypeFilter

	// Summary is derived from the issues, whatever the client sent.
	if sum := review.ComputeSummary(req.Analysis.Issues); sum != req.Analysis.Summary {
		req.Analysis.Summary = sum
	}

	res, err := export.Export(req.Analysis, opts, s.now())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeExportFailed, err.Error())
		return
	}
	attachment(w, exportContentTypes[res.Format], res.Filename, res.Content)
}
