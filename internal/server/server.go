package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/codelens/internal/history"
	"github.com/dshills/codelens/internal/logging"
	"github.com/dshills/codelens/internal/prefs"
	"github.com/dshills/codelens/internal/review"
)

// maxBodyBytes bounds request bodies. Code is capped at 50 KiB but JSON
// escaping can expand it several times.
const maxBodyBytes = 1 << 20

// Error codes returned in the error envelope.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeEmptyCode      = "EMPTY_CODE"
	CodeTooLarge       = "CODE_TOO_LARGE"
	CodeAnalysisFailed = "ANALYSIS_FAILED"
	CodeNotFound       = "NOT_FOUND"
	CodeInvalidFormat  = "INVALID_FORMAT"
	CodeInvalidValue   = "INVALID_VALUE"
	CodeStorage        = "STORAGE_ERROR"
	CodeExportFailed   = "EXPORT_FAILED"
)

// Server provides the REST API handlers.
type Server struct {
	engine  *review.Engine
	history *history.Store
	prefs   *prefs.Store
	apiKey  string
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a new API server. apiKey is the credential used when a review
// request does not carry its own; empty means heuristic analysis.
func New(engine *review.Engine, hist *history.Store, p *prefs.Store, apiKey string, logger *zap.Logger) *Server {
	return &Server{
		engine:  engine,
		history: hist,
		prefs:   p,
		apiKey:  apiKey,
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/review", s.analyze)
	mux.HandleFunc("GET /api/review/health", s.health)

	mux.HandleFunc("GET /api/history", s.listHistory)
	mux.HandleFunc("DELETE /api/history", s.clearHistory)
	mux.HandleFunc("GET /api/history/export", s.exportHistory)
	mux.HandleFunc("POST /api/history/import", s.importHistory)
	mux.HandleFunc("GET /api/history/{id}", s.getHistory)
	mux.HandleFunc("DELETE /api/history/{id}", s.deleteHistory)

	mux.HandleFunc("GET /api/preferences", s.getPreferences)
	mux.HandleFunc("PUT /api/preferences", s.putPreferences)
	mux.HandleFunc("POST /api/preferences/reset", s.resetPreferences)
	mux.HandleFunc("GET /api/preferences/export", s.exportPreferences)
	mux.HandleFunc("POST /api/preferences/import", s.importPreferences)

	mux.HandleFunc("POST /api/export", s.exportAnalysis)

	return corsMiddleware(s.requestMiddleware(mux))
}

// ListenAndServe serves the API on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, X-API-Key")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type requestIDKey struct{}

// requestID returns the id assigned by requestMiddleware.
func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestMiddleware tags each request with an id and logs it on completion.
func (s *Server) requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = review.RequestID()
		}
		w.Header().Set("X-Request-ID", id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// errorBody is the envelope returned for every failed request.
type errorBody struct {
	Status    string `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, errorBody{
		Status:    "error",
		Code:      code,
		Message:   msg,
		RequestID: requestID(r),
	})
}

// decodeBody decodes a bounded JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// attachment writes a downloadable body.
func attachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
