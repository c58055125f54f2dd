package review

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// MaxCodeBytes is the largest accepted source size in UTF-8 bytes.
const MaxCodeBytes = 50 * 1024

var (
	// ErrCodeTooLarge is returned when the code exceeds MaxCodeBytes.
	ErrCodeTooLarge = errors.New("code size exceeds 50KB limit")
	// ErrEmptyCode is returned when the code is empty or only whitespace.
	ErrEmptyCode = errors.New("code cannot be empty")
)

// AnalyzeRequest is one analysis job.
type AnalyzeRequest struct {
	Code     string
	Language string
	APIKey   string
}

// Options configures an Engine.
type Options struct {
	// UseMock forces heuristic detection even when a credential is supplied.
	UseMock bool
	// SimulatedLatency delays heuristic results.
	SimulatedLatency time.Duration
	// ServiceEndpoint is the base URL probed by Health.
	ServiceEndpoint string
	// RedactSecrets rewrites secret literals before code is sent to a provider.
	RedactSecrets bool
	// NewReviewer builds the remote provider. Nil disables remote analysis.
	NewReviewer ReviewerFactory
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Engine validates requests, routes them to heuristic or remote analysis and
// assembles the CodeAnalysis.
type Engine struct {
	opts     Options
	ids      *IDGenerator
	detector *Detector
	remote   *RemoteAdapter
	logger   *zap.Logger
	client   *http.Client
	now      func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	ids := NewIDGenerator()
	detector := NewDetector(ids)
	e := &Engine{
		opts:     opts,
		ids:      ids,
		detector: detector,
		logger:   logger,
		client:   client,
		now:      time.Now,
	}
	if opts.NewReviewer != nil {
		e.remote = NewRemoteAdapter(opts.NewReviewer, detector, ids, opts.RedactSecrets, logger)
	}
	return e
}

// Analyze runs one analysis. Validation failures return ErrCodeTooLarge or
// ErrEmptyCode; the only other error is context cancellation while waiting
// out the simulated latency.
func (e *Engine) Analyze(ctx context.Context, req AnalyzeRequest) (*CodeAnalysis, error) {
	if len(req.Code) > MaxCodeBytes {
		return nil, ErrCodeTooLarge
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, ErrEmptyCode
	}

	requestID := RequestID()
	start := e.now()

	var (
		issues []Issue
		model  string
	)
	if e.opts.UseMock || req.APIKey == "" || e.remote == nil {
		if err := e.wait(ctx); err != nil {
			return nil, err
		}
		issues, model = e.detector.Detect(req.Code, req.Language), HeuristicModel
	} else {
		issues, model = e.remote.Analyze(ctx, req.Code, req.Language, req.APIKey)
	}

	analysis := &CodeAnalysis{
		ID:       requestID,
		Code:     req.Code,
		Language: req.Language,
		Issues:   issues,
		Metadata: Metadata{
			Timestamp:      start.UnixMilli(),
			ProcessingTime: e.now().Sub(start).Milliseconds(),
			AIModel:        model,
			CacheHit:       false,
		},
		Summary: ComputeSummary(issues),
	}

	e.logger.Info("analysis complete",
		zap.String("request_id", requestID),
		zap.String("language", req.Language),
		zap.String("model", model),
		zap.Int("issues", len(issues)),
		zap.Int64("processing_ms", analysis.Metadata.ProcessingTime),
	)
	return analysis, nil
}

func (e *Engine) wait(ctx context.Context) error {
	if e.opts.SimulatedLatency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(e.opts.SimulatedLatency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Health reports whether the analysis service is reachable. In mock mode it is
// always available.
func (e *Engine) Health(ctx context.Context) bool {
	if e.opts.UseMock {
		return true
	}
	if e.opts.ServiceEndpoint == "" {
		return false
	}
	url := strings.TrimRight(e.opts.ServiceEndpoint, "/") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Debug("health check failed", zap.String("url", url), zap.Error(err))
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
