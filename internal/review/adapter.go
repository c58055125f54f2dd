package review

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/dshills/codelens/internal/providers"
	"github.com/dshills/codelens/internal/redact"
)

// ReviewerFactory builds a provider for one request's credential.
type ReviewerFactory func(apiKey string) (providers.Reviewer, error)

// ProviderFactory returns a ReviewerFactory for a named provider.
func ProviderFactory(name, model, baseURL string) ReviewerFactory {
	return func(apiKey string) (providers.Reviewer, error) {
		return providers.New(name, providers.Settings{
			APIKey:  apiKey,
			Model:   model,
			BaseURL: baseURL,
		})
	}
}

// RemoteAdapter asks a language model for issues and falls back to the
// Detector whenever the model cannot produce a usable answer. It never
// returns an error.
type RemoteAdapter struct {
	newReviewer   ReviewerFactory
	detector      *Detector
	ids           *IDGenerator
	redactSecrets bool
	logger        *zap.Logger
}

// NewRemoteAdapter creates an adapter. A nil logger discards output.
func NewRemoteAdapter(factory ReviewerFactory, detector *Detector, ids *IDGenerator, redactSecrets bool, logger *zap.Logger) *RemoteAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteAdapter{
		newReviewer:   factory,
		detector:      detector,
		ids:           ids,
		redactSecrets: redactSecrets,
		logger:        logger,
	}
}

// Analyze returns the issues for code and the id of the model that produced
// them. A fallback result carries HeuristicModel.
func (a *RemoteAdapter) Analyze(ctx context.Context, code, language, apiKey string) ([]Issue, string) {
	fallback := func(reason string, err error) ([]Issue, string) {
		a.logger.Warn("remote analysis failed, using heuristic detector",
			zap.String("reason", reason),
			zap.Error(err),
		)
		return a.detector.Detect(code, language), HeuristicModel
	}

	reviewer, err := a.newReviewer(apiKey)
	if err != nil {
		return fallback("provider", err)
	}

	promptCode := code
	if a.redactSecrets {
		var n int
		promptCode, n = redact.Secrets(promptCode)
		if n > 0 {
			a.logger.Debug("redacted secrets from prompt", zap.Int("count", n))
		}
	}

	resp, err := reviewer.Review(ctx, providers.ReviewRequest{
		SystemPrompt: SystemPrompt(),
		UserPrompt:   BuildUserPrompt(promptCode, language),
		MaxTokens:    2000,
		Temperature:  0.7,
	})
	if err != nil {
		reason := "request"
		if providers.IsAuthError(err) {
			reason = "auth"
		}
		return fallback(reason, err)
	}

	issues, err := parseIssues(resp.Content, a.ids)
	if err != nil {
		return fallback("parse", err)
	}
	if len(issues) == 0 {
		return fallback("empty", errors.New("model returned no issues"))
	}

	a.logger.Debug("remote analysis complete",
		zap.String("provider", reviewer.Name()),
		zap.String("model", reviewer.Model()),
		zap.Int("issues", len(issues)),
		zap.Int("tokens", resp.TokensUsed),
	)
	return issues, reviewer.Model()
}
