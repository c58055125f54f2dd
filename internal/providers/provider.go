package providers

import (
	"context"
	"fmt"
	"net/http"
)

// ReviewRequest contains the data sent to a language model for review.
type ReviewRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// ReviewResponse contains the raw text produced by the model.
type ReviewResponse struct {
	Content    string
	TokensUsed int
}

// Reviewer is the provider abstraction interface.
type Reviewer interface {
	Review(ctx context.Context, req ReviewRequest) (ReviewResponse, error)
	Name() string
	Model() string
}

// Settings configures a provider. BaseURL and HTTPClient are optional; an
// empty BaseURL selects the provider's public endpoint.
type Settings struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// Default models per provider.
const (
	DefaultDashScopeModel = "qwen-turbo"
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-haiku-4-5-20251001"
	DefaultGeminiModel    = "gemini-2.0-flash"
	DefaultOllamaModel    = "qwen2.5-coder:latest"
)

// New creates a provider by name.
func New(provider string, s Settings) (Reviewer, error) {
	switch provider {
	case "dashscope", "qwen", "":
		return NewDashScope(s)
	case "openai":
		return NewOpenAI(s)
	case "anthropic":
		return NewAnthropic(s)
	case "gemini", "google":
		return NewGemini(s)
	case "ollama", "lmstudio":
		return NewOllama(s)
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

// Names lists the supported provider names.
func Names() []string {
	return []string{"dashscope", "openai", "anthropic", "gemini", "ollama"}
}

func httpClient(s Settings) *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	// No adapter-level timeout; callers bound the call with their context.
	return &http.Client{}
}

func modelOr(model, fallback string) string {
	if model == "" {
		return fallback
	}
	return model
}
