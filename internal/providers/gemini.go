package providers

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Gemini implements the Reviewer interface for Google's Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a new Gemini provider.
func NewGemini(s Settings) (*Gemini, error) {
	if s.APIKey == "" {
		return nil, &authError{message: "Gemini API key is not set"}
	}
	cfg := &genai.ClientConfig{
		APIKey:  s.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if s.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: s.BaseURL}
	}
	if s.HTTPClient != nil {
		cfg.HTTPClient = s.HTTPClient
	}
	client, err := genai.NewClient(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("creating GenAI client: %w", err)
	}
	return &Gemini{
		client: client,
		model:  modelOr(s.Model, DefaultGeminiModel),
	}, nil
}

func (g *Gemini) Name() string  { return "gemini" }
func (g *Gemini) Model() string { return g.model }

func (g *Gemini) Review(ctx context.Context, req ReviewRequest) (ReviewResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2000
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.SystemPrompt, genai.RoleUser),
		MaxOutputTokens:   int32(maxTokens),
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.UserPrompt), cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			if apiErr.Code == 401 || apiErr.Code == 403 {
				return ReviewResponse{}, &authError{message: apiErr.Message}
			}
			return ReviewResponse{}, &APIError{StatusCode: apiErr.Code, Code: apiErr.Status, Message: apiErr.Message}
		}
		return ReviewResponse{}, fmt.Errorf("gemini API call: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return ReviewResponse{}, ErrEmptyContent
	}

	var tokens int
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return ReviewResponse{Content: text, TokensUsed: tokens}, nil
}
