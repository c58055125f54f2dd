package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const defaultDashScopeURL = "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"

// DashScope implements the Reviewer interface for Alibaba Cloud's DashScope
// text generation service (Qwen models).
type DashScope struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewDashScope creates a new DashScope provider.
func NewDashScope(s Settings) (*DashScope, error) {
	if s.APIKey == "" {
		return nil, &authError{message: "DashScope API key is not set"}
	}
	baseURL := s.BaseURL
	if baseURL == "" {
		baseURL = defaultDashScopeURL
	}
	return &DashScope{
		apiKey:  s.APIKey,
		model:   modelOr(s.Model, DefaultDashScopeModel),
		baseURL: baseURL,
		client:  httpClient(s),
	}, nil
}

func (d *DashScope) Name() string  { return "dashscope" }
func (d *DashScope) Model() string { return d.model }

func (d *DashScope) Review(ctx context.Context, req ReviewRequest) (ReviewResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2000
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = 0.7
	}

	body := dashscopeRequest{
		Model: d.model,
		Input: dashscopeInput{Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		}},
		Parameters: dashscopeParameters{
			ResultFormat: "message",
			Temperature:  temperature,
			MaxTokens:    maxTokens,
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return ReviewResponse{}, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL, bytes.NewReader(payload))
	if err != nil {
		return ReviewResponse{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+d.apiKey)

	httpResp, err := d.client.Do(httpReq)
	if err != nil {
		return ReviewResponse{}, fmt.Errorf("sending request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return ReviewResponse{}, fmt.Errorf("reading response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return ReviewResponse{}, statusError(httpResp.StatusCode, respBody)
	}

	var result dashscopeResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return ReviewResponse{}, fmt.Errorf("parsing response: %w", err)
	}
	if result.Code != "" {
		if result.Code == "InvalidApiKey" {
			return ReviewResponse{}, &authError{message: result.Message}
		}
		return ReviewResponse{}, &APIError{StatusCode: httpResp.StatusCode, Code: result.Code, Message: result.Message}
	}

	content := result.Output.Text
	if len(result.Output.Choices) > 0 && result.Output.Choices[0].Message.Content != "" {
		content = result.Output.Choices[0].Message.Content
	}
	if content == "" {
		return ReviewResponse{}, ErrEmptyContent
	}

	return ReviewResponse{
		Content:    content,
		TokensUsed: result.Usage.TotalTokens,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type dashscopeRequest struct {
	Model      string              `json:"model"`
	Input      dashscopeInput      `json:"input"`
	Parameters dashscopeParameters `json:"parameters"`
}

type dashscopeInput struct {
	Messages []chatMessage `json:"messages"`
}

type dashscopeParameters struct {
	ResultFormat string  `json:"result_format"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
}

type dashscopeResponse struct {
	Output    dashscopeOutput `json:"output"`
	Usage     dashscopeUsage  `json:"usage"`
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
}

type dashscopeOutput struct {
	Text    string            `json:"text"`
	Choices []dashscopeChoice `json:"choices"`
}

type dashscopeChoice struct {
	Message chatMessage `json:"message"`
}

type dashscopeUsage struct {
	TotalTokens int `json:"total_tokens"`
}
