package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/JexSrs/go-ollama"
)

const defaultOllamaURL = "http://localhost:11434"

// Ollama implements the Reviewer interface for a local Ollama server. No API
// key is required.
type Ollama struct {
	client *ollama.Ollama
	model  string
}

// NewOllama creates a new Ollama provider.
func NewOllama(s Settings) (*Ollama, error) {
	host := s.BaseURL
	if host == "" {
		host = defaultOllamaURL
	}
	host = strings.TrimRight(host, "/")
	host = strings.TrimSuffix(host, "/api")

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL %q: %w", host, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid Ollama URL %q: scheme and host required", host)
	}

	return &Ollama{
		client: ollama.New(*u),
		model:  modelOr(s.Model, DefaultOllamaModel),
	}, nil
}

func (o *Ollama) Name() string  { return "ollama" }
func (o *Ollama) Model() string { return o.model }

// Review sends a single non-streaming generate call. The client library has no
// context support, so cancellation abandons the call rather than aborting it.
func (o *Ollama) Review(ctx context.Context, req ReviewRequest) (ReviewResponse, error) {
	if err := ctx.Err(); err != nil {
		return ReviewResponse{}, err
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		res, err := o.client.Generate(
			o.client.Generate.WithModel(o.model),
			o.client.Generate.WithSystem(req.SystemPrompt),
			o.client.Generate.WithPrompt(req.UserPrompt),
		)
		if err != nil {
			done <- result{err: fmt.Errorf("ollama generate: %w", err)}
			return
		}
		if !res.Done {
			done <- result{err: fmt.Errorf("ollama generate: response not complete")}
			return
		}
		done <- result{text: res.Response}
	}()

	select {
	case <-ctx.Done():
		return ReviewResponse{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return ReviewResponse{}, r.err
		}
		if strings.TrimSpace(r.text) == "" {
			return ReviewResponse{}, ErrEmptyContent
		}
		return ReviewResponse{Content: r.text}, nil
	}
}
