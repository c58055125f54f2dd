package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGemini_Review(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.0-flash:generateContent") {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "[]"}]}}],
			"usageMetadata": {"totalTokenCount": 30}
		}`))
	}))
	defer server.Close()

	g, err := NewGemini(Settings{APIKey: "test-key", BaseURL: server.URL, HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("NewGemini: %v", err)
	}

	resp, err := g.Review(context.Background(), ReviewRequest{SystemPrompt: "s", UserPrompt: "u"})
	if err != nil {
		t.Fatalf("Review error: %v", err)
	}
	if resp.Content != "[]" {
		t.Errorf("Content = %q, want %q", resp.Content, "[]")
	}
	if resp.TokensUsed != 30 {
		t.Errorf("TokensUsed = %d, want 30", resp.TokensUsed)
	}
}

func TestGemini_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(500)
		w.Write([]byte(`{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`))
	}))
	defer server.Close()

	g, err := NewGemini(Settings{APIKey: "k", BaseURL: server.URL, HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("NewGemini: %v", err)
	}
	if _, err := g.Review(context.Background(), ReviewRequest{UserPrompt: "u"}); err == nil {
		t.Error("expected error")
	}
}
