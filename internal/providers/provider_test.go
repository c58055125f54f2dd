package providers

import "testing"

func TestNew(t *testing.T) {
	tests := []struct {
		provider string
		settings Settings
		wantName string
		wantErr  bool
	}{
		{"dashscope", Settings{APIKey: "k"}, "dashscope", false},
		{"", Settings{APIKey: "k"}, "dashscope", false},
		{"openai", Settings{APIKey: "k"}, "openai", false},
		{"anthropic", Settings{APIKey: "k"}, "anthropic", false},
		{"gemini", Settings{APIKey: "k"}, "gemini", false},
		{"google", Settings{APIKey: "k"}, "gemini", false},
		{"ollama", Settings{}, "ollama", false},
		{"openai", Settings{}, "", true},
		{"unknown", Settings{APIKey: "k"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.provider+"/"+tt.wantName, func(t *testing.T) {
			r, err := New(tt.provider, tt.settings)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q) err = %v, wantErr %v", tt.provider, err, tt.wantErr)
			}
			if err == nil && r.Name() != tt.wantName {
				t.Errorf("Name = %q, want %q", r.Name(), tt.wantName)
			}
		})
	}
}

func TestNew_ModelOverride(t *testing.T) {
	r, err := New("dashscope", Settings{APIKey: "k", Model: "qwen-max"})
	if err != nil {
		t.Fatal(err)
	}
	if r.Model() != "qwen-max" {
		t.Errorf("Model = %q, want qwen-max", r.Model())
	}
}

func TestAPIError_Message(t *testing.T) {
	err := &APIError{StatusCode: 200, Code: "Throttling", Message: "slow down"}
	want := "API error Throttling (status 200): slow down"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
