package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codelens/internal/history"
	"github.com/dshills/codelens/internal/prefs"
	"github.com/dshills/codelens/internal/providers"
	"github.com/dshills/codelens/internal/review"
	"github.com/dshills/codelens/internal/storage"
)

const sampleCode = `var x = 1;
console.log(x);
const apiKey = "sk-1234567890";`

type testEnv struct {
	srv     *Server
	router  http.Handler
	history *history.Store
	prefs   *prefs.Store
}

func setupTestServer(t *testing.T, opts review.Options) *testEnv {
	t.Helper()
	backend := storage.NewMemory(0)
	t.Cleanup(func() { backend.Close() })

	hist := history.New(backend, nil)
	p := prefs.New(backend, nil)
	srv := New(review.NewEngine(opts), hist, p, "", nil)
	srv.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return &testEnv{srv: srv, router: srv.Router(), history: hist, prefs: p}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func analyzeBody(t *testing.T, v map[string]any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// fakeReviewer returns a fixed model reply.
type fakeReviewer struct {
	content string
	gotKey  string
}

func (f *fakeReviewer) Review(_ context.Context, _ providers.ReviewRequest) (providers.ReviewResponse, error) {
	return providers.ReviewResponse{Content: f.content}, nil
}
func (f *fakeReviewer) Name() string  { return "fake" }
func (f *fakeReviewer) Model() string { return "fake-model" }

func TestAnalyze_Heuristic(t *testing.T) {
	env := setupTestServer(t, review.Options{UseMock: true})

	w := env.do(t, "POST", "/api/review", analyzeBody(t, map[string]any{"code": sampleCode, "language": "javascript"}))
	require.Equal(t, http.StatusOK, w.Code)

	var a review.CodeAnalysis
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	assert.Equal(t, review.HeuristicModel, a.Metadata.AIModel)
	assert.Len(t, a.Issues, 3)
	assert.Equal(t, len(a.Issues), a.Summary.TotalIssues)
	assert.False(t, a.Metadata.CacheHit)

	entries := env.history.List(context.Background())
	require.Len(t, entries, 1)
	assert.Equal(t, a.ID, entries[0].ID)
}

func TestAnalyze_NoHistory(t *testing.T) {
	env := setupTestServer(t, review.Options{UseMock: true})

	w := env.do(t, "POST", "/api/review", analyzeBody(t, map[string]any{
		"code": sampleCode, "language": "javascript", "saveHistory": false,
	}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.history.Count(context.Background()))
}

func TestAnalyze_Errors(t *testing.T) {
	env := setupTestServer(t, review.Options{UseMock: true})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"empty code", analyzeBody(t, map[string]any{"code": "   \n", "language": "go"}), http.StatusBadRequest, CodeEmptyCode},
		{"too large", analyzeBody(t, map[string]any{"code": strings.Repeat("a", review.MaxCodeBytes+1), "language": "go"}), http.StatusRequestEntityTooLarge, CodeTooLarge},
		{"invalid json", `{"code":`, http.StatusBadRequest, CodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "POST", "/api/review", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)

			body := decodeError(t, w)
			assert.Equal(t, "error", body.Status)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Message)
			assert.NotEmpty(t, body.RequestID)
			assert.Equal(t, w.Header().Get("X-Request-ID"), body.RequestID)
		})
	}
	assert.Equal(t, 0, env.history.Count(context.Background()))
}

func TestAnalyze_RemoteUsesHeaderKey(t *testing.T) {
	fake := &fakeReviewer{content: "```json\n[{\"type\":\"security\",\"severity\":\"high\",\"title\":\"Remote\",\"line\":[2,2]}]\n```"}
	env := setupTestServer(t, review.Options{
		NewReviewer: func(apiKey string) (providers.Reviewer, error) {
			fake.gotKey = apiKey
			return fake, nil
		},
	})

	req := httptest.NewRequest("POST", "/api/review", strings.NewReader(analyzeBody(t, map[string]any{"code": sampleCode, "language": "javascript"})))
	req.Header.Set("X-API-Key", "sk-header")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var a review.CodeAnalysis
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	assert.Equal(t, "sk-header", fake.gotKey)
	assert.Equal(t, "fake-model", a.Metadata.AIModel)
	require.Len(t, a.Issues, 1)
	assert.Equal(t, "Remote", a.Issues[0].Title)
}

func TestHealth(t *testing.T) {
	env := setupTestServer(t, review.Options{})
	w := env.do(t, "GET", "/api/review/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestHistory_API(t *testing.T) {
	env := setupTestServer(t, review.Options{UseMock: true})
	ctx := context.Background()
	require.NoError(t, env.history.Put(ctx, history.Entry{ID: "req_a", Code: "a := 1", Language: "go", Timestamp: 1700000000000 - 30_000, IssueCount: 3}))
	require.NoError(t, env.history.Put(ctx, history.Entry{ID: "req_b", Code: "b := 2", Language: "go", Timestamp: 1700000000000 - 7_200_000, IssueCount: 1}))

	// List
	w := env.do(t, "GET", "/api/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Items []struct {
			ID      string `json:"id"`
			Preview string `json:"preview"`
			Age     string `json:"age"`
		} `json:"items"`
		Count  int  `json:"count"`
		IsFull bool `json:"isFull"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Items, 2)
	assert.Equal(t, "req_a", list.Items[0].ID)
	assert.Equal(t, "a := 1", list.Items[0].Preview)
	assert.Equal(t, "Just now", list.Items[0].Age)
	assert.Equal(t, "2 hours ago", list.Items[1].Age)
	assert.Equal(t, 2, list.Count)
	assert.False(t, list.IsFull)

	// Get
	w = env.do(t, "GET", "/api/history/req_b", "")
	require.Equal(t, http.StatusOK, w.Code)
	var e history.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	assert.Equal(t, "b := 2", e.Code)

	// Not found
	w = env.do(t, "GET", "/api/history/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, decodeError(t, w).Code)

	// Delete
	w = env.do(t, "DELETE", "/api/history/req_b", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, env.history.Count(ctx))

	// Clear
	w = env.do(t, "DELETE", "/api/history", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, env.history.Count(ctx))
}

func TestHistory_ExportImport(t *testing.T) {
	env := setupTestServer(t, review.Options{UseMock: true})
	ctx := context.Background()
	require.NoError(t, env.history.Put(ctx, history.Entry{ID: "req_a", Code: "x", Language: "go", Timestamp: 10}))

	w := env.do(t, "GET", "/api/history/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "codelens-history.json")
	exported := w.Body.String()

	require.NoError(t, env.history.Clear(ctx))
	w = env.do(t, "POST", "/api/history/import", exported)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":1}`, w.Body.String())

	w = env.do(t, "POST", "/api/history/import", `{"not":"an array"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeInvalidFormat, decodeError(t, w).Code)
	assert.Equal(t, 1, env.history.Count(ctx))
}

func TestPreferences_API(t *testing.T) {
	env := setupTestServer(t, review.Options{UseMock: true})

	w := env.do(t, "GET", "/api/preferences", "")
	require.Equal(t, http.StatusOK, w.Code)
	var p prefs.Preferences
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, prefs.Default(), p)

	// Partial body backfills defaults.
	w = env.do(t, "PUT", "/api/preferences", `{"theme":"dark","language":"zh-CN","editor":{"fontSize":16}}`)
	require.Equal(t, http.StatusOK, w.Code)
	got := env.prefs.Get(context.Background())
	assert.Equal(t, prefs.ThemeDark, got.Theme)
	assert.Equal(t, 16, got.Editor.FontSize)
	assert.Equal(t, prefs.Default().Analysis, got.Analysis)

	w = env.do(t, "PUT", "/api/preferences", `{"theme":"neon","language":"en"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeInvalidValue, decodeError(t, w).Code)
	assert.Equal(t, prefs.ThemeDark, env.prefs.Get(context.Background()).Theme)

	w = env.do(t, "POST", "/api/preferences/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, prefs.Default(), env.prefs.Get(context.Background()))
}

func TestPreferences_ExportImport(t *testing.T) {
	env := setupTestServer(t, review.Options{UseMock: true})
	require.NoError(t, env.prefs.SetTheme(context.Background(), prefs.ThemeAuto))

	w := env.do(t, "GET", "/api/preferences/export?format=yaml", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "theme: auto")

	w = env.do(t, "POST", "/api/preferences/import", "theme: dark\nlanguage: en\n")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, prefs.ThemeDark, env.prefs.Get(context.Background()).Theme)

	w = env.do(t, "POST", "/api/preferences/import", `{"editor":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeInvalidFormat, decodeError(t, w).Code)
}

func TestExport_API(t *testing.T) {
	env := setupTestServer(t, review.Options{UseMock: true})
	a, err := review.NewEngine(review.Options{UseMock: true}).Analyze(context.Background(), review.AnalyzeRequest{Code: sampleCode, Language: "javascript"})
	require.NoError(t, err)

	body := func(opts map[string]any) string {
		data, err := json.Marshal(map[string]any{"analysis": a, "options": opts})
		require.NoError(t, err)
		return string(data)
	}

	w := env.do(t, "POST", "/api/export", body(map[string]any{"format": "markdown", "includeCode": false}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="code-review-1700000000000.md"`)
	assert.Contains(t, w.Body.String(), "# Code Review Report")
	assert.NotContains(t, w.Body.String(), "## Code\n")

	w = env.do(t, "POST", "/api/export", body(map[string]any{"format": "pdf"}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF-"))

	w = env.do(t, "POST", "/api/export", body(map[string]any{"severityFilter": []string{"critical"}}))
	require.Equal(t, http.StatusOK, w.Code)
	var doc struct {
		Issues  []review.Issue `json:"issues"`
		Summary review.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	for _, is := range doc.Issues {
		assert.Equal(t, review.SeverityCritical, is.Severity)
	}
	assert.Equal(t, 3, doc.Summary.TotalIssues)

	w = env.do(t, "POST", "/api/export", body(map[string]any{"format": "docx"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeExportFailed, decodeError(t, w).Code)

	w = env.do(t, "POST", "/api/export", `{"options":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeInvalidRequest, decodeError(t, w).Code)
}

func TestExport_API_RecomputesSummary(t *testing.T) {
	env := setupTestServer(t, review.Options{UseMock: true})
	a, err := review.NewEngine(review.Options{UseMock: true}).Analyze(context.Background(), review.AnalyzeRequest{Code: sampleCode, Language: "javascript"})
	require.NoError(t, err)
	want := a.Summary
	a.Summary = review.Summary{TotalIssues: 42, SeverityBreakdown: review.SeverityBreakdown{Low: 42}}

	data, err := json.Marshal(map[string]any{"analysis": a, "options": map[string]any{"format": "json"}})
	require.NoError(t, err)
	w := env.do(t, "POST", "/api/export", string(data))
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		Issues  []review.Issue `json:"issues"`
		Summary review.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, want, doc.Summary)
	assert.Equal(t, len(a.Issues), doc.Summary.TotalIssues)
}

func TestCORSPreflight(t *testing.T) {
	env := setupTestServer(t, review.Options{})
	w := env.do(t, "OPTIONS", "/api/review", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDPassthrough(t *testing.T) {
	env := setupTestServer(t, review.Options{})
	req := httptest.NewRequest("GET", "/api/history/nope", nil)
	req.Header.Set("X-Request-ID", "req_fixed")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, "req_fixed", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "req_fixed", decodeError(t, w).RequestID)
}

func TestListenAndServe_Shutdown(t *testing.T) {
	env := setupTestServer(t, review.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.srv.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
