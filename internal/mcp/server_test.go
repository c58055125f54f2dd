package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codelens/internal/history"
	"github.com/dshills/codelens/internal/review"
	"github.com/dshills/codelens/internal/storage"
)

const sampleCode = `var total = 0;
for (let i = 0; i < 10; i++) {
  total += i;
}
console.log(total);`

func newTestServer(t *testing.T) (*Server, *history.Store) {
	t.Helper()
	backend := storage.NewMemory(0)
	hist := history.New(backend, nil)
	srv := NewServer(review.NewEngine(review.Options{UseMock: true}), hist, "", "test", nil)
	srv.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return srv, hist
}

func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

func resultJSON(t *testing.T, result *mcpgo.CallToolResult, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), target))
}

func TestNewServer(t *testing.T) {
	srv, _ := newTestServer(t)
	require.NotNil(t, srv.MCPServer())
}

func TestHandleAnalyze(t *testing.T) {
	srv, hist := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleAnalyze(ctx, callToolReq("codelens_analyze", map[string]any{
		"code": sampleCode, "language": "javascript",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var a review.CodeAnalysis
	resultJSON(t, result, &a)
	assert.Equal(t, review.HeuristicModel, a.Metadata.AIModel)
	assert.Equal(t, len(a.Issues), a.Summary.TotalIssues)
	assert.GreaterOrEqual(t, len(a.Issues), 3)
	assert.Equal(t, 1, hist.Count(ctx))
}

func TestHandleAnalyze_NoHistory(t *testing.T) {
	srv, hist := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleAnalyze(ctx, callToolReq("codelens_analyze", map[string]any{
		"code": sampleCode, "language": "javascript", "save_history": false,
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, 0, hist.Count(ctx))
}

func TestHandleAnalyze_Errors(t *testing.T) {
	srv, _ := newTestServer(t)
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing code", map[string]any{"language": "go"}, "code"},
		{"missing language", map[string]any{"code": "x := 1"}, "language"},
		{"empty code", map[string]any{"code": "  ", "language": "go"}, "empty"},
		{"too large", map[string]any{"code": strings.Repeat("x", review.MaxCodeBytes+1), "language": "go"}, "50KB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := srv.handleAnalyze(context.Background(), callToolReq("codelens_analyze", tt.args))
			require.NoError(t, err, "handler should not return Go error; should wrap in result")
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}

func TestHandleHistory(t *testing.T) {
	srv, hist := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, hist.Put(ctx, history.Entry{ID: "req_1", Code: "print('hi')", Language: "python", Timestamp: 1700000000000 - 10_000, IssueCount: 3}))
	require.NoError(t, hist.Put(ctx, history.Entry{ID: "req_2", Code: "fmt.Println()", Language: "go", Timestamp: 1700000000000 - 20_000, IssueCount: 1}))

	result, err := srv.handleHistory(ctx, callToolReq("codelens_history", nil))
	require.NoError(t, err)
	var list []map[string]any
	resultJSON(t, result, &list)
	require.Len(t, list, 2)
	assert.Equal(t, "req_1", list[0]["id"])
	assert.Equal(t, "Just now", list[0]["age"])
	assert.Equal(t, "print('hi')", list[0]["preview"])

	result, err = srv.handleHistory(ctx, callToolReq("codelens_history", map[string]any{"action": "get", "id": "req_2"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "fmt.Println()")

	result, err = srv.handleHistory(ctx, callToolReq("codelens_history", map[string]any{"action": "get", "id": "nope"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = srv.handleHistory(ctx, callToolReq("codelens_history", map[string]any{"action": "get"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = srv.handleHistory(ctx, callToolReq("codelens_history", map[string]any{"action": "delete", "id": "req_2"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, 1, hist.Count(ctx))

	result, err = srv.handleHistory(ctx, callToolReq("codelens_history", map[string]any{"action": "clear"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, 0, hist.Count(ctx))

	result, err = srv.handleHistory(ctx, callToolReq("codelens_history", map[string]any{"action": "purge"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleExport_Inline(t *testing.T) {
	srv, hist := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleExport(ctx, callToolReq("codelens_export", map[string]any{
		"code":            sampleCode,
		"language":        "javascript",
		"format":          "markdown",
		"include_code":    false,
		"severity_filter": []any{"medium"},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	text := resultText(t, result)
	assert.Contains(t, text, "# Code Review Report")
	assert.Contains(t, text, "**Severity:** medium")
	assert.NotContains(t, text, "**Severity:** low")
	assert.NotContains(t, text, "## Code\n")
	assert.Equal(t, 0, hist.Count(ctx), "export does not record history")
}

func TestHandleExport_PDFWritesFile(t *testing.T) {
	srv, _ := newTestServer(t)
	dir := t.TempDir()

	result, err := srv.handleExport(context.Background(), callToolReq("codelens_export", map[string]any{
		"code": sampleCode, "language": "javascript", "format": "pdf", "out_dir": dir,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var out struct {
		Path     string `json:"path"`
		Filename string `json:"filename"`
		Size     int    `json:"size"`
	}
	resultJSON(t, result, &out)
	assert.Equal(t, filepath.Join(dir, "code-review-1700000000000.pdf"), out.Path)

	data, err := os.ReadFile(out.Path)
	require.NoError(t, err)
	assert.Equal(t, out.Size, len(data))
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
}

func TestHandleExport_InvalidOptions(t *testing.T) {
	srv, _ := newTestServer(t)
	tests := []struct {
		name string
		args map[string]any
	}{
		{"format", map[string]any{"code": sampleCode, "language": "js", "format": "docx"}},
		{"severity", map[string]any{"code": sampleCode, "language": "js", "severity_filter": []any{"urgent"}}},
		{"type", map[string]any{"code": sampleCode, "language": "js", "type_filter": []any{"naming"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := srv.handleExport(context.Background(), callToolReq("codelens_export", tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
		})
	}
}
