package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dshills/codelens/internal/export"
	"github.com/dshills/codelens/internal/history"
	"github.com/dshills/codelens/internal/logging"
	"github.com/dshills/codelens/internal/review"
)

// Server exposes analysis, history and export as MCP tools.
type Server struct {
	engine  *review.Engine
	history *history.Store
	apiKey  string
	version string
	logger  *zap.Logger
	now     func() time.Time
}

// NewServer creates the MCP server wrapper. apiKey may be empty, in which
// case analyses use the heuristic detector.
func NewServer(engine *review.Engine, hist *history.Store, apiKey, version string, logger *zap.Logger) *Server {
	return &Server{
		engine:  engine,
		history: hist,
		apiKey:  apiKey,
		version: version,
		logger:  logging.OrNop(logger),
		now:     time.Now,
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("codelens", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.analyzeTool())
	srv.AddTool(s.historyTool())
	srv.AddTool(s.exportTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.MCPServer())
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// analyze runs one analysis, mapping validation errors to tool errors.
func (s *Server) analyze(ctx context.Context, request mcp.CallToolRequest) (*review.CodeAnalysis, *mcp.CallToolResult) {
	code, err := request.RequireString("code")
	if err != nil {
		return nil, mcp.NewToolResultError("missing required parameter: code")
	}
	language, err := request.RequireString("language")
	if err != nil {
		return nil, mcp.NewToolResultError("missing required parameter: language")
	}

	a, err := s.engine.Analyze(ctx, review.AnalyzeRequest{Code: code, Language: language, APIKey: s.apiKey})
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err))
	}
	return a, nil
}

// codelens_analyze
func (s *Server) analyzeTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("codelens_analyze",
		mcp.WithDescription("Review source code for security, performance and style issues. Returns the full analysis as JSON: issues with type, severity, title, description, suggestion and line range, plus a summary."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Source code to review (max 50KB)")),
		mcp.WithString("language", mcp.Required(), mcp.Description("Language of the code, e.g. javascript, typescript, python, go")),
		mcp.WithBoolean("save_history", mcp.Description("Record the analysis in local history (default true)")),
	)
	return tool, s.handleAnalyze
}

func (s *Server) handleAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, errResult := s.analyze(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	if request.GetBool("save_history", true) {
		if err := s.history.Save(ctx, a); err != nil {
			s.logger.Warn("history not saved", zap.String("request_id", a.ID), zap.Error(err))
		}
	}
	return jsonResult(a)
}

// codelens_history
func (s *Server) historyTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("codelens_history",
		mcp.WithDescription("Inspect or manage the local review history (at most 20 entries, newest first)."),
		mcp.WithString("action",
			mcp.Description("One of list, get, delete, clear (default list)"),
			mcp.Enum("list", "get", "delete", "clear"),
		),
		mcp.WithString("id", mcp.Description("Entry id, required for get and delete")),
	)
	return tool, s.handleHistory
}

func (s *Server) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action := request.GetString("action", "list")
	id := request.GetString("id", "")

	switch action {
	case "list":
		type entryOut struct {
			ID         string                   `json:"id"`
			Language   string                   `json:"language"`
			Preview    string                   `json:"preview"`
			Age        string                   `json:"age"`
			IssueCount int                      `json:"issueCount"`
			Summary    review.SeverityBreakdown `json:"summary"`
		}
		now := s.now()
		entries := s.history.List(ctx)
		out := make([]entryOut, len(entries))
		for i, e := range entries {
			out[i] = entryOut{
				ID:         e.ID,
				Language:   e.Language,
				Preview:    history.CodePreview(e.Code),
				Age:        history.FormatTimestamp(e.Timestamp, now),
				IssueCount: e.IssueCount,
				Summary:    e.Summary,
			}
		}
		return jsonResult(out)

	case "get":
		if id == "" {
			return mcp.NewToolResultError("missing required parameter: id"), nil
		}
		e, ok := s.history.Get(ctx, id)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("history entry not found: %s", id)), nil
		}
		return jsonResult(e)

	case "delete":
		if id == "" {
			return mcp.NewToolResultError("missing required parameter: id"), nil
		}
		if err := s.history.Delete(ctx, id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to delete entry: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("deleted %s", id)), nil

	case "clear":
		if err := s.history.Clear(ctx); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to clear history: %v", err)), nil
		}
		return mcp.NewToolResultText("history cleared"), nil

	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action: %s", action)), nil
	}
}

// codelens_export
func (s *Server) exportTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("codelens_export",
		mcp.WithDescription("Review source code and render the result as a JSON, Markdown, text or PDF report. Text formats are returned inline unless out_dir is set; PDF is always written to a file and its path returned."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Source code to review (max 50KB)")),
		mcp.WithString("language", mcp.Required(), mcp.Description("Language of the code")),
		mcp.WithString("format",
			mcp.Description("Report format (default markdown)"),
			mcp.Enum(export.FormatJSON, export.FormatMarkdown, export.FormatText, export.FormatPDF),
		),
		mcp.WithBoolean("include_code", mcp.Description("Include the source in the report (default true)")),
		mcp.WithBoolean("include_metadata", mcp.Description("Include date and processing time (default true)")),
		mcp.WithArray("severity_filter",
			mcp.Description("Only report these severities: critical, high, medium, low"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithArray("type_filter",
			mcp.Description("Only report these types: security, performance, style"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("out_dir", mcp.Description("Directory to write the report to")),
	)
	return tool, s.handleExport
}

func (s *Server) handleExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := export.DefaultOptions(request.GetString("format", export.FormatMarkdown))
	if _, err := export.GetWriter(opts.Format); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	opts.IncludeCode = request.GetBool("include_code", true)
	opts.IncludeMetadata = request.GetBool("include_metadata", true)
	if sev := request.GetStringSlice("severity_filter", nil); sev != nil {
		for _, v := range sev {
			if !review.Severity(v).Valid() {
				return mcp.NewToolResultError(fmt.Sprintf("invalid severity: %s", v)), nil
			}
			opts.SeverityFilter = append(opts.SeverityFilter, review.Severity(v))
		}
	}
	if types := request.GetStringSlice("type_filter", nil); types != nil {
		for _, v := range types {
			if !review.IssueType(v).Valid() {
				return mcp.NewToolResultError(fmt.Sprintf("invalid type: %s", v)), nil
			}
			opts.TypeFilter = append(opts.TypeFilter, review.IssueType(v))
		}
	}

	a, errResult := s.analyze(ctx, request)
	if errResult != nil {
		return errResult, nil
	}

	res, err := export.Export(a, opts, s.now())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("export failed: %v", err)), nil
	}

	outDir := request.GetString("out_dir", "")
	if outDir == "" && res.Format != export.FormatPDF {
		return mcp.NewToolResultText(string(res.Content)), nil
	}
	if outDir == "" {
		outDir = os.TempDir()
	}
	path, err := export.WriteResult(res, outDir)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return mcp.NewToolResultError(fmt.Sprintf("cannot write to %s", outDir)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to write report: %v", err)), nil
	}
	return jsonResult(map[string]any{"path": path, "filename": res.Filename, "size": res.Size})
}
