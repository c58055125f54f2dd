package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"go.uber.org/zap"

	"github.com/dshills/codelens/internal/export"
	"github.com/dshills/codelens/internal/review"
)

// Review flags
var (
	flagLang        string
	flagAPIKey      string
	flagProvider    string
	flagModel       string
	flagFormat      string
	flagOut         string
	flagPretty      bool
	flagNoHistory   bool
	flagSeverity    string
	flagType        string
	flagNoCode      bool
	flagNoMetadata  bool
	flagFailOn      string
	flagConcurrency int
	flagMock        bool
	flagRedact      bool
)

var reviewCmd = &cobra.Command{
	Use:   "review [files...]",
	Short: "Review source files or stdin",
	Long: `Review one or more source files. With no files, or "-", the code is read from stdin.

The language is taken from --lang or guessed from each file's extension. Files
are analyzed concurrently (see --concurrency) and reported in argument order.`,
	Example: `  codelens review app.js
  cat main.ts | codelens review --lang typescript
  codelens review --format markdown --pretty src/*.js
  codelens review --format pdf --out reports/ handler.js
  codelens review --fail-on high --severity critical,high *.py`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := reviewExportOptions()
		if err != nil {
			exitCode = ExitUsageError
			return err
		}

		inputs, err := readInputs(args, os.Stdin)
		if err != nil {
			exitCode = ExitUsageError
			return err
		}

		return withApp(cmd.Context(), reviewOverrides(), func(a *app) error {
			apiKey := a.cfg.API.Key
			if flagAPIKey != "" {
				apiKey = flagAPIKey
			}
			results, err := analyzeAll(cmd.Context(), a, inputs, apiKey)
			if err != nil {
				return err
			}
			if err := writeResults(a, results, opts); err != nil {
				return err
			}
			if exceedsThreshold(results, a.cfg.Review.FailOn) {
				exitCode = ExitFindings
			}
			return nil
		})
	},
}

func init() {
	f := reviewCmd.Flags()
	f.StringVarP(&flagLang, "lang", "l", "", "Language of the code (default: guessed from the file extension)")
	f.StringVar(&flagAPIKey, "api-key", "", "Model API key (default: api.key from config)")
	f.StringVar(&flagProvider, "provider", "", "Model provider (dashscope, openai, anthropic, gemini, ollama)")
	f.StringVar(&flagModel, "model", "", "Model name")
	f.StringVarP(&flagFormat, "format", "f", "", "Output format (text, json, markdown, pdf)")
	f.StringVarP(&flagOut, "out", "o", "", "Write reports to this directory instead of stdout")
	f.BoolVar(&flagPretty, "pretty", false, "Render markdown output for the terminal")
	f.BoolVar(&flagNoHistory, "no-history", false, "Do not record the analysis in history")
	f.StringVar(&flagSeverity, "severity", "", "Only report these severities (comma-separated)")
	f.StringVar(&flagType, "type", "", "Only report these issue types (comma-separated)")
	f.BoolVar(&flagNoCode, "no-code", false, "Omit the source from reports")
	f.BoolVar(&flagNoMetadata, "no-metadata", false, "Omit date and processing time from reports")
	f.StringVar(&flagFailOn, "fail-on", "", "Exit 1 if any issue is at or above this severity (none, low, medium, high, critical)")
	f.IntVarP(&flagConcurrency, "concurrency", "j", 0, "Maximum files analyzed at once")
	f.BoolVar(&flagMock, "mock", false, "Use the heuristic detector even when an API key is set")
	f.BoolVar(&flagRedact, "redact", false, "Redact secret literals before sending code to the model")
}

func reviewOverrides() map[string]string {
	m := make(map[string]string)
	if flagProvider != "" {
		m["provider"] = flagProvider
	}
	if flagModel != "" {
		m["model"] = flagModel
	}
	if flagFormat != "" {
		m["review.format"] = flagFormat
	}
	if flagFailOn != "" {
		m["review.fail_on"] = flagFailOn
	}
	if flagConcurrency > 0 {
		m["review.concurrency"] = strconv.Itoa(flagConcurrency)
	}
	if flagMock {
		m["analysis.use_mock"] = "true"
	}
	if flagRedact {
		m["privacy.redact_secrets"] = "true"
	}
	return m
}

// reviewExportOptions builds report options from the review flags. The format
// falls back to the config default later, in writeResults.
func reviewExportOptions() (export.Options, error) {
	opts := export.DefaultOptions(flagFormat)
	opts.IncludeCode = !flagNoCode
	opts.IncludeMetadata = !flagNoMetadata
	if opts.Format != "" {
		if _, err := export.GetWriter(opts.Format); err != nil {
			return opts, err
		}
	}
	var err error
	if opts.SeverityFilter, err = parseSeverities(flagSeverity); err != nil {
		return opts, err
	}
	if opts.TypeFilter, err = parseTypes(flagType); err != nil {
		return opts, err
	}
	if flagFailOn != "" && flagFailOn != "none" && !review.Severity(flagFailOn).Valid() {
		return opts, fmt.Errorf("invalid --fail-on %q", flagFailOn)
	}
	return opts, nil
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// parseSeverities returns nil for an empty list, meaning no filter.
func parseSeverities(s string) ([]review.Severity, error) {
	var out []review.Severity
	for _, v := range splitComma(s) {
		sev := review.Severity(strings.ToLower(v))
		if !sev.Valid() {
			return nil, fmt.Errorf("invalid severity %q (use critical, high, medium, low)", v)
		}
		out = append(out, sev)
	}
	return out, nil
}

// parseTypes returns nil for an empty list, meaning no filter.
func parseTypes(s string) ([]review.IssueType, error) {
	var out []review.IssueType
	for _, v := range splitComma(s) {
		t := review.IssueType(strings.ToLower(v))
		if !t.Valid() {
			return nil, fmt.Errorf("invalid issue type %q (use security, performance, style)", v)
		}
		out = append(out, t)
	}
	return out, nil
}

// input is one unit of code to review.
type input struct {
	Name     string
	Code     string
	Language string
}

// readInputs reads the named files, or stdin when there are none or the
// name is "-".
func readInputs(args []string, stdin io.Reader) ([]input, error) {
	if len(args) == 0 {
		args = []string{"-"}
	}
	inputs := make([]input, 0, len(args))
	for _, name := range args {
		var (
			data []byte
			err  error
		)
		if name == "-" {
			data, err = io.ReadAll(stdin)
			name = "stdin"
		} else {
			data, err = os.ReadFile(name)
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		lang := flagLang
		if lang == "" {
			lang = languageFromPath(name)
		}
		inputs = append(inputs, input{Name: name, Code: string(data), Language: lang})
	}
	return inputs, nil
}

var extLanguages = map[string]string{
	".js":    "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".jsx":   "jsx",
	".ts":    "typescript",
	".tsx":   "tsx",
	".py":    "python",
	".go":    "go",
	".java":  "java",
	".kt":    "kotlin",
	".rb":    "ruby",
	".rs":    "rust",
	".php":   "php",
	".cs":    "csharp",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".swift": "swift",
	".sh":    "bash",
	".sql":   "sql",
}

// languageFromPath guesses a language from the file extension.
func languageFromPath(path string) string {
	if lang, ok := extLanguages[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return "plaintext"
}

// result pairs an input with its analysis.
type result struct {
	Input    input
	Analysis *review.CodeAnalysis
}

// analyzeAll analyzes inputs concurrently, bounded by review.concurrency,
// and returns results in input order. Successful analyses are recorded in
// history unless --no-history is set.
func analyzeAll(ctx context.Context, a *app, inputs []input, apiKey string) ([]result, error) {
	results := make([]result, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Review.Concurrency)
	for i, in := range inputs {
		g.Go(func() error {
			analysis, err := a.engine.Analyze(gctx, review.AnalyzeRequest{
				Code:     in.Code,
				Language: in.Language,
				APIKey:   apiKey,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", in.Name, err)
			}
			results[i] = result{Input: in, Analysis: analysis}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, review.ErrEmptyCode) || errors.Is(err, review.ErrCodeTooLarge) {
			exitCode = ExitUsageError
		}
		return nil, err
	}

	if !flagNoHistory {
		for _, r := range results {
			if err := a.history.Save(ctx, r.Analysis); err != nil {
				a.logger.Warn("history not saved", zap.String("file", r.Input.Name), zap.Error(err))
			}
		}
	}
	return results, nil
}

// writeResults prints or saves every report.
func writeResults(a *app, results []result, opts export.Options) error {
	if opts.Format == "" {
		opts.Format = a.cfg.Review.Format
	}
	if opts.Format == export.FormatPDF && flagOut == "" {
		exitCode = ExitUsageError
		return errors.New("pdf output requires --out")
	}
	for i, r := range results {
		if flagOut != "" {
			res, err := export.Export(r.Analysis, opts, nowFunc())
			if err != nil {
				return err
			}
			// Several files may finish within the same millisecond.
			if len(results) > 1 {
				res.Filename = fmt.Sprintf("%s-%s", strings.TrimSuffix(filepath.Base(r.Input.Name), filepath.Ext(r.Input.Name)), res.Filename)
			}
			path, err := export.WriteResult(res, flagOut)
			if err != nil {
				return err
			}
			ui.Success("%s: %d issues → %s", r.Input.Name, r.Analysis.Summary.TotalIssues, path)
			continue
		}

		if len(results) > 1 {
			if i > 0 {
				fmt.Fprintln(ui.Out)
			}
			fmt.Fprintf(ui.Out, "%s\n", bold("== "+r.Input.Name+" =="))
		}
		if err := renderStdout(r.Analysis, opts); err != nil {
			return err
		}
	}
	return nil
}

// renderStdout writes one report to ui.Out.
func renderStdout(analysis *review.CodeAnalysis, opts export.Options) error {
	switch opts.Format {
	case export.FormatText, "":
		ui.printAnalysis(analysis, export.FilterIssues(analysis.Issues, opts))
		return nil
	case export.FormatMarkdown, "md":
		var buf bytes.Buffer
		if err := (&export.MarkdownWriter{}).Write(&buf, analysis, opts); err != nil {
			return err
		}
		if !flagPretty {
			_, err := ui.Out.Write(buf.Bytes())
			return err
		}
		rendered, err := renderMarkdown(buf.String())
		if err != nil {
			return err
		}
		_, err = io.WriteString(ui.Out, rendered)
		return err
	default:
		w, err := export.GetWriter(opts.Format)
		if err != nil {
			return err
		}
		if err := w.Write(ui.Out, analysis, opts); err != nil {
			return err
		}
		fmt.Fprintln(ui.Out)
		return nil
	}
}

// renderMarkdown styles markdown for the terminal.
func renderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	return r.Render(md)
}

// exceedsThreshold reports whether any issue meets the fail-on severity.
func exceedsThreshold(results []result, failOn string) bool {
	for _, r := range results {
		for _, is := range r.Analysis.Issues {
			if review.MeetsThreshold(is.Severity, failOn) {
				return true
			}
		}
	}
	return false
}
