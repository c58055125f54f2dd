package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/codelens/internal/export"
	"github.com/dshills/codelens/internal/review"
)

var exportCmd = &cobra.Command{
	Use:   "export <analysis.json>",
	Short: "Render a saved analysis as a report",
	Long: `Render a full analysis, as returned by POST /api/review or the codelens_analyze
tool, as a JSON, Markdown, text or PDF report. Use "-" to read from stdin.

Reports are written to --out (default: the current directory).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagFormat == "" {
			flagFormat = export.FormatMarkdown
		}
		opts, err := reviewExportOptions()
		if err != nil {
			exitCode = ExitUsageError
			return err
		}
		a, err := readAnalysis(args[0], os.Stdin)
		if err != nil {
			exitCode = ExitUsageError
			return err
		}
		path, err := exportAnalysis(a, opts, flagOut)
		if err != nil {
			exitCode = ExitRuntimeError
			return err
		}
		ui.Success("Report written to %s", path)
		return nil
	},
}

func init() {
	f := exportCmd.Flags()
	f.StringVarP(&flagFormat, "format", "f", "", "Report format (json, markdown, text, pdf; default markdown)")
	f.StringVarP(&flagOut, "out", "o", "", "Directory to write the report to")
	f.StringVar(&flagSeverity, "severity", "", "Only report these severities (comma-separated)")
	f.StringVar(&flagType, "type", "", "Only report these issue types (comma-separated)")
	f.BoolVar(&flagNoCode, "no-code", false, "Omit the source from the report")
	f.BoolVar(&flagNoMetadata, "no-metadata", false, "Omit date and processing time from the report")
}

// readAnalysis decodes a CodeAnalysis from a file or stdin.
func readAnalysis(name string, stdin io.Reader) (*review.CodeAnalysis, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	var a review.CodeAnalysis
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parsing analysis: %w", err)
	}
	if a.Code == "" && len(a.Issues) == 0 {
		return nil, fmt.Errorf("%s does not contain an analysis", name)
	}
	// Older files may lack a summary.
	if sum := review.ComputeSummary(a.Issues); sum != a.Summary {
		a.Summary = sum
	}
	return &a, nil
}

// exportAnalysis renders a and writes it under dir.
func exportAnalysis(a *review.CodeAnalysis, opts export.Options, dir string) (string, error) {
	res, err := export.Export(a, opts, nowFunc())
	if err != nil {
		return "", err
	}
	return export.WriteResult(res, dir)
}
