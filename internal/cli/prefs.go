package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/codelens/internal/prefs"
	"github.com/dshills/codelens/internal/review"
)

var flagPrefsFormat string

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), nil, func(a *app) error {
			return showPrefs(cmd.Context(), a.prefs)
		})
	},
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), nil, func(a *app) error {
			return showPrefs(cmd.Context(), a.prefs)
		})
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a preference",
	Long: `Set a preference. Keys:

  theme                    light, dark, auto
  language                 en, zh-CN
  ui-language              en, zh-CN
  editor.fontSize          integer
  editor.tabSize           integer
  editor.wordWrap          true/false
  editor.minimap           true/false
  analysis.autoAnalyze     true/false
  analysis.enabledTypes    comma-separated issue types
  analysis.severityFilter  comma-separated severities`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), nil, func(a *app) error {
			if err := setPreference(cmd.Context(), a.prefs, args[0], args[1]); err != nil {
				if errors.Is(err, prefs.ErrInvalidValue) || errors.Is(err, errUnknownPreference) {
					exitCode = ExitUsageError
				}
				return err
			}
			ui.Success("Set %s = %s", args[0], args[1])
			return nil
		})
	},
}

var prefsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore default preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), nil, func(a *app) error {
			if err := a.prefs.Reset(cmd.Context()); err != nil {
				return err
			}
			ui.Success("Preferences reset to defaults")
			return nil
		})
	},
}

var prefsExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write preferences to a file or stdout",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), nil, func(a *app) error {
			data, err := a.prefs.Export(cmd.Context(), flagPrefsFormat)
			if err != nil {
				exitCode = ExitUsageError
				return err
			}
			if len(args) == 0 {
				_, err := ui.Out.Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(args[0], data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", args[0], err)
			}
			ui.Success("Preferences exported to %s", args[0])
			return nil
		})
	},
}

var prefsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace preferences from a JSON or YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			exitCode = ExitUsageError
			return err
		}
		return withApp(cmd.Context(), nil, func(a *app) error {
			if err := a.prefs.Import(cmd.Context(), data); err != nil {
				if errors.Is(err, prefs.ErrInvalidFormat) {
					exitCode = ExitUsageError
				}
				return err
			}
			ui.Success("Preferences imported from %s", args[0])
			return nil
		})
	},
}

func init() {
	prefsExportCmd.Flags().StringVar(&flagPrefsFormat, "format", prefs.FormatJSON, "Export format (json, yaml)")
	prefsCmd.AddCommand(prefsShowCmd)
	prefsCmd.AddCommand(prefsSetCmd)
	prefsCmd.AddCommand(prefsResetCmd)
	prefsCmd.AddCommand(prefsExportCmd)
	prefsCmd.AddCommand(prefsImportCmd)
}

func showPrefs(ctx context.Context, s *prefs.Store) error {
	view := struct {
		prefs.Preferences `yaml:",inline"`
		UILanguage        prefs.Language `yaml:"uiLanguage"`
	}{s.Get(ctx), s.UILanguage(ctx)}
	data, err := yaml.Marshal(view)
	if err != nil {
		return err
	}
	_, err = ui.Out.Write(data)
	return err
}

var errUnknownPreference = errors.New("unknown preference key")

// setPreference applies one key/value change.
func setPreference(ctx context.Context, s *prefs.Store, key, value string) error {
	switch key {
	case "theme":
		return s.SetTheme(ctx, prefs.Theme(value))
	case "language":
		return s.SetLanguage(ctx, prefs.Language(value))
	case "ui-language":
		return s.SetUILanguage(ctx, prefs.Language(value))
	case "editor.fontSize", "editor.tabSize":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: %s must be a positive integer", prefs.ErrInvalidValue, key)
		}
		return s.UpdateEditor(ctx, func(e *prefs.Editor) {
			if key == "editor.fontSize" {
				e.FontSize = n
			} else {
				e.TabSize = n
			}
		})
	case "editor.wordWrap", "editor.minimap", "analysis.autoAnalyze":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", prefs.ErrInvalidValue, key)
		}
		switch key {
		case "editor.wordWrap":
			return s.UpdateEditor(ctx, func(e *prefs.Editor) { e.WordWrap = b })
		case "editor.minimap":
			return s.UpdateEditor(ctx, func(e *prefs.Editor) { e.Minimap = b })
		default:
			return s.UpdateAnalysis(ctx, func(a *prefs.Analysis) { a.AutoAnalyze = b })
		}
	case "analysis.enabledTypes":
		types, err := parseTypes(value)
		if err != nil {
			return fmt.Errorf("%w: %v", prefs.ErrInvalidValue, err)
		}
		if types == nil {
			types = []review.IssueType{}
		}
		return s.UpdateAnalysis(ctx, func(a *prefs.Analysis) { a.EnabledTypes = types })
	case "analysis.severityFilter":
		sevs, err := parseSeverities(value)
		if err != nil {
			return fmt.Errorf("%w: %v", prefs.ErrInvalidValue, err)
		}
		if sevs == nil {
			sevs = []review.Severity{}
		}
		return s.UpdateAnalysis(ctx, func(a *prefs.Analysis) { a.SeverityFilter = sevs })
	default:
		return fmt.Errorf("%w: %s", errUnknownPreference, key)
	}
}
