package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/codelens/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and manage review history",
	Long:  fmt.Sprintf("The history keeps the %d most recent analyses, newest first.", history.MaxEntries),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), nil, func(a *app) error {
			return listHistory(cmd.Context(), a)
		})
	},
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), nil, func(a *app) error {
			return listHistory(cmd.Context(), a)
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), nil, func(a *app) error {
			e, ok := a.history.Get(cmd.Context(), args[0])
			if !ok {
				return fmt.Errorf("history entry not found: %s", args[0])
			}
			printEntry(e)
			return nil
		})
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), nil, func(a *app) error {
			if _, ok := a.history.Get(cmd.Context(), args[0]); !ok {
				return fmt.Errorf("history entry not found: %s", args[0])
			}
			if err := a.history.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			ui.Success("Deleted %s", args[0])
			return nil
		})
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all history",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), nil, func(a *app) error {
			if err := a.history.Clear(cmd.Context()); err != nil {
				return err
			}
			ui.Success("History cleared")
			return nil
		})
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write history as JSON to a file or stdout",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), nil, func(a *app) error {
			data, err := a.history.Export(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 0 {
				_, err := fmt.Fprintln(ui.Out, string(data))
				return err
			}
			if err := os.WriteFile(args[0], data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", args[0], err)
			}
			ui.Success("Exported %d entries to %s", a.history.Count(cmd.Context()), args[0])
			return nil
		})
	},
}

var historyImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge a previously exported history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			exitCode = ExitUsageError
			return err
		}
		return withApp(cmd.Context(), nil, func(a *app) error {
			if err := a.history.Import(cmd.Context(), data); err != nil {
				if errors.Is(err, history.ErrInvalidFormat) {
					exitCode = ExitUsageError
				}
				return err
			}
			ui.Success("History now has %d entries", a.history.Count(cmd.Context()))
			return nil
		})
	},
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyImportCmd)
}

func listHistory(ctx context.Context, a *app) error {
	entries := a.history.List(ctx)
	if len(entries) == 0 {
		ui.Info("No history yet. Run 'codelens review' to create some.")
		return nil
	}
	printHistory(entries, time.Now())
	return nil
}

func printHistory(entries []history.Entry, now time.Time) {
	table := ui.Table([]string{"ID", "When", "Language", "Issues", "Crit", "High", "Med", "Low", "Code"})
	for _, e := range entries {
		_ = table.Append([]string{
			e.ID,
			history.FormatTimestamp(e.Timestamp, now),
			e.Language,
			fmt.Sprintf("%d", e.IssueCount),
			countColor(e.Summary.Critical, magenta),
			countColor(e.Summary.High, red),
			countColor(e.Summary.Medium, yellow),
			countColor(e.Summary.Low, cyan),
			history.CodePreview(e.Code),
		})
	}
	_ = table.Render()
	if len(entries) >= history.MaxEntries {
		ui.Warning("History is full; the oldest entry is dropped on the next review")
	}
}

func printEntry(e history.Entry) {
	fmt.Fprintf(ui.Out, "%s %s\n", bold("ID:"), e.ID)
	fmt.Fprintf(ui.Out, "%s %s\n", bold("Date:"), time.UnixMilli(e.Timestamp).Format("2006-01-02 15:04:05"))
	fmt.Fprintf(ui.Out, "%s %s\n", bold("Language:"), e.Language)
	fmt.Fprintf(ui.Out, "%s %d  (%s critical, %s high, %s medium, %s low)\n\n", bold("Issues:"), e.IssueCount,
		countColor(e.Summary.Critical, magenta), countColor(e.Summary.High, red),
		countColor(e.Summary.Medium, yellow), countColor(e.Summary.Low, cyan))
	fmt.Fprintln(ui.Out, e.Code)
}
