package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/codelens/internal/mcp"
	"github.com/dshills/codelens/internal/server"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the JSON API used by browser front ends:

  POST   /api/review                 analyze code
  GET    /api/review/health          liveness
  GET    /api/history                list history
  DELETE /api/history                clear history
  GET    /api/history/{id}           one entry
  DELETE /api/history/{id}           delete one entry
  GET    /api/history/export         download history
  POST   /api/history/import         merge history
  GET    /api/preferences            read preferences
  PUT    /api/preferences            replace preferences
  POST   /api/preferences/reset      restore defaults
  GET    /api/preferences/export     download preferences
  POST   /api/preferences/import     replace preferences from a file
  POST   /api/export                 render a report`,
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides := map[string]string{"server.addr": flagAddr}
		return withApp(cmd.Context(), overrides, func(a *app) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(a.engine, a.history, a.prefs, a.cfg.API.Key, a.logger)
			ui.Info("Listening on http://%s", a.cfg.Server.Addr)
			return srv.ListenAndServe(ctx, a.cfg.Server.Addr)
		})
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	Long:  "Expose codelens_analyze, codelens_history and codelens_export to MCP clients over stdio.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), nil, func(a *app) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := mcp.NewServer(a.engine, a.history, a.cfg.API.Key, version, a.logger)
			err := srv.ServeStdio(ctx)
			if err != nil && ctx.Err() != nil {
				return nil
			}
			return err
		})
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the analysis service is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), nil, func(a *app) error {
			if checkHealth(cmd.Context(), a) {
				return nil
			}
			exitCode = ExitRuntimeError
			return nil
		})
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default server.addr from config)")
}

func checkHealth(ctx context.Context, a *app) bool {
	if a.engine.Health(ctx) {
		if a.cfg.Analysis.UseMock {
			ui.Success("Healthy (heuristic mode)")
		} else {
			ui.Success("Healthy: %s", a.cfg.Service.Endpoint)
		}
		return true
	}
	ui.Error("Unreachable: %s", a.cfg.Service.Endpoint)
	return false
}
