package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/codelens/internal/config"
	"github.com/dshills/codelens/internal/history"
	"github.com/dshills/codelens/internal/logging"
	"github.com/dshills/codelens/internal/prefs"
	"github.com/dshills/codelens/internal/review"
	"github.com/dshills/codelens/internal/storage"
)

const version = "0.3.0"

// Exit codes.
const (
	ExitSuccess      = 0
	ExitFindings     = 1
	ExitUsageError   = 2
	ExitAuthError    = 3
	ExitRuntimeError = 4
)

// Global flags
var (
	flagConfig   string
	flagLogLevel string
	flagStorage  string
)

var (
	ui      = newUI()
	nowFunc = time.Now
)

var rootCmd = &cobra.Command{
	Use:   "codelens",
	Short: "Local code review with heuristics or a language model",
	Long: `codelens reviews source code for security, performance and style issues.

Without an API key it runs fixed heuristic rules locally. With a key it asks a
language model and falls back to the heuristics if the model cannot answer.
Analyses are kept in a bounded local history and can be exported as JSON,
Markdown, text or PDF.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(prefsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		ui.Error("%v", err)
		if exitCode == ExitSuccess {
			return ExitUsageError
		}
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default $XDG_CONFIG_HOME/codelens/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagStorage, "storage", "", "Storage driver (sqlite, dir, memory)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print codelens version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "codelens version %s\n", version)
	},
}

// loadConfig merges global flags with command-specific overrides.
func loadConfig(overrides map[string]string) (config.Config, error) {
	m := map[string]string{
		"log.level":      flagLogLevel,
		"storage.driver": flagStorage,
	}
	for k, v := range overrides {
		m[k] = v
	}
	return config.Load(flagConfig, m)
}

// app bundles the dependencies shared by commands.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	backend storage.Backend
	engine  *review.Engine
	history *history.Store
	prefs   *prefs.Store
}

// newApp opens storage and builds the analysis engine from cfg.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	backend, err := storage.Open(ctx, storage.Options{
		Driver:     cfg.Storage.Driver,
		Path:       cfg.Storage.Path,
		QuotaBytes: cfg.Storage.QuotaBytes,
	})
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	return newAppWith(cfg, backend, logger), nil
}

// newAppWith wires an app around an already opened backend.
func newAppWith(cfg config.Config, backend storage.Backend, logger *zap.Logger) *app {
	logger = logging.OrNop(logger)
	engine := review.NewEngine(review.Options{
		UseMock:          cfg.Analysis.UseMock,
		SimulatedLatency: cfg.Analysis.SimulatedLatency,
		ServiceEndpoint:  cfg.Service.Endpoint,
		RedactSecrets:    cfg.Privacy.RedactSecrets,
		NewReviewer:      review.ProviderFactory(cfg.Provider, cfg.Model, cfg.API.BaseURL),
		Logger:           logger,
	})
	return &app{
		cfg:     cfg,
		logger:  logger,
		backend: backend,
		engine:  engine,
		history: history.New(backend, logger),
		prefs:   prefs.New(backend, logger),
	}
}

// Close releases storage and flushes logs.
func (a *app) Close() error {
	_ = a.logger.Sync()
	return a.backend.Close()
}

// withApp loads config, opens the app, and runs fn. Config errors exit with
// ExitUsageError, everything else with ExitRuntimeError unless fn chose a code.
func withApp(ctx context.Context, overrides map[string]string, fn func(*app) error) error {
	cfg, err := loadConfig(overrides)
	if err != nil {
		exitCode = ExitUsageError
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		exitCode = ExitRuntimeError
		return err
	}
	defer a.Close()
	if err := fn(a); err != nil {
		if exitCode == ExitSuccess {
			exitCode = ExitRuntimeError
		}
		return err
	}
	return nil
}
