package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/codelens/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage codelens configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configFilePath()
		if err != nil {
			return err
		}

		if _, err := os.Stat(path); err == nil {
			ui.Warning("Config file already exists at %s", path)
			return nil
		}

		if err := config.Save(path, config.Default()); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		ui.Success("Config file created at %s", path)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configFilePath()
		if err != nil {
			return err
		}
		if err := setConfigValue(path, args[0], args[1]); err != nil {
			exitCode = ExitUsageError
			return err
		}
		ui.Success("Set %s = %s", args[0], displayValue(args[0], args[1]))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			exitCode = ExitUsageError
			return err
		}
		path, _ := configFilePath()
		if _, err := os.Stat(path); err == nil {
			ui.Info("Config file: %s", path)
		} else {
			ui.Info("Config file: (none)")
		}
		printConfig(cfg)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
}

func configFilePath() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	return config.ConfigPath()
}

// setConfigValue updates one key in the file at path, leaving env and flag
// overrides out of the saved result.
func setConfigValue(path, key, value string) error {
	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		fileCfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		cfg = fileCfg
	}
	if err := config.SetField(&cfg, key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return config.Save(path, cfg)
}

func displayValue(key, value string) string {
	if key == "api.key" && value != "" {
		return "********"
	}
	return value
}

func printConfig(cfg config.Config) {
	table := ui.Table([]string{"Key", "Value", "Env"})
	for _, key := range config.Keys {
		val, _ := config.Field(cfg, key)
		_ = table.Append([]string{key, displayValue(key, val), faint(config.EnvVar(key))})
	}
	_ = table.Render()
}
