package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dshills/codelens/internal/providers"
	"github.com/dshills/codelens/internal/storage"
)

// EnvPrefix is prepended to every environment override, e.g. CODELENS_PROVIDER.
const EnvPrefix = "CODELENS"

// Config represents the codelens configuration.
type Config struct {
	Provider string         `mapstructure:"provider" yaml:"provider"`
	// Model is empty for the provider's default model.
	Model    string         `mapstructure:"model" yaml:"model,omitempty"`
	API      APIConfig      `mapstructure:"api" yaml:"api"`
	Service  ServiceConfig  `mapstructure:"service" yaml:"service"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Privacy  PrivacyConfig  `mapstructure:"privacy" yaml:"privacy"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Review   ReviewConfig   `mapstructure:"review" yaml:"review"`
}

// APIConfig holds the model credential. An empty key selects heuristic
// analysis.
type APIConfig struct {
	Key     string `mapstructure:"key" yaml:"key,omitempty"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
}

// ServiceConfig points at a running codelens API for health checks.
type ServiceConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

// AnalysisConfig controls routing between heuristic and remote analysis.
type AnalysisConfig struct {
	UseMock          bool          `mapstructure:"use_mock" yaml:"use_mock"`
	SimulatedLatency time.Duration `mapstructure:"simulated_latency" yaml:"simulated_latency"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver     string `mapstructure:"driver" yaml:"driver"`
	Path       string `mapstructure:"path" yaml:"path,omitempty"`
	QuotaBytes int64  `mapstructure:"quota_bytes" yaml:"quota_bytes"`
}

// PrivacyConfig controls privacy/redaction behavior.
type PrivacyConfig struct {
	RedactSecrets bool `mapstructure:"redact_secrets" yaml:"redact_secrets"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// ServerConfig configures `codelens serve`.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// ReviewConfig holds CLI review defaults.
type ReviewConfig struct {
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"`
	FailOn      string `mapstructure:"fail_on" yaml:"fail_on"`
	Format      string `mapstructure:"format" yaml:"format"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Provider: "dashscope",
		Service: ServiceConfig{
			Endpoint: "http://localhost:8080/api/review",
		},
		Storage: StorageConfig{
			Driver: storage.DriverSQLite,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		Server: ServerConfig{
			Addr: "localhost:8080",
		},
		Review: ReviewConfig{
			Concurrency: 4,
			FailOn:      "none",
			Format:      "text",
		},
	}
}

// Keys lists every settable key in display order.
var Keys = []string{
	"provider",
	"model",
	"api.key",
	"api.base_url",
	"service.endpoint",
	"analysis.use_mock",
	"analysis.simulated_latency",
	"storage.driver",
	"storage.path",
	"storage.quota_bytes",
	"privacy.redact_secrets",
	"log.level",
	"log.format",
	"server.addr",
	"review.concurrency",
	"review.fail_on",
	"review.format",
}

// EnvVar returns the environment variable that overrides key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// ConfigDir returns the platform-appropriate config directory for codelens.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "codelens"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "codelens"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "codelens"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "codelens"), nil
	default:
		return filepath.Join(home, ".config", "codelens"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// An empty path uses ConfigPath; a missing default file is not an error, a
// missing explicit one is. The overrides map comes from CLI flags and only
// non-empty values are applied.
func Load(path string, overrides map[string]string) (Config, error) {
	v := newViper()

	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		if explicit || !missing {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	for key, value := range overrides {
		if value == "" {
			continue
		}
		if !slices.Contains(Keys, key) {
			return Config{}, fmt.Errorf("unknown config key: %s", key)
		}
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads the file at path over the defaults. Environment variables
// are not consulted, so the result is suitable for editing and saving back.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// newViper returns a viper instance carrying the defaults and env bindings.
func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Provider-native variable names are accepted for the credential.
	_ = v.BindEnv("api.key", EnvVar("api.key"), "DASHSCOPE_API_KEY")
	return v
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("provider", d.Provider)
	v.SetDefault("model", d.Model)
	v.SetDefault("api.key", "")
	v.SetDefault("api.base_url", "")
	v.SetDefault("service.endpoint", d.Service.Endpoint)
	v.SetDefault("analysis.use_mock", d.Analysis.UseMock)
	v.SetDefault("analysis.simulated_latency", d.Analysis.SimulatedLatency)
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.quota_bytes", d.Storage.QuotaBytes)
	v.SetDefault("privacy.redact_secrets", d.Privacy.RedactSecrets)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("review.concurrency", d.Review.Concurrency)
	v.SetDefault("review.fail_on", d.Review.FailOn)
	v.SetDefault("review.format", d.Review.Format)
}

// Validate checks enumerated and numeric fields.
func (c Config) Validate() error {
	if !slices.Contains(providers.Names(), strings.ToLower(c.Provider)) &&
		!slices.Contains([]string{"qwen", "google", "lmstudio"}, strings.ToLower(c.Provider)) {
		return fmt.Errorf("unknown provider %q (available: %s)", c.Provider, strings.Join(providers.Names(), ", "))
	}
	switch c.Storage.Driver {
	case storage.DriverSQLite, storage.DriverDir, storage.DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.QuotaBytes < 0 {
		return fmt.Errorf("storage.quota_bytes must not be negative")
	}
	if c.Analysis.SimulatedLatency < 0 {
		return fmt.Errorf("analysis.simulated_latency must not be negative")
	}
	if c.Review.Concurrency < 1 {
		return fmt.Errorf("review.concurrency must be at least 1")
	}
	return nil
}

// Save writes the config as YAML to path, or to ConfigPath when path is empty.
func Save(path string, cfg Config) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	// The file may hold an API key.
	return os.WriteFile(path, data, 0o600)
}

// Field returns the string form of a single config field.
func Field(cfg Config, key string) (string, error) {
	switch key {
	case "provider":
		return cfg.Provider, nil
	case "model":
		return cfg.Model, nil
	case "api.key":
		return cfg.API.Key, nil
	case "api.base_url":
		return cfg.API.BaseURL, nil
	case "service.endpoint":
		return cfg.Service.Endpoint, nil
	case "analysis.use_mock":
		return strconv.FormatBool(cfg.Analysis.UseMock), nil
	case "analysis.simulated_latency":
		return cfg.Analysis.SimulatedLatency.String(), nil
	case "storage.driver":
		return cfg.Storage.Driver, nil
	case "storage.path":
		return cfg.Storage.Path, nil
	case "storage.quota_bytes":
		return strconv.FormatInt(cfg.Storage.QuotaBytes, 10), nil
	case "privacy.redact_secrets":
		return strconv.FormatBool(cfg.Privacy.RedactSecrets), nil
	case "log.level":
		return cfg.Log.Level, nil
	case "log.format":
		return cfg.Log.Format, nil
	case "server.addr":
		return cfg.Server.Addr, nil
	case "review.concurrency":
		return strconv.Itoa(cfg.Review.Concurrency), nil
	case "review.fail_on":
		return cfg.Review.FailOn, nil
	case "review.format":
		return cfg.Review.Format, nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "provider":
		cfg.Provider = value
	case "model":
		cfg.Model = value
	case "api.key":
		cfg.API.Key = value
	case "api.base_url":
		cfg.API.BaseURL = value
	case "service.endpoint":
		cfg.Service.Endpoint = value
	case "analysis.use_mock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("analysis.use_mock must be a boolean: %w", err)
		}
		cfg.Analysis.UseMock = b
	case "analysis.simulated_latency":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("analysis.simulated_latency must be a duration: %w", err)
		}
		cfg.Analysis.SimulatedLatency = d
	case "storage.driver":
		cfg.Storage.Driver = value
	case "storage.path":
		cfg.Storage.Path = value
	case "storage.quota_bytes":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("storage.quota_bytes must be an integer: %w", err)
		}
		cfg.Storage.QuotaBytes = n
	case "privacy.redact_secrets":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("privacy.redact_secrets must be a boolean: %w", err)
		}
		cfg.Privacy.RedactSecrets = b
	case "log.level":
		cfg.Log.Level = value
	case "log.format":
		cfg.Log.Format = value
	case "server.addr":
		cfg.Server.Addr = value
	case "review.concurrency":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("review.concurrency must be an integer: %w", err)
		}
		cfg.Review.Concurrency = n
	case "review.fail_on":
		cfg.Review.FailOn = value
	case "review.format":
		cfg.Review.Format = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
