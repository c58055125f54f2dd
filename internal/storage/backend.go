package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ErrQuotaExceeded is returned by Set when the write would take the backend
// past its byte quota. Nothing is written in that case.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Backend is a small string key-value store.
type Backend interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	// Usage returns the number of value bytes currently stored.
	Usage(ctx context.Context) (int64, error)
	Close() error
}

// Drivers.
const (
	DriverSQLite = "sqlite"
	DriverDir    = "dir"
	DriverMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Driver string
	// Path is the database file for sqlite or the directory for dir. Empty
	// uses a location under DefaultDir.
	Path string
	// QuotaBytes caps total stored value bytes. Zero means unlimited.
	QuotaBytes int64
}

// Open creates the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		path := opts.Path
		if path == "" {
			dir, err := DefaultDir()
			if err != nil {
				return nil, err
			}
			path = filepath.Join(dir, "codelens.db")
		}
		s, err := NewSQLite(path, opts.QuotaBytes)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case DriverDir:
		return NewDir(opts.Path, opts.QuotaBytes)
	case DriverMemory:
		return NewMemory(opts.QuotaBytes), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", opts.Driver)
	}
}

// DefaultDir returns the per-user data directory.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
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
		return filepath.Join(home, ".local", "share", "codelens"), nil
	}
}

// overQuota reports whether replacing a value of oldLen bytes with one of
// newLen bytes pushes used past quota.
func overQuota(quota, used, oldLen, newLen int64) bool {
	return quota > 0 && used-oldLen+newLen > quota
}
