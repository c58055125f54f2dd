package storage

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

var plainKey = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,100}$`)

// Dir stores one file per key under a directory. Writes go through a
// temporary file and a rename so readers never see a partial value.
type Dir struct {
	mu    sync.Mutex
	dir   string
	quota int64
}

// NewDir creates a Dir backend. If dir is empty, uses DefaultDir.
func NewDir(dir string, quotaBytes int64) (*Dir, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &Dir{dir: dir, quota: quotaBytes}, nil
}

// Path returns the storage directory.
func (d *Dir) Path() string {
	return d.dir
}

func (d *Dir) Get(_ context.Context, key string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, err := os.ReadFile(d.entryPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return string(data), true, nil
}

func (d *Dir) Set(_ context.Context, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	path := d.entryPath(key)
	if d.quota > 0 {
		used, err := d.used()
		if err != nil {
			return err
		}
		var oldLen int64
		if info, err := os.Stat(path); err == nil {
			oldLen = info.Size()
		}
		if overQuota(d.quota, used, oldLen, int64(len(value))) {
			return ErrQuotaExceeded
		}
	}

	tmp, err := os.CreateTemp(d.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (d *Dir) Remove(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := os.Remove(d.entryPath(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

func (d *Dir) Usage(_ context.Context) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.used()
}

func (d *Dir) Close() error { return nil }

func (d *Dir) used() (int64, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading storage directory: %w", err)
	}
	var total int64
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

// entryPath maps a key to its file. Keys that are not safe file names are
// hashed.
func (d *Dir) entryPath(key string) string {
	name := key
	if !plainKey.MatchString(key) || key[0] == '.' {
		name = fmt.Sprintf("%x", sha256.Sum256([]byte(key)))
	}
	return filepath.Join(d.dir, name+".json")
}
