package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/dshills/codelens/internal/review"
	"github.com/dshills/codelens/internal/storage"
)

// Key is the storage key holding the history list.
const Key = "codereview_history"

// MaxEntries is the most entries kept. Older entries are evicted on write.
const MaxEntries = 20

// ErrInvalidFormat is returned by Import when the data is not a JSON array of
// entries.
var ErrInvalidFormat = errors.New("invalid history format")

// Entry is a compact record of one analysis.
type Entry struct {
	ID         string                   `json:"id"`
	Code       string                   `json:"code"`
	Language   string                   `json:"language"`
	Timestamp  int64                    `json:"timestamp"`
	IssueCount int                      `json:"issueCount"`
	Summary    review.SeverityBreakdown `json:"summary"`
}

// FromAnalysis projects an analysis into a history entry.
func FromAnalysis(a *review.CodeAnalysis) Entry {
	return Entry{
		ID:         a.ID,
		Code:       a.Code,
		Language:   a.Language,
		Timestamp:  a.Metadata.Timestamp,
		IssueCount: a.Summary.TotalIssues,
		Summary:    a.Summary.SeverityBreakdown,
	}
}

// Store keeps the most recent analyses in a storage backend.
type Store struct {
	backend storage.Backend
	logger  *zap.Logger
}

// New creates a Store. A nil logger discards output.
func New(backend storage.Backend, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{backend: backend, logger: logger}
}

// List returns all entries, most recent first. Unreadable or corrupt data is
// logged and treated as an empty history.
func (s *Store) List(ctx context.Context) []Entry {
	raw, ok, err := s.backend.Get(ctx, Key)
	if err != nil {
		s.logger.Error("failed to load history", zap.Error(err))
		return []Entry{}
	}
	if !ok || raw == "" {
		return []Entry{}
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.logger.Error("failed to load history", zap.Error(err))
		return []Entry{}
	}
	if entries == nil {
		return []Entry{}
	}
	sortByTime(entries)
	return entries
}

// Get returns the entry with id.
func (s *Store) Get(ctx context.Context, id string) (Entry, bool) {
	for _, e := range s.List(ctx) {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Save records an analysis.
func (s *Store) Save(ctx context.Context, a *review.CodeAnalysis) error {
	return s.Put(ctx, FromAnalysis(a))
}

// Put inserts or replaces an entry and places it first. When the backend is
// out of space the history is cut to half its capacity and the write is tried
// once more.
func (s *Store) Put(ctx context.Context, e Entry) error {
	err := s.put(ctx, e)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrQuotaExceeded) {
		s.logger.Error("failed to save to history", zap.String("id", e.ID), zap.Error(err))
		return err
	}

	s.logger.Warn("history storage full, evicting older entries", zap.String("id", e.ID))
	reduced := s.List(ctx)
	if len(reduced) > MaxEntries/2 {
		reduced = reduced[:MaxEntries/2]
	}
	if err := s.write(ctx, reduced); err != nil {
		s.logger.Error("failed to save even after clearing space", zap.String("id", e.ID), zap.Error(err))
		return err
	}
	if err := s.put(ctx, e); err != nil {
		s.logger.Error("failed to save even after clearing space", zap.String("id", e.ID), zap.Error(err))
		return err
	}
	return nil
}

func (s *Store) put(ctx context.Context, e Entry) error {
	entries := s.List(ctx)
	updated := make([]Entry, 0, len(entries)+1)
	updated = append(updated, e)
	for _, existing := range entries {
		if existing.ID != e.ID {
			updated = append(updated, existing)
		}
	}
	if len(updated) > MaxEntries {
		updated = updated[:MaxEntries]
	}
	return s.write(ctx, updated)
}

// Delete removes the entry with id. Deleting a missing id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	entries := s.List(ctx)
	kept := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if err := s.write(ctx, kept); err != nil {
		s.logger.Error("failed to delete history item", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// Clear removes all history.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.Remove(ctx, Key); err != nil {
		s.logger.Error("failed to clear history", zap.Error(err))
		return err
	}
	return nil
}

// Count returns the number of entries.
func (s *Store) Count(ctx context.Context) int {
	return len(s.List(ctx))
}

// IsFull reports whether the history is at capacity.
func (s *Store) IsFull(ctx context.Context) bool {
	return s.Count(ctx) >= MaxEntries
}

// Export returns the history as indented JSON, most recent first.
func (s *Store) Export(ctx context.Context) ([]byte, error) {
	return json.MarshalIndent(s.List(ctx), "", "  ")
}

// Import merges a previously exported history. Imported entries win over
// existing ones with the same id. Nothing changes when data is not a JSON
// array of entries.
func (s *Store) Import(ctx context.Context, data []byte) error {
	var imported []Entry
	if err := json.Unmarshal(data, &imported); err != nil || imported == nil {
		s.logger.Warn("failed to import history", zap.Error(err))
		return ErrInvalidFormat
	}

	merged := append(imported, s.List(ctx)...)
	seen := make(map[string]bool, len(merged))
	unique := make([]Entry, 0, len(merged))
	for _, e := range merged {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		unique = append(unique, e)
	}
	sortByTime(unique)
	if len(unique) > MaxEntries {
		unique = unique[:MaxEntries]
	}
	if err := s.write(ctx, unique); err != nil {
		s.logger.Error("failed to import history", zap.Error(err))
		return err
	}
	return nil
}

func (s *Store) write(ctx context.Context, entries []Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}
	return s.backend.Set(ctx, Key, string(data))
}

func sortByTime(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})
}
