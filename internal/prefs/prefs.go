package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dshills/codelens/internal/review"
	"github.com/dshills/codelens/internal/storage"
)

// Storage keys.
const (
	Key           = "codereview_preferences"
	UILanguageKey = "codereview_language"
)

var (
	// ErrInvalidFormat is returned by Import when the data cannot be decoded
	// or lacks a theme or language.
	ErrInvalidFormat = errors.New("invalid preferences format")
	// ErrInvalidValue is returned when a setter receives an unknown value.
	ErrInvalidValue = errors.New("invalid preference value")
)

// Theme is the UI color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark || t == ThemeAuto
}

// Language is the UI language.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageChinese Language = "zh-CN"
)

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	return l == LanguageEnglish || l == LanguageChinese
}

// Editor holds editor display settings.
type Editor struct {
	FontSize int  `json:"fontSize" yaml:"fontSize"`
	TabSize  int  `json:"tabSize" yaml:"tabSize"`
	WordWrap bool `json:"wordWrap" yaml:"wordWrap"`
	Minimap  bool `json:"minimap" yaml:"minimap"`
}

// Analysis holds analysis display settings. EnabledTypes and SeverityFilter
// select which issues are shown and exported by default.
type Analysis struct {
	AutoAnalyze    bool               `json:"autoAnalyze" yaml:"autoAnalyze"`
	EnabledTypes   []review.IssueType `json:"enabledTypes" yaml:"enabledTypes"`
	SeverityFilter []review.Severity  `json:"severityFilter" yaml:"severityFilter"`
}

// Preferences is the persisted user preference record.
type Preferences struct {
	Theme    Theme    `json:"theme" yaml:"theme"`
	Language Language `json:"language" yaml:"language"`
	Editor   Editor   `json:"editor" yaml:"editor"`
	Analysis Analysis `json:"analysis" yaml:"analysis"`
}

// Default returns the default preferences.
func Default() Preferences {
	return Preferences{
		Theme:    ThemeLight,
		Language: LanguageEnglish,
		Editor: Editor{
			FontSize: 14,
			TabSize:  2,
			WordWrap: true,
			Minimap:  true,
		},
		Analysis: Analysis{
			AutoAnalyze:    false,
			EnabledTypes:   append([]review.IssueType(nil), review.IssueTypes...),
			SeverityFilter: append([]review.Severity(nil), review.Severities...),
		},
	}
}

// Store persists preferences in a storage backend.
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

// Get returns the stored preferences merged over the defaults. Missing fields
// take their default; unreadable data yields the defaults.
func (s *Store) Get(ctx context.Context) Preferences {
	raw, ok, err := s.backend.Get(ctx, Key)
	if err != nil {
		s.logger.Error("failed to load preferences", zap.Error(err))
		return Default()
	}
	if !ok || raw == "" {
		return Default()
	}
	p := Default()
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.logger.Error("failed to load preferences", zap.Error(err))
		return Default()
	}
	return p
}

// Save overwrites the stored preferences.
func (s *Store) Save(ctx context.Context, p Preferences) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling preferences: %w", err)
	}
	if err := s.backend.Set(ctx, Key, string(data)); err != nil {
		s.logger.Error("failed to save preferences", zap.Error(err))
		return err
	}
	return nil
}

// Update applies fn to the current preferences and saves the result.
func (s *Store) Update(ctx context.Context, fn func(*Preferences)) error {
	p := s.Get(ctx)
	fn(&p)
	return s.Save(ctx, p)
}

// SetTheme stores the theme.
func (s *Store) SetTheme(ctx context.Context, t Theme) error {
	if !t.Valid() {
		return fmt.Errorf("%w: theme %q", ErrInvalidValue, t)
	}
	return s.Update(ctx, func(p *Preferences) { p.Theme = t })
}

// SetLanguage stores the preferred language.
func (s *Store) SetLanguage(ctx context.Context, l Language) error {
	if !l.Valid() {
		return fmt.Errorf("%w: language %q", ErrInvalidValue, l)
	}
	return s.Update(ctx, func(p *Preferences) { p.Language = l })
}

// UpdateEditor applies a partial change to the editor settings.
func (s *Store) UpdateEditor(ctx context.Context, fn func(*Editor)) error {
	return s.Update(ctx, func(p *Preferences) { fn(&p.Editor) })
}

// UpdateAnalysis applies a partial change to the analysis settings.
func (s *Store) UpdateAnalysis(ctx context.Context, fn func(*Analysis)) error {
	return s.Update(ctx, func(p *Preferences) { fn(&p.Analysis) })
}

// Reset restores the defaults.
func (s *Store) Reset(ctx context.Context) error {
	return s.Save(ctx, Default())
}

// Export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Export returns the current preferences as indented JSON or YAML.
func (s *Store) Export(ctx context.Context, format string) ([]byte, error) {
	p := s.Get(ctx)
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return json.MarshalIndent(p, "", "  ")
	case FormatYAML, "yml":
		return yaml.Marshal(p)
	default:
		return nil, fmt.Errorf("unknown preferences format: %s", format)
	}
}

// Import replaces the stored preferences with data, which may be JSON or
// YAML. Fields missing from data take their default. Nothing changes when the
// data cannot be decoded or has no theme or language.
func (s *Store) Import(ctx context.Context, data []byte) error {
	p, err := decode(data)
	if err != nil {
		s.logger.Warn("failed to import preferences", zap.Error(err))
		return ErrInvalidFormat
	}
	return s.Save(ctx, p)
}

type required struct {
	Theme    string `json:"theme" yaml:"theme"`
	Language string `json:"language" yaml:"language"`
}

func decode(data []byte) (Preferences, error) {
	var probe required
	p := Default()
	if err := json.Unmarshal(data, &probe); err == nil {
		if err := json.Unmarshal(data, &p); err != nil {
			return Preferences{}, err
		}
	} else {
		if yerr := yaml.Unmarshal(data, &probe); yerr != nil {
			return Preferences{}, yerr
		}
		if err := yaml.Unmarshal(data, &p); err != nil {
			return Preferences{}, err
		}
	}
	if probe.Theme == "" || probe.Language == "" {
		return Preferences{}, errors.New("theme and language are required")
	}
	return p, nil
}

// UILanguage returns the interface language selection, or "en" when unset.
func (s *Store) UILanguage(ctx context.Context) Language {
	v, ok, err := s.backend.Get(ctx, UILanguageKey)
	if err != nil {
		s.logger.Error("failed to load UI language", zap.Error(err))
		return LanguageEnglish
	}
	if !ok || v == "" {
		return LanguageEnglish
	}
	return Language(v)
}

// SetUILanguage stores the interface language selection.
func (s *Store) SetUILanguage(ctx context.Context, l Language) error {
	if !l.Valid() {
		return fmt.Errorf("%w: language %q", ErrInvalidValue, l)
	}
	return s.backend.Set(ctx, UILanguageKey, string(l))
}
