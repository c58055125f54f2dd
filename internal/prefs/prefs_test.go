package prefs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dshills/codelens/internal/review"
	"github.com/dshills/codelens/internal/storage"
)

func TestMain(m *testing.M) {
	// genai links in opencensus, whose view worker starts in init and never exits.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func newTestStore(t *testing.T) (*Store, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory(0)
	return New(mem, nil), mem
}

func TestGet_Defaults(t *testing.T) {
	s, _ := newTestStore(t)
	p := s.Get(context.Background())

	assert.Equal(t, ThemeLight, p.Theme)
	assert.Equal(t, LanguageEnglish, p.Language)
	assert.Equal(t, Editor{FontSize: 14, TabSize: 2, WordWrap: true, Minimap: true}, p.Editor)
	assert.False(t, p.Analysis.AutoAnalyze)
	assert.Equal(t, []review.IssueType{"security", "performance", "style"}, p.Analysis.EnabledTypes)
	assert.Equal(t, []review.Severity{"critical", "high", "medium", "low"}, p.Analysis.SeverityFilter)
}

func TestGet_MergesPartialRecord(t *testing.T) {
	s, mem := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, mem.Set(ctx, Key, `{"theme":"dark","editor":{"fontSize":18}}`))
	p := s.Get(ctx)

	assert.Equal(t, ThemeDark, p.Theme)
	assert.Equal(t, LanguageEnglish, p.Language)
	assert.Equal(t, 18, p.Editor.FontSize)
	assert.Equal(t, 2, p.Editor.TabSize, "missing editor field backfilled")
	assert.True(t, p.Editor.Minimap)
	assert.Len(t, p.Analysis.EnabledTypes, 3)
}

func TestGet_CorruptIsDefault(t *testing.T) {
	s, mem := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, mem.Set(ctx, Key, `{"theme":`))
	assert.Equal(t, Default(), s.Get(ctx))
}

func TestDefault_IsACopy(t *testing.T) {
	d := Default()
	d.Analysis.EnabledTypes[0] = "mutated"
	assert.Equal(t, review.TypeSecurity, Default().Analysis.EnabledTypes[0])
	assert.Equal(t, review.TypeSecurity, review.IssueTypes[0])
}

func TestSetters(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetTheme(ctx, ThemeAuto))
	require.NoError(t, s.SetLanguage(ctx, LanguageChinese))
	require.NoError(t, s.UpdateEditor(ctx, func(e *Editor) { e.TabSize = 4 }))
	require.NoError(t, s.UpdateAnalysis(ctx, func(a *Analysis) {
		a.SeverityFilter = []review.Severity{review.SeverityCritical}
	}))

	p := s.Get(ctx)
	assert.Equal(t, ThemeAuto, p.Theme)
	assert.Equal(t, LanguageChinese, p.Language)
	assert.Equal(t, 4, p.Editor.TabSize)
	assert.Equal(t, 14, p.Editor.FontSize, "partial update keeps other fields")
	assert.Equal(t, []review.Severity{review.SeverityCritical}, p.Analysis.SeverityFilter)
	assert.Len(t, p.Analysis.EnabledTypes, 3)

	assert.ErrorIs(t, s.SetTheme(ctx, "purple"), ErrInvalidValue)
	assert.ErrorIs(t, s.SetLanguage(ctx, "fr"), ErrInvalidValue)
	assert.Equal(t, ThemeAuto, s.Get(ctx).Theme)
}

func TestReset(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetTheme(ctx, ThemeDark))
	require.NoError(t, s.Reset(ctx))
	assert.Equal(t, Default(), s.Get(ctx))
}

func TestExportImport(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatYAML} {
		t.Run(format, func(t *testing.T) {
			src, _ := newTestStore(t)
			ctx := context.Background()
			require.NoError(t, src.SetTheme(ctx, ThemeDark))
			require.NoError(t, src.UpdateEditor(ctx, func(e *Editor) { e.WordWrap = false }))

			data, err := src.Export(ctx, format)
			require.NoError(t, err)

			dst, _ := newTestStore(t)
			require.NoError(t, dst.Import(ctx, data))
			assert.Equal(t, src.Get(ctx), dst.Get(ctx))
		})
	}
}

func TestImport_PartialBackfills(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Import(ctx, []byte("theme: dark\nlanguage: zh-CN\n")))
	p := s.Get(ctx)
	assert.Equal(t, ThemeDark, p.Theme)
	assert.Equal(t, LanguageChinese, p.Language)
	assert.Equal(t, Default().Editor, p.Editor)
}

func TestImport_Invalid(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SetTheme(ctx, ThemeDark))

	inputs := []string{
		`{"language":"en"}`,
		`{"theme":"dark"}`,
		`{"theme":"","language":"en"}`,
		`null`,
		`[]`,
		`not preferences`,
		`{"theme":`,
	}
	for _, in := range inputs {
		assert.ErrorIs(t, s.Import(ctx, []byte(in)), ErrInvalidFormat, "input %q", in)
	}
	assert.Equal(t, ThemeDark, s.Get(ctx).Theme, "failed import must not mutate")
}

func TestExport_UnknownFormat(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Export(context.Background(), "toml")
	assert.Error(t, err)
}

func TestUILanguage(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	assert.Equal(t, LanguageEnglish, s.UILanguage(ctx))
	require.NoError(t, s.SetUILanguage(ctx, LanguageChinese))
	assert.Equal(t, LanguageChinese, s.UILanguage(ctx))
	assert.ErrorIs(t, s.SetUILanguage(ctx, "de"), ErrInvalidValue)

	assert.Equal(t, LanguageEnglish, s.Get(ctx).Language, "UI language is stored separately")
}
