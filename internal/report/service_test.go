package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sleep-diagnosis/internal/knowledge"
)

// Fonts under testdata are generated by testdata/gen_fonts.py. cjk.ttf maps
// ASCII, CJK punctuation and the unified ideographs; latin.ttf maps ASCII
// only; cjk.ttc holds both faces, cjk first.
const (
	cjkFont   = "testdata/cjk.ttf"
	latinFont = "testdata/latin.ttf"
	cjkTTC    = "testdata/cjk.ttc"
)

func sampleReport() Report {
	return Report{
		Username:    "alice",
		GeneratedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Symptoms:    []string{"入睡困难", "日间疲劳"},
		Diagnoses: []knowledge.DisorderRecord{
			knowledge.NewRecord("失眠症", "描述", "标准", "建议", "入睡困难"),
		},
	}
}

func latinReport() Report {
	return Report{
		Username:    "bob",
		GeneratedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Symptoms:    []string{"snoring"},
	}
}

func assertPDF(t *testing.T, pdf []byte) {
	t.Helper()
	require.Greater(t, len(pdf), 4)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestRender_ChineseWithCJKFont(t *testing.T) {
	pdf, err := NewService([]string{cjkFont}, zap.NewNop()).Render(sampleReport())
	require.NoError(t, err)
	assertPDF(t, pdf)
}

func TestRender_FontCollection(t *testing.T) {
	pdf, err := NewService([]string{cjkTTC}, zap.NewNop()).Render(sampleReport())
	require.NoError(t, err)
	assertPDF(t, pdf)
}

func TestRender_MissingGlyphsRejected(t *testing.T) {
	_, err := NewService([]string{latinFont}, zap.NewNop()).Render(sampleReport())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFontUnavailable)
	assert.ErrorIs(t, err, ErrMissingGlyphs)
	assert.Contains(t, err.Error(), "失")
}

func TestRender_FallsThroughToCoveringFont(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.ttf")
	svc := NewService([]string{missing, latinFont, cjkFont}, zap.NewNop())

	pdf, err := svc.Render(sampleReport())
	require.NoError(t, err)
	assertPDF(t, pdf)
}

func TestRender_LatinFontForLatinOnlyText(t *testing.T) {
	// the report headings are bilingual, so even an English report needs CJK
	_, err := NewService([]string{latinFont}, zap.NewNop()).Render(latinReport())
	assert.ErrorIs(t, err, ErrMissingGlyphs)

	pdf, err := NewService([]string{cjkFont}, zap.NewNop()).Render(latinReport())
	require.NoError(t, err)
	assertPDF(t, pdf)
}

func TestRender_BundledKnowledgeBase(t *testing.T) {
	kb, err := knowledge.Load("../../data/sleep_knowledge_graph.json")
	require.NoError(t, err)

	rep := Report{
		Username:  "alice",
		Symptoms:  kb.Vocabulary(),
		Diagnoses: kb.Records(),
	}
	pdf, err := NewService([]string{cjkFont}, zap.NewNop()).Render(rep)
	require.NoError(t, err)
	assertPDF(t, pdf)
}

func TestRender_NoFont(t *testing.T) {
	dir := t.TempDir()
	svc := NewService([]string{filepath.Join(dir, "missing.ttf")}, zap.NewNop())

	_, err := svc.Render(sampleReport())
	assert.ErrorIs(t, err, ErrFontUnavailable)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRender_InvalidFontFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.ttf")
	require.NoError(t, os.WriteFile(path, []byte("not a font"), 0o600))

	_, err := NewService([]string{path}, zap.NewNop()).Render(sampleReport())
	assert.ErrorIs(t, err, ErrFontUnavailable)
	assert.ErrorIs(t, err, ErrUnsupportedFont)
}

func TestNewService_DefaultPaths(t *testing.T) {
	svc := NewService(nil, zap.NewNop())
	assert.Equal(t, DefaultFontPaths, svc.fontPaths)
	for _, p := range DefaultFontPaths {
		ext := filepath.Ext(p)
		assert.Contains(t, []string{".ttf", ".ttc"}, ext, p)
	}
}
