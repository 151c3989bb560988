package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runTime = time.Date(2025, 4, 18, 20, 58, 23, 0, time.UTC)

func TestLayoutPaths(t *testing.T) {
	l := NewLayout("outputs", runTime)
	assert.Equal(t, filepath.Join("outputs", "2025-04-18"), l.Dir())
	assert.Equal(t, filepath.Join("outputs", "2025-04-18", "charts"), l.ChartsDir())
	assert.Equal(t,
		filepath.Join("outputs", "2025-04-18", "Ada_Lovelace_2025-04-18_20-58-23.md"),
		l.ReportPath("Ada Lovelace", runTime))
}

func TestLayoutEnsure(t *testing.T) {
	l := NewLayout(t.TempDir(), runTime)
	require.NoError(t, l.Ensure())

	info, err := os.Stat(l.ChartsDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestAssemble(t *testing.T) {
	draft := "# Report\n\nIntro.\n\n[transit_chart]\n\nBody."

	got := Assemble(draft, "charts/wheel.png", "## Appendix A\n\nTables.")
	assert.NotContains(t, got, ChartPlaceholder)
	assert.Contains(t, got, "![Transit Chart](charts/wheel.png)")
	assert.Contains(t, got, "\n\n---\n\n## Appendix A")
	assert.True(t, strings.HasSuffix(got, "Tables."))
}

func TestAssembleWithoutAppendices(t *testing.T) {
	draft := "# Report\n\n[transit_chart]"
	got := Assemble(draft, "wheel.png", "")
	assert.Equal(t, "# Report\n\n![Transit Chart](wheel.png)", got)
	assert.NotContains(t, got, "---")
}

func TestAssembleWithoutImage(t *testing.T) {
	draft := "# Report\n\n[transit_chart]"
	got := Assemble(draft, "", "appendix")
	// Placeholder survives when no image was rendered.
	assert.Contains(t, got, ChartPlaceholder)
	assert.Contains(t, got, "\n\n---\n\nappendix")
}

func TestHTML(t *testing.T) {
	page, err := HTML("# Reading\n\nSaturn is **busy**.\n\n| a | b |\n|---|---|\n| 1 | 2 |")
	require.NoError(t, err)

	out := string(page)
	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, "<h1>Reading</h1>")
	assert.Contains(t, out, "<strong>busy</strong>")
	// GFM tables render.
	assert.Contains(t, out, "<table>")
	// Styling is inlined.
	assert.Contains(t, out, "font-family: Georgia")
}

// fakePrinter copies the HTML it is handed into the PDF slot so the test can
// see what would have been printed.
type fakePrinter struct {
	htmlSeen string
}

func (f *fakePrinter) PrintPDF(ctx context.Context, htmlPath, pdfPath string) error {
	data, err := os.ReadFile(htmlPath)
	if err != nil {
		return err
	}
	f.htmlSeen = string(data)
	return os.WriteFile(pdfPath, []byte("%PDF"), 0o644)
}

func TestToPDF(t *testing.T) {
	dir := t.TempDir()
	mdPath := filepath.Join(dir, "report.md")
	require.NoError(t, os.WriteFile(mdPath, []byte("# Final Reading"), 0o644))

	printer := &fakePrinter{}
	pdfPath, err := ToPDF(context.Background(), printer, mdPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report.pdf"), pdfPath)
	assert.Contains(t, printer.htmlSeen, "<h1>Final Reading</h1>")

	_, err = os.Stat(pdfPath)
	assert.NoError(t, err)

	// The HTML intermediate is cleaned up.
	_, err = os.Stat(filepath.Join(dir, "report.html"))
	assert.True(t, os.IsNotExist(err))
}

func TestSaveMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2025-04-18", "report.md")
	require.NoError(t, SaveMarkdown(path, "# Hello"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Hello", string(data))
}
