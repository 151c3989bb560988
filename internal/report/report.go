// Package report assembles the final markdown document, renders it to HTML
// and PDF, and lays out the dated output directories.
package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "embed"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

// PDFPrinter prints a local HTML file to PDF.
type PDFPrinter interface {
	PrintPDF(ctx context.Context, htmlPath, pdfPath string) error
}

// ChartPlaceholder marks where the wheel image goes in the drafted report.
const ChartPlaceholder = "[transit_chart]"

//go:embed styles.css
var reportCSS string

// Layout resolves the dated directory structure for one run's outputs.
type Layout struct {
	base string
	day  string
}

// NewLayout roots the layout at outputsDir for the run date.
func NewLayout(outputsDir string, at time.Time) Layout {
	return Layout{base: outputsDir, day: at.Format("2006-01-02")}
}

// Dir is the dated output directory for this run.
func (l Layout) Dir() string {
	return filepath.Join(l.base, l.day)
}

// ChartsDir holds the rendered chart images.
func (l Layout) ChartsDir() string {
	return filepath.Join(l.Dir(), "charts")
}

// Ensure creates the run directories.
func (l Layout) Ensure() error {
	if err := os.MkdirAll(l.ChartsDir(), 0o755); err != nil {
		return fmt.Errorf("create output dirs: %w", err)
	}
	return nil
}

// ReportPath names the markdown file for a subject and run time, e.g.
// outputs/2025-04-18/Ada_Lovelace_2025-04-18_20-58-23.md.
func (l Layout) ReportPath(subjectName string, at time.Time) string {
	name := strings.ReplaceAll(subjectName, " ", "_")
	stamp := at.Format("2006-01-02_15-04-05")
	return filepath.Join(l.Dir(), fmt.Sprintf("%s_%s.md", name, stamp))
}

// Assemble produces the final markdown: the chart placeholder becomes an
// image reference, and appendices, when present, follow a rule break at the
// end. A draft missing the placeholder is left as-is apart from appendices.
func Assemble(draft, chartImagePath, appendices string) string {
	out := draft
	if chartImagePath != "" {
		image := fmt.Sprintf("![Transit Chart](%s)", chartImagePath)
		out = strings.ReplaceAll(out, ChartPlaceholder, image)
	}
	if appendices != "" {
		out = out + "\n\n---\n\n" + appendices
	}
	return out
}

// SaveMarkdown writes the assembled report.
func SaveMarkdown(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// HTML converts report markdown into a standalone styled page.
func HTML(markdown string) ([]byte, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
	)
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<style>\n")
	page.WriteString(reportCSS)
	page.WriteString("\n</style>\n</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("\n</body>\n</html>\n")
	return page.Bytes(), nil
}

// ToPDF renders mdPath to a PDF beside it, going through an HTML
// intermediate that the browser prints. Returns the PDF path.
func ToPDF(ctx context.Context, printer PDFPrinter, mdPath string) (string, error) {
	content, err := os.ReadFile(mdPath)
	if err != nil {
		return "", fmt.Errorf("read report: %w", err)
	}

	page, err := HTML(string(content))
	if err != nil {
		return "", err
	}

	htmlPath := strings.TrimSuffix(mdPath, ".md") + ".html"
	if err := os.WriteFile(htmlPath, page, 0o644); err != nil {
		return "", fmt.Errorf("write html: %w", err)
	}
	defer os.Remove(htmlPath)

	pdfPath := strings.TrimSuffix(mdPath, ".md") + ".pdf"
	if err := printer.PrintPDF(ctx, htmlPath, pdfPath); err != nil {
		return "", err
	}
	return pdfPath, nil
}
