package render

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/Jasperb3/TransitReader/internal/config"
)

// Browser is a lazily launched headless Chromium shared by the screenshot
// and PDF steps. Safe for concurrent use; launch happens once.
type Browser struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

// NewBrowser prepares the wrapper without launching anything.
func NewBrowser(cfg config.BrowserConfig, logger *zap.Logger) *Browser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Browser{cfg: cfg, logger: logger}
}

func (b *Browser) connect(ctx context.Context) (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		if _, err := b.browser.Version(); err == nil {
			return b.browser, nil
		}
		b.logger.Warn("stale browser connection, relaunching")
		_ = b.browser.Close()
		b.browser = nil
	}

	launch := launcher.New().Headless(true)
	if b.cfg.BinPath != "" {
		launch = launch.Bin(b.cfg.BinPath)
	}
	controlURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}
	b.browser = browser
	return browser, nil
}

// Close shuts the browser down if it was ever launched.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.browser = nil
	return err
}

// Screenshot opens the SVG at svgPath and captures it to a PNG at double
// device scale so glyphs stay crisp in the PDF.
func (b *Browser) Screenshot(ctx context.Context, svgPath, pngPath string) error {
	browser, err := b.connect(ctx)
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(svgPath)
	if err != nil {
		return err
	}
	page, err := browser.Page(proto.TargetCreateTarget{URL: "file://" + abs})
	if err != nil {
		return fmt.Errorf("open %s: %w", svgPath, err)
	}
	defer page.Close()

	if err := page.Context(ctx).WaitLoad(); err != nil {
		return fmt.Errorf("load svg: %w", err)
	}

	scale := b.cfg.ScaleFactor
	if scale == 0 {
		scale = 2.0
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             canvasSize + 40,
		Height:            canvasSize + 40,
		DeviceScaleFactor: scale,
		Mobile:            false,
	}).Call(page); err != nil {
		return fmt.Errorf("set device metrics: %w", err)
	}

	data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(pngPath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(pngPath, data, 0o644); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	b.logger.Info("chart screenshot saved",
		zap.String("svg", svgPath), zap.String("png", pngPath))
	return nil
}

// PrintPDF opens the HTML file and prints it to PDF with print-background
// enabled so the report styling survives.
func (b *Browser) PrintPDF(ctx context.Context, htmlPath, pdfPath string) error {
	browser, err := b.connect(ctx)
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(htmlPath)
	if err != nil {
		return err
	}
	page, err := browser.Page(proto.TargetCreateTarget{URL: "file://" + abs})
	if err != nil {
		return fmt.Errorf("open %s: %w", htmlPath, err)
	}
	defer page.Close()

	if err := page.Context(ctx).WaitLoad(); err != nil {
		return fmt.Errorf("load html: %w", err)
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{PrintBackground: true})
	if err != nil {
		return fmt.Errorf("print to pdf: %w", err)
	}
	defer stream.Close()

	if err := os.MkdirAll(filepath.Dir(pdfPath), 0o755); err != nil {
		return err
	}
	out, err := os.Create(pdfPath)
	if err != nil {
		return fmt.Errorf("create pdf: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, stream); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	b.logger.Info("pdf saved", zap.String("html", htmlPath), zap.String("pdf", pdfPath))
	return nil
}
