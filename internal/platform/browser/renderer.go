package browser

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/yungbote/coursemedia-backend/internal/modules/content"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

type Config struct {
	// ExecPath is the Chrome/Chromium binary; empty means chromedp's lookup.
	ExecPath  string
	NoSandbox bool
	Timeout   time.Duration
}

// Renderer drives one headless browser process and opens a tab per render.
type Renderer struct {
	log *logger.Logger
	cfg Config

	mu            sync.Mutex
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
}

func New(log *logger.Logger, cfg Config) *Renderer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Renderer{log: log.With("service", "BrowserRenderer"), cfg: cfg}
}

// FindChrome returns the first Chrome-like binary on PATH.
func FindChrome() string {
	for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable", "headless-shell"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}

func (r *Renderer) browser() (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browserCtx != nil && r.browserCtx.Err() == nil {
		return r.browserCtx, nil
	}
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("hide-scrollbars", true))
	if r.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.cfg.ExecPath))
	}
	if r.cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	r.browserCtx, r.cancelAlloc, r.cancelBrowser = browserCtx, cancelAlloc, cancelBrowser
	r.log.Info("Headless browser started", "exec_path", r.cfg.ExecPath)
	return browserCtx, nil
}

// tab opens a fresh tab bounded by both ctx and the render timeout.
func (r *Renderer) tab(ctx context.Context) (context.Context, context.CancelFunc, error) {
	b, err := r.browser()
	if err != nil {
		return nil, nil, err
	}
	tabCtx, cancelTab := chromedp.NewContext(b)
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.cfg.Timeout)
	stop := context.AfterFunc(ctx, cancelTab)
	return tabCtx, func() {
		stop()
		cancelTimeout()
		cancelTab()
	}, nil
}

func setContent(html string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
	})
}

func (r *Renderer) RenderToImage(ctx context.Context, html string, viewportWidth, viewportHeight int, outPath string) (content.Snapshot, error) {
	if viewportWidth <= 0 || viewportHeight <= 0 {
		return content.Snapshot{}, fmt.Errorf("invalid viewport %dx%d", viewportWidth, viewportHeight)
	}
	tabCtx, done, err := r.tab(ctx)
	if err != nil {
		return content.Snapshot{}, err
	}
	defer done()

	var buf []byte
	err = chromedp.Run(tabCtx,
		emulation.SetDeviceMetricsOverride(int64(viewportWidth), int64(viewportHeight), 1, false),
		chromedp.Navigate("about:blank"),
		setContent(html),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.FullScreenshot(&buf, 100),
	)
	if err != nil {
		if ctx.Err() != nil {
			return content.Snapshot{}, ctx.Err()
		}
		return content.Snapshot{}, fmt.Errorf("capture page: %w", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(buf))
	if err != nil {
		return content.Snapshot{}, fmt.Errorf("decode capture: %w", err)
	}
	if err := os.WriteFile(outPath, buf, 0o644); err != nil {
		return content.Snapshot{}, err
	}
	r.log.Debug("page captured", "width", cfg.Width, "height", cfg.Height)
	return content.Snapshot{Path: outPath, Width: cfg.Width, Height: cfg.Height}, nil
}

func (r *Renderer) RenderToPDF(ctx context.Context, html string, outPath string) error {
	tabCtx, done, err := r.tab(ctx)
	if err != nil {
		return err
	}
	defer done()

	var buf []byte
	err = chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		setContent(html),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			return err
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("print pdf: %w", err)
	}
	return os.WriteFile(outPath, buf, 0o644)
}

// Close stops the browser process.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelBrowser != nil {
		r.cancelBrowser()
		r.cancelAlloc()
		r.browserCtx, r.cancelBrowser, r.cancelAlloc = nil, nil, nil
	}
}
