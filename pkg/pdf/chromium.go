// Package pdf rasterizes rendered certificate HTML into PDF files using a
// headless Chromium instance driven over the DevTools protocol.
package pdf

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/sepiri/certhub-api/pkg/limiter"
	"github.com/sepiri/certhub-api/pkg/storage"
)

// Chromium paper sizes are expressed in inches at 96 CSS pixels per inch.
const pixelsPerInch = 96.0

// Exporter converts HTML documents into PDF files stored on disk.
type Exporter struct {
	storage  *storage.LocalStorage
	slots    *limiter.Limiter
	logger   *zap.Logger
	width    int
	height   int
	timeout  time.Duration
	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewExporter prepares a shared browser allocator. Individual exports get
// their own short-lived tab context so a crashed render never poisons the
// next one.
func NewExporter(st *storage.LocalStorage, slots *limiter.Limiter, logger *zap.Logger, width, height int, timeout time.Duration) *Exporter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Exporter{
		storage:  st,
		slots:    slots,
		logger:   logger,
		width:    width,
		height:   height,
		timeout:  timeout,
		allocCtx: allocCtx,
		cancel:   cancel,
	}
}

// Export renders the HTML document and writes the resulting PDF under the
// given relative filename. It returns the stored filename.
func (e *Exporter) Export(ctx context.Context, html, filename string) (string, error) {
	if err := e.slots.Acquire(ctx); err != nil {
		return "", fmt.Errorf("acquire render slot: %w", err)
	}
	defer e.slots.Release()

	start := time.Now()

	tabCtx, cancelTab := chromedp.NewContext(e.allocCtx)
	defer cancelTab()
	runCtx, cancelRun := context.WithTimeout(tabCtx, e.timeout)
	defer cancelRun()

	var pdfBytes []byte
	err := chromedp.Run(runCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfBytes, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(float64(e.width) / pixelsPerInch).
				WithPaperHeight(float64(e.height) / pixelsPerInch).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return "", fmt.Errorf("render pdf: %w", err)
	}

	stored, err := e.storage.Save(filename, pdfBytes)
	if err != nil {
		return "", fmt.Errorf("store pdf: %w", err)
	}

	e.logger.Debug("pdf_exported",
		zap.String("filename", stored),
		zap.Int("bytes", len(pdfBytes)),
		zap.Duration("duration", time.Since(start)),
	)
	return stored, nil
}

// Path returns the absolute path of a stored PDF.
func (e *Exporter) Path(filename string) string {
	return e.storage.Path(filename)
}

// Remove deletes a stored PDF whose record was never persisted.
func (e *Exporter) Remove(filename string) error {
	return e.storage.Delete(filename)
}

// Close shuts down the browser allocator.
func (e *Exporter) Close() {
	e.cancel()
}
