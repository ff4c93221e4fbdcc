// Package chromedp drives the travel portal through a headless Chrome
// instance. One browser process is shared across the run; every account gets
// its own isolated tab context.
package chromedp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chromedp/chromedp"

	"github.com/lmoreno/railguard/internal/ports"
)

// Options configures the shared browser process.
type Options struct {
	Headless  bool
	UserAgent string
}

// Browser owns the Chrome exec allocator. It is created once at startup and
// shut down by the release function returned from New.
type Browser struct {
	allocCtx context.Context
	log      *slog.Logger
}

var _ ports.Browser = (*Browser)(nil)

// New starts the Chrome allocator. The returned release function tears down
// the browser process and every tab created from it.
func New(ctx context.Context, opts Options, log *slog.Logger) (*Browser, func(), error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	return &Browser{allocCtx: allocCtx, log: log}, cancel, nil
}

// NewPage opens a fresh tab context with its own cookie jar and storage. The
// release function closes the tab; session state not persisted elsewhere is
// gone with it.
func (b *Browser) NewPage(_ context.Context) (ports.BrowserPage, func(), error) {
	tabCtx, cancel := chromedp.NewContext(b.allocCtx)

	// Force the browser process to start now so a broken Chrome install
	// surfaces here instead of on the first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("start browser tab: %w", err)
	}

	return &Page{tab: tabCtx, log: b.log}, cancel, nil
}
