// Package render is the headless-browser capability used for sources that
// build their content client-side.
package render

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/couchcryptid/fire-watch-service/internal/domain"
)

// Chrome renders pages in a fresh headless Chrome tab per call.
type Chrome struct {
	timeout   time.Duration
	userAgent string
	settle    time.Duration
	waitFor   string
	logger    *slog.Logger
}

// Option customizes a Chrome renderer.
type Option func(*Chrome)

// WithWaitSelector waits for sel to be visible instead of body before
// reading the DOM.
func WithWaitSelector(sel string) Option {
	return func(c *Chrome) { c.waitFor = sel }
}

// WithSettle sleeps for d after the wait selector appears so late client-side
// rendering can finish.
func WithSettle(d time.Duration) Option {
	return func(c *Chrome) { c.settle = d }
}

// NewChrome creates a renderer. Each Render call launches and tears down its
// own browser process.
func NewChrome(timeout time.Duration, userAgent string, logger *slog.Logger, opts ...Option) *Chrome {
	c := &Chrome{
		timeout:   timeout,
		userAgent: userAgent,
		settle:    2 * time.Second,
		waitFor:   "body",
		logger:    logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Render navigates to url and returns the rendered outer HTML of the document.
// Failures are *domain.RenderError.
func (c *Chrome) Render(ctx context.Context, url string) (string, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(c.userAgent),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.DisableGPU,
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		c.logger.Debug("chromedp", "msg", format, "args", args)
	}))
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, c.timeout)
	defer cancelTimeout()

	start := time.Now()
	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitVisible(c.waitFor, chromedp.ByQuery),
		chromedp.Sleep(c.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(tabCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = errors.Join(err, context.DeadlineExceeded)
		}
		return "", &domain.RenderError{URL: url, Err: err}
	}
	c.logger.Debug("page rendered", "url", url, "bytes", len(html), "duration", time.Since(start))
	return html, nil
}
