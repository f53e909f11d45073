package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// Viewport of every page, matching a desktop browser.
const (
	viewportWidth  = 1920
	viewportHeight = 1080
)

// PageSource returns the rendered HTML of a URL. *Browser is the production
// implementation; tests substitute fixtures.
type PageSource interface {
	HTML(ctx context.Context, url string, opts FetchOptions) (string, error)
}

// FetchOptions controls what happens between navigation and HTML capture.
type FetchOptions struct {
	// AcceptCookies clicks an "Allow all cookies" button when one shows up.
	AcceptCookies bool
	// WaitFor is a CSS selector that must appear within WaitTimeout.
	WaitFor     string
	WaitTimeout time.Duration
	// Settle is an extra pause before the HTML is read.
	Settle time.Duration
}

// BrowserOptions configures the launched Chromium.
type BrowserOptions struct {
	Headless  bool
	UserAgent string
	Timeout   time.Duration
	Proxy     string
}

// Browser is a launched Chromium driven over the DevTools protocol.
type Browser struct {
	opts     BrowserOptions
	launcher *launcher.Launcher
	browser  *rod.Browser
	logger   *zap.Logger
}

// NewBrowser launches Chromium and connects to it.
func NewBrowser(ctx context.Context, opts BrowserOptions, logger *zap.Logger) (*Browser, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	l := launcher.New().Headless(opts.Headless)
	if opts.Proxy != "" {
		l = l.Proxy(opts.Proxy)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	logger.Debug("browser started", zap.Bool("headless", opts.Headless), zap.String("control_url", controlURL))
	return &Browser{opts: opts, launcher: l, browser: browser, logger: logger}, nil
}

// Close shuts the browser down and removes its profile directory.
func (b *Browser) Close() error {
	err := b.browser.Close()
	b.launcher.Cleanup()
	return err
}

// NewPage opens a blank tab with the configured user agent, en-US locale
// and a 1920x1080 viewport.
func (b *Browser) NewPage() (*rod.Page, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	if b.opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      b.opts.UserAgent,
			AcceptLanguage: "en-US",
		}); err != nil {
			b.logger.Warn("set user agent", zap.Error(err))
		}
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		b.logger.Warn("set viewport", zap.Error(err))
	}
	return page, nil
}

// Navigate loads url in page and waits for the load event.
func (b *Browser) Navigate(ctx context.Context, page *rod.Page, url string) error {
	p := page.Context(ctx).Timeout(b.opts.Timeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

// HTML navigates a fresh tab to url and returns the rendered document.
func (b *Browser) HTML(ctx context.Context, url string, opts FetchOptions) (string, error) {
	page, err := b.NewPage()
	if err != nil {
		return "", err
	}
	defer page.Close()

	if err := b.Navigate(ctx, page, url); err != nil {
		return "", err
	}
	if opts.AcceptCookies {
		b.acceptCookies(ctx, page)
	}
	if opts.WaitFor != "" {
		wait := opts.WaitTimeout
		if wait <= 0 {
			wait = b.opts.Timeout
		}
		if _, err := page.Context(ctx).Timeout(wait).Element(opts.WaitFor); err != nil {
			return "", fmt.Errorf("wait for %q: %w", opts.WaitFor, err)
		}
	}
	if err := sleep(ctx, opts.Settle); err != nil {
		return "", err
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return html, nil
}

// acceptCookies dismisses the consent banner. A missing banner is normal.
func (b *Browser) acceptCookies(ctx context.Context, page *rod.Page) {
	el, err := page.Context(ctx).Timeout(3*time.Second).ElementR("button", "Allow all cookies")
	if err != nil {
		b.logger.Debug("no cookie banner found")
		return
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		b.logger.Warn("click cookie banner", zap.Error(err))
		return
	}
	b.logger.Debug("cookies allowed")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
