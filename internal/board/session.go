// Package board acquires announcement pages from the notice board
// through a headless browser session and extracts structure from them.
package board

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// SessionConfig controls the headless browser session.
type SessionConfig struct {
	UserAgent  string
	NavTimeout time.Duration
}

// Session owns one headless Chrome instance for the duration of a run.
// The origin ties attachment downloads to the cookies this navigation
// establishes, so the session outlives individual page loads and is
// released exactly once via Close on every exit path.
type Session struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	timeout         time.Duration
	logger          *zap.Logger
}

// NewSession launches the browser and warms it up.
func NewSession(cfg SessionConfig, logger *zap.Logger) (*Session, error) {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 15 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(1400, 1100),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}
	logger.Debug("browser session started", zap.Duration("nav_timeout", cfg.NavTimeout))

	return &Session{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		timeout:         cfg.NavTimeout,
		logger:          logger,
	}, nil
}

// Close tears down the browser and allocator contexts.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.browserCancel()
	s.allocatorCancel()
}

// HTML navigates to rawURL, waits for waitSelector to appear within the
// session's navigation budget, and returns the DOM snapshot. A selector
// that never appears surfaces as a deadline error; callers decide
// whether that is fatal.
func (s *Session) HTML(ctx context.Context, rawURL, waitSelector string) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, s.timeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	var html string
	tasks := chromedp.Tasks{
		network.Enable(),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady(waitSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, nil
}

// Cookies snapshots the browser's cookie jar for session-bound
// downloads outside the browser.
func (s *Session) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	taskCtx, cancelTask := context.WithTimeout(s.browserCtx, s.timeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	var cookies []*http.Cookie
	action := chromedp.ActionFunc(func(ctx context.Context) error {
		raw, err := network.GetCookies().Do(ctx)
		if err != nil {
			return fmt.Errorf("get cookies: %w", err)
		}
		for _, c := range raw {
			cookies = append(cookies, &http.Cookie{
				Name:   c.Name,
				Value:  c.Value,
				Domain: c.Domain,
				Path:   c.Path,
			})
		}
		return nil
	})
	if err := chromedp.Run(taskCtx, action); err != nil {
		return nil, fmt.Errorf("chromedp run: %w", err)
	}
	return cookies, nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// absoluteURL resolves href against the page it was found on. Hrefs the
// board emits are sometimes relative to the origin.
func absoluteURL(pageURL, href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	rel, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(rel).String()
}
