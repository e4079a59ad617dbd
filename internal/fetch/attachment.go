package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/choksense/gosi-watcher/internal/gosi"
	"github.com/choksense/gosi-watcher/internal/metrics"
)

// Config controls collector behavior for attachment downloads.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// AttachmentFetcher downloads attachment bodies with Colly, retrying
// per the configured policy. Each attempt gets a fresh collector clone
// so callback state never leaks between attempts.
type AttachmentFetcher struct {
	cfg           Config
	policy        RetryPolicy
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// New builds an AttachmentFetcher.
func New(cfg Config, policy RetryPolicy, logger *zap.Logger) *AttachmentFetcher {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	return &AttachmentFetcher{
		cfg:           cfg,
		policy:        policy,
		baseCollector: c,
		logger:        logger,
	}
}

// Fetch downloads ref's body. referer is sent as the Referer header and
// cookies are attached to the collector's jar for ref's URL, so the
// request looks like it came from the detail page. Non-2xx statuses are
// errors and count against the retry budget.
func (f *AttachmentFetcher) Fetch(ctx context.Context, ref gosi.AttachmentRef, referer string, cookies []*http.Cookie) ([]byte, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		body, err := f.fetchOnce(ctx, ref, referer, cookies)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !f.policy.ShouldRetry(err, attempt) {
			break
		}
		metrics.ObserveDownloadRetry()
		f.logger.Warn("attachment fetch failed; retrying",
			zap.String("url", ref.URL),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if err := sleep(ctx, f.policy.Backoff(attempt)); err != nil {
			return nil, fmt.Errorf("fetch %s canceled: %w", ref.URL, err)
		}
	}
	return nil, fmt.Errorf("fetch %s: %w", ref.URL, lastErr)
}

func (f *AttachmentFetcher) fetchOnce(ctx context.Context, ref gosi.AttachmentRef, referer string, cookies []*http.Cookie) ([]byte, error) {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	if len(cookies) > 0 {
		if err := collector.SetCookies(ref.URL, cookies); err != nil {
			return nil, fmt.Errorf("set cookies: %w", err)
		}
	}

	var (
		body     []byte
		fetchErr error
	)
	collector.OnRequest(func(r *colly.Request) {
		if referer != "" {
			r.Headers.Set("Referer", referer)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		if r.StatusCode < 200 || r.StatusCode >= 300 {
			fetchErr = fmt.Errorf("unexpected status %d", r.StatusCode)
			return
		}
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := f.runCollector(ctx, collector, ref.URL); err != nil {
		return nil, err
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	return body, nil
}

func (f *AttachmentFetcher) runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit failed: %w", err)
		}
		return nil
	}
}
