// Package pipeline orchestrates one scan run: discover, resolve,
// download, rasterize, recognize, extract, deliver, commit.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/choksense/gosi-watcher/internal/analyze"
	"github.com/choksense/gosi-watcher/internal/gosi"
	"github.com/choksense/gosi-watcher/internal/metrics"
)

// Config tunes one run.
type Config struct {
	MinChars        int
	MaxOCRPages     int
	OCRLangs        string
	OCRDPI          int
	PresentationDPI int
	MaxImages       int
	ItemPause       time.Duration
	EventTopic      string
	ArchivePrefix   string
}

// Deps are the pipeline's collaborators. Archive and Publisher are
// optional; nil disables the concern.
type Deps struct {
	Ledger     gosi.Ledger
	Scanner    gosi.Scanner
	Resolver   gosi.Resolver
	Cookies    gosi.CookieSource
	Fetcher    gosi.AttachmentFetcher
	Rasterizer gosi.Rasterizer
	Recognizer gosi.Recognizer
	Uploader   gosi.Uploader
	Messenger  gosi.Messenger
	Archive    gosi.BlobStore
	Publisher  gosi.Publisher
	Clock      gosi.Clock
	Logger     *zap.Logger
}

// Summary is the outcome of one run.
type Summary struct {
	RunID      string
	Discovered int
	Delivered  int
	Skipped    int
	Failed     int
}

// Pipeline processes announcements strictly one at a time. An item is
// committed to the ledger only after its message was delivered, so a
// failure anywhere leaves the item eligible for the next run.
type Pipeline struct {
	cfg  Config
	deps Deps
}

// New builds a Pipeline.
func New(cfg Config, deps Deps) *Pipeline {
	return &Pipeline{cfg: cfg, deps: deps}
}

// Run executes one sweep. A scan failure is fatal; per-item failures
// are isolated, logged, and counted.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}
	log := p.deps.Logger.With(zap.String("run_id", summary.RunID))

	candidates, err := p.deps.Scanner.Scan(ctx)
	if err != nil {
		return summary, fmt.Errorf("scan: %w", err)
	}
	summary.Discovered = len(candidates)
	metrics.ObserveDiscovered(len(candidates))
	log.Info("scan complete", zap.Int("candidates", len(candidates)))

	for i, candidate := range candidates {
		if i > 0 {
			if err := pause(ctx, p.cfg.ItemPause); err != nil {
				return summary, fmt.Errorf("run canceled: %w", err)
			}
		}
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("run canceled: %w", err)
		}

		status := p.processItem(ctx, log, candidate)
		metrics.ObserveItem(status.String())
		switch status {
		case gosi.ItemDelivered:
			summary.Delivered++
		case gosi.ItemSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}

	metrics.ObserveRun()
	log.Info("run complete",
		zap.Int("discovered", summary.Discovered),
		zap.Int("delivered", summary.Delivered),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// processItem drives one announcement to a terminal state. A panic in
// any stage is contained here so a malformed item cannot take down the
// run.
func (p *Pipeline) processItem(ctx context.Context, log *zap.Logger, candidate gosi.Announcement) (status gosi.ItemStatus) {
	log = log.With(zap.String("id", candidate.ID), zap.String("title", candidate.Title))
	defer func() {
		if r := recover(); r != nil {
			log.Error("item processing panicked", zap.Any("panic", r))
			status = gosi.ItemFailed
		}
	}()

	seen, err := p.deps.Ledger.Contains(ctx, candidate.ID)
	if err != nil {
		log.Error("ledger lookup failed", zap.Error(err))
		return gosi.ItemFailed
	}
	if seen {
		log.Debug("already delivered; skipping")
		return gosi.ItemSkipped
	}

	ann, err := p.deps.Resolver.Resolve(ctx, candidate)
	if err != nil {
		log.Error("detail resolution failed", zap.Error(err))
		return gosi.ItemFailed
	}
	if len(ann.Attachments) == 0 {
		log.Info("no downloadable attachments; skipping")
		return gosi.ItemSkipped
	}

	pdf, err := p.downloadPrimary(ctx, log, ann)
	if err != nil {
		log.Error("attachment download failed", zap.Error(err))
		return gosi.ItemFailed
	}
	p.archive(ctx, log, ann.ID, ann.Attachments[0].Filename, "application/pdf", pdf)

	text, ok := p.recognize(ctx, log, pdf)
	if !ok {
		return gosi.ItemFailed
	}
	if analyze.TextLength(text) < p.cfg.MinChars {
		metrics.ObserveQualityGateSkip()
		log.Info("recognized text below quality gate; skipping",
			zap.Int("chars", analyze.TextLength(text)),
			zap.Int("min_chars", p.cfg.MinChars))
		return gosi.ItemSkipped
	}

	facts := analyze.Extract(ann.Title, text)

	imageURLs := p.publishImages(ctx, log, ann.ID, pdf)

	notice := gosi.Notice{Announcement: ann, Facts: facts, ImageURLs: imageURLs}
	if err := p.deps.Messenger.Send(ctx, notice); err != nil {
		log.Error("message delivery failed", zap.Error(err))
		return gosi.ItemFailed
	}

	if err := p.deps.Ledger.Commit(ctx, ann.ID); err != nil {
		// Delivered but not recorded: the next run will deliver again.
		// Surfacing this as a failure keeps the duplicate visible.
		log.Error("ledger commit failed after delivery", zap.Error(err))
		return gosi.ItemFailed
	}

	p.publishEvent(ctx, log, ann, len(imageURLs))
	log.Info("notice delivered", zap.Int("images", len(imageURLs)))
	return gosi.ItemDelivered
}

// downloadPrimary fetches the first attachment using the browser
// session's cookies and the detail page as referer.
func (p *Pipeline) downloadPrimary(ctx context.Context, log *zap.Logger, ann gosi.Announcement) ([]byte, error) {
	cookies, err := p.deps.Cookies.Cookies(ctx)
	if err != nil {
		log.Warn("cookie snapshot failed; downloading without session", zap.Error(err))
		cookies = nil
	}
	return p.deps.Fetcher.Fetch(ctx, ann.Attachments[0], ann.URL, cookies)
}

// recognize renders the OCR-profile pages and concatenates their text.
func (p *Pipeline) recognize(ctx context.Context, log *zap.Logger, pdf []byte) (string, bool) {
	pages, err := p.deps.Rasterizer.Render(ctx, pdf, p.cfg.OCRDPI, p.cfg.MaxOCRPages)
	if err != nil {
		log.Error("ocr rasterization failed", zap.Error(err))
		return "", false
	}

	var parts []string
	for i, page := range pages {
		text, err := p.deps.Recognizer.Recognize(ctx, page, p.cfg.OCRLangs)
		if err != nil {
			log.Warn("ocr failed for page", zap.Int("page", i+1), zap.Error(err))
			continue
		}
		parts = append(parts, text)
	}
	if len(parts) == 0 {
		log.Error("ocr produced no text on any page")
		return "", false
	}
	return strings.Join(parts, "\n"), true
}

// publishImages renders the presentation-profile pages and uploads up
// to MaxImages of them. Upload failures drop the page but never the
// item; a notice can go out with no images at all.
func (p *Pipeline) publishImages(ctx context.Context, log *zap.Logger, id string, pdf []byte) []string {
	pages, err := p.deps.Rasterizer.Render(ctx, pdf, p.cfg.PresentationDPI, p.cfg.MaxImages)
	if err != nil {
		log.Warn("presentation rasterization failed; sending without images", zap.Error(err))
		return nil
	}
	if len(pages) > p.cfg.MaxImages {
		pages = pages[:p.cfg.MaxImages]
	}

	var urls []string
	for i, page := range pages {
		u, err := p.deps.Uploader.Upload(ctx, page)
		if err != nil {
			log.Warn("image upload failed", zap.Int("page", i+1), zap.Error(err))
			continue
		}
		urls = append(urls, u)
		p.archive(ctx, log, id, fmt.Sprintf("page-%02d.png", i+1), "image/png", page)
	}
	return urls
}

// archive stores one artifact. Archival is best effort.
func (p *Pipeline) archive(ctx context.Context, log *zap.Logger, id, name, contentType string, data []byte) {
	if p.deps.Archive == nil {
		return
	}
	path := fmt.Sprintf("%s/%s/%s", p.cfg.ArchivePrefix, id, name)
	if _, err := p.deps.Archive.PutObject(ctx, path, contentType, data); err != nil {
		log.Warn("artifact archive failed", zap.String("path", path), zap.Error(err))
	}
}

// deliveredEvent is the payload published after a successful delivery.
type deliveredEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Images      int       `json:"images"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// publishEvent fans out the delivery. Best effort.
func (p *Pipeline) publishEvent(ctx context.Context, log *zap.Logger, ann gosi.Announcement, images int) {
	if p.deps.Publisher == nil {
		return
	}
	payload, err := json.Marshal(deliveredEvent{
		ID:          ann.ID,
		Title:       ann.Title,
		URL:         ann.URL,
		Images:      images,
		DeliveredAt: p.deps.Clock.Now(),
	})
	if err != nil {
		log.Warn("event encoding failed", zap.Error(err))
		return
	}
	if _, err := p.deps.Publisher.Publish(ctx, p.cfg.EventTopic, payload); err != nil {
		log.Warn("event publish failed", zap.Error(err))
	}
}

// pause waits between items so the board never sees a request burst.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
