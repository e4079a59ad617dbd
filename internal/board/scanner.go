package board

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/choksense/gosi-watcher/internal/gosi"
)

// reservedLabels are control anchors inside listing rows and attachment
// lists that are never the primary link.
var reservedLabels = map[string]struct{}{
	"미리보기": {},
	"미리듣기": {},
}

var (
	dataNoRe  = regexp.MustCompile(`dataNo=(\d+)`)
	collapsed = regexp.MustCompile(`\s+`)
)

// ScannerConfig parameterizes one listing sweep.
type ScannerConfig struct {
	BaseURL   string
	StartPage int
	EndPage   int
	Keywords  []string
}

// Scanner discovers candidate announcements on the paginated listing.
type Scanner struct {
	session *Session
	cfg     ScannerConfig
	logger  *zap.Logger
}

// NewScanner constructs a Scanner bound to a live session.
func NewScanner(session *Session, cfg ScannerConfig, logger *zap.Logger) *Scanner {
	return &Scanner{session: session, cfg: cfg, logger: logger}
}

// Scan walks the configured page range and returns candidates in
// discovery order. Identifiers are deduplicated on first sight across
// the whole sweep. A page whose table never appears within the wait
// budget is treated as empty, not fatal.
func (s *Scanner) Scan(ctx context.Context) ([]gosi.Announcement, error) {
	seen := make(map[string]struct{})
	var out []gosi.Announcement

	for page := s.cfg.StartPage; page <= s.cfg.EndPage; page++ {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("scan canceled: %w", err)
		}

		pageURL := fmt.Sprintf("%s&curPage=%d", s.cfg.BaseURL, page)
		html, err := s.session.HTML(ctx, pageURL, "table tbody tr")
		if err != nil {
			if ctx.Err() != nil {
				return out, fmt.Errorf("scan canceled: %w", ctx.Err())
			}
			s.logger.Warn("listing table did not appear; treating page as empty",
				zap.Int("page", page), zap.Error(err))
			continue
		}

		candidates, err := parseListing(html, pageURL, s.cfg.Keywords, seen)
		if err != nil {
			s.logger.Warn("listing parse failed; treating page as empty",
				zap.Int("page", page), zap.Error(err))
			continue
		}
		s.logger.Debug("listing page scanned",
			zap.Int("page", page), zap.Int("candidates", len(candidates)))
		out = append(out, candidates...)
	}

	return out, nil
}

// parseListing extracts keyword-matching rows from one listing page.
// seen is shared across pages of a sweep; first occurrence wins.
func parseListing(html, pageURL string, keywords []string, seen map[string]struct{}) ([]gosi.Announcement, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	var out []gosi.Announcement
	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		link := primaryLink(row)
		if link == nil {
			return
		}

		title := strings.TrimSpace(link.Text())
		if !matchesAny(normalizeTitle(title), keywords) {
			return
		}

		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}
		m := dataNoRe.FindStringSubmatch(href)
		if m == nil {
			// No stable identifier means the row cannot be deduplicated.
			return
		}
		id := m[1]
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}

		out = append(out, gosi.Announcement{
			ID:    id,
			URL:   absoluteURL(pageURL, href),
			Title: title,
		})
	})
	return out, nil
}

// primaryLink returns the first anchor in the row whose visible text is
// not a reserved control label.
func primaryLink(row *goquery.Selection) *goquery.Selection {
	var link *goquery.Selection
	row.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := strings.TrimSpace(a.Text())
		if text == "" {
			return true
		}
		if _, reserved := reservedLabels[text]; reserved {
			return true
		}
		link = a
		return false
	})
	return link
}

func normalizeTitle(title string) string {
	return strings.TrimSpace(collapsed.ReplaceAllString(strings.ToLower(title), " "))
}

// matchesAny implements OR semantics over the keyword list.
func matchesAny(normalized string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}
