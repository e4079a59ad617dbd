package board

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/choksense/gosi-watcher/internal/gosi"
)

const (
	titleLabel      = "제목"
	attachmentLabel = "첨부파일"
	fileServingPath = "/comm/getFile"
)

// Resolver fetches announcement detail pages and extracts title and
// attachment list.
type Resolver struct {
	session *Session
	logger  *zap.Logger
}

// NewResolver constructs a Resolver bound to a live session.
func NewResolver(session *Session, logger *zap.Logger) *Resolver {
	return &Resolver{session: session, logger: logger}
}

// Resolve enriches a candidate with the detail page's title and
// attachments. A missing title is not an error; the listing title is
// kept in that case.
func (r *Resolver) Resolve(ctx context.Context, candidate gosi.Announcement) (gosi.Announcement, error) {
	html, err := r.session.HTML(ctx, candidate.URL, "body")
	if err != nil {
		return gosi.Announcement{}, fmt.Errorf("detail fetch %s: %w", candidate.URL, err)
	}

	title, attachments, err := parseDetail(html, candidate.URL)
	if err != nil {
		return gosi.Announcement{}, fmt.Errorf("detail parse %s: %w", candidate.URL, err)
	}

	ann := candidate
	if title != "" {
		ann.Title = title
	}
	ann.Attachments = attachments
	r.logger.Debug("detail resolved",
		zap.String("id", ann.ID),
		zap.Int("attachments", len(attachments)))
	return ann, nil
}

// titleLocator is one attempt at finding the detail title. Locators are
// tried in order; the first non-empty result wins.
type titleLocator func(doc *goquery.Document) string

var titleLocators = []titleLocator{
	titleFromInfoList,
	titleFromSubjectHeading,
}

// parseDetail extracts (title, attachments) from a detail page snapshot.
func parseDetail(html, pageURL string) (string, []gosi.AttachmentRef, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", nil, fmt.Errorf("parse detail: %w", err)
	}

	var title string
	for _, locate := range titleLocators {
		if title = strings.TrimSpace(locate(doc)); title != "" {
			break
		}
	}

	return title, parseAttachments(doc, pageURL), nil
}

// titleFromInfoList reads the dd that follows the 제목 dt inside the
// structured info list.
func titleFromInfoList(doc *goquery.Document) string {
	dd := followingData(doc.Find("dl.form-data-info dt"), titleLabel)
	if dd == nil {
		return ""
	}
	return dd.Find("li").First().Text()
}

// titleFromSubjectHeading falls back to the page's subject heading.
func titleFromSubjectHeading(doc *goquery.Document) string {
	return doc.Find("h4.form-data-subject").First().Text()
}

// parseAttachments keeps anchors in the 첨부파일 block whose target is
// the known file-serving path, dropping preview controls.
func parseAttachments(doc *goquery.Document, pageURL string) []gosi.AttachmentRef {
	dd := followingData(doc.Find("dt"), attachmentLabel)
	if dd == nil {
		return nil
	}

	var refs []gosi.AttachmentRef
	dd.Find("a").Each(func(_ int, a *goquery.Selection) {
		text := strings.TrimSpace(a.Text())
		if _, reserved := reservedLabels[text]; reserved {
			return
		}
		href, ok := a.Attr("href")
		if !ok || !strings.Contains(href, fileServingPath) {
			return
		}
		refs = append(refs, gosi.AttachmentRef{
			Filename: text,
			URL:      absoluteURL(pageURL, href),
		})
	})
	return refs
}

// followingData finds the dt with the given label text and returns the
// first dd sibling that follows it.
func followingData(dts *goquery.Selection, label string) *goquery.Selection {
	var dd *goquery.Selection
	dts.EachWithBreak(func(_ int, dt *goquery.Selection) bool {
		if strings.TrimSpace(dt.Text()) != label {
			return true
		}
		next := dt.NextAllFiltered("dd").First()
		if next.Length() > 0 {
			dd = next
		}
		return false
	})
	return dd
}
