package gosi

import (
	"context"
	"net/http"
	"time"
)

// Ledger remembers which announcements were already delivered.
// Contains is consulted before any work; Commit is called only after a
// successful delivery, so skipped and failed items stay eligible.
type Ledger interface {
	Contains(ctx context.Context, id string) (bool, error)
	Commit(ctx context.Context, id string) error
}

// Scanner discovers candidate announcements from the listing pages.
type Scanner interface {
	Scan(ctx context.Context) ([]Announcement, error)
}

// Resolver enriches a listing candidate with detail-page data.
type Resolver interface {
	Resolve(ctx context.Context, candidate Announcement) (Announcement, error)
}

// CookieSource exposes the browser session's cookies so downloads
// outside the browser stay authenticated.
type CookieSource interface {
	Cookies(ctx context.Context) ([]*http.Cookie, error)
}

// AttachmentFetcher downloads one attachment, carrying the detail page
// as referer and the session cookies.
type AttachmentFetcher interface {
	Fetch(ctx context.Context, ref AttachmentRef, referer string, cookies []*http.Cookie) ([]byte, error)
}

// Rasterizer renders a PDF into page images at the given DPI. A
// maxPages of zero means all pages.
type Rasterizer interface {
	Render(ctx context.Context, pdf []byte, dpi, maxPages int) ([][]byte, error)
}

// Recognizer runs OCR over one page image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, langs string) (string, error)
}

// Uploader hosts one image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, image []byte) (string, error)
}

// Messenger delivers one notice to the chat channel.
type Messenger interface {
	Send(ctx context.Context, notice Notice) error
}

// BlobStore archives raw artifacts (PDFs, rendered pages).
type BlobStore interface {
	PutObject(ctx context.Context, path, contentType string, data []byte) (string, error)
}

// Publisher fans out post-delivery events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) (string, error)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}
