// Package gosi defines the domain types and collaborator contracts
// shared by every stage of the watcher.
package gosi

// Classification is the notice category derived from the title.
type Classification int

const (
	ClassRedevelopment Classification = iota
	ClassReconstruction
)

// Label returns the Korean display form used in outbound messages.
func (c Classification) Label() string {
	if c == ClassReconstruction {
		return "재건축"
	}
	return "재개발"
}

// AttachmentRef points at one downloadable file on a detail page.
type AttachmentRef struct {
	Filename string
	URL      string
}

// Announcement is one board item. ID is the board's stable numeric
// identifier; it is the dedup key for the whole system.
type Announcement struct {
	ID          string
	URL         string
	Title       string
	Attachments []AttachmentRef
}

// FetchedDocument is a downloaded attachment body plus its origin.
type FetchedDocument struct {
	Ref  AttachmentRef
	Data []byte
}

// FloorRange records below-grade and above-grade floor counts together.
type FloorRange struct {
	Below int
	Above int
}

// FactRecord holds the structured facts extracted from a notice.
// Pointer fields are nil when the fact could not be established.
type FactRecord struct {
	Classification Classification
	Location       *string
	AreaSqm        *float64
	UnitCount      *int
	BuildingCount  *int
	Floors         *FloorRange
}

// Notice is the deliverable unit: the announcement, its facts, and the
// hosted image URLs rendered from its primary attachment.
type Notice struct {
	Announcement Announcement
	Facts        FactRecord
	ImageURLs    []string
}

// ItemStatus is the terminal state of one announcement in a run.
type ItemStatus int

const (
	ItemDelivered ItemStatus = iota
	ItemSkipped
	ItemFailed
)

func (s ItemStatus) String() string {
	switch s {
	case ItemDelivered:
		return "delivered"
	case ItemSkipped:
		return "skipped"
	default:
		return "failed"
	}
}
