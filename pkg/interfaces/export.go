package interfaces

import (
	"context"
	"encoding/json"
	"time"
)

// ContentSource lists the items of a collection and the child pages of an
// item. Both calls follow pagination cursors until exhausted.
type ContentSource interface {
	QueryDatabase(ctx context.Context, databaseID string) ([]json.RawMessage, error)
	ChildPageIDs(ctx context.Context, pageID string) ([]string, error)
}

// PageRenderer converts one page into Markdown. An empty string means the
// page has no content.
type PageRenderer interface {
	RenderPage(ctx context.Context, pageID string) (string, error)
}

// ImageReport summarises one localization pass.
type ImageReport struct {
	Found      int
	Downloaded int
	Failed     int
}

// ImageLocalizer downloads remote images referenced by markdown into an
// images directory beside filePath and rewrites the references. rootDir is
// the export root public URLs are computed from.
type ImageLocalizer interface {
	Localize(ctx context.Context, markdown, filePath, rootDir string) (string, ImageReport, error)
}

// ItemStatus is the outcome of one worker attempt.
type ItemStatus string

const (
	ItemExported          ItemStatus = "exported"
	ItemSkipped           ItemStatus = "skipped"
	ItemFailed            ItemStatus = "failed"
	ItemRateLimited       ItemStatus = "rate_limited"
	ItemPermanentlyFailed ItemStatus = "permanently_failed"
)

// ItemOutcome is recorded for every worker attempt.
type ItemOutcome struct {
	RunID    string
	SourceID string
	ItemID   string
	Name     string
	Path     string
	Status   ItemStatus
	Error    string
	Attempts int
	At       time.Time
}

// RunSummary is recorded once per export run.
type RunSummary struct {
	RunID             string
	SourceID          string
	StartedAt         time.Time
	FinishedAt        time.Time
	Total             int
	AlreadyDone       int
	Exported          int
	Skipped           int
	Failed            int
	PermanentlyFailed int
	Rounds            int
	Records           int
}

// RunLedger persists run history. Failures are reported to the caller, which
// treats them as non-fatal.
type RunLedger interface {
	RecordItem(ctx context.Context, outcome ItemOutcome) error
	RecordRun(ctx context.Context, run RunSummary) error
}

// ItemHistory reads back the latest recorded outcome of an item.
type ItemHistory interface {
	LastOutcome(ctx context.Context, sourceID, itemID string) (ItemOutcome, bool, error)
}
