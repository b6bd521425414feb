// Package export prepares batch document hand-offs to email or messaging
// channels: it triggers throttled background downloads of the selected files
// and composes a draft message referencing them. It only prepares data;
// opening the draft link and attaching files is the caller's business.
package export

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crewdocs/crewdocs-api/internal/models"
	"github.com/crewdocs/crewdocs-api/internal/utils"
)

type Channel string

const (
	ChannelEmail     Channel = "email"
	ChannelMessaging Channel = "messaging"
)

// Validation failures for an export request.
var (
	ErrEmptyRecipient = errors.New("recipient must not be empty")
	ErrEmptySelection = errors.New("at least one document must be selected")
	ErrUnknownChannel = errors.New("unknown export channel")
)

// ExportError wraps the validation failures of the batch path.
type ExportError struct {
	Err error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export rejected: %v", e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// Downloader fetches a stored blob by key. *documents.Store satisfies it.
type Downloader interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// ItemResult is the outcome of one scheduled download.
type ItemResult struct {
	RecordID string
	Title    string
	Size     int64
	Err      error
}

// DraftMessage is the composed hand-off: a channel-specific body and a deep
// link (mailto: or messaging) the caller can open. Scheduled counts the
// downloads triggered; it says nothing about their individual outcomes,
// which arrive on the result stream instead.
type DraftMessage struct {
	Channel   Channel `json:"channel"`
	Recipient string  `json:"recipient"`
	Subject   string  `json:"subject,omitempty"`
	Body      string  `json:"body"`
	Link      string  `json:"link"`
	Scheduled int     `json:"scheduled"`
}

type Exporter struct {
	downloader Downloader
	stagger    time.Duration
	logger     *utils.Logger
}

// NewExporter builds an Exporter with the given inter-item delay. The delay
// is backpressure control for the backing store, not cosmetics; zero falls
// back to the 500ms default.
func NewExporter(downloader Downloader, stagger time.Duration, logger *utils.Logger) *Exporter {
	if stagger <= 0 {
		stagger = 500 * time.Millisecond
	}
	return &Exporter{downloader: downloader, stagger: stagger, logger: logger}
}

// ExportSelection validates the request, schedules one download per record
// that has a storage key (staggered by the configured delay, first at t=0)
// and returns the composed draft without waiting for the downloads.
//
// Cancelling ctx stops scheduling further items but does not retract
// downloads already triggered. Per-item outcomes arrive on the returned
// channel, which is closed once every scheduled download finished.
func (e *Exporter) ExportSelection(ctx context.Context, records []models.DocumentRecord, channel Channel, recipient, subjectName string) (*DraftMessage, <-chan ItemResult, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return nil, nil, &ExportError{Err: ErrEmptyRecipient}
	}
	if len(records) == 0 {
		return nil, nil, &ExportError{Err: ErrEmptySelection}
	}
	if channel != ChannelEmail && channel != ChannelMessaging {
		return nil, nil, &ExportError{Err: fmt.Errorf("%w: %q", ErrUnknownChannel, channel)}
	}

	var downloadable []models.DocumentRecord
	for _, rec := range records {
		if rec.StorageKey != "" {
			downloadable = append(downloadable, rec)
		}
	}

	results := make(chan ItemResult, len(downloadable))
	go e.runSchedule(ctx, downloadable, results)

	draft := e.composeDraft(records, channel, recipient, subjectName)
	draft.Scheduled = len(downloadable)
	return draft, results, nil
}

// runSchedule triggers one download per item on a fixed delay timeline. The
// downloads themselves run independently; a slow or failing item does not
// hold up the ones after it.
func (e *Exporter) runSchedule(ctx context.Context, items []models.DocumentRecord, results chan<- ItemResult) {
	defer close(results)

	// Triggered downloads outlive a cancelled schedule.
	dlCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	timer := time.NewTimer(e.stagger)
	timer.Stop()
	defer timer.Stop()

	for i, rec := range items {
		rec := rec
		if i > 0 {
			timer.Reset(e.stagger)
			select {
			case <-ctx.Done():
				e.logger.Warn("Export schedule cancelled",
					"scheduled", i, "remaining", len(items)-i)
				g.Wait()
				return
			case <-timer.C:
			}
		}

		g.Go(func() error {
			data, err := e.downloader.Download(dlCtx, rec.StorageKey)
			if err != nil {
				e.logger.Error("Export download failed",
					"record_id", rec.ID, "key", rec.StorageKey, "error", err)
				results <- ItemResult{RecordID: rec.ID, Title: rec.Title, Err: err}
				return nil
			}
			results <- ItemResult{RecordID: rec.ID, Title: rec.Title, Size: int64(len(data))}
			return nil
		})
	}

	g.Wait()
}

func (e *Exporter) composeDraft(records []models.DocumentRecord, channel Channel, recipient, subjectName string) *DraftMessage {
	var list strings.Builder
	for i, rec := range records {
		fmt.Fprintf(&list, "%d. %s\n", i+1, rec.Title)
	}

	draft := &DraftMessage{Channel: channel, Recipient: recipient}

	switch channel {
	case ChannelEmail:
		draft.Subject = fmt.Sprintf("Documents - %s", subjectName)
		draft.Body = fmt.Sprintf(`Hello,

Please find the following documents for %s:

%s
---
Sent by the CrewDocs system

Note: the files were downloaded automatically. Attach them to this email before sending.`,
			subjectName, list.String())
		draft.Link = fmt.Sprintf("mailto:%s?subject=%s&body=%s",
			recipient, encodeComponent(draft.Subject), encodeComponent(draft.Body))

	case ChannelMessaging:
		draft.Body = fmt.Sprintf(`Hello! Here are the documents for *%s*:

%s
_The files were downloaded and can be sent next._`,
			subjectName, list.String())
		draft.Link = fmt.Sprintf("https://wa.me/%s?text=%s",
			digitsOnly(recipient), encodeComponent(draft.Body))
	}

	return draft
}

// encodeComponent percent-encodes a string for mailto/deep-link use. Spaces
// become %20, not +.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
