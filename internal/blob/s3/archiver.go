package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/predictx/marketd/internal/domain"
)

// eventBatchSize is how many stream entries one StreamRead call drains.
const eventBatchSize = 500

// PollArchiveStore is the narrow store surface the archiver needs: just the
// status-filtered poll listing, not the full ledger.
type PollArchiveStore interface {
	ListPollsByStatus(ctx context.Context, statuses []domain.PollStatus) ([]domain.Poll, error)
}

// Archiver implements domain.Archiver by draining the durable event
// stream and snapshotting terminal polls, serializing both to JSONL and
// uploading to object storage.
//
// Trimming the archived entries from the stream is intentionally NOT
// performed here; the stream already self-trims by MAXLEN, and archives are
// verified before anything is dropped.
type Archiver struct {
	writer domain.BlobWriter
	bus    domain.SignalBus
	polls  PollArchiveStore
}

// NewArchiver creates an Archiver.
func NewArchiver(writer domain.BlobWriter, bus domain.SignalBus, polls PollArchiveStore) *Archiver {
	return &Archiver{
		writer: writer,
		bus:    bus,
		polls:  polls,
	}
}

// ArchiveEvents drains the event stream after lastID and uploads the batch
// to archive/events/<UTC timestamp>.jsonl. It returns the last archived
// stream ID (lastID unchanged when the stream was empty) and the number of
// events written.
func (a *Archiver) ArchiveEvents(ctx context.Context, lastID string) (string, int64, error) {
	if lastID == "" {
		lastID = "0"
	}

	var payloads [][]byte
	for {
		msgs, err := a.bus.StreamRead(ctx, domain.EventStream, lastID, eventBatchSize)
		if err != nil {
			return lastID, 0, fmt.Errorf("s3blob: archive events read: %w", err)
		}
		if len(msgs) == 0 {
			break
		}
		for _, msg := range msgs {
			payloads = append(payloads, msg.Payload)
			lastID = msg.ID
		}
		if len(msgs) < eventBatchSize {
			break
		}
	}
	if len(payloads) == 0 {
		return lastID, 0, nil
	}

	var buf bytes.Buffer
	for _, p := range payloads {
		buf.Write(p)
		buf.WriteByte('\n')
	}

	path := archivePath("events", time.Now().UTC())
	if err := a.writer.Put(ctx, path, &buf, "application/x-ndjson"); err != nil {
		return lastID, 0, fmt.Errorf("s3blob: archive events upload: %w", err)
	}

	return lastID, int64(len(payloads)), nil
}

// ArchivePolls uploads a JSONL snapshot of all polls in the given statuses
// to archive/polls/<UTC timestamp>.jsonl and returns the record count.
func (a *Archiver) ArchivePolls(ctx context.Context, statuses []domain.PollStatus) (int64, error) {
	polls, err := a.polls.ListPollsByStatus(ctx, statuses)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive polls query: %w", err)
	}
	if len(polls) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(polls)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive polls marshal: %w", err)
	}

	path := archivePath("polls", time.Now().UTC())
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive polls upload: %w", err)
	}

	return int64(len(polls)), nil
}

// archivePath builds the object key for an archive file:
//
//	archive/events/2025-01-02T150405Z.jsonl
//	archive/polls/2025-01-02T150405Z.jsonl
func archivePath(kind string, at time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, at.Format("2006-01-02T150405Z"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*Archiver)(nil)
