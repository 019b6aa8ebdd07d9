package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// Archiver copies the event log and settled polls to cold storage.
type Archiver interface {
	// ArchiveEvents drains the durable event stream after lastID and uploads
	// the batch as JSONL. It returns the last archived stream ID and the
	// number of events written.
	ArchiveEvents(ctx context.Context, lastID string) (string, int64, error)

	// ArchivePolls uploads a JSONL snapshot of all polls with the given
	// statuses (typically resolved and cancelled) for audit retention.
	ArchivePolls(ctx context.Context, statuses []PollStatus) (int64, error)
}
