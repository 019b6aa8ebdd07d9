package s3blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/predictx/marketd/internal/domain"
)

// fakeWriter captures uploads in memory.
type fakeWriter struct {
	puts []capturedPut
	err  error
}

type capturedPut struct {
	path        string
	contentType string
	body        string
}

func (w *fakeWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if w.err != nil {
		return w.err
	}
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.puts = append(w.puts, capturedPut{path: path, contentType: contentType, body: string(body)})
	return nil
}

// fakeBus serves a fixed event log through StreamRead.
type fakeBus struct {
	entries []domain.StreamMessage
	err     error
}

func (b *fakeBus) Publish(ctx context.Context, channel string, payload []byte) error { return nil }

func (b *fakeBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func (b *fakeBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	return nil
}

func (b *fakeBus) StreamRead(ctx context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	if b.err != nil {
		return nil, b.err
	}
	// Entries strictly after lastID, capped at count, mimicking XRANGE
	// exclusive-start semantics. Fixed-width IDs keep lexicographic and
	// numeric order identical.
	var out []domain.StreamMessage
	for _, e := range b.entries {
		if e.ID > lastID {
			out = append(out, e)
		}
		if len(out) == count {
			break
		}
	}
	return out, nil
}

// fakePollStore returns a canned poll list.
type fakePollStore struct {
	polls []domain.Poll
	err   error
}

func (s *fakePollStore) ListPollsByStatus(ctx context.Context, statuses []domain.PollStatus) ([]domain.Poll, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.polls, nil
}

func streamEntries(n int) []domain.StreamMessage {
	out := make([]domain.StreamMessage, n)
	for i := range out {
		out[i] = domain.StreamMessage{
			ID:      fmt.Sprintf("%04d-0", i+1),
			Payload: []byte(fmt.Sprintf(`{"seq":%d}`, i+1)),
		}
	}
	return out
}

func TestArchiveEventsDrainsStream(t *testing.T) {
	writer := &fakeWriter{}
	bus := &fakeBus{entries: streamEntries(3)}
	arch := NewArchiver(writer, bus, &fakePollStore{})

	lastID, count, err := arch.ArchiveEvents(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "0003-0", lastID)
	require.EqualValues(t, 3, count)

	require.Len(t, writer.puts, 1)
	put := writer.puts[0]
	require.True(t, strings.HasPrefix(put.path, "archive/events/"))
	require.True(t, strings.HasSuffix(put.path, ".jsonl"))
	require.Equal(t, "application/x-ndjson", put.contentType)

	lines := strings.Split(strings.TrimRight(put.body, "\n"), "\n")
	require.Equal(t, []string{`{"seq":1}`, `{"seq":2}`, `{"seq":3}`}, lines)
}

func TestArchiveEventsBatchesLargeStreams(t *testing.T) {
	writer := &fakeWriter{}
	bus := &fakeBus{entries: streamEntries(eventBatchSize + 7)}
	arch := NewArchiver(writer, bus, &fakePollStore{})

	_, count, err := arch.ArchiveEvents(context.Background(), "")
	require.NoError(t, err)
	require.EqualValues(t, eventBatchSize+7, count)
	require.Len(t, writer.puts, 1)
}

func TestArchiveEventsResumesFromCursor(t *testing.T) {
	writer := &fakeWriter{}
	bus := &fakeBus{entries: streamEntries(5)}
	arch := NewArchiver(writer, bus, &fakePollStore{})

	lastID, count, err := arch.ArchiveEvents(context.Background(), "0003-0")
	require.NoError(t, err)
	require.Equal(t, "0005-0", lastID)
	require.EqualValues(t, 2, count)
}

func TestArchiveEventsEmptyStream(t *testing.T) {
	writer := &fakeWriter{}
	arch := NewArchiver(writer, &fakeBus{}, &fakePollStore{})

	lastID, count, err := arch.ArchiveEvents(context.Background(), "0009-0")
	require.NoError(t, err)
	require.Equal(t, "0009-0", lastID)
	require.Zero(t, count)
	require.Empty(t, writer.puts, "no upload for an empty batch")
}

func TestArchiveEventsReadFailure(t *testing.T) {
	writer := &fakeWriter{}
	arch := NewArchiver(writer, &fakeBus{err: errors.New("redis down")}, &fakePollStore{})

	_, _, err := arch.ArchiveEvents(context.Background(), "")
	require.Error(t, err)
	require.Empty(t, writer.puts)
}

func TestArchivePollsSnapshot(t *testing.T) {
	writer := &fakeWriter{}
	store := &fakePollStore{polls: []domain.Poll{
		{ID: 1, Status: domain.PollStatusResolved, Question: "first?"},
		{ID: 2, Status: domain.PollStatusCancelled, Question: "second?"},
	}}
	arch := NewArchiver(writer, &fakeBus{}, store)

	count, err := arch.ArchivePolls(context.Background(), []domain.PollStatus{
		domain.PollStatusResolved, domain.PollStatusCancelled,
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	require.Len(t, writer.puts, 1)
	put := writer.puts[0]
	require.True(t, strings.HasPrefix(put.path, "archive/polls/"))

	lines := strings.Split(strings.TrimRight(put.body, "\n"), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `"question":"first?"`)
	require.Contains(t, lines[1], `"status":"cancelled"`)
}

func TestArchivePollsEmpty(t *testing.T) {
	writer := &fakeWriter{}
	arch := NewArchiver(writer, &fakeBus{}, &fakePollStore{})

	count, err := arch.ArchivePolls(context.Background(), []domain.PollStatus{domain.PollStatusResolved})
	require.NoError(t, err)
	require.Zero(t, count)
	require.Empty(t, writer.puts)
}

func TestArchivePollsUploadFailure(t *testing.T) {
	writer := &fakeWriter{err: errors.New("bucket gone")}
	store := &fakePollStore{polls: []domain.Poll{{ID: 1}}}
	arch := NewArchiver(writer, &fakeBus{}, store)

	_, err := arch.ArchivePolls(context.Background(), []domain.PollStatus{domain.PollStatusResolved})
	require.Error(t, err)
}
