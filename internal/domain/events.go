package domain

import "context"

// Event topics published on the signal bus. The event log is append-only
// and used for observability only; the ledger never reads it back.
const (
	TopicStakePlaced        = "stake.placed"
	TopicPollCreated        = "poll.created"
	TopicPollCancelled      = "poll.cancelled"
	TopicEmergencyWithdrawn = "emergency.withdrawn"
	TopicMarketPaused       = "market.paused"
	TopicMarketUnpaused     = "market.unpaused"
	TopicOracleChanged      = "oracle.changed"
	TopicMatchCreated       = "match.created"
	TopicMatchUpdated       = "match.updated"
	TopicMatchFinished      = "match.finished"
)

// EventStream is the durable stream all ledger events are appended to, in
// addition to their per-topic pub/sub channel.
const EventStream = "marketd:events"

// Event is one structured ledger event.
type Event struct {
	ID     string `json:"id"` // UUID
	Topic  string `json:"topic"`
	At     int64  `json:"at"` // unix seconds
	PollID uint64 `json:"poll_id,omitempty"`
	User   string `json:"user,omitempty"`
	Amount int64  `json:"amount,omitempty"`
	Side   Side   `json:"side,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// StreamMessage represents a single entry from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
