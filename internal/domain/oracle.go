package domain

import "context"

// Oracle is the external status authority for polls. The market consumes
// its state transiently per call and never persists it as ground truth.
//
// ref identifies the authority instance (set at initialize / set_oracle);
// passing it per call lets an admin rewire the authority without rebuilding
// the client.
type Oracle interface {
	// Status returns the authority's current status for the poll.
	Status(ctx context.Context, ref string, pollID uint64) (PollStatus, error)

	// StatusUpdatedAt returns the unix timestamp of the authority's last
	// status write for the poll, or 0 if the status was never set.
	StatusUpdatedAt(ctx context.Context, ref string, pollID uint64) (int64, error)

	// SetStatus writes a status to the authority. Only the admin-gated
	// cancellation path uses this.
	SetStatus(ctx context.Context, ref string, pollID uint64, status PollStatus) error
}
