package domain

// PollStatus represents the lifecycle state of a poll. The authoritative
// status lives with the external status authority; the Poll record only
// carries the locally-known lifecycle.
type PollStatus string

const (
	// PollStatusActive means the poll is accepting new stakes.
	PollStatusActive PollStatus = "active"
	// PollStatusLocked means the lock time has passed; awaiting the result.
	PollStatusLocked PollStatus = "locked"
	// PollStatusVoting means the community voting window is open.
	PollStatusVoting PollStatus = "voting"
	// PollStatusAdminReview means the vote was inconclusive and needs admin sign-off.
	PollStatusAdminReview PollStatus = "admin_review"
	// PollStatusDisputed means a formal dispute is under review.
	PollStatusDisputed PollStatus = "disputed"
	// PollStatusResolved means the outcome is confirmed.
	PollStatusResolved PollStatus = "resolved"
	// PollStatusCancelled means the poll was cancelled; stakes are refundable.
	PollStatusCancelled PollStatus = "cancelled"
)

// Valid reports whether s is a known status value.
func (s PollStatus) Valid() bool {
	switch s {
	case PollStatusActive, PollStatusLocked, PollStatusVoting,
		PollStatusAdminReview, PollStatusDisputed, PollStatusResolved,
		PollStatusCancelled:
		return true
	}
	return false
}

// PollCategory is the broad kind of event a poll predicts.
type PollCategory string

const (
	CategoryPlayerEvent     PollCategory = "player_event"
	CategoryTeamEvent       PollCategory = "team_event"
	CategoryScorePrediction PollCategory = "score_prediction"
	CategoryOther           PollCategory = "other"
)

// Valid reports whether c is a known category value.
func (c PollCategory) Valid() bool {
	switch c {
	case CategoryPlayerEvent, CategoryTeamEvent, CategoryScorePrediction, CategoryOther:
		return true
	}
	return false
}

// Poll is a binary prediction market attached to a match. Pools and counters
// are mutated in place by staking; polls are never deleted.
//
// Invariant: YesPool + NoPool equals the sum of all stake amounts recorded
// against the poll that have not been emergency-withdrawn.
type Poll struct {
	ID             uint64       `json:"id"`
	MatchID        uint64       `json:"match_id"`
	Creator        string       `json:"creator"`
	Question       string       `json:"question"`
	Category       PollCategory `json:"category"`
	LockTime       int64        `json:"lock_time"` // unix seconds; stakes rejected at or after
	YesPool        int64        `json:"yes_pool"`
	NoPool         int64        `json:"no_pool"`
	YesCount       uint32       `json:"yes_count"`
	NoCount        uint32       `json:"no_count"`
	Status         PollStatus   `json:"status"`
	Outcome        *bool        `json:"outcome,omitempty"` // nil until resolved
	ResolutionTime int64        `json:"resolution_time"`   // 0 if unresolved
	CreatedAt      int64        `json:"created_at"`
}

// PoolInfo is the read-only pool snapshot returned to staking calculators.
type PoolInfo struct {
	YesPool  int64  `json:"yes_pool"`
	NoPool   int64  `json:"no_pool"`
	YesCount uint32 `json:"yes_count"`
	NoCount  uint32 `json:"no_count"`
}
