package domain

// Side is the outcome a staker is backing.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Valid reports whether s is a known side value.
func (s Side) Valid() bool {
	return s == SideYes || s == SideNo
}

// Stake is one user's deposit on one side of a poll. At most one stake
// exists per (poll, user) pair; the record is immutable after creation
// except for the claimed flag.
type Stake struct {
	User     string `json:"user"`
	PollID   uint64 `json:"poll_id"`
	Amount   int64  `json:"amount"`
	Side     Side   `json:"side"`
	Claimed  bool   `json:"claimed"`
	StakedAt int64  `json:"staked_at"` // unix seconds
}
