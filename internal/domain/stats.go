package domain

// PlatformStats are the ledger-wide aggregate counters, mutated in the same
// unit of work as the operation that changes them.
//
// TotalValueLocked increases only on successful stake placement and
// decreases only on emergency withdrawal; it never goes negative.
type PlatformStats struct {
	TotalValueLocked  int64  `json:"total_value_locked"`
	TotalPollsCreated uint64 `json:"total_polls_created"`
	TotalStakesPlaced uint64 `json:"total_stakes_placed"`
	TotalPayouts      int64  `json:"total_payouts"`
	TotalUsers        uint64 `json:"total_users"`
}

// MarketState is the singleton admin/config record for the market: who the
// admin is, which status authority is wired, and whether admin-gated
// operations are paused.
type MarketState struct {
	Admin       string `json:"admin"`
	OracleRef   string `json:"oracle_ref"`
	Paused      bool   `json:"paused"`
	Initialized bool   `json:"initialized"`
}
