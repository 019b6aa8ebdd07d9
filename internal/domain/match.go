package domain

// Match is a real-world fixture that polls attach to. Match metadata is
// simple record storage; all settlement logic lives with the polls.
type Match struct {
	ID          uint64 `json:"id"`
	HomeTeam    string `json:"home_team"`
	AwayTeam    string `json:"away_team"`
	League      string `json:"league"`
	Venue       string `json:"venue"`
	KickoffTime int64  `json:"kickoff_time"` // unix seconds
	CreatedBy   string `json:"created_by"`
	Finished    bool   `json:"finished"`
}

// MatchUpdate carries optional field changes for an existing match. Nil
// fields are left untouched.
type MatchUpdate struct {
	HomeTeam    *string `json:"home_team,omitempty"`
	AwayTeam    *string `json:"away_team,omitempty"`
	League      *string `json:"league,omitempty"`
	Venue       *string `json:"venue,omitempty"`
	KickoffTime *int64  `json:"kickoff_time,omitempty"`
}
