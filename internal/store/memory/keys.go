package memory

import "fmt"

// Record kinds. Every stored record is addressed by a tagged key (the kind
// plus its identifying fields) mapped deterministically to a string address,
// mirroring the keyed layout the persistent backends use.
const (
	kindState      = "state"
	kindStats      = "stats"
	kindNextPoll   = "next_poll_id"
	kindNextMatch  = "next_match_id"
	kindPoll       = "poll"
	kindStake      = "stake"
	kindHasStaked  = "has_staked"
	kindUserStakes = "user_stakes"
	kindEmClaimed  = "emergency_claimed"
	kindMatch      = "match"
	kindMatchPolls = "match_polls"
)

func pollKey(id uint64) string               { return fmt.Sprintf("%s/%d", kindPoll, id) }
func stakeKey(id uint64, user string) string { return fmt.Sprintf("%s/%d/%s", kindStake, id, user) }
func hasStakedKey(id uint64, user string) string {
	return fmt.Sprintf("%s/%d/%s", kindHasStaked, id, user)
}
func userStakesKey(user string) string { return fmt.Sprintf("%s/%s", kindUserStakes, user) }
func emClaimedKey(id uint64, user string) string {
	return fmt.Sprintf("%s/%d/%s", kindEmClaimed, id, user)
}
func matchKey(id uint64) string      { return fmt.Sprintf("%s/%d", kindMatch, id) }
func matchPollsKey(id uint64) string { return fmt.Sprintf("%s/%d", kindMatchPolls, id) }
