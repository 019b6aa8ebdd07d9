package market

import "time"

const (
	// MinStakeAmount is the smallest accepted stake, in token units.
	MinStakeAmount int64 = 10

	// PlatformFeeBps is the platform fee taken from winnings, in basis
	// points. 500 bps = 5%.
	PlatformFeeBps int64 = 500

	// BpsDenominator converts basis-point values to fractions.
	BpsDenominator int64 = 10_000

	// EmergencyTimeoutSecs is how long a poll may sit in a disputed or
	// locked state before stakers can pull their funds back out.
	// 604 800 s = 7 days.
	EmergencyTimeoutSecs int64 = 604_800

	// MaxQuestionLength is the maximum byte length of a poll question.
	MaxQuestionLength = 256

	// MaxPollsPerMatch caps the number of polls attached to one match.
	MaxPollsPerMatch = 50
)

// pollLockTTL bounds how long a mutating operation may hold a poll's
// serialization lock.
const pollLockTTL = 10 * time.Second
