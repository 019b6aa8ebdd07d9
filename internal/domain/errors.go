package domain

import "errors"

// Precondition errors returned by the ledger engine. Every violation aborts
// the whole operation; no partial writes persist.
var (
	ErrNotInitialized      = errors.New("market not initialized")
	ErrAlreadyInitialized  = errors.New("market already initialized")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrPaused              = errors.New("market is paused")
	ErrPollNotFound        = errors.New("poll not found")
	ErrPollNotActive       = errors.New("poll is not active")
	ErrPollLocked          = errors.New("poll is locked")
	ErrStakeAmountZero     = errors.New("stake amount below minimum")
	ErrAlreadyStaked       = errors.New("user already staked on this poll")
	ErrNotStaker           = errors.New("no stake for user on this poll")
	ErrAlreadyClaimed      = errors.New("already claimed")
	ErrEmergencyNotAllowed = errors.New("emergency withdrawal not allowed")
	ErrMatchNotFound       = errors.New("match not found")
	ErrMatchAlreadyStarted = errors.New("match has already started")
	ErrInvalidLockTime     = errors.New("lock time must be in the future")
	ErrQuestionTooLong     = errors.New("poll question too long")
	ErrMaxPollsPerMatch    = errors.New("match has reached its poll limit")
	ErrInvalidSide         = errors.New("invalid stake side")
	ErrInvalidCategory     = errors.New("invalid poll category")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrPoolOverflow        = errors.New("stake amount overflows pool")
)

// Infrastructure errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrLockHeld    = errors.New("lock already held")
	ErrRateLimited = errors.New("rate limited")
)
