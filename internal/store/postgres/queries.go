package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/predictx/marketd/internal/domain"
)

// DBTX is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx, so
// every query below serves plain reads and transactional reads alike.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// queries holds the shared SQL against a pool or an open transaction. With
// locking set, single-row reads take FOR UPDATE so concurrent units of work
// serialize on the rows they touch.
type queries struct {
	db      DBTX
	locking bool
}

func (q queries) lockSuffix() string {
	if q.locking {
		return " FOR UPDATE"
	}
	return ""
}

func (q queries) state(ctx context.Context) (domain.MarketState, error) {
	var state domain.MarketState
	err := q.db.QueryRow(ctx,
		`SELECT admin_addr, oracle_ref, paused, initialized FROM market_state WHERE id = 1`+q.lockSuffix(),
	).Scan(&state.Admin, &state.OracleRef, &state.Paused, &state.Initialized)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MarketState{}, nil
	}
	if err != nil {
		return domain.MarketState{}, fmt.Errorf("postgres: load state: %w", err)
	}
	return state, nil
}

func (q queries) putState(ctx context.Context, state domain.MarketState) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO market_state (id, admin_addr, oracle_ref, paused, initialized)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			admin_addr  = EXCLUDED.admin_addr,
			oracle_ref  = EXCLUDED.oracle_ref,
			paused      = EXCLUDED.paused,
			initialized = EXCLUDED.initialized`,
		state.Admin, state.OracleRef, state.Paused, state.Initialized,
	)
	if err != nil {
		return fmt.Errorf("postgres: put state: %w", err)
	}
	return nil
}

const pollCols = `id, match_id, creator, question, category, lock_time,
	yes_pool, no_pool, yes_count, no_count, status, outcome, resolution_time, created_at`

func scanPoll(row pgx.Row) (domain.Poll, error) {
	var (
		p                 domain.Poll
		category, status  string
		yesCount, noCount int64
	)
	err := row.Scan(
		&p.ID, &p.MatchID, &p.Creator, &p.Question, &category, &p.LockTime,
		&p.YesPool, &p.NoPool, &yesCount, &noCount, &status, &p.Outcome,
		&p.ResolutionTime, &p.CreatedAt,
	)
	if err != nil {
		return domain.Poll{}, err
	}
	p.Category = domain.PollCategory(category)
	p.Status = domain.PollStatus(status)
	p.YesCount = uint32(yesCount)
	p.NoCount = uint32(noCount)
	return p, nil
}

func (q queries) getPoll(ctx context.Context, pollID uint64) (domain.Poll, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+pollCols+` FROM polls WHERE id = $1`+q.lockSuffix(), int64(pollID))
	p, err := scanPoll(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Poll{}, domain.ErrPollNotFound
	}
	if err != nil {
		return domain.Poll{}, fmt.Errorf("postgres: get poll %d: %w", pollID, err)
	}
	return p, nil
}

func (q queries) putPoll(ctx context.Context, p domain.Poll) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO polls (
			id, match_id, creator, question, category, lock_time,
			yes_pool, no_pool, yes_count, no_count, status, outcome,
			resolution_time, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			yes_pool        = EXCLUDED.yes_pool,
			no_pool         = EXCLUDED.no_pool,
			yes_count       = EXCLUDED.yes_count,
			no_count        = EXCLUDED.no_count,
			status          = EXCLUDED.status,
			outcome         = EXCLUDED.outcome,
			resolution_time = EXCLUDED.resolution_time`,
		int64(p.ID), int64(p.MatchID), p.Creator, p.Question, string(p.Category), p.LockTime,
		p.YesPool, p.NoPool, int64(p.YesCount), int64(p.NoCount), string(p.Status), p.Outcome,
		p.ResolutionTime, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: put poll %d: %w", p.ID, err)
	}
	return nil
}

func (q queries) listPollsByStatus(ctx context.Context, statuses []domain.PollStatus) ([]domain.Poll, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	rows, err := q.db.Query(ctx,
		`SELECT `+pollCols+` FROM polls WHERE status = ANY($1) ORDER BY id`, names)
	if err != nil {
		return nil, fmt.Errorf("postgres: list polls by status: %w", err)
	}
	defer rows.Close()

	var polls []domain.Poll
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan poll: %w", err)
		}
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list polls rows: %w", err)
	}
	return polls, nil
}

func (q queries) getStake(ctx context.Context, pollID uint64, user string) (domain.Stake, error) {
	var (
		s    domain.Stake
		side string
	)
	err := q.db.QueryRow(ctx, `
		SELECT poll_id, user_addr, amount, side, claimed, staked_at
		FROM stakes WHERE poll_id = $1 AND user_addr = $2`+q.lockSuffix(),
		int64(pollID), user,
	).Scan(&s.PollID, &s.User, &s.Amount, &side, &s.Claimed, &s.StakedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Stake{}, domain.ErrNotStaker
	}
	if err != nil {
		return domain.Stake{}, fmt.Errorf("postgres: get stake %d/%s: %w", pollID, user, err)
	}
	s.Side = domain.Side(side)
	return s, nil
}

func (q queries) putStake(ctx context.Context, s domain.Stake) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO stakes (poll_id, user_addr, amount, side, claimed, staked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (poll_id, user_addr) DO UPDATE SET
			claimed = EXCLUDED.claimed`,
		int64(s.PollID), s.User, s.Amount, string(s.Side), s.Claimed, s.StakedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: put stake %d/%s: %w", s.PollID, s.User, err)
	}
	return nil
}

func (q queries) hasStaked(ctx context.Context, pollID uint64, user string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM stakes WHERE poll_id = $1 AND user_addr = $2)`,
		int64(pollID), user,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: has staked %d/%s: %w", pollID, user, err)
	}
	return exists, nil
}

func (q queries) userStakes(ctx context.Context, user string) ([]uint64, error) {
	rows, err := q.db.Query(ctx,
		`SELECT poll_id FROM stakes WHERE user_addr = $1 ORDER BY seq`, user)
	if err != nil {
		return nil, fmt.Errorf("postgres: user stakes %s: %w", user, err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan user stake: %w", err)
		}
		ids = append(ids, uint64(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: user stakes rows: %w", err)
	}
	return ids, nil
}

func (q queries) emergencyClaimed(ctx context.Context, pollID uint64, user string) (bool, error) {
	var claimed bool
	err := q.db.QueryRow(ctx,
		`SELECT emergency_claimed FROM stakes WHERE poll_id = $1 AND user_addr = $2`,
		int64(pollID), user,
	).Scan(&claimed)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("postgres: emergency claimed %d/%s: %w", pollID, user, err)
	}
	return claimed, nil
}

func (q queries) setEmergencyClaimed(ctx context.Context, pollID uint64, user string) error {
	_, err := q.db.Exec(ctx,
		`UPDATE stakes SET emergency_claimed = TRUE WHERE poll_id = $1 AND user_addr = $2`,
		int64(pollID), user,
	)
	if err != nil {
		return fmt.Errorf("postgres: set emergency claimed %d/%s: %w", pollID, user, err)
	}
	return nil
}

func (q queries) stats(ctx context.Context) (domain.PlatformStats, error) {
	var (
		stats                      domain.PlatformStats
		polls, stakesPlaced, users int64
	)
	err := q.db.QueryRow(ctx, `
		SELECT total_value_locked, total_polls_created, total_stakes_placed,
		       total_payouts, total_users
		FROM platform_stats WHERE id = 1`+q.lockSuffix(),
	).Scan(&stats.TotalValueLocked, &polls, &stakesPlaced, &stats.TotalPayouts, &users)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PlatformStats{}, nil
	}
	if err != nil {
		return domain.PlatformStats{}, fmt.Errorf("postgres: load stats: %w", err)
	}
	stats.TotalPollsCreated = uint64(polls)
	stats.TotalStakesPlaced = uint64(stakesPlaced)
	stats.TotalUsers = uint64(users)
	return stats, nil
}

func (q queries) putStats(ctx context.Context, stats domain.PlatformStats) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO platform_stats (
			id, total_value_locked, total_polls_created, total_stakes_placed,
			total_payouts, total_users
		) VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			total_value_locked  = EXCLUDED.total_value_locked,
			total_polls_created = EXCLUDED.total_polls_created,
			total_stakes_placed = EXCLUDED.total_stakes_placed,
			total_payouts       = EXCLUDED.total_payouts,
			total_users         = EXCLUDED.total_users`,
		stats.TotalValueLocked, int64(stats.TotalPollsCreated), int64(stats.TotalStakesPlaced),
		stats.TotalPayouts, int64(stats.TotalUsers),
	)
	if err != nil {
		return fmt.Errorf("postgres: put stats: %w", err)
	}
	return nil
}

func (q queries) getMatch(ctx context.Context, matchID uint64) (domain.Match, error) {
	var m domain.Match
	err := q.db.QueryRow(ctx, `
		SELECT id, home_team, away_team, league, venue, kickoff_time, created_by, finished
		FROM matches WHERE id = $1`+q.lockSuffix(),
		int64(matchID),
	).Scan(&m.ID, &m.HomeTeam, &m.AwayTeam, &m.League, &m.Venue, &m.KickoffTime, &m.CreatedBy, &m.Finished)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	if err != nil {
		return domain.Match{}, fmt.Errorf("postgres: get match %d: %w", matchID, err)
	}
	return m, nil
}

func (q queries) putMatch(ctx context.Context, m domain.Match) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO matches (id, home_team, away_team, league, venue, kickoff_time, created_by, finished)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			home_team    = EXCLUDED.home_team,
			away_team    = EXCLUDED.away_team,
			league       = EXCLUDED.league,
			venue        = EXCLUDED.venue,
			kickoff_time = EXCLUDED.kickoff_time,
			finished     = EXCLUDED.finished`,
		int64(m.ID), m.HomeTeam, m.AwayTeam, m.League, m.Venue, m.KickoffTime, m.CreatedBy, m.Finished,
	)
	if err != nil {
		return fmt.Errorf("postgres: put match %d: %w", m.ID, err)
	}
	return nil
}

func (q queries) matchPolls(ctx context.Context, matchID uint64) ([]uint64, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id FROM polls WHERE match_id = $1 ORDER BY id`, int64(matchID))
	if err != nil {
		return nil, fmt.Errorf("postgres: match polls %d: %w", matchID, err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan match poll: %w", err)
		}
		ids = append(ids, uint64(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: match polls rows: %w", err)
	}
	return ids, nil
}

func (q queries) matchCount(ctx context.Context) (uint64, error) {
	var count int64
	if err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM matches`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count matches: %w", err)
	}
	return uint64(count), nil
}

func (q queries) nextID(ctx context.Context, sequence string) (uint64, error) {
	var id int64
	if err := q.db.QueryRow(ctx, `SELECT nextval($1)`, sequence).Scan(&id); err != nil {
		return 0, fmt.Errorf("postgres: next id from %s: %w", sequence, err)
	}
	return uint64(id), nil
}
