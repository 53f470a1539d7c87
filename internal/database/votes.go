package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/berealtors/wrapsheet/internal/config"
	"github.com/berealtors/wrapsheet/internal/models"
	"github.com/berealtors/wrapsheet/internal/util"
)

// Vote toggle messages.
const (
	VoteAddedMessage   = "Vote added"
	VoteRemovedMessage = "Vote removed"
)

// ToggleVote retracts userID's vote on itemID if one exists and casts one
// otherwise. Casting fails with ErrVoteLimit once the user holds
// config.MonthlyVoteLimit votes in the UTC month of now. Retracting is
// always allowed and frees quota only when the vote belongs to that month.
func (d *Database) ToggleVote(ctx context.Context, itemID, userID int64, now time.Time) (models.VoteResult, error) {
	if userID <= 0 {
		return models.VoteResult{}, invalid(EntityVote, "toggle", "userId required")
	}
	month := util.MonthKey(now)

	// BEGIN IMMEDIATE (see Open) makes the count-then-insert atomic.
	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (models.VoteResult, error) {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM pillar_suggestions WHERE id = ?", itemID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return models.VoteResult{}, notFound(EntitySuggestion, "vote", itemID)
		}
		if err != nil {
			return models.VoteResult{}, wrapErr(EntitySuggestion, "vote", itemID, err)
		}

		var voteID int64
		err = tx.QueryRowContext(ctx,
			"SELECT id FROM task_votes WHERE task_id = ? AND user_id = ? LIMIT 1", itemID, userID).Scan(&voteID)
		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx, "DELETE FROM task_votes WHERE id = ?", voteID); err != nil {
				return models.VoteResult{}, wrapErr(EntityVote, "retract", voteID, err)
			}
			return models.VoteResult{Voted: false, Message: VoteRemovedMessage}, nil
		case !errors.Is(err, sql.ErrNoRows):
			return models.VoteResult{}, wrapErr(EntityVote, "lookup", itemID, err)
		}

		used, err := countVotes(ctx, tx, userID, month)
		if err != nil {
			return models.VoteResult{}, err
		}
		if used >= config.MonthlyVoteLimit {
			return models.VoteResult{}, wrapErr(EntityVote, "cast", itemID, ErrVoteLimit)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO task_votes (task_id, user_id, vote_month, created_at) VALUES (?, ?, ?, ?)",
			itemID, userID, month, util.NowISO(now)); err != nil {
			return models.VoteResult{}, wrapErr(EntityVote, "cast", itemID, err)
		}
		return models.VoteResult{Voted: true, Message: VoteAddedMessage}, nil
	})
}

// VoteUsage reports how much of the monthly quota userID has used in the
// UTC month of now.
func (d *Database) VoteUsage(ctx context.Context, userID int64, now time.Time) (models.VoteUsage, error) {
	month := util.MonthKey(now)
	return withDBContextResult(d, ctx, func(ctx context.Context) (models.VoteUsage, error) {
		used, err := countVotes(ctx, d.DB, userID, month)
		if err != nil {
			return models.VoteUsage{}, err
		}
		return models.VoteUsage{
			Used:      used,
			Remaining: max(0, config.MonthlyVoteLimit-used),
			Limit:     config.MonthlyVoteLimit,
			Month:     month,
		}, nil
	})
}

func countVotes(ctx context.Context, q querier, userID int64, month string) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM task_votes WHERE user_id = ? AND vote_month = ?", userID, month).Scan(&n); err != nil {
		return 0, wrapErr(EntityVote, "count", userID, err)
	}
	return n, nil
}
