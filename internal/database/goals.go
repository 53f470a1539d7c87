package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/berealtors/wrapsheet/internal/models"
	"github.com/berealtors/wrapsheet/internal/util"
)

// GoalInput is the body of POST /api/monthly-goals and /api/annual-goals.
// Monthly goals carry month_key, annual goals carry year.
type GoalInput struct {
	OwnerID     models.FlexInt64  `json:"owner_id"`
	MonthKey    models.FlexString `json:"month_key"`
	Year        models.FlexString `json:"year"`
	Category    string            `json:"category"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
}

// Period returns the period key matching t.
func (in GoalInput) Period(t models.GoalType) string {
	if t == models.GoalAnnual {
		return string(in.Year)
	}
	return string(in.MonthKey)
}

// GoalPatch overlays a goal. progress_percent and is_complete honour an
// explicit null (stored as 0).
type GoalPatch struct {
	Title           models.Optional[string]        `json:"title"`
	Description     models.Optional[string]        `json:"description"`
	ProgressPercent models.Optional[int]           `json:"progress_percent"`
	ProgressNote    models.Optional[string]        `json:"progress_note"`
	IsComplete      models.Optional[models.Truthy] `json:"is_complete"`
}

type goalTable struct {
	name      string
	periodCol string
}

func goalTableFor(t models.GoalType) (goalTable, error) {
	switch t {
	case models.GoalMonthly:
		return goalTable{name: "monthly_goals", periodCol: "month_key"}, nil
	case models.GoalAnnual:
		return goalTable{name: "annual_goals", periodCol: "year"}, nil
	}
	return goalTable{}, invalid(EntityGoal, "resolve", fmt.Sprintf("unknown goal type %q", t))
}

func (g goalTable) selectSQL() string {
	return fmt.Sprintf(`
		SELECT g.id, g.owner_id, g.%s, g.category, g.title, g.description, g.progress_percent,
		       g.progress_note, g.is_complete, g.created_at, g.updated_at, u.name, u.email
		FROM %s g
		LEFT JOIN users u ON g.owner_id = u.id`, g.periodCol, g.name)
}

func scanGoal(row rowScanner, t models.GoalType) (models.Goal, error) {
	g := models.Goal{Type: t}
	err := row.Scan(&g.ID, &g.OwnerID, &g.Period, &g.Category, &g.Title, &g.Description, &g.ProgressPercent,
		&g.ProgressNote, &g.IsComplete, &g.CreatedAt, &g.UpdatedAt, &g.OwnerName, &g.OwnerEmail)
	return g, err
}

// ListGoals returns the goals of one period, ordered by category then id.
func (d *Database) ListGoals(ctx context.Context, t models.GoalType, period string, ownerID int64) ([]models.Goal, error) {
	tbl, err := goalTableFor(t)
	if err != nil {
		return nil, err
	}
	return withDBContextResult(d, ctx, func(ctx context.Context) ([]models.Goal, error) {
		query, args := newSelectQuery(tbl.selectSQL()).
			Where("g."+tbl.periodCol+" = ?", period).
			WhereIf(ownerID > 0, "g.owner_id = ?", ownerID).
			OrderBy("g.category, g.id").
			Build()
		rows, err := d.DB.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, wrapErr(EntityGoal, "list", 0, err)
		}
		defer rows.Close()

		goals := []models.Goal{}
		for rows.Next() {
			g, err := scanGoal(rows, t)
			if err != nil {
				return nil, wrapErr(EntityGoal, "list", 0, err)
			}
			goals = append(goals, g)
		}
		if err := rows.Err(); err != nil {
			return nil, wrapErr(EntityGoal, "list", 0, err)
		}
		return goals, nil
	})
}

// GetGoal returns one goal.
func (d *Database) GetGoal(ctx context.Context, t models.GoalType, id int64) (models.Goal, error) {
	return withDBContextResult(d, ctx, func(ctx context.Context) (models.Goal, error) {
		return getGoal(ctx, d.DB, t, id)
	})
}

func getGoal(ctx context.Context, q querier, t models.GoalType, id int64) (models.Goal, error) {
	tbl, err := goalTableFor(t)
	if err != nil {
		return models.Goal{}, err
	}
	g, err := scanGoal(q.QueryRowContext(ctx, tbl.selectSQL()+" WHERE g.id = ?", id), t)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Goal{}, notFound(EntityGoal, "get", id)
	}
	if err != nil {
		return models.Goal{}, wrapErr(EntityGoal, "get", id, err)
	}
	return g, nil
}

// CreateGoal inserts a goal with zero progress.
func (d *Database) CreateGoal(ctx context.Context, t models.GoalType, in GoalInput) (models.Goal, error) {
	tbl, err := goalTableFor(t)
	if err != nil {
		return models.Goal{}, err
	}
	if in.OwnerID <= 0 || in.Period(t) == "" || in.Category == "" || in.Title == "" {
		return models.Goal{}, invalid(EntityGoal, "create", "Missing required fields")
	}
	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (models.Goal, error) {
		now := d.nowISO()
		res, err := tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (owner_id, %s, category, title, description,
			                progress_percent, progress_note, is_complete, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, 0, '', 0, ?, ?)`, tbl.name, tbl.periodCol),
			int64(in.OwnerID), in.Period(t), in.Category, in.Title, in.Description, now, now)
		if err != nil {
			return models.Goal{}, wrapErr(EntityGoal, "create", 0, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return models.Goal{}, wrapErr(EntityGoal, "create", 0, err)
		}
		return getGoal(ctx, tx, t, id)
	})
}

// UpdateGoal overlays patch onto a goal.
func (d *Database) UpdateGoal(ctx context.Context, t models.GoalType, id int64, patch GoalPatch) (models.Goal, error) {
	tbl, err := goalTableFor(t)
	if err != nil {
		return models.Goal{}, err
	}
	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (models.Goal, error) {
		cur, err := getGoal(ctx, tx, t, id)
		if err != nil {
			return models.Goal{}, err
		}
		progress := cur.ProgressPercent
		if patch.ProgressPercent.Set {
			progress = util.Clamp(patch.ProgressPercent.Value, 0, 100)
		}
		isComplete := cur.IsComplete
		if patch.IsComplete.Set {
			isComplete = util.BoolToInt(bool(patch.IsComplete.Value))
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
			UPDATE %s
			SET title = ?, description = ?, progress_percent = ?, progress_note = ?, is_complete = ?, updated_at = ?
			WHERE id = ?`, tbl.name),
			patch.Title.Or(cur.Title), patch.Description.Or(cur.Description), progress,
			patch.ProgressNote.Or(cur.ProgressNote), isComplete, d.nowISO(), id); err != nil {
			return models.Goal{}, wrapErr(EntityGoal, "update", id, err)
		}
		return getGoal(ctx, tx, t, id)
	})
}

// DeleteGoal removes a goal and its subtasks.
func (d *Database) DeleteGoal(ctx context.Context, t models.GoalType, id int64) error {
	tbl, err := goalTableFor(t)
	if err != nil {
		return err
	}
	return d.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM goal_subtasks WHERE goal_type = ? AND goal_id = ?", string(t), id); err != nil {
			return wrapErr(EntityGoal, "delete subtasks", id, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+tbl.name+" WHERE id = ?", id); err != nil {
			return wrapErr(EntityGoal, "delete", id, err)
		}
		return nil
	})
}

// RecalculateGoalProgress recomputes a goal's progress from the weights of
// its subtasks and stores it.
func (d *Database) RecalculateGoalProgress(ctx context.Context, t models.GoalType, goalID int64) (int, error) {
	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (int, error) {
		return recalcGoalProgress(ctx, tx, t, goalID, d.nowISO())
	})
}

func recalcGoalProgress(ctx context.Context, q querier, t models.GoalType, goalID int64, now string) (int, error) {
	tbl, err := goalTableFor(t)
	if err != nil {
		return 0, err
	}
	var total, done int64
	if err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(weight), 0),
		       COALESCE(SUM(CASE WHEN status = 'done' THEN weight ELSE 0 END), 0)
		FROM goal_subtasks
		WHERE goal_type = ? AND goal_id = ?`, string(t), goalID).Scan(&total, &done); err != nil {
		return 0, wrapErr(EntityGoal, "recalculate", goalID, err)
	}
	percent := models.ProgressPercent(done, total)
	if _, err := q.ExecContext(ctx, "UPDATE "+tbl.name+" SET progress_percent = ?, updated_at = ? WHERE id = ?",
		percent, now, goalID); err != nil {
		return 0, wrapErr(EntityGoal, "recalculate", goalID, err)
	}
	return percent, nil
}
