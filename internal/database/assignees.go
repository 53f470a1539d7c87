package database

import (
	"context"
	"database/sql"
)

// normalizeAssignees drops non-positive ids, removes duplicates keeping the
// first occurrence, and appends the primary when it is missing.
func normalizeAssignees(ids []int64, primary int64) []int64 {
	seen := make(map[int64]bool, len(ids)+1)
	out := make([]int64, 0, len(ids)+1)
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if primary > 0 && !seen[primary] {
		out = append(out, primary)
	}
	return out
}

// ReplaceTaskAssignees replaces the whole assignee set of a daily task.
func (d *Database) ReplaceTaskAssignees(ctx context.Context, taskID int64, ids []int64, primary int64) error {
	return d.WithTx(ctx, func(tx *sql.Tx) error {
		return replaceTaskAssignees(ctx, tx, taskID, ids, primary)
	})
}

// ReplaceStepAssignees replaces the whole assignee set of a project step.
func (d *Database) ReplaceStepAssignees(ctx context.Context, stepID int64, ids []int64, primary int64) error {
	return d.WithTx(ctx, func(tx *sql.Tx) error {
		return replaceStepAssignees(ctx, tx, stepID, ids, primary, d.nowISO())
	})
}

func replaceTaskAssignees(ctx context.Context, q querier, taskID int64, ids []int64, primary int64) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM daily_task_assignees WHERE task_id = ?", taskID); err != nil {
		return wrapErr(EntityDailyTask, "clear assignees", taskID, err)
	}
	for _, uid := range normalizeAssignees(ids, primary) {
		if _, err := q.ExecContext(ctx, "INSERT INTO daily_task_assignees (task_id, user_id) VALUES (?, ?)", taskID, uid); err != nil {
			return wrapErr(EntityDailyTask, "add assignee", taskID, err)
		}
	}
	return nil
}

func replaceStepAssignees(ctx context.Context, q querier, stepID int64, ids []int64, primary int64, now string) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM project_step_assignees WHERE step_id = ?", stepID); err != nil {
		return wrapErr(EntityProjectStep, "clear assignees", stepID, err)
	}
	for _, uid := range normalizeAssignees(ids, primary) {
		if _, err := q.ExecContext(ctx, "INSERT INTO project_step_assignees (step_id, user_id, created_at) VALUES (?, ?, ?)", stepID, uid, now); err != nil {
			return wrapErr(EntityProjectStep, "add assignee", stepID, err)
		}
	}
	return nil
}

// TaskAssigneeIDs returns the raw join rows of a task, in ascending order.
func (d *Database) TaskAssigneeIDs(ctx context.Context, taskID int64) ([]int64, error) {
	return withDBContextResult(d, ctx, func(ctx context.Context) ([]int64, error) {
		return scanIDs(ctx, d.DB, "SELECT user_id FROM daily_task_assignees WHERE task_id = ? ORDER BY user_id", taskID)
	})
}

// StepAssigneeIDs returns the raw join rows of a step, in ascending order.
func (d *Database) StepAssigneeIDs(ctx context.Context, stepID int64) ([]int64, error) {
	return withDBContextResult(d, ctx, func(ctx context.Context) ([]int64, error) {
		return scanIDs(ctx, d.DB, "SELECT user_id FROM project_step_assignees WHERE step_id = ? ORDER BY user_id", stepID)
	})
}

func scanIDs(ctx context.Context, q querier, query string, args ...interface{}) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
