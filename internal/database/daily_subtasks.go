package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/berealtors/wrapsheet/internal/models"
	"github.com/berealtors/wrapsheet/internal/util"
)

// DailySubtaskInput is the body of POST /api/daily-tasks/{id}/subtasks.
type DailySubtaskInput struct {
	Title        string            `json:"title" validate:"required"`
	Notes        string            `json:"notes"`
	DueDate      *string           `json:"due_date"`
	Status       string            `json:"status"`
	AssignedToID *models.FlexInt64 `json:"assigned_to_id"`
}

// DailySubtaskPatch overlays a subtask; due_date and assigned_to_id may be
// cleared with null.
type DailySubtaskPatch struct {
	Title        models.Optional[string]            `json:"title"`
	Notes        models.Optional[string]            `json:"notes"`
	DueDate      models.Optional[string]            `json:"due_date"`
	Status       models.Optional[models.TaskStatus] `json:"status"`
	AssignedToID models.Optional[models.FlexInt64]  `json:"assigned_to_id"`
}

const dailySubtaskSelect = `
	SELECT s.id, s.task_id, s.title, s.notes, s.due_date, s.status, s.assigned_to_id,
	       s.created_at, s.updated_at, s.completed_at, u.name, u.email
	FROM daily_task_subtasks s
	LEFT JOIN users u ON s.assigned_to_id = u.id`

func scanDailySubtask(row rowScanner) (models.DailySubtask, error) {
	var s models.DailySubtask
	err := row.Scan(&s.ID, &s.TaskID, &s.Title, &s.Notes, &s.DueDate, &s.Status, &s.AssignedToID,
		&s.CreatedAt, &s.UpdatedAt, &s.CompletedAt, &s.AssignedToName, &s.AssignedToEmail)
	return s, err
}

// ListDailySubtasks returns a task's subtasks, dated ones first.
func (d *Database) ListDailySubtasks(ctx context.Context, taskID int64) ([]models.DailySubtask, error) {
	return withDBContextResult(d, ctx, func(ctx context.Context) ([]models.DailySubtask, error) {
		grouped, err := loadTaskSubtasks(ctx, d.DB, []int64{taskID})
		if err != nil {
			return nil, err
		}
		if list := grouped[taskID]; list != nil {
			return list, nil
		}
		return []models.DailySubtask{}, nil
	})
}

func getDailySubtask(ctx context.Context, q querier, id int64) (models.DailySubtask, error) {
	s, err := scanDailySubtask(q.QueryRowContext(ctx, dailySubtaskSelect+" WHERE s.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.DailySubtask{}, notFound(EntityDailySubtask, "get", id)
	}
	if err != nil {
		return models.DailySubtask{}, wrapErr(EntityDailySubtask, "get", id, err)
	}
	return s, nil
}

// CreateDailySubtask adds a subtask under an existing task.
func (d *Database) CreateDailySubtask(ctx context.Context, taskID int64, in DailySubtaskInput) (models.DailySubtask, error) {
	status := models.StatusPending
	if in.Status != "" {
		status = models.TaskStatus(in.Status)
		if !status.Valid() {
			return models.DailySubtask{}, invalid(EntityDailySubtask, "create", "unknown status "+in.Status)
		}
	}
	assignedTo := positiveID(in.AssignedToID)

	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (models.DailySubtask, error) {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM daily_tasks WHERE id = ?", taskID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return models.DailySubtask{}, notFound(EntityDailyTask, "create subtask", taskID)
		}
		if err != nil {
			return models.DailySubtask{}, wrapErr(EntityDailyTask, "create subtask", taskID, err)
		}

		now := d.nowISO()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO daily_task_subtasks
				(task_id, title, notes, due_date, status, assigned_to_id, created_at, updated_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
			taskID, in.Title, in.Notes, nullableString(util.Deref(in.DueDate)), string(status),
			toNullableArg(assignedTo), now, now)
		if err != nil {
			return models.DailySubtask{}, wrapErr(EntityDailySubtask, "create", 0, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return models.DailySubtask{}, wrapErr(EntityDailySubtask, "create", 0, err)
		}
		return getDailySubtask(ctx, tx, id)
	})
}

// UpdateDailySubtask overlays patch; completed_at follows the done status.
func (d *Database) UpdateDailySubtask(ctx context.Context, id int64, patch DailySubtaskPatch) (models.DailySubtask, error) {
	if patch.Status.Present() && !patch.Status.Value.Valid() {
		return models.DailySubtask{}, invalid(EntityDailySubtask, "update", "unknown status "+string(patch.Status.Value))
	}
	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (models.DailySubtask, error) {
		cur, err := getDailySubtask(ctx, tx, id)
		if err != nil {
			return models.DailySubtask{}, err
		}
		now := d.nowISO()
		status := patch.Status.Or(cur.Status)
		dueDate := patch.DueDate.OrNullable(cur.DueDate)

		var assignedTo *int64
		if patch.AssignedToID.Set {
			if patch.AssignedToID.Present() {
				assignedTo = util.Ptr(int64(patch.AssignedToID.Value))
			}
		} else {
			assignedTo = cur.AssignedToID
		}
		completedAt := completionStamp(string(cur.Status), string(status), cur.CompletedAt, now)

		if _, err := tx.ExecContext(ctx, `
			UPDATE daily_task_subtasks
			SET title = ?, notes = ?, due_date = ?, status = ?, assigned_to_id = ?, completed_at = ?, updated_at = ?
			WHERE id = ?`,
			patch.Title.Or(cur.Title), patch.Notes.Or(cur.Notes), nullableString(util.Deref(dueDate)), string(status),
			toNullableArg(assignedTo), toNullableArg(completedAt), now, id); err != nil {
			return models.DailySubtask{}, wrapErr(EntityDailySubtask, "update", id, err)
		}
		return getDailySubtask(ctx, tx, id)
	})
}

// DeleteDailySubtask removes one subtask.
func (d *Database) DeleteDailySubtask(ctx context.Context, id int64) error {
	return d.withDBContext(ctx, func(ctx context.Context) error {
		if _, err := d.DB.ExecContext(ctx, "DELETE FROM daily_task_subtasks WHERE id = ?", id); err != nil {
			return wrapErr(EntityDailySubtask, "delete", id, err)
		}
		return nil
	})
}
