package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/berealtors/wrapsheet/internal/models"
)

// WeeklyTaskInput is the body of POST /api/weekly-tasks.
type WeeklyTaskInput struct {
	Title        string            `json:"title"`
	Notes        string            `json:"notes"`
	WeekKey      string            `json:"week_key"`
	AssignedToID models.FlexInt64  `json:"assigned_to_id"`
	AssignedByID *models.FlexInt64 `json:"assigned_by_id"`
	Priority     int               `json:"priority"`
}

// WeeklyTaskPatch overlays a weekly task.
type WeeklyTaskPatch struct {
	Title    models.Optional[string]            `json:"title"`
	Notes    models.Optional[string]            `json:"notes"`
	Status   models.Optional[models.TaskStatus] `json:"status"`
	Priority models.Optional[int]               `json:"priority"`
}

// WeeklyTaskList is the GET /api/weekly-tasks envelope.
type WeeklyTaskList struct {
	Week  string              `json:"week"`
	Tasks []models.WeeklyTask `json:"tasks"`
}

const weeklyTaskSelect = `
	SELECT t.id, t.title, t.notes, t.week_key, t.assigned_to_id, t.assigned_by_id, t.status, t.priority,
	       t.completed_at, t.created_at, t.updated_at, u1.name, u2.name
	FROM weekly_tasks t
	LEFT JOIN users u1 ON t.assigned_to_id = u1.id
	LEFT JOIN users u2 ON t.assigned_by_id = u2.id`

func scanWeeklyTask(row rowScanner) (models.WeeklyTask, error) {
	var t models.WeeklyTask
	err := row.Scan(&t.ID, &t.Title, &t.Notes, &t.WeekKey, &t.AssignedToID, &t.AssignedByID, &t.Status, &t.Priority,
		&t.CompletedAt, &t.CreatedAt, &t.UpdatedAt, &t.AssignedToName, &t.AssignedByName)
	return t, err
}

// ListWeeklyTasks returns one ISO week's tasks, highest priority first.
func (d *Database) ListWeeklyTasks(ctx context.Context, weekKey string, userID int64) (WeeklyTaskList, error) {
	return withDBContextResult(d, ctx, func(ctx context.Context) (WeeklyTaskList, error) {
		query, args := newSelectQuery(weeklyTaskSelect).
			Where("t.week_key = ?", weekKey).
			WhereIf(userID > 0, "t.assigned_to_id = ?", userID).
			OrderBy("t.priority DESC, t.created_at").
			Build()
		rows, err := d.DB.QueryContext(ctx, query, args...)
		if err != nil {
			return WeeklyTaskList{}, wrapErr(EntityWeeklyTask, "list", 0, err)
		}
		defer rows.Close()

		out := WeeklyTaskList{Week: weekKey, Tasks: []models.WeeklyTask{}}
		for rows.Next() {
			t, err := scanWeeklyTask(rows)
			if err != nil {
				return WeeklyTaskList{}, wrapErr(EntityWeeklyTask, "list", 0, err)
			}
			out.Tasks = append(out.Tasks, t)
		}
		return out, wrapErr(EntityWeeklyTask, "list", 0, rows.Err())
	})
}

func getWeeklyTask(ctx context.Context, q querier, id int64) (models.WeeklyTask, error) {
	t, err := scanWeeklyTask(q.QueryRowContext(ctx, weeklyTaskSelect+" WHERE t.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.WeeklyTask{}, notFound(EntityWeeklyTask, "get", id)
	}
	if err != nil {
		return models.WeeklyTask{}, wrapErr(EntityWeeklyTask, "get", id, err)
	}
	return t, nil
}

// CreateWeeklyTask inserts a pending weekly task.
func (d *Database) CreateWeeklyTask(ctx context.Context, in WeeklyTaskInput) (models.WeeklyTask, error) {
	if in.Title == "" || in.WeekKey == "" || in.AssignedToID <= 0 {
		return models.WeeklyTask{}, invalid(EntityWeeklyTask, "create", "title, week_key, and assigned_to_id are required")
	}
	assignedBy := positiveID(in.AssignedByID)
	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (models.WeeklyTask, error) {
		now := d.nowISO()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO weekly_tasks
				(title, notes, week_key, assigned_to_id, assigned_by_id, status, priority, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, 'pending', ?, ?, ?)`,
			in.Title, in.Notes, in.WeekKey, int64(in.AssignedToID), toNullableArg(assignedBy), in.Priority, now, now)
		if err != nil {
			return models.WeeklyTask{}, wrapErr(EntityWeeklyTask, "create", 0, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return models.WeeklyTask{}, wrapErr(EntityWeeklyTask, "create", 0, err)
		}
		return getWeeklyTask(ctx, tx, id)
	})
}

// UpdateWeeklyTask overlays patch; completed_at follows the done status.
func (d *Database) UpdateWeeklyTask(ctx context.Context, id int64, patch WeeklyTaskPatch) (models.WeeklyTask, error) {
	if patch.Status.Present() && !patch.Status.Value.Valid() {
		return models.WeeklyTask{}, invalid(EntityWeeklyTask, "update", "unknown status "+string(patch.Status.Value))
	}
	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (models.WeeklyTask, error) {
		cur, err := getWeeklyTask(ctx, tx, id)
		if err != nil {
			return models.WeeklyTask{}, err
		}
		now := d.nowISO()
		status := patch.Status.Or(cur.Status)
		completedAt := completionStamp(string(cur.Status), string(status), cur.CompletedAt, now)
		if _, err := tx.ExecContext(ctx, `
			UPDATE weekly_tasks
			SET title = ?, notes = ?, status = ?, priority = ?, completed_at = ?, updated_at = ?
			WHERE id = ?`,
			patch.Title.Or(cur.Title), patch.Notes.Or(cur.Notes), string(status), patch.Priority.Or(cur.Priority),
			toNullableArg(completedAt), now, id); err != nil {
			return models.WeeklyTask{}, wrapErr(EntityWeeklyTask, "update", id, err)
		}
		return getWeeklyTask(ctx, tx, id)
	})
}

// DeleteWeeklyTask removes one weekly task.
func (d *Database) DeleteWeeklyTask(ctx context.Context, id int64) error {
	return d.withDBContext(ctx, func(ctx context.Context) error {
		if _, err := d.DB.ExecContext(ctx, "DELETE FROM weekly_tasks WHERE id = ?", id); err != nil {
			return wrapErr(EntityWeeklyTask, "delete", id, err)
		}
		return nil
	})
}
