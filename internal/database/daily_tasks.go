package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/berealtors/wrapsheet/internal/models"
)

// DailyTaskInput is the body of POST /api/daily-tasks.
type DailyTaskInput struct {
	Title        string           `json:"title" validate:"required"`
	Notes        string           `json:"notes"`
	TaskDate     string           `json:"task_date" validate:"required"`
	TaskTime     *string          `json:"task_time"`
	Status       string           `json:"status"`
	CreatedByID  models.FlexInt64 `json:"created_by_id" validate:"required"`
	AssignedToID models.FlexInt64 `json:"assigned_to_id" validate:"required"`
	AssignedByID models.FlexInt64 `json:"assigned_by_id" validate:"required"`
	AssigneeIDs  models.IDList    `json:"assignee_ids"`
}

// DailyTaskPatch overlays a daily task. Absent fields keep their value;
// task_time may be cleared with null. AssigneeIDs always replaces the
// assignee set (the primary is re-added).
type DailyTaskPatch struct {
	Title        models.Optional[string]            `json:"title"`
	Notes        models.Optional[string]            `json:"notes"`
	TaskDate     models.Optional[string]            `json:"task_date"`
	TaskTime     models.Optional[string]            `json:"task_time"`
	AssignedToID models.Optional[models.FlexInt64]  `json:"assigned_to_id"`
	Status       models.Optional[models.TaskStatus] `json:"status"`
	AssigneeIDs  models.IDList                      `json:"assignee_ids"`
}

// DailyTaskUpdate is the outcome of UpdateDailyTask.
type DailyTaskUpdate struct {
	Task models.DailyTask
	// NotifyCompletion is set when the task just moved to done and was
	// assigned by someone other than its assignee.
	NotifyCompletion bool
	// GoalProgress is the recalculated percent of a goal whose linked
	// subtask was completed by this update, or nil.
	GoalProgress *int
}

const dailyTaskSelect = `
	SELECT dt.id, dt.title, dt.notes, dt.task_date, dt.task_time, dt.created_by_id,
	       dt.assigned_to_id, dt.assigned_by_id, dt.assigned_at, dt.status, dt.completed_at,
	       dt.completion_notified, dt.created_at, dt.updated_at,
	       u_created.name, u_assigned.name, u_assigned.email, u_assigner.name, u_assigner.email
	FROM daily_tasks dt
	LEFT JOIN users u_created  ON dt.created_by_id  = u_created.id
	LEFT JOIN users u_assigned ON dt.assigned_to_id = u_assigned.id
	LEFT JOIN users u_assigner ON dt.assigned_by_id = u_assigner.id`

func scanDailyTask(row rowScanner) (models.DailyTask, error) {
	var t models.DailyTask
	err := row.Scan(&t.ID, &t.Title, &t.Notes, &t.TaskDate, &t.TaskTime, &t.CreatedByID,
		&t.AssignedToID, &t.AssignedByID, &t.AssignedAt, &t.Status, &t.CompletedAt,
		&t.CompletionNotified, &t.CreatedAt, &t.UpdatedAt,
		&t.CreatedByName, &t.AssignedToName, &t.AssignedToEmail, &t.AssignedByName, &t.AssignedByEmail)
	return t, err
}

// ListDailyTasks returns the tasks dated within month (YYYY-MM), optionally
// restricted to tasks where the user is the primary assignee or in the
// assignee set, each hydrated with its assignees and subtasks.
func (d *Database) ListDailyTasks(ctx context.Context, month string, assignedToID int64) ([]models.DailyTask, error) {
	return withDBContextResult(d, ctx, func(ctx context.Context) ([]models.DailyTask, error) {
		query, args := newSelectQuery(dailyTaskSelect).
			Where("dt.task_date BETWEEN ? AND ?", month+"-01", month+"-31").
			WhereIf(assignedToID > 0, `(dt.assigned_to_id = ? OR EXISTS (
				SELECT 1 FROM daily_task_assignees dta WHERE dta.task_id = dt.id AND dta.user_id = ?))`,
				assignedToID, assignedToID).
			OrderBy("dt.task_date, dt.id").
			Build()

		rows, err := d.DB.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, wrapErr(EntityDailyTask, "list", 0, err)
		}
		tasks := []models.DailyTask{}
		for rows.Next() {
			t, err := scanDailyTask(rows)
			if err != nil {
				rows.Close()
				return nil, wrapErr(EntityDailyTask, "list", 0, err)
			}
			tasks = append(tasks, t)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, wrapErr(EntityDailyTask, "list", 0, err)
		}
		if err := hydrateDailyTasks(ctx, d.DB, tasks); err != nil {
			return nil, err
		}
		return tasks, nil
	})
}

func hydrateDailyTasks(ctx context.Context, q querier, tasks []models.DailyTask) error {
	if len(tasks) == 0 {
		return nil
	}
	ids := make([]int64, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	assignees, err := loadTaskAssignees(ctx, q, ids)
	if err != nil {
		return err
	}
	subtasks, err := loadTaskSubtasks(ctx, q, ids)
	if err != nil {
		return err
	}
	for i := range tasks {
		t := &tasks[i]
		t.Assignees = withFallbackAssignee(assignees[t.ID], t.AssignedToID, t.AssignedToName, t.AssignedToEmail)
		t.Subtasks = subtasks[t.ID]
		if t.Subtasks == nil {
			t.Subtasks = []models.DailySubtask{}
		}
	}
	return nil
}

// GetDailyTask returns one hydrated task.
func (d *Database) GetDailyTask(ctx context.Context, id int64) (models.DailyTask, error) {
	return withDBContextResult(d, ctx, func(ctx context.Context) (models.DailyTask, error) {
		return getDailyTask(ctx, d.DB, id)
	})
}

func getDailyTask(ctx context.Context, q querier, id int64) (models.DailyTask, error) {
	t, err := scanDailyTask(q.QueryRowContext(ctx, dailyTaskSelect+" WHERE dt.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.DailyTask{}, notFound(EntityDailyTask, "get", id)
	}
	if err != nil {
		return models.DailyTask{}, wrapErr(EntityDailyTask, "get", id, err)
	}
	tasks := []models.DailyTask{t}
	if err := hydrateDailyTasks(ctx, q, tasks); err != nil {
		return models.DailyTask{}, err
	}
	return tasks[0], nil
}

// CreateDailyTask inserts a task and its assignee set. An unknown status is
// stored as pending.
func (d *Database) CreateDailyTask(ctx context.Context, in DailyTaskInput) (models.DailyTask, error) {
	status := models.TaskStatus(in.Status)
	if !status.Valid() {
		status = models.StatusPending
	}
	var taskTime *string
	if in.TaskTime != nil && *in.TaskTime != "" {
		taskTime = in.TaskTime
	}

	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (models.DailyTask, error) {
		now := d.nowISO()
		id, err := insertDailyTask(ctx, tx, dailyTaskRow{
			Title:        in.Title,
			Notes:        in.Notes,
			TaskDate:     in.TaskDate,
			TaskTime:     taskTime,
			CreatedByID:  int64(in.CreatedByID),
			AssignedToID: int64(in.AssignedToID),
			AssignedByID: int64(in.AssignedByID),
			Status:       status,
		}, now)
		if err != nil {
			return models.DailyTask{}, err
		}
		if err := replaceTaskAssignees(ctx, tx, id, in.AssigneeIDs, int64(in.AssignedToID)); err != nil {
			return models.DailyTask{}, err
		}
		return getDailyTask(ctx, tx, id)
	})
}

type dailyTaskRow struct {
	Title        string
	Notes        string
	TaskDate     string
	TaskTime     *string
	CreatedByID  int64
	AssignedToID int64
	AssignedByID int64
	Status       models.TaskStatus
}

func insertDailyTask(ctx context.Context, q querier, r dailyTaskRow, now string) (int64, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO daily_tasks
			(title, notes, task_date, task_time, created_by_id, assigned_to_id, assigned_by_id,
			 assigned_at, status, completion_notified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		r.Title, r.Notes, r.TaskDate, toNullableArg(r.TaskTime), r.CreatedByID, r.AssignedToID,
		r.AssignedByID, now, string(r.Status), now, now)
	if err != nil {
		return 0, wrapErr(EntityDailyTask, "create", 0, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapErr(EntityDailyTask, "create", 0, err)
	}
	return id, nil
}

// UpdateDailyTask overlays patch onto the task. A transition into done stamps
// completed_at, resets completion_notified, completes a linked goal subtask
// and recalculates that goal. The whole update runs in one transaction.
func (d *Database) UpdateDailyTask(ctx context.Context, id int64, patch DailyTaskPatch) (DailyTaskUpdate, error) {
	if patch.Status.Present() && !patch.Status.Value.Valid() {
		return DailyTaskUpdate{}, invalid(EntityDailyTask, "update", "unknown status "+string(patch.Status.Value))
	}
	if patch.AssignedToID.Present() && patch.AssignedToID.Value <= 0 {
		return DailyTaskUpdate{}, invalid(EntityDailyTask, "update", "Invalid assigned_to_id")
	}

	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (DailyTaskUpdate, error) {
		var out DailyTaskUpdate
		cur, err := scanDailyTask(tx.QueryRowContext(ctx, dailyTaskSelect+" WHERE dt.id = ?", id))
		if errors.Is(err, sql.ErrNoRows) {
			return out, notFound(EntityDailyTask, "update", id)
		}
		if err != nil {
			return out, wrapErr(EntityDailyTask, "update", id, err)
		}

		now := d.nowISO()
		title := patch.Title.Or(cur.Title)
		notes := patch.Notes.Or(cur.Notes)
		taskDate := patch.TaskDate.Or(cur.TaskDate)
		taskTime := patch.TaskTime.OrNullable(cur.TaskTime)
		assignedTo := int64(patch.AssignedToID.Or(models.FlexInt64(cur.AssignedToID)))
		status := patch.Status.Or(cur.Status)

		completedAt := cur.CompletedAt
		notified := cur.CompletionNotified
		changedToDone := cur.Status != models.StatusDone && status == models.StatusDone
		if changedToDone {
			completedAt = &now
			notified = 0
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE daily_tasks
			SET title = ?, notes = ?, task_date = ?, task_time = ?, assigned_to_id = ?, status = ?,
			    completed_at = ?, completion_notified = ?, updated_at = ?
			WHERE id = ?`,
			title, notes, taskDate, toNullableArg(taskTime), assignedTo, string(status),
			toNullableArg(completedAt), notified, now, id); err != nil {
			return out, wrapErr(EntityDailyTask, "update", id, err)
		}
		if err := replaceTaskAssignees(ctx, tx, id, patch.AssigneeIDs, assignedTo); err != nil {
			return out, err
		}

		if changedToDone {
			percent, err := completeLinkedSubtask(ctx, tx, id, now)
			if err != nil {
				return out, err
			}
			out.GoalProgress = percent
		}

		task, err := getDailyTask(ctx, tx, id)
		if err != nil {
			return out, err
		}
		out.Task = task
		out.NotifyCompletion = changedToDone && task.AssignedByID != task.AssignedToID
		return out, nil
	})
}

// completeLinkedSubtask marks the goal subtask promoted into taskID as done
// and recalculates its goal. It returns nil when no subtask is linked.
func completeLinkedSubtask(ctx context.Context, q querier, taskID int64, now string) (*int, error) {
	var subtaskID, goalID int64
	var goalType string
	err := q.QueryRowContext(ctx,
		"SELECT id, goal_type, goal_id FROM goal_subtasks WHERE linked_task_id = ? ORDER BY id LIMIT 1", taskID).
		Scan(&subtaskID, &goalType, &goalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(EntityGoalSubtask, "find linked", taskID, err)
	}
	if _, err := q.ExecContext(ctx,
		"UPDATE goal_subtasks SET status = 'done', completed_at = ?, updated_at = ? WHERE id = ?",
		now, now, subtaskID); err != nil {
		return nil, wrapErr(EntityGoalSubtask, "complete linked", subtaskID, err)
	}
	percent, err := recalcGoalProgress(ctx, q, models.GoalType(goalType), goalID, now)
	if err != nil {
		return nil, err
	}
	return &percent, nil
}

// MarkCompletionNotified records that the completion email was dispatched.
func (d *Database) MarkCompletionNotified(ctx context.Context, id int64) error {
	return d.withDBContext(ctx, func(ctx context.Context) error {
		if _, err := d.DB.ExecContext(ctx, "UPDATE daily_tasks SET completion_notified = 1 WHERE id = ?", id); err != nil {
			return wrapErr(EntityDailyTask, "mark notified", id, err)
		}
		return nil
	})
}

// DeleteDailyTask removes the task with its assignee rows and subtasks and
// unlinks any goal subtask that pointed at it.
func (d *Database) DeleteDailyTask(ctx context.Context, id int64) error {
	return d.WithTx(ctx, func(tx *sql.Tx) error {
		stmts := []string{
			"DELETE FROM daily_task_assignees WHERE task_id = ?",
			"DELETE FROM daily_task_subtasks WHERE task_id = ?",
			"UPDATE goal_subtasks SET linked_task_id = NULL WHERE linked_task_id = ?",
			"DELETE FROM daily_tasks WHERE id = ?",
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return wrapErr(EntityDailyTask, "delete", id, err)
			}
		}
		return nil
	})
}
