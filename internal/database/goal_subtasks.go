package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/berealtors/wrapsheet/internal/config"
	"github.com/berealtors/wrapsheet/internal/models"
)

// GoalSubtaskInput is the body of POST /api/goals/{type}/{id}/subtasks.
type GoalSubtaskInput struct {
	Title  string            `json:"title" validate:"required"`
	Notes  string            `json:"notes"`
	Weight *models.FlexInt64 `json:"weight"`
}

// GoalSubtaskPatch overlays a goal subtask.
type GoalSubtaskPatch struct {
	Title  models.Optional[string]            `json:"title"`
	Notes  models.Optional[string]            `json:"notes"`
	Status models.Optional[models.TaskStatus] `json:"status"`
	Weight models.Optional[models.FlexInt64]  `json:"weight"`
}

// GoalSubtaskUpdate is the result of UpdateGoalSubtask. GoalProgress is set
// when the parent goal was recalculated.
type GoalSubtaskUpdate struct {
	Subtask      models.GoalSubtask
	GoalProgress *int
}

// CalendarInput is the body of POST /api/goal-subtasks/{id}/add-to-calendar.
type CalendarInput struct {
	TaskDate     string           `json:"task_date"`
	AssignedToID models.FlexInt64 `json:"assigned_to_id"`
	AssignedByID models.FlexInt64 `json:"assigned_by_id"`
	CreatedByID  models.FlexInt64 `json:"created_by_id"`
}

// CalendarResult is the daily task created from a goal subtask.
type CalendarResult struct {
	Task      models.DailyTask `json:"task"`
	SubtaskID int64            `json:"subtask_id"`
}

const goalSubtaskSelect = `
	SELECT gs.id, gs.goal_type, gs.goal_id, gs.title, gs.notes, gs.status, gs.weight, gs.linked_task_id,
	       gs.created_at, gs.updated_at, gs.completed_at, dt.title, dt.status
	FROM goal_subtasks gs
	LEFT JOIN daily_tasks dt ON gs.linked_task_id = dt.id`

func scanGoalSubtask(row rowScanner) (models.GoalSubtask, error) {
	var s models.GoalSubtask
	err := row.Scan(&s.ID, &s.GoalType, &s.GoalID, &s.Title, &s.Notes, &s.Status, &s.Weight, &s.LinkedTaskID,
		&s.CreatedAt, &s.UpdatedAt, &s.CompletedAt, &s.LinkedTaskTitle, &s.LinkedTaskStatus)
	return s, err
}

// ListGoalSubtasks returns a goal's subtasks in creation order.
func (d *Database) ListGoalSubtasks(ctx context.Context, t models.GoalType, goalID int64) ([]models.GoalSubtask, error) {
	return withDBContextResult(d, ctx, func(ctx context.Context) ([]models.GoalSubtask, error) {
		rows, err := d.DB.QueryContext(ctx, goalSubtaskSelect+`
			WHERE gs.goal_type = ? AND gs.goal_id = ?
			ORDER BY gs.id`, string(t), goalID)
		if err != nil {
			return nil, wrapErr(EntityGoalSubtask, "list", 0, err)
		}
		defer rows.Close()

		out := []models.GoalSubtask{}
		for rows.Next() {
			s, err := scanGoalSubtask(rows)
			if err != nil {
				return nil, wrapErr(EntityGoalSubtask, "list", 0, err)
			}
			out = append(out, s)
		}
		return out, wrapErr(EntityGoalSubtask, "list", 0, rows.Err())
	})
}

func getGoalSubtask(ctx context.Context, q querier, id int64) (models.GoalSubtask, error) {
	s, err := scanGoalSubtask(q.QueryRowContext(ctx, goalSubtaskSelect+" WHERE gs.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.GoalSubtask{}, notFound(EntityGoalSubtask, "get", id)
	}
	if err != nil {
		return models.GoalSubtask{}, wrapErr(EntityGoalSubtask, "get", id, err)
	}
	return s, nil
}

// CreateGoalSubtask adds a pending subtask to an existing goal. Progress is
// left alone until a status changes.
func (d *Database) CreateGoalSubtask(ctx context.Context, t models.GoalType, goalID int64, in GoalSubtaskInput) (models.GoalSubtask, error) {
	if in.Title == "" {
		return models.GoalSubtask{}, invalid(EntityGoalSubtask, "create", "title is required")
	}
	weight := int64(config.DefaultSubtaskWeight)
	if in.Weight != nil {
		weight = int64(*in.Weight)
	}
	if weight < 0 {
		return models.GoalSubtask{}, invalid(EntityGoalSubtask, "create", "weight must not be negative")
	}
	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (models.GoalSubtask, error) {
		if _, err := getGoal(ctx, tx, t, goalID); err != nil {
			return models.GoalSubtask{}, err
		}
		now := d.nowISO()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO goal_subtasks
				(goal_type, goal_id, title, notes, status, weight, linked_task_id, created_at, updated_at, completed_at)
			VALUES (?, ?, ?, ?, 'pending', ?, NULL, ?, ?, NULL)`,
			string(t), goalID, in.Title, in.Notes, weight, now, now)
		if err != nil {
			return models.GoalSubtask{}, wrapErr(EntityGoalSubtask, "create", 0, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return models.GoalSubtask{}, wrapErr(EntityGoalSubtask, "create", 0, err)
		}
		return getGoalSubtask(ctx, tx, id)
	})
}

// UpdateGoalSubtask overlays patch and recalculates the goal when the status
// or the weight changed.
func (d *Database) UpdateGoalSubtask(ctx context.Context, id int64, patch GoalSubtaskPatch) (GoalSubtaskUpdate, error) {
	if patch.Status.Present() && !patch.Status.Value.Valid() {
		return GoalSubtaskUpdate{}, invalid(EntityGoalSubtask, "update", "unknown status "+string(patch.Status.Value))
	}
	if patch.Weight.Set && patch.Weight.Value < 0 {
		return GoalSubtaskUpdate{}, invalid(EntityGoalSubtask, "update", "weight must not be negative")
	}
	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (GoalSubtaskUpdate, error) {
		cur, err := getGoalSubtask(ctx, tx, id)
		if err != nil {
			return GoalSubtaskUpdate{}, err
		}
		now := d.nowISO()
		status := patch.Status.Or(cur.Status)
		weight := cur.Weight
		if patch.Weight.Set {
			weight = int(patch.Weight.Value)
		}
		completedAt := completionStamp(string(cur.Status), string(status), cur.CompletedAt, now)

		if _, err := tx.ExecContext(ctx, `
			UPDATE goal_subtasks
			SET title = ?, notes = ?, status = ?, weight = ?, completed_at = ?, updated_at = ?
			WHERE id = ?`,
			patch.Title.Or(cur.Title), patch.Notes.Or(cur.Notes), string(status), weight,
			toNullableArg(completedAt), now, id); err != nil {
			return GoalSubtaskUpdate{}, wrapErr(EntityGoalSubtask, "update", id, err)
		}

		var out GoalSubtaskUpdate
		if status != cur.Status || weight != cur.Weight {
			percent, err := recalcGoalProgress(ctx, tx, cur.GoalType, cur.GoalID, now)
			if err != nil {
				return GoalSubtaskUpdate{}, err
			}
			out.GoalProgress = &percent
		}
		out.Subtask, err = getGoalSubtask(ctx, tx, id)
		return out, err
	})
}

// DeleteGoalSubtask removes a subtask and returns its goal's new progress.
func (d *Database) DeleteGoalSubtask(ctx context.Context, id int64) (int, error) {
	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (int, error) {
		cur, err := getGoalSubtask(ctx, tx, id)
		if err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM goal_subtasks WHERE id = ?", id); err != nil {
			return 0, wrapErr(EntityGoalSubtask, "delete", id, err)
		}
		return recalcGoalProgress(ctx, tx, cur.GoalType, cur.GoalID, d.nowISO())
	})
}

// AddSubtaskToCalendar promotes a goal subtask to a pending daily task and
// links the two.
func (d *Database) AddSubtaskToCalendar(ctx context.Context, subtaskID int64, in CalendarInput) (CalendarResult, error) {
	if in.TaskDate == "" || in.AssignedToID <= 0 {
		return CalendarResult{}, invalid(EntityGoalSubtask, "add to calendar", "task_date and assigned_to_id are required")
	}
	assignedTo := int64(in.AssignedToID)
	assignedBy := firstPositive(int64(in.AssignedByID), assignedTo)
	createdBy := firstPositive(int64(in.CreatedByID), int64(in.AssignedByID), assignedTo)

	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (CalendarResult, error) {
		sub, err := getGoalSubtask(ctx, tx, subtaskID)
		if err != nil {
			return CalendarResult{}, err
		}
		goalTitle := "Goal"
		if g, err := getGoal(ctx, tx, sub.GoalType, sub.GoalID); err == nil && g.Title != "" {
			goalTitle = g.Title
		} else if err != nil && !errors.Is(err, ErrNotFound) {
			return CalendarResult{}, err
		}

		now := d.nowISO()
		taskID, err := insertDailyTask(ctx, tx, dailyTaskRow{
			Title:        "🎯 " + goalTitle + ": " + sub.Title,
			Notes:        sub.Notes,
			TaskDate:     in.TaskDate,
			CreatedByID:  createdBy,
			AssignedToID: assignedTo,
			AssignedByID: assignedBy,
			Status:       models.StatusPending,
		}, now)
		if err != nil {
			return CalendarResult{}, err
		}
		if err := replaceTaskAssignees(ctx, tx, taskID, nil, assignedTo); err != nil {
			return CalendarResult{}, err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE goal_subtasks SET linked_task_id = ?, updated_at = ? WHERE id = ?",
			taskID, now, subtaskID); err != nil {
			return CalendarResult{}, wrapErr(EntityGoalSubtask, "link task", subtaskID, err)
		}
		task, err := getDailyTask(ctx, tx, taskID)
		if err != nil {
			return CalendarResult{}, err
		}
		return CalendarResult{Task: task, SubtaskID: subtaskID}, nil
	})
}

// firstPositive mirrors a || b || c over ids.
func firstPositive(ids ...int64) int64 {
	for _, id := range ids {
		if id > 0 {
			return id
		}
	}
	return 0
}
