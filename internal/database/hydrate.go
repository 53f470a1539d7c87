package database

import (
	"context"

	"github.com/berealtors/wrapsheet/internal/models"
	"github.com/berealtors/wrapsheet/internal/util"
)

// Children of list endpoints are loaded in batches of
// config.HydrationBatchSize parent ids and grouped in memory.

func loadTaskAssignees(ctx context.Context, q querier, taskIDs []int64) (map[int64][]models.Assignee, error) {
	out := make(map[int64][]models.Assignee, len(taskIDs))
	for _, batch := range chunkIDs(taskIDs) {
		rows, err := q.QueryContext(ctx, `
			SELECT dta.task_id, u.id, u.name, u.email
			FROM daily_task_assignees dta
			JOIN users u ON dta.user_id = u.id
			WHERE dta.task_id IN (`+placeholders(len(batch))+`)
			ORDER BY u.name`, int64Args(batch)...)
		if err != nil {
			return nil, wrapErr(EntityDailyTask, "load assignees", 0, err)
		}
		for rows.Next() {
			var taskID int64
			var a models.Assignee
			if err := rows.Scan(&taskID, &a.ID, &a.Name, &a.Email); err != nil {
				rows.Close()
				return nil, wrapErr(EntityDailyTask, "load assignees", 0, err)
			}
			out[taskID] = append(out[taskID], a)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, wrapErr(EntityDailyTask, "load assignees", 0, err)
		}
	}
	return out, nil
}

func loadTaskSubtasks(ctx context.Context, q querier, taskIDs []int64) (map[int64][]models.DailySubtask, error) {
	out := make(map[int64][]models.DailySubtask, len(taskIDs))
	for _, batch := range chunkIDs(taskIDs) {
		rows, err := q.QueryContext(ctx, dailySubtaskSelect+`
			WHERE s.task_id IN (`+placeholders(len(batch))+`)
			ORDER BY s.due_date IS NULL, s.due_date, s.id`, int64Args(batch)...)
		if err != nil {
			return nil, wrapErr(EntityDailySubtask, "load", 0, err)
		}
		for rows.Next() {
			s, err := scanDailySubtask(rows)
			if err != nil {
				rows.Close()
				return nil, wrapErr(EntityDailySubtask, "load", 0, err)
			}
			out[s.TaskID] = append(out[s.TaskID], s)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, wrapErr(EntityDailySubtask, "load", 0, err)
		}
	}
	return out, nil
}

func loadStepAssignees(ctx context.Context, q querier, stepIDs []int64) (map[int64][]models.Assignee, error) {
	out := make(map[int64][]models.Assignee, len(stepIDs))
	for _, batch := range chunkIDs(stepIDs) {
		rows, err := q.QueryContext(ctx, `
			SELECT psa.step_id, u.id, u.name, u.email
			FROM project_step_assignees psa
			JOIN users u ON psa.user_id = u.id
			WHERE psa.step_id IN (`+placeholders(len(batch))+`)
			ORDER BY u.name`, int64Args(batch)...)
		if err != nil {
			return nil, wrapErr(EntityProjectStep, "load assignees", 0, err)
		}
		for rows.Next() {
			var stepID int64
			var a models.Assignee
			if err := rows.Scan(&stepID, &a.ID, &a.Name, &a.Email); err != nil {
				rows.Close()
				return nil, wrapErr(EntityProjectStep, "load assignees", 0, err)
			}
			out[stepID] = append(out[stepID], a)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, wrapErr(EntityProjectStep, "load assignees", 0, err)
		}
	}
	return out, nil
}

func loadProjectSteps(ctx context.Context, q querier, projectIDs []int64) (map[int64][]models.ProjectStep, error) {
	out := make(map[int64][]models.ProjectStep, len(projectIDs))
	var stepIDs []int64
	for _, batch := range chunkIDs(projectIDs) {
		rows, err := q.QueryContext(ctx, projectStepSelect+`
			WHERE s.project_id IN (`+placeholders(len(batch))+`)
			ORDER BY s.project_id, s.step_order, s.id`, int64Args(batch)...)
		if err != nil {
			return nil, wrapErr(EntityProjectStep, "load", 0, err)
		}
		for rows.Next() {
			s, err := scanProjectStep(rows)
			if err != nil {
				rows.Close()
				return nil, wrapErr(EntityProjectStep, "load", 0, err)
			}
			out[s.ProjectID] = append(out[s.ProjectID], s)
			stepIDs = append(stepIDs, s.ID)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, wrapErr(EntityProjectStep, "load", 0, err)
		}
	}
	if len(stepIDs) == 0 {
		return out, nil
	}

	assignees, err := loadStepAssignees(ctx, q, stepIDs)
	if err != nil {
		return nil, err
	}
	for pid, steps := range out {
		for i := range steps {
			steps[i].Assignees = withFallbackAssignee(assignees[steps[i].ID], util.Deref(steps[i].AssignedToID), steps[i].AssignedToName, steps[i].AssignedToEmail)
		}
		out[pid] = steps
	}
	return out, nil
}

// withFallbackAssignee synthesizes the primary assignee for rows written
// before the join tables existed.
func withFallbackAssignee(list []models.Assignee, primary int64, name, email *string) []models.Assignee {
	if len(list) > 0 {
		return list
	}
	if primary > 0 {
		return []models.Assignee{{ID: primary, Name: name, Email: email}}
	}
	return []models.Assignee{}
}
