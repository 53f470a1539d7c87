package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/berealtors/wrapsheet/internal/config"
	"github.com/berealtors/wrapsheet/internal/models"
	"github.com/berealtors/wrapsheet/internal/util"
)

// ProjectInput is the body of POST /api/projects.
type ProjectInput struct {
	Title        string           `json:"title" validate:"required"`
	Description  string           `json:"description"`
	CreatedByID  models.FlexInt64 `json:"created_by_id" validate:"required"`
	WaitingOn    string           `json:"waiting_on"`
	BlockingTask string           `json:"blocking_task"`
}

// ProjectPatch overlays a project.
type ProjectPatch struct {
	Title        models.Optional[string] `json:"title"`
	Description  models.Optional[string] `json:"description"`
	Status       models.Optional[string] `json:"status"`
	WaitingOn    models.Optional[string] `json:"waiting_on"`
	BlockingTask models.Optional[string] `json:"blocking_task"`
}

// ProjectStepInput is the body of POST /api/projects/{id}/steps.
type ProjectStepInput struct {
	Title        string            `json:"title" validate:"required"`
	Description  string            `json:"description"`
	AssignedToID *models.FlexInt64 `json:"assigned_to_id"`
	StepOrder    *int              `json:"step_order"`
	AssigneeIDs  models.IDList     `json:"assignee_ids"`
}

// ProjectStepPatch overlays a step. The assignee set is only replaced when
// assignee_ids is sent.
type ProjectStepPatch struct {
	Title        models.Optional[string]            `json:"title"`
	Description  models.Optional[string]            `json:"description"`
	AssignedToID models.Optional[models.FlexInt64]  `json:"assigned_to_id"`
	Status       models.Optional[models.TaskStatus] `json:"status"`
	StepOrder    models.Optional[int]               `json:"step_order"`
	AssigneeIDs  models.Optional[models.IDList]     `json:"assignee_ids"`
}

const projectSelect = `
	SELECT p.id, p.title, p.description, p.created_by_id, p.status, p.waiting_on, p.blocking_task,
	       p.created_at, p.updated_at, u.name
	FROM projects p
	LEFT JOIN users u ON p.created_by_id = u.id`

const projectStepSelect = `
	SELECT s.id, s.project_id, s.step_order, s.title, s.description, s.assigned_to_id, s.status,
	       s.completed_at, s.created_at, s.updated_at, u.name, u.email
	FROM project_steps s
	LEFT JOIN users u ON s.assigned_to_id = u.id`

func scanProject(row rowScanner) (models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.CreatedByID, &p.Status, &p.WaitingOn, &p.BlockingTask,
		&p.CreatedAt, &p.UpdatedAt, &p.CreatedByName)
	return p, err
}

func scanProjectStep(row rowScanner) (models.ProjectStep, error) {
	var s models.ProjectStep
	err := row.Scan(&s.ID, &s.ProjectID, &s.StepOrder, &s.Title, &s.Description, &s.AssignedToID, &s.Status,
		&s.CompletedAt, &s.CreatedAt, &s.UpdatedAt, &s.AssignedToName, &s.AssignedToEmail)
	return s, err
}

// ListProjects returns every non-archived project, newest first, with its
// steps and derived progress.
func (d *Database) ListProjects(ctx context.Context) ([]models.Project, error) {
	return withDBContextResult(d, ctx, func(ctx context.Context) ([]models.Project, error) {
		query, args := newSelectQuery(projectSelect).
			Where("p.status != ?", config.ProjectArchived).
			OrderBy("p.created_at DESC, p.id DESC").
			Build()
		rows, err := d.DB.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, wrapErr(EntityProject, "list", 0, err)
		}
		projects := []models.Project{}
		for rows.Next() {
			p, err := scanProject(rows)
			if err != nil {
				rows.Close()
				return nil, wrapErr(EntityProject, "list", 0, err)
			}
			projects = append(projects, p)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, wrapErr(EntityProject, "list", 0, err)
		}

		if err := hydrateProjects(ctx, d.DB, projects); err != nil {
			return nil, err
		}
		return projects, nil
	})
}

func hydrateProjects(ctx context.Context, q querier, projects []models.Project) error {
	ids := make([]int64, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	steps, err := loadProjectSteps(ctx, q, ids)
	if err != nil {
		return err
	}
	for i := range projects {
		projects[i].Steps = steps[projects[i].ID]
		projects[i].ApplyStepStats()
	}
	return nil
}

// GetProject returns one project with its steps.
func (d *Database) GetProject(ctx context.Context, id int64) (models.Project, error) {
	return withDBContextResult(d, ctx, func(ctx context.Context) (models.Project, error) {
		return getProject(ctx, d.DB, id)
	})
}

func getProject(ctx context.Context, q querier, id int64) (models.Project, error) {
	p, err := scanProject(q.QueryRowContext(ctx, projectSelect+" WHERE p.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, notFound(EntityProject, "get", id)
	}
	if err != nil {
		return models.Project{}, wrapErr(EntityProject, "get", id, err)
	}
	projects := []models.Project{p}
	if err := hydrateProjects(ctx, q, projects); err != nil {
		return models.Project{}, err
	}
	return projects[0], nil
}

// CreateProject inserts an active project.
func (d *Database) CreateProject(ctx context.Context, in ProjectInput) (models.Project, error) {
	if in.Title == "" || in.CreatedByID <= 0 {
		return models.Project{}, invalid(EntityProject, "create", "title and created_by_id are required")
	}
	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (models.Project, error) {
		id, err := insertProject(ctx, tx, in, d.nowISO())
		if err != nil {
			return models.Project{}, err
		}
		return getProject(ctx, tx, id)
	})
}

func insertProject(ctx context.Context, q querier, in ProjectInput, now string) (int64, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO projects (title, description, created_by_id, status, created_at, updated_at, waiting_on, blocking_task)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Title, in.Description, int64(in.CreatedByID), config.ProjectActive, now, now, in.WaitingOn, in.BlockingTask)
	if err != nil {
		return 0, wrapErr(EntityProject, "create", 0, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapErr(EntityProject, "create", 0, err)
	}
	return id, nil
}

// UpdateProject overlays patch onto a project.
func (d *Database) UpdateProject(ctx context.Context, id int64, patch ProjectPatch) (models.Project, error) {
	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (models.Project, error) {
		cur, err := getProject(ctx, tx, id)
		if err != nil {
			return models.Project{}, err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE projects
			SET title = ?, description = ?, status = ?, updated_at = ?, waiting_on = ?, blocking_task = ?
			WHERE id = ?`,
			patch.Title.Or(cur.Title), patch.Description.Or(cur.Description), patch.Status.Or(cur.Status),
			d.nowISO(), patch.WaitingOn.Or(cur.WaitingOn), patch.BlockingTask.Or(cur.BlockingTask), id); err != nil {
			return models.Project{}, wrapErr(EntityProject, "update", id, err)
		}
		return getProject(ctx, tx, id)
	})
}

// DeleteProject removes the project with its steps and their assignee rows.
func (d *Database) DeleteProject(ctx context.Context, id int64) error {
	return d.WithTx(ctx, func(tx *sql.Tx) error {
		stmts := []string{
			"DELETE FROM project_step_assignees WHERE step_id IN (SELECT id FROM project_steps WHERE project_id = ?)",
			"DELETE FROM project_steps WHERE project_id = ?",
			"DELETE FROM projects WHERE id = ?",
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return wrapErr(EntityProject, "delete", id, err)
			}
		}
		return nil
	})
}

// DuplicateProject copies a project and its steps. Copied steps restart as
// pending and keep their assignee rows. An empty title yields
// "<title> (Copy)".
func (d *Database) DuplicateProject(ctx context.Context, id int64, title string) (models.Project, error) {
	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (models.Project, error) {
		origin, err := getProject(ctx, tx, id)
		if err != nil {
			return models.Project{}, err
		}
		if title == "" {
			title = origin.Title + " (Copy)"
		}
		now := d.nowISO()
		newID, err := insertProject(ctx, tx, ProjectInput{
			Title:       title,
			Description: origin.Description,
			CreatedByID: models.FlexInt64(origin.CreatedByID),
		}, now)
		if err != nil {
			return models.Project{}, err
		}

		for _, s := range origin.Steps {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO project_steps
					(project_id, step_order, title, description, assigned_to_id, status, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, 'pending', ?, ?)`,
				newID, s.StepOrder, s.Title, s.Description, toNullableArg(s.AssignedToID), now, now)
			if err != nil {
				return models.Project{}, wrapErr(EntityProjectStep, "duplicate", s.ID, err)
			}
			stepID, err := res.LastInsertId()
			if err != nil {
				return models.Project{}, wrapErr(EntityProjectStep, "duplicate", s.ID, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO project_step_assignees (step_id, user_id, created_at)
				SELECT ?, user_id, ? FROM project_step_assignees WHERE step_id = ?`,
				stepID, now, s.ID); err != nil {
				return models.Project{}, wrapErr(EntityProjectStep, "duplicate assignees", s.ID, err)
			}
		}
		return getProject(ctx, tx, newID)
	})
}

func getProjectStep(ctx context.Context, q querier, id int64) (models.ProjectStep, error) {
	s, err := scanProjectStep(q.QueryRowContext(ctx, projectStepSelect+" WHERE s.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.ProjectStep{}, notFound(EntityProjectStep, "get", id)
	}
	if err != nil {
		return models.ProjectStep{}, wrapErr(EntityProjectStep, "get", id, err)
	}
	assignees, err := loadStepAssignees(ctx, q, []int64{id})
	if err != nil {
		return models.ProjectStep{}, err
	}
	s.Assignees = withFallbackAssignee(assignees[id], util.Deref(s.AssignedToID), s.AssignedToName, s.AssignedToEmail)
	return s, nil
}

// CreateProjectStep appends a pending step to an existing project.
func (d *Database) CreateProjectStep(ctx context.Context, projectID int64, in ProjectStepInput) (models.ProjectStep, error) {
	if in.Title == "" {
		return models.ProjectStep{}, invalid(EntityProjectStep, "create", "title is required")
	}
	order := config.DefaultStepOrder
	if in.StepOrder != nil {
		order = *in.StepOrder
	}
	assignedTo := positiveID(in.AssignedToID)

	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (models.ProjectStep, error) {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM projects WHERE id = ?", projectID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ProjectStep{}, notFound(EntityProject, "create step", projectID)
		}
		if err != nil {
			return models.ProjectStep{}, wrapErr(EntityProject, "create step", projectID, err)
		}

		now := d.nowISO()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO project_steps
				(project_id, step_order, title, description, assigned_to_id, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, 'pending', ?, ?)`,
			projectID, order, in.Title, in.Description, toNullableArg(assignedTo), now, now)
		if err != nil {
			return models.ProjectStep{}, wrapErr(EntityProjectStep, "create", 0, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return models.ProjectStep{}, wrapErr(EntityProjectStep, "create", 0, err)
		}
		if err := replaceStepAssignees(ctx, tx, id, in.AssigneeIDs, util.Deref(assignedTo), now); err != nil {
			return models.ProjectStep{}, err
		}
		return getProjectStep(ctx, tx, id)
	})
}

// UpdateProjectStep overlays patch onto a step.
func (d *Database) UpdateProjectStep(ctx context.Context, id int64, patch ProjectStepPatch) (models.ProjectStep, error) {
	if patch.Status.Present() && !patch.Status.Value.Valid() {
		return models.ProjectStep{}, invalid(EntityProjectStep, "update", "unknown status "+string(patch.Status.Value))
	}
	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (models.ProjectStep, error) {
		cur, err := getProjectStep(ctx, tx, id)
		if err != nil {
			return models.ProjectStep{}, err
		}
		now := d.nowISO()
		status := patch.Status.Or(cur.Status)

		assignedTo := cur.AssignedToID
		if patch.AssignedToID.Set {
			assignedTo = nil
			if patch.AssignedToID.Present() && patch.AssignedToID.Value > 0 {
				assignedTo = util.Ptr(int64(patch.AssignedToID.Value))
			}
		}
		order := cur.StepOrder
		if patch.StepOrder.Set {
			order = patch.StepOrder.Value
		}
		completedAt := completionStamp(string(cur.Status), string(status), cur.CompletedAt, now)

		if _, err := tx.ExecContext(ctx, `
			UPDATE project_steps
			SET title = ?, description = ?, assigned_to_id = ?, status = ?, step_order = ?, completed_at = ?, updated_at = ?
			WHERE id = ?`,
			patch.Title.Or(cur.Title), patch.Description.Or(cur.Description), toNullableArg(assignedTo),
			string(status), order, toNullableArg(completedAt), now, id); err != nil {
			return models.ProjectStep{}, wrapErr(EntityProjectStep, "update", id, err)
		}

		if patch.AssigneeIDs.Set {
			if err := replaceStepAssignees(ctx, tx, id, patch.AssigneeIDs.Value, util.Deref(assignedTo), now); err != nil {
				return models.ProjectStep{}, err
			}
		}
		return getProjectStep(ctx, tx, id)
	})
}

// DeleteProjectStep removes a step and its assignee rows.
func (d *Database) DeleteProjectStep(ctx context.Context, id int64) error {
	return d.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM project_step_assignees WHERE step_id = ?", id); err != nil {
			return wrapErr(EntityProjectStep, "delete assignees", id, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM project_steps WHERE id = ?", id); err != nil {
			return wrapErr(EntityProjectStep, "delete", id, err)
		}
		return nil
	})
}
