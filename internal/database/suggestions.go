package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/berealtors/wrapsheet/internal/config"
	"github.com/berealtors/wrapsheet/internal/models"
	"github.com/berealtors/wrapsheet/internal/util"
)

// Suggestion source filters. Rows written before the source column existed
// have a NULL source and match both.
const (
	SourceStaff      = "staff"
	SourceSuggestion = "suggestion"
)

// Status filter values beyond the literal statuses.
const (
	StatusFilterAll               = "all"
	StatusFilterActiveOrCompleted = "active_or_completed"
)

// SuggestionFilter holds the GET /api/pillar-suggestions query.
type SuggestionFilter struct {
	AssignedTo int64
	Source     string
	Status     string
	Top        int
	Limit      int
	UserID     int64
}

// SuggestionInput is the body of POST /api/pillar-suggestions.
type SuggestionInput struct {
	Title        string            `json:"title" validate:"required"`
	Description  string            `json:"description"`
	Pillar       *string           `json:"pillar"`
	Category     *string           `json:"category"`
	AssignedToID *models.FlexInt64 `json:"assigned_to_id"`
	CreatedByID  *models.FlexInt64 `json:"created_by_id"`
	Status       string            `json:"status"`
	Source       string            `json:"source"`
}

// SuggestionPatch is applied as a dynamic SET over the fields that were
// sent. Nullable columns accept an explicit null.
type SuggestionPatch struct {
	Title           models.Optional[string]           `json:"title"`
	Description     models.Optional[string]           `json:"description"`
	Pillar          models.Optional[string]           `json:"pillar"`
	AssignedToID    models.Optional[models.FlexInt64] `json:"assigned_to_id"`
	ProgressPercent models.Optional[int]              `json:"progress_percent"`
	EtaDate         models.Optional[string]           `json:"eta_date"`
	Status          models.Optional[string]           `json:"status"`
	ProgressNotes   models.Optional[string]           `json:"progress_notes"`
}

// completes reports whether the patch finishes the suggestion, either by
// status or by reaching 100 percent.
func (p SuggestionPatch) completes() bool {
	if p.Status.Present() && p.Status.Value == config.SuggestionCompleted {
		return true
	}
	return p.ProgressPercent.Present() && p.ProgressPercent.Value >= 100
}

const suggestionSelect = `
	SELECT ps.id, ps.title, ps.description, ps.pillar, ps.category, ps.assigned_to_id, ps.created_by_id,
	       ps.status, ps.source, ps.progress_percent, ps.progress_notes, ps.eta_date, ps.completed_at,
	       ps.created_at, u.name,
	       (SELECT COUNT(*) FROM task_votes tv WHERE tv.task_id = ps.id) AS vote_count
	FROM pillar_suggestions ps
	LEFT JOIN users u ON ps.created_by_id = u.id`

func scanSuggestion(row rowScanner) (models.Suggestion, error) {
	var s models.Suggestion
	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.Pillar, &s.Category, &s.AssignedToID, &s.CreatedByID,
		&s.Status, &s.Source, &s.ProgressPercent, &s.ProgressNotes, &s.EtaDate, &s.CompletedAt,
		&s.CreatedAt, &s.CreatedByName, &s.VoteCount)
	return s, err
}

// ListSuggestions returns suggestions matching f. Top sorts by votes and
// takes precedence over Limit.
func (d *Database) ListSuggestions(ctx context.Context, f SuggestionFilter) ([]models.Suggestion, error) {
	status := f.Status
	if status == "" {
		status = config.SuggestionActive
	}
	qb := newSelectQuery(suggestionSelect).
		WhereIf(f.AssignedTo > 0, "ps.assigned_to_id = ?", f.AssignedTo)
	switch f.Source {
	case SourceStaff:
		qb.Where("(ps.source = 'staff' OR ps.source IS NULL)")
	case SourceSuggestion:
		qb.Where("(ps.source = 'suggestion' OR ps.source IS NULL)")
	}
	switch status {
	case StatusFilterAll:
	case StatusFilterActiveOrCompleted:
		qb.Where("(ps.status = 'active' OR ps.status = 'completed')")
	default:
		qb.Where("ps.status = ?", status)
	}
	if f.Top > 0 {
		qb.OrderBy("vote_count DESC, ps.created_at DESC").Limit(f.Top)
	} else {
		qb.OrderBy("ps.created_at DESC").Limit(f.Limit)
	}
	query, args := qb.Build()

	return withDBContextResult(d, ctx, func(ctx context.Context) ([]models.Suggestion, error) {
		rows, err := d.DB.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, wrapErr(EntitySuggestion, "list", 0, err)
		}
		out := []models.Suggestion{}
		for rows.Next() {
			s, err := scanSuggestion(rows)
			if err != nil {
				rows.Close()
				return nil, wrapErr(EntitySuggestion, "list", 0, err)
			}
			out = append(out, s)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, wrapErr(EntitySuggestion, "list", 0, err)
		}

		if f.UserID > 0 && len(out) > 0 {
			if err := markLikedByMe(ctx, d.DB, out, f.UserID); err != nil {
				return nil, err
			}
		}
		return out, nil
	})
}

func markLikedByMe(ctx context.Context, q querier, items []models.Suggestion, userID int64) error {
	ids := make([]int64, len(items))
	for i, s := range items {
		ids[i] = s.ID
	}
	liked := make(map[int64]bool)
	for _, batch := range chunkIDs(ids) {
		args := append([]interface{}{userID}, int64Args(batch)...)
		got, err := scanIDs(ctx, q,
			"SELECT task_id FROM task_votes WHERE user_id = ? AND task_id IN ("+placeholders(len(batch))+")", args...)
		if err != nil {
			return wrapErr(EntityVote, "load liked", userID, err)
		}
		for _, id := range got {
			liked[id] = true
		}
	}
	for i := range items {
		items[i].LikedByMe = util.Ptr(liked[items[i].ID])
	}
	return nil
}

// GetSuggestion returns one suggestion with its vote count.
func (d *Database) GetSuggestion(ctx context.Context, id int64) (models.Suggestion, error) {
	return withDBContextResult(d, ctx, func(ctx context.Context) (models.Suggestion, error) {
		return getSuggestion(ctx, d.DB, id)
	})
}

func getSuggestion(ctx context.Context, q querier, id int64) (models.Suggestion, error) {
	s, err := scanSuggestion(q.QueryRowContext(ctx, suggestionSelect+" WHERE ps.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Suggestion{}, notFound(EntitySuggestion, "get", id)
	}
	if err != nil {
		return models.Suggestion{}, wrapErr(EntitySuggestion, "get", id, err)
	}
	return s, nil
}

// CreateSuggestion inserts a suggestion and returns its id. Without an
// explicit assignee the category's staff owner is used.
func (d *Database) CreateSuggestion(ctx context.Context, in SuggestionInput) (int64, error) {
	if strings.TrimSpace(in.Title) == "" {
		return 0, invalid(EntitySuggestion, "create", "title is required")
	}
	assignedTo := positiveID(in.AssignedToID)
	if assignedTo == nil && in.Category != nil {
		if v, ok := config.StaffMap[*in.Category]; ok {
			assignedTo = util.Ptr(v)
		}
	}
	createdBy := positiveID(in.CreatedByID)
	status := in.Status
	if status == "" {
		status = config.SuggestionSuggested
	}

	return withDBContextResult(d, ctx, func(ctx context.Context) (int64, error) {
		res, err := d.DB.ExecContext(ctx, `
			INSERT INTO pillar_suggestions
				(title, description, pillar, category, assigned_to_id, created_by_id, status, source, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			in.Title, in.Description, toNullableArg(in.Pillar), toNullableArg(in.Category),
			toNullableArg(assignedTo), toNullableArg(createdBy), status, nullableString(in.Source), d.nowISO())
		if err != nil {
			return 0, wrapErr(EntitySuggestion, "create", 0, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, wrapErr(EntitySuggestion, "create", 0, err)
		}
		return id, nil
	})
}

// UpdateSuggestion applies patch. Completing a suggestion stamps
// completed_at and refunds every vote cast on it. A patch with no fields is
// a no-op.
func (d *Database) UpdateSuggestion(ctx context.Context, id int64, patch SuggestionPatch) error {
	var sets []string
	var args []interface{}
	add := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if patch.Title.Present() {
		add("title", patch.Title.Value)
	}
	if patch.Description.Present() {
		add("description", patch.Description.Value)
	}
	if patch.Pillar.Set {
		add("pillar", toNullableArg(patch.Pillar.OrNullable(nil)))
	}
	if patch.AssignedToID.Set {
		add("assigned_to_id", nullableInt64(int64(patch.AssignedToID.Value)))
	}
	if patch.ProgressPercent.Set {
		add("progress_percent", toNullableArg(patch.ProgressPercent.OrNullable(nil)))
	}
	if patch.EtaDate.Set {
		add("eta_date", toNullableArg(patch.EtaDate.OrNullable(nil)))
	}
	if patch.ProgressNotes.Set {
		add("progress_notes", toNullableArg(patch.ProgressNotes.OrNullable(nil)))
	}

	now := d.nowISO()
	completes := patch.completes()
	switch {
	case completes:
		add("status", config.SuggestionCompleted)
		add("completed_at", now)
	case patch.Status.Present():
		add("status", patch.Status.Value)
	}
	if len(sets) == 0 {
		return nil
	}

	return d.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE pillar_suggestions SET "+strings.Join(sets, ", ")+" WHERE id = ?",
			append(args, id)...); err != nil {
			return wrapErr(EntitySuggestion, "update", id, err)
		}
		if completes {
			if _, err := tx.ExecContext(ctx, "DELETE FROM task_votes WHERE task_id = ?", id); err != nil {
				return wrapErr(EntityVote, "refund", id, err)
			}
		}
		return nil
	})
}

// DeleteSuggestion removes a suggestion and its votes.
func (d *Database) DeleteSuggestion(ctx context.Context, id int64) error {
	return d.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM task_votes WHERE task_id = ?", id); err != nil {
			return wrapErr(EntityVote, "delete", id, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM pillar_suggestions WHERE id = ?", id); err != nil {
			return wrapErr(EntitySuggestion, "delete", id, err)
		}
		return nil
	})
}
