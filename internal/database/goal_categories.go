package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/berealtors/wrapsheet/internal/models"
)

// GoalCategoryInput is the body of POST /api/goal-categories.
type GoalCategoryInput struct {
	Type         string            `json:"type"`
	PeriodKey    models.FlexString `json:"period_key"`
	OriginalName string            `json:"original_name"`
	CustomName   *string           `json:"custom_name"`
	OwnerID      models.FlexInt64  `json:"owner_id"`
	DisplayOrder int               `json:"display_order"`
}

// GoalCategoryPatch renames or reorders a category; custom_name may be
// cleared with null.
type GoalCategoryPatch struct {
	CustomName   models.Optional[string] `json:"custom_name"`
	DisplayOrder models.Optional[int]    `json:"display_order"`
}

const goalCategorySelect = `
	SELECT id, type, period_key, original_name, custom_name, owner_id, display_order, created_at, updated_at
	FROM goal_categories`

func scanGoalCategory(row rowScanner) (models.GoalCategory, error) {
	var c models.GoalCategory
	err := row.Scan(&c.ID, &c.Type, &c.PeriodKey, &c.OriginalName, &c.CustomName, &c.OwnerID,
		&c.DisplayOrder, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// ListGoalCategories returns the categories of one goal period.
func (d *Database) ListGoalCategories(ctx context.Context, goalType, period string, ownerID int64) ([]models.GoalCategory, error) {
	return withDBContextResult(d, ctx, func(ctx context.Context) ([]models.GoalCategory, error) {
		query, args := newSelectQuery(goalCategorySelect).
			Where("type = ?", goalType).
			Where("period_key = ?", period).
			WhereIf(ownerID > 0, "owner_id = ?", ownerID).
			OrderBy("display_order, id").
			Build()
		rows, err := d.DB.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, wrapErr(EntityCategory, "list", 0, err)
		}
		defer rows.Close()

		out := []models.GoalCategory{}
		for rows.Next() {
			c, err := scanGoalCategory(rows)
			if err != nil {
				return nil, wrapErr(EntityCategory, "list", 0, err)
			}
			out = append(out, c)
		}
		return out, wrapErr(EntityCategory, "list", 0, rows.Err())
	})
}

func getGoalCategory(ctx context.Context, q querier, id int64) (models.GoalCategory, error) {
	c, err := scanGoalCategory(q.QueryRowContext(ctx, goalCategorySelect+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.GoalCategory{}, notFound(EntityCategory, "get", id)
	}
	if err != nil {
		return models.GoalCategory{}, wrapErr(EntityCategory, "get", id, err)
	}
	return c, nil
}

// CreateGoalCategory inserts a category bucket.
func (d *Database) CreateGoalCategory(ctx context.Context, in GoalCategoryInput) (models.GoalCategory, error) {
	if in.Type == "" || in.PeriodKey == "" || in.OriginalName == "" || in.OwnerID <= 0 {
		return models.GoalCategory{}, invalid(EntityCategory, "create",
			"Missing required fields: type, period_key, original_name, owner_id")
	}
	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (models.GoalCategory, error) {
		now := d.nowISO()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO goal_categories
				(type, period_key, original_name, custom_name, owner_id, display_order, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			in.Type, string(in.PeriodKey), in.OriginalName, toNullableArg(in.CustomName), int64(in.OwnerID),
			in.DisplayOrder, now, now)
		if err != nil {
			return models.GoalCategory{}, wrapErr(EntityCategory, "create", 0, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return models.GoalCategory{}, wrapErr(EntityCategory, "create", 0, err)
		}
		return getGoalCategory(ctx, tx, id)
	})
}

// UpdateGoalCategory overlays patch onto a category.
func (d *Database) UpdateGoalCategory(ctx context.Context, id int64, patch GoalCategoryPatch) (models.GoalCategory, error) {
	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (models.GoalCategory, error) {
		cur, err := getGoalCategory(ctx, tx, id)
		if err != nil {
			return models.GoalCategory{}, err
		}
		order := cur.DisplayOrder
		if patch.DisplayOrder.Set {
			order = patch.DisplayOrder.Value
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE goal_categories SET custom_name = ?, display_order = ?, updated_at = ? WHERE id = ?",
			toNullableArg(patch.CustomName.OrNullable(cur.CustomName)), order, d.nowISO(), id); err != nil {
			return models.GoalCategory{}, wrapErr(EntityCategory, "update", id, err)
		}
		return getGoalCategory(ctx, tx, id)
	})
}
