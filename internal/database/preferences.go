package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/berealtors/wrapsheet/internal/config"
	"github.com/berealtors/wrapsheet/internal/models"
	"github.com/berealtors/wrapsheet/internal/util"
)

// PreferencesInput is the body of PUT /api/user-preferences/{userId}.
// section_order is kept as raw JSON and only replaced when truthy.
type PreferencesInput struct {
	Theme             models.Optional[string]        `json:"theme"`
	CalendarView      models.Optional[string]        `json:"calendar_view"`
	SectionOrder      json.RawMessage                `json:"section_order"`
	EnableWeeklyTasks models.Optional[models.Truthy] `json:"enable_weekly_tasks"`
}

func (in PreferencesInput) sectionOrder() *string {
	if len(in.SectionOrder) == 0 {
		return nil
	}
	var truthy models.Truthy
	if err := json.Unmarshal(in.SectionOrder, &truthy); err != nil || !truthy {
		return nil
	}
	s := string(in.SectionOrder)
	return &s
}

// DefaultPreferences is returned for users that never saved preferences.
func DefaultPreferences(userID int64) models.Preferences {
	return models.Preferences{
		UserID:       userID,
		Theme:        config.DefaultTheme,
		CalendarView: config.DefaultCalendarView,
	}
}

// GetPreferences returns the stored preferences or the defaults.
func (d *Database) GetPreferences(ctx context.Context, userID int64) (models.Preferences, error) {
	return withDBContextResult(d, ctx, func(ctx context.Context) (models.Preferences, error) {
		p, err := getPreferences(ctx, d.DB, userID)
		if errors.Is(err, ErrNotFound) {
			return DefaultPreferences(userID), nil
		}
		return p, err
	})
}

func getPreferences(ctx context.Context, q querier, userID int64) (models.Preferences, error) {
	var p models.Preferences
	var sectionOrder sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT user_id, theme, calendar_view, section_order, enable_weekly_tasks, updated_at
		FROM user_preferences WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.Theme, &p.CalendarView, &sectionOrder, &p.EnableWeeklyTasks, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Preferences{}, notFound(EntityPreferences, "get", userID)
	}
	if err != nil {
		return models.Preferences{}, wrapErr(EntityPreferences, "get", userID, err)
	}
	if sectionOrder.Valid && json.Valid([]byte(sectionOrder.String)) {
		p.SectionOrder = json.RawMessage(sectionOrder.String)
	}
	return p, nil
}

// SavePreferences inserts or overlays a user's preferences and returns the
// stored result.
func (d *Database) SavePreferences(ctx context.Context, userID int64, in PreferencesInput) (models.Preferences, error) {
	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (models.Preferences, error) {
		now := d.nowISO()
		cur, err := getPreferences(ctx, tx, userID)
		switch {
		case errors.Is(err, ErrNotFound):
			theme := in.Theme.Or("")
			if theme == "" {
				theme = config.DefaultTheme
			}
			view := in.CalendarView.Or("")
			if view == "" {
				view = config.DefaultCalendarView
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO user_preferences (user_id, theme, calendar_view, section_order, enable_weekly_tasks, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)`,
				userID, theme, view, toNullableArg(in.sectionOrder()),
				util.BoolToInt(bool(in.EnableWeeklyTasks.Value)), now); err != nil {
				return models.Preferences{}, wrapErr(EntityPreferences, "create", userID, err)
			}
		case err != nil:
			return models.Preferences{}, err
		default:
			sectionOrder := in.sectionOrder()
			if sectionOrder == nil && cur.SectionOrder != nil {
				s := string(cur.SectionOrder)
				sectionOrder = &s
			}
			weekly := cur.EnableWeeklyTasks
			if in.EnableWeeklyTasks.Set {
				weekly = util.BoolToInt(bool(in.EnableWeeklyTasks.Value))
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE user_preferences
				SET theme = ?, calendar_view = ?, section_order = ?, enable_weekly_tasks = ?, updated_at = ?
				WHERE user_id = ?`,
				in.Theme.Or(cur.Theme), in.CalendarView.Or(cur.CalendarView), toNullableArg(sectionOrder),
				weekly, now, userID); err != nil {
				return models.Preferences{}, wrapErr(EntityPreferences, "update", userID, err)
			}
		}
		return getPreferences(ctx, tx, userID)
	})
}
