package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/berealtors/wrapsheet/internal/config"
	"github.com/berealtors/wrapsheet/internal/models"
	"github.com/berealtors/wrapsheet/internal/util"
)

// LogsFilter bounds the admin LOGS listing by submission date. EndDate is
// inclusive through the end of that day.
type LogsFilter struct {
	StartDate string
	EndDate   string
	Limit     int
	Offset    int
}

// logsEditable lists the columns an admin may edit; list columns hold JSON.
var logsEditable = map[string]bool{
	"first_name":            false,
	"last_name":             false,
	"organization":          false,
	"nrds_id":               false,
	"drop_memberships":      true,
	"drop_when":             false,
	"leaving_feedback":      false,
	"change_reasons":        true,
	"other_why":             false,
	"new_contact":           false,
	"new_broker_interested": false,
	"needs_letter":          false,
	"cancel_supra":          false,
	"has_listings":          false,
}

const logsColumns = `id, first_name, last_name, organization, nrds_id, drop_memberships, drop_when,
	leaving_feedback, change_reasons, other_why, new_contact, new_broker_interested, needs_letter,
	cancel_supra, has_listings, member_matched, created_at`

func scanLogsRequest(row rowScanner) (models.LogsRequest, error) {
	var r models.LogsRequest
	var drops, reasons string
	err := row.Scan(&r.ID, &r.FirstName, &r.LastName, &r.Organization, &r.NRDSID, &drops, &r.DropWhen,
		&r.LeavingFeedback, &reasons, &r.OtherWhy, &r.NewContact, &r.NewBrokerInterested, &r.NeedsLetter,
		&r.CancelSupra, &r.HasListings, &r.MemberMatched, &r.CreatedAt)
	r.DropMemberships = util.JSONToStrings(drops)
	r.ChangeReasons = util.JSONToStrings(reasons)
	return r, err
}

// SaveLogsRequest stores a submission and returns it with its id.
func (d *Database) SaveLogsRequest(ctx context.Context, r models.LogsRequest) (models.LogsRequest, error) {
	return withDBContextResult(d, ctx, func(ctx context.Context) (models.LogsRequest, error) {
		r.CreatedAt = d.nowISO()
		res, err := d.DB.ExecContext(ctx, `
			INSERT INTO logs_requests (
				first_name, last_name, organization, nrds_id,
				drop_memberships, drop_when, leaving_feedback,
				change_reasons, other_why, new_contact,
				new_broker_interested, needs_letter, cancel_supra,
				has_listings, member_matched, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.FirstName, r.LastName, r.Organization, r.NRDSID,
			util.StringsToJSON(r.DropMemberships), r.DropWhen, r.LeavingFeedback,
			util.StringsToJSON(r.ChangeReasons), r.OtherWhy, r.NewContact,
			r.NewBrokerInterested, r.NeedsLetter, r.CancelSupra,
			r.HasListings, r.MemberMatched, r.CreatedAt)
		if err != nil {
			return models.LogsRequest{}, wrapErr(EntityLogsRequest, "create", 0, err)
		}
		r.ID, err = res.LastInsertId()
		if err != nil {
			return models.LogsRequest{}, wrapErr(EntityLogsRequest, "create", 0, err)
		}
		return r, nil
	})
}

func (f LogsFilter) apply(q *selectQuery) *selectQuery {
	return q.
		WhereIf(f.StartDate != "", "created_at >= ?", f.StartDate).
		WhereIf(f.EndDate != "", "created_at <= ?", f.EndDate+"T23:59:59")
}

// ListLogsRequests returns submissions newest first.
func (d *Database) ListLogsRequests(ctx context.Context, f LogsFilter) ([]models.LogsRequest, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = config.LogsDefaultLimit
	}
	limit = min(limit, config.LogsMaxLimit)
	query, args := f.apply(newSelectQuery("SELECT "+logsColumns+" FROM logs_requests")).
		OrderBy("created_at DESC, id DESC").
		Limit(limit).
		Offset(max(f.Offset, 0)).
		Build()

	return withDBContextResult(d, ctx, func(ctx context.Context) ([]models.LogsRequest, error) {
		rows, err := d.DB.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, wrapErr(EntityLogsRequest, "list", 0, err)
		}
		defer rows.Close()

		out := []models.LogsRequest{}
		for rows.Next() {
			r, err := scanLogsRequest(rows)
			if err != nil {
				return nil, wrapErr(EntityLogsRequest, "list", 0, err)
			}
			out = append(out, r)
		}
		return out, wrapErr(EntityLogsRequest, "list", 0, rows.Err())
	})
}

// GetLogsRequest returns one submission.
func (d *Database) GetLogsRequest(ctx context.Context, id int64) (models.LogsRequest, error) {
	return withDBContextResult(d, ctx, func(ctx context.Context) (models.LogsRequest, error) {
		r, err := scanLogsRequest(d.DB.QueryRowContext(ctx, "SELECT "+logsColumns+" FROM logs_requests WHERE id = ?", id))
		if errors.Is(err, sql.ErrNoRows) {
			return models.LogsRequest{}, notFound(EntityLogsRequest, "get", id)
		}
		if err != nil {
			return models.LogsRequest{}, wrapErr(EntityLogsRequest, "get", id, err)
		}
		return r, nil
	})
}

// LogsStats tallies the answers of the submissions in range. Empty answers
// count as "N/A"; every change reason of a submission is counted.
func (d *Database) LogsStats(ctx context.Context, f LogsFilter) (models.LogsStats, error) {
	query, args := f.apply(newSelectQuery(`
		SELECT change_reasons, new_broker_interested, needs_letter, cancel_supra, has_listings
		FROM logs_requests`)).Build()

	return withDBContextResult(d, ctx, func(ctx context.Context) (models.LogsStats, error) {
		rows, err := d.DB.QueryContext(ctx, query, args...)
		if err != nil {
			return models.LogsStats{}, wrapErr(EntityLogsRequest, "stats", 0, err)
		}
		defer rows.Close()

		stats := models.NewLogsStats()
		bucket := func(m map[string]int, v string) {
			if v == "" {
				v = "N/A"
			}
			m[v]++
		}
		for rows.Next() {
			var reasons, broker, letter, supra, listings string
			if err := rows.Scan(&reasons, &broker, &letter, &supra, &listings); err != nil {
				return models.LogsStats{}, wrapErr(EntityLogsRequest, "stats", 0, err)
			}
			stats.Total++
			for _, r := range util.JSONToStrings(reasons) {
				stats.ChangeReasons[r]++
			}
			bucket(stats.NewBrokerInterested, broker)
			bucket(stats.NeedsLetter, letter)
			bucket(stats.CancelSupra, supra)
			bucket(stats.HasListings, listings)
		}
		return stats, wrapErr(EntityLogsRequest, "stats", 0, rows.Err())
	})
}

// UpdateLogsRequest writes the editable fields present in fields. List
// fields are stored as their JSON text; unknown keys are ignored.
func (d *Database) UpdateLogsRequest(ctx context.Context, id int64, fields map[string]json.RawMessage) error {
	cols := make([]string, 0, len(fields))
	for col := range fields {
		if _, ok := logsEditable[col]; ok {
			cols = append(cols, col)
		}
	}
	if len(cols) == 0 {
		return invalid(EntityLogsRequest, "update", "No valid fields to update")
	}
	sort.Strings(cols)

	sets := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols)+1)
	for _, col := range cols {
		raw := fields[col]
		sets = append(sets, col+" = ?")
		if logsEditable[col] {
			args = append(args, string(raw))
			continue
		}
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return invalid(EntityLogsRequest, "update", col+": "+err.Error())
		}
		args = append(args, v)
	}
	args = append(args, id)

	return d.withDBContext(ctx, func(ctx context.Context) error {
		if _, err := d.DB.ExecContext(ctx,
			"UPDATE logs_requests SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
			return wrapErr(EntityLogsRequest, "update", id, err)
		}
		return nil
	})
}

// DeleteLogsRequest removes one submission.
func (d *Database) DeleteLogsRequest(ctx context.Context, id int64) error {
	return d.withDBContext(ctx, func(ctx context.Context) error {
		if _, err := d.DB.ExecContext(ctx, "DELETE FROM logs_requests WHERE id = ?", id); err != nil {
			return wrapErr(EntityLogsRequest, "delete", id, err)
		}
		return nil
	})
}
