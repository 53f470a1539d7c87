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

const memberColumns = `id, contact_id, nrds_id, full_name, contact_type, membership_status, office_name,
	coe_latest_date, primary_address1, primary_address2, memberships, updated_at`

func scanMember(row rowScanner) (models.Member, error) {
	var m models.Member
	err := row.Scan(&m.ID, &m.ContactID, &m.NRDSID, &m.FullName, &m.ContactType, &m.MembershipStatus,
		&m.OfficeName, &m.COELatestDate, &m.PrimaryAddress1, &m.PrimaryAddress2, &m.Memberships, &m.UpdatedAt)
	return m, err
}

func flexPtr(f *models.FlexString) interface{} {
	if f == nil {
		return nil
	}
	return string(*f)
}

// ReplaceMembers swaps the whole roster for rows in one transaction and
// returns the number of rows written.
func (d *Database) ReplaceMembers(ctx context.Context, rows []models.MemberRow) (int, error) {
	if len(rows) == 0 {
		return 0, invalid(EntityMember, "replace", "No rows provided")
	}
	err := d.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM members"); err != nil {
			return wrapErr(EntityMember, "clear", 0, err)
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO members (
				contact_id, nrds_id, full_name, contact_type, membership_status, office_name,
				coe_latest_date, primary_address1, primary_address2, memberships, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))`)
		if err != nil {
			return wrapErr(EntityMember, "prepare insert", 0, err)
		}
		defer stmt.Close()
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx,
				flexPtr(r.ContactID), flexPtr(r.NRDSID), toNullableArg(r.FullName), toNullableArg(r.ContactType),
				toNullableArg(r.MembershipStatus), toNullableArg(r.OfficeName), toNullableArg(r.COELatestDate),
				toNullableArg(r.PrimaryAddress1), toNullableArg(r.PrimaryAddress2), toNullableArg(r.Memberships)); err != nil {
				return wrapErr(EntityMember, "insert", 0, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// GetMemberByNRDS returns the first member carrying nrdsID.
func (d *Database) GetMemberByNRDS(ctx context.Context, nrdsID string) (models.Member, error) {
	return d.findMember(ctx, "nrds_id = ?", nrdsID)
}

// FindMemberByName matches a full name without regard to case.
func (d *Database) FindMemberByName(ctx context.Context, fullName string) (models.Member, error) {
	return d.findMember(ctx, "full_name = ? COLLATE NOCASE", fullName)
}

func (d *Database) findMember(ctx context.Context, where string, arg string) (models.Member, error) {
	return withDBContextResult(d, ctx, func(ctx context.Context) (models.Member, error) {
		m, err := scanMember(d.DB.QueryRowContext(ctx,
			"SELECT "+memberColumns+" FROM members WHERE "+where+" ORDER BY id LIMIT 1", arg))
		if errors.Is(err, sql.ErrNoRows) {
			return models.Member{}, notFound(EntityMember, "get", 0)
		}
		if err != nil {
			return models.Member{}, wrapErr(EntityMember, "get", 0, err)
		}
		return m, nil
	})
}

// MatchMember resolves the member behind a LOGS form: by NRDS id when one
// was given, otherwise by "first last" name. It returns nil with a
// *_not_found status when nothing matches.
func (d *Database) MatchMember(ctx context.Context, form models.LogsForm) (*models.Member, string, error) {
	var (
		m      models.Member
		err    error
		hit    string
		miss   string
		nrdsID = strings.TrimSpace(form.NRDSID)
	)
	if nrdsID != "" {
		m, err = d.GetMemberByNRDS(ctx, nrdsID)
		hit, miss = models.MatchByNRDS, models.MatchNRDSNotFound
	} else {
		m, err = d.FindMemberByName(ctx, form.FullName())
		hit, miss = models.MatchByName, models.MatchNameNotFound
	}
	if errors.Is(err, ErrNotFound) {
		return nil, miss, nil
	}
	if err != nil {
		return nil, "", err
	}
	return &m, hit, nil
}

// SearchMembers returns up to config.MemberSearchLimit members whose name
// contains q. Queries shorter than config.MemberSearchMinChars match nothing.
func (d *Database) SearchMembers(ctx context.Context, q string) ([]models.MemberSummary, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < config.MemberSearchMinChars {
		return []models.MemberSummary{}, nil
	}
	return withDBContextResult(d, ctx, func(ctx context.Context) ([]models.MemberSummary, error) {
		rows, err := d.DB.QueryContext(ctx, `
			SELECT full_name, nrds_id, office_name, membership_status
			FROM members
			WHERE full_name LIKE ? ESCAPE '\'
			ORDER BY full_name
			LIMIT ?`, util.LikeContains(q), config.MemberSearchLimit)
		if err != nil {
			return nil, wrapErr(EntityMember, "search", 0, err)
		}
		defer rows.Close()

		out := []models.MemberSummary{}
		for rows.Next() {
			var s models.MemberSummary
			if err := rows.Scan(&s.FullName, &s.NRDSID, &s.OfficeName, &s.MembershipStatus); err != nil {
				return nil, wrapErr(EntityMember, "search", 0, err)
			}
			out = append(out, s)
		}
		return out, wrapErr(EntityMember, "search", 0, rows.Err())
	})
}
