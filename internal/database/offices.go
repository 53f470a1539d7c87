package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/berealtors/wrapsheet/internal/models"
	"github.com/berealtors/wrapsheet/internal/util"
)

const officeColumns = `id, contact_id, name, nrds_id, mls_id, mls_office_id, address_line1, address_city,
	address_state, address_zip, primary_email, primary_phone, member_status, membership_start_date,
	membership_expiration_date, last_synced_at, created_at, updated_at`

func scanOffice(row rowScanner) (models.Office, error) {
	var o models.Office
	err := row.Scan(&o.ID, &o.ContactID, &o.Name, &o.NRDSID, &o.MLSID, &o.MLSOfficeID, &o.AddressLine1,
		&o.AddressCity, &o.AddressState, &o.AddressZip, &o.PrimaryEmail, &o.PrimaryPhone, &o.MemberStatus,
		&o.MembershipStartDate, &o.MembershipExpirationDate, &o.LastSyncedAt, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// ListOffices returns mirrored offices ordered by name. search matches name,
// NRDS id or MLS id as a substring.
func (d *Database) ListOffices(ctx context.Context, status, search string) ([]models.Office, error) {
	term := util.LikeContains(search)
	query, args := newSelectQuery("SELECT "+officeColumns+" FROM office_mls_contacts").
		WhereIf(status != "", "member_status = ?", status).
		WhereIf(search != "", `(name LIKE ? ESCAPE '\' OR nrds_id LIKE ? ESCAPE '\' OR mls_id LIKE ? ESCAPE '\')`, term, term, term).
		OrderBy("name").
		Build()

	return withDBContextResult(d, ctx, func(ctx context.Context) ([]models.Office, error) {
		rows, err := d.DB.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, wrapErr(EntityOffice, "list", 0, err)
		}
		defer rows.Close()

		out := []models.Office{}
		for rows.Next() {
			o, err := scanOffice(rows)
			if err != nil {
				return nil, wrapErr(EntityOffice, "list", 0, err)
			}
			out = append(out, o)
		}
		return out, wrapErr(EntityOffice, "list", 0, rows.Err())
	})
}

// GetOffice looks an office up by row id or GrowthZone contact id.
func (d *Database) GetOffice(ctx context.Context, id int64) (models.Office, error) {
	return withDBContextResult(d, ctx, func(ctx context.Context) (models.Office, error) {
		o, err := scanOffice(d.DB.QueryRowContext(ctx,
			"SELECT "+officeColumns+" FROM office_mls_contacts WHERE id = ? OR contact_id = ? ORDER BY id LIMIT 1", id, id))
		if errors.Is(err, sql.ErrNoRows) {
			return models.Office{}, notFound(EntityOffice, "get", id)
		}
		if err != nil {
			return models.Office{}, wrapErr(EntityOffice, "get", id, err)
		}
		return o, nil
	})
}

// OfficeDetail returns an office's synced addresses and phones.
func (d *Database) OfficeDetail(ctx context.Context, contactID int64) ([]models.OfficeAddress, []models.OfficePhone, error) {
	ctx, cancel := d.withTimeout(ctx, defaultDBTimeout)
	defer cancel()

	addrRows, err := d.DB.QueryContext(ctx, `
		SELECT address_id, address_type, line1, line2, city, state, zip, is_primary
		FROM office_mls_addresses WHERE office_contact_id = ? ORDER BY id`, contactID)
	if err != nil {
		return nil, nil, wrapErr(EntityOffice, "load addresses", contactID, err)
	}
	addresses := []models.OfficeAddress{}
	for addrRows.Next() {
		var a models.OfficeAddress
		if err := addrRows.Scan(&a.AddressID, &a.AddressType, &a.Line1, &a.Line2, &a.City, &a.State, &a.Zip, &a.IsPrimary); err != nil {
			addrRows.Close()
			return nil, nil, wrapErr(EntityOffice, "load addresses", contactID, err)
		}
		addresses = append(addresses, a)
	}
	err = addrRows.Err()
	addrRows.Close()
	if err != nil {
		return nil, nil, wrapErr(EntityOffice, "load addresses", contactID, err)
	}

	phoneRows, err := d.DB.QueryContext(ctx, `
		SELECT phone_id, phone_type, number, is_primary
		FROM office_mls_phones WHERE office_contact_id = ? ORDER BY id`, contactID)
	if err != nil {
		return nil, nil, wrapErr(EntityOffice, "load phones", contactID, err)
	}
	defer phoneRows.Close()
	phones := []models.OfficePhone{}
	for phoneRows.Next() {
		var p models.OfficePhone
		if err := phoneRows.Scan(&p.PhoneID, &p.PhoneType, &p.Number, &p.IsPrimary); err != nil {
			return nil, nil, wrapErr(EntityOffice, "load phones", contactID, err)
		}
		phones = append(phones, p)
	}
	return addresses, phones, wrapErr(EntityOffice, "load phones", contactID, phoneRows.Err())
}

// DeleteOffice removes an office (by row id or contact id) together with its
// addresses and phones.
func (d *Database) DeleteOffice(ctx context.Context, id int64) error {
	return d.WithTx(ctx, func(tx *sql.Tx) error {
		var contactID int64
		err := tx.QueryRowContext(ctx,
			"SELECT contact_id FROM office_mls_contacts WHERE id = ? OR contact_id = ? ORDER BY id LIMIT 1", id, id).Scan(&contactID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return wrapErr(EntityOffice, "delete", id, err)
		}
		stmts := []string{
			"DELETE FROM office_mls_addresses WHERE office_contact_id = ?",
			"DELETE FROM office_mls_phones WHERE office_contact_id = ?",
			"DELETE FROM office_mls_contacts WHERE contact_id = ?",
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt, contactID); err != nil {
				return wrapErr(EntityOffice, "delete", id, err)
			}
		}
		return nil
	})
}

// UpsertOffices applies a manual sync payload keyed by contact_id. Rows
// without a contact id or a name are skipped but still counted in Total.
func (d *Database) UpsertOffices(ctx context.Context, offices []models.OfficeInput) (models.UpsertResult, error) {
	res := models.UpsertResult{Total: len(offices)}
	err := d.WithTx(ctx, func(tx *sql.Tx) error {
		now := d.nowISO()
		for _, o := range offices {
			if o.ContactID <= 0 || o.Name == "" {
				continue
			}
			inserted, err := upsertOffice(ctx, tx, o, now)
			if err != nil {
				return err
			}
			if inserted {
				res.Inserted++
			} else {
				res.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return models.UpsertResult{}, err
	}
	return res, nil
}

// SyncOfficeContact upserts one GrowthZone contact and replaces its address
// and phone rows. It reports whether the office was new.
func (d *Database) SyncOfficeContact(ctx context.Context, rec models.OfficeSyncRecord) (bool, error) {
	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (bool, error) {
		now := d.nowISO()
		contactID := int64(rec.Office.ContactID)
		inserted, err := upsertOffice(ctx, tx, rec.Office, now)
		if err != nil {
			return false, err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM office_mls_addresses WHERE office_contact_id = ?", contactID); err != nil {
			return false, wrapErr(EntityOffice, "replace addresses", contactID, err)
		}
		for _, a := range rec.Addresses {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO office_mls_addresses
					(office_contact_id, address_id, address_type, line1, line2, city, state, zip, is_primary, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				contactID, toNullableArg(a.AddressID), toNullableArg(a.AddressType), toNullableArg(a.Line1),
				toNullableArg(a.Line2), toNullableArg(a.City), toNullableArg(a.State), toNullableArg(a.Zip),
				util.BoolToInt(a.IsPrimary), now, now); err != nil {
				return false, wrapErr(EntityOffice, "replace addresses", contactID, err)
			}
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM office_mls_phones WHERE office_contact_id = ?", contactID); err != nil {
			return false, wrapErr(EntityOffice, "replace phones", contactID, err)
		}
		for _, p := range rec.Phones {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO office_mls_phones
					(office_contact_id, phone_id, phone_type, number, is_primary, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				contactID, toNullableArg(p.PhoneID), toNullableArg(p.PhoneType), toNullableArg(p.Number),
				util.BoolToInt(p.IsPrimary), now, now); err != nil {
				return false, wrapErr(EntityOffice, "replace phones", contactID, err)
			}
		}
		return inserted, nil
	})
}

func upsertOffice(ctx context.Context, q querier, o models.OfficeInput, now string) (bool, error) {
	contactID := int64(o.ContactID)
	var id int64
	err := q.QueryRowContext(ctx, "SELECT id FROM office_mls_contacts WHERE contact_id = ?", contactID).Scan(&id)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, wrapErr(EntityOffice, "lookup", contactID, err)
	}

	fields := []interface{}{
		o.Name,
		nullableString(o.NRDSID),
		nullableString(o.MLSID),
		nullableString(o.MLSOfficeID),
		nullableString(o.AddressLine1),
		nullableString(o.AddressCity),
		nullableString(o.AddressState),
		nullableString(o.AddressZip),
		nullableString(o.PrimaryEmail),
		nullableString(o.PrimaryPhone),
		nullableString(o.MemberStatus),
		nullableString(o.MembershipStartDate),
		nullableString(o.MembershipExpirationDate),
	}

	if exists {
		args := append(fields, now, now, contactID)
		if _, err := q.ExecContext(ctx, `
			UPDATE office_mls_contacts SET
				name = ?, nrds_id = ?, mls_id = ?, mls_office_id = ?,
				address_line1 = ?, address_city = ?, address_state = ?, address_zip = ?,
				primary_email = ?, primary_phone = ?, member_status = ?,
				membership_start_date = ?, membership_expiration_date = ?,
				last_synced_at = ?, updated_at = ?
			WHERE contact_id = ?`, args...); err != nil {
			return false, wrapErr(EntityOffice, "update", contactID, err)
		}
		return false, nil
	}

	args := append([]interface{}{contactID}, fields...)
	args = append(args, now, now, now)
	if _, err := q.ExecContext(ctx, `
		INSERT INTO office_mls_contacts (
			contact_id, name, nrds_id, mls_id, mls_office_id,
			address_line1, address_city, address_state, address_zip,
			primary_email, primary_phone, member_status,
			membership_start_date, membership_expiration_date,
			last_synced_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...); err != nil {
		return false, wrapErr(EntityOffice, "insert", contactID, err)
	}
	return true, nil
}
