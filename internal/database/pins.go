package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/berealtors/wrapsheet/internal/models"
)

// ListPins returns every globe pin in placement order.
func (d *Database) ListPins(ctx context.Context) ([]models.Pin, error) {
	return withDBContextResult(d, ctx, func(ctx context.Context) ([]models.Pin, error) {
		rows, err := d.DB.QueryContext(ctx,
			"SELECT id, name, city, lat, lng, COALESCE(created_at, '') FROM pins ORDER BY created_at ASC, id ASC")
		if err != nil {
			return nil, wrapErr(EntityPin, "list", 0, err)
		}
		defer rows.Close()

		pins := []models.Pin{}
		for rows.Next() {
			var p models.Pin
			if err := rows.Scan(&p.ID, &p.Name, &p.City, &p.Lat, &p.Lng, &p.CreatedAt); err != nil {
				return nil, wrapErr(EntityPin, "list", 0, err)
			}
			pins = append(pins, p)
		}
		return pins, wrapErr(EntityPin, "list", 0, rows.Err())
	})
}

// CreatePin places a pin. Names are unique without regard to case: on a
// clash the existing pin is returned with an ErrConflict error.
func (d *Database) CreatePin(ctx context.Context, name, city string, lat, lng float64) (models.Pin, error) {
	name = strings.TrimSpace(name)
	city = strings.TrimSpace(city)
	if name == "" || city == "" {
		return models.Pin{}, invalid(EntityPin, "create", "name, city, lat, lng are required")
	}

	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (models.Pin, error) {
		var existing models.Pin
		err := tx.QueryRowContext(ctx,
			"SELECT id, name, city, lat, lng FROM pins WHERE LOWER(name) = LOWER(?)", name).
			Scan(&existing.ID, &existing.Name, &existing.City, &existing.Lat, &existing.Lng)
		switch {
		case err == nil:
			return existing, wrapErr(EntityPin, "create", existing.ID, ErrConflict)
		case !errors.Is(err, sql.ErrNoRows):
			return models.Pin{}, wrapErr(EntityPin, "lookup", 0, err)
		}

		res, err := tx.ExecContext(ctx, "INSERT INTO pins (name, city, lat, lng) VALUES (?, ?, ?, ?)", name, city, lat, lng)
		if isUniqueViolation(err) {
			return models.Pin{Name: name, City: city, Lat: lat, Lng: lng}, wrapErr(EntityPin, "create", 0, ErrConflict)
		}
		if err != nil {
			return models.Pin{}, wrapErr(EntityPin, "create", 0, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return models.Pin{}, wrapErr(EntityPin, "create", 0, err)
		}
		return models.Pin{ID: id, Name: name, City: city, Lat: lat, Lng: lng}, nil
	})
}
