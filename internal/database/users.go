package database

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strings"

	"github.com/berealtors/wrapsheet/internal/config"
	"github.com/berealtors/wrapsheet/internal/models"
)

// UserInput is the body of POST /api/users.
type UserInput struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
	Role  string `json:"role"`
}

const userColumns = "id, name, email, role, is_active, avatar_url, created_at"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.IsActive, &u.AvatarURL, &u.CreatedAt)
	return u, err
}

// ListUsers returns active users ordered by name, optionally filtered by role.
func (d *Database) ListUsers(ctx context.Context, role string) ([]models.User, error) {
	return withDBContextResult(d, ctx, func(ctx context.Context) ([]models.User, error) {
		query, args := newSelectQuery("SELECT "+userColumns+" FROM users").
			Where("is_active = 1").
			WhereIf(role != "", "role = ?", role).
			OrderBy("name").
			Build()
		rows, err := d.DB.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, wrapErr(EntityUser, "list", 0, err)
		}
		defer rows.Close()

		users := []models.User{}
		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return nil, wrapErr(EntityUser, "list", 0, err)
			}
			users = append(users, u)
		}
		if err := rows.Err(); err != nil {
			return nil, wrapErr(EntityUser, "list", 0, err)
		}
		return users, nil
	})
}

// GetUserByEmail looks a user up by email, case-insensitively.
func (d *Database) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return withDBContextResult(d, ctx, func(ctx context.Context) (models.User, error) {
		return getUserByEmail(ctx, d.DB, email)
	})
}

func getUserByEmail(ctx context.Context, q querier, email string) (models.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, notFound(EntityUser, "get by email", 0)
	}
	if err != nil {
		return models.User{}, wrapErr(EntityUser, "get by email", 0, err)
	}
	return u, nil
}

// CreateUser inserts a user. When the email is taken it returns the existing
// user together with an error wrapping ErrConflict.
func (d *Database) CreateUser(ctx context.Context, in UserInput) (models.User, error) {
	return withTxResult(d, ctx, func(ctx context.Context, tx *sql.Tx) (models.User, error) {
		existing, err := getUserByEmail(ctx, tx, in.Email)
		if err == nil {
			return existing, wrapErr(EntityUser, "create", existing.ID, ErrConflict)
		}
		if !errors.Is(err, ErrNotFound) {
			return models.User{}, err
		}

		role := in.Role
		if role == "" {
			role = config.DefaultUserRole
		}
		avatar := "https://ui-avatars.com/api/?name=" + strings.ReplaceAll(url.QueryEscape(in.Name), "+", "%20") + "&background=random"
		res, err := tx.ExecContext(ctx,
			"INSERT INTO users (name, email, role, avatar_url, created_at) VALUES (?, ?, ?, ?, ?)",
			in.Name, strings.TrimSpace(in.Email), role, avatar, d.nowISO())
		if err != nil {
			return models.User{}, wrapErr(EntityUser, "create", 0, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return models.User{}, wrapErr(EntityUser, "create", 0, err)
		}
		return scanUser(tx.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	})
}
