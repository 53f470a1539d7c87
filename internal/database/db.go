package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/berealtors/wrapsheet/internal/config"
	"github.com/berealtors/wrapsheet/internal/util"
)

const defaultDBTimeout = config.DBTimeout

// Database is the wrap sheet store. Every table lives in one SQLite file.
type Database struct {
	DB     *sql.DB
	dbFile string
	now    func() time.Time
}

// querier is satisfied by *sql.DB and *sql.Tx so helpers can run inside or
// outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Open opens (creating if needed) the database at path and brings the schema
// up to date.
func Open(ctx context.Context, path string) (*Database, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", path)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	d := &Database{DB: sqlDB, dbFile: path, now: time.Now}

	if err := d.withDBContext(ctx, func(ctx context.Context) error {
		return sqlDB.PingContext(ctx)
	}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := d.createTables(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if err := d.migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return d, nil
}

// Close releases the connection pool.
func (d *Database) Close() error {
	if d == nil || d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.dbFile
}

// SetClock replaces the wall clock used for timestamps.
func (d *Database) SetClock(now func() time.Time) {
	d.now = now
}

func (d *Database) nowISO() string {
	return util.NowISO(d.now())
}

func (d *Database) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (d *Database) withDBContext(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := d.withTimeout(ctx, defaultDBTimeout)
	defer cancel()
	return fn(ctx)
}

func withDBContextResult[T any](d *Database, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := d.withTimeout(ctx, defaultDBTimeout)
	defer cancel()
	return fn(ctx)
}

// WithTx runs fn in a transaction, rolling back when fn returns an error.
func (d *Database) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	ctx, cancel := d.withTimeout(ctx, defaultDBTimeout)
	defer cancel()
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func withTxResult[T any](d *Database, ctx context.Context, fn func(context.Context, *sql.Tx) (T, error)) (T, error) {
	var out T
	ctx, cancel := d.withTimeout(ctx, defaultDBTimeout)
	defer cancel()
	err := d.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = fn(ctx, tx)
		return err
	})
	return out, err
}

func (d *Database) createTables(ctx context.Context) error {
	return d.withDBContext(ctx, func(ctx context.Context) error {
		for _, query := range schema {
			if _, err := d.DB.ExecContext(ctx, query); err != nil {
				return fmt.Errorf("create table: %w", err)
			}
		}
		return nil
	})
}

// migrate adds columns introduced after the first deployment. ALTER errors
// mean the column already exists and are ignored.
func (d *Database) migrate(ctx context.Context) error {
	return d.withDBContext(ctx, func(ctx context.Context) error {
		for _, stmt := range columnMigrations {
			_, _ = d.DB.ExecContext(ctx, stmt)
		}
		for _, stmt := range indexes {
			if _, err := d.DB.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create index: %w", err)
			}
		}
		return nil
	})
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE COLLATE NOCASE,
		role TEXT NOT NULL DEFAULT 'member',
		is_active INTEGER NOT NULL DEFAULT 1,
		avatar_url TEXT,
		created_at TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS daily_tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		task_date TEXT NOT NULL,
		task_time TEXT,
		created_by_id INTEGER NOT NULL,
		assigned_to_id INTEGER NOT NULL,
		assigned_by_id INTEGER NOT NULL,
		assigned_at TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		completed_at TEXT,
		completion_notified INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS daily_task_assignees (
		task_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		PRIMARY KEY (task_id, user_id),
		FOREIGN KEY(task_id) REFERENCES daily_tasks(id)
	);`,
	`CREATE TABLE IF NOT EXISTS daily_task_subtasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		due_date TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		assigned_to_id INTEGER,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		completed_at TEXT,
		FOREIGN KEY(task_id) REFERENCES daily_tasks(id)
	);`,
	`CREATE TABLE IF NOT EXISTS monthly_goals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id INTEGER NOT NULL,
		month_key TEXT NOT NULL,
		category TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		progress_percent INTEGER NOT NULL DEFAULT 0,
		progress_note TEXT NOT NULL DEFAULT '',
		is_complete INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS annual_goals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id INTEGER NOT NULL,
		year TEXT NOT NULL,
		category TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		progress_percent INTEGER NOT NULL DEFAULT 0,
		progress_note TEXT NOT NULL DEFAULT '',
		is_complete INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS goal_categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		period_key TEXT NOT NULL,
		original_name TEXT NOT NULL,
		custom_name TEXT,
		owner_id INTEGER NOT NULL,
		display_order INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS goal_subtasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		goal_type TEXT NOT NULL,
		goal_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		weight INTEGER NOT NULL DEFAULT 1,
		linked_task_id INTEGER,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		completed_at TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_by_id INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS project_steps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER NOT NULL,
		step_order INTEGER NOT NULL DEFAULT 999,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		assigned_to_id INTEGER,
		status TEXT NOT NULL DEFAULT 'pending',
		completed_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		FOREIGN KEY(project_id) REFERENCES projects(id)
	);`,
	`CREATE TABLE IF NOT EXISTS project_step_assignees (
		step_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		created_at TEXT,
		PRIMARY KEY (step_id, user_id),
		FOREIGN KEY(step_id) REFERENCES project_steps(id)
	);`,
	`CREATE TABLE IF NOT EXISTS user_preferences (
		user_id INTEGER PRIMARY KEY,
		theme TEXT NOT NULL DEFAULT 'light',
		calendar_view TEXT NOT NULL DEFAULT 'month',
		section_order TEXT,
		enable_weekly_tasks INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS weekly_tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		week_key TEXT NOT NULL,
		assigned_to_id INTEGER NOT NULL,
		assigned_by_id INTEGER,
		status TEXT NOT NULL DEFAULT 'pending',
		priority INTEGER NOT NULL DEFAULT 0,
		completed_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS pillar_suggestions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		pillar TEXT,
		category TEXT,
		assigned_to_id INTEGER,
		created_by_id INTEGER,
		status TEXT NOT NULL DEFAULT 'suggested',
		created_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS task_votes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		vote_month TEXT NOT NULL,
		created_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS office_mls_contacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		contact_id INTEGER NOT NULL UNIQUE,
		name TEXT NOT NULL,
		nrds_id TEXT,
		mls_id TEXT,
		mls_office_id TEXT,
		address_line1 TEXT,
		address_city TEXT,
		address_state TEXT,
		address_zip TEXT,
		primary_email TEXT,
		primary_phone TEXT,
		member_status TEXT,
		membership_start_date TEXT,
		membership_expiration_date TEXT,
		last_synced_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS office_mls_addresses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		office_contact_id INTEGER NOT NULL,
		address_id INTEGER,
		address_type TEXT,
		line1 TEXT,
		line2 TEXT,
		city TEXT,
		state TEXT,
		zip TEXT,
		is_primary INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS office_mls_phones (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		office_contact_id INTEGER NOT NULL,
		phone_id INTEGER,
		phone_type TEXT,
		number TEXT,
		is_primary INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS pins (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE COLLATE NOCASE,
		city TEXT NOT NULL,
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		created_at TEXT DEFAULT (datetime('now'))
	);`,
	`CREATE TABLE IF NOT EXISTS members (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		contact_id TEXT,
		nrds_id TEXT,
		full_name TEXT,
		contact_type TEXT,
		membership_status TEXT,
		office_name TEXT,
		coe_latest_date TEXT,
		primary_address1 TEXT,
		primary_address2 TEXT,
		memberships TEXT,
		updated_at TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS logs_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		organization TEXT NOT NULL DEFAULT '',
		nrds_id TEXT NOT NULL DEFAULT '',
		drop_memberships TEXT NOT NULL DEFAULT '[]',
		drop_when TEXT NOT NULL DEFAULT '',
		leaving_feedback TEXT NOT NULL DEFAULT '',
		change_reasons TEXT NOT NULL DEFAULT '[]',
		other_why TEXT NOT NULL DEFAULT '',
		new_contact TEXT NOT NULL DEFAULT '',
		new_broker_interested TEXT NOT NULL DEFAULT '',
		needs_letter TEXT NOT NULL DEFAULT '',
		cancel_supra TEXT NOT NULL DEFAULT '',
		has_listings TEXT NOT NULL DEFAULT '',
		member_matched INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);`,
}

// Columns added after the first schema; kept in the order they shipped.
var columnMigrations = []string{
	"ALTER TABLE projects ADD COLUMN waiting_on TEXT NOT NULL DEFAULT ''",
	"ALTER TABLE projects ADD COLUMN blocking_task TEXT NOT NULL DEFAULT ''",
	"ALTER TABLE pillar_suggestions ADD COLUMN source TEXT",
	"ALTER TABLE pillar_suggestions ADD COLUMN progress_percent INTEGER",
	"ALTER TABLE pillar_suggestions ADD COLUMN progress_notes TEXT",
	"ALTER TABLE pillar_suggestions ADD COLUMN eta_date TEXT",
	"ALTER TABLE pillar_suggestions ADD COLUMN completed_at TEXT",
}

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_daily_tasks_date ON daily_tasks(task_date)",
	"CREATE INDEX IF NOT EXISTS idx_daily_task_subtasks_task ON daily_task_subtasks(task_id)",
	"CREATE INDEX IF NOT EXISTS idx_goal_subtasks_goal ON goal_subtasks(goal_type, goal_id)",
	"CREATE INDEX IF NOT EXISTS idx_goal_subtasks_linked ON goal_subtasks(linked_task_id)",
	"CREATE INDEX IF NOT EXISTS idx_project_steps_project ON project_steps(project_id)",
	"CREATE INDEX IF NOT EXISTS idx_task_votes_user_month ON task_votes(user_id, vote_month)",
	"CREATE INDEX IF NOT EXISTS idx_task_votes_task ON task_votes(task_id)",
	"CREATE INDEX IF NOT EXISTS idx_members_nrds ON members(nrds_id)",
	"CREATE INDEX IF NOT EXISTS idx_logs_requests_created ON logs_requests(created_at)",
}
