package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// exportTables lists every table in restore order: parents before children.
var exportTables = []string{
	"users",
	"daily_tasks",
	"daily_task_assignees",
	"daily_task_subtasks",
	"monthly_goals",
	"annual_goals",
	"goal_categories",
	"goal_subtasks",
	"projects",
	"project_steps",
	"project_step_assignees",
	"user_preferences",
	"weekly_tasks",
	"pillar_suggestions",
	"task_votes",
	"office_mls_contacts",
	"office_mls_addresses",
	"office_mls_phones",
	"pins",
	"members",
	"logs_requests",
}

// Backup is the operator dump written by `wrapsheet export`: every table as
// a list of column/value rows.
type Backup struct {
	ExportedAt string                              `json:"exported_at"`
	Tables     map[string][]map[string]interface{} `json:"tables"`
}

// ExportJSON writes a Backup of the whole database to w.
func (d *Database) ExportJSON(ctx context.Context, w io.Writer) error {
	backup := Backup{ExportedAt: d.nowISO(), Tables: make(map[string][]map[string]interface{}, len(exportTables))}
	for _, table := range exportTables {
		rows, err := d.dumpTable(ctx, table)
		if err != nil {
			return err
		}
		backup.Tables[table] = rows
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(backup); err != nil {
		return fmt.Errorf("export encode: %w", err)
	}
	return nil
}

func (d *Database) dumpTable(ctx context.Context, table string) ([]map[string]interface{}, error) {
	ctx, cancel := d.withTimeout(ctx, defaultDBTimeout)
	defer cancel()
	rows, err := d.DB.QueryContext(ctx, "SELECT * FROM "+table+" ORDER BY rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("export %s columns: %w", table, err)
	}
	out := []map[string]interface{}{}
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("export %s: %w", table, err)
		}
		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ImportJSON restores a Backup produced by ExportJSON, replacing rows with
// the same primary key. Unknown tables and columns are rejected.
func (d *Database) ImportJSON(ctx context.Context, r io.Reader) error {
	var backup Backup
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&backup); err != nil {
		return fmt.Errorf("import decode: %w", err)
	}
	known := make(map[string]bool, len(exportTables))
	for _, t := range exportTables {
		known[t] = true
	}
	for table := range backup.Tables {
		if !known[table] {
			return fmt.Errorf("import: unknown table %q", table)
		}
	}

	return d.WithTx(ctx, func(tx *sql.Tx) error {
		for _, table := range exportTables {
			rows := backup.Tables[table]
			if len(rows) == 0 {
				continue
			}
			columns, err := tableColumns(ctx, tx, table)
			if err != nil {
				return err
			}
			for i, row := range rows {
				cols := make([]string, 0, len(row))
				for col := range row {
					if !columns[col] {
						return fmt.Errorf("import %s row %d: unknown column %q", table, i, col)
					}
					cols = append(cols, col)
				}
				sort.Strings(cols)
				args := make([]interface{}, len(cols))
				for j, col := range cols {
					args[j] = importValue(row[col])
				}
				query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
					table, strings.Join(cols, ", "), placeholders(len(cols)))
				if _, err := tx.ExecContext(ctx, query, args...); err != nil {
					return fmt.Errorf("import %s row %d: %w", table, i, err)
				}
			}
		}
		return nil
	})
}

// importValue keeps integers exact; JSON numbers would otherwise come back
// as float64.
func importValue(v interface{}) interface{} {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	f, _ := n.Float64()
	return f
}

func tableColumns(ctx context.Context, q querier, table string) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("import %s columns: %w", table, err)
	}
	defer rows.Close()
	out := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("import %s columns: %w", table, err)
		}
		out[name] = true
	}
	return out, rows.Err()
}
