package database

import (
	"database/sql"
	"strings"

	"github.com/berealtors/wrapsheet/internal/config"
	"github.com/berealtors/wrapsheet/internal/models"
	"github.com/berealtors/wrapsheet/internal/util"
)

// positiveID turns an optional request id into a column value. Absent and
// non-positive ids become nil.
func positiveID(id *models.FlexInt64) *int64 {
	if id == nil || *id <= 0 {
		return nil
	}
	return util.Ptr(int64(*id))
}

// nullableInt64 converts an int64 to sql.NullInt64 for optional fields.
// Values <= 0 are treated as NULL.
func nullableInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v > 0}
}

// nullableString converts a string to sql.NullString for optional fields.
// Empty strings are treated as NULL.
func nullableString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

// toNullableArg converts a pointer to an interface{} suitable for SQL args.
// Returns nil if pointer is nil, otherwise returns the dereferenced value.
func toNullableArg[T any](v *T) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// placeholders returns "?, ?, ..." for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// chunkIDs splits ids into batches small enough for one IN (...) list.
func chunkIDs(ids []int64) [][]int64 {
	size := config.HydrationBatchSize
	var out [][]int64
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}

func int64Args(ids []int64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// completionStamp returns the completed_at value after a status change:
// set on the transition into done, cleared on the way out.
func completionStamp(oldStatus, newStatus string, cur *string, now string) *string {
	switch {
	case oldStatus != "done" && newStatus == "done":
		return &now
	case oldStatus == "done" && newStatus != "done":
		return nil
	default:
		return cur
	}
}
