package database

import "strings"

// selectQuery is a small fluent builder for list endpoints with optional
// filters.
type selectQuery struct {
	base    string
	filters []string
	args    []interface{}
	orderBy string
	limit   int
	offset  int
}

func newSelectQuery(base string) *selectQuery {
	return &selectQuery{base: base}
}

func (q *selectQuery) Where(filter string, args ...interface{}) *selectQuery {
	q.filters = append(q.filters, filter)
	q.args = append(q.args, args...)
	return q
}

// WhereIf adds the filter only when cond holds.
func (q *selectQuery) WhereIf(cond bool, filter string, args ...interface{}) *selectQuery {
	if !cond {
		return q
	}
	return q.Where(filter, args...)
}

func (q *selectQuery) OrderBy(orderBy string) *selectQuery {
	q.orderBy = orderBy
	return q
}

func (q *selectQuery) Limit(limit int) *selectQuery {
	q.limit = limit
	return q
}

func (q *selectQuery) Offset(offset int) *selectQuery {
	q.offset = offset
	return q
}

func (q *selectQuery) Build() (string, []interface{}) {
	query := q.base
	if len(q.filters) > 0 {
		query += " WHERE " + strings.Join(q.filters, " AND ")
	}
	if q.orderBy != "" {
		query += " ORDER BY " + q.orderBy
	}
	args := append([]interface{}{}, q.args...)
	if q.limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.limit)
		if q.offset > 0 {
			query += " OFFSET ?"
			args = append(args, q.offset)
		}
	}
	return query, args
}
