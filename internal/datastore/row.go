package datastore

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"
)

// Row is one result row keyed by column name.
type Row map[string]any

// String returns the column as a string, or "" when absent or null.
func (r Row) String(column string) string {
	switch v := r[column].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Float returns a numeric column as float64. Missing, null and
// non-numeric values yield 0.
func (r Row) Float(column string) float64 {
	switch v := r[column].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	case pgtype.Numeric:
		f, err := v.Float64Value()
		if err != nil || !f.Valid {
			return 0
		}
		return f.Float64
	}
	return 0
}

// CountWhere counts rows whose column equals value.
func CountWhere(rows []Row, column, value string) int {
	n := 0
	for _, r := range rows {
		if r.String(column) == value {
			n++
		}
	}
	return n
}

// Sum adds up a numeric column across rows.
func Sum(rows []Row, column string) float64 {
	var total float64
	for _, r := range rows {
		total += r.Float(column)
	}
	return total
}
