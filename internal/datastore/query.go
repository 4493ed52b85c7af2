package datastore

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by a store whose connection settings are missing.
var ErrNotConfigured = errors.New("data store not configured")

// Operator is a filter comparison.
type Operator string

// Supported filter operators.
const (
	OpEq    Operator = "eq"
	OpLte   Operator = "lte"
	OpGte   Operator = "gte"
	OpILike Operator = "ilike"
)

// Filter restricts rows by comparing Column to Value.
type Filter struct {
	Column string
	Op     Operator
	Value  any
}

// Embed nests the parent row from Table, found through the ForeignKey
// column of the queried table, under the key Table.
type Embed struct {
	Table      string
	ForeignKey string
}

// Order sorts the result by Column.
type Order struct {
	Column     string
	Descending bool
}

// Query describes a single-table read.
type Query struct {
	Table   string
	Columns []string
	Embeds  []Embed
	Filters []Filter
	Order   *Order
	Limit   int
}

// From starts a query on table.
func From(table string) *Query {
	return &Query{Table: table}
}

// Select restricts the returned columns. No call means all columns.
func (q *Query) Select(columns ...string) *Query {
	q.Columns = append(q.Columns, columns...)
	return q
}

// Embed nests the parent row of table referenced by foreignKey.
func (q *Query) Embed(table, foreignKey string) *Query {
	q.Embeds = append(q.Embeds, Embed{Table: table, ForeignKey: foreignKey})
	return q
}

// Eq adds column = value.
func (q *Query) Eq(column string, value any) *Query {
	return q.where(column, OpEq, value)
}

// Lte adds column <= value.
func (q *Query) Lte(column string, value any) *Query {
	return q.where(column, OpLte, value)
}

// Gte adds column >= value.
func (q *Query) Gte(column string, value any) *Query {
	return q.where(column, OpGte, value)
}

// ILike adds a case-insensitive pattern match; % matches any run of characters.
func (q *Query) ILike(column, pattern string) *Query {
	return q.where(column, OpILike, pattern)
}

// OrderBy sorts by column.
func (q *Query) OrderBy(column string, descending bool) *Query {
	q.Order = &Order{Column: column, Descending: descending}
	return q
}

// WithLimit caps the number of rows. Zero means no limit.
func (q *Query) WithLimit(n int) *Query {
	q.Limit = n
	return q
}

func (q *Query) where(column string, op Operator, value any) *Query {
	q.Filters = append(q.Filters, Filter{Column: column, Op: op, Value: value})
	return q
}

// Validate checks that the query is well formed.
func (q *Query) Validate() error {
	if q.Table == "" {
		return errors.New("query has no table")
	}
	for _, f := range q.Filters {
		switch f.Op {
		case OpEq, OpLte, OpGte, OpILike:
		default:
			return errors.New("unsupported filter operator " + string(f.Op))
		}
		if f.Column == "" {
			return errors.New("filter has no column")
		}
	}
	for _, e := range q.Embeds {
		if e.Table == "" || e.ForeignKey == "" {
			return errors.New("embed needs a table and a foreign key")
		}
	}
	return nil
}

// Store runs queries.
type Store interface {
	Select(ctx context.Context, q *Query) ([]Row, error)
}
