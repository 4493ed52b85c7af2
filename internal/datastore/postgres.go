package datastore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres queries a PostgreSQL database directly.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a connection pool for dsn. Connections are opened
// lazily on first use.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, ErrNotConfigured
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Select implements Store.
func (p *Postgres) Select(ctx context.Context, q *Query) ([]Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	sql, args := buildSelect(q)

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("read %s rows: %w", q.Table, err)
	}

	out := make([]Row, len(maps))
	for i, m := range maps {
		out[i] = Row(m)
	}
	return out, nil
}

// Ping verifies the database is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close releases every pooled connection.
func (p *Postgres) Close() {
	p.pool.Close()
}

// buildSelect renders q as a parameterised SELECT. Embedded parents become
// correlated row_to_json subqueries aliased to the parent table name.
func buildSelect(q *Query) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)

	sb.WriteString("SELECT ")
	if len(q.Columns) == 0 {
		sb.WriteString("t.*")
	} else {
		for i, c := range q.Columns {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("t." + ident(c))
		}
	}
	for i, e := range q.Embeds {
		alias := "e" + strconv.Itoa(i)
		fmt.Fprintf(&sb, ", (SELECT row_to_json(%s) FROM %s %s WHERE %s.id = t.%s) AS %s",
			alias, ident(e.Table), alias, alias, ident(e.ForeignKey), ident(e.Table))
	}
	sb.WriteString(" FROM " + ident(q.Table) + " t")

	for i, f := range q.Filters {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		args = append(args, f.Value)
		fmt.Fprintf(&sb, "t.%s %s $%d", ident(f.Column), sqlOperator(f.Op), len(args))
	}

	if q.Order != nil {
		sb.WriteString(" ORDER BY t." + ident(q.Order.Column))
		if q.Order.Descending {
			sb.WriteString(" DESC")
		}
	}
	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + strconv.Itoa(q.Limit))
	}
	return sb.String(), args
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func sqlOperator(op Operator) string {
	switch op {
	case OpLte:
		return "<="
	case OpGte:
		return ">="
	case OpILike:
		return "ILIKE"
	default:
		return "="
	}
}
