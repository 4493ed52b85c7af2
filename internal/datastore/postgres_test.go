package datastore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSelect(t *testing.T) {
	q := From("maintenance_requests").
		Embed("properties", "property_id").
		Eq("status", "submitted").
		Lte("cost", 500).
		ILike("title", "%leak%").
		OrderBy("reported_date", true).
		WithLimit(25)

	sql, args := buildSelect(q)
	assert.Equal(t,
		`SELECT t.*, (SELECT row_to_json(e0) FROM "properties" e0 WHERE e0.id = t."property_id") AS "properties"`+
			` FROM "maintenance_requests" t WHERE t."status" = $1 AND t."cost" <= $2 AND t."title" ILIKE $3`+
			` ORDER BY t."reported_date" DESC LIMIT 25`,
		sql)
	assert.Equal(t, []any{"submitted", 500, "%leak%"}, args)
}

func TestBuildSelect_ColumnsAndQuoting(t *testing.T) {
	sql, args := buildSelect(From(`we"ird`).Select("id").Gte("price", 1.5).OrderBy("id", false))
	assert.Equal(t, `SELECT t."id" FROM "we""ird" t WHERE t."price" >= $1 ORDER BY t."id"`, sql)
	assert.Equal(t, []any{1.5}, args)
}

func TestNewPostgres_NotConfigured(t *testing.T) {
	_, err := NewPostgres(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewPostgres_InvalidDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), "postgres://%zz")
	require.Error(t, err)
}

// TestPostgres_Integration runs against a live database when
// BIZGATEWAY_TEST_POSTGRES_DSN is set.
func TestPostgres_Integration(t *testing.T) {
	dsn := os.Getenv("BIZGATEWAY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("BIZGATEWAY_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	pg, err := NewPostgres(ctx, dsn)
	require.NoError(t, err)
	defer pg.Close()
	require.NoError(t, pg.Ping(ctx))

	_, err = pg.pool.Exec(ctx, `
		DROP TABLE IF EXISTS landlord_statements, landlords;
		CREATE TABLE landlords (id int PRIMARY KEY, name text);
		CREATE TABLE landlord_statements (id int, landlord_id int, period_end date, amount numeric);
		INSERT INTO landlords VALUES (1, 'Acme Holdings');
		INSERT INTO landlord_statements VALUES (10, 1, '2024-01-31', 100.25), (11, 1, '2024-02-29', 200.50);`)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pg.pool.Exec(context.Background(), `DROP TABLE IF EXISTS landlord_statements, landlords`)
	})

	rows, err := pg.Select(ctx, From("landlord_statements").
		Embed("landlords", "landlord_id").
		Eq("landlord_id", 1).
		OrderBy("period_end", true))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "11", rows[0].String("id"))
	assert.InDelta(t, 300.75, Sum(rows, "amount"), 0.001)

	landlord, ok := rows[0]["landlords"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Acme Holdings", landlord["name"])
}
