package datastore

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/bizgateway/internal/config"
)

func TestRow_Float(t *testing.T) {
	row := Row{
		"f":       12.5,
		"i":       int64(3),
		"n":       json.Number("7.25"),
		"s":       "4.5",
		"numeric": pgtype.Numeric{Int: big.NewInt(12345), Exp: -2, Valid: true},
		"null":    nil,
		"bad":     "abc",
	}
	assert.Equal(t, 12.5, row.Float("f"))
	assert.Equal(t, 3.0, row.Float("i"))
	assert.Equal(t, 7.25, row.Float("n"))
	assert.Equal(t, 4.5, row.Float("s"))
	assert.InDelta(t, 123.45, row.Float("numeric"), 0.0001)
	assert.Equal(t, 0.0, row.Float("null"))
	assert.Equal(t, 0.0, row.Float("bad"))
	assert.Equal(t, 0.0, row.Float("missing"))
}

func TestRow_String(t *testing.T) {
	row := Row{"s": "active", "n": json.Number("42"), "nil": nil}
	assert.Equal(t, "active", row.String("s"))
	assert.Equal(t, "42", row.String("n"))
	assert.Equal(t, "", row.String("nil"))
}

func TestCountWhere(t *testing.T) {
	rows := []Row{{"status": "paid"}, {"status": "pending"}, {"status": "paid"}, {}}
	assert.Equal(t, 2, CountWhere(rows, "status", "paid"))
	assert.Equal(t, 0, CountWhere(rows, "status", "overdue"))
}

func TestOpen_Unconfigured(t *testing.T) {
	store, closeFn, err := Open(context.Background(), "admin", config.StoreConfig{Backend: config.BackendPostgREST}, nil, nil)
	require.NoError(t, err)
	defer closeFn()

	_, err = store.Select(context.Background(), From("participants"))
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Contains(t, err.Error(), "admin")
}

func TestOpen_PostgREST(t *testing.T) {
	store, closeFn, err := Open(context.Background(), "business",
		config.StoreConfig{Backend: config.BackendPostgREST, URL: "http://127.0.0.1:1"}, nil, nil)
	require.NoError(t, err)
	defer closeFn()
	_, ok := store.(*instrumentedStore)
	assert.True(t, ok)
}
