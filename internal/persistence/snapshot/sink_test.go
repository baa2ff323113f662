package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinsnap/pkg/coerce"
	"coinsnap/pkg/ingest"
)

type execCall struct {
	query string
	args  []any
}

type fakeExecer struct {
	calls []execCall
	err   error
}

func (f *fakeExecer) ExecCtx(_ context.Context, query string, args ...any) (sql.Result, error) {
	f.calls = append(f.calls, execCall{query: query, args: args})
	if f.err != nil {
		return nil, f.err
	}
	return driverResult(1), nil
}

type driverResult int64

func (r driverResult) LastInsertId() (int64, error) { return 0, nil }
func (r driverResult) RowsAffected() (int64, error) { return int64(r), nil }

func TestInsertStatement(t *testing.T) {
	rel := ingest.Relation{Schema: "derivatives", Table: "derivative_markets"}
	got := InsertStatement(rel, []string{"id", "symbol", "index", "price"})
	assert.Equal(t,
		`INSERT INTO "derivatives"."derivative_markets" ("id", "symbol", "index", "price", "fetched_at") VALUES ($1, $2, $3, $4, NOW())`,
		got)

	rel = ingest.Relation{Table: "category_market_data", Stamp: "updated_at"}
	assert.Equal(t,
		`INSERT INTO "category_market_data" ("category_id", "updated_at") VALUES ($1, NOW())`,
		InsertStatement(rel, []string{"category_id"}))
}

func TestSinkAppendBindsValuesInOrder(t *testing.T) {
	conn := &fakeExecer{}
	sink := NewSink(conn)
	rel := ingest.Relation{Schema: "coins", Table: "detail"}
	price := 1.5
	row := ingest.Row{
		ingest.Col("id", "bitcoin"),
		ingest.Col("market_cap_rank", sql.NullInt64{}),
		ingest.Col("price", coerce.Float(&price)),
	}

	require.NoError(t, sink.Append(context.Background(), rel, row))
	require.NoError(t, sink.Append(context.Background(), rel, row))
	require.Len(t, conn.calls, 2)
	assert.Equal(t, conn.calls[0].query, conn.calls[1].query)
	assert.Contains(t, conn.calls[0].query, `("id", "market_cap_rank", "price", "fetched_at")`)
	require.Len(t, conn.calls[0].args, 3)
	assert.Equal(t, "bitcoin", conn.calls[0].args[0])
	assert.Equal(t, sql.NullInt64{}, conn.calls[0].args[1])
}

func TestSinkAppendErrors(t *testing.T) {
	boom := errors.New("connection reset")
	sink := NewSink(&fakeExecer{err: boom})
	rel := ingest.Relation{Schema: "coins", Table: "detail"}

	err := sink.Append(context.Background(), rel, ingest.Row{ingest.Col("id", "bitcoin")})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "coins.detail")

	err = sink.Append(context.Background(), rel, ingest.Row{})
	assert.Error(t, err)

	err = sink.Append(context.Background(), ingest.Relation{Schema: "coins"}, ingest.Row{ingest.Col("id", "x")})
	assert.Error(t, err)
}

func TestNewSinkNilConn(t *testing.T) {
	assert.Nil(t, NewSink(nil))
}
