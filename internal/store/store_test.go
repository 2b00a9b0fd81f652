package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oris/internal/object"
	"oris/internal/seed"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "whatever")
	assert.ErrorContains(t, err, "unsupported driver")
}

func TestBindingsRoundTrip(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	err := s.SaveBindings(ctx, []seed.Binding{
		{Name: "n", Value: object.NewInteger(-12)},
		{Name: "flag", Value: object.TRUE},
		{Name: "greeting", Value: object.NewString("hi there")},
		{Name: "xs", Value: object.NewSeq(object.NewInteger(1))},
		{Name: "nothing", Value: object.UNIT},
	})
	require.NoError(t, err)

	bindings, err := s.LoadBindings(ctx)
	require.NoError(t, err)
	require.Len(t, bindings, 3)

	assert.Equal(t, "flag", bindings[0].Name)
	assert.Same(t, object.TRUE, bindings[0].Value)
	assert.Equal(t, "greeting", bindings[1].Name)
	assert.Equal(t, `"hi there"`, bindings[1].Value.Inspect())
	assert.Equal(t, "n", bindings[2].Name)
	assert.Equal(t, "-12", bindings[2].Value.Inspect())
}

func TestSaveBindingsReplacesEverything(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	require.NoError(t, s.SaveBindings(ctx, []seed.Binding{
		{Name: "a", Value: object.NewInteger(1)},
		{Name: "b", Value: object.NewInteger(2)},
	}))
	require.NoError(t, s.SaveBindings(ctx, []seed.Binding{
		{Name: "c", Value: object.NewInteger(3)},
	}))

	bindings, err := s.LoadBindings(ctx)
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	assert.Equal(t, "c", bindings[0].Name)
}

func TestRunJournal(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	at := time.UnixMilli(1700000000000)
	require.NoError(t, s.RecordRun(ctx, Run{Source: "1 + 2", Result: "3", CreatedAt: at}))
	require.NoError(t, s.RecordRun(ctx, Run{Source: "x", Error: "undefined identifier: x"}))
	require.NoError(t, s.RecordRun(ctx, Run{Source: "true", Result: "true"}))

	runs, err := s.Runs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "true", runs[0].Source)
	assert.Equal(t, "x", runs[1].Source)
	assert.Equal(t, "undefined identifier: x", runs[1].Error)
	assert.Empty(t, runs[1].Result)
	assert.Greater(t, runs[0].ID, runs[1].ID)

	all, err := s.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "3", all[2].Result)
	assert.True(t, at.Equal(all[2].CreatedAt))
}

func TestRebind(t *testing.T) {
	query := "INSERT INTO t (a, b) VALUES (?, ?)"

	assert.Equal(t, query, (&Store{driver: DriverMySQL}).rebind(query))
	assert.Equal(t, query, (&Store{driver: DriverSQLite}).rebind(query))
	assert.Equal(t, "INSERT INTO t (a, b) VALUES ($1, $2)", (&Store{driver: DriverPostgres}).rebind(query))
}

func TestDecodeValue(t *testing.T) {
	v, err := decodeValue("int", "42")
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)

	_, err = decodeValue("int", "99999999999")
	assert.Error(t, err)

	_, err = decodeValue("seq", "[]")
	assert.ErrorIs(t, err, errUnknownKind)
}
