// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package db

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"asana2sql/cli/internal/dsn"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "none", in: `SELECT 1`, want: `SELECT 1`},
		{name: "positional", in: `INSERT INTO "t" ("a", "b") VALUES (?, ?)`, want: `INSERT INTO "t" ("a", "b") VALUES ($1, $2)`},
		{name: "quoted literal", in: `SELECT '?' FROM t WHERE a = ?`, want: `SELECT '?' FROM t WHERE a = $1`},
		{name: "quoted identifier", in: `DELETE FROM "what?" WHERE "gid" = ?`, want: `DELETE FROM "what?" WHERE "gid" = $1`},
		{name: "escaped quote", in: `SELECT 'it''s ?', ?`, want: `SELECT 'it''s ?', $1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rebind(tt.in))
		})
	}
}

func newMockConn(t *testing.T) (*sqlConn, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectBegin()
	c, err := newSQLConn(context.Background(), sqlDB)
	require.NoError(t, err)
	return c, mock
}

func TestWrapper_ExecutesInOneTransaction(t *testing.T) {
	c, mock := newMockConn(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "t" ("gid") VALUES (?)`)).
		WithArgs("1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "gid" FROM "t"`)).
		WillReturnRows(sqlmock.NewRows([]string{"gid"}).AddRow("1").AddRow([]byte("2")))
	mock.ExpectCommit()
	mock.ExpectClose()

	w := NewWrapper(c, Options{})
	require.NoError(t, w.Write(ctx, `INSERT INTO "t" ("gid") VALUES (?)`, "1"))
	rows, err := w.Read(ctx, `SELECT "gid" FROM "t"`)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"1"}, {"2"}}, rows)
	require.NoError(t, w.Commit(ctx))
	require.NoError(t, w.Close())

	assert.Equal(t, Stats{Reads: 1, Writes: 1, Executed: 2}, w.Stats())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWrapper_CloseWithoutCommitRollsBack(t *testing.T) {
	c, mock := newMockConn(t)
	mock.ExpectExec("DELETE").WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()
	mock.ExpectClose()

	w := NewWrapper(c, Options{})
	err := w.Write(context.Background(), `DELETE FROM "t" WHERE "gid" = ?`, "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "constraint violation")
	assert.Contains(t, err.Error(), `DELETE FROM "t"`)
	var stmtErr *StatementError
	require.True(t, errors.As(err, &stmtErr))
	assert.Equal(t, `DELETE FROM "t" WHERE "gid" = ?`, stmtErr.Query)

	require.NoError(t, w.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWrapper_DrySkipsWritesAndCommit(t *testing.T) {
	c, mock := newMockConn(t)
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"gid"}).AddRow("9"))
	mock.ExpectRollback()
	mock.ExpectClose()

	ctx := context.Background()
	w := NewWrapper(c, Options{Dry: true})
	require.NoError(t, w.Write(ctx, `INSERT INTO "t" ("gid") VALUES (?)`, "1"))
	rows, err := w.Read(ctx, `SELECT "gid" FROM "t"`)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	require.NoError(t, w.Commit(ctx))
	require.NoError(t, w.Close())

	assert.Equal(t, Stats{Reads: 1, Writes: 1, Executed: 1}, w.Stats())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWrapper_WithoutConnection(t *testing.T) {
	ctx := context.Background()

	dry := NewWrapper(nil, Options{Dry: true})
	require.NoError(t, dry.Write(ctx, "CREATE TABLE x (a TEXT)"))
	rows, err := dry.Read(ctx, "SELECT a FROM x")
	require.NoError(t, err)
	assert.Empty(t, rows)
	require.NoError(t, dry.Commit(ctx))
	require.NoError(t, dry.Close())
	assert.Zero(t, dry.Stats().Executed)

	live := NewWrapper(nil, Options{})
	assert.ErrorIs(t, live.Write(ctx, "CREATE TABLE x (a TEXT)"), ErrNoConnection)
	_, err = live.Read(ctx, "SELECT a FROM x")
	assert.ErrorIs(t, err, ErrNoConnection)
}

func TestWrapper_Dump(t *testing.T) {
	var out bytes.Buffer
	w := NewWrapper(nil, Options{Dry: true, Dump: true, DumpTo: &out})

	require.NoError(t, w.Write(context.Background(), `INSERT INTO "t" VALUES (?, ?, ?)`, "a", nil, 3))
	require.NoError(t, w.Write(context.Background(), `DELETE FROM "t"`))
	assert.Equal(t,
		"INSERT INTO \"t\" VALUES (?, ?, ?)\n  params: \"a\", NULL, 3\nDELETE FROM \"t\"\n",
		out.String())
}

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.db")

	conn, info, err := Open(ctx, "sqlite://"+path)
	require.NoError(t, err)
	assert.Equal(t, dsn.KindSQLite, info.Kind)

	require.NoError(t, conn.Exec(ctx, `CREATE TABLE "t" ("gid" TEXT PRIMARY KEY, "n" INTEGER)`))
	require.NoError(t, conn.Exec(ctx, `INSERT INTO "t" ("gid", "n") VALUES (?, ?)`, "1", int64(5)))
	require.NoError(t, conn.Commit(ctx))
	require.NoError(t, conn.Close())

	conn, _, err = Open(ctx, path)
	require.NoError(t, err)
	defer conn.Close()
	rows, err := conn.Query(ctx, `SELECT "gid", "n" FROM "t"`)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"1", int64(5)}}, rows)
}

func TestOpen_RejectsUnknownDSN(t *testing.T) {
	_, _, err := Open(context.Background(), "mysql://u:p@h/d")
	var pe *dsn.ParseError
	assert.True(t, errors.As(err, &pe))
}
