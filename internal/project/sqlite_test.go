// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package project

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"asana2sql/cli/internal/asana"
	"asana2sql/cli/internal/db"
	"asana2sql/cli/internal/fields"
	"asana2sql/cli/internal/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run opens the database, runs fn in one transaction and commits.
func run(t *testing.T, path string, fn func(w *db.Wrapper)) {
	t.Helper()
	conn, _, err := db.Open(context.Background(), "sqlite://"+path)
	require.NoError(t, err)
	w := db.NewWrapper(conn, db.Options{})
	defer w.Close()
	fn(w)
	require.NoError(t, w.Commit(context.Background()))
}

func query(t *testing.T, path, q string) [][]any {
	t.Helper()
	var rows [][]any
	run(t, path, func(w *db.Wrapper) {
		var err error
		rows, err = w.Read(context.Background(), q)
		require.NoError(t, err)
	})
	return rows
}

func gids(rows [][]any) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, idString(r[0]))
	}
	sort.Strings(out)
	return out
}

func TestSQLite_ExportAndSynchronize(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.db")
	remote := &fakeRemote{
		project: &asana.Project{GID: "42", Name: "Launch Plan"},
		tasks: []asana.Task{
			{"gid": "1", "name": "Design", "completed": false, "num_likes": float64(2),
				"followers": []any{map[string]any{"gid": "7", "name": "Ana"}}},
			{"gid": "2", "name": "Build", "completed": true, "due_on": "2024-05-01",
				"followers": []any{map[string]any{"gid": "8", "name": "Bo"}}},
		},
		subtasks: map[string][]asana.Task{
			"1": {{"gid": "11", "name": "Sketch", "parent": map[string]any{"gid": "1"}}},
		},
	}
	tables := workspace.Tables{workspace.Projects: "projects", workspace.Users: "users", workspace.Followers: "followers"}

	newEngine := func(w *db.Wrapper) (*Project, *workspace.Workspace) {
		ws := workspace.New(w, tables)
		p, err := New(remote, w, Config{ProjectID: "42"}, fields.DefaultFields(ws))
		require.NoError(t, err)
		return p, ws
	}

	run(t, path, func(w *db.Wrapper) {
		p, ws := newEngine(w)
		require.NoError(t, p.CreateTable(ctx))
		require.NoError(t, p.CreateTable(ctx), "create is a no-op the second time")
		require.NoError(t, ws.CreateTables(ctx))
		res, err := p.Export(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, res.Upserted)
	})
	assert.Equal(t, []string{"1", "11", "2"}, gids(query(t, path, `SELECT "gid" FROM "launch_plan"`)))
	assert.Equal(t, []string{"7", "8"}, gids(query(t, path, `SELECT "gid" FROM "users"`)))

	// The name goes absent remotely: the stored value must survive.
	remote.tasks[0] = asana.Task{"gid": "1", "completed": true}
	run(t, path, func(w *db.Wrapper) {
		p, _ := newEngine(w)
		_, err := p.Export(ctx)
		require.NoError(t, err)
		_, err = p.Export(ctx)
		require.NoError(t, err, "repeated upserts are idempotent")
	})
	rows := query(t, path, `SELECT "name", "completed", "num_likes" FROM "launch_plan" WHERE "gid" = '1'`)
	require.Len(t, rows, 1)
	assert.Equal(t, "Design", rows[0][0])
	assert.Equal(t, true, rows[0][1])
	assert.EqualValues(t, 2, rows[0][2])
	assert.Empty(t, query(t, path, `SELECT "task_gid" FROM "followers" WHERE "task_gid" = '1'`), "follower rows are replaced")

	// Task 2 and its row disappear only on synchronize.
	remote.tasks = remote.tasks[:1]
	remote.tasks = append(remote.tasks, asana.Task{"gid": "3", "name": "Ship"})
	run(t, path, func(w *db.Wrapper) {
		p, _ := newEngine(w)
		_, err := p.Export(ctx)
		require.NoError(t, err)
	})
	assert.Equal(t, []string{"1", "11", "2", "3"}, gids(query(t, path, `SELECT "gid" FROM "launch_plan"`)))

	run(t, path, func(w *db.Wrapper) {
		p, _ := newEngine(w)
		res, err := p.Synchronize(ctx)
		require.NoError(t, err)
		assert.Equal(t, Result{Upserted: 3, Deleted: 1}, res)
	})
	assert.Equal(t, []string{"1", "11", "3"}, gids(query(t, path, `SELECT "gid" FROM "launch_plan"`)))
	assert.Empty(t, query(t, path, `SELECT "task_gid" FROM "followers" WHERE "task_gid" = '2'`), "deleted task loses its follower rows")
}

func TestSQLite_DryRunWritesNothing(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.db")
	run(t, path, func(w *db.Wrapper) {
		require.NoError(t, w.Write(ctx, `CREATE TABLE "tasks" ("gid" TEXT PRIMARY KEY, "name" TEXT)`))
	})

	conn, _, err := db.Open(ctx, "sqlite://"+path)
	require.NoError(t, err)
	w := db.NewWrapper(conn, db.Options{Dry: true})
	p, err := New(&fakeRemote{tasks: tasks("1", "2")}, w, Config{ProjectID: "42", TableName: "tasks"}, testFields())
	require.NoError(t, err)
	_, err = p.Synchronize(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Commit(ctx))
	require.NoError(t, w.Close())

	assert.Equal(t, db.Stats{Reads: 1, Writes: 2, Executed: 1}, w.Stats())
	assert.Empty(t, query(t, path, `SELECT "gid" FROM "tasks"`))
}
