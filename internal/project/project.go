// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package project mirrors the tasks of one Asana project into one SQL table.
//
// Export upserts every task and never deletes. Synchronize upserts every task and
// then deletes the rows whose identifier no longer appears remotely. Direct
// sub-tasks are flattened into the task list and handled exactly like top-level
// tasks.
package project

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"asana2sql/cli/internal/asana"
	"asana2sql/cli/internal/fields"
	"asana2sql/cli/internal/sqlname"

	"github.com/pterm/pterm"
)

// Remote is the part of the Asana API the engine reads from.
type Remote interface {
	FindProjectByID(ctx context.Context, id string, fields []string) (*asana.Project, error)
	FindTasksByProject(ctx context.Context, id string, fields []string) ([]asana.Task, error)
	FindSubtasks(ctx context.Context, taskID string, fields []string) ([]asana.Task, error)
}

// Database is the ordered statement sink. Statements use ? placeholders.
type Database interface {
	Write(ctx context.Context, query string, args ...any) error
	Read(ctx context.Context, query string, args ...any) ([][]any, error)
}

// ProjectNotFoundError reports that the configured project does not exist.
type ProjectNotFoundError struct {
	ProjectID string
}

func (e *ProjectNotFoundError) Error() string {
	return fmt.Sprintf("no project with id %s", e.ProjectID)
}

// Unwrap lets errors.Is match asana.ErrNotFound.
func (e *ProjectNotFoundError) Unwrap() error { return asana.ErrNotFound }

// Config identifies the project and, optionally, its table.
type Config struct {
	ProjectID string
	// TableName overrides the name derived from the project name.
	TableName string
}

// Result counts what an Export or Synchronize did.
type Result struct {
	Upserted int
	Deleted  int
}

// Project is the synchronization engine for one project table.
type Project struct {
	remote Remote
	db     Database
	fields *fields.Set
	cfg    Config
	log    *pterm.Logger

	data  memo[*asana.Project]
	tasks memo[[]asana.Task]
}

// Option configures a Project.
type Option func(*Project)

// WithLogger sets the logger used for debug output.
func WithLogger(l *pterm.Logger) Option {
	return func(p *Project) { p.log = l }
}

// New builds a Project. It fails when fields does not contain exactly one
// identifier column.
func New(remote Remote, db Database, cfg Config, fs []fields.Field, opts ...Option) (*Project, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("project: empty project id")
	}
	set, err := fields.NewSet(fs...)
	if err != nil {
		return nil, err
	}
	p := &Project{
		remote: remote,
		db:     db,
		fields: set,
		cfg:    cfg,
		log:    pterm.DefaultLogger.WithLevel(pterm.LogLevelDisabled),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ProjectData returns the project metadata, fetching it on first use.
func (p *Project) ProjectData(ctx context.Context) (*asana.Project, error) {
	return p.data.get(ctx, func(ctx context.Context) (*asana.Project, error) {
		data, err := p.remote.FindProjectByID(ctx, p.cfg.ProjectID, asana.ProjectFields)
		if errors.Is(err, asana.ErrNotFound) {
			return nil, &ProjectNotFoundError{ProjectID: p.cfg.ProjectID}
		}
		if err != nil {
			return nil, fmt.Errorf("fetch project %s: %w", p.cfg.ProjectID, err)
		}
		return data, nil
	})
}

// Tasks returns every task of the project followed by their direct sub-tasks,
// fetching them on first use.
func (p *Project) Tasks(ctx context.Context) ([]asana.Task, error) {
	return p.tasks.get(ctx, func(ctx context.Context) ([]asana.Task, error) {
		want := p.fields.RemoteFields()
		top, err := p.remote.FindTasksByProject(ctx, p.cfg.ProjectID, want)
		if err != nil {
			return nil, fmt.Errorf("fetch tasks of project %s: %w", p.cfg.ProjectID, err)
		}
		all := make([]asana.Task, 0, len(top))
		all = append(all, top...)
		for _, t := range top {
			subs, err := p.remote.FindSubtasks(ctx, t.GID(), want)
			if err != nil {
				return nil, fmt.Errorf("fetch subtasks of task %s: %w", t.GID(), err)
			}
			all = append(all, subs...)
		}
		p.log.Debug("fetched tasks", p.log.Args("project", p.cfg.ProjectID, "top_level", len(top), "total", len(all)))
		return all, nil
	})
}

// Invalidate drops the cached project metadata and task list.
func (p *Project) Invalidate() {
	p.data.reset()
	p.tasks.reset()
}

// TableName returns the configured table name, or a SQL-safe name derived
// from the project name.
func (p *Project) TableName(ctx context.Context) (string, error) {
	if p.cfg.TableName != "" {
		return p.cfg.TableName, nil
	}
	data, err := p.ProjectData(ctx)
	if err != nil {
		return "", err
	}
	return sqlname.Safe(data.Name), nil
}

// CreateTable creates the project table if it does not exist.
func (p *Project) CreateTable(ctx context.Context) error {
	table, err := p.TableName(ctx)
	if err != nil {
		return err
	}
	cols := p.fields.Columns()
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = c.Definition()
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", sqlname.Quote(table), strings.Join(defs, ", "))
	if err := p.db.Write(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

// InsertOrUpdate upserts one task row, then runs every effect field against it.
// On conflict only the columns with a value are updated; an absent value never
// overwrites a stored one.
func (p *Project) InsertOrUpdate(ctx context.Context, task asana.Task) error {
	table, err := p.TableName(ctx)
	if err != nil {
		return err
	}
	stmt, args := p.upsertStatement(table, task)
	if err := p.db.Write(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert task %s: %w", task.GID(), err)
	}
	for _, e := range p.fields.Effects() {
		if err := e.Exporter.Export(ctx, task); err != nil {
			return fmt.Errorf("export %s of task %s: %w", e.Name, task.GID(), err)
		}
	}
	return nil
}

func (p *Project) upsertStatement(table string, task asana.Task) (string, []any) {
	cols := p.fields.Columns()
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	var sets []string
	for i, c := range cols {
		names[i] = sqlname.Quote(c.Name)
		marks[i] = "?"
		args[i] = c.Value(task)
		if args[i] != nil && !c.ID {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", names[i], names[i]))
		}
	}

	conflict := "DO NOTHING"
	if len(sets) > 0 {
		conflict = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		sqlname.Quote(table), strings.Join(names, ", "), strings.Join(marks, ", "),
		sqlname.Quote(p.fields.ID().Name), conflict)
	return stmt, args
}

// Delete removes the row with the given identifier, then the per-task rows
// written by effect fields.
func (p *Project) Delete(ctx context.Context, id any) error {
	table, err := p.TableName(ctx)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", sqlname.Quote(table), sqlname.Quote(p.fields.ID().Name))
	if err := p.db.Write(ctx, stmt, id); err != nil {
		return fmt.Errorf("delete task %v: %w", id, err)
	}
	for _, e := range p.fields.Effects() {
		if e.Remover == nil {
			continue
		}
		if err := e.Remover.Remove(ctx, idString(id)); err != nil {
			return fmt.Errorf("delete task %v %s: %w", id, e.Name, err)
		}
	}
	return nil
}

// Export upserts every task. Rows of tasks that disappeared remotely are kept.
func (p *Project) Export(ctx context.Context) (Result, error) {
	var res Result
	tasks, err := p.Tasks(ctx)
	if err != nil {
		return res, err
	}
	for _, t := range tasks {
		if err := p.InsertOrUpdate(ctx, t); err != nil {
			return res, err
		}
		res.Upserted++
	}
	return res, nil
}

// Synchronize upserts every task and then deletes the rows whose identifier is
// stored but no longer present remotely. Deletes always run after all upserts.
func (p *Project) Synchronize(ctx context.Context) (Result, error) {
	var res Result
	inDB, err := p.DatabaseIDs(ctx)
	if err != nil {
		return res, err
	}
	remote, err := p.RemoteIDs(ctx)
	if err != nil {
		return res, err
	}

	var stale []string
	for id := range inDB {
		if _, ok := remote[id]; !ok {
			stale = append(stale, id)
		}
	}
	slices.Sort(stale)

	tasks, err := p.Tasks(ctx)
	if err != nil {
		return res, err
	}
	for _, t := range tasks {
		if err := p.InsertOrUpdate(ctx, t); err != nil {
			return res, err
		}
		res.Upserted++
	}
	for _, id := range stale {
		if err := p.Delete(ctx, inDB[id]); err != nil {
			return res, err
		}
		res.Deleted++
	}
	p.log.Debug("synchronized", p.log.Args("project", p.cfg.ProjectID, "upserted", res.Upserted, "deleted", res.Deleted))
	return res, nil
}

// DatabaseIDs returns the identifiers stored in the table, keyed by their
// string form and mapped to the value as read.
func (p *Project) DatabaseIDs(ctx context.Context) (map[string]any, error) {
	table, err := p.TableName(ctx)
	if err != nil {
		return nil, err
	}
	stmt := fmt.Sprintf("SELECT %s FROM %s", sqlname.Quote(p.fields.ID().Name), sqlname.Quote(table))
	rows, err := p.db.Read(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("read ids from %s: %w", table, err)
	}
	ids := make(map[string]any, len(rows))
	for _, row := range rows {
		if len(row) == 0 || row[0] == nil {
			continue
		}
		ids[idString(row[0])] = row[0]
	}
	return ids, nil
}

// RemoteIDs returns the identifier of every fetched task.
func (p *Project) RemoteIDs(ctx context.Context) (map[string]struct{}, error) {
	tasks, err := p.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	id := p.fields.ID()
	ids := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if v := id.Value(t); v != nil {
			ids[idString(v)] = struct{}{}
		}
	}
	return ids, nil
}

func idString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
