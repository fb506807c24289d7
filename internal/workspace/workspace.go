// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package workspace maintains the auxiliary tables that sit next to a project
// table: projects, users, followers, project memberships, and custom fields.
// Every table is optional; a table with no configured name is never created or
// written.
package workspace

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"asana2sql/cli/internal/asana"
	"asana2sql/cli/internal/sqlname"
)

// Table keys. They match the keys of the tables section of the config file.
const (
	Projects              = "projects"
	ProjectMemberships    = "project_memberships"
	Users                 = "users"
	Followers             = "followers"
	CustomFields          = "custom_fields"
	CustomFieldEnumValues = "custom_field_enum_values"
	CustomFieldValues     = "custom_field_values"
)

// Database is the statement sink the workspace writes through.
type Database interface {
	Write(ctx context.Context, query string, args ...any) error
}

// Tables maps each table key to its SQL name. Empty disables the table.
type Tables map[string]string

type table struct {
	key     string
	columns []string
	types   []string
	primary []string
}

// schema lists every auxiliary table in creation order.
var schema = []table{
	{
		key:     Projects,
		columns: []string{"gid", "name", "workspace_gid", "workspace_name", "owner_gid", "archived", "color", "created_at", "modified_at", "permalink_url", "table_name"},
		types:   []string{"TEXT", "TEXT", "TEXT", "TEXT", "TEXT", "BOOLEAN", "TEXT", "TEXT", "TEXT", "TEXT", "TEXT"},
		primary: []string{"gid"},
	},
	{
		key:     ProjectMemberships,
		columns: []string{"task_gid", "project_gid", "project_name", "section_gid", "section_name"},
		types:   []string{"TEXT", "TEXT", "TEXT", "TEXT", "TEXT"},
		primary: []string{"task_gid", "project_gid"},
	},
	{
		key:     Users,
		columns: []string{"gid", "name", "email"},
		types:   []string{"TEXT", "TEXT", "TEXT"},
		primary: []string{"gid"},
	},
	{
		key:     Followers,
		columns: []string{"task_gid", "user_gid"},
		types:   []string{"TEXT", "TEXT"},
		primary: []string{"task_gid", "user_gid"},
	},
	{
		key:     CustomFields,
		columns: []string{"gid", "name", "type"},
		types:   []string{"TEXT", "TEXT", "TEXT"},
		primary: []string{"gid"},
	},
	{
		key:     CustomFieldEnumValues,
		columns: []string{"gid", "custom_field_gid", "name", "color", "enabled"},
		types:   []string{"TEXT", "TEXT", "TEXT", "TEXT", "BOOLEAN"},
		primary: []string{"gid"},
	},
	{
		key:     CustomFieldValues,
		columns: []string{"task_gid", "custom_field_gid", "text_value", "number_value", "enum_value_gid", "multi_enum_value_gids", "display_value"},
		types:   []string{"TEXT", "TEXT", "TEXT", "DOUBLE PRECISION", "TEXT", "TEXT", "TEXT"},
		primary: []string{"task_gid", "custom_field_gid"},
	},
}

// Keys returns every table key in creation order.
func Keys() []string {
	out := make([]string, len(schema))
	for i, t := range schema {
		out[i] = t.key
	}
	return out
}

func lookupTable(key string) table {
	for _, t := range schema {
		if t.key == key {
			return t
		}
	}
	panic("workspace: unknown table " + key)
}

// Workspace writes auxiliary rows. Users and custom field definitions are
// written at most once per Workspace.
type Workspace struct {
	db     Database
	tables Tables

	users        map[string]struct{}
	customFields map[string]struct{}
}

// New returns a Workspace writing to db.
func New(db Database, tables Tables) *Workspace {
	t := make(Tables, len(tables))
	for k, v := range tables {
		if v = strings.TrimSpace(v); v != "" {
			t[k] = v
		}
	}
	return &Workspace{
		db:           db,
		tables:       t,
		users:        make(map[string]struct{}),
		customFields: make(map[string]struct{}),
	}
}

// Tracks reports whether the table with the given key is enabled.
func (w *Workspace) Tracks(key string) bool {
	_, ok := w.tables[key]
	return ok
}

// TableName returns the configured SQL name for key, or "".
func (w *Workspace) TableName(key string) string { return w.tables[key] }

// CreateTables creates every enabled table if it does not exist yet.
func (w *Workspace) CreateTables(ctx context.Context) error {
	for _, t := range schema {
		name, ok := w.tables[t.key]
		if !ok {
			continue
		}
		defs := make([]string, len(t.columns))
		for i, c := range t.columns {
			defs[i] = sqlname.Quote(c) + " " + t.types[i]
		}
		pk := make([]string, len(t.primary))
		for i, c := range t.primary {
			pk[i] = sqlname.Quote(c)
		}
		stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s, PRIMARY KEY (%s))",
			sqlname.Quote(name), strings.Join(defs, ", "), strings.Join(pk, ", "))
		if err := w.db.Write(ctx, stmt); err != nil {
			return fmt.Errorf("create %s table: %w", t.key, err)
		}
	}
	return nil
}

// AddProject records the project and the table its tasks are mirrored into.
func (w *Workspace) AddProject(ctx context.Context, p *asana.Project, tableName string) error {
	if p == nil || !w.Tracks(Projects) {
		return nil
	}
	return w.upsert(ctx, Projects,
		p.GID, p.Name, refGID(p.Workspace), refName(p.Workspace), refGID(p.Owner),
		p.Archived, nullable(p.Color), nullable(p.CreatedAt), nullable(p.ModifiedAt),
		nullable(p.PermalinkURL), tableName)
}

// AddUser records a user once per run.
func (w *Workspace) AddUser(ctx context.Context, u asana.User) error {
	if u.GID == "" || !w.Tracks(Users) {
		return nil
	}
	if _, seen := w.users[u.GID]; seen {
		return nil
	}
	if err := w.upsert(ctx, Users, u.GID, nullable(u.Name), nullable(u.Email)); err != nil {
		return err
	}
	w.users[u.GID] = struct{}{}
	return nil
}

// SetFollowers replaces the follower rows of a task and records the users.
func (w *Workspace) SetFollowers(ctx context.Context, taskGID string, followers []asana.User) error {
	for _, u := range followers {
		if err := w.AddUser(ctx, u); err != nil {
			return err
		}
	}
	if !w.Tracks(Followers) {
		return nil
	}
	if err := w.clear(ctx, Followers, taskGID); err != nil {
		return err
	}
	for _, u := range followers {
		if u.GID == "" {
			continue
		}
		if err := w.upsert(ctx, Followers, taskGID, u.GID); err != nil {
			return err
		}
	}
	return nil
}

// SetMemberships replaces the project membership rows of a task.
func (w *Workspace) SetMemberships(ctx context.Context, taskGID string, memberships []asana.Membership) error {
	if !w.Tracks(ProjectMemberships) {
		return nil
	}
	if err := w.clear(ctx, ProjectMemberships, taskGID); err != nil {
		return err
	}
	for _, m := range memberships {
		if m.Project == nil || m.Project.GID == "" {
			continue
		}
		err := w.upsert(ctx, ProjectMemberships,
			taskGID, m.Project.GID, nullable(m.Project.Name), refGID(m.Section), refName(m.Section))
		if err != nil {
			return err
		}
	}
	return nil
}

// SetCustomFieldValues records each custom field definition once per run and
// replaces the value rows of a task.
func (w *Workspace) SetCustomFieldValues(ctx context.Context, taskGID string, values []asana.CustomField) error {
	for _, cf := range values {
		if err := w.addCustomField(ctx, cf); err != nil {
			return err
		}
	}
	if !w.Tracks(CustomFieldValues) {
		return nil
	}
	if err := w.clear(ctx, CustomFieldValues, taskGID); err != nil {
		return err
	}
	for _, cf := range values {
		if cf.GID == "" {
			continue
		}
		var enumGID any
		if cf.EnumValue != nil {
			enumGID = cf.EnumValue.GID
		}
		var multi any
		if len(cf.MultiEnumValues) > 0 {
			gids := make([]string, len(cf.MultiEnumValues))
			for i, o := range cf.MultiEnumValues {
				gids[i] = o.GID
			}
			multi = strings.Join(gids, ",")
		}
		var text, number, display any
		if cf.TextValue != nil {
			text = *cf.TextValue
		}
		if cf.NumberValue != nil {
			number = *cf.NumberValue
		}
		if cf.DisplayValue != nil {
			display = *cf.DisplayValue
		}
		if err := w.upsert(ctx, CustomFieldValues, taskGID, cf.GID, text, number, enumGID, multi, display); err != nil {
			return err
		}
	}
	return nil
}

// RemoveTask deletes the rows of taskGID from a per-task table: followers,
// project memberships or custom field values. Untracked tables are skipped.
func (w *Workspace) RemoveTask(ctx context.Context, key, taskGID string) error {
	switch key {
	case Followers, ProjectMemberships, CustomFieldValues:
	default:
		return fmt.Errorf("workspace: %s has no per-task rows", key)
	}
	if !w.Tracks(key) {
		return nil
	}
	return w.clear(ctx, key, taskGID)
}

func (w *Workspace) addCustomField(ctx context.Context, cf asana.CustomField) error {
	if cf.GID == "" {
		return nil
	}
	if _, seen := w.customFields[cf.GID]; seen {
		return nil
	}
	if w.Tracks(CustomFields) {
		if err := w.upsert(ctx, CustomFields, cf.GID, nullable(cf.Name), nullable(cf.Kind())); err != nil {
			return err
		}
	}
	if w.Tracks(CustomFieldEnumValues) {
		options := cf.EnumOptions
		if len(options) == 0 {
			// Without enum_options, fall back to the values the task carries.
			if cf.EnumValue != nil {
				options = append(options, *cf.EnumValue)
			}
			options = append(options, cf.MultiEnumValues...)
		}
		for _, o := range options {
			if o.GID == "" {
				continue
			}
			if err := w.upsert(ctx, CustomFieldEnumValues, o.GID, cf.GID, nullable(o.Name), nullable(o.Color), o.Enabled); err != nil {
				return err
			}
		}
	}
	w.customFields[cf.GID] = struct{}{}
	return nil
}

// upsert inserts one row into the table with the given key, updating the
// non-key columns on conflict. values are positional in schema order.
func (w *Workspace) upsert(ctx context.Context, key string, values ...any) error {
	t := lookupTable(key)
	if len(values) != len(t.columns) {
		return fmt.Errorf("workspace: %s expects %d values, got %d", key, len(t.columns), len(values))
	}

	cols := make([]string, len(t.columns))
	marks := make([]string, len(t.columns))
	var sets []string
	for i, c := range t.columns {
		cols[i] = sqlname.Quote(c)
		marks[i] = "?"
		if !slices.Contains(t.primary, c) {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", cols[i], cols[i]))
		}
	}
	pk := make([]string, len(t.primary))
	for i, c := range t.primary {
		pk[i] = sqlname.Quote(c)
	}

	conflict := "DO NOTHING"
	if len(sets) > 0 {
		conflict = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		sqlname.Quote(w.tables[key]), strings.Join(cols, ", "), strings.Join(marks, ", "),
		strings.Join(pk, ", "), conflict)
	if err := w.db.Write(ctx, stmt, values...); err != nil {
		return fmt.Errorf("write %s row: %w", key, err)
	}
	return nil
}

func (w *Workspace) clear(ctx context.Context, key, taskGID string) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", sqlname.Quote(w.tables[key]), sqlname.Quote("task_gid"))
	if err := w.db.Write(ctx, stmt, taskGID); err != nil {
		return fmt.Errorf("clear %s rows: %w", key, err)
	}
	return nil
}

func refGID(r *asana.Ref) any {
	if r == nil || r.GID == "" {
		return nil
	}
	return r.GID
}

func refName(r *asana.Ref) any {
	if r == nil {
		return nil
	}
	return nullable(r.Name)
}

// nullable maps "" to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
