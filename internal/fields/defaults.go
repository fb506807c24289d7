package fields

import (
	"context"
	"fmt"

	"asana2sql/cli/internal/asana"
	"asana2sql/cli/internal/workspace"
)

// Workspace is the collaborator that effect fields write through.
type Workspace interface {
	// Tracks reports whether the auxiliary table with the given key is enabled.
	Tracks(table string) bool
	AddUser(ctx context.Context, user asana.User) error
	SetFollowers(ctx context.Context, taskGID string, followers []asana.User) error
	SetMemberships(ctx context.Context, taskGID string, memberships []asana.Membership) error
	SetCustomFieldValues(ctx context.Context, taskGID string, values []asana.CustomField) error
	// RemoveTask deletes the per-task rows of the given table.
	RemoveTask(ctx context.Context, table, taskGID string) error
}

// removeFrom returns a Remover clearing the rows of taskGID in table.
func removeFrom(ws Workspace, table string) Remover {
	return RemoverFunc(func(ctx context.Context, taskGID string) error {
		return ws.RemoveTask(ctx, table, taskGID)
	})
}

// DefaultColumns returns the standard task columns, gid first.
func DefaultColumns() []Field {
	return []Field{
		ColumnField{Name: "gid", SQLType: "TEXT", ID: true, Remote: []string{"gid"}, Extract: String("gid")},
		ColumnField{Name: "name", SQLType: "TEXT", Remote: []string{"name"}, Extract: String("name")},
		ColumnField{Name: "resource_subtype", SQLType: "TEXT", Remote: []string{"resource_subtype"}, Extract: String("resource_subtype")},
		ColumnField{Name: "notes", SQLType: "TEXT", Remote: []string{"notes"}, Extract: String("notes")},
		ColumnField{Name: "completed", SQLType: "BOOLEAN", Remote: []string{"completed"}, Extract: Bool("completed")},
		ColumnField{Name: "completed_at", SQLType: "TIMESTAMPTZ", Remote: []string{"completed_at"}, Extract: Timestamp("completed_at")},
		ColumnField{Name: "created_at", SQLType: "TIMESTAMPTZ", Remote: []string{"created_at"}, Extract: Timestamp("created_at")},
		ColumnField{Name: "modified_at", SQLType: "TIMESTAMPTZ", Remote: []string{"modified_at"}, Extract: Timestamp("modified_at")},
		ColumnField{Name: "due_on", SQLType: "DATE", Remote: []string{"due_on"}, Extract: Date("due_on")},
		ColumnField{Name: "due_at", SQLType: "TIMESTAMPTZ", Remote: []string{"due_at"}, Extract: Timestamp("due_at")},
		ColumnField{Name: "start_on", SQLType: "DATE", Remote: []string{"start_on"}, Extract: Date("start_on")},
		ColumnField{Name: "assignee", SQLType: "TEXT", Remote: []string{"assignee.gid"}, Extract: String("assignee.gid")},
		ColumnField{Name: "assignee_status", SQLType: "TEXT", Remote: []string{"assignee_status"}, Extract: String("assignee_status")},
		ColumnField{Name: "parent", SQLType: "TEXT", Remote: []string{"parent.gid"}, Extract: String("parent.gid")},
		ColumnField{Name: "num_subtasks", SQLType: "INTEGER", Remote: []string{"num_subtasks"}, Extract: Int("num_subtasks")},
		ColumnField{Name: "num_likes", SQLType: "INTEGER", Remote: []string{"num_likes"}, Extract: Int("num_likes")},
		ColumnField{Name: "liked", SQLType: "BOOLEAN", Remote: []string{"liked"}, Extract: Bool("liked")},
		ColumnField{Name: "tags", SQLType: "TEXT", Remote: []string{"tags.name"}, Extract: Join("tags", "name")},
		ColumnField{Name: "permalink_url", SQLType: "TEXT", Remote: []string{"permalink_url"}, Extract: String("permalink_url")},
	}
}

// DefaultFields returns DefaultColumns followed by the effect fields whose
// auxiliary table ws tracks. A nil ws yields columns only.
func DefaultFields(ws Workspace) []Field {
	out := DefaultColumns()
	if ws == nil {
		return out
	}
	if ws.Tracks(workspace.Users) {
		out = append(out, EffectField{
			Name:   "assignee_user",
			Remote: asana.Prefixed("assignee", asana.UserFields),
			Exporter: ExporterFunc(func(ctx context.Context, t asana.Task) error {
				var u asana.User
				ok, err := t.Decode("assignee", &u)
				if err != nil || !ok {
					return err
				}
				return ws.AddUser(ctx, u)
			}),
		})
	}
	if ws.Tracks(workspace.Followers) {
		out = append(out, EffectField{
			Name:   "followers",
			Remote: asana.Prefixed("followers", asana.UserFields),
			Exporter: ExporterFunc(func(ctx context.Context, t asana.Task) error {
				var users []asana.User
				if _, err := t.Decode("followers", &users); err != nil {
					return err
				}
				return ws.SetFollowers(ctx, t.GID(), users)
			}),
			Remover: removeFrom(ws, workspace.Followers),
		})
	}
	if ws.Tracks(workspace.ProjectMemberships) {
		out = append(out, EffectField{
			Name:   "memberships",
			Remote: asana.Prefixed("memberships", asana.MembershipFields),
			Exporter: ExporterFunc(func(ctx context.Context, t asana.Task) error {
				var ms []asana.Membership
				if _, err := t.Decode("memberships", &ms); err != nil {
					return err
				}
				return ws.SetMemberships(ctx, t.GID(), ms)
			}),
			Remover: removeFrom(ws, workspace.ProjectMemberships),
		})
	}
	if ws.Tracks(workspace.CustomFieldValues) || ws.Tracks(workspace.CustomFields) || ws.Tracks(workspace.CustomFieldEnumValues) {
		out = append(out, EffectField{
			Name:   "custom_fields",
			Remote: asana.Prefixed("custom_fields", asana.CustomFieldFields),
			Exporter: ExporterFunc(func(ctx context.Context, t asana.Task) error {
				var cfs []asana.CustomField
				if _, err := t.Decode("custom_fields", &cfs); err != nil {
					return fmt.Errorf("task %s: %w", t.GID(), err)
				}
				return ws.SetCustomFieldValues(ctx, t.GID(), cfs)
			}),
			Remover: removeFrom(ws, workspace.CustomFieldValues),
		})
	}
	return out
}
