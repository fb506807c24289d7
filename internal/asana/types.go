// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package asana

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Task is one task record exactly as returned by the API.
type Task map[string]any

// GID returns the task identifier, or "" when missing.
func (t Task) GID() string {
	v, ok := t.Lookup("gid")
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Lookup resolves a dotted path such as "assignee.gid". JSON null and missing
// keys both report false.
func (t Task) Lookup(path string) (any, bool) {
	var cur any = map[string]any(t)
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// Ref is the compact form the API uses for related resources.
type Ref struct {
	GID          string `json:"gid"`
	Name         string `json:"name,omitempty"`
	ResourceType string `json:"resource_type,omitempty"`
}

// Project is the metadata of one project.
type Project struct {
	GID          string `json:"gid"`
	Name         string `json:"name"`
	Notes        string `json:"notes,omitempty"`
	Color        string `json:"color,omitempty"`
	Archived     bool   `json:"archived"`
	Workspace    *Ref   `json:"workspace,omitempty"`
	Owner        *Ref   `json:"owner,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	ModifiedAt   string `json:"modified_at,omitempty"`
	PermalinkURL string `json:"permalink_url,omitempty"`
}

// ProjectFields is the opt_fields selection used when callers pass none.
var ProjectFields = []string{
	"gid", "name", "notes", "color", "archived",
	"workspace.gid", "workspace.name", "owner.gid", "owner.name",
	"created_at", "modified_at", "permalink_url",
}

// User is an Asana user.
type User struct {
	GID        string `json:"gid"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Workspaces []Ref  `json:"workspaces,omitempty"`
}

// Decode re-decodes the value at key into out. It reports false, without
// touching out, when the key is missing or null.
func (t Task) Decode(key string, out any) (bool, error) {
	v, ok := t.Lookup(key)
	if !ok {
		return false, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return false, &DecodeError{Path: "task field " + key, Err: err}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, &DecodeError{Path: "task field " + key, Err: err}
	}
	return true, nil
}

// Membership places a task in a project section.
type Membership struct {
	Project *Ref `json:"project,omitempty"`
	Section *Ref `json:"section,omitempty"`
}

// EnumOption is one choice of an enum or multi-enum custom field.
type EnumOption struct {
	GID     string `json:"gid"`
	Name    string `json:"name"`
	Color   string `json:"color,omitempty"`
	Enabled bool   `json:"enabled"`
}

// CustomField is a custom field value as embedded in a task.
type CustomField struct {
	GID             string       `json:"gid"`
	Name            string       `json:"name"`
	Type            string       `json:"type,omitempty"`
	ResourceSubtype string       `json:"resource_subtype,omitempty"`
	TextValue       *string      `json:"text_value,omitempty"`
	NumberValue     *float64     `json:"number_value,omitempty"`
	EnumValue       *EnumOption  `json:"enum_value,omitempty"`
	MultiEnumValues []EnumOption `json:"multi_enum_values,omitempty"`
	DisplayValue    *string      `json:"display_value,omitempty"`
	EnumOptions     []EnumOption `json:"enum_options,omitempty"`
}

// Kind returns the field type, preferring resource_subtype over the older type.
func (f CustomField) Kind() string {
	if f.ResourceSubtype != "" {
		return f.ResourceSubtype
	}
	return f.Type
}

// UserFields and friends are the opt_fields needed to decode the nested types.
var (
	UserFields        = []string{"gid", "name", "email"}
	MembershipFields  = []string{"project.gid", "project.name", "section.gid", "section.name"}
	CustomFieldFields = []string{
		"gid", "name", "type", "resource_subtype",
		"text_value", "number_value", "display_value",
		"enum_value.gid", "enum_value.name", "enum_value.color", "enum_value.enabled",
		"multi_enum_values.gid", "multi_enum_values.name", "multi_enum_values.color", "multi_enum_values.enabled",
		"enum_options.gid", "enum_options.name", "enum_options.color", "enum_options.enabled",
	}
)

// Prefixed returns each field prefixed with "<prefix>.".
func Prefixed(prefix string, fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = prefix + "." + f
	}
	return out
}
