// Package fields maps Asana task records onto SQL columns.
//
// A Field is one of two variants. A ColumnField owns one column of the project
// table and extracts a value for it from a task; a nil value means "absent" and
// never overwrites what is already stored. An EffectField owns no column and
// runs an Exporter against each task purely for its side effects, such as
// recording followers in an auxiliary table.
package fields

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"asana2sql/cli/internal/asana"
	"asana2sql/cli/internal/sqlname"
)

// Field is the closed set {ColumnField, EffectField}.
type Field interface {
	// RemoteFields lists the opt_fields the field reads from a task.
	RemoteFields() []string
	sealed()
}

// Extractor pulls one column value out of a task. It must be pure.
type Extractor func(task asana.Task) any

// ColumnField is a field backed by one SQL column.
type ColumnField struct {
	// Name is the column name.
	Name string
	// SQLType is the type part of the column definition, e.g. "TEXT".
	SQLType string
	// ID marks the identifier column: the upsert conflict target and delete key.
	ID      bool
	Remote  []string
	Extract Extractor
}

func (f ColumnField) RemoteFields() []string { return f.Remote }
func (ColumnField) sealed()                  {}

// Definition renders the column definition used in CREATE TABLE.
func (f ColumnField) Definition() string {
	def := sqlname.Quote(f.Name) + " " + f.SQLType
	if f.ID && !strings.Contains(strings.ToUpper(f.SQLType), "PRIMARY KEY") {
		def += " PRIMARY KEY"
	}
	return def
}

// Value extracts the column value, nil when absent.
func (f ColumnField) Value(task asana.Task) any {
	if f.Extract == nil {
		return nil
	}
	return f.Extract(task)
}

// Exporter performs the side effect of an EffectField.
type Exporter interface {
	Export(ctx context.Context, task asana.Task) error
}

// ExporterFunc adapts a function to Exporter.
type ExporterFunc func(ctx context.Context, task asana.Task) error

func (f ExporterFunc) Export(ctx context.Context, task asana.Task) error { return f(ctx, task) }

// Remover undoes the side effects of an EffectField for a task whose row was
// deleted.
type Remover interface {
	Remove(ctx context.Context, taskGID string) error
}

// RemoverFunc adapts a function to Remover.
type RemoverFunc func(ctx context.Context, taskGID string) error

func (f RemoverFunc) Remove(ctx context.Context, taskGID string) error { return f(ctx, taskGID) }

// EffectField is a field with no column. Remover is optional.
type EffectField struct {
	Name     string
	Remote   []string
	Exporter Exporter
	Remover  Remover
}

func (f EffectField) RemoteFields() []string { return f.Remote }
func (EffectField) sealed()                  {}

var (
	// ErrNoIDField is returned when no ColumnField is marked ID.
	ErrNoIDField = errors.New("fields: no identifier column")
	// ErrMultipleIDFields is returned when more than one ColumnField is marked ID.
	ErrMultipleIDFields = errors.New("fields: more than one identifier column")
)

// Set is a validated, ordered field list. Column order is fixed at construction
// and is the positional order of every generated column and value list.
type Set struct {
	columns []ColumnField
	effects []EffectField
	id      int
}

// NewSet splits fields into columns and effects, keeping declaration order, and
// checks that exactly one column is the identifier.
func NewSet(fields ...Field) (*Set, error) {
	s := &Set{id: -1}
	names := make(map[string]struct{})
	for _, f := range fields {
		switch f := f.(type) {
		case ColumnField:
			if f.Name == "" || f.SQLType == "" {
				return nil, fmt.Errorf("fields: column %q needs a name and a SQL type", f.Name)
			}
			if f.Extract == nil {
				return nil, fmt.Errorf("fields: column %q has no extractor", f.Name)
			}
			if _, dup := names[f.Name]; dup {
				return nil, fmt.Errorf("fields: duplicate column %q", f.Name)
			}
			names[f.Name] = struct{}{}
			if f.ID {
				if s.id >= 0 {
					return nil, fmt.Errorf("%w: %q and %q", ErrMultipleIDFields, s.columns[s.id].Name, f.Name)
				}
				s.id = len(s.columns)
			}
			s.columns = append(s.columns, f)
		case EffectField:
			if f.Exporter == nil {
				return nil, fmt.Errorf("fields: effect %q has no exporter", f.Name)
			}
			s.effects = append(s.effects, f)
		default:
			return nil, fmt.Errorf("fields: unsupported field type %T", f)
		}
	}
	if s.id < 0 {
		return nil, ErrNoIDField
	}
	return s, nil
}

// Columns returns the column fields in declaration order.
func (s *Set) Columns() []ColumnField { return s.columns }

// Effects returns the effect fields in declaration order.
func (s *Set) Effects() []EffectField { return s.effects }

// ID returns the identifier column.
func (s *Set) ID() ColumnField { return s.columns[s.id] }

// RemoteFields returns the deduplicated union of every field's opt_fields, sorted.
func (s *Set) RemoteFields() []string {
	seen := make(map[string]struct{})
	add := func(names []string) {
		for _, n := range names {
			if n != "" {
				seen[n] = struct{}{}
			}
		}
	}
	for _, c := range s.columns {
		add(c.Remote)
	}
	for _, e := range s.effects {
		add(e.Remote)
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
