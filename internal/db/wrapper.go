// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrNoConnection is returned when a statement must execute but no database
// was configured.
var ErrNoConnection = errors.New("no database connection (pass --dsn or use --dry)")

// StatementError is a statement or commit the database rejected.
type StatementError struct {
	// Query is the first line of the failed statement, or "COMMIT".
	Query string
	Err   error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("%v\n  statement: %s", e.Err, e.Query)
}

func (e *StatementError) Unwrap() error { return e.Err }

// Options configures a Wrapper.
type Options struct {
	// Dry records writes without executing them and skips the commit.
	Dry bool
	// Dump echoes every statement and its parameters before execution.
	Dump bool
	// DumpTo receives dumped statements. Defaults to stdout.
	DumpTo io.Writer
}

// Stats counts the statements a Wrapper has seen.
type Stats struct {
	Reads    int
	Writes   int
	Executed int
}

// Wrapper is the ordered statement sink used by the engine and the workspace.
type Wrapper struct {
	conn  Conn
	opts  Options
	stats Stats
}

// NewWrapper wraps conn, which may be nil in dry mode.
func NewWrapper(conn Conn, opts Options) *Wrapper {
	if opts.DumpTo == nil {
		opts.DumpTo = os.Stdout
	}
	return &Wrapper{conn: conn, opts: opts}
}

// Write executes a statement that returns no rows. In dry mode it is only counted.
func (w *Wrapper) Write(ctx context.Context, query string, args ...any) error {
	w.stats.Writes++
	w.dump(query, args)
	if w.opts.Dry {
		return nil
	}
	if w.conn == nil {
		return ErrNoConnection
	}
	w.stats.Executed++
	if err := w.conn.Exec(ctx, query, args...); err != nil {
		return &StatementError{Query: firstLine(query), Err: err}
	}
	return nil
}

// Read executes a query and returns every row. Reads run in dry mode too; with
// no connection they return no rows.
func (w *Wrapper) Read(ctx context.Context, query string, args ...any) ([][]any, error) {
	w.stats.Reads++
	w.dump(query, args)
	if w.conn == nil {
		if w.opts.Dry {
			return nil, nil
		}
		return nil, ErrNoConnection
	}
	w.stats.Executed++
	rows, err := w.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, &StatementError{Query: firstLine(query), Err: err}
	}
	return rows, nil
}

// Commit commits the run transaction. It does nothing in dry mode.
func (w *Wrapper) Commit(ctx context.Context) error {
	if w.opts.Dry || w.conn == nil {
		return nil
	}
	if err := w.conn.Commit(ctx); err != nil {
		return &StatementError{Query: "COMMIT", Err: err}
	}
	return nil
}

// Close releases the connection, rolling back anything uncommitted.
func (w *Wrapper) Close() error {
	if w.conn == nil {
		return nil
	}
	return w.conn.Close()
}

// Stats returns the statement counters.
func (w *Wrapper) Stats() Stats { return w.stats }

// Dry reports whether writes are skipped.
func (w *Wrapper) Dry() bool { return w.opts.Dry }

func (w *Wrapper) dump(query string, args []any) {
	if !w.opts.Dump {
		return
	}
	fmt.Fprintln(w.opts.DumpTo, query)
	if len(args) > 0 {
		fmt.Fprintf(w.opts.DumpTo, "  params: %s\n", formatArgs(args))
	}
}

func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case nil:
			parts[i] = "NULL"
		case string:
			parts[i] = fmt.Sprintf("%q", v)
		default:
			parts[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(parts, ", ")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
