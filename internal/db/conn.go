// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package db runs the statements of one CLI invocation inside a single
// transaction against PostgreSQL (pgx) or SQLite (database/sql).
//
// Statements are written with ? placeholders. Every statement of a run executes
// in one transaction that is committed once at the end; closing an uncommitted
// connection rolls the transaction back.
package db

import (
	"context"
	"fmt"

	"asana2sql/cli/internal/dsn"

	"github.com/google/uuid"
)

// Conn is an open transaction.
type Conn interface {
	Exec(ctx context.Context, query string, args ...any) error
	Query(ctx context.Context, query string, args ...any) ([][]any, error)
	Commit(ctx context.Context) error
	// Close rolls back an uncommitted transaction and releases the connection.
	Close() error
}

// Open parses rawDSN, connects, and begins the run transaction.
func Open(ctx context.Context, rawDSN string) (Conn, *dsn.Info, error) {
	info, err := dsn.Parse(rawDSN)
	if err != nil {
		return nil, nil, err
	}
	connStr, err := dsn.Normalize(info)
	if err != nil {
		return nil, nil, err
	}

	var conn Conn
	switch info.Kind {
	case dsn.KindPostgres:
		conn, err = openPostgres(ctx, connStr)
	case dsn.KindSQLite:
		conn, err = openSQLite(ctx, connStr)
	default:
		err = fmt.Errorf("unsupported database kind %s", info.Kind)
	}
	if err != nil {
		return nil, info, err
	}
	return conn, info, nil
}

// normalize converts driver-specific values to plain Go values: byte slices
// become strings and 16-byte UUIDs their canonical text form.
func normalize(v any) any {
	switch v := v.(type) {
	case []byte:
		return string(v)
	case [16]byte:
		return uuid.UUID(v).String()
	default:
		return v
	}
}
