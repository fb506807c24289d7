// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package dsn detects and parses the database connection strings accepted by
// the CLI: PostgreSQL URLs and SQLite file paths.
package dsn

import "fmt"

// Kind is the database engine a DSN points at.
type Kind string

const (
	KindPostgres Kind = "postgresql"
	KindSQLite   Kind = "sqlite"
	KindUnknown  Kind = "unknown"
)

// Info is a parsed DSN.
type Info struct {
	Kind     Kind
	Host     string
	Port     string
	User     string
	Password string
	Database string
	// Path is the database file of a SQLite DSN.
	Path     string
	Params   map[string]string
	Original string
}

// ParseError describes a DSN that could not be parsed.
type ParseError struct {
	DSN    string
	Reason string
	Hint   string
}

func (e *ParseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("invalid DSN: %s\nHint: %s", e.Reason, e.Hint)
	}
	return fmt.Sprintf("invalid DSN: %s", e.Reason)
}

func newParseError(dsn, reason, hint string) *ParseError {
	return &ParseError{DSN: dsn, Reason: reason, Hint: hint}
}
