// Copyright (c) 2025 asana2sql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgConn struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func openPostgres(ctx context.Context, connStr string) (*pgConn, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	// One run uses one transaction on one connection.
	cfg.MaxConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &pgConn{pool: pool, tx: tx}, nil
}

func (c *pgConn) Exec(ctx context.Context, query string, args ...any) error {
	_, err := c.tx.Exec(ctx, rebind(query), args...)
	return err
}

func (c *pgConn) Query(ctx context.Context, query string, args ...any) ([][]any, error) {
	rows, err := c.tx.Query(ctx, rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		for i := range vals {
			vals[i] = normalize(vals[i])
		}
		out = append(out, vals)
	}
	return out, rows.Err()
}

func (c *pgConn) Commit(ctx context.Context) error {
	return c.tx.Commit(ctx)
}

func (c *pgConn) Close() error {
	// Rollback after Commit reports ErrTxClosed, which is expected here.
	err := c.tx.Rollback(context.Background())
	c.pool.Close()
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// rebind rewrites ? placeholders to PostgreSQL's $1, $2, ... Question marks
// inside quoted strings and identifiers are left alone.
func rebind(query string) string {
	if !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	var quote byte
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '?':
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}
