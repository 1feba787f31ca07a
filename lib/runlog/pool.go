// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package runlog

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// pool is a fixed-size pool of SQLite connections with the run log's
// standard pragmas. It wraps sqlitex.Pool and exposes the same
// Take/Put API.
//
// pool is safe for concurrent use. Individual connections are not —
// each goroutine must Take its own connection and Put it back when
// done.
type pool struct {
	inner  *sqlitex.Pool
	logger *slog.Logger
	path   string
}

// openPool opens the database file, creating it if absent, and
// prepares every connection lazily on first Take: standard pragmas,
// then the onConnect callback (schema creation).
func openPool(path string, poolSize int, logger *slog.Logger, onConnect func(conn *sqlite.Conn) error) (*pool, error) {
	if path == "" {
		return nil, fmt.Errorf("runlog: Path is required")
	}

	inner, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize: poolSize,
		PrepareConn: func(conn *sqlite.Conn) error {
			return prepareConnection(conn, onConnect)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("runlog: opening %s: %w", path, err)
	}

	return &pool{
		inner:  inner,
		logger: logger,
		path:   path,
	}, nil
}

// Take borrows a connection from the pool. Blocks until a connection
// is available or ctx is cancelled. The caller must Put it back,
// typically via defer.
func (p *pool) Take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := p.inner.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("runlog: take: %w", err)
	}
	return conn, nil
}

// Put returns a connection to the pool. Safe to call with nil (no-op).
func (p *pool) Put(conn *sqlite.Conn) {
	p.inner.Put(conn)
}

// Close closes all connections. Blocks until every borrowed
// connection is returned.
func (p *pool) Close() error {
	if err := p.inner.Close(); err != nil {
		p.logger.Error("run log close error",
			"path", p.path,
			"error", err,
		)
		return fmt.Errorf("runlog: closing %s: %w", p.path, err)
	}
	return nil
}

// prepareConnection applies the standard pragmas and then the optional
// onConnect callback. Runs once per connection, on first use.
func prepareConnection(conn *sqlite.Conn, onConnect func(*sqlite.Conn) error) error {
	// WAL keeps audit queries readable while a run is being recorded.
	// synchronous=NORMAL survives process crashes; the run log is an
	// audit record, not the source of truth (the repository and the
	// provider are), so OS-crash durability is not worth
	// fsync-per-commit. Referential integrity between runs and changes
	// is managed in transactions, not by the database.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}

	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("runlog: %s: %w", pragma, err)
		}
	}

	if onConnect != nil {
		if err := onConnect(conn); err != nil {
			return fmt.Errorf("runlog: preparing connection: %w", err)
		}
	}

	return nil
}
