// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package runlog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/wardenhq/warden/lib/clock"
	"github.com/wardenhq/warden/lib/codec"
	"github.com/wardenhq/warden/lib/provider"
	"github.com/wardenhq/warden/lib/schema"
	"github.com/wardenhq/warden/lib/version"
)

// schemaSQL creates the audit tables. One run id spans several run
// rows when a run reconciles several templates; changes rows carry the
// per-account outcomes.
const schemaSQL = `
	CREATE TABLE IF NOT EXISTS runs (
		run_id          TEXT NOT NULL,
		command         TEXT NOT NULL,
		execute         INTEGER NOT NULL,
		version         TEXT NOT NULL,
		template_kind   TEXT NOT NULL,
		resource_id     TEXT,
		identifier      TEXT,
		file_path       TEXT,
		remove_template INTEGER NOT NULL,
		accounts        INTEGER NOT NULL,
		succeeded       INTEGER NOT NULL,
		started_at      INTEGER NOT NULL,
		finished_at     INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_run ON runs(run_id);
	CREATE INDEX IF NOT EXISTS idx_runs_finished ON runs(finished_at);

	CREATE TABLE IF NOT EXISTS changes (
		run_id        TEXT NOT NULL,
		account_id    TEXT NOT NULL,
		account_name  TEXT,
		account_state TEXT NOT NULL,
		change_type   TEXT NOT NULL,
		resource_type TEXT,
		resource_id   TEXT,
		attribute     TEXT,
		exceptions    TEXT,
		diff          BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_changes_run ON changes(run_id);
	CREATE INDEX IF NOT EXISTS idx_changes_account ON changes(run_id, account_id);
`

// Config holds the parameters for opening a run log store.
type Config struct {
	// Path is the filesystem path to the SQLite database file. The
	// parent directory must exist. Required.
	Path string

	// PoolSize is the number of connections in the pool. Defaults to
	// 4 if zero or negative.
	PoolSize int

	// Clock provides the current time for retention decisions.
	// Required.
	Clock clock.Clock

	// Logger receives operational messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// Store records reconciliation outcomes and answers audit queries.
// Safe for concurrent use.
type Store struct {
	pool   *pool
	clock  clock.Clock
	logger *slog.Logger
}

// Open creates the store, the database file, and the schema.
func Open(cfg Config) (*Store, error) {
	if cfg.Clock == nil {
		return nil, fmt.Errorf("runlog: Clock is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	p, err := openPool(cfg.Path, poolSize, logger, func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteScript(conn, schemaSQL, nil)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("run log opened",
		"path", cfg.Path,
		"pool_size", poolSize,
		"version", version.Info(),
	)

	return &Store{
		pool:   p,
		clock:  cfg.Clock,
		logger: logger,
	}, nil
}

// Close closes the underlying connection pool. Blocks until all
// borrowed connections are returned.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Run couples one template's reconciliation outcome with its run
// identity and timing, ready to be recorded.
type Run struct {
	// Context identifies the run and whether it mutated.
	Context provider.ExecutionContext

	// Details is the template's aggregated outcome. Required.
	Details *schema.TemplateChangeDetails

	// Started and Finished bound the template's reconciliation.
	Started  time.Time
	Finished time.Time
}

// Record persists one run row plus its change rows in a single
// transaction. Accounts that failed without proposing any change are
// recorded under change type "unknown" so the failure is auditable.
func (s *Store) Record(ctx context.Context, run Run) error {
	if run.Details == nil {
		return fmt.Errorf("runlog: Details is required")
	}
	if run.Context.RunID == uuid.Nil {
		return fmt.Errorf("runlog: RunID is required")
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("runlog: record: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("runlog: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	details := run.Details
	err = sqlitex.Execute(conn, `INSERT INTO runs
		(run_id, command, execute, version, template_kind, resource_id,
		 identifier, file_path, remove_template, accounts, succeeded,
		 started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				run.Context.RunID.String(),
				string(run.Context.Command),
				boolColumn(run.Context.Execute),
				version.Info(),
				details.TemplateKind,
				details.ResourceID,
				details.Identifier,
				details.FilePath,
				boolColumn(details.RemoveTemplate),
				len(details.AccountChanges),
				boolColumn(details.Succeeded()),
				run.Started.UnixNano(),
				run.Finished.UnixNano(),
			},
		})
	if err != nil {
		return fmt.Errorf("runlog: insert run: %w", err)
	}

	rows := 0
	for i := range details.AccountChanges {
		acct := &details.AccountChanges[i]

		for j := range acct.ProposedChanges {
			if err = s.insertChange(conn, run.Context.RunID, acct, &acct.ProposedChanges[j]); err != nil {
				return err
			}
			rows++
		}

		// No proposed changes but exceptions seen: the account failed
		// before anything could be diffed.
		if len(acct.ProposedChanges) == 0 && len(acct.ExceptionsSeen) > 0 {
			failure := schema.ProposedChange{
				ChangeType:     schema.ChangeTypeUnknown,
				ExceptionsSeen: acct.ExceptionsSeen,
			}
			if err = s.insertChange(conn, run.Context.RunID, acct, &failure); err != nil {
				return err
			}
			rows++
		}
	}

	s.logger.Debug("run recorded",
		"run_id", run.Context.RunID,
		"resource_id", details.ResourceID,
		"change_rows", rows,
	)

	return nil
}

// insertChange writes one changes row. The diff snapshot is canonical
// CBOR; exceptions are a JSON array.
func (s *Store) insertChange(conn *sqlite.Conn, runID uuid.UUID, acct *schema.AccountChangeDetails, change *schema.ProposedChange) error {
	var exceptionsJSON any
	if len(change.ExceptionsSeen) > 0 {
		data, err := json.Marshal(change.ExceptionsSeen)
		if err != nil {
			return fmt.Errorf("runlog: marshal exceptions: %w", err)
		}
		exceptionsJSON = string(data)
	}

	var diffBlob any
	if change.Diff != nil {
		data, err := codec.Marshal(change.Diff)
		if err != nil {
			return fmt.Errorf("runlog: marshal diff: %w", err)
		}
		diffBlob = data
	}

	err := sqlitex.Execute(conn, `INSERT INTO changes
		(run_id, account_id, account_name, account_state, change_type,
		 resource_type, resource_id, attribute, exceptions, diff)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				runID.String(),
				acct.AccountID,
				acct.AccountName,
				string(acct.State),
				string(change.ChangeType),
				change.ResourceType,
				change.ResourceID,
				change.Attribute,
				exceptionsJSON,
				diffBlob,
			},
		})
	if err != nil {
		return fmt.Errorf("runlog: insert change: %w", err)
	}
	return nil
}

// RunRecord is one persisted run row.
type RunRecord struct {
	RunID          uuid.UUID
	Command        provider.Command
	Execute        bool
	Version        string
	TemplateKind   string
	ResourceID     string
	Identifier     string
	FilePath       string
	RemoveTemplate bool
	Accounts       int
	Succeeded      bool
	Started        time.Time
	Finished       time.Time
}

const runColumns = `run_id, command, execute, version, template_kind,
	resource_id, identifier, file_path, remove_template, accounts,
	succeeded, started_at, finished_at`

// Runs returns the run rows recorded under one run id, one per
// template, in recording order.
func (s *Store) Runs(ctx context.Context, runID uuid.UUID) ([]RunRecord, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("runlog: runs: %w", err)
	}
	defer s.pool.Put(conn)

	var records []RunRecord
	err = sqlitex.Execute(conn,
		`SELECT `+runColumns+` FROM runs WHERE run_id = ? ORDER BY rowid`,
		&sqlitex.ExecOptions{
			Args: []any{runID.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				record, err := scanRun(stmt)
				if err != nil {
					return err
				}
				records = append(records, record)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("runlog: runs: %w", err)
	}
	return records, nil
}

// RecentRuns returns the most recently finished run rows, newest
// first. Limit defaults to 100 when zero or negative.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("runlog: recent runs: %w", err)
	}
	defer s.pool.Put(conn)

	if limit <= 0 {
		limit = 100
	}

	var records []RunRecord
	err = sqlitex.Execute(conn,
		`SELECT `+runColumns+` FROM runs ORDER BY finished_at DESC, rowid DESC LIMIT ?`,
		&sqlitex.ExecOptions{
			Args: []any{limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				record, err := scanRun(stmt)
				if err != nil {
					return err
				}
				records = append(records, record)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("runlog: recent runs: %w", err)
	}
	return records, nil
}

// scanRun reads one run row in runColumns order.
func scanRun(stmt *sqlite.Stmt) (RunRecord, error) {
	runID, err := uuid.Parse(stmt.ColumnText(0))
	if err != nil {
		return RunRecord{}, fmt.Errorf("runlog: parsing run id: %w", err)
	}
	return RunRecord{
		RunID:          runID,
		Command:        provider.Command(stmt.ColumnText(1)),
		Execute:        stmt.ColumnInt64(2) != 0,
		Version:        stmt.ColumnText(3),
		TemplateKind:   stmt.ColumnText(4),
		ResourceID:     stmt.ColumnText(5),
		Identifier:     stmt.ColumnText(6),
		FilePath:       stmt.ColumnText(7),
		RemoveTemplate: stmt.ColumnInt64(8) != 0,
		Accounts:       int(stmt.ColumnInt64(9)),
		Succeeded:      stmt.ColumnInt64(10) != 0,
		Started:        time.Unix(0, stmt.ColumnInt64(11)).UTC(),
		Finished:       time.Unix(0, stmt.ColumnInt64(12)).UTC(),
	}, nil
}

// ChangeRecord is one persisted changes row.
type ChangeRecord struct {
	RunID        uuid.UUID
	AccountID    string
	AccountName  string
	AccountState schema.AccountState
	Change       schema.ProposedChange
}

// Changes returns the change rows recorded under one run id, in
// recording order.
func (s *Store) Changes(ctx context.Context, runID uuid.UUID) ([]ChangeRecord, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("runlog: changes: %w", err)
	}
	defer s.pool.Put(conn)

	var records []ChangeRecord
	err = sqlitex.Execute(conn,
		`SELECT run_id, account_id, account_name, account_state,
			change_type, resource_type, resource_id, attribute,
			exceptions, diff
		FROM changes WHERE run_id = ? ORDER BY rowid`,
		&sqlitex.ExecOptions{
			Args: []any{runID.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				record, err := scanChange(stmt)
				if err != nil {
					return err
				}
				records = append(records, record)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("runlog: changes: %w", err)
	}
	return records, nil
}

// scanChange reads one changes row.
func scanChange(stmt *sqlite.Stmt) (ChangeRecord, error) {
	runID, err := uuid.Parse(stmt.ColumnText(0))
	if err != nil {
		return ChangeRecord{}, fmt.Errorf("runlog: parsing run id: %w", err)
	}

	record := ChangeRecord{
		RunID:        runID,
		AccountID:    stmt.ColumnText(1),
		AccountName:  stmt.ColumnText(2),
		AccountState: schema.AccountState(stmt.ColumnText(3)),
		Change: schema.ProposedChange{
			ChangeType:   schema.ChangeType(stmt.ColumnText(4)),
			ResourceType: stmt.ColumnText(5),
			ResourceID:   stmt.ColumnText(6),
			Attribute:    stmt.ColumnText(7),
		},
	}

	if exceptions := stmt.ColumnText(8); exceptions != "" {
		if err := json.Unmarshal([]byte(exceptions), &record.Change.ExceptionsSeen); err != nil {
			return ChangeRecord{}, fmt.Errorf("runlog: parsing exceptions: %w", err)
		}
	}

	if length := stmt.ColumnLen(9); length > 0 {
		blob := make([]byte, length)
		stmt.ColumnBytes(9, blob)
		var diff schema.Diff
		if err := codec.Unmarshal(blob, &diff); err != nil {
			return ChangeRecord{}, fmt.Errorf("runlog: parsing diff: %w", err)
		}
		record.Change.Diff = &diff
	}

	return record, nil
}

// Prune deletes runs, and their changes, whose finish time is older
// than the retention period. Returns the number of run rows deleted.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("runlog: prune: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return 0, fmt.Errorf("runlog: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	cutoff := s.clock.Now().Add(-retention).UnixNano()

	err = sqlitex.Execute(conn,
		`DELETE FROM changes WHERE run_id IN
			(SELECT run_id FROM runs WHERE finished_at < ?)`,
		&sqlitex.ExecOptions{Args: []any{cutoff}})
	if err != nil {
		return 0, fmt.Errorf("runlog: prune changes: %w", err)
	}

	err = sqlitex.Execute(conn,
		`DELETE FROM runs WHERE finished_at < ?`,
		&sqlitex.ExecOptions{Args: []any{cutoff}})
	if err != nil {
		return 0, fmt.Errorf("runlog: prune runs: %w", err)
	}

	deleted := conn.Changes()
	if deleted > 0 {
		s.logger.Info("run log pruned",
			"deleted_runs", deleted,
			"retention", retention,
		)
	}
	return deleted, nil
}

// boolColumn maps a bool onto SQLite's 0/1 integer convention.
func boolColumn(b bool) int {
	if b {
		return 1
	}
	return 0
}
