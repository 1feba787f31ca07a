// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package runlog persists reconciliation runs in SQLite for audit.
//
// Every template reconciled under a run id produces one run row (run
// id, command, execute flag, build version, template identity,
// started/finished timestamps) and one changes row per proposed
// change (account, change type, attribute, exceptions, and a
// canonical CBOR snapshot of the diff). An account that failed before
// proposing anything still gets a row, under change type "unknown",
// so failures are never invisible in the audit trail.
//
// Rows are append-only. The engine never updates or rewrites history;
// [Store.Prune] deletes whole runs past a retention period and is the
// only delete path.
//
// The store keeps a fixed-size pool of connections in WAL mode, so an
// auditor's query never blocks a recording write. Connections are not
// safe for concurrent use; the pool hands each goroutine its own.
package runlog
