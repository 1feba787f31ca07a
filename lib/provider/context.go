// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"github.com/google/uuid"
)

// Command is the run kind an execution context carries.
type Command string

// Command constants.
const (
	// CommandPlan diffs desired against live state without mutating.
	CommandPlan Command = "plan"

	// CommandApply diffs and mutates.
	CommandApply Command = "apply"

	// CommandImport reads live state to regenerate templates.
	CommandImport Command = "import"
)

// ExecutionContext identifies one reconciliation run and says whether
// adapters may mutate. There is no process-global dry-run flag: every
// adapter call receives the context explicitly, so tests can run plan
// and apply paths side by side.
type ExecutionContext struct {
	// RunID identifies the run in logs and run records.
	RunID uuid.UUID

	// Command is the run kind.
	Command Command

	// Execute permits mutation. When false, adapters must only read;
	// the engine never even calls Create, Delete, or an executing
	// applier path.
	Execute bool
}

// NewExecutionContext mints a run id for one run.
func NewExecutionContext(command Command, execute bool) ExecutionContext {
	return ExecutionContext{
		RunID:   uuid.New(),
		Command: command,
		Execute: execute,
	}
}
