// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// ChangeType classifies one proposed change.
type ChangeType string

// Change type constants.
const (
	ChangeTypeCreate  ChangeType = "create"
	ChangeTypeUpdate  ChangeType = "update"
	ChangeTypeDelete  ChangeType = "delete"
	ChangeTypeAttach  ChangeType = "attach"
	ChangeTypeDetach  ChangeType = "detach"
	ChangeTypeUnknown ChangeType = "unknown"
)

// AccountState is the reconciliation state machine for one
// (template, account) pair. Every account starts NotEvaluated, moves to
// FetchedLiveState after the provider read, and terminates in exactly
// one of NoChange, Planned, Applied, or Failed.
type AccountState string

// Account state constants.
const (
	AccountStateNotEvaluated     AccountState = "not_evaluated"
	AccountStateFetchedLiveState AccountState = "fetched_live_state"
	AccountStateNoChange         AccountState = "no_change"
	AccountStatePlanned          AccountState = "planned"
	AccountStateApplied          AccountState = "applied"
	AccountStateFailed           AccountState = "failed"
)

// Terminal reports whether the state is an end state.
func (s AccountState) Terminal() bool {
	switch s {
	case AccountStateNoChange, AccountStatePlanned, AccountStateApplied, AccountStateFailed:
		return true
	}
	return false
}

// Diff is a current/proposed value pair attached to a change for human
// review and audit logging. Values are document-shaped (maps, slices,
// scalars).
type Diff struct {
	// Current is the live value before the change. Nil for creations.
	Current any `json:"current,omitempty" cbor:"1,keyasint,omitempty"`

	// Proposed is the desired value after the change. Nil for
	// deletions.
	Proposed any `json:"proposed,omitempty" cbor:"2,keyasint,omitempty"`
}

// ProposedChange is one unit of drift detected (and, when executing,
// acted on) during reconciliation. Errors ride along as data in
// ExceptionsSeen rather than aborting the run.
type ProposedChange struct {
	// ChangeType classifies the change.
	ChangeType ChangeType `json:"change_type" cbor:"1,keyasint"`

	// ResourceType is the resource kind the change applies to.
	ResourceType string `json:"resource_type,omitempty" cbor:"2,keyasint,omitempty"`

	// ResourceID identifies the changed resource.
	ResourceID string `json:"resource_id,omitempty" cbor:"3,keyasint,omitempty"`

	// Attribute names the sub-attribute the change touches ("tags",
	// "inline_policies"), empty for whole-resource create/delete.
	Attribute string `json:"attribute,omitempty" cbor:"4,keyasint,omitempty"`

	// Diff is an optional current/proposed snapshot.
	Diff *Diff `json:"diff,omitempty" cbor:"5,keyasint,omitempty"`

	// ExceptionsSeen collects error text attached to this change.
	// Empty means the change succeeded (or, in a plan, is expected to
	// apply cleanly).
	ExceptionsSeen []string `json:"exceptions_seen,omitempty" cbor:"6,keyasint,omitempty"`
}

// RecordException appends err to the change's exception list.
func (c *ProposedChange) RecordException(err error) {
	if err == nil {
		return
	}
	c.ExceptionsSeen = append(c.ExceptionsSeen, err.Error())
}

// Succeeded reports whether the change carries no exceptions.
func (c *ProposedChange) Succeeded() bool {
	return len(c.ExceptionsSeen) == 0
}

// AccountChangeDetails aggregates the reconciliation outcome for one
// account: the terminal state, every proposed change, and every
// exception seen on the account (including those lifted from its
// changes).
type AccountChangeDetails struct {
	// AccountID is the account's stable id.
	AccountID string `json:"account_id" cbor:"1,keyasint"`

	// AccountName is the account's human name.
	AccountName string `json:"account_name,omitempty" cbor:"2,keyasint,omitempty"`

	// State is the account's terminal reconciliation state.
	State AccountState `json:"state" cbor:"3,keyasint"`

	// ProposedChanges lists every change planned or applied.
	ProposedChanges []ProposedChange `json:"proposed_changes,omitempty" cbor:"4,keyasint,omitempty"`

	// ExceptionsSeen collects account-level errors plus every
	// exception recorded on a change.
	ExceptionsSeen []string `json:"exceptions_seen,omitempty" cbor:"5,keyasint,omitempty"`
}

// Record appends a change and lifts its exceptions onto the account.
func (d *AccountChangeDetails) Record(change ProposedChange) {
	d.ProposedChanges = append(d.ProposedChanges, change)
	d.ExceptionsSeen = append(d.ExceptionsSeen, change.ExceptionsSeen...)
}

// RecordError appends an account-level error.
func (d *AccountChangeDetails) RecordError(err error) {
	if err == nil {
		return
	}
	d.ExceptionsSeen = append(d.ExceptionsSeen, err.Error())
}

// Succeeded reports whether the account saw no exceptions.
func (d *AccountChangeDetails) Succeeded() bool {
	return len(d.ExceptionsSeen) == 0
}

// Changed reports whether any change was proposed for the account.
func (d *AccountChangeDetails) Changed() bool {
	return len(d.ProposedChanges) > 0
}

// TemplateChangeDetails aggregates every account's outcome for one
// template within one run.
type TemplateChangeDetails struct {
	// TemplateKind is the template's resource kind.
	TemplateKind string `json:"template_kind" cbor:"1,keyasint"`

	// ResourceID is the template's stable identity.
	ResourceID string `json:"resource_id,omitempty" cbor:"2,keyasint,omitempty"`

	// Identifier is the template's human-facing name (unexpanded).
	Identifier string `json:"identifier,omitempty" cbor:"3,keyasint,omitempty"`

	// FilePath is the backing document's repository-relative path.
	FilePath string `json:"file_path,omitempty" cbor:"4,keyasint,omitempty"`

	// RemoveTemplate is set when the template is deleted, the run
	// executed, and every account succeeded: the caller should remove
	// the backing file from the repository.
	RemoveTemplate bool `json:"remove_template,omitempty" cbor:"5,keyasint,omitempty"`

	// AccountChanges holds one entry per in-scope account.
	AccountChanges []AccountChangeDetails `json:"account_changes,omitempty" cbor:"6,keyasint,omitempty"`
}

// Changed reports whether any account proposed at least one change.
func (t *TemplateChangeDetails) Changed() bool {
	for i := range t.AccountChanges {
		if t.AccountChanges[i].Changed() {
			return true
		}
	}
	return false
}

// Succeeded reports whether every account finished without exceptions.
func (t *TemplateChangeDetails) Succeeded() bool {
	for i := range t.AccountChanges {
		if !t.AccountChanges[i].Succeeded() {
			return false
		}
	}
	return true
}

// ExceptionsSeen flattens every account's exceptions, for run-level
// reporting.
func (t *TemplateChangeDetails) ExceptionsSeen() []string {
	var out []string
	for i := range t.AccountChanges {
		out = append(out, t.AccountChanges[i].ExceptionsSeen...)
	}
	return out
}
