// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package reconcile drives templates against live accounts. For each
// visited account the engine fetches live state through the kind's
// provider adapter, diffs it against the rendered desired state, and
// either reports the drift (plan) or lets the adapter repair it
// (apply). Accounts reconcile concurrently under a bounded limiter;
// one account's failure never disturbs its siblings.
//
// Each (template, account) pair moves through a small state machine:
//
//	NOT_EVALUATED → FETCHED_LIVE_STATE → NO_CHANGE
//	                                   → PLANNED
//	                                   → APPLIED
//	                                   → FAILED
//
// The engine visits every account the template's inclusion axes admit,
// even those the exclusions reject: for an excluded account the
// desired state is "absent", so the visit plans or performs the
// removal instead of silently skipping it. Whether any provider
// mutation happens is decided solely by the ExecutionContext's Execute
// flag and the account's import-only setting; there is no global
// dry-run state.
package reconcile
