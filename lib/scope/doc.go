// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package scope evaluates which accounts a scoped template element
// applies to.
//
// Every template element carries include/exclude lists of account and
// org patterns ([schema.Scope]). [Evaluate] answers the membership
// question for one account; [EvaluateDetailed] additionally returns
// the matched pattern and deny reason for audit logging;
// [EffectiveAccounts] expands a scope against the full configured
// account list, which is how the grouper, merger, and change
// inferencer turn pattern scopes into concrete account sets.
//
// Evaluation is pure and deterministic: no I/O, no clock, no state.
// Exclusion always overrides inclusion for the same account, and the
// account and org axes are evaluated independently — both must admit
// the account.
package scope
