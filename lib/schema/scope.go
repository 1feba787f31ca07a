// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"slices"
	"strings"
)

// Wildcard matches every account (or org) not otherwise excluded.
const Wildcard = "*"

// Scope restricts a template element to a subset of accounts and orgs.
// Entries are literal account ids, literal names, or glob patterns
// ("prod*"). An account is in scope when it satisfies at least one
// included pattern and no excluded pattern, on both the account axis
// and the org axis independently; exclusion always overrides inclusion
// for the same account.
type Scope struct {
	// IncludedAccounts lists the account ids, names, or patterns this
	// element applies to. Empty is equivalent to ["*"]: every account
	// not otherwise excluded.
	IncludedAccounts []string `json:"included_accounts,omitempty" cbor:"1,keyasint,omitempty"`

	// ExcludedAccounts lists account ids, names, or patterns this
	// element never applies to, regardless of inclusion. The merger
	// appends to this list to preserve explicit revocation when an
	// account drops out of an imported entry.
	ExcludedAccounts []string `json:"excluded_accounts,omitempty" cbor:"2,keyasint,omitempty"`

	// IncludedOrgs restricts the element to accounts whose parent org
	// matches one of these patterns. Empty means no org restriction.
	IncludedOrgs []string `json:"included_orgs,omitempty" cbor:"3,keyasint,omitempty"`

	// ExcludedOrgs removes accounts whose parent org matches one of
	// these patterns, regardless of IncludedOrgs.
	ExcludedOrgs []string `json:"excluded_orgs,omitempty" cbor:"4,keyasint,omitempty"`
}

// EffectiveIncludedAccounts returns the inclusion list with the empty
// default applied: an element with no explicit inclusions applies to
// every account.
func (s Scope) EffectiveIncludedAccounts() []string {
	if len(s.IncludedAccounts) == 0 {
		return []string{Wildcard}
	}
	return s.IncludedAccounts
}

// Key returns a stable identity string for positional merge matching.
// Both sides of a merge sort their entries by this key, so reordering
// entries inside a document never desynchronizes the merge.
func (s Scope) Key() string {
	part := func(values []string) string {
		sorted := slices.Clone(values)
		slices.Sort(sorted)
		return strings.Join(sorted, ",")
	}
	return part(s.EffectiveIncludedAccounts()) + "|" + part(s.ExcludedAccounts) +
		"|" + part(s.IncludedOrgs) + "|" + part(s.ExcludedOrgs)
}

// Clone returns a deep copy. Merge and scope-delta synthesis mutate
// scopes; callers clone first so loaded templates stay pristine.
func (s Scope) Clone() Scope {
	return Scope{
		IncludedAccounts: slices.Clone(s.IncludedAccounts),
		ExcludedAccounts: slices.Clone(s.ExcludedAccounts),
		IncludedOrgs:     slices.Clone(s.IncludedOrgs),
		ExcludedOrgs:     slices.Clone(s.ExcludedOrgs),
	}
}

// AddExcludedAccount appends value to ExcludedAccounts unless an equal
// entry is already present.
func (s *Scope) AddExcludedAccount(value string) {
	if !slices.Contains(s.ExcludedAccounts, value) {
		s.ExcludedAccounts = append(s.ExcludedAccounts, value)
	}
}

// AddIncludedAccount appends value to IncludedAccounts unless an equal
// entry is already present.
func (s *Scope) AddIncludedAccount(value string) {
	if !slices.Contains(s.IncludedAccounts, value) {
		s.IncludedAccounts = append(s.IncludedAccounts, value)
	}
}
