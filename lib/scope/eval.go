// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package scope

import (
	"github.com/wardenhq/warden/lib/account"
	"github.com/wardenhq/warden/lib/schema"
)

// Decision is the outcome of a scope check.
type Decision int

const (
	// Excluded means the element does not apply to the account.
	Excluded Decision = iota

	// Included means the element applies to the account.
	Included
)

// String returns "included" or "excluded".
func (d Decision) String() string {
	if d == Included {
		return "included"
	}
	return "excluded"
}

// ExcludeReason describes why a scope check excluded an account.
type ExcludeReason int

const (
	// ReasonNotIncluded means no inclusion pattern matched the account.
	ReasonNotIncluded ExcludeReason = iota

	// ReasonExcludedAccount means an account exclusion pattern matched.
	// Exclusion overrides any matching inclusion.
	ReasonExcludedAccount

	// ReasonOrgNotIncluded means the scope restricts by org and the
	// account's org matched no inclusion pattern.
	ReasonOrgNotIncluded

	// ReasonExcludedOrg means an org exclusion pattern matched the
	// account's org.
	ReasonExcludedOrg
)

// String returns a human-readable reason.
func (r ExcludeReason) String() string {
	switch r {
	case ReasonNotIncluded:
		return "no matching account inclusion"
	case ReasonExcludedAccount:
		return "explicit account exclusion"
	case ReasonOrgNotIncluded:
		return "no matching org inclusion"
	case ReasonExcludedOrg:
		return "explicit org exclusion"
	default:
		return "unknown"
	}
}

// Result describes the outcome of a scope check, including the
// decision and which patterns decided it. The trace supports DEBUG
// logging and audit output.
type Result struct {
	// Decision is Included or Excluded.
	Decision Decision

	// Reason describes why the account was excluded. Only meaningful
	// when Decision is Excluded.
	Reason ExcludeReason

	// MatchedInclude is the inclusion pattern that admitted the
	// account, if any ("*" for the implicit default).
	MatchedInclude string

	// MatchedExclude is the exclusion pattern that fired, if any. Set
	// when Reason is ReasonExcludedAccount or ReasonExcludedOrg.
	MatchedExclude string
}

// Evaluate checks whether a scoped element applies to an account.
// Pure and deterministic.
func Evaluate(s schema.Scope, acct account.Account) bool {
	return EvaluateDetailed(s, acct).Decision == Included
}

// EvaluateDetailed is Evaluate with the full evaluation trace.
//
// Evaluation order:
//  1. Account exclusions — a match excludes, regardless of inclusions.
//  2. Org exclusions — a match on the account's parent org excludes.
//  3. Account inclusions — at least one must match (empty list means
//     ["*"], which admits every account).
//  4. Org inclusions — when present, the account's parent org must
//     match at least one; "*" requires only that the account has a
//     parent org.
func EvaluateDetailed(s schema.Scope, acct account.Account) Result {
	if pattern, ok := firstAccountMatch(s.ExcludedAccounts, acct); ok {
		return Result{
			Decision:       Excluded,
			Reason:         ReasonExcludedAccount,
			MatchedExclude: pattern,
		}
	}

	if pattern, ok := firstOrgMatch(s.ExcludedOrgs, acct.OrgID); ok {
		return Result{
			Decision:       Excluded,
			Reason:         ReasonExcludedOrg,
			MatchedExclude: pattern,
		}
	}

	included, ok := firstAccountMatch(s.EffectiveIncludedAccounts(), acct)
	if !ok {
		return Result{
			Decision: Excluded,
			Reason:   ReasonNotIncluded,
		}
	}

	if len(s.IncludedOrgs) > 0 {
		if _, ok := firstOrgMatch(s.IncludedOrgs, acct.OrgID); !ok {
			return Result{
				Decision: Excluded,
				Reason:   ReasonOrgNotIncluded,
			}
		}
	}

	return Result{
		Decision:       Included,
		MatchedInclude: included,
	}
}

// MatchesInclusions reports whether the scope's inclusion axes admit
// the account, ignoring exclusions. The reconciler visits every such
// account: one the exclusions then reject is visited so the exclusion
// becomes an explicit revocation instead of a silent skip.
func MatchesInclusions(s schema.Scope, acct account.Account) bool {
	if _, ok := firstAccountMatch(s.EffectiveIncludedAccounts(), acct); !ok {
		return false
	}
	if len(s.IncludedOrgs) > 0 {
		if _, ok := firstOrgMatch(s.IncludedOrgs, acct.OrgID); !ok {
			return false
		}
	}
	return true
}

// EffectiveAccounts expands a scope against the configured account
// list, returning the ids of every admitted account in configured
// order. This is how pattern scopes become concrete account sets for
// grouping, merge math, and scope-delta synthesis.
func EffectiveAccounts(s schema.Scope, accounts *account.Set) []string {
	var out []string
	for _, acct := range accounts.All() {
		if Evaluate(s, acct) {
			out = append(out, acct.ID)
		}
	}
	return out
}

// EffectiveAccountSet is EffectiveAccounts as a membership map.
func EffectiveAccountSet(s schema.Scope, accounts *account.Set) map[string]bool {
	out := make(map[string]bool)
	for _, id := range EffectiveAccounts(s, accounts) {
		out[id] = true
	}
	return out
}
