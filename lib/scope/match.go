// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package scope

import (
	"path"
	"strings"

	"github.com/wardenhq/warden/lib/account"
)

// MatchesAccount checks whether one scope pattern matches an account.
// A pattern matches when it matches the account's id case-sensitively
// or the account's name case-insensitively:
//
//   - Exact id: "123456789012" matches only that id
//   - Exact name: "Prod-Payments" matches "prod-payments"
//   - Prefix glob: "prod*" matches "prod-payments" and "prod-data"
//   - Universal: "*" matches every account
//   - Character wildcards: "?" matches a single character
//
// Returns false for malformed patterns (unmatched brackets, etc.)
// rather than propagating errors — a malformed pattern should never
// widen an element's scope.
func MatchesAccount(pattern string, acct account.Account) bool {
	if pattern == "*" {
		return true
	}
	if matchGlob(pattern, acct.ID) {
		return true
	}
	return acct.Name != "" && matchGlobFold(pattern, acct.Name)
}

// MatchesOrg checks whether one org pattern matches an org id. Org ids
// match case-sensitively; "*" matches any non-empty org.
func MatchesOrg(pattern, orgID string) bool {
	if orgID == "" {
		return false
	}
	if pattern == "*" {
		return true
	}
	return matchGlob(pattern, orgID)
}

// firstAccountMatch returns the first pattern matching the account,
// and whether one matched.
func firstAccountMatch(patterns []string, acct account.Account) (string, bool) {
	for _, pattern := range patterns {
		if MatchesAccount(pattern, acct) {
			return pattern, true
		}
	}
	return "", false
}

// firstOrgMatch returns the first pattern matching the org id, and
// whether one matched.
func firstOrgMatch(patterns []string, orgID string) (string, bool) {
	for _, pattern := range patterns {
		if MatchesOrg(pattern, orgID) {
			return pattern, true
		}
	}
	return "", false
}

// matchGlob matches a pattern against a string using path.Match
// semantics. Account ids and names are flat (no "/" hierarchy), so "*"
// inside a pattern behaves as a plain unbounded wildcard. Returns
// false for malformed patterns.
func matchGlob(pattern, s string) bool {
	matched, err := path.Match(pattern, s)
	return err == nil && matched
}

// matchGlobFold is matchGlob with case folding, for name matching.
func matchGlobFold(pattern, s string) bool {
	return matchGlob(strings.ToLower(pattern), strings.ToLower(s))
}
