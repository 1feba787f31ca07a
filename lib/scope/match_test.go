// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package scope

import (
	"testing"

	"github.com/wardenhq/warden/lib/account"
)

func TestMatchesAccount(t *testing.T) {
	acct := account.Account{ID: "123456789012", Name: "Prod-Payments", OrgID: "org-1"}

	tests := []struct {
		name    string
		pattern string
		want    bool
	}{
		{"universal", "*", true},
		{"exact id", "123456789012", true},
		{"exact id is case-sensitive shape", "123456789013", false},
		{"exact name same case", "Prod-Payments", true},
		{"exact name folds case", "prod-payments", true},
		{"name prefix glob folds case", "prod*", true},
		{"id prefix glob", "1234*", true},
		{"non-matching prefix", "dev*", false},
		{"question mark wildcard", "Prod-Payment?", true},
		{"malformed pattern denies", "prod[", false},
		{"empty pattern", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesAccount(tt.pattern, acct); got != tt.want {
				t.Errorf("MatchesAccount(%q, %v) = %v, want %v", tt.pattern, acct.ID, got, tt.want)
			}
		})
	}
}

func TestMatchesAccountIDCaseSensitivity(t *testing.T) {
	// Ids never fold case; names always do. An id-shaped pattern that
	// differs only in case must not match the id, but a name pattern
	// in any case matches the name.
	acct := account.Account{ID: "AcctABC", Name: "payments"}

	if MatchesAccount("acctabc", acct) {
		t.Error("lowercased id pattern matched a mixed-case id")
	}
	if !MatchesAccount("PAYMENTS", acct) {
		t.Error("uppercased name pattern failed to match")
	}
}

func TestMatchesOrg(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		orgID   string
		want    bool
	}{
		{"exact", "org-1", "org-1", true},
		{"case-sensitive", "ORG-1", "org-1", false},
		{"glob", "org-*", "org-17", true},
		{"universal needs an org", "*", "", false},
		{"universal with org", "*", "org-1", true},
		{"no org never matches", "org-1", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesOrg(tt.pattern, tt.orgID); got != tt.want {
				t.Errorf("MatchesOrg(%q, %q) = %v, want %v", tt.pattern, tt.orgID, got, tt.want)
			}
		})
	}
}
