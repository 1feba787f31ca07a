// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package attrgroup

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wardenhq/warden/lib/account"
)

// grouperForTest builds a Grouper over three prod accounts with the
// default threshold.
func grouperForTest(t *testing.T) *Grouper {
	t.Helper()
	set, err := account.NewSet([]account.Account{
		{ID: "111111111111", Name: "prod-payments"},
		{ID: "222222222222", Name: "prod-data"},
		{ID: "333333333333", Name: "prod-identity"},
	})
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	grouper, err := New(Config{Accounts: set})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return grouper
}

func TestGroupScalarsCollapsesUniformValuesToWildcard(t *testing.T) {
	grouper := grouperForTest(t)

	groups, err := grouper.GroupScalars([]Observation{
		{AccountID: "111111111111", Value: "/admin/"},
		{AccountID: "222222222222", Value: "/admin/"},
		{AccountID: "333333333333", Value: "/admin/"},
	})
	if err != nil {
		t.Fatalf("GroupScalars: %v", err)
	}

	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if diff := cmp.Diff([]string{"*"}, groups[0].IncludedAccounts); diff != "" {
		t.Errorf("IncludedAccounts mismatch (-want +got):\n%s", diff)
	}
	if groups[0].Value != "/admin/" {
		t.Errorf("Value = %v, want /admin/", groups[0].Value)
	}
}

func TestGroupScalarsSplitsDivergentValues(t *testing.T) {
	grouper := grouperForTest(t)

	groups, err := grouper.GroupScalars([]Observation{
		{AccountID: "111111111111", Value: "/admin/"},
		{AccountID: "222222222222", Value: "/admin/"},
		{AccountID: "333333333333", Value: "/eng/"},
	})
	if err != nil {
		t.Fatalf("GroupScalars: %v", err)
	}

	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}

	// No group reaches the full considered set, so no wildcard: the
	// admin group lists its two account names, eng its one.
	if diff := cmp.Diff([]string{"prod-payments", "prod-data"}, groups[0].IncludedAccounts); diff != "" {
		t.Errorf("admin group mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"prod-identity"}, groups[1].IncludedAccounts); diff != "" {
		t.Errorf("eng group mismatch (-want +got):\n%s", diff)
	}
	if groups[0].Value != "/admin/" || groups[1].Value != "/eng/" {
		t.Errorf("group values = %v, %v; want /admin/, /eng/", groups[0].Value, groups[1].Value)
	}
}

func TestGroupScalarsBelowThresholdStaysExplicit(t *testing.T) {
	// Two accounts, identical value, full considered set — but below
	// the default threshold of three, so the wildcard stays off.
	grouper := grouperForTest(t)

	groups, err := grouper.GroupScalars([]Observation{
		{AccountID: "111111111111", Value: "/admin/"},
		{AccountID: "222222222222", Value: "/admin/"},
	})
	if err != nil {
		t.Fatalf("GroupScalars: %v", err)
	}

	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if diff := cmp.Diff([]string{"prod-payments", "prod-data"}, groups[0].IncludedAccounts); diff != "" {
		t.Errorf("IncludedAccounts mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupScalarsEveryAccountInExactlyOneGroup(t *testing.T) {
	grouper := grouperForTest(t)

	groups, err := grouper.GroupScalars([]Observation{
		{AccountID: "111111111111", Value: "/a/"},
		{AccountID: "222222222222", Value: "/b/"},
		{AccountID: "333333333333", Value: "/c/"},
	})
	if err != nil {
		t.Fatalf("GroupScalars: %v", err)
	}

	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3 (one per distinct value)", len(groups))
	}
	seen := make(map[string]int)
	for _, grp := range groups {
		for _, id := range grp.AccountIDs {
			seen[id]++
		}
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("account %s appears in %d groups, want 1", id, count)
		}
	}
}

func TestGroupScalarsEmptyInput(t *testing.T) {
	grouper := grouperForTest(t)

	groups, err := grouper.GroupScalars(nil)
	if err != nil {
		t.Fatalf("GroupScalars: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("groups = %d, want 0", len(groups))
	}
}

// policyFor builds a policy document embedding the account id, so the
// raw forms differ per account while the templatized forms agree.
func policyFor(accountID string) map[string]any {
	return map[string]any{
		"Version": "2012-10-17",
		"Statement": []any{
			map[string]any{
				"Effect":   "Allow",
				"Action":   "sts:AssumeRole",
				"Resource": "arn:aws:iam::" + accountID + ":role/deploy",
			},
		},
	}
}

func TestGroupStructuredMatchesThroughTemplatization(t *testing.T) {
	grouper := grouperForTest(t)

	groups, err := grouper.GroupStructured([]Observation{
		{AccountID: "111111111111", Value: policyFor("111111111111")},
		{AccountID: "222222222222", Value: policyFor("222222222222")},
		{AccountID: "333333333333", Value: policyFor("333333333333")},
	})
	if err != nil {
		t.Fatalf("GroupStructured: %v", err)
	}

	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if diff := cmp.Diff([]string{"*"}, groups[0].IncludedAccounts); diff != "" {
		t.Errorf("IncludedAccounts mismatch (-want +got):\n%s", diff)
	}

	// The canonical value is the templatized form, so it serves every
	// member account.
	want := map[string]any{
		"Version": "2012-10-17",
		"Statement": []any{
			map[string]any{
				"Effect":   "Allow",
				"Action":   "sts:AssumeRole",
				"Resource": "arn:aws:iam::${account_id}:role/deploy",
			},
		},
	}
	if diff := cmp.Diff(want, groups[0].Value); diff != "" {
		t.Errorf("group value mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupStructuredKeepsDistinctPoliciesApart(t *testing.T) {
	grouper := grouperForTest(t)

	reader := map[string]any{"Statement": []any{map[string]any{"Action": "s3:GetObject"}}}
	writer := map[string]any{"Statement": []any{map[string]any{"Action": "s3:PutObject"}}}

	groups, err := grouper.GroupStructured([]Observation{
		{AccountID: "111111111111", Value: reader},
		{AccountID: "222222222222", Value: writer},
		{AccountID: "333333333333", Value: reader},
	})
	if err != nil {
		t.Fatalf("GroupStructured: %v", err)
	}

	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if diff := cmp.Diff([]string{"prod-payments", "prod-identity"}, groups[0].IncludedAccounts); diff != "" {
		t.Errorf("reader group mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"prod-data"}, groups[1].IncludedAccounts); diff != "" {
		t.Errorf("writer group mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupStructuredConsumesEachEntryOnce(t *testing.T) {
	// One account reports the same document twice (two list entries).
	// Each copy must land in its own group: consumption is per entry,
	// and a group never takes two entries from one account.
	grouper := grouperForTest(t)

	doc := map[string]any{"Statement": "fixed"}

	groups, err := grouper.GroupStructured([]Observation{
		{AccountID: "111111111111", Value: doc},
		{AccountID: "111111111111", Value: doc},
		{AccountID: "222222222222", Value: doc},
	})
	if err != nil {
		t.Fatalf("GroupStructured: %v", err)
	}

	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}

	total := 0
	for _, grp := range groups {
		total += len(grp.AccountIDs)
	}
	if total != 3 {
		t.Errorf("total memberships = %d, want 3 (each entry consumed exactly once)", total)
	}
	if diff := cmp.Diff([]string{"111111111111", "222222222222"}, groups[0].AccountIDs); diff != "" {
		t.Errorf("first group members mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"111111111111"}, groups[1].AccountIDs); diff != "" {
		t.Errorf("second group members mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupStructuredTemplatizedMatchYieldsTemplatizedValue(t *testing.T) {
	// Raw documents differ (each embeds its own account name) but the
	// templatized forms agree, so the group forms on the templatized
	// hash and its canonical value is the templatized form.
	grouper := grouperForTest(t)

	groups, err := grouper.GroupStructured([]Observation{
		{AccountID: "111111111111", Value: map[string]any{"bucket": "prod-payments-logs"}},
		{AccountID: "222222222222", Value: map[string]any{"bucket": "prod-data-logs"}},
	})
	if err != nil {
		t.Fatalf("GroupStructured: %v", err)
	}

	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	want := map[string]any{"bucket": "${account_name}-logs"}
	if diff := cmp.Diff(want, groups[0].Value); diff != "" {
		t.Errorf("group value mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupStructuredRawMatchKeepsLiteralValue(t *testing.T) {
	// Both accounts name the same third account literally. The raw
	// hashes match while the templatized forms diverge (the id is
	// account-relative only for its owner), so the group keeps the
	// literal document: the reference points at a fixed account, not
	// at "whichever account this lands in".
	grouper := grouperForTest(t)

	doc := map[string]any{
		"Resource": "arn:aws:iam::111111111111:role/central-audit",
	}
	groups, err := grouper.GroupStructured([]Observation{
		{AccountID: "111111111111", Value: doc},
		{AccountID: "222222222222", Value: doc},
	})
	if err != nil {
		t.Fatalf("GroupStructured: %v", err)
	}

	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if diff := cmp.Diff(doc, groups[0].Value); diff != "" {
		t.Errorf("group value mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"111111111111", "222222222222"}, groups[0].AccountIDs); diff != "" {
		t.Errorf("AccountIDs mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupStructuredWildcardThresholdOverride(t *testing.T) {
	set, err := account.NewSet([]account.Account{
		{ID: "1", Name: "a"},
		{ID: "2", Name: "b"},
	})
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	grouper, err := New(Config{Accounts: set, WildcardThreshold: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	doc := map[string]any{"k": "v"}
	groups, err := grouper.GroupStructured([]Observation{
		{AccountID: "1", Value: doc},
		{AccountID: "2", Value: doc},
	})
	if err != nil {
		t.Fatalf("GroupStructured: %v", err)
	}

	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if diff := cmp.Diff([]string{"*"}, groups[0].IncludedAccounts); diff != "" {
		t.Errorf("IncludedAccounts mismatch (-want +got):\n%s", diff)
	}
}

func TestNewRequiresAccounts(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New succeeded without Accounts")
	}
}
