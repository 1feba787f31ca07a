// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package account

import (
	"strings"
	"testing"
)

func testAccounts() []Account {
	return []Account{
		{ID: "111111111111", Name: "prod-payments", OrgID: "org-prod"},
		{ID: "222222222222", Name: "prod-data", OrgID: "org-prod"},
		{ID: "333333333333", Name: "audit", ImportOnly: true},
		{ID: "444444444444", Name: "dev-sandbox", OrgID: "org-dev"},
	}
}

func TestNewSetValidation(t *testing.T) {
	tests := []struct {
		name     string
		accounts []Account
		wantErr  string
	}{
		{
			name:     "valid",
			accounts: testAccounts(),
		},
		{
			name:     "missing id",
			accounts: []Account{{Name: "prod-payments"}},
			wantErr:  "has no id",
		},
		{
			name: "duplicate id",
			accounts: []Account{
				{ID: "111111111111", Name: "prod-payments"},
				{ID: "111111111111", Name: "prod-data"},
			},
			wantErr: "duplicate account id",
		},
		{
			name: "duplicate name ignoring case",
			accounts: []Account{
				{ID: "111111111111", Name: "prod-payments"},
				{ID: "222222222222", Name: "PROD-PAYMENTS"},
			},
			wantErr: "duplicate account name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSet(tt.accounts)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("NewSet() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("NewSet() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewSet() = %q, want error containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSetLookups(t *testing.T) {
	set, err := NewSet(testAccounts())
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}

	if set.Len() != 4 {
		t.Errorf("Len() = %d, want 4", set.Len())
	}

	acct, ok := set.ByID("111111111111")
	if !ok || acct.Name != "prod-payments" {
		t.Errorf("ByID(111111111111) = %v/%v, want prod-payments/true", acct.Name, ok)
	}

	// ID lookup is case-sensitive; there is no canonical case for
	// provider-assigned ids beyond what the provider returns.
	if _, ok := set.ByID("notanid"); ok {
		t.Error("ByID(notanid) should miss")
	}

	acct, ok = set.ByName("AUDIT")
	if !ok || acct.ID != "333333333333" {
		t.Errorf("ByName(AUDIT) = %v/%v, want audit account/true", acct.ID, ok)
	}
	if !acct.ImportOnly {
		t.Error("audit account lost ImportOnly")
	}

	if _, ok := set.ByName("unknown"); ok {
		t.Error("ByName(unknown) should miss")
	}
}

func TestSetPreservesConfiguredOrder(t *testing.T) {
	set, err := NewSet(testAccounts())
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}

	ids := set.IDs()
	want := []string{"111111111111", "222222222222", "333333333333", "444444444444"}
	for i, id := range want {
		if ids[i] != id {
			t.Fatalf("IDs()[%d] = %s, want %s", i, ids[i], id)
		}
	}

	all := set.All()
	for i, acct := range all {
		if acct.ID != want[i] {
			t.Fatalf("All()[%d] = %s, want %s", i, acct.ID, want[i])
		}
	}
}

func TestSetInOrg(t *testing.T) {
	set, err := NewSet(testAccounts())
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}

	prod := set.InOrg("org-prod")
	if len(prod) != 2 || prod[0].ID != "111111111111" || prod[1].ID != "222222222222" {
		t.Errorf("InOrg(org-prod) = %v, want prod-payments then prod-data", prod)
	}

	if got := set.InOrg("org-none"); len(got) != 0 {
		t.Errorf("InOrg(org-none) = %v, want empty", got)
	}
}
