// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wardenhq/warden/lib/account"
	"github.com/wardenhq/warden/lib/schema"
)

func paymentsAccount() account.Account {
	return account.Account{
		ID:    "111111111111",
		Name:  "prod-payments",
		OrgID: "org-prod",
		Variables: map[string]string{
			"team": "payments",
		},
	}
}

func dataAccount() account.Account {
	return account.Account{
		ID:    "222222222222",
		Name:  "prod-data",
		OrgID: "org-prod",
	}
}

func TestDesiredExpandsIdentifierAndScalars(t *testing.T) {
	template := &schema.Template{
		Kind:       schema.KindRole,
		Identifier: "engineering-${account_name}",
		ResourceID: "a3f9c2",
		Properties: schema.Properties{
			Descriptions: []schema.ScopedString{
				{Value: "Deploy role for ${account_name}"},
			},
			Paths: []schema.ScopedString{
				{Value: "/admin/"},
			},
			SessionDurations: []schema.ScopedInt{
				{Value: 3600},
			},
			PermissionsBoundaries: []schema.ScopedString{
				{Value: "arn:aws:iam::${account_id}:policy/boundary"},
			},
		},
	}

	got, err := Desired(template, paymentsAccount())
	if err != nil {
		t.Fatalf("Desired: %v", err)
	}

	want := &schema.ResourceState{
		ResourceID:          "a3f9c2",
		Name:                "engineering-prod-payments",
		Path:                "/admin/",
		Description:         "Deploy role for prod-payments",
		SessionDuration:     3600,
		PermissionsBoundary: "arn:aws:iam::111111111111:policy/boundary",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("desired state mismatch (-want +got):\n%s", diff)
	}
}

func TestDesiredScalarTakesFirstAdmittedEntry(t *testing.T) {
	template := &schema.Template{
		Identifier: "auditor",
		Properties: schema.Properties{
			Paths: []schema.ScopedString{
				{Scope: schema.Scope{IncludedAccounts: []string{"prod-data"}}, Value: "/eng/"},
				{Value: "/admin/"},
			},
		},
	}

	forPayments, err := Desired(template, paymentsAccount())
	if err != nil {
		t.Fatalf("Desired(payments): %v", err)
	}
	if forPayments.Path != "/admin/" {
		t.Errorf("payments path = %q, want %q", forPayments.Path, "/admin/")
	}

	forData, err := Desired(template, dataAccount())
	if err != nil {
		t.Fatalf("Desired(data): %v", err)
	}
	if forData.Path != "/eng/" {
		t.Errorf("data path = %q, want %q", forData.Path, "/eng/")
	}
}

func TestDesiredSkipsDeletedAndOutOfScopeEntries(t *testing.T) {
	template := &schema.Template{
		Identifier: "auditor",
		Properties: schema.Properties{
			Tags: []schema.ResourceTag{
				{Key: "env", Value: "prod"},
				{Expiry: schema.Expiry{Deleted: true}, Key: "incident", Value: "inc-42"},
				{Scope: schema.Scope{IncludedAccounts: []string{"prod-data"}}, Key: "pipeline", Value: "etl"},
			},
			AttachedPolicies: []schema.PolicyAttachment{
				{Expiry: schema.Expiry{Deleted: true}, PolicyID: "arn:aws:iam::aws:policy/AdministratorAccess"},
			},
		},
	}

	got, err := Desired(template, paymentsAccount())
	if err != nil {
		t.Fatalf("Desired: %v", err)
	}

	wantTags := map[string]string{"env": "prod"}
	if diff := cmp.Diff(wantTags, got.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if got.AttachedPolicies != nil {
		t.Errorf("attached policies = %v, want none", got.AttachedPolicies)
	}
}

func TestDesiredDedupesExpandedAttachments(t *testing.T) {
	template := &schema.Template{
		Identifier: "auditor",
		Properties: schema.Properties{
			AttachedPolicies: []schema.PolicyAttachment{
				{PolicyID: "arn:aws:iam::${account_id}:policy/base"},
				{PolicyID: "arn:aws:iam::111111111111:policy/base"},
				{PolicyID: "arn:aws:iam::aws:policy/ReadOnlyAccess"},
			},
		},
	}

	got, err := Desired(template, paymentsAccount())
	if err != nil {
		t.Fatalf("Desired: %v", err)
	}

	want := []string{
		"arn:aws:iam::111111111111:policy/base",
		"arn:aws:iam::aws:policy/ReadOnlyAccess",
	}
	if diff := cmp.Diff(want, got.AttachedPolicies); diff != "" {
		t.Errorf("attached policies mismatch (-want +got):\n%s", diff)
	}
}

func TestDesiredRendersInlinePolicies(t *testing.T) {
	template := &schema.Template{
		Identifier: "auditor",
		Properties: schema.Properties{
			InlinePolicies: []schema.InlinePolicy{
				{
					Name: "inline-${var.team}",
					Document: map[string]any{
						"Statement": []any{
							map[string]any{
								"Effect":   "Allow",
								"Action":   "s3:GetObject",
								"Resource": "arn:aws:s3:::${account_name}-logs/*",
							},
						},
					},
				},
			},
		},
	}

	got, err := Desired(template, paymentsAccount())
	if err != nil {
		t.Fatalf("Desired: %v", err)
	}

	want := map[string]map[string]any{
		"inline-payments": {
			"Statement": []any{
				map[string]any{
					"Effect":   "Allow",
					"Action":   "s3:GetObject",
					"Resource": "arn:aws:s3:::prod-payments-logs/*",
				},
			},
		},
	}
	if diff := cmp.Diff(want, got.InlinePolicies); diff != "" {
		t.Errorf("inline policies mismatch (-want +got):\n%s", diff)
	}
}

func TestDesiredRendersAccessRules(t *testing.T) {
	template := &schema.Template{
		Identifier: "auditor",
		Properties: schema.Properties{
			AccessRules: []schema.AccessRule{
				{
					Users: []string{"alice"},
					Statement: map[string]any{
						"effect":    "Allow",
						"principal": "arn:aws:iam::${account_id}:root",
					},
				},
				{
					Scope:  schema.Scope{IncludedAccounts: []string{"prod-data"}},
					Groups: []string{"oncall"},
				},
			},
		},
	}

	got, err := Desired(template, paymentsAccount())
	if err != nil {
		t.Fatalf("Desired: %v", err)
	}

	want := []map[string]any{
		{
			"effect":    "Allow",
			"principal": "arn:aws:iam::111111111111:root",
			"users":     []any{"alice"},
		},
	}
	if diff := cmp.Diff(want, got.AccessRules); diff != "" {
		t.Errorf("access rules mismatch (-want +got):\n%s", diff)
	}
}

func TestDesiredRendersGroupMemberships(t *testing.T) {
	template := &schema.Template{
		Kind:       schema.KindUser,
		Identifier: "ci-${account_name}",
		Properties: schema.Properties{
			Groups: []schema.GroupMembership{
				{Group: "deployers-${account_name}"},
				{Group: "deployers-prod-payments"},
				{Group: "auditors"},
			},
		},
	}

	got, err := Desired(template, paymentsAccount())
	if err != nil {
		t.Fatalf("Desired: %v", err)
	}

	want := []string{"deployers-prod-payments", "auditors"}
	if diff := cmp.Diff(want, got.Groups); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}
}

func TestDesiredUnresolvedVariableFails(t *testing.T) {
	template := &schema.Template{
		Identifier: "role-${var.missing}",
	}

	_, err := Desired(template, paymentsAccount())
	if err == nil {
		t.Fatal("Desired succeeded, want unresolved-token error")
	}
	if !strings.Contains(err.Error(), "cannot resolve") {
		t.Errorf("error = %v, want mention of unresolved token", err)
	}
}

func TestDesiredEmptyPropertiesYieldsBareState(t *testing.T) {
	template := &schema.Template{
		Identifier: "auditor",
		ResourceID: "a3f9c2",
	}

	got, err := Desired(template, paymentsAccount())
	if err != nil {
		t.Fatalf("Desired: %v", err)
	}

	want := &schema.ResourceState{
		ResourceID: "a3f9c2",
		Name:       "auditor",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("desired state mismatch (-want +got):\n%s", diff)
	}
}
