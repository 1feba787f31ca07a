// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "testing"

func TestResourceStateCloneIsDeep(t *testing.T) {
	original := &ResourceState{
		ResourceID: "a3f9c2",
		Name:       "ci-deploy",
		Tags:       map[string]string{"env": "prod"},
		AccessRules: []map[string]any{
			{"Effect": "Allow", "Principal": map[string]any{"Service": "lambda.amazonaws.com"}},
		},
		InlinePolicies: map[string]map[string]any{
			"deploy": {"Statement": []any{map[string]any{"Action": "s3:PutObject"}}},
		},
		AttachedPolicies: []string{"arn:aws:iam::aws:policy/ReadOnlyAccess"},
		Groups:           []string{"deployers"},
	}

	cloned := original.Clone()
	cloned.Tags["env"] = "mutated"
	cloned.AccessRules[0]["Principal"].(map[string]any)["Service"] = "mutated"
	cloned.InlinePolicies["deploy"]["Statement"].([]any)[0].(map[string]any)["Action"] = "mutated"
	cloned.AttachedPolicies[0] = "mutated"
	cloned.Groups[0] = "mutated"

	if original.Tags["env"] != "prod" {
		t.Error("clone shares Tags map")
	}
	if original.AccessRules[0]["Principal"].(map[string]any)["Service"] != "lambda.amazonaws.com" {
		t.Error("clone shares access rule documents")
	}
	if original.InlinePolicies["deploy"]["Statement"].([]any)[0].(map[string]any)["Action"] != "s3:PutObject" {
		t.Error("clone shares inline policy documents")
	}
	if original.AttachedPolicies[0] != "arn:aws:iam::aws:policy/ReadOnlyAccess" {
		t.Error("clone shares AttachedPolicies slice")
	}
	if original.Groups[0] != "deployers" {
		t.Error("clone shares Groups slice")
	}
}

func TestResourceStateCloneNil(t *testing.T) {
	var state *ResourceState
	if state.Clone() != nil {
		t.Error("nil state clone should be nil")
	}
}
