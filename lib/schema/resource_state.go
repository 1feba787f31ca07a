// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"maps"
	"slices"
)

// ResourceState is a provider-agnostic snapshot of one resource in one
// account. The renderer produces the desired side from a template; the
// provider adapter produces the live side from vendor APIs. Attribute
// appliers diff the two field by field.
type ResourceState struct {
	// ResourceID is the stable cross-account identity.
	ResourceID string `json:"resource_id,omitempty" cbor:"1,keyasint,omitempty"`

	// Name is the resource's concrete name in this account, with all
	// placeholder tokens expanded.
	Name string `json:"name,omitempty" cbor:"2,keyasint,omitempty"`

	// Path is the resource path, if the kind has one.
	Path string `json:"path,omitempty" cbor:"3,keyasint,omitempty"`

	// Description is the resource description.
	Description string `json:"description,omitempty" cbor:"4,keyasint,omitempty"`

	// SessionDuration is the maximum session duration in seconds, zero
	// when the kind has none.
	SessionDuration int64 `json:"session_duration,omitempty" cbor:"5,keyasint,omitempty"`

	// PermissionsBoundary is the boundary policy id, empty when unset.
	PermissionsBoundary string `json:"permissions_boundary,omitempty" cbor:"6,keyasint,omitempty"`

	// Tags maps tag key to tag value.
	Tags map[string]string `json:"tags,omitempty" cbor:"7,keyasint,omitempty"`

	// AccessRules are the access statements in effect, as normalized
	// documents.
	AccessRules []map[string]any `json:"access_rules,omitempty" cbor:"8,keyasint,omitempty"`

	// InlinePolicies maps policy slot name to normalized document.
	InlinePolicies map[string]map[string]any `json:"inline_policies,omitempty" cbor:"9,keyasint,omitempty"`

	// AttachedPolicies lists attached managed policy ids.
	AttachedPolicies []string `json:"attached_policies,omitempty" cbor:"10,keyasint,omitempty"`

	// Groups lists group memberships.
	Groups []string `json:"groups,omitempty" cbor:"11,keyasint,omitempty"`
}

// Clone returns a deep copy.
func (s *ResourceState) Clone() *ResourceState {
	if s == nil {
		return nil
	}
	out := *s
	out.Tags = maps.Clone(s.Tags)
	out.AttachedPolicies = slices.Clone(s.AttachedPolicies)
	out.Groups = slices.Clone(s.Groups)
	if s.AccessRules != nil {
		out.AccessRules = make([]map[string]any, len(s.AccessRules))
		for i, rule := range s.AccessRules {
			out.AccessRules[i] = CloneValueMap(rule)
		}
	}
	if s.InlinePolicies != nil {
		out.InlinePolicies = make(map[string]map[string]any, len(s.InlinePolicies))
		for name, doc := range s.InlinePolicies {
			out.InlinePolicies[name] = CloneValueMap(doc)
		}
	}
	return &out
}
