// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"maps"
	"slices"
)

// Template kinds. The reconciler selects a provider adapter by kind;
// the engine itself treats kinds as opaque labels.
const (
	KindRole          = "role"
	KindUser          = "user"
	KindGroup         = "group"
	KindManagedPolicy = "managed_policy"
	KindPermissionSet = "permission_set"
)

// Management modes controlling how far the engine may go when a
// template and an account's live state disagree.
const (
	// ModeManaged lets the engine create, update, and delete.
	ModeManaged = "managed"

	// ModeImportOnly records drift but never mutates. Imports keep the
	// template current; applies plan only.
	ModeImportOnly = "import_only"

	// ModeUnmanaged excludes the template from reconciliation entirely.
	ModeUnmanaged = "unmanaged"
)

// Template is the canonical declaration of one governed resource,
// possibly scoped to many accounts. Exactly one template is the source
// of truth per ResourceID per repository.
type Template struct {
	Scope
	Expiry

	// Kind names the resource kind ("role", "group", ...) and selects
	// the provider adapter that applies it.
	Kind string `json:"kind" cbor:"7,keyasint"`

	// Identifier is the human-facing resource name. It may contain
	// placeholder tokens ("engineering-${account_name}") expanded per
	// account at render time.
	Identifier string `json:"identifier" cbor:"8,keyasint"`

	// ResourceID is the stable cross-account identity used for merge
	// matching, rename detection, and provider-side naming. It never
	// changes once assigned, even when Identifier or FilePath do.
	ResourceID string `json:"resource_id,omitempty" cbor:"9,keyasint,omitempty"`

	// FilePath is the repository-relative path of the backing document.
	// Owned by the repository layer; merges always keep the existing
	// template's path.
	FilePath string `json:"file_path,omitempty" cbor:"10,keyasint,omitempty"`

	// Notes is operator-owned free text. Imports and merges never
	// touch it.
	Notes string `json:"notes,omitempty" cbor:"11,keyasint,omitempty"`

	// ManagementMode is one of the Mode* constants. Empty means
	// ModeManaged.
	ManagementMode string `json:"management_mode,omitempty" cbor:"12,keyasint,omitempty"`

	// Properties is the scoped property tree.
	Properties Properties `json:"properties" cbor:"13,keyasint"`
}

// EffectiveManagementMode returns ManagementMode with the default
// applied.
func (t *Template) EffectiveManagementMode() string {
	if t.ManagementMode == "" {
		return ModeManaged
	}
	return t.ManagementMode
}

// Clone returns a deep copy of the template. The merger and the change
// inferencer work on clones so loaded documents stay pristine.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	out := *t
	out.Scope = t.Scope.Clone()
	out.Properties = t.Properties.Clone()
	return &out
}

// Properties is the scoped property tree of a template. Every field is
// a sequence of scoped entries; which fields a given resource kind uses
// is the provider adapter's business. The merger handles each field by
// its shape: scalar-scoped entries (one value), list-of-scoped entries
// (identity-bearing items), and structured entries (whole documents).
type Properties struct {
	// Descriptions holds the per-scope resource description.
	Descriptions []ScopedString `json:"descriptions,omitempty" cbor:"1,keyasint,omitempty"`

	// Paths holds the per-scope resource path ("/admin/").
	Paths []ScopedString `json:"paths,omitempty" cbor:"2,keyasint,omitempty"`

	// SessionDurations holds the per-scope maximum session duration in
	// seconds, for kinds that have sessions.
	SessionDurations []ScopedInt `json:"session_durations,omitempty" cbor:"3,keyasint,omitempty"`

	// PermissionsBoundaries holds the per-scope permissions boundary
	// policy id.
	PermissionsBoundaries []ScopedString `json:"permissions_boundaries,omitempty" cbor:"4,keyasint,omitempty"`

	// AccessRules grant identities use of the resource in the accounts
	// each rule's scope admits.
	AccessRules []AccessRule `json:"access_rules,omitempty" cbor:"5,keyasint,omitempty"`

	// Tags are provider tags applied to the resource.
	Tags []ResourceTag `json:"tags,omitempty" cbor:"6,keyasint,omitempty"`

	// AttachedPolicies reference managed policies attached by id.
	AttachedPolicies []PolicyAttachment `json:"attached_policies,omitempty" cbor:"7,keyasint,omitempty"`

	// InlinePolicies are whole policy documents owned by the resource.
	InlinePolicies []InlinePolicy `json:"inline_policies,omitempty" cbor:"8,keyasint,omitempty"`

	// Groups are group memberships, for kinds that join groups.
	Groups []GroupMembership `json:"groups,omitempty" cbor:"9,keyasint,omitempty"`
}

// Clone returns a deep copy of the property tree.
func (p Properties) Clone() Properties {
	out := Properties{}
	for _, e := range p.Descriptions {
		out.Descriptions = append(out.Descriptions, e.Clone())
	}
	for _, e := range p.Paths {
		out.Paths = append(out.Paths, e.Clone())
	}
	for _, e := range p.SessionDurations {
		out.SessionDurations = append(out.SessionDurations, e.Clone())
	}
	for _, e := range p.PermissionsBoundaries {
		out.PermissionsBoundaries = append(out.PermissionsBoundaries, e.Clone())
	}
	for _, e := range p.AccessRules {
		out.AccessRules = append(out.AccessRules, e.Clone())
	}
	for _, e := range p.Tags {
		out.Tags = append(out.Tags, e.Clone())
	}
	for _, e := range p.AttachedPolicies {
		out.AttachedPolicies = append(out.AttachedPolicies, e.Clone())
	}
	for _, e := range p.InlinePolicies {
		out.InlinePolicies = append(out.InlinePolicies, e.Clone())
	}
	for _, e := range p.Groups {
		out.Groups = append(out.Groups, e.Clone())
	}
	return out
}

// ScopedString is a scalar string property valid for a subset of
// accounts ("/admin/" everywhere, "/eng/" on one account).
type ScopedString struct {
	Scope
	Expiry

	// Value is the property value. May contain placeholder tokens.
	Value string `json:"value" cbor:"7,keyasint"`
}

// Clone returns a deep copy.
func (e ScopedString) Clone() ScopedString {
	out := e
	out.Scope = e.Scope.Clone()
	return out
}

// ScopedInt is a scalar integer property valid for a subset of
// accounts.
type ScopedInt struct {
	Scope
	Expiry

	// Value is the property value.
	Value int64 `json:"value" cbor:"7,keyasint"`
}

// Clone returns a deep copy.
func (e ScopedInt) Clone() ScopedInt {
	out := e
	out.Scope = e.Scope.Clone()
	return out
}

// AccessRule grants identities access to the resource in the accounts
// the rule's scope admits. Rules are time-boundable: a rule granted for
// an incident carries ExpiresAt and the scanner removes it when it
// lapses.
type AccessRule struct {
	Scope
	Expiry

	// ResourceID is an optional stable id for merge matching. Empty
	// rules match positionally by scope key.
	ResourceID string `json:"resource_id,omitempty" cbor:"7,keyasint,omitempty"`

	// Users lists user identities granted access.
	Users []string `json:"users,omitempty" cbor:"8,keyasint,omitempty"`

	// Groups lists group identities granted access.
	Groups []string `json:"groups,omitempty" cbor:"9,keyasint,omitempty"`

	// Statement is an optional provider-shaped condition document
	// (trust policy statement, assignment condition). Normalized before
	// hashing or diffing.
	Statement map[string]any `json:"statement,omitempty" cbor:"10,keyasint,omitempty"`
}

// Clone returns a deep copy.
func (e AccessRule) Clone() AccessRule {
	out := e
	out.Scope = e.Scope.Clone()
	out.Users = slices.Clone(e.Users)
	out.Groups = slices.Clone(e.Groups)
	out.Statement = CloneValueMap(e.Statement)
	return out
}

// ResourceTag is one provider tag applied to the resource in the
// accounts its scope admits.
type ResourceTag struct {
	Scope
	Expiry

	// Key is the tag key.
	Key string `json:"key" cbor:"7,keyasint"`

	// Value is the tag value. May contain placeholder tokens.
	Value string `json:"value,omitempty" cbor:"8,keyasint,omitempty"`
}

// Clone returns a deep copy.
func (e ResourceTag) Clone() ResourceTag {
	out := e
	out.Scope = e.Scope.Clone()
	return out
}

// PolicyAttachment references a managed policy attached to the
// resource by stable id (an ARN or provider policy id).
type PolicyAttachment struct {
	Scope
	Expiry

	// PolicyID identifies the attached policy. May contain placeholder
	// tokens ("arn:aws:iam::${account_id}:policy/base").
	PolicyID string `json:"policy_id" cbor:"7,keyasint"`
}

// Clone returns a deep copy.
func (e PolicyAttachment) Clone() PolicyAttachment {
	out := e
	out.Scope = e.Scope.Clone()
	return out
}

// InlinePolicy is a whole policy document owned by the resource. The
// document is arbitrary provider-shaped JSON; equality is judged on
// canonical content hash, never on Go identity.
type InlinePolicy struct {
	Scope
	Expiry

	// ResourceID is an optional stable id for merge matching.
	ResourceID string `json:"resource_id,omitempty" cbor:"7,keyasint,omitempty"`

	// Name is the policy's slot name on the resource. Providers cap
	// the number of slots, so the reconciler deletes stale slots
	// before creating replacements.
	Name string `json:"name" cbor:"8,keyasint"`

	// Document is the policy body.
	Document map[string]any `json:"document" cbor:"9,keyasint"`
}

// Clone returns a deep copy.
func (e InlinePolicy) Clone() InlinePolicy {
	out := e
	out.Scope = e.Scope.Clone()
	out.Document = CloneValueMap(e.Document)
	return out
}

// GroupMembership places the resource (a user) in a group in the
// accounts its scope admits.
type GroupMembership struct {
	Scope
	Expiry

	// Group is the group identity to join.
	Group string `json:"group" cbor:"7,keyasint"`
}

// Clone returns a deep copy.
func (e GroupMembership) Clone() GroupMembership {
	out := e
	out.Scope = e.Scope.Clone()
	return out
}

// CloneValueMap deep-copies a document-shaped value tree
// (map[string]any / []any / scalars).
func CloneValueMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies one document-shaped value.
func CloneValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return CloneValueMap(tv)
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = CloneValue(item)
		}
		return out
	case map[string]string:
		return maps.Clone(tv)
	default:
		return v
	}
}
