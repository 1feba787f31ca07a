// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package templatemerge

import (
	"slices"

	"github.com/wardenhq/warden/lib/schema"
)

// mergeProperties merges every Properties sequence, each under its own
// field strategy.
func (m *Merger) mergeProperties(generated, existing schema.Properties) schema.Properties {
	return schema.Properties{
		Descriptions:          mergeEntries(m, scopedStringSpec("descriptions"), generated.Descriptions, existing.Descriptions),
		Paths:                 mergeEntries(m, scopedStringSpec("paths"), generated.Paths, existing.Paths),
		SessionDurations:      mergeEntries(m, scopedIntSpec("session_durations"), generated.SessionDurations, existing.SessionDurations),
		PermissionsBoundaries: mergeEntries(m, scopedStringSpec("permissions_boundaries"), generated.PermissionsBoundaries, existing.PermissionsBoundaries),
		AccessRules:           mergeEntries(m, accessRuleSpec(), generated.AccessRules, existing.AccessRules),
		Tags:                  mergeEntries(m, tagSpec(), generated.Tags, existing.Tags),
		AttachedPolicies:      mergeEntries(m, attachmentSpec(), generated.AttachedPolicies, existing.AttachedPolicies),
		InlinePolicies:        mergeEntries(m, inlinePolicySpec(), generated.InlinePolicies, existing.InlinePolicies),
		Groups:                mergeEntries(m, membershipSpec(), generated.Groups, existing.Groups),
	}
}

// scopedStringSpec merges scalar string entries. They carry no
// identity, so matching is positional or coverage-based.
func scopedStringSpec(name string) fieldSpec[schema.ScopedString] {
	return fieldSpec[schema.ScopedString]{
		name:   name,
		scope:  func(e *schema.ScopedString) *schema.Scope { return &e.Scope },
		expiry: func(e *schema.ScopedString) *schema.Expiry { return &e.Expiry },
		adoptContent: func(dst, src *schema.ScopedString) {
			dst.Value = src.Value
		},
		clone: schema.ScopedString.Clone,
	}
}

// scopedIntSpec merges scalar integer entries.
func scopedIntSpec(name string) fieldSpec[schema.ScopedInt] {
	return fieldSpec[schema.ScopedInt]{
		name:   name,
		scope:  func(e *schema.ScopedInt) *schema.Scope { return &e.Scope },
		expiry: func(e *schema.ScopedInt) *schema.Expiry { return &e.Expiry },
		adoptContent: func(dst, src *schema.ScopedInt) {
			dst.Value = src.Value
		},
		clone: schema.ScopedInt.Clone,
	}
}

// accessRuleSpec merges access rules, matched by their stable
// ResourceID when they carry one.
func accessRuleSpec() fieldSpec[schema.AccessRule] {
	return fieldSpec[schema.AccessRule]{
		name:     "access_rules",
		identity: func(e *schema.AccessRule) string { return e.ResourceID },
		scope:    func(e *schema.AccessRule) *schema.Scope { return &e.Scope },
		expiry:   func(e *schema.AccessRule) *schema.Expiry { return &e.Expiry },
		adoptContent: func(dst, src *schema.AccessRule) {
			if src.ResourceID != "" {
				dst.ResourceID = src.ResourceID
			}
			dst.Users = slices.Clone(src.Users)
			dst.Groups = slices.Clone(src.Groups)
			dst.Statement = schema.CloneValueMap(src.Statement)
		},
		clone: schema.AccessRule.Clone,
	}
}

// tagSpec merges tags, matched by tag key. A tag whose key changed
// pairs positionally instead, becoming a rename in place.
func tagSpec() fieldSpec[schema.ResourceTag] {
	return fieldSpec[schema.ResourceTag]{
		name:     "tags",
		identity: func(e *schema.ResourceTag) string { return e.Key },
		scope:    func(e *schema.ResourceTag) *schema.Scope { return &e.Scope },
		expiry:   func(e *schema.ResourceTag) *schema.Expiry { return &e.Expiry },
		adoptContent: func(dst, src *schema.ResourceTag) {
			dst.Key = src.Key
			dst.Value = src.Value
		},
		clone: schema.ResourceTag.Clone,
	}
}

// attachmentSpec merges managed-policy attachments, matched by the
// attached policy id.
func attachmentSpec() fieldSpec[schema.PolicyAttachment] {
	return fieldSpec[schema.PolicyAttachment]{
		name:     "attached_policies",
		identity: func(e *schema.PolicyAttachment) string { return e.PolicyID },
		scope:    func(e *schema.PolicyAttachment) *schema.Scope { return &e.Scope },
		expiry:   func(e *schema.PolicyAttachment) *schema.Expiry { return &e.Expiry },
		adoptContent: func(dst, src *schema.PolicyAttachment) {
			dst.PolicyID = src.PolicyID
		},
		clone: schema.PolicyAttachment.Clone,
	}
}

// inlinePolicySpec merges inline policies, matched by slot name. The
// name is the provider-side identity; ResourceID backs up unnamed
// policies.
func inlinePolicySpec() fieldSpec[schema.InlinePolicy] {
	return fieldSpec[schema.InlinePolicy]{
		name: "inline_policies",
		identity: func(e *schema.InlinePolicy) string {
			if e.Name != "" {
				return "name:" + e.Name
			}
			if e.ResourceID != "" {
				return "id:" + e.ResourceID
			}
			return ""
		},
		scope:  func(e *schema.InlinePolicy) *schema.Scope { return &e.Scope },
		expiry: func(e *schema.InlinePolicy) *schema.Expiry { return &e.Expiry },
		adoptContent: func(dst, src *schema.InlinePolicy) {
			if src.ResourceID != "" {
				dst.ResourceID = src.ResourceID
			}
			if src.Name != "" {
				dst.Name = src.Name
			}
			dst.Document = schema.CloneValueMap(src.Document)
		},
		clone: schema.InlinePolicy.Clone,
	}
}

// membershipSpec merges group memberships, matched by group identity.
func membershipSpec() fieldSpec[schema.GroupMembership] {
	return fieldSpec[schema.GroupMembership]{
		name:     "groups",
		identity: func(e *schema.GroupMembership) string { return e.Group },
		scope:    func(e *schema.GroupMembership) *schema.Scope { return &e.Scope },
		expiry:   func(e *schema.GroupMembership) *schema.Expiry { return &e.Expiry },
		adoptContent: func(dst, src *schema.GroupMembership) {
			dst.Group = src.Group
		},
		clone: schema.GroupMembership.Clone,
	}
}
