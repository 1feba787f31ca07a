// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package render turns a template into the desired resource state for
// one account: entry scopes select what applies, placeholder tokens
// expand to the account's values.
//
// Rendering ignores the template's root scope; deciding which accounts
// to visit is the reconciler's job. Entries marked deleted are skipped.
// Lapsed entries are the expiry scanner's job and are expected to be
// gone before rendering.
package render

import (
	"fmt"

	"github.com/wardenhq/warden/lib/account"
	"github.com/wardenhq/warden/lib/schema"
	"github.com/wardenhq/warden/lib/scope"
	"github.com/wardenhq/warden/lib/templatize"
)

// Desired renders the desired state of template for one account.
// Scalar fields take the first live entry whose scope admits the
// account, in document order. List fields accumulate every admitted
// entry; the first occurrence wins when expansion produces duplicates.
// The input template is never mutated.
func Desired(template *schema.Template, acct account.Account) (*schema.ResourceState, error) {
	name, err := templatize.ExpandString(template.Identifier, acct)
	if err != nil {
		return nil, fmt.Errorf("render: expanding identifier: %w", err)
	}

	state := &schema.ResourceState{
		ResourceID: template.ResourceID,
		Name:       name,
	}
	props := template.Properties

	if state.Path, err = firstString(props.Paths, acct); err != nil {
		return nil, fmt.Errorf("render: expanding path: %w", err)
	}
	if state.Description, err = firstString(props.Descriptions, acct); err != nil {
		return nil, fmt.Errorf("render: expanding description: %w", err)
	}
	if state.PermissionsBoundary, err = firstString(props.PermissionsBoundaries, acct); err != nil {
		return nil, fmt.Errorf("render: expanding permissions boundary: %w", err)
	}
	state.SessionDuration = firstInt(props.SessionDurations, acct)

	for _, tag := range props.Tags {
		if !admits(tag.Scope, tag.Expiry, acct) {
			continue
		}
		if _, exists := state.Tags[tag.Key]; exists {
			continue
		}
		value, err := templatize.ExpandString(tag.Value, acct)
		if err != nil {
			return nil, fmt.Errorf("render: expanding tag %q: %w", tag.Key, err)
		}
		if state.Tags == nil {
			state.Tags = make(map[string]string)
		}
		state.Tags[tag.Key] = value
	}

	seenPolicies := make(map[string]bool)
	for _, attachment := range props.AttachedPolicies {
		if !admits(attachment.Scope, attachment.Expiry, acct) {
			continue
		}
		id, err := templatize.ExpandString(attachment.PolicyID, acct)
		if err != nil {
			return nil, fmt.Errorf("render: expanding attached policy %q: %w", attachment.PolicyID, err)
		}
		if seenPolicies[id] {
			continue
		}
		seenPolicies[id] = true
		state.AttachedPolicies = append(state.AttachedPolicies, id)
	}

	for _, policy := range props.InlinePolicies {
		if !admits(policy.Scope, policy.Expiry, acct) {
			continue
		}
		name, err := templatize.ExpandString(policy.Name, acct)
		if err != nil {
			return nil, fmt.Errorf("render: expanding inline policy name %q: %w", policy.Name, err)
		}
		if _, exists := state.InlinePolicies[name]; exists {
			continue
		}
		doc, err := expandDocument(policy.Document, acct)
		if err != nil {
			return nil, fmt.Errorf("render: expanding inline policy %q: %w", policy.Name, err)
		}
		if state.InlinePolicies == nil {
			state.InlinePolicies = make(map[string]map[string]any)
		}
		state.InlinePolicies[name] = doc
	}

	for _, rule := range props.AccessRules {
		if !admits(rule.Scope, rule.Expiry, acct) {
			continue
		}
		doc, err := renderAccessRule(rule, acct)
		if err != nil {
			return nil, fmt.Errorf("render: expanding access rule: %w", err)
		}
		state.AccessRules = append(state.AccessRules, doc)
	}

	seenGroups := make(map[string]bool)
	for _, membership := range props.Groups {
		if !admits(membership.Scope, membership.Expiry, acct) {
			continue
		}
		group, err := templatize.ExpandString(membership.Group, acct)
		if err != nil {
			return nil, fmt.Errorf("render: expanding group %q: %w", membership.Group, err)
		}
		if seenGroups[group] {
			continue
		}
		seenGroups[group] = true
		state.Groups = append(state.Groups, group)
	}

	return state, nil
}

// admits reports whether a live (not deleted) entry applies to the
// account.
func admits(s schema.Scope, e schema.Expiry, acct account.Account) bool {
	return !e.Deleted && scope.Evaluate(s, acct)
}

// firstString returns the expanded value of the first admitted entry,
// or "" when none applies.
func firstString(entries []schema.ScopedString, acct account.Account) (string, error) {
	for _, entry := range entries {
		if !admits(entry.Scope, entry.Expiry, acct) {
			continue
		}
		return templatize.ExpandString(entry.Value, acct)
	}
	return "", nil
}

// firstInt returns the value of the first admitted entry, or 0 when
// none applies.
func firstInt(entries []schema.ScopedInt, acct account.Account) int64 {
	for _, entry := range entries {
		if !admits(entry.Scope, entry.Expiry, acct) {
			continue
		}
		return entry.Value
	}
	return 0
}

// renderAccessRule flattens one admitted rule into a normalized
// document: the expanded statement, if any, plus expanded user and
// group identity lists under "users" and "groups" keys.
func renderAccessRule(rule schema.AccessRule, acct account.Account) (map[string]any, error) {
	doc := map[string]any{}
	if rule.Statement != nil {
		expanded, err := expandDocument(rule.Statement, acct)
		if err != nil {
			return nil, err
		}
		doc = expanded
	}
	if len(rule.Users) > 0 {
		users, err := expandStrings(rule.Users, acct)
		if err != nil {
			return nil, err
		}
		doc["users"] = users
	}
	if len(rule.Groups) > 0 {
		groups, err := expandStrings(rule.Groups, acct)
		if err != nil {
			return nil, err
		}
		doc["groups"] = groups
	}
	return doc, nil
}

// expandDocument expands tokens throughout a document-shaped map.
func expandDocument(doc map[string]any, acct account.Account) (map[string]any, error) {
	expanded, err := templatize.Expand(doc, acct)
	if err != nil {
		return nil, err
	}
	out, ok := expanded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expanded document is %T, not a map", expanded)
	}
	return out, nil
}

// expandStrings expands tokens in each value, preserving order. The
// result is []any so it slots into document-shaped maps.
func expandStrings(values []string, acct account.Account) ([]any, error) {
	out := make([]any, len(values))
	for i, value := range values {
		expanded, err := templatize.ExpandString(value, acct)
		if err != nil {
			return nil, err
		}
		out[i] = expanded
	}
	return out, nil
}
