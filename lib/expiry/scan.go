// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package expiry

import (
	"fmt"
	"time"

	"github.com/wardenhq/warden/lib/schema"
)

// Scan walks a template depth-first and applies the expiry lifecycle
// against now:
//
//   - Relative expires_at phrases anywhere in the tree are rewritten
//     to their resolved RFC 3339 UTC form.
//   - A nested element whose expires_at has passed is removed from its
//     parent sequence.
//   - A root template whose expires_at has passed gets Deleted = true.
//     The file path is untouched: only the reconciler removes the
//     backing document, once every account's live state is gone.
//
// Nested elements are processed before the root, so expired entries
// can empty a property sequence without the template itself being
// deleted. The template is mutated in place; changed reports whether
// anything was rewritten, removed, or marked. A changed template must
// be persisted by the caller or resolved phrases would re-resolve
// against a later now.
func Scan(t *schema.Template, now time.Time) (changed bool, err error) {
	props := &t.Properties

	if props.Descriptions, changed, err = scanEntries(props.Descriptions, "descriptions", changed, now,
		func(e *schema.ScopedString) *schema.Expiry { return &e.Expiry }); err != nil {
		return changed, err
	}
	if props.Paths, changed, err = scanEntries(props.Paths, "paths", changed, now,
		func(e *schema.ScopedString) *schema.Expiry { return &e.Expiry }); err != nil {
		return changed, err
	}
	if props.SessionDurations, changed, err = scanEntries(props.SessionDurations, "session_durations", changed, now,
		func(e *schema.ScopedInt) *schema.Expiry { return &e.Expiry }); err != nil {
		return changed, err
	}
	if props.PermissionsBoundaries, changed, err = scanEntries(props.PermissionsBoundaries, "permissions_boundaries", changed, now,
		func(e *schema.ScopedString) *schema.Expiry { return &e.Expiry }); err != nil {
		return changed, err
	}
	if props.AccessRules, changed, err = scanEntries(props.AccessRules, "access_rules", changed, now,
		func(e *schema.AccessRule) *schema.Expiry { return &e.Expiry }); err != nil {
		return changed, err
	}
	if props.Tags, changed, err = scanEntries(props.Tags, "tags", changed, now,
		func(e *schema.ResourceTag) *schema.Expiry { return &e.Expiry }); err != nil {
		return changed, err
	}
	if props.AttachedPolicies, changed, err = scanEntries(props.AttachedPolicies, "attached_policies", changed, now,
		func(e *schema.PolicyAttachment) *schema.Expiry { return &e.Expiry }); err != nil {
		return changed, err
	}
	if props.InlinePolicies, changed, err = scanEntries(props.InlinePolicies, "inline_policies", changed, now,
		func(e *schema.InlinePolicy) *schema.Expiry { return &e.Expiry }); err != nil {
		return changed, err
	}
	if props.Groups, changed, err = scanEntries(props.Groups, "groups", changed, now,
		func(e *schema.GroupMembership) *schema.Expiry { return &e.Expiry }); err != nil {
		return changed, err
	}

	// Root last: the root is marked, never removed.
	if t.ExpiresAt != "" {
		resolved, rewritten, err := resolveField(t.ExpiresAt, now)
		if err != nil {
			return changed, fmt.Errorf("template %s: %w", t.ResourceID, err)
		}
		if rewritten != "" {
			t.ExpiresAt = rewritten
			changed = true
		}
		if !resolved.After(now) && !t.Deleted {
			t.Deleted = true
			changed = true
		}
	}

	return changed, nil
}

// scanEntries applies the expiry lifecycle to one property sequence:
// resolve relative phrases in place, drop entries whose time has
// passed. Returns the surviving entries.
func scanEntries[E any](entries []E, field string, changed bool, now time.Time, expiryOf func(*E) *schema.Expiry) ([]E, bool, error) {
	if len(entries) == 0 {
		return entries, changed, nil
	}

	kept := make([]E, 0, len(entries))
	for i := range entries {
		exp := expiryOf(&entries[i])
		if exp.ExpiresAt == "" {
			kept = append(kept, entries[i])
			continue
		}

		resolved, rewritten, err := resolveField(exp.ExpiresAt, now)
		if err != nil {
			return entries, changed, fmt.Errorf("%s[%d]: %w", field, i, err)
		}
		if rewritten != "" {
			exp.ExpiresAt = rewritten
			changed = true
		}

		if !resolved.After(now) {
			changed = true
			continue
		}
		kept = append(kept, entries[i])
	}
	return kept, changed, nil
}

// resolveField resolves one expires_at value. When the value was a
// relative phrase, rewritten holds the RFC 3339 form to persist;
// otherwise rewritten is empty.
func resolveField(phrase string, now time.Time) (resolved time.Time, rewritten string, err error) {
	resolved, err = ResolveDate(phrase, now)
	if err != nil {
		return time.Time{}, "", err
	}
	if !IsAbsolute(phrase) {
		rewritten = resolved.Format(time.RFC3339)
	}
	return resolved, rewritten, nil
}
