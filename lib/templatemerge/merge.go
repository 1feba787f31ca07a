// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package templatemerge

import (
	"fmt"
	"log/slog"

	"github.com/wardenhq/warden/lib/account"
	"github.com/wardenhq/warden/lib/schema"
	"github.com/wardenhq/warden/lib/scope"
)

// Config holds configuration for creating a Merger.
type Config struct {
	// Accounts is the configured account universe. Scope patterns on
	// both sides of a merge are expanded against it.
	Accounts *account.Set

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Merger merges generated template content into existing templates.
type Merger struct {
	accounts *account.Set
	logger   *slog.Logger
}

// New creates a Merger.
func New(cfg Config) (*Merger, error) {
	if cfg.Accounts == nil {
		return nil, fmt.Errorf("templatemerge: Accounts is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{accounts: cfg.Accounts, logger: logger}, nil
}

// Merge reconciles a generated template with the existing on-disk
// template. If existing is nil, the generated template is returned as
// a clone, unchanged. Neither input is mutated.
//
// Merge rules:
//   - Template metadata (ResourceID, FilePath, Notes, ManagementMode)
//     comes from existing, never from generated.
//   - The root scope keeps existing's patterns. Accounts existing
//     covered that generated no longer covers become explicit
//     exclusions; accounts generated observed outside existing's
//     coverage become explicit inclusions, unless an operator
//     exclusion keeps them out.
//   - Expiry fields are preserved from existing; generated can only
//     add an expiry or a deletion, never clear one.
//   - Each Properties sequence merges entry-by-entry per its own
//     strategy. Matched entries take content from generated and keep
//     existing's scope and expiry. An existing entry whose accounts
//     produced several distinct generated entries forks into one
//     merged entry per distinct content.
func (m *Merger) Merge(generated, existing *schema.Template) *schema.Template {
	if existing == nil {
		return generated.Clone()
	}

	out := existing.Clone()
	if out.Kind == "" {
		out.Kind = generated.Kind
	}
	if out.Identifier == "" {
		out.Identifier = generated.Identifier
	}
	if out.ExpiresAt == "" {
		out.ExpiresAt = generated.ExpiresAt
	}
	if generated.Deleted {
		out.Deleted = true
	}

	m.mergeRootScope(&out.Scope, generated.Scope, existing.Scope)
	out.Properties = m.mergeProperties(generated.Properties, existing.Properties)
	return out
}

// mergeRootScope keeps the existing root scope and reconciles its
// effective coverage with the generated one. Accounts no longer
// observed are excluded so a later apply visits them and revokes;
// newly observed accounts are included so the engine starts managing
// them.
func (m *Merger) mergeRootScope(out *schema.Scope, generated, existing schema.Scope) {
	generatedSet := scope.EffectiveAccountSet(generated, m.accounts)
	for _, id := range scope.EffectiveAccounts(existing, m.accounts) {
		if !generatedSet[id] {
			out.AddExcludedAccount(m.label(id))
		}
	}
	m.widenScope(out, scope.EffectiveAccounts(generated, m.accounts))
}

// widenScope adds an inclusion for every account in ids the scope
// fails to admit. Accounts kept out by an explicit exclusion or an org
// restriction are left alone: the import observed them, but operator
// intent says no, and intent wins.
func (m *Merger) widenScope(sc *schema.Scope, ids []string) {
	for _, id := range ids {
		acct, ok := m.accounts.ByID(id)
		if !ok {
			continue
		}
		result := scope.EvaluateDetailed(*sc, acct)
		if result.Decision == scope.Included {
			continue
		}
		if result.Reason == scope.ReasonNotIncluded {
			sc.AddIncludedAccount(m.label(id))
		}
	}
}

// label returns the form of an account used in scope lists: the
// configured name when there is one, the id otherwise.
func (m *Merger) label(id string) string {
	if acct, ok := m.accounts.ByID(id); ok && acct.Name != "" {
		return acct.Name
	}
	return id
}
