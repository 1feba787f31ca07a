// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package changeinfer turns a pair of repository revisions into
// reconciliation intents: which templates were created, modified, or
// deleted, and — for scope edits — which accounts must still be
// visited so a shrunk scope becomes an explicit revocation instead of
// an orphaned resource.
package changeinfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wardenhq/warden/lib/account"
	"github.com/wardenhq/warden/lib/contenthash"
	"github.com/wardenhq/warden/lib/schema"
	"github.com/wardenhq/warden/lib/scope"
)

// RevisionDiffer supplies repository history: the paths that changed
// between two revisions and blob content at a revision. Implemented
// by lib/gitdiff.
type RevisionDiffer interface {
	ChangedFiles(ctx context.Context, from, to string) (added, deleted, modified []string, err error)
	FileContent(ctx context.Context, revision, path string) ([]byte, error)
}

// DefaultTemplateSuffix marks template documents when Config leaves
// TemplateSuffix empty.
const DefaultTemplateSuffix = ".json"

// Action classifies an intent.
type Action string

const (
	ActionCreate Action = "create"
	ActionModify Action = "modify"
	ActionDelete Action = "delete"

	// ActionRename records a path move whose content is unchanged.
	// No reconciliation is needed: the live resources already match.
	ActionRename Action = "rename"
)

// Intent is one template-level reconciliation instruction.
type Intent struct {
	// Action says what happened to the template between the two
	// revisions.
	Action Action

	// Path is the template's repository path at the "to" revision;
	// for deletes, at the "from" revision (the file no longer
	// exists at "to").
	Path string

	// FromPath is the pre-move path. Set only for renames.
	FromPath string

	// Template is the loaded template the reconciler should apply.
	// Delete intents carry the "from" revision's template with its
	// Deleted flag forced on. Rename intents carry the template for
	// audit only.
	Template *schema.Template
}

// ChangeSet is every intent inferred between two revisions, ordered
// creates, deletes, then modifications, each in repository path
// order.
type ChangeSet struct {
	From    string
	To      string
	Intents []Intent
}

// Config configures an Inferencer.
type Config struct {
	// Differ supplies changed paths and blob content. Required.
	Differ RevisionDiffer

	// LoadTemplate decodes a template document. Required. The
	// document encoding belongs to the caller; the inferencer only
	// sees the decoded form.
	LoadTemplate func([]byte) (*schema.Template, error)

	// Accounts is the configured account list scope patterns expand
	// against. Required.
	Accounts *account.Set

	// TemplateSuffix marks template documents; paths without it are
	// ignored. Defaults to DefaultTemplateSuffix.
	TemplateSuffix string

	// ExcludedPathPrefixes lists repository path prefixes that never
	// hold templates (docs, CI configuration).
	ExcludedPathPrefixes []string

	// Logger receives synthesis decisions at DEBUG. If nil,
	// slog.Default() is used.
	Logger *slog.Logger
}

// Inferencer compares template trees at two revisions.
type Inferencer struct {
	differ   RevisionDiffer
	load     func([]byte) (*schema.Template, error)
	accounts *account.Set
	suffix   string
	excluded []string
	logger   *slog.Logger
}

// New validates the configuration and returns an Inferencer.
func New(config Config) (*Inferencer, error) {
	if config.Differ == nil {
		return nil, errors.New("changeinfer: Differ is required")
	}
	if config.LoadTemplate == nil {
		return nil, errors.New("changeinfer: LoadTemplate is required")
	}
	if config.Accounts == nil {
		return nil, errors.New("changeinfer: Accounts is required")
	}
	suffix := config.TemplateSuffix
	if suffix == "" {
		suffix = DefaultTemplateSuffix
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Inferencer{
		differ:   config.Differ,
		load:     config.LoadTemplate,
		accounts: config.Accounts,
		suffix:   suffix,
		excluded: config.ExcludedPathPrefixes,
		logger:   logger,
	}, nil
}

// Infer diffs the template tree between the from and to revisions and
// returns the resulting intents.
func (inf *Inferencer) Infer(ctx context.Context, from, to string) (*ChangeSet, error) {
	added, deleted, modified, err := inf.differ.ChangedFiles(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("changeinfer: diffing %s..%s: %w", from, to, err)
	}

	added = inf.templatePaths(added)
	deleted = inf.templatePaths(deleted)
	modified = inf.templatePaths(modified)

	set := &ChangeSet{From: from, To: to}

	// Load the delete candidates up front: rename detection pairs
	// them with adds by resource id.
	deletedTemplates := make([]*schema.Template, len(deleted))
	deletedByResource := make(map[string]int, len(deleted))
	for i, path := range deleted {
		template, err := inf.loadAt(ctx, from, path)
		if err != nil {
			return nil, err
		}
		deletedTemplates[i] = template
		if template.ResourceID != "" {
			deletedByResource[template.ResourceID] = i
		}
	}
	renamed := make([]bool, len(deleted))

	for _, path := range added {
		template, err := inf.loadAt(ctx, to, path)
		if err != nil {
			return nil, err
		}
		if i, ok := deletedByResource[template.ResourceID]; ok && template.ResourceID != "" && !renamed[i] {
			if sameContent(deletedTemplates[i], template) {
				renamed[i] = true
				inf.logger.Debug("template moved without content change",
					"resource_id", template.ResourceID,
					"from_path", deleted[i],
					"to_path", path,
				)
				set.Intents = append(set.Intents, Intent{
					Action:   ActionRename,
					Path:     path,
					FromPath: deleted[i],
					Template: template,
				})
				continue
			}
			// Same resource id at a new path with different
			// content: fall through to a plain create, leaving
			// the old path's delete in place.
		}
		set.Intents = append(set.Intents, Intent{Action: ActionCreate, Path: path, Template: template})
	}

	for i, path := range deleted {
		if renamed[i] {
			continue
		}
		template := deletedTemplates[i]
		template.Deleted = true
		set.Intents = append(set.Intents, Intent{Action: ActionDelete, Path: path, Template: template})
	}

	for _, path := range modified {
		fromTemplate, err := inf.loadAt(ctx, from, path)
		if err != nil {
			return nil, err
		}
		toTemplate, err := inf.loadAt(ctx, to, path)
		if err != nil {
			return nil, err
		}
		inf.synthesizeScopeDelta(fromTemplate, toTemplate)
		set.Intents = append(set.Intents, Intent{Action: ActionModify, Path: path, Template: toTemplate})
	}

	return set, nil
}

// templatePaths filters a path list down to template documents.
func (inf *Inferencer) templatePaths(paths []string) []string {
	var out []string
	for _, path := range paths {
		if !strings.HasSuffix(path, inf.suffix) {
			continue
		}
		if inf.excludedPath(path) {
			continue
		}
		out = append(out, path)
	}
	return out
}

func (inf *Inferencer) excludedPath(path string) bool {
	for _, prefix := range inf.excluded {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// loadAt reads and decodes one template document at a revision. The
// template's FilePath is set from the repository path: the document
// itself does not carry it.
func (inf *Inferencer) loadAt(ctx context.Context, revision, path string) (*schema.Template, error) {
	content, err := inf.differ.FileContent(ctx, revision, path)
	if err != nil {
		return nil, fmt.Errorf("changeinfer: reading %s at %s: %w", path, revision, err)
	}
	template, err := inf.load(content)
	if err != nil {
		return nil, fmt.Errorf("changeinfer: loading %s at %s: %w", path, revision, err)
	}
	template.FilePath = path
	return template, nil
}

// synthesizeScopeDelta rewrites the "to" template's scope so the
// reconciler still visits every account the "from" revision reached.
// An account the edit dropped would otherwise never be visited again,
// leaving its live resource orphaned.
func (inf *Inferencer) synthesizeScopeDelta(from, to *schema.Template) {
	fromSet := scope.EffectiveAccountSet(from.Scope, inf.accounts)
	toSet := scope.EffectiveAccountSet(to.Scope, inf.accounts)

	for _, acct := range inf.accounts.All() {
		if !fromSet[acct.ID] || toSet[acct.ID] {
			continue
		}
		if len(to.Scope.IncludedAccounts) == 0 {
			// Materialize the implicit wildcard before the first
			// explicit entry narrows it.
			to.Scope.IncludedAccounts = []string{"*"}
		}
		to.Scope.AddIncludedAccount(acct.ID)
		if scope.Evaluate(to.Scope, acct) {
			// The pinned inclusion re-admitted the account; pin
			// the rejection too so the visit deletes.
			to.Scope.AddExcludedAccount(acct.ID)
		}
		inf.logger.Debug("synthesized deletion visit for dropped account",
			"resource_id", to.ResourceID,
			"file_path", to.FilePath,
			"account", acct.ID,
		)
	}
}

// sameContent reports whether two templates carry identical content,
// ignoring where in the repository they live.
func sameContent(a, b *schema.Template) bool {
	ac, bc := a.Clone(), b.Clone()
	ac.FilePath, bc.FilePath = "", ""
	ah, errA := contenthash.Sum(ac)
	bh, errB := contenthash.Sum(bc)
	return errA == nil && errB == nil && ah == bh
}
