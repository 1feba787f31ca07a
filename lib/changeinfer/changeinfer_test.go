// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package changeinfer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/wardenhq/warden/lib/account"
	"github.com/wardenhq/warden/lib/schema"
	"github.com/wardenhq/warden/lib/scope"
)

// fakeDiffer serves a fixed diff and blob table keyed revision:path.
type fakeDiffer struct {
	added    []string
	deleted  []string
	modified []string
	blobs    map[string]string
	diffErr  error
}

func (d *fakeDiffer) ChangedFiles(_ context.Context, from, to string) ([]string, []string, []string, error) {
	if d.diffErr != nil {
		return nil, nil, nil, d.diffErr
	}
	return d.added, d.deleted, d.modified, nil
}

func (d *fakeDiffer) FileContent(_ context.Context, revision, path string) ([]byte, error) {
	blob, ok := d.blobs[revision+":"+path]
	if !ok {
		return nil, fmt.Errorf("no blob at %s:%s", revision, path)
	}
	return []byte(blob), nil
}

func loadJSON(data []byte) (*schema.Template, error) {
	var template schema.Template
	if err := json.Unmarshal(data, &template); err != nil {
		return nil, err
	}
	return &template, nil
}

func testAccounts(t *testing.T) *account.Set {
	t.Helper()
	set, err := account.NewSet([]account.Account{
		{ID: "acct-1", Name: "prod-payments"},
		{ID: "acct-2", Name: "prod-data"},
		{ID: "acct-3", Name: "audit"},
	})
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	return set
}

func newInferencer(t *testing.T, differ RevisionDiffer) *Inferencer {
	t.Helper()
	inferencer, err := New(Config{
		Differ:               differ,
		LoadTemplate:         loadJSON,
		Accounts:             testAccounts(t),
		ExcludedPathPrefixes: []string{"docs/"},
		Logger:               slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return inferencer
}

func TestNewValidatesConfig(t *testing.T) {
	base := Config{
		Differ:       &fakeDiffer{},
		LoadTemplate: loadJSON,
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing differ", func(c *Config) { c.Differ = nil }, "Differ is required"},
		{"missing loader", func(c *Config) { c.LoadTemplate = nil }, "LoadTemplate is required"},
		{"missing accounts", func(c *Config) {}, "Accounts is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := base
			tt.mutate(&config)
			_, err := New(config)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("New error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestInferClassifiesChangedPaths(t *testing.T) {
	differ := &fakeDiffer{
		added:    []string{"templates/roles/new.json", "README.md", "docs/example.json"},
		deleted:  []string{"templates/roles/old.json"},
		modified: []string{"templates/roles/edited.json"},
		blobs: map[string]string{
			"to:templates/roles/new.json":      `{"kind": "role", "identifier": "new-role", "resource_id": "r-new"}`,
			"from:templates/roles/old.json":    `{"kind": "role", "identifier": "old-role", "resource_id": "r-old"}`,
			"from:templates/roles/edited.json": `{"kind": "role", "identifier": "edited", "resource_id": "r-edit"}`,
			"to:templates/roles/edited.json":   `{"kind": "role", "identifier": "edited-v2", "resource_id": "r-edit"}`,
		},
	}

	set, err := newInferencer(t, differ).Infer(context.Background(), "from", "to")
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}

	if set.From != "from" || set.To != "to" {
		t.Errorf("revisions = %s..%s, want from..to", set.From, set.To)
	}
	if len(set.Intents) != 3 {
		t.Fatalf("intents = %d, want 3 (non-template paths ignored)", len(set.Intents))
	}

	create := set.Intents[0]
	if create.Action != ActionCreate || create.Path != "templates/roles/new.json" {
		t.Errorf("first intent = %s %s, want create of the new template", create.Action, create.Path)
	}
	if create.Template.FilePath != create.Path {
		t.Errorf("create FilePath = %q, want the repository path", create.Template.FilePath)
	}

	deleted := set.Intents[1]
	if deleted.Action != ActionDelete || deleted.Path != "templates/roles/old.json" {
		t.Errorf("second intent = %s %s, want delete of the removed template", deleted.Action, deleted.Path)
	}
	if !deleted.Template.Deleted {
		t.Error("delete intent's template does not carry the deleted flag")
	}

	modify := set.Intents[2]
	if modify.Action != ActionModify || modify.Template.Identifier != "edited-v2" {
		t.Errorf("third intent = %s %q, want the to-revision content", modify.Action, modify.Template.Identifier)
	}
}

func TestInferSynthesizesNewlyExcludedAccount(t *testing.T) {
	differ := &fakeDiffer{
		modified: []string{"templates/roles/ci.json"},
		blobs: map[string]string{
			"from:templates/roles/ci.json": `{"kind": "role", "identifier": "ci", "resource_id": "r1", "included_accounts": ["*"]}`,
			"to:templates/roles/ci.json":   `{"kind": "role", "identifier": "ci", "resource_id": "r1", "included_accounts": ["*"], "excluded_accounts": ["acct-3"]}`,
		},
	}

	set, err := newInferencer(t, differ).Infer(context.Background(), "from", "to")
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	template := set.Intents[0].Template

	if !slices.Contains(template.IncludedAccounts, "acct-3") {
		t.Errorf("included_accounts = %v, want acct-3 pinned in", template.IncludedAccounts)
	}
	if want := []string{"acct-3"}; !slices.Equal(template.ExcludedAccounts, want) {
		t.Errorf("excluded_accounts = %v, want %v unchanged", template.ExcludedAccounts, want)
	}

	accounts := testAccounts(t)
	dropped, _ := accounts.ByID("acct-3")
	if scope.Evaluate(template.Scope, dropped) {
		t.Error("dropped account still evaluates in scope")
	}
	if !scope.MatchesInclusions(template.Scope, dropped) {
		t.Error("dropped account does not match inclusions, so it would never be visited")
	}
	kept, _ := accounts.ByID("acct-1")
	if !scope.Evaluate(template.Scope, kept) {
		t.Error("unrelated account fell out of scope")
	}
}

func TestInferSynthesizesShrunkInclusionList(t *testing.T) {
	differ := &fakeDiffer{
		modified: []string{"templates/roles/ci.json"},
		blobs: map[string]string{
			"from:templates/roles/ci.json": `{"kind": "role", "identifier": "ci", "resource_id": "r1", "included_accounts": ["acct-1", "acct-2"]}`,
			"to:templates/roles/ci.json":   `{"kind": "role", "identifier": "ci", "resource_id": "r1", "included_accounts": ["acct-1"]}`,
		},
	}

	set, err := newInferencer(t, differ).Infer(context.Background(), "from", "to")
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	template := set.Intents[0].Template

	if !slices.Contains(template.IncludedAccounts, "acct-2") {
		t.Errorf("included_accounts = %v, want the dropped account pinned in", template.IncludedAccounts)
	}
	if !slices.Contains(template.ExcludedAccounts, "acct-2") {
		t.Errorf("excluded_accounts = %v, want the dropped account pinned out", template.ExcludedAccounts)
	}

	accounts := testAccounts(t)
	dropped, _ := accounts.ByID("acct-2")
	if scope.Evaluate(template.Scope, dropped) {
		t.Error("dropped account still evaluates in scope")
	}
	if !scope.MatchesInclusions(template.Scope, dropped) {
		t.Error("dropped account would never be visited")
	}
	kept, _ := accounts.ByID("acct-1")
	if !scope.Evaluate(template.Scope, kept) {
		t.Error("kept account fell out of scope")
	}
}

func TestInferWideningScopeNeedsNoSynthesis(t *testing.T) {
	differ := &fakeDiffer{
		modified: []string{"templates/roles/ci.json"},
		blobs: map[string]string{
			"from:templates/roles/ci.json": `{"kind": "role", "identifier": "ci", "resource_id": "r1", "included_accounts": ["acct-1"]}`,
			"to:templates/roles/ci.json":   `{"kind": "role", "identifier": "ci", "resource_id": "r1", "included_accounts": ["acct-1", "acct-2"]}`,
		},
	}

	set, err := newInferencer(t, differ).Infer(context.Background(), "from", "to")
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	template := set.Intents[0].Template

	if want := []string{"acct-1", "acct-2"}; !slices.Equal(template.IncludedAccounts, want) {
		t.Errorf("included_accounts = %v, want %v untouched", template.IncludedAccounts, want)
	}
	if len(template.ExcludedAccounts) != 0 {
		t.Errorf("excluded_accounts = %v, want none", template.ExcludedAccounts)
	}
}

func TestInferRenameWithoutContentChange(t *testing.T) {
	content := `{"kind": "role", "identifier": "mover", "resource_id": "r-move", "included_accounts": ["acct-1"]}`
	differ := &fakeDiffer{
		added:   []string{"templates/roles/renamed.json"},
		deleted: []string{"templates/roles/mover.json"},
		blobs: map[string]string{
			"from:templates/roles/mover.json": content,
			"to:templates/roles/renamed.json": content,
		},
	}

	set, err := newInferencer(t, differ).Infer(context.Background(), "from", "to")
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}

	if len(set.Intents) != 1 {
		t.Fatalf("intents = %+v, want a single rename", set.Intents)
	}
	rename := set.Intents[0]
	if rename.Action != ActionRename {
		t.Errorf("action = %s, want rename", rename.Action)
	}
	if rename.FromPath != "templates/roles/mover.json" || rename.Path != "templates/roles/renamed.json" {
		t.Errorf("rename = %s → %s, want old → new path", rename.FromPath, rename.Path)
	}
}

func TestInferRenameWithContentChangeSplits(t *testing.T) {
	differ := &fakeDiffer{
		added:   []string{"templates/roles/renamed.json"},
		deleted: []string{"templates/roles/mover.json"},
		blobs: map[string]string{
			"from:templates/roles/mover.json": `{"kind": "role", "identifier": "mover", "resource_id": "r-move"}`,
			"to:templates/roles/renamed.json": `{"kind": "role", "identifier": "mover-v2", "resource_id": "r-move"}`,
		},
	}

	set, err := newInferencer(t, differ).Infer(context.Background(), "from", "to")
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}

	if len(set.Intents) != 2 {
		t.Fatalf("intents = %+v, want create plus delete", set.Intents)
	}
	if set.Intents[0].Action != ActionCreate || set.Intents[0].Path != "templates/roles/renamed.json" {
		t.Errorf("first intent = %s %s, want create at the new path", set.Intents[0].Action, set.Intents[0].Path)
	}
	if set.Intents[1].Action != ActionDelete || set.Intents[1].Path != "templates/roles/mover.json" {
		t.Errorf("second intent = %s %s, want delete at the old path", set.Intents[1].Action, set.Intents[1].Path)
	}
}

func TestInferEmptyDiff(t *testing.T) {
	set, err := newInferencer(t, &fakeDiffer{}).Infer(context.Background(), "from", "to")
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if len(set.Intents) != 0 {
		t.Errorf("intents = %+v, want none", set.Intents)
	}
}

func TestInferDifferErrorSurfaces(t *testing.T) {
	differ := &fakeDiffer{diffErr: fmt.Errorf("bad revision")}
	_, err := newInferencer(t, differ).Infer(context.Background(), "from", "to")
	if err == nil || !strings.Contains(err.Error(), "bad revision") {
		t.Errorf("Infer error = %v, want the differ failure", err)
	}
}

func TestInferLoadErrorNamesPathAndRevision(t *testing.T) {
	differ := &fakeDiffer{
		added: []string{"templates/roles/broken.json"},
		blobs: map[string]string{
			"to:templates/roles/broken.json": `{not json`,
		},
	}

	_, err := newInferencer(t, differ).Infer(context.Background(), "from", "to")
	if err == nil {
		t.Fatal("Infer should fail on an undecodable template")
	}
	if !strings.Contains(err.Error(), "templates/roles/broken.json") || !strings.Contains(err.Error(), "at to") {
		t.Errorf("error = %v, want the path and revision named", err)
	}
}
