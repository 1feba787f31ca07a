// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package gitdiff provides typed access to the git CLI for the
// repository operations change inference needs: the set of paths that
// changed between two revisions, and blob content at a revision. All
// commands target a specific repository directory via the -C flag,
// which is automatically injected by all Repository methods.
package gitdiff

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/wardenhq/warden/lib/blobcache"
)

// Config configures a Repository.
type Config struct {
	// Dir is the repository directory. Required. There is no
	// default — callers must always specify which repository they
	// mean.
	Dir string

	// Cache, if set, holds blob content read by FileContent.
	// Entries are keyed revision:path, so callers that reuse a
	// Repository across fetches should pass resolved commit hashes
	// rather than symbolic refs.
	Cache *blobcache.Cache
}

// Repository represents a git repository at a specific directory.
type Repository struct {
	dir   string
	cache *blobcache.Cache
}

// New returns a Repository targeting config.Dir.
func New(config Config) (*Repository, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("gitdiff: Dir is required")
	}
	return &Repository{dir: config.Dir, cache: config.Cache}, nil
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Run executes a git command targeting this repository and returns
// stdout. Stderr is captured separately and included in error
// messages on failure.
func (r *Repository) Run(ctx context.Context, args ...string) ([]byte, error) {
	fullArgs := append([]string{"-C", r.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return nil, fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), r.dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// ResolveRevision resolves a symbolic revision (HEAD, a branch, a
// tag) to its full commit hash.
func (r *Repository) ResolveRevision(ctx context.Context, revision string) (string, error) {
	out, err := r.Run(ctx, "rev-parse", "--verify", revision+"^{commit}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// ChangedFiles returns the paths added, deleted, and modified between
// two revisions. Rename detection is disabled: a renamed file reports
// as a delete of the old path plus an add of the new one, letting the
// caller pair them by content identity instead of git's similarity
// heuristic.
func (r *Repository) ChangedFiles(ctx context.Context, from, to string) (added, deleted, modified []string, err error) {
	out, err := r.Run(ctx, "diff", "--name-status", "--no-renames", "-z", from, to)
	if err != nil {
		return nil, nil, nil, err
	}

	// With -z the output is STATUS NUL PATH NUL, repeated.
	trimmed := strings.TrimSuffix(string(out), "\x00")
	if trimmed == "" {
		return nil, nil, nil, nil
	}
	fields := strings.Split(trimmed, "\x00")
	if len(fields)%2 != 0 {
		return nil, nil, nil, fmt.Errorf("gitdiff: odd diff --name-status field count %d", len(fields))
	}

	for i := 0; i < len(fields); i += 2 {
		status, path := fields[i], fields[i+1]
		if status == "" {
			return nil, nil, nil, fmt.Errorf("gitdiff: empty status for path %q", path)
		}
		switch status[0] {
		case 'A':
			added = append(added, path)
		case 'D':
			deleted = append(deleted, path)
		default:
			// M, plus oddities like T (typechange): the path's
			// content differs between the revisions.
			modified = append(modified, path)
		}
	}
	return added, deleted, modified, nil
}

// FileContent returns the blob content of path at revision.
func (r *Repository) FileContent(ctx context.Context, revision, path string) ([]byte, error) {
	key := revision + ":" + path
	if r.cache != nil {
		if blob, ok := r.cache.Get(key); ok {
			return blob, nil
		}
	}

	out, err := r.Run(ctx, "show", key)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Put(key, out)
	}
	return out, nil
}
