// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/wardenhq/warden/lib/account"
	"github.com/wardenhq/warden/lib/provider"
	"github.com/wardenhq/warden/lib/reconcile/limiter"
	"github.com/wardenhq/warden/lib/schema"
	"github.com/wardenhq/warden/lib/scope"
	"github.com/wardenhq/warden/lib/version"
)

// Config configures an Engine.
type Config struct {
	// Adapters lists one provider adapter per resource kind.
	Adapters []provider.Adapter

	// Limiter bounds concurrent provider calls. If nil, a limiter
	// with default pool sizes is used.
	Limiter *limiter.Limiter

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Engine reconciles templates against accounts. Safe for concurrent
// use by multiple goroutines.
type Engine struct {
	adapters map[string]provider.Adapter
	limiter  *limiter.Limiter
	logger   *slog.Logger
}

// New validates the configuration and returns an Engine.
func New(cfg Config) (*Engine, error) {
	if len(cfg.Adapters) == 0 {
		return nil, errors.New("reconcile: Adapters is required")
	}
	adapters := make(map[string]provider.Adapter, len(cfg.Adapters))
	for _, adapter := range cfg.Adapters {
		kind := adapter.Kind()
		if _, dup := adapters[kind]; dup {
			return nil, fmt.Errorf("reconcile: duplicate adapter for kind %q", kind)
		}
		adapters[kind] = adapter
	}

	lim := cfg.Limiter
	if lim == nil {
		var err error
		lim, err = limiter.New(0, 0)
		if err != nil {
			return nil, err
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		adapters: adapters,
		limiter:  lim,
		logger:   logger,
	}, nil
}

// Apply reconciles one template across the account fleet and returns
// the aggregated outcome. When execCtx.Execute is false the provider
// is only read, never mutated, and every detected difference is
// reported as a planned change.
//
// Per-account failures are captured on that account's change record;
// Apply itself returns an error only for configuration problems
// detected before any account work starts.
func (e *Engine) Apply(ctx context.Context, execCtx provider.ExecutionContext, template *schema.Template, accounts *account.Set) (*schema.TemplateChangeDetails, error) {
	details := &schema.TemplateChangeDetails{
		TemplateKind: template.Kind,
		ResourceID:   template.ResourceID,
		Identifier:   template.Identifier,
		FilePath:     template.FilePath,
	}

	if template.EffectiveManagementMode() == schema.ModeUnmanaged {
		e.logger.Info("skipping unmanaged template",
			"run_id", execCtx.RunID,
			"resource_id", template.ResourceID)
		return details, nil
	}

	adapter, ok := e.adapters[template.Kind]
	if !ok {
		return nil, fmt.Errorf("reconcile: no adapter for kind %q", template.Kind)
	}

	// Visit every account the inclusion axes admit. An account the
	// exclusions then reject is still visited: there the desired state
	// is "absent", and only a visit can verify or enforce that.
	var visits []account.Account
	for _, acct := range accounts.All() {
		if scope.MatchesInclusions(template.Scope, acct) {
			visits = append(visits, acct)
		}
	}

	e.logger.Info("reconciling template",
		"run_id", execCtx.RunID,
		"command", execCtx.Command,
		"execute", execCtx.Execute,
		"version", version.Info(),
		"kind", template.Kind,
		"resource_id", template.ResourceID,
		"identifier", template.Identifier,
		"accounts", len(visits))

	type accountResult struct {
		index   int
		details schema.AccountChangeDetails
	}
	results := make(chan accountResult, len(visits))

	var group errgroup.Group
	for i, acct := range visits {
		i, acct := i, acct
		group.Go(func() error {
			results <- accountResult{i, e.reconcileAccount(ctx, execCtx, adapter, template, acct)}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	close(results)

	ordered := make([]schema.AccountChangeDetails, len(visits))
	for result := range results {
		ordered[result.index] = result.details
	}
	details.AccountChanges = ordered

	// A deleted template's file may go once every account verifiably
	// converged on "absent". Planned-but-unexecuted work blocks the
	// removal: the template is still the only record of what remains
	// to be deleted.
	if execCtx.Execute && template.Deleted && details.Succeeded() && !anyPlanned(details) {
		details.RemoveTemplate = true
	}

	e.logger.Info("template reconciled",
		"run_id", execCtx.RunID,
		"resource_id", template.ResourceID,
		"changed", details.Changed(),
		"succeeded", details.Succeeded(),
		"remove_template", details.RemoveTemplate)

	return details, nil
}

// anyPlanned reports whether some account holds unexecuted planned
// work.
func anyPlanned(details *schema.TemplateChangeDetails) bool {
	for i := range details.AccountChanges {
		if details.AccountChanges[i].State == schema.AccountStatePlanned {
			return true
		}
	}
	return false
}
