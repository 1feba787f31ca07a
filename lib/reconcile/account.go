// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"fmt"

	"github.com/wardenhq/warden/lib/account"
	"github.com/wardenhq/warden/lib/provider"
	"github.com/wardenhq/warden/lib/render"
	"github.com/wardenhq/warden/lib/schema"
	"github.com/wardenhq/warden/lib/scope"
)

// reconcileAccount drives one account through the state machine. All
// failures land on the returned details; this function never returns
// an error because one account's failure must not disturb its
// siblings.
func (e *Engine) reconcileAccount(ctx context.Context, execCtx provider.ExecutionContext, adapter provider.Adapter, template *schema.Template, acct account.Account) schema.AccountChangeDetails {
	details := schema.AccountChangeDetails{
		AccountID:   acct.ID,
		AccountName: acct.Name,
		State:       schema.AccountStateNotEvaluated,
	}

	// Import-only accounts (and import-only templates) are diffed but
	// never mutated, whatever the run-level execute flag says.
	importOnly := acct.ImportOnly || template.EffectiveManagementMode() == schema.ModeImportOnly
	if importOnly && execCtx.Execute {
		e.logger.Debug("import-only, planning without mutation",
			"run_id", execCtx.RunID,
			"account", acct.ID)
		execCtx.Execute = false
	}

	// An account the exclusions reject is visited with desired state
	// "absent": the exclusion is an instruction to remove, not to
	// skip.
	deleted := template.Deleted || !scope.Evaluate(template.Scope, acct)

	var live *schema.ResourceState
	fetchErr := e.limiter.Read(ctx, func() error {
		var err error
		live, err = adapter.FetchLive(ctx, execCtx, acct, template.ResourceID)
		return err
	})
	if fetchErr != nil {
		details.RecordError(fmt.Errorf("fetching live state: %w", fetchErr))
		details.State = schema.AccountStateFailed
		return details
	}
	details.State = schema.AccountStateFetchedLiveState

	switch {
	case deleted:
		e.deleteResource(ctx, execCtx, adapter, template, acct, live, &details)
	case live == nil:
		e.createResource(ctx, execCtx, adapter, template, acct, &details)
	default:
		e.updateResource(ctx, execCtx, adapter, template, acct, live, &details)
	}

	switch {
	case !details.Changed() && details.Succeeded():
		details.State = schema.AccountStateNoChange
	case !details.Succeeded():
		details.State = schema.AccountStateFailed
	case execCtx.Execute:
		details.State = schema.AccountStateApplied
	default:
		details.State = schema.AccountStatePlanned
	}

	e.logger.Debug("account reconciled",
		"run_id", execCtx.RunID,
		"account", acct.ID,
		"state", details.State,
		"changes", len(details.ProposedChanges))

	return details
}

// deleteResource plans or performs removal of the live resource.
func (e *Engine) deleteResource(ctx context.Context, execCtx provider.ExecutionContext, adapter provider.Adapter, template *schema.Template, acct account.Account, live *schema.ResourceState, details *schema.AccountChangeDetails) {
	if live == nil {
		// Nothing exists, nothing to remove.
		return
	}

	change := schema.ProposedChange{
		ChangeType:   schema.ChangeTypeDelete,
		ResourceType: template.Kind,
		ResourceID:   template.ResourceID,
		Diff:         &schema.Diff{Current: live},
	}

	if execCtx.Execute {
		err := e.limiter.Write(ctx, func() error {
			applied, deleteErr := adapter.Delete(ctx, execCtx, acct, live)
			if deleteErr == nil {
				change = applied
			}
			return deleteErr
		})
		// A resource that vanished between fetch and delete is
		// already in the desired state.
		if err != nil && !provider.IsNotFound(err) {
			change.RecordException(fmt.Errorf("deleting: %w", err))
		}
	}

	details.Record(change)
}

// createResource plans or performs creation, then brings up the
// sub-attributes. A plan stops after the create record: attribute
// appliers cannot diff against a resource that does not exist yet.
func (e *Engine) createResource(ctx context.Context, execCtx provider.ExecutionContext, adapter provider.Adapter, template *schema.Template, acct account.Account, details *schema.AccountChangeDetails) {
	change := schema.ProposedChange{
		ChangeType:   schema.ChangeTypeCreate,
		ResourceType: template.Kind,
		ResourceID:   template.ResourceID,
	}

	desired, err := render.Desired(template, acct)
	if err != nil {
		change.RecordException(err)
		details.Record(change)
		return
	}
	change.Diff = &schema.Diff{Proposed: desired}

	if !execCtx.Execute {
		details.Record(change)
		return
	}

	err = e.limiter.Write(ctx, func() error {
		applied, createErr := adapter.Create(ctx, execCtx, acct, desired)
		if createErr == nil {
			change = applied
		}
		return createErr
	})
	if err != nil {
		change.RecordException(fmt.Errorf("creating: %w", err))
		details.Record(change)
		return
	}
	details.Record(change)

	// The resource now exists. Appliers see a nil live side and treat
	// every desired item as an addition.
	e.applyAttributes(ctx, execCtx, adapter, acct, nil, desired, details)
}

// updateResource diffs live against desired attribute by attribute.
func (e *Engine) updateResource(ctx context.Context, execCtx provider.ExecutionContext, adapter provider.Adapter, template *schema.Template, acct account.Account, live *schema.ResourceState, details *schema.AccountChangeDetails) {
	desired, err := render.Desired(template, acct)
	if err != nil {
		details.RecordError(err)
		return
	}
	e.applyAttributes(ctx, execCtx, adapter, acct, live, desired, details)
}

// applyAttributes runs the adapter's appliers in declared order. Later
// appliers may depend on earlier ones having run, so the loop stops on
// the first applier error.
func (e *Engine) applyAttributes(ctx context.Context, execCtx provider.ExecutionContext, adapter provider.Adapter, acct account.Account, live, desired *schema.ResourceState, details *schema.AccountChangeDetails) {
	for _, applier := range adapter.Appliers() {
		var changes []schema.ProposedChange
		var err error
		if execCtx.Execute {
			err = e.limiter.Write(ctx, func() error {
				var applyErr error
				changes, applyErr = applier.Apply(ctx, execCtx, acct, live, desired)
				return applyErr
			})
		} else {
			// Planning only diffs the two snapshots; no provider
			// call, no write slot.
			changes, err = applier.Apply(ctx, execCtx, acct, live, desired)
		}
		for _, change := range changes {
			details.Record(change)
		}
		if err != nil {
			details.RecordError(fmt.Errorf("applying %s: %w", applier.Attribute(), err))
			return
		}
	}
}
