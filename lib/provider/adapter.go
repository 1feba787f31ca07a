// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"

	"github.com/wardenhq/warden/lib/account"
	"github.com/wardenhq/warden/lib/schema"
)

// Adapter is the per-resource-kind provider contract the engine
// drives. One adapter serves one template kind ("role", "group", ...)
// against one provider.
//
// Adapters are called concurrently for different accounts and must be
// safe for concurrent use. They classify failures into this package's
// error taxonomy; anything else is treated as transient by Retry.
type Adapter interface {
	// Kind returns the template kind this adapter serves.
	Kind() string

	// FetchLive returns the live state of the resource in the account,
	// or (nil, nil) when the resource does not exist there. Called in
	// every run mode, including plans.
	FetchLive(ctx context.Context, execCtx ExecutionContext, acct account.Account, resourceID string) (*schema.ResourceState, error)

	// Create creates the resource in the account and returns the
	// resulting change record. Only called when execCtx.Execute is
	// true; plans synthesize the CREATE record without touching the
	// provider.
	Create(ctx context.Context, execCtx ExecutionContext, acct account.Account, desired *schema.ResourceState) (schema.ProposedChange, error)

	// Delete removes the resource from the account and returns the
	// resulting change record. Only called when execCtx.Execute is
	// true. A NotFoundError from the provider is not a failure: the
	// resource is already gone.
	Delete(ctx context.Context, execCtx ExecutionContext, acct account.Account, live *schema.ResourceState) (schema.ProposedChange, error)

	// Appliers returns the sub-attribute appliers in apply order. The
	// engine runs them sequentially per account, so an applier may rely
	// on its predecessors having finished.
	Appliers() []AttributeApplier
}

// AttributeApplier diffs and applies one sub-attribute of a resource:
// tags, attached policies, inline policies, group memberships.
type AttributeApplier interface {
	// Attribute names the sub-attribute ("tags"). It appears on every
	// change the applier emits.
	Attribute() string

	// Apply diffs live against desired and returns one change per
	// drifted item. When execCtx.Execute is true, it also performs the
	// provider mutation for each change, recording per-item failures
	// on the change's ExceptionsSeen rather than failing the whole
	// attribute. A converged attribute returns no changes. The live
	// state may be nil when the resource was created moments ago in
	// this same run.
	Apply(ctx context.Context, execCtx ExecutionContext, acct account.Account, live, desired *schema.ResourceState) ([]schema.ProposedChange, error)
}
