// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// Expiry gives a template element a bounded lifetime. Elements are
// created non-expired; the expiry scanner later marks the root deleted
// or removes nested elements once ExpiresAt passes.
type Expiry struct {
	// ExpiresAt is the moment the element stops being desired state.
	// Operators may write a relative phrase ("tomorrow", "in 3 days");
	// the scanner resolves it to an absolute RFC 3339 UTC timestamp on
	// first contact and the resolved form is what gets persisted. Empty
	// means the element never expires.
	ExpiresAt string `json:"expires_at,omitempty" cbor:"5,keyasint,omitempty"`

	// Deleted marks the element as pending removal. A deleted root
	// template drives explicit deletion on every in-scope account; the
	// file itself is only removed by the reconciler once every account
	// has been cleaned up.
	Deleted bool `json:"deleted,omitempty" cbor:"6,keyasint,omitempty"`
}
