// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the provider-agnostic data model exchanged
// between the governance engine's components: scoped template trees,
// per-account resource snapshots, and the change records produced by
// reconciliation.
//
// Key types:
//
//   - [Scope], [Expiry] -- the account/org targeting and lifetime
//     blocks embedded in every template element
//   - [Template], [Properties] -- the canonical declaration of one
//     governed resource across many accounts
//   - [ResourceState] -- a snapshot of one resource in one account,
//     used for both live (provider-fetched) and desired (rendered)
//     sides of a diff
//   - [ProposedChange], [AccountChangeDetails],
//     [TemplateChangeDetails] -- reconciliation output, aggregated
//     account-first then template-wide
//
// Structs carry JSON tags for interchange with document tooling and
// CBOR keyasint tags for canonical hashing and audit-log snapshots.
// Embedded Scope uses CBOR keys 1-4 and embedded Expiry keys 5-6, so
// structs embedding both start their own fields at key 7.
//
// This package depends on no other Warden packages.
package schema
