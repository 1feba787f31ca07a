// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package templatemerge reconciles freshly generated template content
// with the prior on-disk template.
//
// Imports regenerate a template from live provider state. The
// generated document is authoritative about content but knows nothing
// about operator intent: file paths, notes, scope patterns like
// "prod*", and time-bounded grants live only in the existing document.
// Merge combines the two, taking substantive content from the
// generated side and intent from the existing side, so repeated
// imports never destroy operator edits.
//
// The merge never lets an account silently lose coverage: an account
// an existing entry covered that no generated entry reports any more
// is added to ExcludedAccounts, so a later apply revokes access there
// explicitly instead of forgetting it.
package templatemerge
