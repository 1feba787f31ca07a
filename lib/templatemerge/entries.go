// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package templatemerge

import (
	"github.com/wardenhq/warden/lib/schema"
	"github.com/wardenhq/warden/lib/scope"
)

// fieldSpec describes how one Properties sequence merges: how entries
// are identified, where their scope and expiry live, and how
// substantive content moves from a generated entry into a merged one.
type fieldSpec[E any] struct {
	// name appears in log messages ("inline_policies").
	name string

	// identity returns a discriminating key for the entry, or "" when
	// the entry kind has none (scalar values) or this entry doesn't
	// carry one. Tags key on Key, attachments on PolicyID, inline
	// policies on Name, access rules on ResourceID.
	identity func(*E) string

	// scope and expiry expose the entry's embedded Scope and Expiry.
	scope  func(*E) *schema.Scope
	expiry func(*E) *schema.Expiry

	// adoptContent copies substantive content from src into dst,
	// leaving dst's scope and expiry alone.
	adoptContent func(dst, src *E)

	// clone deep-copies an entry.
	clone func(E) E
}

// mergeEntries merges one Properties sequence. Matching runs in three
// passes:
//
//  1. Identity: entries whose identity key is non-empty and unique on
//     both sides pair up, regardless of scope or position.
//  2. Position: remaining entries pair when their scope keys are
//     equal, first-with-first in document order. Sorting by scope key
//     means reordering entries inside a document never desynchronizes
//     a merge.
//  3. Coverage: each remaining generated entry is parented to the
//     first unpaired existing entry whose effective accounts overlap
//     its own. An existing entry with several children forks; one with
//     none keeps its content and gains exclusions for every account no
//     generated entry reports.
//
// A generated entry with no parent at all is brand-new: appended after
// the merged entries with no inherited expiry.
func mergeEntries[E any](m *Merger, spec fieldSpec[E], generated, existing []E) []E {
	if len(existing) == 0 {
		if len(generated) == 0 {
			return nil
		}
		out := make([]E, 0, len(generated))
		for _, e := range generated {
			out = append(out, spec.clone(e))
		}
		return out
	}

	// Accounts covered by any generated entry. An account an existing
	// entry covers that appears nowhere here has lost the attribute
	// and must end up explicitly excluded.
	covered := make(map[string]bool)
	generatedEff := make([][]string, len(generated))
	for j := range generated {
		ids := scope.EffectiveAccounts(*spec.scope(&generated[j]), m.accounts)
		generatedEff[j] = ids
		for _, id := range ids {
			covered[id] = true
		}
	}
	existingEff := make([][]string, len(existing))
	for i := range existing {
		existingEff[i] = scope.EffectiveAccounts(*spec.scope(&existing[i]), m.accounts)
	}

	// pairOf maps existing index to generated index from passes 1-2;
	// parentOf maps generated index to existing index from any pass.
	// -1 means unmatched.
	pairOf := make([]int, len(existing))
	parentOf := make([]int, len(generated))
	for i := range pairOf {
		pairOf[i] = -1
	}
	for j := range parentOf {
		parentOf[j] = -1
	}

	// Pass 1: identity.
	if spec.identity != nil {
		existingByKey := make(map[string][]int)
		generatedByKey := make(map[string][]int)
		for i := range existing {
			if key := spec.identity(&existing[i]); key != "" {
				existingByKey[key] = append(existingByKey[key], i)
			}
		}
		for j := range generated {
			if key := spec.identity(&generated[j]); key != "" {
				generatedByKey[key] = append(generatedByKey[key], j)
			}
		}
		for key, exIdx := range existingByKey {
			genIdx := generatedByKey[key]
			if len(exIdx) == 1 && len(genIdx) == 1 {
				pairOf[exIdx[0]] = genIdx[0]
				parentOf[genIdx[0]] = exIdx[0]
			}
		}
	}

	// Pass 2: position, within equal scope keys.
	for i := range existing {
		if pairOf[i] >= 0 {
			continue
		}
		key := spec.scope(&existing[i]).Key()
		for j := range generated {
			if parentOf[j] >= 0 {
				continue
			}
			if spec.scope(&generated[j]).Key() != key {
				continue
			}
			pairOf[i] = j
			parentOf[j] = i
			break
		}
	}

	// Pass 3: coverage overlap.
	children := make([][]int, len(existing))
	for j := range generated {
		if parentOf[j] >= 0 {
			continue
		}
		effSet := toSet(generatedEff[j])
		var candidates []int
		for i := range existing {
			if pairOf[i] >= 0 {
				continue
			}
			if overlaps(existingEff[i], effSet) {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		if len(candidates) > 1 {
			m.logger.Warn("ambiguous merge parent; keeping the first existing entry in list order",
				"field", spec.name,
				"generated_index", j,
				"candidate_indexes", candidates)
		}
		parent := candidates[0]
		parentOf[j] = parent
		children[parent] = append(children[parent], j)
	}

	out := make([]E, 0, len(existing)+len(generated))
	for i := range existing {
		switch {
		case pairOf[i] >= 0:
			j := pairOf[i]
			out = append(out, mergePair(m, spec, existing[i], generated[j], existingEff[i], generatedEff[j], covered))
		case len(children[i]) == 1:
			j := children[i][0]
			out = append(out, mergePair(m, spec, existing[i], generated[j], existingEff[i], generatedEff[j], covered))
		case len(children[i]) > 1:
			out = append(out, fork(m, spec, existing[i], generated, children[i], existingEff[i], generatedEff)...)
		default:
			out = append(out, keepExisting(m, spec, existing[i], existingEff[i], covered))
		}
	}
	for j := range generated {
		if parentOf[j] < 0 {
			out = append(out, spec.clone(generated[j]))
		}
	}
	return out
}

// mergePair merges one generated entry into the existing entry that
// matched it. Scope and expiry stay with existing; content comes from
// generated. Accounts existing covered that no generated entry in the
// field covers any more become explicit exclusions.
func mergePair[E any](m *Merger, spec fieldSpec[E], existing, generated E, existingEff, generatedEff []string, covered map[string]bool) E {
	out := spec.clone(existing)
	spec.adoptContent(&out, &generated)
	mergeExpiry(spec.expiry(&out), *spec.expiry(&generated))

	sc := spec.scope(&out)
	for _, id := range existingEff {
		if !covered[id] {
			sc.AddExcludedAccount(m.label(id))
		}
	}
	m.widenScope(sc, generatedEff)
	return out
}

// keepExisting keeps an existing entry no generated entry matched,
// adding exclusions for every account of its that the generated side
// no longer covers at all.
func keepExisting[E any](m *Merger, spec fieldSpec[E], existing E, existingEff []string, covered map[string]bool) E {
	out := spec.clone(existing)
	sc := spec.scope(&out)
	for _, id := range existingEff {
		if !covered[id] {
			sc.AddExcludedAccount(m.label(id))
		}
	}
	return out
}

// fork splits one existing entry into one merged entry per generated
// child, because the existing entry's accounts produced distinct
// content. Every child inherits the existing entry's expiry. The child
// covering a strict majority of the existing entry's accounts keeps
// the existing scope patterns with the remainder excluded; the other
// children are scoped to exactly the subset that produced their
// content.
func fork[E any](m *Merger, spec fieldSpec[E], existing E, generated []E, childIdx []int, existingEff []string, generatedEff [][]string) []E {
	inherit := -1
	for _, j := range childIdx {
		n := 0
		childSet := toSet(generatedEff[j])
		for _, id := range existingEff {
			if childSet[id] {
				n++
			}
		}
		if n*2 > len(existingEff) {
			inherit = j
			break
		}
	}

	out := make([]E, 0, len(childIdx))
	for _, j := range childIdx {
		child := spec.clone(existing)
		spec.adoptContent(&child, &generated[j])
		mergeExpiry(spec.expiry(&child), *spec.expiry(&generated[j]))

		sc := spec.scope(&child)
		if j == inherit {
			childSet := toSet(generatedEff[j])
			for _, id := range existingEff {
				if !childSet[id] {
					sc.AddExcludedAccount(m.label(id))
				}
			}
			m.widenScope(sc, generatedEff[j])
		} else {
			*sc = spec.scope(&generated[j]).Clone()
			if inherit == -1 && j == childIdx[0] {
				// No child inherits the existing patterns, so the
				// vanished accounts' exclusions land here: every
				// existing account no child claims.
				claimed := make(map[string]bool)
				for _, k := range childIdx {
					for _, id := range generatedEff[k] {
						claimed[id] = true
					}
				}
				for _, id := range existingEff {
					if !claimed[id] {
						sc.AddExcludedAccount(m.label(id))
					}
				}
			}
		}
		out = append(out, child)
	}
	return out
}

// mergeExpiry folds a generated entry's expiry into the merged
// entry's. The existing side wins: generated can add an expiry or a
// deletion but never clear one.
func mergeExpiry(dst *schema.Expiry, generated schema.Expiry) {
	if dst.ExpiresAt == "" {
		dst.ExpiresAt = generated.ExpiresAt
	}
	if generated.Deleted {
		dst.Deleted = true
	}
}

func toSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func overlaps(ids []string, set map[string]bool) bool {
	for _, id := range ids {
		if set[id] {
			return true
		}
	}
	return false
}
