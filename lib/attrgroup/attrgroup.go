// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package attrgroup collapses per-account attribute observations into
// the minimal set of (value, included_accounts) groups reproducing
// them.
//
// Imports see one value per account per attribute (sometimes several,
// for list-shaped attributes); a governance template wants the
// opposite: one entry per distinct value, scoped to the accounts
// sharing it, with "everywhere" collapsed to the wildcard. Equality is
// judged on canonical content hashes (lib/contenthash), never on Go
// identity, and structured values are additionally compared in
// templatized form so "same policy, different account id inside the
// ARN" lands in one group.
//
// Grouping of structured values is equivalence partitioning with
// explicit mark-and-sweep consumption: every candidate entry is
// consumed by exactly one group, on its first hash match, never
// clustered all-pairs. The consumed flags make the invariant auditable
// in tests.
package attrgroup

import (
	"fmt"

	"github.com/wardenhq/warden/lib/account"
	"github.com/wardenhq/warden/lib/contenthash"
	"github.com/wardenhq/warden/lib/schema"
	"github.com/wardenhq/warden/lib/templatize"
)

// DefaultWildcardThreshold is the minimum number of accounts sharing a
// value before the group is written as ["*"] rather than an explicit
// list. Below it, an explicit list reads clearer than a wildcard.
const DefaultWildcardThreshold = 3

// Observation is one raw value observed for one attribute on one
// account. Structured values are document-shaped (map[string]any
// trees); scalar values are strings or numbers.
type Observation struct {
	// AccountID identifies the observing account.
	AccountID string

	// Value is the observed attribute value.
	Value any
}

// Group is one canonical value and the accounts sharing it.
type Group struct {
	// Value is the canonical form: the templatized form when the
	// group's members matched through templatized hashes, otherwise
	// the raw form of the group's first member.
	Value any

	// Digest is the content hash of Value.
	Digest contenthash.Digest

	// IncludedAccounts is ["*"] when the group covers every considered
	// account and meets the wildcard threshold; otherwise the explicit
	// account names (ids for accounts with no configured name), in
	// observation order.
	IncludedAccounts []string

	// AccountIDs lists the member accounts' ids in observation order,
	// regardless of the wildcard collapse. Merge math works on these.
	AccountIDs []string
}

// Config configures a Grouper.
type Config struct {
	// Accounts is the configured account list, used to translate ids
	// to names and to templatize per-account values. Required.
	Accounts *account.Set

	// WildcardThreshold overrides DefaultWildcardThreshold when
	// positive.
	WildcardThreshold int
}

// Grouper partitions attribute observations into groups.
type Grouper struct {
	accounts  *account.Set
	threshold int
}

// New builds a Grouper from config.
func New(cfg Config) (*Grouper, error) {
	if cfg.Accounts == nil {
		return nil, fmt.Errorf("attrgroup: Accounts is required")
	}
	threshold := cfg.WildcardThreshold
	if threshold <= 0 {
		threshold = DefaultWildcardThreshold
	}
	return &Grouper{accounts: cfg.Accounts, threshold: threshold}, nil
}

// GroupScalars groups plain scalar observations by raw content hash.
// Zero observations yield an empty result.
func (g *Grouper) GroupScalars(observations []Observation) ([]Group, error) {
	type scalarGroup struct {
		value      any
		digest     contenthash.Digest
		accountIDs []string
		members    map[string]bool
	}

	var order []contenthash.Digest
	index := make(map[contenthash.Digest]*scalarGroup)

	for _, obs := range observations {
		digest, err := contenthash.Sum(obs.Value)
		if err != nil {
			return nil, fmt.Errorf("attrgroup: hashing value for account %s: %w", obs.AccountID, err)
		}
		grp, ok := index[digest]
		if !ok {
			grp = &scalarGroup{
				value:   obs.Value,
				digest:  digest,
				members: make(map[string]bool),
			}
			index[digest] = grp
			order = append(order, digest)
		}
		if !grp.members[obs.AccountID] {
			grp.members[obs.AccountID] = true
			grp.accountIDs = append(grp.accountIDs, obs.AccountID)
		}
	}

	considered := consideredAccounts(observations)
	out := make([]Group, 0, len(order))
	for _, digest := range order {
		grp := index[digest]
		out = append(out, Group{
			Value:            grp.value,
			Digest:           grp.digest,
			IncludedAccounts: g.remapAccounts(grp.accountIDs, considered),
			AccountIDs:       grp.accountIDs,
		})
	}
	return out, nil
}

// candidate is one structured observation with its two comparison
// hashes.
type candidate struct {
	accountID         string
	raw               any
	templatized       any
	rawDigest         contenthash.Digest
	templatizedDigest contenthash.Digest
	consumed          bool
}

// GroupStructured groups document-shaped observations (policy
// documents, tag sets) by raw or templatized content hash. On a pair
// matching both ways the templatized form wins, so the resulting group
// value serves every member account. Zero observations yield an empty
// result.
func (g *Grouper) GroupStructured(observations []Observation) ([]Group, error) {
	candidates, err := g.buildCandidates(observations)
	if err != nil {
		return nil, err
	}

	considered := consideredAccounts(observations)
	var out []Group

	// Equivalence partitioning: each unconsumed candidate seeds one
	// group and sweeps every later account for its first match. A
	// candidate consumed by an earlier group never seeds or joins
	// another.
	for i := range candidates {
		seed := &candidates[i]
		if seed.consumed {
			continue
		}
		seed.consumed = true

		accountIDs := []string{seed.accountID}
		members := map[string]bool{seed.accountID: true}
		templatizedMatch := false

		for j := i + 1; j < len(candidates); j++ {
			other := &candidates[j]
			if other.consumed || members[other.accountID] {
				continue
			}
			switch {
			case other.templatizedDigest == seed.templatizedDigest:
				templatizedMatch = true
			case other.rawDigest == seed.rawDigest:
			default:
				continue
			}
			other.consumed = true
			members[other.accountID] = true
			accountIDs = append(accountIDs, other.accountID)
		}

		value := seed.raw
		digest := seed.rawDigest
		if templatizedMatch {
			value = seed.templatized
			digest = seed.templatizedDigest
		}
		out = append(out, Group{
			Value:            value,
			Digest:           digest,
			IncludedAccounts: g.remapAccounts(accountIDs, considered),
			AccountIDs:       accountIDs,
		})
	}
	return out, nil
}

// buildCandidates computes both comparison hashes for every
// observation, preserving observation order.
func (g *Grouper) buildCandidates(observations []Observation) ([]candidate, error) {
	candidates := make([]candidate, 0, len(observations))
	for _, obs := range observations {
		acct, ok := g.accounts.ByID(obs.AccountID)
		if !ok {
			// Unknown accounts still group, by raw content only: with
			// no id, name, or variables there is nothing to
			// templatize.
			acct = account.Account{ID: obs.AccountID}
		}

		templatized := templatize.Templatize(obs.Value, acct)
		rawDigest, err := contenthash.Sum(obs.Value)
		if err != nil {
			return nil, fmt.Errorf("attrgroup: hashing value for account %s: %w", obs.AccountID, err)
		}
		templatizedDigest, err := contenthash.Sum(templatized)
		if err != nil {
			return nil, fmt.Errorf("attrgroup: hashing templatized value for account %s: %w", obs.AccountID, err)
		}

		candidates = append(candidates, candidate{
			accountID:         obs.AccountID,
			raw:               obs.Value,
			templatized:       templatized,
			rawDigest:         rawDigest,
			templatizedDigest: templatizedDigest,
		})
	}
	return candidates, nil
}

// remapAccounts converts a member id list to the persisted
// included_accounts form: the wildcard when the group spans every
// considered account and meets the threshold, otherwise account names.
func (g *Grouper) remapAccounts(accountIDs []string, considered int) []string {
	if len(accountIDs) >= g.threshold && len(accountIDs) == considered {
		return []string{schema.Wildcard}
	}
	out := make([]string, len(accountIDs))
	for i, id := range accountIDs {
		if acct, ok := g.accounts.ByID(id); ok && acct.Name != "" {
			out[i] = acct.Name
		} else {
			out[i] = id
		}
	}
	return out
}

// consideredAccounts counts the distinct accounts present in the
// observations — the denominator for the wildcard collapse.
func consideredAccounts(observations []Observation) int {
	seen := make(map[string]bool, len(observations))
	for _, obs := range observations {
		seen[obs.AccountID] = true
	}
	return len(seen)
}
