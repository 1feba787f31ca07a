// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package account defines the accounts the engine governs resources
// in. The account list is loaded from configuration before a run
// starts and is immutable for the run's duration; it is shared
// read-only across concurrent reconciliation tasks.
package account

import (
	"fmt"
	"strings"
)

// Account is one cloud or identity-provider tenant.
type Account struct {
	// ID is the provider-assigned stable id ("123456789012"). Matching
	// against ids is case-sensitive.
	ID string `json:"id" yaml:"id"`

	// Name is the human name ("prod-payments"). Matching against names
	// is case-insensitive.
	Name string `json:"name" yaml:"name"`

	// OrgID is the parent organization's id, empty for standalone
	// accounts.
	OrgID string `json:"org_id,omitempty" yaml:"org_id,omitempty"`

	// Variables are free-form values usable in templatization, keyed
	// by variable name ("environment" -> "prod").
	Variables map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`

	// ImportOnly prevents the reconciler from mutating this account.
	// Drift is still detected and reported.
	ImportOnly bool `json:"import_only,omitempty" yaml:"import_only,omitempty"`
}

// Set is an immutable collection of accounts with id and name lookup.
type Set struct {
	accounts []Account
	byID     map[string]int
	byName   map[string]int
}

// NewSet builds a Set. Account ids must be unique; names must be
// unique case-insensitively (lookups by name would otherwise be
// ambiguous).
func NewSet(accounts []Account) (*Set, error) {
	s := &Set{
		accounts: make([]Account, len(accounts)),
		byID:     make(map[string]int, len(accounts)),
		byName:   make(map[string]int, len(accounts)),
	}
	copy(s.accounts, accounts)
	for i, a := range s.accounts {
		if a.ID == "" {
			return nil, fmt.Errorf("account: account %q has no id", a.Name)
		}
		if _, ok := s.byID[a.ID]; ok {
			return nil, fmt.Errorf("account: duplicate account id %q", a.ID)
		}
		s.byID[a.ID] = i
		if a.Name != "" {
			key := strings.ToLower(a.Name)
			if _, ok := s.byName[key]; ok {
				return nil, fmt.Errorf("account: duplicate account name %q", a.Name)
			}
			s.byName[key] = i
		}
	}
	return s, nil
}

// All returns the accounts in their configured order. Callers must not
// mutate the returned slice.
func (s *Set) All() []Account {
	return s.accounts
}

// Len returns the number of accounts.
func (s *Set) Len() int {
	return len(s.accounts)
}

// ByID looks up an account by id (case-sensitive).
func (s *Set) ByID(id string) (Account, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Account{}, false
	}
	return s.accounts[i], true
}

// ByName looks up an account by name (case-insensitive).
func (s *Set) ByName(name string) (Account, bool) {
	i, ok := s.byName[strings.ToLower(name)]
	if !ok {
		return Account{}, false
	}
	return s.accounts[i], true
}

// IDs returns every account id in configured order.
func (s *Set) IDs() []string {
	out := make([]string, len(s.accounts))
	for i, a := range s.accounts {
		out[i] = a.ID
	}
	return out
}

// InOrg returns the accounts whose OrgID equals orgID, in configured
// order.
func (s *Set) InOrg(orgID string) []Account {
	var out []Account
	for _, a := range s.accounts {
		if a.OrgID == orgID {
			out = append(out, a)
		}
	}
	return out
}
