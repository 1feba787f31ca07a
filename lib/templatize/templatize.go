// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package templatize converts between account-specific literal values
// and placeholder tokens, so one template can serve many accounts.
//
// Templatization replaces every literal occurrence of an account's id,
// its name, and each declared variable value with a token:
//
//	${account_id}    the account's id
//	${account_name}  the account's name
//	${var.<key>}     the account variable <key>
//
// Longest literals are substituted first so a value that contains
// another value as a substring ("prod-payments" vs "prod") can never
// shred the longer match. Expansion is the exact inverse and fails on
// tokens the account cannot resolve.
//
// The grouper templatizes observed values to recognize "same template,
// different account" content; the renderer expands template values
// into concrete per-account desired state.
package templatize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/wardenhq/warden/lib/account"
)

// tokenPattern matches placeholder tokens. Only the braced form is
// recognized; a bare $name is treated as literal text. Token names are
// lowercase with optional dotted segments ("var.environment").
var tokenPattern = regexp.MustCompile(`\$\{[a-z_][a-z0-9_]*(?:\.[a-zA-Z0-9_-]+)*\}`)

// Token names for the account's intrinsic values.
const (
	tokenAccountID   = "${account_id}"
	tokenAccountName = "${account_name}"
	variablePrefix   = "var."
)

// VariableToken returns the placeholder token for an account variable.
func VariableToken(key string) string {
	return "${" + variablePrefix + key + "}"
}

// substitution pairs one literal value with its token.
type substitution struct {
	literal string
	token   string
}

// substitutions returns the account's literal→token pairs ordered
// longest literal first, ties broken lexically so the order is
// deterministic. Empty literals are dropped: they would match
// everywhere and mean nothing.
func substitutions(acct account.Account) []substitution {
	subs := make([]substitution, 0, len(acct.Variables)+2)
	if acct.ID != "" {
		subs = append(subs, substitution{acct.ID, tokenAccountID})
	}
	if acct.Name != "" {
		subs = append(subs, substitution{acct.Name, tokenAccountName})
	}
	for key, value := range acct.Variables {
		if value == "" {
			continue
		}
		subs = append(subs, substitution{value, VariableToken(key)})
	}
	sort.Slice(subs, func(i, j int) bool {
		if len(subs[i].literal) != len(subs[j].literal) {
			return len(subs[i].literal) > len(subs[j].literal)
		}
		return subs[i].literal < subs[j].literal
	})
	return subs
}

// TemplatizeString replaces account-specific literals in s with
// placeholder tokens. Text already inside a token is never rewritten,
// so an account name that happens to be a substring of a token
// ("account", say) cannot corrupt earlier substitutions.
func TemplatizeString(s string, acct account.Account) string {
	for _, sub := range substitutions(acct) {
		s = replaceOutsideTokens(s, sub.literal, sub.token)
	}
	return s
}

// Templatize returns a copy of a document-shaped value (strings,
// []any, map trees) with account-specific literals replaced by
// placeholder tokens. Map keys are templatized too: policy slot names
// and tag keys routinely embed account ids. The input is never
// mutated. Non-string scalars pass through unchanged.
func Templatize(value any, acct account.Account) any {
	switch tv := value.(type) {
	case string:
		return TemplatizeString(tv, acct)
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = Templatize(item, acct)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(tv))
		for key, item := range tv {
			out[TemplatizeString(key, acct)] = Templatize(item, acct)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(tv))
		for key, item := range tv {
			out[TemplatizeString(key, acct)] = TemplatizeString(item, acct)
		}
		return out
	default:
		return value
	}
}

// ExpandString replaces placeholder tokens in s with the account's
// literal values. Returns an error listing every token the account
// cannot resolve — rendering must fail fast rather than push a bare
// token to a provider.
func ExpandString(s string, acct account.Account) (string, error) {
	var unresolved []string

	result := tokenPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		switch {
		case match == tokenAccountID:
			return acct.ID
		case match == tokenAccountName:
			return acct.Name
		case strings.HasPrefix(name, variablePrefix):
			key := name[len(variablePrefix):]
			if value, ok := acct.Variables[key]; ok {
				return value
			}
		}
		unresolved = append(unresolved, match)
		return match
	})

	if len(unresolved) > 0 {
		return "", fmt.Errorf("templatize: account %s cannot resolve %s",
			acct.ID, strings.Join(unresolved, ", "))
	}
	return result, nil
}

// Expand returns a copy of a document-shaped value with every
// placeholder token replaced by the account's literal value. The
// inverse of Templatize. The input is never mutated.
func Expand(value any, acct account.Account) (any, error) {
	switch tv := value.(type) {
	case string:
		return ExpandString(tv, acct)
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			expanded, err := Expand(item, acct)
			if err != nil {
				return nil, err
			}
			out[i] = expanded
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(tv))
		for key, item := range tv {
			expandedKey, err := ExpandString(key, acct)
			if err != nil {
				return nil, err
			}
			expanded, err := Expand(item, acct)
			if err != nil {
				return nil, err
			}
			out[expandedKey] = expanded
		}
		return out, nil
	case map[string]string:
		out := make(map[string]string, len(tv))
		for key, item := range tv {
			expandedKey, err := ExpandString(key, acct)
			if err != nil {
				return nil, err
			}
			expandedValue, err := ExpandString(item, acct)
			if err != nil {
				return nil, err
			}
			out[expandedKey] = expandedValue
		}
		return out, nil
	default:
		return value, nil
	}
}

// replaceOutsideTokens replaces literal with token in s, skipping any
// span already occupied by a placeholder token.
func replaceOutsideTokens(s, literal, token string) string {
	if literal == "" || !strings.Contains(s, literal) {
		return s
	}

	spans := tokenPattern.FindAllStringIndex(s, -1)
	if len(spans) == 0 {
		return strings.ReplaceAll(s, literal, token)
	}

	var out strings.Builder
	prev := 0
	for _, span := range spans {
		out.WriteString(strings.ReplaceAll(s[prev:span[0]], literal, token))
		out.WriteString(s[span[0]:span[1]])
		prev = span[1]
	}
	out.WriteString(strings.ReplaceAll(s[prev:], literal, token))
	return out.String()
}
