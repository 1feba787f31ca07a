// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package policydoc normalizes provider policy documents before they
// enter the engine.
//
// Operators author policy JSON with // line comments, /* block
// comments */, and trailing commas; providers return the same
// documents as strict JSON with arbitrary key order and sometimes
// URL-encoded. Normalization reduces every variant to a plain
// map[string]any tree so that content hashing, templatization, and
// diffing all see the same value for the same policy.
package policydoc

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/wardenhq/warden/lib/contenthash"
)

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals the result into a map tree. The top level of a policy
// document is always a JSON object.
func Parse(data []byte) (map[string]any, error) {
	stripped := jsonc.ToJSON(data)

	var doc map[string]any
	if err := json.Unmarshal(stripped, &doc); err != nil {
		return nil, fmt.Errorf("policydoc: parsing document: %w", err)
	}
	return doc, nil
}

// ParseString is Parse for documents handed over as strings. Some
// provider APIs return policy documents URL-encoded inside JSON string
// fields; a leading "%7B" (an encoded "{") triggers a decode pass
// first.
func ParseString(s string) (map[string]any, error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "%7B") || strings.HasPrefix(trimmed, "%7b") {
		decoded, err := url.QueryUnescape(trimmed)
		if err != nil {
			return nil, fmt.Errorf("policydoc: decoding url-encoded document: %w", err)
		}
		trimmed = decoded
	}
	return Parse([]byte(trimmed))
}

// Digest returns the content digest of a normalized document. Two
// documents with the same logical content hash equal regardless of
// key order, comments, or encoding accidents.
func Digest(doc map[string]any) (contenthash.Digest, error) {
	return contenthash.Sum(doc)
}

// Equal reports whether two normalized documents have identical
// content.
func Equal(a, b map[string]any) (bool, error) {
	da, err := Digest(a)
	if err != nil {
		return false, err
	}
	db, err := Digest(b)
	if err != nil {
		return false, err
	}
	return da == db, nil
}
