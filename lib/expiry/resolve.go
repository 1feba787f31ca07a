// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package expiry resolves expiration phrases and scans template trees
// for elements whose time has passed.
//
// Operators write expires_at as an absolute timestamp or a relative
// phrase ("tomorrow", "in 3 days"). Relative phrases are resolved
// exactly once, against the moment of first contact, and the resolved
// RFC 3339 UTC form is what gets persisted; nothing else in the engine
// ever sees a relative phrase. [Scan] walks a template depth-first and
// applies the expiry lifecycle: expired nested elements are removed
// from their parent sequence, an expired root marks the template
// deleted so the reconciler can clean up live state before the file is
// removed.
package expiry

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// relativePattern matches "in N hours/days/weeks/months" phrases.
var relativePattern = regexp.MustCompile(`^in\s+(\d+)\s+(hour|day|week|month)s?$`)

// Absolute layouts accepted in expires_at fields, tried in order.
var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

// ResolveDate resolves an expires_at phrase to an absolute UTC time.
// Accepted forms:
//
//   - RFC 3339 ("2026-09-01T00:00:00Z")
//   - "2006-01-02 15:04" and "2006-01-02" (midnight UTC)
//   - "tomorrow", "next week"
//   - "in N hours", "in N days", "in N weeks", "in N months"
//
// Phrases are case-insensitive. Relative phrases resolve against now.
// Anything else is an error naming the phrase.
func ResolveDate(phrase string, now time.Time) (time.Time, error) {
	trimmed := strings.TrimSpace(phrase)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("expiry: empty expiration phrase")
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UTC(), nil
		}
	}

	lower := strings.ToLower(trimmed)
	switch lower {
	case "tomorrow":
		return now.UTC().AddDate(0, 0, 1), nil
	case "next week":
		return now.UTC().AddDate(0, 0, 7), nil
	}

	if m := relativePattern.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("expiry: bad count in %q: %w", phrase, err)
		}
		base := now.UTC()
		switch m[2] {
		case "hour":
			return base.Add(time.Duration(n) * time.Hour), nil
		case "day":
			return base.AddDate(0, 0, n), nil
		case "week":
			return base.AddDate(0, 0, 7*n), nil
		case "month":
			return base.AddDate(0, n, 0), nil
		}
	}

	return time.Time{}, fmt.Errorf("expiry: unrecognized expiration phrase %q", phrase)
}

// IsAbsolute reports whether the phrase is already in a persisted
// absolute form (one of the accepted absolute layouts).
func IsAbsolute(phrase string) bool {
	trimmed := strings.TrimSpace(phrase)
	for _, layout := range absoluteLayouts {
		if _, err := time.Parse(layout, trimmed); err == nil {
			return true
		}
	}
	return false
}
