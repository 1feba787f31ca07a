// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"errors"
	"fmt"
)

// ValidationError reports desired state the provider rejects as
// malformed: an invalid access statement, a name over the length
// limit. It is recorded on the specific ProposedChange and never
// aborts sibling work. Retrying cannot help.
type ValidationError struct {
	// Reason says what is malformed.
	Reason string

	// Err is the underlying provider error, if any.
	Err error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation: %s: %v", e.Reason, e.Err)
	}
	return "validation: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ThrottlingError reports provider rate limiting. Retry backs off and
// tries again; on exhaustion the error surfaces only on the account
// that saw it.
type ThrottlingError struct {
	// Op is the provider operation that was throttled.
	Op string

	// Err is the underlying provider error, if any.
	Err error
}

func (e *ThrottlingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("throttled: %s: %v", e.Op, e.Err)
	}
	return "throttled: " + e.Op
}

func (e *ThrottlingError) Unwrap() error { return e.Err }

// PermissionError reports a denied provider call. Never retried:
// permissions do not fix themselves mid-run.
type PermissionError struct {
	// Op is the provider operation that was denied.
	Op string

	// Err is the underlying provider error, if any.
	Err error
}

func (e *PermissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("permission denied: %s: %v", e.Op, e.Err)
	}
	return "permission denied: " + e.Op
}

func (e *PermissionError) Unwrap() error { return e.Err }

// NotFoundError reports that the target of a delete or update does not
// exist. For deletions this means nothing to do, not a failure.
type NotFoundError struct {
	// Resource identifies what was not found.
	Resource string

	// Err is the underlying provider error, if any.
	Err error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("not found: %s: %v", e.Resource, e.Err)
	}
	return "not found: " + e.Resource
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsThrottling reports whether err is or wraps a ThrottlingError.
func IsThrottling(err error) bool {
	var target *ThrottlingError
	return errors.As(err, &target)
}

// IsPermission reports whether err is or wraps a PermissionError.
func IsPermission(err error) bool {
	var target *PermissionError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// Retryable reports whether an error is worth retrying. Throttling is
// explicitly transient. Permission, validation, and not-found failures
// are permanent. Anything unclassified (connection resets, timeouts)
// is treated as transient.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if IsThrottling(err) {
		return true
	}
	return !IsPermission(err) && !IsValidation(err) && !IsNotFound(err)
}
