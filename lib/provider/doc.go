// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package provider defines the contract between the reconciliation
// engine and concrete cloud-provider adapters, plus the error taxonomy
// both sides speak.
//
// The engine is generic over the Adapter interface and never imports a
// vendor SDK. An adapter owns everything vendor-shaped: API clients,
// credential resolution, pagination, and mapping between vendor wire
// types and schema.ResourceState. Adapters classify their failures
// into the taxonomy here (ThrottlingError, PermissionError,
// NotFoundError, ValidationError) so the engine and the Retry helper
// can react without understanding vendor error codes.
package provider
