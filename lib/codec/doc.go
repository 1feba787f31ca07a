// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Warden's standard CBOR encoding configuration.
//
// Warden uses two serialization formats with a clear boundary:
//
//   - JSON for interchange with document tooling: template documents,
//     policy documents, and human-facing change output.
//   - CBOR for internal byte-identity: content hashing of attribute
//     values during grouping and merging, and diff snapshots stored in
//     the run log.
//
// This package provides the shared CBOR encoding and decoding modes so
// that every Warden package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes, which is what makes content-hash equality judgments sound.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// # Struct Tag Rules
//
// Schema types carry both `json` tags (document interchange) and
// `cbor` keyasint tags (compact deterministic encoding). The integer
// keys are part of each type's contract: they never change once
// assigned, so hashes and stored snapshots stay comparable across
// versions. Document-shaped values (map[string]any trees from policy
// documents) need no tags; the decoder materializes any-typed values
// as map[string]any.
package codec
