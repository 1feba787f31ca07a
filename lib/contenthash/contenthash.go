// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package contenthash computes stable identity digests for attribute
// values. Grouping and merging judge value equality on these digests,
// never on Go identity or reflective comparison: two values are the
// same attribute content exactly when their canonical encodings hash
// equal. Canonical CBOR (lib/codec) removes representational accidents
// like map key order before hashing.
package contenthash

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/wardenhq/warden/lib/codec"
)

// Digest is a 32-byte BLAKE3 digest of a value's canonical encoding.
type Digest [32]byte

// Sum computes the digest of v's canonical CBOR encoding. Values that
// are logically equal (same maps, same slices, same scalars) produce
// the same digest regardless of how they were built.
func Sum(v any) (Digest, error) {
	data, err := codec.Marshal(v)
	if err != nil {
		return Digest{}, fmt.Errorf("contenthash: encoding value: %w", err)
	}
	return Digest(blake3.Sum256(data)), nil
}

// SumBytes computes the digest of already-serialized content. Used for
// revision blobs where the bytes themselves are the identity.
func SumBytes(data []byte) Digest {
	return Digest(blake3.Sum256(data))
}

// String returns the hex encoding of the digest. This is the canonical
// format used in group keys, log output, and the run log.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// ParseDigest parses a hex-encoded digest string into a Digest.
// Returns an error if the string is not a valid 64-character hex
// encoding of 32 bytes.
func ParseDigest(hexString string) (Digest, error) {
	var digest Digest
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return digest, fmt.Errorf("contenthash: parsing digest: %w", err)
	}
	if len(decoded) != len(digest) {
		return digest, fmt.Errorf("contenthash: digest is %d bytes, want %d", len(decoded), len(digest))
	}
	copy(digest[:], decoded)
	return digest, nil
}
