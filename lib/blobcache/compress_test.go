// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package blobcache

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestCompressionTagString(t *testing.T) {
	tests := []struct {
		tag  CompressionTag
		want string
	}{
		{CompressionNone, "none"},
		{CompressionLZ4, "lz4"},
		{CompressionZstd, "zstd"},
		{CompressionTag(99), "unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.tag.String()
			if got != tt.want {
				t.Errorf("CompressionTag(%d).String() = %q, want %q", tt.tag, got, tt.want)
			}
		})
	}
}

func TestCompressFrameNonePassesThrough(t *testing.T) {
	data := []byte("raw frames pass through unchanged")

	compressed, err := CompressFrame(data, CompressionNone)
	if err != nil {
		t.Fatalf("CompressFrame(none) failed: %v", err)
	}
	if &compressed[0] != &data[0] {
		t.Error("CompressionNone should return the same slice, not a copy")
	}

	decompressed, err := DecompressFrame(compressed, CompressionNone, len(data))
	if err != nil {
		t.Fatalf("DecompressFrame(none) failed: %v", err)
	}
	if !bytes.Equal(decompressed, data) {
		t.Error("none roundtrip changed the data")
	}
}

func TestDecompressFrameNoneSizeMismatch(t *testing.T) {
	data := []byte("five bytes extra")

	if _, err := DecompressFrame(data, CompressionNone, len(data)+5); err == nil {
		t.Error("DecompressFrame(none) should fail when size does not match")
	}
}

func TestFrameRoundtripLZ4(t *testing.T) {
	data := make([]byte, 64*1024)
	for i := range data {
		data[i] = byte(i % 17)
	}

	compressed, err := CompressFrame(data, CompressionLZ4)
	if err != nil {
		t.Fatalf("CompressFrame(lz4) failed: %v", err)
	}
	if len(compressed) >= len(data) {
		t.Errorf("LZ4 did not compress: %d bytes → %d bytes", len(data), len(compressed))
	}

	decompressed, err := DecompressFrame(compressed, CompressionLZ4, len(data))
	if err != nil {
		t.Fatalf("DecompressFrame(lz4) failed: %v", err)
	}
	if !bytes.Equal(decompressed, data) {
		t.Error("LZ4 roundtrip changed the data")
	}
}

func TestFrameRoundtripZstd(t *testing.T) {
	document := []byte(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":"sts:AssumeRole","Resource":"*"}]}`)
	data := bytes.Repeat(document, 1024)

	compressed, err := CompressFrame(data, CompressionZstd)
	if err != nil {
		t.Fatalf("CompressFrame(zstd) failed: %v", err)
	}
	if len(compressed) >= len(data) {
		t.Errorf("zstd did not compress: %d bytes → %d bytes", len(data), len(compressed))
	}

	decompressed, err := DecompressFrame(compressed, CompressionZstd, len(data))
	if err != nil {
		t.Fatalf("DecompressFrame(zstd) failed: %v", err)
	}
	if !bytes.Equal(decompressed, data) {
		t.Error("zstd roundtrip changed the data")
	}
}

func TestCompressFrameIncompressible(t *testing.T) {
	data := make([]byte, 4096)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}

	if _, err := CompressFrame(data, CompressionLZ4); err == nil {
		t.Error("CompressFrame(lz4) should fail on random data")
	}
	if _, err := CompressFrame(data, CompressionZstd); err == nil {
		t.Error("CompressFrame(zstd) should fail on random data")
	}
}

func TestCompressFrameUnknownTag(t *testing.T) {
	if _, err := CompressFrame([]byte("x"), CompressionTag(42)); err == nil {
		t.Error("CompressFrame should reject an unknown tag")
	}
	if _, err := DecompressFrame([]byte("x"), CompressionTag(42), 1); err == nil {
		t.Error("DecompressFrame should reject an unknown tag")
	}
}
