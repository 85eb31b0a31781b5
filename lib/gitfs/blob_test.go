// Copyright 2026 The gitfs Authors
// SPDX-License-Identifier: Apache-2.0

package gitfs

import (
	"bytes"
	"errors"
	"testing"

	"github.com/refmount/gitfs/lib/gitobj"
)

func fixtureBlob(t *testing.T) (*BlobReader, *fakeStore, gitobj.Hash) {
	t.Helper()
	store := newFakeStore()
	hash := store.addBlob("hello")
	return NewBlobReader(store), store, hash
}

func TestBlobReadFull(t *testing.T) {
	reader, _, hash := fixtureBlob(t)

	handle, err := reader.Open(hash)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer handle.Close()

	if handle.Size() != 5 {
		t.Errorf("Size = %d, want 5", handle.Size())
	}
	data, err := handle.Read(0, 5)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Read = %q, want hello", data)
	}
}

func TestBlobReadChunked(t *testing.T) {
	reader, _, hash := fixtureBlob(t)

	handle, err := reader.Open(hash)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer handle.Close()

	// One byte at a time reassembles the full content.
	var assembled bytes.Buffer
	for offset := int64(0); ; offset++ {
		chunk, err := handle.Read(offset, 1)
		if err != nil {
			t.Fatalf("Read at %d: %v", offset, err)
		}
		if len(chunk) == 0 {
			break
		}
		assembled.Write(chunk)
	}
	if assembled.String() != "hello" {
		t.Errorf("reassembled = %q, want hello", assembled.String())
	}
}

func TestBlobReadBounds(t *testing.T) {
	reader, _, hash := fixtureBlob(t)

	handle, err := reader.Open(hash)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer handle.Close()

	// Reading past the end is a short read, not an error.
	for _, offset := range []int64{5, 6, 1 << 40} {
		data, err := handle.Read(offset, 10)
		if err != nil {
			t.Errorf("Read at %d: %v", offset, err)
		}
		if len(data) != 0 {
			t.Errorf("Read at %d returned %d bytes, want 0", offset, len(data))
		}
	}

	// A request spanning the end is clamped, never padded.
	data, err := handle.Read(3, 100)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "lo" {
		t.Errorf("Read(3, 100) = %q, want lo", data)
	}

	// Never more bytes than requested.
	data, err = handle.Read(0, 2)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "he" {
		t.Errorf("Read(0, 2) = %q, want he", data)
	}

	// Zero-length requests succeed with no data.
	data, err = handle.Read(0, 0)
	if err != nil {
		t.Fatalf("Read(0, 0): %v", err)
	}
	if len(data) != 0 {
		t.Errorf("Read(0, 0) returned %d bytes", len(data))
	}
}

func TestBlobReadNegativeArgs(t *testing.T) {
	reader, _, hash := fixtureBlob(t)

	handle, err := reader.Open(hash)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer handle.Close()

	for _, tc := range []struct{ offset, length int64 }{
		{-1, 5},
		{0, -1},
		{-3, -3},
	} {
		_, err := handle.Read(tc.offset, tc.length)
		if !errors.Is(err, ErrInvalidArg) {
			t.Errorf("Read(%d, %d) = %v, want ErrInvalidArg", tc.offset, tc.length, err)
		}
	}
}

func TestBlobSharedDecode(t *testing.T) {
	reader, store, hash := fixtureBlob(t)

	first, err := reader.Open(hash)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	second, err := reader.Open(hash)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if reads := store.blobReads[hash]; reads != 1 {
		t.Errorf("blob decoded %d times, want 1", reads)
	}
	if reader.openBuffers() != 1 {
		t.Errorf("openBuffers = %d, want 1", reader.openBuffers())
	}

	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if reader.openBuffers() != 1 {
		t.Errorf("openBuffers after one close = %d, want 1", reader.openBuffers())
	}

	// The remaining handle still reads.
	data, err := second.Read(0, 5)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Read = %q, want hello", data)
	}

	if err := second.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if reader.openBuffers() != 0 {
		t.Errorf("openBuffers after last close = %d, want 0", reader.openBuffers())
	}

	// Reopening decodes again.
	third, err := reader.Open(hash)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer third.Close()
	if reads := store.blobReads[hash]; reads != 2 {
		t.Errorf("blob decoded %d times after reopen, want 2", reads)
	}
}

func TestBlobCloseIdempotent(t *testing.T) {
	reader, _, hash := fixtureBlob(t)

	handle, err := reader.Open(hash)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := handle.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := handle.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if reader.openBuffers() != 0 {
		t.Errorf("openBuffers = %d, want 0", reader.openBuffers())
	}

	_, err = handle.Read(0, 1)
	if !errors.Is(err, ErrInvalidArg) {
		t.Errorf("Read after close = %v, want ErrInvalidArg", err)
	}
}

func TestBlobOpenMissing(t *testing.T) {
	reader, _, _ := fixtureBlob(t)

	_, err := reader.Open(gitobj.Hash{0xde, 0xad})
	if !errors.Is(err, gitobj.ErrNotExist) {
		t.Errorf("Open missing = %v, want ErrNotExist", err)
	}
	if reader.openBuffers() != 0 {
		t.Errorf("openBuffers = %d, want 0", reader.openBuffers())
	}
}

func TestBlobOpenCorrupt(t *testing.T) {
	reader, store, hash := fixtureBlob(t)
	store.markCorrupt(hash)

	_, err := reader.Open(hash)
	if !errors.Is(err, gitobj.ErrCorrupt) {
		t.Errorf("Open corrupt = %v, want ErrCorrupt", err)
	}
}
