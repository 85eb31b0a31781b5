// Copyright 2026 The gitfs Authors
// SPDX-License-Identifier: Apache-2.0

package gitfs

import (
	"fmt"
	"sync"

	"github.com/refmount/gitfs/lib/gitobj"
)

// BlobReader serves byte-range reads over blob objects. A blob is
// decoded whole on first open; concurrent opens of the same hash
// share one immutable buffer. The buffer is reference-counted and
// dropped when the last handle closes.
type BlobReader struct {
	store gitobj.Store

	mu      sync.Mutex
	buffers map[gitobj.Hash]*blobBuffer
}

// blobBuffer is one retained decode, shared read-only across
// handles.
type blobBuffer struct {
	data []byte
	refs int
}

// NewBlobReader creates a reader over the store.
func NewBlobReader(store gitobj.Store) *BlobReader {
	return &BlobReader{
		store:   store,
		buffers: make(map[gitobj.Hash]*blobBuffer),
	}
}

// Open returns a read handle over the blob, decoding it or joining
// an already-open decode of the same hash. The caller must Close the
// handle.
func (r *BlobReader) Open(hash gitobj.Hash) (*BlobHandle, error) {
	r.mu.Lock()
	if buffer, ok := r.buffers[hash]; ok {
		buffer.refs++
		r.mu.Unlock()
		return &BlobHandle{reader: r, hash: hash, buffer: buffer}, nil
	}
	r.mu.Unlock()

	// Decode outside the lock. Two first-opens of one hash may both
	// decode; only one buffer is retained.
	blob, err := r.store.Blob(hash)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	buffer, ok := r.buffers[hash]
	if ok {
		buffer.refs++
	} else {
		buffer = &blobBuffer{data: blob.Data, refs: 1}
		r.buffers[hash] = buffer
	}
	return &BlobHandle{reader: r, hash: hash, buffer: buffer}, nil
}

func (r *BlobReader) release(hash gitobj.Hash, buffer *blobBuffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	buffer.refs--
	if buffer.refs == 0 && r.buffers[hash] == buffer {
		delete(r.buffers, hash)
	}
}

// openBuffers reports how many decode buffers are currently
// retained.
func (r *BlobReader) openBuffers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffers)
}

// BlobHandle is one open-read session over a blob.
type BlobHandle struct {
	reader *BlobReader
	hash   gitobj.Hash
	buffer *blobBuffer

	mu     sync.Mutex
	closed bool
}

// Hash returns the blob's identity.
func (h *BlobHandle) Hash() gitobj.Hash {
	return h.hash
}

// Size returns the blob's total size in bytes.
func (h *BlobHandle) Size() int64 {
	return int64(len(h.buffer.data))
}

// Read returns up to length bytes starting at offset. A read at or
// past the end returns an empty slice and no error: end-of-file is a
// short read, never a failure. Reads never return more than length
// bytes. The returned slice aliases the shared decode buffer and
// must not be modified.
func (h *BlobHandle) Read(offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, fmt.Errorf("read blob %s at offset %d length %d: %w", h.hash, offset, length, ErrInvalidArg)
	}

	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("read blob %s: handle is closed: %w", h.hash, ErrInvalidArg)
	}

	data := h.buffer.data
	if offset >= int64(len(data)) {
		return nil, nil
	}
	end := offset + length
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return data[offset:end], nil
}

// Close releases the handle's claim on the shared buffer. Close is
// idempotent.
func (h *BlobHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.reader.release(h.hash, h.buffer)
	return nil
}
