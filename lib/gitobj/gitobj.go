// Copyright 2026 The gitfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package gitobj reads objects and references from a local git
// repository. It is the only package in gitfs that touches the object
// store; everything above it works in terms of the Store interface and
// the decoded Commit, Tree, and Blob values defined here.
//
// The object graph is content-addressed and immutable, so every value
// returned by a Store is valid for the lifetime of the process and may
// be cached freely by callers.
package gitobj

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
)

// Hash is a 20-byte SHA-1 object identity.
type Hash = plumbing.Hash

// ZeroHash is the all-zero hash. No real object has this identity.
var ZeroHash = plumbing.ZeroHash

// Sentinel errors returned by Store implementations. Callers match
// with errors.Is; the concrete error carries context about which
// object or reference failed.
var (
	// ErrNotExist indicates a reference name or object hash that is
	// absent from the repository.
	ErrNotExist = errors.New("object does not exist")

	// ErrCorrupt indicates object bytes that exist but fail to
	// decode. A corrupt object never becomes readable on retry, so
	// callers should fail the affected operation and move on.
	ErrCorrupt = errors.New("object is corrupt")

	// ErrNotCommit indicates a hash that names a tree or blob where
	// a commit is required, for example as a mount target.
	ErrNotCommit = errors.New("object is not a commit")
)

// Commit is the decoded form of a commit object, reduced to the
// fields the filesystem needs.
type Commit struct {
	// Hash is the commit's own identity.
	Hash Hash

	// TreeHash is the root tree recorded by the commit.
	TreeHash Hash

	// When is the committer timestamp. Every node in the mounted
	// tree reports this as its modification time.
	When time.Time

	// Message is the full commit message.
	Message string
}

// TreeEntry is one row of a tree object: a name bound to a child
// object with a git mode word.
type TreeEntry struct {
	// Name is the entry's file name. Unique within one tree, never
	// "." or "..", never contains a slash.
	Name string

	// Mode is the raw git mode word (0o100644, 0o100755, 0o040000,
	// 0o120000, or 0o160000).
	Mode uint32

	// Hash identifies the child object.
	Hash Hash
}

// Tree is the decoded form of a tree object. Entries preserve the
// stored order; git writes them in lexicographic byte order and
// readers must not re-sort them.
type Tree struct {
	Hash    Hash
	Entries []TreeEntry
}

// Blob is the decoded form of a blob object. Data is fully
// decompressed at fetch time and must be treated as read-only.
type Blob struct {
	Hash Hash
	Size int64
	Data []byte
}

// RefInfo names one reference and the hash it points to. For
// annotated tags the hash is the tag object, not the peeled commit.
type RefInfo struct {
	// Name is the full reference name, for example "refs/heads/main".
	Name string

	// Hash is the reference's direct target.
	Hash Hash
}

// Store is the read surface of a git object store. Implementations
// must be safe for concurrent use.
type Store interface {
	// ResolveRef resolves a reference name to the hash it points
	// to. The name is tried against the standard search path: as
	// given, then under refs/, refs/tags/, refs/heads/, and
	// refs/remotes/. Annotated tags are not peeled. Fails with
	// ErrNotExist when no candidate matches.
	ResolveRef(name string) (Hash, error)

	// ListRefs returns every reference under refs/ with its target
	// hash, sorted by name. Symbolic references that cannot be
	// resolved are omitted.
	ListRefs() ([]RefInfo, error)

	// Commit returns the commit named by hash. Annotated tags are
	// peeled to the commit they ultimately target. Fails with
	// ErrNotExist for an unknown hash, ErrNotCommit when the hash
	// names a tree or blob, and ErrCorrupt for undecodable bytes.
	Commit(hash Hash) (*Commit, error)

	// Tree returns the tree named by hash with entries in stored
	// order.
	Tree(hash Hash) (*Tree, error)

	// BlobSize returns a blob's size without decoding its content.
	BlobSize(hash Hash) (int64, error)

	// Blob returns a blob with its content fully decoded.
	Blob(hash Hash) (*Blob, error)
}

// ParseHash parses a full 40-character hex object hash. Abbreviated
// forms are rejected; resolving those is reference-name territory.
func ParseHash(text string) (Hash, error) {
	if len(text) != 2*len(Hash{}) {
		return ZeroHash, fmt.Errorf("hash %q: want %d hex characters, got %d", text, 2*len(Hash{}), len(text))
	}
	raw, err := hex.DecodeString(text)
	if err != nil {
		return ZeroHash, fmt.Errorf("hash %q: %w", text, err)
	}
	var hash Hash
	copy(hash[:], raw)
	return hash, nil
}
