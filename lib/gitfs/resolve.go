// Copyright 2026 The gitfs Authors
// SPDX-License-Identifier: Apache-2.0

package gitfs

import (
	"errors"
	"fmt"
	"time"

	"github.com/refmount/gitfs/lib/gitobj"
)

// CommitRef is a resolved mount target: one commit and its root
// tree, fixed at mount time. The repository's refs may move
// afterwards; the mount never follows them.
type CommitRef struct {
	// Commit is the mounted commit.
	Commit gitobj.Hash

	// RootTree is the commit's root tree, the top of the exposed
	// hierarchy.
	RootTree gitobj.Hash

	// When is the committer timestamp, reported as the modification
	// time of every node in the mount.
	When time.Time
}

// ResolveCommit resolves a reference string to the commit it names.
// The string is first tried as a reference name on the store's
// search path; if no reference matches and the string is a
// well-formed full hex hash, it is used as a literal object hash.
// Annotated tags peel to their target commit. A hash that names a
// tree or blob fails with gitobj.ErrNotCommit.
func ResolveCommit(store gitobj.Store, reference string) (CommitRef, error) {
	hash, err := store.ResolveRef(reference)
	if err != nil {
		if !errors.Is(err, gitobj.ErrNotExist) {
			return CommitRef{}, fmt.Errorf("resolving %q: %w", reference, err)
		}
		literal, parseErr := gitobj.ParseHash(reference)
		if parseErr != nil {
			// Not a ref and not a hash; report the ref miss.
			return CommitRef{}, fmt.Errorf("resolving %q: %w", reference, err)
		}
		hash = literal
	}

	commit, err := store.Commit(hash)
	if err != nil {
		return CommitRef{}, fmt.Errorf("resolving %q: %w", reference, err)
	}
	return CommitRef{
		Commit:   commit.Hash,
		RootTree: commit.TreeHash,
		When:     commit.When,
	}, nil
}
