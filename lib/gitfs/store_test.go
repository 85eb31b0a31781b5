// Copyright 2026 The gitfs Authors
// SPDX-License-Identifier: Apache-2.0

package gitfs

import (
	"fmt"
	"sort"
	"time"

	"github.com/refmount/gitfs/lib/gitobj"
)

// fakeStore is an in-memory gitobj.Store. Unlike a real repository it
// stores tree entries in whatever order a test supplies, which makes
// the "never re-sort" property observable, and it can mark single
// objects as corrupt.
type fakeStore struct {
	refs    map[string]gitobj.Hash
	commits map[gitobj.Hash]*gitobj.Commit
	trees   map[gitobj.Hash]*gitobj.Tree
	blobs   map[gitobj.Hash][]byte
	corrupt map[gitobj.Hash]bool

	counter   uint16
	blobReads map[gitobj.Hash]int
	sizeReads map[gitobj.Hash]int
}

var _ gitobj.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		refs:      make(map[string]gitobj.Hash),
		commits:   make(map[gitobj.Hash]*gitobj.Commit),
		trees:     make(map[gitobj.Hash]*gitobj.Tree),
		blobs:     make(map[gitobj.Hash][]byte),
		corrupt:   make(map[gitobj.Hash]bool),
		blobReads: make(map[gitobj.Hash]int),
		sizeReads: make(map[gitobj.Hash]int),
	}
}

func (f *fakeStore) newHash() gitobj.Hash {
	f.counter++
	return gitobj.Hash{0xfa, byte(f.counter >> 8), byte(f.counter)}
}

func (f *fakeStore) addBlob(content string) gitobj.Hash {
	hash := f.newHash()
	f.blobs[hash] = []byte(content)
	return hash
}

func (f *fakeStore) addTree(entries ...gitobj.TreeEntry) gitobj.Hash {
	hash := f.newHash()
	f.trees[hash] = &gitobj.Tree{Hash: hash, Entries: entries}
	return hash
}

func (f *fakeStore) addCommit(tree gitobj.Hash, when time.Time) gitobj.Hash {
	hash := f.newHash()
	f.commits[hash] = &gitobj.Commit{Hash: hash, TreeHash: tree, When: when}
	return hash
}

func (f *fakeStore) setRef(name string, hash gitobj.Hash) {
	f.refs[name] = hash
}

func (f *fakeStore) markCorrupt(hash gitobj.Hash) {
	f.corrupt[hash] = true
}

func (f *fakeStore) ResolveRef(name string) (gitobj.Hash, error) {
	if hash, ok := f.refs[name]; ok {
		return hash, nil
	}
	return gitobj.ZeroHash, fmt.Errorf("reference %q: %w", name, gitobj.ErrNotExist)
}

func (f *fakeStore) ListRefs() ([]gitobj.RefInfo, error) {
	var refs []gitobj.RefInfo
	for name, hash := range f.refs {
		refs = append(refs, gitobj.RefInfo{Name: name, Hash: hash})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

func (f *fakeStore) Commit(hash gitobj.Hash) (*gitobj.Commit, error) {
	if f.corrupt[hash] {
		return nil, fmt.Errorf("object %s: %w", hash, gitobj.ErrCorrupt)
	}
	if commit, ok := f.commits[hash]; ok {
		return commit, nil
	}
	if _, ok := f.trees[hash]; ok {
		return nil, fmt.Errorf("object %s is a tree: %w", hash, gitobj.ErrNotCommit)
	}
	if _, ok := f.blobs[hash]; ok {
		return nil, fmt.Errorf("object %s is a blob: %w", hash, gitobj.ErrNotCommit)
	}
	return nil, fmt.Errorf("object %s: %w", hash, gitobj.ErrNotExist)
}

func (f *fakeStore) Tree(hash gitobj.Hash) (*gitobj.Tree, error) {
	if f.corrupt[hash] {
		return nil, fmt.Errorf("object %s: %w", hash, gitobj.ErrCorrupt)
	}
	if tree, ok := f.trees[hash]; ok {
		return tree, nil
	}
	if _, ok := f.blobs[hash]; ok {
		return nil, fmt.Errorf("object %s is a blob, expected tree: %w", hash, gitobj.ErrCorrupt)
	}
	return nil, fmt.Errorf("object %s: %w", hash, gitobj.ErrNotExist)
}

func (f *fakeStore) BlobSize(hash gitobj.Hash) (int64, error) {
	if f.corrupt[hash] {
		return 0, fmt.Errorf("object %s: %w", hash, gitobj.ErrCorrupt)
	}
	data, ok := f.blobs[hash]
	if !ok {
		return 0, fmt.Errorf("object %s: %w", hash, gitobj.ErrNotExist)
	}
	f.sizeReads[hash]++
	return int64(len(data)), nil
}

func (f *fakeStore) Blob(hash gitobj.Hash) (*gitobj.Blob, error) {
	if f.corrupt[hash] {
		return nil, fmt.Errorf("object %s: %w", hash, gitobj.ErrCorrupt)
	}
	data, ok := f.blobs[hash]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", hash, gitobj.ErrNotExist)
	}
	f.blobReads[hash]++
	return &gitobj.Blob{Hash: hash, Size: int64(len(data)), Data: data}, nil
}

// fixtureTime is the committer timestamp of fake fixture commits.
var fixtureTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fixtureStore builds the canonical test layout and returns the
// store and the head commit hash:
//
//	file.txt   "hello"            (100644)
//	bin/
//	  run.sh   "#!/bin/sh\n"      (100755)
//	docs/
//	  B.txt    "upper"            (100644)
//	  a.txt    "lower"            (100644)
//	link.txt   -> file.txt        (120000)
//	escape     -> ../../etc/hosts (120000)
//	vendor/    gitlink            (160000)
//
// The head commit is reachable as ref "main".
func fixtureStore() (*fakeStore, gitobj.Hash) {
	store := newFakeStore()

	fileBlob := store.addBlob("hello")
	scriptBlob := store.addBlob("#!/bin/sh\n")
	upperBlob := store.addBlob("upper")
	lowerBlob := store.addBlob("lower")
	linkBlob := store.addBlob("file.txt")
	escapeBlob := store.addBlob("../../etc/hosts")

	binTree := store.addTree(
		gitobj.TreeEntry{Name: "run.sh", Mode: modeExecutable, Hash: scriptBlob},
	)
	docsTree := store.addTree(
		gitobj.TreeEntry{Name: "B.txt", Mode: modeRegular, Hash: upperBlob},
		gitobj.TreeEntry{Name: "a.txt", Mode: modeRegular, Hash: lowerBlob},
	)

	// A commit hash for the gitlink target that is deliberately not
	// present in the store.
	submoduleTarget := gitobj.Hash{0x5b, 0x5b, 0x5b}

	rootTree := store.addTree(
		gitobj.TreeEntry{Name: "bin", Mode: modeDir, Hash: binTree},
		gitobj.TreeEntry{Name: "docs", Mode: modeDir, Hash: docsTree},
		gitobj.TreeEntry{Name: "escape", Mode: modeSymlink, Hash: escapeBlob},
		gitobj.TreeEntry{Name: "file.txt", Mode: modeRegular, Hash: fileBlob},
		gitobj.TreeEntry{Name: "link.txt", Mode: modeSymlink, Hash: linkBlob},
		gitobj.TreeEntry{Name: "vendor", Mode: modeSubmodule, Hash: submoduleTarget},
	)

	head := store.addCommit(rootTree, fixtureTime)
	store.setRef("main", head)
	return store, head
}
