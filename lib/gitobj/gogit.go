// Copyright 2026 The gitfs Authors
// SPDX-License-Identifier: Apache-2.0

package gitobj

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// refSearchPath is the candidate expansion order for a reference
// name, matching git's own ref lookup rules. "%s" covers full names
// like "refs/heads/main" and the pseudo-ref "HEAD".
var refSearchPath = []string{
	"%s",
	"refs/%s",
	"refs/tags/%s",
	"refs/heads/%s",
	"refs/remotes/%s",
	"refs/remotes/%s/HEAD",
}

// Open opens the git repository at path. The path may be a worktree
// root (the .git directory inside is found automatically), the .git
// directory itself, or a bare repository.
func Open(path string) (Store, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("opening repository %s: %w", path, err)
	}
	return &repoStore{repo: repo}, nil
}

// repoStore implements Store over a go-git repository.
//
// go-git's packfile readers keep per-read state that is not safe for
// unsynchronized concurrent use, so every repository access happens
// under mu. Blob content is fully read before the lock is released.
// Callers cache decoded objects, so after warm-up most operations
// never reach this lock.
type repoStore struct {
	mu   sync.Mutex
	repo *git.Repository
}

var _ Store = (*repoStore)(nil)

func (s *repoStore) ResolveRef(name string) (Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, format := range refSearchPath {
		candidate := plumbing.ReferenceName(fmt.Sprintf(format, name))
		ref, err := s.repo.Reference(candidate, true)
		if err != nil {
			continue
		}
		return ref.Hash(), nil
	}
	return ZeroHash, fmt.Errorf("reference %q: %w", name, ErrNotExist)
}

func (s *repoStore) ListRefs() ([]RefInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	iter, err := s.repo.References()
	if err != nil {
		return nil, fmt.Errorf("listing references: %w", err)
	}

	var refs []RefInfo
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().String()
		if !strings.HasPrefix(name, "refs/") {
			return nil
		}
		if ref.Type() != plumbing.HashReference {
			// Symbolic ref (e.g. refs/remotes/origin/HEAD).
			// Resolve it; skip if the target is gone.
			resolved, resolveErr := s.repo.Reference(ref.Name(), true)
			if resolveErr != nil {
				return nil
			}
			ref = resolved
		}
		refs = append(refs, RefInfo{Name: name, Hash: ref.Hash()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing references: %w", err)
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

func (s *repoStore) Commit(hash Hash) (*Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, err := s.repo.Object(plumbing.AnyObject, hash)
	if err != nil {
		return nil, objectError(hash, err)
	}

	// Peel annotated tags. Chains are possible (a tag of a tag);
	// content addressing rules out cycles.
	for {
		switch typed := obj.(type) {
		case *object.Commit:
			return &Commit{
				Hash:     typed.Hash,
				TreeHash: typed.TreeHash,
				When:     typed.Committer.When,
				Message:  typed.Message,
			}, nil
		case *object.Tag:
			obj, err = typed.Object()
			if err != nil {
				return nil, objectError(typed.Target, err)
			}
		default:
			return nil, fmt.Errorf("object %s is a %s: %w", hash, obj.Type(), ErrNotCommit)
		}
	}
}

func (s *repoStore) Tree(hash Hash) (*Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, err := s.repo.Object(plumbing.AnyObject, hash)
	if err != nil {
		return nil, objectError(hash, err)
	}
	tree, ok := obj.(*object.Tree)
	if !ok {
		return nil, fmt.Errorf("object %s is a %s, expected tree: %w", hash, obj.Type(), ErrCorrupt)
	}

	entries := make([]TreeEntry, len(tree.Entries))
	for i, entry := range tree.Entries {
		entries[i] = TreeEntry{
			Name: entry.Name,
			Mode: uint32(entry.Mode),
			Hash: entry.Hash,
		}
	}
	return &Tree{Hash: hash, Entries: entries}, nil
}

func (s *repoStore) BlobSize(hash Hash) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := s.blobObject(hash)
	if err != nil {
		return 0, err
	}
	return blob.Size, nil
}

func (s *repoStore) Blob(hash Hash) (*Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := s.blobObject(hash)
	if err != nil {
		return nil, err
	}

	reader, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("opening blob %s: %w: %w", hash, ErrCorrupt, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("decoding blob %s: %w: %w", hash, ErrCorrupt, err)
	}
	return &Blob{Hash: hash, Size: int64(len(data)), Data: data}, nil
}

// blobObject fetches a blob object. Caller holds mu.
func (s *repoStore) blobObject(hash Hash) (*object.Blob, error) {
	obj, err := s.repo.Object(plumbing.AnyObject, hash)
	if err != nil {
		return nil, objectError(hash, err)
	}
	blob, ok := obj.(*object.Blob)
	if !ok {
		return nil, fmt.Errorf("object %s is a %s, expected blob: %w", hash, obj.Type(), ErrCorrupt)
	}
	return blob, nil
}

// objectError maps a go-git object fetch failure onto the package's
// sentinel errors: absent objects are ErrNotExist, anything else
// (truncated, undecodable, bad zlib stream) is ErrCorrupt.
func objectError(hash Hash, err error) error {
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return fmt.Errorf("object %s: %w", hash, ErrNotExist)
	}
	return fmt.Errorf("object %s: %w: %w", hash, ErrCorrupt, err)
}
