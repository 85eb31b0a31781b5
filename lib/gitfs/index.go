// Copyright 2026 The gitfs Authors
// SPDX-License-Identifier: Apache-2.0

package gitfs

import (
	"fmt"
	"strings"
	"sync"

	"github.com/refmount/gitfs/lib/gitobj"
)

// PathNode is a resolved filesystem entity under the mounted commit.
// Nodes are immutable once created and retained for the mount's
// lifetime.
type PathNode struct {
	// Path is the slash-separated path relative to the mount root.
	// The root's path is "".
	Path string

	// Name is the final path component, "" for the root.
	Name string

	// Hash is the git object behind this node. For submodules it
	// names a commit of the linked repository, which is usually
	// absent from this object store and is never fetched.
	Hash gitobj.Hash

	// Mode is the raw git mode word from the parent tree entry.
	Mode uint32

	// Kind classifies the node.
	Kind Kind

	// Size is the blob size for files and symlinks, zero otherwise.
	Size int64
}

// Executable reports whether the node is a file with the executable
// mode word.
func (n *PathNode) Executable() bool {
	return n.Kind == KindFile && n.Mode&0o100 != 0
}

// IsDir reports whether the node answers directory operations.
// Submodules do: they list as empty directories.
func (n *PathNode) IsDir() bool {
	return n.Kind == KindDir || n.Kind == KindSubmodule
}

// PathIndex maps paths under a fixed commit root to PathNodes.
// Decoded trees and resolved nodes are cached forever: the object
// graph is content-addressed and the mount's reference never moves,
// so a cache entry can never go stale. After warm-up, traversals take
// only read locks.
type PathIndex struct {
	store gitobj.Store
	root  *PathNode

	mu    sync.RWMutex
	trees map[gitobj.Hash]*gitobj.Tree
	nodes map[string]*PathNode
}

// NewPathIndex creates an index rooted at the reference's tree. Trees
// are decoded lazily on first traversal.
func NewPathIndex(store gitobj.Store, ref CommitRef) *PathIndex {
	root := &PathNode{
		Path: "",
		Hash: ref.RootTree,
		Mode: modeDir,
		Kind: KindDir,
	}
	return &PathIndex{
		store: store,
		root:  root,
		trees: make(map[gitobj.Hash]*gitobj.Tree),
		nodes: make(map[string]*PathNode),
	}
}

// Root returns the root node.
func (x *PathIndex) Root() *PathNode {
	return x.root
}

// Lookup resolves a slash-separated path to its node. Component
// names match tree entries byte for byte; git never case-folds.
// Missing components fail with gitobj.ErrNotExist, and a
// non-directory met before the last component fails with ErrNotDir.
// Symlinks are returned as nodes, never followed.
//
// The descent is iterative so that pathologically deep trees cannot
// exhaust the stack.
func (x *PathIndex) Lookup(path string) (*PathNode, error) {
	clean := strings.Trim(path, "/")
	if clean == "" {
		return x.root, nil
	}
	if node := x.cachedNode(clean); node != nil {
		return node, nil
	}

	components := strings.Split(clean, "/")
	current := x.root
	for depth, name := range components {
		childPath := strings.Join(components[:depth+1], "/")
		if node := x.cachedNode(childPath); node != nil {
			current = node
			continue
		}
		child, err := x.child(current, name, childPath)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return current, nil
}

// ListChildren returns a directory's children in the tree's stored
// entry order. Git writes entries in lexicographic byte order; the
// index never re-sorts them. Submodules yield an empty list.
func (x *PathIndex) ListChildren(path string) ([]*PathNode, error) {
	node, err := x.Lookup(path)
	if err != nil {
		return nil, err
	}
	return x.Children(node)
}

// Children is ListChildren for an already-resolved node.
func (x *PathIndex) Children(node *PathNode) ([]*PathNode, error) {
	if node.Kind == KindSubmodule {
		return nil, nil
	}
	if node.Kind != KindDir {
		return nil, fmt.Errorf("%s is a %s: %w", displayPath(node.Path), node.Kind, ErrNotDir)
	}

	tree, err := x.tree(node.Hash)
	if err != nil {
		return nil, err
	}

	children := make([]*PathNode, 0, len(tree.Entries))
	for i := range tree.Entries {
		entry := &tree.Entries[i]
		childPath := joinPath(node.Path, entry.Name)
		child := x.cachedNode(childPath)
		if child == nil {
			child, err = x.materialize(childPath, entry)
			if err != nil {
				return nil, err
			}
		}
		children = append(children, child)
	}
	return children, nil
}

// child resolves one descent step from parent to the named entry.
func (x *PathIndex) child(parent *PathNode, name, childPath string) (*PathNode, error) {
	if parent.Kind == KindSubmodule {
		// A submodule is an empty directory; nothing below it
		// exists in this mount.
		return nil, fmt.Errorf("%s: %w", childPath, gitobj.ErrNotExist)
	}
	if parent.Kind != KindDir {
		return nil, fmt.Errorf("%s: %s is a %s: %w", childPath, displayPath(parent.Path), parent.Kind, ErrNotDir)
	}

	tree, err := x.tree(parent.Hash)
	if err != nil {
		return nil, err
	}
	for i := range tree.Entries {
		entry := &tree.Entries[i]
		if entry.Name == name {
			return x.materialize(childPath, entry)
		}
	}
	return nil, fmt.Errorf("%s: %w", childPath, gitobj.ErrNotExist)
}

// materialize builds the PathNode for a tree entry and records it.
// Blob sizes are resolved here, once, so attribute queries never
// touch the store again.
func (x *PathIndex) materialize(childPath string, entry *gitobj.TreeEntry) (*PathNode, error) {
	kind, err := kindForMode(entry.Mode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", childPath, err)
	}

	node := &PathNode{
		Path: childPath,
		Name: entry.Name,
		Hash: entry.Hash,
		Mode: entry.Mode,
		Kind: kind,
	}
	if kind == KindFile || kind == KindSymlink {
		size, err := x.store.BlobSize(entry.Hash)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", childPath, err)
		}
		node.Size = size
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if existing, ok := x.nodes[childPath]; ok {
		// Lost a materialization race; keep the first node so
		// pointers stay stable.
		return existing, nil
	}
	x.nodes[childPath] = node
	return node, nil
}

// tree returns the decoded tree for a hash, fetching and caching it
// on first access. A concurrent first access may fetch twice; only
// one decode is retained.
func (x *PathIndex) tree(hash gitobj.Hash) (*gitobj.Tree, error) {
	x.mu.RLock()
	tree, ok := x.trees[hash]
	x.mu.RUnlock()
	if ok {
		return tree, nil
	}

	tree, err := x.store.Tree(hash)
	if err != nil {
		return nil, err
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if existing, ok := x.trees[hash]; ok {
		return existing, nil
	}
	x.trees[hash] = tree
	return tree, nil
}

func (x *PathIndex) cachedNode(path string) *PathNode {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.nodes[path]
}

// joinPath joins a parent path and an entry name. The root's path is
// "", so its children are bare names.
func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// parentPath strips the final component; the parent of a top-level
// name is the root "".
func parentPath(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return ""
}

// displayPath renders a node path for error messages.
func displayPath(path string) string {
	if path == "" {
		return "/"
	}
	return path
}
