// Copyright 2026 The gitfs Authors
// SPDX-License-Identifier: Apache-2.0

package gitfs

import (
	"fmt"
	"sync"
)

// RootInode is the well-known inode number of a mount's root
// directory.
const RootInode uint64 = 1

// InodeTable assigns stable numeric identities to path nodes, so the
// kernel-facing layer can address nodes by number across calls.
// Numbers are handed out from a monotonic counter and never reused
// for the lifetime of the mount.
type InodeTable struct {
	mu     sync.RWMutex
	byPath map[string]uint64
	byIno  map[uint64]*PathNode
	next   uint64
}

// NewInodeTable creates a table with root pre-registered at rootIno.
// Later assignments count up from there.
func NewInodeTable(root *PathNode, rootIno uint64) *InodeTable {
	return &InodeTable{
		byPath: map[string]uint64{root.Path: rootIno},
		byIno:  map[uint64]*PathNode{rootIno: root},
		next:   rootIno + 1,
	}
}

// GetOrAssign returns the inode number for a node, assigning the
// next free number on first sight of its path.
func (t *InodeTable) GetOrAssign(node *PathNode) uint64 {
	t.mu.RLock()
	ino, ok := t.byPath[node.Path]
	t.mu.RUnlock()
	if ok {
		return ino
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if ino, ok := t.byPath[node.Path]; ok {
		return ino
	}
	ino = t.next
	t.next++
	t.byPath[node.Path] = ino
	t.byIno[ino] = node
	return ino
}

// Resolve maps an inode number back to its node. A number this table
// never assigned fails with ErrStaleInode; callers surface it as a
// protocol error and carry on.
func (t *InodeTable) Resolve(ino uint64) (*PathNode, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	node, ok := t.byIno[ino]
	if !ok {
		return nil, fmt.Errorf("inode %d: %w", ino, ErrStaleInode)
	}
	return node, nil
}
