// Copyright 2026 The gitfs Authors
// SPDX-License-Identifier: Apache-2.0

package gitfs

import (
	"errors"
	"testing"
)

func TestInodeRoot(t *testing.T) {
	index, _ := fixtureIndex(t)
	table := NewInodeTable(index.Root(), RootInode)

	ino := table.GetOrAssign(index.Root())
	if ino != RootInode {
		t.Errorf("root inode = %d, want %d", ino, RootInode)
	}
	node, err := table.Resolve(RootInode)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if node != index.Root() {
		t.Error("Resolve(root) returned a different node")
	}
}

func TestInodeStableAndMonotonic(t *testing.T) {
	index, _ := fixtureIndex(t)
	table := NewInodeTable(index.Root(), RootInode)

	file, err := index.Lookup("file.txt")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	link, err := index.Lookup("link.txt")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	fileIno := table.GetOrAssign(file)
	linkIno := table.GetOrAssign(link)

	if fileIno <= RootInode {
		t.Errorf("file inode = %d, want > %d", fileIno, RootInode)
	}
	if linkIno <= fileIno {
		t.Errorf("inodes not monotonic: %d then %d", fileIno, linkIno)
	}

	// The same path always maps to the same number.
	if again := table.GetOrAssign(file); again != fileIno {
		t.Errorf("reassigned inode %d, want %d", again, fileIno)
	}

	got, err := table.Resolve(fileIno)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Path != "file.txt" {
		t.Errorf("Resolve path = %q, want file.txt", got.Path)
	}
}

func TestInodeResolveStale(t *testing.T) {
	index, _ := fixtureIndex(t)
	table := NewInodeTable(index.Root(), RootInode)

	_, err := table.Resolve(999)
	if !errors.Is(err, ErrStaleInode) {
		t.Errorf("Resolve(999) = %v, want ErrStaleInode", err)
	}
}

func TestInodeTableAtBase(t *testing.T) {
	index, _ := fixtureIndex(t)

	base := uint64(1) << 32
	table := NewInodeTable(index.Root(), base)

	if ino := table.GetOrAssign(index.Root()); ino != base {
		t.Errorf("root inode = %d, want %d", ino, base)
	}

	file, err := index.Lookup("file.txt")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ino := table.GetOrAssign(file); ino != base+1 {
		t.Errorf("first assigned inode = %d, want %d", ino, base+1)
	}
}
