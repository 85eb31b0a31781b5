// Copyright 2026 The gitfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package gitfs maps a git repository at a fixed commit onto
// filesystem semantics: path lookup, directory listing, attribute
// queries, byte-range file reads, and symlink targets, all read-only.
//
// The package has no kernel dependencies. A Session exposes the
// operations a filesystem driver dispatches, keyed by inode number;
// the fuse subpackage binds a Session to the kernel.
package gitfs

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/refmount/gitfs/lib/gitobj"
)

// Attr is the attribute record for one node. Git objects carry no
// per-file timestamps, so every node reports the mounted commit's
// committer time, constant for the life of the mount. Permission
// bits never include write.
type Attr struct {
	Ino     uint64
	Kind    Kind
	Perm    uint32
	Size    int64
	Nlink   uint32
	ModTime time.Time
}

// DirEntry is one directory listing row.
type DirEntry struct {
	Name string
	Ino  uint64
	Kind Kind
}

// Session is one mounted view of a repository at a resolved commit.
// It owns the path index, inode table, and blob reader for that view
// and answers the operations a filesystem driver dispatches.
// Sessions are self-contained; several can coexist in one process,
// including several over the same store.
type Session struct {
	store   gitobj.Store
	ref     CommitRef
	index   *PathIndex
	inodes  *InodeTable
	blobs   *BlobReader
	rootIno uint64
	logger  *slog.Logger
}

// NewSession resolves reference against the store and builds a
// session with its root at RootInode. A nil logger discards
// everything below error level.
func NewSession(store gitobj.Store, reference string, logger *slog.Logger) (*Session, error) {
	return NewSessionAt(store, reference, RootInode, logger)
}

// NewSessionAt is NewSession with the root placed at rootIno. Mounts
// that graft several commit trees into one inode space give each
// session a disjoint number range.
func NewSessionAt(store gitobj.Store, reference string, rootIno uint64, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	ref, err := ResolveCommit(store, reference)
	if err != nil {
		return nil, err
	}

	index := NewPathIndex(store, ref)
	session := &Session{
		store:   store,
		ref:     ref,
		index:   index,
		inodes:  NewInodeTable(index.Root(), rootIno),
		blobs:   NewBlobReader(store),
		rootIno: rootIno,
		logger:  logger,
	}

	logger.Debug("session resolved",
		"reference", reference,
		"commit", ref.Commit.String(),
		"tree", ref.RootTree.String(),
	)
	return session, nil
}

// CommitRef returns the resolved mount target.
func (s *Session) CommitRef() CommitRef {
	return s.ref
}

// RootIno returns the inode number of the session's root directory.
func (s *Session) RootIno() uint64 {
	return s.rootIno
}

// Logger returns the session's logger.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// Lookup resolves name under the directory identified by parentIno,
// assigning the child an inode on first sight, and returns its
// attributes.
func (s *Session) Lookup(parentIno uint64, name string) (*Attr, error) {
	parent, err := s.inodes.Resolve(parentIno)
	if err != nil {
		return nil, err
	}
	node, err := s.index.Lookup(joinPath(parent.Path, name))
	if err != nil {
		return nil, err
	}
	return s.attr(node), nil
}

// Getattr returns the attributes of the node identified by ino.
func (s *Session) Getattr(ino uint64) (*Attr, error) {
	node, err := s.inodes.Resolve(ino)
	if err != nil {
		return nil, err
	}
	return s.attr(node), nil
}

// Readdir lists the directory identified by ino: "." and ".." first,
// then every child in the tree's stored entry order, each carrying
// its inode and kind. Submodules list as empty.
func (s *Session) Readdir(ino uint64) ([]DirEntry, error) {
	node, err := s.inodes.Resolve(ino)
	if err != nil {
		return nil, err
	}
	children, err := s.index.Children(node)
	if err != nil {
		return nil, err
	}

	parentIno := ino
	if node.Path != "" {
		parent, err := s.index.Lookup(parentPath(node.Path))
		if err != nil {
			return nil, err
		}
		parentIno = s.inodes.GetOrAssign(parent)
	}

	entries := make([]DirEntry, 0, len(children)+2)
	entries = append(entries,
		DirEntry{Name: ".", Ino: ino, Kind: KindDir},
		DirEntry{Name: "..", Ino: parentIno, Kind: KindDir},
	)
	for _, child := range children {
		entries = append(entries, DirEntry{
			Name: child.Name,
			Ino:  s.inodes.GetOrAssign(child),
			Kind: child.Kind,
		})
	}
	return entries, nil
}

// Open opens the file identified by ino for reading and returns the
// read handle. Write intent of any sort is rejected with ErrReadOnly.
func (s *Session) Open(ino uint64, writeIntent bool) (*BlobHandle, error) {
	node, err := s.inodes.Resolve(ino)
	if err != nil {
		return nil, err
	}
	if writeIntent {
		return nil, fmt.Errorf("open %s for writing: %w", displayPath(node.Path), ErrReadOnly)
	}
	if node.Kind != KindFile {
		return nil, fmt.Errorf("open %s: node is a %s: %w", displayPath(node.Path), node.Kind, ErrNotFile)
	}
	return s.blobs.Open(node.Hash)
}

// Read returns up to length bytes at offset from an open handle.
// End-of-file is an empty result, not an error.
func (s *Session) Read(handle *BlobHandle, offset, length int64) ([]byte, error) {
	return handle.Read(offset, length)
}

// Readlink returns the raw link target of the symlink identified by
// ino. The target is surfaced verbatim; absolute targets and targets
// escaping the mount are the caller's resolution policy, not ours.
func (s *Session) Readlink(ino uint64) ([]byte, error) {
	node, err := s.inodes.Resolve(ino)
	if err != nil {
		return nil, err
	}
	if node.Kind != KindSymlink {
		return nil, fmt.Errorf("readlink %s: node is a %s: %w", displayPath(node.Path), node.Kind, ErrNotFile)
	}

	handle, err := s.blobs.Open(node.Hash)
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	data, err := handle.Read(0, handle.Size())
	if err != nil {
		return nil, err
	}
	target := make([]byte, len(data))
	copy(target, data)
	return target, nil
}

// Release closes an open read handle.
func (s *Session) Release(handle *BlobHandle) {
	handle.Close()
}

// Access mask bits, as in access(2).
const (
	accessExecute = 0x1
	accessWrite   = 0x2
)

// Access answers permission probes. Write capability does not exist
// anywhere in the mount, and execute on a regular file requires the
// executable mode word.
func (s *Session) Access(ino uint64, mask uint32) error {
	node, err := s.inodes.Resolve(ino)
	if err != nil {
		return err
	}
	if mask&accessWrite != 0 {
		return fmt.Errorf("write access to %s: %w", displayPath(node.Path), ErrReadOnly)
	}
	if mask&accessExecute != 0 && node.Kind == KindFile && !node.Executable() {
		return fmt.Errorf("execute access to %s: %w", displayPath(node.Path), ErrPermission)
	}
	return nil
}

// attr synthesizes the attribute record for a node.
func (s *Session) attr(node *PathNode) *Attr {
	return &Attr{
		Ino:     s.inodes.GetOrAssign(node),
		Kind:    node.Kind,
		Perm:    permBits(node),
		Size:    node.Size,
		Nlink:   1,
		ModTime: s.ref.When,
	}
}

// permBits derives display permissions from a node. The mount is
// read-only, so write bits are stripped everywhere; executables and
// directories keep read and execute.
func permBits(node *PathNode) uint32 {
	switch node.Kind {
	case KindSymlink:
		return 0o777
	case KindFile:
		if node.Executable() {
			return 0o555
		}
		return 0o444
	default:
		return 0o555
	}
}
