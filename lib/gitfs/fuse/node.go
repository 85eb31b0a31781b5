// Copyright 2026 The gitfs Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"context"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/refmount/gitfs/lib/gitfs"
)

// sessionNode is the behavior shared by every node bound to a
// session: attribute and access dispatch by inode number, and the
// write rejections that do not depend on node kind.
type sessionNode struct {
	gofuse.Inode
	session *gitfs.Session
	ino     uint64
}

var _ gofuse.InodeEmbedder = (*sessionNode)(nil)
var _ gofuse.NodeGetattrer = (*sessionNode)(nil)
var _ gofuse.NodeAccesser = (*sessionNode)(nil)
var _ gofuse.NodeSetattrer = (*sessionNode)(nil)
var _ gofuse.NodeSetxattrer = (*sessionNode)(nil)
var _ gofuse.NodeRemovexattrer = (*sessionNode)(nil)

func (n *sessionNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attr, err := n.session.Getattr(n.ino)
	if err != nil {
		return n.errno("getattr", err)
	}
	fillAttr(attr, &out.Attr)
	return 0
}

func (n *sessionNode) Access(ctx context.Context, mask uint32) syscall.Errno {
	if err := n.session.Access(n.ino, mask); err != nil {
		return n.errno("access", err)
	}
	return 0
}

func (n *sessionNode) Setattr(ctx context.Context, f gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	return syscall.EROFS
}

func (n *sessionNode) Setxattr(ctx context.Context, attr string, data []byte, flags uint32) syscall.Errno {
	return syscall.EROFS
}

func (n *sessionNode) Removexattr(ctx context.Context, attr string) syscall.Errno {
	return syscall.EROFS
}

// errno converts err for the kernel, logging the cases that signal
// trouble rather than ordinary misses: ESTALE means the kernel sent
// an inode this session never issued, EIO means the object store
// gave us something unreadable.
func (n *sessionNode) errno(op string, err error) syscall.Errno {
	errno := errnoFor(err)
	switch errno {
	case syscall.ESTALE:
		n.session.Logger().Warn("stale inode from kernel", "op", op, "ino", n.ino)
	case syscall.EIO:
		n.session.Logger().Error("operation failed", "op", op, "ino", n.ino, "error", err)
	}
	return errno
}

// dirNode is a directory backed by a tree object. Submodule entries
// are dirNodes too; the session lists them as empty.
type dirNode struct {
	sessionNode
}

var _ gofuse.NodeLookuper = (*dirNode)(nil)
var _ gofuse.NodeReaddirer = (*dirNode)(nil)
var _ gofuse.NodeCreater = (*dirNode)(nil)
var _ gofuse.NodeMkdirer = (*dirNode)(nil)
var _ gofuse.NodeRmdirer = (*dirNode)(nil)
var _ gofuse.NodeUnlinker = (*dirNode)(nil)
var _ gofuse.NodeRenamer = (*dirNode)(nil)
var _ gofuse.NodeSymlinker = (*dirNode)(nil)
var _ gofuse.NodeLinker = (*dirNode)(nil)
var _ gofuse.NodeMknoder = (*dirNode)(nil)

func (d *dirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	attr, err := d.session.Lookup(d.ino, name)
	if err != nil {
		return nil, d.errno("lookup", err)
	}
	fillAttr(attr, &out.Attr)

	var node gofuse.InodeEmbedder
	switch attr.Kind {
	case gitfs.KindSymlink:
		node = &linkNode{sessionNode{session: d.session, ino: attr.Ino}}
	case gitfs.KindFile:
		node = &fileNode{sessionNode{session: d.session, ino: attr.Ino}}
	default:
		node = &dirNode{sessionNode{session: d.session, ino: attr.Ino}}
	}
	child := d.NewPersistentInode(ctx, node, gofuse.StableAttr{
		Mode: typeBits(attr.Kind),
		Ino:  attr.Ino,
	})
	return child, 0
}

func (d *dirNode) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	list, err := d.session.Readdir(d.ino)
	if err != nil {
		return nil, d.errno("readdir", err)
	}
	entries := make([]fuse.DirEntry, 0, len(list))
	for _, entry := range list {
		entries = append(entries, fuse.DirEntry{
			Name: entry.Name,
			Ino:  entry.Ino,
			Mode: typeBits(entry.Kind),
		})
	}
	return &sliceDirStream{entries: entries}, 0
}

func (d *dirNode) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	return nil, nil, 0, syscall.EROFS
}

func (d *dirNode) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	return nil, syscall.EROFS
}

func (d *dirNode) Rmdir(ctx context.Context, name string) syscall.Errno {
	return syscall.EROFS
}

func (d *dirNode) Unlink(ctx context.Context, name string) syscall.Errno {
	return syscall.EROFS
}

func (d *dirNode) Rename(ctx context.Context, name string, newParent gofuse.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	return syscall.EROFS
}

func (d *dirNode) Symlink(ctx context.Context, target, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	return nil, syscall.EROFS
}

func (d *dirNode) Link(ctx context.Context, target gofuse.InodeEmbedder, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	return nil, syscall.EROFS
}

func (d *dirNode) Mknod(ctx context.Context, name string, mode uint32, dev uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	return nil, syscall.EROFS
}

// fileNode is a regular file backed by a blob object.
type fileNode struct {
	sessionNode
}

var _ gofuse.NodeOpener = (*fileNode)(nil)
var _ gofuse.NodeWriter = (*fileNode)(nil)

// writeFlags are the open flags that declare intent to modify.
const writeFlags = uint32(syscall.O_WRONLY | syscall.O_RDWR | syscall.O_APPEND | syscall.O_TRUNC)

func (f *fileNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	handle, err := f.session.Open(f.ino, flags&writeFlags != 0)
	if err != nil {
		return nil, 0, f.errno("open", err)
	}
	// Blob content is immutable for the life of the mount, so the
	// kernel page cache never goes stale.
	return &blobFile{session: f.session, handle: handle}, fuse.FOPEN_KEEP_CACHE, 0
}

func (f *fileNode) Write(ctx context.Context, fh gofuse.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	return 0, syscall.EROFS
}

// linkNode is a symlink. The stored target comes back verbatim;
// following it, including out of the mount entirely, is the
// kernel's business.
type linkNode struct {
	sessionNode
}

var _ gofuse.NodeReadlinker = (*linkNode)(nil)

func (l *linkNode) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	target, err := l.session.Readlink(l.ino)
	if err != nil {
		return nil, l.errno("readlink", err)
	}
	return target, 0
}

// blobFile is one open read handle over a blob.
type blobFile struct {
	session *gitfs.Session
	handle  *gitfs.BlobHandle
}

var _ gofuse.FileReader = (*blobFile)(nil)
var _ gofuse.FileReleaser = (*blobFile)(nil)

func (b *blobFile) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, err := b.session.Read(b.handle, off, int64(len(dest)))
	if err != nil {
		b.session.Logger().Error("read failed",
			"blob", b.handle.Hash().String(),
			"offset", off,
			"error", err,
		)
		return nil, errnoFor(err)
	}
	return fuse.ReadResultData(data), 0
}

func (b *blobFile) Release(ctx context.Context) syscall.Errno {
	b.session.Release(b.handle)
	return 0
}

// typeBits returns the S_IFMT bits for a node kind. Submodules
// answer as directories.
func typeBits(kind gitfs.Kind) uint32 {
	switch kind {
	case gitfs.KindSymlink:
		return syscall.S_IFLNK
	case gitfs.KindFile:
		return syscall.S_IFREG
	default:
		return syscall.S_IFDIR
	}
}

// fillAttr translates a session attribute record into the kernel's.
func fillAttr(attr *gitfs.Attr, out *fuse.Attr) {
	out.Ino = attr.Ino
	out.Mode = typeBits(attr.Kind) | attr.Perm
	out.Size = uint64(attr.Size)
	out.Nlink = attr.Nlink
	out.Blocks = (out.Size + 511) / 512
	out.Blksize = 4096
	when := attr.ModTime
	out.SetTimes(&when, &when, &when)
}

// sliceDirStream implements fs.DirStream from a slice of entries.
type sliceDirStream struct {
	entries []fuse.DirEntry
	index   int
}

func (s *sliceDirStream) HasNext() bool {
	return s.index < len(s.entries)
}

func (s *sliceDirStream) Next() (fuse.DirEntry, syscall.Errno) {
	if s.index >= len(s.entries) {
		return fuse.DirEntry{}, syscall.EINVAL
	}
	entry := s.entries[s.index]
	s.index++
	return entry, 0
}

func (s *sliceDirStream) Close() {}
