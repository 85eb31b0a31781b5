// Copyright 2026 The gitfs Authors
// SPDX-License-Identifier: Apache-2.0

package gitfs

import "errors"

// Sentinel errors for the session operations. Absent paths and
// objects reuse gitobj.ErrNotExist, and undecodable objects reuse
// gitobj.ErrCorrupt, so a caller matches one error kind per failure
// class regardless of which layer produced it.
var (
	// ErrNotDir is returned when a path component or an operation
	// target is not a directory.
	ErrNotDir = errors.New("not a directory")

	// ErrNotFile is returned when an operation needs a regular file
	// or a symlink and the node is some other kind.
	ErrNotFile = errors.New("not a file")

	// ErrReadOnly is returned for every write-class operation and
	// for opens with write intent.
	ErrReadOnly = errors.New("read-only filesystem")

	// ErrPermission is returned for access probes the node's
	// permission bits do not grant, such as execute on a
	// non-executable file.
	ErrPermission = errors.New("permission denied")

	// ErrInvalidArg is returned for malformed read arguments
	// (negative offset or length).
	ErrInvalidArg = errors.New("invalid argument")

	// ErrStaleInode is returned when a caller presents an inode
	// number this session never assigned. It is a protocol-level
	// error; the session stays healthy.
	ErrStaleInode = errors.New("stale inode")
)
