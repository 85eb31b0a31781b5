// Copyright 2026 The gitfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package fuse binds a gitfs session to the kernel, exposing the
// contents of a git repository at a resolved reference as a
// read-only file hierarchy. Nothing is checked out: directory trees,
// file bytes, and symlink targets are served straight from the
// object store on demand.
//
// A mount has one of two shapes:
//
//   - Single reference (the default). The tree of the resolved
//     commit is the filesystem root. The reference is resolved once
//     at mount time; the view is an immutable snapshot of that
//     commit.
//
//   - All references (Options.AllRefs). The root mirrors the refs/
//     namespace as a directory tree ("heads/main", "tags/v1.0"), and
//     each leaf is the root of that reference's commit tree. The
//     reference set is captured at mount time; references created
//     afterwards appear on remount. Each reference is resolved
//     lazily on first access.
//
// # Read Path
//
// Lookup and Readdir walk cached tree objects through the session's
// path index; opening a file decodes its blob once and serves all
// reads and all concurrent handles from that one buffer until the
// last handle closes. Content under a commit is immutable, so opens
// pass FOPEN_KEEP_CACHE and the kernel page cache never goes stale.
//
// # Write Path
//
// Not implemented. All mutation operations (Create, Write, Mkdir,
// Unlink, Setattr, Rename, etc.) return EROFS.
package fuse
