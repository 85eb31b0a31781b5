// Copyright 2026 The gitfs Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/refmount/gitfs/lib/gitfs"
	"github.com/refmount/gitfs/lib/gitobj"
)

// Default kernel cache windows. Mounted content is immutable, so the
// only cost of caching is delayed visibility of nothing.
const (
	DefaultEntryTimeout    = 1 * time.Second
	DefaultAttrTimeout     = 1 * time.Second
	DefaultNegativeTimeout = 100 * time.Millisecond
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted.
	// It must already exist.
	Mountpoint string

	// Store provides access to the repository's references and
	// objects.
	Store gitobj.Store

	// Reference is the commit-ish to expose: a reference name, a
	// short form like a branch or tag name, or a full commit hash.
	// Empty means HEAD. Ignored when AllRefs is set.
	Reference string

	// AllRefs mounts every reference in the repository as a
	// directory tree mirroring the refs/ namespace instead of a
	// single commit.
	AllRefs bool

	// AllowOther permits other users (including root) to access
	// the mount. Requires user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// FSName is the source name shown in the mount table. Empty
	// means "gitfs".
	FSName string

	// EntryTimeout, AttrTimeout, and NegativeTimeout override the
	// kernel cache windows. Zero means the package defaults.
	EntryTimeout    time.Duration
	AttrTimeout     time.Duration
	NegativeTimeout time.Duration

	// Logger receives diagnostic messages. If nil, a no-op logger
	// is used.
	Logger *slog.Logger
}

// Mount mounts the git filesystem at the configured mountpoint. The
// caller must call Unmount on the returned Server when done.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	info, err := os.Stat(options.Mountpoint)
	if err != nil {
		return nil, fmt.Errorf("mountpoint %s: %w", options.Mountpoint, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("mountpoint %s is not a directory", options.Mountpoint)
	}

	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}
	if options.FSName == "" {
		options.FSName = "gitfs"
	}

	var root gofuse.InodeEmbedder
	if options.AllRefs {
		mount, err := newRefMount(options.Store, options.Logger)
		if err != nil {
			return nil, err
		}
		root = mount.root()
	} else {
		reference := options.Reference
		if reference == "" {
			reference = "HEAD"
		}
		session, err := gitfs.NewSession(options.Store, reference, options.Logger)
		if err != nil {
			return nil, err
		}
		root = &dirNode{sessionNode{session: session, ino: session.RootIno()}}
		options.Logger.Info("reference resolved",
			"reference", reference,
			"commit", session.CommitRef().Commit.String(),
		)
	}

	entryTimeout := options.EntryTimeout
	if entryTimeout == 0 {
		entryTimeout = DefaultEntryTimeout
	}
	attrTimeout := options.AttrTimeout
	if attrTimeout == 0 {
		attrTimeout = DefaultAttrTimeout
	}
	negativeTimeout := options.NegativeTimeout
	if negativeTimeout == 0 {
		negativeTimeout = DefaultNegativeTimeout
	}

	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     options.FSName,
			Name:       "gitfs",
			AllowOther: options.AllowOther,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("git filesystem mounted", "mountpoint", options.Mountpoint)
	return server, nil
}

// errnoFor maps the session error taxonomy onto kernel errnos.
// Anything unrecognized is an I/O error rather than a panic: a bad
// or truncated object store must never take the mount down.
func errnoFor(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, gitobj.ErrNotExist):
		return syscall.ENOENT
	case errors.Is(err, gitfs.ErrNotDir):
		return syscall.ENOTDIR
	case errors.Is(err, gitfs.ErrReadOnly):
		return syscall.EROFS
	case errors.Is(err, gitfs.ErrPermission):
		return syscall.EACCES
	case errors.Is(err, gitfs.ErrNotFile), errors.Is(err, gitfs.ErrInvalidArg):
		return syscall.EINVAL
	case errors.Is(err, gitfs.ErrStaleInode):
		return syscall.ESTALE
	default:
		return syscall.EIO
	}
}
