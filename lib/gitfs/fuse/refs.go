// Copyright 2026 The gitfs Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/refmount/gitfs/lib/gitfs"
	"github.com/refmount/gitfs/lib/gitobj"
)

// sessionInodeStride is the inode number distance between grafted
// sessions. Each session numbers its nodes upward from its own base,
// so neighboring ranges stay disjoint.
const sessionInodeStride = uint64(1) << 32

// refNamespaceBase is the first inode number handed to namespace
// directories. The root is 1; everything between the base and the
// first session stride belongs to the namespace.
const refNamespaceBase = uint64(2)

// refMount is an all-references mount: the refs/ namespace as a
// directory tree, with each reference's commit tree grafted at its
// leaf. References resolve lazily on first access, each into its own
// session with a disjoint inode range.
type refMount struct {
	store   gitobj.Store
	logger  *slog.Logger
	names   []string // sorted reference names, refs/ prefix stripped
	mounted time.Time

	mu       sync.Mutex
	sessions map[string]*gitfs.Session
	dirInos  map[string]uint64
	nextDir  uint64
	nextBase uint64
}

func newRefMount(store gitobj.Store, logger *slog.Logger) (*refMount, error) {
	refs, err := store.ListRefs()
	if err != nil {
		return nil, fmt.Errorf("listing references: %w", err)
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("repository has no references to mount")
	}

	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, strings.TrimPrefix(ref.Name, "refs/"))
	}
	logger.Info("mounting reference namespace", "references", len(names))

	return &refMount{
		store:    store,
		logger:   logger,
		names:    names,
		mounted:  time.Now(),
		sessions: make(map[string]*gitfs.Session),
		dirInos:  make(map[string]uint64),
		nextDir:  refNamespaceBase,
		nextBase: sessionInodeStride,
	}, nil
}

// root returns the namespace root node.
func (m *refMount) root() *refDirNode {
	return &refDirNode{mount: m}
}

// hasRef reports whether name is exactly a reference.
func (m *refMount) hasRef(name string) bool {
	i := sort.SearchStrings(m.names, name)
	return i < len(m.names) && m.names[i] == name
}

// hasPrefix reports whether any reference name starts with prefix.
func (m *refMount) hasPrefix(prefix string) bool {
	i := sort.SearchStrings(m.names, prefix)
	return i < len(m.names) && strings.HasPrefix(m.names[i], prefix)
}

// session returns the session for a reference, resolving it on first
// use.
func (m *refMount) session(name string) (*gitfs.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok := m.sessions[name]; ok {
		return session, nil
	}

	session, err := gitfs.NewSessionAt(m.store, "refs/"+name, m.nextBase, m.logger)
	if err != nil {
		return nil, err
	}
	m.sessions[name] = session
	m.nextBase += sessionInodeStride

	m.logger.Info("reference resolved",
		"reference", "refs/"+name,
		"commit", session.CommitRef().Commit.String(),
	)
	return session, nil
}

// dirIno returns the stable inode number for a namespace directory,
// assigning one on first sight.
func (m *refMount) dirIno(prefix string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ino, ok := m.dirInos[prefix]; ok {
		return ino
	}
	ino := m.nextDir
	m.nextDir++
	m.dirInos[prefix] = ino
	return ino
}

// refDirNode is one directory of the reference namespace ("heads/",
// "tags/v2/"). Children are deeper namespace directories or the
// grafted root of a reference's commit tree; both present as
// directories. Git forbids a name from being both a reference and a
// prefix of other references, so the two checks in Lookup never
// collide.
type refDirNode struct {
	gofuse.Inode
	mount  *refMount
	prefix string // empty at the namespace root, "heads/" style below
}

var _ gofuse.InodeEmbedder = (*refDirNode)(nil)
var _ gofuse.NodeGetattrer = (*refDirNode)(nil)
var _ gofuse.NodeLookuper = (*refDirNode)(nil)
var _ gofuse.NodeReaddirer = (*refDirNode)(nil)
var _ gofuse.NodeSetattrer = (*refDirNode)(nil)

func (d *refDirNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFDIR | 0o555
	out.Nlink = 1
	when := d.mount.mounted
	out.SetTimes(&when, &when, &when)
	return 0
}

func (d *refDirNode) Setattr(ctx context.Context, f gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	return syscall.EROFS
}

func (d *refDirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	full := d.prefix + name

	if d.mount.hasRef(full) {
		session, err := d.mount.session(full)
		if err != nil {
			d.mount.logger.Warn("resolving reference failed",
				"reference", "refs/"+full,
				"error", err,
			)
			return nil, errnoFor(err)
		}
		attr, err := session.Getattr(session.RootIno())
		if err != nil {
			return nil, errnoFor(err)
		}
		fillAttr(attr, &out.Attr)
		child := d.NewPersistentInode(ctx,
			&dirNode{sessionNode{session: session, ino: session.RootIno()}},
			gofuse.StableAttr{Mode: syscall.S_IFDIR, Ino: attr.Ino},
		)
		return child, 0
	}

	childPrefix := full + "/"
	if d.mount.hasPrefix(childPrefix) {
		out.Mode = syscall.S_IFDIR | 0o555
		child := d.NewPersistentInode(ctx,
			&refDirNode{mount: d.mount, prefix: childPrefix},
			gofuse.StableAttr{Mode: syscall.S_IFDIR, Ino: d.mount.dirIno(childPrefix)},
		)
		return child, 0
	}

	return nil, syscall.ENOENT
}

func (d *refDirNode) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	seen := make(map[string]bool)
	entries := []fuse.DirEntry{
		{Name: ".", Mode: syscall.S_IFDIR},
		{Name: "..", Mode: syscall.S_IFDIR},
	}
	for _, name := range d.mount.names {
		if !strings.HasPrefix(name, d.prefix) {
			continue
		}
		component := strings.TrimPrefix(name, d.prefix)
		if i := strings.IndexByte(component, '/'); i >= 0 {
			component = component[:i]
		}
		if component == "" || seen[component] {
			continue
		}
		seen[component] = true
		entries = append(entries, fuse.DirEntry{Name: component, Mode: syscall.S_IFDIR})
	}
	return &sliceDirStream{entries: entries}, 0
}
