// Copyright 2026 The gitfs Authors
// SPDX-License-Identifier: Apache-2.0

package gitfs

import (
	"fmt"

	"github.com/refmount/gitfs/lib/gitobj"
)

// Kind classifies a path node by its git tree entry mode.
type Kind uint8

const (
	// KindFile is a regular file (mode 100644 or 100755).
	KindFile Kind = iota
	// KindDir is a directory (mode 040000).
	KindDir
	// KindSymlink is a symbolic link (mode 120000). The blob holds
	// the link target text.
	KindSymlink
	// KindSubmodule is a gitlink (mode 160000), exposed as an
	// always-empty directory. The linked commit is never fetched.
	KindSubmodule
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "directory"
	case KindSymlink:
		return "symlink"
	case KindSubmodule:
		return "submodule"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Git tree entry mode words.
const (
	modeDir        uint32 = 0o040000
	modeRegular    uint32 = 0o100644
	modeRegularOld uint32 = 0o100664 // group-writable variant written by ancient git
	modeExecutable uint32 = 0o100755
	modeSymlink    uint32 = 0o120000
	modeSubmodule  uint32 = 0o160000
)

// kindForMode maps a git mode word to a node kind. A mode outside
// the set git is allowed to write means the tree bytes are bad, so
// the failure is classified as corruption.
func kindForMode(mode uint32) (Kind, error) {
	switch mode {
	case modeDir:
		return KindDir, nil
	case modeRegular, modeRegularOld, modeExecutable:
		return KindFile, nil
	case modeSymlink:
		return KindSymlink, nil
	case modeSubmodule:
		return KindSubmodule, nil
	default:
		return 0, fmt.Errorf("tree entry mode %o: %w", mode, gitobj.ErrCorrupt)
	}
}
