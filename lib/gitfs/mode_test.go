// Copyright 2026 The gitfs Authors
// SPDX-License-Identifier: Apache-2.0

package gitfs

import (
	"errors"
	"testing"

	"github.com/refmount/gitfs/lib/gitobj"
)

func TestKindForMode(t *testing.T) {
	tests := []struct {
		mode uint32
		want Kind
	}{
		{0o040000, KindDir},
		{0o100644, KindFile},
		{0o100664, KindFile},
		{0o100755, KindFile},
		{0o120000, KindSymlink},
		{0o160000, KindSubmodule},
	}
	for _, test := range tests {
		got, err := kindForMode(test.mode)
		if err != nil {
			t.Errorf("kindForMode(%o): %v", test.mode, err)
			continue
		}
		if got != test.want {
			t.Errorf("kindForMode(%o) = %v, want %v", test.mode, got, test.want)
		}
	}
}

func TestKindForModeUnknown(t *testing.T) {
	for _, mode := range []uint32{0, 0o100600, 0o170000, 0o777} {
		_, err := kindForMode(mode)
		if !errors.Is(err, gitobj.ErrCorrupt) {
			t.Errorf("kindForMode(%o) = %v, want ErrCorrupt", mode, err)
		}
	}
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		KindFile:      "file",
		KindDir:       "directory",
		KindSymlink:   "symlink",
		KindSubmodule: "submodule",
	}
	for kind, want := range tests {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", kind, got, want)
		}
	}
}
