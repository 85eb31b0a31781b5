// Copyright 2026 The gitfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for gitfs.
//
// Configuration is optional: every field has a default and the
// command line overrides whatever a file says. A file is read only
// when one is named, either by the GITFS_CONFIG environment variable
// (via [Load]) or a --config flag (via [LoadFile]). There are no
// fallbacks, no ~/.config discovery, and no automatic file search.
//
// Key exports:
//
//   - [Config] -- the full configuration with Mount and Log sections
//   - [Default] -- returns a Config with the built-in defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other gitfs packages.
package config
