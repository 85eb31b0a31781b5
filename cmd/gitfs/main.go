// Copyright 2026 The gitfs Authors
// SPDX-License-Identifier: Apache-2.0

// gitfs mounts a git repository as a read-only filesystem. The
// repository's contents at a resolved reference are exposed as a
// browsable file hierarchy without checking anything out: directory
// listings, file bytes, and symlink targets are served straight from
// the object store.
//
//	gitfs [flags] <repository> <mountpoint>
//
// The repository may be a worktree or a bare/.git directory. The
// mountpoint must be an existing directory. gitfs runs in the
// foreground until interrupted or unmounted with fusermount -u.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/refmount/gitfs/lib/config"
	gitfsfuse "github.com/refmount/gitfs/lib/gitfs/fuse"
	"github.com/refmount/gitfs/lib/gitobj"
	"github.com/refmount/gitfs/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var reference string
	var allRefs bool
	var allowOther bool
	var configPath string
	var logLevel string
	var logFormat string

	flagSet := pflag.NewFlagSet("gitfs", pflag.ContinueOnError)
	flagSet.StringVar(&reference, "ref", "", "reference or commit hash to mount (default: HEAD)")
	flagSet.BoolVar(&allRefs, "all-refs", false, "mount every reference as a directory tree")
	flagSet.BoolVar(&allowOther, "allow-other", false, "allow other users to access the mount")
	flagSet.StringVar(&configPath, "config", "", "path to gitfs.yaml (default: $GITFS_CONFIG if set)")
	flagSet.StringVar(&logLevel, "log-level", "", "minimum log level: debug, info, warn, error")
	flagSet.StringVar(&logFormat, "log-format", "", "log format: auto, text, json")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("gitfs %s\n", version.Info())
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}

	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	args := flagSet.Args()
	if len(args) != 2 {
		printHelp(flagSet)
		return fmt.Errorf("expected <repository> and <mountpoint> arguments, got %d", len(args))
	}
	repoPath, mountpoint := args[0], args[1]

	if reference != "" && allRefs {
		return fmt.Errorf("--ref and --all-refs are mutually exclusive")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if allowOther {
		cfg.Mount.AllowOther = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.Log)

	store, err := gitobj.Open(repoPath)
	if err != nil {
		return err
	}

	fsName := cfg.Mount.FSName
	if fsName == "" {
		fsName = repoPath
	}

	server, err := gitfsfuse.Mount(gitfsfuse.Options{
		Mountpoint:      mountpoint,
		Store:           store,
		Reference:       reference,
		AllRefs:         allRefs,
		AllowOther:      cfg.Mount.AllowOther,
		FSName:          fsName,
		EntryTimeout:    cfg.Mount.EntryTimeoutDuration(),
		AttrTimeout:     cfg.Mount.AttrTimeoutDuration(),
		NegativeTimeout: cfg.Mount.NegativeTimeoutDuration(),
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Wait returns when the filesystem is unmounted, whether by us
	// on a signal or externally via fusermount -u.
	done := make(chan struct{})
	go func() {
		server.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		logger.Info("signal received, unmounting", "mountpoint", mountpoint)
		if err := server.Unmount(); err != nil {
			return fmt.Errorf("unmounting %s: %w", mountpoint, err)
		}
		<-done
	case <-done:
	}

	logger.Info("unmounted", "mountpoint", mountpoint)
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// newLogger builds the process logger. Auto format picks
// human-readable text on a terminal and JSON when stderr is piped or
// redirected, matching what scripts and log shippers expect.
func newLogger(cfg config.LogConfig) *slog.Logger {
	options := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	format := cfg.Format
	if format == "auto" || format == "" {
		if term.IsTerminal(int(os.Stderr.Fd())) {
			format = "text"
		} else {
			format = "json"
		}
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, options)
	} else {
		handler = slog.NewTextHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `gitfs — mount a git repository as a read-only filesystem.

The repository's contents at a reference are exposed as a browsable
file hierarchy without checking anything out. The default reference
is HEAD; --ref accepts a branch, tag, full ref name, or full commit
hash. With --all-refs the mount mirrors the whole refs/ namespace
instead, one commit tree per reference.

The mount is read-only: every modification attempt fails with EROFS.
gitfs runs in the foreground until interrupted or unmounted with
fusermount -u.

Usage:
  gitfs [flags] <repository> <mountpoint>

Examples:
  # Mount HEAD of the repository in the current directory
  gitfs . /mnt/repo

  # Mount a release tag
  gitfs --ref v2.1.0 /srv/project /mnt/release

  # Mount every branch and tag
  gitfs --all-refs /srv/project /mnt/refs

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
