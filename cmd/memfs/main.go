package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/brettbedarf/memfs/config"
	"github.com/brettbedarf/memfs/internal/util"
	"github.com/brettbedarf/memfs/shell"
	"github.com/brettbedarf/memfs/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command line arguments
	var (
		configPath string
		verbose    int
		statePath  string
		storeType  string
		format     string
	)
	flag.StringVar(&configPath, "config", "", "Path to a YAML or JSON config file")
	flag.StringVar(&configPath, "c", "", "--config (shorthand)")
	flag.IntVar(&verbose, "verbose", 0, "Log verbosity level between 1 (error) and 5 (trace). Default is 3 (info).")
	flag.IntVar(&verbose, "v", 0, "--verbose (shorthand)")
	flag.StringVar(&statePath, "state", "", "State file (file store) or database dir (badger store)")
	flag.StringVar(&storeType, "store", "", "Snapshot store: file, badger, s3 or memory")
	flag.StringVar(&format, "format", "", "Snapshot format: json or yaml")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <command> [args...]\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "       %s [flags] shell\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(), "\nRun '%s help' for the command list.\n", os.Args[0])
	}
	flag.Parse()

	override := &config.ConfigOverride{}
	if verbose != 0 {
		override.LogLvl = &verbose
	}
	if format != "" {
		override.SnapshotFormat = &format
	}
	if storeType != "" || statePath != "" {
		override.Store = &config.StoreOverride{Options: map[string]any{}}
		if storeType != "" {
			override.Store.Type = &storeType
		}
		if statePath != "" {
			override.Store.Options["path"] = statePath
		}
	}

	cfg, err := config.Load(configPath, override)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	// Initialize logger
	util.InitializeLogger(cfg.LogLvl)
	logger := util.GetLogger("main")
	logger.Debug().Str("store", cfg.Store.Type).Str("format", cfg.SnapshotFormat).Msg("memfs initializing")

	// Setup signal handling so an interactive shell exits cleanly
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, cfg.Store.Type, cfg.Store.Options)
	if err != nil {
		logger.Error().Err(err).Str("store", cfg.Store.Type).Msg("Failed to open snapshot store")
		return 1
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close snapshot store")
		}
	}()

	r, err := shell.New(ctx, cfg, st, os.Stdout, os.Stderr)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load filesystem state")
		return 1
	}

	args := flag.Args()
	if len(args) > 0 && args[0] == "shell" {
		if err := r.REPL(ctx, os.Stdin); err != nil {
			logger.Error().Err(err).Msg("Shell stopped")
			return 1
		}
		return 0
	}
	if err := r.Run(ctx, args); err != nil {
		r.Report(err)
		return 1
	}
	return 0
}
