// Package shell maps command lines onto filesystem operations, renders their
// results and persists state between invocations through a snapshot store.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/config"
	"github.com/brettbedarf/memfs/filesystem"
	"github.com/brettbedarf/memfs/internal/metrics"
	"github.com/brettbedarf/memfs/internal/util"
	"github.com/brettbedarf/memfs/operations"
	"github.com/brettbedarf/memfs/permissions"
	"github.com/brettbedarf/memfs/snapshot"
	"github.com/brettbedarf/memfs/store"
)

// Runner holds one loaded filesystem and session.
type Runner struct {
	cfg     *config.Config
	store   store.Store
	codec   *snapshot.Codec
	metrics *metrics.Prometheus

	fs      *operations.FS
	session *operations.Session

	out    io.Writer
	errOut io.Writer
}

// New loads the state saved in st, or builds a fresh filesystem when st is
// empty. Command output goes to out; error messages go to errOut.
func New(ctx context.Context, cfg *config.Config, st store.Store, out, errOut io.Writer) (*Runner, error) {
	codec, err := snapshot.NewCodec(cfg.SnapshotFormat)
	if err != nil {
		return nil, err
	}
	r := &Runner{
		cfg:     cfg,
		store:   st,
		codec:   codec,
		metrics: metrics.NewPrometheus(),
		out:     out,
		errOut:  errOut,
	}
	if err := r.load(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Runner) load(ctx context.Context) error {
	logger := util.GetLogger("Shell.load")

	blob, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if blob == nil {
		logger.Debug().Msg("No saved state; starting fresh")
		return r.fresh()
	}

	fs, s, err := r.codec.Decode(blob, snapshot.Options{
		AuthScheme:  r.cfg.AuthScheme,
		BcryptCost:  r.cfg.BcryptCost,
		DefaultUser: r.cfg.DefaultUser,
		FS:          []operations.Option{operations.WithMetrics(r.metrics)},
	})
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	r.fs, r.session = fs, s
	logger.Debug().Str("user", s.User).Str("cwd", fs.Pwd(s)).Msg("Loaded saved state")
	return nil
}

func (r *Runner) fresh() error {
	creds, err := permissions.NewCredentialStore(r.cfg.AuthScheme, r.cfg.BcryptCost)
	if err != nil {
		return err
	}
	tree := filesystem.NewTree(r.cfg.RootOwner)
	engine := permissions.New(tree, creds)
	if err := engine.Bootstrap(r.cfg.AdminPassword); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	r.fs = operations.New(tree, engine, operations.WithMetrics(r.metrics))
	r.session = r.fs.NewSession(r.cfg.DefaultUser)
	return nil
}

// Save writes the current state to the store.
func (r *Runner) Save(ctx context.Context) error {
	blob, err := r.codec.Encode(r.fs, r.session)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := r.store.Save(ctx, blob); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// FS exposes the loaded filesystem.
func (r *Runner) FS() *operations.FS {
	return r.fs
}

// Session exposes the current session.
func (r *Runner) Session() *operations.Session {
	return r.session
}

// Run executes one command. State is saved after every successful command
// that changes the tree, the accounts or the session.
func (r *Runner) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" {
		r.usage()
		return nil
	}
	cmd, ok := lookup(args[0])
	if !ok {
		return memfs.NewError(memfs.InvalidArgument, args[0], "unknown command")
	}
	args = args[1:]
	if len(args) < cmd.minArgs {
		return memfs.NewError(memfs.InvalidArgument, "", "%s requires %d argument(s): %s %s",
			cmd.name, cmd.minArgs, cmd.name, cmd.usage)
	}
	if err := cmd.run(r, args); err != nil {
		return err
	}
	if cmd.mutates {
		return r.Save(ctx)
	}
	return nil
}

// REPL reads commands line by line from in until EOF or "exit". Failed
// commands are reported and do not stop the loop; store failures do.
func (r *Runner) REPL(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(r.out, "%s:%s$ ", r.session.User, r.fs.Pwd(r.session))
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		err := r.Run(ctx, args)
		if err == nil {
			continue
		}
		r.Report(err)
		if _, domain := memfs.CodeOf(err); !domain {
			return err
		}
	}
}

// Report prints err the way every command failure is shown.
func (r *Runner) Report(err error) {
	fmt.Fprintf(r.errOut, "Error: %v\n", err)
}

func (r *Runner) usage() {
	fmt.Fprintln(r.out, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(r.out, "  %-18s %s\n", cmd.name, cmd.usage)
	}
}
