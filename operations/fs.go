// Package operations is the user-facing filesystem API. Every call takes the
// caller's [Session], resolves paths against its working directory, checks
// access through the permission engine and then reads or mutates the tree.
package operations

import (
	"time"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/filesystem"
	"github.com/brettbedarf/memfs/internal/metrics"
	"github.com/brettbedarf/memfs/internal/util"
	"github.com/brettbedarf/memfs/permissions"
)

// Session is the caller-owned identity and working directory.
// A Session must not be shared between goroutines. Removing the working
// directory or one of its ancestors leaves Cwd detached; Pwd keeps
// reporting the old path until the next Cd, and a snapshot reload resets it
// to the root.
type Session struct {
	User string
	Cwd  *filesystem.Node
}

// FS composes the node tree and the permission engine.
type FS struct {
	tree    *filesystem.Tree
	engine  *permissions.Engine
	metrics metrics.Recorder
}

type Option func(*FS)

// WithMetrics records every operation on r.
func WithMetrics(r metrics.Recorder) Option {
	return func(fs *FS) {
		fs.metrics = r
	}
}

func New(tree *filesystem.Tree, engine *permissions.Engine, opts ...Option) *FS {
	fs := &FS{tree: tree, engine: engine}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

func (fs *FS) Tree() *filesystem.Tree {
	return fs.tree
}

func (fs *FS) Engine() *permissions.Engine {
	return fs.engine
}

// NewSession starts a session for user at the root directory.
func (fs *FS) NewSession(user string) *Session {
	return &Session{User: user, Cwd: fs.tree.Root()}
}

func (fs *FS) cwd(s *Session) *filesystem.Node {
	if s.Cwd == nil {
		return fs.tree.Root()
	}
	return s.Cwd
}

// done records the outcome of op and passes err through.
func (fs *FS) done(op string, s *Session, path string, start time.Time, err error) error {
	metrics.Observe(fs.metrics, op, err, start)

	logger := util.GetLogger("FS." + op)
	ev := logger.Debug()
	if _, ok := memfs.CodeOf(err); err != nil && !ok {
		ev = logger.Error()
	}
	ev = ev.Str("user", s.User).Dur("took", time.Since(start))
	if path != "" {
		ev = ev.Str("path", path)
	}
	if err != nil {
		ev.Err(err).Msg("Operation failed")
		return err
	}
	ev.Msg("Operation succeeded")
	return nil
}
