package operations

import (
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/filesystem"
)

// visit is the outcome of examining one node during find.
type visit int

const (
	visitMatch visit = iota // readable and name matches: report and descend
	visitMiss               // readable, no match: descend only
	visitSkip               // not readable: neither report nor descend
	visitAbort              // structural corruption: stop the search
)

// Find searches below the working directory for nodes whose name matches
// the shell glob pattern.
func (fs *FS) Find(s *Session, pattern string) ([]string, error) {
	return fs.FindFrom(s, "", pattern)
}

// FindFrom searches below path, which must be readable when given. Nodes the
// session user cannot read are skipped along with their subtree. Results are
// absolute paths, sorted.
func (fs *FS) FindFrom(s *Session, path, pattern string) (found []string, err error) {
	defer func(start time.Time) { err = fs.done("Find", s, path, start, err) }(time.Now())

	if !doublestar.ValidatePattern(pattern) {
		return nil, memfs.NewError(memfs.InvalidArgument, pattern, "invalid pattern %q", pattern)
	}
	start, err := fs.tree.Resolve(fs.cwd(s), path)
	if err != nil {
		return nil, err
	}
	if !start.IsDir() {
		return nil, memfs.NewError(memfs.NotADirectory, start.Path(), "")
	}
	if path != "" {
		if err := fs.engine.Check(start, s.User, memfs.ActionRead); err != nil {
			return nil, err
		}
	}

	found = []string{}
	onPath := map[*filesystem.Node]bool{}
	if err := fs.find(s.User, start, pattern, onPath, &found); err != nil {
		return nil, err
	}
	sort.Strings(found)
	return found, nil
}

func (fs *FS) find(user string, dir *filesystem.Node, pattern string, onPath map[*filesystem.Node]bool, found *[]string) error {
	onPath[dir] = true
	defer delete(onPath, dir)

	ctx := dir.Lock()
	children := ctx.Children()
	ctx.Close()

	for _, ch := range children {
		switch fs.examine(user, ch, pattern, onPath) {
		case visitAbort:
			return memfs.NewError(memfs.Corrupted, ch.Path(), "directory cycle detected")
		case visitSkip:
			continue
		case visitMatch:
			*found = append(*found, ch.Path())
		}
		if ch.IsDir() {
			if err := fs.find(user, ch, pattern, onPath, found); err != nil {
				return err
			}
		}
	}
	return nil
}

func (fs *FS) examine(user string, n *filesystem.Node, pattern string, onPath map[*filesystem.Node]bool) visit {
	if onPath[n] {
		return visitAbort
	}
	if fs.engine.Check(n, user, memfs.ActionRead) != nil {
		return visitSkip
	}
	if ok, _ := doublestar.Match(pattern, n.Name()); ok {
		return visitMatch
	}
	return visitMiss
}
