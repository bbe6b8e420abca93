package operations

import (
	"strings"
	"time"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/filesystem"
)

// Cd changes the session's working directory. "" and "/" always return to
// the root regardless of permissions.
func (fs *FS) Cd(s *Session, path string) (err error) {
	defer func(start time.Time) { err = fs.done("Cd", s, path, start, err) }(time.Now())

	if strings.Trim(path, filesystem.RootName) == "" {
		s.Cwd = fs.tree.Root()
		return nil
	}
	node, err := fs.tree.Resolve(fs.cwd(s), path)
	if err != nil {
		return err
	}
	if !node.IsDir() {
		return memfs.NewError(memfs.NotADirectory, node.Path(), "")
	}
	if err := fs.engine.Check(node, s.User, memfs.ActionRead); err != nil {
		return err
	}
	s.Cwd = node
	return nil
}

// Pwd returns the absolute path of the working directory.
func (fs *FS) Pwd(s *Session) string {
	return fs.cwd(s).Path()
}

// Entry describes one listed node.
type Entry struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	Path       string     `json:"path" yaml:"path"`
	Kind       memfs.Kind `json:"kind" yaml:"kind"`
	Owner      string     `json:"owner" yaml:"owner"`
	Size       int        `json:"size" yaml:"size"`
	CreatedAt  time.Time  `json:"created_at" yaml:"created_at"`
	ModifiedAt time.Time  `json:"modified_at" yaml:"modified_at"`
}

// String returns the entry name with a trailing "/" for directories.
func (e Entry) String() string {
	if e.Kind == memfs.KindDir {
		return e.Name + "/"
	}
	return e.Name
}

func entryOf(n memfs.NodeInfo) Entry {
	return Entry{
		ID:         n.ID(),
		Name:       n.Name(),
		Path:       n.Path(),
		Kind:       n.Kind(),
		Owner:      n.Owner(),
		Size:       n.Size(),
		CreatedAt:  n.CreatedAt(),
		ModifiedAt: n.ModifiedAt(),
	}
}

// Ls lists a directory's children sorted by name, or the file itself.
// Requires read on the target.
func (fs *FS) Ls(s *Session, path string) (entries []Entry, err error) {
	defer func(start time.Time) { err = fs.done("Ls", s, path, start, err) }(time.Now())

	node, err := fs.tree.Resolve(fs.cwd(s), path)
	if err != nil {
		return nil, err
	}
	if err := fs.engine.Check(node, s.User, memfs.ActionRead); err != nil {
		return nil, err
	}
	if !node.IsDir() {
		return []Entry{entryOf(node)}, nil
	}
	ctx := node.Lock()
	children := ctx.Children()
	ctx.Close()

	entries = make([]Entry, 0, len(children))
	for _, ch := range children {
		entries = append(entries, entryOf(ch))
	}
	return entries, nil
}

// Stat describes a single node. Requires read on the node.
func (fs *FS) Stat(s *Session, path string) (entry Entry, err error) {
	defer func(start time.Time) { err = fs.done("Stat", s, path, start, err) }(time.Now())

	node, err := fs.tree.Resolve(fs.cwd(s), path)
	if err != nil {
		return Entry{}, err
	}
	if err := fs.engine.Check(node, s.User, memfs.ActionRead); err != nil {
		return Entry{}, err
	}
	return entryOf(node), nil
}
