package filesystem

import (
	"strings"
	"sync"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/internal/util"
)

// Tree owns the root directory and the structural operations that touch more
// than one node.
//
// Locking: every operation holds at most one node lock at a time, except
// [Tree.Move] which holds the source and destination directory locks together
// while it also holds renameMu. Since no other code path waits on a second
// node lock, and only one mover runs at a time, this cannot deadlock.
type Tree struct {
	root     *Node
	renameMu sync.Mutex // serialises cross-directory moves
}

// NewTree creates a tree with an empty root directory owned by owner.
func NewTree(owner string) *Tree {
	return &Tree{root: NewDir(RootName, owner)}
}

// NewTreeFromRoot wraps an already populated root directory.
func NewTreeFromRoot(root *Node) *Tree {
	root.parent.Store(nil)
	return &Tree{root: root}
}

func (t *Tree) Root() *Node {
	return t.root
}

// Resolve walks p starting at root when absolute, otherwise at cwd (root if nil).
// An empty path resolves to cwd.
func (t *Tree) Resolve(cwd *Node, p string) (*Node, error) {
	logger := util.GetLogger("Tree.Resolve")

	cur := cwd
	if cur == nil || IsAbs(p) {
		cur = t.root
	}
	for _, part := range strings.Split(p, sep) {
		switch part {
		case "", ".":
			continue
		case "..":
			if parent := cur.Parent(); parent != nil {
				cur = parent
			}
			continue
		}
		if !cur.IsDir() {
			return nil, memfs.NewError(memfs.NotADirectory, cur.Path(), "")
		}
		ctx := cur.Lock()
		child, ok := ctx.Child(part)
		ctx.Close()
		if !ok {
			logger.Trace().Str("path", p).Str("component", part).Msg("Component not found")
			return nil, memfs.NewError(memfs.NotFound, join(cur.Path(), part), "")
		}
		cur = child
	}
	return cur, nil
}

// ResolveParent resolves the directory that would hold the last component
// of p and returns it along with the component name.
func (t *Tree) ResolveParent(cwd *Node, p string) (*Node, string, error) {
	dir, base, err := Split(p)
	if err != nil {
		return nil, "", err
	}
	parent, err := t.Resolve(cwd, dir)
	if err != nil {
		return nil, "", err
	}
	if !parent.IsDir() {
		return nil, "", memfs.NewError(memfs.NotADirectory, parent.Path(), "")
	}
	return parent, base, nil
}

// Insert links child under parent.
func (t *Tree) Insert(parent, child *Node) error {
	ctx := parent.Lock()
	defer ctx.Close()
	return ctx.InsertChild(child)
}

// Move relinks node under dest with the given name. Moving within the same
// directory is a rename. The destination name is checked before the node is
// unlinked so a failed move leaves the tree untouched.
func (t *Tree) Move(node, dest *Node, name string) error {
	logger := util.GetLogger("Tree.Move")

	if err := ValidName(name); err != nil {
		return err
	}
	if node == t.root {
		return memfs.NewError(memfs.InvalidArgument, RootName, "cannot move the root directory")
	}
	if !dest.IsDir() {
		return memfs.NewError(memfs.NotADirectory, dest.Path(), "")
	}

	t.renameMu.Lock()
	defer t.renameMu.Unlock()

	src := node.Parent()
	if src == nil {
		return memfs.NewError(memfs.NotFound, node.Path(), "")
	}
	if src == dest {
		ctx := src.Lock()
		defer ctx.Close()
		return ctx.RenameChild(node.Name(), name)
	}
	// parents only change under renameMu, so the ancestor chain is stable here
	if node.IsDir() && node.IsAncestorOf(dest) {
		return memfs.NewError(memfs.InvalidArgument, node.Path(), "cannot move a directory into its own subtree")
	}

	sctx := src.Lock()
	defer sctx.Close()
	dctx := dest.Lock()
	defer dctx.Close()

	oldName := node.Name()
	if cur, ok := sctx.Child(oldName); !ok || cur != node {
		return memfs.NewError(memfs.NotFound, join(src.Path(), oldName), "")
	}
	if dest.Removed() {
		return memfs.NewError(memfs.NotFound, dest.Path(), "directory was removed")
	}
	if _, ok := dctx.Child(name); ok {
		return memfs.NewError(memfs.AlreadyExists, join(dest.Path(), name), "")
	}

	delete(src.children, oldName)
	node.name.Store(&name)
	dest.children[name] = node
	node.parent.Store(dest)
	sctx.Touch()
	dctx.Touch()

	logger.Trace().Str("from", join(src.Path(), oldName)).Str("to", node.Path()).Msg("Moved node")
	return nil
}

// RemoveDir unlinks the named directory from parent. Unless recursive is
// set the directory must be empty. The returned node and its subtree are
// marked removed.
func (t *Tree) RemoveDir(parent *Node, name string, recursive bool) (*Node, error) {
	logger := util.GetLogger("Tree.RemoveDir")

	pctx := parent.Lock()
	child, ok := pctx.Child(name)
	pctx.Close()
	if !ok {
		return nil, memfs.NewError(memfs.NotFound, join(parent.Path(), name), "")
	}
	if !child.IsDir() {
		return nil, memfs.NewError(memfs.NotADirectory, child.Path(), "")
	}

	// mark under the child's lock so no insert can slip in after the
	// emptiness check
	cctx := child.Lock()
	if !recursive && cctx.Len() > 0 {
		cctx.Close()
		return nil, memfs.NewError(memfs.NotEmpty, child.Path(), "")
	}
	child.removed.Store(true)
	cctx.Close()

	pctx = parent.Lock()
	if cur, ok := pctx.Child(name); !ok || cur != child {
		pctx.Close()
		child.removed.Store(false)
		return nil, memfs.NewError(memfs.NotFound, join(parent.Path(), name), "")
	}
	path := child.Path()
	_, err := pctx.RemoveChild(name)
	pctx.Close()
	if err != nil {
		return nil, err
	}

	if recursive {
		_ = Walk(child, func(n *Node) error {
			n.removed.Store(true)
			return nil
		})
	}
	logger.Trace().Str("path", path).Bool("recursive", recursive).Msg("Removed directory")
	return child, nil
}

// RemoveFile unlinks the named file from parent.
func (t *Tree) RemoveFile(parent *Node, name string) (*Node, error) {
	ctx := parent.Lock()
	defer ctx.Close()
	child, ok := ctx.Child(name)
	if !ok {
		return nil, memfs.NewError(memfs.NotFound, join(parent.Path(), name), "")
	}
	if child.IsDir() {
		return nil, memfs.NewError(memfs.NotAFile, child.Path(), "")
	}
	return ctx.RemoveChild(name)
}

// Walk visits n and its descendants depth-first in name order. Each node's
// child list is read under that node's lock, released before fn runs.
// A non-nil error from fn stops the walk and is returned.
func Walk(n *Node, fn func(n *Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	if !n.IsDir() {
		return nil
	}
	ctx := n.Lock()
	children := ctx.Children()
	ctx.Close()
	for _, ch := range children {
		if err := Walk(ch, fn); err != nil {
			return err
		}
	}
	return nil
}
