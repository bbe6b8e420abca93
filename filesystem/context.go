package filesystem

import (
	"sort"
	"time"

	"github.com/brettbedarf/memfs"
)

// NodeContext wraps a locked [Node] (plus any cleanup callbacks).
// The Node's mutex is held for the lifetime of the context, so children,
// content and modification time may be read and mutated through it.
// Calling NodeContext.Close() unwinds all unlocking/cleanup callbacks in reverse order.
// Do NOT invoke any locking methods on the raw Node (Lock, ModifiedAt, Size)
// while this context is active; the mutex is not re-entrant.
//
// NOTE: NodeContext itself is **not** thread-safe meaning references
// to it should not be shared between goroutines
type NodeContext struct {
	node     *Node
	closeFns []func()
}

// Lock locks the Node and returns a new NodeContext for safe access
func (n *Node) Lock() *NodeContext {
	n.mu.Lock()
	ctx := &NodeContext{node: n}
	ctx.AddClose(n.mu.Unlock)
	return ctx
}

// Node returns the locked node.
func (ctx *NodeContext) Node() *Node {
	return ctx.node
}

// Child returns the named child.
func (ctx *NodeContext) Child(name string) (*Node, bool) {
	ch, ok := ctx.node.children[name]
	return ch, ok
}

// Len returns the number of children (0 for files).
func (ctx *NodeContext) Len() int {
	return len(ctx.node.children)
}

// Children returns the unlocked children sorted by name.
// Consumers are responsible for all lock/unlock mechanics of the returned nodes.
func (ctx *NodeContext) Children() []*Node {
	children := make([]*Node, 0, len(ctx.node.children))
	for _, ch := range ctx.node.children {
		children = append(children, ch)
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name() < children[j].Name() })
	return children
}

// InsertChild links child under the locked directory.
// Fails with NotADirectory for files, NotFound if the directory was removed
// and AlreadyExists if a sibling holds the name.
func (ctx *NodeContext) InsertChild(child *Node) error {
	n := ctx.node
	name := child.Name()
	if n.kind != memfs.KindDir {
		return memfs.NewError(memfs.NotADirectory, n.Path(), "")
	}
	if n.Removed() {
		return memfs.NewError(memfs.NotFound, n.Path(), "directory was removed")
	}
	if _, ok := n.children[name]; ok {
		return memfs.NewError(memfs.AlreadyExists, join(n.Path(), name), "")
	}
	n.children[name] = child
	child.parent.Store(n)
	child.removed.Store(false)
	ctx.Touch()
	return nil
}

// RemoveChild unlinks the named child, marks it removed and returns it.
func (ctx *NodeContext) RemoveChild(name string) (*Node, error) {
	n := ctx.node
	ch, ok := n.children[name]
	if !ok {
		return nil, memfs.NewError(memfs.NotFound, join(n.Path(), name), "")
	}
	delete(n.children, name)
	ch.parent.Store(nil)
	ch.removed.Store(true)
	ctx.Touch()
	return ch, nil
}

// RenameChild renames a child within the locked directory.
func (ctx *NodeContext) RenameChild(oldName, newName string) error {
	n := ctx.node
	ch, ok := n.children[oldName]
	if !ok {
		return memfs.NewError(memfs.NotFound, join(n.Path(), oldName), "")
	}
	if _, ok := n.children[newName]; ok {
		return memfs.NewError(memfs.AlreadyExists, join(n.Path(), newName), "")
	}
	delete(n.children, oldName)
	n.children[newName] = ch
	ch.name.Store(&newName)
	ctx.Touch()
	return nil
}

// Content returns a copy of the file content.
func (ctx *NodeContext) Content() ([]byte, error) {
	if ctx.node.kind != memfs.KindFile {
		return nil, memfs.NewError(memfs.NotAFile, ctx.node.Path(), "")
	}
	return append([]byte{}, ctx.node.content...), nil
}

// SetContent replaces the file content.
func (ctx *NodeContext) SetContent(data []byte) error {
	if ctx.node.kind != memfs.KindFile {
		return memfs.NewError(memfs.NotAFile, ctx.node.Path(), "")
	}
	ctx.node.content = append([]byte{}, data...)
	ctx.Touch()
	return nil
}

// AppendContent appends to the file content.
func (ctx *NodeContext) AppendContent(data []byte) error {
	if ctx.node.kind != memfs.KindFile {
		return memfs.NewError(memfs.NotAFile, ctx.node.Path(), "")
	}
	ctx.node.content = append(ctx.node.content, data...)
	ctx.Touch()
	return nil
}

func (ctx *NodeContext) Target() string {
	return ctx.node.target
}

func (ctx *NodeContext) ModifiedAt() time.Time {
	return ctx.node.modified
}

func (ctx *NodeContext) Size() int {
	return ctx.node.sizeLocked()
}

// SetModifiedAt overrides the modification time. Zero is ignored.
func (ctx *NodeContext) SetModifiedAt(t time.Time) {
	if !t.IsZero() {
		ctx.node.modified = t
	}
}

// Touch bumps the modification time.
func (ctx *NodeContext) Touch() {
	ctx.node.modified = time.Now()
}

// AddClose pushes a cleanup callback (e.g., unlock) onto the end of the stack.
func (ctx *NodeContext) AddClose(fn func()) {
	ctx.closeFns = append(ctx.closeFns, fn)
}

// Close unwinds all cleanup callbacks in reverse order.
// Safe to call even if ctx is nil or was already closed, so you can
// `defer ctx.Close()` unconditionally.
//
// Example:
//
//	ctx := node.Lock()
//	defer ctx.Close()
func (ctx *NodeContext) Close() {
	if ctx == nil {
		return
	}
	for i := len(ctx.closeFns) - 1; i >= 0; i-- {
		ctx.closeFns[i]()
	}
	ctx.closeFns = nil
}
