package filesystem

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/brettbedarf/memfs"
)

// Node is a single file or directory in the tree.
//
// Identity fields (id, kind, owner, created) are immutable. name and parent
// are atomic so ancestor walks never need a lock. children, content and
// modified are guarded by mu and must only be touched through a
// [NodeContext] obtained with [Node.Lock].
type Node struct {
	id      uuid.UUID
	kind    memfs.Kind
	owner   string
	created time.Time

	name    atomic.Pointer[string]
	parent  atomic.Pointer[Node] // non-owning; nil for root and detached nodes
	removed atomic.Bool

	mu       sync.Mutex
	children map[string]*Node // nil for files. Protected by mu
	content  []byte           // nil for directories. Protected by mu
	modified time.Time        // Protected by mu
	target   string           // symlink placeholder, never interpreted. Protected by mu

	grants *xsync.Map[string, memfs.Permission] // direct per-user grants
}

// NodeSpec describes a node to construct. Zero ID and times are filled in.
type NodeSpec struct {
	ID         uuid.UUID
	Name       string
	Kind       memfs.Kind
	Owner      string
	Content    []byte
	Target     string
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// NewNode creates a detached node from spec. The creator does not get a
// grant here; callers that create nodes on behalf of a user add it.
//
// NOTE: Parent node is responsible for linking the returned Node with
// [NodeContext.InsertChild]
func NewNode(spec NodeSpec) *Node {
	now := time.Now()
	n := &Node{
		id:       spec.ID,
		kind:     spec.Kind,
		owner:    spec.Owner,
		created:  spec.CreatedAt,
		modified: spec.ModifiedAt,
		target:   spec.Target,
		grants:   xsync.NewMap[string, memfs.Permission](),
	}
	if n.id == uuid.Nil {
		n.id = uuid.New()
	}
	if n.created.IsZero() {
		n.created = now
	}
	if n.modified.IsZero() {
		n.modified = n.created
	}
	if n.kind == memfs.KindDir {
		n.children = make(map[string]*Node)
	} else {
		n.kind = memfs.KindFile
		n.content = append([]byte{}, spec.Content...)
	}
	name := spec.Name
	n.name.Store(&name)
	return n
}

// NewDir creates a detached directory owned by owner with a full self-grant.
func NewDir(name, owner string) *Node {
	n := NewNode(NodeSpec{Name: name, Kind: memfs.KindDir, Owner: owner})
	n.SetGrant(owner, memfs.FullAccess(owner))
	return n
}

// NewFile creates a detached empty file owned by owner with a full self-grant.
func NewFile(name, owner string) *Node {
	n := NewNode(NodeSpec{Name: name, Kind: memfs.KindFile, Owner: owner})
	n.SetGrant(owner, memfs.FullAccess(owner))
	return n
}

// ID returns the node's stable identifier.
func (n *Node) ID() string {
	return n.id.String()
}

func (n *Node) Name() string {
	return *n.name.Load()
}

func (n *Node) Kind() memfs.Kind {
	return n.kind
}

func (n *Node) IsDir() bool {
	return n.kind == memfs.KindDir
}

func (n *Node) Owner() string {
	return n.owner
}

func (n *Node) CreatedAt() time.Time {
	return n.created
}

// Parent returns the containing directory, or nil for root and detached nodes.
func (n *Node) Parent() *Node {
	return n.parent.Load()
}

// Removed reports whether the node has been detached from the tree.
func (n *Node) Removed() bool {
	return n.removed.Load()
}

// Path returns the absolute path of the node built from parent links.
// Root maps to "/". A detached node yields its own name under "/".
func (n *Node) Path() string {
	var parts []string
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.Parent() == nil && cur.Name() == RootName {
			break
		}
		parts = append(parts, cur.Name())
	}
	if len(parts) == 0 {
		return "/"
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}

// ModifiedAt returns the last mutation time.
// Not to be called while this node is locked in a NodeContext
func (n *Node) ModifiedAt() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.modified
}

// Size returns the content length of a file or the child count of a directory.
// Not to be called while this node is locked in a NodeContext
func (n *Node) Size() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sizeLocked()
}

func (n *Node) sizeLocked() int {
	if n.kind == memfs.KindDir {
		return len(n.children)
	}
	return len(n.content)
}

// Grant returns the direct grant recorded for user.
func (n *Node) Grant(user string) (memfs.Permission, bool) {
	return n.grants.Load(user)
}

// SetGrant records a direct grant for user, replacing any previous one.
func (n *Node) SetGrant(user string, p memfs.Permission) {
	p.Owner = user
	n.grants.Store(user, p)
}

// RevokeGrant removes the direct grant for user and reports whether one existed.
func (n *Node) RevokeGrant(user string) bool {
	_, ok := n.grants.LoadAndDelete(user)
	return ok
}

// Grants returns a copy of all direct grants sorted by user.
func (n *Node) Grants() []memfs.Permission {
	out := make([]memfs.Permission, 0, n.grants.Size())
	n.grants.Range(func(user string, p memfs.Permission) bool {
		p.Owner = user
		out = append(out, p)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })
	return out
}

// IsAncestorOf reports whether n is an ancestor of (or the same node as) other,
// following parent links from other up to the root.
func (n *Node) IsAncestorOf(other *Node) bool {
	for cur := other; cur != nil; cur = cur.Parent() {
		if cur == n {
			return true
		}
	}
	return false
}

var _ memfs.NodeInfo = (*Node)(nil)
