package memfs

import "time"

// Kind is the immutable type of a node, either KindDir or KindFile.
type Kind string

const (
	KindDir  Kind = "dir"
	KindFile Kind = "file"
)

// Action is an access-checked action. Only read and write are enforced.
type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

// Permission is a direct read/write grant recorded on a node for one user.
type Permission struct {
	Owner string `json:"owner" yaml:"owner"` // user the grant belongs to
	Read  bool   `json:"read" yaml:"read"`
	Write bool   `json:"write" yaml:"write"`
}

// Allows reports whether the grant covers action.
func (p Permission) Allows(action Action) bool {
	switch action {
	case ActionRead:
		return p.Read
	case ActionWrite:
		return p.Write
	}
	return false
}

// FullAccess returns the read/write grant given to a node's creator.
func FullAccess(user string) Permission {
	return Permission{Owner: user, Read: true, Write: true}
}

// NodeInfo provides read-only access to node information for listings
type NodeInfo interface {
	// ID returns the node's stable identifier
	ID() string

	// Name returns the node's name (last path component)
	Name() string

	// Kind returns whether the node is a file or a directory
	Kind() Kind

	// Owner returns the user that created the node
	Owner() string

	// Path returns the absolute path to the node
	Path() string

	// Size returns the content length of a file or the child count of a directory
	Size() int

	CreatedAt() time.Time

	// ModifiedAt returns the last content or structure mutation time
	ModifiedAt() time.Time
}
