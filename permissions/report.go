package permissions

import (
	"sort"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/filesystem"
)

// GroupGrant is the access one group contributes to a member.
type GroupGrant struct {
	Group string `json:"group" yaml:"group"`
	Read  bool   `json:"read" yaml:"read"`
	Write bool   `json:"write" yaml:"write"`
}

// UserPermissions lists every source of a user's access to a node.
type UserPermissions struct {
	User   string            `json:"user" yaml:"user"`
	Direct *memfs.Permission `json:"direct,omitempty" yaml:"direct,omitempty"`
	Groups []GroupGrant      `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// Effective ORs the read and write flags of all sources.
func (u UserPermissions) Effective() (read, write bool) {
	if u.Direct != nil {
		read, write = u.Direct.Read, u.Direct.Write
	}
	for _, g := range u.Groups {
		read = read || g.Read
		write = write || g.Write
	}
	return read, write
}

// ListPermissions reports, per user, the direct grant on node and the
// contribution of each group the user belongs to, sorted by user.
// Stored grants are never modified.
func (e *Engine) ListPermissions(node *filesystem.Node) []UserPermissions {
	byUser := make(map[string]*UserPermissions)
	entry := func(user string) *UserPermissions {
		up, ok := byUser[user]
		if !ok {
			up = &UserPermissions{User: user}
			byUser[user] = up
		}
		return up
	}

	for _, p := range node.Grants() {
		direct := p
		entry(p.Owner).Direct = &direct
	}
	for _, g := range e.ListGroups() {
		for _, m := range g.Members {
			up := entry(m)
			up.Groups = append(up.Groups, GroupGrant{Group: g.Name, Read: g.Read, Write: g.Write})
		}
	}

	out := make([]UserPermissions, 0, len(byUser))
	for _, up := range byUser {
		out = append(out, *up)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].User < out[j].User })
	return out
}
