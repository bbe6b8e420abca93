package permissions

import (
	"sort"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/brettbedarf/memfs"
)

// Built-in groups created by [Engine.Bootstrap].
const (
	GroupReaders = "readers"
	GroupWriters = "writers"
	GroupAdmins  = "admins"
)

// Group grants read and/or write on every node to each of its members.
// The flags are fixed at creation; only membership changes.
type Group struct {
	name    string
	read    bool
	write   bool
	members *xsync.Map[string, struct{}]
}

// GroupInfo is a point-in-time description of a group.
type GroupInfo struct {
	Name    string   `json:"name" yaml:"name"`
	Read    bool     `json:"read" yaml:"read"`
	Write   bool     `json:"write" yaml:"write"`
	Members []string `json:"members" yaml:"members"`
}

func newGroup(name string, read, write bool, members ...string) *Group {
	g := &Group{
		name:    name,
		read:    read,
		write:   write,
		members: xsync.NewMap[string, struct{}](),
	}
	for _, m := range members {
		g.members.Store(m, struct{}{})
	}
	return g
}

func (g *Group) Name() string {
	return g.name
}

// Allows reports whether membership grants action.
func (g *Group) Allows(action memfs.Action) bool {
	switch action {
	case memfs.ActionRead:
		return g.read
	case memfs.ActionWrite:
		return g.write
	}
	return false
}

func (g *Group) HasMember(user string) bool {
	_, ok := g.members.Load(user)
	return ok
}

// Members returns the member names sorted.
func (g *Group) Members() []string {
	out := make([]string, 0, g.members.Size())
	g.members.Range(func(user string, _ struct{}) bool {
		out = append(out, user)
		return true
	})
	sort.Strings(out)
	return out
}

// Info returns a copy of the group's state.
func (g *Group) Info() GroupInfo {
	return GroupInfo{Name: g.name, Read: g.read, Write: g.write, Members: g.Members()}
}

func defaultGroups() []*Group {
	return []*Group{
		newGroup(GroupReaders, true, false),
		newGroup(GroupWriters, true, true),
		newGroup(GroupAdmins, true, true, AdminUser),
	}
}
