package permissions

import (
	"sort"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/filesystem"
	"github.com/brettbedarf/memfs/internal/util"
)

const (
	// AdminUser passes every permission check and alone may manage users,
	// groups and grants.
	AdminUser = "admin"

	// DefaultAdminPassword is the admin credential seeded by Bootstrap when
	// none is configured.
	DefaultAdminPassword = "admin123"
)

// Engine decides access to nodes and manages users, groups and direct grants.
//
// Check is lock-free. Administrative mutations are serialised on adminMu so
// that, for example, a user deleted concurrently with being added to a group
// cannot end up as a dangling member.
type Engine struct {
	tree    *filesystem.Tree
	creds   CredentialStore
	groups  *xsync.Map[string, *Group]
	adminMu sync.Mutex
}

// New returns an engine over tree with no users or groups.
// Call Bootstrap for a fresh system or restore state with RestoreGroup and
// the credential store's Import.
func New(tree *filesystem.Tree, creds CredentialStore) *Engine {
	if creds == nil {
		creds = NewPlaintextStore()
	}
	return &Engine{
		tree:   tree,
		creds:  creds,
		groups: xsync.NewMap[string, *Group](),
	}
}

// Bootstrap seeds the admin user and the readers, writers and admins groups.
func (e *Engine) Bootstrap(adminPassword string) error {
	if adminPassword == "" {
		adminPassword = DefaultAdminPassword
	}
	e.adminMu.Lock()
	defer e.adminMu.Unlock()
	if err := e.creds.Set(AdminUser, adminPassword); err != nil {
		return err
	}
	for _, g := range defaultGroups() {
		e.groups.Store(g.name, g)
	}
	return nil
}

// Credentials returns the backing credential store.
func (e *Engine) Credentials() CredentialStore {
	return e.creds
}

func (e *Engine) IsAdmin(user string) bool {
	return user == AdminUser
}

// Check returns nil if user may perform action on node. Precedence is admin,
// then owner, then the user's direct grant, then any group containing the user.
func (e *Engine) Check(node *filesystem.Node, user string, action memfs.Action) error {
	if e.IsAdmin(user) || node.Owner() == user {
		return nil
	}
	if p, ok := node.Grant(user); ok && p.Allows(action) {
		return nil
	}
	allowed := false
	e.groups.Range(func(_ string, g *Group) bool {
		if g.HasMember(user) && g.Allows(action) {
			allowed = true
			return false
		}
		return true
	})
	if allowed {
		return nil
	}
	return memfs.Denied(action, node.Path())
}

func (e *Engine) requireAdmin(caller, op string) error {
	if e.IsAdmin(caller) {
		return nil
	}
	return memfs.NewError(memfs.PermissionDenied, caller, "%s requires admin privileges", op)
}

// Authenticate verifies a user's password.
func (e *Engine) Authenticate(user, password string) error {
	if !e.creds.Verify(user, password) {
		return memfs.NewError(memfs.AuthenticationFailed, user, "")
	}
	return nil
}

func (e *Engine) UserExists(user string) bool {
	return e.creds.Exists(user)
}

// SetPermissions updates user's direct grant on node. Nil fields keep their
// prior value, or default to allowed when the user had no grant.
func (e *Engine) SetPermissions(caller string, node *filesystem.Node, user string, read, write *bool) error {
	logger := util.GetLogger("Engine.SetPermissions")

	if err := e.requireAdmin(caller, "set-perms"); err != nil {
		return err
	}
	e.adminMu.Lock()
	defer e.adminMu.Unlock()
	if !e.creds.Exists(user) {
		return memfs.NewError(memfs.NotFound, user, "user not found")
	}

	p, ok := node.Grant(user)
	if !ok {
		p = memfs.FullAccess(user)
	}
	if read != nil {
		p.Read = *read
	}
	if write != nil {
		p.Write = *write
	}
	node.SetGrant(user, p)
	logger.Debug().Str("path", node.Path()).Str("user", user).Bool("read", p.Read).Bool("write", p.Write).Msg("Set direct grant")
	return nil
}

// CreateGroup registers a new group.
func (e *Engine) CreateGroup(caller, name string, read, write bool) error {
	if err := e.requireAdmin(caller, "create-group"); err != nil {
		return err
	}
	if name == "" {
		return memfs.NewError(memfs.InvalidArgument, "", "group name is required")
	}
	e.adminMu.Lock()
	defer e.adminMu.Unlock()
	if _, loaded := e.groups.LoadOrStore(name, newGroup(name, read, write)); loaded {
		return memfs.NewError(memfs.AlreadyExists, name, "group already exists")
	}
	util.GetLogger("Engine.CreateGroup").Debug().Str("group", name).Msg("Created group")
	return nil
}

// DeleteGroup removes a group. The admins group cannot be deleted.
func (e *Engine) DeleteGroup(caller, name string) error {
	if err := e.requireAdmin(caller, "delete-group"); err != nil {
		return err
	}
	e.adminMu.Lock()
	defer e.adminMu.Unlock()
	if _, ok := e.groups.Load(name); !ok {
		return memfs.NewError(memfs.NotFound, name, "group not found")
	}
	if name == GroupAdmins {
		return memfs.NewError(memfs.PermissionDenied, name, "cannot delete the admins group")
	}
	e.groups.Delete(name)
	return nil
}

// AddUserToGroup adds an existing user to an existing group.
func (e *Engine) AddUserToGroup(caller, user, group string) error {
	if err := e.requireAdmin(caller, "add-to-group"); err != nil {
		return err
	}
	e.adminMu.Lock()
	defer e.adminMu.Unlock()
	if !e.creds.Exists(user) {
		return memfs.NewError(memfs.NotFound, user, "user not found")
	}
	g, ok := e.groups.Load(group)
	if !ok {
		return memfs.NewError(memfs.NotFound, group, "group not found")
	}
	g.members.Store(user, struct{}{})
	return nil
}

// RemoveUserFromGroup removes a user from a group. admin always stays in admins.
func (e *Engine) RemoveUserFromGroup(caller, user, group string) error {
	if err := e.requireAdmin(caller, "remove-from-group"); err != nil {
		return err
	}
	e.adminMu.Lock()
	defer e.adminMu.Unlock()
	g, ok := e.groups.Load(group)
	if !ok {
		return memfs.NewError(memfs.NotFound, group, "group not found")
	}
	if user == AdminUser && group == GroupAdmins {
		return memfs.NewError(memfs.PermissionDenied, user, "cannot remove admin from the admins group")
	}
	if !e.creds.Exists(user) && !g.HasMember(user) {
		return memfs.NewError(memfs.NotFound, user, "user not found")
	}
	g.members.Delete(user)
	return nil
}

// ListGroups returns every group sorted by name. Any user may list groups.
func (e *Engine) ListGroups() []GroupInfo {
	out := make([]GroupInfo, 0, e.groups.Size())
	e.groups.Range(func(_ string, g *Group) bool {
		out = append(out, g.Info())
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RestoreGroup installs a group from persisted state, replacing any group
// with the same name.
func (e *Engine) RestoreGroup(info GroupInfo) {
	e.groups.Store(info.Name, newGroup(info.Name, info.Read, info.Write, info.Members...))
}

// SetUser creates a user or changes their password. The admin account cannot
// be modified this way.
func (e *Engine) SetUser(caller, user, password string) error {
	if err := e.requireAdmin(caller, "set-user"); err != nil {
		return err
	}
	if user == AdminUser {
		return memfs.NewError(memfs.PermissionDenied, user, "cannot modify the admin user")
	}
	if user == "" {
		return memfs.NewError(memfs.InvalidArgument, "", "user name is required")
	}
	if password == "" {
		return memfs.NewError(memfs.InvalidArgument, user, "password is required")
	}
	e.adminMu.Lock()
	defer e.adminMu.Unlock()
	if err := e.creds.Set(user, password); err != nil {
		return err
	}
	util.GetLogger("Engine.SetUser").Debug().Str("user", user).Msg("Set user credential")
	return nil
}

// DeleteUser removes a user, drops them from every group and strips their
// direct grant from every node in the tree.
func (e *Engine) DeleteUser(caller, user string) error {
	logger := util.GetLogger("Engine.DeleteUser")

	if err := e.requireAdmin(caller, "delete-user"); err != nil {
		return err
	}
	if user == AdminUser {
		return memfs.NewError(memfs.PermissionDenied, user, "cannot delete the admin user")
	}
	e.adminMu.Lock()
	defer e.adminMu.Unlock()
	if !e.creds.Delete(user) {
		return memfs.NewError(memfs.NotFound, user, "user not found")
	}
	e.groups.Range(func(_ string, g *Group) bool {
		g.members.Delete(user)
		return true
	})
	stripped := 0
	_ = filesystem.Walk(e.tree.Root(), func(n *filesystem.Node) error {
		if n.RevokeGrant(user) {
			stripped++
		}
		return nil
	})
	logger.Debug().Str("user", user).Int("grants", stripped).Msg("Deleted user")
	return nil
}

// ListUsers returns all user names sorted.
func (e *Engine) ListUsers(caller string) ([]string, error) {
	if err := e.requireAdmin(caller, "list-users"); err != nil {
		return nil, err
	}
	return e.creds.Users(), nil
}
