package operations

import (
	"time"

	"github.com/brettbedarf/memfs/permissions"
)

// Login switches the session to user after verifying the password.
func (fs *FS) Login(s *Session, user, password string) (err error) {
	defer func(start time.Time) { err = fs.done("Login", s, "", start, err) }(time.Now())

	if err := fs.engine.Authenticate(user, password); err != nil {
		return err
	}
	s.User = user
	return nil
}

// SetPermissions updates user's direct grant on the node at path.
// Nil flags keep their prior value.
func (fs *FS) SetPermissions(s *Session, path, user string, read, write *bool) (err error) {
	defer func(start time.Time) { err = fs.done("SetPermissions", s, path, start, err) }(time.Now())

	node, err := fs.tree.Resolve(fs.cwd(s), path)
	if err != nil {
		return err
	}
	return fs.engine.SetPermissions(s.User, node, user, read, write)
}

// ListPermissions reports every source of access to the node at path.
func (fs *FS) ListPermissions(s *Session, path string) (report []permissions.UserPermissions, err error) {
	defer func(start time.Time) { err = fs.done("ListPermissions", s, path, start, err) }(time.Now())

	node, err := fs.tree.Resolve(fs.cwd(s), path)
	if err != nil {
		return nil, err
	}
	return fs.engine.ListPermissions(node), nil
}

func (fs *FS) SetUser(s *Session, user, password string) (err error) {
	defer func(start time.Time) { err = fs.done("SetUser", s, "", start, err) }(time.Now())
	return fs.engine.SetUser(s.User, user, password)
}

func (fs *FS) DeleteUser(s *Session, user string) (err error) {
	defer func(start time.Time) { err = fs.done("DeleteUser", s, "", start, err) }(time.Now())
	return fs.engine.DeleteUser(s.User, user)
}

func (fs *FS) ListUsers(s *Session) (users []string, err error) {
	defer func(start time.Time) { err = fs.done("ListUsers", s, "", start, err) }(time.Now())
	return fs.engine.ListUsers(s.User)
}

func (fs *FS) CreateGroup(s *Session, name string, read, write bool) (err error) {
	defer func(start time.Time) { err = fs.done("CreateGroup", s, "", start, err) }(time.Now())
	return fs.engine.CreateGroup(s.User, name, read, write)
}

func (fs *FS) DeleteGroup(s *Session, name string) (err error) {
	defer func(start time.Time) { err = fs.done("DeleteGroup", s, "", start, err) }(time.Now())
	return fs.engine.DeleteGroup(s.User, name)
}

func (fs *FS) AddUserToGroup(s *Session, user, group string) (err error) {
	defer func(start time.Time) { err = fs.done("AddUserToGroup", s, "", start, err) }(time.Now())
	return fs.engine.AddUserToGroup(s.User, user, group)
}

func (fs *FS) RemoveUserFromGroup(s *Session, user, group string) (err error) {
	defer func(start time.Time) { err = fs.done("RemoveUserFromGroup", s, "", start, err) }(time.Now())
	return fs.engine.RemoveUserFromGroup(s.User, user, group)
}

// ListGroups describes every group. Any user may call it.
func (fs *FS) ListGroups(s *Session) []permissions.GroupInfo {
	defer func(start time.Time) { _ = fs.done("ListGroups", s, "", start, nil) }(time.Now())
	return fs.engine.ListGroups()
}
