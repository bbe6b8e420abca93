package operations

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/filesystem"
	"github.com/brettbedarf/memfs/internal/mocks"
	"github.com/brettbedarf/memfs/internal/util"
	"github.com/brettbedarf/memfs/permissions"
)

const defaultUser = "default_user"

func newTestFS(t *testing.T, opts ...Option) *FS {
	t.Helper()
	tree := filesystem.NewTree(defaultUser)
	engine := permissions.New(tree, permissions.NewPlaintextStore())
	require.NoError(t, engine.Bootstrap(""))
	return New(tree, engine, opts...)
}

func adminSession(t *testing.T, fs *FS) *Session {
	t.Helper()
	s := fs.NewSession(defaultUser)
	require.NoError(t, fs.Login(s, permissions.AdminUser, permissions.DefaultAdminPassword))
	return s
}

func names(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.String())
	}
	return out
}

func TestFS_MkdirTwice(t *testing.T) {
	t.Parallel()
	fs := newTestFS(t)
	s := fs.NewSession(defaultUser)

	require.NoError(t, fs.Mkdir(s, "a"))
	assert.ErrorIs(t, fs.Mkdir(s, "a"), memfs.ErrAlreadyExists)
	assert.ErrorIs(t, fs.Touch(s, "a"), memfs.ErrAlreadyExists)
}

func TestFS_TouchWriteRead(t *testing.T) {
	t.Parallel()
	fs := newTestFS(t)
	s := fs.NewSession(defaultUser)

	require.NoError(t, fs.Touch(s, "a"))
	require.NoError(t, fs.Write(s, "a", []byte("x")))
	data, err := fs.Read(s, "a")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))

	require.NoError(t, fs.Append(s, "/a", []byte("yz")))
	data, err = fs.Read(s, "/a")
	require.NoError(t, err)
	assert.Equal(t, "xyz", string(data))
}

func TestFS_FileErrors(t *testing.T) {
	t.Parallel()
	fs := newTestFS(t)
	s := fs.NewSession(defaultUser)
	require.NoError(t, fs.Mkdir(s, "d"))
	require.NoError(t, fs.Touch(s, "f"))

	_, err := fs.Read(s, "d")
	assert.ErrorIs(t, err, memfs.ErrNotAFile)
	assert.ErrorIs(t, fs.Write(s, "d", []byte("x")), memfs.ErrNotAFile)
	assert.ErrorIs(t, fs.Write(s, "missing", []byte("x")), memfs.ErrNotFound)
	assert.ErrorIs(t, fs.Touch(s, "f/child"), memfs.ErrNotADirectory)
	assert.ErrorIs(t, fs.Touch(s, "d/.."), memfs.ErrInvalidPath)
	assert.ErrorIs(t, fs.Remove(s, "d"), memfs.ErrNotAFile)
	require.NoError(t, fs.Remove(s, "f"))
	_, err = fs.Stat(s, "f")
	assert.ErrorIs(t, err, memfs.ErrNotFound)
}

func TestFS_Cd(t *testing.T) {
	t.Parallel()
	fs := newTestFS(t)
	admin := adminSession(t, fs)
	require.NoError(t, fs.SetUser(admin, "bob", "pw"))
	require.NoError(t, fs.Mkdir(admin, "/locked"))
	require.NoError(t, fs.Mkdir(admin, "/locked/inner"))
	require.NoError(t, fs.Touch(admin, "/file"))

	bob := fs.NewSession(defaultUser)
	require.NoError(t, fs.Login(bob, "bob", "pw"))

	assert.ErrorIs(t, fs.Cd(bob, "/nope"), memfs.ErrNotFound)
	assert.ErrorIs(t, fs.Cd(bob, "/file"), memfs.ErrNotADirectory)
	assert.ErrorIs(t, fs.Cd(bob, "/locked"), memfs.ErrPermissionDenied)
	assert.Equal(t, "/", fs.Pwd(bob))

	require.NoError(t, fs.Cd(admin, "/locked/inner"))
	assert.Equal(t, "/locked/inner", fs.Pwd(admin))
	require.NoError(t, fs.Cd(admin, ".."))
	assert.Equal(t, "/locked", fs.Pwd(admin))

	// root is always reachable, even for a user with no grant on it
	bob.Cwd = admin.Cwd
	require.NoError(t, fs.Cd(bob, "/"))
	assert.Equal(t, "/", fs.Pwd(bob))
	bob.Cwd = admin.Cwd
	require.NoError(t, fs.Cd(bob, ""))
	assert.Same(t, fs.Tree().Root(), bob.Cwd)
	bob.Cwd = admin.Cwd
	require.NoError(t, fs.Cd(bob, "//"))
	assert.Same(t, fs.Tree().Root(), bob.Cwd)

	// paths that merely normalize to the root are still walked
	assert.ErrorIs(t, fs.Cd(admin, "/missing/.."), memfs.ErrNotFound)
	assert.Equal(t, "/locked", fs.Pwd(admin))
}

func TestFS_RemovedCwdRecovers(t *testing.T) {
	t.Parallel()
	fs := newTestFS(t)
	s := fs.NewSession(defaultUser)
	require.NoError(t, fs.Mkdir(s, "a"))
	require.NoError(t, fs.Mkdir(s, "a/b"))
	require.NoError(t, fs.Cd(s, "a/b"))
	cwd := s.Cwd

	require.NoError(t, fs.RemoveAll(s, "/a"))
	assert.Same(t, cwd, s.Cwd, "removal does not move the session")

	require.NoError(t, fs.Cd(s, "/"))
	assert.Equal(t, "/", fs.Pwd(s))
	require.NoError(t, fs.Mkdir(s, "a"))
}

func TestFS_AdminBypassAndDenial(t *testing.T) {
	t.Parallel()
	fs := newTestFS(t)
	owner := fs.NewSession(defaultUser)
	require.NoError(t, fs.Touch(owner, "secret"))

	admin := adminSession(t, fs)
	require.NoError(t, fs.SetUser(admin, "eve", "pw"))
	require.NoError(t, fs.Write(admin, "/secret", []byte("admin was here")))
	data, err := fs.Read(admin, "/secret")
	require.NoError(t, err)
	assert.Equal(t, "admin was here", string(data))

	eve := fs.NewSession(defaultUser)
	require.NoError(t, fs.Login(eve, "eve", "pw"))
	_, err = fs.Read(eve, "/secret")
	assert.ErrorIs(t, err, memfs.ErrPermissionDenied)
	assert.ErrorIs(t, fs.Write(eve, "/secret", []byte("x")), memfs.ErrPermissionDenied)
}

func TestFS_Login(t *testing.T) {
	t.Parallel()
	fs := newTestFS(t)
	s := fs.NewSession(defaultUser)

	assert.ErrorIs(t, fs.Login(s, "admin", "wrong"), memfs.ErrAuthenticationFailed)
	assert.ErrorIs(t, fs.Login(s, "ghost", "x"), memfs.ErrAuthenticationFailed)
	assert.Equal(t, defaultUser, s.User)

	require.NoError(t, fs.Login(s, "admin", "admin123"))
	assert.Equal(t, "admin", s.User)
}

func TestFS_Rmdir(t *testing.T) {
	t.Parallel()
	fs := newTestFS(t)
	s := fs.NewSession(defaultUser)
	require.NoError(t, fs.Mkdir(s, "d"))
	require.NoError(t, fs.Touch(s, "d/f"))

	assert.ErrorIs(t, fs.Rmdir(s, "d"), memfs.ErrNotEmpty)
	assert.ErrorIs(t, fs.Rmdir(s, "d/f"), memfs.ErrNotADirectory)
	assert.ErrorIs(t, fs.Rmdir(s, "nope"), memfs.ErrNotFound)
	assert.ErrorIs(t, fs.Rmdir(s, "/"), memfs.ErrInvalidPath)

	require.NoError(t, fs.Remove(s, "d/f"))
	require.NoError(t, fs.Rmdir(s, "d"))
	entries, err := fs.Ls(s, "/")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFS_RemoveAll(t *testing.T) {
	t.Parallel()
	fs := newTestFS(t)
	s := fs.NewSession(defaultUser)
	require.NoError(t, fs.Mkdir(s, "d"))
	require.NoError(t, fs.Mkdir(s, "d/e"))
	require.NoError(t, fs.Touch(s, "d/e/f"))

	require.NoError(t, fs.RemoveAll(s, "d"))
	_, err := fs.Stat(s, "d")
	assert.ErrorIs(t, err, memfs.ErrNotFound)
}

func TestFS_Move(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T) (*FS, *Session) {
		fs := newTestFS(t)
		s := fs.NewSession(defaultUser)
		require.NoError(t, fs.Mkdir(s, "x"))
		require.NoError(t, fs.Mkdir(s, "x/y"))
		require.NoError(t, fs.Touch(s, "f"))
		require.NoError(t, fs.Touch(s, "g"))
		return fs, s
	}

	t.Run("Rename", func(t *testing.T) {
		t.Parallel()
		fs, s := setup(t)
		require.NoError(t, fs.Move(s, "f", "h"))
		_, err := fs.Stat(s, "h")
		assert.NoError(t, err)
		_, err = fs.Stat(s, "f")
		assert.ErrorIs(t, err, memfs.ErrNotFound)
	})

	t.Run("RenameTaken", func(t *testing.T) {
		t.Parallel()
		fs, s := setup(t)
		assert.ErrorIs(t, fs.Move(s, "f", "g"), memfs.ErrAlreadyExists)
		_, err := fs.Stat(s, "f")
		assert.NoError(t, err)
	})

	t.Run("IntoDirectory", func(t *testing.T) {
		t.Parallel()
		fs, s := setup(t)
		require.NoError(t, fs.Move(s, "f", "x/"))
		_, err := fs.Stat(s, "/x/f")
		assert.NoError(t, err)
	})

	t.Run("IntoDirectoryCollision", func(t *testing.T) {
		t.Parallel()
		fs, s := setup(t)
		require.NoError(t, fs.Touch(s, "x/f"))
		assert.ErrorIs(t, fs.Move(s, "f", "x/"), memfs.ErrAlreadyExists)
		_, err := fs.Stat(s, "/f")
		assert.NoError(t, err, "source must not be detached")
	})

	t.Run("IntoFile", func(t *testing.T) {
		t.Parallel()
		fs, s := setup(t)
		assert.ErrorIs(t, fs.Move(s, "f", "g/"), memfs.ErrNotADirectory)
	})

	t.Run("IntoMissing", func(t *testing.T) {
		t.Parallel()
		fs, s := setup(t)
		assert.ErrorIs(t, fs.Move(s, "f", "nope/"), memfs.ErrNotFound)
		assert.ErrorIs(t, fs.Move(s, "nope", "x/"), memfs.ErrNotFound)
	})

	t.Run("IntoOwnDescendant", func(t *testing.T) {
		t.Parallel()
		fs, s := setup(t)
		before, err := fs.FindFrom(s, "/", "*")
		require.NoError(t, err)

		assert.ErrorIs(t, fs.Move(s, "/x", "/x/y/x"), memfs.ErrInvalidArgument)
		assert.ErrorIs(t, fs.Move(s, "/x", "/x/y/"), memfs.ErrInvalidArgument)

		after, err := fs.FindFrom(s, "/", "*")
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("DestinationDenied", func(t *testing.T) {
		t.Parallel()
		fs, s := setup(t)
		admin := adminSession(t, fs)
		require.NoError(t, fs.Mkdir(admin, "/vault"))
		assert.ErrorIs(t, fs.Move(s, "f", "/vault/"), memfs.ErrPermissionDenied)
	})
}

func TestFS_Find(t *testing.T) {
	t.Parallel()
	fs := newTestFS(t)
	s := fs.NewSession(defaultUser)
	require.NoError(t, fs.Mkdir(s, "src"))
	require.NoError(t, fs.Touch(s, "src/main.go"))
	require.NoError(t, fs.Touch(s, "src/util.go"))
	require.NoError(t, fs.Mkdir(s, "src/pkg"))
	require.NoError(t, fs.Touch(s, "src/pkg/a.go"))
	require.NoError(t, fs.Touch(s, "README"))

	admin := adminSession(t, fs)
	require.NoError(t, fs.Mkdir(admin, "/private"))
	require.NoError(t, fs.Touch(admin, "/private/hidden.go"))
	require.NoError(t, fs.SetUser(admin, "bob", "pw"))
	require.NoError(t, fs.Mkdir(admin, "/secret"))
	require.NoError(t, fs.Touch(admin, "/secret/plan.txt"))
	require.NoError(t, fs.SetPermissions(admin, "/secret/plan.txt", "bob", util.Pointer(true), util.Pointer(false)))

	tests := []struct {
		name    string
		from    string
		pattern string
		want    []string
	}{
		{"Star", "/", "*.go", []string{"/src/main.go", "/src/pkg/a.go", "/src/util.go"}},
		{"Question", "/", "?.go", []string{"/src/pkg/a.go"}},
		{"Class", "/", "[mu]*.go", []string{"/src/main.go", "/src/util.go"}},
		{"Subtree", "/src/pkg", "*", []string{"/src/pkg/a.go"}},
		{"NoMatch", "/", "*.rs", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sess := &Session{User: defaultUser, Cwd: fs.Tree().Root()}
			got, err := fs.FindFrom(sess, tt.from, tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("AdminSeesEverything", func(t *testing.T) {
		t.Parallel()
		got, err := fs.FindFrom(&Session{User: permissions.AdminUser}, "/", "*.go")
		require.NoError(t, err)
		assert.Contains(t, got, "/private/hidden.go")
	})

	t.Run("FromCwd", func(t *testing.T) {
		t.Parallel()
		sess := &Session{User: defaultUser, Cwd: fs.Tree().Root()}
		require.NoError(t, fs.Cd(sess, "src/pkg"))
		got, err := fs.Find(sess, "a.go")
		require.NoError(t, err)
		assert.Equal(t, []string{"/src/pkg/a.go"}, got)
	})

	t.Run("UnreadableStart", func(t *testing.T) {
		t.Parallel()
		bob := &Session{User: "bob", Cwd: fs.Tree().Root()}
		_, err := fs.FindFrom(bob, "/secret", "*")
		assert.ErrorIs(t, err, memfs.ErrPermissionDenied)

		_, err = fs.Ls(bob, "/secret")
		assert.ErrorIs(t, err, memfs.ErrPermissionDenied)
	})

	t.Run("BadPattern", func(t *testing.T) {
		t.Parallel()
		_, err := fs.Find(&Session{User: defaultUser}, "[")
		assert.ErrorIs(t, err, memfs.ErrInvalidArgument)
	})
}

func TestFS_LsAndStat(t *testing.T) {
	t.Parallel()
	fs := newTestFS(t)
	s := fs.NewSession(defaultUser)
	require.NoError(t, fs.Mkdir(s, "b"))
	require.NoError(t, fs.Touch(s, "a"))
	require.NoError(t, fs.Write(s, "a", []byte("12345")))

	entries, err := fs.Ls(s, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b/"}, names(entries))

	entries, err = fs.Ls(s, "a")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 5, entries[0].Size)

	info, err := fs.Stat(s, "/b")
	require.NoError(t, err)
	assert.Equal(t, "/b", info.Path)
	assert.Equal(t, memfs.KindDir, info.Kind)
	assert.Equal(t, defaultUser, info.Owner)
}

func TestFS_PathRoundTrip(t *testing.T) {
	t.Parallel()
	fs := newTestFS(t)
	s := fs.NewSession(defaultUser)
	require.NoError(t, fs.Mkdir(s, "a"))
	require.NoError(t, fs.Mkdir(s, "a/b"))
	require.NoError(t, fs.Touch(s, "a/b/c"))

	require.NoError(t, filesystem.Walk(fs.Tree().Root(), func(n *filesystem.Node) error {
		got, err := fs.Tree().Resolve(nil, n.Path())
		require.NoError(t, err)
		assert.Same(t, n, got, n.Path())
		return nil
	}))
}

func TestFS_Permissions(t *testing.T) {
	t.Parallel()
	fs := newTestFS(t)
	admin := adminSession(t, fs)
	require.NoError(t, fs.SetUser(admin, "bob", "pw"))
	require.NoError(t, fs.Mkdir(admin, "/d"))

	bob := fs.NewSession(defaultUser)
	require.NoError(t, fs.Login(bob, "bob", "pw"))
	assert.ErrorIs(t, fs.SetPermissions(bob, "/d", "bob", util.Pointer(true), nil), memfs.ErrPermissionDenied)
	assert.ErrorIs(t, fs.SetPermissions(admin, "/nope", "bob", util.Pointer(true), nil), memfs.ErrNotFound)

	require.NoError(t, fs.SetPermissions(admin, "/d", "bob", util.Pointer(true), util.Pointer(false)))
	report, err := fs.ListPermissions(bob, "/d")
	require.NoError(t, err)
	var found bool
	for _, up := range report {
		if up.User == "bob" {
			found = true
			read, write := up.Effective()
			assert.True(t, read)
			assert.False(t, write)
		}
	}
	assert.True(t, found)

	users, err := fs.ListUsers(admin)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "bob"}, users)
}

func TestFS_BobScenario(t *testing.T) {
	t.Parallel()
	fs := newTestFS(t)
	admin := adminSession(t, fs)
	require.NoError(t, fs.SetUser(admin, "bob", "secret"))
	require.NoError(t, fs.Mkdir(admin, "/shared"))

	bob := fs.NewSession(defaultUser)
	require.NoError(t, fs.Login(bob, "bob", "secret"))
	err := fs.Mkdir(bob, "/shared/docs")
	require.ErrorIs(t, err, memfs.ErrPermissionDenied)

	require.NoError(t, fs.SetPermissions(admin, "/shared", "bob", nil, util.Pointer(true)))

	require.NoError(t, fs.Cd(bob, "/shared"))
	require.NoError(t, fs.Mkdir(bob, "docs"))
	entries, err := fs.Ls(bob, "")
	require.NoError(t, err)
	assert.Contains(t, names(entries), "docs/")
}

func TestFS_DeleteUserCascade(t *testing.T) {
	t.Parallel()
	fs := newTestFS(t)
	admin := adminSession(t, fs)
	require.NoError(t, fs.SetUser(admin, "u", "pw"))
	require.NoError(t, fs.AddUserToGroup(admin, "u", permissions.GroupWriters))
	require.NoError(t, fs.CreateGroup(admin, "ops", true, false))
	require.NoError(t, fs.AddUserToGroup(admin, "u", "ops"))
	require.NoError(t, fs.Mkdir(admin, "/a"))
	require.NoError(t, fs.Touch(admin, "/a/f"))
	require.NoError(t, fs.SetPermissions(admin, "/a", "u", nil, nil))
	require.NoError(t, fs.SetPermissions(admin, "/a/f", "u", nil, nil))

	require.NoError(t, fs.DeleteUser(admin, "u"))

	for _, g := range fs.ListGroups(admin) {
		assert.NotContains(t, g.Members, "u")
	}
	require.NoError(t, filesystem.Walk(fs.Tree().Root(), func(n *filesystem.Node) error {
		for _, p := range n.Grants() {
			assert.NotEqual(t, "u", p.Owner, n.Path())
		}
		return nil
	}))
}

func TestFS_GroupGrantAllowsWrite(t *testing.T) {
	t.Parallel()
	fs := newTestFS(t)
	admin := adminSession(t, fs)
	require.NoError(t, fs.SetUser(admin, "w", "pw"))
	require.NoError(t, fs.Mkdir(admin, "/team"))

	w := fs.NewSession(defaultUser)
	require.NoError(t, fs.Login(w, "w", "pw"))
	assert.ErrorIs(t, fs.Touch(w, "/team/x"), memfs.ErrPermissionDenied)

	require.NoError(t, fs.AddUserToGroup(admin, "w", permissions.GroupWriters))
	require.NoError(t, fs.Touch(w, "/team/x"))

	require.NoError(t, fs.RemoveUserFromGroup(admin, "w", permissions.GroupWriters))
	assert.ErrorIs(t, fs.Touch(w, "/team/y"), memfs.ErrPermissionDenied)
	require.NoError(t, fs.DeleteGroup(admin, "readers"))
}

func TestFS_ConcurrentSessions(t *testing.T) {
	t.Parallel()
	fs := newTestFS(t)
	setup := fs.NewSession(defaultUser)
	require.NoError(t, fs.Mkdir(setup, "shared"))

	var g errgroup.Group
	for i := range 16 {
		g.Go(func() error {
			s := fs.NewSession(defaultUser)
			if err := fs.Cd(s, "shared"); err != nil {
				return err
			}
			dir := fmt.Sprintf("w%d", i)
			if err := fs.Mkdir(s, dir); err != nil {
				return err
			}
			for j := range 10 {
				name := fmt.Sprintf("%s/f%d", dir, j)
				if err := fs.Touch(s, name); err != nil {
					return err
				}
				if err := fs.Write(s, name, []byte(name)); err != nil {
					return err
				}
			}
			_, err := fs.Find(s, "*")
			return err
		})
	}
	require.NoError(t, g.Wait())

	found, err := fs.FindFrom(setup, "/shared", "f*")
	require.NoError(t, err)
	assert.Len(t, found, 160)
}

func TestFS_RecordsMetrics(t *testing.T) {
	t.Parallel()
	rec := &mocks.MockRecorder{}
	rec.On("ObserveOp", "Mkdir", nil, mock.Anything).Once()
	rec.On("ObserveOp", "Mkdir", mock.MatchedBy(func(err error) bool {
		code, ok := memfs.CodeOf(err)
		return ok && code == memfs.AlreadyExists
	}), mock.Anything).Once()

	fs := newTestFS(t, WithMetrics(rec))
	s := fs.NewSession(defaultUser)
	require.NoError(t, fs.Mkdir(s, "a"))
	require.Error(t, fs.Mkdir(s, "a"))

	rec.AssertExpectations(t)
}

func TestEntryOf(t *testing.T) {
	t.Parallel()
	fs := newTestFS(t)
	s := fs.NewSession(defaultUser)
	require.NoError(t, fs.Mkdir(s, "d"))
	require.NoError(t, fs.Touch(s, "d/f"))
	require.NoError(t, fs.Write(s, "d/f", []byte("abc")))

	n, err := fs.Tree().Resolve(nil, "/d/f")
	require.NoError(t, err)
	var info memfs.NodeInfo = n
	e := entryOf(info)
	assert.Equal(t, n.ID(), e.ID)
	assert.Equal(t, "/d/f", e.Path)
	assert.Equal(t, "f", e.String())
	assert.Equal(t, 3, e.Size)
	assert.Equal(t, defaultUser, e.Owner)
	assert.False(t, e.CreatedAt.IsZero())
}
