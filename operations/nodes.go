package operations

import (
	"time"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/filesystem"
)

// Touch creates an empty file owned by the session user.
func (fs *FS) Touch(s *Session, path string) (err error) {
	defer func(start time.Time) { err = fs.done("Touch", s, path, start, err) }(time.Now())
	return fs.create(s, path, memfs.KindFile)
}

// Mkdir creates an empty directory owned by the session user.
func (fs *FS) Mkdir(s *Session, path string) (err error) {
	defer func(start time.Time) { err = fs.done("Mkdir", s, path, start, err) }(time.Now())
	return fs.create(s, path, memfs.KindDir)
}

func (fs *FS) create(s *Session, path string, kind memfs.Kind) error {
	parent, name, err := fs.tree.ResolveParent(fs.cwd(s), path)
	if err != nil {
		return err
	}
	var node *filesystem.Node
	if kind == memfs.KindDir {
		node = filesystem.NewDir(name, s.User)
	} else {
		node = filesystem.NewFile(name, s.User)
	}

	ctx := parent.Lock()
	defer ctx.Close()
	if err := fs.engine.Check(parent, s.User, memfs.ActionWrite); err != nil {
		return err
	}
	return ctx.InsertChild(node)
}

// Write replaces the content of an existing file.
func (fs *FS) Write(s *Session, path string, content []byte) (err error) {
	defer func(start time.Time) { err = fs.done("Write", s, path, start, err) }(time.Now())
	return fs.update(s, path, func(ctx *filesystem.NodeContext) error {
		return ctx.SetContent(content)
	})
}

// Append adds content to the end of an existing file.
func (fs *FS) Append(s *Session, path string, content []byte) (err error) {
	defer func(start time.Time) { err = fs.done("Append", s, path, start, err) }(time.Now())
	return fs.update(s, path, func(ctx *filesystem.NodeContext) error {
		return ctx.AppendContent(content)
	})
}

func (fs *FS) update(s *Session, path string, fn func(ctx *filesystem.NodeContext) error) error {
	node, err := fs.tree.Resolve(fs.cwd(s), path)
	if err != nil {
		return err
	}
	if err := fs.engine.Check(node, s.User, memfs.ActionWrite); err != nil {
		return err
	}
	if node.IsDir() {
		return memfs.NewError(memfs.NotAFile, node.Path(), "")
	}
	ctx := node.Lock()
	defer ctx.Close()
	return fn(ctx)
}

// Read returns a copy of a file's content.
func (fs *FS) Read(s *Session, path string) (data []byte, err error) {
	defer func(start time.Time) { err = fs.done("Read", s, path, start, err) }(time.Now())

	node, err := fs.tree.Resolve(fs.cwd(s), path)
	if err != nil {
		return nil, err
	}
	if err := fs.engine.Check(node, s.User, memfs.ActionRead); err != nil {
		return nil, err
	}
	if node.IsDir() {
		return nil, memfs.NewError(memfs.NotAFile, node.Path(), "")
	}
	ctx := node.Lock()
	defer ctx.Close()
	return ctx.Content()
}

// Rmdir removes an empty directory.
func (fs *FS) Rmdir(s *Session, path string) (err error) {
	defer func(start time.Time) { err = fs.done("Rmdir", s, path, start, err) }(time.Now())
	return fs.removeDir(s, path, false)
}

// RemoveAll removes a directory and everything below it.
func (fs *FS) RemoveAll(s *Session, path string) (err error) {
	defer func(start time.Time) { err = fs.done("RemoveAll", s, path, start, err) }(time.Now())
	return fs.removeDir(s, path, true)
}

func (fs *FS) removeDir(s *Session, path string, recursive bool) error {
	parent, name, err := fs.tree.ResolveParent(fs.cwd(s), path)
	if err != nil {
		return err
	}
	if err := fs.engine.Check(parent, s.User, memfs.ActionWrite); err != nil {
		return err
	}
	_, err = fs.tree.RemoveDir(parent, name, recursive)
	return err
}

// Remove deletes a file.
func (fs *FS) Remove(s *Session, path string) (err error) {
	defer func(start time.Time) { err = fs.done("Remove", s, path, start, err) }(time.Now())

	parent, name, err := fs.tree.ResolveParent(fs.cwd(s), path)
	if err != nil {
		return err
	}
	if err := fs.engine.Check(parent, s.User, memfs.ActionWrite); err != nil {
		return err
	}
	_, err = fs.tree.RemoveFile(parent, name)
	return err
}

// Move renames or relocates a node. A destination ending in "/" names an
// existing directory to move into, keeping the node's name. Any other
// destination is the node's new path and must not already exist.
func (fs *FS) Move(s *Session, src, dest string) (err error) {
	defer func(start time.Time) { err = fs.done("Move", s, src, start, err) }(time.Now())

	srcParent, name, err := fs.tree.ResolveParent(fs.cwd(s), src)
	if err != nil {
		return err
	}
	if err := fs.engine.Check(srcParent, s.User, memfs.ActionWrite); err != nil {
		return err
	}
	ctx := srcParent.Lock()
	node, ok := ctx.Child(name)
	ctx.Close()
	if !ok {
		return memfs.NewError(memfs.NotFound, src, "")
	}

	var destDir *filesystem.Node
	destName := name
	if len(dest) > 0 && dest[len(dest)-1] == '/' {
		destDir, err = fs.tree.Resolve(fs.cwd(s), dest)
		if err != nil {
			return err
		}
		if !destDir.IsDir() {
			return memfs.NewError(memfs.NotADirectory, destDir.Path(), "")
		}
	} else {
		destDir, destName, err = fs.tree.ResolveParent(fs.cwd(s), dest)
		if err != nil {
			return err
		}
	}
	if destDir != srcParent {
		if err := fs.engine.Check(destDir, s.User, memfs.ActionWrite); err != nil {
			return err
		}
	}
	return fs.tree.Move(node, destDir, destName)
}
