package shell

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/brettbedarf/memfs"
)

type command struct {
	name    string
	usage   string
	minArgs int
	// mutates marks commands whose success must be persisted
	mutates bool
	run     func(r *Runner, args []string) error
}

var commands = []command{
	{name: "cd", usage: "<path>", minArgs: 1, mutates: true, run: (*Runner).cd},
	{name: "pwd", run: (*Runner).pwd},
	{name: "mkdir", usage: "<path>", minArgs: 1, mutates: true, run: (*Runner).mkdir},
	{name: "ls", usage: "[-l] [path]", run: (*Runner).ls},
	{name: "stat", usage: "<path>", minArgs: 1, run: (*Runner).stat},
	{name: "rmdir", usage: "[-r] <path>", minArgs: 1, mutates: true, run: (*Runner).rmdir},
	{name: "rm", usage: "<path>", minArgs: 1, mutates: true, run: (*Runner).rm},
	{name: "touch", usage: "<path>", minArgs: 1, mutates: true, run: (*Runner).touch},
	{name: "write", usage: "<path> <content...>", minArgs: 2, mutates: true, run: (*Runner).write},
	{name: "append", usage: "<path> <content...>", minArgs: 2, mutates: true, run: (*Runner).append},
	{name: "read", usage: "<path>", minArgs: 1, run: (*Runner).read},
	{name: "move", usage: "<src> <dest>", minArgs: 2, mutates: true, run: (*Runner).move},
	{name: "find", usage: "[-from path] <pattern>", minArgs: 1, run: (*Runner).find},
	{name: "whoami", run: (*Runner).whoami},
	{name: "login", usage: "<user> <password>", minArgs: 2, mutates: true, run: (*Runner).login},
	{name: "set-user", usage: "<user> <password>", minArgs: 2, mutates: true, run: (*Runner).setUser},
	{name: "delete-user", usage: "<user>", minArgs: 1, mutates: true, run: (*Runner).deleteUser},
	{name: "list-users", run: (*Runner).listUsers},
	{name: "create-group", usage: "[-read=true] [-write=false] <group>", minArgs: 1, mutates: true, run: (*Runner).createGroup},
	{name: "delete-group", usage: "<group>", minArgs: 1, mutates: true, run: (*Runner).deleteGroup},
	{name: "add-to-group", usage: "<user> <group>", minArgs: 2, mutates: true, run: (*Runner).addToGroup},
	{name: "remove-from-group", usage: "<user> <group>", minArgs: 2, mutates: true, run: (*Runner).removeFromGroup},
	{name: "list-groups", run: (*Runner).listGroups},
	{name: "set-perms", usage: "<path> <user> <read|-> <write|->", minArgs: 4, mutates: true, run: (*Runner).setPerms},
	{name: "list-perms", usage: "<path>", minArgs: 1, run: (*Runner).listPerms},
	{name: "metrics", run: (*Runner).printMetrics},
}

func lookup(name string) (command, bool) {
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd, true
		}
	}
	return command{}, false
}

// parseFlags parses fset from args and requires at least n positional
// arguments afterwards.
func parseFlags(fset *flag.FlagSet, args []string, n int) ([]string, error) {
	fset.SetOutput(io.Discard)
	if err := fset.Parse(args); err != nil {
		return nil, memfs.NewError(memfs.InvalidArgument, "", "%s: %v", fset.Name(), err)
	}
	rest := fset.Args()
	if len(rest) < n {
		return nil, memfs.NewError(memfs.InvalidArgument, "", "%s requires %d argument(s)", fset.Name(), n)
	}
	return rest, nil
}

// parseTriState reads "true"/"false" style values; "-" leaves the flag unchanged.
func parseTriState(v string) (*bool, error) {
	if v == "-" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, memfs.NewError(memfs.InvalidArgument, v, "expected true, false or -")
	}
	return &b, nil
}

func (r *Runner) cd(args []string) error {
	if err := r.fs.Cd(r.session, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Changed directory to: %s\n", r.fs.Pwd(r.session))
	return nil
}

func (r *Runner) pwd([]string) error {
	fmt.Fprintln(r.out, r.fs.Pwd(r.session))
	return nil
}

func (r *Runner) mkdir(args []string) error {
	if err := r.fs.Mkdir(r.session, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Created directory: %s\n", args[0])
	return nil
}

func (r *Runner) ls(args []string) error {
	fset := flag.NewFlagSet("ls", flag.ContinueOnError)
	long := fset.Bool("l", false, "long listing")
	rest, err := parseFlags(fset, args, 0)
	if err != nil {
		return err
	}
	path := ""
	if len(rest) > 0 {
		path = rest[0]
	}
	entries, err := r.fs.Ls(r.session, path)
	if err != nil {
		return err
	}
	if *long {
		return renderLong(r.out, entries)
	}
	for _, e := range entries {
		fmt.Fprintln(r.out, e)
	}
	return nil
}

func (r *Runner) stat(args []string) error {
	entry, err := r.fs.Stat(r.session, args[0])
	if err != nil {
		return err
	}
	renderStat(r.out, entry)
	return nil
}

func (r *Runner) rmdir(args []string) error {
	fset := flag.NewFlagSet("rmdir", flag.ContinueOnError)
	recursive := fset.Bool("r", false, "remove contents recursively")
	rest, err := parseFlags(fset, args, 1)
	if err != nil {
		return err
	}
	if *recursive {
		err = r.fs.RemoveAll(r.session, rest[0])
	} else {
		err = r.fs.Rmdir(r.session, rest[0])
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Removed directory: %s\n", rest[0])
	return nil
}

func (r *Runner) rm(args []string) error {
	if err := r.fs.Remove(r.session, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Removed file: %s\n", args[0])
	return nil
}

func (r *Runner) touch(args []string) error {
	if err := r.fs.Touch(r.session, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Created file: %s\n", args[0])
	return nil
}

func (r *Runner) write(args []string) error {
	content := strings.Join(args[1:], " ")
	if err := r.fs.Write(r.session, args[0], []byte(content)); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Wrote to file: %s\n", args[0])
	return nil
}

func (r *Runner) append(args []string) error {
	content := strings.Join(args[1:], " ")
	if err := r.fs.Append(r.session, args[0], []byte(content)); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Appended to file: %s\n", args[0])
	return nil
}

func (r *Runner) read(args []string) error {
	data, err := r.fs.Read(r.session, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Content of %s:\n%s\n", args[0], data)
	return nil
}

func (r *Runner) move(args []string) error {
	if err := r.fs.Move(r.session, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Moved %s to %s\n", args[0], args[1])
	return nil
}

func (r *Runner) find(args []string) error {
	fset := flag.NewFlagSet("find", flag.ContinueOnError)
	from := fset.String("from", "", "directory to search instead of the working directory")
	rest, err := parseFlags(fset, args, 1)
	if err != nil {
		return err
	}
	pattern := rest[0]
	var found []string
	if *from != "" {
		found, err = r.fs.FindFrom(r.session, *from, pattern)
	} else {
		found, err = r.fs.Find(r.session, pattern)
	}
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Fprintf(r.out, "No items found with name: %s\n", pattern)
		return nil
	}
	fmt.Fprintf(r.out, "Found %s at:\n", pattern)
	for _, p := range found {
		fmt.Fprintf(r.out, "  %s\n", p)
	}
	return nil
}

func (r *Runner) whoami([]string) error {
	fmt.Fprintln(r.out, r.session.User)
	return nil
}

func (r *Runner) login(args []string) error {
	if err := r.fs.Login(r.session, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Logged in as %s\n", args[0])
	return nil
}

func (r *Runner) setUser(args []string) error {
	if err := r.fs.SetUser(r.session, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Created user: %s\n", args[0])
	return nil
}

func (r *Runner) deleteUser(args []string) error {
	if err := r.fs.DeleteUser(r.session, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Deleted user: %s\n", args[0])
	return nil
}

func (r *Runner) listUsers([]string) error {
	users, err := r.fs.ListUsers(r.session)
	if err != nil {
		return err
	}
	for _, u := range users {
		fmt.Fprintln(r.out, u)
	}
	return nil
}

func (r *Runner) createGroup(args []string) error {
	fset := flag.NewFlagSet("create-group", flag.ContinueOnError)
	read := fset.Bool("read", true, "members may read")
	write := fset.Bool("write", false, "members may write")
	rest, err := parseFlags(fset, args, 1)
	if err != nil {
		return err
	}
	if err := r.fs.CreateGroup(r.session, rest[0], *read, *write); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Created group: %s (read=%t, write=%t)\n", rest[0], *read, *write)
	return nil
}

func (r *Runner) deleteGroup(args []string) error {
	if err := r.fs.DeleteGroup(r.session, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Deleted group: %s\n", args[0])
	return nil
}

func (r *Runner) addToGroup(args []string) error {
	if err := r.fs.AddUserToGroup(r.session, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Added %s to group %s\n", args[0], args[1])
	return nil
}

func (r *Runner) removeFromGroup(args []string) error {
	if err := r.fs.RemoveUserFromGroup(r.session, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Removed %s from group %s\n", args[0], args[1])
	return nil
}

func (r *Runner) listGroups([]string) error {
	renderGroups(r.out, r.fs.ListGroups(r.session))
	return nil
}

func (r *Runner) setPerms(args []string) error {
	read, err := parseTriState(args[2])
	if err != nil {
		return err
	}
	write, err := parseTriState(args[3])
	if err != nil {
		return err
	}
	if err := r.fs.SetPermissions(r.session, args[0], args[1], read, write); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Set permissions for %s: user=%s, read=%s, write=%s\n",
		args[0], args[1], args[2], args[3])
	return nil
}

func (r *Runner) listPerms(args []string) error {
	report, err := r.fs.ListPermissions(r.session, args[0])
	if err != nil {
		return err
	}
	renderPermissions(r.out, args[0], report)
	return nil
}

func (r *Runner) printMetrics([]string) error {
	return r.metrics.WriteText(r.out)
}
