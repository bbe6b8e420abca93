package shell

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/brettbedarf/memfs"
	"github.com/brettbedarf/memfs/operations"
	"github.com/brettbedarf/memfs/permissions"
)

func kindFlag(k memfs.Kind) string {
	if k == memfs.KindDir {
		return "d"
	}
	return "-"
}

func renderLong(w io.Writer, entries []operations.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			kindFlag(e.Kind), e.Owner, humanize.Bytes(uint64(e.Size)), humanize.Time(e.ModifiedAt), e)
	}
	return tw.Flush()
}

func renderStat(w io.Writer, e operations.Entry) {
	fmt.Fprintf(w, "  Path: %s\n", e.Path)
	fmt.Fprintf(w, "    ID: %s\n", e.ID)
	fmt.Fprintf(w, "  Kind: %s\n", e.Kind)
	fmt.Fprintf(w, " Owner: %s\n", e.Owner)
	fmt.Fprintf(w, "  Size: %s (%s bytes)\n", humanize.Bytes(uint64(e.Size)), humanize.Comma(int64(e.Size)))
	fmt.Fprintf(w, "Create: %s (%s)\n", e.CreatedAt.Format("2006-01-02 15:04:05"), humanize.Time(e.CreatedAt))
	fmt.Fprintf(w, "Modify: %s (%s)\n", e.ModifiedAt.Format("2006-01-02 15:04:05"), humanize.Time(e.ModifiedAt))
}

func renderGroups(w io.Writer, groups []permissions.GroupInfo) {
	for _, g := range groups {
		members := "None"
		if len(g.Members) > 0 {
			members = strings.Join(g.Members, ", ")
		}
		fmt.Fprintf(w, "\nGroup: %s\n", g.Name)
		fmt.Fprintf(w, "  Read: %t\n", g.Read)
		fmt.Fprintf(w, "  Write: %t\n", g.Write)
		fmt.Fprintf(w, "  Members: %s\n", members)
	}
}

func renderPermissions(w io.Writer, path string, report []permissions.UserPermissions) {
	fmt.Fprintf(w, "\nPermissions for %s:\n", path)
	for _, u := range report {
		fmt.Fprintf(w, "\nUser: %s\n", u.User)
		if u.Direct != nil {
			fmt.Fprintf(w, "  direct: read=%t, write=%t\n", u.Direct.Read, u.Direct.Write)
		}
		for _, g := range u.Groups {
			fmt.Fprintf(w, "  group %s: read=%t, write=%t\n", g.Group, g.Read, g.Write)
		}
		read, write := u.Effective()
		fmt.Fprintf(w, "  effective: read=%t, write=%t\n", read, write)
	}
}
