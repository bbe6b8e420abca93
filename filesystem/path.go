package filesystem

import (
	"strings"

	"github.com/brettbedarf/memfs"
)

const (
	// RootName is the name of the root directory.
	RootName = "/"
	sep      = "/"
)

// IsAbs reports whether p starts at the root.
func IsAbs(p string) bool {
	return strings.HasPrefix(p, sep)
}

// Normalize collapses empty and "." components and resolves ".." against
// the retained components. ".." with nothing to pop is dropped.
// Absolute paths keep their leading "/", relative paths stay relative.
//
//	Normalize("")                 // ""
//	Normalize("/")                // "/"
//	Normalize("./usr/local")      // "usr/local"
//	Normalize("/usr/../../local") // "/local"
func Normalize(p string) string {
	if p == "" {
		return ""
	}
	parts := make([]string, 0, strings.Count(p, sep)+1)
	for _, part := range strings.Split(p, sep) {
		switch part {
		case "", ".":
		case "..":
			if len(parts) > 0 {
				parts = parts[:len(parts)-1]
			}
		default:
			parts = append(parts, part)
		}
	}
	out := strings.Join(parts, sep)
	if IsAbs(p) {
		return sep + out
	}
	return out
}

// Split separates p into the directory that would contain the final
// component and the component itself. dir is "" when p has no directory part
// (meaning the working directory) and "/" for top-level absolute paths.
// A trailing slash is ignored.
func Split(p string) (dir, base string, err error) {
	trimmed := strings.TrimRight(p, sep)
	i := strings.LastIndex(trimmed, sep)
	base = trimmed[i+1:]
	switch {
	case i < 0:
		dir = ""
	case i == 0:
		dir = sep
	default:
		dir = trimmed[:i]
	}
	if err := ValidName(base); err != nil {
		return "", "", memfs.NewError(memfs.InvalidPath, p, "invalid name %q", base)
	}
	return dir, base, nil
}

// ValidName checks that name can be used as a node name.
func ValidName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return memfs.NewError(memfs.InvalidPath, name, "reserved or empty name")
	case strings.ContainsAny(name, sep+"\x00"):
		return memfs.NewError(memfs.InvalidPath, name, "name contains a separator")
	}
	return nil
}

func join(dir, name string) string {
	if dir == sep {
		return sep + name
	}
	return dir + sep + name
}
