package store

import (
	"path"
	"strings"
)

// Root is the path of the root group.
const Root = "/"

// Clean returns the canonical absolute form of p.
func Clean(p string) string {
	return path.Clean("/" + strings.Trim(p, "/"))
}

// Join appends name to a group path.
func Join(parent, name string) string {
	return Clean(parent + "/" + name)
}

// Split returns the parent group path and the node name.
func Split(p string) (parent, name string) {
	p = Clean(p)
	if p == Root {
		return Root, ""
	}
	return path.Dir(p), path.Base(p)
}

// FromDotPath converts a dot separated path such as entry.instrument.source
// into a store path.
func FromDotPath(dot string) string {
	return Clean(strings.ReplaceAll(strings.Trim(dot, "."), ".", "/"))
}
