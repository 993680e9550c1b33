package arena

import (
	"strings"

	"github.com/example/arenafs/pkg/fs"
)

// splitPath tokenizes a slash-separated path. Repeated and trailing
// slashes are tolerated; "/" and "" produce no components.
func splitPath(path string) []string {
	var comps []string
	for _, c := range strings.Split(path, "/") {
		if c != "" {
			comps = append(comps, c)
		}
	}
	return comps
}

// checkEntryName rejects the synthetic "." and ".." names as the
// target of a mutating operation. Removing a directory's own "."
// entry would free the directory while its parent still references
// it; creating either name would shadow the synthetic slots.
func checkEntryName(name string) error {
	if name == "." || name == ".." {
		return fs.ErrInvalid
	}
	return nil
}

// resolve walks path from the root object and returns the inode it
// names. A missing component, or a non-final component that names a
// regular file, fails with ErrNotExist.
func (m *ArenaFS) resolve(sb superblock, path string) (node, error) {
	cur, err := m.node(sb, sb.rootOff())
	if err != nil {
		return node{}, err
	}
	comps := splitPath(path)
	for i, comp := range comps {
		if !cur.isDir() {
			return node{}, fs.ErrNotExist
		}
		idx, off, err := m.findEntry(cur, comp)
		if err != nil {
			return node{}, err
		}
		if idx < 0 {
			return node{}, fs.ErrNotExist
		}
		next, err := m.node(sb, off)
		if err != nil {
			return node{}, err
		}
		if i < len(comps)-1 && !next.isDir() {
			return node{}, fs.ErrNotExist
		}
		cur = next
	}
	return cur, nil
}

// resolveParent resolves all but the final component of path to a
// directory and hands the final component back for the caller to
// create, look up, or remove itself. The root path resolves to the
// root directory paired with "/", since the root has no parent to
// split off.
func (m *ArenaFS) resolveParent(sb superblock, path string) (node, string, error) {
	root, err := m.node(sb, sb.rootOff())
	if err != nil {
		return node{}, "", err
	}
	comps := splitPath(path)
	if len(comps) == 0 {
		return root, "/", nil
	}
	cur := root
	for _, comp := range comps[:len(comps)-1] {
		idx, off, err := m.findEntry(cur, comp)
		if err != nil {
			return node{}, "", err
		}
		if idx < 0 {
			return node{}, "", fs.ErrNotExist
		}
		next, err := m.node(sb, off)
		if err != nil {
			return node{}, "", err
		}
		if !next.isDir() {
			return node{}, "", fs.ErrNotExist
		}
		cur = next
	}
	return cur, comps[len(comps)-1], nil
}
