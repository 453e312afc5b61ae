package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// GroupIndex lists the groups that live under a groups root.
//
// The directory listing happens once, on first use, and is read-only
// afterwards; concurrent callers share the same result.
type GroupIndex struct {
	root      string
	overrides map[string]string

	once   sync.Once
	groups []Group
	byName map[string]Group
	err    error
}

// NewGroupIndex creates an index over root. overrides maps a group name to an
// explicit path and takes precedence over the directory under root.
func NewGroupIndex(root string, overrides map[string]string) *GroupIndex {
	return &GroupIndex{root: root, overrides: overrides}
}

func (gi *GroupIndex) load() {
	gi.once.Do(func() {
		gi.byName = make(map[string]Group)

		entries, err := os.ReadDir(gi.root)
		if err != nil {
			gi.err = fmt.Errorf("list groups root %s: %w", gi.root, err)
		}
		for _, e := range entries {
			if !e.IsDir() || strings.HasPrefix(e.Name(), ".") || e.Name() == "node_modules" {
				continue
			}
			gi.byName[e.Name()] = Group{Name: e.Name(), Root: filepath.Join(gi.root, e.Name())}
		}

		for name, p := range gi.overrides {
			gi.byName[name] = Group{Name: name, Root: p}
		}

		names := make([]string, 0, len(gi.byName))
		for name := range gi.byName {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			gi.groups = append(gi.groups, gi.byName[name])
		}
	})
}

// All returns every group under the root plus the overrides, sorted by name.
// Failure to list the root is an error: "all groups" has no meaning without
// it.
func (gi *GroupIndex) All() ([]Group, error) {
	gi.load()
	if gi.err != nil {
		return nil, gi.err
	}
	out := make([]Group, len(gi.groups))
	copy(out, gi.groups)
	return out, nil
}

// Resolve returns the groups for an explicit list of names, in the order
// given, de-duplicated. Unknown names still resolve to root/<name> so that a
// missing directory is reported by discovery rather than silently dropped.
func (gi *GroupIndex) Resolve(names []string) []Group {
	gi.load()

	seen := make(map[string]bool, len(names))
	out := make([]Group, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		if g, ok := gi.byName[name]; ok {
			out = append(out, g)
			continue
		}
		out = append(out, Group{Name: name, Root: filepath.Join(gi.root, name)})
	}
	return out
}
