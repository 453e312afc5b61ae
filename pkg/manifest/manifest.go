// Package manifest reads dependency versions from package.json files.
package manifest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

// Sentinel values reported in place of a version.
const (
	NotFound = "not found"
	Error    = "error"
)

// dependencySections are searched in order.
var dependencySections = []string{"dependencies", "devDependencies", "peerDependencies"}

// LibraryVersion returns the version range the group at root declares for
// the first of packages found in its package.json. It returns NotFound when
// the manifest or the dependency is absent, and Error when the manifest
// cannot be read or is not valid JSON.
func LibraryVersion(root string, packages ...string) string {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NotFound
		}
		return Error
	}
	return VersionFromJSON(data, packages...)
}

// VersionFromJSON looks packages up in a package.json document.
func VersionFromJSON(data []byte, packages ...string) string {
	if !gjson.ValidBytes(data) {
		return Error
	}

	// Package names contain '@' and '/', so look them up through Map rather
	// than a gjson path.
	for _, section := range dependencySections {
		deps := gjson.GetBytes(data, section)
		if !deps.IsObject() {
			continue
		}
		m := deps.Map()
		for _, pkg := range packages {
			if v, ok := m[pkg]; ok && v.String() != "" {
				return v.String()
			}
		}
	}
	return NotFound
}

// Versions resolves LibraryVersion for every group root, keyed by group
// name.
func Versions(roots map[string]string, packages ...string) map[string]string {
	out := make(map[string]string, len(roots))
	for group, root := range roots {
		out[group] = LibraryVersion(root, packages...)
	}
	return out
}
