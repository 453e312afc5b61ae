// Package library lists the components a design-system library exports,
// from a local checkout or from a remote repository.
package library

import (
	"context"
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/gnana997/mrcusage/pkg/parser"
	"github.com/gnana997/mrcusage/pkg/parser/queries"
	"github.com/gnana997/mrcusage/pkg/registry"
)

// Source yields the component definitions of a library.
type Source interface {
	Definitions(ctx context.Context) ([]registry.Definition, error)
}

// IndexFiles are the entry-point names probed in a library directory, in
// priority order.
var IndexFiles = []string{"index.ts", "index.tsx", "index.js", "index.jsx"}

// ParseReexports extracts component definitions from an index file's
// re-export statements:
//
//	export { default as Button } from "./Button"  → Button, ./Button
//	export { Card, Card as Tile } from "./Card"   → Card, Tile
//	export * from "./Dialog"                       → Dialog, ./Dialog
//
// Only capitalised names are kept. Paths are joined onto the index
// file's directory.
func ParseReexports(source []byte, filePath string, pm *parser.ParserManager, qm *queries.QueryManager) ([]registry.Definition, error) {
	lang := parser.DetectLanguage(filePath)
	isTSX := parser.IsTSXFile(filePath)

	tree, err := pm.Parse(source, lang, isTSX)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filePath, err)
	}
	defer tree.Close()

	query, err := qm.GetQuery(lang, isTSX, queries.QueryTypeReexports)
	if err != nil {
		return nil, err
	}
	matches, err := qm.ExecuteQuery(tree, query, source)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", filePath, err)
	}

	dir := path.Dir(strings.ReplaceAll(filePath, "\\", "/"))
	var defs []registry.Definition

	for _, m := range matches {
		if star := m.Capture("star"); star != nil {
			spec := unquote(star.Text)
			name := registry.FileBaseName(spec)
			if isComponentName(name) {
				defs = append(defs, registry.Definition{ExportedName: name, Path: joinSpecifier(dir, spec)})
			}
			continue
		}

		clause := m.Capture("clause")
		src := m.Capture("source")
		if clause == nil || src == nil {
			continue
		}
		spec := unquote(src.Text)

		for i := uint(0); i < clause.Node.NamedChildCount(); i++ {
			specifier := clause.Node.NamedChild(i)
			if specifier.Kind() != "export_specifier" {
				continue
			}
			nameNode := specifier.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			exported := nameNode.Utf8Text(source)
			if alias := specifier.ChildByFieldName("alias"); alias != nil {
				exported = alias.Utf8Text(source)
			}
			if !isComponentName(exported) {
				continue
			}
			defs = append(defs, registry.Definition{ExportedName: exported, Path: joinSpecifier(dir, spec)})
		}
	}

	return defs, nil
}

// IsComponentFile reports whether a file name looks like a component
// definition: a capitalised source file that is not an index, test, story or
// declaration file.
func IsComponentFile(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range []string{".d.ts", ".test.", ".spec.", ".stories.", ".story."} {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	if parser.DetectLanguage(name) == parser.LanguageUnknown {
		return false
	}
	return isComponentName(registry.FileBaseName(name))
}

func joinSpecifier(dir, spec string) string {
	if strings.HasPrefix(spec, ".") {
		return path.Join(dir, spec)
	}
	return spec
}

func unquote(s string) string {
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}

func isComponentName(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}
