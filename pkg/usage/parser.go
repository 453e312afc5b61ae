package usage

import (
	"fmt"
	"log/slog"
	"path"
	"strings"
	"unicode"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/mrcusage/pkg/parser"
	"github.com/gnana997/mrcusage/pkg/registry"
)

// Parser extracts component usage records from source files.
//
// A Parser holds no per-file state and the registry is read-only, but the
// underlying ParserManager is the only piece designed for concurrent use;
// the scan pipeline calls ParseFile sequentially.
type Parser struct {
	pm       *parser.ParserManager
	registry *registry.Registry
	modules  []string
	logger   *slog.Logger
}

// NewParser creates a Parser that recognises imports from any of
// libraryModules (and their sub-paths).
func NewParser(pm *parser.ParserManager, reg *registry.Registry, libraryModules []string, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		pm:       pm,
		registry: reg,
		modules:  libraryModules,
		logger:   logger,
	}
}

// ParseFile returns the usage records found in one file: one record per
// rendered element of a registered component, followed by one import-only
// record for each imported component never rendered in the file.
//
// Syntax errors do not fail the call; tree-sitter recovers and whatever is
// recognisable is extracted. An error is returned only when the file cannot
// be parsed at all (unsupported extension, nil tree).
func (p *Parser) ParseFile(filePath, group string, source []byte) ([]Record, error) {
	tree, err := p.pm.ParseFile(source, filePath)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filePath, err)
	}
	defer tree.Close()

	fs := &fileScan{
		p:          p,
		source:     source,
		filePath:   filePath,
		group:      group,
		aliases:    make(map[string]string),
		namespaces: make(map[string]bool),
		pending:    make(map[string]int),
		rendered:   make(map[string]bool),
	}

	root := tree.RootNode()
	fs.collectImports(root)
	fs.walk(root)

	return fs.results(), nil
}

// fileScan is the per-file symbol table and output buffer.
type fileScan struct {
	p        *Parser
	source   []byte
	filePath string
	group    string

	// aliases maps local identifiers to canonical exported names.
	aliases map[string]string
	// namespaces holds identifiers bound by `import * as X`.
	namespaces map[string]bool

	imports  []Record
	pending  map[string]int
	elements []Record
	rendered map[string]bool
}

// collectImports visits top-level import statements from the library.
func (fs *fileScan) collectImports(root *ts.Node) {
	for i := uint(0); i < root.ChildCount(); i++ {
		stmt := root.Child(i)
		if stmt.Kind() != "import_statement" || isTypeOnly(stmt) {
			continue
		}

		src := stmt.ChildByFieldName("source")
		if src == nil {
			continue
		}
		module := stripQuotes(src.Utf8Text(fs.source))
		subpath, ok := fs.p.matchModule(module)
		if !ok {
			continue
		}
		line := int(stmt.StartPosition().Row) + 1

		for j := uint(0); j < stmt.NamedChildCount(); j++ {
			clause := stmt.NamedChild(j)
			if clause.Kind() != "import_clause" {
				continue
			}
			fs.importClause(clause, subpath, line)
		}
	}
}

func (fs *fileScan) importClause(clause *ts.Node, subpath string, line int) {
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		child := clause.NamedChild(i)
		switch child.Kind() {
		case "identifier":
			// import Button from "lib/Button"
			if subpath == "" {
				continue
			}
			local := child.Utf8Text(fs.source)
			if canonical, ok := fs.p.registry.Resolve(path.Base(subpath)); ok {
				fs.bind(local, canonical, line)
			}

		case "named_imports":
			for j := uint(0); j < child.NamedChildCount(); j++ {
				spec := child.NamedChild(j)
				if spec.Kind() != "import_specifier" || isTypeOnly(spec) {
					continue
				}
				nameNode := spec.ChildByFieldName("name")
				if nameNode == nil {
					continue
				}
				imported := nameNode.Utf8Text(fs.source)
				if nameNode.Kind() == "string" {
					imported = stripQuotes(imported)
				}
				local := imported
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					local = alias.Utf8Text(fs.source)
				}
				if canonical, ok := fs.p.registry.Resolve(imported); ok {
					fs.bind(local, canonical, line)
				}
			}

		case "namespace_import":
			if id := firstNamedChild(child); id != nil {
				fs.namespaces[id.Utf8Text(fs.source)] = true
			}
		}
	}
}

// bind records an alias and seeds the provisional import-only record.
func (fs *fileScan) bind(local, canonical string, line int) {
	fs.aliases[local] = canonical
	if _, seen := fs.pending[canonical]; seen {
		return
	}
	fs.pending[canonical] = len(fs.imports)
	fs.imports = append(fs.imports, Record{
		ComponentName: canonical,
		LocalName:     local,
		SourceFile:    fs.filePath,
		Group:         fs.group,
		Line:          line,
		ImportOnly:    true,
		Attributes:    []Attribute{},
	})
}

// walk visits every node and records each opening tag that resolves to a
// registered component. Attributes are walked too, so elements passed as
// props are counted.
func (fs *fileScan) walk(node *ts.Node) {
	switch node.Kind() {
	case "jsx_opening_element", "jsx_self_closing_element":
		fs.element(node)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		fs.walk(node.Child(i))
	}
}

func (fs *fileScan) element(tag *ts.Node) {
	nameNode := tagNameNode(tag)
	if nameNode == nil {
		return
	}
	tagName := nameNode.Utf8Text(fs.source)

	canonical, ok := fs.resolveTag(tagName)
	if !ok {
		return
	}

	attrs, custom := extractAttributes(tag, fs.source)
	custom.IsWrappedInStyledWrapper = insideStyledWrapper(tag, fs.source)

	fs.elements = append(fs.elements, Record{
		ComponentName: canonical,
		LocalName:     tagName,
		SourceFile:    fs.filePath,
		Group:         fs.group,
		Line:          int(tag.StartPosition().Row) + 1,
		Attributes:    attrs,
		Customization: custom,
	})
	fs.rendered[canonical] = true
}

// resolveTag maps a tag name to a canonical component name: local alias,
// then registered export name, then definition file base name. Dotted tags
// resolve by their composite name, or through a namespace import.
func (fs *fileScan) resolveTag(tagName string) (string, bool) {
	if canonical, ok := fs.aliases[tagName]; ok {
		return canonical, true
	}

	if ns, member, dotted := strings.Cut(tagName, "."); dotted {
		if fs.p.registry.HasExport(tagName) {
			return tagName, true
		}
		if fs.namespaces[ns] && !strings.Contains(member, ".") {
			return fs.p.registry.Resolve(member)
		}
		return "", false
	}

	if !isComponentName(tagName) {
		return "", false
	}
	return fs.p.registry.Resolve(tagName)
}

// results returns element records followed by the import-only records that
// were not superseded by an element of the same component.
func (fs *fileScan) results() []Record {
	out := make([]Record, 0, len(fs.elements)+len(fs.imports))
	out = append(out, fs.elements...)
	for _, rec := range fs.imports {
		if !fs.rendered[rec.ComponentName] {
			out = append(out, rec)
		}
	}
	return out
}

// matchModule reports whether an import source is one of the library
// modules, returning the sub-path after the module name ("" for the root).
func (p *Parser) matchModule(source string) (string, bool) {
	for _, m := range p.modules {
		if m == "" {
			continue
		}
		if source == m {
			return "", true
		}
		if rest, ok := strings.CutPrefix(source, m+"/"); ok {
			return rest, true
		}
	}
	return "", false
}

func tagNameNode(tag *ts.Node) *ts.Node {
	if n := tag.ChildByFieldName("name"); n != nil {
		return n
	}
	for i := uint(0); i < tag.NamedChildCount(); i++ {
		child := tag.NamedChild(i)
		switch child.Kind() {
		case "identifier", "member_expression", "nested_identifier", "jsx_namespace_name":
			return child
		}
	}
	return nil
}

// insideStyledWrapper reports whether any ancestor is a declaration or
// assignment initialised by a styled(...) call.
func insideStyledWrapper(node *ts.Node, source []byte) bool {
	for n := node.Parent(); n != nil; n = n.Parent() {
		var init *ts.Node
		switch n.Kind() {
		case "variable_declarator":
			init = n.ChildByFieldName("value")
		case "assignment_expression":
			init = n.ChildByFieldName("right")
		default:
			continue
		}
		if isStyledCall(init, source) {
			return true
		}
	}
	return false
}

// isStyledCall matches styled(X)(...), styled(X)`...`, styled.div`...` and
// similar chains rooted at the identifier "styled".
func isStyledCall(node *ts.Node, source []byte) bool {
	node = unwrapParens(node)
	if node == nil || node.Kind() != "call_expression" {
		return false
	}

	callee := node.ChildByFieldName("function")
	for callee != nil {
		switch callee.Kind() {
		case "identifier":
			return callee.Utf8Text(source) == "styled"
		case "call_expression":
			callee = callee.ChildByFieldName("function")
		case "member_expression":
			callee = callee.ChildByFieldName("object")
		default:
			return false
		}
	}
	return false
}

// isTypeOnly reports `import type ...` and `import { type X }`.
func isTypeOnly(node *ts.Node) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "type" && !child.IsNamed() {
			return true
		}
	}
	return false
}

// isComponentName returns true if the name starts with an uppercase letter.
func isComponentName(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}
