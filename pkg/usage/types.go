// Package usage detects design-system components imported and rendered in
// JavaScript/TypeScript source files and records each usage with its
// attributes and styling customizations.
package usage

// AttributeKind classifies an attribute value by its syntax shape.
type AttributeKind string

const (
	KindString            AttributeKind = "string"
	KindNumber            AttributeKind = "number"
	KindBoolean           AttributeKind = "boolean"
	KindNull              AttributeKind = "null"
	KindObject            AttributeKind = "object"
	KindArray             AttributeKind = "array"
	KindFunction          AttributeKind = "function"
	KindJSXElement        AttributeKind = "jsx-element"
	KindVariableReference AttributeKind = "variable-reference"
	KindSpread            AttributeKind = "spread"
	KindExpression        AttributeKind = "expression"
	KindUnknown           AttributeKind = "unknown"
)

// SpreadAttributeName is the attribute name recorded for {...props}.
const SpreadAttributeName = "...spread"

// Attribute is one prop found at a usage site.
//
// Value holds the literal for string/number/boolean/null kinds
// (booleans as "true"/"false", null as "null", numbers in shortest decimal
// form) and the verbatim source text for every other kind.
type Attribute struct {
	Name  string        `json:"name" yaml:"name"`
	Kind  AttributeKind `json:"kind" yaml:"kind"`
	Value string        `json:"value" yaml:"value"`
}

// IsLiteral reports whether Value is a literal rather than source text.
func (a Attribute) IsLiteral() bool {
	switch a.Kind {
	case KindString, KindNumber, KindBoolean, KindNull:
		return true
	}
	return false
}

func stringAttr(name, v string) Attribute     { return Attribute{Name: name, Kind: KindString, Value: v} }
func numberAttr(name, v string) Attribute     { return Attribute{Name: name, Kind: KindNumber, Value: v} }
func booleanAttr(name string, v bool) Attribute {
	if v {
		return Attribute{Name: name, Kind: KindBoolean, Value: "true"}
	}
	return Attribute{Name: name, Kind: KindBoolean, Value: "false"}
}
func nullAttr(name string) Attribute            { return Attribute{Name: name, Kind: KindNull, Value: "null"} }
func sourceAttr(name string, kind AttributeKind, text string) Attribute {
	return Attribute{Name: name, Kind: kind, Value: text}
}

// Customization records deviations from a component's default styling.
type Customization struct {
	IsWrappedInStyledWrapper bool     `json:"styled_wrapper" yaml:"styled_wrapper"`
	HasInlineStyleOverride   bool     `json:"inline_style" yaml:"inline_style"`
	OverriddenStyleKeys      []string `json:"overridden_style_keys,omitempty" yaml:"overridden_style_keys,omitempty"`
}

// Record is one detected use of one registered component.
type Record struct {
	ComponentName string `json:"component" yaml:"component"`
	// LocalName is the identifier used at the site (alias or tag name).
	LocalName  string `json:"local_name" yaml:"local_name"`
	SourceFile string `json:"file" yaml:"file"`
	Group      string `json:"group" yaml:"group"`
	// Line is 1-based; 0 means unknown.
	Line int `json:"line" yaml:"line"`
	// ImportOnly marks a record for a component imported but never rendered
	// in its file.
	ImportOnly    bool          `json:"import_only" yaml:"import_only"`
	Attributes    []Attribute   `json:"attributes" yaml:"attributes"`
	Customization Customization `json:"customization" yaml:"customization"`
}
