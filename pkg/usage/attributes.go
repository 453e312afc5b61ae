package usage

import (
	"strconv"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"
)

// styleAttributes are the prop names that carry inline style objects.
var styleAttributes = map[string]bool{
	"style": true,
	"sx":    true,
	"css":   true,
}

// extractAttributes returns the attributes of an opening or self-closing tag
// in source order, plus the customization implied by its style props.
func extractAttributes(tag *ts.Node, source []byte) ([]Attribute, Customization) {
	attrs := []Attribute{}
	var custom Customization

	for i := uint(0); i < tag.NamedChildCount(); i++ {
		child := tag.NamedChild(i)
		switch child.Kind() {
		case "jsx_attribute":
			attr, value := classifyAttribute(child, source)
			if attr.Name == "" {
				continue
			}
			attrs = append(attrs, attr)

			if styleAttributes[attr.Name] && attr.Kind == KindObject {
				custom.HasInlineStyleOverride = true
				custom.OverriddenStyleKeys = mergeKeys(custom.OverriddenStyleKeys, objectKeys(value, source))
			}
		case "jsx_expression":
			// {...props}
			if inner := firstNamedChild(child); inner != nil && inner.Kind() == "spread_element" {
				arg := firstNamedChild(inner)
				text := ""
				if arg != nil {
					text = arg.Utf8Text(source)
				}
				attrs = append(attrs, sourceAttr(SpreadAttributeName, KindSpread, text))
			}
		}
	}

	return attrs, custom
}

// classifyAttribute builds the Attribute for a jsx_attribute node. The
// second return value is the unwrapped value expression (nil when absent) so
// callers can inspect object literals without re-walking.
func classifyAttribute(node *ts.Node, source []byte) (Attribute, *ts.Node) {
	nameNode := node.NamedChild(0)
	if nameNode == nil {
		return Attribute{}, nil
	}
	name := nameNode.Utf8Text(source)

	if node.NamedChildCount() < 2 {
		// <Button disabled>
		return booleanAttr(name, true), nil
	}
	value := node.NamedChild(1)

	switch value.Kind() {
	case "string":
		return stringAttr(name, stripQuotes(value.Utf8Text(source))), nil
	case "jsx_element", "jsx_self_closing_element", "jsx_fragment":
		return sourceAttr(name, KindJSXElement, value.Utf8Text(source)), nil
	case "jsx_expression":
		inner := unwrapParens(firstNamedChild(value))
		if inner == nil {
			// name={} or name={/* comment */}
			return sourceAttr(name, KindUnknown, value.Utf8Text(source)), nil
		}
		return classifyExpression(name, inner, source), inner
	}

	return sourceAttr(name, KindUnknown, value.Utf8Text(source)), nil
}

// classifyExpression maps the shape of an expression node to an attribute
// kind. Literal kinds carry the literal, all others the verbatim source text.
func classifyExpression(name string, node *ts.Node, source []byte) Attribute {
	text := node.Utf8Text(source)

	switch node.Kind() {
	case "string":
		return stringAttr(name, stripQuotes(text))
	case "template_string":
		if !hasNamedChildOfKind(node, "template_substitution") {
			return stringAttr(name, stripQuotes(text))
		}
		return sourceAttr(name, KindExpression, text)
	case "number":
		return numberAttr(name, normalizeNumber(text))
	case "unary_expression":
		op := node.ChildByFieldName("operator")
		arg := unwrapParens(node.ChildByFieldName("argument"))
		if op != nil && arg != nil && arg.Kind() == "number" {
			switch op.Utf8Text(source) {
			case "-":
				return numberAttr(name, negate(normalizeNumber(arg.Utf8Text(source))))
			case "+":
				return numberAttr(name, normalizeNumber(arg.Utf8Text(source)))
			}
		}
		return sourceAttr(name, KindExpression, text)
	case "true":
		return booleanAttr(name, true)
	case "false":
		return booleanAttr(name, false)
	case "null":
		return nullAttr(name)
	case "undefined":
		return sourceAttr(name, KindUnknown, text)
	case "object":
		return sourceAttr(name, KindObject, text)
	case "array":
		return sourceAttr(name, KindArray, text)
	case "arrow_function", "function_expression", "function", "generator_function":
		return sourceAttr(name, KindFunction, text)
	case "jsx_element", "jsx_self_closing_element", "jsx_fragment":
		return sourceAttr(name, KindJSXElement, text)
	case "identifier", "member_expression", "this":
		return sourceAttr(name, KindVariableReference, text)
	}

	return sourceAttr(name, KindExpression, text)
}

// normalizeNumber renders a numeric literal in shortest decimal form.
// Numeric separators are dropped and hex/octal/binary literals converted.
// BigInt literals and anything unparseable keep their source text.
func normalizeNumber(text string) string {
	if strings.HasSuffix(text, "n") {
		return text
	}
	s := strings.ReplaceAll(text, "_", "")

	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X', 'o', 'O', 'b', 'B':
			if v, err := strconv.ParseUint(s, 0, 64); err == nil {
				return strconv.FormatUint(v, 10)
			}
			return text
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return text
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func negate(num string) string {
	if num == "0" || strings.HasPrefix(num, "-") {
		return num
	}
	return "-" + num
}

// objectKeys returns the top-level keys of an object literal in source order.
func objectKeys(obj *ts.Node, source []byte) []string {
	if obj == nil || obj.Kind() != "object" {
		return nil
	}

	var keys []string
	for i := uint(0); i < obj.NamedChildCount(); i++ {
		child := obj.NamedChild(i)
		switch child.Kind() {
		case "pair":
			if key := child.ChildByFieldName("key"); key != nil {
				keys = append(keys, propertyKey(key, source))
			}
		case "shorthand_property_identifier":
			keys = append(keys, child.Utf8Text(source))
		case "method_definition":
			if key := child.ChildByFieldName("name"); key != nil {
				keys = append(keys, propertyKey(key, source))
			}
		}
	}
	return keys
}

func propertyKey(key *ts.Node, source []byte) string {
	text := key.Utf8Text(source)
	if key.Kind() == "string" {
		return stripQuotes(text)
	}
	return text
}

// mergeKeys appends keys not already present, preserving order.
func mergeKeys(dst, keys []string) []string {
	for _, k := range keys {
		found := false
		for _, d := range dst {
			if d == k {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, k)
		}
	}
	return dst
}

func stripQuotes(text string) string {
	if len(text) >= 2 {
		return text[1 : len(text)-1]
	}
	return text
}

func firstNamedChild(node *ts.Node) *ts.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child.Kind() != "comment" {
			return child
		}
	}
	return nil
}

func unwrapParens(node *ts.Node) *ts.Node {
	for node != nil && node.Kind() == "parenthesized_expression" {
		node = firstNamedChild(node)
	}
	return node
}

func hasNamedChildOfKind(node *ts.Node, kind string) bool {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if node.NamedChild(i).Kind() == kind {
			return true
		}
	}
	return false
}
