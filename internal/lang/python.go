package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Python is the registered Python language.
var Python *Language

func init() {
	Python = &Language{
		Name:       "python",
		Extensions: []string{".py", ".pyi"},
		lang:       python.GetLanguage(),
	}
	Languages["python"] = Python
}

// Identifier returns the text of the first identifier child of node.
func Identifier(node *sitter.Node, source []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "identifier" {
			return NodeText(child, source)
		}
	}
	return ""
}

// IsDefinition reports whether node is a function or class definition.
func IsDefinition(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	t := node.Type()
	return t == "function_definition" || t == "class_definition"
}

// EnclosingDefinition walks up from a definition node to the nearest
// enclosing function or class definition. Returns nil at module level.
func EnclosingDefinition(def *sitter.Node) *sitter.Node {
	current := def.Parent()
	for current != nil {
		if IsDefinition(current) {
			return current
		}
		current = current.Parent()
	}
	return nil
}

// Decorators returns the decorator nodes applied to def, outermost first.
func Decorators(def *sitter.Node) []*sitter.Node {
	parent := def.Parent()
	if parent == nil || parent.Type() != "decorated_definition" {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(parent.NamedChildCount()); i++ {
		child := parent.NamedChild(i)
		if child.Type() == "decorator" {
			out = append(out, child)
		}
	}
	return out
}
