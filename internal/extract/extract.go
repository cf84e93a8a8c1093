// Package extract parses Python source into a table of callable signatures
// using tree-sitter.
package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/pydocgen/internal/lang"
	"github.com/phobologic/pydocgen/internal/model"
)

// SyntaxError reports source text that does not parse. It aborts the run.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

var captureKinds = map[string]model.Kind{
	"definition.class":    model.Class,
	"definition.function": model.Function,
}

// Extractor holds a parser and the compiled definition query.
// An Extractor is not safe for concurrent use; create one per goroutine.
type Extractor struct {
	parser *sitter.Parser
	query  *sitter.Query
}

// New creates an Extractor for Python source.
func New() (*Extractor, error) {
	q, err := lang.Python.DefinitionQuery()
	if err != nil {
		return nil, errors.Wrap(err, "loading definition query")
	}
	return &Extractor{parser: lang.Python.NewParser(), query: q}, nil
}

// Extract is a convenience wrapper that parses source with a fresh Extractor.
func Extract(ctx context.Context, source []byte) (*model.Table, error) {
	e, err := New()
	if err != nil {
		return nil, err
	}
	return e.Extract(ctx, source)
}

// Extract parses source and returns its callables ordered by source position.
// Unparseable source yields a *SyntaxError and no partial table.
func (e *Extractor) Extract(ctx context.Context, source []byte) (*model.Table, error) {
	table := &model.Table{}
	if len(strings.TrimSpace(string(source))) == 0 {
		return table, nil
	}

	tree, err := e.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, errors.Wrap(err, "parsing source")
	}
	defer tree.Close()

	root := tree.RootNode()
	if bad := lang.FirstError(root); bad != nil {
		return nil, syntaxError(bad, source)
	}

	if lit := firstStringStatement(root, source); lit != nil {
		table.ModuleDocstring = newDocstring(lit, source)
	}

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(e.query, root)

	type definition struct {
		node *sitter.Node
		name string
		kind model.Kind
	}
	var defs []definition
	seen := make(map[uint32]struct{})
	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		match = qc.FilterPredicates(match, source)

		var nameNode, defNode *sitter.Node
		var kind model.Kind
		for _, c := range match.Captures {
			cname := e.query.CaptureNameForId(c.Index)
			if cname == "name" {
				nameNode = c.Node
			} else if k, ok := captureKinds[cname]; ok {
				kind = k
				defNode = c.Node
			}
		}
		if nameNode == nil || defNode == nil {
			continue
		}
		if _, dup := seen[defNode.StartByte()]; dup {
			continue
		}
		seen[defNode.StartByte()] = struct{}{}
		defs = append(defs, definition{node: defNode, name: lang.NodeText(nameNode, source), kind: kind})
	}

	// Owners must be recorded before the callables they enclose.
	sort.SliceStable(defs, func(i, j int) bool {
		return defs[i].node.StartByte() < defs[j].node.StartByte()
	})

	byStart := make(map[uint32]int, len(defs))
	for _, d := range defs {
		sig := e.signature(d.node, d.kind, d.name, source, table, byStart)
		sig.Index = len(table.Signatures)
		byStart[d.node.StartByte()] = sig.Index
		table.Signatures = append(table.Signatures, sig)
	}

	return table, nil
}

func (e *Extractor) signature(def *sitter.Node, kind model.Kind, name string, source []byte, table *model.Table, byStart map[uint32]int) model.CallableSignature {
	sig := model.CallableSignature{
		Name:    name,
		Kind:    kind,
		Owner:   -1,
		Line:    int(def.StartPoint().Row) + 1,
		EndLine: int(def.EndPoint().Row) + 1,
		Source:  lang.NodeText(def, source),
	}
	sig.DecoratorLine = sig.Line

	qualified := name
	if encl := lang.EnclosingDefinition(def); encl != nil {
		if idx, ok := byStart[encl.StartByte()]; ok {
			owner := &table.Signatures[idx]
			sig.Owner = idx
			sig.Depth = owner.Depth + 1
			qualified = owner.QualifiedName + "." + name
			if kind == model.Function && owner.Kind == model.Class {
				sig.Kind = model.Method
			}
		}
	}
	sig.QualifiedName = qualified

	for i, dec := range lang.Decorators(def) {
		if i == 0 {
			sig.DecoratorLine = int(dec.StartPoint().Row) + 1
		}
		text := strings.TrimPrefix(lang.CollapseWhitespace(lang.NodeText(dec, source)), "@")
		sig.Decorators = append(sig.Decorators, strings.TrimSpace(text))
	}

	if sig.Kind == model.Class {
		sig.Signature = classSignature(def, source)
	} else {
		sig.Signature = functionSignature(def, source)
		sig.Params = parameters(def.ChildByFieldName("parameters"), source)
		if rt := def.ChildByFieldName("return_type"); rt != nil {
			sig.Returns = lang.NodeText(rt, source)
		}
		if def.ChildCount() > 0 && def.Child(0).Type() == "async" {
			sig.Async = true
		}
	}

	body := def.ChildByFieldName("body")
	if body != nil {
		sig.Raises = raisedExceptions(body, source)
		sig.Generator = sig.Kind != model.Class && containsYield(body)
	}

	sig.Visibility = visibility(&sig, table)
	placeDocstring(&sig, def, body, source)
	return sig
}

func visibility(sig *model.CallableSignature, table *model.Table) model.Visibility {
	if owner, ok := table.Owner(sig); ok {
		if owner.Kind != model.Class || owner.Visibility == model.Private {
			return model.Private
		}
	}
	name := sig.Name
	if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") && len(name) > 4 {
		return model.Magic
	}
	if strings.HasPrefix(name, "_") {
		return model.Private
	}
	return model.Public
}

// placeDocstring records the docstring region of a definition: the existing
// literal, or where a new one goes.
func placeDocstring(sig *model.CallableSignature, def, body *sitter.Node, source []byte) {
	headerIndent := lineIndent(source, int(def.StartByte()))
	if body == nil {
		sig.Indent = headerIndent + indentUnit(headerIndent)
		return
	}

	if lit := firstStringStatement(body, source); lit != nil {
		sig.Docstring = newDocstring(lit, source)
		sig.Span = sig.Docstring.Span
		sig.Indent = sig.Docstring.Indent
		if sig.Docstring.Span.StartLine == sig.Line {
			sig.Indent = headerIndent + indentUnit(headerIndent)
		}
		return
	}

	colon := headerColon(def, body)
	first := firstStatement(body)
	if first == nil || colon == nil {
		sig.Indent = headerIndent + indentUnit(headerIndent)
		return
	}

	if first.StartPoint().Row == colon.EndPoint().Row {
		sig.Inline = true
		sig.Indent = headerIndent + indentUnit(headerIndent)
		sig.Span = model.Span{
			StartByte: int(colon.EndByte()),
			EndByte:   int(first.StartByte()),
			StartLine: int(colon.EndPoint().Row) + 1,
			EndLine:   int(colon.EndPoint().Row) + 1,
		}
		return
	}

	sig.Indent = lineIndent(source, int(first.StartByte()))
	at := int(colon.EndByte())
	if nl := strings.IndexByte(string(source[at:]), '\n'); nl >= 0 {
		at += nl + 1
	} else {
		at = len(source)
	}
	line := int(colon.EndPoint().Row) + 2
	sig.Span = model.Span{StartByte: at, EndByte: at, StartLine: line, EndLine: line}
}

func headerColon(def, body *sitter.Node) *sitter.Node {
	var colon *sitter.Node
	for i := 0; i < int(def.ChildCount()); i++ {
		child := def.Child(i)
		if child.StartByte() >= body.StartByte() {
			break
		}
		if child.Type() == ":" {
			colon = child
		}
	}
	return colon
}

func firstStatement(block *sitter.Node) *sitter.Node {
	for i := 0; i < int(block.NamedChildCount()); i++ {
		child := block.NamedChild(i)
		if child.Type() != "comment" {
			return child
		}
	}
	return nil
}

// firstStringStatement returns the string literal node if the first statement
// of block is a bare string expression. Python does not treat f-strings or
// bytes literals as docstrings, so those are skipped.
func firstStringStatement(block *sitter.Node, source []byte) *sitter.Node {
	stmt := firstStatement(block)
	if stmt == nil || stmt.Type() != "expression_statement" || stmt.NamedChildCount() != 1 {
		return nil
	}
	expr := stmt.NamedChild(0)
	switch expr.Type() {
	case "string":
		if plainString(expr, source) {
			return expr
		}
	case "concatenated_string":
		for i := 0; i < int(expr.NamedChildCount()); i++ {
			part := expr.NamedChild(i)
			if part.Type() == "string" && !plainString(part, source) {
				return nil
			}
		}
		return expr
	}
	return nil
}

func plainString(lit *sitter.Node, source []byte) bool {
	prefix, _, _ := Dequote(lang.NodeText(lit, source))
	return !strings.ContainsAny(prefix, "bBfF")
}

func parameters(params *sitter.Node, source []byte) []model.Parameter {
	if params == nil {
		return nil
	}
	var out []model.Parameter
	for i := 0; i < int(params.NamedChildCount()); i++ {
		child := params.NamedChild(i)
		var p model.Parameter
		switch child.Type() {
		case "identifier":
			p.Name = lang.NodeText(child, source)
		case "list_splat_pattern", "dictionary_splat_pattern":
			p = splat(child, source)
		case "typed_parameter":
			if child.NamedChildCount() > 0 {
				inner := child.NamedChild(0)
				if inner.Type() == "identifier" {
					p.Name = lang.NodeText(inner, source)
				} else {
					p = splat(inner, source)
				}
			}
			if t := child.ChildByFieldName("type"); t != nil {
				p.Type = lang.CollapseWhitespace(lang.NodeText(t, source))
			}
		case "default_parameter", "typed_default_parameter":
			if n := child.ChildByFieldName("name"); n != nil {
				p.Name = lang.NodeText(n, source)
			}
			if t := child.ChildByFieldName("type"); t != nil {
				p.Type = lang.CollapseWhitespace(lang.NodeText(t, source))
			}
			if v := child.ChildByFieldName("value"); v != nil {
				p.Default = lang.CollapseWhitespace(lang.NodeText(v, source))
			}
		default:
			// keyword_separator, positional_separator, comments
			continue
		}
		if p.Name != "" {
			out = append(out, p)
		}
	}
	return out
}

func splat(node *sitter.Node, source []byte) model.Parameter {
	p := model.Parameter{Kind: model.VarPositional}
	if node.Type() == "dictionary_splat_pattern" {
		p.Kind = model.VarKeyword
	}
	p.Name = lang.Identifier(node, source)
	return p
}

// walkBody visits the statements of a body without descending into nested
// definitions or lambdas, whose raises and yields belong to themselves.
func walkBody(node *sitter.Node, visit func(*sitter.Node)) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "function_definition", "class_definition", "decorated_definition", "lambda":
			continue
		}
		visit(child)
		walkBody(child, visit)
	}
}

func raisedExceptions(body *sitter.Node, source []byte) []string {
	var out []string
	seen := make(map[string]struct{})
	walkBody(body, func(n *sitter.Node) {
		if n.Type() != "raise_statement" || n.NamedChildCount() == 0 {
			return
		}
		exc := n.NamedChild(0)
		if exc.Type() == "call" {
			if fn := exc.ChildByFieldName("function"); fn != nil {
				exc = fn
			}
		}
		name := lang.CollapseWhitespace(lang.NodeText(exc, source))
		if _, dup := seen[name]; dup || name == "" {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	})
	return out
}

func containsYield(body *sitter.Node) bool {
	found := false
	walkBody(body, func(n *sitter.Node) {
		if n.Type() == "yield" {
			found = true
		}
	})
	return found
}

func classSignature(node *sitter.Node, source []byte) string {
	var name, args string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			if name == "" {
				name = lang.NodeText(child, source)
			}
		case "argument_list":
			args = lang.CollapseWhitespace(lang.NodeText(child, source))
		}
	}
	if args != "" {
		return name + args
	}
	return name
}

func functionSignature(node *sitter.Node, source []byte) string {
	var name, params, returnType string
	if n := node.ChildByFieldName("name"); n != nil {
		name = lang.NodeText(n, source)
	}
	if p := node.ChildByFieldName("parameters"); p != nil {
		params = lang.CollapseWhitespace(lang.NodeText(p, source))
	}
	if rt := node.ChildByFieldName("return_type"); rt != nil {
		returnType = lang.CollapseWhitespace(lang.NodeText(rt, source))
	}
	sig := name + params
	if returnType != "" {
		sig += " -> " + returnType
	}
	return sig
}

func syntaxError(bad *sitter.Node, source []byte) *SyntaxError {
	e := &SyntaxError{
		Line:   int(bad.StartPoint().Row) + 1,
		Column: int(bad.StartPoint().Column) + 1,
	}
	if bad.IsMissing() {
		e.Message = fmt.Sprintf("missing %q", bad.Type())
		return e
	}
	text := lang.NodeText(bad, source)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	if len(text) > 40 {
		text = text[:40] + "..."
	}
	if text == "" {
		e.Message = "invalid syntax"
	} else {
		e.Message = fmt.Sprintf("invalid syntax near %q", text)
	}
	return e
}

// lineIndent returns the whitespace between the start of the line holding
// offset and offset itself, or "" if non-whitespace precedes offset.
func lineIndent(source []byte, offset int) string {
	start := offset
	for start > 0 && source[start-1] != '\n' {
		start--
	}
	prefix := string(source[start:offset])
	if strings.TrimLeft(prefix, " \t") != "" {
		return leadingWhitespace(prefix)
	}
	return prefix
}

func leadingWhitespace(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}

func indentUnit(indent string) string {
	if strings.Contains(indent, "\t") {
		return "\t"
	}
	return "    "
}
