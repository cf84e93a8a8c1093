// Package merge splices docstrings back into Python source.
package merge

import (
	"bytes"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/phobologic/pydocgen/internal/model"
)

// Merge returns source with every successful result written at its
// callable's docstring span: replacing an existing literal, or inserted as
// the first body statement. Pairs without a usable result are skipped.
// Bytes outside the targeted spans are copied unchanged. It is a pure
// function of its inputs.
func Merge(source []byte, pairs []model.Pair) ([]byte, error) {
	nl := "\n"
	if bytes.Contains(source, []byte("\r\n")) {
		nl = "\r\n"
	}

	type edit struct {
		span model.Span
		text string
		name string
	}
	var edits []edit
	for _, p := range pairs {
		if p.Signature == nil || p.Result == nil || !p.Result.OK() {
			continue
		}
		sig := p.Signature
		if sig.Span.StartLine == 0 {
			// No body to write into.
			continue
		}
		if sig.Span.StartByte < 0 || sig.Span.EndByte > len(source) || sig.Span.StartByte > sig.Span.EndByte {
			return nil, errors.Newf("%s: docstring span [%d,%d) outside source of %d bytes",
				sig.QualifiedName, sig.Span.StartByte, sig.Span.EndByte, len(source))
		}
		edits = append(edits, edit{span: sig.Span, text: replacement(sig, p.Result.Docstring, nl), name: sig.QualifiedName})
	}

	sort.SliceStable(edits, func(i, j int) bool {
		return edits[i].span.StartByte < edits[j].span.StartByte
	})
	for i := 1; i < len(edits); i++ {
		prev, cur := edits[i-1], edits[i]
		if cur.span.StartByte < prev.span.EndByte || cur.span.StartByte == prev.span.StartByte {
			return nil, errors.Newf("docstring spans of %s and %s overlap", prev.name, cur.name)
		}
	}

	var b bytes.Buffer
	b.Grow(len(source))
	pos := 0
	for _, e := range edits {
		b.Write(source[pos:e.span.StartByte])
		b.WriteString(e.text)
		pos = e.span.EndByte
	}
	b.Write(source[pos:])
	return b.Bytes(), nil
}

// replacement builds the text written over sig's span.
func replacement(sig *model.CallableSignature, doc, nl string) string {
	quoted := Quote(doc, sig.Indent, nl)
	switch {
	case sig.HasDocstring() && sig.Docstring.Span.StartLine == sig.Line:
		// A literal on the header line moves into the body.
		return nl + sig.Indent + quoted
	case sig.HasDocstring():
		return quoted
	case sig.Inline:
		return nl + sig.Indent + quoted + nl + sig.Indent
	}
	return sig.Indent + quoted + nl
}

// Quote wraps a docstring body in triple quotes for a body indented by
// indent. Multi-line docstrings close on their own line; blank lines carry
// no trailing whitespace.
func Quote(doc, indent, nl string) string {
	doc = strings.TrimSpace(strings.ReplaceAll(doc, "\r\n", "\n"))

	q := `"""`
	if strings.Contains(doc, `"""`) {
		if strings.Contains(doc, `'''`) {
			doc = strings.ReplaceAll(doc, `"""`, `\"\"\"`)
		} else {
			q = `'''`
		}
	}
	prefix := ""
	if strings.Contains(doc, `\`) && !strings.Contains(doc, `\"\"\"`) {
		prefix = "r"
	}

	lines := strings.Split(doc, "\n")
	if len(lines) == 1 {
		// A closing quote character would merge with the delimiter.
		if strings.HasSuffix(doc, q[:1]) {
			doc += " "
		}
		return prefix + q + doc + q
	}

	var b strings.Builder
	b.WriteString(prefix + q + lines[0])
	for _, line := range lines[1:] {
		b.WriteString(nl)
		if strings.TrimSpace(line) != "" {
			b.WriteString(indent + strings.TrimRight(line, " \t"))
		}
	}
	b.WriteString(nl + indent + q)
	return b.String()
}

// Pairs couples each signature with the result at the same index.
func Pairs(table *model.Table, results []model.GenerationResult) []model.Pair {
	pairs := make([]model.Pair, 0, len(table.Signatures))
	for i := range table.Signatures {
		if i >= len(results) {
			break
		}
		pairs = append(pairs, model.Pair{Signature: &table.Signatures[i], Result: &results[i]})
	}
	return pairs
}

// Rebind couples results with the signatures of a re-extracted table by
// qualified name, in order of appearance for repeated names. It lets the
// results of one run be merged again into that run's output.
func Rebind(table *model.Table, results []model.GenerationResult) []model.Pair {
	byName := make(map[string][]*model.GenerationResult)
	for i := range results {
		r := &results[i]
		byName[r.QualifiedName] = append(byName[r.QualifiedName], r)
	}
	var pairs []model.Pair
	for i := range table.Signatures {
		sig := &table.Signatures[i]
		queue := byName[sig.QualifiedName]
		if len(queue) == 0 {
			continue
		}
		pairs = append(pairs, model.Pair{Signature: sig, Result: queue[0]})
		byName[sig.QualifiedName] = queue[1:]
	}
	return pairs
}
