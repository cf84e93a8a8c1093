package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/pydocgen/internal/lang"
	"github.com/phobologic/pydocgen/internal/model"
)

func newDocstring(lit *sitter.Node, source []byte) *model.Docstring {
	raw := lang.NodeText(lit, source)
	d := &model.Docstring{
		Raw: raw,
		Span: model.Span{
			StartByte: int(lit.StartByte()),
			EndByte:   int(lit.EndByte()),
			StartLine: int(lit.StartPoint().Row) + 1,
			EndLine:   int(lit.EndPoint().Row) + 1,
		},
		Indent: lineIndent(source, int(lit.StartByte())),
	}

	if lit.Type() == "concatenated_string" {
		var parts []string
		for i := 0; i < int(lit.NamedChildCount()); i++ {
			part := lit.NamedChild(i)
			if part.Type() != "string" {
				continue
			}
			prefix, quote, body := Dequote(lang.NodeText(part, source))
			if i == 0 {
				d.Prefix, d.Quote = prefix, quote
			}
			parts = append(parts, body)
		}
		d.Text = Clean(strings.Join(parts, ""))
		return d
	}

	prefix, quote, body := Dequote(raw)
	d.Prefix, d.Quote = prefix, quote
	d.Text = Clean(body)
	return d
}

// Dequote splits a Python string literal into its prefix, its opening quote
// sequence and the text between the quotes.
func Dequote(raw string) (prefix, quote, body string) {
	i := 0
	for i < len(raw) && strings.IndexByte("rRuUbBfF", raw[i]) >= 0 {
		i++
	}
	prefix = raw[:i]
	rest := raw[i:]
	switch {
	case strings.HasPrefix(rest, `"""`), strings.HasPrefix(rest, `'''`):
		quote = rest[:3]
	case strings.HasPrefix(rest, `"`), strings.HasPrefix(rest, `'`):
		quote = rest[:1]
	default:
		return prefix, "", rest
	}
	body = strings.TrimPrefix(rest, quote)
	body = strings.TrimSuffix(body, quote)
	return prefix, quote, body
}

// Clean trims docstring indentation the way PEP 257 describes: the first
// line is stripped, the common indentation of the remaining lines removed,
// and leading and trailing blank lines dropped.
func Clean(doc string) string {
	if doc == "" {
		return ""
	}
	lines := strings.Split(strings.ReplaceAll(expandTabs(doc), "\r\n", "\n"), "\n")

	indent := -1
	for _, line := range lines[1:] {
		stripped := strings.TrimLeft(line, " ")
		if stripped == "" {
			continue
		}
		if n := len(line) - len(stripped); indent < 0 || n < indent {
			indent = n
		}
	}

	out := []string{strings.TrimSpace(lines[0])}
	for _, line := range lines[1:] {
		if indent >= 0 && len(line) >= indent {
			line = line[indent:]
		} else {
			line = strings.TrimLeft(line, " ")
		}
		out = append(out, strings.TrimRight(line, " \t"))
	}

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	for len(out) > 0 && out[0] == "" {
		out = out[1:]
	}
	return strings.Join(out, "\n")
}

func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		switch r {
		case '\t':
			n := 8 - col%8
			b.WriteString(strings.Repeat(" ", n))
			col += n
		case '\n':
			b.WriteRune(r)
			col = 0
		default:
			b.WriteRune(r)
			col++
		}
	}
	return b.String()
}
