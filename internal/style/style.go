// Package style renders and parses docstrings in the Google, NumPy and
// reST grammars. All three share one fact model and one section rule table;
// only the layout differs.
package style

import (
	"regexp"
	"strings"

	"github.com/phobologic/pydocgen/internal/model"
)

// Facts is the semantic content of a docstring.
type Facts struct {
	Summary     string
	Description string // free text after the summary, including unknown sections verbatim
	Params      []Param
	Returns     *Return
	Raises      []Raise
}

// Param documents one parameter. Name carries the variadic prefix ("*args").
type Param struct {
	Name string
	Type string
	Desc string
}

// Return documents the return (or yielded) value.
type Return struct {
	Type   string
	Desc   string
	Yields bool
}

// Raise documents one exception.
type Raise struct {
	Type string
	Desc string
}

// Section identifies a structured docstring section.
type Section int

const (
	SectionParams Section = iota
	SectionReturns
	SectionRaises
)

// rule is one row of the shared section table. Which facts must appear is
// identical for every style.
type rule struct {
	section  Section
	required func(sig *model.CallableSignature) bool
	present  func(f *Facts) bool
}

var rules = []rule{
	{
		section:  SectionParams,
		required: func(sig *model.CallableSignature) bool { return len(sig.DocumentedParams()) > 0 },
		present:  func(f *Facts) bool { return len(f.Params) > 0 },
	},
	{
		section:  SectionReturns,
		required: func(sig *model.CallableSignature) bool { return sig.ReturnsDocumented() },
		present:  func(f *Facts) bool { return f.Returns != nil },
	},
	{
		section:  SectionRaises,
		required: func(*model.CallableSignature) bool { return false },
		present:  func(f *Facts) bool { return len(f.Raises) > 0 },
	},
}

// layout is the grammar of one style: a pure renderer per section and the
// inverse parser.
type layout struct {
	header  func(sec Section, yields bool) string
	section func(b *strings.Builder, sec Section, f *Facts)
	parse   func(lines []string) parsed
	entries func(sec Section, body []string, f *Facts)
}

// parsed is the raw split of a docstring body into sections.
type parsed struct {
	sections map[Section][]string
	rest     []string // description lines, unknown sections included
	yields   bool
}

func layoutFor(st model.Style) layout {
	switch st {
	case model.NumPy:
		return numpyLayout
	case model.ReST:
		return restLayout
	}
	return googleLayout
}

// Header returns the section header a style uses, e.g. "Args:" for Google
// parameters or ":param <name>:" for reST.
func Header(st model.Style, sec Section, yields bool) string {
	return layoutFor(st).header(sec, yields)
}

// Render formats facts as a docstring body in the given style.
func Render(st model.Style, f *Facts) string {
	l := layoutFor(st)
	var b strings.Builder
	b.WriteString(strings.TrimSpace(f.Summary))
	if d := strings.TrimSpace(f.Description); d != "" {
		b.WriteString("\n\n")
		b.WriteString(d)
	}
	for _, r := range rules {
		if !r.present(f) {
			continue
		}
		b.WriteString("\n\n")
		l.section(&b, r.section, f)
	}
	lines := strings.Split(b.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// Parse reads a cleaned docstring body written in the given style.
func Parse(st model.Style, text string) *Facts {
	l := layoutFor(st)
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	summary, rest := splitSummary(lines)
	f := &Facts{Summary: summary}

	p := l.parse(rest)
	f.Description = strings.TrimSpace(strings.Join(p.rest, "\n"))
	for _, r := range rules {
		if body, ok := p.sections[r.section]; ok {
			l.entries(r.section, body, f)
		}
	}
	if p.yields && f.Returns != nil {
		f.Returns.Yields = true
	}
	return f
}

var (
	restFieldRe   = regexp.MustCompile(`(?m)^\s*:(param|parameter|arg|argument|key|keyword|type|returns?|rtype|raises?|except|exception|yields?|ytype)\b[^:]*:`)
	numpyHeaderRe = regexp.MustCompile(`(?m)^\s*(Parameters|Other Parameters|Returns|Yields|Raises|See Also|Notes|Examples)\s*\n\s*-{3,}\s*$`)
	googleHeadRe  = regexp.MustCompile(`(?m)^\s*(Args|Arguments|Parameters|Params|Keyword Args|Returns|Return|Yields|Yield|Raises|Raise):\s*$`)
)

// Detect guesses the style a docstring is written in. ok is false when the
// text carries no structured sections at all.
func Detect(text string) (st model.Style, ok bool) {
	switch {
	case restFieldRe.MatchString(text):
		return model.ReST, true
	case numpyHeaderRe.MatchString(text):
		return model.NumPy, true
	case googleHeadRe.MatchString(text):
		return model.Google, true
	}
	return model.Google, false
}

// ParseAny parses text in its detected style, falling back to fallback.
func ParseAny(text string, fallback model.Style) (*Facts, model.Style) {
	st, ok := Detect(text)
	if !ok {
		st = fallback
	}
	return Parse(st, text), st
}

// Summary returns the summary paragraph of a cleaned docstring and its
// line count. The paragraph ends at a blank line or at a section header
// after the first line, so a docstring that opens with a header still
// reports that line as its summary.
func Summary(text string) (string, int) {
	lines := strings.Split(text, "\n")
	var para []string
	for i, line := range lines {
		if strings.TrimSpace(line) == "" || (i > 0 && IsSectionStart(lines, i)) {
			break
		}
		para = append(para, strings.TrimSpace(line))
	}
	return strings.Join(para, " "), len(para)
}

func splitSummary(lines []string) (string, []string) {
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	var para []string
	for i < len(lines) && strings.TrimSpace(lines[i]) != "" && !IsSectionStart(lines, i) {
		para = append(para, strings.TrimSpace(lines[i]))
		i++
	}
	return strings.Join(para, " "), lines[i:]
}

// IsSectionStart reports whether lines[i] opens a structured section in any
// style, e.g. a summary that runs straight into "Args:".
func IsSectionStart(lines []string, i int) bool {
	line := lines[i]
	if googleHeadRe.MatchString(line) || restFieldRe.MatchString(line) {
		return true
	}
	return i+1 < len(lines) && dashRe.MatchString(lines[i+1]) && strings.TrimSpace(line) != ""
}

var dashRe = regexp.MustCompile(`^\s*-{3,}\s*$`)

// Names returns the parameter names of f with variadic prefixes removed.
func (f *Facts) Names() []string {
	out := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		out = append(out, BareName(p.Name))
	}
	return out
}

// BareName strips the variadic prefix and any escaping from a parameter name.
func BareName(name string) string {
	name = strings.ReplaceAll(name, `\`, "")
	return strings.TrimLeft(strings.TrimSpace(name), "*")
}

// indentOf counts leading spaces.
func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// dedent removes the smallest common indentation from non-blank lines.
func dedent(lines []string) []string {
	min := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if n := indentOf(l); min < 0 || n < min {
			min = n
		}
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		switch {
		case strings.TrimSpace(l) == "":
			out[i] = ""
		case min > 0:
			out[i] = l[min:]
		default:
			out[i] = l
		}
	}
	return out
}

// entryBlocks splits section lines into entries: a line at the base
// indentation starts an entry, deeper lines continue it.
func entryBlocks(body []string) [][]string {
	body = dedent(body)
	var blocks [][]string
	for _, line := range body {
		if strings.TrimSpace(line) == "" {
			if len(blocks) > 0 {
				blocks[len(blocks)-1] = append(blocks[len(blocks)-1], "")
			}
			continue
		}
		if indentOf(line) == 0 || len(blocks) == 0 {
			blocks = append(blocks, []string{line})
			continue
		}
		blocks[len(blocks)-1] = append(blocks[len(blocks)-1], line)
	}
	return blocks
}

// joinDesc joins continuation lines into a single description, keeping
// paragraph breaks.
func joinDesc(first string, more []string) string {
	parts := []string{strings.TrimSpace(first)}
	for _, l := range dedent(more) {
		parts = append(parts, strings.TrimRight(l, " \t"))
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// writeIndented writes text with every line after the first indented by pad.
func writeIndented(b *strings.Builder, text, pad string) {
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteString("\n")
			if line != "" {
				b.WriteString(pad)
			}
		}
		b.WriteString(line)
	}
}
