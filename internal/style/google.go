package style

import (
	"regexp"
	"strings"
)

var googleSections = map[string]Section{
	"args":         SectionParams,
	"arguments":    SectionParams,
	"parameters":   SectionParams,
	"params":       SectionParams,
	"keyword args": SectionParams,
	"returns":      SectionReturns,
	"return":       SectionReturns,
	"yields":       SectionReturns,
	"yield":        SectionReturns,
	"raises":       SectionRaises,
	"raise":        SectionRaises,
}

var (
	googleParamRe  = regexp.MustCompile(`^(\*{0,2}[A-Za-z_]\w*)\s*(?:\((.*)\))?\s*:(.*)$`)
	googleReturnRe = regexp.MustCompile(`^([^:]+):\s+(.*)$`)
	typeExprRe     = regexp.MustCompile(`^[\w.\[\],|]+$`)
	unionBarRe     = regexp.MustCompile(`\s*\|\s*`)
	googleRaiseRe  = regexp.MustCompile(`^([\w.]+)\s*:(.*)$`)
)

var googleLayout = layout{
	header: func(sec Section, yields bool) string {
		switch sec {
		case SectionParams:
			return "Args:"
		case SectionReturns:
			if yields {
				return "Yields:"
			}
			return "Returns:"
		}
		return "Raises:"
	},

	section: func(b *strings.Builder, sec Section, f *Facts) {
		const pad = "    "
		switch sec {
		case SectionParams:
			b.WriteString("Args:")
			for _, p := range f.Params {
				b.WriteString("\n" + pad + p.Name)
				if p.Type != "" {
					b.WriteString(" (" + p.Type + ")")
				}
				b.WriteString(": ")
				writeIndented(b, p.Desc, pad+pad)
			}
		case SectionReturns:
			if f.Returns.Yields {
				b.WriteString("Yields:")
			} else {
				b.WriteString("Returns:")
			}
			b.WriteString("\n" + pad)
			if f.Returns.Type != "" {
				b.WriteString(f.Returns.Type + ": ")
			}
			writeIndented(b, f.Returns.Desc, pad+pad)
		case SectionRaises:
			b.WriteString("Raises:")
			for _, r := range f.Raises {
				b.WriteString("\n" + pad + r.Type + ": ")
				writeIndented(b, r.Desc, pad+pad)
			}
		}
	},

	parse: func(lines []string) parsed {
		p := parsed{sections: make(map[Section][]string)}
		var current *Section
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if indentOf(line) == 0 && strings.HasSuffix(trimmed, ":") {
				name := strings.ToLower(strings.TrimSuffix(trimmed, ":"))
				if sec, ok := googleSections[name]; ok {
					s := sec
					current = &s
					if strings.HasPrefix(name, "yield") {
						p.yields = true
					}
					continue
				}
			}
			if current != nil && (trimmed == "" || indentOf(line) > 0) {
				p.sections[*current] = append(p.sections[*current], line)
				continue
			}
			current = nil
			p.rest = append(p.rest, line)
		}
		return p
	},

	entries: func(sec Section, body []string, f *Facts) {
		switch sec {
		case SectionParams:
			for _, block := range entryBlocks(body) {
				m := googleParamRe.FindStringSubmatch(strings.TrimSpace(block[0]))
				if m == nil {
					continue
				}
				f.Params = append(f.Params, Param{
					Name: m[1],
					Type: strings.TrimSpace(m[2]),
					Desc: joinDesc(m[3], block[1:]),
				})
			}
		case SectionReturns:
			text := joinDesc("", dedent(body))
			r := &Return{Desc: text}
			first, more, _ := strings.Cut(text, "\n")
			if m := googleReturnRe.FindStringSubmatch(first); m != nil && looksLikeType(m[1]) {
				r.Type = strings.TrimSpace(m[1])
				r.Desc = joinDesc(m[2], strings.Split(more, "\n"))
			}
			if r.Desc != "" || r.Type != "" {
				f.Returns = r
			}
		case SectionRaises:
			for _, block := range entryBlocks(body) {
				m := googleRaiseRe.FindStringSubmatch(strings.TrimSpace(block[0]))
				if m == nil {
					continue
				}
				f.Raises = append(f.Raises, Raise{Type: m[1], Desc: joinDesc(m[2], block[1:])})
			}
		}
	},
}

// looksLikeType reports whether s reads as a type expression such as
// "dict[str, int]" or "int | None" rather than prose. Spaces are allowed
// only inside brackets and around "|".
func looksLikeType(s string) bool {
	s = unionBarRe.ReplaceAllString(strings.TrimSpace(s), "|")
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '[':
			depth++
		case r == ']':
			depth--
		case r == ' ' && depth > 0:
			continue
		}
		b.WriteRune(r)
	}
	return depth == 0 && typeExprRe.MatchString(b.String())
}
