package style

import (
	"regexp"
	"strings"
)

// restField matches ":kind [arg...]: text".
var restField = regexp.MustCompile(`^:(\w+)((?:\s+[^:]+?)?)\s*:(.*)$`)

var restLayout = layout{
	header: func(sec Section, yields bool) string {
		switch sec {
		case SectionParams:
			return ":param <name>:"
		case SectionReturns:
			if yields {
				return ":yields:"
			}
			return ":returns:"
		}
		return ":raises <exception>:"
	},

	section: func(b *strings.Builder, sec Section, f *Facts) {
		const pad = "    "
		switch sec {
		case SectionParams:
			for i, p := range f.Params {
				if i > 0 {
					b.WriteString("\n")
				}
				b.WriteString(":param " + BareName(p.Name) + ": ")
				writeIndented(b, p.Desc, pad)
				if p.Type != "" {
					b.WriteString("\n:type " + BareName(p.Name) + ": " + p.Type)
				}
			}
		case SectionReturns:
			kind, tkind := "returns", "rtype"
			if f.Returns.Yields {
				kind, tkind = "yields", "ytype"
			}
			b.WriteString(":" + kind + ": ")
			writeIndented(b, f.Returns.Desc, pad)
			if f.Returns.Type != "" {
				b.WriteString("\n:" + tkind + ": " + f.Returns.Type)
			}
		case SectionRaises:
			for i, r := range f.Raises {
				if i > 0 {
					b.WriteString("\n")
				}
				b.WriteString(":raises " + r.Type + ": ")
				writeIndented(b, r.Desc, pad)
			}
		}
	},

	// reST fields are self-describing, so every field line goes to the
	// section it names and entries() sorts them out.
	parse: func(lines []string) parsed {
		p := parsed{sections: make(map[Section][]string)}
		var current *Section
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if m := restField.FindStringSubmatch(trimmed); m != nil && indentOf(line) == 0 {
				sec, ok := restSection(m[1])
				if ok {
					s := sec
					current = &s
					if m[1] == "yield" || m[1] == "yields" || m[1] == "ytype" {
						p.yields = true
					}
					p.sections[sec] = append(p.sections[sec], trimmed)
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
		for _, block := range entryBlocks(body) {
			m := restField.FindStringSubmatch(strings.TrimSpace(block[0]))
			if m == nil {
				continue
			}
			kind, arg := m[1], strings.TrimSpace(m[2])
			desc := joinDesc(m[3], block[1:])
			switch kind {
			case "param", "parameter", "arg", "argument", "key", "keyword":
				// ":param int x:" carries the type inline.
				typ, name := "", arg
				if i := strings.LastIndexByte(arg, ' '); i >= 0 {
					typ, name = strings.TrimSpace(arg[:i]), arg[i+1:]
				}
				restParam(f, name).Desc = desc
				if typ != "" {
					restParam(f, name).Type = typ
				}
			case "type":
				restParam(f, arg).Type = desc
			case "returns", "return", "yields", "yield":
				restReturn(f).Desc = desc
			case "rtype", "ytype":
				restReturn(f).Type = desc
			case "raises", "raise", "except", "exception":
				f.Raises = append(f.Raises, Raise{Type: arg, Desc: desc})
			}
		}
	},
}

func restSection(kind string) (Section, bool) {
	switch kind {
	case "param", "parameter", "arg", "argument", "key", "keyword", "type":
		return SectionParams, true
	case "returns", "return", "rtype", "yields", "yield", "ytype":
		return SectionReturns, true
	case "raises", "raise", "except", "exception":
		return SectionRaises, true
	}
	return 0, false
}

// restParam returns the entry for name, appending one if needed.
// :type fields may precede or follow their :param.
func restParam(f *Facts, name string) *Param {
	for i := range f.Params {
		if BareName(f.Params[i].Name) == BareName(name) {
			return &f.Params[i]
		}
	}
	f.Params = append(f.Params, Param{Name: name})
	return &f.Params[len(f.Params)-1]
}

func restReturn(f *Facts) *Return {
	if f.Returns == nil {
		f.Returns = &Return{}
	}
	return f.Returns
}
