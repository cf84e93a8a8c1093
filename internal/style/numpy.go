package style

import (
	"regexp"
	"strings"
)

var numpySections = map[string]Section{
	"parameters":       SectionParams,
	"other parameters": SectionParams,
	"returns":          SectionReturns,
	"yields":           SectionReturns,
	"raises":           SectionRaises,
}

var numpyParamRe = regexp.MustCompile(`^(\*{0,2}[A-Za-z_]\w*)\s*(?::\s*(.*))?$`)

func numpyTitle(title string) string {
	return title + "\n" + strings.Repeat("-", len(title))
}

var numpyLayout = layout{
	header: func(sec Section, yields bool) string {
		switch sec {
		case SectionParams:
			return numpyTitle("Parameters")
		case SectionReturns:
			if yields {
				return numpyTitle("Yields")
			}
			return numpyTitle("Returns")
		}
		return numpyTitle("Raises")
	},

	section: func(b *strings.Builder, sec Section, f *Facts) {
		const pad = "    "
		switch sec {
		case SectionParams:
			b.WriteString(numpyTitle("Parameters"))
			for _, p := range f.Params {
				b.WriteString("\n" + p.Name)
				if p.Type != "" {
					b.WriteString(" : " + p.Type)
				}
				if p.Desc != "" {
					b.WriteString("\n" + pad)
					writeIndented(b, p.Desc, pad)
				}
			}
		case SectionReturns:
			if f.Returns.Yields {
				b.WriteString(numpyTitle("Yields"))
			} else {
				b.WriteString(numpyTitle("Returns"))
			}
			if f.Returns.Type != "" {
				b.WriteString("\n" + f.Returns.Type)
			}
			if f.Returns.Desc != "" {
				b.WriteString("\n" + pad)
				writeIndented(b, f.Returns.Desc, pad)
			}
		case SectionRaises:
			b.WriteString(numpyTitle("Raises"))
			for _, r := range f.Raises {
				b.WriteString("\n" + r.Type)
				if r.Desc != "" {
					b.WriteString("\n" + pad)
					writeIndented(b, r.Desc, pad)
				}
			}
		}
	},

	parse: func(lines []string) parsed {
		p := parsed{sections: make(map[Section][]string)}
		var current *Section
		for i := 0; i < len(lines); i++ {
			line := lines[i]
			trimmed := strings.TrimSpace(line)
			if trimmed != "" && i+1 < len(lines) && dashRe.MatchString(lines[i+1]) {
				name := strings.ToLower(trimmed)
				if sec, ok := numpySections[name]; ok {
					s := sec
					current = &s
					if name == "yields" {
						p.yields = true
					}
					i++
					continue
				}
				// Unknown sections such as Notes or Examples stay in the description.
				current = nil
			}
			if current != nil {
				p.sections[*current] = append(p.sections[*current], line)
				continue
			}
			p.rest = append(p.rest, line)
		}
		return p
	},

	entries: func(sec Section, body []string, f *Facts) {
		blocks := entryBlocks(body)
		switch sec {
		case SectionParams:
			for _, block := range blocks {
				head := strings.TrimSpace(block[0])
				// "x, y : int" documents several parameters at once.
				names, typ, _ := strings.Cut(head, ":")
				desc := joinDesc("", block[1:])
				for _, name := range strings.Split(names, ",") {
					m := numpyParamRe.FindStringSubmatch(strings.TrimSpace(name))
					if m == nil {
						continue
					}
					f.Params = append(f.Params, Param{Name: m[1], Type: strings.TrimSpace(typ), Desc: desc})
				}
			}
		case SectionReturns:
			// Section lines keep their absolute indentation here: a line at
			// column zero is a type, an indented one is description.
			var head string
			var desc []string
		scan:
			for _, line := range body {
				switch {
				case strings.TrimSpace(line) == "":
					if len(desc) > 0 {
						desc = append(desc, "")
					}
				case indentOf(line) > 0:
					desc = append(desc, line)
				case head == "" && len(desc) == 0:
					head = strings.TrimSpace(line)
				default:
					break scan
				}
			}
			// "name : type" or a bare type.
			if _, typ, ok := strings.Cut(head, " : "); ok {
				head = typ
			}
			r := &Return{Type: strings.TrimSpace(head), Desc: joinDesc("", desc)}
			if r.Desc != "" || r.Type != "" {
				f.Returns = r
			}
		case SectionRaises:
			for _, block := range blocks {
				f.Raises = append(f.Raises, Raise{
					Type: strings.TrimSpace(block[0]),
					Desc: joinDesc("", block[1:]),
				})
			}
		}
	},
}
