package style

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cockroachdb/errors"

	"github.com/phobologic/pydocgen/internal/extract"
	"github.com/phobologic/pydocgen/internal/model"
)

var (
	// ErrEmptyResponse is returned when a backend answer holds no docstring text.
	ErrEmptyResponse = errors.New("empty response")
	// ErrMalformedResponse is returned when a backend answer cannot be
	// parsed into a docstring that fits the signature.
	ErrMalformedResponse = errors.New("malformed response")
)

// Response is a backend answer normalized to the requested style.
type Response struct {
	Text  string // canonical docstring body, unquoted and unindented
	Facts *Facts
	Notes []string // problems the backend reported in the code
}

var (
	envelopeRe = regexp.MustCompile(`(?m)^[ \t]*(DOCSTRING|FIXED_CODE|ERRORS_FOUND):[ \t]*`)
	openQuote  = regexp.MustCompile(`^[rRuU]{0,2}("""|''')`)
	closeQuote = regexp.MustCompile(`("""|''')$`)
)

// ParseResponse turns raw backend output into a docstring for sig in
// style st. Signature facts take precedence over the backend's: declared
// types replace documented ones and parameters follow declaration order.
func ParseResponse(raw string, sig *model.CallableSignature, st model.Style) (*Response, error) {
	text, notes := unwrapEnvelope(raw)
	text = extract.Clean(stripQuotes(stripFences(text)))
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}
	if strings.Contains(text, SummaryPlaceholder) || strings.Contains(text, DescPlaceholder) {
		return nil, errors.Wrap(ErrMalformedResponse, "unfilled skeleton placeholder")
	}

	f, _ := ParseAny(text, st)
	if err := conform(f, sig); err != nil {
		return nil, err
	}
	return &Response{Text: Render(st, f), Facts: f, Notes: notes}, nil
}

// unwrapEnvelope extracts the DOCSTRING part of a sectioned answer and the
// ERRORS_FOUND notes. Plain answers pass through unchanged.
func unwrapEnvelope(raw string) (string, []string) {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	locs := envelopeRe.FindAllStringSubmatchIndex(raw, -1)
	if len(locs) == 0 {
		return raw, nil
	}

	parts := make(map[string]string, len(locs))
	for i, loc := range locs {
		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		parts[raw[loc[2]:loc[3]]] = strings.TrimSpace(raw[loc[1]:end])
	}

	doc, ok := parts["DOCSTRING"]
	if !ok {
		doc = raw[:locs[0][0]]
	}

	var notes []string
	for _, line := range strings.Split(parts["ERRORS_FOUND"], "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*"))
		if line == "" || strings.EqualFold(strings.TrimSuffix(line, "."), "none") {
			continue
		}
		notes = append(notes, line)
	}
	return doc, notes
}

func stripFences(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if loc := openQuote.FindStringIndex(s); loc != nil {
		s = s[loc[1]:]
	}
	if loc := closeQuote.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	return s
}

// conform checks f against sig and normalizes it in place.
func conform(f *Facts, sig *model.CallableSignature) error {
	f.Summary = sentence(f.Summary)
	if f.Summary == "" {
		return errors.Wrap(ErrMalformedResponse, "no summary line")
	}

	if sig.Kind != model.Class {
		if recv := sig.Receiver(); recv != "" {
			f.Params = slices.DeleteFunc(f.Params, func(p Param) bool { return BareName(p.Name) == recv })
		}
		if err := conformParams(f, sig.DocumentedParams()); err != nil {
			return err
		}
	}

	if sig.ReturnsDocumented() {
		if f.Returns == nil {
			return errors.Wrapf(ErrMalformedResponse, "no returns section for return type %s", sig.Returns)
		}
		f.Returns.Type = sig.Returns
	}
	if f.Returns != nil {
		f.Returns.Yields = f.Returns.Yields || sig.Generator
	}
	return nil
}

// conformParams requires documented names to equal declared ones and
// reorders the entries to declaration order.
func conformParams(f *Facts, declared []model.Parameter) error {
	byName := make(map[string]Param, len(f.Params))
	for _, p := range f.Params {
		byName[BareName(p.Name)] = p
	}

	var missing []string
	ordered := make([]Param, 0, len(declared))
	for _, d := range declared {
		p, ok := byName[d.Name]
		if !ok {
			missing = append(missing, d.Display())
			continue
		}
		delete(byName, d.Name)
		p.Name = d.Display()
		if d.Type != "" {
			p.Type = d.Type
		}
		if strings.TrimSpace(p.Desc) == "" {
			missing = append(missing, d.Display())
			continue
		}
		ordered = append(ordered, p)
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrMalformedResponse, "parameters not documented: %s", strings.Join(missing, ", "))
	}
	if len(byName) > 0 {
		var extra []string
		for _, p := range f.Params {
			if _, ok := byName[BareName(p.Name)]; ok {
				extra = append(extra, p.Name)
			}
		}
		return errors.Wrapf(ErrMalformedResponse, "unknown parameters documented: %s", strings.Join(extra, ", "))
	}
	f.Params = ordered
	return nil
}

// sentence capitalizes s and terminates it with a period if it has no
// closing punctuation. A dangling ":" or ";" is replaced.
func sentence(s string) string {
	s = strings.TrimRight(strings.TrimSpace(s), ":;")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	s = string(unicode.ToUpper(r)) + s[size:]
	if !strings.ContainsAny(s[len(s)-1:], ".?!") {
		s += "."
	}
	return s
}
