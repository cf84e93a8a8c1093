// Package validate checks Python docstrings against PEP 257 and the
// declared signature of each callable.
package validate

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"

	"github.com/phobologic/pydocgen/internal/extract"
	"github.com/phobologic/pydocgen/internal/model"
	"github.com/phobologic/pydocgen/internal/style"
)

// Options controls which callables and rules take part in validation.
type Options struct {
	Include                model.Inclusion
	RequireModuleDocstring bool
	// Style is assumed for docstrings whose own style cannot be detected.
	Style model.Style
}

// Validate extracts source and checks it. It never fails: source that does
// not parse is reported as a single module-scope error.
func Validate(ctx context.Context, source []byte, opts Options) *model.ValidationReport {
	table, err := extract.Extract(ctx, source)
	if err != nil {
		issue := model.ValidationIssue{
			Rule:     "syntax",
			Code:     "E999",
			Severity: model.SeverityError,
			Callable: model.ModuleScope,
			Message:  err.Error(),
		}
		var se *extract.SyntaxError
		if errors.As(err, &se) {
			issue.Line = se.Line
			issue.Message = se.Message
		}
		return &model.ValidationReport{Issues: []model.ValidationIssue{issue}}
	}
	return Check(table, opts)
}

// Check validates an already extracted table.
func Check(table *model.Table, opts Options) *model.ValidationReport {
	return check(table, opts, rules)
}

func check(table *model.Table, opts Options, set []rule) *model.ValidationReport {
	report := &model.ValidationReport{}

	module := &target{name: model.ModuleScope, line: 1, doc: table.ModuleDocstring, style: opts.Style}
	if module.doc != nil || opts.RequireModuleDocstring {
		report.Issues = append(report.Issues, module.run(set)...)
	}

	for i := range table.Signatures {
		sig := &table.Signatures[i]
		if !opts.Include.Includes(sig) {
			continue
		}
		t := &target{name: sig.QualifiedName, line: sig.Line, sig: sig, doc: sig.Docstring, style: opts.Style}
		issues := t.run(set)
		report.Issues = append(report.Issues, issues...)

		row := model.CallableReport{
			Name:       sig.QualifiedName,
			Kind:       sig.Kind,
			Line:       sig.Line,
			Documented: sig.HasDocstring(),
		}
		for _, is := range issues {
			if is.Severity == model.SeverityError {
				row.Errors++
			} else {
				row.Warnings++
			}
		}
		row.Compliant = row.Documented && row.Errors == 0
		switch {
		case row.Compliant:
			row.Status = model.StatusCompliant
		case row.Documented:
			row.Status = model.StatusNonCompliant
		default:
			row.Status = model.StatusUndocumented
		}

		report.Total++
		if row.Documented {
			report.Documented++
		}
		if row.Compliant {
			report.Compliant++
		}
		report.Callables = append(report.Callables, row)
	}
	return report
}

// target is the module or one callable under validation.
type target struct {
	name  string
	line  int
	sig   *model.CallableSignature // nil for the module
	doc   *model.Docstring
	style model.Style

	facts *style.Facts
}

// parsed returns the structured content of the docstring, parsed once.
func (t *target) parsed() *style.Facts {
	if t.facts == nil {
		t.facts, _ = style.ParseAny(t.doc.Text, t.style)
	}
	return t.facts
}

func (t *target) run(set []rule) []model.ValidationIssue {
	var out []model.ValidationIssue
	for _, r := range set {
		if r.needsDoc && t.doc == nil {
			continue
		}
		if r.callableOnly && t.sig == nil {
			continue
		}
		for _, f := range r.check(t) {
			line := t.line
			if t.doc != nil {
				line = t.doc.Span.StartLine
			}
			out = append(out, model.ValidationIssue{
				Rule:     r.id,
				Code:     f.code,
				Severity: r.severity,
				Callable: t.name,
				Line:     line,
				Message:  f.message,
			})
		}
	}
	return out
}

type finding struct {
	code    string
	message string
}

type rule struct {
	id       string
	severity model.Severity
	// needsDoc skips targets without a docstring; callableOnly skips the module.
	needsDoc     bool
	callableOnly bool
	check        func(t *target) []finding
}

var rules = []rule{
	{id: "R1", severity: model.SeverityError, check: checkPresent},
	{id: "R2", severity: model.SeverityWarning, needsDoc: true, check: checkSummary},
	{id: "R3", severity: model.SeverityWarning, needsDoc: true, check: checkSummarySpacing},
	{id: "R4", severity: model.SeverityWarning, needsDoc: true, check: checkClosingQuotes},
	{id: "R5", severity: model.SeverityError, needsDoc: true, callableOnly: true, check: checkParams},
	{id: "R6", severity: model.SeverityError, needsDoc: true, callableOnly: true, check: checkReturns},
	{id: "R7", severity: model.SeverityWarning, needsDoc: true, check: checkQuoteStyle},
	{id: "R8", severity: model.SeverityWarning, needsDoc: true, check: checkSurroundingSpace},
	{id: "R9", severity: model.SeverityWarning, needsDoc: true, check: checkCapitalized},
}

// R1: every public callable carries a non-empty docstring.
func checkPresent(t *target) []finding {
	if t.doc != nil {
		if strings.TrimSpace(t.doc.Text) == "" {
			return []finding{{"D419", "docstring is empty"}}
		}
		return nil
	}
	if t.sig == nil {
		return []finding{{"D100", "missing docstring in public module"}}
	}
	sig := t.sig
	switch {
	case sig.Kind == model.Class:
		return []finding{{"D101", "missing docstring in public class"}}
	case sig.Name == "__init__":
		return []finding{{"D107", "missing docstring in __init__"}}
	case sig.Visibility == model.Magic:
		return []finding{{"D105", "missing docstring in magic method"}}
	case sig.Kind == model.Method:
		return []finding{{"D102", "missing docstring in public method"}}
	}
	return []finding{{"D103", "missing docstring in public function"}}
}

// R2: the summary is one line and ends in a stop mark.
func checkSummary(t *target) []finding {
	summary, n := style.Summary(t.doc.Text)
	if summary == "" {
		return nil
	}
	var out []finding
	if n > 1 {
		out = append(out, finding{"D200", fmt.Sprintf("summary spans %d lines, want 1", n)})
	}
	if !strings.ContainsRune(".!?", lastRune(summary)) {
		out = append(out, finding{"D400", "summary should end with a period, question mark or exclamation point"})
	}
	return out
}

// R3: exactly one blank line separates the summary from what follows.
func checkSummarySpacing(t *target) []finding {
	lines := strings.Split(t.doc.Text, "\n")
	_, n := style.Summary(t.doc.Text)
	if n == 0 || n >= len(lines) {
		return nil
	}
	blanks := 0
	for _, line := range lines[n:] {
		if strings.TrimSpace(line) != "" {
			break
		}
		blanks++
	}
	if blanks == 1 {
		return nil
	}
	return []finding{{"D205", fmt.Sprintf("%d blank lines between summary and description, want 1", blanks)}}
}

// R4: a multi-line docstring closes on its own line.
func checkClosingQuotes(t *target) []finding {
	if !t.doc.MultiLine() || t.doc.Quote == "" {
		return nil
	}
	raw := strings.TrimRight(t.doc.Raw, "\r\n")
	last := raw[strings.LastIndexByte(raw, '\n')+1:]
	if strings.TrimSpace(last) == t.doc.Quote {
		return nil
	}
	return []finding{{"D209", "multi-line docstring closing quotes should be on a separate line"}}
}

// R5: the parameter block lists exactly the declared parameters.
func checkParams(t *target) []finding {
	if t.sig.Kind == model.Class {
		return nil
	}
	declared := t.sig.DocumentedParams()
	documented := t.parsed().Names()
	if len(declared) > 0 && len(documented) == 0 {
		return []finding{{"D417", "missing parameter section for " + strings.Join(bareNames(declared), ", ")}}
	}

	have := make(map[string]bool, len(documented))
	for _, name := range documented {
		have[name] = true
	}
	want := make(map[string]bool, len(declared))
	var missing []string
	for _, name := range bareNames(declared) {
		want[name] = true
		if !have[name] {
			missing = append(missing, name)
		}
	}
	var extra []string
	recv := t.sig.Receiver()
	for _, name := range documented {
		if !want[name] && name != recv {
			extra = append(extra, name)
		}
	}

	var out []finding
	if len(missing) > 0 {
		out = append(out, finding{"DAR101", "missing parameters in docstring: " + strings.Join(missing, ", ")})
	}
	if len(extra) > 0 {
		out = append(out, finding{"DAR102", "documented parameters not in signature: " + strings.Join(extra, ", ")})
	}
	return out
}

// R6: a return section is present when the return annotation is not None.
func checkReturns(t *target) []finding {
	if !t.sig.ReturnsDocumented() || t.parsed().Returns != nil {
		return nil
	}
	what := "return"
	if t.sig.Generator {
		what = "yield"
	}
	return []finding{{"DAR201", fmt.Sprintf("missing %s section for annotation %q", what, t.sig.Returns)}}
}

// R7: docstrings use triple double quotes.
func checkQuoteStyle(t *target) []finding {
	if t.doc.Quote == `"""` {
		return nil
	}
	return []finding{{"D300", fmt.Sprintf(`use """triple double quotes""", found %s`, t.doc.Quote)}}
}

// R8: no whitespace between the opening quotes and the text, nor before the
// closing quotes of a one-line docstring.
func checkSurroundingSpace(t *target) []finding {
	_, _, body := extract.Dequote(t.doc.Raw)
	if strings.TrimSpace(body) == "" {
		return nil
	}
	var bad bool
	if t.doc.MultiLine() {
		first, _, _ := strings.Cut(body, "\n")
		bad = strings.TrimSpace(first) != "" && strings.TrimLeft(first, " \t") != first
	} else {
		bad = strings.TrimSpace(body) != body
	}
	if !bad {
		return nil
	}
	return []finding{{"D210", "no whitespaces allowed surrounding docstring text"}}
}

// R9: the first word of the summary is capitalized.
func checkCapitalized(t *target) []finding {
	summary, _ := style.Summary(t.doc.Text)
	word, _, _ := strings.Cut(summary, " ")
	word = strings.TrimRight(word, ".,:;!?")
	if word == "" || !isWord(word) {
		return nil
	}
	first := []rune(word)[0]
	if !unicode.IsLower(first) {
		return nil
	}
	return []finding{{"D403", fmt.Sprintf("first word of the summary should be capitalized: %q", word)}}
}

func bareNames(params []model.Parameter) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.Name
	}
	return out
}

func lastRune(s string) rune {
	r := []rune(s)
	return r[len(r)-1]
}

func isWord(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
