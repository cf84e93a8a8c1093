// Package model defines core data structures for pydocgen.
package model

import "strings"

// Kind indicates the syntactic kind of a callable.
type Kind string

const (
	Function Kind = "function"
	Method   Kind = "method"
	Class    Kind = "class"
)

// ParamKind distinguishes ordinary parameters from variadic ones.
type ParamKind string

const (
	Positional    ParamKind = ""
	VarPositional ParamKind = "*"
	VarKeyword    ParamKind = "**"
)

// Parameter is a single declared parameter. Type and Default are empty
// when the source does not declare them.
type Parameter struct {
	Name    string
	Kind    ParamKind
	Type    string
	Default string
}

// Display returns the parameter name with its variadic prefix (e.g. "*args").
func (p Parameter) Display() string {
	return string(p.Kind) + p.Name
}

// Span is a byte and line range in source text. Lines are 1-based and
// EndByte is exclusive. A zero-width span marks an insertion point.
type Span struct {
	StartByte int
	EndByte   int
	StartLine int
	EndLine   int
}

// Empty reports whether the span covers no bytes.
func (s Span) Empty() bool { return s.StartByte == s.EndByte }

// Docstring is a string literal found as the first statement of a body.
type Docstring struct {
	Raw    string // verbatim literal, including prefix and quotes
	Text   string // dequoted and dedented per PEP 257
	Prefix string // string prefix such as "r" or "u"
	Quote  string // opening quote sequence
	Span   Span
	Indent string // leading whitespace of the literal's line
}

// MultiLine reports whether the literal spans more than one line.
func (d *Docstring) MultiLine() bool {
	return d.Span.EndLine > d.Span.StartLine
}

// Visibility classifies a callable for inclusion rules.
type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
	Magic   Visibility = "magic"
)

// CallableSignature describes a function, method or class definition.
type CallableSignature struct {
	Index         int
	Name          string
	QualifiedName string
	Kind          Kind
	Params        []Parameter
	Returns       string
	Async         bool
	Generator     bool
	Decorators    []string
	Raises        []string
	Signature     string // collapsed header text, e.g. "area(w: int) -> int"
	Source        string // full definition text without decorators
	Line          int    // line of the def/class keyword
	DecoratorLine int    // first decorator line, or Line when undecorated
	EndLine       int
	Owner         int // index of the enclosing callable in the Table, -1 at module level
	Depth         int
	Visibility    Visibility
	Docstring     *Docstring

	// Span is the docstring region: the existing literal, the zero-width
	// insertion point after the header, or the whitespace before an inline body.
	Span Span
	// Indent is the body indentation the docstring must use.
	Indent string
	// Inline is set when the body starts on the header line.
	Inline bool
}

// HasDocstring reports whether the callable already carries a docstring.
func (c *CallableSignature) HasDocstring() bool {
	return c.Docstring != nil
}

// Receiver returns the name of a method's implicit first parameter
// (self or cls), or "" when there is none.
func (c *CallableSignature) Receiver() string {
	if c.Kind != Method || len(c.Params) == 0 || c.HasDecorator("staticmethod") {
		return ""
	}
	if p := c.Params[0]; (p.Name == "self" || p.Name == "cls") && p.Kind == Positional {
		return p.Name
	}
	return ""
}

// DocumentedParams returns the parameters a docstring is expected to list.
// The implicit receiver of a method is omitted.
func (c *CallableSignature) DocumentedParams() []Parameter {
	if c.Kind == Class {
		return nil
	}
	if c.Receiver() != "" {
		return c.Params[1:]
	}
	return c.Params
}

// ReturnsDocumented reports whether a returns section is mandatory:
// a return annotation is present and is not None.
func (c *CallableSignature) ReturnsDocumented() bool {
	if c.Kind == Class {
		return false
	}
	r := strings.TrimSpace(c.Returns)
	return r != "" && r != "None"
}

// HasDecorator reports whether the callable is decorated with name
// (matched on the last dotted component, ignoring call arguments).
func (c *CallableSignature) HasDecorator(name string) bool {
	for _, d := range c.Decorators {
		if i := strings.IndexByte(d, '('); i >= 0 {
			d = d[:i]
		}
		if j := strings.LastIndexByte(d, '.'); j >= 0 {
			d = d[j+1:]
		}
		if d == name {
			return true
		}
	}
	return false
}

// Table owns every signature of one source unit in flat storage.
// Owner relations are indices into Signatures.
type Table struct {
	Signatures      []CallableSignature
	ModuleDocstring *Docstring
}

// Owner returns the enclosing callable of sig, if any.
func (t *Table) Owner(sig *CallableSignature) (*CallableSignature, bool) {
	if sig.Owner < 0 || sig.Owner >= len(t.Signatures) {
		return nil, false
	}
	return &t.Signatures[sig.Owner], true
}

// Coverage counts documented callables among those accepted by include.
// A nil include accepts every callable.
func (t *Table) Coverage(include func(*CallableSignature) bool) Coverage {
	var cov Coverage
	for i := range t.Signatures {
		sig := &t.Signatures[i]
		if include != nil && !include(sig) {
			continue
		}
		cov.Total++
		if sig.HasDocstring() {
			cov.Documented++
		} else {
			cov.Undocumented++
		}
	}
	return cov
}

// Coverage holds documentation counts for a source unit.
// Documented + Undocumented == Total.
type Coverage struct {
	Total        int
	Documented   int
	Undocumented int
}

// Percent returns the documented share in percent, 0 when there are no callables.
func (c Coverage) Percent() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Documented) / float64(c.Total) * 100
}

// Add returns the element-wise sum of two coverages.
func (c Coverage) Add(o Coverage) Coverage {
	return Coverage{
		Total:        c.Total + o.Total,
		Documented:   c.Documented + o.Documented,
		Undocumented: c.Undocumented + o.Undocumented,
	}
}

// Inclusion decides which callables take part in coverage, validation
// and synthesis.
type Inclusion struct {
	Private bool
	Magic   bool
}

// Includes reports whether sig is in scope.
func (in Inclusion) Includes(sig *CallableSignature) bool {
	switch sig.Visibility {
	case Private:
		return in.Private
	case Magic:
		return in.Magic
	}
	return true
}
