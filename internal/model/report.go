package model

import "sort"

// Severity of a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ModuleScope names the module itself in issues that do not belong to a callable.
const ModuleScope = "<module>"

// ValidationIssue is one finding of a validator rule.
type ValidationIssue struct {
	Rule     string // R1..R9
	Code     string // nearest pydocstyle code
	Severity Severity
	Callable string
	Line     int
	Message  string
}

// CallableStatus summarises a callable after a pipeline run.
type CallableStatus string

const (
	StatusCompliant    CallableStatus = "compliant"
	StatusNonCompliant CallableStatus = "non_compliant"
	StatusNotGenerated CallableStatus = "not_generated"
	StatusUndocumented CallableStatus = "undocumented"
)

// CallableReport is the per-callable row of a report.
type CallableReport struct {
	Name       string
	Kind       Kind
	Line       int
	Documented bool
	Compliant  bool
	Errors     int
	Warnings   int
	Status     CallableStatus
	Result     ResultStatus // empty when validation ran without synthesis
	Failure    FailureKind
}

// ValidationReport aggregates the issues of one source unit.
type ValidationReport struct {
	Issues     []ValidationIssue
	Callables  []CallableReport
	Total      int
	Documented int
	Compliant  int
}

// Errors counts issues with error severity.
func (r *ValidationReport) Errors() int {
	return r.count(SeverityError)
}

// Warnings counts issues with warning severity.
func (r *ValidationReport) Warnings() int {
	return r.count(SeverityWarning)
}

func (r *ValidationReport) count(sev Severity) int {
	n := 0
	for i := range r.Issues {
		if r.Issues[i].Severity == sev {
			n++
		}
	}
	return n
}

// RuleCount is the number of issues raised by one rule.
type RuleCount struct {
	Rule     string
	Code     string
	Severity Severity
	Count    int
}

// ByRule groups issues by rule, sorted by rule identifier.
func (r *ValidationReport) ByRule() []RuleCount {
	idx := make(map[string]int)
	var out []RuleCount
	for i := range r.Issues {
		is := &r.Issues[i]
		key := is.Rule + "/" + is.Code
		j, ok := idx[key]
		if !ok {
			j = len(out)
			idx[key] = j
			out = append(out, RuleCount{Rule: is.Rule, Code: is.Code, Severity: is.Severity})
		}
		out[j].Count++
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Rule != out[b].Rule {
			return out[a].Rule < out[b].Rule
		}
		return out[a].Code < out[b].Code
	})
	return out
}

// FileReport is the outcome for one source file of a multi-file command.
type FileReport struct {
	Path     string
	Coverage Coverage           // of the input, over included callables
	Report   *ValidationReport  // nil when the file could not be processed
	Results  []GenerationResult // nil unless docstrings were generated
	Changed  bool
	Err      error
}
