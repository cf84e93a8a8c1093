// Package toon implements TOON (Token-Oriented Object Notation) encoding
// of pydocgen reports.
package toon

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/phobologic/pydocgen/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// EncodeReport converts per-file generation or validation reports into
// TOON format: a summary, then files, callables, issues, rule counts,
// backend notes and file errors.
func EncodeReport(files []model.FileReport) string {
	var parts []string
	parts = append(parts, summary(files)...)

	var fileRows, callableRows, issueRows, noteRows, errorRows [][]string
	ruleCounts := make(map[string]*model.RuleCount)
	var ruleOrder []string

	for i := range files {
		f := &files[i]
		if f.Err != nil {
			errorRows = append(errorRows, []string{f.Path, f.Err.Error()})
			continue
		}
		r := f.Report
		if r == nil {
			continue
		}
		fileRows = append(fileRows, []string{
			f.Path,
			itoa(r.Total),
			itoa(r.Documented),
			itoa(r.Compliant),
			itoa(r.Errors()),
			itoa(r.Warnings()),
			yesNo(f.Changed),
		})
		for j := range r.Callables {
			c := &r.Callables[j]
			callableRows = append(callableRows, []string{
				f.Path,
				c.Name,
				string(c.Kind),
				itoa(c.Line),
				string(c.Status),
				string(c.Result),
				string(c.Failure),
			})
		}
		for j := range r.Issues {
			is := &r.Issues[j]
			issueRows = append(issueRows, []string{
				f.Path,
				itoa(is.Line),
				is.Callable,
				is.Rule,
				is.Code,
				string(is.Severity),
				is.Message,
			})
		}
		for _, rc := range r.ByRule() {
			key := rc.Rule + "/" + rc.Code
			if agg, ok := ruleCounts[key]; ok {
				agg.Count += rc.Count
				continue
			}
			rc := rc
			ruleCounts[key] = &rc
			ruleOrder = append(ruleOrder, key)
		}
		for j := range f.Results {
			res := &f.Results[j]
			for _, note := range res.Notes {
				noteRows = append(noteRows, []string{f.Path, res.QualifiedName, note})
			}
		}
	}

	parts = append(parts, formatTabular("files", []string{"path", "total", "documented", "compliant", "errors", "warnings", "changed"}, fileRows))
	parts = append(parts, formatTabular("callables", []string{"file", "name", "kind", "line", "status", "result", "failure"}, callableRows))
	parts = append(parts, formatTabular("issues", []string{"file", "line", "callable", "rule", "code", "severity", "message"}, issueRows))

	sort.Strings(ruleOrder)
	var ruleRows [][]string
	for _, key := range ruleOrder {
		rc := ruleCounts[key]
		ruleRows = append(ruleRows, []string{rc.Rule, rc.Code, string(rc.Severity), itoa(rc.Count)})
	}
	parts = append(parts, formatTabular("rules", []string{"rule", "code", "severity", "count"}, ruleRows))

	if len(noteRows) > 0 {
		parts = append(parts, formatTabular("notes", []string{"file", "callable", "note"}, noteRows))
	}
	if len(errorRows) > 0 {
		parts = append(parts, formatTabular("errors", []string{"file", "error"}, errorRows))
	}
	return strings.Join(parts, "\n")
}

// EncodeCoverage converts per-file coverage into TOON format, keeping the
// order of files.
func EncodeCoverage(files []model.FileReport) string {
	var total model.Coverage
	var rows, errorRows [][]string
	for i := range files {
		f := &files[i]
		if f.Err != nil {
			errorRows = append(errorRows, []string{f.Path, f.Err.Error()})
			continue
		}
		total = total.Add(f.Coverage)
		rows = append(rows, []string{
			f.Path,
			itoa(f.Coverage.Total),
			itoa(f.Coverage.Documented),
			itoa(f.Coverage.Undocumented),
			percent(f.Coverage),
		})
	}

	parts := []string{
		fmt.Sprintf("callables: %d", total.Total),
		fmt.Sprintf("documented: %d", total.Documented),
		fmt.Sprintf("coverage: %s", percent(total)),
		formatTabular("files", []string{"path", "total", "documented", "undocumented", "coverage"}, rows),
	}
	if len(errorRows) > 0 {
		parts = append(parts, formatTabular("errors", []string{"file", "error"}, errorRows))
	}
	return strings.Join(parts, "\n")
}

func summary(files []model.FileReport) []string {
	var total, documented, compliant, errs, warns int
	for i := range files {
		if r := files[i].Report; r != nil {
			total += r.Total
			documented += r.Documented
			compliant += r.Compliant
			errs += r.Errors()
			warns += r.Warnings()
		}
	}
	return []string{
		fmt.Sprintf("callables: %d", total),
		fmt.Sprintf("documented: %d", documented),
		fmt.Sprintf("compliant: %d", compliant),
		fmt.Sprintf("errors: %d", errs),
		fmt.Sprintf("warnings: %d", warns),
	}
}

func percent(c model.Coverage) string {
	return fmt.Sprintf("%.1f", c.Percent())
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
