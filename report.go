package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/phobologic/pydocgen/internal/model"
	"github.com/phobologic/pydocgen/internal/toon"
)

const (
	formatTOON = "toon"
	formatJSON = "json"
)

func checkFormat(format string) error {
	switch format {
	case formatTOON, formatJSON:
		return nil
	}
	return errors.WithHint(errors.Newf("unknown output format %q", format), "use --format toon or --format json")
}

type jsonSummary struct {
	Callables  int `json:"callables"`
	Documented int `json:"documented"`
	Compliant  int `json:"compliant"`
	Errors     int `json:"errors"`
	Warnings   int `json:"warnings"`
}

type jsonIssue struct {
	Line     int    `json:"line"`
	Callable string `json:"callable"`
	Rule     string `json:"rule"`
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type jsonCallable struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Line     int      `json:"line"`
	Status   string   `json:"status"`
	Result   string   `json:"result,omitempty"`
	Failure  string   `json:"failure,omitempty"`
	Attempts int      `json:"attempts,omitempty"`
	Notes    []string `json:"notes,omitempty"`
}

type jsonFile struct {
	Path       string         `json:"path"`
	Error      string         `json:"error,omitempty"`
	Changed    bool           `json:"changed"`
	Total      int            `json:"total"`
	Documented int            `json:"documented"`
	Compliant  int            `json:"compliant"`
	Coverage   float64        `json:"coverage"`
	Callables  []jsonCallable `json:"callables,omitempty"`
	Issues     []jsonIssue    `json:"issues,omitempty"`
}

type jsonReport struct {
	Summary jsonSummary `json:"summary"`
	Files   []jsonFile  `json:"files"`
}

func toJSONReport(files []model.FileReport) jsonReport {
	out := jsonReport{Files: make([]jsonFile, 0, len(files))}
	for i := range files {
		f := &files[i]
		jf := jsonFile{Path: f.Path, Changed: f.Changed, Coverage: f.Coverage.Percent()}
		if f.Err != nil {
			jf.Error = f.Err.Error()
			out.Files = append(out.Files, jf)
			continue
		}
		if r := f.Report; r != nil {
			jf.Total, jf.Documented, jf.Compliant = r.Total, r.Documented, r.Compliant
			out.Summary.Callables += r.Total
			out.Summary.Documented += r.Documented
			out.Summary.Compliant += r.Compliant
			out.Summary.Errors += r.Errors()
			out.Summary.Warnings += r.Warnings()

			attempts, notes := resultDetails(f.Results)
			for _, c := range r.Callables {
				jf.Callables = append(jf.Callables, jsonCallable{
					Name:     c.Name,
					Kind:     string(c.Kind),
					Line:     c.Line,
					Status:   string(c.Status),
					Result:   string(c.Result),
					Failure:  string(c.Failure),
					Attempts: attempts[c.Name],
					Notes:    notes[c.Name],
				})
			}
			for _, is := range r.Issues {
				jf.Issues = append(jf.Issues, jsonIssue{
					Line:     is.Line,
					Callable: is.Callable,
					Rule:     is.Rule,
					Code:     is.Code,
					Severity: string(is.Severity),
					Message:  is.Message,
				})
			}
		}
		out.Files = append(out.Files, jf)
	}
	return out
}

// resultDetails indexes backend attempts and notes by qualified name. For
// names defined more than once the counts are summed.
func resultDetails(results []model.GenerationResult) (map[string]int, map[string][]string) {
	attempts := make(map[string]int)
	notes := make(map[string][]string)
	for i := range results {
		r := &results[i]
		attempts[r.QualifiedName] += r.Attempts
		notes[r.QualifiedName] = append(notes[r.QualifiedName], r.Notes...)
	}
	return attempts, notes
}

// writeReport renders per-file reports in the chosen format.
func writeReport(w io.Writer, format string, files []model.FileReport) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(toJSONReport(files)), "encoding report")
	}
	_, err := fmt.Fprintln(w, toon.EncodeReport(files))
	return err
}

// writeCoverage renders the coverage table in the chosen format.
func writeCoverage(w io.Writer, format string, files []model.FileReport) error {
	if format == formatJSON {
		type row struct {
			Path         string  `json:"path"`
			Error        string  `json:"error,omitempty"`
			Total        int     `json:"total"`
			Documented   int     `json:"documented"`
			Undocumented int     `json:"undocumented"`
			Coverage     float64 `json:"coverage"`
		}
		var total model.Coverage
		rows := make([]row, 0, len(files))
		for i := range files {
			f := &files[i]
			r := row{Path: f.Path}
			if f.Err != nil {
				r.Error = f.Err.Error()
			} else {
				total = total.Add(f.Coverage)
				r.Total, r.Documented, r.Undocumented = f.Coverage.Total, f.Coverage.Documented, f.Coverage.Undocumented
				r.Coverage = f.Coverage.Percent()
			}
			rows = append(rows, r)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(map[string]any{
			"callables":  total.Total,
			"documented": total.Documented,
			"coverage":   total.Percent(),
			"files":      rows,
		}), "encoding coverage")
	}
	_, err := fmt.Fprintln(w, toon.EncodeCoverage(files))
	return err
}
