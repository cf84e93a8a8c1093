// Package pipeline runs one source unit through extraction, synthesis,
// merging and validation.
package pipeline

import (
	"bytes"
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/phobologic/pydocgen/internal/backend"
	"github.com/phobologic/pydocgen/internal/extract"
	"github.com/phobologic/pydocgen/internal/merge"
	"github.com/phobologic/pydocgen/internal/model"
	"github.com/phobologic/pydocgen/internal/synth"
	"github.com/phobologic/pydocgen/internal/validate"
)

// Options configures a run. Synth carries the tuning knobs of the
// synthesizer; its Style, Improve, Include and Logger are set from the
// fields here.
type Options struct {
	Style                  model.Style
	Improve                bool
	Include                model.Inclusion
	RequireModuleDocstring bool
	Synth                  synth.Options
	Logger                 *zap.SugaredLogger
}

// Outcome is everything a run produced.
type Outcome struct {
	RunID    string
	Source   []byte // merged source; the input unchanged where nothing was generated
	Changed  bool
	Coverage model.Coverage // of the input, over included callables
	Results  []model.GenerationResult
	Report   *model.ValidationReport
}

// Generated counts callables that received a new docstring.
func (o *Outcome) Generated() int {
	n := 0
	for i := range o.Results {
		if o.Results[i].Status == model.Generated {
			n++
		}
	}
	return n
}

// Failed counts callables whose generation failed.
func (o *Outcome) Failed() int {
	n := 0
	for i := range o.Results {
		if o.Results[i].Status == model.Failed {
			n++
		}
	}
	return n
}

// Run processes source with gen. Source that does not parse aborts the run
// with an *extract.SyntaxError. Otherwise the Outcome is always complete:
// a batch-level synthesis error (unconfigured backend, cancellation) is
// returned alongside it, and only callables that were generated are merged.
func Run(ctx context.Context, gen backend.Generator, source []byte, opts Options) (*Outcome, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	out := &Outcome{RunID: uuid.NewString()}
	log = log.With("run_id", out.RunID)

	table, err := extract.Extract(ctx, source)
	if err != nil {
		return nil, err
	}
	out.Coverage = table.Coverage(opts.Include.Includes)
	log.Debugw("extracted", "callables", len(table.Signatures), "documented", out.Coverage.Documented, "total", out.Coverage.Total)

	so := opts.Synth
	so.Style = opts.Style
	so.Improve = opts.Improve
	so.Include = opts.Include
	so.Logger = log
	results, batchErr := synth.New(gen, so).Run(ctx, table)
	out.Results = results

	merged, err := merge.Merge(source, merge.Pairs(table, results))
	if err != nil {
		return nil, errors.Wrap(err, "merging docstrings")
	}
	out.Source = merged
	out.Changed = !bytes.Equal(merged, source)

	// Validation must see the merged text even if the caller has cancelled.
	out.Report = validate.Validate(context.WithoutCancel(ctx), merged, validate.Options{
		Include:                opts.Include,
		RequireModuleDocstring: opts.RequireModuleDocstring,
		Style:                  opts.Style,
	})
	annotate(out.Report, table, results)

	log.Infow("run complete",
		"generated", out.Generated(),
		"failed", out.Failed(),
		"compliant", out.Report.Compliant,
		"total", out.Report.Total,
	)
	return out, batchErr
}

// annotate attaches each callable's synthesis outcome to its report row.
// Rows and results are matched by qualified name in order of appearance,
// since merging never adds or removes definitions.
func annotate(report *model.ValidationReport, table *model.Table, results []model.GenerationResult) {
	byName := make(map[string][]*model.GenerationResult)
	for i := range table.Signatures {
		if i >= len(results) {
			break
		}
		name := table.Signatures[i].QualifiedName
		byName[name] = append(byName[name], &results[i])
	}
	for i := range report.Callables {
		row := &report.Callables[i]
		queue := byName[row.Name]
		// Excluded callables have no row; skip their results.
		for len(queue) > 0 && queue[0].Status == model.Excluded {
			queue = queue[1:]
		}
		if len(queue) == 0 {
			continue
		}
		res := queue[0]
		byName[row.Name] = queue[1:]

		row.Result = res.Status
		row.Failure = res.Failure
		if res.Status == model.Failed {
			row.Status = model.StatusNotGenerated
		}
	}
}
