package main

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/phobologic/pydocgen/internal/extract"
	"github.com/phobologic/pydocgen/internal/model"
	"github.com/phobologic/pydocgen/internal/ranking"
	"github.com/phobologic/pydocgen/internal/validate"
)

func newValidateCmd(a *app) *cobra.Command {
	var (
		strict bool
		format string
	)
	keys := map[string]string{
		"style":                    "style",
		"require-module-docstring": "require_module_docstring",
	}

	cmd := &cobra.Command{
		Use:   "validate [paths...]",
		Short: "Check docstrings against PEP 257 and the chosen style",
		Long: `Validate reports missing docstrings and convention violations without
changing any file. It exits non-zero when an error-severity issue is found, or
any issue at all with --strict.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if err := a.setup(cmd, keys); err != nil {
				return err
			}
			return a.validate(cmd.Context(), args, format, strict)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&strict, "strict", false, "fail on warnings too")
	f.StringVar(&format, "format", formatTOON, "report format: toon or json")
	f.StringP("style", "s", "google", "style assumed where a docstring's own cannot be detected")
	f.Bool("require-module-docstring", false, "report modules without a docstring")
	addScopeFlags(cmd, keys)
	return cmd
}

func (a *app) validate(ctx context.Context, args []string, format string, strict bool) error {
	entries, err := a.files(args)
	if err != nil {
		return err
	}
	opts := validate.Options{
		Include:                a.cfg.Inclusion(),
		RequireModuleDocstring: a.cfg.RequireModuleDocstring,
		Style:                  a.cfg.DocStyle(),
	}
	reports := processFiles(ctx, entries, func(ctx context.Context, path string, source []byte) model.FileReport {
		report := validate.Validate(ctx, source, opts)
		a.log.Debugw("validated", "file", path, "errors", report.Errors(), "warnings", report.Warnings())
		return model.FileReport{
			Path:     path,
			Coverage: model.Coverage{Total: report.Total, Documented: report.Documented, Undocumented: report.Total - report.Documented},
			Report:   report,
		}
	})
	if err := writeReport(a.stdout, format, reports); err != nil {
		return err
	}

	var errs, warns, broken int
	for i := range reports {
		if reports[i].Err != nil {
			broken++
			continue
		}
		errs += reports[i].Report.Errors()
		warns += reports[i].Report.Warnings()
	}
	switch {
	case broken > 0:
		return errors.Newf("%d files could not be read", broken)
	case errs > 0:
		return errors.Newf("validation failed: %d errors, %d warnings", errs, warns)
	case strict && warns > 0:
		return errors.Newf("validation failed: %d warnings (--strict)", warns)
	}
	return nil
}

func newCoverageCmd(a *app) *cobra.Command {
	var (
		maxFiles int
		filter   string
		format   string
	)
	keys := map[string]string{}

	cmd := &cobra.Command{
		Use:   "coverage [paths...]",
		Short: "Rank files by documentation gap",
		Long: `Coverage counts documented and undocumented callables per file and lists
the files with the largest gap first. Files that fail to parse are listed
separately.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if err := a.setup(cmd, keys); err != nil {
				return err
			}
			return a.coverage(cmd.Context(), args, format, filter, maxFiles)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&maxFiles, "max-files", "n", 0, "show only the top N files (0 = all)")
	f.StringVarP(&filter, "filter", "f", "", "keep files whose path contains this text")
	f.StringVar(&format, "format", formatTOON, "output format: toon or json")
	addScopeFlags(cmd, keys)
	return cmd
}

func (a *app) coverage(ctx context.Context, args []string, format, filter string, maxFiles int) error {
	entries, err := a.files(args)
	if err != nil {
		return err
	}
	include := a.cfg.Inclusion()
	files := processFiles(ctx, entries, func(ctx context.Context, path string, source []byte) model.FileReport {
		table, err := extract.Extract(ctx, source)
		if err != nil {
			return model.FileReport{Path: path, Err: err}
		}
		return model.FileReport{Path: path, Coverage: table.Coverage(include.Includes)}
	})

	files = ranking.FilterByFile(files, filter)
	ranking.Rank(files)
	files = ranking.SelectFiles(files, maxFiles)
	total := ranking.Total(files)
	a.log.Debugw("coverage", "files", len(files), "documented", total.Documented, "total", total.Total)
	return writeCoverage(a.stdout, format, files)
}
