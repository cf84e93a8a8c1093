package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/phobologic/pydocgen/internal/backend"
	"github.com/phobologic/pydocgen/internal/logger"
	"github.com/phobologic/pydocgen/internal/model"
	"github.com/phobologic/pydocgen/internal/pipeline"
)

type generateFlags struct {
	write    bool
	format   string
	progress bool
}

func newGenerateCmd(a *app) *cobra.Command {
	var fl generateFlags
	keys := map[string]string{
		"style":       "style",
		"improve":     "improve",
		"provider":    "backend.provider",
		"model":       "backend.model",
		"concurrency": "synth.concurrency",
	}

	cmd := &cobra.Command{
		Use:   "generate [paths...]",
		Short: "Draft missing docstrings and merge them into the source",
		Long: `Generate drafts a docstring for every undocumented callable (every callable
with --improve), merges the drafts into the source and validates the result.

A single file is printed with its docstrings merged and the report goes to
stderr. With --write, changed files are rewritten in place and the report goes
to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(fl.format); err != nil {
				return err
			}
			if err := a.setup(cmd, keys); err != nil {
				return err
			}
			return a.generate(cmd.Context(), args, fl)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&fl.write, "write", "w", false, "rewrite files in place")
	f.StringVar(&fl.format, "format", formatTOON, "report format: toon or json")
	f.BoolVar(&fl.progress, "progress", false, "report progress on stderr")
	f.StringP("style", "s", "google", "docstring style: google, numpy or rest")
	f.Bool("improve", false, "regenerate existing docstrings too")
	f.String("provider", "gemini", "generation backend: gemini or skeleton")
	f.String("model", backend.DefaultGeminiModel, "backend model name")
	f.Int("concurrency", 0, "concurrent backend requests per file")
	addScopeFlags(cmd, keys)
	return cmd
}

func (a *app) generate(ctx context.Context, args []string, fl generateFlags) error {
	entries, err := a.files(args)
	if err != nil {
		return err
	}
	printSource := !fl.write && len(entries) == 1

	bo := a.cfg.BackendOptions()
	bo.Logger = logger.Named("backend")
	gen, err := backend.New(ctx, bo)
	if err != nil {
		return err
	}

	// The first unconfigured-backend error stops the remaining files.
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	var (
		mu       sync.Mutex
		batchErr error
	)

	stderr := &syncWriter{w: a.stderr}
	opts := pipeline.Options{
		Style:                  a.cfg.DocStyle(),
		Improve:                a.cfg.Improve,
		Include:                a.cfg.Inclusion(),
		RequireModuleDocstring: a.cfg.RequireModuleDocstring,
		Synth:                  a.cfg.SynthOptions(),
		Logger:                 a.log,
	}

	reports := processFiles(ctx, entries, func(ctx context.Context, path string, source []byte) model.FileReport {
		po := opts
		if fl.progress {
			po.Synth.Progress = func(done, total int) {
				_, _ = fmt.Fprintf(stderr, "%s: %d/%d\n", path, done, total)
			}
		}
		out, err := pipeline.Run(ctx, gen, source, po)
		if out == nil {
			return model.FileReport{Path: path, Err: err}
		}
		if err != nil {
			mu.Lock()
			if batchErr == nil {
				batchErr = err
			}
			mu.Unlock()
			if backend.IsUnconfigured(err) {
				cancel(err)
			}
		}
		rep := model.FileReport{
			Path:     path,
			Coverage: out.Coverage,
			Report:   out.Report,
			Results:  out.Results,
			Changed:  out.Changed,
		}
		if fl.write && out.Changed {
			if err := writeInPlace(path, out.Source); err != nil {
				rep.Err = err
				return rep
			}
			a.log.Infow("wrote docstrings", "file", path, "generated", out.Generated())
		}
		if printSource {
			if _, err := a.stdout.Write(out.Source); err != nil {
				rep.Err = errors.Wrap(err, "writing source")
			}
		}
		return rep
	})

	reportOut := a.stdout
	if printSource {
		reportOut = a.stderr
	}
	if err := writeReport(reportOut, fl.format, reports); err != nil {
		return err
	}

	if batchErr != nil {
		if backend.IsUnconfigured(batchErr) {
			return errors.WithHint(errors.Wrap(batchErr, "backend is not configured"),
				"set GEMINI_API_KEY (or add it to .env), or use --provider skeleton for placeholders")
		}
		return batchErr
	}
	return failures(reports)
}

// failures summarises files that could not be processed and callables
// whose generation failed.
func failures(reports []model.FileReport) error {
	var files, callables int
	for i := range reports {
		if reports[i].Err != nil {
			files++
		}
		for _, r := range reports[i].Results {
			if r.Status == model.Failed {
				callables++
			}
		}
	}
	switch {
	case files > 0 && callables > 0:
		return errors.Newf("%d files failed and %d docstrings could not be generated", files, callables)
	case files > 0:
		return errors.Newf("%d files failed", files)
	case callables > 0:
		return errors.Newf("%d docstrings could not be generated", callables)
	}
	return nil
}

// writeInPlace replaces path's content, keeping its permissions.
func writeInPlace(path string, content []byte) error {
	fi, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, "stat")
	}
	if err := os.WriteFile(path, content, fi.Mode().Perm()); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}
