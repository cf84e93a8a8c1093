// pydocgen drafts, merges and checks Python docstrings.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/phobologic/pydocgen/internal/config"
	"github.com/phobologic/pydocgen/internal/discover"
	"github.com/phobologic/pydocgen/internal/logger"
	"github.com/phobologic/pydocgen/internal/model"
)

var version = "dev"

const defaultMaxFileSize = 1_000_000 // 1 MB

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	defer logger.Cleanup()

	root := newRootCmd(&app{stdout: stdout, stderr: stderr})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// app is the state shared by all subcommands of one invocation.
type app struct {
	stdout, stderr io.Writer

	configFile  string
	verbose     bool
	logJSON     bool
	maxFileSize int64
	skipTests   bool
	skipStubs   bool

	cfg *config.Config
	log *zap.SugaredLogger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "pydocgen",
		Short: "Generate and validate Python docstrings",
		Long: `pydocgen finds Python functions, methods and classes, drafts docstrings for
the undocumented ones with a generation backend, splices them into the source
without disturbing surrounding code, and checks the result against PEP 257.

Examples:
  pydocgen coverage src/            # rank files by documentation gap
  pydocgen generate app.py          # print app.py with docstrings added
  pydocgen generate --write src/    # rewrite files in place
  pydocgen validate --strict src/   # fail on any finding
  pydocgen init                     # write a default pydocgen.toml`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("pydocgen {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "configuration file (default ./"+config.FileName+")")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")
	pf.BoolVar(&a.logJSON, "log-json", false, "log as JSON lines")
	pf.Int64Var(&a.maxFileSize, "max-file-size", defaultMaxFileSize, "skip files larger than this many bytes")
	pf.BoolVar(&a.skipTests, "skip-tests", false, "skip test modules when walking directories")
	pf.BoolVar(&a.skipStubs, "skip-stubs", false, "skip .pyi stub files when walking directories")

	root.AddCommand(
		newGenerateCmd(a),
		newValidateCmd(a),
		newCoverageCmd(a),
		newInitCmd(a),
	)
	return root
}

// setup loads configuration with cmd's flags layered on top and installs
// the logger. flagKeys maps flag names to configuration keys.
func (a *app) setup(cmd *cobra.Command, flagKeys map[string]string) error {
	a.log = logger.Initialize(logger.Options{Verbose: a.verbose, JSON: a.logJSON, Output: a.stderr})

	if err := config.LoadDotEnv("."); err != nil {
		return err
	}
	v, err := config.Load(config.Paths{File: a.configFile})
	if err != nil {
		return err
	}
	if err := bindFlags(v, cmd.Flags(), flagKeys); err != nil {
		return err
	}
	cfg, err := config.Decode(v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log.Debugw("configuration loaded", "style", cfg.Style, "provider", cfg.Backend.Provider, "file", v.ConfigFileUsed())
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, flagKeys map[string]string) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			return errors.AssertionFailedf("flag --%s is not defined", name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.Wrapf(err, "binding --%s", name)
		}
	}
	return nil
}

// addScopeFlags registers the flags shared by commands that select callables.
func addScopeFlags(cmd *cobra.Command, keys map[string]string) {
	cmd.Flags().Bool("include-private", false, "include _private callables and nested functions")
	cmd.Flags().Bool("include-magic", false, "include __magic__ methods such as __init__")
	keys["include-private"] = "include_private"
	keys["include-magic"] = "include_magic"
}

// files expands command-line paths, defaulting to the working directory,
// and drops files over the size limit.
func (a *app) files(args []string) ([]discover.FileEntry, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	entries, err := discover.Expand(args, discover.Options{SkipTests: a.skipTests, SkipStubs: a.skipStubs})
	if err != nil {
		return nil, err
	}
	entries = filterBySize(entries, a.maxFileSize, a.stderr)
	if len(entries) == 0 {
		return nil, errors.WithHint(errors.New("no Python files found"), "pass .py files or directories containing them")
	}
	return entries, nil
}

func filterBySize(files []discover.FileEntry, maxSize int64, stderr io.Writer) []discover.FileEntry {
	var kept []discover.FileEntry
	for _, f := range files {
		fi, err := os.Stat(f.Path)
		if err != nil {
			kept = append(kept, f) // keep if can't stat; reading reports the error
			continue
		}
		if maxSize > 0 && fi.Size() > maxSize {
			_, _ = fmt.Fprintf(stderr, "Warning: %s: skipped (>%d bytes)\n", f.Path, maxSize)
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// processFiles reads every file and runs fn on it with a bounded pool of
// workers. Reports come back in input order.
func processFiles(ctx context.Context, files []discover.FileEntry, fn func(ctx context.Context, path string, source []byte) model.FileReport) []model.FileReport {
	type result struct {
		index  int
		report model.FileReport
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make(chan result, len(files))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				path := files[idx].Path
				source, err := os.ReadFile(path)
				if err != nil {
					results <- result{index: idx, report: model.FileReport{Path: path, Err: errors.Wrap(err, "reading file")}}
					continue
				}
				results <- result{index: idx, report: fn(ctx, path, source)}
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results in original order
	reports := make([]model.FileReport, len(files))
	for r := range results {
		reports[r.index] = r.report
	}
	return reports
}

// syncWriter serializes writes from concurrent workers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
