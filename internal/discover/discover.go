// Package discover finds Python source files to process.
package discover

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/pydocgen/internal/lang"
)

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path string // relative to the walked root, or as given for file arguments
	Stub bool   // .pyi type stub
}

// Options filters discovered files.
type Options struct {
	SkipTests bool
	SkipStubs bool
}

var skipDirs = map[string]struct{}{
	"__pycache__":   {},
	"node_modules":  {},
	".git":          {},
	".hg":           {},
	".svn":          {},
	"venv":          {},
	".venv":         {},
	"env":           {},
	".env":          {},
	"build":         {},
	"dist":          {},
	".tox":          {},
	".nox":          {},
	".mypy_cache":   {},
	".ruff_cache":   {},
	".pytest_cache": {},
	"site-packages": {},
}

// Expand resolves command-line arguments into files. File arguments are
// kept as given, whatever their extension; directories are walked. The
// result is sorted and free of duplicates.
func Expand(args []string, opts Options) ([]FileEntry, error) {
	seen := make(map[string]struct{})
	var out []FileEntry
	add := func(e FileEntry) {
		if _, dup := seen[e.Path]; dup {
			return
		}
		seen[e.Path] = struct{}{}
		out = append(out, e)
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", arg)
		}
		if !info.IsDir() {
			add(FileEntry{Path: arg, Stub: filepath.Ext(arg) == ".pyi"})
			continue
		}
		entries, err := Files(arg, opts)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			e.Path = filepath.Join(arg, e.Path)
			add(e)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Path < out[j].Path
	})
	return out, nil
}

// Files discovers Python files under root, honouring git's view of the
// tree or, outside a repository, the root .gitignore.
func Files(root string, opts Options) ([]FileEntry, error) {
	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	var results []FileEntry

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".egg-info") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		if gitFiles != nil {
			if _, ok := gitFiles[filepath.ToSlash(rel)]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		ext := filepath.Ext(name)
		if lang.ForExtension(ext) == "" {
			return nil
		}
		stub := ext == ".pyi"
		if (stub && opts.SkipStubs) || (opts.SkipTests && IsTestFile(rel)) {
			return nil
		}

		results = append(results, FileEntry{Path: rel, Stub: stub})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

// IsTestFile reports whether a relative path looks like a pytest or
// unittest module: anything under a tests/ or test/ directory, or a file
// named test_*.py or *_test.py.
func IsTestFile(rel string) bool {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, dir := range parts[:len(parts)-1] {
		if dir == "tests" || dir == "test" {
			return true
		}
	}
	name := parts[len(parts)-1]
	base := strings.TrimSuffix(strings.TrimSuffix(name, ".pyi"), ".py")
	if base == name {
		return false
	}
	return strings.HasPrefix(base, "test_") || strings.HasSuffix(base, "_test")
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
