// Package ranking orders and selects files by documentation gap.
package ranking

import (
	"sort"
	"strings"

	"github.com/phobologic/pydocgen/internal/model"
)

// Rank sorts files so the largest documentation gap comes first: most
// undocumented callables, then lowest coverage percentage, then path.
// Files that failed to process sort last.
func Rank(files []model.FileReport) {
	sort.SliceStable(files, func(i, j int) bool {
		a, b := &files[i], &files[j]
		if (a.Err != nil) != (b.Err != nil) {
			return a.Err == nil
		}
		if a.Coverage.Undocumented != b.Coverage.Undocumented {
			return a.Coverage.Undocumented > b.Coverage.Undocumented
		}
		if pa, pb := a.Coverage.Percent(), b.Coverage.Percent(); pa != pb {
			return pa < pb
		}
		return a.Path < b.Path
	})
}

// SelectFiles returns the first maxFiles files.
// If maxFiles is <= 0 or >= len(files), all files are returned.
func SelectFiles(files []model.FileReport, maxFiles int) []model.FileReport {
	if maxFiles <= 0 || maxFiles >= len(files) {
		return files
	}
	return files[:maxFiles]
}

// FilterByFile returns the files whose path contains substr
// (case-insensitive). An empty substr keeps every file.
func FilterByFile(files []model.FileReport, substr string) []model.FileReport {
	if substr == "" {
		return files
	}
	lower := strings.ToLower(substr)
	var out []model.FileReport
	for i := range files {
		if strings.Contains(strings.ToLower(files[i].Path), lower) {
			out = append(out, files[i])
		}
	}
	return out
}

// Total sums the coverage of every file.
func Total(files []model.FileReport) model.Coverage {
	var total model.Coverage
	for i := range files {
		total = total.Add(files[i].Coverage)
	}
	return total
}
