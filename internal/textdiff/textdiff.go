// Package textdiff produces and measures unified diffs of document content.
package textdiff

import (
	"github.com/pmezard/go-difflib/difflib"
	"github.com/sourcegraph/go-diff/diff"
)

// Unified returns the unified diff turning before into after, or an empty
// string when they are equal.
func Unified(name, before, after string) (string, error) {
	if before == after {
		return "", nil
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  3,
	})
}

// Stat counts added and removed lines of a single-file unified diff. Changed
// lines count as one removal plus one addition.
func Stat(unified string) (added, removed int32, err error) {
	if unified == "" {
		return 0, 0, nil
	}

	fileDiff, err := diff.ParseFileDiff([]byte(unified))
	if err != nil {
		return 0, 0, err
	}

	stat := fileDiff.Stat()
	return stat.Added + stat.Changed, stat.Deleted + stat.Changed, nil
}
