// Package filter narrows a record set for display by category and free-text search.
package filter

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"example.com/intensity/internal/record"
)

// AllCategories is the category sentinel that disables the exact-match restriction.
const AllCategories = "all"

// Result is the display view of a record set.
type Result struct {
	Records    []record.Record `json:"records"`
	Categories []string        `json:"categories"`
}

// Apply keeps the records whose exercise type equals category (or any type for AllCategories)
// and whose exercise type or memo contains searchTerm without regard to case. Matches are
// ordered by CreatedAt, newest first; equal timestamps keep input order. Categories lists
// AllCategories followed by every distinct exercise type of the unfiltered input in first-seen
// order. The input slice is not modified.
func Apply(records []record.Record, searchTerm, category string) Result {
	folder := cases.Fold()
	needle := folder.String(searchTerm)

	visible := make([]record.Record, 0, len(records))
	for _, r := range records {
		if category != AllCategories && r.ExerciseType != category {
			continue
		}
		if needle != "" &&
			!strings.Contains(folder.String(r.ExerciseType), needle) &&
			!strings.Contains(folder.String(r.Memo), needle) {
			continue
		}
		visible = append(visible, r)
	}

	slices.SortStableFunc(visible, func(a, b record.Record) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return Result{
		Records:    visible,
		Categories: Categories(records),
	}
}

// Categories returns AllCategories followed by the distinct exercise types in first-seen order.
func Categories(records []record.Record) []string {
	seen := make(map[string]struct{}, len(records))
	out := []string{AllCategories}
	for _, r := range records {
		if _, ok := seen[r.ExerciseType]; ok {
			continue
		}
		seen[r.ExerciseType] = struct{}{}
		out = append(out, r.ExerciseType)
	}
	return out
}
