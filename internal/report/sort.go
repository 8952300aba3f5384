package report

import (
	"sort"
	"strings"
)

// Sort keys accepted by the report endpoints. Anything else falls back
// to the name key, ascending.
const (
	SortByName       = "StudentName"
	SortBySubject    = "SubjectName"
	SortByPercentage = "Percentage"
)

// Ascending reports whether a direction flag means ascending; the empty
// flag does.
func Ascending(dir string) bool {
	return dir == "" || strings.EqualFold(dir, "asc")
}

// SortRows stably orders cross-student rows in memory, after
// aggregation. The percentage key breaks ties on student name so equal
// percentages stay deterministic across directions.
func SortRows(rows []ReportRow, key, dir string) {
	asc := Ascending(dir)
	switch key {
	case SortByPercentage:
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].Percentage != rows[j].Percentage {
				if asc {
					return rows[i].Percentage < rows[j].Percentage
				}
				return rows[i].Percentage > rows[j].Percentage
			}
			return lessName(rows[i].StudentName, rows[j].StudentName)
		})
	default:
		sort.SliceStable(rows, func(i, j int) bool {
			if asc {
				return lessName(rows[i].StudentName, rows[j].StudentName)
			}
			return lessName(rows[j].StudentName, rows[i].StudentName)
		})
	}
}

// SortSummaryRows orders the self-service per-subject rows. Default key
// is the subject name, ascending.
func SortSummaryRows(rows []SubjectSummaryRow, key, dir string) {
	asc := Ascending(dir)
	switch key {
	case SortByPercentage:
		sort.SliceStable(rows, func(i, j int) bool {
			if asc {
				return rows[i].Percentage < rows[j].Percentage
			}
			return rows[i].Percentage > rows[j].Percentage
		})
	default:
		sort.SliceStable(rows, func(i, j int) bool {
			if asc {
				return lessName(rows[i].SubjectName, rows[j].SubjectName)
			}
			return lessName(rows[j].SubjectName, rows[i].SubjectName)
		})
	}
}

func lessName(a, b string) bool {
	return strings.ToLower(a) < strings.ToLower(b)
}
