// Package validate checks HR and attendance frames before they reach the
// analysis engines. Problems are collected, never raised: errors block
// processing, warnings are advisory.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/hr-monitor/internal/model"
	"github.com/sells-group/hr-monitor/internal/table"
)

// Result holds every problem found in a dataset.
type Result struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// OK reports whether processing may continue.
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// Merge appends the problems of other.
func (r *Result) Merge(other Result) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// Range is an inclusive numeric bound.
type Range struct {
	Min float64
	Max float64
}

// hrRanges are the plausible values for HR columns, in report order.
var hrRanges = []struct {
	col string
	Range
}{
	{model.ColAge, Range{15, 80}},
	{model.ColTenure, Range{0, 50}},
	{model.ColOvertime, Range{0, 200}},
	{model.ColPTORate, Range{0, 100}},
	{model.ColRating, Range{1, 5}},
	{model.ColRaises, Range{0, 50}},
	{model.ColTransfers, Range{0, 50}},
}

var attendanceRanges = []struct {
	col string
	Range
}{
	{model.ColHoursWorked, Range{0, 48}},
	{model.ColOvertimeHours, Range{0, 24}},
}

// HR validates a dataset against the full HR schema.
func HR(f *table.Frame) Result {
	return hr(f, model.HRColumns)
}

// HRPartial validates only the HR columns that are present, so a dataset
// carrying a subset of predictors can still be scored.
func HRPartial(f *table.Frame) Result {
	var present []string
	for _, c := range model.HRColumns {
		if f.Has(c) {
			present = append(present, c)
		}
	}
	return hr(f, present)
}

func hr(f *table.Frame, required []string) Result {
	var res Result
	if missing := missingColumns(f, required); len(missing) > 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("必須カラムが不足しています: %v", missing))
		return res
	}

	if nulls := nullCounts(f, required); len(nulls) > 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("必須カラムに欠損があります: %s", formatCounts(nulls)))
	}

	for _, r := range hrRanges {
		if !f.Has(r.col) {
			continue
		}
		if n := countOutOfRange(f, r.col, r.Range); n > 0 {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("%s の範囲外データが %d 件あります（想定範囲: %s〜%s）。", r.col, n, num(r.Min), num(r.Max)))
		}
	}

	if f.Has(model.ColEmployeeID) && hasDuplicates(f.Column(model.ColEmployeeID)) {
		res.Warnings = append(res.Warnings, "社員IDに重複があります。集計時の解釈に注意してください。")
	}
	return res
}

// Attendance validates an attendance dataset. All four columns are required.
func Attendance(f *table.Frame) Result {
	var res Result
	if missing := missingColumns(f, model.AttendanceColumns); len(missing) > 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("必須カラムが不足しています: %v", missing))
		return res
	}

	if nulls := nullCounts(f, model.AttendanceColumns); len(nulls) > 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("必須カラムに欠損があります: %s", formatCounts(nulls)))
	}

	bad := 0
	for _, v := range f.Column(model.ColDate) {
		if _, ok := model.ParseDate(v); !ok {
			bad++
		}
	}
	if bad > 0 {
		res.Errors = append(res.Errors,
			fmt.Sprintf("日付のパースに失敗した行が %d 件あります（YYYY-MM-DD 形式を推奨）。", bad))
	}

	for _, r := range attendanceRanges {
		if n := countOutOfRange(f, r.col, r.Range); n > 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s の異常値が %d 件あります。", r.col, n))
		}
	}
	return res
}

func missingColumns(f *table.Frame, required []string) []string {
	var missing []string
	for _, c := range required {
		if !f.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

func nullCounts(f *table.Frame, cols []string) map[string]int {
	out := map[string]int{}
	for _, c := range cols {
		n := 0
		for i := range f.Rows {
			if _, ok := f.Value(i, c); !ok {
				n++
			}
		}
		if n > 0 {
			out[c] = n
		}
	}
	return out
}

// countOutOfRange counts cells outside r. Blank or non-numeric cells count
// as out of range too; blanks are also reported by the null check.
func countOutOfRange(f *table.Frame, col string, r Range) int {
	n := 0
	for _, v := range f.Column(col) {
		x, ok := model.ParseFloat(v)
		if !ok || x < r.Min || x > r.Max {
			n++
		}
	}
	return n
}

func hasDuplicates(values []string) bool {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return true
		}
		seen[v] = struct{}{}
	}
	return false
}

func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %d", k, counts[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func num(v float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%g", v), ".0")
}
