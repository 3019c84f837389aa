// Package mapping canonicalises heterogeneous spreadsheet headers onto the
// fixed HR and attendance schemas.
package mapping

import (
	"math"
	"strconv"
	"strings"

	"github.com/sells-group/hr-monitor/internal/model"
	"github.com/sells-group/hr-monitor/internal/table"
)

// renameRules are applied by Normalize when the target is not already present.
var renameRules = map[string]string{
	"評価": model.ColRating,
}

// nameStripper removes the characters ignored when comparing column names:
// whitespace, brackets, percent signs, separators and the hour-unit suffix.
var nameStripper = strings.NewReplacer(
	" ", "", "\t", "", "\n", "", "　", "",
	"(", "", ")", "", "（", "", "）", "",
	"％", "", "%", "", "-", "", "_", "", ":", "", "・", "",
	"h", "",
)

// NormalizeName lower-cases and strips a column name for comparison.
func NormalizeName(name string) string {
	return nameStripper.Replace(strings.ToLower(strings.TrimSpace(name)))
}

// Normalize applies RenameColumns then RescalePTO. The input frame is not
// modified.
func Normalize(f *table.Frame) *table.Frame {
	return RescalePTO(RenameColumns(f))
}

// RenameColumns applies the fixed rename rules to a copy of f. A rule is
// skipped when its target column already exists.
func RenameColumns(f *table.Frame) *table.Frame {
	out := f.Clone()
	renames := map[string]string{}
	for from, to := range renameRules {
		if out.Has(from) && !out.Has(to) {
			renames[from] = to
		}
	}
	if len(renames) > 0 {
		out.Rename(renames)
	}
	return out
}

// RescalePTO returns a copy of f with a fractional paid leave rate moved onto
// 0-100. It must run once per frame: the check is on values, not on history.
//
// The rescale triggers when the largest parseable value is within [0, 1]; a
// dataset whose real maximum is at most 1% is indistinguishable and will be
// scaled too.
func RescalePTO(f *table.Frame) *table.Frame {
	out := f.Clone()
	if !out.Has(model.ColPTORate) {
		return out
	}

	values := make([]*float64, out.Len())
	maxVal := -1.0
	for i := range out.Rows {
		values[i] = model.ParseNumber(out, i, model.ColPTORate)
		if values[i] != nil && *values[i] > maxVal {
			maxVal = *values[i]
		}
	}
	scale := 1.0
	if maxVal >= 0 && maxVal <= 1 {
		scale = 100
	}
	for i, v := range values {
		if v == nil {
			out.Set(i, model.ColPTORate, "")
			continue
		}
		out.Set(i, model.ColPTORate, formatNumber(*v*scale))
	}
	return out
}

// Resolve finds the available column that best matches required using, in
// order: exact match after normalisation, synonym lookup, and containment of
// the normalised required name inside a normalised available name.
func Resolve(required string, available []string, synonyms Synonyms) (string, bool) {
	normAvail := make([]string, len(available))
	for i, a := range available {
		normAvail[i] = NormalizeName(a)
	}
	reqNorm := NormalizeName(required)

	for i, n := range normAvail {
		if n == reqNorm {
			return available[i], true
		}
	}

	for i, n := range normAvail {
		for _, syn := range synonyms[required] {
			s := NormalizeName(syn)
			if s == "" {
				continue
			}
			if n == s || strings.Contains(n, s) {
				return available[i], true
			}
		}
	}

	if reqNorm != "" {
		for i, n := range normAvail {
			if strings.Contains(n, reqNorm) {
				return available[i], true
			}
		}
	}
	return "", false
}

// SuggestMapping guesses required -> actual column names. Required names with
// no candidate are left out.
func SuggestMapping(actual, required []string, synonyms Synonyms) map[string]string {
	mapping := make(map[string]string, len(required))
	for _, req := range required {
		if hit, ok := Resolve(req, actual, synonyms); ok {
			mapping[req] = hit
		}
	}
	return mapping
}

// ApplyMapping renames actual columns to their required names. Entries whose
// actual column does not exist are ignored.
func ApplyMapping(f *table.Frame, mapping map[string]string) *table.Frame {
	renames := make(map[string]string, len(mapping))
	for req, actual := range mapping {
		if actual != req && f.Has(actual) {
			renames[actual] = req
		}
	}
	if len(renames) == 0 {
		return f
	}
	out := f.Clone()
	out.Rename(renames)
	return out
}

// Missing returns the required columns absent from f, in required order.
func Missing(f *table.Frame, required []string) []string {
	var missing []string
	for _, c := range required {
		if !f.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// AutoMap suggests and applies a mapping for the required columns that are
// missing. Columns already in canonical form are left untouched.
func AutoMap(f *table.Frame, required []string, synonyms Synonyms) (*table.Frame, map[string]string) {
	missing := Missing(f, required)
	if len(missing) == 0 {
		return f, nil
	}

	// Only offer columns that are not already canonical.
	taken := make(map[string]bool, len(required))
	for _, c := range required {
		if f.Has(c) {
			taken[c] = true
		}
	}
	var candidates []string
	for _, c := range f.Columns {
		if !taken[c] {
			candidates = append(candidates, c)
		}
	}

	mapping := SuggestMapping(candidates, missing, synonyms)
	// First required column wins when two resolve to the same source.
	used := map[string]bool{}
	for _, req := range missing {
		actual, ok := mapping[req]
		if !ok {
			continue
		}
		if used[actual] {
			delete(mapping, req)
			continue
		}
		used[actual] = true
	}
	return ApplyMapping(f, mapping), mapping
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e6)/1e6, 'f', -1, 64)
}
