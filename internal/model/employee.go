package model

import (
	"strconv"
	"strings"

	"github.com/sells-group/hr-monitor/internal/table"
)

// EmployeeRecord is one row of an HR dataset. Every numeric field is
// optional; nil means the column was absent or the cell unparseable.
type EmployeeRecord struct {
	ID        string   `json:"id"`
	Age       *float64 `json:"age,omitempty"`
	Tenure    *float64 `json:"tenure_years,omitempty"`
	Overtime  *float64 `json:"avg_overtime_hours,omitempty"`
	PTORate   *float64 `json:"pto_rate,omitempty"`
	Rating    *float64 `json:"rating,omitempty"`
	Raises    *float64 `json:"raises,omitempty"`
	Transfers *float64 `json:"transfers,omitempty"`
	Attrition *int     `json:"attrition,omitempty"`
}

// Feature returns the value for a feature column name.
func (e EmployeeRecord) Feature(col string) *float64 {
	switch col {
	case ColAge:
		return e.Age
	case ColTenure:
		return e.Tenure
	case ColOvertime:
		return e.Overtime
	case ColPTORate:
		return e.PTORate
	case ColRating:
		return e.Rating
	case ColRaises:
		return e.Raises
	case ColTransfers:
		return e.Transfers
	}
	return nil
}

// EmployeesFromFrame decodes an HR frame. A missing identifier column is
// filled with a 1-based sequence.
func EmployeesFromFrame(f *table.Frame) []EmployeeRecord {
	hasID := f.Has(ColEmployeeID)
	out := make([]EmployeeRecord, f.Len())
	for i := range f.Rows {
		rec := EmployeeRecord{
			Age:       ParseNumber(f, i, ColAge),
			Tenure:    ParseNumber(f, i, ColTenure),
			Overtime:  ParseNumber(f, i, ColOvertime),
			PTORate:   ParseNumber(f, i, ColPTORate),
			Rating:    ParseNumber(f, i, ColRating),
			Raises:    ParseNumber(f, i, ColRaises),
			Transfers: ParseNumber(f, i, ColTransfers),
		}
		if hasID {
			rec.ID, _ = f.Value(i, ColEmployeeID)
		} else {
			rec.ID = strconv.Itoa(i + 1)
		}
		if v := ParseNumber(f, i, ColAttrition); v != nil {
			label := 0
			if *v >= 0.5 {
				label = 1
			}
			rec.Attrition = &label
		}
		out[i] = rec
	}
	return out
}

// ParseNumber reads a numeric cell, tolerating thousands separators and a
// trailing percent sign.
func ParseNumber(f *table.Frame, row int, col string) *float64 {
	v, ok := f.Value(row, col)
	if !ok {
		return nil
	}
	n, ok := ParseFloat(v)
	if !ok {
		return nil
	}
	return &n
}

// ParseFloat parses a loosely formatted number.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSuffix(s, "％")
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Float is a convenience constructor for optional fields.
func Float(v float64) *float64 {
	return &v
}
