package model

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/hr-monitor/internal/table"
)

// AttendanceRecord is one employee-day of attendance.
type AttendanceRecord struct {
	EmployeeID    string    `json:"employee_id"`
	Date          time.Time `json:"date"`
	HoursWorked   float64   `json:"hours_worked"`
	OvertimeHours float64   `json:"overtime_hours"`
}

// AnomalyRecord is an employee-date that tripped at least one rule.
type AnomalyRecord struct {
	AttendanceRecord
	Streak     int  `json:"streak"`
	ZScoreFlag bool `json:"z_score_flag"`
	LongShift  bool `json:"long_shift_flag"`
	LongStreak bool `json:"long_streak_flag"`
}

// Flagged reports whether any rule fired.
func (a AnomalyRecord) Flagged() bool {
	return a.ZScoreFlag || a.LongShift || a.LongStreak
}

// DailyOvertime is the sum of overtime across all employees for one date.
type DailyOvertime struct {
	Date          time.Time `json:"date"`
	OvertimeHours float64   `json:"overtime_hours"`
}

// AnomalyParams configures the attendance detector.
type AnomalyParams struct {
	ZThreshold float64 `json:"z_threshold"`
	LongHours  float64 `json:"long_hours_threshold"`
	StreakDays int     `json:"streak_threshold"`
}

// DefaultAnomalyParams mirrors the dashboard defaults.
func DefaultAnomalyParams() AnomalyParams {
	return AnomalyParams{ZThreshold: 2.0, LongHours: 11, StreakDays: 12}
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
	"2006-1-2",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"20060102",
	"2006年1月2日",
}

// excelEpoch is day zero of the 1900 date system as used by spreadsheets.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseDate accepts the common date layouts found in attendance exports,
// including spreadsheet serial numbers. Times are truncated to the day.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil && n > 0 && n < 2958466 && !strings.Contains(s, "e") {
		if len(s) == 8 && n == math.Trunc(n) {
			return time.Time{}, false
		}
		return excelEpoch.AddDate(0, 0, int(n)), true
	}
	return time.Time{}, false
}

// AttendanceFromFrame decodes an attendance frame. It fails on the first
// row whose mandatory cells cannot be parsed; callers are expected to run
// validation first.
func AttendanceFromFrame(f *table.Frame) ([]AttendanceRecord, error) {
	out := make([]AttendanceRecord, 0, f.Len())
	for i := range f.Rows {
		id, ok := f.Value(i, ColEmployeeID)
		if !ok {
			return nil, eris.Errorf("model: row %d: missing %s", i+1, ColEmployeeID)
		}
		raw, _ := f.Value(i, ColDate)
		date, ok := ParseDate(raw)
		if !ok {
			return nil, eris.Errorf("model: row %d: unparseable date %q", i+1, raw)
		}
		hours := ParseNumber(f, i, ColHoursWorked)
		if hours == nil {
			return nil, eris.Errorf("model: row %d: missing %s", i+1, ColHoursWorked)
		}
		ot := ParseNumber(f, i, ColOvertimeHours)
		if ot == nil {
			return nil, eris.Errorf("model: row %d: missing %s", i+1, ColOvertimeHours)
		}
		out = append(out, AttendanceRecord{
			EmployeeID:    id,
			Date:          date,
			HoursWorked:   *hours,
			OvertimeHours: *ot,
		})
	}
	return out, nil
}
