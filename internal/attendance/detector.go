// Package attendance flags anomalous employee-days: overtime z-score
// outliers, long shifts and long runs of consecutive worked days.
package attendance

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/hr-monitor/internal/model"
	"github.com/sells-group/hr-monitor/internal/table"
)

// MissingColumnsError reports mandatory attendance columns absent from the
// input. No partial output accompanies it.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("attendance: missing required columns: %s", strings.Join(e.Columns, ", "))
}

// DetectFrame checks the mandatory columns, decodes the frame and runs
// Detect.
func DetectFrame(f *table.Frame, params model.AnomalyParams) ([]model.AnomalyRecord, []model.DailyOvertime, error) {
	var missing []string
	for _, c := range model.AttendanceColumns {
		if !f.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &MissingColumnsError{Columns: missing}
	}

	records, err := model.AttendanceFromFrame(f)
	if err != nil {
		return nil, nil, err
	}
	anomalies, overview := Detect(records, params)
	return anomalies, overview, nil
}

// Detect evaluates every record and returns the flagged ones sorted by
// employee then date, plus total overtime per date across all employees.
func Detect(records []model.AttendanceRecord, params model.AnomalyParams) ([]model.AnomalyRecord, []model.DailyOvertime) {
	sorted := append([]model.AttendanceRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].EmployeeID != sorted[j].EmployeeID {
			return lessID(sorted[i].EmployeeID, sorted[j].EmployeeID)
		}
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var anomalies []model.AnomalyRecord
	for start := 0; start < len(sorted); {
		end := start
		for end < len(sorted) && sorted[end].EmployeeID == sorted[start].EmployeeID {
			end++
		}
		anomalies = append(anomalies, detectEmployee(sorted[start:end], params)...)
		start = end
	}

	overview := DailyOvertimeTotals(records)
	zap.L().Info("attendance: detection complete",
		zap.Int("records", len(records)),
		zap.Int("anomalies", len(anomalies)),
		zap.Float64("z_threshold", params.ZThreshold),
		zap.Float64("long_hours", params.LongHours),
		zap.Int("streak_days", params.StreakDays),
	)
	return anomalies, overview
}

// lessID orders integer employee ids numerically, ahead of any other ids,
// which compare as strings. "2" sorts before "10".
func lessID(a, b string) bool {
	na, errA := strconv.ParseInt(strings.TrimSpace(a), 10, 64)
	nb, errB := strconv.ParseInt(strings.TrimSpace(b), 10, 64)
	switch {
	case errA == nil && errB == nil && na != nb:
		return na < nb
	case errA == nil && errB != nil:
		return true
	case errA != nil && errB == nil:
		return false
	}
	return a < b
}

// detectEmployee flags one employee's date-ordered records.
func detectEmployee(rows []model.AttendanceRecord, params model.AnomalyParams) []model.AnomalyRecord {
	overtime := make([]float64, len(rows))
	hours := make([]float64, len(rows))
	dates := make([]time.Time, len(rows))
	for i, r := range rows {
		overtime[i] = r.OvertimeHours
		hours[i] = r.HoursWorked
		dates[i] = r.Date
	}

	zFlags := ZScoreFlags(overtime, params.ZThreshold)
	streaks := Streaks(dates, hours)

	var out []model.AnomalyRecord
	for i, r := range rows {
		a := model.AnomalyRecord{
			AttendanceRecord: r,
			Streak:           streaks[i],
			ZScoreFlag:       zFlags[i],
			LongShift:        r.HoursWorked >= params.LongHours,
			LongStreak:       streaks[i] >= params.StreakDays,
		}
		if a.Flagged() {
			out = append(out, a)
		}
	}
	return out
}

// ZScoreFlags marks values whose population z-score exceeds threshold
// (upper tail only). A constant series never flags.
func ZScoreFlags(values []float64, threshold float64) []bool {
	flags := make([]bool, len(values))
	if constant(values) {
		return flags
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	if std == 0 {
		return flags
	}
	for i, v := range values {
		flags[i] = (v-mean)/std > threshold
	}
	return flags
}

func constant(values []float64) bool {
	if len(values) == 0 {
		return true
	}
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

// Streaks computes the running count of consecutive worked calendar days
// for date-ordered rows. A day is worked when hours > 0; a non-worked day
// resets the count to 0 and a gap of more than one day restarts it at 1.
func Streaks(dates []time.Time, hours []float64) []int {
	out := make([]int, len(dates))
	current := 0
	for i := range dates {
		worked := hours[i] > 0
		switch {
		case worked && (i == 0 || daysBetween(dates[i-1], dates[i]) <= 1):
			current++
		case worked:
			current = 1
		default:
			current = 0
		}
		out[i] = current
	}
	return out
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// DailyOvertimeTotals sums overtime per date across all employees, in date
// order.
func DailyOvertimeTotals(records []model.AttendanceRecord) []model.DailyOvertime {
	totals := map[time.Time]float64{}
	for _, r := range records {
		totals[r.Date] += r.OvertimeHours
	}
	out := make([]model.DailyOvertime, 0, len(totals))
	for d, v := range totals {
		out = append(out, model.DailyOvertime{Date: d, OvertimeHours: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
