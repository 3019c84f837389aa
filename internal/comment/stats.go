package comment

import (
	"github.com/sells-group/hr-monitor/internal/attendance"
	"github.com/sells-group/hr-monitor/internal/risk"
)

// Target names the analysis a comment describes.
type Target string

// Comment targets.
const (
	TargetAttrition  Target = "attrition"
	TargetAttendance Target = "attendance"
)

// Stats is the aggregate payload a comment is generated from. Only these
// numbers ever leave the process; row-level data never does.
type Stats struct {
	Target Target

	// attrition
	High              int
	Medium            int
	MedianProbability float64

	// attendance
	Count      int
	LongShift  int
	LongStreak int
	ZScore     int

	MeanOvertime float64
}

// AttritionStats extracts comment stats from a risk summary.
func AttritionStats(s risk.Summary) Stats {
	return Stats{
		Target:            TargetAttrition,
		High:              s.High,
		Medium:            s.Medium,
		MedianProbability: s.MedianProbability,
		MeanOvertime:      s.MeanOvertime,
	}
}

// AttendanceStats extracts comment stats from an anomaly summary.
func AttendanceStats(s attendance.Summary) Stats {
	return Stats{
		Target:       TargetAttendance,
		Count:        s.Count,
		LongShift:    s.LongShift,
		LongStreak:   s.LongStreak,
		ZScore:       s.ZScore,
		MeanOvertime: s.MeanOvertime,
	}
}

func (s Stats) payload() map[string]any {
	if s.Target == TargetAttrition {
		return map[string]any{
			"high":          s.High,
			"medium":        s.Medium,
			"median_prob":   s.MedianProbability,
			"mean_overtime": s.MeanOvertime,
		}
	}
	return map[string]any{
		"count":         s.Count,
		"long_hours":    s.LongShift,
		"streaks":       s.LongStreak,
		"z_outliers":    s.ZScore,
		"mean_overtime": s.MeanOvertime,
	}
}
