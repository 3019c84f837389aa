package attendance

import (
	"github.com/sells-group/hr-monitor/internal/model"
)

// Kind names one anomaly rule.
type Kind string

// Anomaly kinds, using the column names of the flag columns.
const (
	KindZScore Kind = model.ColFlagZScore
	KindLong   Kind = model.ColFlagLong
	KindStreak Kind = model.ColFlagStreak
)

// ParseKind accepts either the flag column name or a short alias.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case string(KindZScore), "z", "zscore":
		return KindZScore, true
	case string(KindLong), "long":
		return KindLong, true
	case string(KindStreak), "streak":
		return KindStreak, true
	}
	return "", false
}

func (k Kind) matches(a model.AnomalyRecord) bool {
	switch k {
	case KindZScore:
		return a.ZScoreFlag
	case KindLong:
		return a.LongShift
	case KindStreak:
		return a.LongStreak
	}
	return false
}

// Filter keeps anomalies matching any of kinds. No kinds keeps all.
func Filter(anomalies []model.AnomalyRecord, kinds ...Kind) []model.AnomalyRecord {
	if len(kinds) == 0 {
		return anomalies
	}
	var out []model.AnomalyRecord
	for _, a := range anomalies {
		for _, k := range kinds {
			if k.matches(a) {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// Summary counts anomalies by rule. A record can count under several rules.
type Summary struct {
	Count        int     `json:"count"`
	LongShift    int     `json:"long_shift"`
	LongStreak   int     `json:"long_streak"`
	ZScore       int     `json:"z_score"`
	Employees    int     `json:"employees"`
	MeanOvertime float64 `json:"mean_overtime_hours"`
}

// Summarize aggregates anomalies.
func Summarize(anomalies []model.AnomalyRecord) Summary {
	s := Summary{Count: len(anomalies)}
	employees := map[string]struct{}{}
	var ot float64
	for _, a := range anomalies {
		if a.LongShift {
			s.LongShift++
		}
		if a.LongStreak {
			s.LongStreak++
		}
		if a.ZScoreFlag {
			s.ZScore++
		}
		employees[a.EmployeeID] = struct{}{}
		ot += a.OvertimeHours
	}
	s.Employees = len(employees)
	if len(anomalies) > 0 {
		s.MeanOvertime = ot / float64(len(anomalies))
	}
	return s
}
