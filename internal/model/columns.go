// Package model defines the employee, attendance, risk and anomaly records
// shared by the analysis engines.
package model

// Canonical column names. Source spreadsheets use the Japanese HR schema; the
// mapping layer renames arbitrary headers onto these.
const (
	ColEmployeeID = "社員ID"
	ColAge        = "年齢"
	ColTenure     = "勤続年数"
	ColOvertime   = "平均残業時間h"
	ColPTORate    = "有給取得率"
	ColRating     = "評価(1-5)"
	ColRaises     = "昇給回数"
	ColTransfers  = "部署異動回数"
	ColAttrition  = "attrition"

	ColDate          = "日付"
	ColHoursWorked   = "勤務時間h"
	ColOvertimeHours = "残業時間h"

	ColProbability = "離職確率(%)"
	ColRiskTier    = "リスク区分"
	ColStreak      = "連続出勤日数"
	ColFlagZScore  = "異常_残業z"
	ColFlagLong    = "異常_長時間"
	ColFlagStreak  = "異常_連続"
)

// HRColumns lists the columns an HR dataset is validated against.
var HRColumns = []string{
	ColEmployeeID, ColAge, ColTenure, ColOvertime, ColPTORate, ColRating, ColRaises, ColTransfers,
}

// AttendanceColumns lists the mandatory attendance columns.
var AttendanceColumns = []string{ColEmployeeID, ColDate, ColHoursWorked, ColOvertimeHours}

// Features lists the numeric predictors used by the attrition estimator, in
// model order.
var Features = []string{
	ColAge, ColTenure, ColOvertime, ColPTORate, ColRating, ColRaises, ColTransfers,
}

// ReferenceColumns are carried from the input into risk results when present.
var ReferenceColumns = []string{ColTenure, ColOvertime, ColPTORate, ColRating}
