// Package export turns analysis results into display tables and writes
// them as CSV or workbook files. Pseudonymization happens here, on the way
// out, never before scoring.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/hr-monitor/internal/anonymize"
	"github.com/sells-group/hr-monitor/internal/model"
	"github.com/sells-group/hr-monitor/internal/table"
)

// Format is an output file format.
type Format string

// Supported formats. PDF is rendered by the report package.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
	FormatJSON Format = "json"
)

// ParseFormat accepts a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX, FormatPDF, FormatJSON:
		return f, nil
	case "excel":
		return FormatXLSX, nil
	}
	return "", eris.Errorf("export: unknown format %q", s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/json"
}

// Sheet names for workbook exports.
const (
	SheetAttrition  = "結果"
	SheetAttendance = "異常一覧"
)

// FileName returns the download name for an export of kind ("attrition" or
// "attendance").
func FileName(kind string, f Format) string {
	switch kind {
	case "attrition":
		if f == FormatPDF {
			return "attrition_report.pdf"
		}
		return "attrition_results." + string(f)
	default:
		if f == FormatPDF {
			return "attendance_report.pdf"
		}
		return "attendance_anomalies." + string(f)
	}
}

// RiskFrame builds the attrition result table. Reference columns appear only
// when at least one result carries them. anon may be nil.
func RiskFrame(results []model.RiskResult, anon *anonymize.Anonymizer) *table.Frame {
	type ref struct {
		col string
		get func(model.RiskResult) *float64
	}
	refs := []ref{
		{model.ColTenure, func(r model.RiskResult) *float64 { return r.Tenure }},
		{model.ColOvertime, func(r model.RiskResult) *float64 { return r.Overtime }},
		{model.ColPTORate, func(r model.RiskResult) *float64 { return r.PTORate }},
		{model.ColRating, func(r model.RiskResult) *float64 { return r.Rating }},
	}
	var present []ref
	for _, rf := range refs {
		for _, r := range results {
			if rf.get(r) != nil {
				present = append(present, rf)
				break
			}
		}
	}

	cols := []string{model.ColEmployeeID, model.ColProbability, model.ColRiskTier}
	for _, rf := range present {
		cols = append(cols, rf.col)
	}

	display := anon.Func()
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		row := []string{display(r.EmployeeID), formatFloat(r.Probability), string(r.Tier)}
		for _, rf := range present {
			row = append(row, formatOpt(rf.get(r)))
		}
		rows = append(rows, row)
	}
	return table.NewFrame(cols, rows)
}

// AnomalyFrame builds the attendance anomaly table. anon may be nil.
func AnomalyFrame(anomalies []model.AnomalyRecord, anon *anonymize.Anonymizer) *table.Frame {
	cols := []string{
		model.ColEmployeeID, model.ColDate, model.ColHoursWorked, model.ColOvertimeHours,
		model.ColStreak, model.ColFlagZScore, model.ColFlagLong, model.ColFlagStreak,
	}
	display := anon.Func()
	rows := make([][]string, 0, len(anomalies))
	for _, a := range anomalies {
		rows = append(rows, []string{
			display(a.EmployeeID),
			a.Date.Format("2006-01-02"),
			formatFloat(a.HoursWorked),
			formatFloat(a.OvertimeHours),
			strconv.Itoa(a.Streak),
			formatBool(a.ZScoreFlag),
			formatBool(a.LongShift),
			formatBool(a.LongStreak),
		})
	}
	return table.NewFrame(cols, rows)
}

// DailyOvertimeFile is the file name of the daily total overtime export.
const DailyOvertimeFile = "attendance_daily_overtime.csv"

// OverviewFrame builds the daily total overtime table.
func OverviewFrame(days []model.DailyOvertime) *table.Frame {
	rows := make([][]string, 0, len(days))
	for _, d := range days {
		rows = append(rows, []string{d.Date.Format("2006-01-02"), formatFloat(d.OvertimeHours)})
	}
	return table.NewFrame([]string{model.ColDate, model.ColOvertimeHours}, rows)
}

// numericColumns are stored as numbers in workbooks. Identifier and date
// columns stay text.
var numericColumns = append([]string{
	model.ColProbability, model.ColHoursWorked, model.ColOvertimeHours, model.ColStreak,
}, model.ReferenceColumns...)

// Write writes frame as CSV or workbook.
func Write(w io.Writer, frame *table.Frame, f Format, sheet string) error {
	switch f {
	case FormatCSV:
		return table.WriteCSV(w, frame)
	case FormatXLSX:
		return table.WriteXLSX(w, frame, sheet, numericColumns...)
	}
	return eris.Errorf("export: format %q is not tabular", f)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOpt(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatBool(b bool) string {
	return fmt.Sprint(b)
}
