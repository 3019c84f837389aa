//go:build !integration

package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/hr-monitor/internal/analysis"
	"github.com/sells-group/hr-monitor/internal/anonymize"
	"github.com/sells-group/hr-monitor/internal/attendance"
	"github.com/sells-group/hr-monitor/internal/comment"
	"github.com/sells-group/hr-monitor/internal/export"
	"github.com/sells-group/hr-monitor/internal/mapping"
	"github.com/sells-group/hr-monitor/internal/model"
	"github.com/sells-group/hr-monitor/internal/risk"
	"github.com/sells-group/hr-monitor/internal/table"
	"github.com/sells-group/hr-monitor/internal/validate"
)

func TestParseOutputFormat(t *testing.T) {
	_, table, err := parseOutputFormat("table", "")
	require.NoError(t, err)
	assert.True(t, table)

	f, table, err := parseOutputFormat("csv", "")
	require.NoError(t, err)
	assert.False(t, table)
	assert.Equal(t, export.FormatCSV, f)

	_, _, err = parseOutputFormat("pdf", "")
	assert.ErrorContains(t, err, "--output is required")

	f, _, err = parseOutputFormat("excel", "out.xlsx")
	require.NoError(t, err)
	assert.Equal(t, export.FormatXLSX, f)

	_, _, err = parseOutputFormat("docx", "")
	assert.Error(t, err)
}

func TestFormatAttrition(t *testing.T) {
	run := &analysis.AttritionRun{
		Metadata:   model.Metadata{Model: "Rule-Based"},
		Thresholds: model.Thresholds{Medium: 40, High: 70},
		Summary:    risk.Summary{Total: 2, High: 1, Low: 1, MedianProbability: 45.5, MeanOvertime: 20},
		Comment:    comment.Comment{Text: "所見: テスト"},
		Displayed: []model.RiskResult{
			{EmployeeID: "E001", Probability: 81.2, Tier: model.TierHigh, Overtime: model.Float(40)},
		},
	}

	var buf bytes.Buffer
	formatAttrition(&buf, run, nil)

	out := buf.String()
	assert.Contains(t, out, "Model: Rule-Based")
	assert.Contains(t, out, "High: 1")
	assert.Contains(t, out, "EMPLOYEE")
	assert.Contains(t, out, "E001")
	assert.Contains(t, out, "81.2%")
	assert.Contains(t, out, "40")
	assert.Contains(t, out, "所見: テスト")

	buf.Reset()
	anon := anonymize.Default()
	formatAttrition(&buf, run, anon)
	assert.NotContains(t, buf.String(), "E001")
	assert.Contains(t, buf.String(), anon.Pseudonym("E001"))
}

func TestFormatAttendance(t *testing.T) {
	run := &analysis.AttendanceRun{
		Records: 10,
		Summary: attendance.Summary{Count: 1, LongShift: 1, LongStreak: 1},
		Displayed: []model.AnomalyRecord{{
			AttendanceRecord: model.AttendanceRecord{
				EmployeeID: "A", Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), HoursWorked: 12.5, OvertimeHours: 4.5,
			},
			Streak: 13, LongShift: true, LongStreak: true,
		}},
	}

	var buf bytes.Buffer
	formatAttendance(&buf, run, nil)

	out := buf.String()
	assert.Contains(t, out, "Anomalies: 1")
	assert.Contains(t, out, "2024-01-05")
	assert.Contains(t, out, "12.5")
	assert.Contains(t, out, "long,streak")
}

func TestReportValidation(t *testing.T) {
	verr := &analysis.ValidationError{Kind: analysis.KindAttrition, Result: validate.Result{
		Errors:   []string{"必須カラムが不足しています"},
		Warnings: []string{"社員IDに重複があります"},
	}}

	var buf bytes.Buffer
	err := reportValidation(&buf, verr)
	assert.Equal(t, verr, err)
	assert.Contains(t, buf.String(), "error: 必須カラムが不足しています")
	assert.Contains(t, buf.String(), "warning: 社員IDに重複があります")

	buf.Reset()
	other := errors.New("boom")
	assert.Equal(t, other, reportValidation(&buf, other))
	assert.Empty(t, buf.String())
}

func TestWithOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")

	err := withOutput(path, func(w io.Writer) error {
		_, err := w.Write([]byte("hello"))
		return err
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestFormatMapping(t *testing.T) {
	frame := table.NewFrame([]string{"employee_id", "日付", "hoursworked"}, nil)

	var buf bytes.Buffer
	formatMapping(&buf, frame, mapping.DomainAttendance, mapping.DefaultSynonyms().For(mapping.DomainAttendance))

	out := buf.String()
	assert.Contains(t, out, "REQUIRED")
	assert.Regexp(t, `社員ID\s+employee_id\s+mapped`, out)
	assert.Regexp(t, `日付\s+日付\s+present`, out)
	assert.Regexp(t, `残業時間h\s+-\s+missing`, out)
}
