package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/hr-monitor/internal/attendance"
	"github.com/sells-group/hr-monitor/internal/comment"
	"github.com/sells-group/hr-monitor/internal/config"
	"github.com/sells-group/hr-monitor/internal/export"
	"github.com/sells-group/hr-monitor/internal/metrics"
	"github.com/sells-group/hr-monitor/internal/model"
	"github.com/sells-group/hr-monitor/internal/table"
)

const hrCSV = `社員ID,年齢,勤続年数,平均残業時間h,有給取得率,評価(1-5),昇給回数,部署異動回数
E001,25,1,60,10,2,0,3
E002,45,20,5,90,5,5,0
E003,33,5,30,50,3,2,1
E004,29,2,45,20,2,1,2
`

const attendanceCSV = `社員ID,日付,勤務時間h,残業時間h
A,2024-01-01,8,0
A,2024-01-02,8,0
A,2024-01-03,12,4
A,2024-01-04,8,0
B,2024-01-01,8,1
`

func testConfig() *config.Config {
	return &config.Config{
		Anonymize:  config.AnonymizeConfig{Salt: "hrtool", Prefix: "ID_", Length: 8},
		Risk:       config.RiskConfig{Medium: 40, High: 70},
		Attendance: config.AttendanceConfig{ZThreshold: 2, LongHours: 11, StreakDays: 12},
		Report:     config.ReportConfig{FontCandidates: []string{"/nonexistent/font.ttf"}, RiskRows: 10, AnomalyRows: 20},
	}
}

func newService(t *testing.T, m *metrics.Manager) *Service {
	t.Helper()
	s, err := New(testConfig(), nil, m)
	require.NoError(t, err)
	return s
}

func TestNew_BadSynonymsPath(t *testing.T) {
	cfg := testConfig()
	cfg.Mapping.SynonymsPath = "/nonexistent/synonyms.yaml"

	_, err := New(cfg, nil, nil)
	assert.Error(t, err)
}

func TestNew_ZeroAnonymizeConfigUsesDefaults(t *testing.T) {
	cfg := testConfig()
	cfg.Anonymize = config.AnonymizeConfig{}

	s, err := New(cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ID_dd324a27", s.Anonymizer().Pseudonym("E001"))
}

func TestAttrition_RuleBased(t *testing.T) {
	m := metrics.NewManager()
	s := newService(t, m)

	run, err := s.Attrition(context.Background(), []byte(hrCSV), "hr.csv", AttritionOptions{})
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "hr.csv", run.Source)
	assert.Equal(t, "Rule-Based", run.Metadata.Model)
	assert.Empty(t, run.Mapping)
	require.Len(t, run.Results, 4)
	assert.Equal(t, run.Results, run.Displayed)
	assert.Equal(t, 4, run.Summary.Total)
	assert.Equal(t, 4, run.Summary.High+run.Summary.Medium+run.Summary.Low)
	assert.Equal(t, model.Thresholds{Medium: 40, High: 70}, run.Thresholds)
	assert.Equal(t, comment.SourceRule, run.Comment.Source)
	assert.True(t, strings.HasPrefix(run.Comment.Text, "所見:"))

	for i := 1; i < len(run.Results); i++ {
		assert.GreaterOrEqual(t, run.Results[i-1].Probability, run.Results[i].Probability)
	}
	// The heavy-overtime, low-rating employee outranks the long-tenured one.
	assert.Equal(t, "E001", run.Results[0].EmployeeID)
	assert.Equal(t, "E002", run.Results[3].EmployeeID)

	n, err := testutil.GatherAndCount(m.Registry(), "hr_monitor_analysis_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAttrition_ThresholdOverrideAndTierFilter(t *testing.T) {
	s := newService(t, nil)

	run, err := s.Attrition(context.Background(), []byte(hrCSV), "hr.csv", AttritionOptions{
		Thresholds: &model.Thresholds{Medium: 0, High: 1},
		Tiers:      []model.RiskTier{model.TierLow},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, run.Summary.High)
	assert.Empty(t, run.Displayed)
	for _, r := range run.Results {
		assert.Equal(t, model.TierHigh, r.Tier)
	}
}

func TestAttrition_ThresholdsNormalized(t *testing.T) {
	s := newService(t, nil)

	run, err := s.Attrition(context.Background(), []byte(hrCSV), "hr.csv", AttritionOptions{
		Thresholds: &model.Thresholds{Medium: 80, High: 60},
	})
	require.NoError(t, err)
	assert.Equal(t, model.Thresholds{Medium: 59, High: 60}, run.Thresholds)
}

func TestAttrition_AutoMapsAndRescales(t *testing.T) {
	s := newService(t, nil)
	data := `employee_id,年齢,tenure,平均残業時間h,有給取得率,評価(1-5),昇給回数,部署異動回数
E001,25,1,60,0.1,2,0,3
E002,45,20,5,0.9,5,5,0
`

	run, err := s.Attrition(context.Background(), []byte(data), "hr.csv", AttritionOptions{})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{model.ColEmployeeID: "employee_id", model.ColTenure: "tenure"}, run.Mapping)
	require.NotEmpty(t, run.Warnings)
	assert.Contains(t, run.Warnings[0], "自動マッピング")

	byID := map[string]model.RiskResult{}
	for _, r := range run.Results {
		byID[r.EmployeeID] = r
	}
	require.NotNil(t, byID["E002"].PTORate)
	assert.InDelta(t, 90, *byID["E002"].PTORate, 1e-9)
	require.NotNil(t, byID["E001"].Tenure)
	assert.InDelta(t, 1, *byID["E001"].Tenure, 1e-9)
}

func TestAttrition_PTORescaledOnceWhetherOrNotMapped(t *testing.T) {
	s := newService(t, nil)
	rows := `E001,25,1,60,0.005,2,0,3
E002,45,20,5,0.01,5,5,0
`
	canonical := "社員ID,年齢,勤続年数,平均残業時間h,有給取得率,評価(1-5),昇給回数,部署異動回数\n" + rows
	aliased := "社員ID,年齢,tenure,平均残業時間h,有給取得率,評価(1-5),昇給回数,部署異動回数\n" + rows

	for name, data := range map[string]string{"canonical": canonical, "aliased": aliased} {
		t.Run(name, func(t *testing.T) {
			run, err := s.Attrition(context.Background(), []byte(data), "hr.csv", AttritionOptions{})
			require.NoError(t, err)

			byID := map[string]model.RiskResult{}
			for _, r := range run.Results {
				byID[r.EmployeeID] = r
			}
			require.NotNil(t, byID["E001"].PTORate)
			require.NotNil(t, byID["E002"].PTORate)
			assert.InDelta(t, 0.5, *byID["E001"].PTORate, 1e-9)
			assert.InDelta(t, 1, *byID["E002"].PTORate, 1e-9)
		})
	}
}

func TestAttrition_ValidationBlocks(t *testing.T) {
	m := metrics.NewManager()
	s := newService(t, m)
	data := "社員ID,年齢,平均残業時間h\nE001,30,20\n"

	_, err := s.Attrition(context.Background(), []byte(data), "hr.csv", AttritionOptions{})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, KindAttrition, verr.Kind)
	require.Len(t, verr.Result.Errors, 1)
	assert.Contains(t, verr.Result.Errors[0], "必須カラムが不足しています")
	assert.Contains(t, err.Error(), "attrition validation failed")
}

func TestAttrition_LenientScoresSubset(t *testing.T) {
	s := newService(t, nil)
	data := "社員ID,年齢,平均残業時間h\nE001,30,20\nE002,50,0\n"

	run, err := s.Attrition(context.Background(), []byte(data), "hr.csv", AttritionOptions{Lenient: true})
	require.NoError(t, err)
	assert.Len(t, run.Results, 2)
	assert.Equal(t, []string{model.ColAge, model.ColOvertime}, run.Metadata.Features)
}

func TestAttrition_UnsupportedFormat(t *testing.T) {
	s := newService(t, nil)

	_, err := s.Attrition(context.Background(), []byte{0xD0, 0xCF, 0x11, 0xE0, 0, 0}, "hr.xls", AttritionOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, table.ErrUnsupportedFormat)

	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
}

func TestAttrition_CancelledContext(t *testing.T) {
	s := newService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Attrition(ctx, []byte(hrCSV), "hr.csv", AttritionOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAttendance_DetectsAndFilters(t *testing.T) {
	m := metrics.NewManager()
	s := newService(t, m)

	run, err := s.Attendance(context.Background(), []byte(attendanceCSV), "att.csv", AttendanceOptions{
		Kinds: []attendance.Kind{attendance.KindStreak},
	})
	require.NoError(t, err)

	assert.Equal(t, 5, run.Records)
	require.Len(t, run.Anomalies, 1)
	assert.Equal(t, "A", run.Anomalies[0].EmployeeID)
	assert.True(t, run.Anomalies[0].LongShift)
	assert.Empty(t, run.Displayed)
	assert.Equal(t, 1, run.Summary.Count)
	assert.Equal(t, 1, run.Summary.LongShift)
	assert.Len(t, run.Daily, 4)
	assert.Equal(t, model.AnomalyParams{ZThreshold: 2, LongHours: 11, StreakDays: 12}, run.Params)
	assert.Contains(t, run.Comment.Text, "異常 1件")
}

func TestAttendance_ParamsOverride(t *testing.T) {
	s := newService(t, nil)

	run, err := s.Attendance(context.Background(), []byte(attendanceCSV), "att.csv", AttendanceOptions{
		Params: &model.AnomalyParams{ZThreshold: 2, LongHours: 20, StreakDays: 4},
	})
	require.NoError(t, err)

	require.Len(t, run.Anomalies, 1)
	assert.True(t, run.Anomalies[0].LongStreak)
	assert.False(t, run.Anomalies[0].LongShift)
	assert.Equal(t, 4, run.Anomalies[0].Streak)
}

func TestAttendance_AutoMapsEnglishHeaders(t *testing.T) {
	s := newService(t, nil)
	data := "employee_id,date,hoursworked,overtime\nA,2024-01-01,8,0\n"

	run, err := s.Attendance(context.Background(), []byte(data), "att.csv", AttendanceOptions{})
	require.NoError(t, err)
	assert.Len(t, run.Mapping, 4)
	assert.Empty(t, run.Anomalies)
}

func TestAttendance_ValidationBlocks(t *testing.T) {
	s := newService(t, nil)
	data := "社員ID,日付,勤務時間h,残業時間h\nA,not-a-date,8,0\n"

	_, err := s.Attendance(context.Background(), []byte(data), "att.csv", AttendanceOptions{})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, KindAttendance, verr.Kind)
	assert.Contains(t, verr.Result.Errors[0], "日付のパースに失敗")
}

func TestWriteAttrition_Formats(t *testing.T) {
	s := newService(t, nil)
	run, err := s.Attrition(context.Background(), []byte(hrCSV), "hr.csv", AttritionOptions{})
	require.NoError(t, err)

	var csv bytes.Buffer
	require.NoError(t, s.WriteAttrition(&csv, run, export.FormatCSV, true))
	assert.NotContains(t, csv.String(), "E001")
	assert.Contains(t, csv.String(), s.Anonymizer().Pseudonym("E001"))

	var pdf bytes.Buffer
	require.NoError(t, s.WriteAttrition(&pdf, run, export.FormatPDF, false))
	assert.True(t, bytes.HasPrefix(pdf.Bytes(), []byte("%PDF-")))

	var js bytes.Buffer
	require.NoError(t, s.WriteAttrition(&js, run, export.FormatJSON, true))
	var decoded AttritionRun
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, run.ID, decoded.ID)
	assert.True(t, strings.HasPrefix(decoded.Results[0].EmployeeID, "ID_"))
	// Anonymizing output leaves the run itself untouched.
	assert.Equal(t, "E001", run.Results[0].EmployeeID)
}

func TestWriteAttendance_Formats(t *testing.T) {
	s := newService(t, nil)
	run, err := s.Attendance(context.Background(), []byte(attendanceCSV), "att.csv", AttendanceOptions{})
	require.NoError(t, err)

	var xlsx bytes.Buffer
	require.NoError(t, s.WriteAttendance(&xlsx, run, export.FormatXLSX, false))
	assert.True(t, bytes.HasPrefix(xlsx.Bytes(), []byte("PK")))

	var pdf bytes.Buffer
	require.NoError(t, s.WriteAttendance(&pdf, run, export.FormatPDF, true))
	assert.True(t, bytes.HasPrefix(pdf.Bytes(), []byte("%PDF-")))

	assert.Error(t, s.WriteAttendance(&bytes.Buffer{}, run, export.Format("docx"), false))
}
