package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hr-monitor/internal/attendance"
	"github.com/sells-group/hr-monitor/internal/comment"
	"github.com/sells-group/hr-monitor/internal/mapping"
	"github.com/sells-group/hr-monitor/internal/metrics"
	"github.com/sells-group/hr-monitor/internal/model"
	"github.com/sells-group/hr-monitor/internal/table"
	"github.com/sells-group/hr-monitor/internal/validate"
)

// AttendanceOptions tunes a single attendance run.
type AttendanceOptions struct {
	Params *model.AnomalyParams
	Kinds  []attendance.Kind
}

// AttendanceRun is the outcome of one attendance analysis. Summary and
// Comment always describe every anomaly, not just the displayed kinds.
type AttendanceRun struct {
	ID        string                `json:"id"`
	Source    string                `json:"source"`
	Encoding  table.Encoding        `json:"encoding"`
	Mapping   map[string]string     `json:"mapping,omitempty"`
	Warnings  []string              `json:"warnings"`
	Params    model.AnomalyParams   `json:"params"`
	Summary   attendance.Summary    `json:"summary"`
	Comment   comment.Comment       `json:"comment"`
	Anomalies []model.AnomalyRecord `json:"anomalies"`
	Displayed []model.AnomalyRecord `json:"displayed"`
	Daily     []model.DailyOvertime `json:"daily_overtime"`
	Records   int                   `json:"records"`
}

// Attendance runs the anomaly detector over data.
func (s *Service) Attendance(ctx context.Context, data []byte, name string, opts AttendanceOptions) (*AttendanceRun, error) {
	start := s.now()

	run, err := s.attendance(ctx, data, name, opts)
	if err != nil {
		s.metrics.RecordRun(KindAttendance, outcome(err), 0, time.Since(start))
		return nil, err
	}

	s.metrics.RecordRun(KindAttendance, metrics.OutcomeOK, run.Records, time.Since(start))
	s.metrics.RecordAnomalies(run.Summary.ZScore, run.Summary.LongShift, run.Summary.LongStreak)
	if run.Comment.Fallback {
		s.metrics.RecordCommentFallback(string(comment.TargetAttendance))
	}
	s.metrics.RecordCommentCost(string(comment.TargetAttendance), run.Comment.CostUSD)

	zap.L().Info("analysis: attendance complete",
		zap.String("run_id", run.ID),
		zap.String("source", name),
		zap.Int("records", run.Records),
		zap.Int("anomalies", run.Summary.Count),
		zap.Int("displayed", len(run.Displayed)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return run, nil
}

func (s *Service) attendance(ctx context.Context, data []byte, name string, opts AttendanceOptions) (*AttendanceRun, error) {
	in, err := s.load(data, name, mapping.DomainAttendance, model.AttendanceColumns, false)
	if err != nil {
		return nil, err
	}

	res := validate.Result{Warnings: in.warnings}
	res.Merge(validate.Attendance(in.frame))
	if !res.OK() {
		return nil, &ValidationError{Kind: KindAttendance, Result: res}
	}

	params := s.AnomalyParams()
	if opts.Params != nil {
		params = *opts.Params
	}

	anomalies, daily, err := attendance.DetectFrame(in.frame, params)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: detect anomalies")
	}

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "analysis: attendance cancelled")
	}

	summary := attendance.Summarize(anomalies)
	return &AttendanceRun{
		ID:        uuid.New().String(),
		Source:    name,
		Encoding:  in.encoding,
		Mapping:   in.mapping,
		Warnings:  res.Warnings,
		Params:    params,
		Summary:   summary,
		Comment:   s.comments.Generate(ctx, comment.AttendanceStats(summary)),
		Anomalies: anomalies,
		Displayed: attendance.Filter(anomalies, opts.Kinds...),
		Daily:     daily,
		Records:   in.frame.Len(),
	}, nil
}
