package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hr-monitor/internal/comment"
	"github.com/sells-group/hr-monitor/internal/mapping"
	"github.com/sells-group/hr-monitor/internal/metrics"
	"github.com/sells-group/hr-monitor/internal/model"
	"github.com/sells-group/hr-monitor/internal/risk"
	"github.com/sells-group/hr-monitor/internal/table"
	"github.com/sells-group/hr-monitor/internal/validate"
)

// AttritionOptions tunes a single attrition run. Zero Thresholds fall back
// to the configured cut points; no Tiers means every tier is displayed.
type AttritionOptions struct {
	Thresholds *model.Thresholds
	Tiers      []model.RiskTier
	// Lenient validates only the columns present instead of the full schema.
	Lenient bool
}

// AttritionRun is the outcome of one attrition analysis.
type AttritionRun struct {
	ID         string             `json:"id"`
	Source     string             `json:"source"`
	Encoding   table.Encoding     `json:"encoding"`
	Mapping    map[string]string  `json:"mapping,omitempty"`
	Warnings   []string           `json:"warnings"`
	Metadata   model.Metadata     `json:"metadata"`
	Thresholds model.Thresholds   `json:"thresholds"`
	Summary    risk.Summary       `json:"summary"`
	Comment    comment.Comment    `json:"comment"`
	Results    []model.RiskResult `json:"results"`
	// Displayed is Results narrowed to the requested tiers.
	Displayed []model.RiskResult `json:"displayed"`
}

// Attrition scores every employee in data. A blocking validation result is
// returned as *ValidationError.
func (s *Service) Attrition(ctx context.Context, data []byte, name string, opts AttritionOptions) (*AttritionRun, error) {
	start := s.now()

	run, err := s.attrition(ctx, data, name, opts)
	if err != nil {
		s.metrics.RecordRun(KindAttrition, outcome(err), 0, time.Since(start))
		return nil, err
	}

	s.metrics.RecordRun(KindAttrition, metrics.OutcomeOK, len(run.Results), time.Since(start))
	s.metrics.RecordTiers(run.Summary.High, run.Summary.Medium, run.Summary.Low)
	if run.Comment.Fallback {
		s.metrics.RecordCommentFallback(string(comment.TargetAttrition))
	}
	s.metrics.RecordCommentCost(string(comment.TargetAttrition), run.Comment.CostUSD)

	zap.L().Info("analysis: attrition complete",
		zap.String("run_id", run.ID),
		zap.String("source", name),
		zap.String("model", run.Metadata.Model),
		zap.Int("employees", run.Summary.Total),
		zap.Int("high", run.Summary.High),
		zap.Int("displayed", len(run.Displayed)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return run, nil
}

func (s *Service) attrition(ctx context.Context, data []byte, name string, opts AttritionOptions) (*AttritionRun, error) {
	in, err := s.load(data, name, mapping.DomainHR, model.HRColumns, true)
	if err != nil {
		return nil, err
	}

	res := validate.Result{Warnings: in.warnings}
	if opts.Lenient {
		res.Merge(validate.HRPartial(in.frame))
	} else {
		res.Merge(validate.HR(in.frame))
	}
	if !res.OK() {
		return nil, &ValidationError{Kind: KindAttrition, Result: res}
	}

	thresholds := s.Thresholds()
	if opts.Thresholds != nil {
		thresholds = *opts.Thresholds
	}
	thresholds = thresholds.Normalized()

	results, meta := risk.Predict(risk.DatasetFromFrame(in.frame))
	results = risk.Rebucket(results, thresholds)
	summary := risk.Summarize(results, thresholds)

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "analysis: attrition cancelled")
	}

	return &AttritionRun{
		ID:         uuid.New().String(),
		Source:     name,
		Encoding:   in.encoding,
		Mapping:    in.mapping,
		Warnings:   res.Warnings,
		Metadata:   meta,
		Thresholds: thresholds,
		Summary:    summary,
		Comment:    s.comments.Generate(ctx, comment.AttritionStats(summary)),
		Results:    results,
		Displayed:  risk.Filter(results, opts.Tiers...),
	}, nil
}

func outcome(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return metrics.OutcomeInvalid
	}
	return metrics.OutcomeError
}
