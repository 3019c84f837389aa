// Package analysis runs the end-to-end attrition and attendance flows:
// read, normalise, map columns, validate, score or detect, summarise and
// comment. Every run is a pure function of its input and options; the
// Service holds only immutable collaborators.
package analysis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/hr-monitor/internal/anonymize"
	"github.com/sells-group/hr-monitor/internal/comment"
	"github.com/sells-group/hr-monitor/internal/config"
	"github.com/sells-group/hr-monitor/internal/mapping"
	"github.com/sells-group/hr-monitor/internal/metrics"
	"github.com/sells-group/hr-monitor/internal/model"
	"github.com/sells-group/hr-monitor/internal/report"
	"github.com/sells-group/hr-monitor/internal/table"
	"github.com/sells-group/hr-monitor/internal/validate"
	"github.com/sells-group/hr-monitor/pkg/anthropic"
)

// Run kinds, used in logs and metric labels.
const (
	KindAttrition  = "attrition"
	KindAttendance = "attendance"
)

// ValidationError carries a blocking validation result.
type ValidationError struct {
	Kind   string
	Result validate.Result
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("analysis: %s validation failed: %s", e.Kind, strings.Join(e.Result.Errors, "; "))
}

// Service runs analyses.
type Service struct {
	cfg       *config.Config
	synonyms  mapping.SynonymTable
	comments  comment.Generator
	reports   *report.Builder
	anonymize *anonymize.Anonymizer
	metrics   *metrics.Manager
	now       func() time.Time
}

// New builds a Service from configuration. aiClient may be nil; it is only
// used when a comment API key is configured. m may be nil.
func New(cfg *config.Config, aiClient anthropic.Client, m *metrics.Manager) (*Service, error) {
	synonyms, err := mapping.LoadSynonyms(cfg.Mapping.SynonymsPath)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: load synonyms")
	}

	gen := comment.NewGenerator(comment.Config{
		APIKey:      cfg.Comment.APIKey,
		Model:       cfg.Comment.Model,
		Timeout:     time.Duration(cfg.Comment.TimeoutSecs) * time.Second,
		MaxTokens:   int64(cfg.Comment.MaxTokens),
		Temperature: cfg.Comment.Temperature,
		RatePerMin:  cfg.Comment.RatePerMin,
		MaxAttempts: cfg.Comment.MaxAttempts,
	}, aiClient)

	anon := anonymize.Default()
	if cfg.Anonymize != (config.AnonymizeConfig{}) {
		anon = anonymize.New(cfg.Anonymize.Salt, cfg.Anonymize.Prefix, cfg.Anonymize.Length)
	}

	return &Service{
		cfg:      cfg,
		synonyms: synonyms,
		comments: gen,
		reports: report.NewBuilder(report.Options{
			FontPath:       cfg.Report.FontPath,
			FontCandidates: cfg.Report.FontCandidates,
			RiskRows:       cfg.Report.RiskRows,
			AnomalyRows:    cfg.Report.AnomalyRows,
		}),
		anonymize: anon,
		metrics:   m,
		now:       time.Now,
	}, nil
}

// Thresholds returns the configured risk cut points.
func (s *Service) Thresholds() model.Thresholds {
	return model.Thresholds{Medium: s.cfg.Risk.Medium, High: s.cfg.Risk.High}
}

// AnomalyParams returns the configured detector thresholds.
func (s *Service) AnomalyParams() model.AnomalyParams {
	return model.AnomalyParams{
		ZThreshold: s.cfg.Attendance.ZThreshold,
		LongHours:  s.cfg.Attendance.LongHours,
		StreakDays: s.cfg.Attendance.StreakDays,
	}
}

// Synonyms returns the dictionaries used for column mapping.
func (s *Service) Synonyms() mapping.SynonymTable {
	return s.synonyms
}

// Anonymizer returns the configured anonymizer.
func (s *Service) Anonymizer() *anonymize.Anonymizer {
	return s.anonymize
}

// input is a decoded, column-mapped upload.
type input struct {
	frame    *table.Frame
	encoding table.Encoding
	mapping  map[string]string
	warnings []string
}

// load reads data and maps missing required columns onto their canonical
// names. normalise applies the HR rename rules before mapping and the paid
// leave rescale once, after it.
func (s *Service) load(data []byte, name string, domain mapping.Domain, required []string, normalise bool) (*input, error) {
	frame, enc, err := table.Read(data, name)
	if err != nil {
		return nil, eris.Wrapf(err, "analysis: read %s", name)
	}

	in := &input{encoding: enc}
	if enc.Fallback() {
		in.warnings = append(in.warnings, "文字コードを CP932 (Shift_JIS) として読み込みました。")
	}

	if normalise {
		frame = mapping.RenameColumns(frame)
	}
	frame, in.mapping = mapping.AutoMap(frame, required, s.synonyms.For(domain))
	if len(in.mapping) > 0 {
		in.warnings = append(in.warnings, "列名の揺れを検出したため自動マッピングしました: "+describeMapping(in.mapping))
	}
	if normalise {
		frame = mapping.RescalePTO(frame)
	}
	in.frame = frame
	return in, nil
}

func describeMapping(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = m[k] + "→" + k
	}
	return strings.Join(parts, ", ")
}
