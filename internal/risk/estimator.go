// Package risk estimates per-employee attrition probability and buckets it
// into Low/Medium/High tiers.
//
// Two strategies exist. When the dataset carries an attrition label and at
// least one predictor, a logistic regression is fitted on a stratified 80/20
// split and then scores every input row (in-sample; the probabilities are a
// ranking aid, not a generalisation estimate). Otherwise a fixed weighted
// rule score is used.
package risk

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/hr-monitor/internal/model"
	"github.com/sells-group/hr-monitor/internal/table"
)

// ModelRuleBased is the metadata name of the rule strategy.
const ModelRuleBased = "Rule-Based"

// Dataset is the estimator input: decoded employees plus which predictor
// columns the source actually carried.
type Dataset struct {
	Employees []model.EmployeeRecord
	Features  []string
	Labelled  bool
}

// DatasetFromFrame decodes a normalised HR frame.
func DatasetFromFrame(f *table.Frame) Dataset {
	ds := Dataset{
		Employees: model.EmployeesFromFrame(f),
		Labelled:  f.Has(model.ColAttrition),
	}
	for _, c := range model.Features {
		if f.Has(c) {
			ds.Features = append(ds.Features, c)
		}
	}
	return ds
}

func (d Dataset) hasFeature(col string) bool {
	for _, c := range d.Features {
		if c == col {
			return true
		}
	}
	return false
}

// scorer produces a probability in [0, 1] for every employee.
type scorer interface {
	name() string
	score(employees []model.EmployeeRecord) []float64
}

// selectScorer picks the strategy up front from the dataset shape.
func selectScorer(ds Dataset) scorer {
	if ds.Labelled && len(ds.Features) > 0 {
		lr, err := fitLogistic(ds)
		if err == nil {
			return lr
		}
		zap.L().Warn("risk: logistic model unavailable, using rule-based score", zap.Error(err))
	}
	return ruleScorer{}
}

// Predict scores every employee, assigns default tiers and returns results
// sorted by descending probability.
func Predict(ds Dataset) ([]model.RiskResult, model.Metadata) {
	s := selectScorer(ds)
	probs := s.score(ds.Employees)

	defaults := model.DefaultThresholds()
	results := make([]model.RiskResult, len(ds.Employees))
	for i, e := range ds.Employees {
		pct := roundPercent(probs[i])
		r := model.RiskResult{
			EmployeeID:  e.ID,
			Probability: pct,
			Tier:        Tier(pct, defaults),
		}
		if ds.hasFeature(model.ColTenure) {
			r.Tenure = e.Tenure
		}
		if ds.hasFeature(model.ColOvertime) {
			r.Overtime = e.Overtime
		}
		if ds.hasFeature(model.ColPTORate) {
			r.PTORate = e.PTORate
		}
		if ds.hasFeature(model.ColRating) {
			r.Rating = e.Rating
		}
		results[i] = r
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Probability > results[j].Probability
	})

	meta := model.Metadata{Model: s.name(), Features: append([]string(nil), ds.Features...)}
	zap.L().Info("risk: employees scored",
		zap.String("model", meta.Model),
		zap.Int("employees", len(results)),
		zap.Int("features", len(meta.Features)),
	)
	return results, meta
}

func roundPercent(p float64) float64 {
	return math.Round(clip01(p)*1000) / 10
}

func clip01(x float64) float64 {
	return math.Min(math.Max(x, 0), 1)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
