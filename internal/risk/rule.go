package risk

import (
	"github.com/sells-group/hr-monitor/internal/model"
)

// ruleWeight couples a signed weight with the normalisation that maps a raw
// value onto [0, 1]. Negative weights are protective factors.
type ruleWeight struct {
	col       string
	weight    float64
	normalize func(v float64) float64
}

var ruleWeights = []ruleWeight{
	{model.ColTenure, -0.10, func(v float64) float64 { return v / 10 }},
	{model.ColAge, -0.05, func(v float64) float64 { return (v - 20) / 30 }},
	{model.ColOvertime, 0.18, func(v float64) float64 { return v / 60 }},
	{model.ColPTORate, -0.20, func(v float64) float64 { return v / 100 }},
	{model.ColRating, -0.25, func(v float64) float64 { return (v - 1) / 4 }},
	{model.ColRaises, -0.10, func(v float64) float64 { return v / 5 }},
	{model.ColTransfers, 0.08, func(v float64) float64 { return v / 3 }},
}

// ruleGain sharpens the summed contributions before the logistic transform.
const ruleGain = 3.0

// RuleScore returns the rule-based attrition probability in [0, 1]. Only
// known fields contribute, so an employee with no data scores exactly 0.5.
func RuleScore(e model.EmployeeRecord) float64 {
	var x float64
	for _, w := range ruleWeights {
		v := e.Feature(w.col)
		if v == nil {
			continue
		}
		x += w.weight * clip01(w.normalize(*v))
	}
	return clip01(sigmoid(x * ruleGain))
}

type ruleScorer struct{}

func (ruleScorer) name() string { return ModelRuleBased }

func (ruleScorer) score(employees []model.EmployeeRecord) []float64 {
	out := make([]float64, len(employees))
	for i, e := range employees {
		out[i] = RuleScore(e)
	}
	return out
}
