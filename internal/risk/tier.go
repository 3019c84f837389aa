package risk

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/hr-monitor/internal/model"
)

// Tier buckets a probability percentage. Boundary values belong to the
// upper tier; thresholds are normalised first so Medium < High.
func Tier(pct float64, t model.Thresholds) model.RiskTier {
	t = t.Normalized()
	switch {
	case pct >= t.High:
		return model.TierHigh
	case pct >= t.Medium:
		return model.TierMedium
	default:
		return model.TierLow
	}
}

// Rebucket returns a copy of results with tiers recomputed for t.
func Rebucket(results []model.RiskResult, t model.Thresholds) []model.RiskResult {
	out := make([]model.RiskResult, len(results))
	for i, r := range results {
		r.Tier = Tier(r.Probability, t)
		out[i] = r
	}
	return out
}

// Filter keeps results whose tier is in tiers. An empty tier list keeps all.
func Filter(results []model.RiskResult, tiers ...model.RiskTier) []model.RiskResult {
	if len(tiers) == 0 {
		return results
	}
	keep := make(map[model.RiskTier]bool, len(tiers))
	for _, t := range tiers {
		keep[t] = true
	}
	var out []model.RiskResult
	for _, r := range results {
		if keep[r.Tier] {
			out = append(out, r)
		}
	}
	return out
}

// Summary aggregates a result set for dashboards, reports and comments.
type Summary struct {
	Total             int              `json:"total"`
	High              int              `json:"high"`
	Medium            int              `json:"medium"`
	Low               int              `json:"low"`
	MedianProbability float64          `json:"median_probability_pct"`
	MeanOvertime      float64          `json:"mean_overtime_hours"`
	Thresholds        model.Thresholds `json:"thresholds"`
}

// Summarize counts tiers under t and computes median probability and mean
// overtime. Employees without overtime data are left out of the mean.
func Summarize(results []model.RiskResult, t model.Thresholds) Summary {
	t = t.Normalized()
	s := Summary{Total: len(results), Thresholds: t}

	probs := make([]float64, 0, len(results))
	var overtime []float64
	for _, r := range results {
		switch Tier(r.Probability, t) {
		case model.TierHigh:
			s.High++
		case model.TierMedium:
			s.Medium++
		default:
			s.Low++
		}
		probs = append(probs, r.Probability)
		if r.Overtime != nil {
			overtime = append(overtime, *r.Overtime)
		}
	}
	s.MedianProbability = median(probs)
	if len(overtime) > 0 {
		s.MeanOvertime = stat.Mean(overtime, nil)
	}
	return s
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
