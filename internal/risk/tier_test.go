package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/hr-monitor/internal/model"
)

func TestTier_Boundaries(t *testing.T) {
	th := model.Thresholds{Medium: 40, High: 70}
	tests := []struct {
		p    float64
		want model.RiskTier
	}{
		{0, model.TierLow},
		{39.9, model.TierLow},
		{40, model.TierMedium},
		{69.9, model.TierMedium},
		{70, model.TierHigh},
		{100, model.TierHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Tier(tt.p, th), "p=%v", tt.p)
	}
}

func TestTier_InvertedThresholds(t *testing.T) {
	th := model.Thresholds{Medium: 80, High: 60}
	assert.Equal(t, model.TierLow, Tier(58.9, th))
	assert.Equal(t, model.TierMedium, Tier(59, th), "medium is forced to high-1")
	assert.Equal(t, model.TierHigh, Tier(60, th))
}

func TestRebucket(t *testing.T) {
	in := []model.RiskResult{
		{EmployeeID: "a", Probability: 55, Tier: model.TierMedium},
		{EmployeeID: "b", Probability: 20, Tier: model.TierLow},
	}
	out := Rebucket(in, model.Thresholds{Medium: 10, High: 50})
	assert.Equal(t, model.TierHigh, out[0].Tier)
	assert.Equal(t, model.TierMedium, out[1].Tier)
	assert.Equal(t, model.TierMedium, in[0].Tier, "input is not modified")
}

func TestFilter(t *testing.T) {
	in := []model.RiskResult{
		{EmployeeID: "a", Tier: model.TierHigh},
		{EmployeeID: "b", Tier: model.TierLow},
		{EmployeeID: "c", Tier: model.TierMedium},
	}
	assert.Len(t, Filter(in), 3)
	got := Filter(in, model.TierHigh, model.TierMedium)
	assert.Equal(t, []string{"a", "c"}, []string{got[0].EmployeeID, got[1].EmployeeID})
}

func TestSummarize(t *testing.T) {
	in := []model.RiskResult{
		{Probability: 80, Overtime: model.Float(40)},
		{Probability: 50, Overtime: model.Float(20)},
		{Probability: 45},
		{Probability: 10},
	}
	s := Summarize(in, model.DefaultThresholds())
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.High)
	assert.Equal(t, 2, s.Medium)
	assert.Equal(t, 1, s.Low)
	assert.Equal(t, 47.5, s.MedianProbability)
	assert.Equal(t, 30.0, s.MeanOvertime)

	empty := Summarize(nil, model.DefaultThresholds())
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, 0.0, empty.MedianProbability)
}
