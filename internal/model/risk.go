package model

// RiskTier is a discretisation of attrition probability.
type RiskTier string

// Risk tiers, lowest first.
const (
	TierLow    RiskTier = "Low"
	TierMedium RiskTier = "Medium"
	TierHigh   RiskTier = "High"
)

// ParseTier maps a case-insensitive name onto a tier.
func ParseTier(s string) (RiskTier, bool) {
	switch s {
	case "High", "high", "HIGH":
		return TierHigh, true
	case "Medium", "medium", "MEDIUM":
		return TierMedium, true
	case "Low", "low", "LOW":
		return TierLow, true
	}
	return "", false
}

// Thresholds holds the two risk cut points in percent.
type Thresholds struct {
	Medium float64 `json:"medium"`
	High   float64 `json:"high"`
}

// DefaultThresholds are the fixed bins used when results are first computed.
func DefaultThresholds() Thresholds {
	return Thresholds{Medium: 40, High: 70}
}

// Normalized enforces Medium < High by forcing Medium to High-1.
func (t Thresholds) Normalized() Thresholds {
	if t.Medium >= t.High {
		t.Medium = t.High - 1
	}
	return t
}

// RiskResult is the per-employee output of the attrition estimator.
// Reference fields are copied from the input when the column existed.
type RiskResult struct {
	EmployeeID  string   `json:"employee_id"`
	Probability float64  `json:"probability_pct"`
	Tier        RiskTier `json:"tier"`
	Tenure      *float64 `json:"tenure_years,omitempty"`
	Overtime    *float64 `json:"avg_overtime_hours,omitempty"`
	PTORate     *float64 `json:"pto_rate,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
}

// Metadata describes how risk results were produced.
type Metadata struct {
	Model    string   `json:"model"`
	Features []string `json:"features"`
}
