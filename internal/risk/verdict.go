package risk

// Verdict is the outcome of one trade risk check. Ephemeral; never stored.
type Verdict struct {
	Approved       bool     `json:"approved"`
	Violations     []string `json:"violations"`
	Warnings       []string `json:"warnings"`
	Score          float64  `json:"risk_score"`
	Recommendation string   `json:"recommendation"`
}

// Metrics are portfolio-wide risk figures computed from a snapshot.
type Metrics struct {
	ConcentrationRisk float64 `json:"concentration_risk"`
	ValueAtRisk       float64 `json:"value_at_risk"`
	Volatility        float64 `json:"volatility"`
	DailyPnL          float64 `json:"daily_pnl"`
	TotalValueUSD     float64 `json:"total_value_usd"`
}

// score maps violation/warning counts onto [0,1].
func score(violations, warnings int) float64 {
	s := 0.3*float64(violations) + 0.1*float64(warnings)
	if s > 1 {
		return 1
	}
	return s
}

// recommendation maps counts onto the advice ladder.
func recommendation(violations, warnings int) string {
	switch {
	case violations > 0:
		return "rejected: hard risk violation"
	case warnings >= 3:
		return "high risk, reduce size"
	case warnings == 2:
		return "moderate risk, monitor"
	case warnings == 1:
		return "low risk, proceed with caution"
	default:
		return "approved"
	}
}
