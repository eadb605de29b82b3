package risk

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"crypto-core/pkg/config"
)

// Limits holds every threshold the manager enforces. Loaded from config with
// optional YAML overrides.
type Limits struct {
	MaxOrderUSD       float64 `yaml:"max_order_usd"`
	DailyLossLimitUSD float64 `yaml:"daily_loss_limit_usd"`

	// Concentration warning thresholds as fractions of portfolio value.
	ConcentrationWarn   float64 `yaml:"concentration_warn"`
	ConcentrationStrong float64 `yaml:"concentration_strong"`

	// Emergency stop thresholds.
	DrawdownStop      float64 `yaml:"drawdown_stop"`
	ConcentrationStop float64 `yaml:"concentration_stop"`

	// Simplified VaR fraction of portfolio value.
	ValueAtRiskFraction float64 `yaml:"value_at_risk_fraction"`

	// Assets that always draw a volatility warning.
	HighVolatility []string `yaml:"high_volatility"`

	// Correlated asset classes; holding more than two open positions from
	// one group draws a warning.
	CorrelationGroups map[string][]string `yaml:"correlation_groups"`
}

// DefaultLimits builds limits from environment config.
func DefaultLimits(cfg *config.Config) Limits {
	return Limits{
		MaxOrderUSD:         cfg.MaxOrderUSD,
		DailyLossLimitUSD:   cfg.DailyLossLimitUSD,
		ConcentrationWarn:   0.20,
		ConcentrationStrong: 0.30,
		DrawdownStop:        0.20,
		ConcentrationStop:   0.50,
		ValueAtRiskFraction: 0.05,
		HighVolatility:      cfg.HighVolatility,
		CorrelationGroups: map[string][]string{
			"majors":      {"BTC", "ETH"},
			"stablecoins": {"USDT", "USDC", "DAI"},
		},
	}
}

// LoadLimits reads limits from config, overlaying values from the YAML file
// at cfg.RiskConfigPath when set.
func LoadLimits(cfg *config.Config) (Limits, error) {
	limits := DefaultLimits(cfg)
	if cfg.RiskConfigPath == "" {
		return limits, nil
	}
	data, err := os.ReadFile(cfg.RiskConfigPath)
	if err != nil {
		return limits, fmt.Errorf("read risk config: %w", err)
	}
	if err := yaml.Unmarshal(data, &limits); err != nil {
		return limits, fmt.Errorf("parse risk config: %w", err)
	}
	return limits, nil
}
