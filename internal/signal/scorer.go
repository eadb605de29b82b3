package signal

import (
	"fmt"

	"crypto-core/internal/indicators"
)

// Contribution weights for the five technical checks. Each fires as a fixed
// constant when its condition holds; the score is the unweighted average.
const (
	weightRSI        = 0.3
	weightRSINeutral = 0.1
	weightTrend      = 0.2
	weightBollinger  = 0.25
	weightLevels     = 0.2
	weightMomentum   = 0.15

	rsiOversold   = 30
	rsiOverbought = 70
	trendBand     = 0.02 // fraction away from the moving average
	levelBand     = 0.01 // fraction away from support or resistance
	momentumBand  = 5    // percent move over 24h
)

// TechnicalScore folds the indicator snapshot and 24h change into a score in
// [-1, 1]. Positive is bullish. The returned reasons name each contribution
// that fired.
func TechnicalScore(snap indicators.Snapshot, changePct24h float64) (float64, []string) {
	score := 0.0
	var reasons []string

	switch {
	case snap.RSI < rsiOversold:
		score += weightRSI
		reasons = append(reasons, fmt.Sprintf("RSI %.1f oversold", snap.RSI))
	case snap.RSI > rsiOverbought:
		score -= weightRSI
		reasons = append(reasons, fmt.Sprintf("RSI %.1f overbought", snap.RSI))
	case snap.RSI >= 40 && snap.RSI <= 60:
		score += weightRSINeutral
		reasons = append(reasons, fmt.Sprintf("RSI %.1f neutral", snap.RSI))
	}

	if snap.SMA > 0 {
		deviation := (snap.Price - snap.SMA) / snap.SMA
		switch {
		case deviation >= trendBand:
			score += weightTrend
			reasons = append(reasons, fmt.Sprintf("price %.1f%% above moving average", deviation*100))
		case deviation <= -trendBand:
			score -= weightTrend
			reasons = append(reasons, fmt.Sprintf("price %.1f%% below moving average", -deviation*100))
		}
	}

	switch {
	case snap.BollingerLower > 0 && snap.Price < snap.BollingerLower:
		score += weightBollinger
		reasons = append(reasons, "price below lower Bollinger band")
	case snap.BollingerUpper > 0 && snap.Price > snap.BollingerUpper:
		score -= weightBollinger
		reasons = append(reasons, "price above upper Bollinger band")
	}

	switch {
	case nearLevel(snap.Price, snap.Support):
		score += weightLevels
		reasons = append(reasons, fmt.Sprintf("price near support %.2f", snap.Support))
	case nearLevel(snap.Price, snap.Resistance):
		score -= weightLevels
		reasons = append(reasons, fmt.Sprintf("price near resistance %.2f", snap.Resistance))
	}

	switch {
	case changePct24h >= momentumBand:
		score += weightMomentum
		reasons = append(reasons, fmt.Sprintf("24h change +%.1f%%", changePct24h))
	case changePct24h <= -momentumBand:
		score -= weightMomentum
		reasons = append(reasons, fmt.Sprintf("24h change %.1f%%", changePct24h))
	}

	return score / 5, reasons
}

// nearLevel reports whether price sits within the level band of a support or
// resistance level.
func nearLevel(price, level float64) bool {
	if level <= 0 {
		return false
	}
	diff := price - level
	if diff < 0 {
		diff = -diff
	}
	return diff/level <= levelBand
}
