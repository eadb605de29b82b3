package indicators

// SupportResistance estimates the nearest support and resistance levels from
// recent lows and highs. Support is the minimum low, resistance the maximum
// high over the last period bars.
func SupportResistance(highs, lows []float64, period int) (support, resistance float64) {
	if period <= 0 || len(highs) == 0 || len(lows) == 0 {
		return 0, 0
	}
	if len(highs) > period {
		highs = highs[len(highs)-period:]
	}
	if len(lows) > period {
		lows = lows[len(lows)-period:]
	}

	support = lows[0]
	for _, v := range lows[1:] {
		if v < support {
			support = v
		}
	}
	resistance = highs[0]
	for _, v := range highs[1:] {
		if v > resistance {
			resistance = v
		}
	}
	return support, resistance
}
