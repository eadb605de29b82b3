package indicators

import "math"

// Bollinger returns the middle, upper and lower bands for the last period
// values using k standard deviations.
func Bollinger(values []float64, period int, k float64) (middle, upper, lower float64) {
	if period <= 0 || len(values) < period {
		return 0, 0, 0
	}
	middle = SMA(values, period)

	variance := 0.0
	for i := len(values) - period; i < len(values); i++ {
		d := values[i] - middle
		variance += d * d
	}
	std := math.Sqrt(variance / float64(period))

	return middle, middle + k*std, middle - k*std
}
