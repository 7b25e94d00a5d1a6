package stats

import "math"

// Round2 rounds v half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Percent returns part/total*100, or 0 when total is not positive.
func Percent(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return part / total * 100
}

// Tonnages are summed as integer thousandths of a tonne so that equal
// totals compare equal whatever order their records were added in.
func toMilli(t float64) int64 {
	return int64(math.Round(t * 1000))
}

func fromMilli(m int64) float64 {
	return float64(m) / 1000
}
