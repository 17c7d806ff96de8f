package utils

// FiftyTwoWeekPosition returns where price sits between the 52-week low and
// high as a percentage in [0, 100]. ok is false when the range is empty.
func FiftyTwoWeekPosition(price, low, high float64) (position float64, ok bool) {
	if high <= low || low <= 0 {
		return 0, false
	}

	position = (price - low) / (high - low) * 100
	if position < 0 {
		position = 0
	}
	if position > 100 {
		position = 100
	}
	return position, true
}

// PercentChange returns the change from prev to cur in percent, or 0 when prev is not positive.
func PercentChange(prev, cur float64) float64 {
	if prev <= 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}
