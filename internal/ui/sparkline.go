package ui

import "strings"

// SparklineChars are the eight block heights used by Sparkline.
var SparklineChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders values as one block character each, scaled to the
// largest value. A zero value renders as the lowest block.
func Sparkline(values []int64) string {
	if len(values) == 0 {
		return ""
	}
	var maxV int64
	for _, v := range values {
		maxV = max(maxV, v)
	}

	var sb strings.Builder
	sb.Grow(len(values) * 3)
	for _, v := range values {
		idx := 0
		if maxV > 0 && v > 0 {
			idx = int(float64(v) / float64(maxV) * float64(len(SparklineChars)-1))
			idx = min(max(idx, 0), len(SparklineChars)-1)
		}
		sb.WriteRune(SparklineChars[idx])
	}
	return sb.String()
}

// Bar renders a horizontal bar of width cells filled in proportion to
// value/total.
func Bar(value, total int64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if total > 0 && value > 0 {
		filled = int(float64(value) / float64(total) * float64(width))
		if filled == 0 {
			filled = 1
		}
		filled = min(filled, width)
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
