package ui

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSparkline(t *testing.T) {
	tests := []struct {
		name   string
		values []int64
		want   string
	}{
		{"empty", nil, ""},
		{"all zero", []int64{0, 0, 0}, "▁▁▁"},
		{"scaled", []int64{0, 7, 14}, "▁▄█"},
		{"single", []int64{5}, "█"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sparkline(tt.values))
		})
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		name         string
		value, total int64
		width        int
		wantFilled   int
	}{
		{"zero width", 1, 1, 0, 0},
		{"empty total", 1, 0, 10, 0},
		{"half", 5, 10, 10, 5},
		{"full", 10, 10, 10, 10},
		{"tiny rounds up", 1, 1000, 10, 1},
		{"over", 20, 10, 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := Bar(tt.value, tt.total, tt.width)

			assert.Equal(t, tt.width, utf8.RuneCountInString(bar))
			filled := 0
			for _, r := range bar {
				if r == '█' {
					filled++
				}
			}
			assert.Equal(t, tt.wantFilled, filled)
		})
	}
}
