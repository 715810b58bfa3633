package ui

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ruleseek/internal/store"
	"github.com/Aman-CERP/ruleseek/internal/telemetry"
)

func sampleStats(now time.Time) StatsInfo {
	return StatsInfo{
		RulesCount:    3,
		RulesSource:   "json",
		Categories:    2,
		HistoryPath:   "/tmp/history.db",
		HistoryCount:  4,
		SchemaVersion: 2,
		ModeCounts: map[telemetry.QueryMode]int64{
			telemetry.ModeRanked: 3,
			telemetry.ModeBrowse: 1,
		},
		LatencyCounts: map[telemetry.LatencyBucket]int64{telemetry.BucketSub1ms: 4},
		TopTerms:      []telemetry.TermCount{{Term: "форма", Count: 2}},
		ZeroResults:   []string{"абракадабра"},
		Recent: []store.Entry{
			{Question: "форма одежды", ResultCount: 1, TopPoints: []string{"2"}, AskedAt: now.Add(-2 * time.Hour)},
			{Question: "абракадабра", AskedAt: now},
		},
	}
}

func TestStatsRenderer_Render(t *testing.T) {
	// Given: a plain renderer with a fixed clock
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	r := NewStatsRenderer(&buf, true)
	r.now = func() time.Time { return now }

	// When: rendering stats
	require.NoError(t, r.Render(sampleStats(now)))

	// Then: every section is present
	out := buf.String()
	assert.Contains(t, out, "Rules:      3 (json, 2 categories)")
	assert.Contains(t, out, "Questions:  4")
	assert.Contains(t, out, "schema v2")
	assert.Contains(t, out, "ranked")
	assert.Contains(t, out, "lt1ms=4")
	assert.Contains(t, out, "форма")
	assert.Contains(t, out, "Unanswered:")
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "just now")
}

func TestStatsRenderer_RenderEmpty(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewStatsRenderer(&buf, true).Render(StatsInfo{RulesSource: "defaults"}))

	out := buf.String()
	assert.Contains(t, out, "Questions:  0")
	assert.NotContains(t, out, "Modes:")
	assert.NotContains(t, out, "Recent:")
}

func TestStatsRenderer_RenderJSON(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewStatsRenderer(&buf, true).RenderJSON(sampleStats(time.Now())))

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.EqualValues(t, 3, m["rules_count"])
	assert.Contains(t, m, "mode_counts")
}

func TestFormatTime(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{time.Hour, "1 hour ago"},
		{3 * time.Hour, "3 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{3 * 24 * time.Hour, "3 days ago"},
		{8 * 24 * time.Hour, "2024-05-02 12:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatTime(now.Add(-tt.ago), now))
	}
}
