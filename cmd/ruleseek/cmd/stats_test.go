package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ruleseek/internal/ui"
)

func TestStatsCmd_WithoutHistory(t *testing.T) {
	// Given: rules but no history database
	env := newTestEnv(t).withDefaultRules(t)

	// When: showing stats
	out, err := env.run(t, "stats", "--json")

	// Then: only the corpus is reported
	require.NoError(t, err)
	var info ui.StatsInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, 3, info.RulesCount)
	assert.Equal(t, "json", info.RulesSource)
	assert.Equal(t, 3, info.Categories)
	assert.Zero(t, info.HistoryCount)
	assert.Empty(t, info.HistoryPath)
}

func TestStatsCmd_Text(t *testing.T) {
	env := newTestEnv(t).withDefaultRules(t)

	out, err := env.run(t, "stats")

	require.NoError(t, err)
	assert.Contains(t, out, "ruleseek stats")
	assert.Contains(t, out, "3 (json, 3 categories)")
}
