package configs

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/ruleseek/internal/config"
	"github.com/Aman-CERP/ruleseek/internal/rules"
)

func TestConfigTemplate_MatchesDefaults(t *testing.T) {
	// Given: the embedded template
	require.NotEmpty(t, ConfigTemplate)

	// When: decoding it over the defaults
	cfg := config.NewConfig()
	require.NoError(t, yaml.Unmarshal([]byte(ConfigTemplate), cfg))

	// Then: it is valid and agrees with the built-in defaults
	require.NoError(t, cfg.Validate())
	def := config.NewConfig()
	assert.Equal(t, def.Server, cfg.Server)
	assert.Equal(t, def.Rules, cfg.Rules)
	assert.Equal(t, def.Search, cfg.Search)
	assert.Equal(t, def.MCP, cfg.MCP)
}

func TestDemoRules_Parse(t *testing.T) {
	// When: parsing the embedded demo text
	res := rules.ParseDemo(DemoRules, "Общие правила", time.Now())

	// Then: every line becomes a rule
	lines := strings.Count(strings.TrimSpace(DemoRules), "\n") + 1
	require.Len(t, res.Rules, lines)
	assert.Equal(t, "1", res.Rules[0].Point)
	assert.Equal(t, "WARN", res.Rules[0].Punishment)
	assert.Equal(t, "15", res.Rules[len(res.Rules)-1].Point)
}
