package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the user config at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	return xdg
}

func writeYAML(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, "rules.json", cfg.Rules.Path)
	assert.Equal(t, "demo_rules.txt", cfg.Rules.DemoPath)
	assert.Equal(t, "Общие правила", cfg.Rules.DefaultCategory)
	assert.Equal(t, 500, cfg.Search.MaxQueryLength)
	assert.Equal(t, "5m", cfg.Sessions.ActiveWindow)
	assert.Equal(t, 10000, cfg.Sessions.MaxUsers)
	assert.False(t, cfg.NotifyEnabled())
	assert.Equal(t, filepath.Join(cfg.DataDir, "users.json"), cfg.SessionsPath())
	assert.Equal(t, filepath.Join(cfg.DataDir, "history.db"), cfg.HistoryPath())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Precedence(t *testing.T) {
	// Given: a user config, a project config and an env var
	xdg := isolate(t)
	project := t.TempDir()
	writeYAML(t, filepath.Join(xdg, "ruleseek", "config.yaml"), `
server:
  addr: ":7000"
  log_level: debug
rules:
  watch: false
`)
	writeYAML(t, filepath.Join(project, ".ruleseek.yaml"), `
server:
  addr: ":8000"
search:
  cache_size: 0
`)
	t.Setenv("RULESEEK_LOG_LEVEL", "warn")

	// When: loading
	cfg, err := Load(project)
	require.NoError(t, err)

	// Then: later layers win, untouched keys keep earlier values
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.Server.LogLevel)
	assert.False(t, cfg.Rules.Watch, "explicit false from user config applies")
	assert.Equal(t, 0, cfg.Search.CacheSize, "explicit zero from project config applies")
	assert.Equal(t, 500, cfg.Search.MaxQueryLength)
}

func TestLoad_YmlFallback(t *testing.T) {
	isolate(t)
	project := t.TempDir()
	writeYAML(t, filepath.Join(project, ".ruleseek.yml"), "rules:\n  path: custom.json\n")

	cfg, err := Load(project)
	require.NoError(t, err)
	assert.Equal(t, "custom.json", cfg.Rules.Path)
}

func TestLoad_InvalidYAML(t *testing.T) {
	isolate(t)
	project := t.TempDir()
	writeYAML(t, filepath.Join(project, ".ruleseek.yaml"), "server: [")

	_, err := Load(project)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("RULESEEK_PORT", "8080")
	t.Setenv("RULESEEK_DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/abc")
	t.Setenv("RULESEEK_MCP_ENABLED", "false")
	t.Setenv("RULESEEK_HISTORY_ENABLED", "0")
	t.Setenv("RULESEEK_MAX_QUERY_LENGTH", "100")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.True(t, cfg.NotifyEnabled(), "webhook URL from env enables delivery")
	assert.False(t, cfg.MCP.Enabled)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, 100, cfg.Search.MaxQueryLength)
}

func TestLoad_EnvCanDisableNotify(t *testing.T) {
	isolate(t)
	t.Setenv("RULESEEK_DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/abc")
	t.Setenv("RULESEEK_NOTIFY_ENABLED", "false")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.False(t, cfg.NotifyEnabled())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"bad log level", func(c *Config) { c.Server.LogLevel = "loud" }},
		{"bad duration", func(c *Config) { c.Sessions.ActiveWindow = "five minutes" }},
		{"zero active window", func(c *Config) { c.Sessions.ActiveWindow = "0s" }},
		{"bad cron spec", func(c *Config) { c.Sessions.PruneSchedule = "every day" }},
		{"no rule sources", func(c *Config) { c.Rules.Path = ""; c.Rules.DemoPath = "" }},
		{"negative cache", func(c *Config) { c.Search.CacheSize = -1 }},
		{"negative user cap", func(c *Config) { c.Sessions.MaxUsers = -1 }},
		{"webhook not a URL", func(c *Config) {
			c.Notify.Enabled = true
			c.Notify.DiscordWebhookURL = "discord"
		}},
		{"mcp path relative", func(c *Config) { c.MCP.Path = "mcp" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 5*time.Minute, Duration("5m", time.Second))
	assert.Equal(t, time.Second, Duration("", time.Second))
	assert.Equal(t, time.Second, Duration("junk", time.Second))
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	isolate(t)
	project := t.TempDir()

	// Given: a customised config written as the project file
	cfg := NewConfig()
	cfg.Server.Addr = ":9999"
	cfg.Rules.Watch = false
	require.NoError(t, cfg.WriteYAML(filepath.Join(project, ".ruleseek.yaml")))

	// When: loading it back
	loaded, err := Load(project)
	require.NoError(t, err)

	// Then: values survive
	assert.Equal(t, ":9999", loaded.Server.Addr)
	assert.False(t, loaded.Rules.Watch)
}
