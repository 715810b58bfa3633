// Package config loads ruleseek configuration.
//
// Values are applied in order of increasing precedence:
//  1. Hardcoded defaults (NewConfig)
//  2. User config ($XDG_CONFIG_HOME/ruleseek/config.yaml or ~/.config/ruleseek/config.yaml)
//  3. Project config (.ruleseek.yaml or .ruleseek.yml in the working directory)
//  4. Environment variables (RULESEEK_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// CurrentVersion is the config schema version written by `config init`.
const CurrentVersion = 1

// Config is the complete ruleseek configuration.
type Config struct {
	Version int `yaml:"version" json:"version"`

	// DataDir holds logs, the visitor registry and the history database
	// unless their paths are set explicitly. Defaults to ~/.ruleseek.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	Server   ServerConfig   `yaml:"server" json:"server"`
	Rules    RulesConfig    `yaml:"rules" json:"rules"`
	Search   SearchConfig   `yaml:"search" json:"search"`
	Sessions SessionsConfig `yaml:"sessions" json:"sessions"`
	History  HistoryConfig  `yaml:"history" json:"history"`
	Notify   NotifyConfig   `yaml:"notify" json:"notify"`
	MCP      MCPConfig      `yaml:"mcp" json:"mcp"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string `yaml:"addr" json:"addr"`
	StaticDir    string `yaml:"static_dir" json:"static_dir"`
	LogLevel     string `yaml:"log_level" json:"log_level"`
	ReadTimeout  string `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout" json:"write_timeout"`
	// CORSOrigin is sent as Access-Control-Allow-Origin. Empty disables CORS.
	CORSOrigin string `yaml:"cors_origin" json:"cors_origin"`
}

// RulesConfig configures where the corpus comes from.
type RulesConfig struct {
	Path            string `yaml:"path" json:"path"`
	DemoPath        string `yaml:"demo_path" json:"demo_path"`
	DefaultCategory string `yaml:"default_category" json:"default_category"`
	// Persist writes rules from a fallback source back to Path.
	Persist       bool   `yaml:"persist" json:"persist"`
	Watch         bool   `yaml:"watch" json:"watch"`
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`
}

// SearchConfig bounds question handling.
type SearchConfig struct {
	MaxQueryLength int `yaml:"max_query_length" json:"max_query_length"`
	// CacheSize is the number of cached answers; 0 disables the cache.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// SessionsConfig configures visitor tracking.
type SessionsConfig struct {
	StoragePath   string `yaml:"storage_path" json:"storage_path"`
	ActiveWindow  string `yaml:"active_window" json:"active_window"`
	MaxIdle       string `yaml:"max_idle" json:"max_idle"`
	PruneSchedule string `yaml:"prune_schedule" json:"prune_schedule"`

	// MaxUsers caps the registry; 0 keeps every user.
	MaxUsers int `yaml:"max_users" json:"max_users"`
}

// HistoryConfig configures the question history database.
type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled"`
	DBPath        string `yaml:"db_path" json:"db_path"`
	FlushSchedule string `yaml:"flush_schedule" json:"flush_schedule"`
	// Retention is the number of history rows kept.
	Retention int `yaml:"retention" json:"retention"`
}

// NotifyConfig configures the Discord webhook.
type NotifyConfig struct {
	Enabled           bool   `yaml:"enabled" json:"enabled"`
	DiscordWebhookURL string `yaml:"discord_webhook_url" json:"discord_webhook_url"`
	Timeout           string `yaml:"timeout" json:"timeout"`
	MaxRetries        int    `yaml:"max_retries" json:"max_retries"`
	QueueSize         int    `yaml:"queue_size" json:"queue_size"`
}

// MCPConfig configures the Model Context Protocol endpoint.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// NewConfig returns a Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		DataDir: defaultDataDir(),
		Server: ServerConfig{
			Addr:         ":5000",
			StaticDir:    "public",
			LogLevel:     "info",
			ReadTimeout:  "15s",
			WriteTimeout: "30s",
			CORSOrigin:   "*",
		},
		Rules: RulesConfig{
			Path:            "rules.json",
			DemoPath:        "demo_rules.txt",
			DefaultCategory: "Общие правила",
			Watch:           true,
			WatchDebounce:   "500ms",
		},
		Search: SearchConfig{
			MaxQueryLength: 500,
			CacheSize:      256,
		},
		Sessions: SessionsConfig{
			ActiveWindow:  "5m",
			MaxIdle:       "24h",
			PruneSchedule: "@every 10m",
			MaxUsers:      10000,
		},
		History: HistoryConfig{
			Enabled:       true,
			FlushSchedule: "@every 1m",
			Retention:     1000,
		},
		Notify: NotifyConfig{
			Timeout:    "5s",
			MaxRetries: 3,
			QueueSize:  64,
		},
		MCP: MCPConfig{
			Enabled: true,
			Path:    "/mcp",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".ruleseek")
	}
	return filepath.Join(home, ".ruleseek")
}

// SessionsPath is the visitor registry file.
func (c *Config) SessionsPath() string {
	if c.Sessions.StoragePath != "" {
		return c.Sessions.StoragePath
	}
	return filepath.Join(c.DataDir, "users.json")
}

// HistoryPath is the history database file.
func (c *Config) HistoryPath() string {
	if c.History.DBPath != "" {
		return c.History.DBPath
	}
	return filepath.Join(c.DataDir, "history.db")
}

// LogDir is where rotating log files are written.
func (c *Config) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// NotifyEnabled reports whether webhook delivery should run.
func (c *Config) NotifyEnabled() bool {
	return c.Notify.Enabled && c.Notify.DiscordWebhookURL != ""
}

// GetUserConfigPath follows the XDG base directory convention.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ruleseek", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "ruleseek", "config.yaml")
	}
	return filepath.Join(home, ".config", "ruleseek", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user config.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether the user config file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// ProjectConfigPath returns the project config in dir, preferring .yaml
// over .yml, or "" when neither exists.
func ProjectConfigPath(dir string) string {
	for _, name := range []string{".ruleseek.yaml", ".ruleseek.yml"} {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

// Load builds the configuration for a process started in dir.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if p := GetUserConfigPath(); fileExists(p) {
		if err := cfg.loadYAML(p); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if p := ProjectConfigPath(dir); p != "" {
		if err := cfg.loadYAML(p); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML decodes path over the current values, so keys absent from the
// file keep their earlier value and explicit false or zero values apply.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies RULESEEK_* environment variables.
func (c *Config) applyEnvOverrides() {
	str := map[string]*string{
		"RULESEEK_DATA_DIR":            &c.DataDir,
		"RULESEEK_ADDR":                &c.Server.Addr,
		"RULESEEK_STATIC_DIR":          &c.Server.StaticDir,
		"RULESEEK_LOG_LEVEL":           &c.Server.LogLevel,
		"RULESEEK_CORS_ORIGIN":         &c.Server.CORSOrigin,
		"RULESEEK_RULES_PATH":          &c.Rules.Path,
		"RULESEEK_DEMO_PATH":           &c.Rules.DemoPath,
		"RULESEEK_SESSIONS_PATH":       &c.Sessions.StoragePath,
		"RULESEEK_HISTORY_DB":          &c.History.DBPath,
		"RULESEEK_DISCORD_WEBHOOK_URL": &c.Notify.DiscordWebhookURL,
		"RULESEEK_MCP_PATH":            &c.MCP.Path,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("RULESEEK_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p < 65536 {
			c.Server.Addr = ":" + v
		}
	}

	flags := map[string]*bool{
		"RULESEEK_WATCH":           &c.Rules.Watch,
		"RULESEEK_PERSIST_RULES":   &c.Rules.Persist,
		"RULESEEK_HISTORY_ENABLED": &c.History.Enabled,
		"RULESEEK_NOTIFY_ENABLED":  &c.Notify.Enabled,
		"RULESEEK_MCP_ENABLED":     &c.MCP.Enabled,
	}
	for key, dst := range flags {
		if v := os.Getenv(key); v != "" {
			*dst = parseBool(v)
		}
	}

	// A webhook URL given only through the environment turns delivery on
	// unless RULESEEK_NOTIFY_ENABLED says otherwise.
	if os.Getenv("RULESEEK_DISCORD_WEBHOOK_URL") != "" && os.Getenv("RULESEEK_NOTIFY_ENABLED") == "" {
		c.Notify.Enabled = true
	}

	if v := os.Getenv("RULESEEK_MAX_QUERY_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Search.MaxQueryLength = n
		}
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	durations := []struct {
		name, value string
		allowZero   bool
	}{
		{"server.read_timeout", c.Server.ReadTimeout, true},
		{"server.write_timeout", c.Server.WriteTimeout, true},
		{"rules.watch_debounce", c.Rules.WatchDebounce, true},
		{"sessions.active_window", c.Sessions.ActiveWindow, false},
		{"sessions.max_idle", c.Sessions.MaxIdle, false},
		{"notify.timeout", c.Notify.Timeout, false},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("%s must be a duration like 30s, got %q", d.name, d.value)
		}
		if v < 0 || (v == 0 && !d.allowZero) {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}

	schedules := map[string]string{
		"sessions.prune_schedule": c.Sessions.PruneSchedule,
		"history.flush_schedule":  c.History.FlushSchedule,
	}
	for name, spec := range schedules {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("%s must be a cron spec such as \"@every 10m\": %w", name, err)
		}
	}

	if c.Rules.Path == "" && c.Rules.DemoPath == "" {
		return fmt.Errorf("at least one of rules.path and rules.demo_path must be set")
	}
	if c.Search.MaxQueryLength < 0 {
		return fmt.Errorf("search.max_query_length must be non-negative, got %d", c.Search.MaxQueryLength)
	}
	if c.Search.CacheSize < 0 {
		return fmt.Errorf("search.cache_size must be non-negative, got %d", c.Search.CacheSize)
	}
	if c.Sessions.MaxUsers < 0 {
		return fmt.Errorf("sessions.max_users must be non-negative, got %d", c.Sessions.MaxUsers)
	}
	if c.History.Retention < 0 {
		return fmt.Errorf("history.retention must be non-negative, got %d", c.History.Retention)
	}
	if c.Notify.MaxRetries < 0 {
		return fmt.Errorf("notify.max_retries must be non-negative, got %d", c.Notify.MaxRetries)
	}
	if c.NotifyEnabled() && !strings.HasPrefix(c.Notify.DiscordWebhookURL, "https://") &&
		!strings.HasPrefix(c.Notify.DiscordWebhookURL, "http://") {
		return fmt.Errorf("notify.discord_webhook_url must be an http(s) URL")
	}
	if c.MCP.Enabled && !strings.HasPrefix(c.MCP.Path, "/") {
		return fmt.Errorf("mcp.path must start with '/', got %q", c.MCP.Path)
	}
	return nil
}

// Duration parses a duration setting already checked by Validate,
// returning fallback when it is empty or invalid.
func Duration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// WriteYAML writes the configuration to path, creating its directory.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
