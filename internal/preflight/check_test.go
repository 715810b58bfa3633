package preflight

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ruleseek/internal/rules"
	"github.com/Aman-CERP/ruleseek/internal/store"
)

func TestCheckStatus_String(t *testing.T) {
	tests := []struct {
		status CheckStatus
		want   string
	}{
		{StatusPass, "PASS"},
		{StatusWarn, "WARN"},
		{StatusFail, "FAIL"},
		{CheckStatus(9), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestCheckResult_IsCritical(t *testing.T) {
	tests := []struct {
		name     string
		result   CheckResult
		expected bool
	}{
		{"required pass is not critical", CheckResult{Status: StatusPass, Required: true}, false},
		{"required fail is critical", CheckResult{Status: StatusFail, Required: true}, true},
		{"optional fail is not critical", CheckResult{Status: StatusFail, Required: false}, false},
		{"required warn is not critical", CheckResult{Status: StatusWarn, Required: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.IsCritical())
		})
	}
}

func TestChecker_SummaryStatus(t *testing.T) {
	checker := New()

	tests := []struct {
		name     string
		results  []CheckResult
		expected string
	}{
		{"all pass", []CheckResult{{Status: StatusPass}, {Status: StatusPass}}, "ready"},
		{"with warnings", []CheckResult{{Status: StatusPass}, {Status: StatusWarn}}, "ready_with_warnings"},
		{"with critical failure", []CheckResult{{Status: StatusPass}, {Status: StatusFail, Required: true}}, "failed"},
		{"with optional failure", []CheckResult{{Status: StatusPass}, {Status: StatusFail}}, "ready_with_warnings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, checker.SummaryStatus(tt.results))
			assert.Equal(t, tt.expected == "failed", checker.HasCriticalFailures(tt.results))
		})
	}
}

func TestChecker_CheckRules(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "rules.json")
	demoPath := filepath.Join(dir, "demo_rules.txt")
	checker := New()

	// Given: nothing on disk
	// Then: the built-in rules are reported
	r := checker.CheckRules(jsonPath, demoPath, rules.DefaultCategory)
	assert.Equal(t, StatusWarn, r.Status)
	assert.Contains(t, r.Message, "built-in")

	// Given: a demo file
	require.NoError(t, os.WriteFile(demoPath, []byte("1. Первое правило | WARN\nмусор\n2. Второе правило | Mute\n"), 0o644))
	r = checker.CheckRules(jsonPath, demoPath, rules.DefaultCategory)
	assert.Equal(t, StatusWarn, r.Status)
	assert.Contains(t, r.Message, "2 demo rules")
	assert.Contains(t, r.Details, "1 demo lines skipped")

	// Given: a rules file
	require.NoError(t, rules.Save(jsonPath, rules.DefaultRules(time.Now())))
	r = checker.CheckRules(jsonPath, demoPath, rules.DefaultCategory)
	assert.Equal(t, StatusPass, r.Status)
	assert.Equal(t, "3 rules in "+jsonPath, r.Message)
	assert.Equal(t, "3 categories", r.Details)

	// Given: a broken rules file
	require.NoError(t, os.WriteFile(jsonPath, []byte("{not json"), 0o644))
	r = checker.CheckRules(jsonPath, demoPath, rules.DefaultCategory)
	assert.Equal(t, StatusFail, r.Status)
	assert.False(t, r.IsCritical())
}

func TestChecker_CheckWritePermissions(t *testing.T) {
	// Given: a data directory that does not exist yet
	dir := filepath.Join(t.TempDir(), "data")

	// When: checking write permissions
	result := New().CheckWritePermissions(dir)

	// Then: it is created and passes
	assert.Equal(t, StatusPass, result.Status)
	assert.True(t, result.Required)
	assert.DirExists(t, dir)
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "probe file must be removed")
}

func TestChecker_CheckWritePermissions_ReadOnly(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("Skipping read-only test when running as root")
	}

	readOnlyDir := filepath.Join(t.TempDir(), "readonly")
	require.NoError(t, os.Mkdir(readOnlyDir, 0o555))
	defer func() { _ = os.Chmod(readOnlyDir, 0o755) }()

	result := New().CheckWritePermissions(readOnlyDir)

	assert.Equal(t, StatusFail, result.Status)
	assert.Contains(t, result.Message, "permission denied")
}

func TestChecker_CheckDiskSpace_MissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "not", "yet")

	result := New().CheckDiskSpace(dir)

	assert.NotEqual(t, StatusFail, result.Status)
	assert.Contains(t, result.Message, "free")
}

func TestChecker_CheckListenAddr(t *testing.T) {
	// Given: a port in use
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()
	checker := New()

	// Then: binding it fails critically
	r := checker.CheckListenAddr(ln.Addr().String())
	assert.True(t, r.IsCritical())

	// And: a free port passes
	r = checker.CheckListenAddr("127.0.0.1:0")
	assert.Equal(t, StatusPass, r.Status)
}

func TestChecker_CheckWebhook(t *testing.T) {
	tests := []struct {
		url  string
		want CheckStatus
	}{
		{"https://discord.com/api/webhooks/1/abc", StatusPass},
		{"https://example.com/hook", StatusWarn},
		{"ftp://discord.com/api/webhooks/1/abc", StatusFail},
		{"https:///api/webhooks/1", StatusFail},
		{"://bad", StatusFail},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, New().CheckWebhook(tt.url).Status)
		})
	}
}

func TestChecker_CheckHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	checker := New()

	// Given: no database yet
	r := checker.CheckHistory(path)
	assert.Equal(t, StatusPass, r.Status)
	assert.Equal(t, "not created yet", r.Message)

	// Given: a healthy database
	db, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	r = checker.CheckHistory(path)
	assert.Equal(t, StatusPass, r.Status)
	assert.Contains(t, r.Message, "OK")

	// Given: garbage in place of the database
	require.NoError(t, os.WriteFile(path, []byte("definitely not sqlite, just some bytes padded out"), 0o644))
	r = checker.CheckHistory(path)
	assert.Equal(t, StatusWarn, r.Status)
	assert.Contains(t, r.Message, "recreated")
}

func TestChecker_RunAll(t *testing.T) {
	// Given: a fresh installation
	dir := t.TempDir()
	target := Target{
		DataDir:     filepath.Join(dir, "data"),
		RulesPath:   filepath.Join(dir, "rules.json"),
		DemoPath:    filepath.Join(dir, "demo_rules.txt"),
		Category:    rules.DefaultCategory,
		Addr:        "127.0.0.1:0",
		HistoryPath: filepath.Join(dir, "data", "history.db"),
		WebhookURL:  "https://discord.com/api/webhooks/1/abc",
	}

	// When: running all checks
	results := New().RunAll(context.Background(), target)

	// Then: every check ran and none is critical
	names := make(map[string]bool)
	for _, r := range results {
		names[r.Name] = true
	}
	for _, n := range []string{"rules", "write_permissions", "disk_space", "file_descriptors", "listen_addr", "history_db", "discord_webhook"} {
		assert.True(t, names[n], "%s check missing", n)
	}
	assert.False(t, New().HasCriticalFailures(results))

	// And: the listen check can be skipped
	skipped := New(WithSkipListen(true)).RunAll(context.Background(), Target{DataDir: target.DataDir, RulesPath: target.RulesPath})
	for _, r := range skipped {
		assert.NotEqual(t, "listen_addr", r.Name)
	}
}

func TestChecker_PrintResults(t *testing.T) {
	results := []CheckResult{
		{Name: "disk_space", Status: StatusPass, Message: "50 GB free"},
		{Name: "rules", Status: StatusWarn, Message: "using the built-in demo rules", Details: "rules.json not found"},
		{Name: "listen_addr", Status: StatusFail, Message: ":5000 unavailable", Required: true},
	}

	buf := &bytes.Buffer{}
	New(WithOutput(buf), WithVerbose(true)).PrintResults(results)

	output := buf.String()
	assert.Contains(t, output, "[PASS] disk_space")
	assert.Contains(t, output, "[WARN] rules")
	assert.Contains(t, output, "      rules.json not found")
	assert.Contains(t, output, "[FAIL] listen_addr")
	assert.Contains(t, output, "Status: FAILED")
	assert.Contains(t, output, "1 error(s)")
	assert.Contains(t, output, "1 warning(s)")
}
