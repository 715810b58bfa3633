package cmd

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ruleseek/internal/rules"
)

// testEnv isolates a command run: config, data and rules live in dir.
type testEnv struct {
	dir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("RULESEEK_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("NO_COLOR", "1")
	return &testEnv{dir: dir}
}

// withDefaultRules writes the three built-in rules to rules.json.
func (e *testEnv) withDefaultRules(t *testing.T) *testEnv {
	t.Helper()
	require.NoError(t, rules.Save(filepath.Join(e.dir, "rules.json"), rules.DefaultRules(time.Now())))
	return e
}

// run executes the root command with args and returns stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append([]string{"--dir", e.dir}, args...))
	err := cmd.Execute()
	return out.String(), err
}
