package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ruleseek/pkg/version"
)

func TestRootCmd_Subcommands(t *testing.T) {
	// Given: the root command
	root := NewRootCmd()

	// Then: every subcommand is registered
	for _, name := range []string{"serve", "search", "rules", "categories", "browse", "stats", "doctor", "config", "mcp", "logs", "version"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := root.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestRootCmd_VersionFlag(t *testing.T) {
	// Given: the root command with --version
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	// When: executing
	require.NoError(t, cmd.Execute())

	// Then: the version template is used
	assert.Equal(t, "ruleseek version "+version.Version+"\n", buf.String())
}

func TestRootCmd_GlobalFlags(t *testing.T) {
	root := NewRootCmd()
	assert.NotNil(t, root.PersistentFlags().Lookup("debug"))
	assert.NotNil(t, root.PersistentFlags().Lookup("dir"))
	assert.NotNil(t, root.PersistentFlags().ShorthandLookup("C"))
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	// Given: an isolated environment
	env := newTestEnv(t)

	// When: running an unknown subcommand
	_, err := env.run(t, "frobnicate")

	// Then: cobra rejects it
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}
