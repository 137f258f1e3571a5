package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "presale", cmd.Use)
	assert.Contains(t, cmd.Long, "presale ledger")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"init", "invoke", "decode", "state", "journal", "replay", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("db"))
}

func TestInvokeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	invokeCmd, _, err := cmd.Find([]string{"invoke"})
	require.NoError(t, err)

	for _, name := range []string{"amount", "lamports", "role", "signer", "now", "data"} {
		assert.NotNil(t, invokeCmd.Flags().Lookup(name), "flag %s", name)
	}
}

func TestRootInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	_, err := execute(t, cmd, "--format", "xml", "decode", "00")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootInvalidConfig(t *testing.T) {
	t.Setenv("PRESALE_LOG_FORMAT", "yaml")

	_, err := execute(t, NewRootCommand(), "decode", "00")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "PRESALE_LOG_FORMAT")
}

func TestRootDatabaseFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PRESALE_DB_PATH", dir+"/env.db")
	manifestPath := writeFile(t, dir, "genesis.yaml", testManifest)

	out, err := execute(t, NewRootCommand(), "init", manifestPath)
	require.NoError(t, err)
	assert.Contains(t, out, dir+"/env.db")
}

func TestRootDatabaseFlagOverridesEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PRESALE_DB_PATH", dir+"/env.db")
	manifestPath := writeFile(t, dir, "genesis.yaml", testManifest)

	out, err := execute(t, NewRootCommand(), "--db", dir+"/flag.db", "init", manifestPath)
	require.NoError(t, err)
	assert.Contains(t, out, dir+"/flag.db")
	assert.NoFileExists(t, dir+"/env.db")
}
