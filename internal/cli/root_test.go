package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coredatabase "github.com/m3rciful/shopbot/core/database"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "shopbot", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{{"run"}, {"migrate"}, {"migrate", "up"}, {"migrate", "down"}, {"version"}} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "command %v should exist", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
	assert.Equal(t, "config.yaml", configFlag.DefValue)

	envFlag := cmd.PersistentFlags().Lookup("env-file")
	require.NotNil(t, envFlag)
	assert.Equal(t, ".env", envFlag.DefValue)
}

func TestVersionOutput(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version", "--env-file", t.TempDir() + "/absent.env"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "shopbot dev")
}

func TestParseSteps(t *testing.T) {
	steps, err := parseSteps(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, steps)

	steps, err = parseSteps([]string{"3"})
	require.NoError(t, err)
	assert.Equal(t, 3, steps)

	for _, bad := range []string{"0", "-1", "many"} {
		_, err := parseSteps([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestMigrateNeedsDatabase(t *testing.T) {
	t.Setenv("DB_USER", "")
	t.Setenv("DB_NAME", "")
	err := withDatabase(t.TempDir()+"/absent.yaml", func(_ coredatabase.Config) error {
		t.Fatal("migration must not run without database settings")
		return nil
	})
	assert.Error(t, err)
}
