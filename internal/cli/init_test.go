package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/presale/internal/manifest"
)

func TestInitCommand(t *testing.T) {
	opts := newTestOptions(t, "text")
	path := writeFile(t, t.TempDir(), "genesis.yaml", testManifest)

	out, err := execute(t, NewInitCommand(opts), path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Initialized "+opts.Database)
	assert.Contains(t, out, testProgram)
	assert.Contains(t, out, manifest.DeriveKey("admin").String())
	assert.Contains(t, out, "Slots:       6")
}

func TestInitCommandJSON(t *testing.T) {
	opts := newTestOptions(t, "json")
	path := writeFile(t, t.TempDir(), "genesis.yaml", testManifest)

	out, err := execute(t, NewInitCommand(opts), path)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   InitResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, testProgram, resp.Data.ProgramID)
	assert.Equal(t, 6, resp.Data.Slots)
}

func TestInitCommandTwice(t *testing.T) {
	opts := newTestOptions(t, "text")
	initDB(t, opts)

	path := writeFile(t, t.TempDir(), "genesis.yaml", testManifest)
	out, err := execute(t, NewInitCommand(opts), path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E_INITIALIZED]")
}

func TestInitCommandInvalidManifest(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{"unknown kind", "program_id: " + testProgram + "\nslots:\n  - {name: x, kind: vault}\n"},
		{"unknown field", "program_id: " + testProgram + "\nslots:\n  - {name: x, kind: wallet, color: red}\n"},
		{"no program", "slots:\n  - {name: x, kind: wallet}\n"},
		{"duplicate slot", "program_id: " + testProgram + "\nslots:\n  - {name: x, kind: wallet}\n  - {name: x, kind: wallet}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := newTestOptions(t, "text")
			path := writeFile(t, t.TempDir(), "genesis.yaml", tt.manifest)

			out, err := execute(t, NewInitCommand(opts), path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error [E_MANIFEST]")
		})
	}
}

func TestInitCommandMissingFile(t *testing.T) {
	opts := newTestOptions(t, "text")
	_, err := execute(t, NewInitCommand(opts), "/nonexistent/genesis.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
