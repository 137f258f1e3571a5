package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/presale/internal/manifest"
)

func TestStateCommand(t *testing.T) {
	opts := newTestOptions(t, "text")
	initDB(t, opts)
	_, err := execute(t, NewInvokeCommand(opts), supplyArgs...)
	require.NoError(t, err)

	out, err := execute(t, NewStateCommand(opts))
	require.NoError(t, err)
	assert.Contains(t, out, "Program:     "+testProgram)
	assert.Contains(t, out, "Slots:       6")
	assert.Contains(t, out, "value:    5,000,000,000")
	assert.Contains(t, out, "lamports: 5,000")
}

func TestStateCommandSingleSlotJSON(t *testing.T) {
	opts := newTestOptions(t, "text")
	initDB(t, opts)
	_, err := execute(t, NewInvokeCommand(opts), supplyArgs...)
	require.NoError(t, err)

	opts.Format = "json"
	out, err := execute(t, NewStateCommand(opts), "--key", "pool")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   StateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Slots, 1)

	slot := resp.Data.Slots[0]
	assert.Equal(t, manifest.DeriveKey("pool").String(), slot.Key)
	assert.Equal(t, "program", slot.Owner)
	assert.Equal(t, int64(1), slot.Seq)
	require.NotNil(t, slot.Value)
	assert.Equal(t, uint64(5_000_000_000), *slot.Value)
	assert.Nil(t, slot.Amount)
}

func TestStateCommandUnknownSlot(t *testing.T) {
	opts := newTestOptions(t, "text")
	initDB(t, opts)

	out, err := execute(t, NewStateCommand(opts), "--key", "nobody")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E_NOT_FOUND]")
}

func TestStateCommandUninitialized(t *testing.T) {
	opts := newTestOptions(t, "text")

	_, err := execute(t, NewStateCommand(opts))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
