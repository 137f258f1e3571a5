package store

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/presale/internal/testutil"
)

func TestReadMeta_NotInitialized(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadMeta(t.Context())
	assert.True(t, errors.Is(err, ErrNotInitialized))
}

func TestReadSlot_Missing(t *testing.T) {
	s := createTestStore(t)

	slot, ok, err := s.ReadSlot(t.Context(), testutil.Key("nobody"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Slot{}, slot)
}

func TestListSlots_Empty(t *testing.T) {
	s := createTestStore(t)

	slots, err := s.ListSlots(t.Context())
	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
}

func TestListSlots_OrderedByKey(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	names := []string{"c", "a", "b", "d"}
	var slots []Slot
	for _, n := range names {
		slots = append(slots, Slot{Key: testutil.Key(n), Owner: testutil.Key("program"), Data: []byte(n)})
	}
	require.NoError(t, s.Commit(ctx, createTestEntry("entry-1", 1), slots))

	got, err := s.ListSlots(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(names))
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].Key.String(), got[i].Key.String())
	}
}

func TestReadJournal_Empty(t *testing.T) {
	s := createTestStore(t)

	journal, err := s.ReadJournal(t.Context())
	require.NoError(t, err)
	assert.NotNil(t, journal)
	assert.Empty(t, journal)
}

func TestReadJournal_DeterministicOrdering(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	// Insert out of order.
	for _, e := range []Entry{
		createTestEntry("entry-c", 3),
		createTestEntry("entry-a", 1),
		createTestEntry("entry-b", 2),
	} {
		require.NoError(t, s.Commit(ctx, e, nil))
	}

	journal, err := s.ReadJournal(ctx)
	require.NoError(t, err)
	require.Len(t, journal, 3)
	assert.Equal(t, "entry-a", journal[0].ID)
	assert.Equal(t, "entry-b", journal[1].ID)
	assert.Equal(t, "entry-c", journal[2].ID)

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), seq)
}

func TestReadJournal_LoadsEffects(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	entry := createTestEntry("entry-1", 1)
	entry.Effects = []Effect{
		{Index: 0, Kind: EffectTokenTransfer, Program: testutil.Key("token"), Source: testutil.Key("src"), Destination: testutil.Key("dst"), Amount: 5, Instruction: []byte{3}},
		{Index: 1, Kind: EffectNativeTransfer, Program: testutil.Key("system"), Source: testutil.Key("a"), Destination: testutil.Key("b"), Amount: 7, Instruction: []byte{2}},
	}
	require.NoError(t, s.Commit(ctx, entry, nil))
	require.NoError(t, s.Commit(ctx, createTestEntry("entry-2", 2), nil))

	journal, err := s.ReadJournal(ctx)
	require.NoError(t, err)
	require.Len(t, journal, 2)
	assert.Equal(t, entry.Effects, journal[0].Effects)
	assert.Empty(t, journal[1].Effects)
}

func TestReadEntry_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadEntry(t.Context(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}
