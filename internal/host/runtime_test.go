package host

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/presale/internal/instruction"
	"github.com/roach88/presale/internal/programerr"
	"github.com/roach88/presale/internal/store"
	"github.com/roach88/presale/internal/testutil"
)

func TestNewRuntime_RequiresGenesis(t *testing.T) {
	st, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	defer st.Close()

	_, err = NewRuntime(t.Context(), st)
	assert.True(t, errors.Is(err, store.ErrNotInitialized))
}

func TestInvoke_FullLifecycle(t *testing.T) {
	w := newWorld(t)

	res := w.invoke(t, instruction.InitializeSupply(5), supplyRefs())
	require.NoError(t, res.Err)
	assert.Equal(t, uint64(5_000_000_000), w.u64(t, poolKey))

	res = w.invoke(t, instruction.RecordPurchase(1_000_000_000, 250_000_000), purchaseRefs())
	require.NoError(t, res.Err)
	assert.Equal(t, uint64(4_000_000_000), w.u64(t, poolKey))
	assert.Equal(t, uint64(1_000_000_000), w.u64(t, ledgerKey))
	assert.Equal(t, uint64(9_750_000_000), w.slot(t, initializer).Lamports)
	assert.Equal(t, uint64(250_000_000), w.slot(t, recipient).Lamports)
	assert.Equal(t, solana.SystemProgramID, w.slot(t, recipient).Owner)

	require.Len(t, res.Entry.Effects, 1)
	eff := res.Entry.Effects[0]
	assert.Equal(t, store.EffectNativeTransfer, eff.Kind)
	assert.Equal(t, solana.SystemProgramID, eff.Program)
	assert.Equal(t, uint64(250_000_000), eff.Amount)

	res = w.invoke(t, instruction.ClaimTokens(0), claimRefs())
	require.NoError(t, res.Err)
	assert.Zero(t, w.u64(t, ledgerKey))
	assert.Equal(t, uint64(9_000_000_000), w.tokens(t, sourceKey))
	assert.Equal(t, uint64(1_000_000_000), w.tokens(t, destKey))

	journal, err := w.st.ReadJournal(t.Context())
	require.NoError(t, err)
	require.Len(t, journal, 3)
	for i, e := range journal {
		assert.Equal(t, int64(i+1), e.Seq)
		assert.True(t, e.Applied())
		assert.Equal(t, uint64(worldNow), e.Now)
	}
	assert.Equal(t, "claim_tokens", journal[2].Op)
}

func TestInvoke_RejectedIsJournaledWithoutStateChange(t *testing.T) {
	w := newWorld(t)
	before, err := w.st.ListSlots(t.Context())
	require.NoError(t, err)

	// Pool is empty: any purchase exceeds the remaining supply.
	res := w.invoke(t, instruction.RecordPurchase(1, 1), purchaseRefs())
	assert.True(t, errors.Is(res.Err, programerr.ErrInsufficientSupply))
	assert.Equal(t, "INSUFFICIENT_SUPPLY", res.Entry.ErrorCode)

	after, err := w.st.ListSlots(t.Context())
	require.NoError(t, err)
	assert.Equal(t, before, after)

	stored, err := w.st.ReadEntry(t.Context(), res.Entry.ID)
	require.NoError(t, err)
	assert.False(t, stored.Applied())
	assert.Empty(t, stored.Effects)
}

func TestInvoke_TransferFailureRollsBackRecords(t *testing.T) {
	w := newWorld(t)
	w.invoke(t, instruction.InitializeSupply(100), supplyRefs())

	// Payer holds 10e9 lamports.
	res := w.invoke(t, instruction.RecordPurchase(1, 20_000_000_000), purchaseRefs())
	assert.True(t, errors.Is(res.Err, programerr.ErrTransferFailed))
	assert.Equal(t, uint64(100_000_000_000), w.u64(t, poolKey))
	assert.Zero(t, w.u64(t, ledgerKey))
	assert.Equal(t, uint64(10_000_000_000), w.slot(t, initializer).Lamports)
}

func TestInvoke_UnsignedPayer(t *testing.T) {
	w := newWorld(t)
	refs := releaseRefs()
	refs[1].Signer = false

	res := w.invoke(t, instruction.SetReleaseTime(99), refs)
	assert.True(t, errors.Is(res.Err, programerr.ErrSignerRequired))
	assert.Zero(t, w.u64(t, scheduleKey))
}

func TestInvoke_UnknownKeysAreSystemOwned(t *testing.T) {
	w := newWorld(t)
	refs := releaseRefs()
	refs[0].Key = testutil.Key("never-created")

	res := w.invoke(t, instruction.SetReleaseTime(99), refs)
	assert.True(t, errors.Is(res.Err, programerr.ErrOwnershipMismatch))

	_, ok, err := w.st.ReadSlot(t.Context(), testutil.Key("never-created"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvoke_RepeatedKeysAlias(t *testing.T) {
	w := newWorld(t)
	w.invoke(t, instruction.InitializeSupply(10), supplyRefs())

	// Payer is also the recipient: lamports go out and come back.
	refs := purchaseRefs()
	refs[2] = AccountRef{Key: initializer}
	res := w.invoke(t, instruction.RecordPurchase(1_000_000_000, 1_000_000_000), refs)
	require.NoError(t, res.Err)
	assert.Equal(t, uint64(10_000_000_000), w.slot(t, initializer).Lamports)
}

func TestInvoke_MalformedData(t *testing.T) {
	w := newWorld(t)

	res, err := w.rt.Invoke(t.Context(), Call{Accounts: supplyRefs(), Data: nil})
	require.NoError(t, err)
	assert.True(t, errors.Is(res.Err, programerr.ErrMalformedInstruction))
	assert.Equal(t, "empty", res.Entry.Op)

	res, err = w.rt.Invoke(t.Context(), Call{Accounts: supplyRefs(), Data: []byte{9, 1, 2}})
	require.NoError(t, err)
	assert.True(t, errors.Is(res.Err, programerr.ErrUnknownOpcode))
	assert.Equal(t, "opcode(9)", res.Entry.Op)
}

func TestInvoke_CancelledContext(t *testing.T) {
	w := newWorld(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := w.rt.Invoke(ctx, Call{Accounts: supplyRefs(), Data: instruction.Encode(instruction.InitializeSupply(1))})
	assert.ErrorIs(t, err, context.Canceled)

	journal, err := w.st.ReadJournal(t.Context())
	require.NoError(t, err)
	assert.Empty(t, journal)
}

func TestInvoke_SeqResumesAfterReopen(t *testing.T) {
	w := newWorld(t)
	w.invoke(t, instruction.SetReleaseTime(1), releaseRefs())
	w.invoke(t, instruction.SetReleaseTime(2), releaseRefs())

	w.rt = w.runtime(t)
	res := w.invoke(t, instruction.SetReleaseTime(3), releaseRefs())
	assert.Equal(t, int64(3), res.Entry.Seq)
	assert.Equal(t, uint64(3), w.u64(t, scheduleKey))
}

func TestInvoke_ClaimBeforeRelease(t *testing.T) {
	w := newWorld(t)
	w.invoke(t, instruction.SetReleaseTime(worldNow+60), releaseRefs())

	res := w.invoke(t, instruction.ClaimTokens(0), claimRefs())
	assert.True(t, errors.Is(res.Err, programerr.ErrClaimWindowClosed))
	assert.Equal(t, uint64(10_000_000_000), w.tokens(t, sourceKey))

	w.clock.Advance(60)
	res = w.invoke(t, instruction.ClaimTokens(0), claimRefs())
	require.NoError(t, res.Err)
}

func TestInvoke_AliasedRecordSlotsRejected(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, w.invoke(t, instruction.InitializeSupply(5), supplyRefs()).Err)

	refs := purchaseRefs()
	refs[0].Key = poolKey

	res := w.invoke(t, instruction.RecordPurchase(1_000_000_000, 1_000_000_000), refs)
	assert.True(t, errors.Is(res.Err, programerr.ErrDuplicateAccount), "got %v", res.Err)
	assert.Equal(t, string(programerr.CodeDuplicateAccount), res.Entry.ErrorCode)
	assert.Equal(t, uint64(5_000_000_000), w.u64(t, poolKey))
	assert.Equal(t, uint64(10_000_000_000), w.slot(t, initializer).Lamports)
	assert.Empty(t, res.Entry.Effects)
}

func TestInvoke_ClaimRequiresSignedAuthority(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, w.invoke(t, instruction.InitializeSupply(5), supplyRefs()).Err)
	require.NoError(t, w.invoke(t, instruction.RecordPurchase(1_000_000_000, 1), purchaseRefs()).Err)

	refs := claimRefs()
	refs[5].Signer = false

	res := w.invoke(t, instruction.ClaimTokens(0), refs)
	assert.True(t, errors.Is(res.Err, programerr.ErrSignerRequired), "got %v", res.Err)
	assert.Equal(t, uint64(1_000_000_000), w.u64(t, ledgerKey))
	assert.Equal(t, uint64(10_000_000_000), w.tokens(t, sourceKey))
	assert.Zero(t, w.tokens(t, destKey))
}
