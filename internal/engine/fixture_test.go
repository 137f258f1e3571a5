package engine

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/roach88/presale/internal/account"
	"github.com/roach88/presale/internal/instruction"
	"github.com/roach88/presale/internal/testutil"
)

type nativeCall struct {
	from, to solana.PublicKey
	lamports uint64
}

// fakeHost records transfer calls and serves a fixed clock.
type fakeHost struct {
	clock      *testutil.FixedClock
	native     []nativeCall
	tokens     []TokenTransfer
	nativeErr  error
	tokenErr   error
	clockReads int
}

func (h *fakeHost) Now() uint64 {
	h.clockReads++
	return h.clock.Now()
}

func (h *fakeHost) TransferNative(_ context.Context, from, to *account.Handle, lamports uint64) error {
	if h.nativeErr != nil {
		return h.nativeErr
	}
	h.native = append(h.native, nativeCall{from: from.Key, to: to.Key, lamports: lamports})
	return nil
}

func (h *fakeHost) TransferTokens(_ context.Context, t TokenTransfer) error {
	if h.tokenErr != nil {
		return h.tokenErr
	}
	h.tokens = append(h.tokens, t)
	return nil
}

type fixture struct {
	program     solana.PublicKey
	initializer solana.PublicKey
	host        *fakeHost
	proc        *Processor

	ledger    *account.Handle
	pool      *account.Handle
	schedule  *account.Handle
	recipient *account.Handle
	payer     *account.Handle
	system    *account.Handle
	source    *account.Handle
	dest      *account.Handle
	authority *account.Handle
	token     *account.Handle
}

const fixtureNow = 1_700_000_000

func newFixture(t *testing.T) *fixture {
	t.Helper()
	program := testutil.Key("program")
	initializer := testutil.Key("initializer")
	host := &fakeHost{clock: testutil.NewFixedClock(fixtureNow)}

	slot := func(name string) *account.Handle {
		return &account.Handle{Key: testutil.Key(name), Owner: program, Data: make([]byte, 8), IsWritable: true}
	}

	return &fixture{
		program:     program,
		initializer: initializer,
		host:        host,
		proc:        New(initializer, host, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))),
		ledger:      slot("ledger"),
		pool:        slot("pool"),
		schedule:    slot("schedule"),
		recipient:   &account.Handle{Key: testutil.Key("recipient"), Owner: solana.SystemProgramID},
		payer:       &account.Handle{Key: initializer, Owner: solana.SystemProgramID, IsSigner: true, Lamports: 100_000_000_000},
		system:      &account.Handle{Key: solana.SystemProgramID},
		source:      &account.Handle{Key: testutil.Key("source"), Owner: solana.TokenProgramID},
		dest:        &account.Handle{Key: testutil.Key("dest"), Owner: solana.TokenProgramID},
		authority:   &account.Handle{Key: testutil.Key("authority"), IsSigner: true},
		token:       &account.Handle{Key: solana.TokenProgramID},
	}
}

func (f *fixture) purchaseAccounts() []*account.Handle {
	return []*account.Handle{f.ledger, f.pool, f.recipient, f.payer, f.schedule, f.system}
}

func (f *fixture) releaseAccounts() []*account.Handle {
	return []*account.Handle{f.schedule, f.payer}
}

func (f *fixture) supplyAccounts() []*account.Handle {
	return []*account.Handle{f.pool, f.recipient, f.payer}
}

func (f *fixture) claimAccounts() []*account.Handle {
	return []*account.Handle{f.ledger, f.payer, f.schedule, f.source, f.dest, f.authority, f.token}
}

func (f *fixture) apply(ins instruction.Instruction, accounts []*account.Handle) (Receipt, error) {
	return f.proc.Apply(context.Background(), f.program, accounts, instruction.Encode(ins))
}

func setU64(h *account.Handle, v uint64) {
	binary.LittleEndian.PutUint64(h.Data, v)
}

func getU64(h *account.Handle) uint64 {
	return binary.LittleEndian.Uint64(h.Data)
}

// snapshot deep-copies handles for byte-identical comparisons.
func snapshot(hs ...*account.Handle) []*account.Handle {
	out := make([]*account.Handle, len(hs))
	for i, h := range hs {
		out[i] = h.Clone()
	}
	return out
}
