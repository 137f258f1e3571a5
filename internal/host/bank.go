package host

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/roach88/presale/internal/account"
	"github.com/roach88/presale/internal/engine"
	"github.com/roach88/presale/internal/record"
	"github.com/roach88/presale/internal/store"
)

var (
	// ErrInsufficientFunds is returned when a source cannot cover a transfer.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrBalanceOverflow is returned when a credit would overflow u64.
	ErrBalanceOverflow = errors.New("balance overflow")

	// ErrAuthorityMismatch is returned when the token authority handle does
	// not match the source account's authority.
	ErrAuthorityMismatch = errors.New("authority mismatch")

	// ErrAuthorityNotSigned is returned when the token authority handle did
	// not sign the invocation.
	ErrAuthorityNotSigned = errors.New("authority not signed")

	// ErrNotTokenAccount is returned when a token transfer names a slot the
	// token program does not own.
	ErrNotTokenAccount = errors.New("not a token account")
)

// Bank implements the engine's transfer primitives over working handles.
//
// Balances move in place on the handles; the Runtime discards them when the
// invocation fails. Each successful transfer records an Effect carrying the
// serialized cross-program instruction.
type Bank struct {
	effects []store.Effect
}

var _ engine.NativeTransferer = (*Bank)(nil)
var _ engine.TokenTransferer = (*Bank)(nil)

// TransferNative moves lamports from one handle to another.
func (b *Bank) TransferNative(_ context.Context, from, to *account.Handle, lamports uint64) error {
	if from.Lamports < lamports {
		return fmt.Errorf("%w: %s holds %d lamports, needs %d", ErrInsufficientFunds, from.Key, from.Lamports, lamports)
	}

	ix, err := system.NewTransferInstruction(lamports, from.Key, to.Key).ValidateAndBuild()
	if err != nil {
		return fmt.Errorf("build system transfer: %w", err)
	}
	data, err := ix.Data()
	if err != nil {
		return fmt.Errorf("encode system transfer: %w", err)
	}

	if !from.Key.Equals(to.Key) {
		credited, carry := bits.Add64(to.Lamports, lamports, 0)
		if carry != 0 {
			return fmt.Errorf("%w: %s", ErrBalanceOverflow, to.Key)
		}
		from.Lamports -= lamports
		to.Lamports = credited
	}

	b.record(store.EffectNativeTransfer, solana.SystemProgramID, from.Key, to.Key, lamports, data)
	return nil
}

// TransferTokens moves fungible tokens between two token-account slots.
func (b *Bank) TransferTokens(_ context.Context, t engine.TokenTransfer) error {
	for _, h := range []*account.Handle{t.Source, t.Destination} {
		if !h.OwnedBy(solana.TokenProgramID) {
			return fmt.Errorf("%w: %s is owned by %s", ErrNotTokenAccount, h.Key, h.Owner)
		}
	}

	src, err := record.Load[record.TokenAccount](account.RoleTokenSource, t.Source)
	if err != nil {
		return err
	}
	dst, err := record.Load[record.TokenAccount](account.RoleTokenDestination, t.Destination)
	if err != nil {
		return err
	}

	if !t.Authority.IsSigner {
		return fmt.Errorf("%w: %s", ErrAuthorityNotSigned, t.Authority.Key)
	}
	if !src.Authority.Equals(t.Authority.Key) {
		return fmt.Errorf("%w: source authority %s, supplied %s", ErrAuthorityMismatch, src.Authority, t.Authority.Key)
	}
	if src.Amount < t.Amount {
		return fmt.Errorf("%w: %s holds %d tokens, needs %d", ErrInsufficientFunds, t.Source.Key, src.Amount, t.Amount)
	}

	ix, err := token.NewTransferInstruction(t.Amount, t.Source.Key, t.Destination.Key, t.Authority.Key, nil).ValidateAndBuild()
	if err != nil {
		return fmt.Errorf("build token transfer: %w", err)
	}
	data, err := ix.Data()
	if err != nil {
		return fmt.Errorf("encode token transfer: %w", err)
	}

	if !t.Source.Key.Equals(t.Destination.Key) {
		credited, carry := bits.Add64(dst.Amount, t.Amount, 0)
		if carry != 0 {
			return fmt.Errorf("%w: %s", ErrBalanceOverflow, t.Destination.Key)
		}
		src.Amount -= t.Amount
		dst.Amount = credited

		srcData, err := record.Write(account.RoleTokenSource, t.Source.Data, src)
		if err != nil {
			return err
		}
		dstData, err := record.Write(account.RoleTokenDestination, t.Destination.Data, dst)
		if err != nil {
			return err
		}
		t.Source.Data = srcData
		t.Destination.Data = dstData
	}

	b.record(store.EffectTokenTransfer, t.Program.Key, t.Source.Key, t.Destination.Key, t.Amount, data)
	return nil
}

// Effects returns the transfers recorded so far in execution order.
func (b *Bank) Effects() []store.Effect {
	out := make([]store.Effect, len(b.effects))
	copy(out, b.effects)
	return out
}

func (b *Bank) record(kind store.EffectKind, program, src, dst solana.PublicKey, amount uint64, ix []byte) {
	b.effects = append(b.effects, store.Effect{
		Index:       len(b.effects),
		Kind:        kind,
		Program:     program,
		Source:      src,
		Destination: dst,
		Amount:      amount,
		Instruction: ix,
	})
}
