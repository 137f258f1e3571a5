package engine

import (
	"context"

	"github.com/roach88/presale/internal/account"
)

// ClockOracle returns the current logical timestamp in unix seconds.
type ClockOracle interface {
	Now() uint64
}

// NativeTransferer moves native currency between two handles.
// Implementations adjust the handles' lamports in place; the host discards
// those changes if Apply fails afterwards.
type NativeTransferer interface {
	TransferNative(ctx context.Context, from, to *account.Handle, lamports uint64) error
}

// TokenTransfer describes one fungible-token movement.
type TokenTransfer struct {
	Program     *account.Handle
	Source      *account.Handle
	Destination *account.Handle
	Authority   *account.Handle
	Amount      uint64
}

// TokenTransferer moves fungible tokens between two token-account handles.
type TokenTransferer interface {
	TransferTokens(ctx context.Context, t TokenTransfer) error
}

// Host bundles the external collaborators a Processor consumes.
type Host interface {
	ClockOracle
	NativeTransferer
	TokenTransferer
}
