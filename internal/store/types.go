package store

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrNotInitialized is returned when reading meta from a store that has
	// no genesis yet.
	ErrNotInitialized = errors.New("store not initialized")

	// ErrAlreadyInitialized is returned by WriteGenesis on a store that
	// already holds a genesis snapshot.
	ErrAlreadyInitialized = errors.New("store already initialized")
)

// Meta identifies the program a store belongs to.
type Meta struct {
	ProgramID   solana.PublicKey
	Initializer solana.PublicKey
}

// Slot is the persisted state of one key.
type Slot struct {
	Key      solana.PublicKey
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte

	// Seq is the journal seq that last wrote the slot, 0 for genesis.
	Seq int64
}

// AccountRef is one entry of an invocation's account list.
type AccountRef struct {
	Key    solana.PublicKey `json:"key"`
	Signer bool             `json:"signer"`
}

// EffectKind names a transfer primitive.
type EffectKind string

const (
	EffectNativeTransfer EffectKind = "native_transfer"
	EffectTokenTransfer  EffectKind = "token_transfer"
)

// Effect is one transfer performed by an applied invocation.
type Effect struct {
	Index       int
	Kind        EffectKind
	Program     solana.PublicKey
	Source      solana.PublicKey
	Destination solana.PublicKey
	Amount      uint64

	// Instruction is the serialized cross-program instruction data.
	Instruction []byte
}

// Entry is one journaled invocation.
type Entry struct {
	ID        string
	Seq       int64
	Session   string
	ProgramID solana.PublicKey
	Op        string
	Data      []byte
	Accounts  []AccountRef
	Now       uint64

	// ErrorCode is empty for applied invocations.
	ErrorCode    string
	ErrorMessage string

	Effects []Effect
}

// Applied reports whether the entry committed state changes.
func (e Entry) Applied() bool {
	return e.ErrorCode == ""
}
