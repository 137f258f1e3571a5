package record

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/roach88/presale/internal/account"
	"github.com/roach88/presale/internal/programerr"
)

// Size is the encoded size of the single-field u64 records.
const Size = 8

// TokenAccountSize is the encoded size of a TokenAccount.
const TokenAccountSize = solana.PublicKeyLength + 8

// PurchaseLedger is the per-buyer purchase record.
type PurchaseLedger struct {
	AccumulatedAmount uint64
}

// SupplyPool is the global remaining-distributable-amount counter.
type SupplyPool struct {
	RemainingAmount uint64
}

// Initialized reports whether the pool has left the zero sentinel.
func (p SupplyPool) Initialized() bool {
	return p.RemainingAmount != 0
}

// ReleaseSchedule is the global unlock timestamp in unix seconds.
type ReleaseSchedule struct {
	ReleaseTimestamp uint64
}

// Restricted reports whether a release time has been set.
func (s ReleaseSchedule) Restricted() bool {
	return s.ReleaseTimestamp > 0
}

// TokenAccount is a host fungible-token balance slot.
type TokenAccount struct {
	Authority solana.PublicKey
	Amount    uint64
}

// Record constrains the types this package can load and store.
type Record interface {
	PurchaseLedger | SupplyPool | ReleaseSchedule | TokenAccount
}

// Load decodes a record from the prefix of h.Data.
// Returns INVALID_RECORD when the slot is shorter than the record layout.
func Load[T Record](role account.Role, h *account.Handle) (T, error) {
	var out T
	size := sizeOf(out)
	if len(h.Data) < size {
		return out, &programerr.Error{
			Code:    programerr.CodeInvalidRecord,
			Message: fmt.Sprintf("slot holds %d bytes, record needs %d", len(h.Data), size),
			Role:    string(role),
		}
	}
	if err := bin.NewBorshDecoder(h.Data[:size]).Decode(&out); err != nil {
		return out, programerr.ForRole(programerr.CodeInvalidRecord, string(role), "decode: %v", err)
	}
	return out, nil
}

// Encode serializes a record to exactly its layout size.
func Encode[T Record](v T) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return buf.Bytes(), nil
}

// Write returns a copy of dst with v encoded over its prefix.
// Bytes past the record layout are preserved.
func Write[T Record](role account.Role, dst []byte, v T) ([]byte, error) {
	enc, err := Encode(v)
	if err != nil {
		return nil, err
	}
	if len(dst) < len(enc) {
		return nil, &programerr.Error{
			Code:    programerr.CodeInvalidRecord,
			Message: fmt.Sprintf("slot holds %d bytes, record needs %d", len(dst), len(enc)),
			Role:    string(role),
		}
	}
	out := append([]byte(nil), dst...)
	copy(out, enc)
	return out, nil
}

// Zeroed returns freshly allocated slot data for a record type.
func Zeroed[T Record]() []byte {
	var v T
	return make([]byte, sizeOf(v))
}

func sizeOf(v any) int {
	if _, ok := v.(TokenAccount); ok {
		return TokenAccountSize
	}
	return Size
}
