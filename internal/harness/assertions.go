package harness

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/roach88/presale/internal/account"
	"github.com/roach88/presale/internal/manifest"
	"github.com/roach88/presale/internal/record"
	"github.com/roach88/presale/internal/store"
)

// AssertionContext holds the state assertions read.
type AssertionContext struct {
	Store   *store.Store
	Ctx     context.Context
	Program solana.PublicKey
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Slot     string
	Expected uint64
	Actual   uint64
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	if e.Slot == "" {
		return fmt.Sprintf("assertion %s: expected %d, got %d", e.Type, e.Expected, e.Actual)
	}
	return fmt.Sprintf("assertion %s %s: expected %d, got %d", e.Type, e.Slot, e.Expected, e.Actual)
}

// EvaluateAssertions checks all assertions and returns failure messages.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluateAssertion(a, actx); err != nil {
			failures = append(failures, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return failures
}

func evaluateAssertion(a Assertion, actx *AssertionContext) error {
	var (
		actual uint64
		err    error
	)
	switch a.Type {
	case AssertRecord:
		actual, err = readRecord(actx, a.Slot)
	case AssertLamports:
		actual, err = readLamports(actx, a.Slot)
	case AssertTokenBalance:
		actual, err = readTokenBalance(actx, a.Slot)
	case AssertEffectCount:
		actual, err = countEffects(actx)
	case AssertJournalCount:
		actual, err = countJournal(actx)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
	if err != nil {
		return err
	}

	if actual != a.Value {
		return &AssertionError{Type: a.Type, Slot: a.Slot, Expected: a.Value, Actual: actual}
	}
	return nil
}

// handle loads a slot as an account handle. A missing slot reads as an
// empty system-owned account.
func handle(actx *AssertionContext, ref string) (*account.Handle, error) {
	key, err := manifest.ResolveKey(ref, actx.Program)
	if err != nil {
		return nil, err
	}
	slot, ok, err := actx.Store.ReadSlot(actx.Ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &account.Handle{Key: key, Owner: solana.SystemProgramID, Data: []byte{}}, nil
	}
	return &account.Handle{Key: key, Owner: slot.Owner, Lamports: slot.Lamports, Data: slot.Data}, nil
}

// readRecord reads the u64 field of a ledger, pool or schedule slot.
func readRecord(actx *AssertionContext, ref string) (uint64, error) {
	h, err := handle(actx, ref)
	if err != nil {
		return 0, err
	}
	v, err := record.Load[record.PurchaseLedger](account.Role(ref), h)
	if err != nil {
		return 0, err
	}
	return v.AccumulatedAmount, nil
}

func readLamports(actx *AssertionContext, ref string) (uint64, error) {
	h, err := handle(actx, ref)
	if err != nil {
		return 0, err
	}
	return h.Lamports, nil
}

func readTokenBalance(actx *AssertionContext, ref string) (uint64, error) {
	h, err := handle(actx, ref)
	if err != nil {
		return 0, err
	}
	v, err := record.Load[record.TokenAccount](account.Role(ref), h)
	if err != nil {
		return 0, err
	}
	return v.Amount, nil
}

func countEffects(actx *AssertionContext) (uint64, error) {
	entries, err := actx.Store.ReadJournal(actx.Ctx)
	if err != nil {
		return 0, err
	}
	var n uint64
	for _, e := range entries {
		n += uint64(len(e.Effects))
	}
	return n, nil
}

func countJournal(actx *AssertionContext) (uint64, error) {
	entries, err := actx.Store.ReadJournal(actx.Ctx)
	if err != nil {
		return 0, err
	}
	return uint64(len(entries)), nil
}
