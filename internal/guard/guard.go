// Package guard enforces the ownership and signer preconditions that must
// hold before any presale record is mutated.
package guard

import (
	"github.com/gagliardetto/solana-go"

	"github.com/roach88/presale/internal/account"
	"github.com/roach88/presale/internal/programerr"
)

// Slot pairs a bound handle with the role it was bound to.
type Slot struct {
	Role   account.Role
	Handle *account.Handle
}

// RequireOwned checks that every slot is tagged with programID.
// Slots are checked in order; the first mismatch is returned.
func RequireOwned(programID solana.PublicKey, slots ...Slot) error {
	for _, s := range slots {
		if !s.Handle.OwnedBy(programID) {
			return &programerr.Error{
				Code:    programerr.CodeOwnershipMismatch,
				Message: "slot isn't owned by program",
				Role:    string(s.Role),
				Details: map[string]string{
					"slot":  s.Handle.Key.String(),
					"owner": s.Handle.Owner.String(),
				},
			}
		}
	}
	return nil
}

// RequireSigner checks the host-verified signer flag on h.
func RequireSigner(role account.Role, h *account.Handle) error {
	if !h.IsSigner {
		return programerr.ForRole(programerr.CodeSignerRequired, string(role), "%s should be signer", h.Key)
	}
	return nil
}

// MayInitialize is the one-time supply initialization gate: the payer must be
// the configured initializer and the pool must still hold the zero sentinel.
// A false result is a silent no-op for the caller, not a failure.
func MayInitialize(payer *account.Handle, initializer solana.PublicKey, remaining uint64) bool {
	return payer.Key.Equals(initializer) && remaining == 0
}
