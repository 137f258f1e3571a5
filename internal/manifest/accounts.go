package manifest

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/roach88/presale/internal/account"
	"github.com/roach88/presale/internal/instruction"
	"github.com/roach88/presale/internal/store"
)

// Accounts resolves role references into an account list in the
// operation's layout order. Program roles default to the well-known
// programs. The list ends at the first other role with no reference, so a
// short role map yields a short list.
func Accounts(op instruction.Opcode, roles map[account.Role]string, signers []string, programID solana.PublicKey) ([]store.AccountRef, error) {
	signed := make(map[solana.PublicKey]bool, len(signers))
	for _, ref := range signers {
		key, err := ResolveKey(ref, programID)
		if err != nil {
			return nil, fmt.Errorf("signer %q: %w", ref, err)
		}
		signed[key] = true
	}

	var refs []store.AccountRef
	for _, role := range account.Layout(op) {
		ref, ok := roles[role]
		if !ok {
			switch role {
			case account.RoleSystemProgram:
				ref, ok = RefSystemProgram, true
			case account.RoleTokenProgram:
				ref, ok = RefTokenProgram, true
			}
		}
		if !ok {
			break
		}

		key, err := ResolveKey(ref, programID)
		if err != nil {
			return nil, fmt.Errorf("role %s: %w", role, err)
		}
		refs = append(refs, store.AccountRef{Key: key, Signer: signed[key]})
	}
	return refs, nil
}
