package account

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/roach88/presale/internal/instruction"
	"github.com/roach88/presale/internal/programerr"
)

// Role names a positional account slot.
type Role string

const (
	RolePurchaseLedger   Role = "purchase_ledger"
	RoleSupplyPool       Role = "supply_pool"
	RoleRecipient        Role = "recipient"
	RolePayer            Role = "payer"
	RoleReleaseSchedule  Role = "release_schedule"
	RoleSystemProgram    Role = "system_program"
	RoleTokenSource      Role = "token_source"
	RoleTokenDestination Role = "token_destination"
	RoleTokenAuthority   Role = "token_authority"
	RoleTokenProgram     Role = "token_program"
)

// layouts is the single canonical account order per operation.
var layouts = map[instruction.Opcode][]Role{
	instruction.OpRecordPurchase: {
		RolePurchaseLedger, RoleSupplyPool, RoleRecipient, RolePayer, RoleReleaseSchedule, RoleSystemProgram,
	},
	instruction.OpSetReleaseTime: {
		RoleReleaseSchedule, RolePayer,
	},
	instruction.OpInitializeSupply: {
		RoleSupplyPool, RoleRecipient, RolePayer,
	},
	instruction.OpClaimTokens: {
		RolePurchaseLedger, RolePayer, RoleReleaseSchedule,
		RoleTokenSource, RoleTokenDestination, RoleTokenAuthority, RoleTokenProgram,
	},
}

// Layout returns the ordered roles an operation expects.
// The returned slice is a copy.
func Layout(op instruction.Opcode) []Role {
	roles := layouts[op]
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// Purchase binds the record_purchase accounts.
type Purchase struct {
	Ledger        *Handle
	Pool          *Handle
	Recipient     *Handle
	Payer         *Handle
	Schedule      *Handle
	SystemProgram *Handle
}

// Release binds the set_release_time accounts.
type Release struct {
	Schedule *Handle
	Payer    *Handle
}

// Supply binds the initialize_supply accounts.
type Supply struct {
	Pool      *Handle
	Recipient *Handle
	Payer     *Handle
}

// Claim binds the claim_tokens accounts.
type Claim struct {
	Ledger       *Handle
	Payer        *Handle
	Schedule     *Handle
	Source       *Handle
	Destination  *Handle
	Authority    *Handle
	TokenProgram *Handle
}

// BindPurchase extracts the record_purchase roles from an ordered list.
func BindPurchase(list []*Handle) (Purchase, error) {
	h, err := bind(instruction.OpRecordPurchase, list)
	if err != nil {
		return Purchase{}, err
	}
	if err := requireProgram(h[5], RoleSystemProgram, solana.SystemProgramID); err != nil {
		return Purchase{}, err
	}
	if err := requireDistinct(
		slot{RolePurchaseLedger, h[0]},
		slot{RoleSupplyPool, h[1]},
		slot{RoleReleaseSchedule, h[4]},
	); err != nil {
		return Purchase{}, err
	}
	return Purchase{
		Ledger:        h[0],
		Pool:          h[1],
		Recipient:     h[2],
		Payer:         h[3],
		Schedule:      h[4],
		SystemProgram: h[5],
	}, nil
}

// BindRelease extracts the set_release_time roles from an ordered list.
func BindRelease(list []*Handle) (Release, error) {
	h, err := bind(instruction.OpSetReleaseTime, list)
	if err != nil {
		return Release{}, err
	}
	return Release{Schedule: h[0], Payer: h[1]}, nil
}

// BindSupply extracts the initialize_supply roles from an ordered list.
func BindSupply(list []*Handle) (Supply, error) {
	h, err := bind(instruction.OpInitializeSupply, list)
	if err != nil {
		return Supply{}, err
	}
	return Supply{Pool: h[0], Recipient: h[1], Payer: h[2]}, nil
}

// BindClaim extracts the claim_tokens roles from an ordered list.
func BindClaim(list []*Handle) (Claim, error) {
	h, err := bind(instruction.OpClaimTokens, list)
	if err != nil {
		return Claim{}, err
	}
	if err := requireProgram(h[6], RoleTokenProgram, solana.TokenProgramID); err != nil {
		return Claim{}, err
	}
	if err := requireDistinct(
		slot{RolePurchaseLedger, h[0]},
		slot{RoleReleaseSchedule, h[2]},
		slot{RoleTokenSource, h[3]},
		slot{RoleTokenDestination, h[4]},
	); err != nil {
		return Claim{}, err
	}
	return Claim{
		Ledger:       h[0],
		Payer:        h[1],
		Schedule:     h[2],
		Source:       h[3],
		Destination:  h[4],
		Authority:    h[5],
		TokenProgram: h[6],
	}, nil
}

// bind returns the first len(layout) handles, failing on the first missing
// position. Extra trailing handles are ignored.
func bind(op instruction.Opcode, list []*Handle) ([]*Handle, error) {
	roles := layouts[op]
	for i, role := range roles {
		if i >= len(list) || list[i] == nil {
			return nil, &programerr.Error{
				Code:    programerr.CodeMissingAccount,
				Message: fmt.Sprintf("%s requires %d accounts", op, len(roles)),
				Role:    string(role),
				Details: map[string]string{
					"position": fmt.Sprintf("%d", i),
					"supplied": fmt.Sprintf("%d", len(list)),
				},
			}
		}
	}
	return list[:len(roles)], nil
}

func requireProgram(h *Handle, role Role, want solana.PublicKey) error {
	if h.Key.Equals(want) {
		return nil
	}
	return &programerr.Error{
		Code:    programerr.CodeProgramMismatch,
		Message: "handle does not name the expected program",
		Role:    string(role),
		Details: map[string]string{"want": want.String(), "got": h.Key.String()},
	}
}

type slot struct {
	role Role
	h    *Handle
}

// requireDistinct rejects record roles that name the same key. The host
// aliases repeated keys to one handle, so a second write would silently
// replace the first.
func requireDistinct(slots ...slot) error {
	for i := 1; i < len(slots); i++ {
		for j := 0; j < i; j++ {
			if slots[i].h.Key.Equals(slots[j].h.Key) {
				return &programerr.Error{
					Code:    programerr.CodeDuplicateAccount,
					Message: "record roles must name distinct slots",
					Role:    string(slots[i].role),
					Details: map[string]string{
						"key":  slots[i].h.Key.String(),
						"with": string(slots[j].role),
					},
				}
			}
		}
	}
	return nil
}
