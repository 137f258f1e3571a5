package engine

import (
	"context"
	"fmt"
	"math/bits"

	"github.com/gagliardetto/solana-go"

	"github.com/roach88/presale/internal/account"
	"github.com/roach88/presale/internal/guard"
	"github.com/roach88/presale/internal/instruction"
	"github.com/roach88/presale/internal/programerr"
	"github.com/roach88/presale/internal/record"
)

// Values of Details["rule"] on INVARIANT_VIOLATION errors.
const (
	RulePurchaseWindow = "purchase_window"
	RuleLedgerOverflow = "ledger_overflow"
)

// recordPurchase credits the buyer's ledger, debits the supply pool and pays
// the recipient in native currency.
func (p *Processor) recordPurchase(ctx context.Context, programID solana.PublicKey, ins instruction.Instruction, list []*account.Handle) (Receipt, error) {
	b, err := account.BindPurchase(list)
	if err != nil {
		return Receipt{}, err
	}

	if err := guard.RequireOwned(programID,
		guard.Slot{Role: account.RolePurchaseLedger, Handle: b.Ledger},
		guard.Slot{Role: account.RoleSupplyPool, Handle: b.Pool},
		guard.Slot{Role: account.RoleReleaseSchedule, Handle: b.Schedule},
	); err != nil {
		return Receipt{}, err
	}
	if err := guard.RequireSigner(account.RolePayer, b.Payer); err != nil {
		return Receipt{}, err
	}

	ledger, err := record.Load[record.PurchaseLedger](account.RolePurchaseLedger, b.Ledger)
	if err != nil {
		return Receipt{}, err
	}
	schedule, err := record.Load[record.ReleaseSchedule](account.RoleReleaseSchedule, b.Schedule)
	if err != nil {
		return Receipt{}, err
	}
	pool, err := record.Load[record.SupplyPool](account.RoleSupplyPool, b.Pool)
	if err != nil {
		return Receipt{}, err
	}

	now := p.host.Now()

	// The window closes only while stock remains: an expired schedule blocks
	// amounts strictly below the remaining pool.
	if purchaseWindowClosed(schedule, now, ins.Amount, pool.RemainingAmount) {
		return Receipt{}, &programerr.Error{
			Code:    programerr.CodeInvariantViolation,
			Message: "purchase window closed",
			Details: map[string]string{
				"rule":              RulePurchaseWindow,
				"release_timestamp": fmt.Sprintf("%d", schedule.ReleaseTimestamp),
				"now":               fmt.Sprintf("%d", now),
			},
		}
	}

	if ins.Amount > pool.RemainingAmount {
		return Receipt{}, &programerr.Error{
			Code:    programerr.CodeInsufficientSupply,
			Message: "purchase exceeds remaining supply",
			Details: map[string]string{
				"amount":    fmt.Sprintf("%d", ins.Amount),
				"remaining": fmt.Sprintf("%d", pool.RemainingAmount),
			},
		}
	}

	accumulated, carry := bits.Add64(ledger.AccumulatedAmount, ins.Amount, 0)
	if carry != 0 {
		return Receipt{}, &programerr.Error{
			Code:    programerr.CodeInvariantViolation,
			Message: "accumulated amount overflows u64",
			Role:    string(account.RolePurchaseLedger),
			Details: map[string]string{"rule": RuleLedgerOverflow},
		}
	}

	var ws writeSet
	ledgerData, err := record.Write(account.RolePurchaseLedger, b.Ledger.Data, record.PurchaseLedger{AccumulatedAmount: accumulated})
	if err != nil {
		return Receipt{}, err
	}
	poolData, err := record.Write(account.RoleSupplyPool, b.Pool.Data, record.SupplyPool{RemainingAmount: pool.RemainingAmount - ins.Amount})
	if err != nil {
		return Receipt{}, err
	}
	ws.stage(account.RolePurchaseLedger, b.Ledger, ledgerData)
	ws.stage(account.RoleSupplyPool, b.Pool, poolData)

	if err := p.host.TransferNative(ctx, b.Payer, b.Recipient, ins.Lamports); err != nil {
		return Receipt{}, programerr.Wrap(programerr.CodeTransferFailed, err)
	}

	return Receipt{Applied: true, Writes: ws.commit(), Now: now}, nil
}

// purchaseWindowClosed is the literal release gate for purchases.
func purchaseWindowClosed(schedule record.ReleaseSchedule, now, amount, remaining uint64) bool {
	return schedule.ReleaseTimestamp > 0 &&
		schedule.ReleaseTimestamp < now &&
		amount < remaining
}

// setReleaseTime overwrites the release schedule unconditionally.
func (p *Processor) setReleaseTime(programID solana.PublicKey, ins instruction.Instruction, list []*account.Handle) (Receipt, error) {
	b, err := account.BindRelease(list)
	if err != nil {
		return Receipt{}, err
	}

	if err := guard.RequireOwned(programID, guard.Slot{Role: account.RoleReleaseSchedule, Handle: b.Schedule}); err != nil {
		return Receipt{}, err
	}
	if err := guard.RequireSigner(account.RolePayer, b.Payer); err != nil {
		return Receipt{}, err
	}

	if _, err := record.Load[record.ReleaseSchedule](account.RoleReleaseSchedule, b.Schedule); err != nil {
		return Receipt{}, err
	}

	var ws writeSet
	data, err := record.Write(account.RoleReleaseSchedule, b.Schedule.Data, record.ReleaseSchedule{ReleaseTimestamp: ins.Amount})
	if err != nil {
		return Receipt{}, err
	}
	ws.stage(account.RoleReleaseSchedule, b.Schedule, data)

	return Receipt{Applied: true, Writes: ws.commit()}, nil
}

// initializeSupply sets the supply pool once. A payer other than the
// initializer, or a pool already holding a value, makes it a no-op.
func (p *Processor) initializeSupply(programID solana.PublicKey, ins instruction.Instruction, list []*account.Handle) (Receipt, error) {
	b, err := account.BindSupply(list)
	if err != nil {
		return Receipt{}, err
	}

	if err := guard.RequireOwned(programID, guard.Slot{Role: account.RoleSupplyPool, Handle: b.Pool}); err != nil {
		return Receipt{}, err
	}
	if err := guard.RequireSigner(account.RolePayer, b.Payer); err != nil {
		return Receipt{}, err
	}

	pool, err := record.Load[record.SupplyPool](account.RoleSupplyPool, b.Pool)
	if err != nil {
		return Receipt{}, err
	}

	if !guard.MayInitialize(b.Payer, p.initializer, pool.RemainingAmount) {
		p.logger.Debug("supply initialization skipped",
			"payer", b.Payer.Key.String(),
			"remaining", pool.RemainingAmount,
		)
		return Receipt{Applied: false}, nil
	}

	var ws writeSet
	data, err := record.Write(account.RoleSupplyPool, b.Pool.Data, record.SupplyPool{RemainingAmount: ins.Amount})
	if err != nil {
		return Receipt{}, err
	}
	ws.stage(account.RoleSupplyPool, b.Pool, data)

	return Receipt{Applied: true, Writes: ws.commit()}, nil
}

// claimTokens transfers the buyer's accumulated amount once the release time
// has passed, then overwrites the ledger with the instruction amount.
func (p *Processor) claimTokens(ctx context.Context, programID solana.PublicKey, ins instruction.Instruction, list []*account.Handle) (Receipt, error) {
	b, err := account.BindClaim(list)
	if err != nil {
		return Receipt{}, err
	}

	if err := guard.RequireOwned(programID,
		guard.Slot{Role: account.RolePurchaseLedger, Handle: b.Ledger},
		guard.Slot{Role: account.RoleReleaseSchedule, Handle: b.Schedule},
	); err != nil {
		return Receipt{}, err
	}
	if err := guard.RequireSigner(account.RolePayer, b.Payer); err != nil {
		return Receipt{}, err
	}
	if err := guard.RequireSigner(account.RoleTokenAuthority, b.Authority); err != nil {
		return Receipt{}, err
	}

	ledger, err := record.Load[record.PurchaseLedger](account.RolePurchaseLedger, b.Ledger)
	if err != nil {
		return Receipt{}, err
	}
	schedule, err := record.Load[record.ReleaseSchedule](account.RoleReleaseSchedule, b.Schedule)
	if err != nil {
		return Receipt{}, err
	}

	now := p.host.Now()
	if schedule.Restricted() && now < schedule.ReleaseTimestamp {
		return Receipt{}, &programerr.Error{
			Code:    programerr.CodeClaimWindowClosed,
			Message: "tokens are not released yet",
			Details: map[string]string{
				"release_timestamp": fmt.Sprintf("%d", schedule.ReleaseTimestamp),
				"now":               fmt.Sprintf("%d", now),
			},
		}
	}

	// The ledger is overwritten with the instruction amount, not decremented.
	var ws writeSet
	data, err := record.Write(account.RolePurchaseLedger, b.Ledger.Data, record.PurchaseLedger{AccumulatedAmount: ins.Amount})
	if err != nil {
		return Receipt{}, err
	}
	ws.stage(account.RolePurchaseLedger, b.Ledger, data)

	err = p.host.TransferTokens(ctx, TokenTransfer{
		Program:     b.TokenProgram,
		Source:      b.Source,
		Destination: b.Destination,
		Authority:   b.Authority,
		Amount:      ledger.AccumulatedAmount,
	})
	if err != nil {
		return Receipt{}, programerr.Wrap(programerr.CodeTransferFailed, err)
	}

	return Receipt{Applied: true, Writes: ws.commit(), Now: now}, nil
}
