package engine

import (
	"context"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"github.com/roach88/presale/internal/account"
	"github.com/roach88/presale/internal/instruction"
	"github.com/roach88/presale/internal/programerr"
)

// Processor is the presale transition function.
//
// INVARIANTS:
//   - initializer never changes after construction
//   - Apply never modifies handle data unless it returns nil
type Processor struct {
	initializer solana.PublicKey
	host        Host
	logger      *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger used for invocation diagnostics.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = l
	}
}

// New creates a Processor gated on the given initializer identity.
func New(initializer solana.PublicKey, host Host, opts ...Option) *Processor {
	p := &Processor{
		initializer: initializer,
		host:        host,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initializer returns the identity allowed to initialize the supply pool.
func (p *Processor) Initializer() solana.PublicKey {
	return p.initializer
}

// Receipt describes a successful invocation.
type Receipt struct {
	Instruction instruction.Instruction

	// Applied is false when initialize_supply hit its one-time gate and did
	// nothing. Every other successful operation reports true.
	Applied bool

	// Writes lists the committed slot overwrites in staging order.
	Writes []Write

	// Now is the clock oracle reading used for release gates, or 0 when the
	// operation does not consult the clock.
	Now uint64
}

// Apply decodes data and applies it to accounts on behalf of programID.
//
// Returns a *programerr.Error on every failure. On failure the handles'
// Data is unchanged; lamports may have been moved by a transfer primitive
// that ran before a later failure, so the host must discard the whole
// working set.
func (p *Processor) Apply(ctx context.Context, programID solana.PublicKey, accounts []*account.Handle, data []byte) (Receipt, error) {
	ins, err := instruction.Decode(data)
	if err != nil {
		p.logger.Debug("instruction rejected", "error", err, "len", len(data))
		return Receipt{}, err
	}

	p.logger.Debug("processing instruction",
		"op", ins.Op.String(),
		"amount", ins.Amount,
		"accounts", len(accounts),
	)

	var receipt Receipt
	switch ins.Op {
	case instruction.OpRecordPurchase:
		receipt, err = p.recordPurchase(ctx, programID, ins, accounts)
	case instruction.OpSetReleaseTime:
		receipt, err = p.setReleaseTime(programID, ins, accounts)
	case instruction.OpInitializeSupply:
		receipt, err = p.initializeSupply(programID, ins, accounts)
	case instruction.OpClaimTokens:
		receipt, err = p.claimTokens(ctx, programID, ins, accounts)
	default:
		// Decode already rejects unknown tags.
		err = programerr.New(programerr.CodeUnknownOpcode, "%s", ins.Op)
	}
	if err != nil {
		p.logger.Info("instruction failed",
			"op", ins.Op.String(),
			"code", string(programerr.CodeOf(err)),
			"error", err,
		)
		return Receipt{}, err
	}

	receipt.Instruction = ins
	p.logger.Info("instruction applied",
		"op", ins.Op.String(),
		"amount", ins.Amount,
		"applied", receipt.Applied,
		"writes", len(receipt.Writes),
	)
	return receipt, nil
}
