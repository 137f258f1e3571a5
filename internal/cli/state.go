package cli

import (
	"fmt"
	"io"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/roach88/presale/internal/account"
	"github.com/roach88/presale/internal/manifest"
	"github.com/roach88/presale/internal/record"
	"github.com/roach88/presale/internal/store"
)

// StateOptions holds flags for the state command.
type StateOptions struct {
	*RootOptions
	Key string // optional - single slot
}

// SlotView is one slot with its record decoded where the owner allows.
type SlotView struct {
	Key      string `json:"key"`
	Owner    string `json:"owner"`
	Lamports uint64 `json:"lamports"`
	Size     int    `json:"size"`
	Seq      int64  `json:"seq"`

	// Value is the u64 record of a program-owned slot.
	Value *uint64 `json:"value,omitempty"`

	// Authority and Amount decode a token account.
	Authority string  `json:"authority,omitempty"`
	Amount    *uint64 `json:"amount,omitempty"`
}

// StateResult lists the current slots.
type StateResult struct {
	ProgramID   string     `json:"program_id"`
	Initializer string     `json:"initializer"`
	Slots       []SlotView `json:"slots"`
}

func (r StateResult) renderText(w io.Writer) {
	fmt.Fprintf(w, "Program:     %s\n", r.ProgramID)
	fmt.Fprintf(w, "Initializer: %s\n", r.Initializer)
	fmt.Fprintf(w, "Slots:       %d\n", len(r.Slots))
	for _, s := range r.Slots {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s\n", s.Key)
		fmt.Fprintf(w, "  owner:    %s\n", s.Owner)
		fmt.Fprintf(w, "  lamports: %s\n", formatAmount(s.Lamports))
		fmt.Fprintf(w, "  size:     %d\n", s.Size)
		if s.Value != nil {
			fmt.Fprintf(w, "  value:    %s\n", formatAmount(*s.Value))
		}
		if s.Amount != nil {
			fmt.Fprintf(w, "  tokens:   %s (authority %s)\n", formatAmount(*s.Amount), s.Authority)
		}
		if s.Seq > 0 {
			fmt.Fprintf(w, "  seq:      %d\n", s.Seq)
		}
	}
}

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show current slot state",
		Long: `Show every slot in the database, or one slot with --key.

Program-owned slots show their u64 record value; token accounts show
their authority and balance. seq is the journal entry that last wrote
the slot (0 for genesis).

Examples:
  presale state
  presale state --key pool
  presale state --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runState(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Key, "key", "", "show a single slot (base58 key or slot name)")

	return cmd
}

func runState(opts *StateOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := opts.formatter(cmd)

	st, meta, err := openInitialized(ctx, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var slots []store.Slot
	if opts.Key != "" {
		key, err := manifest.ResolveKey(opts.Key, meta.ProgramID)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --key", err)
		}
		slot, ok, err := st.ReadSlot(ctx, key)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read slot", err)
		}
		if !ok {
			_ = out.Error("E_NOT_FOUND", fmt.Sprintf("no slot %s", key), nil)
			return NewExitError(ExitFailure, fmt.Sprintf("no slot %s", key))
		}
		slots = []store.Slot{slot}
	} else {
		if slots, err = st.ListSlots(ctx); err != nil {
			return WrapExitError(ExitCommandError, "failed to list slots", err)
		}
	}

	result := StateResult{
		ProgramID:   meta.ProgramID.String(),
		Initializer: meta.Initializer.String(),
		Slots:       make([]SlotView, 0, len(slots)),
	}
	for _, s := range slots {
		result.Slots = append(result.Slots, slotView(s, meta))
	}
	return out.Success(result)
}

func slotView(s store.Slot, meta store.Meta) SlotView {
	view := SlotView{
		Key:      s.Key.String(),
		Owner:    keyLabel(s.Owner, meta),
		Lamports: s.Lamports,
		Size:     len(s.Data),
		Seq:      s.Seq,
	}

	h := &account.Handle{Key: s.Key, Owner: s.Owner, Lamports: s.Lamports, Data: s.Data}
	switch {
	case h.OwnedBy(meta.ProgramID):
		if v, err := record.Load[record.PurchaseLedger]("slot", h); err == nil {
			view.Value = &v.AccumulatedAmount
		}
	case h.OwnedBy(solana.TokenProgramID):
		if v, err := record.Load[record.TokenAccount]("slot", h); err == nil {
			view.Authority = v.Authority.String()
			view.Amount = &v.Amount
		}
	}
	return view
}
