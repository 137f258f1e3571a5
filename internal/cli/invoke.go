package cli

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/presale/internal/account"
	"github.com/roach88/presale/internal/host"
	"github.com/roach88/presale/internal/instruction"
	"github.com/roach88/presale/internal/manifest"
	"github.com/roach88/presale/internal/store"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Amount   uint64
	Lamports uint64
	Roles    []string // role=ref
	Signers  []string
	Now      uint64
	Data     string // hex, replaces the encoded instruction
}

// WriteView is one committed record write.
type WriteView struct {
	Role  string `json:"role"`
	Key   string `json:"key"`
	Value uint64 `json:"value"`
}

// EffectView is one transfer performed by an invocation.
type EffectView struct {
	Kind        string `json:"kind"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Amount      uint64 `json:"amount"`
}

// InvokeResult is the journaled outcome of an invocation.
type InvokeResult struct {
	ID           string       `json:"id"`
	Seq          int64        `json:"seq"`
	Op           string       `json:"op"`
	Now          uint64       `json:"now"`
	Applied      bool         `json:"applied"`
	ErrorCode    string       `json:"error_code,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Writes       []WriteView  `json:"writes"`
	Effects      []EffectView `json:"effects"`
}

func (r InvokeResult) renderText(w io.Writer) {
	switch {
	case r.ErrorCode != "":
		fmt.Fprintf(w, "✗ seq %d %s rejected: %s\n", r.Seq, r.Op, r.ErrorCode)
		fmt.Fprintf(w, "  %s\n", r.ErrorMessage)
		return
	case r.Applied:
		fmt.Fprintf(w, "✓ seq %d %s applied\n", r.Seq, r.Op)
	default:
		fmt.Fprintf(w, "✓ seq %d %s skipped (no change)\n", r.Seq, r.Op)
	}
	for _, wr := range r.Writes {
		fmt.Fprintf(w, "  write  %-17s %s = %s\n", wr.Role, wr.Key, formatAmount(wr.Value))
	}
	for _, e := range r.Effects {
		fmt.Fprintf(w, "  effect %-17s %s -> %s %s\n", e.Kind, e.Source, e.Destination, formatAmount(e.Amount))
	}
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <operation>",
		Short: "Submit one instruction to the ledger",
		Long: `Submit one instruction and journal its outcome.

Operations: record_purchase, set_release_time, initialize_supply,
claim_tokens. Accounts are passed as role=ref pairs and assembled in the
operation's canonical order; system_program and token_program default to
the well-known programs. A ref is a base58 key, a genesis slot name, or
one of program, system_program, token_program.

Exit codes:
  0 - Instruction applied (or skipped without change)
  1 - Instruction rejected; the rejection is journaled
  2 - Command error

Examples:
  presale invoke initialize_supply --amount 5 \
    --role supply_pool=pool --role recipient=treasury --role payer=admin --signer admin
  presale invoke record_purchase --amount 1000 --lamports 250 \
    --role purchase_ledger=alice-ledger --role supply_pool=pool \
    --role recipient=treasury --role payer=alice --role release_schedule=schedule \
    --signer alice`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invokeOperation(opts, args[0], cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.Amount, "amount", 0, "instruction amount (raw, before any scaling)")
	cmd.Flags().Uint64Var(&opts.Lamports, "lamports", 0, "record_purchase payment; omitted means the amount")
	cmd.Flags().StringArrayVar(&opts.Roles, "role", nil, "account role as role=ref (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Signers, "signer", nil, "key ref that signed the call (repeatable)")
	cmd.Flags().Uint64Var(&opts.Now, "now", 0, "clock reading in unix seconds (default wall clock)")
	cmd.Flags().StringVar(&opts.Data, "data", "", "raw instruction bytes as hex, replacing the encoded instruction")

	return cmd
}

func invokeOperation(opts *InvokeOptions, operation string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := opts.formatter(cmd)

	op, err := instruction.ParseOpcode(operation)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid operation", err)
	}
	roles, err := parseRoles(op, opts.Roles)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --role", err)
	}

	data := instruction.Encode(instruction.Instruction{
		Op:               op,
		Raw:              opts.Amount,
		Lamports:         opts.Lamports,
		ExplicitLamports: op == instruction.OpRecordPurchase && cmd.Flags().Changed("lamports"),
	})
	if cmd.Flags().Changed("data") {
		if data, err = hex.DecodeString(opts.Data); err != nil {
			return WrapExitError(ExitCommandError, "invalid --data", err)
		}
	}

	st, meta, err := openInitialized(ctx, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	accounts, err := manifest.Accounts(op, roles, opts.Signers, meta.ProgramID)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid account reference", err)
	}

	runtimeOpts := []host.Option{host.WithLogger(opts.logger())}
	if cmd.Flags().Changed("now") {
		runtimeOpts = append(runtimeOpts, host.WithClock(host.StaticClock(opts.Now)))
	}
	rt, err := host.NewRuntime(ctx, st, runtimeOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start runtime", err)
	}

	res, err := rt.Invoke(ctx, host.Call{Accounts: accounts, Data: data})
	if err != nil {
		return WrapExitError(ExitCommandError, "invocation failed", err)
	}
	out.VerboseLog("session %s, entry %s", res.Entry.Session, res.Entry.ID)

	result := newInvokeResult(res, meta)
	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result, Session: res.Entry.Session}
		if result.ErrorCode != "" {
			response.Status = "error"
			response.Error = &CLIError{Code: result.ErrorCode, Message: result.ErrorMessage}
		}
		if err := writeJSON(cmd, response); err != nil {
			return err
		}
	} else {
		result.renderText(cmd.OutOrStdout())
	}

	if result.ErrorCode != "" {
		return NewExitError(ExitFailure, fmt.Sprintf("instruction rejected: %s", result.ErrorCode))
	}
	return nil
}

// parseRoles splits role=ref pairs, rejecting roles the operation does not
// take.
func parseRoles(op instruction.Opcode, pairs []string) (map[account.Role]string, error) {
	valid := make(map[account.Role]bool)
	for _, role := range account.Layout(op) {
		valid[role] = true
	}

	roles := make(map[account.Role]string, len(pairs))
	for _, pair := range pairs {
		name, ref, ok := strings.Cut(pair, "=")
		if !ok || ref == "" {
			return nil, fmt.Errorf("%q: want role=ref", pair)
		}
		role := account.Role(name)
		if !valid[role] {
			return nil, fmt.Errorf("%s does not take role %q", op, name)
		}
		roles[role] = ref
	}
	return roles, nil
}

func newInvokeResult(res host.Result, meta store.Meta) InvokeResult {
	result := InvokeResult{
		ID:           res.Entry.ID,
		Seq:          res.Entry.Seq,
		Op:           res.Entry.Op,
		Now:          res.Entry.Now,
		Applied:      res.Receipt.Applied,
		ErrorCode:    res.Entry.ErrorCode,
		ErrorMessage: res.Entry.ErrorMessage,
		Writes:       []WriteView{},
		Effects:      []EffectView{},
	}
	for _, w := range res.Receipt.Writes {
		result.Writes = append(result.Writes, WriteView{
			Role:  string(w.Role),
			Key:   w.Handle.Key.String(),
			Value: binary.LittleEndian.Uint64(w.Data),
		})
	}
	for _, e := range res.Entry.Effects {
		result.Effects = append(result.Effects, effectView(e, meta))
	}
	return result
}

func effectView(e store.Effect, meta store.Meta) EffectView {
	return EffectView{
		Kind:        string(e.Kind),
		Source:      keyLabel(e.Source, meta),
		Destination: keyLabel(e.Destination, meta),
		Amount:      e.Amount,
	}
}
