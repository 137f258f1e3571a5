package cli

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"

	"github.com/roach88/presale/internal/account"
	"github.com/roach88/presale/internal/instruction"
	"github.com/roach88/presale/internal/programerr"
)

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	Base58 bool
}

// DecodeResult describes a decoded instruction buffer.
type DecodeResult struct {
	Encoding         string   `json:"encoding"`
	Length           int      `json:"length"`
	Op               string   `json:"op"`
	Raw              uint64   `json:"raw"`
	Amount           uint64   `json:"amount"`
	Lamports         uint64   `json:"lamports,omitempty"`
	ExplicitLamports bool     `json:"explicit_lamports,omitempty"`
	Accounts         []string `json:"accounts"`
}

func (r DecodeResult) renderText(w io.Writer) {
	fmt.Fprintf(w, "%s (%d bytes, %s)\n", r.Op, r.Length, r.Encoding)
	fmt.Fprintf(w, "  amount:   %s", formatAmount(r.Amount))
	if r.Raw != r.Amount {
		fmt.Fprintf(w, " (raw %s)", formatAmount(r.Raw))
	}
	fmt.Fprintln(w)
	if r.Op == instruction.OpRecordPurchase.String() {
		source := "amount"
		if r.ExplicitLamports {
			source = "explicit"
		}
		fmt.Fprintf(w, "  lamports: %s (%s)\n", formatAmount(r.Lamports), source)
	}
	fmt.Fprintf(w, "  accounts: %s\n", strings.Join(r.Accounts, ", "))
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode <hex|base58>",
		Short: "Decode an instruction buffer",
		Long: `Decode an instruction buffer and show its fields and account layout.

The input is read as hex when it is valid hex, otherwise as base58.
Use --base58 to force base58.

Exit codes:
  0 - Buffer decoded
  1 - Buffer rejected (MALFORMED_INSTRUCTION or UNKNOWN_OPCODE)
  2 - Input is neither hex nor base58

Examples:
  presale decode 020500000000000000
  presale decode 2VUYmCLM1NKR`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Base58, "base58", false, "read the input as base58")

	return cmd
}

func runDecode(opts *DecodeOptions, input string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	data, encoding, err := decodeInput(input, opts.Base58)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid input", err)
	}

	ins, err := instruction.Decode(data)
	if err != nil {
		_ = out.Error(string(programerr.CodeOf(err)), err.Error(), map[string]any{"length": len(data)})
		return WrapExitError(ExitFailure, "decode failed", err)
	}

	result := DecodeResult{
		Encoding: encoding,
		Length:   len(data),
		Op:       ins.Op.String(),
		Raw:      ins.Raw,
		Amount:   ins.Amount,
		Accounts: []string{},
	}
	if ins.Op == instruction.OpRecordPurchase {
		result.Lamports = ins.Lamports
		result.ExplicitLamports = ins.ExplicitLamports
	}
	for _, role := range account.Layout(ins.Op) {
		result.Accounts = append(result.Accounts, string(role))
	}
	return out.Success(result)
}

// decodeInput reads s as hex, falling back to base58.
func decodeInput(s string, forceBase58 bool) ([]byte, string, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if !forceBase58 {
		if data, err := hex.DecodeString(s); err == nil {
			return data, "hex", nil
		}
	}
	data, err := base58.Decode(s)
	if err != nil {
		return nil, "", fmt.Errorf("%q is neither hex nor base58: %w", s, err)
	}
	return data, "base58", nil
}
