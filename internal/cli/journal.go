package cli

import (
	"fmt"
	"io"

	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"

	"github.com/roach88/presale/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Session string // optional - filter to one session
	Op      string // optional - filter to one operation
}

// JournalEntry is one journaled invocation.
type JournalEntry struct {
	ID           string       `json:"id"`
	Seq          int64        `json:"seq"`
	Session      string       `json:"session"`
	Op           string       `json:"op"`
	Now          uint64       `json:"now"`
	Data         string       `json:"data"` // base58
	Accounts     []string     `json:"accounts"`
	Signers      []string     `json:"signers"`
	ErrorCode    string       `json:"error_code,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Effects      []EffectView `json:"effects"`
}

// JournalResult lists journal entries in seq order.
type JournalResult struct {
	Entries []JournalEntry `json:"entries"`
	Total   int            `json:"total"`
	Applied int            `json:"applied"`
}

func (r JournalResult) renderText(w io.Writer) {
	if r.Total == 0 {
		fmt.Fprintln(w, "No journal entries found.")
		return
	}

	for _, e := range r.Entries {
		status := "✓"
		outcome := "ok"
		if e.ErrorCode != "" {
			status = "✗"
			outcome = e.ErrorCode
		}
		fmt.Fprintf(w, "%s [%d] %s %s\n", status, e.Seq, e.Op, outcome)
		fmt.Fprintf(w, "  id:      %s\n", e.ID)
		fmt.Fprintf(w, "  session: %s\n", e.Session)
		fmt.Fprintf(w, "  now:     %d\n", e.Now)
		fmt.Fprintf(w, "  data:    %s\n", e.Data)
		for _, eff := range e.Effects {
			fmt.Fprintf(w, "  effect:  %s %s -> %s %s\n", eff.Kind, eff.Source, eff.Destination, formatAmount(eff.Amount))
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Journal: %d entries, %d applied, %d rejected\n", r.Total, r.Applied, r.Total-r.Applied)
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List journaled invocations",
		Long: `List every journaled invocation in seq order, including rejected
ones with their error code. Instruction data is shown as base58.

Examples:
  presale journal
  presale journal --op record_purchase
  presale journal --session 01928f3e-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Session, "session", "", "filter to a session token")
	cmd.Flags().StringVar(&opts.Op, "op", "", "filter to an operation name")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	st, meta, err := openInitialized(ctx, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.ReadJournal(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result := JournalResult{Entries: []JournalEntry{}}
	for _, e := range entries {
		if opts.Session != "" && e.Session != opts.Session {
			continue
		}
		if opts.Op != "" && e.Op != opts.Op {
			continue
		}
		result.Entries = append(result.Entries, journalEntry(e, meta))
		if e.Applied() {
			result.Applied++
		}
	}
	result.Total = len(result.Entries)

	return opts.formatter(cmd).Success(result)
}

func journalEntry(e store.Entry, meta store.Meta) JournalEntry {
	out := JournalEntry{
		ID:           e.ID,
		Seq:          e.Seq,
		Session:      e.Session,
		Op:           e.Op,
		Now:          e.Now,
		Data:         base58.Encode(e.Data),
		Accounts:     make([]string, 0, len(e.Accounts)),
		Signers:      []string{},
		ErrorCode:    e.ErrorCode,
		ErrorMessage: e.ErrorMessage,
		Effects:      make([]EffectView, 0, len(e.Effects)),
	}
	for _, ref := range e.Accounts {
		label := keyLabel(ref.Key, meta)
		out.Accounts = append(out.Accounts, label)
		if ref.Signer {
			out.Signers = append(out.Signers, label)
		}
	}
	for _, eff := range e.Effects {
		out.Effects = append(out.Effects, effectView(eff, meta))
	}
	return out
}
