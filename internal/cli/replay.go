package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/presale/internal/host"
)

// ReplayDivergence is one journal entry whose replay differed.
type ReplayDivergence struct {
	Seq      int64  `json:"seq"`
	ID       string `json:"id"`
	Recorded string `json:"recorded"`
	Replayed string `json:"replayed"`
}

// ReplayResult holds the replay outcome.
type ReplayResult struct {
	Entries       int                `json:"entries"`
	Divergences   []ReplayDivergence `json:"divergences"`
	StateDiff     string             `json:"state_diff,omitempty"`
	Deterministic bool               `json:"deterministic"`
}

func (r ReplayResult) renderText(w io.Writer) {
	fmt.Fprintf(w, "Replay Summary: %d journal entries\n", r.Entries)
	fmt.Fprintln(w)

	for _, d := range r.Divergences {
		fmt.Fprintf(w, "✗ seq %d (%s)\n", d.Seq, d.ID)
		fmt.Fprintf(w, "  recorded: %s\n", d.Recorded)
		fmt.Fprintf(w, "  replayed: %s\n", d.Replayed)
	}
	if r.StateDiff != "" {
		fmt.Fprintln(w, "✗ Final state differs (-recorded +replayed):")
		fmt.Fprintln(w, r.StateDiff)
	}

	if r.Deterministic {
		fmt.Fprintln(w, "✓ Journal verified deterministic")
		return
	}
	fmt.Fprintln(w, "✗ Determinism verification failed")
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the journal and verify determinism",
		Long: `Rebuild state from the genesis snapshot by re-running every journal
entry in seq order with its recorded clock reading and session, then
compare entry IDs, outcomes, effects and final slots with the database.

Exit codes:
  0 - Replay reproduced the journal and state exactly
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not initialized, etc.)

Examples:
  presale replay --db ./presale.db
  presale replay --db ./presale.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd)
		},
	}
	return cmd
}

func runReplay(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	st, _, err := openInitialized(ctx, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	replayed, err := host.Replay(ctx, st, opts.logger())
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	result := ReplayResult{
		Entries:       replayed.Entries,
		Divergences:   make([]ReplayDivergence, 0, len(replayed.Divergences)),
		StateDiff:     replayed.StateDiff,
		Deterministic: replayed.Deterministic(),
	}
	for _, d := range replayed.Divergences {
		result.Divergences = append(result.Divergences, ReplayDivergence(d))
	}

	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.Deterministic {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    "E_DETERMINISM",
				Message: "determinism verification failed",
			}
		}
		if err := writeJSON(cmd, response); err != nil {
			return err
		}
	} else {
		result.renderText(cmd.OutOrStdout())
	}

	if !result.Deterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}
