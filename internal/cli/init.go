package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/presale/internal/manifest"
	"github.com/roach88/presale/internal/store"
)

// InitResult is the payload of a successful init.
type InitResult struct {
	Database    string `json:"database"`
	ProgramID   string `json:"program_id"`
	Initializer string `json:"initializer"`
	Slots       int    `json:"slots"`
}

func (r InitResult) renderText(w io.Writer) {
	fmt.Fprintf(w, "✓ Initialized %s\n", r.Database)
	fmt.Fprintf(w, "  Program:     %s\n", r.ProgramID)
	fmt.Fprintf(w, "  Initializer: %s\n", r.Initializer)
	fmt.Fprintf(w, "  Slots:       %d\n", r.Slots)
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <manifest>",
		Short: "Write genesis state from a manifest",
		Long: `Validate a genesis manifest and write its slots to a new database.

The manifest's program_id and initializer take precedence over
PRESALE_PROGRAM_ID and PRESALE_INITIALIZER. A database can be initialized
only once.

Exit codes:
  0 - Genesis written
  2 - Invalid manifest or database already initialized

Examples:
  presale init genesis.yaml
  presale init genesis.yaml --db ./presale.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runInit(opts *RootOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := opts.formatter(cmd)

	m, err := manifest.Load(path)
	if err != nil {
		_ = out.Error("E_MANIFEST", err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid manifest", err)
	}

	fallback := store.Meta{ProgramID: opts.Config.ProgramID, Initializer: opts.Config.Initializer}
	meta, slots, err := m.Genesis(fallback)
	if err != nil {
		_ = out.Error("E_MANIFEST", err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid manifest", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := st.WriteGenesis(ctx, meta, slots); err != nil {
		if errors.Is(err, store.ErrAlreadyInitialized) {
			_ = out.Error("E_INITIALIZED", fmt.Sprintf("%s is already initialized", opts.Database), nil)
			return WrapExitError(ExitCommandError, "init refused", err)
		}
		return WrapExitError(ExitCommandError, "failed to write genesis", err)
	}

	out.VerboseLog("wrote %d genesis slots for program %s", len(slots), meta.ProgramID)

	return out.Success(InitResult{
		Database:    opts.Database,
		ProgramID:   meta.ProgramID.String(),
		Initializer: meta.Initializer.String(),
		Slots:       len(slots),
	})
}
