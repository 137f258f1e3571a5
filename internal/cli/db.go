package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/roach88/presale/internal/store"
)

// openInitialized opens the database and checks that init has run.
func openInitialized(ctx context.Context, path string) (*store.Store, store.Meta, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, store.Meta{}, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	meta, err := st.ReadMeta(ctx)
	if err != nil {
		st.Close()
		if errors.Is(err, store.ErrNotInitialized) {
			return nil, store.Meta{}, NewExitError(ExitCommandError, fmt.Sprintf("database %s is not initialized: run 'presale init <manifest>'", path))
		}
		return nil, store.Meta{}, WrapExitError(ExitCommandError, "failed to read database meta", err)
	}
	return st, meta, nil
}

// keyLabel names well-known keys in text output.
func keyLabel(key solana.PublicKey, meta store.Meta) string {
	switch {
	case key.Equals(meta.ProgramID):
		return "program"
	case key.Equals(solana.SystemProgramID):
		return "system"
	case key.Equals(solana.TokenProgramID):
		return "token"
	}
	return key.String()
}
