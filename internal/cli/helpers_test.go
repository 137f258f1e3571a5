package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const testProgram = "D7LrCJJgZunxgdFd7dUyamDn1XTBZtM3KVGKgDM4vDvA"

const testManifest = `program_id: D7LrCJJgZunxgdFd7dUyamDn1XTBZtM3KVGKgDM4vDvA
initializer: admin
slots:
  - {name: ledger, kind: purchase_ledger}
  - {name: pool, kind: supply_pool}
  - {name: schedule, kind: release_schedule}
  - {name: treasury, kind: wallet}
  - {name: admin, kind: wallet, lamports: 1000}
  - {name: alice, kind: wallet, lamports: 5000}
`

// newTestOptions returns root options pointing at a fresh database path.
func newTestOptions(t *testing.T, format string) *RootOptions {
	t.Helper()
	return &RootOptions{
		Format:   format,
		Database: filepath.Join(t.TempDir(), "presale.db"),
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs cmd with args and returns its stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// initDB writes the test manifest genesis into opts.Database.
func initDB(t *testing.T, opts *RootOptions) {
	t.Helper()
	path := writeFile(t, t.TempDir(), "genesis.yaml", testManifest)
	_, err := execute(t, NewInitCommand(&RootOptions{Format: "text", Database: opts.Database}), path)
	require.NoError(t, err)
}

var (
	supplyArgs = []string{
		"initialize_supply", "--amount", "5",
		"--role", "supply_pool=pool", "--role", "recipient=treasury", "--role", "payer=admin",
		"--signer", "admin", "--now", "1700000000",
	}
	purchaseRoles = []string{
		"--role", "purchase_ledger=ledger", "--role", "supply_pool=pool",
		"--role", "recipient=treasury", "--role", "payer=alice", "--role", "release_schedule=schedule",
		"--now", "1700000000",
	}
)

func purchaseArgs(amount string, extra ...string) []string {
	args := append([]string{"record_purchase", "--amount", amount}, purchaseRoles...)
	return append(args, extra...)
}
