package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/presale/internal/testutil"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEntry creates an applied journal entry with minimal required fields.
func createTestEntry(id string, seq int64) Entry {
	return Entry{
		ID:        id,
		Seq:       seq,
		Session:   "session-1",
		ProgramID: testutil.Key("program"),
		Op:        "record_purchase",
		Data:      []byte{0, 1, 0, 0, 0, 0, 0, 0, 0},
		Accounts:  []AccountRef{{Key: testutil.Key("payer"), Signer: true}},
		Now:       1_700_000_000,
	}
}
