package testutil

import (
	"crypto/sha256"

	"github.com/gagliardetto/solana-go"
)

// Key derives a deterministic public key from a readable name.
// Distinct names give distinct keys; the same name always gives the same key.
func Key(name string) solana.PublicKey {
	sum := sha256.Sum256([]byte("presale/testkey/" + name))
	return solana.PublicKeyFromBytes(sum[:])
}
