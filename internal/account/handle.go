package account

import (
	"bytes"

	"github.com/gagliardetto/solana-go"
)

// Handle is one account supplied to an invocation: a storage slot, a wallet,
// or a program. The host fills IsSigner after verifying signatures.
type Handle struct {
	Key        solana.PublicKey
	Owner      solana.PublicKey
	Lamports   uint64
	Data       []byte
	IsSigner   bool
	IsWritable bool
}

// Clone returns a deep copy of h.
func (h *Handle) Clone() *Handle {
	c := *h
	if h.Data != nil {
		c.Data = append([]byte(nil), h.Data...)
	}
	return &c
}

// OwnedBy reports whether the slot is tagged with the given owner.
func (h *Handle) OwnedBy(owner solana.PublicKey) bool {
	return h.Owner.Equals(owner)
}

// Equal reports whether two handles hold identical state.
func (h *Handle) Equal(o *Handle) bool {
	return h.Key.Equals(o.Key) &&
		h.Owner.Equals(o.Owner) &&
		h.Lamports == o.Lamports &&
		h.IsSigner == o.IsSigner &&
		h.IsWritable == o.IsWritable &&
		bytes.Equal(h.Data, o.Data)
}
