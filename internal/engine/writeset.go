package engine

import "github.com/roach88/presale/internal/account"

// Write is one staged slot overwrite.
type Write struct {
	Role   account.Role
	Handle *account.Handle
	Data   []byte
}

// writeSet buffers record writes until every precondition has passed.
type writeSet struct {
	writes []Write
}

func (w *writeSet) stage(role account.Role, h *account.Handle, data []byte) {
	w.writes = append(w.writes, Write{Role: role, Handle: h, Data: data})
}

// commit copies staged data onto the handles in staging order.
func (w *writeSet) commit() []Write {
	for _, wr := range w.writes {
		wr.Handle.Data = wr.Data
	}
	return w.writes
}
