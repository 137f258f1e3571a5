package host

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"github.com/roach88/presale/internal/store"
)

// DomainEntry prefixes journal entry hashes. The version suffix allows a
// future algorithm migration.
const DomainEntry = "presale/entry/v1"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EntryID computes the content-addressed ID of a journal entry.
//
// The ID covers seq, session, program, account list, clock reading and
// instruction data. Outcome fields are excluded: the ID names what was
// asked, so a replay that diverges keeps the same ID and the outcome can be
// compared.
func EntryID(e store.Entry) (string, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)

	write := func(err error) error {
		if err != nil {
			return fmt.Errorf("entry id: %w", err)
		}
		return nil
	}

	if err := write(enc.WriteUint64(uint64(e.Seq), bin.LE)); err != nil {
		return "", err
	}
	if err := write(enc.WriteRustString(e.Session)); err != nil {
		return "", err
	}
	if err := write(enc.WriteBytes(e.ProgramID[:], false)); err != nil {
		return "", err
	}
	if err := write(enc.WriteUint32(uint32(len(e.Accounts)), bin.LE)); err != nil {
		return "", err
	}
	for _, ref := range e.Accounts {
		if err := write(enc.WriteBytes(ref.Key[:], false)); err != nil {
			return "", err
		}
		if err := write(enc.WriteBool(ref.Signer)); err != nil {
			return "", err
		}
	}
	if err := write(enc.WriteUint64(e.Now, bin.LE)); err != nil {
		return "", err
	}
	if err := write(enc.WriteBytes(e.Data, true)); err != nil {
		return "", err
	}

	return hashWithDomain(DomainEntry, buf.Bytes()), nil
}
