package manifest

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/roach88/presale/internal/record"
	"github.com/roach88/presale/internal/store"
)

// Genesis resolves the manifest into the store meta and initial slots.
//
// Manifest program_id and initializer take precedence; fallback supplies
// whatever the manifest leaves out. A program id is required.
func (m *Manifest) Genesis(fallback store.Meta) (store.Meta, []store.Slot, error) {
	meta := fallback
	if m.ProgramID != "" {
		key, err := solana.PublicKeyFromBase58(m.ProgramID)
		if err != nil {
			return store.Meta{}, nil, fmt.Errorf("genesis: program_id: %w", err)
		}
		meta.ProgramID = key
	}
	if meta.ProgramID.IsZero() {
		return store.Meta{}, nil, fmt.Errorf("genesis: program id is not set")
	}
	if m.Initializer != "" {
		key, err := ResolveKey(m.Initializer, meta.ProgramID)
		if err != nil {
			return store.Meta{}, nil, fmt.Errorf("genesis: initializer: %w", err)
		}
		meta.Initializer = key
	}

	seen := make(map[solana.PublicKey]string, len(m.Slots))
	slots := make([]store.Slot, 0, len(m.Slots))
	for i, s := range m.Slots {
		slot, err := s.build(meta.ProgramID)
		if err != nil {
			return store.Meta{}, nil, fmt.Errorf("genesis: slot %d (%s): %w", i, s.label(), err)
		}
		if prev, dup := seen[slot.Key]; dup {
			return store.Meta{}, nil, fmt.Errorf("genesis: slot %d (%s): key already used by %s", i, s.label(), prev)
		}
		seen[slot.Key] = s.label()
		slots = append(slots, slot)
	}
	return meta, slots, nil
}

func (s Slot) label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Key
}

func (s Slot) build(programID solana.PublicKey) (store.Slot, error) {
	ref := s.Key
	if ref == "" {
		ref = s.Name
	}
	key, err := ResolveKey(ref, programID)
	if err != nil {
		return store.Slot{}, fmt.Errorf("key: %w", err)
	}

	var (
		owner solana.PublicKey
		data  []byte
	)
	switch s.Kind {
	case KindPurchaseLedger:
		owner = programID
		data, err = record.Encode(record.PurchaseLedger{AccumulatedAmount: s.Value})
	case KindSupplyPool:
		owner = programID
		data, err = record.Encode(record.SupplyPool{RemainingAmount: s.Value})
	case KindReleaseSchedule:
		owner = programID
		data, err = record.Encode(record.ReleaseSchedule{ReleaseTimestamp: s.Value})
	case KindTokenAccount:
		owner = solana.TokenProgramID
		var authority solana.PublicKey
		if s.Authority != "" {
			if authority, err = ResolveKey(s.Authority, programID); err != nil {
				return store.Slot{}, fmt.Errorf("authority: %w", err)
			}
		}
		data, err = record.Encode(record.TokenAccount{Authority: authority, Amount: s.Amount})
	case KindWallet:
		owner = solana.SystemProgramID
		data = []byte{}
	default:
		return store.Slot{}, fmt.Errorf("unknown kind %q", s.Kind)
	}
	if err != nil {
		return store.Slot{}, err
	}

	if s.Size > 0 {
		if s.Size < len(data) {
			return store.Slot{}, fmt.Errorf("size %d is smaller than the %s layout (%d bytes)", s.Size, s.Kind, len(data))
		}
		padded := make([]byte, s.Size)
		copy(padded, data)
		data = padded
	}

	if s.Owner != "" {
		if owner, err = ResolveKey(s.Owner, programID); err != nil {
			return store.Slot{}, fmt.Errorf("owner: %w", err)
		}
	}

	return store.Slot{Key: key, Owner: owner, Lamports: s.Lamports, Data: data}, nil
}
