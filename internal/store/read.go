package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ReadMeta returns the program identity recorded at genesis.
// Returns ErrNotInitialized if no genesis has been written.
func (s *Store) ReadMeta(ctx context.Context) (Meta, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM meta ORDER BY name`)
	if err != nil {
		return Meta{}, fmt.Errorf("query meta: %w", err)
	}
	defer rows.Close()

	values := map[string]string{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Meta{}, fmt.Errorf("scan meta: %w", err)
		}
		values[name] = value
	}
	if err := rows.Err(); err != nil {
		return Meta{}, fmt.Errorf("iterate meta: %w", err)
	}
	if len(values) == 0 {
		return Meta{}, ErrNotInitialized
	}

	var meta Meta
	if meta.ProgramID, err = parseKey("program_id", values["program_id"]); err != nil {
		return Meta{}, err
	}
	if meta.Initializer, err = parseKey("initializer", values["initializer"]); err != nil {
		return Meta{}, err
	}
	return meta, nil
}

// ReadSlot returns the slot stored under key. ok is false when the key has
// never been written.
func (s *Store) ReadSlot(ctx context.Context, key solana.PublicKey) (slot Slot, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, owner, lamports, data, seq
		FROM slots
		WHERE key = ?
	`, key.String())

	slot, err = scanSlot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Slot{}, false, nil
	}
	if err != nil {
		return Slot{}, false, err
	}
	return slot, true, nil
}

// ListSlots returns every live slot ordered by key.
//
// Returns an empty slice (not nil) if no slots exist.
func (s *Store) ListSlots(ctx context.Context) ([]Slot, error) {
	return s.querySlots(ctx, `
		SELECT key, owner, lamports, data, seq
		FROM slots
		ORDER BY key COLLATE BINARY ASC
	`)
}

// ReadGenesis returns the genesis snapshot ordered by key.
func (s *Store) ReadGenesis(ctx context.Context) ([]Slot, error) {
	return s.querySlots(ctx, `
		SELECT key, owner, lamports, data, 0
		FROM genesis_slots
		ORDER BY key COLLATE BINARY ASC
	`)
}

func (s *Store) querySlots(ctx context.Context, query string) ([]Slot, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer rows.Close()

	slots := []Slot{}
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}
	return slots, nil
}

// LastSeq returns the highest journaled seq, or 0 for an empty journal.
// Used to resume the logical clock after reopening a store.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM journal`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

// ReadJournal returns every journal entry with its effects.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) ReadJournal(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, session, program_id, op, data, accounts, now, error_code, error_message
		FROM journal
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}

	entries := []Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	// Close before issuing effect queries on the single pooled connection.
	rows.Close()

	for i := range entries {
		effects, err := s.readEffects(ctx, entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].Effects = effects
	}
	return entries, nil
}

// ReadEntry retrieves a single journal entry by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadEntry(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, session, program_id, op, data, accounts, now, error_code, error_message
		FROM journal
		WHERE id = ?
	`, id)

	entry, err := scanEntry(row)
	if err != nil {
		return Entry{}, err
	}
	entry.Effects, err = s.readEffects(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (s *Store) readEffects(ctx context.Context, journalID string) ([]Effect, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, kind, program, source, destination, amount, instruction
		FROM effects
		WHERE journal_id = ?
		ORDER BY idx ASC
	`, journalID)
	if err != nil {
		return nil, fmt.Errorf("query effects: %w", err)
	}
	defer rows.Close()

	effects := []Effect{}
	for rows.Next() {
		var (
			eff                             Effect
			kind, program, src, dst, amount string
		)
		if err := rows.Scan(&eff.Index, &kind, &program, &src, &dst, &amount, &eff.Instruction); err != nil {
			return nil, fmt.Errorf("scan effect: %w", err)
		}
		eff.Kind = EffectKind(kind)
		if eff.Program, err = parseKey("effect program", program); err != nil {
			return nil, err
		}
		if eff.Source, err = parseKey("effect source", src); err != nil {
			return nil, err
		}
		if eff.Destination, err = parseKey("effect destination", dst); err != nil {
			return nil, err
		}
		if eff.Amount, err = parseU64("effect amount", amount); err != nil {
			return nil, err
		}
		effects = append(effects, eff)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate effects: %w", err)
	}
	return effects, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSlot(row scanner) (Slot, error) {
	var (
		slot                 Slot
		key, owner, lamports string
	)
	if err := row.Scan(&key, &owner, &lamports, &slot.Data, &slot.Seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Slot{}, err
		}
		return Slot{}, fmt.Errorf("scan slot: %w", err)
	}

	var err error
	if slot.Key, err = parseKey("slot key", key); err != nil {
		return Slot{}, err
	}
	if slot.Owner, err = parseKey("slot owner", owner); err != nil {
		return Slot{}, err
	}
	if slot.Lamports, err = parseU64("slot lamports", lamports); err != nil {
		return Slot{}, err
	}
	if slot.Data == nil {
		slot.Data = []byte{}
	}
	return slot, nil
}

func scanEntry(row scanner) (Entry, error) {
	var (
		entry                    Entry
		programID, accounts, now string
	)
	if err := row.Scan(
		&entry.ID,
		&entry.Seq,
		&entry.Session,
		&programID,
		&entry.Op,
		&entry.Data,
		&accounts,
		&now,
		&entry.ErrorCode,
		&entry.ErrorMessage,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan journal entry: %w", err)
	}

	var err error
	if entry.ProgramID, err = parseKey("program_id", programID); err != nil {
		return Entry{}, err
	}
	if entry.Accounts, err = unmarshalAccounts(accounts); err != nil {
		return Entry{}, err
	}
	if entry.Now, err = parseU64("now", now); err != nil {
		return Entry{}, err
	}
	if entry.Data == nil {
		entry.Data = []byte{}
	}
	return entry, nil
}
