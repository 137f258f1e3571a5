package store

import (
	"context"
	"database/sql"
	"fmt"
)

// WriteGenesis records the program identity and the initial slots.
//
// The slots are written both to the live slot table and to the genesis
// snapshot used by replay. Returns ErrAlreadyInitialized if a genesis
// already exists; the store is left unchanged in that case.
func (s *Store) WriteGenesis(ctx context.Context, meta Meta, slots []Slot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write genesis: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var existing int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM meta`).Scan(&existing); err != nil {
		return fmt.Errorf("write genesis: count meta: %w", err)
	}
	if existing > 0 {
		return ErrAlreadyInitialized
	}

	for _, kv := range [][2]string{
		{"program_id", meta.ProgramID.String()},
		{"initializer", meta.Initializer.String()},
	} {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (name, value) VALUES (?, ?)`, kv[0], kv[1]); err != nil {
			return fmt.Errorf("write genesis: meta %s: %w", kv[0], err)
		}
	}

	for _, slot := range slots {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO genesis_slots (key, owner, lamports, data)
			VALUES (?, ?, ?, ?)
		`, slot.Key.String(), slot.Owner.String(), formatU64(slot.Lamports), blob(slot.Data)); err != nil {
			return fmt.Errorf("write genesis: slot %s: %w", slot.Key, err)
		}
		slot.Seq = 0
		if err := upsertSlot(ctx, tx, slot); err != nil {
			return fmt.Errorf("write genesis: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write genesis: commit: %w", err)
	}
	return nil
}

// Commit journals an invocation and, when it applied, persists its slot
// writes and effects in the same transaction.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: committing an entry whose
// ID is already journaled is a no-op and its slots are not rewritten.
// Rejected entries must carry no slots.
func (s *Store) Commit(ctx context.Context, entry Entry, slots []Slot) error {
	if !entry.Applied() && len(slots) > 0 {
		return fmt.Errorf("commit %s: rejected entry carries %d slot writes", entry.ID, len(slots))
	}

	accountsJSON, err := marshalAccounts(entry.Accounts)
	if err != nil {
		return fmt.Errorf("commit %s: %w", entry.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit %s: begin tx: %w", entry.ID, err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO journal
		(id, seq, session, program_id, op, data, accounts, now, error_code, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		entry.ID,
		entry.Seq,
		entry.Session,
		entry.ProgramID.String(),
		entry.Op,
		blob(entry.Data),
		accountsJSON,
		formatU64(entry.Now),
		entry.ErrorCode,
		entry.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("commit %s: insert journal: %w", entry.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("commit %s: rows affected: %w", entry.ID, err)
	}
	if rowsAffected == 0 {
		// Already journaled.
		return nil
	}

	for _, eff := range entry.Effects {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO effects
			(journal_id, idx, kind, program, source, destination, amount, instruction)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			entry.ID,
			eff.Index,
			string(eff.Kind),
			eff.Program.String(),
			eff.Source.String(),
			eff.Destination.String(),
			formatU64(eff.Amount),
			blob(eff.Instruction),
		); err != nil {
			return fmt.Errorf("commit %s: effect %d: %w", entry.ID, eff.Index, err)
		}
	}

	for _, slot := range slots {
		slot.Seq = entry.Seq
		if err := upsertSlot(ctx, tx, slot); err != nil {
			return fmt.Errorf("commit %s: %w", entry.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: commit: %w", entry.ID, err)
	}
	return nil
}

func upsertSlot(ctx context.Context, tx *sql.Tx, slot Slot) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO slots (key, owner, lamports, data, seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			owner = excluded.owner,
			lamports = excluded.lamports,
			data = excluded.data,
			seq = excluded.seq
	`, slot.Key.String(), slot.Owner.String(), formatU64(slot.Lamports), blob(slot.Data), slot.Seq)
	if err != nil {
		return fmt.Errorf("upsert slot %s: %w", slot.Key, err)
	}
	return nil
}

// blob keeps NOT NULL columns satisfied for empty payloads.
func blob(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
