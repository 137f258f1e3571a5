package host

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/roach88/presale/internal/account"
	"github.com/roach88/presale/internal/engine"
	"github.com/roach88/presale/internal/instruction"
	"github.com/roach88/presale/internal/programerr"
	"github.com/roach88/presale/internal/store"
)

// AccountRef is one entry of a call's account list.
type AccountRef = store.AccountRef

// Call is one instruction submitted to the runtime.
type Call struct {
	// ProgramID defaults to the store's program when zero.
	ProgramID solana.PublicKey
	Accounts  []AccountRef
	Data      []byte
}

// Result is the outcome of one invocation.
type Result struct {
	// Entry is the journaled record, with ID and seq assigned.
	Entry store.Entry

	// Receipt is set when the instruction applied.
	Receipt engine.Receipt

	// Err is the program error for a rejected instruction, nil otherwise.
	Err error
}

// Runtime executes instructions against a store.
//
// Invoke is serialized: one invocation loads, applies and commits before the
// next starts.
type Runtime struct {
	mu sync.Mutex

	store    *store.Store
	meta     store.Meta
	clock    engine.ClockOracle
	seq      *SeqClock
	sessions SessionGenerator
	logger   *slog.Logger
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithClock sets the clock oracle. Default: SystemClock.
func WithClock(c engine.ClockOracle) Option {
	return func(r *Runtime) {
		r.clock = c
	}
}

// WithSessions sets the session token generator. Default: UUIDv7Generator.
func WithSessions(g SessionGenerator) Option {
	return func(r *Runtime) {
		r.sessions = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = l
	}
}

// NewRuntime binds a runtime to an initialized store. The logical clock
// resumes after the last journaled seq.
func NewRuntime(ctx context.Context, st *store.Store, opts ...Option) (*Runtime, error) {
	meta, err := st.ReadMeta(ctx)
	if err != nil {
		return nil, fmt.Errorf("new runtime: %w", err)
	}
	last, err := st.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("new runtime: %w", err)
	}

	r := &Runtime{
		store:    st,
		meta:     meta,
		clock:    SystemClock{},
		seq:      NewSeqClockAt(last),
		sessions: UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Meta returns the program identity the runtime serves.
func (r *Runtime) Meta() store.Meta {
	return r.meta
}

// Invoke applies one call and journals it.
//
// A rejected instruction is not an error: it is journaled and reported in
// Result.Err. The returned error is reserved for storage failures and
// context cancellation, in which case nothing is journaled.
func (r *Runtime) Invoke(ctx context.Context, call Call) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.invokeAt(ctx, call, r.clock.Now(), r.seq.Next(), r.sessions.Generate())
}

// invokeAt runs call with an explicit clock reading, seq and session.
// Replay drives it with journaled values.
func (r *Runtime) invokeAt(ctx context.Context, call Call, now uint64, seq int64, session string) (Result, error) {
	programID := call.ProgramID
	if programID.IsZero() {
		programID = r.meta.ProgramID
	}

	handles, loaded, err := r.load(ctx, call.Accounts)
	if err != nil {
		return Result{}, err
	}

	bank := &Bank{}
	proc := engine.New(r.meta.Initializer, invocationHost{Bank: bank, now: now}, engine.WithLogger(r.logger))
	receipt, applyErr := proc.Apply(ctx, programID, handles, call.Data)

	entry := store.Entry{
		Seq:       seq,
		Session:   session,
		ProgramID: programID,
		Op:        opName(call.Data),
		Data:      append([]byte{}, call.Data...),
		Accounts:  append([]AccountRef{}, call.Accounts...),
		Now:       now,
	}
	entry.ID, err = EntryID(entry)
	if err != nil {
		return Result{}, err
	}

	var dirty []store.Slot
	if applyErr != nil {
		code := programerr.CodeOf(applyErr)
		if code == "" {
			return Result{}, fmt.Errorf("invoke: %w", applyErr)
		}
		entry.ErrorCode = string(code)
		entry.ErrorMessage = applyErr.Error()
	} else {
		entry.Effects = bank.Effects()
		dirty = dirtySlots(loaded, handles)
	}

	if err := r.store.Commit(ctx, entry, dirty); err != nil {
		return Result{}, fmt.Errorf("invoke: %w", err)
	}

	r.logger.Info("invocation journaled",
		"id", entry.ID,
		"seq", entry.Seq,
		"session", entry.Session,
		"op", entry.Op,
		"code", entry.ErrorCode,
		"slots", len(dirty),
		"effects", len(entry.Effects),
	)

	return Result{Entry: entry, Receipt: receipt, Err: applyErr}, nil
}

// load builds the working handle list. Repeated keys alias one handle whose
// signer flag is the OR of every reference.
func (r *Runtime) load(ctx context.Context, refs []AccountRef) ([]*account.Handle, map[solana.PublicKey]*account.Handle, error) {
	byKey := make(map[solana.PublicKey]*account.Handle, len(refs))
	loaded := make(map[solana.PublicKey]*account.Handle, len(refs))
	handles := make([]*account.Handle, len(refs))

	for i, ref := range refs {
		h, ok := byKey[ref.Key]
		if !ok {
			slot, found, err := r.store.ReadSlot(ctx, ref.Key)
			if err != nil {
				return nil, nil, fmt.Errorf("load %s: %w", ref.Key, err)
			}
			h = &account.Handle{
				Key:        ref.Key,
				Owner:      solana.SystemProgramID,
				Data:       []byte{},
				IsWritable: true,
			}
			if found {
				h.Owner = slot.Owner
				h.Lamports = slot.Lamports
				h.Data = slot.Data
			}
			byKey[ref.Key] = h
			loaded[ref.Key] = h.Clone()
		}
		h.IsSigner = h.IsSigner || ref.Signer
		handles[i] = h
	}
	return handles, loaded, nil
}

// dirtySlots returns the handles whose stored state changed, in first
// reference order.
func dirtySlots(loaded map[solana.PublicKey]*account.Handle, handles []*account.Handle) []store.Slot {
	var out []store.Slot
	seen := make(map[solana.PublicKey]bool, len(handles))
	for _, h := range handles {
		if seen[h.Key] {
			continue
		}
		seen[h.Key] = true

		before := loaded[h.Key]
		if before.Lamports == h.Lamports && before.Owner.Equals(h.Owner) && string(before.Data) == string(h.Data) {
			continue
		}
		out = append(out, store.Slot{
			Key:      h.Key,
			Owner:    h.Owner,
			Lamports: h.Lamports,
			Data:     append([]byte{}, h.Data...),
		})
	}
	return out
}

// opName labels a journal entry by its opcode tag.
func opName(data []byte) string {
	if len(data) == 0 {
		return "empty"
	}
	return instruction.Opcode(data[0]).String()
}

// invocationHost pins the clock reading for one invocation.
type invocationHost struct {
	*Bank
	now uint64
}

func (h invocationHost) Now() uint64 {
	return h.now
}
