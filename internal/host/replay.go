package host

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/roach88/presale/internal/store"
)

// Divergence describes one journal entry whose replayed outcome differs
// from the recorded one.
type Divergence struct {
	Seq      int64
	ID       string
	Recorded string
	Replayed string
}

// ReplayResult summarizes a replay.
type ReplayResult struct {
	Entries     int
	Divergences []Divergence

	// StateDiff is a go-cmp diff of recorded versus replayed slots, empty
	// when they match.
	StateDiff string
}

// Deterministic reports whether the replay reproduced the recorded journal
// and state exactly.
func (r ReplayResult) Deterministic() bool {
	return len(r.Divergences) == 0 && r.StateDiff == ""
}

// Replay rebuilds state from src's genesis snapshot in a private in-memory
// store, re-invokes every journal entry with its recorded seq, session and
// clock reading, and compares the result against src.
func Replay(ctx context.Context, src *store.Store, logger *slog.Logger) (ReplayResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	meta, err := src.ReadMeta(ctx)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}
	genesis, err := src.ReadGenesis(ctx)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}
	journal, err := src.ReadJournal(ctx)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	mem, err := store.Open(store.MemoryPath)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}
	defer mem.Close()

	if err := mem.WriteGenesis(ctx, meta, genesis); err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	rt, err := NewRuntime(ctx, mem, WithLogger(logger))
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	result := ReplayResult{Entries: len(journal)}
	for _, recorded := range journal {
		call := Call{ProgramID: recorded.ProgramID, Accounts: recorded.Accounts, Data: recorded.Data}
		replayed, err := rt.invokeAt(ctx, call, recorded.Now, recorded.Seq, recorded.Session)
		if err != nil {
			return ReplayResult{}, fmt.Errorf("replay seq %d: %w", recorded.Seq, err)
		}

		if d := compareEntries(recorded, replayed.Entry); d != nil {
			logger.Warn("replay divergence", "seq", d.Seq, "id", d.ID, "recorded", d.Recorded, "replayed", d.Replayed)
			result.Divergences = append(result.Divergences, *d)
		}
	}

	want, err := src.ListSlots(ctx)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}
	got, err := mem.ListSlots(ctx)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}
	result.StateDiff = cmp.Diff(want, got)

	logger.Info("replay complete",
		"entries", result.Entries,
		"divergences", len(result.Divergences),
		"deterministic", result.Deterministic(),
	)
	return result, nil
}

func compareEntries(recorded, replayed store.Entry) *Divergence {
	switch {
	case recorded.ID != replayed.ID:
		return &Divergence{Seq: recorded.Seq, ID: recorded.ID, Recorded: "id " + recorded.ID, Replayed: "id " + replayed.ID}
	case recorded.ErrorCode != replayed.ErrorCode:
		return &Divergence{Seq: recorded.Seq, ID: recorded.ID, Recorded: outcome(recorded), Replayed: outcome(replayed)}
	case !cmp.Equal(recorded.Effects, replayed.Effects, cmpopts.EquateEmpty()):
		return &Divergence{
			Seq:      recorded.Seq,
			ID:       recorded.ID,
			Recorded: fmt.Sprintf("%d effects", len(recorded.Effects)),
			Replayed: fmt.Sprintf("%d effects", len(replayed.Effects)),
		}
	}
	return nil
}

func outcome(e store.Entry) string {
	if e.Applied() {
		return "applied"
	}
	return e.ErrorCode
}
