package harness

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"github.com/roach88/presale/internal/account"
	"github.com/roach88/presale/internal/host"
	"github.com/roach88/presale/internal/instruction"
	"github.com/roach88/presale/internal/manifest"
	"github.com/roach88/presale/internal/store"
	"github.com/roach88/presale/internal/testutil"
)

// DefaultProgram is the program key reference used when a scenario names
// none.
const DefaultProgram = "presale-program"

// Harness is the test execution engine.
// It runs scenarios with a fixed clock and session token.
type Harness struct {
	store   *store.Store
	runtime *host.Runtime
	clock   *testutil.FixedClock
	program solana.PublicKey
	names   map[solana.PublicKey]string
	roles   map[account.Role]string
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database and write genesis
// 2. Execute steps through the host runtime, checking expectations
// 3. Evaluate assertions against final state
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	programRef := scenario.ProgramID
	if programRef == "" {
		programRef = DefaultProgram
	}
	program, err := manifest.ResolveKey(programRef, solana.PublicKey{})
	if err != nil {
		return nil, fmt.Errorf("program_id: %w", err)
	}

	m := manifest.Manifest{Initializer: scenario.Initializer, Slots: scenario.Genesis}
	meta, slots, err := m.Genesis(store.Meta{ProgramID: program})
	if err != nil {
		return nil, err
	}
	if err := st.WriteGenesis(ctx, meta, slots); err != nil {
		return nil, fmt.Errorf("failed to write genesis: %w", err)
	}

	now := DefaultNow
	if scenario.Now != nil {
		now = *scenario.Now
	}
	clock := testutil.NewFixedClock(now)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	rt, err := host.NewRuntime(ctx, st,
		host.WithClock(clock),
		host.WithSessions(testutil.NewFixedSessionGenerator(scenario.Name)),
		host.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:   st,
		runtime: rt,
		clock:   clock,
		program: program,
		names:   map[solana.PublicKey]string{},
		roles:   scenario.Roles,
		logger:  logger,
	}
	h.nameKeys(scenario, meta)

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	actx := &AssertionContext{Store: st, Ctx: ctx, Program: program}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// nameKeys records readable names for every key the scenario mentions.
func (h *Harness) nameKeys(scenario *Scenario, meta store.Meta) {
	h.names[solana.SystemProgramID] = manifest.RefSystemProgram
	h.names[solana.TokenProgramID] = manifest.RefTokenProgram
	h.names[h.program] = manifest.RefProgram

	add := func(ref string) {
		if ref == "" {
			return
		}
		if key, err := manifest.ResolveKey(ref, h.program); err == nil {
			if _, ok := h.names[key]; !ok {
				h.names[key] = ref
			}
		}
	}

	for _, s := range scenario.Genesis {
		if s.Name != "" {
			add(s.Name)
		}
	}
	add(scenario.Initializer)
	for _, ref := range scenario.Roles {
		add(ref)
	}
	for _, step := range scenario.Steps {
		for _, ref := range step.Roles {
			add(ref)
		}
		for _, ref := range step.Signers {
			add(ref)
		}
	}
	if _, ok := h.names[meta.Initializer]; !ok {
		h.names[meta.Initializer] = "initializer"
	}
}

func (h *Harness) name(key solana.PublicKey) string {
	if n, ok := h.names[key]; ok {
		return n
	}
	return key.String()
}

// executeStep submits one step and records its trace event.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	if step.Now != nil {
		h.clock.Set(*step.Now)
	}

	data, err := step.encode()
	if err != nil {
		return err
	}
	refs, err := h.accounts(step)
	if err != nil {
		return err
	}

	res, err := h.runtime.Invoke(ctx, host.Call{Accounts: refs, Data: data})
	if err != nil {
		return err
	}

	ev := TraceEvent{
		Seq:     res.Entry.Seq,
		Op:      res.Entry.Op,
		Amount:  step.Amount,
		Outcome: res.Entry.ErrorCode,
	}
	if res.Err == nil {
		ev.Outcome = OutcomeApplied
		if !res.Receipt.Applied {
			ev.Outcome = OutcomeSkipped
		}
		for _, w := range res.Receipt.Writes {
			ev.Writes = append(ev.Writes, TraceWrite{
				Role:  string(w.Role),
				Slot:  h.name(w.Handle.Key),
				Value: binary.LittleEndian.Uint64(w.Data),
			})
		}
		for _, e := range res.Entry.Effects {
			ev.Effects = append(ev.Effects, TraceEffect{
				Kind:        string(e.Kind),
				Source:      h.name(e.Source),
				Destination: h.name(e.Destination),
				Amount:      e.Amount,
			})
		}
	}
	result.Trace = append(result.Trace, ev)

	h.checkExpect(i, step, res, result)

	h.logger.Info("step completed",
		"step", i,
		"op", ev.Op,
		"outcome", ev.Outcome,
		"seq", ev.Seq,
	)
	return nil
}

func (h *Harness) checkExpect(i int, step Step, res host.Result, result *Result) {
	var want string
	if step.Expect != nil {
		want = step.Expect.Error
	}
	got := res.Entry.ErrorCode
	if want != got {
		result.AddError(fmt.Sprintf("step %d (%s): expected %s, got %s", i, res.Entry.Op, describe(want), describe(got)))
		return
	}
	if step.Expect != nil && step.Expect.Applied != nil && got == "" && *step.Expect.Applied != res.Receipt.Applied {
		result.AddError(fmt.Sprintf("step %d (%s): expected applied=%t, got applied=%t",
			i, res.Entry.Op, *step.Expect.Applied, res.Receipt.Applied))
	}
}

func describe(code string) string {
	if code == "" {
		return "success"
	}
	return code
}

// encode builds the instruction bytes for a step.
func (s Step) encode() ([]byte, error) {
	if s.Data != nil {
		data, err := hex.DecodeString(*s.Data)
		if err != nil {
			return nil, fmt.Errorf("data: %w", err)
		}
		return data, nil
	}

	op, err := instruction.ParseOpcode(s.Operation)
	if err != nil {
		return nil, err
	}
	ins := instruction.Instruction{Op: op, Raw: s.Amount}
	if op == instruction.OpRecordPurchase && s.Lamports != nil {
		ins.Lamports = *s.Lamports
		ins.ExplicitLamports = true
	}
	return instruction.Encode(ins), nil
}

// accounts builds the step's account list from its roles layered over the
// scenario roles.
func (h *Harness) accounts(step Step) ([]host.AccountRef, error) {
	op, err := instruction.ParseOpcode(step.Operation)
	if err != nil {
		// Raw data steps may omit the operation.
		return nil, nil
	}

	roles := make(map[account.Role]string, len(h.roles)+len(step.Roles))
	for role, ref := range h.roles {
		roles[role] = ref
	}
	for role, ref := range step.Roles {
		roles[role] = ref
	}
	return manifest.Accounts(op, roles, step.Signers, h.program)
}
