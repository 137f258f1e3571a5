package harness

import (
	"fmt"
	"strings"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq    int64
	Op     string
	Amount uint64

	// Outcome is "applied", "skipped" for a successful no-op, or the
	// rejection error code.
	Outcome string

	Writes  []TraceWrite
	Effects []TraceEffect
}

// TraceWrite is one committed slot overwrite.
type TraceWrite struct {
	Role  string
	Slot  string
	Value uint64
}

// TraceEffect is one transfer performed by a step.
type TraceEffect struct {
	Kind        string
	Source      string
	Destination string
	Amount      uint64
}

// Outcome labels.
const (
	OutcomeApplied = "applied"
	OutcomeSkipped = "skipped"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool

	// Trace contains one event per step in seq order.
	Trace []TraceEvent

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Render formats the trace as deterministic text:
//
//	scenario: <name>
//	<seq> <op> amount=<raw> -> <outcome>
//	  write <role> <slot>=<value>
//	  effect <kind> <source> -> <destination> <amount>
func (r *Result) Render(name string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	for _, ev := range r.Trace {
		fmt.Fprintf(&b, "%d %s amount=%d -> %s\n", ev.Seq, ev.Op, ev.Amount, ev.Outcome)
		for _, w := range ev.Writes {
			fmt.Fprintf(&b, "  write %s %s=%d\n", w.Role, w.Slot, w.Value)
		}
		for _, e := range ev.Effects {
			fmt.Fprintf(&b, "  effect %s %s -> %s %d\n", e.Kind, e.Source, e.Destination, e.Amount)
		}
	}
	return []byte(b.String())
}
