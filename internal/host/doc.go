// Package host runs presale instructions against durable state.
//
// A Runtime loads the referenced slots from a store.Store into working
// handles, hands them to an engine.Processor, and commits the outcome:
//
//	Invoke(call)
//	  -> load handles (unknown keys become empty system-owned handles)
//	  -> Processor.Apply with a Bank and a fixed clock reading
//	  -> journal entry + dirty slots + effects in one transaction
//
// A rejected invocation is journaled with its error code and leaves every
// slot untouched. Replay rebuilds state from the genesis snapshot and the
// journal and reports any divergence.
//
// All journal ordering uses the logical seq, never wall-clock time.
package host
