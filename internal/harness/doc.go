// Package harness runs presale conformance scenarios.
//
// A scenario seeds a fresh in-memory store from a genesis manifest, submits
// each step through a host.Runtime with a fixed clock and session token,
// checks each step's expected outcome, evaluates final-state assertions and
// renders a deterministic text trace for golden comparison.
//
// Scenario files are YAML and decoded strictly: unknown fields are errors.
//
//	name: purchase-happy-path
//	description: A buyer purchases from an initialized pool.
//	initializer: payer
//	genesis:
//	  - {name: pool, kind: supply_pool}
//	roles:
//	  supply_pool: pool
//	  payer: payer
//	steps:
//	  - operation: initialize_supply
//	    amount: 5
//	    signers: [payer]
//	assertions:
//	  - {type: record, slot: pool, value: 5000000000}
package harness
