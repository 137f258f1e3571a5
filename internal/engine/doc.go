// Package engine implements the presale transition function.
//
// A Processor applies exactly one instruction to the account handles the host
// supplies and returns. There is no state between invocations: the supply
// pool and release schedule live in host slots and are passed in on every
// call.
//
// Invocation flow:
//  1. Decode the instruction buffer (internal/instruction)
//  2. Bind the positional account list to the operation's roles (internal/account)
//  3. Check ownership and signer preconditions (internal/guard)
//  4. Load records (internal/record) and evaluate the business rules
//  5. Stage record writes in a write set
//  6. Invoke the external transfer primitive, if the operation has one
//  7. Commit the write set onto the handles
//
// WRITE DEFERRAL: no handle is modified before every precondition and every
// external transfer has succeeded. A failed Apply leaves all handle data
// byte-identical to its input; the host additionally discards the whole
// working set on any error.
//
// Apply is synchronous and single-threaded. The host guarantees exclusive
// access to the slots of one invocation, so the engine takes no locks.
package engine
