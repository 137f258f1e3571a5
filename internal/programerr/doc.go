// Package programerr defines the structured failure taxonomy returned by the
// presale transition function.
//
// Every package on the invocation path (codec, bindings, guard, records,
// engine, host) reports failures as *Error values so the shim can surface the
// exact failure kind to its caller. This package imports nothing internal.
//
// Failure classes:
//   - decode time: MALFORMED_INSTRUCTION, UNKNOWN_OPCODE
//   - binding time: MISSING_ACCOUNT, DUPLICATE_ACCOUNT, PROGRAM_MISMATCH
//   - authorization: OWNERSHIP_MISMATCH, SIGNER_REQUIRED
//   - business rules: INSUFFICIENT_SUPPLY, CLAIM_WINDOW_CLOSED
//   - record / host: INVALID_RECORD, TRANSFER_FAILED
//   - INVARIANT_VIOLATION replaces every abort path; it still rolls the
//     invocation back but stays distinguishable from success.
package programerr
