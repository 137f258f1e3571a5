// Package account maps ordered account lists onto the role-tagged bindings
// each presale operation requires.
//
// The wire contract addresses accounts by position only. Binding converts the
// positional list into a typed struct per operation, so handlers never index
// the raw list and a short list fails with MISSING_ACCOUNT before any record
// is read. Program handles are checked against the expected program IDs.
package account
