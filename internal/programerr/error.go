package programerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code categorizes a failed invocation.
type Code string

const (
	// CodeMalformedInstruction indicates an empty or truncated instruction buffer.
	CodeMalformedInstruction Code = "MALFORMED_INSTRUCTION"

	// CodeUnknownOpcode indicates a tag byte outside the known opcodes.
	CodeUnknownOpcode Code = "UNKNOWN_OPCODE"

	// CodeMissingAccount indicates the caller supplied too few accounts.
	CodeMissingAccount Code = "MISSING_ACCOUNT"

	// CodeDuplicateAccount indicates two record roles name the same slot.
	CodeDuplicateAccount Code = "DUPLICATE_ACCOUNT"

	// CodeProgramMismatch indicates a program handle names the wrong program.
	CodeProgramMismatch Code = "PROGRAM_MISMATCH"

	// CodeOwnershipMismatch indicates a mutated slot is not owned by the program.
	CodeOwnershipMismatch Code = "OWNERSHIP_MISMATCH"

	// CodeSignerRequired indicates the payer did not sign the invocation.
	CodeSignerRequired Code = "SIGNER_REQUIRED"

	// CodeInsufficientSupply indicates a purchase larger than the remaining pool.
	CodeInsufficientSupply Code = "INSUFFICIENT_SUPPLY"

	// CodeClaimWindowClosed indicates a claim before the release timestamp.
	CodeClaimWindowClosed Code = "CLAIM_WINDOW_CLOSED"

	// CodeInvalidRecord indicates slot data too short for its record layout.
	CodeInvalidRecord Code = "INVALID_RECORD"

	// CodeTransferFailed indicates a host transfer primitive refused the movement.
	CodeTransferFailed Code = "TRANSFER_FAILED"

	// CodeInvariantViolation indicates a rule that would otherwise abort the
	// invocation (closed purchase window, arithmetic overflow). Details["rule"]
	// names which one.
	CodeInvariantViolation Code = "INVARIANT_VIOLATION"
)

// Error is a structured invocation failure.
type Error struct {
	// Code identifies the failure category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Role names the account role involved, when there is one.
	Role string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, typically from a host primitive.
	Err error
}

// Sentinels for errors.Is comparisons. Matching is by Code only.
var (
	ErrMalformedInstruction = &Error{Code: CodeMalformedInstruction}
	ErrUnknownOpcode        = &Error{Code: CodeUnknownOpcode}
	ErrMissingAccount       = &Error{Code: CodeMissingAccount}
	ErrDuplicateAccount     = &Error{Code: CodeDuplicateAccount}
	ErrProgramMismatch      = &Error{Code: CodeProgramMismatch}
	ErrOwnershipMismatch    = &Error{Code: CodeOwnershipMismatch}
	ErrSignerRequired       = &Error{Code: CodeSignerRequired}
	ErrInsufficientSupply   = &Error{Code: CodeInsufficientSupply}
	ErrClaimWindowClosed    = &Error{Code: CodeClaimWindowClosed}
	ErrInvalidRecord        = &Error{Code: CodeInvalidRecord}
	ErrTransferFailed       = &Error{Code: CodeTransferFailed}
	ErrInvariantViolation   = &Error{Code: CodeInvariantViolation}
)

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Role != "" {
		fmt.Fprintf(&b, " (role=%s)", e.Role)
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s", k, e.Details[k])
		}
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ForRole creates an Error attributed to an account role.
func ForRole(code Code, role, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Role: role}
}

// Wrap attaches code to a foreign error. Errors already in the taxonomy are
// returned unchanged so their original code survives.
func Wrap(code Code, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Code: code, Err: err}
}

// CodeOf extracts the failure code from err.
// Returns "" for nil and for errors outside the taxonomy.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsBusinessRejection reports whether err is an expected, caller-recoverable
// rejection (retry later or with a different amount).
func IsBusinessRejection(err error) bool {
	switch CodeOf(err) {
	case CodeInsufficientSupply, CodeClaimWindowClosed:
		return true
	}
	return false
}

// IsAuthorizationError reports whether err came from the authorization guard.
func IsAuthorizationError(err error) bool {
	switch CodeOf(err) {
	case CodeOwnershipMismatch, CodeSignerRequired:
		return true
	}
	return false
}
