package programerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	err := &Error{
		Code:    CodeMissingAccount,
		Message: "account list too short",
		Role:    "supply_pool",
		Details: map[string]string{"want": "2", "got": "1"},
	}
	assert.Equal(t, "MISSING_ACCOUNT: account list too short (role=supply_pool) got=1 want=2", err.Error())
}

func TestError_FormatCodeOnly(t *testing.T) {
	assert.Equal(t, "UNKNOWN_OPCODE", (&Error{Code: CodeUnknownOpcode}).Error())
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := New(CodeInsufficientSupply, "purchase %d exceeds remaining %d", 10, 5)
	wrapped := fmt.Errorf("apply: %w", err)

	assert.True(t, errors.Is(wrapped, ErrInsufficientSupply))
	assert.False(t, errors.Is(wrapped, ErrClaimWindowClosed))
	assert.False(t, errors.Is(errors.New("plain"), ErrInsufficientSupply))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeSignerRequired, CodeOf(fmt.Errorf("x: %w", ForRole(CodeSignerRequired, "payer", "not signed"))))
	assert.Equal(t, Code(""), CodeOf(nil))
	assert.Equal(t, Code(""), CodeOf(errors.New("other")))
}

func TestClassification(t *testing.T) {
	tests := []struct {
		code     Code
		business bool
		authz    bool
	}{
		{CodeInsufficientSupply, true, false},
		{CodeClaimWindowClosed, true, false},
		{CodeOwnershipMismatch, false, true},
		{CodeSignerRequired, false, true},
		{CodeInvariantViolation, false, false},
		{CodeMalformedInstruction, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := &Error{Code: tt.code}
			assert.Equal(t, tt.business, IsBusinessRejection(err))
			assert.Equal(t, tt.authz, IsAuthorizationError(err))
		})
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("insufficient lamports")
	err := Wrap(CodeTransferFailed, cause)

	assert.True(t, errors.Is(err, ErrTransferFailed))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "TRANSFER_FAILED: insufficient lamports", err.Error())

	original := New(CodeInvalidRecord, "short")
	assert.Same(t, original, Wrap(CodeTransferFailed, original))
	assert.Nil(t, Wrap(CodeTransferFailed, nil))
}
