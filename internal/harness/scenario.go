package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/presale/internal/account"
	"github.com/roach88/presale/internal/instruction"
	"github.com/roach88/presale/internal/manifest"
	"github.com/roach88/presale/internal/programerr"
)

// DefaultNow is the clock reading a scenario starts at unless it sets one.
const DefaultNow uint64 = 1_700_000_000

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// ProgramID is a key reference. Defaults to the key derived from
	// "presale-program".
	ProgramID string `yaml:"program_id,omitempty"`

	// Initializer is a key reference for the supply initializer.
	Initializer string `yaml:"initializer"`

	// Now is the starting clock reading. Defaults to DefaultNow.
	Now *uint64 `yaml:"now,omitempty"`

	// Genesis lists the slots the store starts with.
	Genesis []manifest.Slot `yaml:"genesis"`

	// Roles maps account roles to key references for every step. Steps
	// may override individual roles.
	Roles map[account.Role]string `yaml:"roles,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one instruction submitted to the runtime.
type Step struct {
	// Operation is the opcode name, e.g. "record_purchase".
	Operation string `yaml:"operation"`

	// Amount is the raw instruction amount, before any scaling.
	Amount uint64 `yaml:"amount"`

	// Lamports sets the record_purchase payment field. Nil omits it.
	Lamports *uint64 `yaml:"lamports,omitempty"`

	// Data replaces the encoded instruction with raw hex bytes.
	Data *string `yaml:"data,omitempty"`

	// Roles overrides scenario roles for this step.
	Roles map[account.Role]string `yaml:"roles,omitempty"`

	// Signers lists key references that signed the call.
	Signers []string `yaml:"signers,omitempty"`

	// Now moves the clock before the step runs.
	Now *uint64 `yaml:"now,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step. An empty Error expects
// success.
type Expect struct {
	Error string `yaml:"error,omitempty"`

	// Applied, when set, checks whether a successful step changed state.
	Applied *bool `yaml:"applied,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Slot is the key reference the assertion reads.
	Slot string `yaml:"slot,omitempty"`

	Value uint64 `yaml:"value"`
}

// Assertion type constants.
const (
	AssertRecord       = "record"
	AssertLamports     = "lamports"
	AssertTokenBalance = "token_balance"
	AssertEffectCount  = "effect_count"
	AssertJournalCount = "journal_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Initializer == "" {
		return fmt.Errorf("initializer is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Data == nil {
			if _, err := instruction.ParseOpcode(step.Operation); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
		}
		if step.Expect != nil && step.Expect.Error != "" && !knownCode(step.Expect.Error) {
			return fmt.Errorf("step %d: unknown error code %q", i, step.Expect.Error)
		}
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case AssertRecord, AssertLamports, AssertTokenBalance:
			if a.Slot == "" {
				return fmt.Errorf("assertion %d: %s requires slot", i, a.Type)
			}
		case AssertEffectCount, AssertJournalCount:
		default:
			return fmt.Errorf("assertion %d: unknown type %q", i, a.Type)
		}
	}
	return nil
}

func knownCode(code string) bool {
	switch programerr.Code(code) {
	case programerr.CodeMalformedInstruction,
		programerr.CodeUnknownOpcode,
		programerr.CodeMissingAccount,
		programerr.CodeDuplicateAccount,
		programerr.CodeProgramMismatch,
		programerr.CodeOwnershipMismatch,
		programerr.CodeSignerRequired,
		programerr.CodeInsufficientSupply,
		programerr.CodeClaimWindowClosed,
		programerr.CodeInvalidRecord,
		programerr.CodeTransferFailed,
		programerr.CodeInvariantViolation:
		return true
	}
	return false
}
