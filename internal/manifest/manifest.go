// Package manifest parses genesis manifests: the YAML description of the
// slots a presale store starts with.
//
// Every manifest is validated against an embedded CUE schema before it is
// decoded, so shape errors are reported at the boundary with CUE's messages.
package manifest

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Slot kinds.
const (
	KindPurchaseLedger  = "purchase_ledger"
	KindSupplyPool      = "supply_pool"
	KindReleaseSchedule = "release_schedule"
	KindTokenAccount    = "token_account"
	KindWallet          = "wallet"
)

// Reserved key references.
const (
	RefProgram       = "program"
	RefSystemProgram = "system_program"
	RefTokenProgram  = "token_program"
)

// Manifest is a parsed genesis manifest.
type Manifest struct {
	// ProgramID and Initializer are key references; empty means the
	// caller's default.
	ProgramID   string `yaml:"program_id,omitempty"`
	Initializer string `yaml:"initializer,omitempty"`
	Slots       []Slot `yaml:"slots"`
}

// Slot describes one genesis slot.
type Slot struct {
	// Name labels the slot. When Key is empty the key is derived from Name.
	Name string `yaml:"name,omitempty"`
	Key  string `yaml:"key,omitempty"`
	Kind string `yaml:"kind"`

	// Owner defaults to the program for records, the token program for
	// token accounts and the system program for wallets.
	Owner    string `yaml:"owner,omitempty"`
	Lamports uint64 `yaml:"lamports,omitempty"`

	// Value seeds the u64 of a record slot.
	Value uint64 `yaml:"value,omitempty"`

	// Authority and Amount seed a token account.
	Authority string `yaml:"authority,omitempty"`
	Amount    uint64 `yaml:"amount,omitempty"`

	// Size pads record data to a larger slot. Zero means the record size.
	Size int `yaml:"size,omitempty"`
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Parse validates data against the schema and decodes it.
func Parse(data []byte) (*Manifest, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	var m Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	for i, s := range m.Slots {
		if s.Name == "" && s.Key == "" {
			return nil, fmt.Errorf("invalid manifest: slot %d: name or key is required", i)
		}
	}
	return &m, nil
}

// Validate checks raw YAML against the #Manifest schema.
func Validate(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}
	if doc == nil {
		return errors.New("invalid manifest: empty document")
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile manifest schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Manifest"))

	v := ctx.Encode(doc)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}
	return nil
}

// DeriveKey maps a slot name to a deterministic public key.
func DeriveKey(name string) solana.PublicKey {
	sum := sha256.Sum256([]byte("presale/slot/" + name))
	return solana.PublicKeyFromBytes(sum[:])
}

// ResolveKey turns a key reference into a public key. A reference is one of
// the reserved names, a base58 public key, or a slot name.
func ResolveKey(ref string, programID solana.PublicKey) (solana.PublicKey, error) {
	switch ref {
	case "":
		return solana.PublicKey{}, errors.New("empty key reference")
	case RefProgram:
		if programID.IsZero() {
			return solana.PublicKey{}, errors.New("program id is not set")
		}
		return programID, nil
	case RefSystemProgram:
		return solana.SystemProgramID, nil
	case RefTokenProgram:
		return solana.TokenProgramID, nil
	}
	if key, err := solana.PublicKeyFromBase58(ref); err == nil {
		return key, nil
	}
	return DeriveKey(ref), nil
}
