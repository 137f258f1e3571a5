package instruction

import (
	"bytes"
	"fmt"
	"math/bits"

	bin "github.com/gagliardetto/binary"

	"github.com/roach88/presale/internal/programerr"
)

// Opcode is the leading tag byte of an instruction buffer.
type Opcode uint8

const (
	OpRecordPurchase   Opcode = 0
	OpSetReleaseTime   Opcode = 1
	OpInitializeSupply Opcode = 2
	OpClaimTokens      Opcode = 3
)

// SupplyScale normalizes initialize_supply amounts to the smallest unit.
const SupplyScale uint64 = 1_000_000_000

const (
	opcodeLen = 1
	amountLen = 8
)

var opcodeNames = map[Opcode]string{
	OpRecordPurchase:   "record_purchase",
	OpSetReleaseTime:   "set_release_time",
	OpInitializeSupply: "initialize_supply",
	OpClaimTokens:      "claim_tokens",
}

// Opcodes lists every known opcode in wire order.
var Opcodes = []Opcode{OpRecordPurchase, OpSetReleaseTime, OpInitializeSupply, OpClaimTokens}

// String returns the snake_case operation name.
func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("opcode(%d)", uint8(o))
}

// Valid reports whether o is one of the four known opcodes.
func (o Opcode) Valid() bool {
	_, ok := opcodeNames[o]
	return ok
}

// ParseOpcode resolves an operation name back to its opcode.
func ParseOpcode(name string) (Opcode, error) {
	for op, n := range opcodeNames {
		if n == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown operation %q", name)
}

// Instruction is a decoded instruction buffer.
type Instruction struct {
	Op Opcode

	// Raw is the amount field exactly as it appeared on the wire.
	Raw uint64

	// Amount is the normalized amount. Equal to Raw except for
	// initialize_supply, where it is Raw * SupplyScale.
	Amount uint64

	// Lamports is the native payment for record_purchase. Equal to Amount
	// unless the buffer carried an explicit payment field.
	Lamports uint64

	// ExplicitLamports records whether the payment field was on the wire.
	ExplicitLamports bool
}

// Decode parses an instruction buffer.
//
// Returns MALFORMED_INSTRUCTION for an empty buffer, a missing amount field,
// or an initialize_supply amount whose normalization overflows u64.
// Returns UNKNOWN_OPCODE for tags outside the known set.
func Decode(data []byte) (Instruction, error) {
	if len(data) < opcodeLen {
		return Instruction{}, programerr.New(programerr.CodeMalformedInstruction, "empty instruction buffer")
	}

	dec := bin.NewBinDecoder(data)
	tag, err := dec.ReadUint8()
	if err != nil {
		return Instruction{}, programerr.New(programerr.CodeMalformedInstruction, "read opcode: %v", err)
	}
	op := Opcode(tag)
	if !op.Valid() {
		return Instruction{}, &programerr.Error{
			Code:    programerr.CodeUnknownOpcode,
			Message: "unrecognized opcode",
			Details: map[string]string{"opcode": fmt.Sprintf("%d", tag)},
		}
	}

	if dec.Remaining() < amountLen {
		return Instruction{}, programerr.New(programerr.CodeMalformedInstruction,
			"%s requires %d amount bytes, got %d", op, amountLen, dec.Remaining())
	}
	raw, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return Instruction{}, programerr.New(programerr.CodeMalformedInstruction, "read amount: %v", err)
	}

	ins := Instruction{Op: op, Raw: raw, Amount: raw}

	switch op {
	case OpInitializeSupply:
		scaled, err := ScaleSupply(raw)
		if err != nil {
			return Instruction{}, err
		}
		ins.Amount = scaled

	case OpRecordPurchase:
		ins.Lamports = raw
		if dec.Remaining() >= amountLen {
			lamports, err := dec.ReadUint64(bin.LE)
			if err != nil {
				return Instruction{}, programerr.New(programerr.CodeMalformedInstruction, "read lamports: %v", err)
			}
			ins.Lamports = lamports
			ins.ExplicitLamports = true
		}
	}

	return ins, nil
}

// ScaleSupply multiplies a raw supply amount by SupplyScale, failing on overflow.
func ScaleSupply(raw uint64) (uint64, error) {
	hi, lo := bits.Mul64(raw, SupplyScale)
	if hi != 0 {
		return 0, &programerr.Error{
			Code:    programerr.CodeMalformedInstruction,
			Message: "initialize_supply amount overflows u64 after scaling",
			Details: map[string]string{"raw": fmt.Sprintf("%d", raw)},
		}
	}
	return lo, nil
}

// Encode serializes an instruction to its wire form.
// The amount field carries Raw; the payment field is written only when
// ExplicitLamports is set on a record_purchase.
func Encode(ins Instruction) []byte {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	// Writes to a bytes.Buffer cannot fail.
	_ = enc.WriteUint8(uint8(ins.Op))
	_ = enc.WriteUint64(ins.Raw, bin.LE)
	if ins.Op == OpRecordPurchase && ins.ExplicitLamports {
		_ = enc.WriteUint64(ins.Lamports, bin.LE)
	}
	return buf.Bytes()
}

// RecordPurchase builds a record_purchase instruction paying lamports.
func RecordPurchase(amount, lamports uint64) Instruction {
	return Instruction{Op: OpRecordPurchase, Raw: amount, Amount: amount, Lamports: lamports, ExplicitLamports: true}
}

// SetReleaseTime builds a set_release_time instruction.
func SetReleaseTime(timestamp uint64) Instruction {
	return Instruction{Op: OpSetReleaseTime, Raw: timestamp, Amount: timestamp}
}

// InitializeSupply builds an initialize_supply instruction from a raw
// (unscaled) amount. Amount is left unscaled when scaling would overflow;
// Decode of the encoded form reports the overflow.
func InitializeSupply(raw uint64) Instruction {
	ins := Instruction{Op: OpInitializeSupply, Raw: raw, Amount: raw}
	if scaled, err := ScaleSupply(raw); err == nil {
		ins.Amount = scaled
	}
	return ins
}

// ClaimTokens builds a claim_tokens instruction.
func ClaimTokens(amount uint64) Instruction {
	return Instruction{Op: OpClaimTokens, Raw: amount, Amount: amount}
}
