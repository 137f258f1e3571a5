// Package instruction decodes and encodes presale instruction buffers.
//
// Wire format, little-endian:
//
//	byte 0      opcode (0=record_purchase, 1=set_release_time,
//	            2=initialize_supply, 3=claim_tokens)
//	bytes 1..8  u64 amount, required for every opcode
//	bytes 9..16 u64 lamports, optional, record_purchase only
//
// Any other trailing bytes are ignored. Decoding is pure: identical input
// always yields an identical Instruction or an identical error.
package instruction
