package store

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
)

func formatU64(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseU64(field, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", field, err)
	}
	return v, nil
}

func parseKey(field, s string) (solana.PublicKey, error) {
	k, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("parse %s: %w", field, err)
	}
	return k, nil
}

// marshalAccounts converts an account list to JSON TEXT. Keys render as
// base58 strings.
func marshalAccounts(refs []AccountRef) (string, error) {
	if refs == nil {
		refs = []AccountRef{}
	}
	data, err := json.Marshal(refs)
	if err != nil {
		return "", fmt.Errorf("marshal accounts: %w", err)
	}
	return string(data), nil
}

func unmarshalAccounts(data string) ([]AccountRef, error) {
	refs := []AccountRef{}
	if data == "" || data == "[]" {
		return refs, nil
	}
	if err := json.Unmarshal([]byte(data), &refs); err != nil {
		return nil, fmt.Errorf("unmarshal accounts: %w", err)
	}
	return refs, nil
}
