package solana

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PubkeyLen is the byte length of a Solana public key.
const PubkeyLen = 32

// WSOLMint is the wrapped SOL mint address.
const WSOLMint = "So11111111111111111111111111111111111111112"

// Pubkey is a Solana account identifier: 32 bytes, base58-encoded on the wire.
// Mints, wallets and program IDs are all values of this type.
type Pubkey [PubkeyLen]byte

// ParsePubkey decodes a base58 public key. Invalid encodings are rejected
// here so downstream code never handles malformed identifiers.
func ParsePubkey(s string) (Pubkey, error) {
	var pk Pubkey
	raw, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("decode pubkey: %w", err)
	}
	if len(raw) != PubkeyLen {
		return pk, fmt.Errorf("pubkey must be %d bytes, got %d", PubkeyLen, len(raw))
	}
	copy(pk[:], raw)
	return pk, nil
}

// String returns the base58 encoding.
func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// Bytes returns a copy of the raw key bytes.
func (p Pubkey) Bytes() []byte {
	out := make([]byte, PubkeyLen)
	copy(out, p[:])
	return out
}

// IsZero reports whether the key is the all-zero value.
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// IsOnCurve reports whether the key is a valid ed25519 curve point.
// Wallet keys are on-curve; program-derived addresses are not.
func (p Pubkey) IsOnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(p[:])
	return err == nil
}
