package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// SignatureLen is the byte length of an ed25519 signature.
const SignatureLen = 64

// Signature is an ed25519 signature over a transaction message.
type Signature [SignatureLen]byte

// String returns the base58 encoding.
func (s Signature) String() string {
	return base58.Encode(s[:])
}

// Keypair holds the operator's ed25519 key material. The secret is the
// 64-byte Solana format: 32-byte seed followed by the public key.
// It has no String method and must never be logged.
type Keypair struct {
	priv ed25519.PrivateKey
	pub  Pubkey
}

// ParseKeypair accepts either a base58-encoded 64-byte secret key or a JSON
// byte array as written by solana-keygen to id.json.
func ParseKeypair(raw string) (*Keypair, error) {
	raw = strings.TrimSpace(raw)

	var secret []byte
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &secret); err != nil {
			return nil, fmt.Errorf("parse keypair json array: %w", err)
		}
	} else {
		var err error
		secret, err = base58.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode keypair base58: %w", err)
		}
	}

	if len(secret) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair must be %d bytes, got %d", ed25519.PrivateKeySize, len(secret))
	}

	priv := ed25519.PrivateKey(secret)
	var pub Pubkey
	copy(pub[:], priv.Public().(ed25519.PublicKey))
	return &Keypair{priv: priv, pub: pub}, nil
}

// NewKeypair generates a fresh random keypair. Used in tests.
func NewKeypair() (*Keypair, error) {
	pubBytes, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	var pub Pubkey
	copy(pub[:], pubBytes)
	return &Keypair{priv: priv, pub: pub}, nil
}

// Pubkey returns the public half of the keypair.
func (k *Keypair) Pubkey() Pubkey {
	return k.pub
}

// Sign signs a serialized transaction message.
func (k *Keypair) Sign(message []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(k.priv, message))
	return sig
}
