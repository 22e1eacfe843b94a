package solana

import (
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"
)

// HashLen is the byte length of a blockhash.
const HashLen = 32

// Hash is a recent blockhash. It acts as the transaction's liveness token:
// the network rejects submissions whose blockhash has expired.
type Hash [HashLen]byte

// ParseHash decodes a base58 blockhash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	raw, err := base58.Decode(s)
	if err != nil {
		return h, fmt.Errorf("decode blockhash: %w", err)
	}
	if len(raw) != HashLen {
		return h, fmt.Errorf("blockhash must be %d bytes, got %d", HashLen, len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

// String returns the base58 encoding.
func (h Hash) String() string {
	return base58.Encode(h[:])
}

// VersionedTransaction is a wire-format Solana transaction:
// shortvec signature count, signatures, then the serialized message.
// The message is kept as raw bytes; only the recent blockhash is ever
// rewritten, at a fixed offset past the account keys.
type VersionedTransaction struct {
	Signatures []Signature
	Message    []byte // serialized message, version prefix included for v0
}

// DecodeTransaction parses a base64-encoded versioned transaction as
// returned by the swap builder.
func DecodeTransaction(b64 string) (*VersionedTransaction, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode transaction base64: %w", err)
	}

	sigCount, n, err := decodeShortvecLen(raw)
	if err != nil {
		return nil, fmt.Errorf("read signature count: %w", err)
	}
	raw = raw[n:]

	if len(raw) < sigCount*SignatureLen {
		return nil, fmt.Errorf("transaction truncated: %d signatures expected", sigCount)
	}

	sigs := make([]Signature, sigCount)
	for i := range sigs {
		copy(sigs[i][:], raw[i*SignatureLen:(i+1)*SignatureLen])
	}
	msg := raw[sigCount*SignatureLen:]

	tx := &VersionedTransaction{
		Signatures: sigs,
		Message:    append([]byte(nil), msg...),
	}
	// Validate framing up front so later blockhash surgery cannot fail.
	if _, err := tx.blockhashOffset(); err != nil {
		return nil, err
	}
	return tx, nil
}

// Serialize returns the wire encoding of the transaction.
func (tx *VersionedTransaction) Serialize() []byte {
	out := encodeShortvecLen(len(tx.Signatures))
	for _, sig := range tx.Signatures {
		out = append(out, sig[:]...)
	}
	return append(out, tx.Message...)
}

// EncodeBase64 returns the base64 wire encoding used by sendTransaction.
func (tx *VersionedTransaction) EncodeBase64() string {
	return base64.StdEncoding.EncodeToString(tx.Serialize())
}

// Version returns 255 for legacy messages, otherwise the message version.
func (tx *VersionedTransaction) Version() uint8 {
	if len(tx.Message) > 0 && tx.Message[0]&0x80 != 0 {
		return tx.Message[0] & 0x7f
	}
	return 255
}

// messageHeaderOffset returns the index of the 3-byte message header,
// skipping the version prefix byte on v0 messages.
func (tx *VersionedTransaction) messageHeaderOffset() (int, error) {
	if len(tx.Message) == 0 {
		return 0, fmt.Errorf("empty message")
	}
	if tx.Message[0]&0x80 == 0 {
		return 0, nil // legacy
	}
	if v := tx.Message[0] & 0x7f; v != 0 {
		return 0, fmt.Errorf("unsupported message version %d", v)
	}
	return 1, nil
}

// blockhashOffset locates the recent blockhash inside the serialized
// message. Layout for both encodings: header(3) | shortvec key count |
// keys*32 | blockhash(32) | instructions...
func (tx *VersionedTransaction) blockhashOffset() (int, error) {
	i, err := tx.messageHeaderOffset()
	if err != nil {
		return 0, err
	}
	i += 3 // numRequiredSignatures, numReadonlySigned, numReadonlyUnsigned

	if i > len(tx.Message) {
		return 0, fmt.Errorf("message truncated at header")
	}
	keyCount, n, err := decodeShortvecLen(tx.Message[i:])
	if err != nil {
		return 0, fmt.Errorf("read account key count: %w", err)
	}
	i += n + keyCount*PubkeyLen

	if i+HashLen > len(tx.Message) {
		return 0, fmt.Errorf("message truncated before blockhash")
	}
	return i, nil
}

// RecentBlockhash returns the blockhash currently embedded in the message.
func (tx *VersionedTransaction) RecentBlockhash() (Hash, error) {
	var h Hash
	off, err := tx.blockhashOffset()
	if err != nil {
		return h, err
	}
	copy(h[:], tx.Message[off:off+HashLen])
	return h, nil
}

// SetRecentBlockhash overwrites the embedded blockhash. All existing
// signatures are invalidated by this and must be replaced via Sign.
func (tx *VersionedTransaction) SetRecentBlockhash(h Hash) error {
	off, err := tx.blockhashOffset()
	if err != nil {
		return err
	}
	copy(tx.Message[off:off+HashLen], h[:])
	return nil
}

// Sign re-signs the message as fee payer, discarding any prior signatures.
// The signature slot count follows the message header's required count.
func (tx *VersionedTransaction) Sign(kp *Keypair) error {
	i, err := tx.messageHeaderOffset()
	if err != nil {
		return err
	}
	if i >= len(tx.Message) {
		return fmt.Errorf("message truncated at header")
	}
	required := int(tx.Message[i])
	if required < 1 {
		return fmt.Errorf("message requires no signatures")
	}

	tx.Signatures = make([]Signature, required)
	tx.Signatures[0] = kp.Sign(tx.Message)
	return nil
}

// decodeShortvecLen reads a Solana compact-u16 length prefix.
func decodeShortvecLen(b []byte) (value, size int, err error) {
	for i := 0; i < 3; i++ {
		if i >= len(b) {
			return 0, 0, fmt.Errorf("shortvec truncated")
		}
		value |= int(b[i]&0x7f) << (7 * i)
		if b[i]&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("shortvec too long")
}

// encodeShortvecLen writes a Solana compact-u16 length prefix.
func encodeShortvecLen(v int) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
