package escrow

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/crypto/sha3"
)

// SecretSize is the fixed byte length of a commitment secret.
const SecretSize = 32

// Key is a 32-byte commitment identifier.
type Key [32]byte

// Hex returns the lowercase hex encoding of the key.
func (k Key) Hex() string {
	return hex.EncodeToString(k[:])
}

// ParseKey decodes a 64-character hex string into a Key.
func ParseKey(s string) (Key, error) {
	var k Key
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Key{}, fmt.Errorf("decode key: %w", err)
	}
	if len(raw) != len(k) {
		return Key{}, fmt.Errorf("key must be %d bytes, got %d", len(k), len(raw))
	}
	copy(k[:], raw)
	return k, nil
}

// DeriveKey computes the commitment key binding the secret to the payout
// destination and amount:
//
//	key = keccak256(secret || recipient account code (UTF-8) || amount as 32-byte big-endian)
//
// The same function runs on commit (client side) and on reveal (service
// side), so the encoding must never change.
func DeriveKey(secret [SecretSize]byte, recipient string, amount int64) Key {
	var amountBytes [32]byte
	if amount > 0 {
		big.NewInt(amount).FillBytes(amountBytes[:])
	}

	h := sha3.NewLegacyKeccak256()
	h.Write(secret[:])
	h.Write([]byte(recipient))
	h.Write(amountBytes[:])

	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// ParseSecret decodes a 64-character hex string into a 32-byte secret.
func ParseSecret(s string) ([SecretSize]byte, error) {
	var secret [SecretSize]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return secret, fmt.Errorf("decode secret: %w", err)
	}
	if len(raw) != SecretSize {
		return secret, fmt.Errorf("secret must be %d bytes, got %d", SecretSize, len(raw))
	}
	copy(secret[:], raw)
	return secret, nil
}
