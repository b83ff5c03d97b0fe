// Package pubkey decodes Solana addresses and classifies them as wallet
// (on-curve) or program-derived (off-curve) accounts.
package pubkey

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Size is the byte length of a Solana public key.
const Size = 32

// ErrInvalidAddress is returned for strings that are not base58 32-byte keys.
var ErrInvalidAddress = errors.New("invalid solana address")

// Decode parses a base58 address into its 32 raw bytes.
func Decode(addr string) ([Size]byte, error) {
	var key [Size]byte
	if addr == "" {
		return key, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	raw, err := base58.Decode(addr)
	if err != nil {
		return key, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != Size {
		return key, fmt.Errorf("%w: decoded length %d", ErrInvalidAddress, len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

// Validate returns nil when addr is a well-formed address.
func Validate(addr string) error {
	_, err := Decode(addr)
	return err
}

// IsOnCurve reports whether addr is a valid ed25519 point. Signing wallets
// are on-curve; program-derived accounts (pools, vaults) are not.
func IsOnCurve(addr string) (bool, error) {
	key, err := Decode(addr)
	if err != nil {
		return false, err
	}
	if _, err := new(edwards25519.Point).SetBytes(key[:]); err != nil {
		return false, nil
	}
	return true, nil
}

// Encode returns the base58 form of a raw key.
func Encode(key [Size]byte) string {
	return base58.Encode(key[:])
}
