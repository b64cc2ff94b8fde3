package solana

import (
	"crypto/sha256"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidAddress reports whether s is a well-formed Solana address:
// base58 text decoding to exactly 32 bytes.
func ValidAddress(s string) bool {
	raw, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(raw) == 32
}

// IsOnCurve reports whether a 32-byte value is a valid ed25519 curve
// point. Program derived addresses are off-curve by construction, so
// this distinguishes wallet keys from PDAs.
func IsOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// DerivePDA derives a Program Derived Address for the given seeds and
// program ID, searching bumps from 255 down. Returns "" when no
// off-curve point exists (practically unreachable).
func DerivePDA(seeds [][]byte, programID []byte) string {
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		if !IsOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}

	return ""
}
