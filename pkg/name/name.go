package name

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Size of a GDP name in bytes (256 bits)
const Size = 32

var (
	ErrBadLength = errors.New("name must be exactly 32 bytes")
	ErrBadHex    = errors.New("name hex string must decode to 32 bytes")
)

// Name is a fixed 256-bit identifier addressing a logical endpoint,
// independent of where that endpoint is reachable on the network.
// The all-zero name is reserved and never valid as a destination.
type Name [Size]byte

// Zero is the reserved all-zero name.
var Zero Name

// FromBytes copies b into a Name. b must be exactly 32 bytes.
func FromBytes(b []byte) (Name, error) {
	var n Name
	if len(b) != Size {
		return n, ErrBadLength
	}
	copy(n[:], b)
	return n, nil
}

// FromHex parses a 64-character hex string into a Name.
func FromHex(s string) (Name, error) {
	var n Name
	b, err := hex.DecodeString(s)
	if err != nil {
		return n, err
	}
	if len(b) != Size {
		return n, ErrBadHex
	}
	copy(n[:], b)
	return n, nil
}

// FromPublicKey derives a Name from an ed25519 public key by hashing it.
// Endpoints addressed by key identity get stable names this way.
func FromPublicKey(pub ed25519.PublicKey) Name {
	return Name(sha256.Sum256(pub))
}

// IsZero reports whether n is the reserved all-zero name.
func (n Name) IsZero() bool {
	return n == Zero
}

// Less orders names lexicographically byte-for-byte.
func (n Name) Less(other Name) bool {
	return bytes.Compare(n[:], other[:]) < 0
}

// Bytes returns a copy of the raw 32 bytes.
func (n Name) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, n[:])
	return b
}

func (n Name) String() string {
	return hex.EncodeToString(n[:])
}

// Short returns the first 8 hex characters, for logging.
func (n Name) Short() string {
	return hex.EncodeToString(n[:4])
}
