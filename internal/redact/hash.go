package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// hashLength is the number of hex characters kept from a digest.
const hashLength = 10

// Hasher turns a sensitive value into a short, tagged, deterministic token
// such as "SHA256:ab12cd34ef".
type Hasher struct {
	name string
	sum  func([]byte) []byte
}

var (
	SHA256 = Hasher{name: "SHA256", sum: func(b []byte) []byte {
		s := sha256.Sum256(b)
		return s[:]
	}}
	BLAKE3 = Hasher{name: "BLAKE3", sum: func(b []byte) []byte {
		s := blake3.Sum256(b)
		return s[:]
	}}
)

// ParseHasher selects a hasher by name; empty means SHA256.
func ParseHasher(name string) (Hasher, error) {
	switch strings.ToLower(name) {
	case "", "sha256":
		return SHA256, nil
	case "blake3":
		return BLAKE3, nil
	default:
		return Hasher{}, fmt.Errorf("unknown hash algorithm %q (want sha256 or blake3)", name)
	}
}

// Name returns the algorithm tag.
func (h Hasher) Name() string {
	return h.name
}

// Hash returns the tagged, truncated digest of value.
func (h Hasher) Hash(value string) string {
	return h.name + ":" + hex.EncodeToString(h.sum([]byte(value)))[:hashLength]
}
