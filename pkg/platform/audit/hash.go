package audit

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Hasher produces keyed BLAKE2b-256 digests of sensitive identifiers.
type Hasher struct {
	key []byte
}

// NewHasher returns a Hasher. The key must be at most 64 bytes.
func NewHasher(key []byte) (*Hasher, error) {
	if len(key) > blake2b.Size {
		return nil, fmt.Errorf("audit hash key too long: %d bytes", len(key))
	}
	// blake2b.New256 rejects nothing below the limit, including an empty key.
	if _, err := blake2b.New256(key); err != nil {
		return nil, fmt.Errorf("init audit hasher: %w", err)
	}
	return &Hasher{key: append([]byte(nil), key...)}, nil
}

// Hash returns the hex digest of value, or "" for an empty value.
func (h *Hasher) Hash(value string) string {
	if h == nil || value == "" {
		return ""
	}
	mac, _ := blake2b.New256(h.key)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}
