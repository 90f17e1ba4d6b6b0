package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Domain-specific hash types
type (
	// SpecFingerprint identifies the exact range content of a spec version.
	SpecFingerprint Hash
	// DatasetFingerprint identifies the input content of a validation run,
	// so repeated runs can be audited for determinism.
	DatasetFingerprint Hash
)

func NewSpecFingerprint(data []byte) SpecFingerprint       { return SpecFingerprint(NewHash(data)) }
func NewDatasetFingerprint(data []byte) DatasetFingerprint { return DatasetFingerprint(NewHash(data)) }

func (h SpecFingerprint) String() string    { return Hash(h).String() }
func (h DatasetFingerprint) String() string { return Hash(h).String() }

// ComputeFingerprint hashes a key-ordered rendering of arbitrary labelled
// values. Map iteration order never leaks into the fingerprint.
func ComputeFingerprint(parts map[string]interface{}) Hash {
	keys := make([]string, 0, len(parts))
	for k := range parts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data strings.Builder
	for _, key := range keys {
		data.WriteString(key)
		data.WriteString(fmt.Sprintf("%v", parts[key]))
	}

	return NewHash([]byte(data.String()))
}
