// Package anonymize pseudonymizes employee identifiers for display and
// export. Scoring and grouping always use the real identifiers.
package anonymize

import (
	"crypto/sha256"
	"encoding/hex"
)

// Defaults used when no configuration overrides them.
const (
	DefaultSalt   = "hrtool"
	DefaultPrefix = "ID_"
	DefaultLength = 8

	minLength = 4
)

// Anonymizer maps identifiers to salted, truncated SHA-256 pseudonyms.
type Anonymizer struct {
	salt   string
	prefix string
	length int
}

// New returns an Anonymizer. Lengths below 4 are raised to 4 and lengths
// above the digest size are capped.
func New(salt, prefix string, length int) *Anonymizer {
	if length < minLength {
		length = minLength
	}
	if length > sha256.Size*2 {
		length = sha256.Size * 2
	}
	return &Anonymizer{salt: salt, prefix: prefix, length: length}
}

// Default returns an Anonymizer with the built-in salt, prefix and length.
func Default() *Anonymizer {
	return New(DefaultSalt, DefaultPrefix, DefaultLength)
}

// Pseudonym returns prefix + hex(sha256(salt + id))[:length].
func (a *Anonymizer) Pseudonym(id string) string {
	sum := sha256.Sum256([]byte(a.salt + id))
	return a.prefix + hex.EncodeToString(sum[:])[:a.length]
}

// Apply pseudonymizes ids in order.
func (a *Anonymizer) Apply(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = a.Pseudonym(id)
	}
	return out
}

// Func returns a display transform: Pseudonym when a is non-nil, identity
// otherwise.
func (a *Anonymizer) Func() func(string) string {
	if a == nil {
		return func(id string) string { return id }
	}
	return a.Pseudonym
}
