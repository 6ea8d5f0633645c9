package blacklist

import (
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/crypto/blake2b"
)

// Hasher derives the stored form of identifiers.
type Hasher struct {
	key []byte
}

// NewHasher keys the national-id hash with pepper. blake2b accepts keys up
// to 64 bytes; longer peppers are truncated.
func NewHasher(pepper string) *Hasher {
	key := []byte(pepper)
	if len(key) > blake2b.Size {
		key = key[:blake2b.Size]
	}
	return &Hasher{key: key}
}

// HashNationalID returns the hex keyed hash of a normalized document number.
func (h *Hasher) HashNationalID(id string) string {
	id = normalizeID(id)
	if id == "" {
		return ""
	}
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// Only returned for keys longer than 64 bytes, ruled out above.
		panic(err)
	}
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}

// Probe normalizes a subject for lookup.
func (h *Hasher) Probe(s Subject) Probe {
	return Probe{
		Email:  strings.ToLower(strings.TrimSpace(s.Email)),
		IDHash: h.HashNationalID(s.NationalID),
		Plate:  NormalizePlate(s.Plate),
	}
}

// NormalizePlate uppercases a plate and drops separators so "ab-123 c"
// and "AB123C" compare equal.
func NormalizePlate(p string) string {
	var b strings.Builder
	for _, r := range p {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

func normalizeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}
