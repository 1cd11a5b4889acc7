package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// FingerprintPolicy computes a stable content hash for a document set.
// Same ids and texts (whitespace-trimmed, same order) -> same fingerprint.
type FingerprintPolicy interface {
	Compute(docs []Document) string
}

type fingerprintPolicy struct{}

// NewFingerprintPolicy creates the default SHA-256 FingerprintPolicy.
func NewFingerprintPolicy() FingerprintPolicy {
	return &fingerprintPolicy{}
}

func (p *fingerprintPolicy) Compute(docs []Document) string {
	h := sha256.New()
	for _, d := range docs {
		// Null separators keep ("ab","c") distinct from ("a","bc").
		h.Write([]byte(strings.TrimSpace(d.ID)))
		h.Write([]byte{0})
		h.Write([]byte(strings.TrimSpace(d.Text)))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
