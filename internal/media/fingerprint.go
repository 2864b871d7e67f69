// Package media derives catalog metadata from uploaded media bytes.
package media

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/blake2b"
)

// Supported fingerprint algorithms.
const (
	AlgoSHA256  = "sha256"
	AlgoBLAKE2b = "blake2b"
)

// Fingerprinter computes a deterministic content digest.
type Fingerprinter struct {
	algo    string
	newHash func() hash.Hash
}

// NewFingerprinter returns a fingerprinter for algo; empty selects sha256.
func NewFingerprinter(algo string) (*Fingerprinter, error) {
	switch algo {
	case "", AlgoSHA256:
		return &Fingerprinter{algo: AlgoSHA256, newHash: sha256.New}, nil
	case AlgoBLAKE2b:
		return &Fingerprinter{algo: AlgoBLAKE2b, newHash: func() hash.Hash {
			h, _ := blake2b.New256(nil) // only fails for oversized keys
			return h
		}}, nil
	default:
		return nil, fmt.Errorf("media: unknown fingerprint algorithm %q", algo)
	}
}

// Algo reports the configured algorithm name.
func (f *Fingerprinter) Algo() string { return f.algo }

// Digest reads r to EOF and returns the hex digest.
func (f *Fingerprinter) Digest(r io.Reader) (string, error) {
	h := f.newHash()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("media: fingerprint: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
