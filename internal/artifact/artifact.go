// Package artifact defines the immutable source snapshot that flows
// through verification. Identity is the content fingerprint: two
// byte-identical artifacts are interchangeable everywhere, which is
// what makes result caching safe.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint is a stable content hash (sha256 hex) of an artifact's bytes.
type Fingerprint string

// Artifact is an immutable snapshot of generated source text.
// Corrections never mutate an Artifact; they produce a new one.
type Artifact struct {
	text        string
	fingerprint Fingerprint
}

// New creates an artifact from source text, computing its fingerprint.
func New(text string) *Artifact {
	return &Artifact{
		text:        text,
		fingerprint: FingerprintOf(text),
	}
}

// Text returns the source text.
func (a *Artifact) Text() string { return a.text }

// Fingerprint returns the content fingerprint.
func (a *Artifact) Fingerprint() Fingerprint { return a.fingerprint }

// FingerprintOf hashes arbitrary text into a Fingerprint.
// Used for artifacts and for (prompt, context) generation-cache keys.
func FingerprintOf(text string) Fingerprint {
	sum := sha256.Sum256([]byte(text))
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// PairFingerprint derives a single fingerprint for a (prompt, context)
// pair. The component hashes are concatenated before rehashing so that
// ("ab","c") and ("a","bc") cannot collide.
func PairFingerprint(prompt, context string) Fingerprint {
	p := sha256.Sum256([]byte(prompt))
	c := sha256.Sum256([]byte(context))
	combined := append(p[:], c[:]...)
	sum := sha256.Sum256(combined)
	return Fingerprint(hex.EncodeToString(sum[:]))
}
