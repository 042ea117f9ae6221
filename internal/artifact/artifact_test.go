package artifact

import "testing"

func TestFingerprintStable(t *testing.T) {
	a := New("package main\n")
	b := New("package main\n")
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("identical text produced different fingerprints: %s vs %s", a.Fingerprint(), b.Fingerprint())
	}
	if a.Fingerprint() == New("package other\n").Fingerprint() {
		t.Fatal("different text produced equal fingerprints")
	}
}

func TestFingerprintMatchesText(t *testing.T) {
	a := New("hello")
	if a.Text() != "hello" {
		t.Fatalf("Text() = %q", a.Text())
	}
	if a.Fingerprint() != FingerprintOf("hello") {
		t.Fatal("Fingerprint() disagrees with FingerprintOf")
	}
}

func TestPairFingerprintNoBoundaryCollision(t *testing.T) {
	if PairFingerprint("ab", "c") == PairFingerprint("a", "bc") {
		t.Fatal("pair fingerprint collides across the prompt/context boundary")
	}
	if PairFingerprint("p", "c") != PairFingerprint("p", "c") {
		t.Fatal("pair fingerprint is not deterministic")
	}
}
