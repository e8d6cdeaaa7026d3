package wallet

import (
	"strings"
	"testing"
)

const testMnemonic = "test test test test test test test test test test test junk"

func TestFromMnemonicDeterministic(t *testing.T) {
	a, err := FromMnemonic(testMnemonic, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := FromMnemonic(testMnemonic, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if a.VerifyingKey() != b.VerifyingKey() {
		t.Fatal("same mnemonic and index derived different keys")
	}
	c, err := FromMnemonic(testMnemonic, "", 1)
	if err != nil {
		t.Fatal(err)
	}
	if a.VerifyingKey() == c.VerifyingKey() {
		t.Fatal("different indexes derived the same key")
	}
	d, err := FromMnemonic(testMnemonic, "extra", 0)
	if err != nil {
		t.Fatal(err)
	}
	if a.VerifyingKey() == d.VerifyingKey() {
		t.Fatal("passphrase did not affect derivation")
	}
}

func TestFromMnemonicRejectsInvalid(t *testing.T) {
	if _, err := FromMnemonic("not a valid mnemonic at all", "", 0); err == nil {
		t.Fatal("expected error for invalid mnemonic")
	}
}

func TestNewMnemonicBits(t *testing.T) {
	words := map[int]int{128: 12, 160: 15, 192: 18, 224: 21, 256: 24}
	for bits, n := range words {
		m, err := NewMnemonic(bits)
		if err != nil {
			t.Fatalf("bits %d: %v", bits, err)
		}
		if got := len(strings.Fields(m)); got != n {
			t.Fatalf("bits %d: have %d words, want %d", bits, got, n)
		}
		if _, err := FromMnemonic(m, "", 0); err != nil {
			t.Fatalf("bits %d: generated mnemonic rejected: %v", bits, err)
		}
	}
	if _, err := NewMnemonic(100); err == nil {
		t.Fatal("expected error for unsupported entropy size")
	}
}
