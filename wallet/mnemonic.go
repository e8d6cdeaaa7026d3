package wallet

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"github.com/lamden/golampy/params"
	"github.com/tyler-smith/go-bip39"
)

const DefaultMnemonicBits = 128

var mnemonicDeriveKey = []byte("LAMDEN_ED25519_DERIVE")

// NewMnemonic returns a fresh BIP39 mnemonic with the given entropy size.
func NewMnemonic(bits int) (string, error) {
	if err := validateMnemonicBits(bits); err != nil {
		return "", err
	}
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

func validateMnemonicBits(bits int) error {
	switch bits {
	case 128, 160, 192, 224, 256:
		return nil
	default:
		return fmt.Errorf("invalid mnemonic bits %d (allowed: 128,160,192,224,256)", bits)
	}
}

// FromMnemonic deterministically derives the index-th wallet of a mnemonic.
func FromMnemonic(mnemonic, passphrase string, index uint32) (*Wallet, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	return New(deriveSeed(seed, index))
}

func deriveSeed(bip39Seed []byte, index uint32) []byte {
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], index)

	mac := hmac.New(sha512.New, mnemonicDeriveKey)
	mac.Write(bip39Seed)
	mac.Write([]byte{0})
	mac.Write(idx[:])
	return mac.Sum(nil)[:params.SeedSize]
}
