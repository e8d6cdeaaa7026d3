// Copyright 2014 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package keystore stores wallet seeds in passphrase-encrypted key files.
package keystore

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	ethkeystore "github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/google/uuid"
	"github.com/lamden/golampy/params"
	"github.com/lamden/golampy/wallet"
)

const (
	version = 3

	SignerTypeEd25519 = "ed25519"

	StandardScryptN = ethkeystore.StandardScryptN
	StandardScryptP = ethkeystore.StandardScryptP
	LightScryptN    = ethkeystore.LightScryptN
	LightScryptP    = ethkeystore.LightScryptP
)

var (
	ErrDecrypt            = ethkeystore.ErrDecrypt
	ErrUnsupportedVersion = errors.New("keystore: unsupported key file version")
	ErrUnsupportedSigner  = errors.New("keystore: unsupported signer type")
	ErrKeyMismatch        = errors.New("keystore: decrypted key does not match recorded verifying key")
)

type Key struct {
	Id uuid.UUID // Version 4 "random" for unique id not derived from key data
	// to simplify lookups we also store the verifying key
	VerifyingKey [params.VerifyingKeySize]byte
	Wallet       *wallet.Wallet
}

type encryptedKeyJSON struct {
	VerifyingKey string                 `json:"verifyingKey"`
	SignerType   string                 `json:"signerType"`
	Crypto       ethkeystore.CryptoJSON `json:"crypto"`
	Id           string                 `json:"id"`
	Version      int                    `json:"version"`
}

// NewKey wraps w in a key with a fresh random id.
func NewKey(w *wallet.Wallet) *Key {
	id, err := uuid.NewRandom()
	if err != nil {
		panic(fmt.Sprintf("Could not create random uuid: %v", err))
	}
	return &Key{
		Id:           id,
		VerifyingKey: w.VerifyingKey(),
		Wallet:       w,
	}
}

// EncryptKey encrypts the key's seed with auth using the given scrypt parameters.
func EncryptKey(key *Key, auth string, scryptN, scryptP int) ([]byte, error) {
	cryptoStruct, err := ethkeystore.EncryptDataV3(key.Wallet.Seed(), []byte(auth), scryptN, scryptP)
	if err != nil {
		return nil, err
	}
	return json.Marshal(encryptedKeyJSON{
		VerifyingKey: hex.EncodeToString(key.VerifyingKey[:]),
		SignerType:   SignerTypeEd25519,
		Crypto:       cryptoStruct,
		Id:           key.Id.String(),
		Version:      version,
	})
}

// DecryptKey decrypts a key file produced by EncryptKey.
func DecryptKey(keyjson []byte, auth string) (*Key, error) {
	var k encryptedKeyJSON
	if err := json.Unmarshal(keyjson, &k); err != nil {
		return nil, err
	}
	if k.Version != version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, k.Version)
	}
	if k.SignerType != "" && k.SignerType != SignerTypeEd25519 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSigner, k.SignerType)
	}
	id, err := uuid.Parse(k.Id)
	if err != nil {
		return nil, err
	}
	seed, err := ethkeystore.DecryptDataV3(k.Crypto, auth)
	if err != nil {
		return nil, err
	}
	w, err := wallet.New(seed)
	if err != nil {
		return nil, err
	}
	recorded, err := hex.DecodeString(k.VerifyingKey)
	if err != nil {
		return nil, err
	}
	vk := w.VerifyingKey()
	if !bytes.Equal(recorded, vk[:]) {
		return nil, ErrKeyMismatch
	}
	return &Key{Id: id, VerifyingKey: vk, Wallet: w}, nil
}

// StoreKey encrypts key and writes it atomically to file.
func StoreKey(file string, key *Key, auth string, scryptN, scryptP int) error {
	keyjson, err := EncryptKey(key, auth, scryptN, scryptP)
	if err != nil {
		return err
	}
	return writeKeyFile(file, keyjson)
}

// LoadKey reads and decrypts the key file at path.
func LoadKey(file, auth string) (*Key, error) {
	keyjson, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return DecryptKey(keyjson, auth)
}

func writeTemporaryKeyFile(file string, content []byte) (string, error) {
	// Create the keystore directory with appropriate permissions
	// in case it is not present yet.
	const dirPerm = 0700
	if err := os.MkdirAll(filepath.Dir(file), dirPerm); err != nil {
		return "", err
	}
	// Atomic write: create a temporary hidden file first
	// then move it into place. TempFile assigns mode 0600.
	f, err := os.CreateTemp(filepath.Dir(file), "."+filepath.Base(file)+".tmp")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	f.Close()
	return f.Name(), nil
}

func writeKeyFile(file string, content []byte) error {
	name, err := writeTemporaryKeyFile(file, content)
	if err != nil {
		return err
	}
	return os.Rename(name, file)
}

// KeyFileName implements the naming convention for keyfiles:
// UTC--<created_at UTC ISO8601>--<verifying key hex>
func KeyFileName(vk [params.VerifyingKeySize]byte) string {
	ts := time.Now().UTC()
	return fmt.Sprintf("UTC--%s--%s", toISO8601(ts), hex.EncodeToString(vk[:]))
}

func toISO8601(t time.Time) string {
	var tz string
	name, offset := t.Zone()
	if name == "UTC" {
		tz = "Z"
	} else {
		tz = fmt.Sprintf("%03d00", offset/3600)
	}
	return fmt.Sprintf("%04d-%02d-%02dT%02d-%02d-%02d.%09d%s",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), tz)
}
