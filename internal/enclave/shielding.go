// Copyright 2024 The go-ethereum Authors
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

package enclave

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/log"

	"github.com/litentry/bitacross-worker/storage"
)

// ShieldingKeyBits is the size of the shielding key modulus.
const ShieldingKeyBits = 3072

// ShieldingKey is the RSA key clients encrypt requests to. Ciphertexts use
// OAEP with SHA-256 and no label.
type ShieldingKey struct {
	key *rsa.PrivateKey
}

// LoadOrCreateShieldingKey unseals the shielding key, generating and
// sealing a new one on first start.
func LoadOrCreateShieldingKey(seal storage.SealedIO) (*ShieldingKey, error) {
	exists, err := seal.Exists()
	if err != nil {
		return nil, err
	}
	if exists {
		raw, err := seal.Unseal()
		if err != nil {
			return nil, err
		}
		defer wipe(raw)
		key, err := x509.ParsePKCS1PrivateKey(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptKey, seal.Name(), err)
		}
		if key.N.BitLen() != ShieldingKeyBits {
			return nil, fmt.Errorf("%w: %s: modulus has %d bits", ErrCorruptKey, seal.Name(), key.N.BitLen())
		}
		log.Info("Unsealed shielding key", "file", seal.Name())
		return &ShieldingKey{key: key}, nil
	}
	key, err := rsa.GenerateKey(rand.Reader, ShieldingKeyBits)
	if err != nil {
		return nil, err
	}
	raw := x509.MarshalPKCS1PrivateKey(key)
	defer wipe(raw)
	if err := seal.Seal(raw); err != nil {
		return nil, err
	}
	log.Info("Generated new shielding key", "file", seal.Name(), "bits", ShieldingKeyBits)
	return &ShieldingKey{key: key}, nil
}

func (k *ShieldingKey) Decrypt(ciphertext []byte) ([]byte, error) {
	return rsa.DecryptOAEP(sha256.New(), rand.Reader, k.key, ciphertext, nil)
}

// Encrypt is the client side of Decrypt.
func Encrypt(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	return rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
}

func (k *ShieldingKey) PublicKey() *rsa.PublicKey {
	return &k.key.PublicKey
}

// PublicKeyBytes returns the public key as JSON with the modulus and the
// exponent as little-endian byte arrays.
func (k *ShieldingKey) PublicKeyBytes() ([]byte, error) {
	n := k.key.N.FillBytes(make([]byte, ShieldingKeyBits/8))
	e := big.NewInt(int64(k.key.E)).FillBytes(make([]byte, 4))
	slices.Reverse(n)
	slices.Reverse(e)
	return json.Marshal(intSlices{N: toInts(n), E: toInts(e)})
}

// ParsePublicKey decodes the output of PublicKeyBytes.
func ParsePublicKey(raw []byte) (*rsa.PublicKey, error) {
	var v intSlices
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptKey, err)
	}
	n, e := fromInts(v.N), fromInts(v.E)
	slices.Reverse(n)
	slices.Reverse(e)
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(new(big.Int).SetBytes(e).Int64())}, nil
}

// intSlices keeps byte arrays as JSON number arrays rather than base64.
type intSlices struct {
	N []uint16 `json:"n"`
	E []uint16 `json:"e"`
}

func toInts(b []byte) []uint16 {
	out := make([]uint16, len(b))
	for i, v := range b {
		out[i] = uint16(v)
	}
	return out
}

func fromInts(v []uint16) []byte {
	out := make([]byte, len(v))
	for i, x := range v {
		out[i] = byte(x)
	}
	return out
}
