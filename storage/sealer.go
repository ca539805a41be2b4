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

package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	sealKeySize = 32
	sealInfo    = "bitacross-seal-v1"
)

// AESSealer seals data with AES-256-GCM. Each label gets its own key
// derived from the enclave sealing secret, and the label is bound into the
// ciphertext as associated data, so a file renamed on disk fails to unseal.
type AESSealer struct {
	secret []byte
}

// NewAESSealer creates a sealer over the given secret.
func NewAESSealer(secret []byte) (*AESSealer, error) {
	if len(secret) < sealKeySize {
		return nil, fmt.Errorf("%w: sealing secret must be at least %d bytes", ErrInvalidConfig, sealKeySize)
	}
	return &AESSealer{secret: append([]byte{}, secret...)}, nil
}

func (s *AESSealer) aead(label string) (cipher.AEAD, error) {
	key := make([]byte, sealKeySize)
	defer zeroBytes(key)

	reader := hkdf.New(sha256.New, s.secret, []byte(label), []byte(sealInfo))
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive seal key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Seal returns nonce || ciphertext.
func (s *AESSealer) Seal(plaintext []byte, label string) ([]byte, error) {
	gcm, err := s.aead(label)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, []byte(label)), nil
}

// Unseal reverses Seal.
func (s *AESSealer) Unseal(ciphertext []byte, label string) ([]byte, error) {
	gcm, err := s.aead(label)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecode)
	}
	nonce, body := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, body, []byte(label))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to unseal %s: %v", ErrDecode, label, err)
	}
	return plaintext, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
