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

package primitives

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
)

// AesKeySize is the size of the per-request symmetric key.
const AesKeySize = 32

// AesNonceSize is the GCM nonce size used on the wire.
const AesNonceSize = 12

// RequestAesKey is the single-use symmetric key of one request.
type RequestAesKey [AesKeySize]byte

// ShieldingDecrypter unwraps data encrypted to the enclave's shielding key.
type ShieldingDecrypter interface {
	Decrypt(ciphertext []byte) ([]byte, error)
}

// DecryptableRequest is a shard-addressed encrypted request.
type DecryptableRequest interface {
	TargetShard() ShardIdentifier
	Decrypt(key ShieldingDecrypter) ([]byte, error)
}

// AesOutput is an AES-256-GCM ciphertext with its associated data and nonce.
type AesOutput struct {
	Ciphertext []byte
	Aad        []byte
	Nonce      [AesNonceSize]byte
}

// AesEncrypt seals plaintext under key with a fresh random nonce.
func AesEncrypt(key RequestAesKey, plaintext, aad []byte) (AesOutput, error) {
	out := AesOutput{Aad: aad}
	gcm, err := newGCM(key)
	if err != nil {
		return out, err
	}
	if _, err := io.ReadFull(rand.Reader, out.Nonce[:]); err != nil {
		return out, fmt.Errorf("%w: failed to generate nonce: %v", ErrCrypto, err)
	}
	out.Ciphertext = gcm.Seal(nil, out.Nonce[:], plaintext, aad)
	return out, nil
}

// AesDecrypt opens an AesOutput under key.
func AesDecrypt(key RequestAesKey, in AesOutput) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, in.Nonce[:], in.Ciphertext, in.Aad)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decrypt: %v", ErrCrypto, err)
	}
	return plaintext, nil
}

func newGCM(key RequestAesKey) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create cipher: %v", ErrCrypto, err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, AesNonceSize)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create GCM: %v", ErrCrypto, err)
	}
	return gcm, nil
}

// AesRequest carries an AES payload whose key is wrapped with the shielding key.
type AesRequest struct {
	Shard   ShardIdentifier
	Key     []byte
	Payload AesOutput
}

func (r *AesRequest) TargetShard() ShardIdentifier { return r.Shard }

// Decrypt unwraps the request key and opens the payload.
func (r *AesRequest) Decrypt(key ShieldingDecrypter) ([]byte, error) {
	plaintext, _, err := r.DecryptWithKey(key)
	return plaintext, err
}

// DecryptWithKey also returns the unwrapped symmetric key so that the
// response can be encrypted back to the caller.
func (r *AesRequest) DecryptWithKey(key ShieldingDecrypter) ([]byte, RequestAesKey, error) {
	var aesKey RequestAesKey
	raw, err := key.Decrypt(r.Key)
	if err != nil {
		return nil, aesKey, fmt.Errorf("%w: failed to unwrap request key: %v", ErrCrypto, err)
	}
	if len(raw) != AesKeySize {
		return nil, aesKey, fmt.Errorf("%w: request key must be %d bytes, got %d", ErrCrypto, AesKeySize, len(raw))
	}
	copy(aesKey[:], raw)
	plaintext, err := AesDecrypt(aesKey, r.Payload)
	if err != nil {
		return nil, aesKey, err
	}
	return plaintext, aesKey, nil
}

// RsaRequest carries a payload encrypted directly with the shielding key.
type RsaRequest struct {
	Shard   ShardIdentifier
	Payload []byte
}

func (r *RsaRequest) TargetShard() ShardIdentifier { return r.Shard }

func (r *RsaRequest) Decrypt(key ShieldingDecrypter) ([]byte, error) {
	plaintext, err := key.Decrypt(r.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	return plaintext, nil
}

// DecodeHexParam decodes a hex RPC parameter into an RLP value.
func DecodeHexParam(param string, val interface{}) error {
	raw, err := hexutil.Decode(param)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := rlp.DecodeBytes(raw, val); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// EncodeHex returns hex(rlp(val)).
func EncodeHex(val interface{}) (string, error) {
	enc, err := rlp.EncodeToBytes(val)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(enc), nil
}
