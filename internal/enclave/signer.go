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
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/litentry/bitacross-worker/primitives"
	"github.com/litentry/bitacross-worker/storage"
)

// Signer is the secp256k1 account of the enclave. It signs the trusted calls
// the enclave builds from parentchain events and the digests relayers ask for.
type Signer struct {
	key       *ecdsa.PrivateKey
	identity  primitives.Identity
	mrenclave primitives.MrEnclave
}

// sealedKeySize is the private scalar followed by the address it belongs to.
const sealedKeySize = 32 + common.AddressLength

// LoadOrCreateSigner unseals the signing key, generating and sealing a new
// one on first start.
func LoadOrCreateSigner(seal storage.SealedIO, mrenclave primitives.MrEnclave) (*Signer, error) {
	exists, err := seal.Exists()
	if err != nil {
		return nil, err
	}
	if !exists {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, err
		}
		addr := crypto.PubkeyToAddress(key.PublicKey)
		raw := append(crypto.FromECDSA(key), addr.Bytes()...)
		defer wipe(raw)
		if err := seal.Seal(raw); err != nil {
			return nil, err
		}
		log.Info("Generated new enclave signing key", "file", seal.Name(), "address", addr)
		return newSigner(key, mrenclave), nil
	}
	raw, err := seal.Unseal()
	if err != nil {
		return nil, err
	}
	defer wipe(raw)
	if len(raw) != sealedKeySize {
		return nil, fmt.Errorf("%w: %s: %d bytes", ErrCorruptKey, seal.Name(), len(raw))
	}
	key, err := crypto.ToECDSA(raw[:32])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptKey, seal.Name(), err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)
	if !constantTimeEqual(addr.Bytes(), raw[32:]) {
		return nil, fmt.Errorf("%w: %s: address mismatch", ErrCorruptKey, seal.Name())
	}
	log.Info("Unsealed enclave signing key", "file", seal.Name(), "address", addr)
	return newSigner(key, mrenclave), nil
}

func newSigner(key *ecdsa.PrivateKey, mrenclave primitives.MrEnclave) *Signer {
	return &Signer{
		key:       key,
		identity:  primitives.EvmIdentity(crypto.PubkeyToAddress(key.PublicKey)),
		mrenclave: mrenclave,
	}
}

func (s *Signer) Identity() primitives.Identity {
	return s.identity
}

func (s *Signer) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// SignCall signs call for shard the way clients sign their trusted calls.
func (s *Signer) SignCall(call primitives.TrustedCall, nonce uint32, shard primitives.ShardIdentifier) (*primitives.TrustedCallSigned, error) {
	call.Signer = s.identity
	sig, err := crypto.Sign(call.SignaturePayload(nonce, s.mrenclave, shard).Bytes(), s.key)
	if err != nil {
		return nil, err
	}
	return &primitives.TrustedCallSigned{Call: call, Nonce: nonce, Signature: sig}, nil
}

// SignPrehash returns a 65-byte recoverable signature over digest.
func (s *Signer) SignPrehash(digest common.Hash) ([]byte, error) {
	return crypto.Sign(digest.Bytes(), s.key)
}
