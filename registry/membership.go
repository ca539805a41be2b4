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

package registry

import (
	"strings"

	"github.com/litentry/bitacross-worker/primitives"
	"github.com/litentry/bitacross-worker/storage"
)

// RelayerRegistry holds the identities allowed to submit direct requests.
type RelayerRegistry struct {
	r *Registry[primitives.Identity, struct{}]
}

func NewRelayerRegistry(seal storage.SealedIO) *RelayerRegistry {
	return &RelayerRegistry{r: New[primitives.Identity, struct{}](seal, primitives.CompareIdentity)}
}

func (rr *RelayerRegistry) Init() error { return rr.r.Init() }

func (rr *RelayerRegistry) Update(id primitives.Identity) error {
	return rr.r.Update(id, struct{}{})
}

func (rr *RelayerRegistry) Remove(id primitives.Identity) error { return rr.r.Remove(id) }

func (rr *RelayerRegistry) ContainsKey(id primitives.Identity) (bool, error) {
	return rr.r.ContainsKey(id)
}

// GetAll returns the relayers in ascending order.
func (rr *RelayerRegistry) GetAll() ([]primitives.Identity, error) {
	entries, err := rr.r.GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]primitives.Identity, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out, nil
}

// SignerRegistry maps enclave accounts to the compressed public key of the
// wallet they generated.
type SignerRegistry struct {
	r *Registry[primitives.Address32, primitives.PubKey]
}

func NewSignerRegistry(seal storage.SealedIO) *SignerRegistry {
	return &SignerRegistry{r: New[primitives.Address32, primitives.PubKey](seal, primitives.CompareAddress32)}
}

func (sr *SignerRegistry) Init() error { return sr.r.Init() }

func (sr *SignerRegistry) Update(account primitives.Address32, key primitives.PubKey) error {
	return sr.r.Update(account, key)
}

func (sr *SignerRegistry) Remove(account primitives.Address32) error { return sr.r.Remove(account) }

func (sr *SignerRegistry) ContainsKey(account primitives.Address32) (bool, error) {
	return sr.r.ContainsKey(account)
}

func (sr *SignerRegistry) Get(account primitives.Address32) (primitives.PubKey, bool, error) {
	return sr.r.Get(account)
}

func (sr *SignerRegistry) GetAll() ([]Entry[primitives.Address32, primitives.PubKey], error) {
	return sr.r.GetAll()
}

// EnclaveRegistry maps enclave accounts to their public RPC url.
type EnclaveRegistry struct {
	r *Registry[primitives.Address32, string]
}

func NewEnclaveRegistry(seal storage.SealedIO) *EnclaveRegistry {
	return &EnclaveRegistry{r: New[primitives.Address32, string](seal, primitives.CompareAddress32)}
}

func (er *EnclaveRegistry) Init() error { return er.r.Init() }

// Update registers account at url. Urls are stored trimmed.
func (er *EnclaveRegistry) Update(account primitives.Address32, url string) error {
	return er.r.Update(account, strings.TrimSpace(url))
}

func (er *EnclaveRegistry) Remove(account primitives.Address32) error { return er.r.Remove(account) }

func (er *EnclaveRegistry) ContainsKey(account primitives.Address32) (bool, error) {
	return er.r.ContainsKey(account)
}

func (er *EnclaveRegistry) GetAll() ([]Entry[primitives.Address32, string], error) {
	return er.r.GetAll()
}
