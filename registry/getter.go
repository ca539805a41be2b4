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
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/litentry/bitacross-worker/primitives"
)

// SignerInfo is the getter representation of a signer registry entry.
type SignerInfo struct {
	Account primitives.Address32
	PubKey  primitives.PubKey
}

// EnclaveInfo is the getter representation of an enclave registry entry.
type EnclaveInfo struct {
	Account primitives.Address32
	Url     string
}

// GetterExecutor answers read-only getters against the membership registries.
type GetterExecutor struct {
	relayers *RelayerRegistry
	signers  *SignerRegistry
	enclaves *EnclaveRegistry
}

func NewGetterExecutor(relayers *RelayerRegistry, signers *SignerRegistry, enclaves *EnclaveRegistry) *GetterExecutor {
	return &GetterExecutor{relayers: relayers, signers: signers, enclaves: enclaves}
}

// Execute returns the RLP encoded result of getter.
func (g *GetterExecutor) Execute(getter *primitives.Getter) ([]byte, error) {
	switch getter.Kind {
	case primitives.GetterIsRelayer:
		var id primitives.Identity
		if err := rlp.DecodeBytes(getter.Args, &id); err != nil {
			return nil, fmt.Errorf("%w: is_relayer args: %v", primitives.ErrDecode, err)
		}
		ok, err := g.relayers.ContainsKey(id)
		if err != nil {
			return nil, err
		}
		return rlp.EncodeToBytes(ok)

	case primitives.GetterSigners:
		entries, err := g.signers.GetAll()
		if err != nil {
			return nil, err
		}
		out := make([]SignerInfo, len(entries))
		for i, e := range entries {
			out[i] = SignerInfo{Account: e.Key, PubKey: e.Value}
		}
		return rlp.EncodeToBytes(out)

	case primitives.GetterEnclaves:
		entries, err := g.enclaves.GetAll()
		if err != nil {
			return nil, err
		}
		out := make([]EnclaveInfo, len(entries))
		for i, e := range entries {
			out[i] = EnclaveInfo{Account: e.Key, Url: e.Value}
		}
		return rlp.EncodeToBytes(out)
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownGetter, getter.Kind)
}
