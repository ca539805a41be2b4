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
	"github.com/litentry/bitacross-worker/primitives"
)

// RelayerUpdater is the write path used by indirect calls
type RelayerUpdater interface {
	Update(id primitives.Identity) error
	Remove(id primitives.Identity) error
}

// RelayerLookup answers membership queries for direct requests
type RelayerLookup interface {
	ContainsKey(id primitives.Identity) (bool, error)
}

// SignerUpdater is the write path of the signer registry
type SignerUpdater interface {
	Update(account primitives.Address32, key primitives.PubKey) error
	Remove(account primitives.Address32) error
}

// EnclaveUpdater is the write path of the enclave registry
type EnclaveUpdater interface {
	Update(account primitives.Address32, url string) error
	Remove(account primitives.Address32) error
}

var (
	_ RelayerUpdater = (*RelayerRegistry)(nil)
	_ RelayerLookup  = (*RelayerRegistry)(nil)
	_ SignerUpdater  = (*SignerRegistry)(nil)
	_ EnclaveUpdater = (*EnclaveRegistry)(nil)
)
