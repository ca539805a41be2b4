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

package author

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/litentry/bitacross-worker/primitives"
)

// AuthorApi is the entry point of client and chain submitted operations
type AuthorApi interface {
	// SubmitTop decrypts, verifies and imports a client request
	SubmitTop(req primitives.DecryptableRequest) (common.Hash, error)

	// WatchTop is SubmitTop with status updates for the returned hash
	WatchTop(req primitives.DecryptableRequest) (common.Hash, error)

	// SubmitIndirect imports a call the enclave built from a parentchain block
	SubmitIndirect(shard primitives.ShardIdentifier, call *primitives.TrustedCallSigned) (common.Hash, error)

	// PendingTops returns the encoded pending operations of each shard
	PendingTops(shards []primitives.ShardIdentifier) (map[primitives.ShardIdentifier][][]byte, error)

	// GetPendingTrustedCallsFor returns the pending calls signed by account
	GetPendingTrustedCallsFor(shard primitives.ShardIdentifier, account primitives.Identity) [][]byte

	// GetShards returns the shards this worker serves
	GetShards() []primitives.ShardIdentifier

	// UpdateConnectionState replaces the value a watching connection receives next
	UpdateConnectionState(hash common.Hash, encodedValue []byte, forceWait bool) error

	// SwapRpcConnectionHash moves the watchers of old over to new
	SwapRpcConnectionHash(old, new common.Hash) error
}

// WriteGate rejects state changing requests while block production is paused
type WriteGate interface {
	CheckWrite() error
}

// ConnectionUpdater is the part of the RPC responder the author drives
type ConnectionUpdater interface {
	UpdateConnectionState(hash common.Hash, encodedValue []byte, forceWait bool) error
	SwapHash(old, new common.Hash) error
}
