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

package toppool

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/blake2b"

	"github.com/litentry/bitacross-worker/primitives"
)

// Source is where an operation entered the pool from.
type Source uint8

const (
	SourceExternal Source = iota // Submitted by a client over RPC
	SourceInBlock                // Derived from a finalized parentchain block
	SourceLocal                  // Created by the enclave itself
)

func (s Source) String() string {
	switch s {
	case SourceExternal:
		return "external"
	case SourceInBlock:
		return "in-block"
	case SourceLocal:
		return "local"
	}
	return "unknown"
}

// HashOf returns the content hash of op. Identical encodings share a hash.
func HashOf(op *primitives.TrustedOperation) common.Hash {
	return common.Hash(blake2b.Sum256(op.Encode()))
}

// ValidOperation is the verdict of a Validator on an operation.
type ValidOperation struct {
	Priority  uint64
	Requires  []string
	Provides  []string
	Propagate bool
}

// Validator decides whether and how an operation enters the pool.
type Validator interface {
	Validate(shard primitives.ShardIdentifier, source Source, op *primitives.TrustedOperation) (ValidOperation, error)
}

// PooledOperation is an operation together with its pool metadata.
// It is never mutated once imported.
type PooledOperation struct {
	Hash      common.Hash
	Operation *primitives.TrustedOperation
	Source    Source
	Priority  uint64
	Requires  []string
	Provides  []string
	Propagate bool
	Bytes     int

	insertID uint64
}

// Status summarizes one shard of the pool.
type Status struct {
	Ready       int
	ReadyBytes  int
	Future      int
	FutureBytes int
}

// NonceTag is the tag an operation of signer with nonce provides.
func NonceTag(signer primitives.Identity, nonce uint32) string {
	buf := make([]byte, 0, 1+common.HashLength+4)
	buf = append(buf, byte(signer.Kind))
	buf = append(buf, signer.Address[:]...)
	buf = binary.BigEndian.AppendUint32(buf, nonce)
	return string(buf)
}

// Priorities assigned by the default validator. Operations that the
// parentchain or the enclave produced replace client submissions.
const (
	PriorityExternal uint64 = 1 << iota
	PriorityInBlock
	PriorityLocal
)

// DefaultValidator lets every client or enclave call provide signer||nonce
// and requires nothing. Operations derived from parentchain blocks and
// getters provide their own hash, they are ordered by the block.
type DefaultValidator struct{}

func (DefaultValidator) Validate(_ primitives.ShardIdentifier, source Source, op *primitives.TrustedOperation) (ValidOperation, error) {
	v := ValidOperation{Propagate: source != SourceLocal}
	switch source {
	case SourceInBlock:
		v.Priority = PriorityInBlock
	case SourceLocal:
		v.Priority = PriorityLocal
	default:
		v.Priority = PriorityExternal
	}
	if op.Call != nil && source != SourceInBlock {
		v.Provides = []string{NonceTag(op.Call.Call.Signer, op.Call.Nonce)}
	} else {
		h := HashOf(op)
		v.Provides = []string{string(h[:])}
	}
	return v, nil
}
