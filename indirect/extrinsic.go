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

package indirect

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/litentry/bitacross-worker/primitives"
)

// ParentchainCall is a call index with its encoded arguments.
type ParentchainCall struct {
	Index CallIndex
	Args  []byte
}

// Extrinsic is the envelope of a parentchain extrinsic. Signer is empty
// for unsigned extrinsics.
type Extrinsic struct {
	Signer []byte
	Call   ParentchainCall
}

// DecodeExtrinsic splits a raw extrinsic into its call index and arguments.
func DecodeExtrinsic(raw []byte) (*Extrinsic, error) {
	xt := new(Extrinsic)
	if err := rlp.DecodeBytes(raw, xt); err != nil {
		return nil, fmt.Errorf("%w: extrinsic: %v", primitives.ErrParse, err)
	}
	return xt, nil
}

// Encode returns the raw extrinsic.
func (xt *Extrinsic) Encode() []byte {
	enc, err := rlp.EncodeToBytes(xt)
	if err != nil {
		panic(fmt.Sprintf("encode extrinsic: %v", err))
	}
	return enc
}

// ParentchainBlock is a finalized parentchain block handed to the executor.
type ParentchainBlock struct {
	Number     primitives.ParentchainBlockNumber
	Hash       common.Hash
	Extrinsics [][]byte
}

// ExtrinsicHash identifies a raw extrinsic.
func ExtrinsicHash(raw []byte) common.Hash {
	return crypto.Keccak256Hash(raw)
}

// MerkleRoot is the keccak binary merkle root of leaves. Pairs are hashed
// left to right, an odd last node is carried up unchanged. The root of no
// leaves is the zero hash.
func MerkleRoot(leaves []common.Hash) common.Hash {
	if len(leaves) == 0 {
		return common.Hash{}
	}
	level := make([]common.Hash, len(leaves))
	for i, l := range leaves {
		level[i] = crypto.Keccak256Hash(l[:])
	}
	for len(level) > 1 {
		next := make([]common.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, crypto.Keccak256Hash(level[i][:], level[i+1][:]))
		}
		level = next
	}
	return level[0]
}

// ProcessedBlockArgs confirm that the worker imported a parentchain block.
type ProcessedBlockArgs struct {
	BlockHash   common.Hash
	BlockNumber primitives.ParentchainBlockNumber
	MerkleRoot  common.Hash
}

// OpaqueCall is a call the worker sends back to the parentchain.
type OpaqueCall = ParentchainCall
