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
	"bytes"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ShardIdentifier partitions all per-shard state and operation queues.
type ShardIdentifier = common.Hash

// SidechainBlockNumber is the height of a sidechain block.
type SidechainBlockNumber = uint64

// ParentchainBlockNumber is the height of a parentchain block.
type ParentchainBlockNumber = uint64

// MrEnclave is the measurement identifying one enclave build.
type MrEnclave [32]byte

// Hex returns the 0x-prefixed hex form of the measurement.
func (m MrEnclave) Hex() string {
	return "0x" + hex.EncodeToString(m[:])
}

func (m MrEnclave) String() string {
	return m.Hex()
}

// Equal compares two measurements in constant time.
func (m MrEnclave) Equal(other MrEnclave) bool {
	return subtle.ConstantTimeCompare(m[:], other[:]) == 1
}

// IsZero reports whether the measurement is unset.
func (m MrEnclave) IsZero() bool {
	return m == MrEnclave{}
}

// ParseMrEnclave decodes a hex measurement, with or without 0x prefix.
func ParseMrEnclave(s string) (MrEnclave, error) {
	var m MrEnclave
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return m, fmt.Errorf("%w: mrenclave: %v", ErrDecode, err)
	}
	if len(raw) != len(m) {
		return m, fmt.Errorf("%w: mrenclave must be %d bytes, got %d", ErrDecode, len(m), len(raw))
	}
	copy(m[:], raw)
	return m, nil
}

// ShardFromMrenclave returns the default shard of an enclave, which is its own measurement.
func ShardFromMrenclave(m MrEnclave) ShardIdentifier {
	return common.Hash(m)
}

// Address32 is a 32-byte on-chain account id.
type Address32 [32]byte

func (a Address32) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// CompareAddress32 orders account ids bytewise.
func CompareAddress32(a, b Address32) int {
	return bytes.Compare(a[:], b[:])
}

// PubKey is a compressed secp256k1 public key.
type PubKey [33]byte

// WorkerType identifies the kind of worker an enclave registration belongs to.
type WorkerType uint8

const (
	WorkerTypeIdentity WorkerType = iota
	WorkerTypeBitAcross
)

// IdentityKind tags the address scheme of an Identity.
type IdentityKind uint8

const (
	IdentitySubstrate IdentityKind = iota
	IdentityEvm
	IdentitySolana
)

func (k IdentityKind) String() string {
	switch k {
	case IdentitySubstrate:
		return "substrate"
	case IdentityEvm:
		return "evm"
	case IdentitySolana:
		return "solana"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Identity is an account on one of the supported networks. EVM addresses are
// stored right-aligned in Address, the same way common.BytesToHash pads them.
type Identity struct {
	Kind    IdentityKind
	Address common.Hash
}

// SubstrateIdentity builds an identity from a 32-byte public key.
func SubstrateIdentity(pub [32]byte) Identity {
	return Identity{Kind: IdentitySubstrate, Address: common.Hash(pub)}
}

// EvmIdentity builds an identity from an EVM address.
func EvmIdentity(addr common.Address) Identity {
	return Identity{Kind: IdentityEvm, Address: common.BytesToHash(addr.Bytes())}
}

// EvmAddress returns the 20-byte address of an EVM identity.
func (id Identity) EvmAddress() common.Address {
	return common.BytesToAddress(id.Address.Bytes())
}

func (id Identity) String() string {
	if id.Kind == IdentityEvm {
		return id.Kind.String() + ":" + id.EvmAddress().Hex()
	}
	return id.Kind.String() + ":" + id.Address.Hex()
}

// ParseIdentity accepts "<kind>:<hex>" or a bare hex string. Bare 20-byte
// values are EVM addresses, bare 32-byte values substrate accounts.
func ParseIdentity(s string) (Identity, error) {
	kind, value, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		value, kind = kind, ""
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(value, "0x"))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: identity: %v", ErrDecode, err)
	}
	switch kind {
	case "":
		switch len(raw) {
		case common.AddressLength:
			return EvmIdentity(common.BytesToAddress(raw)), nil
		case common.HashLength:
			return Identity{Kind: IdentitySubstrate, Address: common.BytesToHash(raw)}, nil
		}
	case "evm":
		if len(raw) == common.AddressLength {
			return EvmIdentity(common.BytesToAddress(raw)), nil
		}
	case "substrate", "solana":
		if len(raw) == common.HashLength {
			k := IdentitySubstrate
			if kind == "solana" {
				k = IdentitySolana
			}
			return Identity{Kind: k, Address: common.BytesToHash(raw)}, nil
		}
	}
	return Identity{}, fmt.Errorf("%w: malformed identity %q", ErrDecode, s)
}

// CompareIdentity orders identities by kind, then by address bytes.
func CompareIdentity(a, b Identity) int {
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	return bytes.Compare(a.Address[:], b.Address[:])
}
