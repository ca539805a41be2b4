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
	"crypto/ed25519"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// TrustedCallKind selects the state transition a trusted call requests.
type TrustedCallKind uint8

const (
	CallNoop          TrustedCallKind = 0
	CallBalanceShield TrustedCallKind = 1
	CallSignEthereum  TrustedCallKind = 2
	CallSignBitcoin   TrustedCallKind = 3
)

// TrustedCall is an unsigned call. Args is the RLP encoding of the
// kind-specific argument struct.
type TrustedCall struct {
	Kind   TrustedCallKind
	Signer Identity
	Args   []byte
}

// BalanceShieldArgs are the arguments of CallBalanceShield.
type BalanceShieldArgs struct {
	Account Identity
	Amount  *uint256.Int
	Block   uint64
}

// SignaturePayload is the digest a call signer commits to.
func (c *TrustedCall) SignaturePayload(nonce uint32, mrenclave MrEnclave, shard ShardIdentifier) common.Hash {
	enc, err := rlp.EncodeToBytes([]interface{}{c, nonce, mrenclave, shard})
	if err != nil {
		panic(fmt.Sprintf("encode trusted call: %v", err))
	}
	return crypto.Keccak256Hash(enc)
}

// TrustedCallSigned is a call with its nonce and the signer's signature.
type TrustedCallSigned struct {
	Call      TrustedCall
	Nonce     uint32
	Signature []byte
}

// Verify checks the signature against the call's signer identity.
func (c *TrustedCallSigned) Verify(mrenclave MrEnclave, shard ShardIdentifier) error {
	digest := c.Call.SignaturePayload(c.Nonce, mrenclave, shard)
	return VerifySignature(c.Call.Signer, digest, c.Signature)
}

// VerifySignature checks a signature over digest for the given identity.
// EVM identities use recoverable secp256k1 signatures, substrate and solana
// identities ed25519.
func VerifySignature(signer Identity, digest common.Hash, sig []byte) error {
	switch signer.Kind {
	case IdentityEvm:
		if len(sig) != crypto.SignatureLength {
			return ErrInvalidSignature
		}
		pub, err := crypto.SigToPub(digest.Bytes(), sig)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		if crypto.PubkeyToAddress(*pub) != signer.EvmAddress() {
			return ErrInvalidSignature
		}
		return nil
	case IdentitySubstrate, IdentitySolana:
		if len(sig) != ed25519.SignatureSize {
			return ErrInvalidSignature
		}
		if !ed25519.Verify(ed25519.PublicKey(signer.Address.Bytes()), digest.Bytes(), sig) {
			return ErrInvalidSignature
		}
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedKind, signer.Kind)
	}
}

// GetterKind selects a read-only query against enclave state.
type GetterKind uint8

const (
	GetterIsRelayer GetterKind = 0
	GetterSigners   GetterKind = 1
	GetterEnclaves  GetterKind = 2
)

// Getter is a read-only query. Args is the RLP encoding of the query input.
type Getter struct {
	Kind GetterKind
	Args []byte
}

// DirectCall is a call executed synchronously by bitacross_submitRequest.
type DirectCall struct {
	Kind    TrustedCallKind
	Signer  Identity
	Payload []byte
}

// DirectCallSigned is a signed DirectCall.
type DirectCallSigned struct {
	Call      DirectCall
	Signature []byte
}

// SignaturePayload is the digest a direct call signer commits to.
func (c *DirectCall) SignaturePayload(mrenclave MrEnclave, shard ShardIdentifier) common.Hash {
	enc, err := rlp.EncodeToBytes([]interface{}{c, mrenclave, shard})
	if err != nil {
		panic(fmt.Sprintf("encode direct call: %v", err))
	}
	return crypto.Keccak256Hash(enc)
}

// Verify checks the signature against the call's signer identity.
func (c *DirectCallSigned) Verify(mrenclave MrEnclave, shard ShardIdentifier) error {
	return VerifySignature(c.Call.Signer, c.Call.SignaturePayload(mrenclave, shard), c.Signature)
}

// OperationKind is the wire discriminant of a TrustedOperation.
type OperationKind uint8

const (
	OperationIndirectCall OperationKind = 0
	OperationDirectCall   OperationKind = 1
	OperationGet          OperationKind = 2
)

func (k OperationKind) String() string {
	switch k {
	case OperationIndirectCall:
		return "indirect_call"
	case OperationDirectCall:
		return "direct_call"
	case OperationGet:
		return "get"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// TrustedOperation is either a signed call (direct or indirect) or a getter.
type TrustedOperation struct {
	Kind   OperationKind
	Call   *TrustedCallSigned
	Getter *Getter
}

// NewDirectCallOperation wraps a call submitted by a client.
func NewDirectCallOperation(call *TrustedCallSigned) *TrustedOperation {
	return &TrustedOperation{Kind: OperationDirectCall, Call: call}
}

// NewIndirectCallOperation wraps a call triggered by the parentchain.
func NewIndirectCallOperation(call *TrustedCallSigned) *TrustedOperation {
	return &TrustedOperation{Kind: OperationIndirectCall, Call: call}
}

// NewGetterOperation wraps a getter.
func NewGetterOperation(getter *Getter) *TrustedOperation {
	return &TrustedOperation{Kind: OperationGet, Getter: getter}
}

// Signer returns the identity that signed the operation, if it is a call.
func (op *TrustedOperation) Signer() (Identity, bool) {
	if op.Call == nil {
		return Identity{}, false
	}
	return op.Call.Call.Signer, true
}

// Encode returns the RLP encoding used for hashing and size accounting.
func (op *TrustedOperation) Encode() []byte {
	enc, err := rlp.EncodeToBytes(op)
	if err != nil {
		panic(fmt.Sprintf("encode trusted operation: %v", err))
	}
	return enc
}

// EncodeRLP writes the operation as [kind, payload].
func (op *TrustedOperation) EncodeRLP(w io.Writer) error {
	switch op.Kind {
	case OperationIndirectCall, OperationDirectCall:
		if op.Call == nil {
			return fmt.Errorf("%w: %s without call", ErrDecode, op.Kind)
		}
		return rlp.Encode(w, []interface{}{uint8(op.Kind), op.Call})
	case OperationGet:
		if op.Getter == nil {
			return fmt.Errorf("%w: getter operation without getter", ErrDecode)
		}
		return rlp.Encode(w, []interface{}{uint8(op.Kind), op.Getter})
	default:
		return fmt.Errorf("%w: unknown operation kind %d", ErrDecode, op.Kind)
	}
}

// DecodeRLP implements rlp.Decoder.
func (op *TrustedOperation) DecodeRLP(st *rlp.Stream) error {
	if _, err := st.List(); err != nil {
		return err
	}
	kind, err := st.Uint8()
	if err != nil {
		return err
	}
	*op = TrustedOperation{Kind: OperationKind(kind)}
	switch op.Kind {
	case OperationIndirectCall, OperationDirectCall:
		op.Call = new(TrustedCallSigned)
		if err := st.Decode(op.Call); err != nil {
			return err
		}
	case OperationGet:
		op.Getter = new(Getter)
		if err := st.Decode(op.Getter); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown operation kind %d", ErrDecode, kind)
	}
	return st.ListEnd()
}

// DecodeTrustedOperation decodes a plaintext operation.
func DecodeTrustedOperation(raw []byte) (*TrustedOperation, error) {
	op := new(TrustedOperation)
	if err := rlp.DecodeBytes(raw, op); err != nil {
		return nil, fmt.Errorf("%w: trusted operation: %v", ErrDecode, err)
	}
	return op, nil
}
