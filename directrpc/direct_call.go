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

package directrpc

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/litentry/bitacross-worker/primitives"
	"github.com/litentry/bitacross-worker/registry"
)

// EnclaveAccount is the signing account of the enclave.
type EnclaveAccount interface {
	Identity() primitives.Identity
	SignPrehash(digest common.Hash) ([]byte, error)
}

// DirectCallExecutor runs the synchronous calls of bitacross_submitRequest.
// Only relayers may submit them. Responses are encrypted with the request key.
type DirectCallExecutor struct {
	shielding primitives.ShieldingDecrypter
	relayers  registry.RelayerLookup
	account   EnclaveAccount
	mrenclave primitives.MrEnclave
	logger    log.Logger
}

func NewDirectCallExecutor(shielding primitives.ShieldingDecrypter, relayers registry.RelayerLookup,
	account EnclaveAccount, mrenclave primitives.MrEnclave) *DirectCallExecutor {
	return &DirectCallExecutor{
		shielding: shielding,
		relayers:  relayers,
		account:   account,
		mrenclave: mrenclave,
		logger:    log.New("module", "direct-call"),
	}
}

// Execute never fails; errors are reported in the returned value.
func (e *DirectCallExecutor) Execute(req *primitives.AesRequest) primitives.RpcReturnValue {
	plaintext, key, err := req.DecryptWithKey(e.shielding)
	if err != nil {
		return primitives.ErrorReturnValue(err.Error())
	}
	result, err := e.execute(req.Shard, plaintext)
	if err != nil {
		e.logger.Debug("Direct call failed", "shard", req.Shard, "err", err)
		return encryptedReturnValue(key, []byte(err.Error()), primitives.StatusError())
	}
	return encryptedReturnValue(key, result, primitives.StatusOk())
}

func (e *DirectCallExecutor) execute(shard primitives.ShardIdentifier, plaintext []byte) ([]byte, error) {
	var call primitives.DirectCallSigned
	if err := rlp.DecodeBytes(plaintext, &call); err != nil {
		return nil, fmt.Errorf("%w: direct call: %v", primitives.ErrDecode, err)
	}
	if err := call.Verify(e.mrenclave, shard); err != nil {
		return nil, err
	}
	ok, err := e.relayers.ContainsKey(call.Call.Signer)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnauthorizedRelayer
	}
	switch call.Call.Kind {
	case primitives.CallNoop:
		return nil, nil
	case primitives.CallSignEthereum:
		if len(call.Call.Payload) != common.HashLength {
			return nil, fmt.Errorf("%w: prehashed message must be %d bytes", ErrInvalidParams, common.HashLength)
		}
		return e.account.SignPrehash(common.BytesToHash(call.Call.Payload))
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedCall, call.Call.Kind)
	}
}

func encryptedReturnValue(key primitives.RequestAesKey, payload []byte, status primitives.DirectRequestStatus) primitives.RpcReturnValue {
	out, err := primitives.AesEncrypt(key, payload, nil)
	if err != nil {
		return primitives.ErrorReturnValue(err.Error())
	}
	enc, err := rlp.EncodeToBytes(&out)
	if err != nil {
		return primitives.ErrorReturnValue(err.Error())
	}
	return primitives.NewRpcReturnValue(enc, false, status)
}
