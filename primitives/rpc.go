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
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
)

// JSONRPCVersion is the protocol version echoed in every response.
const JSONRPCVersion = "2.0"

// RpcRequest is the JSON-RPC request envelope. Params are hex strings.
type RpcRequest struct {
	Jsonrpc string   `json:"jsonrpc"`
	Method  string   `json:"method"`
	Params  []string `json:"params"`
	Id      uint64   `json:"id"`
}

// RpcResponse is the JSON-RPC response envelope. For trusted methods Result
// is hex(rlp(RpcReturnValue)).
type RpcResponse struct {
	Jsonrpc string `json:"jsonrpc"`
	Result  string `json:"result"`
	Id      uint64 `json:"id"`
}

// RpcReturnValue is what clients decode out of RpcResponse.Result.
// DoWatch is authoritative for stream termination.
type RpcReturnValue struct {
	Value   []byte
	DoWatch bool
	Status  DirectRequestStatus
}

// NewRpcReturnValue assembles a return value.
func NewRpcReturnValue(value []byte, doWatch bool, status DirectRequestStatus) RpcReturnValue {
	return RpcReturnValue{Value: value, DoWatch: doWatch, Status: status}
}

// ErrorReturnValue is the value sent for every failed request.
func ErrorReturnValue(msg string) RpcReturnValue {
	return RpcReturnValue{Value: []byte(msg), DoWatch: false, Status: StatusError()}
}

// Encode returns the binary encoding.
func (v RpcReturnValue) Encode() []byte {
	enc, err := rlp.EncodeToBytes(&v)
	if err != nil {
		// Only unknown status codes fail, which constructors never produce.
		panic(fmt.Sprintf("encode rpc return value: %v", err))
	}
	return enc
}

// ToHex returns the 0x-prefixed hex of the binary encoding.
func (v RpcReturnValue) ToHex() string {
	return hexutil.Encode(v.Encode())
}

// RpcReturnValueFromHex decodes a value produced by ToHex.
func RpcReturnValueFromHex(s string) (RpcReturnValue, error) {
	var v RpcReturnValue
	raw, err := hexutil.Decode(s)
	if err != nil {
		return v, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := rlp.DecodeBytes(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return v, nil
}
