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
	"context"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/require"

	"github.com/litentry/bitacross-worker/indirect"
	"github.com/litentry/bitacross-worker/primitives"
)

func handle(t *testing.T, h *IoHandler, method string, params ...string) primitives.RpcReturnValue {
	t.Helper()
	resp, value := h.Handle(context.Background(), rpcRequest(t, method, params...))
	require.Equal(t, uint64(7), resp.Id)
	require.Equal(t, primitives.JSONRPCVersion, resp.Jsonrpc)
	return value
}

func TestHandler_SystemMethods(t *testing.T) {
	tb := newTestBackend(t)
	h := NewIoHandler(tb.Backend)

	require.Equal(t, []byte("bitacross-worker"), handle(t, h, "system_name").Value)
	require.Equal(t, []byte("0.1.0-test"), handle(t, h, "system_version").Value)
	require.Equal(t, testMrenclave[:], handle(t, h, "state_getMrenclave").Value)
	require.Equal(t, testShard.Bytes(), handle(t, h, "author_getShard").Value)

	var methods []string
	require.NoError(t, json.Unmarshal(handle(t, h, "rpc_methods").Value, &methods))
	require.Contains(t, methods, "author_submitAndWatchAesRequest")
	require.Contains(t, methods, "bitacross_submitRequest")

	var health healthReport
	require.NoError(t, json.Unmarshal(handle(t, h, "system_health").Value, &health))
	require.False(t, health.BlockProductionPaused)
}

func TestHandler_Errors(t *testing.T) {
	h := NewIoHandler(newTestBackend(t).Backend)

	value := handle(t, h, "nope_nothing")
	require.Equal(t, primitives.DirectError, value.Status.Code)
	require.Contains(t, string(value.Value), ErrMethodNotFound.Error())

	value = handle(t, h, "author_submitRsaRequest")
	require.Equal(t, primitives.DirectError, value.Status.Code)

	value = handle(t, h, "state_setScheduledEnclave", "0x10", testMrenclave.Hex())
	require.Equal(t, primitives.DirectError, value.Status.Code)
	require.Contains(t, string(value.Value), ErrDevModeOnly.Error())

	resp, value := h.Handle(context.Background(), []byte("{not json"))
	require.Zero(t, resp.Id)
	require.Equal(t, primitives.DirectError, value.Status.Code)
}

func TestHandler_SubmitVariants(t *testing.T) {
	tb := newTestBackend(t)
	h := NewIoHandler(tb.Backend)
	param, err := primitives.EncodeHex(&primitives.RsaRequest{Shard: testShard, Payload: []byte{1, 2}})
	require.NoError(t, err)

	value := handle(t, h, "author_submitAndWatchRsaRequest", param)
	require.True(t, value.DoWatch)
	require.Equal(t, tb.author.hash.Bytes(), value.Value)
	hash, ok := WatchedHash(value)
	require.True(t, ok)
	require.Equal(t, tb.author.hash, hash)
	require.Len(t, tb.author.watched, 1)

	value = handle(t, h, "author_submitRsaRequest", param)
	require.False(t, value.DoWatch)
	_, ok = WatchedHash(value)
	require.False(t, ok)

	aes, err := primitives.EncodeHex(&primitives.AesRequest{Shard: testShard, Key: []byte{1}})
	require.NoError(t, err)
	value = handle(t, h, "author_submitAndWatchAesRequest", aes)
	require.True(t, value.DoWatch)
	require.Len(t, tb.author.watched, 2)
}

func TestHandler_ExecuteGetter(t *testing.T) {
	h := NewIoHandler(newTestBackend(t).Backend)

	param, err := primitives.EncodeHex(&GetterRequest{
		Shard:  testShard,
		Getter: primitives.Getter{Kind: primitives.GetterSigners, Args: []byte{9}},
	})
	require.NoError(t, err)
	value := handle(t, h, "state_executeGetter", param)
	require.Equal(t, primitives.DirectOk, value.Status.Code)
	require.Equal(t, []byte{byte(primitives.GetterSigners), 9}, value.Value)

	param, err = primitives.EncodeHex(&GetterRequest{Shard: common.HexToHash("0xdead")})
	require.NoError(t, err)
	require.Equal(t, primitives.DirectError, handle(t, h, "state_executeGetter", param).Status.Code)
}

func TestHandler_DevMethods(t *testing.T) {
	tb := newTestBackend(t)
	tb.DevMode = true
	h := NewIoHandler(tb.Backend)

	m1 := primitives.MrEnclave{0x01}
	value := handle(t, h, "state_setScheduledEnclave", hexutil.EncodeUint64(20), m1.Hex())
	require.Equal(t, primitives.DirectOk, value.Status.Code, string(value.Value))
	got, err := tb.Scheduled.ExpectedMrenclave(25)
	require.NoError(t, err)
	require.Equal(t, m1, got)

	block, err := primitives.EncodeHex(&indirect.ParentchainBlock{Number: 3})
	require.NoError(t, err)
	value = handle(t, h, "dev_importParentchainBlock", block)
	require.Equal(t, primitives.DirectOk, value.Status.Code, string(value.Value))
	require.Len(t, tb.importer.blocks, 1)
	require.Equal(t, uint64(3), tb.importer.blocks[0].Number)
}

// aesCall builds a bitacross_submitRequest parameter signed by signer.
func aesCall(t *testing.T, signer *ecdsaAccount, kind primitives.TrustedCallKind, payload []byte) (string, primitives.RequestAesKey) {
	t.Helper()
	call := primitives.DirectCall{Kind: kind, Signer: signer.Identity(), Payload: payload}
	sig, err := signer.SignPrehash(call.SignaturePayload(testMrenclave, testShard))
	require.NoError(t, err)
	enc, err := rlp.EncodeToBytes(&primitives.DirectCallSigned{Call: call, Signature: sig})
	require.NoError(t, err)

	var key primitives.RequestAesKey
	copy(key[:], crypto.Keccak256([]byte("request key")))
	out, err := primitives.AesEncrypt(key, enc, nil)
	require.NoError(t, err)
	param, err := primitives.EncodeHex(&primitives.AesRequest{Shard: testShard, Key: xorKey(0x3c).encrypt(key[:]), Payload: out})
	require.NoError(t, err)
	return param, key
}

func openResponse(t *testing.T, key primitives.RequestAesKey, value primitives.RpcReturnValue) []byte {
	t.Helper()
	var out primitives.AesOutput
	require.NoError(t, rlp.DecodeBytes(value.Value, &out))
	plain, err := primitives.AesDecrypt(key, out)
	require.NoError(t, err)
	return plain
}

func TestHandler_SubmitRequestSignsForRelayers(t *testing.T) {
	tb := newTestBackend(t)
	h := NewIoHandler(tb.Backend)
	relayer := newAccount(t)
	digest := crypto.Keccak256Hash([]byte("message"))

	param, key := aesCall(t, relayer, primitives.CallSignEthereum, digest.Bytes())
	value := handle(t, h, "bitacross_submitRequest", param)
	require.Equal(t, primitives.DirectError, value.Status.Code)
	require.Contains(t, string(openResponse(t, key, value)), "relayer")

	tb.relayers[relayer.Identity()] = true
	value = handle(t, h, "bitacross_submitRequest", param)
	require.Equal(t, primitives.DirectOk, value.Status.Code)
	sig := openResponse(t, key, value)
	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(tb.account.key.PublicKey), crypto.PubkeyToAddress(*pub))

	param, key = aesCall(t, relayer, primitives.CallSignEthereum, []byte{1, 2, 3})
	value = handle(t, h, "bitacross_submitRequest", param)
	require.Equal(t, primitives.DirectError, value.Status.Code)
	require.Contains(t, string(openResponse(t, key, value)), ErrInvalidParams.Error())

	param, key = aesCall(t, relayer, primitives.CallSignBitcoin, nil)
	value = handle(t, h, "bitacross_submitRequest", param)
	require.Contains(t, string(openResponse(t, key, value)), ErrUnsupportedCall.Error())
}
