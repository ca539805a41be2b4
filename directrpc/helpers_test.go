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
	"crypto/ecdsa"
	"encoding/json"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/litentry/bitacross-worker/governance"
	"github.com/litentry/bitacross-worker/indirect"
	"github.com/litentry/bitacross-worker/primitives"
	"github.com/litentry/bitacross-worker/storage"
)

var (
	testMrenclave = primitives.MrEnclave{0x42, 0x24}
	testShard     = primitives.ShardFromMrenclave(testMrenclave)
)

// xorKey is a stand-in for the RSA shielding key.
type xorKey byte

func (x xorKey) Decrypt(ciphertext []byte) ([]byte, error) {
	out := make([]byte, len(ciphertext))
	for i, b := range ciphertext {
		out[i] = b ^ byte(x)
	}
	return out, nil
}

func (x xorKey) encrypt(plaintext []byte) []byte {
	out, _ := x.Decrypt(plaintext)
	return out
}

func (x xorKey) PublicKeyBytes() ([]byte, error) { return []byte{byte(x)}, nil }

type ecdsaAccount struct{ key *ecdsa.PrivateKey }

func newAccount(t *testing.T) *ecdsaAccount {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &ecdsaAccount{key: key}
}

func (a *ecdsaAccount) Identity() primitives.Identity {
	return primitives.EvmIdentity(crypto.PubkeyToAddress(a.key.PublicKey))
}

func (a *ecdsaAccount) SignPrehash(digest common.Hash) ([]byte, error) {
	return crypto.Sign(digest.Bytes(), a.key)
}

type relayerSet map[primitives.Identity]bool

func (r relayerSet) ContainsKey(id primitives.Identity) (bool, error) { return r[id], nil }

// fakeAuthor accepts every request and returns a fixed hash.
type fakeAuthor struct {
	mu      sync.Mutex
	hash    common.Hash
	err     error
	watched []primitives.DecryptableRequest
	pending map[primitives.ShardIdentifier][][]byte
	onWatch func(common.Hash) // runs while the request is submitted
}

func (a *fakeAuthor) SubmitTop(req primitives.DecryptableRequest) (common.Hash, error) {
	return a.hash, a.err
}

func (a *fakeAuthor) WatchTop(req primitives.DecryptableRequest) (common.Hash, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.watched = append(a.watched, req)
	if a.onWatch != nil {
		a.onWatch(a.hash)
	}
	return a.hash, a.err
}

func (a *fakeAuthor) SubmitIndirect(primitives.ShardIdentifier, *primitives.TrustedCallSigned) (common.Hash, error) {
	return a.hash, a.err
}

func (a *fakeAuthor) PendingTops(shards []primitives.ShardIdentifier) (map[primitives.ShardIdentifier][][]byte, error) {
	return a.pending, nil
}

func (a *fakeAuthor) GetPendingTrustedCallsFor(primitives.ShardIdentifier, primitives.Identity) [][]byte {
	return nil
}

func (a *fakeAuthor) GetShards() []primitives.ShardIdentifier {
	return []primitives.ShardIdentifier{testShard}
}

func (a *fakeAuthor) UpdateConnectionState(common.Hash, []byte, bool) error { return nil }
func (a *fakeAuthor) SwapRpcConnectionHash(common.Hash, common.Hash) error  { return nil }

type fakeGetters struct{}

func (fakeGetters) Execute(g *primitives.Getter) ([]byte, error) {
	return append([]byte{byte(g.Kind)}, g.Args...), nil
}

type recordingImporter struct{ blocks []*indirect.ParentchainBlock }

func (r *recordingImporter) Import(block *indirect.ParentchainBlock) error {
	r.blocks = append(r.blocks, block)
	return nil
}

type testBackend struct {
	*Backend
	author   *fakeAuthor
	account  *ecdsaAccount
	importer *recordingImporter
	relayers relayerSet
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()
	file, _ := storage.NewTestSealedFile(storage.ScheduledEnclaveFile)
	scheduled := governance.NewSealedScheduledEnclave(file, testMrenclave)
	require.NoError(t, scheduled.Init())

	tb := &testBackend{
		author:   &fakeAuthor{hash: common.HexToHash("0xfeed")},
		account:  newAccount(t),
		importer: new(recordingImporter),
		relayers: relayerSet{},
	}
	tb.Backend = &Backend{
		Author:      tb.author,
		Shielding:   xorKey(0x3c),
		Account:     tb.account,
		Getters:     fakeGetters{},
		Scheduled:   scheduled,
		Importer:    tb.importer,
		DirectCalls: NewDirectCallExecutor(xorKey(0x3c), tb.relayers, tb.account, testMrenclave),
		Mrenclave:   testMrenclave,
		Name:        "bitacross-worker",
		Version:     "0.1.0-test",
	}
	return tb
}

func rpcRequest(t *testing.T, method string, params ...string) []byte {
	t.Helper()
	if params == nil {
		params = []string{}
	}
	enc, err := json.Marshal(primitives.RpcRequest{Jsonrpc: primitives.JSONRPCVersion, Method: method, Params: params, Id: 7})
	require.NoError(t, err)
	return enc
}

func decodeMessage(t *testing.T, msg []byte) (primitives.RpcResponse, primitives.RpcReturnValue) {
	t.Helper()
	var resp primitives.RpcResponse
	require.NoError(t, json.Unmarshal(msg, &resp))
	value, err := primitives.RpcReturnValueFromHex(resp.Result)
	require.NoError(t, err)
	return resp, value
}

// recordingChannel collects responses per connection.
type recordingChannel struct {
	mu   sync.Mutex
	sent map[ConnectionToken][][]byte
	fail map[ConnectionToken]bool
}

func newRecordingChannel() *recordingChannel {
	return &recordingChannel{sent: make(map[ConnectionToken][][]byte), fail: make(map[ConnectionToken]bool)}
}

func (c *recordingChannel) Respond(token ConnectionToken, message []byte, keepOpen bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail[token] {
		return ErrConnectionNotFound
	}
	c.sent[token] = append(c.sent[token], message)
	return nil
}

func (c *recordingChannel) messages(token ConnectionToken) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent[token]
}

func watchResponse(hash common.Hash) primitives.RpcResponse {
	value := primitives.NewRpcReturnValue(hash.Bytes(), true, primitives.StatusOperation(primitives.Submitted(), hash))
	return newResponse(1, value)
}
