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
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/litentry/bitacross-worker/author"
	"github.com/litentry/bitacross-worker/governance"
	"github.com/litentry/bitacross-worker/indirect"
	"github.com/litentry/bitacross-worker/primitives"
)

// ShieldingKey is the enclave key clients encrypt requests to.
type ShieldingKey interface {
	primitives.ShieldingDecrypter
	PublicKeyBytes() ([]byte, error)
}

// GetterExecutor answers read-only getters.
type GetterExecutor interface {
	Execute(getter *primitives.Getter) ([]byte, error)
}

// BlockImporter queues parentchain blocks for import.
type BlockImporter interface {
	Import(block *indirect.ParentchainBlock) error
}

// GetterRequest is the parameter of state_executeGetter.
type GetterRequest struct {
	Shard  primitives.ShardIdentifier
	Getter primitives.Getter
}

// ShardPending is one entry of the author_pendingExtrinsics result.
type ShardPending struct {
	Shard      primitives.ShardIdentifier
	Operations [][]byte
}

// Backend holds what the RPC methods are served from.
type Backend struct {
	Author      author.AuthorApi
	Shielding   ShieldingKey
	Account     EnclaveAccount
	Getters     GetterExecutor
	Scheduled   governance.ScheduledEnclave
	Importer    BlockImporter
	DirectCalls *DirectCallExecutor
	Mrenclave   primitives.MrEnclave
	DevMode     bool
	Name        string
	Version     string
}

// Method handles one JSON-RPC method.
type Method func(ctx context.Context, params []string) (primitives.RpcReturnValue, error)

// IoHandler dispatches JSON-RPC requests to registered methods.
type IoHandler struct {
	methods map[string]Method
	logger  log.Logger
}

// NewIoHandler registers every method backed by b.
func NewIoHandler(b *Backend) *IoHandler {
	h := &IoHandler{methods: make(map[string]Method), logger: log.New("module", "rpc-handler")}

	h.Register("author_submitAndWatchRsaRequest", b.submitRsa(true))
	h.Register("author_submitRsaRequest", b.submitRsa(false))
	h.Register("author_submitAndWatchAesRequest", b.submitAes(true))
	h.Register("author_submitAesRequest", b.submitAes(false))
	h.Register("author_pendingExtrinsics", b.pendingExtrinsics)
	h.Register("author_pendingTrustedCallsFor", b.pendingTrustedCallsFor)
	h.Register("author_getShieldingKey", b.getShieldingKey)
	h.Register("author_getShard", b.getShard)
	h.Register("author_getEnclaveSignerAccount", b.getEnclaveSignerAccount)
	h.Register("bitacross_submitRequest", b.submitRequest)
	h.Register("state_executeGetter", b.executeGetter)
	h.Register("state_getMrenclave", b.getMrenclave)
	h.Register("state_getScheduledEnclave", b.getScheduledEnclave)
	h.Register("state_setScheduledEnclave", b.devOnly(b.setScheduledEnclave))
	h.Register("dev_importParentchainBlock", b.devOnly(b.importParentchainBlock))
	h.Register("system_health", b.health)
	h.Register("system_name", b.plain(b.Name))
	h.Register("system_version", b.plain(b.Version))
	h.Register("rpc_methods", h.rpcMethods)
	return h
}

// Register adds or replaces a method.
func (h *IoHandler) Register(name string, m Method) {
	h.methods[name] = m
}

// Methods returns the registered method names, sorted.
func (h *IoHandler) Methods() []string {
	names := make([]string, 0, len(h.methods))
	for name := range h.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handle decodes and serves one request. Failures are reported as an
// Error return value that closes the connection.
func (h *IoHandler) Handle(ctx context.Context, raw []byte) (primitives.RpcResponse, primitives.RpcReturnValue) {
	var req primitives.RpcRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		value := primitives.ErrorReturnValue(fmt.Sprintf("parse error: %v", err))
		return newResponse(0, value), value
	}
	method, ok := h.methods[req.Method]
	if !ok {
		value := primitives.ErrorReturnValue(fmt.Sprintf("%v: %s", ErrMethodNotFound, req.Method))
		return newResponse(req.Id, value), value
	}
	value, err := method(ctx, req.Params)
	if err != nil {
		h.logger.Debug("RPC request failed", "method", req.Method, "id", req.Id, "err", err)
		value = primitives.ErrorReturnValue(err.Error())
	}
	return newResponse(req.Id, value), value
}

// WatchedHash decides whether a response opens a status stream.
func WatchedHash(value primitives.RpcReturnValue) (common.Hash, bool) {
	if !value.DoWatch {
		return common.Hash{}, false
	}
	return value.Status.WatchedHash()
}

func (h *IoHandler) rpcMethods(context.Context, []string) (primitives.RpcReturnValue, error) {
	enc, err := json.Marshal(h.Methods())
	if err != nil {
		return primitives.RpcReturnValue{}, err
	}
	return primitives.NewRpcReturnValue(enc, false, primitives.StatusOk()), nil
}

func param(params []string, n int) ([]string, error) {
	if len(params) < n {
		return nil, fmt.Errorf("%w: expected %d params, got %d", ErrInvalidParams, n, len(params))
	}
	return params, nil
}

func okValue(value []byte) primitives.RpcReturnValue {
	return primitives.NewRpcReturnValue(value, false, primitives.StatusOk())
}

func (b *Backend) devOnly(m Method) Method {
	return func(ctx context.Context, params []string) (primitives.RpcReturnValue, error) {
		if !b.DevMode {
			return primitives.RpcReturnValue{}, ErrDevModeOnly
		}
		return m(ctx, params)
	}
}

func (b *Backend) plain(s string) Method {
	return func(context.Context, []string) (primitives.RpcReturnValue, error) {
		return okValue([]byte(s)), nil
	}
}

func submittedValue(hash common.Hash, watch bool) primitives.RpcReturnValue {
	return primitives.NewRpcReturnValue(hash.Bytes(), watch, primitives.StatusOperation(primitives.Submitted(), hash))
}

func (b *Backend) submit(req primitives.DecryptableRequest, watch bool) (primitives.RpcReturnValue, error) {
	submit := b.Author.SubmitTop
	if watch {
		submit = b.Author.WatchTop
	}
	hash, err := submit(req)
	if err != nil {
		return primitives.RpcReturnValue{}, err
	}
	return submittedValue(hash, watch), nil
}

func (b *Backend) submitRsa(watch bool) Method {
	return func(_ context.Context, params []string) (primitives.RpcReturnValue, error) {
		if _, err := param(params, 1); err != nil {
			return primitives.RpcReturnValue{}, err
		}
		var req primitives.RsaRequest
		if err := primitives.DecodeHexParam(params[0], &req); err != nil {
			return primitives.RpcReturnValue{}, err
		}
		return b.submit(&req, watch)
	}
}

func (b *Backend) submitAes(watch bool) Method {
	return func(_ context.Context, params []string) (primitives.RpcReturnValue, error) {
		if _, err := param(params, 1); err != nil {
			return primitives.RpcReturnValue{}, err
		}
		var req primitives.AesRequest
		if err := primitives.DecodeHexParam(params[0], &req); err != nil {
			return primitives.RpcReturnValue{}, err
		}
		return b.submit(&req, watch)
	}
}

func parseShard(s string) (primitives.ShardIdentifier, error) {
	raw, err := hexutil.Decode(s)
	if err != nil || len(raw) != common.HashLength {
		return primitives.ShardIdentifier{}, fmt.Errorf("%w: malformed shard %q", ErrInvalidParams, s)
	}
	return common.BytesToHash(raw), nil
}

func (b *Backend) pendingExtrinsics(_ context.Context, params []string) (primitives.RpcReturnValue, error) {
	shards := make([]primitives.ShardIdentifier, 0, len(params))
	for _, p := range params {
		s, err := parseShard(p)
		if err != nil {
			return primitives.RpcReturnValue{}, err
		}
		shards = append(shards, s)
	}
	pending, err := b.Author.PendingTops(shards)
	if err != nil {
		return primitives.RpcReturnValue{}, err
	}
	out := make([]ShardPending, 0, len(shards))
	for _, s := range shards {
		out = append(out, ShardPending{Shard: s, Operations: pending[s]})
	}
	enc, err := rlp.EncodeToBytes(out)
	if err != nil {
		return primitives.RpcReturnValue{}, err
	}
	return okValue(enc), nil
}

func (b *Backend) pendingTrustedCallsFor(_ context.Context, params []string) (primitives.RpcReturnValue, error) {
	if _, err := param(params, 2); err != nil {
		return primitives.RpcReturnValue{}, err
	}
	shard, err := parseShard(params[0])
	if err != nil {
		return primitives.RpcReturnValue{}, err
	}
	account, err := primitives.ParseIdentity(params[1])
	if err != nil {
		return primitives.RpcReturnValue{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	enc, err := rlp.EncodeToBytes(b.Author.GetPendingTrustedCallsFor(shard, account))
	if err != nil {
		return primitives.RpcReturnValue{}, err
	}
	return okValue(enc), nil
}

func (b *Backend) getShieldingKey(context.Context, []string) (primitives.RpcReturnValue, error) {
	pub, err := b.Shielding.PublicKeyBytes()
	if err != nil {
		return primitives.RpcReturnValue{}, err
	}
	return okValue(pub), nil
}

func (b *Backend) getShard(context.Context, []string) (primitives.RpcReturnValue, error) {
	return okValue(b.Author.GetShards()[0].Bytes()), nil
}

func (b *Backend) getEnclaveSignerAccount(context.Context, []string) (primitives.RpcReturnValue, error) {
	enc, err := rlp.EncodeToBytes(b.Account.Identity())
	if err != nil {
		return primitives.RpcReturnValue{}, err
	}
	return okValue(enc), nil
}

func (b *Backend) submitRequest(_ context.Context, params []string) (primitives.RpcReturnValue, error) {
	if _, err := param(params, 1); err != nil {
		return primitives.RpcReturnValue{}, err
	}
	var req primitives.AesRequest
	if err := primitives.DecodeHexParam(params[0], &req); err != nil {
		return primitives.RpcReturnValue{}, err
	}
	return b.DirectCalls.Execute(&req), nil
}

func (b *Backend) executeGetter(_ context.Context, params []string) (primitives.RpcReturnValue, error) {
	if _, err := param(params, 1); err != nil {
		return primitives.RpcReturnValue{}, err
	}
	var req GetterRequest
	if err := primitives.DecodeHexParam(params[0], &req); err != nil {
		return primitives.RpcReturnValue{}, err
	}
	known := false
	for _, s := range b.Author.GetShards() {
		known = known || s == req.Shard
	}
	if !known {
		return primitives.RpcReturnValue{}, author.ErrShardNotFound
	}
	out, err := b.Getters.Execute(&req.Getter)
	if err != nil {
		return primitives.RpcReturnValue{}, err
	}
	return okValue(out), nil
}

func (b *Backend) getMrenclave(context.Context, []string) (primitives.RpcReturnValue, error) {
	return okValue(b.Mrenclave[:]), nil
}

func (b *Backend) getScheduledEnclave(context.Context, []string) (primitives.RpcReturnValue, error) {
	entries, err := b.Scheduled.Entries()
	if err != nil {
		return primitives.RpcReturnValue{}, err
	}
	enc, err := rlp.EncodeToBytes(entries)
	if err != nil {
		return primitives.RpcReturnValue{}, err
	}
	return okValue(enc), nil
}

func (b *Backend) setScheduledEnclave(_ context.Context, params []string) (primitives.RpcReturnValue, error) {
	if _, err := param(params, 2); err != nil {
		return primitives.RpcReturnValue{}, err
	}
	sbn, err := hexutil.DecodeUint64(params[0])
	if err != nil {
		return primitives.RpcReturnValue{}, fmt.Errorf("%w: sidechain block number: %v", ErrInvalidParams, err)
	}
	mrenclave, err := primitives.ParseMrEnclave(params[1])
	if err != nil {
		return primitives.RpcReturnValue{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if err := b.Scheduled.Update(sbn, mrenclave); err != nil {
		return primitives.RpcReturnValue{}, err
	}
	return okValue(nil), nil
}

func (b *Backend) importParentchainBlock(_ context.Context, params []string) (primitives.RpcReturnValue, error) {
	if _, err := param(params, 1); err != nil {
		return primitives.RpcReturnValue{}, err
	}
	var block indirect.ParentchainBlock
	if err := primitives.DecodeHexParam(params[0], &block); err != nil {
		return primitives.RpcReturnValue{}, err
	}
	if err := b.Importer.Import(&block); err != nil {
		return primitives.RpcReturnValue{}, err
	}
	return okValue(nil), nil
}

type healthReport struct {
	BlockProductionPaused bool   `json:"blockProductionPaused"`
	Mrenclave             string `json:"mrenclave"`
}

func (b *Backend) health(context.Context, []string) (primitives.RpcReturnValue, error) {
	paused, err := b.Scheduled.IsBlockProductionPaused()
	if err != nil {
		return primitives.RpcReturnValue{}, err
	}
	enc, err := json.Marshal(healthReport{BlockProductionPaused: paused, Mrenclave: b.Mrenclave.Hex()})
	if err != nil {
		return primitives.RpcReturnValue{}, err
	}
	return okValue(enc), nil
}
