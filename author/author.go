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
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/litentry/bitacross-worker/primitives"
	"github.com/litentry/bitacross-worker/toppool"
)

// Author decrypts client requests and feeds them into the pool.
type Author struct {
	pool        *toppool.Pool
	shielding   primitives.ShieldingDecrypter
	mrenclave   primitives.MrEnclave
	shards      []primitives.ShardIdentifier
	gate        WriteGate
	connections ConnectionUpdater
	logger      log.Logger
}

var _ AuthorApi = (*Author)(nil)

// New creates an author serving shards. The shard derived from mrenclave
// is always served. gate and connections may be nil.
func New(pool *toppool.Pool, shielding primitives.ShieldingDecrypter, mrenclave primitives.MrEnclave,
	shards []primitives.ShardIdentifier, gate WriteGate, connections ConnectionUpdater) *Author {
	own := primitives.ShardFromMrenclave(mrenclave)
	all := []primitives.ShardIdentifier{own}
	for _, s := range shards {
		if s != own {
			all = append(all, s)
		}
	}
	return &Author{
		pool:        pool,
		shielding:   shielding,
		mrenclave:   mrenclave,
		shards:      all,
		gate:        gate,
		connections: connections,
		logger:      log.New("module", "author"),
	}
}

func (a *Author) hasShard(shard primitives.ShardIdentifier) bool {
	for _, s := range a.shards {
		if s == shard {
			return true
		}
	}
	return false
}

// decode turns an encrypted request into a verified call operation.
func (a *Author) decode(req primitives.DecryptableRequest) (primitives.ShardIdentifier, *primitives.TrustedOperation, error) {
	shard := req.TargetShard()
	if !a.hasShard(shard) {
		return shard, nil, ErrShardNotFound
	}
	plaintext, err := req.Decrypt(a.shielding)
	if err != nil {
		return shard, nil, fmt.Errorf("%w: %v", ErrUndecryptable, err)
	}
	op, err := primitives.DecodeTrustedOperation(plaintext)
	if err != nil {
		return shard, nil, fmt.Errorf("%w: %v", toppool.ErrRequest, err)
	}
	if op.Kind == primitives.OperationGet {
		return shard, nil, ErrGetterNotAccepted
	}
	if err := op.Call.Verify(a.mrenclave, shard); err != nil {
		return shard, nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if a.gate != nil {
		if err := a.gate.CheckWrite(); err != nil {
			return shard, nil, err
		}
	}
	return shard, op, nil
}

func (a *Author) SubmitTop(req primitives.DecryptableRequest) (common.Hash, error) {
	shard, op, err := a.decode(req)
	if err != nil {
		return common.Hash{}, err
	}
	return a.pool.SubmitOne(shard, toppool.SourceExternal, op)
}

func (a *Author) WatchTop(req primitives.DecryptableRequest) (common.Hash, error) {
	shard, op, err := a.decode(req)
	if err != nil {
		return common.Hash{}, err
	}
	hash, err := a.pool.SubmitAndWatch(shard, toppool.SourceExternal, op)
	if err != nil {
		return hash, err
	}
	a.logger.Debug("Watching trusted operation", "shard", shard, "hash", hash)
	return hash, nil
}

// SubmitIndirect imports a call signed by the enclave itself, so no
// signature check or write gate applies.
func (a *Author) SubmitIndirect(shard primitives.ShardIdentifier, call *primitives.TrustedCallSigned) (common.Hash, error) {
	if !a.hasShard(shard) {
		return common.Hash{}, ErrShardNotFound
	}
	hash, err := a.pool.SubmitOne(shard, toppool.SourceInBlock, primitives.NewIndirectCallOperation(call))
	if errors.Is(err, toppool.ErrAlreadyImported) {
		// Replaying a block submits the same call again.
		return hash, nil
	}
	return hash, err
}

func (a *Author) PendingTops(shards []primitives.ShardIdentifier) (map[primitives.ShardIdentifier][][]byte, error) {
	out := make(map[primitives.ShardIdentifier][][]byte, len(shards))
	for _, shard := range shards {
		if !a.hasShard(shard) {
			return nil, ErrShardNotFound
		}
		var encoded [][]byte
		for _, op := range a.pool.Pending(shard) {
			encoded = append(encoded, op.Operation.Encode())
		}
		out[shard] = encoded
	}
	return out, nil
}

func (a *Author) GetPendingTrustedCallsFor(shard primitives.ShardIdentifier, account primitives.Identity) [][]byte {
	var out [][]byte
	for _, op := range a.pool.PendingFor(shard, account) {
		out = append(out, op.Encode())
	}
	return out
}

func (a *Author) GetShards() []primitives.ShardIdentifier {
	return append([]primitives.ShardIdentifier(nil), a.shards...)
}

func (a *Author) UpdateConnectionState(hash common.Hash, encodedValue []byte, forceWait bool) error {
	if a.connections == nil {
		return nil
	}
	return a.connections.UpdateConnectionState(hash, encodedValue, forceWait)
}

func (a *Author) SwapRpcConnectionHash(old, new common.Hash) error {
	if a.connections == nil {
		return nil
	}
	return a.connections.SwapHash(old, new)
}
