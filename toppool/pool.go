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
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/lru"
	"github.com/ethereum/go-ethereum/log"

	"github.com/litentry/bitacross-worker/primitives"
)

// SubmitResult is the outcome of one operation of SubmitAt.
type SubmitResult struct {
	Hash common.Hash
	Err  error
}

// inclusion remembers the operations a sidechain block took out of the
// pool, so a retracted block can hand them back.
type inclusion struct {
	shard primitives.ShardIdentifier
	ops   []*PooledOperation
}

// Pool is the trusted operation pool. It keeps one ready and one future
// queue per shard. Listener notifications are collected under mu and
// delivered after it was released.
type Pool struct {
	config    Config
	validator Validator
	rotator   *Rotator
	listener  *Listener

	mu       sync.RWMutex
	shards   map[primitives.ShardIdentifier]*basePool
	included lru.BasicLRU[common.Hash, inclusion]

	logger log.Logger
}

// New creates a pool. A nil validator means DefaultValidator.
func New(config Config, validator Validator, listener *Listener) *Pool {
	config = (&config).sanitize()
	if validator == nil {
		validator = DefaultValidator{}
	}
	if listener == nil {
		listener = NewListener(nil)
	}
	return &Pool{
		config:    config,
		validator: validator,
		rotator:   NewRotator(config.BanTime, config.BanCacheBytes),
		listener:  listener,
		shards:    make(map[primitives.ShardIdentifier]*basePool),
		included:  lru.NewBasicLRU[common.Hash, inclusion](MaxFinalityWatchers),
		logger:    log.New("module", "toppool"),
	}
}

func (p *Pool) Listener() *Listener { return p.listener }

// SubmitOne validates op and imports it into shard.
func (p *Pool) SubmitOne(shard primitives.ShardIdentifier, source Source, op *primitives.TrustedOperation) (common.Hash, error) {
	return p.submit(shard, source, op, false)
}

// SubmitAt imports a batch of operations, each independently.
func (p *Pool) SubmitAt(shard primitives.ShardIdentifier, source Source, ops []*primitives.TrustedOperation) []SubmitResult {
	results := make([]SubmitResult, len(ops))
	for i, op := range ops {
		results[i].Hash, results[i].Err = p.submit(shard, source, op, false)
	}
	return results
}

// SubmitAndWatch imports op and delivers its status updates to the listener.
func (p *Pool) SubmitAndWatch(shard primitives.ShardIdentifier, source Source, op *primitives.TrustedOperation) (common.Hash, error) {
	return p.submit(shard, source, op, true)
}

func (p *Pool) submit(shard primitives.ShardIdentifier, source Source, op *primitives.TrustedOperation, watch bool) (common.Hash, error) {
	enc := op.Encode()
	hash := HashOf(op)
	if p.rotator.IsBanned(hash) {
		return hash, ErrTemporarilyBanned
	}
	valid, err := p.validator.Validate(shard, source, op)
	if err != nil {
		p.rotator.Ban(hash)
		return hash, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}
	pooled := &PooledOperation{
		Hash:      hash,
		Operation: op,
		Source:    source,
		Priority:  valid.Priority,
		Requires:  valid.Requires,
		Provides:  valid.Provides,
		Propagate: valid.Propagate,
		Bytes:     len(enc),
	}

	p.mu.Lock()
	events, err := p.importLocked(shard, pooled, watch)
	p.mu.Unlock()
	events.deliver(p.listener)
	if err != nil {
		return hash, err
	}
	p.logger.Trace("Imported trusted operation", "shard", shard, "hash", hash, "source", source)
	return hash, nil
}

func (p *Pool) importLocked(shard primitives.ShardIdentifier, op *PooledOperation, watch bool) (poolEvents, error) {
	bp, ok := p.shards[shard]
	if !ok {
		bp = newBasePool()
		p.shards[shard] = bp
	}
	outcome, err := bp.importOp(op)
	if err != nil {
		return nil, err
	}
	if watch {
		p.listener.Watch(op.Hash)
	}
	var events poolEvents
	if outcome.future {
		events.add(primitives.StatusFuture, op.Hash)
	} else {
		events.add(primitives.StatusReady, op.Hash)
	}
	for _, u := range outcome.usurped {
		events = append(events, poolEvent{status: primitives.StatusUsurped, hash: u.replaced, by: u.by})
	}
	for _, h := range outcome.promoted {
		events.add(primitives.StatusReady, h)
	}
	selfDropped := false
	for _, d := range bp.enforceLimits(p.config) {
		if d.Hash == op.Hash {
			selfDropped = true
		}
		events.add(primitives.StatusDropped, d.Hash)
	}
	if selfDropped {
		return events, ErrImmediatelyDropped
	}
	return events, nil
}

// Ready returns the ready operations of shard in FIFO order.
func (p *Pool) Ready(shard primitives.ShardIdentifier) []*PooledOperation {
	p.mu.RLock()
	defer p.mu.RUnlock()

	bp, ok := p.shards[shard]
	if !ok {
		return nil
	}
	return bp.readyOps()
}

// Pending returns ready then future operations of shard.
func (p *Pool) Pending(shard primitives.ShardIdentifier) []*PooledOperation {
	p.mu.RLock()
	defer p.mu.RUnlock()

	bp, ok := p.shards[shard]
	if !ok {
		return nil
	}
	return append(bp.readyOps(), bp.futureOps()...)
}

// PendingFor returns the pending calls of shard signed by account.
func (p *Pool) PendingFor(shard primitives.ShardIdentifier, account primitives.Identity) []*primitives.TrustedOperation {
	var out []*primitives.TrustedOperation
	for _, op := range p.Pending(shard) {
		if signer, ok := op.Operation.Signer(); ok && signer == account {
			out = append(out, op.Operation)
		}
	}
	return out
}

// Status returns the queue sizes of shard.
func (p *Pool) Status(shard primitives.ShardIdentifier) Status {
	p.mu.RLock()
	defer p.mu.RUnlock()

	bp, ok := p.shards[shard]
	if !ok {
		return Status{}
	}
	return bp.status()
}

// Shards returns the shards that have pending operations, sorted.
func (p *Pool) Shards() []primitives.ShardIdentifier {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]primitives.ShardIdentifier, 0, len(p.shards))
	for s, bp := range p.shards {
		if st := bp.status(); st.Ready+st.Future > 0 {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}

// RemoveInvalid removes hashes from shard. Operations not included in a
// block are banned and reported invalid.
func (p *Pool) RemoveInvalid(hashes []common.Hash, shard primitives.ShardIdentifier, inBlock bool) []*PooledOperation {
	p.mu.Lock()
	removed := p.removeLocked(hashes, shard, inBlock)
	p.mu.Unlock()

	if !inBlock {
		for _, op := range removed {
			p.listener.Invalid(op.Hash)
		}
	}
	return removed
}

func (p *Pool) removeLocked(hashes []common.Hash, shard primitives.ShardIdentifier, inBlock bool) []*PooledOperation {
	bp, ok := p.shards[shard]
	if !ok {
		return nil
	}
	removed := bp.remove(hashes, inBlock)
	if !inBlock {
		p.rotator.Ban(hashes...)
	}
	if len(removed) > 0 {
		p.logger.Debug("Removed trusted operations", "shard", shard, "count", len(removed), "inblock", inBlock)
	}
	return removed
}

// OnBlockImported prunes the operations included in a sidechain block and
// starts watching the block for finality.
func (p *Pool) OnBlockImported(shard primitives.ShardIdentifier, block common.Hash, hashes []common.Hash) {
	p.mu.Lock()
	removed := p.removeLocked(hashes, shard, true)
	if prev, ok := p.included.Peek(block); ok && prev.shard == shard {
		removed = append(prev.ops, removed...)
	}
	p.included.Add(block, inclusion{shard: shard, ops: removed})
	p.mu.Unlock()

	p.listener.InBlock(block, hashes)
}

func (p *Pool) OnBlockFinalized(block common.Hash) {
	p.mu.Lock()
	p.included.Remove(block)
	p.mu.Unlock()

	p.listener.Finalized(block)
}

// OnBlockRetracted returns the operations of a block that left the
// canonical chain to the pool.
func (p *Pool) OnBlockRetracted(block common.Hash) {
	p.mu.Lock()
	inc, ok := p.included.Peek(block)
	p.included.Remove(block)
	p.mu.Unlock()

	p.listener.Retracted(block)
	if !ok {
		return
	}
	var events poolEvents
	p.mu.Lock()
	for _, op := range inc.ops {
		ev, err := p.importLocked(inc.shard, op, false)
		events = append(events, ev...)
		if err != nil {
			p.logger.Debug("Retracted operation not re-imported", "hash", op.Hash, "err", err)
		}
	}
	p.mu.Unlock()
	events.deliver(p.listener)
	p.logger.Debug("Re-imported retracted operations", "block", block, "count", len(inc.ops))
}

// IsBanned reports whether hash is temporarily rejected.
func (p *Pool) IsBanned(hash common.Hash) bool {
	return p.rotator.IsBanned(hash)
}

// poolEvent is a listener notification.
type poolEvent struct {
	status primitives.TrustedOperationStatusCode
	hash   common.Hash
	by     common.Hash // usurper
}

type poolEvents []poolEvent

func (ev *poolEvents) add(status primitives.TrustedOperationStatusCode, hash common.Hash) {
	*ev = append(*ev, poolEvent{status: status, hash: hash})
}

func (ev poolEvents) deliver(l *Listener) {
	for _, e := range ev {
		switch e.status {
		case primitives.StatusFuture:
			l.Future(e.hash)
		case primitives.StatusReady:
			l.Ready(e.hash)
		case primitives.StatusUsurped:
			l.Usurped(e.hash, e.by)
		case primitives.StatusDropped:
			l.Dropped(e.hash)
		}
	}
}
