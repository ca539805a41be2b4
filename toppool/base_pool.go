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
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
)

// importOutcome lists everything an import changed besides the imported
// operation itself.
type importOutcome struct {
	future   bool
	promoted []common.Hash
	usurped  []usurpation
}

type usurpation struct {
	replaced common.Hash
	by       common.Hash
}

// basePool holds the operations of one shard. It is not safe for
// concurrent use; Pool serializes access.
type basePool struct {
	ready      map[common.Hash]*PooledOperation
	future     map[common.Hash]*PooledOperation
	providedBy map[string]common.Hash // tag -> ready operation providing it
	pruned     mapset.Set[string]     // tags of operations already included in a block

	readyBytes  int
	futureBytes int
	nextID      uint64
}

func newBasePool() *basePool {
	return &basePool{
		ready:      make(map[common.Hash]*PooledOperation),
		future:     make(map[common.Hash]*PooledOperation),
		providedBy: make(map[string]common.Hash),
		pruned:     mapset.NewThreadUnsafeSet[string](),
	}
}

func (p *basePool) contains(hash common.Hash) bool {
	if _, ok := p.ready[hash]; ok {
		return true
	}
	_, ok := p.future[hash]
	return ok
}

func (p *basePool) satisfied(op *PooledOperation) bool {
	for _, tag := range op.Requires {
		if _, ok := p.providedBy[tag]; !ok && !p.pruned.Contains(tag) {
			return false
		}
	}
	return true
}

// importOp adds op to the ready or the future queue.
func (p *basePool) importOp(op *PooledOperation) (*importOutcome, error) {
	if p.contains(op.Hash) {
		return nil, ErrAlreadyImported
	}
	out := new(importOutcome)
	if !p.satisfied(op) {
		p.nextID++
		op.insertID = p.nextID
		p.future[op.Hash] = op
		p.futureBytes += op.Bytes
		out.future = true
		return out, nil
	}
	if err := p.importReady(op, out); err != nil {
		return nil, err
	}
	p.promote(out)
	return out, nil
}

func (p *basePool) importReady(op *PooledOperation, out *importOutcome) error {
	replace := mapset.NewThreadUnsafeSet[common.Hash]()
	for _, tag := range op.Provides {
		if h, ok := p.providedBy[tag]; ok {
			if p.ready[h].Priority >= op.Priority {
				return ErrTooLowPriority
			}
			replace.Add(h)
		}
	}
	for h := range replace.Iter() {
		p.removeReady(h)
		out.usurped = append(out.usurped, usurpation{replaced: h, by: op.Hash})
	}
	p.nextID++
	op.insertID = p.nextID
	p.ready[op.Hash] = op
	p.readyBytes += op.Bytes
	for _, tag := range op.Provides {
		p.providedBy[tag] = op.Hash
	}
	return nil
}

// promote moves every future operation whose requirements became
// satisfied to the ready queue, in insertion order.
func (p *basePool) promote(out *importOutcome) {
	for {
		var candidates []*PooledOperation
		for _, op := range p.future {
			if p.satisfied(op) {
				candidates = append(candidates, op)
			}
		}
		if len(candidates) == 0 {
			return
		}
		sortByInsertion(candidates)
		progressed := false
		for _, op := range candidates {
			delete(p.future, op.Hash)
			p.futureBytes -= op.Bytes
			if err := p.importReady(op, out); err != nil {
				// A higher priority provider holds the tag.
				p.future[op.Hash] = op
				p.futureBytes += op.Bytes
				continue
			}
			out.promoted = append(out.promoted, op.Hash)
			progressed = true
		}
		if !progressed {
			return
		}
	}
}

func (p *basePool) removeReady(hash common.Hash) *PooledOperation {
	op, ok := p.ready[hash]
	if !ok {
		return nil
	}
	delete(p.ready, hash)
	p.readyBytes -= op.Bytes
	for _, tag := range op.Provides {
		if p.providedBy[tag] == hash {
			delete(p.providedBy, tag)
		}
	}
	return op
}

// remove drops hashes from both queues. If inBlock is set their tags stay
// satisfied for dependents. Ready operations left without a provider are
// demoted to the future queue.
func (p *basePool) remove(hashes []common.Hash, inBlock bool) []*PooledOperation {
	var removed []*PooledOperation
	for _, h := range hashes {
		if op := p.removeReady(h); op != nil {
			if inBlock {
				for _, tag := range op.Provides {
					p.pruned.Add(tag)
				}
			}
			removed = append(removed, op)
			continue
		}
		if op, ok := p.future[h]; ok {
			delete(p.future, h)
			p.futureBytes -= op.Bytes
			removed = append(removed, op)
		}
	}
	p.demote()
	if len(p.ready) == 0 && len(p.future) == 0 {
		p.pruned.Clear()
	}
	return removed
}

func (p *basePool) demote() {
	for {
		var orphan *PooledOperation
		for _, op := range p.ready {
			if !p.satisfied(op) {
				orphan = op
				break
			}
		}
		if orphan == nil {
			return
		}
		p.removeReady(orphan.Hash)
		p.future[orphan.Hash] = orphan
		p.futureBytes += orphan.Bytes
	}
}

// enforceLimits evicts operations until both queues fit the limits. The
// oldest future operations go first, then the cheapest and newest ready ones.
func (p *basePool) enforceLimits(c Config) []*PooledOperation {
	var dropped []*PooledOperation
	if len(p.future) > c.FutureCount || p.futureBytes > c.FutureBytes {
		futures := p.sorted(p.future)
		for _, op := range futures {
			if len(p.future) <= c.FutureCount && p.futureBytes <= c.FutureBytes {
				break
			}
			delete(p.future, op.Hash)
			p.futureBytes -= op.Bytes
			dropped = append(dropped, op)
		}
	}
	if len(p.ready) > c.ReadyCount || p.readyBytes > c.ReadyBytes {
		ready := p.sorted(p.ready)
		sort.SliceStable(ready, func(i, j int) bool {
			if ready[i].Priority != ready[j].Priority {
				return ready[i].Priority < ready[j].Priority
			}
			return ready[i].insertID > ready[j].insertID
		})
		for _, op := range ready {
			if len(p.ready) <= c.ReadyCount && p.readyBytes <= c.ReadyBytes {
				break
			}
			p.removeReady(op.Hash)
			dropped = append(dropped, op)
		}
		p.demote()
	}
	return dropped
}

// readyOps returns the ready queue in FIFO order.
func (p *basePool) readyOps() []*PooledOperation {
	return p.sorted(p.ready)
}

func (p *basePool) futureOps() []*PooledOperation {
	return p.sorted(p.future)
}

func (p *basePool) sorted(m map[common.Hash]*PooledOperation) []*PooledOperation {
	out := make([]*PooledOperation, 0, len(m))
	for _, op := range m {
		out = append(out, op)
	}
	sortByInsertion(out)
	return out
}

func (p *basePool) status() Status {
	return Status{
		Ready:       len(p.ready),
		ReadyBytes:  p.readyBytes,
		Future:      len(p.future),
		FutureBytes: p.futureBytes,
	}
}

func sortByInsertion(ops []*PooledOperation) {
	sort.Slice(ops, func(i, j int) bool { return ops[i].insertID < ops[j].insertID })
}
