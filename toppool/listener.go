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
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/lru"
	"github.com/ethereum/go-ethereum/log"

	"github.com/litentry/bitacross-worker/primitives"
)

// MaxFinalityWatchers is the number of sidechain blocks whose operations
// are tracked until finalization. Older blocks time out.
const MaxFinalityWatchers = 512

// StatusSender delivers status updates of watched operations. IsWatching
// reports whether a connection still waits for updates of hash, which is
// the case past a terminal status when the client asked to force wait.
type StatusSender interface {
	UpdateStatusEvent(hash common.Hash, status primitives.TrustedOperationStatus) error
	IsWatching(hash common.Hash) bool
}

// Listener turns pool and block events into status updates for watched
// operations. A hash stops being watched once a terminal status was sent
// and no connection waits for it anymore.
type Listener struct {
	mu       sync.Mutex
	sender   StatusSender
	watched  mapset.Set[common.Hash]
	finality lru.BasicLRU[common.Hash, []common.Hash]
	logger   log.Logger
}

func NewListener(sender StatusSender) *Listener {
	return &Listener{
		sender:   sender,
		watched:  mapset.NewThreadUnsafeSet[common.Hash](),
		finality: lru.NewBasicLRU[common.Hash, []common.Hash](MaxFinalityWatchers + 1),
		logger:   log.New("module", "toppool-listener"),
	}
}

// Watch starts delivering updates for hash.
func (l *Listener) Watch(hash common.Hash) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.watched.Add(hash)
}

// IsWatched reports whether updates for hash are still delivered.
func (l *Listener) IsWatched(hash common.Hash) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.watched.Contains(hash)
}

func (l *Listener) fire(hash common.Hash, status primitives.TrustedOperationStatus) {
	if !l.watched.Contains(hash) {
		return
	}
	if l.sender == nil {
		if status.IsTerminal() {
			l.watched.Remove(hash)
		}
		return
	}
	if err := l.sender.UpdateStatusEvent(hash, status); err != nil {
		l.logger.Debug("Failed to deliver status update", "hash", hash, "status", status, "err", err)
	}
	if status.IsTerminal() && !l.sender.IsWatching(hash) {
		l.watched.Remove(hash)
	}
}

func (l *Listener) notify(hash common.Hash, status primitives.TrustedOperationStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fire(hash, status)
}

func (l *Listener) Future(hash common.Hash)    { l.notify(hash, primitives.Future()) }
func (l *Listener) Ready(hash common.Hash)     { l.notify(hash, primitives.Ready()) }
func (l *Listener) Broadcast(hash common.Hash) { l.notify(hash, primitives.Broadcast()) }
func (l *Listener) Dropped(hash common.Hash)   { l.notify(hash, primitives.Dropped()) }
func (l *Listener) Invalid(hash common.Hash)   { l.notify(hash, primitives.Invalid()) }

// Usurped notifies that hash was replaced by a higher priority operation.
func (l *Listener) Usurped(hash, by common.Hash) {
	l.logger.Debug("Trusted operation usurped", "hash", hash, "by", by)
	l.notify(hash, primitives.Usurped())
}

// TopExecuted reports the execution result of hash. With forceWait the
// watcher stays open for later block events.
func (l *Listener) TopExecuted(hash common.Hash, response []byte, forceWait bool) {
	l.notify(hash, primitives.TopExecuted(response, forceWait))
}

// SuccessorExecuted closes the watcher of hash once a follow-up request
// carrying on its work was executed.
func (l *Listener) SuccessorExecuted(hash common.Hash) {
	l.notify(hash, primitives.SuccessorExecuted())
}

// InBlock records that hashes were included in block and starts watching
// block for finality. The oldest block beyond MaxFinalityWatchers times out.
func (l *Listener) InBlock(block common.Hash, hashes []common.Hash) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, h := range hashes {
		l.fire(h, primitives.InSidechainBlock(block))
	}
	existing, _ := l.finality.Peek(block)
	l.finality.Add(block, append(existing, hashes...))

	for l.finality.Len() > MaxFinalityWatchers {
		old, timedOut, ok := l.finality.RemoveOldest()
		if !ok {
			break
		}
		l.logger.Warn("Sidechain block finality timed out", "block", old, "operations", len(timedOut))
		for _, h := range timedOut {
			l.fire(h, primitives.FinalityTimeout())
		}
	}
}

// Retracted notifies the operations of a block that left the canonical chain.
func (l *Listener) Retracted(block common.Hash) {
	l.mu.Lock()
	defer l.mu.Unlock()

	hashes, ok := l.finality.Peek(block)
	if !ok {
		return
	}
	l.finality.Remove(block)
	for _, h := range hashes {
		l.fire(h, primitives.Retracted())
	}
}

// Finalized notifies the operations of a finalized block.
func (l *Listener) Finalized(block common.Hash) {
	l.mu.Lock()
	defer l.mu.Unlock()

	hashes, ok := l.finality.Peek(block)
	if !ok {
		l.logger.Trace("Finalized block not tracked", "block", block)
		return
	}
	l.finality.Remove(block)
	for _, h := range hashes {
		l.fire(h, primitives.Finalized())
	}
}
