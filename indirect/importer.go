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

package indirect

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/litentry/bitacross-worker/governance"
	"github.com/litentry/bitacross-worker/primitives"
)

// ConfirmationSink receives the processed block confirmations.
type ConfirmationSink interface {
	SendConfirmation(block *ParentchainBlock, call *OpaqueCall) error
}

// Importer drains queued parentchain blocks into an executor, one block
// at a time and in queue order.
type Importer struct {
	executor IndirectExecutor
	sink     ConfirmationSink
	queue    chan *ParentchainBlock
	interval time.Duration

	mu       sync.Mutex
	stopped  bool
	imported bool
	last     primitives.ParentchainBlockNumber
	stopCh   chan struct{}

	logger log.Logger
}

// NewImporter creates an importer. sink may be nil.
func NewImporter(executor IndirectExecutor, sink ConfirmationSink, queueSize int, interval time.Duration) *Importer {
	if queueSize < 1 {
		queueSize = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Importer{
		executor: executor,
		sink:     sink,
		queue:    make(chan *ParentchainBlock, queueSize),
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   log.New("module", "parentchain-importer"),
	}
}

// Import queues block without blocking.
func (im *Importer) Import(block *ParentchainBlock) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	if im.stopped {
		return ErrImporterStopped
	}
	select {
	case im.queue <- block:
		return nil
	default:
		return ErrQueueFull
	}
}

// LastImported returns the number of the last executed block.
func (im *Importer) LastImported() (primitives.ParentchainBlockNumber, bool) {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.last, im.imported
}

// Stop ends Run. Blocks still queued are discarded.
func (im *Importer) Stop() {
	im.mu.Lock()
	defer im.mu.Unlock()

	if im.stopped {
		return
	}
	im.stopped = true
	close(im.stopCh)
}

// Run imports queued blocks until ctx is done or Stop is called. It only
// returns an error if a registry became unusable.
func (im *Importer) Run(ctx context.Context) error {
	ticker := time.NewTicker(im.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-im.stopCh:
			return nil
		case block := <-im.queue:
			if err := im.importBlock(block); err != nil {
				return err
			}
		case <-ticker.C:
			last, ok := im.LastImported()
			im.logger.Trace("Parentchain importer idle", "queued", len(im.queue), "last", last, "any", ok)
		}
	}
}

func (im *Importer) importBlock(block *ParentchainBlock) error {
	if last, ok := im.LastImported(); ok && block.Number <= last {
		im.logger.Debug("Skipping already imported parentchain block", "number", block.Number, "last", last)
		return nil
	}
	start := time.Now()
	report, err := im.executor.ExecuteIndirectCallsInBlock(block)
	if err != nil {
		if governance.IsFatal(err) {
			im.logger.Error("Aborting parentchain import", "number", block.Number, "err", err)
			return err
		}
		im.logger.Warn("Failed to import parentchain block", "number", block.Number, "err", err)
		return nil
	}
	im.mu.Lock()
	im.last, im.imported = block.Number, true
	im.mu.Unlock()

	if im.sink != nil && report.Confirmation != nil {
		if err := im.sink.SendConfirmation(block, report.Confirmation); err != nil {
			im.logger.Warn("Failed to send block confirmation", "number", block.Number, "err", err)
		}
	}
	im.logger.Info("Imported parentchain block", "number", block.Number, "hash", block.Hash,
		"executed", len(report.Executed), "elapsed", time.Since(start))
	return nil
}
