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
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/litentry/bitacross-worker/governance"
	"github.com/litentry/bitacross-worker/primitives"
	"github.com/litentry/bitacross-worker/registry"
)

// IndirectExecutor executes the indirect calls of finalized parentchain blocks.
type IndirectExecutor interface {
	ExecuteIndirectCallsInBlock(block *ParentchainBlock) (*BlockReport, error)
}

// CallSigner signs calls with the enclave account.
type CallSigner interface {
	Identity() primitives.Identity
	SignCall(call primitives.TrustedCall, nonce uint32, shard primitives.ShardIdentifier) (*primitives.TrustedCallSigned, error)
}

// Submitter imports enclave-built calls into the pool.
type Submitter interface {
	SubmitIndirect(shard primitives.ShardIdentifier, call *primitives.TrustedCallSigned) (common.Hash, error)
}

// UpgradeRechecker re-evaluates the block production pause flag.
type UpgradeRechecker interface {
	Recheck() (bool, error)
}

// ExtrinsicResult is the outcome of one extrinsic. Kind is only set if
// the extrinsic matched a call family.
type ExtrinsicResult struct {
	Index   int
	Hash    common.Hash
	Matched bool
	Kind    CallKind
	Err     error
}

// BlockReport aggregates the results of one block and the confirmation
// call to send back.
type BlockReport struct {
	Results      []ExtrinsicResult
	Executed     []common.Hash
	Confirmation *OpaqueCall
}

// Config wires an Executor.
type Config struct {
	Filter    Filter
	Metadata  CallIndexes
	Shard     primitives.ShardIdentifier
	Mrenclave primitives.MrEnclave

	Scheduled governance.ScheduledEnclaveUpdater
	Upgrade   UpgradeRechecker
	Relayers  registry.RelayerUpdater
	Signers   registry.SignerUpdater
	Enclaves  registry.EnclaveUpdater

	Submitter Submitter
	Signer    CallSigner
	Shielding primitives.ShieldingDecrypter
}

// Executor is the IndirectExecutor of the worker.
type Executor struct {
	filter    Filter
	metadata  CallIndexes
	shard     primitives.ShardIdentifier
	mrenclave primitives.MrEnclave

	scheduled governance.ScheduledEnclaveUpdater
	upgrade   UpgradeRechecker
	relayers  registry.RelayerUpdater
	signers   registry.SignerUpdater
	enclaves  registry.EnclaveUpdater

	submitter Submitter
	signer    CallSigner
	shielding primitives.ShieldingDecrypter

	logger log.Logger
}

var _ IndirectExecutor = (*Executor)(nil)

// NewExecutor creates an executor. Without a filter, or without metadata to
// resolve call indexes against, every call is ignored.
func NewExecutor(c Config) *Executor {
	logger := log.New("module", "indirect-executor")
	filter := c.Filter
	if filter == nil {
		filter = DenyAll{}
	}
	if c.Metadata == nil {
		if _, deny := filter.(DenyAll); !deny {
			logger.Warn("No call index metadata, ignoring all indirect calls")
		}
		filter = DenyAll{}
	}
	return &Executor{
		filter:    filter,
		metadata:  c.Metadata,
		shard:     c.Shard,
		mrenclave: c.Mrenclave,
		scheduled: c.Scheduled,
		upgrade:   c.Upgrade,
		relayers:  c.Relayers,
		signers:   c.Signers,
		enclaves:  c.Enclaves,
		submitter: c.Submitter,
		signer:    c.Signer,
		shielding: c.Shielding,
		logger:    logger,
	}
}

func (e *Executor) recheckUpgrade() error {
	if e.upgrade == nil {
		return nil
	}
	_, err := e.upgrade.Recheck()
	return err
}

// ExecuteIndirectCallsInBlock handles the extrinsics of block strictly in
// order. A failing extrinsic is logged and recorded without affecting the
// others. Only a poisoned registry aborts the block.
func (e *Executor) ExecuteIndirectCallsInBlock(block *ParentchainBlock) (*BlockReport, error) {
	report := &BlockReport{Results: make([]ExtrinsicResult, 0, len(block.Extrinsics))}
	for i, raw := range block.Extrinsics {
		res := e.executeExtrinsic(block, i, raw)
		report.Results = append(report.Results, res)
		if governance.IsFatal(res.Err) {
			return report, res.Err
		}
		if res.Matched && res.Err == nil {
			report.Executed = append(report.Executed, res.Hash)
		}
	}
	confirmation, err := e.confirmation(block, report.Executed)
	if err != nil {
		return report, err
	}
	report.Confirmation = confirmation
	e.logger.Debug("Executed indirect calls", "block", block.Number, "hash", block.Hash,
		"extrinsics", len(block.Extrinsics), "executed", len(report.Executed))
	return report, nil
}

func (e *Executor) executeExtrinsic(block *ParentchainBlock, index int, raw []byte) ExtrinsicResult {
	res := ExtrinsicResult{Index: index, Hash: ExtrinsicHash(raw)}
	xt, err := DecodeExtrinsic(raw)
	if err != nil {
		e.logger.Warn("Dropping undecodable extrinsic", "block", block.Number, "index", index, "err", err)
		res.Err = err
		return res
	}
	call, err := e.filter.Filter(xt.Call, e.metadata)
	if err != nil {
		e.logger.Warn("Dropping indirect call with bad arguments", "block", block.Number, "index", index, "err", err)
		res.Err = err
		return res
	}
	if call == nil {
		return res
	}
	res.Matched, res.Kind = true, call.Kind()
	if err := call.Dispatch(&DispatchContext{executor: e, block: block, index: index}); err != nil {
		e.logger.Warn("Failed to dispatch indirect call", "block", block.Number, "index", index, "kind", res.Kind, "err", err)
		res.Err = err
		return res
	}
	e.logger.Info("Dispatched indirect call", "block", block.Number, "index", index, "kind", res.Kind)
	return res
}

func (e *Executor) confirmation(block *ParentchainBlock, executed []common.Hash) (*OpaqueCall, error) {
	if e.metadata == nil {
		return nil, nil
	}
	idx, err := e.metadata.ParentchainBlockProcessed()
	if err != nil {
		return nil, err
	}
	args, err := rlp.EncodeToBytes(&ProcessedBlockArgs{
		BlockHash:   block.Hash,
		BlockNumber: block.Number,
		MerkleRoot:  MerkleRoot(executed),
	})
	if err != nil {
		return nil, fmt.Errorf("encode processed block confirmation: %w", err)
	}
	return &OpaqueCall{Index: idx, Args: args}, nil
}
