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
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/litentry/bitacross-worker/governance"
	"github.com/litentry/bitacross-worker/primitives"
)

// CallKind is the wire discriminant of an indirect call. The order is the
// order in which filters match call families.
type CallKind uint8

const (
	KindUpdateScheduledEnclave CallKind = iota
	KindRemoveScheduledEnclave
	KindAddRelayer
	KindRemoveRelayer
	KindAddEnclave
	KindRemoveEnclave
	KindSaveSigner
	KindShieldFunds
	KindInvokeTrustedCall
	KindBatchAll
)

var kindNames = [...]string{
	"UpdateScheduledEnclave", "RemoveScheduledEnclave", "AddRelayer", "RemoveRelayer",
	"AddEnclave", "RemoveEnclave", "SaveSigner", "ShieldFunds", "InvokeTrustedCall", "BatchAll",
}

func (k CallKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Unknown(%d)", uint8(k))
}

// IndirectCall is an action triggered by a finalized parentchain extrinsic.
type IndirectCall interface {
	Kind() CallKind
	Dispatch(ctx *DispatchContext) error
}

// DispatchContext carries the block position an indirect call came from.
type DispatchContext struct {
	executor *Executor
	block    *ParentchainBlock
	index    int // extrinsic index in block
	sub      int // 1-based position in a batch, 0 outside
}

// maxCallPosition bounds both the extrinsic index and the batch position
// packed into a nonce.
const maxCallPosition = 1 << 16

// nonce is unique per call position within a block.
func (ctx *DispatchContext) nonce() (uint32, error) {
	if ctx.index < 0 || ctx.index >= maxCallPosition || ctx.sub < 0 || ctx.sub >= maxCallPosition {
		return 0, fmt.Errorf("%w: extrinsic %d call %d", ErrNonceOverflow, ctx.index, ctx.sub)
	}
	return uint32(ctx.index)<<16 | uint32(ctx.sub), nil
}

type UpdateScheduledEnclaveArgs struct {
	SidechainBlockNumber primitives.SidechainBlockNumber
	Mrenclave            primitives.MrEnclave
}

func (a *UpdateScheduledEnclaveArgs) Kind() CallKind { return KindUpdateScheduledEnclave }

func (a *UpdateScheduledEnclaveArgs) Dispatch(ctx *DispatchContext) error {
	if err := ctx.executor.scheduled.Update(a.SidechainBlockNumber, a.Mrenclave); err != nil {
		return err
	}
	return ctx.executor.recheckUpgrade()
}

type RemoveScheduledEnclaveArgs struct {
	SidechainBlockNumber primitives.SidechainBlockNumber
}

func (a *RemoveScheduledEnclaveArgs) Kind() CallKind { return KindRemoveScheduledEnclave }

func (a *RemoveScheduledEnclaveArgs) Dispatch(ctx *DispatchContext) error {
	if err := ctx.executor.scheduled.Remove(a.SidechainBlockNumber); err != nil {
		return err
	}
	return ctx.executor.recheckUpgrade()
}

type AddRelayerArgs struct {
	Account primitives.Identity
}

func (a *AddRelayerArgs) Kind() CallKind { return KindAddRelayer }

func (a *AddRelayerArgs) Dispatch(ctx *DispatchContext) error {
	return ctx.executor.relayers.Update(a.Account)
}

type RemoveRelayerArgs struct {
	Account primitives.Identity
}

func (a *RemoveRelayerArgs) Kind() CallKind { return KindRemoveRelayer }

func (a *RemoveRelayerArgs) Dispatch(ctx *DispatchContext) error {
	return ctx.executor.relayers.Remove(a.Account)
}

type AddEnclaveArgs struct {
	Account    primitives.Address32
	WorkerType primitives.WorkerType
	Url        string
}

func (a *AddEnclaveArgs) Kind() CallKind { return KindAddEnclave }

// Dispatch registers the enclave. Registrations of other worker types are
// ignored.
func (a *AddEnclaveArgs) Dispatch(ctx *DispatchContext) error {
	if a.WorkerType != primitives.WorkerTypeBitAcross {
		ctx.executor.logger.Debug("Ignoring enclave of foreign worker type", "account", a.Account.Hex(), "type", a.WorkerType)
		return nil
	}
	return ctx.executor.enclaves.Update(a.Account, a.Url)
}

type RemoveEnclaveArgs struct {
	Account primitives.Address32
}

func (a *RemoveEnclaveArgs) Kind() CallKind { return KindRemoveEnclave }

func (a *RemoveEnclaveArgs) Dispatch(ctx *DispatchContext) error {
	return ctx.executor.enclaves.Remove(a.Account)
}

type SaveSignerArgs struct {
	Account primitives.Address32
	PubKey  primitives.PubKey
}

func (a *SaveSignerArgs) Kind() CallKind { return KindSaveSigner }

func (a *SaveSignerArgs) Dispatch(ctx *DispatchContext) error {
	return ctx.executor.signers.Update(a.Account, a.PubKey)
}

type ShieldFundsArgs struct {
	Account primitives.Identity
	Amount  *uint256.Int
}

func (a *ShieldFundsArgs) Kind() CallKind { return KindShieldFunds }

// Dispatch submits a balance shield call signed by the enclave. The nonce
// is the call position, so replays of a block produce identical calls.
func (a *ShieldFundsArgs) Dispatch(ctx *DispatchContext) error {
	e := ctx.executor
	args, err := rlp.EncodeToBytes(&primitives.BalanceShieldArgs{
		Account: a.Account,
		Amount:  a.Amount,
		Block:   ctx.block.Number,
	})
	if err != nil {
		return err
	}
	call := primitives.TrustedCall{
		Kind:   primitives.CallBalanceShield,
		Signer: e.signer.Identity(),
		Args:   args,
	}
	nonce, err := ctx.nonce()
	if err != nil {
		return err
	}
	signed, err := e.signer.SignCall(call, nonce, e.shard)
	if err != nil {
		return err
	}
	_, err = e.submitter.SubmitIndirect(e.shard, signed)
	return err
}

type InvokeTrustedCallArgs struct {
	Request primitives.RsaRequest
}

func (a *InvokeTrustedCallArgs) Kind() CallKind { return KindInvokeTrustedCall }

// Dispatch decrypts the call a user placed on chain, checks its signature
// and submits it.
func (a *InvokeTrustedCallArgs) Dispatch(ctx *DispatchContext) error {
	e := ctx.executor
	plaintext, err := a.Request.Decrypt(e.shielding)
	if err != nil {
		return err
	}
	op, err := primitives.DecodeTrustedOperation(plaintext)
	if err != nil {
		return err
	}
	if op.Call == nil {
		return fmt.Errorf("%w: %s", ErrUnexpectedCall, op.Kind)
	}
	shard := a.Request.TargetShard()
	if err := op.Call.Verify(e.mrenclave, shard); err != nil {
		return err
	}
	_, err = e.submitter.SubmitIndirect(shard, op.Call)
	return err
}

// BatchAllArgs carry nested calls that are matched and dispatched one by one.
type BatchAllArgs struct {
	Calls []ParentchainCall
}

func (a *BatchAllArgs) Kind() CallKind { return KindBatchAll }

// Dispatch runs every nested call independently. Failing calls are logged
// and skipped, the batch itself only fails if every call failed. A poisoned
// registry aborts the batch at once.
func (a *BatchAllArgs) Dispatch(ctx *DispatchContext) error {
	e := ctx.executor
	var errs []error
	for i, c := range a.Calls {
		call, err := e.filter.Filter(c, e.metadata)
		if err == nil && call == nil {
			continue
		}
		if err == nil && call.Kind() == KindBatchAll {
			err = ErrUnexpectedCall
		}
		if err == nil {
			nested := *ctx
			nested.sub = i + 1
			err = call.Dispatch(&nested)
		}
		if governance.IsFatal(err) {
			return err
		}
		if err != nil {
			e.logger.Warn("Failed to dispatch batched call", "block", ctx.block.Number, "extrinsic", ctx.index, "call", i, "err", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 && len(errs) == len(a.Calls) {
		return errors.Join(errs...)
	}
	return nil
}
