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

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/litentry/bitacross-worker/primitives"
)

// Filter turns a parentchain call into an indirect call. A call that is
// none of ours yields (nil, nil).
type Filter interface {
	Filter(call ParentchainCall, metadata CallIndexes) (IndirectCall, error)
}

type family struct {
	kind   CallKind
	index  func(CallIndexes) (CallIndex, error)
	decode func() IndirectCall
}

// families in match priority order.
var families = []family{
	{KindUpdateScheduledEnclave, CallIndexes.UpdateScheduledEnclave, func() IndirectCall { return new(UpdateScheduledEnclaveArgs) }},
	{KindRemoveScheduledEnclave, CallIndexes.RemoveScheduledEnclave, func() IndirectCall { return new(RemoveScheduledEnclaveArgs) }},
	{KindAddRelayer, CallIndexes.AddRelayer, func() IndirectCall { return new(AddRelayerArgs) }},
	{KindRemoveRelayer, CallIndexes.RemoveRelayer, func() IndirectCall { return new(RemoveRelayerArgs) }},
	{KindAddEnclave, CallIndexes.AddEnclave, func() IndirectCall { return new(AddEnclaveArgs) }},
	{KindRemoveEnclave, CallIndexes.RemoveEnclave, func() IndirectCall { return new(RemoveEnclaveArgs) }},
	{KindSaveSigner, CallIndexes.SaveSigner, func() IndirectCall { return new(SaveSignerArgs) }},
	{KindShieldFunds, CallIndexes.ShieldFunds, func() IndirectCall { return new(ShieldFundsArgs) }},
	{KindInvokeTrustedCall, CallIndexes.InvokeTrustedCall, func() IndirectCall { return new(InvokeTrustedCallArgs) }},
	{KindBatchAll, CallIndexes.BatchAll, func() IndirectCall { return new(BatchAllArgs) }},
}

// CallFilter matches every call family in priority order; the first match wins.
type CallFilter struct{}

func (CallFilter) Filter(call ParentchainCall, metadata CallIndexes) (IndirectCall, error) {
	for _, f := range families {
		idx, err := f.index(metadata)
		if err != nil {
			log.Trace("Call family not in metadata", "kind", f.kind, "err", err)
			continue
		}
		if idx != call.Index {
			continue
		}
		decoded := f.decode()
		if err := rlp.DecodeBytes(call.Args, decoded); err != nil {
			return nil, fmt.Errorf("%w: %s args: %v", primitives.ErrDecode, f.kind, err)
		}
		return decoded, nil
	}
	return nil, nil
}

// DenyAll matches nothing. It serves parentchains the worker does not
// take indirect calls from.
type DenyAll struct{}

func (DenyAll) Filter(ParentchainCall, CallIndexes) (IndirectCall, error) {
	return nil, nil
}
