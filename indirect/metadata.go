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
)

// CallIndex is the (pallet, call) pair identifying a parentchain call.
type CallIndex [2]byte

func (c CallIndex) String() string {
	return fmt.Sprintf("[%d, %d]", c[0], c[1])
}

// CallIndexes resolves the call index of every call family the worker
// reacts to. It is backed by the parentchain runtime metadata.
type CallIndexes interface {
	UpdateScheduledEnclave() (CallIndex, error)
	RemoveScheduledEnclave() (CallIndex, error)
	AddRelayer() (CallIndex, error)
	RemoveRelayer() (CallIndex, error)
	AddEnclave() (CallIndex, error)
	RemoveEnclave() (CallIndex, error)
	SaveSigner() (CallIndex, error)
	ShieldFunds() (CallIndex, error)
	InvokeTrustedCall() (CallIndex, error)
	BatchAll() (CallIndex, error)
	ParentchainBlockProcessed() (CallIndex, error)
}

// Call family names as used in configuration.
const (
	FamilyUpdateScheduledEnclave    = "update_scheduled_enclave"
	FamilyRemoveScheduledEnclave    = "remove_scheduled_enclave"
	FamilyAddRelayer                = "add_relayer"
	FamilyRemoveRelayer             = "remove_relayer"
	FamilyAddEnclave                = "add_enclave"
	FamilyRemoveEnclave             = "remove_enclave"
	FamilySaveSigner                = "save_signer"
	FamilyShieldFunds               = "shield_funds"
	FamilyInvokeTrustedCall         = "invoke_trusted_call"
	FamilyBatchAll                  = "batch_all"
	FamilyParentchainBlockProcessed = "parentchain_block_processed"
)

// DefaultCallIndexes are the call indexes of the litentry parachain runtime.
var DefaultCallIndexes = map[string][2]uint8{
	FamilyUpdateScheduledEnclave:    {65, 3},
	FamilyRemoveScheduledEnclave:    {65, 4},
	FamilyAddRelayer:                {70, 1},
	FamilyRemoveRelayer:             {70, 2},
	FamilyAddEnclave:                {65, 5},
	FamilyRemoveEnclave:             {65, 6},
	FamilySaveSigner:                {70, 3},
	FamilyShieldFunds:               {70, 4},
	FamilyInvokeTrustedCall:         {65, 7},
	FamilyBatchAll:                  {1, 2},
	FamilyParentchainBlockProcessed: {65, 8},
}

// StaticMetadata serves call indexes from a fixed table.
type StaticMetadata struct {
	indexes map[string]CallIndex
}

func NewStaticMetadata(table map[string][2]uint8) *StaticMetadata {
	m := &StaticMetadata{indexes: make(map[string]CallIndex, len(table))}
	for family, idx := range table {
		m.indexes[family] = CallIndex(idx)
	}
	return m
}

func (m *StaticMetadata) lookup(family string) (CallIndex, error) {
	idx, ok := m.indexes[family]
	if !ok {
		return CallIndex{}, fmt.Errorf("%w: %s", ErrMissingCallIndex, family)
	}
	return idx, nil
}

func (m *StaticMetadata) UpdateScheduledEnclave() (CallIndex, error) {
	return m.lookup(FamilyUpdateScheduledEnclave)
}

func (m *StaticMetadata) RemoveScheduledEnclave() (CallIndex, error) {
	return m.lookup(FamilyRemoveScheduledEnclave)
}

func (m *StaticMetadata) AddRelayer() (CallIndex, error)    { return m.lookup(FamilyAddRelayer) }
func (m *StaticMetadata) RemoveRelayer() (CallIndex, error) { return m.lookup(FamilyRemoveRelayer) }
func (m *StaticMetadata) AddEnclave() (CallIndex, error)    { return m.lookup(FamilyAddEnclave) }
func (m *StaticMetadata) RemoveEnclave() (CallIndex, error) { return m.lookup(FamilyRemoveEnclave) }
func (m *StaticMetadata) SaveSigner() (CallIndex, error)    { return m.lookup(FamilySaveSigner) }
func (m *StaticMetadata) ShieldFunds() (CallIndex, error)   { return m.lookup(FamilyShieldFunds) }
func (m *StaticMetadata) BatchAll() (CallIndex, error)      { return m.lookup(FamilyBatchAll) }

func (m *StaticMetadata) InvokeTrustedCall() (CallIndex, error) {
	return m.lookup(FamilyInvokeTrustedCall)
}

func (m *StaticMetadata) ParentchainBlockProcessed() (CallIndex, error) {
	return m.lookup(FamilyParentchainBlockProcessed)
}
