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

package governance

import (
	"github.com/litentry/bitacross-worker/primitives"
)

// ScheduledEnclaveUpdater is the write path of the trust-root registry
type ScheduledEnclaveUpdater interface {
	// Init bootstraps or unseals the registry
	Init() error

	// Update schedules mrenclave from sbn on and reseals
	Update(sbn primitives.SidechainBlockNumber, mrenclave primitives.MrEnclave) error

	// Remove unschedules sbn, resealing only if an entry existed
	Remove(sbn primitives.SidechainBlockNumber) error
}

// ScheduledEnclaveReader is the read path of the trust-root registry
type ScheduledEnclaveReader interface {
	// ExpectedMrenclave returns the build scheduled for sbn
	ExpectedMrenclave(sbn primitives.SidechainBlockNumber) (primitives.MrEnclave, error)

	// PreviousMrenclave returns the build scheduled before the one for sbn
	PreviousMrenclave(sbn primitives.SidechainBlockNumber) (primitives.MrEnclave, error)

	// Entries returns all entries in ascending height order
	Entries() ([]ScheduledEnclaveEntry, error)

	// CurrentMrenclave returns the measurement of the running enclave
	CurrentMrenclave() (primitives.MrEnclave, error)

	// IsBlockProductionPaused reports the emergency halt flag
	IsBlockProductionPaused() (bool, error)
}

// ScheduledEnclave is the full registry contract
type ScheduledEnclave interface {
	ScheduledEnclaveUpdater
	ScheduledEnclaveReader

	SetCurrentMrenclave(mrenclave primitives.MrEnclave) error
	SetBlockProductionPaused(paused bool) error
}
