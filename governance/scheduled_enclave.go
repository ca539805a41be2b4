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
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/litentry/bitacross-worker/internal/lock"
	"github.com/litentry/bitacross-worker/primitives"
	"github.com/litentry/bitacross-worker/storage"
)

// SealedScheduledEnclave implements ScheduledEnclave on top of one sealed
// file. The map and the two scalars are locked independently.
type SealedScheduledEnclave struct {
	mu      lock.RWMutex
	entries []ScheduledEnclaveEntry
	seal    storage.SealedIO

	currentMu lock.RWMutex
	current   primitives.MrEnclave

	pausedMu lock.RWMutex
	paused   bool

	logger log.Logger
}

// NewSealedScheduledEnclave creates a registry for an enclave running
// current. Call Init before use.
func NewSealedScheduledEnclave(seal storage.SealedIO, current primitives.MrEnclave) *SealedScheduledEnclave {
	return &SealedScheduledEnclave{
		seal:    seal,
		current: current,
		logger:  log.New("module", "scheduled-enclave"),
	}
}

// Init bootstraps {0: current} if no seal file exists, otherwise unseals.
func (se *SealedScheduledEnclave) Init() error {
	current, err := se.CurrentMrenclave()
	if err != nil {
		return err
	}
	return se.mu.Write(func() error {
		exists, err := se.seal.Exists()
		if err != nil {
			return err
		}
		if !exists {
			se.logger.Info("Scheduled enclave file not found, creating new", "file", se.seal.Name(), "mrenclave", current)
			entries := []ScheduledEnclaveEntry{{SidechainBlockNumber: 0, Mrenclave: current}}
			if err := se.sealEntries(entries); err != nil {
				return err
			}
			se.entries = entries
			return se.pausedMu.Write(func() error {
				se.paused = false
				return nil
			})
		}
		entries, err := se.unsealEntries()
		if err != nil {
			return err
		}
		se.entries = entries
		se.logger.Info("Scheduled enclave unsealed", "entries", len(entries))
		return nil
	})
}

func (se *SealedScheduledEnclave) unsealEntries() ([]ScheduledEnclaveEntry, error) {
	raw, err := se.seal.Unseal()
	if err != nil {
		return nil, err
	}
	var sealed sealedScheduledEnclave
	if err := rlp.DecodeBytes(raw, &sealed); err != nil {
		return nil, fmt.Errorf("%w: scheduled enclave: %v", primitives.ErrDecode, err)
	}
	for i := 1; i < len(sealed.Entries); i++ {
		if sealed.Entries[i-1].SidechainBlockNumber >= sealed.Entries[i].SidechainBlockNumber {
			return nil, ErrUnorderedRegistry
		}
	}
	return sealed.Entries, nil
}

func (se *SealedScheduledEnclave) sealEntries(entries []ScheduledEnclaveEntry) error {
	enc, err := rlp.EncodeToBytes(&sealedScheduledEnclave{Entries: entries})
	if err != nil {
		return err
	}
	return se.seal.Seal(enc)
}

// search returns the index of the first entry above sbn.
func search(entries []ScheduledEnclaveEntry, sbn primitives.SidechainBlockNumber) int {
	return sort.Search(len(entries), func(i int) bool {
		return entries[i].SidechainBlockNumber > sbn
	})
}

// Update inserts or overwrites sbn and reseals. The in-memory map only
// changes once the seal succeeded.
func (se *SealedScheduledEnclave) Update(sbn primitives.SidechainBlockNumber, mrenclave primitives.MrEnclave) error {
	return se.mu.Write(func() error {
		next := make([]ScheduledEnclaveEntry, 0, len(se.entries)+1)
		idx := search(se.entries, sbn)
		next = append(next, se.entries[:idx]...)
		if idx > 0 && next[idx-1].SidechainBlockNumber == sbn {
			next[idx-1].Mrenclave = mrenclave
		} else {
			next = append(next, ScheduledEnclaveEntry{SidechainBlockNumber: sbn, Mrenclave: mrenclave})
		}
		next = append(next, se.entries[idx:]...)

		if err := se.sealEntries(next); err != nil {
			return err
		}
		se.entries = next
		se.logger.Info("Scheduled enclave updated", "sbn", sbn, "mrenclave", mrenclave)
		return nil
	})
}

// Remove deletes sbn. Nothing is written when sbn was not scheduled.
func (se *SealedScheduledEnclave) Remove(sbn primitives.SidechainBlockNumber) error {
	return se.mu.Write(func() error {
		idx := search(se.entries, sbn)
		if idx == 0 || se.entries[idx-1].SidechainBlockNumber != sbn {
			se.logger.Debug("Scheduled enclave remove of unknown height ignored", "sbn", sbn)
			return nil
		}
		next := make([]ScheduledEnclaveEntry, 0, len(se.entries)-1)
		next = append(next, se.entries[:idx-1]...)
		next = append(next, se.entries[idx:]...)

		if err := se.sealEntries(next); err != nil {
			return err
		}
		se.entries = next
		se.logger.Info("Scheduled enclave removed", "sbn", sbn)
		return nil
	})
}

// ExpectedMrenclave returns the value at the greatest height <= sbn.
func (se *SealedScheduledEnclave) ExpectedMrenclave(sbn primitives.SidechainBlockNumber) (primitives.MrEnclave, error) {
	var m primitives.MrEnclave
	err := se.mu.Read(func() error {
		idx := search(se.entries, sbn)
		if idx == 0 {
			return ErrEmptyRegistry
		}
		m = se.entries[idx-1].Mrenclave
		return nil
	})
	return m, err
}

// PreviousMrenclave returns the value scheduled right before the floor
// entry used by ExpectedMrenclave.
func (se *SealedScheduledEnclave) PreviousMrenclave(sbn primitives.SidechainBlockNumber) (primitives.MrEnclave, error) {
	var m primitives.MrEnclave
	err := se.mu.Read(func() error {
		idx := search(se.entries, sbn)
		if idx < 2 {
			return ErrNoPreviousMrenclave
		}
		m = se.entries[idx-2].Mrenclave
		return nil
	})
	return m, err
}

// Entries returns a copy of all entries.
func (se *SealedScheduledEnclave) Entries() ([]ScheduledEnclaveEntry, error) {
	var out []ScheduledEnclaveEntry
	err := se.mu.Read(func() error {
		out = append(make([]ScheduledEnclaveEntry, 0, len(se.entries)), se.entries...)
		return nil
	})
	return out, err
}

func (se *SealedScheduledEnclave) CurrentMrenclave() (primitives.MrEnclave, error) {
	var m primitives.MrEnclave
	err := se.currentMu.Read(func() error {
		m = se.current
		return nil
	})
	return m, err
}

func (se *SealedScheduledEnclave) SetCurrentMrenclave(mrenclave primitives.MrEnclave) error {
	return se.currentMu.Write(func() error {
		se.current = mrenclave
		return nil
	})
}

func (se *SealedScheduledEnclave) IsBlockProductionPaused() (bool, error) {
	var paused bool
	err := se.pausedMu.Read(func() error {
		paused = se.paused
		return nil
	})
	return paused, err
}

func (se *SealedScheduledEnclave) SetBlockProductionPaused(paused bool) error {
	return se.pausedMu.Write(func() error {
		if se.paused != paused {
			se.logger.Warn("Block production pause flag changed", "paused", paused)
		}
		se.paused = paused
		return nil
	})
}
