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
	"errors"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"

	"github.com/litentry/bitacross-worker/primitives"
)

// UpgradeModeChecker compares the running enclave with the one scheduled
// for a sidechain height. On a mismatch it pauses block production instead
// of stopping the process, so an old build keeps serving reads until the
// scheduled successor takes over.
type UpgradeModeChecker struct {
	registry   ScheduledEnclave
	lastHeight atomic.Uint64
}

// NewUpgradeModeChecker creates a checker over registry.
func NewUpgradeModeChecker(registry ScheduledEnclave) *UpgradeModeChecker {
	return &UpgradeModeChecker{registry: registry}
}

// CheckAt evaluates sbn and returns whether production is paused afterwards.
// An empty registry for sbn leaves the flag untouched.
func (c *UpgradeModeChecker) CheckAt(sbn primitives.SidechainBlockNumber) (bool, error) {
	c.lastHeight.Store(sbn)

	expected, err := c.registry.ExpectedMrenclave(sbn)
	if errors.Is(err, ErrEmptyRegistry) {
		return c.registry.IsBlockProductionPaused()
	}
	if err != nil {
		return false, err
	}
	current, err := c.registry.CurrentMrenclave()
	if err != nil {
		return false, err
	}
	if !expected.Equal(current) {
		log.Warn("Unexpected MRENCLAVE, pausing block production",
			"sbn", sbn, "expected", expected, "current", current)
		if err := c.registry.SetBlockProductionPaused(true); err != nil {
			return false, err
		}
		return true, nil
	}
	return c.registry.IsBlockProductionPaused()
}

// Recheck re-evaluates the last checked height, used after the schedule changed.
func (c *UpgradeModeChecker) Recheck() (bool, error) {
	return c.CheckAt(c.lastHeight.Load())
}

// CheckWrite returns ErrUpgradeReadOnlyMode while production is paused.
func (c *UpgradeModeChecker) CheckWrite() error {
	paused, err := c.registry.IsBlockProductionPaused()
	if err != nil {
		return err
	}
	if paused {
		return ErrUpgradeReadOnlyMode
	}
	return nil
}
