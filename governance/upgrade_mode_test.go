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
	"testing"
)

func TestUpgradeModeChecker_PausesOnMismatch(t *testing.T) {
	se, _ := newTestRegistry(t)
	checker := NewUpgradeModeChecker(se)

	paused, err := checker.CheckAt(5)
	if err != nil || paused {
		t.Fatalf("CheckAt(5) = %v, %v; want not paused", paused, err)
	}
	if err := checker.CheckWrite(); err != nil {
		t.Fatalf("writes should be accepted: %v", err)
	}

	// Schedule a successor from height 10 on; the running build is m0.
	se.Update(10, m1)
	if paused, _ := checker.CheckAt(9); paused {
		t.Fatal("height 9 still expects the running build")
	}
	paused, err = checker.CheckAt(10)
	if err != nil || !paused {
		t.Fatalf("CheckAt(10) = %v, %v; want paused", paused, err)
	}
	if err := checker.CheckWrite(); !errors.Is(err, ErrUpgradeReadOnlyMode) {
		t.Fatalf("expected ErrUpgradeReadOnlyMode, got %v", err)
	}
}

func TestUpgradeModeChecker_RecheckUsesLastHeight(t *testing.T) {
	se, _ := newTestRegistry(t)
	checker := NewUpgradeModeChecker(se)

	checker.CheckAt(20)
	se.Update(15, m2)
	paused, err := checker.Recheck()
	if err != nil || !paused {
		t.Fatalf("Recheck = %v, %v; want paused", paused, err)
	}
}

func TestUpgradeModeChecker_EmptyRegistryKeepsFlag(t *testing.T) {
	se, _ := newTestRegistry(t)
	se.Remove(0)
	checker := NewUpgradeModeChecker(se)
	paused, err := checker.CheckAt(3)
	if err != nil || paused {
		t.Fatalf("CheckAt on empty registry = %v, %v", paused, err)
	}
}
