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

// Package lock provides a read/write mutex that refuses further use once a
// writer panicked while holding it.
package lock

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrPoisoned is returned by every access after a writer panicked.
var ErrPoisoned = errors.New("poison lock")

// RWMutex guards shared state. A panic inside Write leaves the state
// partially mutated, so the mutex is marked poisoned and all later
// accesses fail with ErrPoisoned instead of observing that state.
type RWMutex struct {
	mu       sync.RWMutex
	poisoned atomic.Bool
}

// Write runs fn under the write lock.
func (m *RWMutex) Write(fn func() error) (err error) {
	if m.poisoned.Load() {
		return ErrPoisoned
	}
	m.mu.Lock()
	defer func() {
		if r := recover(); r != nil {
			m.poisoned.Store(true)
			err = fmt.Errorf("%w: panic while holding write lock: %v", ErrPoisoned, r)
		}
		m.mu.Unlock()
	}()
	if m.poisoned.Load() {
		return ErrPoisoned
	}
	return fn()
}

// Read runs fn under the read lock.
func (m *RWMutex) Read(fn func() error) error {
	if m.poisoned.Load() {
		return ErrPoisoned
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.poisoned.Load() {
		return ErrPoisoned
	}
	return fn()
}

// Poisoned reports whether a writer panicked.
func (m *RWMutex) Poisoned() bool {
	return m.poisoned.Load()
}
