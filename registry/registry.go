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

package registry

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/litentry/bitacross-worker/internal/lock"
	"github.com/litentry/bitacross-worker/primitives"
	"github.com/litentry/bitacross-worker/storage"
)

// Entry is one key/value pair of a registry. A sealed registry is the RLP
// list of its entries in ascending key order.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Registry is a sealed, ordered membership map. Every mutation that changes
// the map reseals it before the change becomes visible.
type Registry[K comparable, V any] struct {
	mu      lock.RWMutex
	entries map[K]V
	seal    storage.SealedIO
	compare func(a, b K) int
	logger  log.Logger
}

// New creates a registry stored in seal. Call Init before use.
func New[K comparable, V any](seal storage.SealedIO, compare func(a, b K) int) *Registry[K, V] {
	return &Registry[K, V]{
		entries: make(map[K]V),
		seal:    seal,
		compare: compare,
		logger:  log.New("module", "registry", "file", seal.Name()),
	}
}

// Init seals an empty registry if no seal file exists, otherwise unseals.
func (r *Registry[K, V]) Init() error {
	return r.mu.Write(func() error {
		exists, err := r.seal.Exists()
		if err != nil {
			return err
		}
		if !exists {
			r.logger.Info("Registry file not found, creating new")
			r.entries = make(map[K]V)
			return r.sealLocked()
		}
		raw, err := r.seal.Unseal()
		if err != nil {
			return err
		}
		var sealed []Entry[K, V]
		if err := rlp.DecodeBytes(raw, &sealed); err != nil {
			return fmt.Errorf("%w: registry %s: %v", primitives.ErrDecode, r.seal.Name(), err)
		}
		entries := make(map[K]V, len(sealed))
		for i, e := range sealed {
			if i > 0 && r.compare(sealed[i-1].Key, e.Key) >= 0 {
				return ErrUnorderedRegistry
			}
			entries[e.Key] = e.Value
		}
		r.entries = entries
		r.logger.Info("Registry unsealed", "entries", len(entries))
		return nil
	})
}

func (r *Registry[K, V]) sortedLocked() []Entry[K, V] {
	out := make([]Entry[K, V], 0, len(r.entries))
	for k, v := range r.entries {
		out = append(out, Entry[K, V]{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return r.compare(out[i].Key, out[j].Key) < 0 })
	return out
}

func (r *Registry[K, V]) sealLocked() error {
	enc, err := rlp.EncodeToBytes(r.sortedLocked())
	if err != nil {
		return err
	}
	return r.seal.Seal(enc)
}

// Update inserts or overwrites key and reseals.
func (r *Registry[K, V]) Update(key K, value V) error {
	return r.mu.Write(func() error {
		prev, existed := r.entries[key]
		r.entries[key] = value
		if err := r.sealLocked(); err != nil {
			if existed {
				r.entries[key] = prev
			} else {
				delete(r.entries, key)
			}
			return err
		}
		return nil
	})
}

// Remove deletes key, resealing only when it was present.
func (r *Registry[K, V]) Remove(key K) error {
	return r.mu.Write(func() error {
		prev, existed := r.entries[key]
		if !existed {
			return nil
		}
		delete(r.entries, key)
		if err := r.sealLocked(); err != nil {
			r.entries[key] = prev
			return err
		}
		return nil
	})
}

func (r *Registry[K, V]) ContainsKey(key K) (bool, error) {
	var ok bool
	err := r.mu.Read(func() error {
		_, ok = r.entries[key]
		return nil
	})
	return ok, err
}

func (r *Registry[K, V]) Get(key K) (V, bool, error) {
	var (
		v  V
		ok bool
	)
	err := r.mu.Read(func() error {
		v, ok = r.entries[key]
		return nil
	})
	return v, ok, err
}

// GetAll returns all entries in ascending key order.
func (r *Registry[K, V]) GetAll() ([]Entry[K, V], error) {
	var out []Entry[K, V]
	err := r.mu.Read(func() error {
		out = r.sortedLocked()
		return nil
	})
	return out, err
}

func (r *Registry[K, V]) Len() (int, error) {
	var n int
	err := r.mu.Read(func() error {
		n = len(r.entries)
		return nil
	})
	return n, err
}
