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

package storage

import (
	"bytes"
	"sync/atomic"
)

// CountingBackend wraps a Backend and counts successful writes. Registries
// use it in tests to check which mutations reseal.
type CountingBackend struct {
	Backend
	puts atomic.Int64
}

// NewCountingBackend wraps b.
func NewCountingBackend(b Backend) *CountingBackend {
	return &CountingBackend{Backend: b}
}

func (b *CountingBackend) Put(name string, data []byte) error {
	if err := b.Backend.Put(name, data); err != nil {
		return err
	}
	b.puts.Add(1)
	return nil
}

// Puts returns the number of successful writes.
func (b *CountingBackend) Puts() int64 {
	return b.puts.Load()
}

// NewTestSealer returns a sealer over a fixed, non-secret key.
func NewTestSealer() *AESSealer {
	s, err := NewAESSealer(bytes.Repeat([]byte{0x42}, sealKeySize))
	if err != nil {
		panic(err)
	}
	return s
}

// NewTestSealedFile returns a sealed file backed by memory, plus the
// counting backend underneath it.
func NewTestSealedFile(name string) (*SealedFile, *CountingBackend) {
	backend := NewCountingBackend(NewMemoryBackend())
	return NewSealedFile(name, backend, NewTestSealer()), backend
}
