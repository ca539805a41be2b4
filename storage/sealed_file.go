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
	"errors"

	"github.com/ethereum/go-ethereum/log"
)

// SealedFile binds a fixed file name to a backend and a sealer.
type SealedFile struct {
	name    string
	backend Backend
	sealer  Sealer
}

// NewSealedFile creates the sealed file name on backend.
func NewSealedFile(name string, backend Backend, sealer Sealer) *SealedFile {
	return &SealedFile{name: name, backend: backend, sealer: sealer}
}

func (f *SealedFile) Name() string {
	return f.name
}

// Seal encrypts data and replaces the file.
func (f *SealedFile) Seal(data []byte) error {
	ciphertext, err := f.sealer.Seal(data, f.name)
	if err != nil {
		return err
	}
	if err := f.backend.Put(f.name, ciphertext); err != nil {
		return err
	}
	log.Trace("Sealed file", "name", f.name, "size", len(data))
	return nil
}

// Unseal reads and decrypts the file. A missing file yields ErrNotFound.
func (f *SealedFile) Unseal() ([]byte, error) {
	ciphertext, err := f.backend.Get(f.name)
	if err != nil {
		return nil, err
	}
	return f.sealer.Unseal(ciphertext, f.name)
}

func (f *SealedFile) Exists() (bool, error) {
	return f.backend.Has(f.name)
}

// IsNotFound reports whether err means a sealed file was never written.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
