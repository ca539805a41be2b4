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

// Backend persists opaque blobs by name. Implementations must make a Put
// either fully visible or not visible at all.
type Backend interface {
	// Put stores data under name, replacing any previous value
	Put(name string, data []byte) error

	// Get returns the value stored under name or ErrNotFound
	Get(name string) ([]byte, error)

	// Has reports whether name exists
	Has(name string) (bool, error)

	// Delete removes name; deleting a missing name is not an error
	Delete(name string) error

	// List returns all stored names in lexical order
	List() ([]string, error)

	// Close releases the backend
	Close() error
}

// Sealer encrypts data so that only this enclave can read it back.
type Sealer interface {
	Seal(plaintext []byte, label string) ([]byte, error)
	Unseal(ciphertext []byte, label string) ([]byte, error)
}

// SealedIO is one sealed file owned by exactly one component.
type SealedIO interface {
	// Seal encrypts and writes data
	Seal(data []byte) error

	// Unseal reads and decrypts the file
	Unseal() ([]byte, error)

	// Exists reports whether the file has ever been sealed
	Exists() (bool, error)

	// Name returns the fixed file name
	Name() string
}
