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
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const tmpSuffix = ".tmp"

// EncryptedPartition stores each blob as one file under basePath. Inside
// Gramine basePath is mounted as an encrypted filesystem, so files are
// additionally protected at rest by the runtime.
type EncryptedPartition struct {
	mu       sync.RWMutex
	basePath string
}

// NewEncryptedPartition opens a partition rooted at basePath, creating the
// directory if needed.
func NewEncryptedPartition(basePath string) (*EncryptedPartition, error) {
	if err := os.MkdirAll(basePath, 0700); err != nil {
		return nil, fmt.Errorf("%w: create partition %s: %v", ErrIO, basePath, err)
	}
	return &EncryptedPartition{basePath: basePath}, nil
}

// Path returns the file path backing name.
func (ep *EncryptedPartition) Path(name string) string {
	return filepath.Join(ep.basePath, name)
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." || strings.HasSuffix(name, tmpSuffix) {
		return fmt.Errorf("%w: invalid file name %q", ErrIO, name)
	}
	return nil
}

// Put writes to a temporary file and renames it into place, so a crash never
// leaves a truncated seal file behind.
func (ep *EncryptedPartition) Put(name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	ep.mu.Lock()
	defer ep.mu.Unlock()

	target := ep.Path(name)
	tmp := target + tmpSuffix
	file, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("%w: failed to open file: %v", ErrIO, err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: failed to write data: %v", ErrIO, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: failed to sync: %v", ErrIO, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: failed to close: %v", ErrIO, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: failed to rename: %v", ErrIO, err)
	}
	return nil
}

// Get reads name.
func (ep *EncryptedPartition) Get(name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	data, err := os.ReadFile(ep.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrIO, name, err)
	}
	return data, nil
}

// Has reports whether name exists.
func (ep *EncryptedPartition) Has(name string) (bool, error) {
	if err := validName(name); err != nil {
		return false, err
	}
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	_, err := os.Stat(ep.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return true, nil
}

// Delete overwrites name with random bytes and removes it.
func (ep *EncryptedPartition) Delete(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	ep.mu.Lock()
	defer ep.mu.Unlock()

	err := SecureDelete(ep.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// SecureDelete overwrites a file with random data before removing it
func SecureDelete(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return err
	}
	file, err := os.OpenFile(filePath, os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	if _, err := io.CopyN(file, rand.Reader, info.Size()); err != nil {
		file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return err
	}
	file.Close()
	return os.Remove(filePath)
}

// List returns the names of all regular files in the partition.
func (ep *EncryptedPartition) List() ([]string, error) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	entries, err := os.ReadDir(ep.basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), tmpSuffix) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op for file partitions.
func (ep *EncryptedPartition) Close() error {
	return nil
}
