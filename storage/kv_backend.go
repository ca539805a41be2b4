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
	"fmt"
	"io"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	lvlstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var sealPrefix = []byte("seal/")

func sealKey(name string) []byte {
	return append(append([]byte{}, sealPrefix...), name...)
}

// LevelDBBackend keeps sealed blobs in a goleveldb database.
type LevelDBBackend struct {
	db *leveldb.DB
}

// NewLevelDBBackend opens (or creates) a database at path.
func NewLevelDBBackend(path string) (*LevelDBBackend, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		OpenFilesCacheCapacity: 16,
		BlockCacheCapacity:     8 * opt.MiB,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open leveldb %s: %v", ErrIO, path, err)
	}
	return &LevelDBBackend{db: db}, nil
}

// NewMemoryBackend returns a leveldb backend held entirely in memory.
func NewMemoryBackend() *LevelDBBackend {
	db, err := leveldb.Open(lvlstorage.NewMemStorage(), nil)
	if err != nil {
		panic(fmt.Sprintf("open memory leveldb: %v", err))
	}
	return &LevelDBBackend{db: db}
}

func (b *LevelDBBackend) Put(name string, data []byte) error {
	if err := b.db.Put(sealKey(name), data, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

func (b *LevelDBBackend) Get(name string) ([]byte, error) {
	data, err := b.db.Get(sealKey(name), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return data, nil
}

func (b *LevelDBBackend) Has(name string) (bool, error) {
	ok, err := b.db.Has(sealKey(name), nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return ok, nil
}

func (b *LevelDBBackend) Delete(name string) error {
	if err := b.db.Delete(sealKey(name), &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

func (b *LevelDBBackend) List() ([]string, error) {
	it := b.db.NewIterator(util.BytesPrefix(sealPrefix), nil)
	defer it.Release()

	var names []string
	for it.Next() {
		names = append(names, string(it.Key()[len(sealPrefix):]))
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return names, nil
}

func (b *LevelDBBackend) Close() error {
	return b.db.Close()
}

// PebbleBackend keeps sealed blobs in a pebble database.
type PebbleBackend struct {
	db *pebble.DB
}

// NewPebbleBackend opens (or creates) a database at path. An empty path
// opens an in-memory database.
func NewPebbleBackend(path string) (*PebbleBackend, error) {
	opts := &pebble.Options{MaxOpenFiles: 16}
	if path == "" {
		opts.FS = vfs.NewMem()
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open pebble %s: %v", ErrIO, path, err)
	}
	return &PebbleBackend{db: db}, nil
}

func (b *PebbleBackend) Put(name string, data []byte) error {
	if err := b.db.Set(sealKey(name), data, pebble.Sync); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

func (b *PebbleBackend) Get(name string) ([]byte, error) {
	data, closer, err := b.db.Get(sealKey(name))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	defer closer.Close()
	return append([]byte{}, data...), nil
}

func (b *PebbleBackend) Has(name string) (bool, error) {
	_, err := b.Get(name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (b *PebbleBackend) Delete(name string) error {
	if err := b.db.Delete(sealKey(name), pebble.Sync); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

func (b *PebbleBackend) List() ([]string, error) {
	upper := append([]byte{}, sealPrefix...)
	upper[len(upper)-1]++
	it, err := b.db.NewIter(&pebble.IterOptions{LowerBound: sealPrefix, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	var names []string
	for it.First(); it.Valid(); it.Next() {
		names = append(names, string(it.Key()[len(sealPrefix):]))
	}
	return names, closeIter(it)
}

func closeIter(it io.Closer) error {
	if err := it.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

func (b *PebbleBackend) Close() error {
	return b.db.Close()
}
