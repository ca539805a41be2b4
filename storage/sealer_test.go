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
	"errors"
	"testing"
)

func TestSealUnsealRoundTrip(t *testing.T) {
	file, backend := NewTestSealedFile("registry.bin")

	if ok, err := file.Exists(); err != nil || ok {
		t.Fatalf("Exists before seal = %v, %v", ok, err)
	}
	if _, err := file.Unseal(); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	payload := []byte("registry contents")
	if err := file.Seal(payload); err != nil {
		t.Fatalf("seal: %v", err)
	}
	raw, _ := backend.Get("registry.bin")
	if bytes.Contains(raw, payload) {
		t.Fatal("sealed file contains plaintext")
	}
	got, err := file.Unseal()
	if err != nil {
		t.Fatalf("unseal: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("unseal = %q, want %q", got, payload)
	}
	if backend.Puts() != 1 {
		t.Fatalf("puts = %d, want 1", backend.Puts())
	}
}

func TestUnsealRejectsRenamedFile(t *testing.T) {
	backend := NewMemoryBackend()
	sealer := NewTestSealer()

	a := NewSealedFile("a.bin", backend, sealer)
	if err := a.Seal([]byte("for a")); err != nil {
		t.Fatalf("seal: %v", err)
	}
	raw, _ := backend.Get("a.bin")
	backend.Put("b.bin", raw)

	b := NewSealedFile("b.bin", backend, sealer)
	if _, err := b.Unseal(); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestUnsealWithOtherSecretFails(t *testing.T) {
	backend := NewMemoryBackend()
	if err := NewSealedFile("x", backend, NewTestSealer()).Seal([]byte("data")); err != nil {
		t.Fatalf("seal: %v", err)
	}
	other, err := NewAESSealer(bytes.Repeat([]byte{7}, 32))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewSealedFile("x", backend, other).Unseal(); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestShortSecretRejected(t *testing.T) {
	if _, err := NewAESSealer([]byte("short")); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadOrCreateSecretIsStable(t *testing.T) {
	partition, err := NewEncryptedPartition(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	first, err := LoadOrCreateSecret(partition, "secret")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := LoadOrCreateSecret(partition, "secret")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("secret changed between loads")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cfg.Backend = "tape"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
