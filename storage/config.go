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
	"fmt"
	"io"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
)

// Sealed file names. Each file is owned by exactly one component.
const (
	ScheduledEnclaveFile = "scheduled_enclave_sealed.bin"
	RelayerRegistryFile  = "relayer_registry_sealed.bin"
	SignerRegistryFile   = "signer_registry_sealed.bin"
	EnclaveRegistryFile  = "enclave_registry_sealed.bin"
	ShieldingKeyFile     = "rsa3072_key_sealed.bin"
	SigningKeyFile       = "secp256k1_key_sealed.bin"
)

// Backend kinds.
const (
	BackendFile    = "file"
	BackendLevelDB = "leveldb"
	BackendPebble  = "pebble"
)

// Config defines where and how sealed files are kept
type Config struct {
	BasePath   string // seal file directory (encrypted mount inside Gramine)
	Backend    string // file, leveldb or pebble
	SecretPath string // directory holding the sealing secret
	SecretName string
}

// DefaultConfig returns the default storage configuration
func DefaultConfig() Config {
	return Config{
		BasePath:   "/data/encrypted",
		Backend:    BackendFile,
		SecretPath: "/data/secrets",
		SecretName: "sealing_secret",
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.BasePath == "" {
		return fmt.Errorf("%w: empty base path", ErrInvalidConfig)
	}
	if c.SecretPath == "" || c.SecretName == "" {
		return fmt.Errorf("%w: sealing secret location not set", ErrInvalidConfig)
	}
	switch c.Backend {
	case BackendFile, BackendLevelDB, BackendPebble:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}
	return nil
}

// OpenBackend opens the backend selected by the configuration.
func OpenBackend(c Config) (Backend, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := CheckEncryptedMount(c.BasePath, EncryptedMounts()); err != nil {
		return nil, err
	}
	log.Info("Opening sealed storage", "backend", c.Backend, "path", c.BasePath)
	switch c.Backend {
	case BackendLevelDB:
		return NewLevelDBBackend(filepath.Join(c.BasePath, "leveldb"))
	case BackendPebble:
		return NewPebbleBackend(filepath.Join(c.BasePath, "pebble"))
	default:
		return NewEncryptedPartition(c.BasePath)
	}
}

// LoadOrCreateSecret returns the sealing secret stored under name,
// generating and persisting a random one on first start.
func LoadOrCreateSecret(partition Backend, name string) ([]byte, error) {
	secret, err := partition.Get(name)
	if err == nil {
		if len(secret) < sealKeySize {
			return nil, fmt.Errorf("%w: sealing secret %s is truncated", ErrDecode, name)
		}
		return secret, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}
	secret = make([]byte, sealKeySize)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, fmt.Errorf("failed to generate sealing secret: %w", err)
	}
	if err := partition.Put(name, secret); err != nil {
		return nil, err
	}
	log.Info("Generated new sealing secret", "name", name)
	return secret, nil
}

// OpenSealer opens the secret partition and returns a sealer over its secret.
func OpenSealer(c Config) (*AESSealer, error) {
	if err := CheckEncryptedMount(c.SecretPath, EncryptedMounts()); err != nil {
		return nil, err
	}
	partition, err := NewEncryptedPartition(c.SecretPath)
	if err != nil {
		return nil, err
	}
	secret, err := LoadOrCreateSecret(partition, c.SecretName)
	if err != nil {
		return nil, err
	}
	defer zeroBytes(secret)
	return NewAESSealer(secret)
}
