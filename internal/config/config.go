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

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/litentry/bitacross-worker/directrpc"
	"github.com/litentry/bitacross-worker/indirect"
	"github.com/litentry/bitacross-worker/storage"
	"github.com/litentry/bitacross-worker/toppool"
)

// ErrInvalidConfig is returned for configurations that cannot run.
var ErrInvalidConfig = errors.New("invalid configuration")

// NodeConfig identifies the worker.
type NodeConfig struct {
	Name      string
	Mrenclave string `toml:",omitempty"` // Used outside an enclave only
}

// ImporterConfig controls the parentchain block importer.
type ImporterConfig struct {
	Interval    time.Duration // Queue drain interval
	QueueSize   int
	CallIndexes map[string][2]uint8 // Pallet and call index per call family
}

// Config is the complete configuration of the worker.
type Config struct {
	Node     NodeConfig
	Sealing  storage.Config
	Pool     toppool.Config
	RPC      directrpc.Config
	Importer ImporterConfig
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	indexes := make(map[string][2]uint8, len(indirect.DefaultCallIndexes))
	for family, idx := range indirect.DefaultCallIndexes {
		indexes[family] = idx
	}
	return &Config{
		Node:    NodeConfig{Name: "bitacross-worker"},
		Sealing: storage.DefaultConfig(),
		Pool:    toppool.DefaultConfig,
		RPC:     directrpc.DefaultConfig,
		Importer: ImporterConfig{
			Interval:    time.Second,
			QueueSize:   256,
			CallIndexes: indexes,
		},
	}
}

// Load reads file over the defaults. Keys unknown to Config are rejected.
func Load(file string) (*Config, error) {
	cfg := Default()
	if file == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(file, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, file, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: %s: unknown keys %v", ErrInvalidConfig, file, undecoded)
	}
	return cfg, nil
}

// Dump writes the configuration as TOML.
func (c *Config) Dump(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Sealing.Validate(); err != nil {
		return fmt.Errorf("%w: [Sealing] %v", ErrInvalidConfig, err)
	}
	if err := c.RPC.Validate(); err != nil {
		return fmt.Errorf("%w: [RPC] %v", ErrInvalidConfig, err)
	}
	if c.Pool.ReadyCount < 1 || c.Pool.FutureCount < 0 || c.Pool.ReadyBytes < 1 || c.Pool.FutureBytes < 0 {
		return fmt.Errorf("%w: [Pool] limits must be positive", ErrInvalidConfig)
	}
	if c.Importer.Interval <= 0 || c.Importer.QueueSize < 1 {
		return fmt.Errorf("%w: [Importer] interval and queue size must be positive", ErrInvalidConfig)
	}
	for family := range c.Importer.CallIndexes {
		if _, ok := indirect.DefaultCallIndexes[family]; !ok {
			return fmt.Errorf("%w: [Importer] unknown call family %q", ErrInvalidConfig, family)
		}
	}
	return nil
}

// Overrides are the values given on the command line. Empty fields are unset.
type Overrides struct {
	SealPath   string
	ListenAddr string
	Mrenclave  string
	DevMode    bool
}

// Manifest holds the parameters fixed by the Gramine manifest. They are part
// of the measured enclave and cannot be overridden at runtime.
type Manifest struct {
	SealPath  string
	Mrenclave string
	DevMode   *bool
}

// Manifest environment variables.
const (
	SealPathEnv  = "BITACROSS_SEAL_PATH"
	MrenclaveEnv = "RA_TLS_MRENCLAVE"
	DevModeEnv   = "BITACROSS_DEV_MODE"
)

// LoadManifest reads the manifest parameters from the environment.
func LoadManifest() (Manifest, error) {
	m := Manifest{
		SealPath:  os.Getenv(SealPathEnv),
		Mrenclave: os.Getenv(MrenclaveEnv),
	}
	if v := os.Getenv(DevModeEnv); v != "" {
		dev, err := parseBool(v)
		if err != nil {
			return m, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, DevModeEnv, err)
		}
		m.DevMode = &dev
	}
	return m, nil
}

// Apply layers the command line and then the manifest over c.
func (c *Config) Apply(cli Overrides, m Manifest) error {
	if cli.SealPath != "" {
		c.Sealing.BasePath = cli.SealPath
	}
	if cli.ListenAddr != "" {
		c.RPC.ListenAddr = cli.ListenAddr
	}
	if cli.Mrenclave != "" {
		c.Node.Mrenclave = cli.Mrenclave
	}
	if cli.DevMode {
		c.RPC.DevMode = true
	}

	if m.SealPath != "" {
		if cli.SealPath != "" && cli.SealPath != m.SealPath {
			return fmt.Errorf("%w: seal path mismatch: CLI=%s, manifest=%s", ErrInvalidConfig, cli.SealPath, m.SealPath)
		}
		c.Sealing.BasePath = m.SealPath
	}
	if m.Mrenclave != "" {
		if cli.Mrenclave != "" && cli.Mrenclave != m.Mrenclave {
			return fmt.Errorf("%w: mrenclave mismatch: CLI=%s, manifest=%s", ErrInvalidConfig, cli.Mrenclave, m.Mrenclave)
		}
		c.Node.Mrenclave = m.Mrenclave
	}
	if m.DevMode != nil {
		if cli.DevMode && !*m.DevMode {
			return fmt.Errorf("%w: dev mode is disabled by the manifest", ErrInvalidConfig)
		}
		c.RPC.DevMode = *m.DevMode
	}
	return nil
}

func parseBool(s string) (bool, error) {
	switch s {
	case "1", "true", "TRUE", "True", "yes":
		return true, nil
	case "0", "false", "FALSE", "False", "no":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}
