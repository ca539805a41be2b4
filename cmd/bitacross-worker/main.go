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

// bitacross-worker runs the BitAcross enclave worker: the sealed registries,
// the trusted operation pool, the parentchain importer and the trusted RPC.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/litentry/bitacross-worker/governance"
	"github.com/litentry/bitacross-worker/internal/config"
)

// Version is set by the linker.
var Version = "0.1.0-dev"

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "TOML configuration file",
		EnvVars: []string{"BITACROSS_CONFIG"},
	}
	sealPathFlag = &cli.StringFlag{
		Name:  "seal-path",
		Usage: "directory of the sealed state",
	}
	rpcAddrFlag = &cli.StringFlag{
		Name:  "rpc.addr",
		Usage: "listen address of the trusted RPC server",
	}
	mrenclaveFlag = &cli.StringFlag{
		Name:  "mrenclave",
		Usage: "measurement to assume when not running inside an enclave",
	}
	devFlag = &cli.BoolFlag{
		Name:  "dev",
		Usage: "enable development RPC methods",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	logJSONFlag = &cli.BoolFlag{
		Name:  "log.json",
		Usage: "format logs as JSON",
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log.file",
		Usage: "also write logs to this file, rotated by size",
	}
	logMaxSizeFlag = &cli.IntFlag{
		Name:  "log.maxsize",
		Usage: "size in megabytes at which the log file is rotated",
		Value: 100,
	}
)

func main() {
	app := &cli.App{
		Name:    "bitacross-worker",
		Usage:   "BitAcross enclave worker",
		Version: Version,
		Flags: []cli.Flag{
			configFlag, sealPathFlag, rpcAddrFlag, mrenclaveFlag, devFlag,
			verbosityFlag, logJSONFlag, logFileFlag, logMaxSizeFlag,
		},
		Before: func(c *cli.Context) error {
			return setupLogging(loggingOptions{
				Verbosity: c.Int(verbosityFlag.Name),
				JSON:      c.Bool(logJSONFlag.Name),
				File:      c.String(logFileFlag.Name),
				MaxSizeMB: c.Int(logMaxSizeFlag.Name),
			})
		},
		Action: run,
		Commands: []*cli.Command{
			{
				Name:   "dumpconfig",
				Usage:  "print the effective configuration as TOML",
				Action: dumpConfig,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if governance.IsFatal(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// loadConfig builds the effective configuration: defaults, file, command
// line and finally the manifest environment.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String(configFlag.Name))
	if err != nil {
		return nil, err
	}
	manifest, err := config.LoadManifest()
	if err != nil {
		return nil, err
	}
	overrides := config.Overrides{
		SealPath:   c.String(sealPathFlag.Name),
		ListenAddr: c.String(rpcAddrFlag.Name),
		Mrenclave:  c.String(mrenclaveFlag.Name),
		DevMode:    c.Bool(devFlag.Name),
	}
	if err := cfg.Apply(overrides, manifest); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func dumpConfig(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return cfg.Dump(os.Stdout)
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	node, err := NewNode(cfg, Version)
	if err != nil {
		return err
	}
	defer node.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = node.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("Worker stopped")
		return nil
	}
	return err
}
