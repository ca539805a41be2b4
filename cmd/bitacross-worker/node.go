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

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/litentry/bitacross-worker/author"
	"github.com/litentry/bitacross-worker/directrpc"
	"github.com/litentry/bitacross-worker/governance"
	"github.com/litentry/bitacross-worker/indirect"
	"github.com/litentry/bitacross-worker/internal/config"
	"github.com/litentry/bitacross-worker/internal/enclave"
	"github.com/litentry/bitacross-worker/primitives"
	"github.com/litentry/bitacross-worker/registry"
	"github.com/litentry/bitacross-worker/storage"
	"github.com/litentry/bitacross-worker/toppool"
)

// Node owns every component of a running worker.
type Node struct {
	config    *config.Config
	mrenclave primitives.MrEnclave
	backend   storage.Backend

	scheduled *governance.SealedScheduledEnclave
	upgrade   *governance.UpgradeModeChecker
	relayers  *registry.RelayerRegistry
	signers   *registry.SignerRegistry
	enclaves  *registry.EnclaveRegistry

	shielding *enclave.ShieldingKey
	signer    *enclave.Signer

	pool      *toppool.Pool
	author    *author.Author
	importer  *indirect.Importer
	server    *directrpc.Server
	handler   *directrpc.IoHandler
	responder *directrpc.Responder
}

// initer is a sealed component restored on startup.
type initer interface {
	Init() error
}

// NewNode unseals the enclave state and assembles the worker.
func NewNode(cfg *config.Config, version string) (*Node, error) {
	mrenclave, err := enclave.ReadMrenclave(cfg.Node.Mrenclave)
	if err != nil {
		return nil, err
	}
	sealer, err := storage.OpenSealer(cfg.Sealing)
	if err != nil {
		return nil, err
	}
	backend, err := storage.OpenBackend(cfg.Sealing)
	if err != nil {
		return nil, err
	}
	n := &Node{config: cfg, mrenclave: mrenclave, backend: backend}
	sealed := func(name string) *storage.SealedFile {
		return storage.NewSealedFile(name, backend, sealer)
	}
	if err := n.openState(sealed); err != nil {
		backend.Close()
		return nil, err
	}

	shard := primitives.ShardFromMrenclave(mrenclave)
	connections := directrpc.NewConnectionRegistry()
	n.server = directrpc.NewServer(cfg.RPC, connections)
	n.responder = directrpc.NewResponder(connections, n.server)
	n.pool = toppool.New(cfg.Pool, toppool.DefaultValidator{}, toppool.NewListener(n.responder))
	n.author = author.New(n.pool, n.shielding, mrenclave, nil, n.upgrade, n.responder)

	executor := indirect.NewExecutor(indirect.Config{
		Filter:    indirect.CallFilter{},
		Metadata:  indirect.NewStaticMetadata(cfg.Importer.CallIndexes),
		Shard:     shard,
		Mrenclave: mrenclave,
		Scheduled: n.scheduled,
		Upgrade:   n.upgrade,
		Relayers:  n.relayers,
		Signers:   n.signers,
		Enclaves:  n.enclaves,
		Submitter: n.author,
		Signer:    n.signer,
		Shielding: n.shielding,
	})
	n.importer = indirect.NewImporter(executor, confirmationLogger{}, cfg.Importer.QueueSize, cfg.Importer.Interval)

	n.handler = directrpc.NewIoHandler(&directrpc.Backend{
		Author:      n.author,
		Shielding:   n.shielding,
		Account:     n.signer,
		Getters:     registry.NewGetterExecutor(n.relayers, n.signers, n.enclaves),
		Scheduled:   n.scheduled,
		Importer:    n.importer,
		DirectCalls: directrpc.NewDirectCallExecutor(n.shielding, n.relayers, n.signer, mrenclave),
		Mrenclave:   mrenclave,
		DevMode:     cfg.RPC.DevMode,
		Name:        cfg.Node.Name,
		Version:     version,
	})
	log.Info("Worker assembled", "mrenclave", mrenclave, "shard", shard, "account", n.signer.Identity())
	return n, nil
}

func (n *Node) openState(sealed func(string) *storage.SealedFile) error {
	var err error
	if n.shielding, err = enclave.LoadOrCreateShieldingKey(sealed(storage.ShieldingKeyFile)); err != nil {
		return err
	}
	if n.signer, err = enclave.LoadOrCreateSigner(sealed(storage.SigningKeyFile), n.mrenclave); err != nil {
		return err
	}
	n.scheduled = governance.NewSealedScheduledEnclave(sealed(storage.ScheduledEnclaveFile), n.mrenclave)
	n.upgrade = governance.NewUpgradeModeChecker(n.scheduled)
	n.relayers = registry.NewRelayerRegistry(sealed(storage.RelayerRegistryFile))
	n.signers = registry.NewSignerRegistry(sealed(storage.SignerRegistryFile))
	n.enclaves = registry.NewEnclaveRegistry(sealed(storage.EnclaveRegistryFile))

	for _, c := range []struct {
		name string
		initer
	}{
		{storage.ScheduledEnclaveFile, n.scheduled},
		{storage.RelayerRegistryFile, n.relayers},
		{storage.SignerRegistryFile, n.signers},
		{storage.EnclaveRegistryFile, n.enclaves},
	} {
		if err := c.Init(); err != nil {
			return fmt.Errorf("init %s: %w", c.name, err)
		}
	}
	return nil
}

// Run serves until ctx is cancelled or a component fails fatally.
func (n *Node) Run(ctx context.Context) error {
	if err := n.server.Start(n.handler); err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return n.importer.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		n.importer.Stop()
		if err := n.server.Stop(); err != nil && !errors.Is(err, directrpc.ErrServerNotStarted) {
			return err
		}
		return ctx.Err()
	})
	return g.Wait()
}

// Close releases the sealed storage.
func (n *Node) Close() error {
	return n.backend.Close()
}

// confirmationLogger records the processed-block confirmations. Submitting
// them to the parentchain is left to the untrusted side of the worker.
type confirmationLogger struct{}

func (confirmationLogger) SendConfirmation(block *indirect.ParentchainBlock, call *indirect.OpaqueCall) error {
	log.Info("Parentchain block processed", "number", block.Number, "hash", block.Hash,
		"call", call.Index, "args", len(call.Args))
	return nil
}
