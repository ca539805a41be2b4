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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/litentry/bitacross-worker/internal/config"
	"github.com/litentry/bitacross-worker/primitives"
	"github.com/litentry/bitacross-worker/storage"
)

func testConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Sealing.BasePath = filepath.Join(dir, "sealed")
	cfg.Sealing.SecretPath = filepath.Join(dir, "secrets")
	cfg.Sealing.Backend = storage.BackendLevelDB
	cfg.Node.Mrenclave = primitives.MrEnclave{0xbe, 0xef}.Hex()
	cfg.RPC.ListenAddr = "127.0.0.1:0"
	cfg.Importer.Interval = 10 * time.Millisecond
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNode_RestartKeepsSealedState(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)

	node, err := NewNode(cfg, "test")
	require.NoError(t, err)
	account := node.signer.Identity()
	pub, err := node.shielding.PublicKeyBytes()
	require.NoError(t, err)
	require.NoError(t, node.relayers.Update(account))
	require.NoError(t, node.Close())

	node, err = NewNode(cfg, "test")
	require.NoError(t, err)
	defer node.Close()
	require.Equal(t, account, node.signer.Identity())
	again, err := node.shielding.PublicKeyBytes()
	require.NoError(t, err)
	require.Equal(t, pub, again)
	ok, err := node.relayers.ContainsKey(account)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestNode_RunStopsOnCancel(t *testing.T) {
	node, err := NewNode(testConfig(t, t.TempDir()), "test")
	require.NoError(t, err)
	defer node.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- node.Run(ctx) }()

	require.Eventually(t, func() bool { return node.server.Addr() != nil }, 5*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(10 * time.Second):
		t.Fatal("node did not stop")
	}
}
