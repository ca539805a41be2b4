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

package indirect

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/litentry/bitacross-worker/governance"
)

type confirmations struct {
	mu     sync.Mutex
	blocks []uint64
}

func (c *confirmations) SendConfirmation(block *ParentchainBlock, _ *OpaqueCall) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocks = append(c.blocks, block.Number)
	return nil
}

func (c *confirmations) numbers() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint64(nil), c.blocks...)
}

func TestImporter_ImportsInOrder(t *testing.T) {
	env := newTestEnv(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	sink := new(confirmations)
	im := NewImporter(env.executor, sink, 8, 10*time.Millisecond)

	errc := make(chan error, 1)
	go func() { errc <- im.Run(context.Background()) }()

	require.NoError(t, im.Import(block(1, extrinsic(call(t, FamilyAddRelayer, &AddRelayerArgs{Account: relayerA})))))
	require.NoError(t, im.Import(block(2, extrinsic(call(t, FamilyRemoveRelayer, &RemoveRelayerArgs{Account: relayerA})))))
	require.NoError(t, im.Import(block(2)))

	require.Eventually(t, func() bool {
		last, ok := im.LastImported()
		return ok && last == 2 && len(sink.numbers()) == 2
	}, time.Second, 5*time.Millisecond)

	ok, _ := env.relayers.ContainsKey(relayerA)
	require.False(t, ok)
	require.Equal(t, []uint64{1, 2}, sink.numbers())

	im.Stop()
	require.NoError(t, <-errc)
	require.ErrorIs(t, im.Import(block(3)), ErrImporterStopped)
}

func TestImporter_QueueFull(t *testing.T) {
	env := newTestEnv(t)
	im := NewImporter(env.executor, nil, 1, time.Second)
	require.NoError(t, im.Import(block(1)))
	require.ErrorIs(t, im.Import(block(2)), ErrQueueFull)
}

func TestImporter_PoisonStopsRun(t *testing.T) {
	env := newTestEnv(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	env.executor.relayers = poisonedRelayers{}
	im := NewImporter(env.executor, nil, 4, time.Second)
	require.NoError(t, im.Import(block(1, extrinsic(call(t, FamilyAddRelayer, &AddRelayerArgs{Account: relayerA})))))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.ErrorIs(t, im.Run(ctx), governance.ErrPoisonLock)
}

func TestImporter_ContextCancel(t *testing.T) {
	env := newTestEnv(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	im := NewImporter(env.executor, nil, 4, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- im.Run(ctx) }()
	cancel()
	require.NoError(t, <-done)
}
