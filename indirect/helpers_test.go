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
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/require"

	"github.com/litentry/bitacross-worker/governance"
	"github.com/litentry/bitacross-worker/primitives"
	"github.com/litentry/bitacross-worker/registry"
	"github.com/litentry/bitacross-worker/storage"
)

var (
	testMrenclave = primitives.MrEnclave{0xe1}
	testShard     = primitives.ShardFromMrenclave(testMrenclave)
	enclaveID     = primitives.SubstrateIdentity([32]byte{0xec})
)

type submitted struct {
	shard primitives.ShardIdentifier
	call  *primitives.TrustedCallSigned
}

type recordingSubmitter struct {
	mu    sync.Mutex
	calls []submitted
}

func (r *recordingSubmitter) SubmitIndirect(shard primitives.ShardIdentifier, call *primitives.TrustedCallSigned) (common.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, submitted{shard, call})
	return common.Hash{byte(len(r.calls))}, nil
}

// fakeSigner puts the nonce into the signature so tests can see it.
type fakeSigner struct{}

func (fakeSigner) Identity() primitives.Identity { return enclaveID }

func (fakeSigner) SignCall(call primitives.TrustedCall, nonce uint32, _ primitives.ShardIdentifier) (*primitives.TrustedCallSigned, error) {
	return &primitives.TrustedCallSigned{Call: call, Nonce: nonce, Signature: []byte("enclave")}, nil
}

type xorDecrypter byte

func (x xorDecrypter) Decrypt(ciphertext []byte) ([]byte, error) {
	out := make([]byte, len(ciphertext))
	for i, b := range ciphertext {
		out[i] = b ^ byte(x)
	}
	return out, nil
}

type testEnv struct {
	executor  *Executor
	scheduled *governance.SealedScheduledEnclave
	upgrade   *governance.UpgradeModeChecker
	relayers  *registry.RelayerRegistry
	signers   *registry.SignerRegistry
	enclaves  *registry.EnclaveRegistry
	submitter *recordingSubmitter
	metadata  *StaticMetadata
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	sf, _ := storage.NewTestSealedFile(storage.ScheduledEnclaveFile)
	rf, _ := storage.NewTestSealedFile(storage.RelayerRegistryFile)
	gf, _ := storage.NewTestSealedFile(storage.SignerRegistryFile)
	ef, _ := storage.NewTestSealedFile(storage.EnclaveRegistryFile)

	env := &testEnv{
		scheduled: governance.NewSealedScheduledEnclave(sf, testMrenclave),
		relayers:  registry.NewRelayerRegistry(rf),
		signers:   registry.NewSignerRegistry(gf),
		enclaves:  registry.NewEnclaveRegistry(ef),
		submitter: new(recordingSubmitter),
		metadata:  NewStaticMetadata(DefaultCallIndexes),
	}
	require.NoError(t, env.scheduled.Init())
	require.NoError(t, env.relayers.Init())
	require.NoError(t, env.signers.Init())
	require.NoError(t, env.enclaves.Init())
	env.upgrade = governance.NewUpgradeModeChecker(env.scheduled)

	env.executor = NewExecutor(Config{
		Filter:    CallFilter{},
		Metadata:  env.metadata,
		Shard:     testShard,
		Mrenclave: testMrenclave,
		Scheduled: env.scheduled,
		Upgrade:   env.upgrade,
		Relayers:  env.relayers,
		Signers:   env.signers,
		Enclaves:  env.enclaves,
		Submitter: env.submitter,
		Signer:    fakeSigner{},
		Shielding: xorDecrypter(0x77),
	})
	return env
}

// call encodes args as a call of family.
func call(t *testing.T, family string, args interface{}) ParentchainCall {
	t.Helper()
	enc, err := rlp.EncodeToBytes(args)
	require.NoError(t, err)
	return ParentchainCall{Index: CallIndex(DefaultCallIndexes[family]), Args: enc}
}

func extrinsic(c ParentchainCall) []byte {
	return (&Extrinsic{Signer: []byte{0x01}, Call: c}).Encode()
}

func block(number uint64, xts ...[]byte) *ParentchainBlock {
	return &ParentchainBlock{Number: number, Hash: common.BigToHash(new(big.Int).SetUint64(number + 1000)), Extrinsics: xts}
}
