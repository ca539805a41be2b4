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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/litentry/bitacross-worker/governance"
	"github.com/litentry/bitacross-worker/primitives"
)

var (
	relayerA = primitives.EvmIdentity(common.HexToAddress("0x000000000000000000000000000000000000000a"))
	relayerB = primitives.EvmIdentity(common.HexToAddress("0x000000000000000000000000000000000000000b"))
)

func TestFilter_NoMatchIsNotAnError(t *testing.T) {
	meta := NewStaticMetadata(DefaultCallIndexes)

	got, err := CallFilter{}.Filter(ParentchainCall{Index: CallIndex{200, 200}, Args: []byte{0xc0}}, meta)
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = DenyAll{}.Filter(call(t, FamilyAddRelayer, &AddRelayerArgs{Account: relayerA}), meta)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestFilter_DecodeFailure(t *testing.T) {
	meta := NewStaticMetadata(DefaultCallIndexes)
	bad := ParentchainCall{Index: CallIndex(DefaultCallIndexes[FamilyAddRelayer]), Args: []byte{0xff, 0x00}}
	got, err := CallFilter{}.Filter(bad, meta)
	require.ErrorIs(t, err, primitives.ErrDecode)
	require.Nil(t, got)
}

func TestFilter_PriorityOrder(t *testing.T) {
	// Both relayer families resolve to the same index, the add wins.
	meta := NewStaticMetadata(map[string][2]uint8{
		FamilyRemoveRelayer: {9, 9},
		FamilyAddRelayer:    {9, 9},
	})
	enc, _ := rlp.EncodeToBytes(&AddRelayerArgs{Account: relayerA})
	got, err := CallFilter{}.Filter(ParentchainCall{Index: CallIndex{9, 9}, Args: enc}, meta)
	require.NoError(t, err)
	require.Equal(t, KindAddRelayer, got.Kind())
}

func TestFilter_MissingFamilySkipped(t *testing.T) {
	meta := NewStaticMetadata(map[string][2]uint8{FamilyRemoveRelayer: {9, 9}})
	enc, _ := rlp.EncodeToBytes(&RemoveRelayerArgs{Account: relayerA})
	got, err := CallFilter{}.Filter(ParentchainCall{Index: CallIndex{9, 9}, Args: enc}, meta)
	require.NoError(t, err)
	require.Equal(t, KindRemoveRelayer, got.Kind())
}

func TestExecutor_AddRemoveRelayer(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.executor.ExecuteIndirectCallsInBlock(block(1,
		extrinsic(call(t, FamilyAddRelayer, &AddRelayerArgs{Account: relayerA})),
	))
	require.NoError(t, err)
	ok, err := env.relayers.ContainsKey(relayerA)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = env.executor.ExecuteIndirectCallsInBlock(block(2,
		extrinsic(call(t, FamilyRemoveRelayer, &RemoveRelayerArgs{Account: relayerA})),
	))
	require.NoError(t, err)
	ok, _ = env.relayers.ContainsKey(relayerA)
	require.False(t, ok)
}

func TestExecutor_FailureIsolation(t *testing.T) {
	env := newTestEnv(t)
	good1 := extrinsic(call(t, FamilyAddRelayer, &AddRelayerArgs{Account: relayerA}))
	badArgs := extrinsic(ParentchainCall{Index: CallIndex(DefaultCallIndexes[FamilyAddRelayer]), Args: []byte{0xff}})
	foreign := extrinsic(ParentchainCall{Index: CallIndex{4, 0}, Args: []byte{0xc0}})
	good2 := extrinsic(call(t, FamilyAddRelayer, &AddRelayerArgs{Account: relayerB}))

	report, err := env.executor.ExecuteIndirectCallsInBlock(block(7, []byte("garbage"), good1, badArgs, foreign, good2))
	require.NoError(t, err)
	require.Len(t, report.Results, 5)

	require.ErrorIs(t, report.Results[0].Err, primitives.ErrParse)
	require.NoError(t, report.Results[1].Err)
	require.True(t, report.Results[1].Matched)
	require.ErrorIs(t, report.Results[2].Err, primitives.ErrDecode)
	require.False(t, report.Results[3].Matched)
	require.NoError(t, report.Results[3].Err)
	require.NoError(t, report.Results[4].Err)

	require.Equal(t, []common.Hash{ExtrinsicHash(good1), ExtrinsicHash(good2)}, report.Executed)
	for _, id := range []primitives.Identity{relayerA, relayerB} {
		ok, _ := env.relayers.ContainsKey(id)
		require.True(t, ok)
	}

	var confirmed ProcessedBlockArgs
	require.Equal(t, CallIndex(DefaultCallIndexes[FamilyParentchainBlockProcessed]), report.Confirmation.Index)
	require.NoError(t, rlp.DecodeBytes(report.Confirmation.Args, &confirmed))
	require.Equal(t, uint64(7), confirmed.BlockNumber)
	require.Equal(t, MerkleRoot(report.Executed), confirmed.MerkleRoot)
}

func TestExecutor_ReplayIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	b := block(3,
		extrinsic(call(t, FamilyAddRelayer, &AddRelayerArgs{Account: relayerA})),
		extrinsic(call(t, FamilyUpdateScheduledEnclave, &UpdateScheduledEnclaveArgs{SidechainBlockNumber: 50, Mrenclave: testMrenclave})),
	)
	_, err := env.executor.ExecuteIndirectCallsInBlock(b)
	require.NoError(t, err)
	relayers1, _ := env.relayers.GetAll()
	schedule1, _ := env.scheduled.Entries()

	_, err = env.executor.ExecuteIndirectCallsInBlock(b)
	require.NoError(t, err)
	relayers2, _ := env.relayers.GetAll()
	schedule2, _ := env.scheduled.Entries()

	require.Equal(t, relayers1, relayers2)
	require.Equal(t, schedule1, schedule2)
}

func TestExecutor_ScheduledEnclavePausesProduction(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.upgrade.CheckAt(20)
	require.NoError(t, err)

	successor := primitives.MrEnclave{0xe2}
	_, err = env.executor.ExecuteIndirectCallsInBlock(block(1,
		extrinsic(call(t, FamilyUpdateScheduledEnclave, &UpdateScheduledEnclaveArgs{SidechainBlockNumber: 10, Mrenclave: successor})),
	))
	require.NoError(t, err)

	got, err := env.scheduled.ExpectedMrenclave(20)
	require.NoError(t, err)
	require.Equal(t, successor, got)
	require.ErrorIs(t, env.upgrade.CheckWrite(), governance.ErrUpgradeReadOnlyMode)

	_, err = env.executor.ExecuteIndirectCallsInBlock(block(2,
		extrinsic(call(t, FamilyRemoveScheduledEnclave, &RemoveScheduledEnclaveArgs{SidechainBlockNumber: 10})),
	))
	require.NoError(t, err)
	got, _ = env.scheduled.ExpectedMrenclave(20)
	require.Equal(t, testMrenclave, got)
}

func TestExecutor_EnclaveAndSignerRegistries(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.executor.ExecuteIndirectCallsInBlock(block(1,
		extrinsic(call(t, FamilyAddEnclave, &AddEnclaveArgs{Account: primitives.Address32{1}, WorkerType: primitives.WorkerTypeBitAcross, Url: "wss://a:2000"})),
		extrinsic(call(t, FamilyAddEnclave, &AddEnclaveArgs{Account: primitives.Address32{2}, WorkerType: primitives.WorkerTypeIdentity, Url: "wss://b:2000"})),
		extrinsic(call(t, FamilySaveSigner, &SaveSignerArgs{Account: primitives.Address32{1}, PubKey: primitives.PubKey{0x02}})),
	))
	require.NoError(t, err)

	enclaves, _ := env.enclaves.GetAll()
	require.Len(t, enclaves, 1)
	require.Equal(t, "wss://a:2000", enclaves[0].Value)
	ok, _ := env.signers.ContainsKey(primitives.Address32{1})
	require.True(t, ok)

	_, err = env.executor.ExecuteIndirectCallsInBlock(block(2,
		extrinsic(call(t, FamilyRemoveEnclave, &RemoveEnclaveArgs{Account: primitives.Address32{1}})),
	))
	require.NoError(t, err)
	enclaves, _ = env.enclaves.GetAll()
	require.Empty(t, enclaves)
}

func TestExecutor_ShieldFunds(t *testing.T) {
	env := newTestEnv(t)
	beneficiary := primitives.SubstrateIdentity([32]byte{0xbe})
	_, err := env.executor.ExecuteIndirectCallsInBlock(block(9,
		[]byte("noise"),
		extrinsic(call(t, FamilyShieldFunds, &ShieldFundsArgs{Account: beneficiary, Amount: uint256.NewInt(1_000)})),
	))
	require.NoError(t, err)
	require.Len(t, env.submitter.calls, 1)

	sub := env.submitter.calls[0]
	require.Equal(t, testShard, sub.shard)
	require.Equal(t, primitives.CallBalanceShield, sub.call.Call.Kind)
	require.Equal(t, enclaveID, sub.call.Call.Signer)
	require.Equal(t, uint32(1)<<16, sub.call.Nonce)

	var args primitives.BalanceShieldArgs
	require.NoError(t, rlp.DecodeBytes(sub.call.Call.Args, &args))
	require.Equal(t, beneficiary, args.Account)
	require.Equal(t, uint64(1000), args.Amount.Uint64())
	require.Equal(t, uint64(9), args.Block)
}

func TestExecutor_InvokeTrustedCall(t *testing.T) {
	env := newTestEnv(t)
	key, _ := crypto.GenerateKey()
	tc := primitives.TrustedCall{Kind: primitives.CallNoop, Signer: primitives.EvmIdentity(crypto.PubkeyToAddress(key.PublicKey))}
	sig, err := crypto.Sign(tc.SignaturePayload(4, testMrenclave, testShard).Bytes(), key)
	require.NoError(t, err)
	op := primitives.NewIndirectCallOperation(&primitives.TrustedCallSigned{Call: tc, Nonce: 4, Signature: sig})
	payload, _ := xorDecrypter(0x77).Decrypt(op.Encode())

	invoke := &InvokeTrustedCallArgs{Request: primitives.RsaRequest{Shard: testShard, Payload: payload}}
	forged := &InvokeTrustedCallArgs{Request: primitives.RsaRequest{Shard: primitives.ShardIdentifier{0x01}, Payload: payload}}

	report, err := env.executor.ExecuteIndirectCallsInBlock(block(1,
		extrinsic(call(t, FamilyInvokeTrustedCall, invoke)),
		extrinsic(call(t, FamilyInvokeTrustedCall, forged)),
	))
	require.NoError(t, err)
	require.NoError(t, report.Results[0].Err)
	require.ErrorIs(t, report.Results[1].Err, primitives.ErrInvalidSignature)
	require.Len(t, env.submitter.calls, 1)
	require.Equal(t, uint32(4), env.submitter.calls[0].call.Nonce)
}

func TestExecutor_BatchAll(t *testing.T) {
	env := newTestEnv(t)
	batch := &BatchAllArgs{Calls: []ParentchainCall{
		call(t, FamilyAddRelayer, &AddRelayerArgs{Account: relayerA}),
		{Index: CallIndex(DefaultCallIndexes[FamilySaveSigner]), Args: []byte{0x01}},
		{Index: CallIndex{3, 3}, Args: nil},
		call(t, FamilyAddRelayer, &AddRelayerArgs{Account: relayerB}),
		call(t, FamilyShieldFunds, &ShieldFundsArgs{Account: relayerA, Amount: uint256.NewInt(1)}),
		call(t, FamilyShieldFunds, &ShieldFundsArgs{Account: relayerA, Amount: uint256.NewInt(1)}),
	}}
	report, err := env.executor.ExecuteIndirectCallsInBlock(block(1, extrinsic(call(t, FamilyBatchAll, batch))))
	require.NoError(t, err)
	require.NoError(t, report.Results[0].Err)
	require.Equal(t, KindBatchAll, report.Results[0].Kind)

	for _, id := range []primitives.Identity{relayerA, relayerB} {
		ok, _ := env.relayers.ContainsKey(id)
		require.True(t, ok)
	}
	// Identical deposits in one batch stay distinct.
	require.Len(t, env.submitter.calls, 2)
	require.NotEqual(t, env.submitter.calls[0].call.Nonce, env.submitter.calls[1].call.Nonce)
}

type poisonedRelayers struct{}

func (poisonedRelayers) Update(primitives.Identity) error { return governance.ErrPoisonLock }
func (poisonedRelayers) Remove(primitives.Identity) error { return governance.ErrPoisonLock }

func TestExecutor_PoisonAbortsBlock(t *testing.T) {
	env := newTestEnv(t)
	env.executor.relayers = poisonedRelayers{}
	report, err := env.executor.ExecuteIndirectCallsInBlock(block(1,
		extrinsic(call(t, FamilyAddRelayer, &AddRelayerArgs{Account: relayerA})),
		extrinsic(call(t, FamilyAddRelayer, &AddRelayerArgs{Account: relayerB})),
	))
	require.ErrorIs(t, err, governance.ErrPoisonLock)
	require.Len(t, report.Results, 1)
}

func TestExecutor_PoisonInBatchAbortsBlock(t *testing.T) {
	env := newTestEnv(t)
	env.executor.relayers = poisonedRelayers{}
	batch := &BatchAllArgs{Calls: []ParentchainCall{
		call(t, FamilyAddRelayer, &AddRelayerArgs{Account: relayerA}),
		call(t, FamilyUpdateScheduledEnclave, &UpdateScheduledEnclaveArgs{SidechainBlockNumber: 40, Mrenclave: primitives.MrEnclave{0xe3}}),
	}}
	report, err := env.executor.ExecuteIndirectCallsInBlock(block(1,
		extrinsic(call(t, FamilyBatchAll, batch)),
		extrinsic(call(t, FamilyUpdateScheduledEnclave, &UpdateScheduledEnclaveArgs{SidechainBlockNumber: 50, Mrenclave: primitives.MrEnclave{0xe4}})),
	))
	require.ErrorIs(t, err, governance.ErrPoisonLock)
	require.Len(t, report.Results, 1)
	require.Empty(t, report.Executed)
	require.Nil(t, report.Confirmation)

	// Neither the rest of the batch nor the next extrinsic ran.
	got, err := env.scheduled.ExpectedMrenclave(60)
	require.NoError(t, err)
	require.Equal(t, testMrenclave, got)
}

func TestExecutor_MissingMetadataIgnoresCalls(t *testing.T) {
	executor := NewExecutor(Config{Filter: CallFilter{}})
	report, err := executor.ExecuteIndirectCallsInBlock(block(1,
		extrinsic(call(t, FamilyAddRelayer, &AddRelayerArgs{Account: relayerA})),
	))
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	require.False(t, report.Results[0].Matched)
	require.NoError(t, report.Results[0].Err)
	require.Nil(t, report.Confirmation)
}

func TestDispatchContext_NonceBounds(t *testing.T) {
	n, err := (&DispatchContext{index: 3, sub: 2}).nonce()
	require.NoError(t, err)
	require.Equal(t, uint32(3<<16|2), n)

	last, err := (&DispatchContext{index: maxCallPosition - 1, sub: maxCallPosition - 1}).nonce()
	require.NoError(t, err)
	require.Equal(t, uint32(0xffffffff), last)

	_, err = (&DispatchContext{index: maxCallPosition}).nonce()
	require.ErrorIs(t, err, ErrNonceOverflow)
	_, err = (&DispatchContext{index: 1, sub: maxCallPosition}).nonce()
	require.ErrorIs(t, err, ErrNonceOverflow)
}

func TestMerkleRoot(t *testing.T) {
	require.Equal(t, common.Hash{}, MerkleRoot(nil))

	a, b, c := common.Hash{1}, common.Hash{2}, common.Hash{3}
	require.Equal(t, crypto.Keccak256Hash(a[:]), MerkleRoot([]common.Hash{a}))

	ha, hb, hc := crypto.Keccak256Hash(a[:]), crypto.Keccak256Hash(b[:]), crypto.Keccak256Hash(c[:])
	hab := crypto.Keccak256Hash(ha[:], hb[:])
	require.Equal(t, crypto.Keccak256Hash(hab[:], hc[:]), MerkleRoot([]common.Hash{a, b, c}))
}
