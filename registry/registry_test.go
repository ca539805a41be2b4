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

package registry

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/litentry/bitacross-worker/primitives"
	"github.com/litentry/bitacross-worker/storage"
)

var (
	alice = primitives.EvmIdentity(common.HexToAddress("0x00000000000000000000000000000000000a11ce"))
	bob   = primitives.SubstrateIdentity([32]byte{0xb0, 0xb})
)

// panickingSeal stands in for a sealer that crashes mid-write.
type panickingSeal struct {
	storage.SealedIO
	armed bool
}

func (p *panickingSeal) Seal(data []byte) error {
	if p.armed {
		panic("sealing device lost")
	}
	return p.SealedIO.Seal(data)
}

func TestRelayerRegistry_AddRemove(t *testing.T) {
	file, backend := storage.NewTestSealedFile(storage.RelayerRegistryFile)
	rr := NewRelayerRegistry(file)
	if err := rr.Init(); err != nil {
		t.Fatal(err)
	}
	if ok, _ := rr.ContainsKey(alice); ok {
		t.Fatal("fresh registry contains alice")
	}
	if err := rr.Update(alice); err != nil {
		t.Fatal(err)
	}
	if ok, _ := rr.ContainsKey(alice); !ok {
		t.Fatal("alice missing after update")
	}
	if err := rr.Remove(alice); err != nil {
		t.Fatal(err)
	}
	if ok, _ := rr.ContainsKey(alice); ok {
		t.Fatal("alice present after remove")
	}
	// init, update, remove
	if backend.Puts() != 3 {
		t.Fatalf("puts = %d, want 3", backend.Puts())
	}
}

func TestRelayerRegistry_RemoveMissingDoesNotReseal(t *testing.T) {
	file, backend := storage.NewTestSealedFile(storage.RelayerRegistryFile)
	rr := NewRelayerRegistry(file)
	rr.Init()
	rr.Update(bob)
	before := backend.Puts()
	if err := rr.Remove(alice); err != nil {
		t.Fatal(err)
	}
	if backend.Puts() != before {
		t.Fatalf("remove of missing key resealed")
	}
}

func TestRelayerRegistry_RoundTrip(t *testing.T) {
	file, _ := storage.NewTestSealedFile(storage.RelayerRegistryFile)
	rr := NewRelayerRegistry(file)
	rr.Init()
	rr.Update(bob)
	rr.Update(alice)
	rr.Update(alice)

	reopened := NewRelayerRegistry(file)
	if err := reopened.Init(); err != nil {
		t.Fatal(err)
	}
	want, _ := rr.GetAll()
	got, _ := reopened.GetAll()
	if len(got) != 2 || len(want) != 2 {
		t.Fatalf("unexpected relayers %v / %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("relayer %d = %v, want %v", i, got[i], want[i])
		}
	}
	// Substrate sorts before evm.
	if got[0] != bob {
		t.Fatalf("relayers not ordered: %v", got)
	}
}

func TestSignerRegistry_RoundTrip(t *testing.T) {
	file, _ := storage.NewTestSealedFile(storage.SignerRegistryFile)
	sr := NewSignerRegistry(file)
	sr.Init()

	account := primitives.Address32{1}
	key := primitives.PubKey{0x02, 0xaa}
	if err := sr.Update(account, key); err != nil {
		t.Fatal(err)
	}

	reopened := NewSignerRegistry(file)
	if err := reopened.Init(); err != nil {
		t.Fatal(err)
	}
	got, ok, err := reopened.Get(account)
	if err != nil || !ok || got != key {
		t.Fatalf("Get = %x, %v, %v", got, ok, err)
	}
}

func TestEnclaveRegistry_RoundTrip(t *testing.T) {
	file, _ := storage.NewTestSealedFile(storage.EnclaveRegistryFile)
	er := NewEnclaveRegistry(file)
	er.Init()
	er.Update(primitives.Address32{2}, " wss://b.example:2000 ")
	er.Update(primitives.Address32{1}, "wss://a.example:2000")

	reopened := NewEnclaveRegistry(file)
	if err := reopened.Init(); err != nil {
		t.Fatal(err)
	}
	all, _ := reopened.GetAll()
	if len(all) != 2 {
		t.Fatalf("expected 2 enclaves, got %d", len(all))
	}
	if all[0].Key != (primitives.Address32{1}) || all[1].Value != "wss://b.example:2000" {
		t.Fatalf("unexpected enclaves %+v", all)
	}
}

func TestRegistry_PanicPoisons(t *testing.T) {
	file, _ := storage.NewTestSealedFile(storage.RelayerRegistryFile)
	seal := &panickingSeal{SealedIO: file}
	rr := NewRelayerRegistry(seal)
	if err := rr.Init(); err != nil {
		t.Fatal(err)
	}
	seal.armed = true
	if err := rr.Update(alice); !errors.Is(err, ErrPoisonLock) {
		t.Fatalf("expected ErrPoisonLock, got %v", err)
	}
	if _, err := rr.ContainsKey(alice); !errors.Is(err, ErrPoisonLock) {
		t.Fatalf("reads after poisoning must fail, got %v", err)
	}
}

func TestRegistry_FailedSealRollsBack(t *testing.T) {
	file, _ := storage.NewTestSealedFile(storage.RelayerRegistryFile)
	rr := NewRelayerRegistry(&failAfter{SealedIO: file, n: 1})
	rr.Init()
	if err := rr.Update(alice); !errors.Is(err, storage.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	if ok, _ := rr.ContainsKey(alice); ok {
		t.Fatal("failed update visible in memory")
	}
}

type failAfter struct {
	storage.SealedIO
	n int
}

func (f *failAfter) Seal(data []byte) error {
	if f.n == 0 {
		return storage.ErrIO
	}
	f.n--
	return f.SealedIO.Seal(data)
}

func TestGetterExecutor(t *testing.T) {
	rf, _ := storage.NewTestSealedFile(storage.RelayerRegistryFile)
	sf, _ := storage.NewTestSealedFile(storage.SignerRegistryFile)
	ef, _ := storage.NewTestSealedFile(storage.EnclaveRegistryFile)
	relayers, signers, enclaves := NewRelayerRegistry(rf), NewSignerRegistry(sf), NewEnclaveRegistry(ef)
	relayers.Init()
	signers.Init()
	enclaves.Init()
	relayers.Update(alice)
	signers.Update(primitives.Address32{9}, primitives.PubKey{3})

	g := NewGetterExecutor(relayers, signers, enclaves)

	args, _ := rlpBytes(alice)
	out, err := g.Execute(&primitives.Getter{Kind: primitives.GetterIsRelayer, Args: args})
	if err != nil {
		t.Fatal(err)
	}
	var isRelayer bool
	if err := decode(out, &isRelayer); err != nil || !isRelayer {
		t.Fatalf("is_relayer = %v, %v", isRelayer, err)
	}

	out, err = g.Execute(&primitives.Getter{Kind: primitives.GetterSigners})
	if err != nil {
		t.Fatal(err)
	}
	var signerList []SignerInfo
	if err := decode(out, &signerList); err != nil || len(signerList) != 1 || signerList[0].Account != (primitives.Address32{9}) {
		t.Fatalf("signers = %+v, %v", signerList, err)
	}

	if _, err := g.Execute(&primitives.Getter{Kind: 42}); !errors.Is(err, ErrUnknownGetter) {
		t.Fatalf("expected ErrUnknownGetter, got %v", err)
	}
	if _, err := g.Execute(&primitives.Getter{Kind: primitives.GetterIsRelayer, Args: []byte{0xff}}); !errors.Is(err, primitives.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}
