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

package directrpc

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/litentry/bitacross-worker/primitives"
)

// ConnectionToken identifies one live client connection.
type ConnectionToken = uuid.UUID

// NewConnectionToken returns a fresh random token.
func NewConnectionToken() ConnectionToken {
	return uuid.New()
}

// watchedConnection is the last response a watching connection received.
type watchedConnection struct {
	token     ConnectionToken
	response  primitives.RpcResponse
	forceWait bool
}

// ConnectionRegistry maps operation hashes to the connections watching them.
type ConnectionRegistry struct {
	mu      sync.Mutex
	byHash  map[common.Hash]map[ConnectionToken]*watchedConnection
	byToken map[ConnectionToken]common.Hash
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		byHash:  make(map[common.Hash]map[ConnectionToken]*watchedConnection),
		byToken: make(map[ConnectionToken]common.Hash),
	}
}

// Store registers token as watching hash. A token watches one hash at a time.
func (r *ConnectionRegistry) Store(hash common.Hash, token ConnectionToken, response primitives.RpcResponse, forceWait bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeTokenLocked(token)
	conns, ok := r.byHash[hash]
	if !ok {
		conns = make(map[ConnectionToken]*watchedConnection)
		r.byHash[hash] = conns
	}
	conns[token] = &watchedConnection{token: token, response: response, forceWait: forceWait}
	r.byToken[token] = hash
}

// withdraw removes and returns all connections watching hash.
func (r *ConnectionRegistry) withdraw(hash common.Hash) []*watchedConnection {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.byHash[hash]
	if !ok {
		return nil
	}
	delete(r.byHash, hash)
	out := make([]*watchedConnection, 0, len(conns))
	for token, c := range conns {
		delete(r.byToken, token)
		out = append(out, c)
	}
	return out
}

// update applies fn to every connection watching hash, in place.
func (r *ConnectionRegistry) update(hash common.Hash, fn func(c *watchedConnection)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.byHash[hash]
	if !ok {
		return false
	}
	for _, c := range conns {
		fn(c)
	}
	return true
}

// RemoveToken drops a closed connection.
func (r *ConnectionRegistry) RemoveToken(token ConnectionToken) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeTokenLocked(token)
}

func (r *ConnectionRegistry) removeTokenLocked(token ConnectionToken) {
	hash, ok := r.byToken[token]
	if !ok {
		return
	}
	delete(r.byToken, token)
	if conns, ok := r.byHash[hash]; ok {
		delete(conns, token)
		if len(conns) == 0 {
			delete(r.byHash, hash)
		}
	}
}

// IsWatching reports whether any connection watches hash.
func (r *ConnectionRegistry) IsWatching(hash common.Hash) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byHash[hash]) > 0
}

// Len returns the number of watching connections.
func (r *ConnectionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byToken)
}
