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
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/litentry/bitacross-worker/primitives"
)

// ResponseChannel delivers a serialized JSON-RPC response to a connection.
// keepOpen is unset on the last message of a watch, after which the
// connection is closed.
type ResponseChannel interface {
	Respond(token ConnectionToken, message []byte, keepOpen bool) error
}

// Responder pushes status updates of watched operations to the
// connections watching them. Each update reaches each connection once.
type Responder struct {
	mu       sync.Mutex
	registry *ConnectionRegistry
	channel  ResponseChannel
	logger   log.Logger
}

func NewResponder(registry *ConnectionRegistry, channel ResponseChannel) *Responder {
	return &Responder{
		registry: registry,
		channel:  channel,
		logger:   log.New("module", "rpc-responder"),
	}
}

// deliver withdraws the connections of hash, lets mutate adjust every
// response and sends it. Connections that keep watching are stored again.
func (r *Responder) deliver(hash common.Hash, storeAs common.Hash, mutate func(c *watchedConnection, v *primitives.RpcReturnValue)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := r.registry.withdraw(hash)
	if len(conns) == 0 {
		return ErrConnectionNotFound
	}
	var errs []error
	for _, c := range conns {
		value, err := primitives.RpcReturnValueFromHex(c.response.Result)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		mutate(c, &value)
		c.response.Result = value.ToHex()

		msg, err := encodeResponse(c.response)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := r.channel.Respond(c.token, msg, value.DoWatch); err != nil {
			r.logger.Debug("Dropping watcher", "hash", hash, "token", c.token, "err", err)
			continue
		}
		if value.DoWatch {
			r.registry.Store(storeAs, c.token, c.response, c.forceWait)
		}
	}
	return errors.Join(errs...)
}

// UpdateStatusEvent sends status to the watchers of hash. A TopExecuted
// status also replaces the value with its response.
func (r *Responder) UpdateStatusEvent(hash common.Hash, status primitives.TrustedOperationStatus) error {
	return r.deliver(hash, hash, func(c *watchedConnection, v *primitives.RpcReturnValue) {
		if status.Code == primitives.StatusTopExecuted {
			v.Value = status.Response
		}
		v.Status = primitives.StatusOperation(status, hash)
		v.DoWatch = status.ContinueWatching() || c.forceWait
	})
}

// IsWatching reports whether a connection waits for updates of hash.
func (r *Responder) IsWatching(hash common.Hash) bool {
	return r.registry.IsWatching(hash)
}

// SendState sends state to the watchers of hash and closes them.
func (r *Responder) SendState(hash common.Hash, state []byte) error {
	return r.deliver(hash, hash, func(_ *watchedConnection, v *primitives.RpcReturnValue) {
		v.Value = state
		v.Status = primitives.StatusOperation(primitives.Submitted(), hash)
		v.DoWatch = false
	})
}

// SendStateWithStatus sends state and status to the watchers of hash.
func (r *Responder) SendStateWithStatus(hash common.Hash, state []byte, status primitives.DirectRequestStatus) error {
	return r.deliver(hash, hash, func(c *watchedConnection, v *primitives.RpcReturnValue) {
		v.Value = state
		v.Status = status
		v.DoWatch = c.forceWait
		if status.Code == primitives.DirectTrustedOperationStatus {
			v.DoWatch = v.DoWatch || status.Operation.ContinueWatching()
		}
	})
}

// SendRpcResponse replaces the value of the watchers of hash.
func (r *Responder) SendRpcResponse(hash common.Hash, value []byte, doWatch bool) error {
	return r.deliver(hash, hash, func(c *watchedConnection, v *primitives.RpcReturnValue) {
		v.Value = value
		v.DoWatch = doWatch || c.forceWait
	})
}

// UpdateForceWait keeps the watchers of hash open past terminal statuses.
func (r *Responder) UpdateForceWait(hash common.Hash, forceWait bool) error {
	if !r.registry.update(hash, func(c *watchedConnection) { c.forceWait = forceWait }) {
		return ErrConnectionNotFound
	}
	return nil
}

// UpdateConnectionState replaces the stored value of the watchers of hash
// without sending anything.
func (r *Responder) UpdateConnectionState(hash common.Hash, encodedValue []byte, forceWait bool) error {
	var errs []error
	found := r.registry.update(hash, func(c *watchedConnection) {
		value, err := primitives.RpcReturnValueFromHex(c.response.Result)
		if err != nil {
			errs = append(errs, err)
			return
		}
		value.Value = encodedValue
		c.response.Result = value.ToHex()
		c.forceWait = forceWait
	})
	if !found {
		return ErrConnectionNotFound
	}
	return errors.Join(errs...)
}

// SwapHash moves the watchers of old over to new.
func (r *Responder) SwapHash(old, new common.Hash) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := r.registry.withdraw(old)
	if len(conns) == 0 {
		return ErrConnectionNotFound
	}
	for _, c := range conns {
		if value, err := primitives.RpcReturnValueFromHex(c.response.Result); err == nil {
			if _, ok := value.Status.WatchedHash(); ok {
				value.Status.Hash = new
			}
			c.response.Result = value.ToHex()
		}
		r.registry.Store(new, c.token, c.response, c.forceWait)
	}
	r.logger.Debug("Swapped watched hash", "old", old, "new", new, "connections", len(conns))
	return nil
}
