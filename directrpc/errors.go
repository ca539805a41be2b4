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
	"fmt"

	"github.com/litentry/bitacross-worker/primitives"
)

var (
	// ErrCrypto is returned when a request cannot be decrypted or a response encrypted
	ErrCrypto = primitives.ErrCrypto

	ErrMethodNotFound      = errors.New("method not found")
	ErrInvalidParams       = errors.New("invalid params")
	ErrConnectionNotFound  = errors.New("connection not found")
	ErrDevModeOnly         = errors.New("method is only available in dev mode")
	ErrServerNotStarted    = errors.New("rpc server not started")
	ErrUnauthorizedRelayer = fmt.Errorf("%w: signer is not a relayer", ErrInvalidParams)
	ErrUnsupportedCall     = errors.New("unsupported direct call")
)
