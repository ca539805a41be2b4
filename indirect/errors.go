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
	"errors"
	"fmt"

	"github.com/litentry/bitacross-worker/primitives"
)

var (
	// ErrMissingCallIndex is returned by metadata that lacks a call family
	ErrMissingCallIndex = errors.New("call index not found in metadata")

	// ErrUnexpectedCall is returned when a nested call is not an indirect call
	ErrUnexpectedCall = fmt.Errorf("%w: unexpected call", primitives.ErrDecode)

	// ErrNonceOverflow is returned for call positions that do not fit a nonce
	ErrNonceOverflow = errors.New("call position exceeds nonce range")

	// ErrQueueFull is returned when the importer cannot take more blocks
	ErrQueueFull = errors.New("parentchain import queue full")

	// ErrImporterStopped is returned for imports after Stop
	ErrImporterStopped = errors.New("parentchain importer stopped")
)
