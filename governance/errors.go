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

package governance

import (
	"errors"

	"github.com/litentry/bitacross-worker/internal/lock"
)

// Scheduled enclave errors
var (
	ErrPoisonLock          = lock.ErrPoisoned
	ErrEmptyRegistry       = errors.New("empty scheduled enclave registry")
	ErrNoPreviousMrenclave = errors.New("no previous MRENCLAVE")
	ErrUnorderedRegistry   = errors.New("scheduled enclave entries are not strictly increasing")
)

// Upgrade errors
var (
	ErrUpgradeReadOnlyMode = errors.New("block production is paused, write operations are rejected")
)

// IsFatal reports whether err means a registry can no longer be trusted
// and the process has to stop.
func IsFatal(err error) bool {
	return errors.Is(err, ErrPoisonLock)
}
