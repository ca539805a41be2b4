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

package toppool

import (
	"errors"
	"fmt"
)

// ErrRequest is the root of every error caused by a submitted operation.
var ErrRequest = errors.New("trusted operation request error")

var (
	// ErrAlreadyImported is returned if the operation is already in the pool
	ErrAlreadyImported = fmt.Errorf("%w: already imported", ErrRequest)

	// ErrTemporarilyBanned is returned if the operation was recently found invalid
	ErrTemporarilyBanned = fmt.Errorf("%w: temporarily banned", ErrRequest)

	// ErrTooLowPriority is returned if a pooled operation already provides
	// the same tag with an equal or higher priority
	ErrTooLowPriority = fmt.Errorf("%w: priority too low to replace", ErrRequest)

	// ErrImmediatelyDropped is returned if the pool limits evicted the
	// operation right after it was imported
	ErrImmediatelyDropped = fmt.Errorf("%w: immediately dropped", ErrRequest)

	// ErrInvalidOperation is returned if the validator rejected the operation
	ErrInvalidOperation = fmt.Errorf("%w: invalid operation", ErrRequest)
)
