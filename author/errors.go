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

package author

import (
	"fmt"

	"github.com/litentry/bitacross-worker/toppool"
)

var (
	ErrShardNotFound     = fmt.Errorf("%w: shard not found", toppool.ErrRequest)
	ErrGetterNotAccepted = fmt.Errorf("%w: getters are executed with state_executeGetter", toppool.ErrRequest)
	ErrBadSignature      = fmt.Errorf("%w: bad signature", toppool.ErrRequest)
	ErrUndecryptable     = fmt.Errorf("%w: failed to decrypt request", toppool.ErrRequest)
)
