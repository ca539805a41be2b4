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
	"encoding/binary"
	"time"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/common"
)

// Rotator keeps recently invalidated hashes banned for a while so that
// they cannot be resubmitted right away.
type Rotator struct {
	banned  *fastcache.Cache
	banTime time.Duration
	now     func() time.Time
}

func NewRotator(banTime time.Duration, cacheBytes int) *Rotator {
	return &Rotator{
		banned:  fastcache.New(cacheBytes),
		banTime: banTime,
		now:     time.Now,
	}
}

// Ban rejects hashes until the ban time passed.
func (r *Rotator) Ban(hashes ...common.Hash) {
	var until [8]byte
	binary.BigEndian.PutUint64(until[:], uint64(r.now().Add(r.banTime).UnixNano()))
	for _, h := range hashes {
		r.banned.Set(h[:], until[:])
	}
}

// IsBanned reports whether hash is currently banned. Expired bans are
// cleared on lookup.
func (r *Rotator) IsBanned(hash common.Hash) bool {
	v, ok := r.banned.HasGet(nil, hash[:])
	if !ok || len(v) != 8 {
		return false
	}
	if r.now().UnixNano() >= int64(binary.BigEndian.Uint64(v)) {
		r.banned.Del(hash[:])
		return false
	}
	return true
}

func (r *Rotator) Reset() {
	r.banned.Reset()
}
