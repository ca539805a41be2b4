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
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// Config are the limits of the trusted operation pool.
type Config struct {
	ReadyCount  int // Maximum number of ready operations per shard
	ReadyBytes  int // Maximum encoded size of ready operations per shard
	FutureCount int // Maximum number of future operations per shard
	FutureBytes int // Maximum encoded size of future operations per shard

	BanTime       time.Duration // How long invalid operation hashes are rejected
	BanCacheBytes int           // Memory given to the ban cache
}

// DefaultConfig contains the default limits of the pool.
var DefaultConfig = Config{
	ReadyCount:  8192,
	ReadyBytes:  20 * 1024 * 1024,
	FutureCount: 512,
	FutureBytes: 1024 * 1024,

	BanTime:       30 * time.Minute,
	BanCacheBytes: 32 * 1024 * 1024,
}

// sanitize replaces unworkable values with defaults.
func (c *Config) sanitize() Config {
	conf := *c
	if conf.ReadyCount < 1 {
		log.Warn("Sanitizing invalid toppool ready count", "provided", conf.ReadyCount, "updated", DefaultConfig.ReadyCount)
		conf.ReadyCount = DefaultConfig.ReadyCount
	}
	if conf.ReadyBytes < 1 {
		log.Warn("Sanitizing invalid toppool ready bytes", "provided", conf.ReadyBytes, "updated", DefaultConfig.ReadyBytes)
		conf.ReadyBytes = DefaultConfig.ReadyBytes
	}
	if conf.FutureCount < 0 {
		log.Warn("Sanitizing invalid toppool future count", "provided", conf.FutureCount, "updated", DefaultConfig.FutureCount)
		conf.FutureCount = DefaultConfig.FutureCount
	}
	if conf.FutureBytes < 0 {
		log.Warn("Sanitizing invalid toppool future bytes", "provided", conf.FutureBytes, "updated", DefaultConfig.FutureBytes)
		conf.FutureBytes = DefaultConfig.FutureBytes
	}
	if conf.BanTime <= 0 {
		log.Warn("Sanitizing invalid toppool ban time", "provided", conf.BanTime, "updated", DefaultConfig.BanTime)
		conf.BanTime = DefaultConfig.BanTime
	}
	if conf.BanCacheBytes <= 0 {
		conf.BanCacheBytes = DefaultConfig.BanCacheBytes
	}
	return conf
}
