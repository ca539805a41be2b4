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
	"fmt"
	"time"
)

// Config is the configuration of the trusted RPC server.
type Config struct {
	ListenAddr     string
	CorsOrigins    []string
	ReadTimeout    time.Duration // Read deadline, extended by every pong
	WriteTimeout   time.Duration
	RateLimit      float64 // Requests per second per connection
	RateBurst      int
	MaxMessageSize int64
	DevMode        bool
}

// DefaultConfig contains the default settings of the RPC server.
var DefaultConfig = Config{
	ListenAddr:     "0.0.0.0:2000",
	CorsOrigins:    []string{"*"},
	ReadTimeout:    60 * time.Second,
	WriteTimeout:   10 * time.Second,
	RateLimit:      20,
	RateBurst:      40,
	MaxMessageSize: 4 * 1024 * 1024,
}

func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("%w: empty listen address", ErrInvalidParams)
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidParams)
	}
	if c.RateLimit <= 0 || c.RateBurst < 1 {
		return fmt.Errorf("%w: rate limit must be positive", ErrInvalidParams)
	}
	if c.MaxMessageSize < 1024 {
		return fmt.Errorf("%w: max message size below 1KiB", ErrInvalidParams)
	}
	return nil
}
