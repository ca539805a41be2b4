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

package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type loggingOptions struct {
	Verbosity int
	JSON      bool
	File      string
	MaxSizeMB int
}

// setupLogging installs the root logger. A log file is rotated by size and
// keeps a bounded number of compressed backups.
func setupLogging(opts loggingOptions) error {
	var output io.Writer = os.Stderr
	if opts.File != "" {
		output = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: 10,
			Compress:   true,
		})
	}
	var handler slog.Handler
	if opts.JSON {
		handler = log.JSONHandler(output)
	} else {
		handler = log.NewTerminalHandler(output, false)
	}
	glogger := log.NewGlogHandler(handler)
	glogger.Verbosity(log.FromLegacyLevel(opts.Verbosity))
	log.SetDefault(log.NewLogger(glogger))
	return nil
}
