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

package enclave

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"

	"github.com/litentry/bitacross-worker/primitives"
)

// MrenclaveEnv is the manifest variable carrying the expected measurement.
const MrenclaveEnv = "RA_TLS_MRENCLAVE"

// targetInfoPath is where Gramine exposes the local target info. The first
// 32 bytes are the MRENCLAVE.
var targetInfoPath = "/dev/attestation/my_target_info"

// ReadMrenclave returns the measurement of the running enclave. Inside
// Gramine it is read from the attestation device, otherwise from
// RA_TLS_MRENCLAVE and finally from configured.
func ReadMrenclave(configured string) (primitives.MrEnclave, error) {
	var m primitives.MrEnclave
	if info, err := os.ReadFile(targetInfoPath); err == nil {
		if len(info) < len(m) {
			return m, fmt.Errorf("%w: target info too short: %d bytes", ErrNoMeasurement, len(info))
		}
		copy(m[:], info[:len(m)])
		log.Info("Read MRENCLAVE from attestation device", "mrenclave", m)
		return m, nil
	}
	if env := os.Getenv(MrenclaveEnv); env != "" {
		m, err := primitives.ParseMrEnclave(env)
		if err != nil {
			return m, fmt.Errorf("%s: %w", MrenclaveEnv, err)
		}
		log.Info("Read MRENCLAVE from environment", "mrenclave", m)
		return m, nil
	}
	if configured != "" {
		m, err := primitives.ParseMrEnclave(configured)
		if err != nil {
			return m, err
		}
		log.Warn("Using configured MRENCLAVE, not running inside an enclave", "mrenclave", m)
		return m, nil
	}
	return m, ErrNoMeasurement
}
