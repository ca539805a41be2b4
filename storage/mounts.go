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

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EncryptedMountsEnv lists the encrypted mounts of the Gramine manifest,
// comma separated. It is only set inside the enclave.
const EncryptedMountsEnv = "GRAMINE_ENCRYPTED_PATHS"

// EncryptedMounts returns the encrypted mounts declared by the manifest, nil
// when not running inside Gramine.
func EncryptedMounts() []string {
	var mounts []string
	for _, p := range strings.Split(os.Getenv(EncryptedMountsEnv), ",") {
		if p = strings.TrimSpace(p); p != "" {
			mounts = append(mounts, filepath.Clean(p))
		}
	}
	return mounts
}

// CheckEncryptedMount rejects paths outside every mount. With no mounts
// there is nothing to enforce.
func CheckEncryptedMount(path string, mounts []string) error {
	if len(mounts) == 0 {
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	for _, m := range mounts {
		rel, err := filepath.Rel(m, abs)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not on an encrypted mount %v", ErrInvalidConfig, path, mounts)
}
