// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package utils provides small filesystem and token-accounting helpers
// shared across the project-management and interpreter packages.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureProjectDir ensures the .hll metadata directory exists under
// projectRoot, creating it (and projectRoot itself, transitively) if
// necessary. Returns the full path to .hll.
func EnsureProjectDir(projectRoot string) (string, error) {
	dir := filepath.Join(projectRoot, ".hll")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create project directory '%s': %w", dir, err)
	}
	return dir, nil
}
