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

package main

import (
	"fmt"
	"os"

	"github.com/kadirpekel/hll/pkg/config"
	"github.com/kadirpekel/hll/pkg/logging"
)

const (
	logFileEnvVar   = "HLL_LOG_FILE"
	logLevelEnvVar  = "HLL_LOG_LEVEL"
	logFormatEnvVar = "HLL_LOG_FORMAT"
)

// initLoggerFromCLI resolves a LoggerConfig from CLI flags, falling
// back to environment variables and then defaults (CLI flags take
// priority over env vars), and installs the process-wide logger from
// it.
func initLoggerFromCLI(cliLevel, cliFile, cliFormat string) (func(), error) {
	cfg := &config.LoggerConfig{
		Level:  cliLevel,
		File:   cliFile,
		Format: cliFormat,
	}
	if cfg.Level == "" {
		cfg.Level = os.Getenv(logLevelEnvVar)
	}
	if cfg.File == "" {
		cfg.File = os.Getenv(logFileEnvVar)
	}
	if cfg.Format == "" {
		cfg.Format = os.Getenv(logFormatEnvVar)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid log configuration: %w", err)
	}

	return logging.InitFromConfig(cfg)
}
