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

// Package config loads the runtime's YAML configuration: the LLM
// provider endpoint, the local command-server's socket layout, and
// logging. Modeled on koanf_loader.go's file-provider-plus-env-var-
// expansion pipeline, trimmed to the sources this project actually
// has (no consul/etcd/zookeeper: a single-operator CLI has no cluster
// to coordinate with).
package config

import "fmt"

// ProviderConfig describes how to reach the LLM provider's HTTP API.
type ProviderConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key,omitempty"`
	Model    string `yaml:"model,omitempty"`
	// Type selects the rate-limit header dialect the HTTP client parses
	// on 429/5xx responses: "anthropic", "openai", or "gemini". Unset
	// defaults to "openai"; any other value leaves headers unparsed.
	Type string `yaml:"type,omitempty"`
}

// SetDefaults fills in the provider's default model name if unset.
func (c *ProviderConfig) SetDefaults() {
	if c.Model == "" {
		c.Model = "gpt-4o"
	}
	if c.Type == "" {
		c.Type = "openai"
	}
}

// Validate checks the provider configuration.
func (c *ProviderConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("provider.endpoint is required")
	}
	return nil
}

// ServerConfig locates the local command server's UNIX socket, its
// exclusive spawn lock, its log file, and the command used to spawn it
// when absent.
type ServerConfig struct {
	SocketPath string   `yaml:"socket_path,omitempty"`
	LockPath   string   `yaml:"lock_path,omitempty"`
	LogPath    string   `yaml:"log_path,omitempty"`
	SpawnCmd   string   `yaml:"spawn_cmd,omitempty"`
	SpawnArgs  []string `yaml:"spawn_args,omitempty"`
}

// SetDefaults fills in the server's socket/lock/log paths under dataDir
// if unset.
func (c *ServerConfig) SetDefaults(dataDir string) {
	if c.SocketPath == "" {
		c.SocketPath = dataDir + "/server.sock"
	}
	if c.LockPath == "" {
		c.LockPath = dataDir + "/server.lock"
	}
	if c.LogPath == "" {
		c.LogPath = dataDir + "/server.log"
	}
}

// InterpConfig configures the interpreter's own behavior.
type InterpConfig struct {
	// StrictContextLoad makes a missing named context file on loadctx a
	// hard error instead of silently falling back to a fresh default
	// context.
	StrictContextLoad bool `yaml:"strict_context_load,omitempty"`
}

// Config is the whole of the runtime's YAML configuration.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Server   ServerConfig   `yaml:"server"`
	Interp   InterpConfig   `yaml:"interp"`
	Logger   LoggerConfig   `yaml:"logger"`
}

// SetDefaults applies defaults across every section. dataDir is the
// project's .hll state directory, used to anchor server-related
// default paths.
func (c *Config) SetDefaults(dataDir string) {
	c.Provider.SetDefaults()
	c.Server.SetDefaults(dataDir)
	c.Logger.SetDefaults()
}

// Validate checks the whole config for structural problems.
func (c *Config) Validate() error {
	if err := c.Provider.Validate(); err != nil {
		return fmt.Errorf("provider: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	return nil
}
