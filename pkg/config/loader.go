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

package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	kfile "github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kadirpekel/hll/pkg/config/provider"
)

// LoaderOptions configures NewLoader.
type LoaderOptions struct {
	Path     string
	DataDir  string
	Watch    bool
	OnChange func(*Config) error
}

// Loader loads Config from a YAML file, with environment variable
// interpolation (${VAR}, ${VAR:-default}) and an optional fsnotify
// watch for live reload.
type Loader struct {
	koanf    *koanf.Koanf
	parser   *yaml.YAML
	opts     LoaderOptions
	fp       *provider.FileProvider
	stopChan chan struct{}
}

// NewLoader returns a Loader for opts.Path.
func NewLoader(opts LoaderOptions) (*Loader, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("config path is required")
	}
	fp, err := provider.NewFileProvider(opts.Path)
	if err != nil {
		return nil, err
	}
	return &Loader{
		koanf:    koanf.New("."),
		parser:   yaml.Parser(),
		opts:     opts,
		fp:       fp,
		stopChan: make(chan struct{}),
	}, nil
}

// Load reads and parses the config file, expands environment
// variables, applies defaults, and validates the result.
func (l *Loader) Load() (*Config, error) {
	kfp := kfile.Provider(l.opts.Path)
	if err := l.koanf.Load(kfp, l.parser); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", l.opts.Path, err)
	}
	cfg, err := l.process()
	if err != nil {
		return nil, err
	}
	if l.opts.Watch {
		go l.watch()
	}
	return cfg, nil
}

func (l *Loader) process() (*Config, error) {
	if err := l.expandEnvVars(); err != nil {
		return nil, fmt.Errorf("expand environment variables: %w", err)
	}
	cfg := &Config{}
	if err := l.koanf.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.SetDefaults(l.opts.DataDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) expandEnvVars() error {
	expanded := ExpandEnvVarsInData(l.koanf.Raw())
	expandedMap, ok := expanded.(map[string]interface{})
	if !ok {
		return fmt.Errorf("unexpected type after environment variable expansion")
	}
	newKoanf := koanf.New(".")
	if err := newKoanf.Load(confmap.Provider(expandedMap, "."), nil); err != nil {
		return err
	}
	l.koanf = newKoanf
	return nil
}

// watch reloads the config whenever the underlying file changes,
// invoking OnChange with the newly parsed Config.
func (l *Loader) watch() {
	ch, err := l.fp.Watch(context.Background())
	if err != nil {
		slog.Warn("config watch unavailable", "error", err)
		return
	}
	for {
		select {
		case <-l.stopChan:
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			kfp := kfile.Provider(l.opts.Path)
			if err := l.koanf.Load(kfp, l.parser); err != nil {
				slog.Warn("config reload failed", "error", err)
				continue
			}
			cfg, err := l.process()
			if err != nil {
				slog.Warn("config reload produced invalid config", "error", err)
				continue
			}
			if l.opts.OnChange != nil {
				if err := l.opts.OnChange(cfg); err != nil {
					slog.Warn("config change callback failed", "error", err)
				}
			}
		}
	}
}

// Stop ends an active watch.
func (l *Loader) Stop() {
	close(l.stopChan)
	l.fp.Close()
}

// Load is a convenience wrapper that creates a Loader and calls Load.
func Load(opts LoaderOptions) (*Config, error) {
	loader, err := NewLoader(opts)
	if err != nil {
		return nil, err
	}
	return loader.Load()
}
