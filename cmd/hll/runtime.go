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
	"path/filepath"
	"strings"

	"github.com/kadirpekel/hll/pkg/agentloop"
	"github.com/kadirpekel/hll/pkg/ast"
	"github.com/kadirpekel/hll/pkg/cmdserver"
	"github.com/kadirpekel/hll/pkg/config"
	"github.com/kadirpekel/hll/pkg/httpclient"
	"github.com/kadirpekel/hll/pkg/parser"
	"github.com/kadirpekel/hll/pkg/schema"
	"github.com/kadirpekel/hll/pkg/turn"
	"github.com/kadirpekel/hll/pkg/utils"
)

// runtime bundles the pieces a run/resume/dry-run needs: the parsed
// program, the project's on-disk state directory, its module name, and
// (unless dry-running) a live command-server client and agent loop.
type runtime struct {
	cfg     *config.Config
	dir     string
	module  string
	program *ast.Program
	cs      *cmdserver.Client
	loop    *agentloop.Loop
}

// loadRuntime reads the project's settings, parses and turn-analyses
// every module-scoped source file under its .hll directory, and (when
// dryRun is false) builds the command-server client and agent loop.
func loadRuntime(cli *CLI, pname string, dryRun bool) (*runtime, error) {
	root, err := resolveProject(pname)
	if err != nil {
		return nil, err
	}
	dir, err := utils.EnsureProjectDir(root)
	if err != nil {
		return nil, err
	}
	module := filepath.Base(root)

	configPath := cli.Config
	if configPath == "" {
		configPath = filepath.Join(root, "hll.yaml")
	}
	cfg, err := config.Load(config.LoaderOptions{Path: configPath, DataDir: dir})
	if err != nil {
		return nil, fmt.Errorf("load project config: %w", err)
	}

	rt := &runtime{cfg: cfg, dir: dir, module: module}

	var cs *cmdserver.Client
	var cmds schema.Schema
	if !dryRun {
		cs = cmdserver.New(cmdserver.Config{
			SocketPath: cfg.Server.SocketPath,
			LockPath:   cfg.Server.LockPath,
			LogPath:    cfg.Server.LogPath,
			SpawnCmd:   cfg.Server.SpawnCmd,
			SpawnArgs:  cfg.Server.SpawnArgs,
		})
		raw, err := cs.GetCommands()
		if err != nil {
			return nil, fmt.Errorf("fetch command schema: %w", err)
		}
		cmds, err = schema.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode command schema: %w", err)
		}
		rt.cs = cs
	}

	files, err := moduleSourceFiles(dir, module)
	if err != nil {
		return nil, err
	}
	program, err := parser.ParseProgram(files, cmds)
	if err != nil {
		return nil, err
	}
	for agentID, dlg := range program.Dialogues {
		agentName := program.AgentNames.NameOf(agentID)
		if err := turn.Analyse(agentName, dlg); err != nil {
			return nil, err
		}
	}
	rt.program = program

	if !dryRun {
		httpOpts := []httpclient.Option{}
		if hp := headerParserFor(cfg.Provider.Type); hp != nil {
			httpOpts = append(httpOpts, httpclient.WithHeaderParser(hp))
		}
		loop := agentloop.New(httpclient.New(httpOpts...), cfg.Provider.Endpoint, cfg.Provider.APIKey, rt.cs, nil)
		loop.Model = cfg.Provider.Model
		rt.loop = loop
	}

	return rt, nil
}

// moduleSourceFiles reads every "<file>.hll.<module>" copy under dir,
// returning one parser.SourceFile per file with the original stem as
// its agent name.
func moduleSourceFiles(dir, module string) ([]parser.SourceFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read project state directory: %w", err)
	}
	suffix := ".hll." + module
	var files []parser.SourceFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		agentName := strings.TrimSuffix(e.Name(), suffix)
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", e.Name(), err)
		}
		files = append(files, parser.SourceFile{AgentName: agentName, File: e.Name(), Source: string(data)})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hll sources found for module %q in %q", module, dir)
	}
	return files, nil
}

// headerParserFor returns the rate-limit header parser matching a
// provider type, or nil (no rate-limit header parsing) for any other.
func headerParserFor(providerType string) httpclient.HeaderParser {
	switch providerType {
	case "anthropic":
		return httpclient.ParseAnthropicHeaders
	case "openai":
		return httpclient.ParseOpenAIHeaders
	case "gemini":
		return httpclient.ParseGeminiHeaders
	default:
		return nil
	}
}
