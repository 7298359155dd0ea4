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

package interp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kadirpekel/hll/pkg/cmdserver"
	"github.com/kadirpekel/hll/pkg/depgraph"
)

func instancePath(dir string) string { return filepath.Join(dir, "instance.json") }
func graphPath(dir string) string    { return filepath.Join(dir, "dependency_graph.json") }

// save performs the guarded, ordered persistence of spec §4.9: mask
// SIGINT, prune stale per-depth context files if frames just popped,
// push any deferred new frames, write the pending named context (if
// any), write instance.json, write dependency_graph.json, write the
// current ctx at the pre-push stack depth, unmask SIGINT.
func (in *Interp) save() error {
	in.Guard.Mask()
	defer in.Guard.Unmask()

	oldDepth := len(in.stack)

	if in.justPopped {
		if err := in.pruneStaleContexts(len(in.stack)); err != nil {
			return err
		}
		in.justPopped = false
	}

	if len(in.pendingPush) > 0 {
		in.stack = append(in.stack, in.pendingPush...)
		in.pendingPush = nil
	}

	if in.pendingStore != nil {
		path := namedCtxPath(in.Dir, in.pendingStore.Name, in.pendingStore.Module)
		if err := writeJSON(path, in.ctx); err != nil {
			return fmt.Errorf("write named context: %w", err)
		}
		in.pendingStore = nil
	}

	if err := os.MkdirAll(in.Dir, 0755); err != nil {
		return fmt.Errorf("ensure project dir: %w", err)
	}
	if err := writeJSON(instancePath(in.Dir), Instance{Stack: in.stack}); err != nil {
		return fmt.Errorf("write instance.json: %w", err)
	}
	if in.DGraph != nil {
		if err := writeJSON(graphPath(in.Dir), in.DGraph); err != nil {
			return fmt.Errorf("write dependency_graph.json: %w", err)
		}
	}
	if err := writeJSON(anonCtxPath(in.Dir, oldDepth), in.ctx); err != nil {
		return fmt.Errorf("write anonymous context: %w", err)
	}

	if len(in.stack) == 0 {
		if err := os.Remove(instancePath(in.Dir)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove instance.json on clean exit: %w", err)
		}
	}
	return nil
}

// pruneStaleContexts removes ctx<N>.json files whose depth N exceeds
// the current stack size, called only immediately after a real pop.
func (in *Interp) pruneStaleContexts(currentDepth int) error {
	entries, err := os.ReadDir(in.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		var depth int
		if n, _ := fmt.Sscanf(e.Name(), "ctx%d.json", &depth); n != 1 {
			continue
		}
		if depth > currentDepth {
			_ = os.Remove(filepath.Join(in.Dir, e.Name()))
		}
	}
	return nil
}

func loadInstance(dir string) (*Instance, error) {
	data, err := os.ReadFile(instancePath(dir))
	if err != nil {
		return nil, fmt.Errorf("read instance.json: %w", err)
	}
	var inst Instance
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("decode instance.json: %w", err)
	}
	return &inst, nil
}

func loadGraph(dir string) (*depgraph.Graph, error) {
	data, err := os.ReadFile(graphPath(dir))
	if err != nil {
		return nil, err
	}
	return depgraph.Decode(data)
}

func (in *Interp) dgraphValue() any {
	if in.DGraph == nil {
		return nil
	}
	return in.DGraph
}

func parseGraphValue(v any) (*depgraph.Graph, error) {
	return depgraph.DecodeValue(v)
}

func buildUserActionPayload(name string, args map[string]any, module string, dgraph any) cmdserver.HandleAgentRequest {
	return cmdserver.HandleAgentRequest{
		RawResponse:     map[string]any{"name": name, "args": args},
		AllowedActions:  []string{name},
		DefaultArgs:     args,
		Module:          module,
		DependencyGraph: dgraph,
		ResponseType:    "user_action",
	}
}
