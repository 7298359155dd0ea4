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

// Package depgraph wraps the dependency graph the command server owns.
// The interpreter treats it as an opaque JSON value with a known shape;
// this package exposes only the accessors §4.8's recurse semantics and
// §3's module bookkeeping need.
package depgraph

import (
	"encoding/json"
	"fmt"
)

// Graph is the decoded dependency_graph.json document: per-module
// children, dependencies, and file lists, plus the set of all modules.
type Graph struct {
	Modules map[string]ModuleInfo `json:"modules"`
}

// ModuleInfo is one module's entry in the graph.
type ModuleInfo struct {
	Children     []string `json:"children"`
	Dependencies []string `json:"dependencies"`
	Files        []string `json:"files"`
}

// Decode parses raw JSON bytes into a Graph.
func Decode(raw []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decode dependency graph: %w", err)
	}
	if g.Modules == nil {
		g.Modules = make(map[string]ModuleInfo)
	}
	return &g, nil
}

// DecodeValue parses a generic any (as returned inline in a command
// server response payload) into a Graph.
func DecodeValue(v any) (*Graph, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal dependency graph value: %w", err)
	}
	return Decode(raw)
}

// Encode serialises g back to JSON, used when writing
// dependency_graph.json during a save.
func (g *Graph) Encode() ([]byte, error) {
	return json.MarshalIndent(g, "", "  ")
}

// ModuleExists reports whether module is a known module.
func (g *Graph) ModuleExists(module string) bool {
	_, ok := g.Modules[module]
	return ok
}

// Children returns module's children in declared order. recurse fans
// these out onto the frame stack in reverse (see Reversed).
func (g *Graph) Children(module string) []string {
	return g.Modules[module].Children
}

// IsChild reports whether candidate is a direct child of module.
func (g *Graph) IsChild(module, candidate string) bool {
	for _, c := range g.Modules[module].Children {
		if c == candidate {
			return true
		}
	}
	return false
}

// IsDependency reports whether candidate is a direct dependency of
// module.
func (g *Graph) IsDependency(module, candidate string) bool {
	for _, d := range g.Modules[module].Dependencies {
		if d == candidate {
			return true
		}
	}
	return false
}

// FileExists reports whether file is listed under module.
func (g *Graph) FileExists(module, file string) bool {
	for _, f := range g.Modules[module].Files {
		if f == file {
			return true
		}
	}
	return false
}

// Reversed returns names in reverse order, used by the interpreter's
// recurse instruction so pushing children in this order onto a LIFO
// stack executes them in declared order (first child first).
func Reversed(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[len(names)-1-i] = n
	}
	return out
}
