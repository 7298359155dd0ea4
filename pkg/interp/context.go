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
)

// ContextTurn is one role-tagged turn of a conversation context.
type ContextTurn struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Part is one piece of a turn: either text or a function call, per
// spec §3's context element shape.
type Part struct {
	Text         string         `json:"text,omitempty"`
	FunctionCall map[string]any `json:"functionCall,omitempty"`
}

func userText(text string) any {
	return ContextTurn{Role: "user", Parts: []Part{{Text: text}}}
}

func modelText(text string) any {
	return ContextTurn{Role: "model", Parts: []Part{{Text: text}}}
}

// defaultContext seeds a fresh module context with one instructional
// user turn and one canned model acknowledgement, matching
// gendefaultcontext in original_source/src/api.cpp.
func defaultContext(module string) []any {
	preamble := fmt.Sprintf(
		"You are currently residing in a module named `%s`. Follow the instructions given to you for this module.",
		module,
	)
	return []any{userText(preamble), modelText("Understood.")}
}

func anonCtxPath(dir string, depth int) string {
	return filepath.Join(dir, fmt.Sprintf("ctx%d.json", depth))
}

func namedCtxPath(dir, name, module string) string {
	return filepath.Join(dir, fmt.Sprintf("ctx%s-%s.json", name, module))
}

// normalizeContext converts a context slice that may contain either
// interp.ContextTurn values (from readContext) or generic
// map[string]any values (from a JSON-decoded command-server response)
// into a uniform []any of ContextTurn, so later inspection (execGetReply,
// lastAnswerWasYes, popFrame) can rely on a single concrete type.
func normalizeContext(raw []any) ([]any, error) {
	out := make([]any, len(raw))
	for i, v := range raw {
		if turn, ok := v.(ContextTurn); ok {
			out[i] = turn
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("normalize context turn %d: %w", i, err)
		}
		var turn ContextTurn
		if err := json.Unmarshal(data, &turn); err != nil {
			return nil, fmt.Errorf("normalize context turn %d: %w", i, err)
		}
		out[i] = turn
	}
	return out, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func readContext(path string) ([]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var turns []ContextTurn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("decode context %s: %w", path, err)
	}
	ctx := make([]any, len(turns))
	for i, t := range turns {
		ctx[i] = t
	}
	return ctx, nil
}
