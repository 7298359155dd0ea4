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

// Package schema validates action-argument dictionaries against the
// OpenAPI-like subset of function declarations returned by the command
// server's get_commands request.
package schema

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Declaration is one function_declaration's parameters object, or a
// nested property/items declaration within one.
type Declaration struct {
	Type       string                  `mapstructure:"type"`
	Enum       []any                   `mapstructure:"enum"`
	Nullable   bool                    `mapstructure:"nullable"`
	Properties map[string]*Declaration `mapstructure:"properties"`
	Required   []string                `mapstructure:"required"`
	Items      *Declaration            `mapstructure:"items"`
}

// Command is one entry of the command schema: a name and its
// top-level function declaration (parameters must be type "object").
type Command struct {
	Name       string       `mapstructure:"name"`
	Parameters *Declaration `mapstructure:"parameters"`
}

// Schema is the decoded get_commands response: name -> declaration.
type Schema map[string]*Command

// Decode builds a Schema from the raw JSON-decoded map returned by the
// command server.
func Decode(raw map[string]any) (Schema, error) {
	out := make(Schema, len(raw))
	for name, v := range raw {
		cmd := &Command{Name: name}
		params, _ := v.(map[string]any)
		if params == nil {
			return nil, fmt.Errorf("command %q has no parameters object", name)
		}
		decl, err := decodeDeclaration(params)
		if err != nil {
			return nil, fmt.Errorf("command %q: %w", name, err)
		}
		cmd.Parameters = decl
		out[name] = cmd
	}
	return out, nil
}

func decodeDeclaration(raw map[string]any) (*Declaration, error) {
	var d Declaration
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &d,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, err
	}
	// mapstructure doesn't recurse into map[string]any-typed Properties
	// values that are themselves maps without help; decode them by hand.
	if props, ok := raw["properties"].(map[string]any); ok {
		d.Properties = make(map[string]*Declaration, len(props))
		for name, pv := range props {
			pm, _ := pv.(map[string]any)
			if pm == nil {
				continue
			}
			sub, err := decodeDeclaration(pm)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", name, err)
			}
			d.Properties[name] = sub
		}
	}
	if items, ok := raw["items"].(map[string]any); ok {
		sub, err := decodeDeclaration(items)
		if err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		d.Items = sub
	}
	return &d, nil
}

// ArgResult records whether an argument name was present and, if
// present, whether its value validated against the schema. Unknown is
// set for a name with no matching property at all, distinct from a
// known property that merely failed validation: validate.cpp's
// validateargs throws for this case unconditionally, so callers must
// treat Unknown as a hard failure regardless of Valid.
type ArgResult struct {
	Exists  bool
	Valid   bool
	Unknown bool
}

// ValidateArguments validates args against decl.Properties, following
// spec §4.5: present arguments validate recursively; absent arguments
// are valid iff not required; argument names with no matching property
// are reported as Unknown.
func ValidateArguments(args map[string]any, decl *Declaration) (map[string]ArgResult, error) {
	if decl == nil || decl.Type != "object" {
		return nil, fmt.Errorf("declaration is not of type object")
	}
	required := make(map[string]bool, len(decl.Required))
	for _, r := range decl.Required {
		required[r] = true
	}

	results := make(map[string]ArgResult)
	for name, propDecl := range decl.Properties {
		value, present := args[name]
		if !present {
			results[name] = ArgResult{Exists: false, Valid: !required[name]}
			continue
		}
		results[name] = ArgResult{Exists: true, Valid: ValidateValue(value, propDecl)}
	}
	for name := range args {
		if _, known := decl.Properties[name]; known {
			continue
		}
		results[name] = ArgResult{Exists: true, Valid: false, Unknown: true}
	}
	return results, nil
}

// ValidateValue recursively validates value against decl, in the order
// nullable, enum, then type-specific rules, matching validate.cpp.
func ValidateValue(value any, decl *Declaration) bool {
	if decl == nil {
		return false
	}
	if value == nil {
		return decl.Nullable
	}
	if len(decl.Enum) > 0 {
		inEnum := false
		for _, e := range decl.Enum {
			if valuesEqual(value, e) {
				inEnum = true
				break
			}
		}
		if !inEnum {
			return false
		}
	}
	switch decl.Type {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "integer":
		return isIntegral(value)
	case "number":
		return isNumeric(value)
	case "array":
		arr, ok := value.([]any)
		if !ok {
			return false
		}
		if decl.Items == nil {
			return true
		}
		for _, el := range arr {
			if !ValidateValue(el, decl.Items) {
				return false
			}
		}
		return true
	case "object":
		obj, ok := value.(map[string]any)
		if !ok {
			return false
		}
		for _, req := range decl.Required {
			if _, present := obj[req]; !present {
				return false
			}
		}
		for name, sub := range decl.Properties {
			v, present := obj[name]
			if !present {
				continue
			}
			if !ValidateValue(v, sub) {
				return false
			}
		}
		// Unknown keys on sub-objects are always allowed.
		return true
	default:
		// An empty or unrecognized type facet is treated as valid.
		return true
	}
}

func isIntegral(v any) bool {
	switch n := v.(type) {
	case int, int32, int64:
		return true
	case float64:
		return n == float64(int64(n))
	default:
		return false
	}
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	default:
		return false
	}
}

func valuesEqual(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as == bs
	}
	ab, aok := a.(bool)
	bb, bok := b.(bool)
	if aok && bok {
		return ab == bb
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// StripPreBound removes pre-bound argument names from both Properties
// and Required of a top-level clone of decl. The agent loop does not
// call it: the tool declarations it sends carry no argument schema.
// Per spec §9 Open Question (a), this is a top-level-only operation.
func StripPreBound(decl *Declaration, preBound []string) *Declaration {
	if decl == nil {
		return nil
	}
	clone := *decl
	if len(decl.Properties) > 0 {
		clone.Properties = make(map[string]*Declaration, len(decl.Properties))
		for k, v := range decl.Properties {
			clone.Properties[k] = v
		}
	}
	bound := make(map[string]bool, len(preBound))
	for _, name := range preBound {
		bound[name] = true
		delete(clone.Properties, name)
	}
	if len(decl.Required) > 0 {
		req := make([]string, 0, len(decl.Required))
		for _, r := range decl.Required {
			if !bound[r] {
				req = append(req, r)
			}
		}
		clone.Required = req
	}
	return &clone
}
