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
	"context"
	"fmt"

	"github.com/kadirpekel/hll/pkg/agentloop"
	"github.com/kadirpekel/hll/pkg/ast"
)

func toActionList(actions []ast.ActionData) []agentloop.Action {
	out := make([]agentloop.Action, 0, len(actions))
	for _, a := range actions {
		args := make(map[string]any, len(a.Args))
		keys := make([]string, 0, len(a.Args))
		for _, arg := range a.Args {
			args[arg.Name] = arg.Value
			keys = append(keys, arg.Name)
		}
		out = append(out, agentloop.Action{Name: a.Name, DefaultArgs: args, PreBoundKeys: keys})
	}
	return out
}

// execAwait drives the agent-request loop in reply or action mode,
// updating in.ctx and in.DGraph from the result.
func (in *Interp) execAwait(goctx context.Context, mode agentloop.Mode, actions []ast.ActionData, syntheticAction *agentloop.Action) (bool, bool, error) {
	if in.Loop == nil {
		return false, false, fmt.Errorf("await: no agent-request loop configured")
	}
	top := in.stack[len(in.stack)-1]
	actionList := toActionList(actions)
	if syntheticAction != nil {
		actionList = append(actionList, *syntheticAction)
	}
	result, err := in.Loop.Run(goctx, agentloop.Request{
		Context:         in.ctx,
		Mode:            mode,
		Actions:         actionList,
		Module:          top.Module,
		DependencyGraph: in.dgraphValue(),
	})
	if err != nil {
		return false, false, fmt.Errorf("await: %w", err)
	}
	normalized, nerr := normalizeContext(result.Context)
	if nerr != nil {
		return false, false, fmt.Errorf("await: %w", nerr)
	}
	in.ctx = normalized
	if result.DependencyGraph != nil {
		if g, derr := parseGraphValue(result.DependencyGraph); derr == nil {
			in.DGraph = g
		}
	}
	return true, false, nil
}

// execAwaitBranch drives the loop with a synthetic answer action
// (schema: {answer: YES|NO}) and branches on its boolean result.
func (in *Interp) execAwaitBranch(goctx context.Context, idx int, instr ast.Instruction) (bool, bool, error) {
	synthetic := &agentloop.Action{Name: "answer"}
	_, _, err := in.execAwait(goctx, agentloop.Mode("branch"), nil, synthetic)
	if err != nil {
		return false, false, err
	}
	yes := lastAnswerWasYes(in.ctx)
	target := instr.LabelNo
	if yes {
		target = instr.LabelYes
	}
	dlg := in.Program.Dialogues[in.stack[idx].Agent]
	in.stack[idx].Instruction = dlg.JumpTable[target]
	return true, true, nil
}

// lastAnswerWasYes inspects the most recent model-role function call in
// ctx for an {answer: "YES"|"NO"} payload.
func lastAnswerWasYes(ctx []any) bool {
	for i := len(ctx) - 1; i >= 0; i-- {
		turn, ok := ctx[i].(ContextTurn)
		if !ok {
			continue
		}
		if turn.Role != "model" {
			continue
		}
		for _, part := range turn.Parts {
			if part.FunctionCall == nil {
				continue
			}
			args, _ := part.FunctionCall["args"].(map[string]any)
			if ans, ok := args["answer"].(string); ok {
				return ans == "YES"
			}
		}
	}
	return false
}

// execUserAction runs a locally issued action set through the command
// server directly (not asked of the agent).
func (in *Interp) execUserAction(goctx context.Context, instr ast.Instruction) (bool, bool, error) {
	if in.CmdServer == nil {
		return false, false, fmt.Errorf("useraction: no command server client configured")
	}
	top := in.stack[len(in.stack)-1]
	for _, a := range instr.Actions {
		args := make(map[string]any, len(a.Args))
		for _, arg := range a.Args {
			args[arg.Name] = arg.Value
		}
		result, err := in.CmdServer.HandleAgent(
			buildUserActionPayload(a.Name, args, top.Module, in.dgraphValue()),
		)
		if err != nil {
			return false, false, fmt.Errorf("useraction %q: %w", a.Name, err)
		}
		if result.DependencyGraph != nil {
			if g, derr := parseGraphValue(result.DependencyGraph); derr == nil {
				in.DGraph = g
			}
		}
	}
	return true, false, nil
}
