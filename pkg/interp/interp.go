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

// Package interp executes a parsed Program: a stack of call frames
// with three transfer modes, a named context store, and atomic,
// crash-safe persistence of the whole machine after every
// externally-observable step. Modeled on pkg/checkpoint's
// Manager/State/Storage split, adapted to the frame-stack/turn model
// instead of a single-agent execution snapshot.
package interp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/kadirpekel/hll/pkg/agentloop"
	"github.com/kadirpekel/hll/pkg/ast"
	"github.com/kadirpekel/hll/pkg/cmdserver"
	"github.com/kadirpekel/hll/pkg/depgraph"
)

// Interp is one running (or resumable) instance of a program.
type Interp struct {
	Program           *ast.Program
	Dir               string // <project_root>/.hll
	DGraph            *depgraph.Graph
	Loop              *agentloop.Loop
	CmdServer         *cmdserver.Client
	Logger            *slog.Logger
	Guard             *InterruptGuard
	StrictContextLoad bool
	Stdin             io.Reader
	Stdout            io.Writer

	stack        []Frame
	ctx          []any
	pendingStore *storePending
	pendingPush  []Frame
	justPopped   bool
}

type storePending struct {
	Name   string
	Module string
}

// New starts a fresh Interp at the given agent/label entrypoint.
func New(program *ast.Program, dir string, agentID, labelID int, module string) (*Interp, error) {
	dlg, ok := program.Dialogues[agentID]
	if !ok {
		return nil, fmt.Errorf("unknown agent id %d", agentID)
	}
	idx, ok := dlg.JumpTable[labelID]
	if !ok {
		return nil, fmt.Errorf("unknown label id %d", labelID)
	}
	if !dlg.Entrypoints[labelID] {
		return nil, fmt.Errorf("label '%s' is not a public entrypoint", dlg.LabelNames.NameOf(labelID))
	}
	in := &Interp{
		Program: program,
		Dir:     dir,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Logger:  slog.Default(),
		stack:   []Frame{{Agent: agentID, Module: module, Instruction: idx, Called: false}},
		ctx:     defaultContext(module),
	}
	in.Guard = NewInterruptGuard(func() {
		fmt.Fprintln(in.Stdout)
		os.Exit(130)
	})
	return in, nil
}

// Resume reconstructs an Interp from a previously saved instance.json
// plus the matching ctx<N>.json for the current stack depth.
func Resume(program *ast.Program, dir string) (*Interp, error) {
	inst, err := loadInstance(dir)
	if err != nil {
		return nil, err
	}
	if len(inst.Stack) == 0 {
		return nil, fmt.Errorf("resume: instance has no frames, nothing active")
	}
	ctx, err := readContext(anonCtxPath(dir, len(inst.Stack)))
	if err != nil {
		top := inst.Stack[len(inst.Stack)-1]
		ctx = defaultContext(top.Module)
	}
	graph, err := loadGraph(dir)
	if err != nil {
		graph = &depgraph.Graph{Modules: map[string]depgraph.ModuleInfo{}}
	}
	in := &Interp{
		Program: program,
		Dir:     dir,
		DGraph:  graph,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Logger:  slog.Default(),
		stack:   inst.Stack,
		ctx:     ctx,
	}
	in.Guard = NewInterruptGuard(func() {
		fmt.Fprintln(in.Stdout)
		os.Exit(130)
	})
	return in, nil
}

// Active reports whether a project has a live instance on disk.
func Active(dir string) bool {
	_, err := os.Stat(instancePath(dir))
	return err == nil
}

// Run drives Step to completion.
func (in *Interp) Run(ctx context.Context) error {
	for {
		done, err := in.Step(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// Step executes exactly one instruction, or pops a finished frame if
// the top frame's instruction pointer has passed the end of its
// dialogue. It returns done=true once the stack empties.
func (in *Interp) Step(goctx context.Context) (bool, error) {
	if len(in.stack) == 0 {
		return true, nil
	}
	idx := len(in.stack) - 1
	frame := in.stack[idx]
	dlg := in.Program.Dialogues[frame.Agent]

	if frame.Instruction >= len(dlg.Instructions) {
		in.popFrame()
		if err := in.save(); err != nil {
			return false, err
		}
		return len(in.stack) == 0, nil
	}

	instr := dlg.Instructions[frame.Instruction]
	observable, jumped, err := in.execute(goctx, idx, dlg, instr)
	if err != nil {
		return false, err
	}
	if !jumped {
		in.stack[idx].Instruction++
	}
	if observable {
		if err := in.save(); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (in *Interp) execute(goctx context.Context, idx int, dlg *ast.Dialogue, instr ast.Instruction) (observable, jumped bool, err error) {
	switch instr.Kind {
	case ast.InstrLabel:
		return false, false, nil

	case ast.InstrGoto:
		in.stack[idx].Instruction = dlg.JumpTable[instr.LabelID]
		return false, true, nil

	case ast.InstrLoadCtx:
		name := in.Program.ContextNames.NameOf(instr.ContextID)
		module := in.stack[idx].Module
		c, rerr := readContext(namedCtxPath(in.Dir, name, module))
		if rerr != nil {
			if in.StrictContextLoad {
				return false, false, fmt.Errorf("loadctx: missing context '%s' in module '%s'", name, module)
			}
			c = defaultContext(module)
		}
		in.ctx = c
		return true, false, nil

	case ast.InstrStoreCtx:
		name := in.Program.ContextNames.NameOf(instr.ContextID)
		in.pendingStore = &storePending{Name: name, Module: in.stack[idx].Module}
		return true, false, nil

	case ast.InstrTextBlock:
		if instr.TextKind == ast.TextInfo {
			fmt.Fprintln(in.Stdout, instr.Text)
			return false, false, nil
		}
		in.ctx = append(in.ctx, userText(instr.Text))
		return true, false, nil

	case ast.InstrCtrlFlow:
		return in.execCtrlFlow(idx, instr)

	case ast.InstrAwaitReply:
		return in.execAwait(goctx, agentloop.ModeReply, nil, nil)

	case ast.InstrAwaitAction:
		return in.execAwait(goctx, agentloop.ModeAction, instr.Actions, nil)

	case ast.InstrAwaitBranch:
		return in.execAwaitBranch(goctx, idx, instr)

	case ast.InstrUserAction:
		return in.execUserAction(goctx, instr)

	case ast.InstrUserBranch:
		return in.execUserBranch(idx, instr)

	case ast.InstrGetReply:
		in.execGetReply()
		return false, false, nil

	case ast.InstrPause:
		fmt.Fprint(in.Stdout, "Press Enter to continue...")
		bufio.NewReader(in.Stdin).ReadString('\n')
		return false, false, nil

	case ast.InstrPrompt:
		fmt.Fprint(in.Stdout, ">>> ")
		line, _ := bufio.NewReader(in.Stdin).ReadString('\n')
		in.ctx = append(in.ctx, userText(strings.TrimRight(line, "\n")))
		return true, false, nil

	default:
		return false, false, fmt.Errorf("unhandled instruction kind %v", instr.Kind)
	}
}

func (in *Interp) execCtrlFlow(idx int, instr ast.Instruction) (bool, bool, error) {
	caller := in.stack[idx]
	targetDlg, ok := in.Program.Dialogues[instr.TargetAgent]
	if !ok {
		return false, false, fmt.Errorf("ctrlflow: unknown target agent id %d", instr.TargetAgent)
	}
	entryInstr, ok := targetDlg.JumpTable[instr.TargetLabel]
	if !ok {
		return false, false, fmt.Errorf("ctrlflow: unknown target label id %d", instr.TargetLabel)
	}

	switch instr.CtrlKind {
	case ast.CtrlCall:
		in.pendingPush = append(in.pendingPush, Frame{
			Agent: instr.TargetAgent, Module: caller.Module, Instruction: entryInstr, Called: true,
		})
	case ast.CtrlInvoke:
		in.pendingPush = append(in.pendingPush, Frame{
			Agent: instr.TargetAgent, Module: caller.Module, Instruction: entryInstr, Called: false,
		})
		in.ctx = defaultContext(caller.Module)
	case ast.CtrlRecurse:
		if in.DGraph == nil {
			return false, false, fmt.Errorf("recurse: no dependency graph loaded")
		}
		children := depgraph.Reversed(in.DGraph.Children(caller.Module))
		if len(children) == 0 {
			return false, false, fmt.Errorf("recurse: module '%s' has no children", caller.Module)
		}
		for _, child := range children {
			in.pendingPush = append(in.pendingPush, Frame{
				Agent: instr.TargetAgent, Module: child, Instruction: entryInstr, Called: false,
			})
		}
		// The topmost (first-executed) child is the last one pushed.
		firstChild := children[len(children)-1]
		in.ctx = defaultContext(firstChild)
	}
	return true, false, nil
}

// popFrame pops the top frame. If it was pushed via call (Called=true
// on the frame itself), the caller inherits whatever context the
// callee ended with. Otherwise (invoke/recurse), the caller's own
// context is restored from disk if present, or regenerated fresh.
func (in *Interp) popFrame() {
	popped := in.stack[len(in.stack)-1]
	in.stack = in.stack[:len(in.stack)-1]
	in.justPopped = true

	if len(in.stack) == 0 {
		return
	}
	if popped.Called {
		return // inherit: in.ctx is already the callee's ending context
	}
	newTop := in.stack[len(in.stack)-1]
	if c, err := readContext(anonCtxPath(in.Dir, len(in.stack))); err == nil {
		in.ctx = c
		return
	}
	in.ctx = defaultContext(newTop.Module)
}

func (in *Interp) execGetReply() {
	for i := len(in.ctx) - 1; i >= 0; i-- {
		turn, ok := in.ctx[i].(ContextTurn)
		if !ok {
			continue
		}
		if turn.Role != "model" {
			continue
		}
		for _, part := range turn.Parts {
			if part.Text != "" {
				fmt.Fprintln(in.Stdout, part.Text)
				return
			}
		}
		fmt.Fprintf(in.Stdout, "%+v\n", turn.Parts)
		return
	}
	fmt.Fprintln(in.Stdout, "(no model reply found in context)")
}

func (in *Interp) execUserBranch(idx int, instr ast.Instruction) (bool, bool, error) {
	reader := bufio.NewReader(in.Stdin)
	yes := true
loop:
	for {
		fmt.Fprint(in.Stdout, "(Y/n) ")
		line, err := reader.ReadString('\n')
		answer := strings.TrimSpace(line)
		switch {
		case answer == "" || strings.EqualFold(answer, "y"):
			yes = true
			break loop
		case strings.EqualFold(answer, "n"):
			yes = false
			break loop
		default:
			if err != nil {
				// stdin exhausted without a valid answer; default to yes
				// rather than loop forever.
				break loop
			}
		}
	}
	target := instr.LabelNo
	if yes {
		target = instr.LabelYes
	}
	dlg := in.Program.Dialogues[in.stack[idx].Agent]
	in.stack[idx].Instruction = dlg.JumpTable[target]
	return false, true, nil
}
