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

// Package turn implements the static turn-discipline analyser: a
// fixed-point walk over each dialogue's control-flow graph proving the
// four turn-discipline invariants of spec §4.4 before the dialogue is
// allowed to run.
package turn

import (
	"fmt"

	"github.com/kadirpekel/hll/pkg/ast"
)

// State is the turn state carried between instructions during a scan.
type State int

const (
	// NoneYet means no turn-producing instruction has been seen since
	// the current scan started.
	NoneYet State = -1
	// LastAgent means the most recent turn-producing instruction was
	// agent-turn.
	LastAgent State = 0
	// LastUser means the most recent turn-producing instruction was
	// user-turn.
	LastUser State = 1
)

// Error reports a turn-discipline violation, naming the agent and the
// label of the scan's entry point, matching analysis.cpp's
// "Static analysis on <agent> failed\n<what> at label '<label>'".
type Error struct {
	Agent string
	Label string
	What  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("Static analysis on %s failed\n%s at label '%s'", e.Agent, e.What, e.Label)
}

type key struct {
	state State
	label int
}

// Analyse proves the four invariants over every reachable instruction
// sequence starting from each public label in dlg. agentName is used
// only for error reporting.
func Analyse(agentName string, dlg *ast.Dialogue) error {
	for labelID := range dlg.Entrypoints {
		a := &analyser{agentName: agentName, dlg: dlg, memo: make(map[key]bool), entryLabel: labelID}
		if err := a.walk(NoneYet, labelID); err != nil {
			return err
		}
	}
	return nil
}

type analyser struct {
	agentName  string
	dlg        *ast.Dialogue
	memo       map[key]bool
	entryLabel int
}

func (a *analyser) fail(format string, args ...any) error {
	return &Error{
		Agent: a.agentName,
		Label: a.dlg.LabelNames.NameOf(a.entryLabel),
		What:  fmt.Sprintf(format, args...),
	}
}

// walk scans forward from the instruction immediately after label,
// carrying state, until it hits a branching/joining instruction or the
// end of the instruction vector.
func (a *analyser) walk(state State, label int) error {
	k := key{state: state, label: label}
	if a.memo[k] {
		return nil
	}
	a.memo[k] = true

	idx, ok := a.dlg.JumpTable[label]
	if !ok {
		return nil
	}

	sawTurnSinceUser := false
	for idx < len(a.dlg.Instructions) {
		instr := a.dlg.Instructions[idx]

		switch instr.Kind {
		case ast.InstrLabel:
			return a.walk(state, instr.LabelID)
		case ast.InstrGoto:
			return a.walk(state, instr.LabelID)
		case ast.InstrUserBranch:
			if err := a.checkTurn(&state, turnAgent, &sawTurnSinceUser); err != nil {
				return err
			}
			if err := a.walk(state, instr.LabelYes); err != nil {
				return err
			}
			return a.walk(state, instr.LabelNo)
		default:
			tc := classify(instr)
			if tc == turnAwaitBranch {
				if err := a.checkTurn(&state, turnAgent, &sawTurnSinceUser); err != nil {
					return err
				}
				if err := a.walk(state, instr.LabelYes); err != nil {
					return err
				}
				return a.walk(state, instr.LabelNo)
			}
			if instr.Kind == ast.InstrGetReply {
				if !sawTurnSinceUser {
					return a.fail("getreply with no intervening agent turn")
				}
			}
			if tc != turnNone {
				if err := a.checkTurn(&state, tc, &sawTurnSinceUser); err != nil {
					return err
				}
			}
		}
		idx++
	}

	if state != LastAgent {
		return a.fail("Control flow ends on user turn")
	}
	return nil
}

type turnClass int

const (
	turnNone turnClass = iota
	turnUser
	turnAgent
	turnAwaitBranch
)

func classify(instr ast.Instruction) turnClass {
	switch instr.Kind {
	case ast.InstrTextBlock:
		if instr.TextKind == ast.TextAutoprompt {
			return turnUser
		}
		return turnNone
	case ast.InstrPrompt:
		return turnUser
	case ast.InstrAwaitReply, ast.InstrAwaitAction, ast.InstrUserAction:
		return turnAgent
	case ast.InstrAwaitBranch:
		return turnAwaitBranch
	default:
		return turnNone
	}
}

// checkTurn applies one turn-producing instruction's class to state,
// raising invariant 1 (no two adjacent agent turns) or invariant 2
// (first turn after a public label must be user-turn) as appropriate,
// and updates sawTurnSinceUser for invariant 4.
func (a *analyser) checkTurn(state *State, tc turnClass, sawTurnSinceUser *bool) error {
	switch tc {
	case turnUser:
		*state = LastUser
		*sawTurnSinceUser = false
	case turnAgent:
		if *state == NoneYet {
			return a.fail("First turn after public label must be a user turn")
		}
		if *state == LastAgent {
			return a.fail("Two adjacent agent turns")
		}
		*state = LastAgent
		*sawTurnSinceUser = true
	}
	return nil
}
