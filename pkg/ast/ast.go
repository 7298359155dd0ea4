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

// Package ast defines the instruction set the parser emits and the
// interpreter steps through: a tagged sum type where each variant owns
// only its own fields, plus the Dialogue and Program containers.
package ast

import "github.com/kadirpekel/hll/pkg/symtab"

// InstrKind tags the variant an Instruction carries.
type InstrKind int

const (
	InstrLabel InstrKind = iota
	InstrGoto
	InstrLoadCtx
	InstrStoreCtx
	InstrTextBlock
	InstrCtrlFlow
	InstrAwaitReply
	InstrAwaitAction
	InstrAwaitBranch
	InstrUserAction
	InstrUserBranch
	InstrGetReply
	InstrPause
	InstrPrompt
)

// TextBlockKind distinguishes info (operator-facing) from autoprompt
// (conversation-facing) text blocks.
type TextBlockKind int

const (
	TextInfo TextBlockKind = iota
	TextAutoprompt
)

// CtrlFlowKind distinguishes the three inter-agent transfer modes.
type CtrlFlowKind int

const (
	CtrlCall CtrlFlowKind = iota
	CtrlInvoke
	CtrlRecurse
)

// ActionArg is one pre-bound "name = value" argument attached to an
// action reference in source.
type ActionArg struct {
	Name  string
	Value any // decoded JSON literal
}

// ActionData names a single action reference within an
// AwaitAction/UserAction instruction, plus its source-supplied
// pre-bound arguments.
type ActionData struct {
	Name string
	Args []ActionArg
}

// Instruction is a tagged-union instruction. Only the fields relevant
// to Kind are populated; see spec §3 for the variant list.
type Instruction struct {
	Kind InstrKind
	Line int

	// Label, Goto
	LabelID int
	Public  bool // Label only

	// LoadCtx, StoreCtx
	ContextID int

	// TextBlock
	TextKind TextBlockKind
	Text     string

	// CtrlFlow
	CtrlKind    CtrlFlowKind
	TargetAgent int
	TargetLabel int

	// AwaitBranch, UserBranch
	LabelYes int
	LabelNo  int

	// AwaitAction, UserAction
	Actions []ActionData
}

// Dialogue is the parsed representation of a single source file: one
// agent's instruction stream, its label namespace, its entrypoints,
// and the jump table mapping label ids to instruction indices.
type Dialogue struct {
	AgentID     int
	File        string
	Source      string
	Instructions []Instruction
	LabelNames   *symtab.Registry
	Entrypoints  map[int]bool
	JumpTable    map[int]int
}

// NewDialogue returns an empty Dialogue ready for instruction emission.
func NewDialogue(agentID int, file, source string) *Dialogue {
	return &Dialogue{
		AgentID:     agentID,
		File:        file,
		Source:      source,
		LabelNames:  symtab.New(),
		Entrypoints: make(map[int]bool),
		JumpTable:   make(map[int]int),
	}
}

// Program is a whole parsed set of dialogues sharing the agent and
// context namespaces.
type Program struct {
	AgentNames   *symtab.Registry
	ContextNames *symtab.Registry
	Dialogues    map[int]*Dialogue // agent id -> dialogue
}

// NewProgram returns an empty Program.
func NewProgram() *Program {
	return &Program{
		AgentNames:   symtab.New(),
		ContextNames: symtab.New(),
		Dialogues:    make(map[int]*Dialogue),
	}
}
