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

// Package parser turns a token stream into a Dialogue: a two-pass
// process of symbol discovery followed by instruction emission.
package parser

import (
	"encoding/json"
	"fmt"

	"github.com/kadirpekel/hll/pkg/ast"
	"github.com/kadirpekel/hll/pkg/lexer"
	"github.com/kadirpekel/hll/pkg/schema"
	"github.com/kadirpekel/hll/pkg/symtab"
	"github.com/kadirpekel/hll/pkg/token"
)

// Error reports a parse failure with its source line, formatted as
// "<message> (<file>:<line>)". It does not use an "at line L" or
// "on line L" suffix.
type Error struct {
	File string
	Line int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s:%d)", e.Msg, e.File, e.Line)
}

// SourceFile is one agent's source, keyed by its file stem (the agent
// name) before parsing begins.
type SourceFile struct {
	AgentName string
	File      string
	Source    string
}

// ParseProgram parses a whole set of files into a Program. It runs
// symbol discovery (pass 1: agent names, label names, entrypoints,
// context names) across every file before instruction emission
// (pass 2), so that call/invoke/recurse targets and storectx/loadctx
// references may forward-reference any agent or context in the set,
// matching spec §4.3's two-pass design applied at program scope.
func ParseProgram(files []SourceFile, cmds schema.Schema) (*ast.Program, error) {
	program := ast.NewProgram()
	parsers := make([]*parser, 0, len(files))

	for _, f := range files {
		toks, err := lexer.Lex(f.File, f.Source)
		if err != nil {
			return nil, err
		}
		agentID := program.AgentNames.Register(f.AgentName)
		if agentID == symtab.None {
			return nil, fmt.Errorf("agent %q already defined", f.AgentName)
		}
		dlg := ast.NewDialogue(agentID, f.File, f.Source)
		program.Dialogues[agentID] = dlg
		p := &parser{file: f.File, toks: toks, program: program, dlg: dlg, cmds: cmds}
		if err := p.discoverSymbols(); err != nil {
			return nil, err
		}
		parsers = append(parsers, p)
	}

	for _, p := range parsers {
		p.pos = 0
		if err := p.emitInstructions(); err != nil {
			return nil, err
		}
	}
	return program, nil
}

// ParseFile parses a single file in isolation, for tests and tools
// that don't need cross-file agent references (no call/invoke/recurse
// targets outside the file itself).
func ParseFile(file, agentName, src string, program *ast.Program, cmds schema.Schema) (*ast.Dialogue, error) {
	p, err := ParseProgram([]SourceFile{{AgentName: agentName, File: file, Source: src}}, cmds)
	if err != nil {
		return nil, err
	}
	agentID := p.AgentNames.Query(agentName)
	dlg := p.Dialogues[agentID]
	program.AgentNames = p.AgentNames
	program.ContextNames = p.ContextNames
	for id, d := range p.Dialogues {
		program.Dialogues[id] = d
	}
	return dlg, nil
}

type parser struct {
	file    string
	toks    []token.Token
	pos     int
	program *ast.Program
	dlg     *ast.Dialogue
	cmds    schema.Schema
}

func (p *parser) cur() token.Token  { return p.toks[p.pos] }
func (p *parser) advance()          { p.pos++ }
func (p *parser) atEnd() bool       { return p.cur().Kind == token.EOF }

func (p *parser) fail(format string, args ...any) error {
	return &Error{File: p.file, Line: p.cur().Line, Msg: fmt.Sprintf(format, args...)}
}

// discoverSymbols is pass 1: registers labels and context names.
func (p *parser) discoverSymbols() error {
	const (
		expectNone = iota
		expectLabel
		expectContext
	)
	expect := expectNone

	for !p.atEnd() {
		t := p.cur()
		switch t.Kind {
		case token.Label, token.StarLabel:
			expect = expectLabel
		case token.StoreCtx:
			expect = expectContext
		case token.Identifier:
			switch expect {
			case expectLabel:
				prevKind := p.toks[p.pos-1].Kind
				id := p.dlg.LabelNames.Register(t.Text)
				if id == symtab.None {
					return &Error{File: p.file, Line: t.Line, Msg: fmt.Sprintf("duplicate label '%s'", t.Text)}
				}
				if prevKind == token.StarLabel {
					p.dlg.Entrypoints[id] = true
				}
			case expectContext:
				if id := p.program.ContextNames.Query(t.Text); id == symtab.None {
					p.program.ContextNames.Register(t.Text)
				}
			}
			expect = expectNone
		default:
			expect = expectNone
		}
		p.advance()
	}
	return nil
}

// emitInstructions is pass 2: builds the instruction vector and jump
// table.
func (p *parser) emitInstructions() error {
	for !p.atEnd() {
		if err := p.emitOne(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) push(instr ast.Instruction) {
	p.dlg.Instructions = append(p.dlg.Instructions, instr)
}

func (p *parser) emitOne() error {
	t := p.cur()
	line := t.Line
	switch t.Kind {
	case token.GetReply:
		p.push(ast.Instruction{Kind: ast.InstrGetReply, Line: line})
		p.advance()
	case token.Pause:
		p.push(ast.Instruction{Kind: ast.InstrPause, Line: line})
		p.advance()
	case token.Prompt:
		p.push(ast.Instruction{Kind: ast.InstrPrompt, Line: line})
		p.advance()
	case token.Label, token.StarLabel:
		public := t.Kind == token.StarLabel
		p.advance()
		name := p.cur()
		id := p.dlg.LabelNames.Query(name.Text)
		p.push(ast.Instruction{Kind: ast.InstrLabel, Line: line, LabelID: id, Public: public})
		p.dlg.JumpTable[id] = len(p.dlg.Instructions)
		p.advance()
	case token.Goto:
		p.advance()
		name := p.cur()
		id := p.dlg.LabelNames.Query(name.Text)
		if id == symtab.None {
			return &Error{File: p.file, Line: name.Line, Msg: fmt.Sprintf("unknown label '%s'", name.Text)}
		}
		p.push(ast.Instruction{Kind: ast.InstrGoto, Line: line, LabelID: id})
		p.advance()
	case token.LoadCtx, token.StoreCtx:
		kind := ast.InstrLoadCtx
		if t.Kind == token.StoreCtx {
			kind = ast.InstrStoreCtx
		}
		p.advance()
		name := p.cur()
		id := p.program.ContextNames.Query(name.Text)
		if id == symtab.None {
			return &Error{File: p.file, Line: name.Line, Msg: fmt.Sprintf("unknown context '%s'", name.Text)}
		}
		p.push(ast.Instruction{Kind: kind, Line: line, ContextID: id})
		p.advance()
	case token.Info, token.Autoprompt:
		return p.emitTextBlock(t)
	case token.Call, token.Invoke, token.Recurse:
		return p.emitCtrlFlow(t)
	case token.Await:
		return p.emitAwait(t)
	case token.Action:
		actions, err := p.parseActionList(t.Line)
		if err != nil {
			return err
		}
		if err := p.validateActions(actions, true, t.Line); err != nil {
			return err
		}
		p.push(ast.Instruction{Kind: ast.InstrUserAction, Line: t.Line, Actions: actions})
	case token.Branch:
		p.advance()
		yes := p.cur()
		yesID := p.dlg.LabelNames.Query(yes.Text)
		if yesID == symtab.None {
			return &Error{File: p.file, Line: yes.Line, Msg: fmt.Sprintf("unknown label '%s'", yes.Text)}
		}
		p.advance() // comma
		p.advance()
		no := p.cur()
		noID := p.dlg.LabelNames.Query(no.Text)
		if noID == symtab.None {
			return &Error{File: p.file, Line: no.Line, Msg: fmt.Sprintf("unknown label '%s'", no.Text)}
		}
		p.push(ast.Instruction{Kind: ast.InstrUserBranch, Line: t.Line, LabelYes: yesID, LabelNo: noID})
		p.advance()
	default:
		return p.fail("unexpected token '%s'", t.Kind)
	}
	return nil
}

func (p *parser) emitTextBlock(head token.Token) error {
	kind := ast.TextInfo
	if head.Kind == token.Autoprompt {
		kind = ast.TextAutoprompt
	}
	p.advance()
	var text string
	for p.cur().Kind == token.TextBlockLine {
		if text != "" {
			text += "\n"
		}
		text += p.cur().Text
		p.advance()
	}
	p.push(ast.Instruction{Kind: ast.InstrTextBlock, Line: head.Line, TextKind: kind, Text: text})
	return nil
}

func (p *parser) emitCtrlFlow(head token.Token) error {
	var kind ast.CtrlFlowKind
	switch head.Kind {
	case token.Call:
		kind = ast.CtrlCall
	case token.Invoke:
		kind = ast.CtrlInvoke
	case token.Recurse:
		kind = ast.CtrlRecurse
	}
	p.advance()
	agentTok := p.cur()
	agentID := p.program.AgentNames.Query(agentTok.Text)
	if agentID == symtab.None {
		return &Error{File: p.file, Line: agentTok.Line, Msg: fmt.Sprintf("unknown agent '%s'", agentTok.Text)}
	}
	p.advance() // comma
	p.advance()
	labelTok := p.cur()

	target, ok := p.program.Dialogues[agentID]
	if !ok {
		return &Error{File: p.file, Line: labelTok.Line, Msg: fmt.Sprintf("agent '%s' not yet parsed", agentTok.Text)}
	}
	labelID := target.LabelNames.Query(labelTok.Text)
	if labelID == symtab.None || !target.Entrypoints[labelID] {
		return &Error{File: p.file, Line: labelTok.Line, Msg: fmt.Sprintf("cannot enter on private label '%s'", labelTok.Text)}
	}
	p.push(ast.Instruction{Kind: ast.InstrCtrlFlow, Line: head.Line, CtrlKind: kind, TargetAgent: agentID, TargetLabel: labelID})
	p.advance()
	return nil
}

func (p *parser) emitAwait(head token.Token) error {
	p.advance()
	sub := p.cur()
	switch sub.Kind {
	case token.Reply:
		p.push(ast.Instruction{Kind: ast.InstrAwaitReply, Line: head.Line})
		p.advance()
	case token.Branch:
		p.advance()
		yes := p.cur()
		yesID := p.dlg.LabelNames.Query(yes.Text)
		if yesID == symtab.None {
			return &Error{File: p.file, Line: yes.Line, Msg: fmt.Sprintf("unknown label '%s'", yes.Text)}
		}
		p.advance() // comma
		p.advance()
		no := p.cur()
		noID := p.dlg.LabelNames.Query(no.Text)
		if noID == symtab.None {
			return &Error{File: p.file, Line: no.Line, Msg: fmt.Sprintf("unknown label '%s'", no.Text)}
		}
		p.push(ast.Instruction{Kind: ast.InstrAwaitBranch, Line: head.Line, LabelYes: yesID, LabelNo: noID})
		p.advance()
	case token.Action:
		actions, err := p.parseActionList(head.Line)
		if err != nil {
			return err
		}
		if err := p.validateActions(actions, false, head.Line); err != nil {
			return err
		}
		if dup := firstDuplicateName(actions); dup != "" {
			return &Error{File: p.file, Line: head.Line, Msg: "Duplicate agent action"}
		}
		p.push(ast.Instruction{Kind: ast.InstrAwaitAction, Line: head.Line, Actions: actions})
	default:
		return p.fail("expected reply, action, or branch after 'await'")
	}
	return nil
}

func firstDuplicateName(actions []ast.ActionData) string {
	seen := make(map[string]bool, len(actions))
	for _, a := range actions {
		if seen[a.Name] {
			return a.Name
		}
		seen[a.Name] = true
	}
	return ""
}

// parseActionList consumes the ActionIdentifier*/ActionIdentifierWithArgs
// token run produced by the lexer for one action statement.
func (p *parser) parseActionList(line int) ([]ast.ActionData, error) {
	p.advance() // consume the leading "action" token
	var out []ast.ActionData
	for {
		t := p.cur()
		switch t.Kind {
		case token.ActionIdentifier, token.FinalActionIdentifier:
			out = append(out, ast.ActionData{Name: t.Text})
			last := t.Kind == token.FinalActionIdentifier
			p.advance()
			if last {
				return out, nil
			}
		case token.ActionIdentifierWithArgs:
			name := t.Text
			p.advance()
			var args []ast.ActionArg
			for p.cur().Kind == token.ActionArgName {
				argName := p.cur().Text
				p.advance() // name
				p.advance() // equals
				raw := p.cur()
				var value any
				if err := json.Unmarshal([]byte(raw.Text), &value); err != nil {
					return nil, &Error{File: p.file, Line: raw.Line, Msg: fmt.Sprintf("Value of argument %s at line %d is not valid JSON", argName, raw.Line)}
				}
				args = append(args, ast.ActionArg{Name: argName, Value: value})
				p.advance() // json value
				if p.cur().Kind == token.ActionArgNewline {
					p.advance()
				}
			}
			out = append(out, ast.ActionData{Name: name, Args: args})
			if p.cur().Kind == token.FinalActionIdentifier {
				// lexer only tags the bare-name case as Final; a
				// with-args action ends the list implicitly when no
				// further ActionIdentifier follows.
				return out, nil
			}
		default:
			return out, nil
		}
	}
}

func (p *parser) validateActions(actions []ast.ActionData, userAction bool, line int) error {
	if p.cmds == nil {
		return nil
	}
	for _, a := range actions {
		cmd, known := p.cmds[a.Name]
		if !known {
			return &Error{File: p.file, Line: line, Msg: fmt.Sprintf("action '%s' does not exist or did not match expected format", a.Name)}
		}
		args := make(map[string]any, len(a.Args))
		for _, arg := range a.Args {
			args[arg.Name] = arg.Value
		}
		results, err := schema.ValidateArguments(args, cmd.Parameters)
		if err != nil {
			return &Error{File: p.file, Line: line, Msg: err.Error()}
		}
		for name, res := range results {
			if res.Unknown {
				return &Error{File: p.file, Line: line, Msg: fmt.Sprintf("argument '%s' does not exist or did not match expected format", name)}
			}
			if !res.Valid {
				if userAction {
					return &Error{File: p.file, Line: line, Msg: fmt.Sprintf("argument '%s' does not exist or did not match expected format", name)}
				}
				// Agent actions permit missing required arguments
				// (the agent is expected to supply them); only a
				// present-but-invalid value is an error.
				if res.Exists {
					return &Error{File: p.file, Line: line, Msg: fmt.Sprintf("argument '%s' does not exist or did not match expected format", name)}
				}
			}
		}
	}
	return nil
}
