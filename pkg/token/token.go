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

// Package token defines the lexical token kinds of the HLL scripting
// language and a grouping of them into classes (ClassOf).
package token

// Kind identifies the lexical category of a token.
type Kind int

const (
	Illegal Kind = iota
	EOF
	Epsilon
	Newline
	Comment

	// Simple commands (no operand).
	GetReply
	Pause
	Prompt

	// Reference-identifier commands (take a following identifier).
	Label
	StarLabel
	Goto
	LoadCtx
	StoreCtx

	// Reference-text-block commands (take a following indented block).
	Info
	Autoprompt

	// Control-flow transfer commands.
	Call
	Invoke
	Recurse

	// Await and its sub-kinds.
	Await
	Reply
	Action
	Branch

	// Identifiers and block content.
	Identifier
	TextBlockIndent
	TextBlockLine

	// Action sub-grammar.
	ActionSpace
	ActionIdentifier
	ActionIdentifierWithArgs
	FinalActionIdentifier
	ActionArgName
	ActionArgNewline
	ActionComma
	JSONValueLine

	// Punctuation consumed as part of the action sub-grammar.
	Comma
	Colon
	Equals
)

// Class partitions kinds into the equivalence classes the lexer's
// successor table is keyed on.
type Class int

const (
	ClassNone Class = iota
	ClassSimpleCommand
	ClassRefIdentCommand
	ClassRefTextBlockCommand
	ClassActionSubgrammar
	ClassCtrlFlow
	ClassStructural
)

// ClassOf returns the equivalence class used to look up legal successors
// for k.
func ClassOf(k Kind) Class {
	switch k {
	case GetReply, Pause, Prompt:
		return ClassSimpleCommand
	case Label, StarLabel, Goto, LoadCtx, StoreCtx:
		return ClassRefIdentCommand
	case Info, Autoprompt:
		return ClassRefTextBlockCommand
	case Call, Invoke, Recurse:
		return ClassCtrlFlow
	case ActionSpace, ActionIdentifier, ActionIdentifierWithArgs,
		FinalActionIdentifier, ActionArgName, ActionArgNewline,
		ActionComma, JSONValueLine:
		return ClassActionSubgrammar
	default:
		return ClassStructural
	}
}

// String returns a human-readable name for k, used in error messages.
func (k Kind) String() string {
	switch k {
	case Illegal:
		return "illegal"
	case EOF:
		return "eof"
	case Epsilon:
		return "epsilon"
	case Newline:
		return "newline"
	case Comment:
		return "comment"
	case GetReply:
		return "getreply"
	case Pause:
		return "pause"
	case Prompt:
		return "prompt"
	case Label:
		return "label"
	case StarLabel:
		return "*label"
	case Goto:
		return "goto"
	case LoadCtx:
		return "loadctx"
	case StoreCtx:
		return "storectx"
	case Info:
		return "info"
	case Autoprompt:
		return "autoprompt"
	case Call:
		return "call"
	case Invoke:
		return "invoke"
	case Recurse:
		return "recurse"
	case Await:
		return "await"
	case Reply:
		return "reply"
	case Action:
		return "action"
	case Branch:
		return "branch"
	case Identifier:
		return "identifier"
	case TextBlockIndent:
		return "textblockindent"
	case TextBlockLine:
		return "textblockline"
	case ActionSpace:
		return "actionspace"
	case ActionIdentifier:
		return "actionidentifier"
	case ActionIdentifierWithArgs:
		return "actionidentifierwithargs"
	case FinalActionIdentifier:
		return "finalactionidentifier"
	case ActionArgName:
		return "actionargname"
	case ActionArgNewline:
		return "actionargnewline"
	case ActionComma:
		return "actioncomma"
	case JSONValueLine:
		return "jsonvalueline"
	case Comma:
		return "comma"
	case Colon:
		return "colon"
	case Equals:
		return "equals"
	default:
		return "unknown"
	}
}

// Token is a single lexical unit: its kind, its byte span in the source
// (Offset, Length), and the 1-based line on which it starts.
type Token struct {
	Kind   Kind
	Offset int
	Length int
	Line   int
	Text   string // the token's literal source text, for operand extraction
}

// TurnClass classifies a token kind for the static turn analyser.
type TurnClass int

const (
	TurnNone TurnClass = iota
	TurnUser
	TurnAgent
)

// ClassifyTurn returns the turn class of an instruction-starting kind.
// AwaitReply, UserAction, UserBranch, AwaitAction, and AwaitBranch are
// all agent-turn variants; Prompt and Autoprompt are user-turn.
func ClassifyTurn(k Kind) TurnClass {
	switch k {
	case Prompt, Autoprompt:
		return TurnUser
	case Reply, Action, Branch:
		// These stand for the AwaitReply/AwaitAction/AwaitBranch and
		// UserAction/UserBranch instruction kinds, all agent-turn.
		// GetReply is turn-neutral; the analyser tracks it separately
		// for invariant 4.
		return TurnAgent
	default:
		return TurnNone
	}
}
